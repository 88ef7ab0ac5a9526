// Package pcsc connects to a contactless card through a PC/SC reader.
package pcsc

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/ebfe/scard"
	log "github.com/sirupsen/logrus"

	"github.com/gregLibert/transit-card/pkg/iso7816"
	"github.com/gregLibert/transit-card/pkg/transit"
)

// handle is the part of *scard.Card a Connection uses.
type handle interface {
	Transmit(cmd []byte) ([]byte, error)
	Status() (*scard.CardStatus, error)
	Disconnect(d scard.Disposition) error
}

// Connection wraps a PC/SC card connection.
type Connection struct {
	ctx    *scard.Context
	card   handle
	Reader string
	log    log.FieldLogger
}

// ListReaders returns the names of the attached readers.
func ListReaders() ([]string, error) {
	ctx, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish context: %w", err)
	}
	defer func() { _ = ctx.Release() }()

	readers, err := ctx.ListReaders()
	if err != nil {
		return nil, fmt.Errorf("list readers: %w", err)
	}
	return readers, nil
}

// pickReader resolves selector against readers: empty means the first reader, digits an
// index, anything else a substring of the reader name.
func pickReader(readers []string, selector string) (string, error) {
	if len(readers) == 0 {
		return "", errors.New("no smart card reader found")
	}
	if selector == "" {
		return readers[0], nil
	}
	if i, err := strconv.Atoi(selector); err == nil {
		if i < 0 || i >= len(readers) {
			return "", fmt.Errorf("reader index out of range (0..%d)", len(readers)-1)
		}
		return readers[i], nil
	}
	for _, r := range readers {
		if strings.Contains(r, selector) {
			return r, nil
		}
	}
	return "", fmt.Errorf("no reader matching %q", selector)
}

// Connect waits up to wait for a card on the reader named by selector and connects to it.
// A zero wait connects right away.
func Connect(ctx context.Context, selector string, wait time.Duration, logger log.FieldLogger) (*Connection, error) {
	if logger == nil {
		logger = log.StandardLogger()
	}

	sc, err := scard.EstablishContext()
	if err != nil {
		return nil, fmt.Errorf("establish context: %w", err)
	}

	readers, err := sc.ListReaders()
	if err != nil {
		_ = sc.Release()
		return nil, fmt.Errorf("list readers: %w", err)
	}
	reader, err := pickReader(readers, selector)
	if err != nil {
		_ = sc.Release()
		return nil, err
	}
	logger = logger.WithField("reader", reader)

	if wait > 0 {
		logger.Info("waiting for a card")
		if err := waitForCard(ctx, sc, reader, wait); err != nil {
			_ = sc.Release()
			return nil, err
		}
	}

	// Force T=0 or T=1 to avoid "Parameter Incorrect" errors
	card, err := sc.Connect(reader, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
	if err != nil {
		_ = sc.Release()
		return nil, fmt.Errorf("%w: connect to %s: %v", transit.ErrNoCard, reader, err)
	}

	logger.Debug("connected")
	return &Connection{ctx: sc, card: card, Reader: reader, log: logger}, nil
}

func waitForCard(ctx context.Context, sc *scard.Context, reader string, wait time.Duration) error {
	deadline := time.Now().Add(wait)
	states := []scard.ReaderState{{Reader: reader, CurrentState: scard.StateUnaware}}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		left := time.Until(deadline)
		if left <= 0 {
			return transit.ErrNoCard
		}
		if left > time.Second {
			left = time.Second
		}

		err := sc.GetStatusChange(states, left)
		if errors.Is(err, scard.ErrTimeout) {
			continue
		}
		if err != nil {
			return fmt.Errorf("reader status: %w", err)
		}
		if states[0].EventState&scard.StatePresent != 0 {
			return nil
		}
		states[0].CurrentState = states[0].EventState
	}
}

// Close disconnects the card and releases the PC/SC context.
func (c *Connection) Close() {
	if c == nil {
		return
	}
	if c.card != nil {
		if err := c.card.Disconnect(scard.LeaveCard); err != nil {
			c.log.WithError(err).Warn("failed to disconnect card")
		}
	}
	if c.ctx != nil {
		if err := c.ctx.Release(); err != nil {
			c.log.WithError(err).Warn("failed to release context")
		}
	}
}

// Transmit sends a raw frame to the card.
func (c *Connection) Transmit(cmd []byte) ([]byte, error) {
	if c == nil || c.card == nil {
		return nil, errors.New("connection not established")
	}
	return c.card.Transmit(cmd)
}

// ATR returns the answer to reset reported by the reader.
func (c *Connection) ATR() ([]byte, error) {
	if c == nil || c.card == nil {
		return nil, errors.New("connection not established")
	}
	st, err := c.card.Status()
	if err != nil {
		return nil, err
	}
	return st.Atr, nil
}

// UID retrieves the card UID with the reader's GET DATA pseudo-APDU (FF CA 00 00).
func (c *Connection) UID() ([]byte, error) {
	rsp, err := c.Transmit([]byte{0xFF, 0xCA, 0x00, 0x00, 0x00})
	if err != nil {
		return nil, err
	}
	data, err := stripStatus(rsp)
	if err != nil {
		return nil, fmt.Errorf("get UID: %w", err)
	}
	return data, nil
}

// stripStatus checks a 90 00 trailer and returns what precedes it.
func stripStatus(rsp []byte) ([]byte, error) {
	sw, ok := iso7816.Trailer(rsp)
	if !ok {
		return nil, errors.New("invalid response length")
	}
	if sw != iso7816.SW_NO_ERROR {
		return nil, fmt.Errorf("error status: %s", sw.Verbose())
	}
	return rsp[:len(rsp)-2], nil
}
