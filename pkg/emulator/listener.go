package emulator

import (
	"bufio"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// DefaultTimeout bounds each wait for a validator command.
const DefaultTimeout = 500 * time.Millisecond

// ErrTimeout is returned by a Link when no command arrived within the timeout.
var ErrTimeout = errors.New("no command received")

// ErrMalformed is returned by a Link for input that is not an APDU. The listener skips it.
var ErrMalformed = errors.New("malformed command")

// Link carries raw APDUs between a validator and the emulator.
type Link interface {
	Receive(timeout time.Duration) ([]byte, error)
	Send(resp []byte) error
}

// Listener feeds commands from a Link into a Dispatcher.
type Listener struct {
	Dispatcher *Dispatcher
	Link       Link
	Timeout    time.Duration
	log        log.FieldLogger
}

// NewListener returns a listener with the default timeout.
func NewListener(d *Dispatcher, link Link) *Listener {
	return &Listener{Dispatcher: d, Link: link, Timeout: DefaultTimeout, log: d.log}
}

// Run answers commands until ctx is cancelled or the link fails. Cancellation is
// checked between exchanges, so the latest it takes effect is one Timeout later.
func (l *Listener) Run(ctx context.Context) error {
	if l.Dispatcher == nil || l.Link == nil {
		return fmt.Errorf("listener needs a dispatcher and a link")
	}
	timeout := l.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	l.log.Info("emulation started")
	defer l.log.Info("emulation stopped")

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		cmd, err := l.Link.Receive(timeout)
		if errors.Is(err, ErrTimeout) {
			continue
		}
		if errors.Is(err, ErrMalformed) {
			l.log.WithError(err).Warn("skipping input")
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("receive: %w", err)
		}

		l.log.Debugf("-> % X", cmd)
		resp, err := l.Dispatcher.HandleCommand(cmd)
		if err != nil {
			continue
		}
		if err := l.Link.Send(resp); err != nil {
			return fmt.Errorf("send: %w", err)
		}
	}
}

// LineLink exchanges APDUs as hex text, one per line. Blank lines are skipped.
// Close releases the reading goroutine once the caller stops receiving.
type LineLink struct {
	lines chan lineResult
	w     io.Writer

	done      chan struct{}
	closeOnce sync.Once
	exited    chan struct{}
}

type lineResult struct {
	line string
	err  error
}

// NewLineLink reads commands from r and writes answers to w.
func NewLineLink(r io.Reader, w io.Writer) *LineLink {
	l := &LineLink{
		lines:  make(chan lineResult),
		w:      w,
		done:   make(chan struct{}),
		exited: make(chan struct{}),
	}
	go func() {
		defer close(l.exited)
		sc := bufio.NewScanner(r)
		for sc.Scan() {
			if !l.deliver(lineResult{line: sc.Text()}) {
				return
			}
		}
		err := sc.Err()
		if err == nil {
			err = io.EOF
		}
		l.deliver(lineResult{err: err})
	}()
	return l
}

func (l *LineLink) deliver(res lineResult) bool {
	select {
	case l.lines <- res:
		return true
	case <-l.done:
		return false
	}
}

// Close stops delivering lines. A read already blocked on the underlying reader ends
// when that reader returns.
func (l *LineLink) Close() error {
	l.closeOnce.Do(func() { close(l.done) })
	return nil
}

func (l *LineLink) Receive(timeout time.Duration) ([]byte, error) {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case <-l.done:
			return nil, io.EOF
		case res := <-l.lines:
			if res.err != nil {
				return nil, res.err
			}
			text := strings.Join(strings.Fields(res.line), "")
			if text == "" {
				continue
			}
			cmd, err := hex.DecodeString(text)
			if err != nil {
				return nil, fmt.Errorf("%w %q: %v", ErrMalformed, res.line, err)
			}
			return cmd, nil
		case <-timer.C:
			return nil, ErrTimeout
		}
	}
}

func (l *LineLink) Send(resp []byte) error {
	_, err := fmt.Fprintf(l.w, "% X\n", resp)
	return err
}
