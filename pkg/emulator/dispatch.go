package emulator

import (
	"fmt"

	log "github.com/sirupsen/logrus"

	"github.com/gregLibert/transit-card/pkg/calypso"
	"github.com/gregLibert/transit-card/pkg/iso7816"
	"github.com/gregLibert/transit-card/pkg/transit"
)

// Challenge is the fixed GET CHALLENGE answer.
var Challenge = [8]byte{0x01, 0x23, 0x45, 0x67, 0x89, 0xAB, 0xCD, 0xEF}

func withStatus(data []byte, sw iso7816.StatusWord) []byte {
	return (&iso7816.ResponseAPDU{Data: data, Status: sw}).Bytes()
}

// HandleCommand answers one validator command from ticket. Commands shorter than the
// 4-byte header are not answered. The ticket is never modified.
func HandleCommand(ticket *Ticket, cmd []byte) ([]byte, error) {
	if ticket == nil {
		return nil, transit.InvalidArgument("nil ticket")
	}
	if len(cmd) < iso7816.HeaderSize {
		return nil, transit.InvalidArgument("command of %d bytes is shorter than an APDU header", len(cmd))
	}

	switch iso7816.InsCode(cmd[1]) {
	case iso7816.INS_SELECT:
		fci, err := calypso.EncodeFCI(&calypso.FCI{DFName: calypso.AID})
		if err != nil {
			return nil, err
		}
		return withStatus(fci, iso7816.SW_NO_ERROR), nil

	case iso7816.INS_READ_RECORD:
		return withStatus(ticket.contractRecord(), iso7816.SW_NO_ERROR), nil

	case iso7816.INS_GET_CHALLENGE:
		return withStatus(Challenge[:], iso7816.SW_NO_ERROR), nil

	default:
		return withStatus(nil, iso7816.SW_ERR_INS_INVALID), nil
	}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the logger.
func WithLogger(l log.FieldLogger) Option {
	return func(d *Dispatcher) { d.log = l }
}

// Dispatcher owns the emulated ticket and logs every exchange.
type Dispatcher struct {
	ticket *Ticket
	log    log.FieldLogger
}

// NewDispatcher returns a dispatcher serving ticket (NewTicket when nil).
func NewDispatcher(ticket *Ticket, opts ...Option) *Dispatcher {
	if ticket == nil {
		ticket = NewTicket()
	}
	d := &Dispatcher{ticket: ticket, log: log.StandardLogger()}
	for _, opt := range opts {
		opt(d)
	}
	d.log = d.log.WithField("protocol", "calypso-emulation")
	return d
}

// Reset re-initializes the ticket.
func (d *Dispatcher) Reset(balance uint16, trips uint8) {
	d.ticket.Init(balance, trips)
	d.log.WithField("ticket", d.ticket.String()).Info("ticket initialized")
}

// TicketInfo returns the balance in centimes and the trips left.
func (d *Dispatcher) TicketInfo() (balance uint16, trips uint8) {
	return d.ticket.Balance(), d.ticket.Trips
}

// HandleCommand answers cmd from the owned ticket.
func (d *Dispatcher) HandleCommand(cmd []byte) ([]byte, error) {
	resp, err := HandleCommand(d.ticket, cmd)
	if err != nil {
		d.log.WithError(err).Warnf("dropping command % X", cmd)
		return nil, err
	}

	entry := d.log.WithFields(log.Fields{
		"cla": cmd[0],
		"ins": iso7816.InsCode(cmd[1]).String(),
		"sw":  fmt.Sprintf("%02X%02X", resp[len(resp)-2], resp[len(resp)-1]),
	})
	switch iso7816.InsCode(cmd[1]) {
	case iso7816.INS_READ_RECORD:
		sfi, mode := iso7816.ReadRecordParams(cmd[3])
		entry = entry.WithFields(log.Fields{"record": cmd[2], "file": sfi, "mode": mode.String()})
	case iso7816.INS_SELECT:
		method, ctrl := iso7816.SelectParams(cmd[2], cmd[3])
		entry = entry.WithFields(log.Fields{"method": method.String(), "control": ctrl.String()})
	}
	if sw, _ := iso7816.Trailer(resp); sw == iso7816.SW_ERR_INS_INVALID {
		entry.Warn("instruction not supported")
	} else {
		entry.Debugf("<- % X", resp)
	}
	return resp, nil
}
