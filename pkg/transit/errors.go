package transit

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument is returned for bad input caught before anything is sent to the card.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrNotAuthenticated is returned when a secure operation is attempted outside an open session.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrNoResponse is wrapped in a TransportError when the transmitter returned no bytes.
	ErrNoResponse = errors.New("no response from card")

	// ErrNoCard is returned when detection finds nothing usable in the field.
	ErrNoCard = errors.New("no card detected")

	// ErrDecode is the sentinel matched by every DecodeError.
	ErrDecode = errors.New("decode error")

	// ErrSessionState is returned when a session operation does not fit the current state.
	ErrSessionState = errors.New("invalid session state")
)

// TransportError reports a link failure or an empty response.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("transport failure: %v", e.Err)
	}
	return fmt.Sprintf("transport failure during %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// StatusError reports a response whose status bytes signal rejection.
// For Calypso these are SW1/SW2, for FeliCa status flag 1 and 2.
type StatusError struct {
	Protocol string
	Command  byte
	SW1, SW2 byte
	Detail   string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s command 0x%02X rejected with status %02X %02X", e.Protocol, e.Command, e.SW1, e.SW2)
	if e.Detail != "" {
		msg += " (" + e.Detail + ")"
	}
	return msg
}

// DecodeError reports a record whose layout matches no known format.
type DecodeError struct {
	Format string
	Reason string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("cannot decode %s: %s", e.Format, e.Reason)
}

func (e *DecodeError) Is(target error) bool {
	return target == ErrDecode
}

// IsStatus reports whether err carries the given status bytes.
func IsStatus(err error, sw1, sw2 byte) bool {
	var se *StatusError
	if errors.As(err, &se) {
		return se.SW1 == sw1 && se.SW2 == sw2
	}
	return false
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// InvalidArgument builds an error matching ErrInvalidArgument.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}
