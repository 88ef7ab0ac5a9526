/*
Package transit holds what the Calypso and FeliCa codecs have in common: the transmitter
abstraction, the Protocol interface with its single exchange loop, the error taxonomy and
the BCD date/time types found in card records.

# Exchange

Both card families follow the same shape:

 1. The codec builds a command frame.
 2. The transmitter moves it to the card and returns the raw response.
 3. The codec checks the status bytes and hands back the payload.

Exchange implements step 2 and delegates steps 1 and 3 to a Protocol. It never retries:
a link error or an empty response comes back as a TransportError, a rejection as a
StatusError.
*/
package transit

import "errors"

// Transmitter abstracts the physical link to the card.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// TransmitFunc adapts a plain function to the Transmitter interface.
type TransmitFunc func(cmd []byte) ([]byte, error)

func (f TransmitFunc) Transmit(cmd []byte) ([]byte, error) {
	return f(cmd)
}

// Protocol is implemented by the Calypso APDU codec and the FeliCa frame codec.
//
// Both frame formats carry the command code at offset 1, which Exchange uses to
// annotate status errors.
type Protocol interface {
	Name() string
	BuildSelect(target []byte) ([]byte, error)
	BuildRead(file uint16, record uint16) ([]byte, error)
	ParseStatus(rx []byte) ([]byte, error)
}

// Exchange sends tx over t and parses the response with p.
func Exchange(t Transmitter, p Protocol, tx []byte) ([]byte, error) {
	if t == nil {
		return nil, InvalidArgument("nil transmitter")
	}
	if len(tx) == 0 {
		return nil, InvalidArgument("empty %s command", p.Name())
	}

	rx, err := t.Transmit(tx)
	if err != nil {
		var te *TransportError
		if errors.As(err, &te) {
			return nil, err
		}
		return nil, &TransportError{Op: p.Name(), Err: err}
	}
	if len(rx) == 0 {
		return nil, &TransportError{Op: p.Name(), Err: ErrNoResponse}
	}

	payload, err := p.ParseStatus(rx)
	if err != nil {
		var se *StatusError
		if errors.As(err, &se) && se.Command == 0 && len(tx) > 1 {
			se.Command = tx[1]
		}
		return nil, err
	}
	return payload, nil
}
