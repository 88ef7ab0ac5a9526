package pcsc

import (
	"fmt"

	"github.com/gregLibert/transit-card/pkg/iso7816"
	"github.com/gregLibert/transit-card/pkg/transit"
)

// FeliCaBridge carries raw FeliCa frames inside the reader's transparent pseudo-APDU
// FF FE 00 00 Lc <frame>. The reader answers <response frame> 90 00.
type FeliCaBridge struct {
	T transit.Transmitter
}

// Transmit wraps frame, sends it and unwraps the answer. A 64XX reader status means the
// card did not answer and comes back as an empty response.
func (b FeliCaBridge) Transmit(frame []byte) ([]byte, error) {
	if b.T == nil {
		return nil, transit.InvalidArgument("nil transmitter")
	}
	if len(frame) == 0 || len(frame) > 0xFF {
		return nil, transit.InvalidArgument("FeliCa frame length %d out of range 1-255", len(frame))
	}

	apdu := make([]byte, 0, 5+len(frame))
	apdu = append(apdu, 0xFF, 0xFE, 0x00, 0x00, byte(len(frame)))
	apdu = append(apdu, frame...)

	rsp, err := b.T.Transmit(apdu)
	if err != nil {
		return nil, err
	}
	if len(rsp) == 0 {
		return nil, nil
	}
	data, err := stripStatus(rsp)
	if err != nil {
		if sw, _ := iso7816.Trailer(rsp); len(rsp) == 2 && sw.SW1() == 0x64 {
			return nil, nil
		}
		return nil, fmt.Errorf("felica bridge: %w", err)
	}
	return data, nil
}
