package calypso

import (
	"github.com/gregLibert/transit-card/pkg/iso7816"
	"github.com/gregLibert/transit-card/pkg/transit"
)

// Codec builds Calypso command APDUs and parses their responses.
// It implements transit.Protocol.
type Codec struct{}

var cla = iso7816.Class{Raw: CLA, IsProprietary: true}

func command(ins iso7816.InsCode, p1, p2 byte, data []byte, ne int) ([]byte, error) {
	cmd := iso7816.NewCommandAPDU(cla, iso7816.Instruction{Raw: ins}, p1, p2, data, ne)
	return cmd.Bytes()
}

func (Codec) Name() string {
	return "calypso"
}

// BuildSelect builds SELECT APPLICATION: 94 02 04 00 Lc AID.
func (Codec) BuildSelect(aid []byte) ([]byte, error) {
	if len(aid) == 0 || len(aid) > 16 {
		return nil, transit.InvalidArgument("AID length %d out of range 1-16", len(aid))
	}
	return iso7816.NewSelectCommand(cla, &iso7816.Instruction{Raw: InsSelect}, iso7816.ReturnFCI, aid).Bytes()
}

// BuildRead builds READ RECORD for one record of a short file: 94 B2 rec (sfi<<3|04) 1D.
func (Codec) BuildRead(sfi uint16, record uint16) ([]byte, error) {
	if _, err := fileRef(sfi); err != nil {
		return nil, err
	}
	if record == 0 || record > 0xFF {
		return nil, transit.InvalidArgument("record number %d out of range 1-255", record)
	}
	return iso7816.ReadRecord(cla, byte(sfi), byte(record), RecordSize).Bytes()
}

// ParseStatus strips the status word, which must be 90 00.
func (Codec) ParseStatus(rx []byte) ([]byte, error) {
	resp, err := iso7816.ParseResponseAPDU(rx)
	if err != nil {
		return nil, &transit.DecodeError{Format: "response APDU", Reason: err.Error()}
	}
	if resp.Status != iso7816.SW_NO_ERROR {
		return nil, &transit.StatusError{
			Protocol: "calypso",
			SW1:      resp.Status.SW1(),
			SW2:      resp.Status.SW2(),
			Detail:   StatusMeaning(resp.Status),
		}
	}
	return resp.Data, nil
}

// BuildOpenSession builds OPEN SECURE SESSION: 94 8A kk 01 04.
func (Codec) BuildOpenSession(keyIndex byte) ([]byte, error) {
	return command(InsOpenSession, keyIndex, 0x01, nil, 4)
}

// BuildCloseSession builds CLOSE SECURE SESSION: 94 8E 00 00 04 MAC.
func (Codec) BuildCloseSession(mac [MACSize]byte) ([]byte, error) {
	return command(InsCloseSession, 0x00, 0x00, mac[:], 0)
}

// BuildGetChallenge builds GET CHALLENGE: 94 84 00 00 08.
func (Codec) BuildGetChallenge() ([]byte, error) {
	return command(InsGetChallenge, 0x00, 0x00, nil, ChallengeSize)
}

// BuildUpdateRecord builds UPDATE RECORD: 94 DC rec (sfi<<3|04) Lc data.
func (Codec) BuildUpdateRecord(sfi uint16, record byte, data []byte) ([]byte, error) {
	p2, err := fileRef(sfi)
	if err != nil {
		return nil, err
	}
	if record == 0 {
		return nil, transit.InvalidArgument("record number must be at least 1")
	}
	if len(data) == 0 || len(data) > RecordSize {
		return nil, transit.InvalidArgument("record data length %d out of range 1-%d", len(data), RecordSize)
	}
	return command(InsUpdateRecord, record, p2, data, 0)
}

// BuildIncrease builds INCREASE: 94 32 counter (sfi<<3) 03 amount 03.
func (Codec) BuildIncrease(sfi uint16, counter byte, amount uint32) ([]byte, error) {
	return buildCounter(InsIncrease, sfi, counter, amount)
}

// BuildDecrease builds DECREASE: 94 30 counter (sfi<<3) 03 amount 03.
func (Codec) BuildDecrease(sfi uint16, counter byte, amount uint32) ([]byte, error) {
	return buildCounter(InsDecrease, sfi, counter, amount)
}

func buildCounter(ins iso7816.InsCode, sfi uint16, counter byte, amount uint32) ([]byte, error) {
	if _, err := fileRef(sfi); err != nil {
		return nil, err
	}
	if counter == 0 {
		return nil, transit.InvalidArgument("counter number must be at least 1")
	}
	if amount > MaxCounterValue {
		return nil, transit.InvalidArgument("amount %d exceeds 3 bytes", amount)
	}
	return command(ins, counter, byte(sfi)<<3, counterBytes(amount), CounterSize)
}

// fileRef returns the P2 byte addressing record P1 of a short file.
func fileRef(sfi uint16) (byte, error) {
	if sfi == 0 || sfi > MaxSFI {
		return 0, transit.InvalidArgument("SFI 0x%02X out of range 1-0x%02X", sfi, MaxSFI)
	}
	return byte(sfi)<<3 | byte(iso7816.RefByNum_ReadP1), nil
}

func counterBytes(v uint32) []byte {
	return []byte{byte(v >> 16), byte(v >> 8), byte(v)}
}

func counterValue(b []byte) uint32 {
	if len(b) < CounterSize {
		return 0
	}
	return uint32(b[0])<<16 | uint32(b[1])<<8 | uint32(b[2])
}
