package felica

import (
	"encoding/binary"
	"fmt"

	"github.com/gregLibert/transit-card/pkg/transit"
)

// Codec builds FeliCa frames addressed to one card and parses the responses.
// It implements transit.Protocol; the zero IDm is only usable for polling.
type Codec struct {
	IDm [IDmSize]byte
}

func (Codec) Name() string {
	return "felica"
}

// frame assembles [len][code][IDm][payload].
func (c Codec) frame(code byte, payload ...byte) ([]byte, error) {
	n := headerSize + len(payload)
	if n > 0xFF {
		return nil, transit.InvalidArgument("frame of %d bytes exceeds 255", n)
	}
	out := make([]byte, 0, n)
	out = append(out, byte(n), code)
	out = append(out, c.IDm[:]...)
	return append(out, payload...), nil
}

// BuildSelect builds a Polling frame for the 2-byte system code in target, requesting the
// system code back in a single time slot: 06 00 SC(hi) SC(lo) 01 00.
func (c Codec) BuildSelect(target []byte) ([]byte, error) {
	if len(target) != 2 {
		return nil, transit.InvalidArgument("system code must be 2 bytes, got %d", len(target))
	}
	return c.BuildPolling(binary.BigEndian.Uint16(target)), nil
}

// BuildPolling builds the Polling frame for systemCode.
func (Codec) BuildPolling(systemCode uint16) []byte {
	return []byte{0x06, CmdPolling, byte(systemCode >> 8), byte(systemCode), 0x01, 0x00}
}

// BuildRead builds Read Without Encryption for a single block of one service.
func (c Codec) BuildRead(service uint16, block uint16) ([]byte, error) {
	return c.BuildReadBlocks(service, []uint16{block})
}

// BuildReadBlocks builds Read Without Encryption for several blocks of one service:
// 01 SVC(lo) SVC(hi) n blocklist.
func (c Codec) BuildReadBlocks(service uint16, blocks []uint16) ([]byte, error) {
	if len(blocks) == 0 || len(blocks) > MaxBlocksPerRead {
		return nil, transit.InvalidArgument("block count %d out of range 1-%d", len(blocks), MaxBlocksPerRead)
	}
	payload := []byte{0x01, byte(service), byte(service >> 8), byte(len(blocks))}
	for _, b := range blocks {
		payload = appendBlockElement(payload, 0, b)
	}
	return c.frame(CmdReadWithoutEncryption, payload...)
}

// BuildWrite builds Write Without Encryption of one 16-byte block.
func (c Codec) BuildWrite(service uint16, block uint16, data []byte) ([]byte, error) {
	if len(data) != BlockSize {
		return nil, transit.InvalidArgument("block data must be %d bytes, got %d", BlockSize, len(data))
	}
	payload := []byte{0x01, byte(service), byte(service >> 8), 0x01}
	payload = appendBlockElement(payload, 0, block)
	payload = append(payload, data...)
	return c.frame(CmdWriteWithoutEncryption, payload...)
}

// BuildRequestService builds Request Service for the given service (or area) codes.
func (c Codec) BuildRequestService(codes []uint16) ([]byte, error) {
	if len(codes) == 0 || len(codes) > 32 {
		return nil, transit.InvalidArgument("service count %d out of range 1-32", len(codes))
	}
	payload := []byte{byte(len(codes))}
	for _, code := range codes {
		payload = binary.LittleEndian.AppendUint16(payload, code)
	}
	return c.frame(CmdRequestService, payload...)
}

// BuildRequestSystemCode builds Request System Code.
func (c Codec) BuildRequestSystemCode() ([]byte, error) {
	return c.frame(CmdRequestSystemCode)
}

// BuildAuthentication1 builds Authentication1 with no services and the reader challenge rr.
func (c Codec) BuildAuthentication1(rr []byte) ([]byte, error) {
	if len(rr) != ChallengeSize {
		return nil, transit.InvalidArgument("reader challenge must be %d bytes, got %d", ChallengeSize, len(rr))
	}
	return c.frame(CmdAuthentication1, append([]byte{0x00}, rr...)...)
}

// appendBlockElement appends a block list element: 2 bytes {80|idx, block} when block
// fits a byte, else 3 bytes {idx, block(lo), block(hi)}.
func appendBlockElement(dst []byte, serviceIndex byte, block uint16) []byte {
	if block <= 0xFF {
		return append(dst, 0x80|serviceIndex&0x0F, byte(block))
	}
	return append(dst, serviceIndex&0x0F, byte(block), byte(block>>8))
}

// hasStatusFlags reports whether responses to the command answered by code carry
// status flag 1 and 2 after the IDm.
func hasStatusFlags(code byte) bool {
	switch code {
	case CmdReadWithoutEncryption + 1, CmdWriteWithoutEncryption + 1:
		return true
	default:
		return false
	}
}

// ParseStatus checks the length byte and, for read and write responses, the status flags.
// It returns what follows the IDm with the flags stripped; for a Polling response it
// returns what follows the response code (IDm, PMm and optional system code).
func (Codec) ParseStatus(rx []byte) ([]byte, error) {
	if len(rx) < 2 {
		return nil, &transit.DecodeError{Format: "felica frame", Reason: fmt.Sprintf("%d bytes", len(rx))}
	}
	if int(rx[0]) != len(rx) {
		return nil, &transit.DecodeError{Format: "felica frame", Reason: fmt.Sprintf("length byte %d, frame holds %d", rx[0], len(rx))}
	}

	code := rx[1]
	if code == CmdPolling+1 {
		return rx[2:], nil
	}
	if len(rx) < headerSize {
		return nil, &transit.DecodeError{Format: "felica frame", Reason: fmt.Sprintf("response 0x%02X truncated to %d bytes", code, len(rx))}
	}
	if !hasStatusFlags(code) {
		return rx[headerSize:], nil
	}

	if len(rx) < headerSize+2 {
		return nil, &transit.DecodeError{Format: "felica frame", Reason: "missing status flags"}
	}
	st1, st2 := rx[headerSize], rx[headerSize+1]
	if st1 != 0x00 || st2 != 0x00 {
		return nil, &transit.StatusError{
			Protocol: "felica",
			SW1:      st1,
			SW2:      st2,
			Detail:   statusDetail(st1),
		}
	}
	return rx[headerSize+2:], nil
}

func statusDetail(st1 byte) string {
	if st1 == 0x00 {
		return ""
	}
	if st1 == 0xFF {
		return "error not tied to a list element"
	}
	return fmt.Sprintf("error at list element %d", bitIndex(st1))
}

// bitIndex returns the position of the lowest set bit, 1-based.
func bitIndex(b byte) int {
	for i := 0; i < 8; i++ {
		if b&(1<<i) != 0 {
			return i + 1
		}
	}
	return 0
}
