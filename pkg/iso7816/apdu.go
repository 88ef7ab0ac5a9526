package iso7816

import (
	"bytes"
	"fmt"
)

// APDU layouts (ISO/IEC 7816-3 and 7816-4).
//
// Command: CLA INS P1 P2 [Lc Data] [Le]
//   - Case 1: header only.
//   - Case 2: header + Le.
//   - Case 3: header + Lc + Data.
//   - Case 4: header + Lc + Data + Le.
//
// Lc/Le use one byte unless Nc > 255 or Ne > 256, in which case the extended form
// (00 + two bytes) is used.
//
// Response: [Data] SW1 SW2.

// APDU Limits and Constants according to ISO 7816-3.
const (
	// MaxShortLc is the maximum data length (Nc) encodable in Short Length mode (1 byte).
	MaxShortLc = 255

	// MaxShortLe is the maximum expected response length (Ne) encodable in Short Length mode.
	// In Short mode, 0x00 encodes 256.
	MaxShortLe = 256

	// MaxExtendedLc is the theoretical limit for Lc in Extended mode (16-bit unsigned).
	MaxExtendedLc = 65535

	// MaxExtendedLe is the maximum Ne encodable in Extended Length mode.
	// In Extended mode, 0x0000 encodes 65536.
	MaxExtendedLe = 65536

	// HeaderSize is the length of CLA INS P1 P2.
	HeaderSize = 4
)

// CommandAPDU represents a command sent to the card.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a basic command.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// Bytes encodes the CommandAPDU into its byte representation (C-APDU).
// It automatically handles the selection between Short and Extended encoding
// based on the length of Data (Nc) and the expected response length (Ne).
func (c *CommandAPDU) Bytes() ([]byte, error) {
	buf := new(bytes.Buffer)

	// 1. Encode Header
	class, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}
	buf.WriteByte(class)
	buf.WriteByte(byte(c.Instruction.Raw))
	buf.WriteByte(c.P1)
	buf.WriteByte(c.P2)

	nc := len(c.Data)
	ne := c.Ne

	// Determine encoding mode
	isExtended := nc > MaxShortLc || ne > MaxShortLe

	// 2. Encode Lc Field & Data Field
	if nc > 0 {
		if !isExtended {
			// Case 3/4 Short: Lc (1 byte) + Data
			buf.WriteByte(byte(nc))
		} else {
			// Case 3/4 Extended: 00 + Lc (2 bytes) + Data
			buf.WriteByte(0x00)
			buf.WriteByte(byte(nc >> 8))
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	// 3. Encode Le Field
	if ne > 0 {
		if !isExtended {
			// Case 2/4 Short: Le (1 byte)
			if ne == MaxShortLe {
				buf.WriteByte(0x00) // 0x00 represents 256
			} else {
				buf.WriteByte(byte(ne))
			}
		} else {
			// Case 2/4 Extended
			// If Lc was absent (Case 2 Extended), we need a leading 00 to distinguish Le from Lc.
			if nc == 0 {
				buf.WriteByte(0x00)
			}

			if ne == MaxExtendedLe {
				// 0x0000 represents 65536
				buf.WriteByte(0x00)
				buf.WriteByte(0x00)
			} else {
				// Le (2 bytes Big Endian)
				buf.WriteByte(byte(ne >> 8))
				buf.WriteByte(byte(ne))
			}
		}
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU parses raw bytes received from the card into a ResponseAPDU.
// The input must contain at least 2 bytes (SW1, SW2).
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < 2 {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	indexSW1 := len(raw) - 2
	data := raw[:indexSW1]
	sw1 := raw[indexSW1]
	sw2 := raw[indexSW1+1]

	return &ResponseAPDU{
		Data:   data,
		Status: NewStatusWord(sw1, sw2),
	}, nil
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}

// Bytes re-encodes the response as Data || SW1 SW2.
func (r *ResponseAPDU) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+2)
	out = append(out, r.Data...)
	return append(out, r.Status.SW1(), r.Status.SW2())
}

// ParseCommandAPDU decodes a raw C-APDU as received by a card.
//
// The CLA and INS bytes are kept as-is: a proprietary class or an INS from the 6X/9X
// range is not an error here, since the receiving side must still answer it.
func ParseCommandAPDU(raw []byte) (*CommandAPDU, error) {
	if len(raw) < HeaderSize {
		return nil, fmt.Errorf("command too short: length %d", len(raw))
	}

	cmd := &CommandAPDU{
		Class:       decodeClassLenient(raw[0]),
		Instruction: Instruction{Raw: InsCode(raw[1]), IsBERTLV: raw[1]&0x01 == 0x01},
		P1:          raw[2],
		P2:          raw[3],
	}

	body := raw[HeaderSize:]
	switch {
	case len(body) == 0:
		// Case 1
	case len(body) == 1:
		// Case 2 short
		cmd.Ne = decodeShortLe(body[0])
	case body[0] != 0x00 || len(body) < 3:
		// Case 3/4 short
		nc := int(body[0])
		if len(body) < 1+nc {
			return nil, fmt.Errorf("Lc %d exceeds body length %d", nc, len(body)-1)
		}
		cmd.Data = body[1 : 1+nc]
		switch rest := body[1+nc:]; len(rest) {
		case 0:
		case 1:
			cmd.Ne = decodeShortLe(rest[0])
		default:
			return nil, fmt.Errorf("unexpected %d trailing bytes", len(rest))
		}
	case len(body) == 3:
		// Case 2 extended
		cmd.Ne = decodeExtendedLe(body[1], body[2])
	default:
		// Case 3/4 extended
		nc := int(body[1])<<8 | int(body[2])
		if len(body) < 3+nc {
			return nil, fmt.Errorf("extended Lc %d exceeds body length %d", nc, len(body)-3)
		}
		cmd.Data = body[3 : 3+nc]
		switch rest := body[3+nc:]; len(rest) {
		case 0:
		case 2:
			cmd.Ne = decodeExtendedLe(rest[0], rest[1])
		default:
			return nil, fmt.Errorf("unexpected %d trailing bytes", len(rest))
		}
	}

	return cmd, nil
}

func decodeShortLe(b byte) int {
	if b == 0x00 {
		return MaxShortLe
	}
	return int(b)
}

func decodeExtendedLe(hi, lo byte) int {
	ne := int(hi)<<8 | int(lo)
	if ne == 0 {
		return MaxExtendedLe
	}
	return ne
}
