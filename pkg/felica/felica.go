/*
Package felica implements the reader side of Sony FeliCa (NFC-F) transit cards.

# Frames

Every command and response is a length-prefixed frame:

	[len] [code] [IDm x8] [payload...]

len counts the whole frame including itself. Responses carry code+1. Polling is the only
command sent before the IDm is known, so its frame has no IDm.

Read and write responses carry two status flags right after the IDm; both must be 00 for
success, anything else comes back as a *transit.StatusError holding flag 1 and flag 2 in
SW1 and SW2.

# Records

History blocks are decoded according to the card's Format. Only the Suica family layout
is known.
*/
package felica

// Command codes.
const (
	CmdPolling                byte = 0x00
	CmdRequestService         byte = 0x02
	CmdRequestResponse        byte = 0x04
	CmdReadWithoutEncryption  byte = 0x06
	CmdWriteWithoutEncryption byte = 0x08
	CmdSearchServiceCode      byte = 0x0A
	CmdRequestSystemCode      byte = 0x0C
	CmdAuthentication1        byte = 0x10
	CmdAuthentication2        byte = 0x12
)

// System codes.
const (
	SystemSuica    uint16 = 0x0003
	SystemCommon   uint16 = 0xFE00
	SystemOctopus  uint16 = 0x8008
	SystemWildcard uint16 = 0xFFFF
)

// Suica family service codes.
const (
	ServiceSuicaBalance uint16 = 0x008B
	ServiceSuicaHistory uint16 = 0x090F
)

const (
	// IDmSize is the length of the manufacture ID.
	IDmSize = 8
	// PMmSize is the length of the manufacture parameters.
	PMmSize = 8
	// BlockSize is the length of a data block.
	BlockSize = 16
	// MaxBlocksPerRead bounds the block list of one read.
	MaxBlocksPerRead = 15
	// MaxHistory is the number of history blocks a Suica card keeps.
	MaxHistory = 20
	// ChallengeSize is the length of the RR and RC authentication challenges.
	ChallengeSize = 8

	headerSize = 2 + IDmSize
)

// Checksum is the 16-bit additive checksum used on FeliCa block data.
func Checksum(data []byte) uint16 {
	var sum uint16
	for _, b := range data {
		sum += uint16(b)
	}
	return sum
}
