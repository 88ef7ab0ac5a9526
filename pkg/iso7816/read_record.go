package iso7816

import (
	"fmt"
)

// READ RECORD (INS 'B2', ISO 7816-4 table 49).
// P1 is the record number (00 = current record) when P2 b3 is set, a record identifier
// otherwise. P2 b8-b4 carry the SFI (0 = current EF) and b3-b1 the mode. Transit files
// are always read by number, one record at a time.

// ReadRecordMode is the low three bits of P2.
type ReadRecordMode byte

const (
	RefByID_FirstOccurrence    ReadRecordMode = 0b000
	RefByID_LastOccurrence     ReadRecordMode = 0b001
	RefByID_NextOccurrence     ReadRecordMode = 0b010
	RefByID_PreviousOccurrence ReadRecordMode = 0b011

	RefByNum_ReadP1              ReadRecordMode = 0b100
	RefByNum_ReadAllFromP1       ReadRecordMode = 0b101
	RefByNum_ReadAllFromLastToP1 ReadRecordMode = 0b110
)

func (m ReadRecordMode) String() string {
	switch m {
	case RefByID_FirstOccurrence:
		return "Ref ID: First Occurrence"
	case RefByID_LastOccurrence:
		return "Ref ID: Last Occurrence"
	case RefByID_NextOccurrence:
		return "Ref ID: Next Occurrence"
	case RefByID_PreviousOccurrence:
		return "Ref ID: Previous Occurrence"
	case RefByNum_ReadP1:
		return "Ref Num: Read Record P1"
	case RefByNum_ReadAllFromP1:
		return "Ref Num: Read All from P1"
	case RefByNum_ReadAllFromLastToP1:
		return "Ref Num: Read All from Last to P1"
	default:
		return fmt.Sprintf("Unknown Mode (0x%X)", byte(m))
	}
}

// ReadRecordParams splits the P2 of a received READ RECORD into SFI and mode.
func ReadRecordParams(p2 byte) (sfi byte, mode ReadRecordMode) {
	return p2 >> 3, ReadRecordMode(p2 & 0b111)
}

// NewReadRecordCommand creates a raw READ RECORD command.
// READ RECORD is a case 2 command: ne is the expected record length, MaxShortLe when unknown.
func NewReadRecordCommand(cla Class, sfi byte, p1 byte, mode ReadRecordMode, ne int) *CommandAPDU {
	ins, _ := NewInstruction(INS_READ_RECORD)
	return NewCommandAPDU(cla, ins, p1, sfi<<3|byte(mode), nil, ne)
}

// ReadRecord reads one record by number.
func ReadRecord(cla Class, sfi byte, recordNumber byte, ne int) *CommandAPDU {
	return NewReadRecordCommand(cla, sfi, recordNumber, RefByNum_ReadP1, ne)
}
