package iso7816

import (
	"fmt"
)

// SELECT parameters (ISO 7816-4):
// P1 says how the file is targeted, P2 bits 4-3 what the card answers with.
// Bits 2-1 of P2 (occurrence) are not used by transit applications.

// SelectionMethod defines how the file is targeted (P1).
type SelectionMethod byte

const (
	SelectByFileID          SelectionMethod = 0x00
	SelectChildDF           SelectionMethod = 0x01
	SelectEFUnderCurrentDF  SelectionMethod = 0x02
	SelectParentDF          SelectionMethod = 0x03
	SelectByDFName          SelectionMethod = 0x04 // Select by AID
	SelectPathFromMF        SelectionMethod = 0x08
	SelectPathFromCurrentDF SelectionMethod = 0x09
)

func (s SelectionMethod) String() string {
	switch s {
	case SelectByFileID:
		return "Select by File ID"
	case SelectChildDF:
		return "Select Child DF"
	case SelectEFUnderCurrentDF:
		return "Select EF under current DF"
	case SelectParentDF:
		return "Select Parent DF"
	case SelectByDFName:
		return "Select by DF Name (AID)"
	case SelectPathFromMF:
		return "Select Path from MF"
	case SelectPathFromCurrentDF:
		return "Select Path from Current DF"
	default:
		return fmt.Sprintf("Unknown Method (0x%02X)", byte(s))
	}
}

// SelectionControl defines what data to return (bits 4-3 of P2).
type SelectionControl byte

const (
	ReturnFCI    SelectionControl = 0b0000_00_00
	ReturnFCP    SelectionControl = 0b0000_01_00
	ReturnFMD    SelectionControl = 0b0000_10_00
	ReturnNoData SelectionControl = 0b0000_11_00
)

func (s SelectionControl) String() string {
	switch s {
	case ReturnFCI:
		return "Return FCI"
	case ReturnFCP:
		return "Return FCP"
	case ReturnFMD:
		return "Return FMD"
	case ReturnNoData:
		return "No Response Data"
	default:
		return "Unknown Control"
	}
}

// SelectParams decodes the P1 and P2 of a received SELECT.
func SelectParams(p1, p2 byte) (SelectionMethod, SelectionControl) {
	return SelectionMethod(p1), SelectionControl(p2 & 0b0000_11_00)
}

// NewSelectCommand creates a SELECT by name under a proprietary instruction code, as some
// card families use one. A nil ins means the interindustry A4.
// The command carries no Le: a T=0 card answers 61XX and the Client fetches the data.
func NewSelectCommand(cla Class, ins *Instruction, ctrl SelectionControl, name []byte) *CommandAPDU {
	if ins == nil {
		ins = &Instruction{Raw: INS_SELECT}
	}
	return NewCommandAPDU(cla, *ins, byte(SelectByDFName), byte(ctrl), name, 0)
}
