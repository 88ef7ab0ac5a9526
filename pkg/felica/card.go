package felica

import (
	"fmt"
	"strings"

	"github.com/gregLibert/transit-card/pkg/bits"
)

// CardType identifies the scheme behind a FeliCa card.
type CardType int

const (
	Unknown CardType = iota
	Suica
	Pasmo
	ICOCA
	Nimoca
	Kitaca
	TOICA
	SUGOCA
	Edy
	Nanaco
	WAON
	Octopus
	EZLink
	Mobile
)

var cardNames = map[CardType]string{
	Suica:   "Suica (JR East)",
	Pasmo:   "Pasmo",
	ICOCA:   "ICOCA (JR West)",
	Nimoca:  "Nimoca",
	Kitaca:  "Kitaca (JR Hokkaido)",
	TOICA:   "TOICA (JR Central)",
	SUGOCA:  "SUGOCA (JR Kyushu)",
	Edy:     "Rakuten Edy",
	Nanaco:  "nanaco",
	WAON:    "WAON",
	Octopus: "Octopus (Hong Kong)",
	EZLink:  "EZ-Link (Singapore)",
	Mobile:  "Mobile FeliCa",
}

func (t CardType) String() string {
	if name, ok := cardNames[t]; ok {
		return name
	}
	return "Unknown FeliCa"
}

// SystemCodeName names the common system codes.
func SystemCodeName(code uint16) string {
	switch code {
	case SystemSuica:
		return "Suica/Transit"
	case SystemCommon:
		return "Common/E-Money"
	case SystemOctopus:
		return "Octopus"
	default:
		return "Unknown System"
	}
}

// Card is a polled FeliCa card.
type Card struct {
	IDm           [IDmSize]byte
	PMm           [PMmSize]byte
	SystemCode    uint16
	Type          CardType
	Authenticated bool
}

// Identify guesses the card type from the polled system code, IDm and PMm.
//
// The Suica, Pasmo and ICOCA schemes share system 0003 and are told apart by the IDm
// manufacturer nibble. Every e-money scheme answers on FE00; only Mobile FeliCa is
// recognizable there (PMm starting FF FF), the rest are reported as Edy.
func Identify(systemCode uint16, idm [IDmSize]byte, pmm [PMmSize]byte) CardType {
	switch systemCode {
	case SystemSuica:
		switch bits.HighNibble(idm[0]) {
		case 0x1:
			return Pasmo
		case 0x2:
			return ICOCA
		default:
			return Suica
		}
	case SystemCommon:
		if pmm[0] == 0xFF && pmm[1] == 0xFF {
			return Mobile
		}
		return Edy
	case SystemOctopus:
		return Octopus
	default:
		return Unknown
	}
}

// Describe reports the card identity and its security properties.
func (c *Card) Describe() string {
	var sb strings.Builder
	sb.WriteString("=== FELICA SECURITY ANALYSIS ===\n")
	fmt.Fprintf(&sb, "Card Type: %s\n", c.Type)
	fmt.Fprintf(&sb, "System Code: 0x%04X (%s)\n", c.SystemCode, SystemCodeName(c.SystemCode))
	fmt.Fprintf(&sb, "IDm: %X\n", c.IDm)
	fmt.Fprintf(&sb, "PMm: %X\n", c.PMm)
	fmt.Fprintf(&sb, "Record Format: %s\n", FormatOf(c.Type))
	sb.WriteString("Features:\n")
	sb.WriteString("    - 3DES/AES authentication\n")
	sb.WriteString("    - Diversified keys (IDm-based)\n")
	sb.WriteString("    - Mutual authentication\n")
	sb.WriteString("    - Session keys per transaction\n")
	sb.WriteString("Known Weaknesses: None")
	return sb.String()
}
