package calypso

import "github.com/gregLibert/transit-card/pkg/iso7816"

// statusMeanings gives the Calypso reading of status words whose ISO wording is too
// generic to act on.
var statusMeanings = map[iso7816.StatusWord]string{
	0x6400: "too many modifications in session",
	0x6700: "Lc value not supported",
	0x6981: "command incompatible with the file structure",
	0x6982: "security conditions not fulfilled (no session or key rejected)",
	0x6985: "access forbidden (session state or file rights)",
	0x6986: "no current EF",
	0x6988: "incorrect signature",
	0x6A82: "file not found",
	0x6A83: "record not found",
	0x6B00: "P1 or P2 out of range",
	0x6D00: "instruction unknown",
	0x6E00: "CLA not supported (use 94)",
}

// StatusMeaning describes sw for a Calypso card, falling back to the ISO 7816-4 text.
func StatusMeaning(sw iso7816.StatusWord) string {
	if m, ok := statusMeanings[sw]; ok {
		return m
	}
	return sw.Verbose()
}
