package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

// Hex builds a byte slice from hex strings, ignoring any whitespace so frames can be
// written "94 B2 01 4C 1D" or spread over several lines. It panics on invalid input and
// is meant for fixtures.
func Hex(parts ...string) []byte {
	clean := strings.Join(strings.Fields(strings.Join(parts, "")), "")

	data, err := hex.DecodeString(clean)
	if err != nil {
		panic(fmt.Sprintf("invalid input '%s': %v", clean, err))
	}
	return data
}
