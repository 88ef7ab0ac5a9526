// Package bits holds the small bit and nibble helpers shared by the card codecs.
// Bit positions follow the ISO 7816 numbering: bit 1 is the least significant, bit 8 the most.
package bits

// Bit returns a byte with only the n-th bit set (1 to 8).
func Bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

// IsSet checks if the n-th bit is set (1 to 8).
func IsSet(b byte, n uint) bool {
	return b&Bit(n) != 0
}

// GetRange extracts the value from a range of bits (e.g., bits 4 to 3).
// Example: GetRange(0b00001100, 4, 3) returns 3 (0b11)
func GetRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}

	width := high - low + 1
	mask := byte((1 << width) - 1)

	return (b >> (low - 1)) & mask
}

// Set sets bit n.
func Set(b byte, n uint) byte {
	return b | Bit(n)
}

// Clear clears bit n.
func Clear(b byte, n uint) byte {
	return b &^ Bit(n)
}

// HighNibble returns bits 8-5.
func HighNibble(b byte) byte {
	return GetRange(b, 8, 5)
}

// LowNibble returns bits 4-1.
func LowNibble(b byte) byte {
	return GetRange(b, 4, 1)
}

// IsBCD reports whether both nibbles of b are decimal digits.
func IsBCD(b byte) bool {
	return HighNibble(b) <= 9 && LowNibble(b) <= 9
}

// FromBCD decodes a packed BCD byte (0x42 -> 42). The result is meaningless if !IsBCD(b).
func FromBCD(b byte) int {
	return int(HighNibble(b))*10 + int(LowNibble(b))
}

// ToBCD packs a value in 0..99 into one byte (42 -> 0x42). Values out of range wrap modulo 100.
func ToBCD(v int) byte {
	v %= 100
	if v < 0 {
		v += 100
	}
	return byte(v/10)<<4 | byte(v%10)
}
