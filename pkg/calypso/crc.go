package calypso

// CRC computes the ISO 14443-B frame CRC (CRC-16/X-25): reflected polynomial 0x8408,
// initial value 0xFFFF, result complemented.
func CRC(data []byte) uint16 {
	crc := uint16(0xFFFF)
	for _, b := range data {
		crc ^= uint16(b)
		for i := 0; i < 8; i++ {
			if crc&0x0001 != 0 {
				crc = crc>>1 ^ 0x8408
			} else {
				crc >>= 1
			}
		}
	}
	return ^crc
}

// AppendCRC appends the CRC to frame, low byte first as transmitted on the air.
func AppendCRC(frame []byte) []byte {
	crc := CRC(frame)
	return append(frame, byte(crc), byte(crc>>8))
}

// CheckCRC reports whether the last two bytes of frame are its CRC.
func CheckCRC(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	n := len(frame) - 2
	crc := CRC(frame[:n])
	return frame[n] == byte(crc) && frame[n+1] == byte(crc>>8)
}
