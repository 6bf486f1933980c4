package stream

const (
	crcPolynomial = 0x1021
	crcInitial    = 0xFFFF
)

// checksum computes the CRC-16-CCITT of data.
func checksum(data []byte) uint16 {
	crc := uint16(crcInitial)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for range 8 {
			if crc&0x8000 != 0 {
				crc = (crc << 1) ^ crcPolynomial
			} else {
				crc <<= 1
			}
		}
	}

	return crc
}
