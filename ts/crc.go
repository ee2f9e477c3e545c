package ts

// MPEG-2 CRC32: polynomial 0x04C11DB7, initial value 0xFFFFFFFF, MSB first,
// no final xor. hash/crc32 only implements the reflected variant.
var crcTable = makeCRCTable(0x04c11db7)

func makeCRCTable(poly uint32) *[256]uint32 {
	t := new([256]uint32)
	for i := range t {
		c := uint32(i) << 24
		for j := 0; j < 8; j++ {
			if c&0x80000000 != 0 {
				c = c<<1 ^ poly
			} else {
				c <<= 1
			}
		}
		t[i] = c
	}
	return t
}

func CRC32(data []byte) uint32 {
	crc := uint32(0xffffffff)
	for _, b := range data {
		crc = crc<<8 ^ crcTable[byte(crc>>24)^b]
	}
	return crc
}
