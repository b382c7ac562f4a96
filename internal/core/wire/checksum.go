package wire

import "encoding/binary"

// Checksum computes the RFC1071 Internet checksum of b.
//
// Successive big-endian 16-bit words are summed into a 32-bit accumulator, an
// odd trailing byte is padded with a zero low byte, and the carries are folded
// back twice before taking the one's complement. Summing a buffer that already
// carries its own correct checksum yields zero.
func Checksum(b []byte) uint16 {
	var sum uint32
	n := len(b)
	for i := 0; i+1 < n; i += 2 {
		sum += uint32(binary.BigEndian.Uint16(b[i : i+2]))
	}
	if n%2 == 1 {
		sum += uint32(b[n-1]) << 8
	}
	sum = (sum & 0xffff) + (sum >> 16)
	sum += sum >> 16
	return ^uint16(sum)
}
