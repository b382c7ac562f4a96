package wire

import (
	"encoding/binary"

	"firestige.xyz/hop/internal/core"
)

const (
	// ICMPHeaderLen covers type, code and checksum.
	ICMPHeaderLen = 4

	ICMPTypeEchoReply       = 0
	ICMPTypeDestUnreachable = 3
	ICMPTypeEchoRequest     = 8
	ICMPTypeTimeExceeded    = 11

	ICMPCodeNetUnreachable  = 0
	ICMPCodeHostUnreachable = 1
	ICMPCodeTTLExceeded     = 0
)

// DecodeICMP decodes the ICMP type, code and checksum.
func DecodeICMP(data []byte) (core.ICMPHeader, error) {
	if len(data) < ICMPHeaderLen {
		return core.ICMPHeader{}, core.ErrPacketTooShort
	}
	return core.ICMPHeader{
		Type:     data[0],
		Code:     data[1],
		Checksum: binary.BigEndian.Uint16(data[2:4]),
	}, nil
}

// PutICMP writes type and code into the ICMP message data, zeroes the checksum
// field and recomputes it over the whole message. h.Checksum is ignored.
func PutICMP(data []byte, h core.ICMPHeader) error {
	if len(data) < ICMPHeaderLen {
		return core.ErrPacketTooShort
	}
	data[0] = h.Type
	data[1] = h.Code
	binary.BigEndian.PutUint16(data[2:4], 0)
	binary.BigEndian.PutUint16(data[2:4], Checksum(data))
	return nil
}
