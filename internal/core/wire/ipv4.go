package wire

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/hop/internal/core"
)

const (
	// IPv4HeaderLen is the only header length accepted; options are rejected.
	IPv4HeaderLen = 20

	IPProtocolICMP = 1
)

// DecodeIPv4 decodes the fixed IPv4 header.
// Returns IPv4Header and the payload bounded by the Total Length field, so
// Ethernet padding never leaks into the payload.
func DecodeIPv4(data []byte) (core.IPv4Header, []byte, error) {
	if len(data) < IPv4HeaderLen {
		return core.IPv4Header{}, nil, core.ErrPacketTooShort
	}

	if version := data[0] >> 4; version != 4 {
		return core.IPv4Header{}, nil, core.ErrUnsupportedProto
	}

	// IHL (Internet Header Length) - lower 4 bits of first byte
	ihl := data[0] & 0x0F
	switch {
	case ihl < 5:
		return core.IPv4Header{}, nil, core.ErrMalformedHeader
	case ihl > 5:
		return core.IPv4Header{}, nil, core.ErrIPv4Options
	}

	ip := core.IPv4Header{
		IHL:      ihl,
		TotalLen: binary.BigEndian.Uint16(data[2:4]),
		TTL:      data[8],
		Protocol: data[9],
		Checksum: binary.BigEndian.Uint16(data[10:12]),
		SrcIP:    netip.AddrFrom4([4]byte(data[12:16])),
		DstIP:    netip.AddrFrom4([4]byte(data[16:20])),
	}

	total := int(ip.TotalLen)
	if total < IPv4HeaderLen {
		return ip, nil, core.ErrMalformedHeader
	}
	if total > len(data) {
		return ip, nil, core.ErrPacketTooShort
	}

	return ip, data[IPv4HeaderLen:total], nil
}

// ValidIPv4Checksum reports whether the header checksum of data verifies.
func ValidIPv4Checksum(data []byte) bool {
	if len(data) < IPv4HeaderLen {
		return false
	}
	return Checksum(data[:IPv4HeaderLen]) == 0
}

// PutIPv4 writes the mutable fields of ip (total length, TTL, protocol,
// addresses) into data in place and recomputes the header checksum from the
// resulting bytes. Version, TOS, identification and fragment fields are left
// untouched. ip.Checksum is ignored.
func PutIPv4(data []byte, ip core.IPv4Header) error {
	if len(data) < IPv4HeaderLen {
		return core.ErrPacketTooShort
	}
	if !ip.SrcIP.Is4() || !ip.DstIP.Is4() {
		return core.ErrMalformedHeader
	}

	binary.BigEndian.PutUint16(data[2:4], ip.TotalLen)
	data[8] = ip.TTL
	data[9] = ip.Protocol
	src := ip.SrcIP.As4()
	copy(data[12:16], src[:])
	dst := ip.DstIP.As4()
	copy(data[16:20], dst[:])

	binary.BigEndian.PutUint16(data[10:12], 0)
	binary.BigEndian.PutUint16(data[10:12], Checksum(data[:IPv4HeaderLen]))
	return nil
}
