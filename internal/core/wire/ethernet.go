// Package wire implements bounds-checked encoding and decoding of the
// Ethernet, ARP, IPv4 and ICMP headers the router handles. Every function works
// on plain byte slices at fixed offsets; nothing is ever overlaid on the
// captured buffer.
package wire

import (
	"encoding/binary"

	"firestige.xyz/hop/internal/core"
)

const (
	// Ethernet constants
	EthernetHeaderLen = 14

	// EtherType values
	EtherTypeIPv4 = 0x0800
	EtherTypeARP  = 0x0806
)

// DecodeEthernet decodes the Ethernet II header.
// Returns EthernetHeader and remaining payload.
func DecodeEthernet(data []byte) (core.EthernetHeader, []byte, error) {
	if len(data) < EthernetHeaderLen {
		return core.EthernetHeader{}, nil, core.ErrPacketTooShort
	}

	eth := core.EthernetHeader{}

	// Destination MAC (6 bytes)
	copy(eth.DstMAC[:], data[0:6])

	// Source MAC (6 bytes)
	copy(eth.SrcMAC[:], data[6:12])

	// EtherType (2 bytes)
	eth.EtherType = binary.BigEndian.Uint16(data[12:14])

	return eth, data[EthernetHeaderLen:], nil
}

// EtherType reads only the ethertype field of a frame.
func EtherType(data []byte) (uint16, error) {
	if len(data) < EthernetHeaderLen {
		return 0, core.ErrPacketTooShort
	}
	return binary.BigEndian.Uint16(data[12:14]), nil
}

// PutEthernet writes eth into the first 14 bytes of data.
func PutEthernet(data []byte, eth core.EthernetHeader) error {
	if len(data) < EthernetHeaderLen {
		return core.ErrPacketTooShort
	}
	copy(data[0:6], eth.DstMAC[:])
	copy(data[6:12], eth.SrcMAC[:])
	binary.BigEndian.PutUint16(data[12:14], eth.EtherType)
	return nil
}
