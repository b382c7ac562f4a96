// Package core defines core types with zero external dependencies.
package core

import (
	"net"
	"net/netip"
)

// MAC is a 48-bit Ethernet hardware address.
type MAC [6]byte

// BroadcastMAC is the all-ones Ethernet address.
var BroadcastMAC = MAC{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}

// MACFromSlice converts a 6-byte slice. ok is false for any other length.
func MACFromSlice(b []byte) (m MAC, ok bool) {
	if len(b) != len(m) {
		return m, false
	}
	copy(m[:], b)
	return m, true
}

func (m MAC) String() string {
	return net.HardwareAddr(m[:]).String()
}

// IsBroadcast reports whether m is ff:ff:ff:ff:ff:ff.
func (m MAC) IsBroadcast() bool {
	return m == BroadcastMAC
}

// EthernetHeader represents the 14-byte Ethernet II header.
type EthernetHeader struct {
	DstMAC    MAC
	SrcMAC    MAC
	EtherType uint16 // 0x0800=IPv4, 0x0806=ARP
}

// ARPMessage is the RFC826 body for Ethernet/IPv4.
type ARPMessage struct {
	HardwareType uint16
	ProtocolType uint16
	HardwareLen  uint8
	ProtocolLen  uint8
	Op           uint16 // 1=request, 2=reply
	SenderMAC    MAC
	SenderIP     netip.Addr
	TargetMAC    MAC
	TargetIP     netip.Addr
}

// ARPFrame is an ARP message together with its enclosing Ethernet header.
type ARPFrame struct {
	Ethernet EthernetHeader
	ARP      ARPMessage
}

// IPv4Header represents the fixed 20-byte IPv4 header.
type IPv4Header struct {
	IHL      uint8 // in 32-bit words, always 5 once decoded
	TotalLen uint16
	TTL      uint8
	Protocol uint8 // ICMP=1, TCP=6, UDP=17
	Checksum uint16
	SrcIP    netip.Addr
	DstIP    netip.Addr
}

// ICMPHeader holds the first four bytes of an ICMP message.
type ICMPHeader struct {
	Type     uint8
	Code     uint8
	Checksum uint16
}
