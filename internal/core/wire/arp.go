package wire

import (
	"encoding/binary"
	"net/netip"

	"firestige.xyz/hop/internal/core"
)

const (
	// ARPLen is the RFC826 body length for Ethernet/IPv4.
	ARPLen = 28
	// ARPFrameLen is the on-wire size of every ARP frame the router sends.
	ARPFrameLen = EthernetHeaderLen + ARPLen

	ARPHardwareEthernet = 1

	ARPOpRequest = 1
	ARPOpReply   = 2
)

// DecodeARP decodes an ARP body (the bytes after the Ethernet header).
func DecodeARP(data []byte) (core.ARPMessage, error) {
	if len(data) < ARPLen {
		return core.ARPMessage{}, core.ErrPacketTooShort
	}

	m := core.ARPMessage{
		HardwareType: binary.BigEndian.Uint16(data[0:2]),
		ProtocolType: binary.BigEndian.Uint16(data[2:4]),
		HardwareLen:  data[4],
		ProtocolLen:  data[5],
		Op:           binary.BigEndian.Uint16(data[6:8]),
	}
	copy(m.SenderMAC[:], data[8:14])
	m.SenderIP = netip.AddrFrom4([4]byte(data[14:18]))
	copy(m.TargetMAC[:], data[18:24])
	m.TargetIP = netip.AddrFrom4([4]byte(data[24:28]))
	return m, nil
}

// DecodeARPFrame decodes a full Ethernet frame carrying ARP.
func DecodeARPFrame(frame []byte) (core.ARPFrame, error) {
	eth, payload, err := DecodeEthernet(frame)
	if err != nil {
		return core.ARPFrame{}, err
	}
	if eth.EtherType != EtherTypeARP {
		return core.ARPFrame{}, core.ErrUnsupportedProto
	}
	m, err := DecodeARP(payload)
	if err != nil {
		return core.ARPFrame{}, err
	}
	return core.ARPFrame{Ethernet: eth, ARP: m}, nil
}

// IsEthernetIPv4 reports whether m maps IPv4 addresses to 6-byte Ethernet
// addresses, the only ARP flavour the router speaks.
func IsEthernetIPv4(m core.ARPMessage) bool {
	return m.HardwareType == ARPHardwareEthernet &&
		m.ProtocolType == EtherTypeIPv4 &&
		m.HardwareLen == 6 &&
		m.ProtocolLen == 4
}

// PutARP writes m into the first 28 bytes of data.
func PutARP(data []byte, m core.ARPMessage) error {
	if len(data) < ARPLen {
		return core.ErrPacketTooShort
	}
	if !m.SenderIP.Is4() || !m.TargetIP.Is4() {
		return core.ErrMalformedHeader
	}
	binary.BigEndian.PutUint16(data[0:2], m.HardwareType)
	binary.BigEndian.PutUint16(data[2:4], m.ProtocolType)
	data[4] = m.HardwareLen
	data[5] = m.ProtocolLen
	binary.BigEndian.PutUint16(data[6:8], m.Op)
	copy(data[8:14], m.SenderMAC[:])
	spa := m.SenderIP.As4()
	copy(data[14:18], spa[:])
	copy(data[18:24], m.TargetMAC[:])
	tpa := m.TargetIP.As4()
	copy(data[24:28], tpa[:])
	return nil
}

// EncodeARPFrame returns a new 42-byte frame holding f.
func EncodeARPFrame(f core.ARPFrame) ([]byte, error) {
	buf := make([]byte, ARPFrameLen)
	if err := PutEthernet(buf, f.Ethernet); err != nil {
		return nil, err
	}
	if err := PutARP(buf[EthernetHeaderLen:], f.ARP); err != nil {
		return nil, err
	}
	return buf, nil
}
