package wire_test

import (
	"net"
	"net/netip"
	"testing"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/core/wire"
)

// Cross-checks the hand-written codecs against gopacket's decoders.

func serializeEcho(t *testing.T, ttl uint8) []byte {
	t.Helper()
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 0x0a},
		DstMAC:       net.HardwareAddr{0x02, 0, 0, 0, 0, 0x01},
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      ttl,
		Id:       0x4242,
		Protocol: layers.IPProtocolICMPv4,
		SrcIP:    net.IPv4(10, 0, 0, 1),
		DstIP:    net.IPv4(10, 1, 0, 1),
	}
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       7,
		Seq:      1,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	require.NoError(t, gopacket.SerializeLayers(buf, opts, eth, ip, icmp, gopacket.Payload(make([]byte, 56))))
	return buf.Bytes()
}

func TestDecodeMatchesGopacket(t *testing.T) {
	frame := serializeEcho(t, 64)

	eth, payload, err := wire.DecodeEthernet(frame)
	require.NoError(t, err)
	assert.Equal(t, uint16(wire.EtherTypeIPv4), eth.EtherType)

	assert.True(t, wire.ValidIPv4Checksum(payload), "gopacket checksum should verify")

	ip, icmp, err := wire.DecodeIPv4(payload)
	require.NoError(t, err)
	assert.Equal(t, netip.MustParseAddr("10.0.0.1"), ip.SrcIP)
	assert.Equal(t, netip.MustParseAddr("10.1.0.1"), ip.DstIP)
	assert.Equal(t, uint8(64), ip.TTL)
	assert.Equal(t, uint16(0), wire.Checksum(icmp), "gopacket ICMP checksum should verify")
}

func TestRewriteDecodesInGopacket(t *testing.T) {
	frame := serializeEcho(t, 9)
	hdr := frame[wire.EthernetHeaderLen:]

	ip, icmp, err := wire.DecodeIPv4(hdr)
	require.NoError(t, err)
	ip.TTL--
	require.NoError(t, wire.PutIPv4(hdr, ip))
	require.NoError(t, wire.PutICMP(icmp, core.ICMPHeader{Type: wire.ICMPTypeEchoReply}))

	pkt := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.Default)
	ip4, ok := pkt.Layer(layers.LayerTypeIPv4).(*layers.IPv4)
	require.True(t, ok, "gopacket failed to decode IPv4: %v", pkt.ErrorLayer())
	assert.Equal(t, uint8(8), ip4.TTL)

	// gopacket keeps the wire checksum; it must match a fresh computation
	assert.Equal(t, ip4.Checksum, binaryChecksum(hdr[:wire.IPv4HeaderLen]))

	icmp4, ok := pkt.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4)
	require.True(t, ok)
	assert.Equal(t, uint8(layers.ICMPv4TypeEchoReply), icmp4.TypeCode.Type())
	assert.Equal(t, uint16(7), icmp4.Id)
}

func TestEncodeARPDecodesInGopacket(t *testing.T) {
	buf, err := wire.EncodeARPFrame(core.ARPFrame{
		Ethernet: core.EthernetHeader{
			DstMAC:    core.BroadcastMAC,
			SrcMAC:    core.MAC{0x02, 0, 0, 0, 0, 0x01},
			EtherType: wire.EtherTypeARP,
		},
		ARP: core.ARPMessage{
			HardwareType: wire.ARPHardwareEthernet,
			ProtocolType: wire.EtherTypeIPv4,
			HardwareLen:  6,
			ProtocolLen:  4,
			Op:           wire.ARPOpRequest,
			SenderMAC:    core.MAC{0x02, 0, 0, 0, 0, 0x01},
			SenderIP:     netip.MustParseAddr("10.1.0.254"),
			TargetIP:     netip.MustParseAddr("10.1.0.1"),
		},
	})
	require.NoError(t, err)
	require.Len(t, buf, 42)

	pkt := gopacket.NewPacket(buf, layers.LayerTypeEthernet, gopacket.Default)
	arp, ok := pkt.Layer(layers.LayerTypeARP).(*layers.ARP)
	require.True(t, ok)
	assert.Equal(t, uint16(layers.ARPRequest), arp.Operation)
	assert.Equal(t, []byte{10, 1, 0, 254}, arp.SourceProtAddress)
	assert.Equal(t, []byte{10, 1, 0, 1}, arp.DstProtAddress)
	assert.Equal(t, []byte{0x02, 0, 0, 0, 0, 0x01}, arp.SourceHwAddress)
}

func binaryChecksum(hdr []byte) uint16 {
	c := make([]byte, len(hdr))
	copy(c, hdr)
	c[10], c[11] = 0, 0
	return wire.Checksum(c)
}
