package linktest

import (
	"net"
	"net/netip"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/core/wire"
)

// Endpoint is a link/network address pair.
type Endpoint struct {
	MAC core.MAC
	IP  netip.Addr
}

// Host builds an Endpoint from literals.
func Host(mac core.MAC, ip string) Endpoint {
	return Endpoint{MAC: mac, IP: netip.MustParseAddr(ip)}
}

// EchoRequest returns a 98-byte ICMP echo request frame from src to dst,
// link-addressed to via.
func EchoRequest(src Endpoint, via core.MAC, dst netip.Addr, ttl uint8) []byte {
	icmp := &layers.ICMPv4{
		TypeCode: layers.CreateICMPv4TypeCode(layers.ICMPv4TypeEchoRequest, 0),
		Id:       0x1d3,
		Seq:      1,
	}
	return ipv4Frame(src, via, dst, ttl, layers.IPProtocolICMPv4, icmp, gopacket.Payload(pingPayload()))
}

// UDPDatagram returns a UDP frame from src to dst, link-addressed to via.
func UDPDatagram(src Endpoint, via core.MAC, dst netip.Addr, ttl uint8, payload []byte) []byte {
	udp := &layers.UDP{SrcPort: 40000, DstPort: 53}
	return ipv4Frame(src, via, dst, ttl, layers.IPProtocolUDP, udp, gopacket.Payload(payload))
}

func ipv4Frame(src Endpoint, via core.MAC, dst netip.Addr, ttl uint8, proto layers.IPProtocol, l4 gopacket.SerializableLayer, payload gopacket.Payload) []byte {
	eth := &layers.Ethernet{
		SrcMAC:       net.HardwareAddr(src.MAC[:]),
		DstMAC:       net.HardwareAddr(via[:]),
		EthernetType: layers.EthernetTypeIPv4,
	}
	ip := &layers.IPv4{
		Version:  4,
		IHL:      5,
		TTL:      ttl,
		Id:       0x2a2a,
		Protocol: proto,
		SrcIP:    net.IP(src.IP.AsSlice()),
		DstIP:    net.IP(dst.AsSlice()),
	}
	if udp, ok := l4.(*layers.UDP); ok {
		_ = udp.SetNetworkLayerForChecksum(ip)
	}

	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true, ComputeChecksums: true}
	if err := gopacket.SerializeLayers(buf, opts, eth, ip, l4, payload); err != nil {
		panic(err)
	}
	return buf.Bytes()
}

func pingPayload() []byte {
	p := make([]byte, 56)
	for i := range p {
		p[i] = byte(i)
	}
	return p
}

// ARPRequest returns a broadcast who-has frame from src asking for target.
func ARPRequest(src Endpoint, target netip.Addr) []byte {
	return arpFrame(core.BroadcastMAC, wire.ARPOpRequest, src, Endpoint{IP: target})
}

// ARPReply returns an is-at frame from src answering dst.
func ARPReply(src, dst Endpoint) []byte {
	return arpFrame(dst.MAC, wire.ARPOpReply, src, dst)
}

func arpFrame(linkDst core.MAC, op uint16, sender, target Endpoint) []byte {
	b, err := wire.EncodeARPFrame(core.ARPFrame{
		Ethernet: core.EthernetHeader{
			DstMAC:    linkDst,
			SrcMAC:    sender.MAC,
			EtherType: wire.EtherTypeARP,
		},
		ARP: core.ARPMessage{
			HardwareType: wire.ARPHardwareEthernet,
			ProtocolType: wire.EtherTypeIPv4,
			HardwareLen:  6,
			ProtocolLen:  4,
			Op:           op,
			SenderMAC:    sender.MAC,
			SenderIP:     sender.IP,
			TargetMAC:    target.MAC,
			TargetIP:     target.IP,
		},
	})
	if err != nil {
		panic(err)
	}
	return b
}

// Neighbors answers ARP requests for the given hosts, the way directly
// attached stations would. Use as Socket.OnSend.
func Neighbors(hosts ...Endpoint) func([]byte) [][]byte {
	return func(frame []byte) [][]byte {
		f, err := wire.DecodeARPFrame(frame)
		if err != nil || f.ARP.Op != wire.ARPOpRequest {
			return nil
		}
		for _, h := range hosts {
			if h.IP == f.ARP.TargetIP {
				return [][]byte{ARPReply(h, Endpoint{MAC: f.ARP.SenderMAC, IP: f.ARP.SenderIP})}
			}
		}
		return nil
	}
}
