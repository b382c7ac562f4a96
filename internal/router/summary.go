package router

import (
	"fmt"
	"strings"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"
)

// Summary renders a one-line description of frame for debug logs, e.g.
// "Ethernet/IPv4/ICMPv4 10.0.1.5->10.0.2.7 ttl=64 EchoRequest".
func Summary(frame []byte) string {
	p := gopacket.NewPacket(frame, layers.LayerTypeEthernet, gopacket.DecodeOptions{Lazy: true, NoCopy: true})

	names := make([]string, 0, 4)
	for _, l := range p.Layers() {
		if l.LayerType() == gopacket.LayerTypePayload {
			continue
		}
		names = append(names, l.LayerType().String())
	}
	var b strings.Builder
	b.WriteString(strings.Join(names, "/"))

	if a, ok := p.Layer(layers.LayerTypeARP).(*layers.ARP); ok {
		fmt.Fprintf(&b, " op=%d %v->%v", a.Operation,
			ipString(a.SourceProtAddress), ipString(a.DstProtAddress))
	}
	if ip, ok := p.Layer(layers.LayerTypeIPv4).(*layers.IPv4); ok {
		fmt.Fprintf(&b, " %s->%s ttl=%d", ip.SrcIP, ip.DstIP, ip.TTL)
	}
	if icmp, ok := p.Layer(layers.LayerTypeICMPv4).(*layers.ICMPv4); ok {
		fmt.Fprintf(&b, " %s", icmp.TypeCode)
	}
	if errLayer := p.ErrorLayer(); errLayer != nil {
		fmt.Fprintf(&b, " (%v)", errLayer.Error())
	}
	fmt.Fprintf(&b, " len=%d", len(frame))
	return b.String()
}

func ipString(b []byte) string {
	if len(b) != 4 {
		return "?"
	}
	return fmt.Sprintf("%d.%d.%d.%d", b[0], b[1], b[2], b[3])
}
