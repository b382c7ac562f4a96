// Package forward implements the IPv4 forwarding decision: local echo
// replies, TTL handling, route lookup, next-hop resolution and the ICMP
// errors each failure produces.
package forward

import (
	"fmt"
	"net/netip"

	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/core/wire"
	"firestige.xyz/hop/internal/link"
	"firestige.xyz/hop/internal/log"
	"firestige.xyz/hop/internal/metrics"
)

// Routes is the routing table as seen by the forwarder.
type Routes interface {
	// GetRoute returns the egress interface name for dst.
	GetRoute(dst netip.Addr) (string, bool)
	// GetHopDevice returns the next hop for dst; absent means on-link.
	GetHopDevice(dst netip.Addr) (netip.Addr, bool)
}

// Resolver maps a next-hop address to its link address on egress.
type Resolver interface {
	Resolve(target netip.Addr, egress *link.Interface) (core.MAC, error)
}

// Verdict is what HandleFrame did with a frame.
type Verdict int

const (
	Dropped Verdict = iota
	EchoReplied
	Forwarded
	TimeExceeded
	NetUnreachable
	HostUnreachable
)

func (v Verdict) String() string {
	switch v {
	case Dropped:
		return "dropped"
	case EchoReplied:
		return "echo_replied"
	case Forwarded:
		return "forwarded"
	case TimeExceeded:
		return "time_exceeded"
	case NetUnreachable:
		return "net_unreachable"
	case HostUnreachable:
		return "host_unreachable"
	default:
		return fmt.Sprintf("verdict(%d)", int(v))
	}
}

// Forwarder handles IPv4 frames. It mutates the frame it is given and
// transmits it, so the caller must not reuse the bytes until it returns.
type Forwarder struct {
	ifaces   link.Interfaces
	routes   Routes
	resolver Resolver
}

func New(ifaces link.Interfaces, routes Routes, resolver Resolver) *Forwarder {
	return &Forwarder{
		ifaces:   ifaces,
		routes:   routes,
		resolver: resolver,
	}
}

// HandleFrame processes one IPv4 frame received on ingress. The returned
// error is a transmit failure; every other outcome is in the verdict.
func (f *Forwarder) HandleFrame(frame []byte, ingress *link.Interface) (Verdict, error) {
	eth, pkt, err := wire.DecodeEthernet(frame)
	if err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}
	if eth.DstMAC != ingress.MAC && !eth.DstMAC.IsBroadcast() {
		return f.drop(ingress, metrics.DropNotForUs), nil
	}

	hdr, payload, err := wire.DecodeIPv4(pkt)
	if err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}
	if !wire.ValidIPv4Checksum(pkt) {
		return f.drop(ingress, metrics.DropBadChecksum), nil
	}

	if f.ifaces.IsLocal(hdr.DstIP) {
		return f.echoReply(frame, eth, hdr, pkt, payload, ingress)
	}

	ttl := hdr.TTL
	if ttl <= 1 {
		return f.icmpError(frame, eth, hdr, pkt, ingress, TimeExceeded)
	}

	name, ok := f.routes.GetRoute(hdr.DstIP)
	if !ok {
		return f.icmpError(frame, eth, hdr, pkt, ingress, NetUnreachable)
	}
	egress, err := f.ifaces.Lookup(name)
	if err != nil {
		log.GetLogger().WithField("iface", name).Warn("route points at unknown interface")
		return f.icmpError(frame, eth, hdr, pkt, ingress, NetUnreachable)
	}

	target := hdr.DstIP
	if hop, ok := f.routes.GetHopDevice(hdr.DstIP); ok {
		target = hop
	}

	hdr.TTL = ttl - 1
	if err := wire.PutIPv4(pkt, hdr); err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}

	mac, err := f.resolver.Resolve(target, egress)
	if err != nil {
		hdr.TTL = ttl
		return f.icmpError(frame, eth, hdr, pkt, ingress, HostUnreachable)
	}

	if err := wire.PutEthernet(frame, core.EthernetHeader{
		DstMAC:    mac,
		SrcMAC:    egress.MAC,
		EtherType: wire.EtherTypeIPv4,
	}); err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}
	return Forwarded, f.send(egress, frame, metrics.KindForward)
}

// echoReply answers any packet for one of our addresses with an echo reply,
// built in place over the received ICMP region, and sends it back out of
// ingress. The protocol is forced to ICMP so non-ICMP local traffic gets the
// same answer.
func (f *Forwarder) echoReply(frame []byte, eth core.EthernetHeader, hdr core.IPv4Header, pkt, payload []byte, ingress *link.Interface) (Verdict, error) {
	hdr.Protocol = wire.IPProtocolICMP
	if err := wire.PutICMP(payload, core.ICMPHeader{Type: wire.ICMPTypeEchoReply}); err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}
	hdr.SrcIP, hdr.DstIP = hdr.DstIP, hdr.SrcIP
	if err := wire.PutIPv4(pkt, hdr); err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}
	if err := f.swapLink(frame, eth, ingress); err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}
	return EchoReplied, f.send(ingress, frame, metrics.KindEchoReply)
}

func (f *Forwarder) send(iface *link.Interface, frame []byte, kind string) error {
	if err := iface.Send(frame); err != nil {
		metrics.SendErrorsTotal.WithLabelValues(iface.Name).Inc()
		metrics.FramesDroppedTotal.WithLabelValues(iface.Name, metrics.DropSendFailed).Inc()
		return err
	}
	metrics.FramesSentTotal.WithLabelValues(iface.Name, kind).Inc()
	return nil
}

// swapLink addresses frame back to its sender from ingress.
func (f *Forwarder) swapLink(frame []byte, eth core.EthernetHeader, ingress *link.Interface) error {
	return wire.PutEthernet(frame, core.EthernetHeader{
		DstMAC:    eth.SrcMAC,
		SrcMAC:    ingress.MAC,
		EtherType: wire.EtherTypeIPv4,
	})
}

func (f *Forwarder) drop(ingress *link.Interface, reason string) Verdict {
	metrics.FramesDroppedTotal.WithLabelValues(ingress.Name, reason).Inc()
	return Dropped
}
