package router

import (
	"sync/atomic"

	"firestige.xyz/hop/internal/forward"
)

// Stats contains the router's frame counters.
type Stats struct {
	// Receive side
	Received    atomic.Uint64
	Outgoing    atomic.Uint64
	RecvErrors  atomic.Uint64
	ARP         atomic.Uint64
	IPv4        atomic.Uint64
	Unsupported atomic.Uint64

	// Forwarder verdicts
	Forwarded   atomic.Uint64
	EchoReplies atomic.Uint64
	ICMPErrors  atomic.Uint64
	Dropped     atomic.Uint64

	SendErrors atomic.Uint64
}

func (s *Stats) count(v forward.Verdict) {
	switch v {
	case forward.Forwarded:
		s.Forwarded.Add(1)
	case forward.EchoReplied:
		s.EchoReplies.Add(1)
	case forward.TimeExceeded, forward.NetUnreachable, forward.HostUnreachable:
		s.ICMPErrors.Add(1)
	default:
		s.Dropped.Add(1)
	}
}

// Snapshot copies the counters.
func (s *Stats) Snapshot() StatsSnapshot {
	return StatsSnapshot{
		Received:    s.Received.Load(),
		Outgoing:    s.Outgoing.Load(),
		RecvErrors:  s.RecvErrors.Load(),
		ARP:         s.ARP.Load(),
		IPv4:        s.IPv4.Load(),
		Unsupported: s.Unsupported.Load(),
		Forwarded:   s.Forwarded.Load(),
		EchoReplies: s.EchoReplies.Load(),
		ICMPErrors:  s.ICMPErrors.Load(),
		Dropped:     s.Dropped.Load(),
		SendErrors:  s.SendErrors.Load(),
	}
}

// StatsSnapshot represents router statistics at one point in time.
type StatsSnapshot struct {
	Received    uint64 `json:"received" yaml:"received"`
	Outgoing    uint64 `json:"outgoing" yaml:"outgoing"`
	RecvErrors  uint64 `json:"recv_errors" yaml:"recv_errors"`
	ARP         uint64 `json:"arp" yaml:"arp"`
	IPv4        uint64 `json:"ipv4" yaml:"ipv4"`
	Unsupported uint64 `json:"unsupported" yaml:"unsupported"`
	Forwarded   uint64 `json:"forwarded" yaml:"forwarded"`
	EchoReplies uint64 `json:"echo_replies" yaml:"echo_replies"`
	ICMPErrors  uint64 `json:"icmp_errors" yaml:"icmp_errors"`
	Dropped     uint64 `json:"dropped" yaml:"dropped"`
	SendErrors  uint64 `json:"send_errors" yaml:"send_errors"`
}
