// Package metrics implements Prometheus metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// FramesReceivedTotal counts frames read from interface sockets, by ethertype class
	FramesReceivedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hop_frames_received_total",
			Help: "Total number of frames received",
		},
		[]string{"interface", "type"},
	)

	// FramesDroppedTotal counts frames discarded without a reply
	FramesDroppedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hop_frames_dropped_total",
			Help: "Total number of frames dropped",
		},
		[]string{"interface", "reason"},
	)

	// FramesSentTotal counts frames transmitted, by what produced them
	FramesSentTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hop_frames_sent_total",
			Help: "Total number of frames transmitted",
		},
		[]string{"interface", "kind"},
	)

	// SendErrorsTotal counts transmit failures
	SendErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hop_send_errors_total",
			Help: "Total number of failed transmits",
		},
		[]string{"interface"},
	)

	// ICMPErrorsTotal counts synthesized ICMP error messages
	ICMPErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hop_icmp_errors_total",
			Help: "Total number of ICMP error messages generated",
		},
		[]string{"type", "code"},
	)

	// ARPCacheLookupsTotal counts resolution cache lookups (result=hit|miss)
	ARPCacheLookupsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "hop_arp_cache_lookups_total",
			Help: "Total number of ARP cache lookups",
		},
		[]string{"result"},
	)

	// ARPResolveSeconds measures blocking ARP exchanges (result=ok|timeout|error)
	ARPResolveSeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "hop_arp_resolve_seconds",
			Help:    "Duration of ARP request/reply exchanges in seconds",
			Buckets: prometheus.ExponentialBuckets(0.00001, 2, 18), // 10µs to ~1.3s
		},
		[]string{"result"},
	)

	// ARPCacheEntries tracks the number of resolved neighbors
	ARPCacheEntries = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hop_arp_cache_entries",
			Help: "Current number of entries in the ARP resolution cache",
		},
	)

	// InterfacesUp tracks interfaces the router is serving
	InterfacesUp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "hop_interfaces",
			Help: "Number of interfaces attached to the router",
		},
	)
)

// Frame type label values.
const (
	TypeARP   = "arp"
	TypeIPv4  = "ipv4"
	TypeOther = "other"
)

// Drop reason label values.
const (
	DropOutgoing    = "outgoing"
	DropEtherType   = "ethertype"
	DropMalformed   = "malformed"
	DropNotForUs    = "not_for_us"
	DropBadChecksum = "bad_checksum"
	DropARPIgnored  = "arp_ignored"
	DropSendFailed  = "send_failed"
)

// Sent kind label values.
const (
	KindForward    = "forward"
	KindEchoReply  = "echo_reply"
	KindICMPError  = "icmp_error"
	KindARPReply   = "arp_reply"
	KindARPRequest = "arp_request"
)
