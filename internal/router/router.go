// Package router implements the event loop: it waits for readiness across
// every interface socket, reads one frame per ready socket and dispatches it
// by ethertype to the ARP handler or the IPv4 forwarder.
package router

import (
	"context"
	"errors"
	"fmt"
	"time"

	"firestige.xyz/hop/internal/arp"
	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/core/wire"
	"firestige.xyz/hop/internal/forward"
	"firestige.xyz/hop/internal/link"
	"firestige.xyz/hop/internal/log"
	"firestige.xyz/hop/internal/metrics"
)

// FrameBufLen is the read buffer size: a 1500-byte IP MTU plus the Ethernet
// header.
const FrameBufLen = 1500 + wire.EthernetHeaderLen

const (
	DefaultPollTimeout = 500 * time.Microsecond
	DefaultARPTimeout  = 50 * time.Millisecond
)

// Options configures a Router. Zero values select defaults.
type Options struct {
	PollTimeout time.Duration
	ARPTimeout  time.Duration

	// Cache holds resolved neighbors; nil gets an empty arp.MapCache.
	Cache arp.Cache
	// Poller multiplexes the interface sockets; nil builds a ppoll poller.
	Poller link.Poller
}

// Router owns the interfaces, the resolution cache and every socket for
// its lifetime. Stats, Interfaces and Cache may be read from any goroutine;
// every other method must be called from the event loop goroutine.
type Router struct {
	ifaces      link.Interfaces
	poller      link.Poller
	arp         *arp.Handler
	fwd         *forward.Forwarder
	pollTimeout time.Duration
	buf         []byte
	stats       *Stats
}

// New builds a router over ifaces using routes for forwarding decisions.
func New(ifaces link.Interfaces, routes forward.Routes, opts Options) (*Router, error) {
	if len(ifaces) == 0 {
		return nil, core.ErrNoInterfaces
	}
	if opts.PollTimeout <= 0 {
		opts.PollTimeout = DefaultPollTimeout
	}
	if opts.ARPTimeout <= 0 {
		opts.ARPTimeout = DefaultARPTimeout
	}

	poller := opts.Poller
	if poller == nil {
		p, err := link.NewPoller(ifaces)
		if err != nil {
			return nil, fmt.Errorf("create poller: %w", err)
		}
		poller = p
	}

	for _, iface := range ifaces {
		if err := iface.Socket.SetRecvTimeout(opts.PollTimeout); err != nil {
			return nil, fmt.Errorf("set receive timeout on %s: %w", iface.Name, err)
		}
	}

	handler := arp.NewHandler(opts.Cache, opts.ARPTimeout)
	handler.IdleRecvTimeout = opts.PollTimeout

	metrics.InterfacesUp.Set(float64(len(ifaces)))

	return &Router{
		ifaces:      ifaces,
		poller:      poller,
		arp:         handler,
		fwd:         forward.New(ifaces, routes, handler),
		pollTimeout: opts.PollTimeout,
		buf:         make([]byte, FrameBufLen),
		stats:       &Stats{},
	}, nil
}

// Interfaces returns the router ports in poll order.
func (r *Router) Interfaces() link.Interfaces {
	return r.ifaces
}

// Cache returns the neighbor resolution cache.
func (r *Router) Cache() arp.Cache {
	return r.arp.Cache()
}

// Stats returns a snapshot of the router counters.
func (r *Router) Stats() StatsSnapshot {
	return r.stats.Snapshot()
}

// Run polls until ctx is cancelled. It returns nil on cancellation and the
// poller error if multiplexing fails.
func (r *Router) Run(ctx context.Context) error {
	log.GetLogger().WithFields(map[string]interface{}{
		"interfaces":   len(r.ifaces),
		"poll_timeout": r.pollTimeout.String(),
	}).Info("router started")

	for {
		select {
		case <-ctx.Done():
			log.GetLogger().Info("router stopped")
			return nil
		default:
		}
		if err := r.Poll(); err != nil {
			return err
		}
	}
}

// Poll runs one loop iteration: wait at most the poll timeout, then read and
// dispatch one frame from each ready socket.
func (r *Router) Poll() error {
	ready, err := r.poller.Wait(r.pollTimeout)
	if err != nil {
		return fmt.Errorf("wait for frames: %w", err)
	}
	for _, idx := range ready {
		if idx < 0 || idx >= len(r.ifaces) {
			continue
		}
		r.readOne(r.ifaces[idx])
	}
	return nil
}

func (r *Router) readOne(iface *link.Interface) {
	n, outgoing, err := iface.Socket.Recv(r.buf)
	if err != nil {
		if !errors.Is(err, core.ErrRecvTimeout) {
			r.stats.RecvErrors.Add(1)
			log.GetLogger().WithField("iface", iface.Name).WithError(err).Debug("receive failed")
		}
		return
	}
	if n <= 0 {
		return
	}
	if outgoing {
		r.stats.Outgoing.Add(1)
		metrics.FramesDroppedTotal.WithLabelValues(iface.Name, metrics.DropOutgoing).Inc()
		return
	}
	r.Dispatch(r.buf[:n], iface)
}

// Dispatch classifies frame by ethertype and hands it to the ARP handler or
// the forwarder. frame may be modified.
func (r *Router) Dispatch(frame []byte, ingress *link.Interface) {
	r.stats.Received.Add(1)
	logger := log.GetLogger()
	if logger.IsDebugEnabled() {
		logger.WithField("iface", ingress.Name).Debug(Summary(frame))
	}

	etherType, err := wire.EtherType(frame)
	if err != nil {
		r.stats.Unsupported.Add(1)
		metrics.FramesReceivedTotal.WithLabelValues(ingress.Name, metrics.TypeOther).Inc()
		metrics.FramesDroppedTotal.WithLabelValues(ingress.Name, metrics.DropMalformed).Inc()
		return
	}

	switch etherType {
	case wire.EtherTypeARP:
		r.stats.ARP.Add(1)
		metrics.FramesReceivedTotal.WithLabelValues(ingress.Name, metrics.TypeARP).Inc()
		if err := r.arp.HandleFrame(frame, ingress); err != nil {
			r.stats.SendErrors.Add(1)
			logger.WithField("iface", ingress.Name).WithError(err).Warn("arp reply dropped")
		}

	case wire.EtherTypeIPv4:
		r.stats.IPv4.Add(1)
		metrics.FramesReceivedTotal.WithLabelValues(ingress.Name, metrics.TypeIPv4).Inc()
		verdict, err := r.fwd.HandleFrame(frame, ingress)
		r.stats.count(verdict)
		if err != nil {
			r.stats.SendErrors.Add(1)
			logger.WithFields(map[string]interface{}{
				"iface":   ingress.Name,
				"verdict": verdict.String(),
			}).WithError(err).Warn("frame dropped")
		}

	default:
		r.stats.Unsupported.Add(1)
		metrics.FramesReceivedTotal.WithLabelValues(ingress.Name, metrics.TypeOther).Inc()
		metrics.FramesDroppedTotal.WithLabelValues(ingress.Name, metrics.DropEtherType).Inc()
	}
}

// Close closes every interface socket.
func (r *Router) Close() error {
	metrics.InterfacesUp.Set(0)
	return r.ifaces.Close()
}
