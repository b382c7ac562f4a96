// Package arp answers ARP requests for the router's own addresses and
// resolves next-hop link addresses with a blocking request/reply exchange.
package arp

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/core/wire"
	"firestige.xyz/hop/internal/link"
	"firestige.xyz/hop/internal/log"
	"firestige.xyz/hop/internal/metrics"
)

// recvBufLen fits one MTU-sized IP packet plus its Ethernet header.
const recvBufLen = 1500 + wire.EthernetHeaderLen

// Handler owns the resolution cache. It is driven from the event loop
// goroutine only.
type Handler struct {
	// IdleRecvTimeout, when positive, is put back on the egress socket after
	// each exchange so later event loop reads do not inherit the shortened
	// resolution deadline.
	IdleRecvTimeout time.Duration

	cache   Cache
	timeout time.Duration
	buf     []byte
	now     func() time.Time
}

// NewHandler returns a handler whose resolutions wait at most timeout for a
// reply. A nil cache gets a fresh MapCache.
func NewHandler(cache Cache, timeout time.Duration) *Handler {
	if cache == nil {
		cache = NewMapCache()
	}
	return &Handler{
		cache:   cache,
		timeout: timeout,
		buf:     make([]byte, recvBufLen),
		now:     time.Now,
	}
}

// Cache returns the resolution cache.
func (h *Handler) Cache() Cache {
	return h.cache
}

// HandleFrame answers a request for ingress's own address with a 42-byte
// reply on ingress. Any other ARP frame is ignored and nil is returned.
func (h *Handler) HandleFrame(frame []byte, ingress *link.Interface) error {
	f, err := wire.DecodeARPFrame(frame)
	if err != nil {
		metrics.FramesDroppedTotal.WithLabelValues(ingress.Name, metrics.DropMalformed).Inc()
		return nil
	}
	m := f.ARP
	if !wire.IsEthernetIPv4(m) || m.Op != wire.ARPOpRequest || m.TargetIP != ingress.IP {
		metrics.FramesDroppedTotal.WithLabelValues(ingress.Name, metrics.DropARPIgnored).Inc()
		return nil
	}

	reply, err := wire.EncodeARPFrame(core.ARPFrame{
		Ethernet: core.EthernetHeader{
			DstMAC:    m.SenderMAC,
			SrcMAC:    ingress.MAC,
			EtherType: wire.EtherTypeARP,
		},
		ARP: core.ARPMessage{
			HardwareType: wire.ARPHardwareEthernet,
			ProtocolType: wire.EtherTypeIPv4,
			HardwareLen:  6,
			ProtocolLen:  4,
			Op:           wire.ARPOpReply,
			SenderMAC:    ingress.MAC,
			SenderIP:     ingress.IP,
			TargetMAC:    m.SenderMAC,
			TargetIP:     m.SenderIP,
		},
	})
	if err != nil {
		return fmt.Errorf("build arp reply: %w", err)
	}
	if err := ingress.Send(reply); err != nil {
		metrics.SendErrorsTotal.WithLabelValues(ingress.Name).Inc()
		return err
	}
	metrics.FramesSentTotal.WithLabelValues(ingress.Name, metrics.KindARPReply).Inc()

	if logger := log.GetLogger(); logger.IsDebugEnabled() {
		logger.WithFields(map[string]interface{}{
			"iface":     ingress.Name,
			"requester": m.SenderIP.String(),
			"mac":       m.SenderMAC.String(),
		}).Debug("answered arp request")
	}
	return nil
}

// Resolve returns the link address of target on egress. On a cache miss it
// broadcasts a request on egress and blocks on the egress socket until a
// matching reply arrives or the timeout elapses, in which case the error
// wraps core.ErrARPTimeout. Unrelated frames read meanwhile are discarded,
// except requests for egress's own address, which are answered.
func (h *Handler) Resolve(target netip.Addr, egress *link.Interface) (core.MAC, error) {
	if n, ok := h.cache.Lookup(target); ok {
		metrics.ARPCacheLookupsTotal.WithLabelValues("hit").Inc()
		return n.MAC, nil
	}
	metrics.ARPCacheLookupsTotal.WithLabelValues("miss").Inc()

	start := h.now()
	mac, err := h.exchange(target, egress, start.Add(h.timeout))
	elapsed := h.now().Sub(start)
	if h.IdleRecvTimeout > 0 {
		if rerr := egress.Socket.SetRecvTimeout(h.IdleRecvTimeout); rerr != nil {
			log.GetLogger().WithField("iface", egress.Name).WithError(rerr).Warn("restore receive timeout failed")
		}
	}

	switch {
	case err == nil:
		metrics.ARPResolveSeconds.WithLabelValues("ok").Observe(elapsed.Seconds())
	case errors.Is(err, core.ErrARPTimeout):
		metrics.ARPResolveSeconds.WithLabelValues("timeout").Observe(elapsed.Seconds())
	default:
		metrics.ARPResolveSeconds.WithLabelValues("error").Observe(elapsed.Seconds())
	}
	if err != nil {
		log.GetLogger().WithFields(map[string]interface{}{
			"iface":  egress.Name,
			"target": target.String(),
		}).WithError(err).Warn("arp resolution failed")
		return core.MAC{}, err
	}

	h.cache.Store(Neighbor{
		IP:        target,
		MAC:       mac,
		Interface: egress.Name,
		LearnedAt: h.now(),
	})
	metrics.ARPCacheEntries.Set(float64(h.cache.Len()))

	log.GetLogger().WithFields(map[string]interface{}{
		"iface":   egress.Name,
		"target":  target.String(),
		"mac":     mac.String(),
		"elapsed": elapsed.String(),
	}).Info("neighbor resolved")
	return mac, nil
}

func (h *Handler) exchange(target netip.Addr, egress *link.Interface, deadline time.Time) (core.MAC, error) {
	req, err := Request(egress, target)
	if err != nil {
		return core.MAC{}, err
	}
	if err := egress.Send(req); err != nil {
		metrics.SendErrorsTotal.WithLabelValues(egress.Name).Inc()
		return core.MAC{}, err
	}
	metrics.FramesSentTotal.WithLabelValues(egress.Name, metrics.KindARPRequest).Inc()

	for {
		remaining := deadline.Sub(h.now())
		if remaining <= 0 {
			return core.MAC{}, fmt.Errorf("%w: %s on %s", core.ErrARPTimeout, target, egress.Name)
		}
		if err := egress.Socket.SetRecvTimeout(remaining); err != nil {
			return core.MAC{}, fmt.Errorf("set receive timeout on %s: %w", egress.Name, err)
		}

		n, outgoing, err := egress.Socket.Recv(h.buf)
		if errors.Is(err, core.ErrRecvTimeout) {
			return core.MAC{}, fmt.Errorf("%w: %s on %s", core.ErrARPTimeout, target, egress.Name)
		}
		if err != nil {
			return core.MAC{}, fmt.Errorf("receive on %s: %w", egress.Name, err)
		}
		if outgoing {
			continue
		}

		f, err := wire.DecodeARPFrame(h.buf[:n])
		if err != nil || !wire.IsEthernetIPv4(f.ARP) {
			continue
		}
		switch f.ARP.Op {
		case wire.ARPOpReply:
			if f.ARP.SenderIP == target {
				return f.ARP.SenderMAC, nil
			}
		case wire.ARPOpRequest:
			if err := h.HandleFrame(h.buf[:n], egress); err != nil {
				log.GetLogger().WithError(err).Warn("arp reply failed during resolution")
			}
		}
	}
}

// Request builds the 42-byte broadcast who-has frame for target from egress.
func Request(egress *link.Interface, target netip.Addr) ([]byte, error) {
	frame, err := wire.EncodeARPFrame(core.ARPFrame{
		Ethernet: core.EthernetHeader{
			DstMAC:    core.BroadcastMAC,
			SrcMAC:    egress.MAC,
			EtherType: wire.EtherTypeARP,
		},
		ARP: core.ARPMessage{
			HardwareType: wire.ARPHardwareEthernet,
			ProtocolType: wire.EtherTypeIPv4,
			HardwareLen:  6,
			ProtocolLen:  4,
			Op:           wire.ARPOpRequest,
			SenderMAC:    egress.MAC,
			SenderIP:     egress.IP,
			TargetIP:     target,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("build arp request for %s: %w", target, err)
	}
	return frame, nil
}
