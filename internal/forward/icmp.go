package forward

import (
	"strconv"

	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/core/wire"
	"firestige.xyz/hop/internal/link"
	"firestige.xyz/hop/internal/log"
	"firestige.xyz/hop/internal/metrics"
)

func icmpTypeCode(v Verdict) (uint8, uint8) {
	switch v {
	case TimeExceeded:
		return wire.ICMPTypeTimeExceeded, wire.ICMPCodeTTLExceeded
	case NetUnreachable:
		return wire.ICMPTypeDestUnreachable, wire.ICMPCodeNetUnreachable
	default:
		return wire.ICMPTypeDestUnreachable, wire.ICMPCodeHostUnreachable
	}
}

// icmpError rewrites the received frame into an ICMP error for its sender and
// transmits it on ingress at the received length. The IPv4 header keeps the
// TTL in hdr; the bytes after the ICMP type, code and checksum are the
// original payload.
func (f *Forwarder) icmpError(frame []byte, eth core.EthernetHeader, hdr core.IPv4Header, pkt []byte, ingress *link.Interface, v Verdict) (Verdict, error) {
	typ, code := icmpTypeCode(v)

	icmp := pkt[wire.IPv4HeaderLen:hdr.TotalLen]
	if len(icmp) < wire.ICMPHeaderLen {
		return f.drop(ingress, metrics.DropMalformed), nil
	}

	origin := hdr.SrcIP
	hdr.Protocol = wire.IPProtocolICMP
	hdr.SrcIP = ingress.IP
	hdr.DstIP = origin

	if err := wire.PutICMP(icmp, core.ICMPHeader{Type: typ, Code: code}); err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}
	if err := wire.PutIPv4(pkt, hdr); err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}
	if err := f.swapLink(frame, eth, ingress); err != nil {
		return f.drop(ingress, metrics.DropMalformed), nil
	}

	metrics.ICMPErrorsTotal.WithLabelValues(strconv.Itoa(int(typ)), strconv.Itoa(int(code))).Inc()
	if logger := log.GetLogger(); logger.IsDebugEnabled() {
		logger.WithFields(map[string]interface{}{
			"iface":  ingress.Name,
			"to":     origin.String(),
			"reason": v.String(),
		}).Debug("icmp error sent")
	}
	return v, f.send(ingress, frame, metrics.KindICMPError)
}
