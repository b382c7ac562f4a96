package link

import (
	"fmt"
	"net"
	"net/netip"
	"time"

	"github.com/sirupsen/logrus"

	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/log"
)

// Options controls how discovered interfaces are opened.
type Options struct {
	// RecvTimeout bounds the blocking receive used during ARP resolution.
	RecvTimeout time.Duration
	// KernelFilter attaches a socket filter passing only ARP and IPv4.
	KernelFilter bool
}

// Candidates lists the up, non-loopback Ethernet interfaces with an IPv4
// address that sel selects, in kernel order. No socket is opened.
func Candidates(sel Selector) (Interfaces, error) {
	nifs, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("enumerate interfaces: %w", err)
	}

	var out Interfaces
	for _, nif := range nifs {
		if !sel.Match(nif.Name) {
			continue
		}
		if nif.Flags&net.FlagLoopback != 0 || nif.Flags&net.FlagUp == 0 {
			continue
		}
		mac, ok := core.MACFromSlice(nif.HardwareAddr)
		if !ok {
			continue
		}

		ip, err := firstIPv4(&nif)
		if err != nil {
			log.GetLogger().WithFields(logrus.Fields{
				"iface": nif.Name,
				"error": err,
			}).Debug("skipping interface without ipv4 address")
			continue
		}

		out = append(out, &Interface{
			Name:  nif.Name,
			Index: nif.Index,
			MAC:   mac,
			IP:    ip,
		})
	}
	return out, nil
}

func firstIPv4(nif *net.Interface) (netip.Addr, error) {
	addrs, err := nif.Addrs()
	if err != nil {
		return netip.Addr{}, err
	}
	for _, a := range addrs {
		ipnet, ok := a.(*net.IPNet)
		if !ok {
			continue
		}
		if v4 := ipnet.IP.To4(); v4 != nil {
			addr, _ := netip.AddrFromSlice(v4)
			return addr, nil
		}
	}
	return netip.Addr{}, fmt.Errorf("no ipv4 address on %s", nif.Name)
}

// Discover selects interfaces and opens one bound raw socket per interface.
// Any socket failure closes what was opened and is returned.
func Discover(sel Selector, opts Options) (Interfaces, error) {
	candidates, err := Candidates(sel)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, fmt.Errorf("%w (pattern %q)", core.ErrNoInterfaces, sel.String())
	}

	opened := make(Interfaces, 0, len(candidates))
	for _, iface := range candidates {
		sock, err := openRawSocket(iface.Index, opts)
		if err != nil {
			_ = opened.Close()
			return nil, fmt.Errorf("open raw socket on %s: %w", iface.Name, err)
		}
		iface.Socket = sock
		opened = append(opened, iface)

		log.GetLogger().WithFields(logrus.Fields{
			"iface":   iface.Name,
			"index":   iface.Index,
			"hw_addr": iface.MAC.String(),
			"ip":      iface.IP.String(),
		}).Info("interface opened")
	}
	return opened, nil
}
