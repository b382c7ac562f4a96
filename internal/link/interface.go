// Package link owns the router's network interfaces: the raw link-layer
// sockets bound to each of them, the readiness poller the event loop waits on,
// and discovery of the interfaces matching the configured selection rule.
package link

import (
	"errors"
	"fmt"
	"net/netip"
	"time"

	"firestige.xyz/hop/internal/core"
)

// Socket is a raw link-layer socket bound to exactly one interface.
type Socket interface {
	// Recv reads one frame into buf. It blocks for at most the configured
	// receive timeout and returns core.ErrRecvTimeout when nothing arrived.
	// outgoing reports frames the host itself transmitted and the capture
	// looped back.
	Recv(buf []byte) (n int, outgoing bool, err error)

	// Send transmits frame as-is.
	Send(frame []byte) error

	// SetRecvTimeout bounds subsequent Recv calls.
	SetRecvTimeout(d time.Duration) error

	// Fd returns the descriptor the poller waits on, or -1.
	Fd() int

	Close() error
}

// Interface is one router port. Created once at startup and never mutated.
type Interface struct {
	Name   string
	Index  int
	MAC    core.MAC
	IP     netip.Addr
	Socket Socket
}

func (i *Interface) String() string {
	return fmt.Sprintf("%s(%s %s)", i.Name, i.IP, i.MAC)
}

// Send transmits frame on the interface socket.
func (i *Interface) Send(frame []byte) error {
	if i.Socket == nil {
		return fmt.Errorf("%s: socket not open", i.Name)
	}
	if err := i.Socket.Send(frame); err != nil {
		return fmt.Errorf("send on %s: %w", i.Name, err)
	}
	return nil
}

// Interfaces is the ordered interface list produced by discovery.
type Interfaces []*Interface

// ByName returns the interface called name.
func (l Interfaces) ByName(name string) (*Interface, bool) {
	for _, i := range l {
		if i.Name == name {
			return i, true
		}
	}
	return nil, false
}

// ByIP returns the interface owning addr.
func (l Interfaces) ByIP(addr netip.Addr) (*Interface, bool) {
	for _, i := range l {
		if i.IP == addr {
			return i, true
		}
	}
	return nil, false
}

// IsLocal reports whether addr belongs to any interface.
func (l Interfaces) IsLocal(addr netip.Addr) bool {
	_, ok := l.ByIP(addr)
	return ok
}

// Close closes every socket and returns all failures joined.
func (l Interfaces) Close() error {
	var errs []error
	for _, i := range l {
		if i.Socket == nil {
			continue
		}
		if err := i.Socket.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", i.Name, err))
		}
	}
	return errors.Join(errs...)
}

// Lookup is ByName returning core.ErrInterfaceNotFound.
func (l Interfaces) Lookup(name string) (*Interface, error) {
	if i, ok := l.ByName(name); ok {
		return i, nil
	}
	return nil, fmt.Errorf("%w: %s", core.ErrInterfaceNotFound, name)
}
