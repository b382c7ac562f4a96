// Package linktest provides simulated interfaces for exercising the router
// without raw sockets.
package linktest

import (
	"net/netip"
	"time"

	"firestige.xyz/hop/internal/core"
	"firestige.xyz/hop/internal/link"
)

// Frame is one queued inbound frame.
type Frame struct {
	Data     []byte
	Outgoing bool
}

// Socket is an in-memory link.Socket. Frames pushed into Inbox are returned by
// Recv in order; an empty inbox behaves like an expired receive timeout.
type Socket struct {
	Inbox []Frame
	Sent  [][]byte

	// SendErr, when set, fails every Send.
	SendErr error
	// Loopback mirrors every sent frame back into the inbox flagged outgoing,
	// like promiscuous capture on a real port.
	Loopback bool
	// OnSend returns frames the attached neighbours answer with.
	OnSend func(frame []byte) [][]byte

	RecvTimeout time.Duration
	Closed      bool
	RecvCalls   int
}

func (s *Socket) Recv(buf []byte) (int, bool, error) {
	s.RecvCalls++
	if len(s.Inbox) == 0 {
		return 0, false, core.ErrRecvTimeout
	}
	f := s.Inbox[0]
	s.Inbox = s.Inbox[1:]
	return copy(buf, f.Data), f.Outgoing, nil
}

func (s *Socket) Send(frame []byte) error {
	if s.SendErr != nil {
		return s.SendErr
	}
	c := append([]byte(nil), frame...)
	s.Sent = append(s.Sent, c)
	if s.Loopback {
		s.Inbox = append(s.Inbox, Frame{Data: c, Outgoing: true})
	}
	if s.OnSend != nil {
		for _, reply := range s.OnSend(c) {
			s.Inbox = append(s.Inbox, Frame{Data: reply})
		}
	}
	return nil
}

func (s *Socket) SetRecvTimeout(d time.Duration) error {
	s.RecvTimeout = d
	return nil
}

func (s *Socket) Fd() int { return -1 }

func (s *Socket) Close() error {
	s.Closed = true
	return nil
}

// Push queues an inbound frame.
func (s *Socket) Push(frame []byte) {
	s.Inbox = append(s.Inbox, Frame{Data: append([]byte(nil), frame...)})
}

// TakeSent returns the transmitted frames and clears the record.
func (s *Socket) TakeSent() [][]byte {
	sent := s.Sent
	s.Sent = nil
	return sent
}

// NewInterface returns an interface backed by a fresh Socket.
func NewInterface(name string, index int, mac core.MAC, ip string) *link.Interface {
	return &link.Interface{
		Name:   name,
		Index:  index,
		MAC:    mac,
		IP:     netip.MustParseAddr(ip),
		Socket: &Socket{},
	}
}

// SocketOf returns the simulated socket behind iface.
func SocketOf(iface *link.Interface) *Socket {
	return iface.Socket.(*Socket)
}

// Poller reports every interface whose simulated inbox is non-empty.
type Poller struct {
	Ifaces link.Interfaces
	Waits  int
}

func (p *Poller) Wait(time.Duration) ([]int, error) {
	p.Waits++
	var ready []int
	for i, iface := range p.Ifaces {
		if s, ok := iface.Socket.(*Socket); ok && len(s.Inbox) > 0 {
			ready = append(ready, i)
		}
	}
	return ready, nil
}
