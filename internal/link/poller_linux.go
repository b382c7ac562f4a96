package link

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"
)

// ppoller multiplexes the interface sockets with ppoll(2), which takes a
// nanosecond timeout so sub-millisecond waits are honoured.
type ppoller struct {
	fds   []unix.PollFd
	ready []int
}

// NewPoller builds a poller over every interface socket, in list order.
func NewPoller(ifaces Interfaces) (Poller, error) {
	p := &ppoller{
		fds:   make([]unix.PollFd, 0, len(ifaces)),
		ready: make([]int, 0, len(ifaces)),
	}
	for _, iface := range ifaces {
		if iface.Socket == nil || iface.Socket.Fd() < 0 {
			return nil, fmt.Errorf("%s: socket has no descriptor", iface.Name)
		}
		p.fds = append(p.fds, unix.PollFd{Fd: int32(iface.Socket.Fd()), Events: unix.POLLIN})
	}
	return p, nil
}

func (p *ppoller) Wait(timeout time.Duration) ([]int, error) {
	for i := range p.fds {
		p.fds[i].Revents = 0
	}

	ts := unix.NsecToTimespec(timeout.Nanoseconds())
	n, err := unix.Ppoll(p.fds, &ts, nil)
	if err != nil {
		if errors.Is(err, unix.EINTR) {
			return nil, nil
		}
		return nil, fmt.Errorf("ppoll: %w", err)
	}
	if n == 0 {
		return nil, nil
	}

	p.ready = p.ready[:0]
	for i, pfd := range p.fds {
		if pfd.Revents&(unix.POLLIN|unix.POLLERR) != 0 {
			p.ready = append(p.ready, i)
		}
	}
	return p.ready, nil
}
