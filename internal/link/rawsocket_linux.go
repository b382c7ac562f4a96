package link

import (
	"errors"
	"fmt"
	"time"

	"golang.org/x/sys/unix"

	"firestige.xyz/hop/internal/core"
)

// rawSocket is an AF_PACKET SOCK_RAW socket bound to one interface.
type rawSocket struct {
	fd      int
	ifindex int
}

func htons(i uint16) uint16 {
	return (i<<8)&0xff00 | i>>8
}

func openRawSocket(ifindex int, opts Options) (*rawSocket, error) {
	fd, err := unix.Socket(unix.AF_PACKET, unix.SOCK_RAW|unix.SOCK_CLOEXEC, int(htons(unix.ETH_P_ALL)))
	if err != nil {
		return nil, fmt.Errorf("socket: %w", err)
	}
	s := &rawSocket{fd: fd, ifindex: ifindex}

	sa := &unix.SockaddrLinklayer{
		Protocol: htons(unix.ETH_P_ALL),
		Ifindex:  ifindex,
	}
	if err := unix.Bind(fd, sa); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("bind: %w", err)
	}

	if err := s.SetRecvTimeout(opts.RecvTimeout); err != nil {
		unix.Close(fd)
		return nil, err
	}

	if opts.KernelFilter {
		if err := s.attachFilter(); err != nil {
			unix.Close(fd)
			return nil, err
		}
	}
	return s, nil
}

func (s *rawSocket) attachFilter() error {
	raw, err := CompileFilter()
	if err != nil {
		return err
	}
	filter := make([]unix.SockFilter, len(raw))
	for i, ins := range raw {
		filter[i] = unix.SockFilter{Code: ins.Op, Jt: ins.Jt, Jf: ins.Jf, K: ins.K}
	}
	prog := unix.SockFprog{Len: uint16(len(filter)), Filter: &filter[0]}
	if err := unix.SetsockoptSockFprog(s.fd, unix.SOL_SOCKET, unix.SO_ATTACH_FILTER, &prog); err != nil {
		return fmt.Errorf("attach filter: %w", err)
	}
	return nil
}

func (s *rawSocket) Recv(buf []byte) (int, bool, error) {
	n, from, err := unix.Recvfrom(s.fd, buf, 0)
	if err != nil {
		if errors.Is(err, unix.EAGAIN) || errors.Is(err, unix.EWOULDBLOCK) {
			return 0, false, core.ErrRecvTimeout
		}
		return 0, false, err
	}
	sll, ok := from.(*unix.SockaddrLinklayer)
	outgoing := ok && sll.Pkttype == unix.PACKET_OUTGOING
	return n, outgoing, nil
}

func (s *rawSocket) Send(frame []byte) error {
	n, err := unix.Write(s.fd, frame)
	if err != nil {
		return err
	}
	if n != len(frame) {
		return fmt.Errorf("short write: %d of %d bytes", n, len(frame))
	}
	return nil
}

// SetRecvTimeout sets SO_RCVTIMEO. A zero timeval would block forever, so
// non-positive durations are clamped to one microsecond.
func (s *rawSocket) SetRecvTimeout(d time.Duration) error {
	if d < time.Microsecond {
		d = time.Microsecond
	}
	tv := unix.NsecToTimeval(d.Nanoseconds())
	if err := unix.SetsockoptTimeval(s.fd, unix.SOL_SOCKET, unix.SO_RCVTIMEO, &tv); err != nil {
		return fmt.Errorf("set receive timeout: %w", err)
	}
	return nil
}

func (s *rawSocket) Fd() int { return s.fd }

func (s *rawSocket) Close() error {
	if s.fd < 0 {
		return nil
	}
	err := unix.Close(s.fd)
	s.fd = -1
	return err
}
