//go:build !linux

package link

import (
	"time"

	"firestige.xyz/hop/internal/core"
)

type rawSocket struct{}

func openRawSocket(int, Options) (*rawSocket, error) {
	return nil, core.ErrUnsupportedPlatform
}

func (*rawSocket) Recv([]byte) (int, bool, error) {
	return 0, false, core.ErrUnsupportedPlatform
}

func (*rawSocket) Send([]byte) error {
	return core.ErrUnsupportedPlatform
}

func (*rawSocket) SetRecvTimeout(time.Duration) error {
	return core.ErrUnsupportedPlatform
}

func (*rawSocket) Fd() int { return -1 }

func (*rawSocket) Close() error { return nil }

// NewPoller is only available on Linux.
func NewPoller(Interfaces) (Poller, error) {
	return nil, core.ErrUnsupportedPlatform
}
