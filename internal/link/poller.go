package link

import "time"

// Poller waits for read readiness across a fixed set of interfaces.
type Poller interface {
	// Wait blocks for at most timeout and returns the indexes of the
	// interfaces with a frame pending. An empty result means timeout.
	Wait(timeout time.Duration) ([]int, error)
}
