package trace

import "firestige.xyz/hop/internal/log"

func logger() log.Logger {
	return log.GetLogger().WithField("component", "trace")
}
