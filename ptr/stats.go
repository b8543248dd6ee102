package ptr

import "sync/atomic"

var (
	liveValues   atomic.Int64
	liveCounters atomic.Int64
)

// Stat is a snapshot of process-wide handle bookkeeping.
type Stat struct {
	// Pointees owned by at least one Shared handle.
	LiveValues int64
	// Control blocks still referenced by a Shared or Weak handle.
	LiveCounters int64
}

// Stats returns the current counts. Useful for leak checks.
func Stats() Stat {
	return Stat{
		LiveValues:   liveValues.Load(),
		LiveCounters: liveCounters.Load(),
	}
}
