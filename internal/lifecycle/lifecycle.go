package lifecycle

import "sync/atomic"

// Phase is the process lifecycle as reported by /health.
type Phase int32

const (
	Starting Phase = iota
	Running
	ShuttingDown
)

func (p Phase) String() string {
	switch p {
	case Starting:
		return "starting"
	case Running:
		return "running"
	case ShuttingDown:
		return "shutting-down"
	}
	return "unknown"
}

var phase atomic.Int32

// SetPhase records the current phase. main moves Starting -> Running once the
// refresher is armed and the listener is up, and -> ShuttingDown on SIGTERM/SIGINT.
func SetPhase(p Phase) {
	phase.Store(int32(p))
}

// Current returns the recorded phase.
func Current() Phase {
	return Phase(phase.Load())
}

// IsShuttingDown returns true if the process is draining and should not receive new traffic.
func IsShuttingDown() bool {
	return Current() == ShuttingDown
}
