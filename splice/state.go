package splice

// State is the engine's position in its lifecycle.
type State int

const (
	// StateIdle means no item is active. The queue may hold deferred items.
	StateIdle State = iota
	// StateResolving means the head item is being opened.
	StateResolving
	// StateSplicing means an item's stream is being copied into the process.
	StateSplicing
	// StateClosed means submissions ended, the queue drained and stdin was closed.
	StateClosed
	// StateTerminated means the process has exited.
	StateTerminated
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResolving:
		return "resolving"
	case StateSplicing:
		return "splicing"
	case StateClosed:
		return "closed"
	case StateTerminated:
		return "terminated"
	default:
		return "unknown"
	}
}

// Item is an opaque value submitted by the producer. The configured resolver
// decides how it becomes a byte stream.
type Item = any
