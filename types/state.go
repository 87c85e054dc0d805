package types

// State represents the wraprun layer's lifecycle state within one process.
//
// States follow a single progression:
//
//	StateUninitialized → StateInitializing → StateActive → StateFinalizing → StateFinalized
//
// StateFinalized is terminal and idempotent: a second finalize request is a
// no-op once it has been reached.
type State int

const (
	// StateUninitialized is the state before wrapped init has been issued.
	StateUninitialized State = iota

	// StateInitializing indicates rank-configuration resolution and
	// partition derivation are in progress.
	StateInitializing

	// StateActive indicates the partition context exists and interposed
	// operations are being forwarded.
	StateActive

	// StateFinalizing indicates the partition context is being released and
	// the job-wide context finalized.
	StateFinalizing

	// StateFinalized is the terminal state; all contexts are released.
	StateFinalized
)

// String returns the string representation of the state.
func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "Uninitialized"
	case StateInitializing:
		return "Initializing"
	case StateActive:
		return "Active"
	case StateFinalizing:
		return "Finalizing"
	case StateFinalized:
		return "Finalized"
	default:
		return "Unknown"
	}
}
