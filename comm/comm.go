package comm

import (
	"context"
	"errors"
)

// Comm is an opaque communication-context handle.
//
// The concrete type is owned by the Runtime implementation. Callers must not
// assume handles are comparable with ==; two handles denoting the same
// context may be distinct values. Use Runtime.Compare for identity.
type Comm interface {
	// String describes the handle for diagnostics only. The text carries no
	// identity guarantee.
	String() string
}

// CompareResult is the outcome of comparing two context handles with the
// runtime's comparison primitive.
type CompareResult int

const (
	// Ident means both handles denote the same context.
	Ident CompareResult = iota

	// Congruent means the contexts differ but have identical groups with
	// identical rank order (e.g. a duplicate of a context).
	Congruent

	// Similar means the groups contain the same members in a different order.
	Similar

	// Unequal means the groups differ.
	Unequal
)

// String returns the string representation of the comparison result.
func (r CompareResult) String() string {
	switch r {
	case Ident:
		return "Ident"
	case Congruent:
		return "Congruent"
	case Similar:
		return "Similar"
	case Unequal:
		return "Unequal"
	default:
		return "Unknown"
	}
}

// AnySource matches any sending rank in receive and probe operations.
const AnySource = -1

// AnyTag matches any message tag in receive and probe operations.
const AnyTag = -1

// Status describes a completed or probed point-to-point operation.
type Status struct {
	// Source is the rank of the sender within the operation's context.
	Source int

	// Tag is the message tag.
	Tag int

	// Count is the payload size in bytes.
	Count int
}

// Request tracks an outstanding non-blocking operation.
type Request interface {
	// Wait blocks until the operation completes and returns its status.
	Wait() (Status, error)

	// Test reports completion without blocking. Status is valid only when
	// done is true.
	Test() (status Status, done bool, err error)
}

// ReduceOp selects the combining function of a reduction collective.
type ReduceOp int

const (
	// OpSum combines values by addition.
	OpSum ReduceOp = iota

	// OpMax keeps the largest value.
	OpMax

	// OpMin keeps the smallest value.
	OpMin
)

// Sentinel errors shared by Runtime implementations.
var (
	// ErrNotInitialized is returned when an operation is issued before Init.
	ErrNotInitialized = errors.New("runtime not initialized")

	// ErrFinalized is returned when an operation is issued after Finalize.
	ErrFinalized = errors.New("runtime finalized")

	// ErrFreedComm is returned when an operation names a released context.
	ErrFreedComm = errors.New("communication context already released")

	// ErrRankOutOfRange is returned when a peer rank is outside the
	// operation's context.
	ErrRankOutOfRange = errors.New("rank out of range for context")

	// ErrUnknownOp is returned by Invoke for an operation outside the
	// runtime surface.
	ErrUnknownOp = errors.New("unknown operation")

	// ErrUnsupportedOp is returned by Invoke when an implementation does not
	// provide an operation's semantics.
	ErrUnsupportedOp = errors.New("operation not supported by runtime")

	// ErrAborted is returned when the job has been aborted.
	ErrAborted = errors.New("job aborted")
)

// Runtime is the underlying messaging implementation the interposition layer
// forwards to.
//
// Typed methods cover the operations the wraprun layer needs semantically
// (lifecycle, communicator management, comparison). Invoke carries the rest
// of the public surface generically; see the Op catalog for the argument
// layout of each operation.
//
// Implementations must make Compare usable from concurrent goroutines once
// Init has returned.
type Runtime interface {
	// Init prepares the runtime. Must be called once, before any other
	// operation.
	Init(ctx context.Context) error

	// Finalize releases the runtime. Implementations must tolerate a process
	// finalizing while peers are still running.
	Finalize() error

	// Abort terminates the job associated with c with the given code.
	Abort(c Comm, code int) error

	// World returns the handle denoting every process in the job.
	World() Comm

	// Rank returns the calling process's 0-based rank within c.
	Rank(c Comm) (int, error)

	// Size returns the number of processes in c.
	Size(c Comm) (int, error)

	// Split partitions c: processes passing equal color land in one new
	// context, ordered by key (ties broken by rank in c).
	Split(c Comm, color, key int) (Comm, error)

	// Dup returns a new context congruent to c.
	Dup(c Comm) (Comm, error)

	// Free releases the calling process's handle on c.
	Free(c Comm) error

	// Compare is the runtime's handle comparison primitive.
	Compare(a, b Comm) (CompareResult, error)

	// Invoke executes op with the given arguments and returns its results.
	// Argument layouts are defined per operation in the Op catalog.
	Invoke(op Op, args []any) ([]any, error)
}
