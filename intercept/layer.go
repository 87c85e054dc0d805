package intercept

import (
	"context"
	"fmt"

	"github.com/olcf/wraprun/comm"
)

// Coordinator owns the partition state the layer consults on every call.
// Implemented by wraprun.Manager.
//
// Resolve must be safe for concurrent read-only use once the coordinator is
// active; the layer calls it on every forwarded operation without locking.
type Coordinator interface {
	// Resolve returns the effective handle for c: the partition context if c
	// denotes the job-wide context, c itself otherwise.
	Resolve(c comm.Comm) comm.Comm

	// Free releases c, redirecting a job-wide release to the process's
	// partition copy.
	Free(c comm.Comm) error

	// Init performs wrapped initialization.
	Init(ctx context.Context) error

	// Finalize performs wrapped finalization.
	Finalize() error
}

// Layer is the interposed runtime handed to hosted code. Every operation
// whose signature carries context handles has those handles rescoped through
// the Coordinator before the call is forwarded, unmodified and in issue
// order, to the underlying runtime.
type Layer struct {
	rt comm.Runtime
	co Coordinator
}

// Compile-time assertion that Layer implements the runtime surface.
var _ comm.Runtime = (*Layer)(nil)

// New creates a Layer forwarding to rt with substitutions from co.
func New(rt comm.Runtime, co Coordinator) *Layer {
	return &Layer{rt: rt, co: co}
}

// Init is routed through the coordinator's wrapped initialization.
func (l *Layer) Init(ctx context.Context) error {
	return l.co.Init(ctx)
}

// Finalize is routed through the coordinator's wrapped finalization.
func (l *Layer) Finalize() error {
	return l.co.Finalize()
}

// Abort rescopes c and forwards.
func (l *Layer) Abort(c comm.Comm, code int) error {
	return l.rt.Abort(l.co.Resolve(c), code)
}

// World returns the underlying job-wide handle. Hosted code addresses it
// freely; every use is rescoped on the way through.
func (l *Layer) World() comm.Comm {
	return l.rt.World()
}

// Rank rescopes c and forwards.
func (l *Layer) Rank(c comm.Comm) (int, error) {
	return l.rt.Rank(l.co.Resolve(c))
}

// Size rescopes c and forwards.
func (l *Layer) Size(c comm.Comm) (int, error) {
	return l.rt.Size(l.co.Resolve(c))
}

// Split rescopes c and forwards. The derived context is application-owned
// and passes through Resolve untouched from then on.
func (l *Layer) Split(c comm.Comm, color, key int) (comm.Comm, error) {
	return l.rt.Split(l.co.Resolve(c), color, key)
}

// Dup rescopes c and forwards.
func (l *Layer) Dup(c comm.Comm) (comm.Comm, error) {
	return l.rt.Dup(l.co.Resolve(c))
}

// Free releases through the coordinator: freeing the job-wide handle
// releases the process's partition copy, never the job-wide context itself.
func (l *Layer) Free(c comm.Comm) error {
	return l.co.Free(c)
}

// Compare rescopes both handles and forwards to the runtime's comparison
// primitive.
func (l *Layer) Compare(a, b comm.Comm) (comm.CompareResult, error) {
	return l.rt.Compare(l.co.Resolve(a), l.co.Resolve(b))
}

// Invoke rescopes the handle arguments named by the dispatch table and
// forwards the call verbatim. Release operations are routed through the
// coordinator instead of the runtime.
func (l *Layer) Invoke(op comm.Op, args []any) ([]any, error) {
	positions, ok := HandlePositions(op)
	if !ok {
		return nil, fmt.Errorf("%w: %s", comm.ErrUnknownOp, op)
	}

	if op == comm.OpCommFree || op == comm.OpCommDisconnect {
		c, err := handleArg(op, args, 0)
		if err != nil {
			return nil, err
		}

		return nil, l.co.Free(c)
	}

	fwd := args
	if len(positions) > 0 {
		fwd = make([]any, len(args))
		copy(fwd, args)
		for _, pos := range positions {
			c, err := handleArg(op, args, pos)
			if err != nil {
				return nil, err
			}
			fwd[pos] = l.co.Resolve(c)
		}
	}

	return l.rt.Invoke(op, fwd)
}

func handleArg(op comm.Op, args []any, pos int) (comm.Comm, error) {
	if pos >= len(args) {
		return nil, fmt.Errorf("%s: %d arguments, handle expected at %d", op, len(args), pos)
	}
	c, ok := args[pos].(comm.Comm)
	if !ok {
		return nil, fmt.Errorf("%s: argument %d is %T, want comm.Comm", op, pos, args[pos])
	}

	return c, nil
}
