package comm

import "fmt"

// Typed wrappers over Runtime.Invoke for the operations hosted code issues
// most often. Each wrapper builds the documented argument layout of its Op,
// so calls made through an interposing Runtime are rescoped like any other
// Invoke.

// Send delivers buf to dest under tag within c, blocking per the runtime's
// send semantics.
func Send(rt Runtime, buf []byte, dest, tag int, c Comm) error {
	_, err := rt.Invoke(OpSend, []any{buf, dest, tag, c})

	return err
}

// Recv blocks until a message from source under tag arrives within c.
func Recv(rt Runtime, source, tag int, c Comm) ([]byte, Status, error) {
	res, err := rt.Invoke(OpRecv, []any{source, tag, c})
	if err != nil {
		return nil, Status{}, err
	}

	buf, err := resultAt[[]byte](OpRecv, res, 0)
	if err != nil {
		return nil, Status{}, err
	}
	status, err := resultAt[Status](OpRecv, res, 1)
	if err != nil {
		return nil, Status{}, err
	}

	return buf, status, nil
}

// Isend starts a non-blocking send and returns its request.
func Isend(rt Runtime, buf []byte, dest, tag int, c Comm) (Request, error) {
	res, err := rt.Invoke(OpIsend, []any{buf, dest, tag, c})
	if err != nil {
		return nil, err
	}

	return resultAt[Request](OpIsend, res, 0)
}

// Irecv starts a non-blocking receive and returns its request. The received
// payload is available from the request's Wait via the runtime's Status and
// the documented Irecv result layout; implementations return the payload
// with the completed request.
func Irecv(rt Runtime, source, tag int, c Comm) (Request, error) {
	res, err := rt.Invoke(OpIrecv, []any{source, tag, c})
	if err != nil {
		return nil, err
	}

	return resultAt[Request](OpIrecv, res, 0)
}

// Probe blocks until a message from source under tag is available within c.
func Probe(rt Runtime, source, tag int, c Comm) (Status, error) {
	res, err := rt.Invoke(OpProbe, []any{source, tag, c})
	if err != nil {
		return Status{}, err
	}

	return resultAt[Status](OpProbe, res, 0)
}

// Iprobe reports whether a message from source under tag is available,
// without blocking.
func Iprobe(rt Runtime, source, tag int, c Comm) (Status, bool, error) {
	res, err := rt.Invoke(OpIprobe, []any{source, tag, c})
	if err != nil {
		return Status{}, false, err
	}

	status, err := resultAt[Status](OpIprobe, res, 0)
	if err != nil {
		return Status{}, false, err
	}
	flag, err := resultAt[bool](OpIprobe, res, 1)
	if err != nil {
		return Status{}, false, err
	}

	return status, flag, nil
}

// Sendrecv sends buf to dest and receives from source in one operation.
func Sendrecv(rt Runtime, buf []byte, dest, sendtag, source, recvtag int, c Comm) ([]byte, Status, error) {
	res, err := rt.Invoke(OpSendrecv, []any{buf, dest, sendtag, source, recvtag, c})
	if err != nil {
		return nil, Status{}, err
	}

	out, err := resultAt[[]byte](OpSendrecv, res, 0)
	if err != nil {
		return nil, Status{}, err
	}
	status, err := resultAt[Status](OpSendrecv, res, 1)
	if err != nil {
		return nil, Status{}, err
	}

	return out, status, nil
}

// Barrier blocks until every process in c has entered it.
func Barrier(rt Runtime, c Comm) error {
	_, err := rt.Invoke(OpBarrier, []any{c})

	return err
}

// Bcast distributes root's buf to every process in c and returns the
// broadcast payload on every rank.
func Bcast(rt Runtime, buf []byte, root int, c Comm) ([]byte, error) {
	res, err := rt.Invoke(OpBcast, []any{buf, root, c})
	if err != nil {
		return nil, err
	}

	return resultAt[[]byte](OpBcast, res, 0)
}

// Gather collects every process's buf at root, ordered by rank. Non-root
// ranks receive nil.
func Gather(rt Runtime, buf []byte, root int, c Comm) ([][]byte, error) {
	res, err := rt.Invoke(OpGather, []any{buf, root, c})
	if err != nil {
		return nil, err
	}
	// Non-root ranks report a nil gather result.
	if len(res) > 0 && res[0] == nil {
		return nil, nil
	}

	return resultAt[[][]byte](OpGather, res, 0)
}

// Allgather collects every process's buf at every process, ordered by rank.
func Allgather(rt Runtime, buf []byte, c Comm) ([][]byte, error) {
	res, err := rt.Invoke(OpAllgather, []any{buf, c})
	if err != nil {
		return nil, err
	}

	return resultAt[[][]byte](OpAllgather, res, 0)
}

// Reduce combines every process's value at root. Non-root ranks receive 0.
func Reduce(rt Runtime, value int64, op ReduceOp, root int, c Comm) (int64, error) {
	res, err := rt.Invoke(OpReduce, []any{value, op, root, c})
	if err != nil {
		return 0, err
	}

	return resultAt[int64](OpReduce, res, 0)
}

// Allreduce combines every process's value and returns the result on every
// rank.
func Allreduce(rt Runtime, value int64, op ReduceOp, c Comm) (int64, error) {
	res, err := rt.Invoke(OpAllreduce, []any{value, op, c})
	if err != nil {
		return 0, err
	}

	return resultAt[int64](OpAllreduce, res, 0)
}

func resultAt[T any](op Op, res []any, i int) (T, error) {
	var zero T
	if i >= len(res) {
		return zero, fmt.Errorf("%s: missing result %d", op, i)
	}
	v, ok := res[i].(T)
	if !ok {
		return zero, fmt.Errorf("%s: result %d has type %T", op, i, res[i])
	}

	return v, nil
}
