package commtest

import (
	"fmt"

	"github.com/olcf/wraprun/comm"
)

// Invoke implements the generic operation surface. Point-to-point
// messaging, the common collectives, and context queries are backed by
// the fabric; the rest of the catalog reports ErrUnsupportedOp.
func (p *Proc) Invoke(op comm.Op, args []any) ([]any, error) {
	switch op {
	case comm.OpSend, comm.OpBsend, comm.OpSsend, comm.OpRsend:
		return p.invokeSend(op, args)
	case comm.OpIsend, comm.OpIbsend, comm.OpIssend, comm.OpIrsend:
		return p.invokeIsend(op, args)
	case comm.OpRecv:
		return p.invokeRecv(op, args)
	case comm.OpIrecv:
		return p.invokeIrecv(op, args)
	case comm.OpProbe, comm.OpIprobe:
		return p.invokeProbe(op, args)
	case comm.OpSendrecv:
		return p.invokeSendrecv(op, args)
	case comm.OpBarrier:
		return p.invokeBarrier(op, args)
	case comm.OpBcast:
		return p.invokeBcast(op, args)
	case comm.OpGather, comm.OpAllgather:
		return p.invokeGather(op, args)
	case comm.OpReduce, comm.OpAllreduce:
		return p.invokeReduce(op, args)
	case comm.OpCommRank:
		h, err := p.argComm(op, args, 0)
		if err != nil {
			return nil, err
		}
		rank, err := p.Rank(h)
		if err != nil {
			return nil, err
		}
		return []any{rank}, nil
	case comm.OpCommSize:
		h, err := p.argComm(op, args, 0)
		if err != nil {
			return nil, err
		}
		size, err := p.Size(h)
		if err != nil {
			return nil, err
		}
		return []any{size}, nil
	case comm.OpCommCompare:
		if len(args) < 2 {
			return nil, p.badArgs(op, args)
		}
		a, _ := args[0].(comm.Comm)
		b, _ := args[1].(comm.Comm)
		res, err := p.Compare(a, b)
		if err != nil {
			return nil, err
		}
		return []any{res}, nil
	case comm.OpCommDup:
		h, err := p.argComm(op, args, 0)
		if err != nil {
			return nil, err
		}
		dup, err := p.Dup(h)
		if err != nil {
			return nil, err
		}
		return []any{dup}, nil
	case comm.OpCommSplit:
		h, err := p.argComm(op, args, 0)
		if err != nil {
			return nil, err
		}
		color, err := argAt[int](op, args, 1)
		if err != nil {
			return nil, err
		}
		key, err := argAt[int](op, args, 2)
		if err != nil {
			return nil, err
		}
		sub, err := p.Split(h, color, key)
		if err != nil {
			return nil, err
		}
		return []any{sub}, nil
	case comm.OpCommFree, comm.OpCommDisconnect:
		h, err := p.argComm(op, args, 0)
		if err != nil {
			return nil, err
		}
		return nil, p.Free(h)
	case comm.OpAbort:
		h, err := p.argComm(op, args, 0)
		if err != nil {
			return nil, err
		}
		code, err := argAt[int](op, args, 1)
		if err != nil {
			return nil, err
		}
		return nil, p.Abort(h, code)
	default:
		return nil, fmt.Errorf("%s: %w", op, comm.ErrUnsupportedOp)
	}
}

func (p *Proc) invokeSend(op comm.Op, args []any) ([]any, error) {
	buf, err := argAt[[]byte](op, args, 0)
	if err != nil {
		return nil, err
	}
	dest, err := argAt[int](op, args, 1)
	if err != nil {
		return nil, err
	}
	tag, err := argAt[int](op, args, 2)
	if err != nil {
		return nil, err
	}
	h, err := p.argComm(op, args, 3)
	if err != nil {
		return nil, err
	}
	return nil, p.send(h, buf, dest, tag)
}

func (p *Proc) invokeIsend(op comm.Op, args []any) ([]any, error) {
	buf, err := argAt[[]byte](op, args, 0)
	if err != nil {
		return nil, err
	}
	tag, err := argAt[int](op, args, 2)
	if err != nil {
		return nil, err
	}
	if _, err := p.invokeSend(op, args); err != nil {
		return nil, err
	}
	req := newRequest()
	req.complete(comm.Status{Source: p.rank, Tag: tag, Count: len(buf)}, nil, nil)
	return []any{comm.Request(req)}, nil
}

func (p *Proc) invokeRecv(op comm.Op, args []any) ([]any, error) {
	source, tag, h, err := p.recvArgs(op, args)
	if err != nil {
		return nil, err
	}
	m, err := p.recv(h, source, tag)
	if err != nil {
		return nil, err
	}
	return []any{m.payload, m.status()}, nil
}

func (p *Proc) invokeIrecv(op comm.Op, args []any) ([]any, error) {
	source, tag, h, err := p.recvArgs(op, args)
	if err != nil {
		return nil, err
	}
	req := newRequest()
	go func() {
		m, err := p.recv(h, source, tag)
		req.complete(m.status(), m.payload, err)
	}()
	return []any{comm.Request(req)}, nil
}

func (p *Proc) invokeProbe(op comm.Op, args []any) ([]any, error) {
	source, tag, h, err := p.recvArgs(op, args)
	if err != nil {
		return nil, err
	}
	box, err := p.ownBox(h)
	if err != nil {
		return nil, err
	}
	if op == comm.OpIprobe {
		m, ok, err := box.tryPeek(source, tag)
		if err != nil {
			return nil, err
		}
		return []any{m.status(), ok}, nil
	}
	m, err := box.peek(source, tag)
	if err != nil {
		return nil, err
	}
	return []any{m.status()}, nil
}

func (p *Proc) invokeSendrecv(op comm.Op, args []any) ([]any, error) {
	buf, err := argAt[[]byte](op, args, 0)
	if err != nil {
		return nil, err
	}
	dest, err := argAt[int](op, args, 1)
	if err != nil {
		return nil, err
	}
	sendtag, err := argAt[int](op, args, 2)
	if err != nil {
		return nil, err
	}
	source, err := argAt[int](op, args, 3)
	if err != nil {
		return nil, err
	}
	recvtag, err := argAt[int](op, args, 4)
	if err != nil {
		return nil, err
	}
	h, err := p.argComm(op, args, 5)
	if err != nil {
		return nil, err
	}
	if err := p.send(h, buf, dest, sendtag); err != nil {
		return nil, err
	}
	m, err := p.recv(h, source, recvtag)
	if err != nil {
		return nil, err
	}
	return []any{m.payload, m.status()}, nil
}

func (p *Proc) invokeBarrier(op comm.Op, args []any) ([]any, error) {
	rank, h, err := p.collArgs(op, args, 0)
	if err != nil {
		return nil, err
	}
	_, _, err = h.g.coll.round(rank, nil)
	return nil, err
}

func (p *Proc) invokeBcast(op comm.Op, args []any) ([]any, error) {
	buf, err := argAt[[]byte](op, args, 0)
	if err != nil {
		return nil, err
	}
	root, err := argAt[int](op, args, 1)
	if err != nil {
		return nil, err
	}
	rank, h, err := p.collArgs(op, args, 2)
	if err != nil {
		return nil, err
	}
	if root < 0 || root >= len(h.g.members) {
		return nil, comm.ErrRankOutOfRange
	}
	_, vals, err := h.g.coll.round(rank, cloneBytes(buf))
	if err != nil {
		return nil, err
	}
	out, _ := vals[root].([]byte)
	return []any{out}, nil
}

func (p *Proc) invokeGather(op comm.Op, args []any) ([]any, error) {
	buf, err := argAt[[]byte](op, args, 0)
	if err != nil {
		return nil, err
	}
	root := 0
	commPos := 1
	if op == comm.OpGather {
		root, err = argAt[int](op, args, 1)
		if err != nil {
			return nil, err
		}
		commPos = 2
	}
	rank, h, err := p.collArgs(op, args, commPos)
	if err != nil {
		return nil, err
	}
	if op == comm.OpGather && (root < 0 || root >= len(h.g.members)) {
		return nil, comm.ErrRankOutOfRange
	}
	_, vals, err := h.g.coll.round(rank, cloneBytes(buf))
	if err != nil {
		return nil, err
	}
	if op == comm.OpGather && rank != root {
		return []any{nil}, nil
	}
	out := make([][]byte, len(vals))
	for i, v := range vals {
		out[i], _ = v.([]byte)
	}
	return []any{out}, nil
}

func (p *Proc) invokeReduce(op comm.Op, args []any) ([]any, error) {
	value, err := argAt[int64](op, args, 0)
	if err != nil {
		return nil, err
	}
	redOp, err := argAt[comm.ReduceOp](op, args, 1)
	if err != nil {
		return nil, err
	}
	root := 0
	commPos := 2
	if op == comm.OpReduce {
		root, err = argAt[int](op, args, 2)
		if err != nil {
			return nil, err
		}
		commPos = 3
	}
	rank, h, err := p.collArgs(op, args, commPos)
	if err != nil {
		return nil, err
	}
	if op == comm.OpReduce && (root < 0 || root >= len(h.g.members)) {
		return nil, comm.ErrRankOutOfRange
	}
	_, vals, err := h.g.coll.round(rank, value)
	if err != nil {
		return nil, err
	}
	if op == comm.OpReduce && rank != root {
		return []any{int64(0)}, nil
	}
	return []any{combine(vals, redOp)}, nil
}

func combine(vals []any, op comm.ReduceOp) int64 {
	total, _ := vals[0].(int64)
	for _, v := range vals[1:] {
		n, _ := v.(int64)
		switch op {
		case comm.OpSum:
			total += n
		case comm.OpMax:
			if n > total {
				total = n
			}
		case comm.OpMin:
			if n < total {
				total = n
			}
		}
	}
	return total
}

func (p *Proc) send(h *handle, buf []byte, dest, tag int) error {
	src, ok := h.g.rankOf(p.rank)
	if !ok {
		return comm.ErrRankOutOfRange
	}
	if dest < 0 || dest >= len(h.g.members) {
		return comm.ErrRankOutOfRange
	}
	return h.g.mail[dest].put(message{src: src, tag: tag, payload: cloneBytes(buf)})
}

func (p *Proc) recv(h *handle, source, tag int) (message, error) {
	box, err := p.ownBox(h)
	if err != nil {
		return message{}, err
	}
	if source != comm.AnySource && (source < 0 || source >= len(h.g.members)) {
		return message{}, comm.ErrRankOutOfRange
	}
	return box.take(source, tag)
}

func (p *Proc) ownBox(h *handle) (*mailbox, error) {
	rank, ok := h.g.rankOf(p.rank)
	if !ok {
		return nil, comm.ErrRankOutOfRange
	}
	return h.g.mail[rank], nil
}

func (p *Proc) recvArgs(op comm.Op, args []any) (source, tag int, h *handle, err error) {
	if source, err = argAt[int](op, args, 0); err != nil {
		return
	}
	if tag, err = argAt[int](op, args, 1); err != nil {
		return
	}
	h, err = p.argComm(op, args, 2)
	return
}

// collArgs resolves the context at pos and this rank's position in it.
func (p *Proc) collArgs(op comm.Op, args []any, pos int) (int, *handle, error) {
	h, err := p.argComm(op, args, pos)
	if err != nil {
		return 0, nil, err
	}
	rank, ok := h.g.rankOf(p.rank)
	if !ok {
		return 0, nil, comm.ErrRankOutOfRange
	}
	return rank, h, nil
}

func (p *Proc) argComm(op comm.Op, args []any, pos int) (*handle, error) {
	if pos >= len(args) {
		return nil, p.badArgs(op, args)
	}
	c, _ := args[pos].(comm.Comm)
	return p.use(c)
}

func (p *Proc) badArgs(op comm.Op, args []any) error {
	return fmt.Errorf("%s: malformed argument list of length %d", op, len(args))
}

func argAt[T any](op comm.Op, args []any, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, fmt.Errorf("%s: missing argument %d", op, i)
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, fmt.Errorf("%s: argument %d has type %T", op, i, args[i])
	}
	return v, nil
}

func cloneBytes(b []byte) []byte {
	if b == nil {
		return nil
	}
	return append([]byte(nil), b...)
}
