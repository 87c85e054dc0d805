package commtest

import (
	"sync"

	"github.com/olcf/wraprun/comm"
)

type message struct {
	src     int
	tag     int
	payload []byte
}

func (m message) status() comm.Status {
	return comm.Status{Source: m.src, Tag: m.tag, Count: len(m.payload)}
}

// mailbox is one rank's in-order message queue within a group.
type mailbox struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []message
	closed bool
}

func newMailbox() *mailbox {
	b := &mailbox{}
	b.cond = sync.NewCond(&b.mu)
	return b
}

func (b *mailbox) put(m message) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return comm.ErrAborted
	}
	b.queue = append(b.queue, m)
	b.cond.Broadcast()
	return nil
}

// take blocks until a message matching source and tag is queued and
// removes it. AnySource and AnyTag act as wildcards.
func (b *mailbox) take(source, tag int) (message, error) {
	return b.get(source, tag, true)
}

// peek blocks like take but leaves the message queued.
func (b *mailbox) peek(source, tag int) (message, error) {
	return b.get(source, tag, false)
}

func (b *mailbox) get(source, tag int, remove bool) (message, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for {
		if b.closed {
			return message{}, comm.ErrAborted
		}
		if i, ok := b.match(source, tag); ok {
			m := b.queue[i]
			if remove {
				b.queue = append(b.queue[:i], b.queue[i+1:]...)
			}
			return m, nil
		}
		b.cond.Wait()
	}
}

// tryPeek reports without blocking whether a matching message is queued.
func (b *mailbox) tryPeek(source, tag int) (message, bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return message{}, false, comm.ErrAborted
	}
	if i, ok := b.match(source, tag); ok {
		return b.queue[i], true, nil
	}
	return message{}, false, nil
}

func (b *mailbox) match(source, tag int) (int, bool) {
	for i, m := range b.queue {
		if (source == comm.AnySource || m.src == source) &&
			(tag == comm.AnyTag || m.tag == tag) {
			return i, true
		}
	}
	return 0, false
}

func (b *mailbox) close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.closed = true
	b.cond.Broadcast()
}

// exchanger is a reusable all-to-all rendezvous: every member of a group
// contributes one value per round and every member receives the full
// contribution vector. Rounds are numbered so that callers deriving state
// from a round (such as a split) agree on an epoch without extra traffic.
type exchanger struct {
	mu      sync.Mutex
	cond    *sync.Cond
	n       int
	phase   int // 0 while arriving, 1 while departing
	count   int
	gen     uint64
	vals    []any
	result  []any
	aborted bool
}

func newExchanger(n int) *exchanger {
	e := &exchanger{n: n}
	e.cond = sync.NewCond(&e.mu)
	return e
}

// round blocks until all n members have contributed, then returns the
// round number and every member's contribution indexed by group rank.
func (e *exchanger) round(rank int, in any) (uint64, []any, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for e.phase != 0 && !e.aborted {
		e.cond.Wait()
	}
	if e.aborted {
		return 0, nil, comm.ErrAborted
	}

	if e.vals == nil {
		e.vals = make([]any, e.n)
	}
	e.vals[rank] = in
	e.count++
	if e.count == e.n {
		e.gen++
		e.result = e.vals
		e.vals = nil
		e.phase = 1
		e.count = 0
		e.cond.Broadcast()
	} else {
		for e.phase == 0 && !e.aborted {
			e.cond.Wait()
		}
		if e.aborted {
			return 0, nil, comm.ErrAborted
		}
	}

	gen, res := e.gen, e.result
	e.count++
	if e.count == e.n {
		e.phase = 0
		e.count = 0
		e.result = nil
		e.cond.Broadcast()
	}
	return gen, res, nil
}

func (e *exchanger) abort() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.aborted = true
	e.cond.Broadcast()
}

// request is the fabric's comm.Request. Isend completes immediately;
// Irecv completes when the background receive lands.
type request struct {
	done    chan struct{}
	once    sync.Once
	status  comm.Status
	payload []byte
	err     error
}

var _ comm.Request = (*request)(nil)

func newRequest() *request {
	return &request{done: make(chan struct{})}
}

func (r *request) complete(status comm.Status, payload []byte, err error) {
	r.once.Do(func() {
		r.status = status
		r.payload = payload
		r.err = err
		close(r.done)
	})
}

func (r *request) Wait() (comm.Status, error) {
	<-r.done
	return r.status, r.err
}

func (r *request) Test() (comm.Status, bool, error) {
	select {
	case <-r.done:
		return r.status, true, r.err
	default:
		return comm.Status{}, false, nil
	}
}

// Payload returns the received bytes of a completed receive request.
func (r *request) Payload() []byte {
	select {
	case <-r.done:
		return r.payload
	default:
		return nil
	}
}
