package commtest

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sort"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
	"github.com/zeebo/xxh3"

	"github.com/olcf/wraprun/comm"
)

// Undefined is the color that opts a rank out of a split; Split returns a
// nil handle for it.
const Undefined = -1

var errAlreadyInitialized = errors.New("runtime already initialized")

// group is the shared state of one communication context: its membership
// in rank order, one mailbox per member, and the collective exchanger.
// Handles reference groups; ranks never share handle values.
type group struct {
	id      uint64
	members []int // global ranks, indexed by group rank
	mail    []*mailbox
	coll    *exchanger
}

func newGroup(id uint64, members []int) *group {
	g := &group{id: id, members: members, coll: newExchanger(len(members))}
	g.mail = make([]*mailbox, len(members))
	for i := range g.mail {
		g.mail[i] = newMailbox()
	}
	return g
}

func (g *group) rankOf(global int) (int, bool) {
	for i, m := range g.members {
		if m == global {
			return i, true
		}
	}
	return 0, false
}

func sameMembers(a, b []int) (ordered, set bool) {
	if len(a) != len(b) {
		return false, false
	}
	ordered = true
	present := make(map[int]bool, len(a))
	for i := range a {
		if a[i] != b[i] {
			ordered = false
		}
		present[a[i]] = true
	}
	for _, m := range b {
		if !present[m] {
			return false, false
		}
	}
	return ordered, true
}

// handle is the per-rank comm.Comm value. Two handles for the same group
// are distinct values, so == across ranks is meaningless; identity holds
// only under Compare.
type handle struct {
	g     *group
	owner int
	freed atomic.Bool
}

func (h *handle) String() string {
	return fmt.Sprintf("commtest(%#x r%d n%d)", h.g.id, h.owner, len(h.g.members))
}

// Fabric hosts size ranks communicating in-process.
type Fabric struct {
	size      int
	procs     []*Proc
	groups    *xsync.Map[uint64, *group]
	world     *group
	aborted   atomic.Bool
	abortCode atomic.Int32
}

// NewFabric creates a fabric with the given number of ranks.
func NewFabric(size int) *Fabric {
	members := make([]int, size)
	for i := range members {
		members[i] = i
	}
	f := &Fabric{
		size:   size,
		groups: xsync.NewMap[uint64, *group](),
		world:  newGroup(groupID(0, 0, 0, members), members),
	}
	f.groups.Store(f.world.id, f.world)
	f.procs = make([]*Proc, size)
	for i := range f.procs {
		f.procs[i] = &Proc{f: f, rank: i}
		f.procs[i].world = &handle{g: f.world, owner: i}
	}
	return f
}

// Proc returns the runtime of the given global rank.
func (f *Fabric) Proc(rank int) *Proc {
	return f.procs[rank]
}

// Size returns the number of ranks in the fabric.
func (f *Fabric) Size() int {
	return f.size
}

// Aborted reports whether any rank aborted the job, and the abort code.
func (f *Fabric) Aborted() (int, bool) {
	return int(f.abortCode.Load()), f.aborted.Load()
}

func (f *Fabric) abort(code int) {
	if !f.aborted.CompareAndSwap(false, true) {
		return
	}
	f.abortCode.Store(int32(code))
	f.groups.Range(func(_ uint64, g *group) bool {
		for _, b := range g.mail {
			b.close()
		}
		g.coll.abort()
		return true
	})
}

// intern returns the shared group for id, creating it on first use. Every
// member of a split derives the same id, so all land on one group.
func (f *Fabric) intern(id uint64, members []int) *group {
	g, _ := f.groups.LoadOrStore(id, newGroup(id, members))
	return g
}

func groupID(parent, gen uint64, color int, members []int) uint64 {
	buf := binary.AppendUvarint(nil, parent)
	buf = binary.AppendUvarint(buf, gen)
	buf = binary.AppendVarint(buf, int64(color))
	for _, m := range members {
		buf = binary.AppendVarint(buf, int64(m))
	}
	return xxh3.Hash(buf)
}

// Proc is one rank's view of the fabric. It implements comm.Runtime.
type Proc struct {
	f     *Fabric
	rank  int
	world *handle

	// 0 new, 1 initialized, 2 finalized
	state atomic.Int32
}

var _ comm.Runtime = (*Proc)(nil)

// GlobalRank returns the rank this Proc holds in the fabric's world.
func (p *Proc) GlobalRank() int {
	return p.rank
}

func (p *Proc) Init(_ context.Context) error {
	if p.f.aborted.Load() {
		return comm.ErrAborted
	}
	if !p.state.CompareAndSwap(0, 1) {
		return errAlreadyInitialized
	}
	return nil
}

// Finalize is local: a rank may finalize while its peers keep running.
func (p *Proc) Finalize() error {
	if !p.state.CompareAndSwap(1, 2) {
		if p.state.Load() == 2 {
			return comm.ErrFinalized
		}
		return comm.ErrNotInitialized
	}
	return nil
}

func (p *Proc) Abort(_ comm.Comm, code int) error {
	p.f.abort(code)
	return nil
}

func (p *Proc) World() comm.Comm {
	return p.world
}

// use validates lifecycle state and resolves c to this fabric's handle
// type. Shared by every context-carrying operation.
func (p *Proc) use(c comm.Comm) (*handle, error) {
	switch p.state.Load() {
	case 0:
		return nil, comm.ErrNotInitialized
	case 2:
		return nil, comm.ErrFinalized
	}
	if p.f.aborted.Load() {
		return nil, comm.ErrAborted
	}
	if c == nil {
		return nil, comm.ErrFreedComm
	}
	h, ok := c.(*handle)
	if !ok {
		return nil, fmt.Errorf("foreign handle %T", c)
	}
	if h.freed.Load() {
		return nil, comm.ErrFreedComm
	}
	return h, nil
}

func (p *Proc) Rank(c comm.Comm) (int, error) {
	h, err := p.use(c)
	if err != nil {
		return 0, err
	}
	rank, ok := h.g.rankOf(p.rank)
	if !ok {
		return 0, comm.ErrRankOutOfRange
	}
	return rank, nil
}

func (p *Proc) Size(c comm.Comm) (int, error) {
	h, err := p.use(c)
	if err != nil {
		return 0, err
	}
	return len(h.g.members), nil
}

type splitVote struct {
	color  int
	key    int
	global int
}

// Split is collective over c: every member contributes its color and key
// in one exchange round, then each member derives the identical subgroup
// locally. The round number seeds the new group's identity, so repeated
// splits of the same context yield distinct contexts.
func (p *Proc) Split(c comm.Comm, color, key int) (comm.Comm, error) {
	h, err := p.use(c)
	if err != nil {
		return nil, err
	}
	rank, ok := h.g.rankOf(p.rank)
	if !ok {
		return nil, comm.ErrRankOutOfRange
	}

	gen, votes, err := h.g.coll.round(rank, splitVote{color: color, key: key, global: p.rank})
	if err != nil {
		return nil, err
	}
	if color < 0 {
		return nil, nil
	}

	var mine []splitVote
	for _, v := range votes {
		vote := v.(splitVote)
		if vote.color == color {
			mine = append(mine, vote)
		}
	}
	sort.SliceStable(mine, func(i, j int) bool {
		if mine[i].key != mine[j].key {
			return mine[i].key < mine[j].key
		}
		return mine[i].global < mine[j].global
	})
	members := make([]int, len(mine))
	for i, v := range mine {
		members[i] = v.global
	}

	g := p.f.intern(groupID(h.g.id, gen, color, members), members)
	return &handle{g: g, owner: p.rank}, nil
}

// Dup is collective over c and yields a congruent context.
func (p *Proc) Dup(c comm.Comm) (comm.Comm, error) {
	h, err := p.use(c)
	if err != nil {
		return nil, err
	}
	rank, ok := h.g.rankOf(p.rank)
	if !ok {
		return nil, comm.ErrRankOutOfRange
	}
	gen, _, err := h.g.coll.round(rank, nil)
	if err != nil {
		return nil, err
	}
	members := append([]int(nil), h.g.members...)
	g := p.f.intern(groupID(h.g.id, gen, -2, members), members)
	return &handle{g: g, owner: p.rank}, nil
}

// Free releases the handle locally. Ops on a freed handle fail with
// ErrFreedComm; freeing twice does too.
func (p *Proc) Free(c comm.Comm) error {
	h, err := p.use(c)
	if err != nil {
		return err
	}
	if !h.freed.CompareAndSwap(false, true) {
		return comm.ErrFreedComm
	}
	return nil
}

func (p *Proc) Compare(a, b comm.Comm) (comm.CompareResult, error) {
	ha, err := p.use(a)
	if err != nil {
		return comm.Unequal, err
	}
	hb, err := p.use(b)
	if err != nil {
		return comm.Unequal, err
	}
	if ha.g == hb.g {
		return comm.Ident, nil
	}
	ordered, set := sameMembers(ha.g.members, hb.g.members)
	switch {
	case ordered:
		return comm.Congruent, nil
	case set:
		return comm.Similar, nil
	default:
		return comm.Unequal, nil
	}
}
