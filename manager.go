package wraprun

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/olcf/wraprun/comm"
	"github.com/olcf/wraprun/intercept"
	"github.com/olcf/wraprun/internal/logger"
	"github.com/olcf/wraprun/internal/redirect"
	"github.com/olcf/wraprun/rankfile"
	"github.com/olcf/wraprun/types"
)

// Manager coordinates the lifecycle of one process's partition: it splits
// the job-wide context by the color resolved from the rank file, rescopes
// job-wide operations onto the partition, and contains failures so one
// partition cannot take the rest of the job down.
//
// A Manager is handed to hosted code as a comm.Runtime via Runtime(); the
// returned layer routes initialization, finalization, and every
// handle-carrying operation through the Manager.
type Manager struct {
	cfg      Config
	rt       comm.Runtime
	layer    *intercept.Layer
	logger   types.Logger
	exitFunc func(code int)

	state atomic.Int32

	// mu serializes Init and Shutdown.
	mu sync.Mutex

	// world is written once during Init, before partition is published,
	// and read-only afterward.
	world comm.Comm

	// partition holds the comm.Comm for this process's partition. It is
	// published exactly once; a nil load means partitioning is not active.
	partition atomic.Value

	// partitionFreed latches the first release of the partition copy.
	partitionFreed atomic.Bool

	rankCfg types.PartitionConfig

	// streamsMu guards streams, which stays open until Shutdown closes it.
	streamsMu sync.Mutex
	streams   *redirect.Streams

	sigCh chan os.Signal
}

// Manager fulfills the interception layer's coordinator contract.
var _ intercept.Coordinator = (*Manager)(nil)

// NewManager creates a Manager with the given configuration and
// communicator runtime.
//
// Parameters:
//   - cfg: the manager configuration. Nil means DefaultConfig().
//   - rt: the underlying communicator runtime. Must not be nil.
//   - opts: optional settings such as WithLogger and WithExitFunc.
//
// Returns:
//   - *Manager: the created manager in the uninitialized state.
//   - error: an error if the configuration is invalid or rt is nil.
func NewManager(cfg *Config, rt comm.Runtime, opts ...Option) (*Manager, error) {
	if rt == nil {
		return nil, ErrRuntimeRequired
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	options := &managerOptions{
		logger:   logger.NewNop(),
		exitFunc: os.Exit,
	}
	for _, opt := range opts {
		opt(options)
	}

	m := &Manager{
		cfg:      *cfg,
		rt:       rt,
		logger:   options.logger,
		exitFunc: options.exitFunc,
	}
	m.layer = intercept.New(rt, m)
	m.state.Store(int32(types.StateUninitialized))
	return m, nil
}

// Runtime returns the interposed runtime to hand to hosted code. All
// handle-carrying operations issued through it are rescoped onto the
// process's partition.
func (m *Manager) Runtime() comm.Runtime {
	return m.layer
}

// State returns the current lifecycle state of the manager.
func (m *Manager) State() types.State {
	return types.State(m.state.Load())
}

// PartitionConfig returns the rank record resolved during Init. The zero
// value is returned before Init or when initialization was bypassed.
func (m *Manager) PartitionConfig() types.PartitionConfig {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rankCfg
}

// Init performs wrapped initialization:
//
//  1. initializes the underlying runtime,
//  2. resolves this rank's record from the rank file,
//  3. applies the record's working directory and environment overrides,
//  4. splits the job-wide context by the record's color, and
//  5. sets up output redirection and signal handling when configured.
//
// With BypassInit set only step 1 runs and the manager stays inert.
//
// A failure in steps 2-5 is unrecoverable for a partitioned job: every
// process must agree on the split. The error is logged and the exit
// function is invoked with a non-zero code before the error is returned.
func (m *Manager) Init(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.State() != types.StateUninitialized {
		return ErrAlreadyInitialized
	}
	m.transitionState(types.StateUninitialized, types.StateInitializing)

	if err := m.rt.Init(ctx); err != nil {
		return m.fatal(fmt.Errorf("%w: init: %w", ErrCommunicator, err))
	}
	m.world = m.rt.World()

	if m.cfg.BypassInit {
		m.logger.Info("initialization bypassed, running unpartitioned")
		m.transitionState(types.StateInitializing, types.StateActive)
		return nil
	}

	rank, err := m.rt.Rank(m.world)
	if err != nil {
		return m.fatal(fmt.Errorf("%w: rank query: %w", ErrCommunicator, err))
	}

	logical := rank
	if override, ok, err := m.cfg.rankOverride(); err != nil {
		return m.fatal(err)
	} else if ok {
		logical = override
		m.logger.Debug("resolving configuration for overridden rank", "rank", rank, "logicalRank", logical)
	}

	rankCfg, err := rankfile.Resolve(m.cfg.RankFile, logical)
	if err != nil {
		return m.fatal(fmt.Errorf("%w: %w", ErrConfiguration, err))
	}
	if err := rankfile.Apply(rankCfg); err != nil {
		return m.fatal(fmt.Errorf("%w: %w", ErrConfiguration, err))
	}
	if m.cfg.UnsetPreload {
		if err := ScrubExecEnv(); err != nil {
			m.logger.Warn("failed to scrub preload variable", "error", err)
		}
	}

	// The global rank as split key preserves relative ordering inside
	// each partition.
	part, err := m.rt.Split(m.world, rankCfg.Color, rank)
	if err != nil {
		return m.fatal(fmt.Errorf("%w: split: %w", ErrCommunicator, err))
	}
	m.rankCfg = rankCfg
	m.partition.Store(part)

	if m.cfg.RedirectOutput {
		if err := m.openRedirect(rankCfg); err != nil {
			return m.fatal(fmt.Errorf("%w: %w", ErrRedirection, err))
		}
	}
	m.installHandlers()

	m.transitionState(types.StateInitializing, types.StateActive)
	m.logger.Info("partition active",
		"rank", rank,
		"color", rankCfg.Color,
		"workingDir", rankCfg.WorkingDir,
	)
	return nil
}

// Resolve returns the effective handle for c: the partition context when c
// denotes the job-wide context, c itself otherwise. Identity is decided by
// the runtime's comparison, never by raw handle equality.
func (m *Manager) Resolve(c comm.Comm) comm.Comm {
	part, _ := m.partition.Load().(comm.Comm)
	if part == nil || c == nil {
		return c
	}
	res, err := m.rt.Compare(c, m.world)
	if err != nil || res != comm.Ident {
		return c
	}
	return part
}

// Free releases c. A release of the job-wide context is redirected to this
// process's partition copy; the job-wide context itself is never freed.
// Releasing the partition twice returns ErrPartitionReleased.
func (m *Manager) Free(c comm.Comm) error {
	part, _ := m.partition.Load().(comm.Comm)
	if part != nil && c != nil {
		res, err := m.rt.Compare(c, m.world)
		if err != nil {
			return fmt.Errorf("%w: compare: %w", ErrCommunicator, err)
		}
		if res == comm.Ident {
			return m.freePartition()
		}
	}
	if err := m.rt.Free(c); err != nil {
		return fmt.Errorf("%w: free: %w", ErrCommunicator, err)
	}
	return nil
}

func (m *Manager) freePartition() error {
	if !m.partitionFreed.CompareAndSwap(false, true) {
		return ErrPartitionReleased
	}
	part, _ := m.partition.Load().(comm.Comm)
	if err := m.rt.Free(part); err != nil {
		return fmt.Errorf("%w: releasing partition: %w", ErrCommunicator, err)
	}
	// Output streams stay redirected until shutdown; the hosted application
	// may keep writing after it releases the handle.
	return nil
}

// Finalize performs wrapped finalization for the hosted application. With
// BypassFinalize set it is a no-op; shutdown then happens when the
// embedder calls Shutdown (or via Run).
func (m *Manager) Finalize() error {
	if m.cfg.BypassFinalize {
		m.logger.Debug("finalization bypassed")
		return nil
	}
	return m.Shutdown()
}

// Shutdown releases the partition if still held, finalizes the underlying
// runtime exactly once, and restores redirected output. It is idempotent;
// calling it on an uninitialized manager returns ErrNotInitialized.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	switch m.State() {
	case types.StateFinalized:
		return nil
	case types.StateUninitialized:
		return ErrNotInitialized
	}
	m.transitionState(m.State(), types.StateFinalizing)

	var firstErr error
	if part, _ := m.partition.Load().(comm.Comm); part != nil {
		if err := m.freePartition(); err != nil && firstErr == nil {
			// An earlier explicit release is the expected case here.
			if !errors.Is(err, ErrPartitionReleased) {
				firstErr = err
			}
		}
	}
	m.stopHandlers()

	if err := m.rt.Finalize(); err != nil {
		m.logger.Error("runtime finalization failed", "error", err)
		if firstErr == nil {
			firstErr = fmt.Errorf("%w: finalize: %w", ErrCommunicator, err)
		}
	}
	m.closeRedirect()

	m.transitionState(types.StateFinalizing, types.StateFinalized)
	m.logger.Info("manager finalized")
	return firstErr
}

// Run executes the hosted application body under the manager's failure
// policy and returns the process exit code to pass to os.Exit.
//
// A panic in fn is treated like a fatal signal: the job context is drained
// so peers in other partitions do not hang, and the process reports
// success so the shared launcher does not abort them. A non-zero return
// from fn is suppressed the same way unless the policy's
// AbortOnNonZeroExit propagates it.
func (m *Manager) Run(fn func() int) (code int) {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Error("hosted application crashed", "panic", r)
			m.drain()
			if m.cfg.Policy.PauseInsteadOfExit {
				m.pause()
			}
			code = 0
		}
	}()

	code = fn()

	if err := m.Shutdown(); err != nil {
		m.logger.Warn("shutdown after run reported an error", "error", err)
	}
	if code != 0 {
		if m.cfg.Policy.AbortOnNonZeroExit {
			m.logger.Error("hosted application exited non-zero", "code", code)
			return code
		}
		m.logger.Warn("suppressing non-zero exit of hosted application", "code", code)
		return 0
	}
	return 0
}

// fatal logs err, terminates via the exit function, and returns err for
// exit functions that do not terminate.
func (m *Manager) fatal(err error) error {
	m.logger.Error("unrecoverable initialization failure", "error", err)
	m.exitFunc(1)
	return err
}

// drain releases this process's hold on the job context after a fatal
// event. Best effort: finalization after a crash is outside the underlying
// runtime's guarantees, but skipping it leaves peers hanging in
// outstanding collectives.
func (m *Manager) drain() {
	defer func() {
		if r := recover(); r != nil {
			m.logger.Warn("drain panicked", "panic", r)
		}
	}()
	if err := m.Shutdown(); err != nil {
		m.logger.Warn("drain finalization failed", "error", err)
	}
}

// pause suspends the process indefinitely so an operator can attach a
// debugger to the failed rank.
func (m *Manager) pause() {
	m.logger.Error("pausing failed process for inspection", "pid", os.Getpid())
	select {}
}

func (m *Manager) openRedirect(rankCfg types.PartitionConfig) error {
	jobID := m.cfg.JobID
	if jobID == "" {
		jobID = uuid.NewString()[:8]
		m.logger.Warn("no job id supplied, redirect files use a generated one", "jobId", jobID)
	}
	streams, err := redirect.Open(m.cfg.RedirectDir, jobID, rankCfg.Color)
	if err != nil {
		return err
	}
	if err := streams.Apply(); err != nil {
		streams.Close() //nolint:errcheck
		return err
	}
	m.streamsMu.Lock()
	m.streams = streams
	m.streamsMu.Unlock()
	m.logger.Debug("output redirected", "jobId", jobID, "color", rankCfg.Color)
	return nil
}

func (m *Manager) closeRedirect() {
	m.streamsMu.Lock()
	defer m.streamsMu.Unlock()
	if m.streams == nil {
		return
	}
	if err := m.streams.Close(); err != nil {
		m.logger.Warn("failed to restore redirected output", "error", err)
	}
	m.streams = nil
}

// transitionState moves the lifecycle state machine from one state to
// another, logging a warning for transitions outside the expected order.
func (m *Manager) transitionState(from, to types.State) {
	validTransitions := map[types.State][]types.State{
		types.StateUninitialized: {types.StateInitializing},
		types.StateInitializing:  {types.StateActive, types.StateFinalizing},
		types.StateActive:        {types.StateFinalizing},
		types.StateFinalizing:    {types.StateFinalized},
		types.StateFinalized:     {},
	}

	valid := false
	for _, s := range validTransitions[from] {
		if s == to {
			valid = true
			break
		}
	}
	if !valid {
		m.logger.Warn("invalid state transition", "from", from.String(), "to", to.String())
	}
	m.state.Store(int32(to))
	m.logger.Debug("state transition", "from", from.String(), "to", to.String())
}
