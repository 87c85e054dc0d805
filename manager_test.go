package wraprun

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/olcf/wraprun/comm"
	"github.com/olcf/wraprun/commtest"
	wraptest "github.com/olcf/wraprun/testing"
	"github.com/olcf/wraprun/types"
)

// writeRankFile writes one record per rank, all sharing dir as working
// directory, with the given colors and per-color env overrides.
func writeRankFile(t *testing.T, dir string, colors []int, env map[int]string) string {
	t.Helper()
	contents := ""
	for _, color := range colors {
		overrides := "''"
		if env != nil && env[color] != "" {
			overrides = env[color]
		}
		contents += fmt.Sprintf("%d %s %s\n", color, dir, overrides)
	}
	path := filepath.Join(dir, "ranks")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func preserveWorkingDir(t *testing.T) {
	t.Helper()
	orig, err := os.Getwd()
	require.NoError(t, err)
	t.Cleanup(func() { _ = os.Chdir(orig) })
}

// startPartitioned brings up one manager per rank and initializes them
// concurrently, since the split underneath is collective.
func startPartitioned(t *testing.T, f *commtest.Fabric, colors []int, mutate func(rank int, cfg *Config), opts ...Option) []*Manager {
	t.Helper()
	preserveWorkingDir(t)

	rankFile := writeRankFile(t, t.TempDir(), colors, nil)
	managers := make([]*Manager, f.Size())
	for i := range managers {
		cfg := DefaultConfig()
		cfg.RankFile = rankFile
		if mutate != nil {
			mutate(i, cfg)
		}
		mgr, err := NewManager(cfg, f.Proc(i), append([]Option{WithLogger(wraptest.NewTestLogger(t))}, opts...)...)
		require.NoError(t, err)
		managers[i] = mgr
	}

	errs := make([]error, f.Size())
	var wg sync.WaitGroup
	for i, mgr := range managers {
		wg.Add(1)
		go func(i int, mgr *Manager) {
			defer wg.Done()
			errs[i] = mgr.Init(context.Background())
		}(i, mgr)
	}
	wg.Wait()
	for i, err := range errs {
		require.NoError(t, err, "rank %d", i)
	}
	return managers
}

func TestNewManager(t *testing.T) {
	t.Run("requires a runtime", func(t *testing.T) {
		_, err := NewManager(DefaultConfig(), nil)
		require.ErrorIs(t, err, ErrRuntimeRequired)
	})

	t.Run("validates the configuration", func(t *testing.T) {
		f := commtest.NewFabric(1)
		_, err := NewManager(DefaultConfig(), f.Proc(0))
		require.ErrorIs(t, err, ErrInvalidConfig)
	})

	t.Run("starts uninitialized", func(t *testing.T) {
		f := commtest.NewFabric(1)
		cfg := DefaultConfig()
		cfg.RankFile = "/tmp/ranks"

		mgr, err := NewManager(cfg, f.Proc(0))
		require.NoError(t, err)
		require.Equal(t, StateUninitialized, mgr.State())
	})
}

func TestManagerInit(t *testing.T) {
	t.Run("splits ranks into partitions by color", func(t *testing.T) {
		f := commtest.NewFabric(3)
		managers := startPartitioned(t, f, []int{0, 0, 1}, nil)

		wantSizes := []int{2, 2, 1}
		wantRanks := []int{0, 1, 0}
		for i, mgr := range managers {
			require.Equal(t, StateActive, mgr.State(), "rank %d", i)

			rt := mgr.Runtime()
			size, err := rt.Size(rt.World())
			require.NoError(t, err)
			require.Equal(t, wantSizes[i], size, "rank %d", i)

			rank, err := rt.Rank(rt.World())
			require.NoError(t, err)
			require.Equal(t, wantRanks[i], rank, "rank %d", i)
		}
	})

	t.Run("job-wide collectives stay inside the partition", func(t *testing.T) {
		f := commtest.NewFabric(4)
		managers := startPartitioned(t, f, []int{0, 0, 1, 1}, nil)

		sums := make([]int64, 4)
		errs := make([]error, 4)
		var wg sync.WaitGroup
		for i, mgr := range managers {
			wg.Add(1)
			go func(i int, mgr *Manager) {
				defer wg.Done()
				rt := mgr.Runtime()
				sums[i], errs[i] = comm.Allreduce(rt, int64(i), comm.OpSum, rt.World())
			}(i, mgr)
		}
		wg.Wait()

		for i, err := range errs {
			require.NoError(t, err, "rank %d", i)
		}
		// Partition {0,1} sums to 1; partition {2,3} sums to 5. A job-wide
		// reduction would have produced 6 everywhere.
		require.Equal(t, []int64{1, 1, 5, 5}, sums)
	})

	t.Run("records the resolved partition parameters", func(t *testing.T) {
		f := commtest.NewFabric(2)
		managers := startPartitioned(t, f, []int{0, 3}, nil)

		require.Equal(t, 0, managers[0].PartitionConfig().Color)
		require.Equal(t, 3, managers[1].PartitionConfig().Color)
		require.Equal(t, 1, managers[1].PartitionConfig().Rank)
	})

	t.Run("applies env overrides from the rank record", func(t *testing.T) {
		t.Cleanup(func() {
			_ = os.Unsetenv("WRAPRUN_MGR_A")
			_ = os.Unsetenv("WRAPRUN_MGR_B")
		})

		preserveWorkingDir(t)
		dir := t.TempDir()
		rankFile := writeRankFile(t, dir, []int{0, 1}, map[int]string{
			0: "WRAPRUN_MGR_A=alpha",
			1: "WRAPRUN_MGR_B=beta",
		})

		f2 := commtest.NewFabric(2)
		errs := make([]error, 2)
		var wg sync.WaitGroup
		for i := 0; i < 2; i++ {
			cfg := DefaultConfig()
			cfg.RankFile = rankFile
			mgr, err := NewManager(cfg, f2.Proc(i), WithLogger(wraptest.NewTestLogger(t)))
			require.NoError(t, err)
			wg.Add(1)
			go func(i int, mgr *Manager) {
				defer wg.Done()
				errs[i] = mgr.Init(context.Background())
			}(i, mgr)
		}
		wg.Wait()
		require.NoError(t, errs[0])
		require.NoError(t, errs[1])

		require.Equal(t, "alpha", os.Getenv("WRAPRUN_MGR_A"))
		require.Equal(t, "beta", os.Getenv("WRAPRUN_MGR_B"))
	})

	t.Run("double init fails", func(t *testing.T) {
		f := commtest.NewFabric(1)
		managers := startPartitioned(t, f, []int{0}, nil)

		err := managers[0].Init(context.Background())
		require.ErrorIs(t, err, ErrAlreadyInitialized)
	})

	t.Run("rank override resolves another record", func(t *testing.T) {
		f := commtest.NewFabric(2)
		managers := startPartitioned(t, f, []int{0, 1}, func(rank int, cfg *Config) {
			if rank == 1 {
				// Rank 1 adopts rank 0's record and lands in color 0.
				cfg.RankOverride = "0"
			}
		})

		require.Equal(t, 0, managers[1].PartitionConfig().Color)
		rt := managers[1].Runtime()
		size, err := rt.Size(rt.World())
		require.NoError(t, err)
		require.Equal(t, 2, size)
	})
}

func TestManagerInitFailure(t *testing.T) {
	t.Run("missing rank file terminates the process", func(t *testing.T) {
		f := commtest.NewFabric(1)
		cfg := DefaultConfig()
		cfg.RankFile = filepath.Join(t.TempDir(), "absent")

		var exitCode int
		exited := false
		mgr, err := NewManager(cfg, f.Proc(0),
			WithLogger(wraptest.NewTestLogger(t)),
			WithExitFunc(func(code int) { exitCode, exited = code, true }),
		)
		require.NoError(t, err)

		err = mgr.Init(context.Background())
		require.ErrorIs(t, err, ErrConfiguration)
		require.True(t, exited)
		require.Equal(t, 1, exitCode)
	})

	t.Run("rank beyond the file terminates the process", func(t *testing.T) {
		preserveWorkingDir(t)
		f := commtest.NewFabric(1)
		cfg := DefaultConfig()
		cfg.RankFile = writeRankFile(t, t.TempDir(), []int{0}, nil)
		cfg.RankOverride = "9"

		exited := false
		mgr, err := NewManager(cfg, f.Proc(0),
			WithLogger(wraptest.NewTestLogger(t)),
			WithExitFunc(func(int) { exited = true }),
		)
		require.NoError(t, err)

		err = mgr.Init(context.Background())
		require.ErrorIs(t, err, ErrConfiguration)
		require.True(t, exited)
	})
}

func TestManagerResolve(t *testing.T) {
	f := commtest.NewFabric(2)
	managers := startPartitioned(t, f, []int{0, 1}, nil)
	mgr := managers[0]
	proc := f.Proc(0)

	t.Run("job-wide handle maps to the partition", func(t *testing.T) {
		resolved := mgr.Resolve(proc.World())
		require.NotNil(t, resolved)

		// The resolved handle is the partition: size 1, not the job's 2.
		size, err := proc.Size(resolved)
		require.NoError(t, err)
		require.Equal(t, 1, size)
	})

	t.Run("identity is by comparison, not handle value", func(t *testing.T) {
		// Another rank's world handle is a different value but denotes
		// the job-wide context and must rescope all the same.
		foreign := f.Proc(1).World()
		require.Equal(t, mgr.Resolve(proc.World()), mgr.Resolve(foreign))
	})

	t.Run("application-owned handles pass through", func(t *testing.T) {
		sub, err := proc.Split(mgr.Resolve(proc.World()), 0, 0)
		require.NoError(t, err)
		require.Equal(t, sub, mgr.Resolve(sub))
	})

	t.Run("nil passes through", func(t *testing.T) {
		require.Nil(t, mgr.Resolve(nil))
	})
}

func TestManagerFree(t *testing.T) {
	t.Run("freeing the job-wide handle releases the partition once", func(t *testing.T) {
		f := commtest.NewFabric(1)
		managers := startPartitioned(t, f, []int{0}, nil)
		mgr := managers[0]
		world := f.Proc(0).World()

		require.NoError(t, mgr.Free(world))
		require.ErrorIs(t, mgr.Free(world), ErrPartitionReleased)
	})

	t.Run("application-owned handles free normally", func(t *testing.T) {
		f := commtest.NewFabric(1)
		managers := startPartitioned(t, f, []int{0}, nil)
		mgr := managers[0]
		rt := mgr.Runtime()

		sub, err := rt.Split(rt.World(), 5, 0)
		require.NoError(t, err)
		require.NoError(t, rt.Free(sub))

		// The partition itself is still usable afterwards.
		_, err = rt.Size(rt.World())
		require.NoError(t, err)
	})
}

func TestManagerShutdown(t *testing.T) {
	t.Run("is idempotent", func(t *testing.T) {
		f := commtest.NewFabric(1)
		managers := startPartitioned(t, f, []int{0}, nil)
		mgr := managers[0]

		require.NoError(t, mgr.Shutdown())
		require.Equal(t, StateFinalized, mgr.State())
		require.NoError(t, mgr.Shutdown())
	})

	t.Run("before init", func(t *testing.T) {
		f := commtest.NewFabric(1)
		cfg := DefaultConfig()
		cfg.RankFile = "/tmp/ranks"
		mgr, err := NewManager(cfg, f.Proc(0))
		require.NoError(t, err)

		require.ErrorIs(t, mgr.Shutdown(), ErrNotInitialized)
	})

	t.Run("releases an unfreed partition", func(t *testing.T) {
		f := commtest.NewFabric(1)
		managers := startPartitioned(t, f, []int{0}, nil)
		mgr := managers[0]
		part := mgr.Resolve(f.Proc(0).World())

		require.NoError(t, mgr.Shutdown())

		_, err := f.Proc(0).Rank(part)
		require.ErrorIs(t, err, comm.ErrFinalized)
	})

	t.Run("tolerates an already-released partition", func(t *testing.T) {
		f := commtest.NewFabric(1)
		managers := startPartitioned(t, f, []int{0}, nil)
		mgr := managers[0]

		require.NoError(t, mgr.Free(f.Proc(0).World()))
		require.NoError(t, mgr.Shutdown())
	})

	t.Run("stops the signal watcher", func(t *testing.T) {
		// Repeated teardown exercises the handoff between the watcher
		// goroutine and stopHandlers.
		for i := 0; i < 5; i++ {
			f := commtest.NewFabric(1)
			mgr := startPartitioned(t, f, []int{0}, nil)[0]
			require.NotNil(t, mgr.sigCh)
			require.NoError(t, mgr.Shutdown())
			require.Nil(t, mgr.sigCh)
		}
	})
}

func TestManagerFinalizeBypass(t *testing.T) {
	f := commtest.NewFabric(1)
	managers := startPartitioned(t, f, []int{0}, func(_ int, cfg *Config) {
		cfg.BypassFinalize = true
	})
	mgr := managers[0]

	// The hosted application's finalize is swallowed.
	require.NoError(t, mgr.Finalize())
	require.Equal(t, StateActive, mgr.State())

	// The embedder's shutdown still runs.
	require.NoError(t, mgr.Shutdown())
	require.Equal(t, StateFinalized, mgr.State())
}

func TestManagerBypassInit(t *testing.T) {
	f := commtest.NewFabric(2)
	cfg := DefaultConfig()
	cfg.BypassInit = true

	mgr, err := NewManager(cfg, f.Proc(1), WithLogger(wraptest.NewTestLogger(t)))
	require.NoError(t, err)
	require.NoError(t, mgr.Init(context.Background()))
	require.Equal(t, StateActive, mgr.State())

	// No partitioning happened: the world stays the whole job.
	rt := mgr.Runtime()
	size, err := rt.Size(rt.World())
	require.NoError(t, err)
	require.Equal(t, 2, size)
	require.Equal(t, f.Proc(1).World(), mgr.Resolve(f.Proc(1).World()))
	require.Equal(t, types.PartitionConfig{}, mgr.PartitionConfig())
}

func TestManagerRun(t *testing.T) {
	newRunManager := func(t *testing.T, mutate func(cfg *Config)) *Manager {
		f := commtest.NewFabric(1)
		managers := startPartitioned(t, f, []int{0}, func(_ int, cfg *Config) {
			if mutate != nil {
				mutate(cfg)
			}
		})
		return managers[0]
	}

	t.Run("zero exit passes through and shuts down", func(t *testing.T) {
		mgr := newRunManager(t, nil)

		code := mgr.Run(func() int { return 0 })
		require.Equal(t, 0, code)
		require.Equal(t, StateFinalized, mgr.State())
	})

	t.Run("non-zero exit is suppressed by default", func(t *testing.T) {
		mgr := newRunManager(t, nil)

		code := mgr.Run(func() int { return 3 })
		require.Equal(t, 0, code)
	})

	t.Run("non-zero exit propagates under the abort policy", func(t *testing.T) {
		mgr := newRunManager(t, func(cfg *Config) {
			cfg.Policy.AbortOnNonZeroExit = true
		})

		code := mgr.Run(func() int { return 3 })
		require.Equal(t, 3, code)
	})

	t.Run("panic drains and reports success", func(t *testing.T) {
		mgr := newRunManager(t, nil)

		code := mgr.Run(func() int { panic("hosted application blew up") })
		require.Equal(t, 0, code)
		require.Equal(t, StateFinalized, mgr.State())
	})
}

func TestManagerRedirect(t *testing.T) {
	newRedirected := func(t *testing.T, f *commtest.Fabric, colors []int, dir, jobID string) []*Manager {
		t.Helper()
		return startPartitioned(t, f, colors, func(_ int, cfg *Config) {
			cfg.RedirectOutput = true
			cfg.RedirectDir = dir
			cfg.JobID = jobID
		})
	}

	t.Run("captures partition output", func(t *testing.T) {
		f := commtest.NewFabric(1)
		dir := t.TempDir()
		mgr := newRedirected(t, f, []int{2}, dir, "test9")[0]

		_, err := os.Stdout.WriteString("partition stdout\n")
		require.NoError(t, err)
		_, err = os.Stderr.WriteString("partition stderr\n")
		require.NoError(t, err)

		require.NoError(t, mgr.Shutdown())

		out, err := os.ReadFile(filepath.Join(dir, "test9_w_2.out"))
		require.NoError(t, err)
		require.Contains(t, string(out), "partition stdout")

		errOut, err := os.ReadFile(filepath.Join(dir, "test9_w_2.err"))
		require.NoError(t, err)
		require.Contains(t, string(errOut), "partition stderr")
	})

	t.Run("capture continues after the job handle is freed", func(t *testing.T) {
		f := commtest.NewFabric(1)
		dir := t.TempDir()
		mgr := newRedirected(t, f, []int{0}, dir, "freed")[0]

		_, err := os.Stdout.WriteString("before release\n")
		require.NoError(t, err)

		require.NoError(t, mgr.Free(f.Proc(0).World()))

		// Streams stay attached until shutdown.
		_, err = os.Stdout.WriteString("after release\n")
		require.NoError(t, err)

		require.NoError(t, mgr.Shutdown())

		out, err := os.ReadFile(filepath.Join(dir, "freed_w_0.out"))
		require.NoError(t, err)
		require.Contains(t, string(out), "before release")
		require.Contains(t, string(out), "after release")
	})

	t.Run("partitions write distinct files under one job id", func(t *testing.T) {
		f := commtest.NewFabric(2)
		dir := t.TempDir()
		managers := newRedirected(t, f, []int{0, 1}, dir, "twin")

		for _, name := range []string{"twin_w_0.out", "twin_w_0.err", "twin_w_1.out", "twin_w_1.err"} {
			_, err := os.Stat(filepath.Join(dir, name))
			require.NoError(t, err, name)
		}

		// Both ranks retargeted the process streams; whichever applied last
		// owns them now. Writing and shutting down in reverse apply order
		// attributes one line to each partition file.
		last := 0
		if os.Stdout.Name() == filepath.Join(dir, "twin_w_1.out") {
			last = 1
		}
		first := 1 - last

		_, err := fmt.Fprintf(os.Stdout, "line for color %d\n", last)
		require.NoError(t, err)
		require.NoError(t, managers[last].Shutdown())

		_, err = fmt.Fprintf(os.Stdout, "line for color %d\n", first)
		require.NoError(t, err)
		require.NoError(t, managers[first].Shutdown())

		for _, colors := range [][2]int{{last, first}, {first, last}} {
			own, other := colors[0], colors[1]
			out, err := os.ReadFile(filepath.Join(dir, fmt.Sprintf("twin_w_%d.out", own)))
			require.NoError(t, err)
			require.Contains(t, string(out), fmt.Sprintf("line for color %d", own))
			require.NotContains(t, string(out), fmt.Sprintf("line for color %d", other))
		}
	})
}

func TestHandleFatal(t *testing.T) {
	f := commtest.NewFabric(1)
	var exitCode int
	exited := false

	preserveWorkingDir(t)
	rankFile := writeRankFile(t, t.TempDir(), []int{0}, nil)
	cfg := DefaultConfig()
	cfg.RankFile = rankFile
	mgr, err := NewManager(cfg, f.Proc(0),
		WithLogger(wraptest.NewTestLogger(t)),
		WithExitFunc(func(code int) { exitCode, exited = code, true }),
	)
	require.NoError(t, err)
	require.NoError(t, mgr.Init(context.Background()))

	mgr.handleFatal(syscall.SIGSEGV)

	// The drain finalized the job context, and the process reports
	// success so sibling partitions are not torn down.
	require.True(t, exited)
	require.Equal(t, 0, exitCode)
	require.Equal(t, StateFinalized, mgr.State())
}

func TestHandleFatalSparesSiblings(t *testing.T) {
	f := commtest.NewFabric(4)
	var exitCodes []int
	var exitMu sync.Mutex
	managers := startPartitioned(t, f, []int{0, 0, 1, 1}, nil,
		WithExitFunc(func(code int) {
			exitMu.Lock()
			exitCodes = append(exitCodes, code)
			exitMu.Unlock()
		}),
	)

	// One rank of color 0 takes a fatal signal. Only that rank exits, and
	// with success.
	managers[0].handleFatal(syscall.SIGSEGV)
	require.Equal(t, []int{0}, exitCodes)

	// The color-1 partition keeps working: both of its ranks complete a
	// partition collective and shut down without blocking.
	done := make(chan error, 2)
	for _, i := range []int{2, 3} {
		go func(i int) {
			rt := managers[i].Runtime()
			if _, err := comm.Allreduce(rt, 1, comm.OpSum, rt.World()); err != nil {
				done <- err
				return
			}
			done <- managers[i].Shutdown()
		}(i)
	}
	for n := 0; n < 2; n++ {
		select {
		case err := <-done:
			require.NoError(t, err)
		case <-time.After(5 * time.Second):
			t.Fatal("sibling partition blocked after the crash")
		}
	}
	require.Equal(t, StateFinalized, managers[2].State())
	require.Equal(t, StateFinalized, managers[3].State())
}
