package wraprun

import (
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sys/unix"
)

// installHandlers routes the policy-selected fatal signals to the
// manager. Go signal handlers run on a runtime-managed goroutine, so the
// drain can issue runtime calls that would be off-limits in a C-style
// async handler.
func (m *Manager) installHandlers() {
	var sigs []os.Signal
	if m.cfg.Policy.HandleSegv {
		sigs = append(sigs, syscall.SIGSEGV, syscall.SIGBUS)
	}
	if m.cfg.Policy.HandleAbort {
		sigs = append(sigs, syscall.SIGABRT)
	}
	if len(sigs) == 0 {
		return
	}

	m.sigCh = make(chan os.Signal, 1)
	signal.Notify(m.sigCh, sigs...)
	// The watcher ranges over its own reference so stopHandlers can clear
	// the field without racing it; close ends the loop.
	ch := m.sigCh
	go func() {
		for sig := range ch {
			m.handleFatal(sig)
		}
	}()
}

// stopHandlers detaches the signal handlers installed by installHandlers.
func (m *Manager) stopHandlers() {
	if m.sigCh == nil {
		return
	}
	signal.Stop(m.sigCh)
	close(m.sigCh)
	m.sigCh = nil
}

// handleFatal contains a fatal signal to this partition: the job context
// is drained so peers in other partitions are not left hanging, then the
// process terminates per the failure policy.
func (m *Manager) handleFatal(sig os.Signal) {
	m.logger.Error("fatal signal received in hosted application",
		"signal", sig.String(),
		"color", m.rankCfg.Color,
	)
	m.drain()

	switch {
	case m.cfg.Policy.PauseInsteadOfExit:
		m.pause()
	case m.cfg.Policy.UseSignalDefaultAfterHandling:
		m.reraise(sig)
	default:
		// Exiting zero keeps the shared launcher from tearing down the
		// surviving partitions.
		m.exitFunc(0)
	}
}

// reraise restores the default disposition for sig and delivers it again,
// preserving the OS-level failure mode (core dump, wait status).
func (m *Manager) reraise(sig os.Signal) {
	signal.Reset(sig)
	s, ok := sig.(syscall.Signal)
	if !ok {
		m.exitFunc(1)
		return
	}
	if err := unix.Kill(unix.Getpid(), s); err != nil {
		m.logger.Error("failed to re-raise signal", "signal", sig.String(), "error", err)
		m.exitFunc(1)
	}
}
