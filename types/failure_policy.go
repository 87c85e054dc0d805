package types

// FailurePolicy controls how the lifecycle layer reacts to crashes, aborts,
// and abnormal exits of the hosted application.
//
// The policy is resolved once at startup from the environment (or a config
// file) and is immutable afterward.
type FailurePolicy struct {
	// HandleSegv installs a handler for the fatal memory-access signal.
	HandleSegv bool `yaml:"handleSegv" envconfig:"HANDLE_SEGV"`

	// HandleAbort installs a handler for the abnormal-termination signal.
	HandleAbort bool `yaml:"handleAbort" envconfig:"HANDLE_ABRT"`

	// PauseInsteadOfExit suspends the process indefinitely after a handled
	// fatal signal instead of exiting, to allow external attachment.
	PauseInsteadOfExit bool `yaml:"pauseInsteadOfExit" envconfig:"PAUSE_ON_FATAL"`

	// AbortOnNonZeroExit propagates the hosted application's non-zero exit
	// status, letting the shared launcher abort the whole allocation. When
	// false the layer finalizes cleanly and exits zero regardless.
	AbortOnNonZeroExit bool `yaml:"abortOnNonZeroExit" envconfig:"ABORT_ON_EXIT"`

	// UseSignalDefaultAfterHandling restores the default signal disposition
	// after the handler's drain and re-raises the signal, so the OS-level
	// failure mode (core dump, termination status) is preserved.
	UseSignalDefaultAfterHandling bool `yaml:"useSignalDefault" envconfig:"SIG_DFL"`
}

// DefaultFailurePolicy returns the policy used when nothing overrides it:
// fatal signals are handled and drained, and a failing partition exits
// zero so it cannot take the rest of the job down with it.
func DefaultFailurePolicy() FailurePolicy {
	return FailurePolicy{
		HandleSegv:  true,
		HandleAbort: true,
	}
}
