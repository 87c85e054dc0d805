package wraprun

import "github.com/olcf/wraprun/types"

// Option is a function type for configuring a Manager.
type Option func(*managerOptions)

type managerOptions struct {
	logger   types.Logger
	exitFunc func(code int)
}

// WithLogger sets a custom logger for the Manager.
//
// Parameters:
//   - logger: the logger implementation to use.
func WithLogger(logger types.Logger) Option {
	return func(o *managerOptions) {
		o.logger = logger
	}
}

// WithExitFunc replaces the function used to terminate the process on
// fatal errors and handled signals. The default is os.Exit. Embedders
// and tests can install a recording function instead.
//
// Parameters:
//   - fn: the function invoked with the intended process exit code.
func WithExitFunc(fn func(code int)) Option {
	return func(o *managerOptions) {
		o.exitFunc = fn
	}
}
