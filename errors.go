package wraprun

import "errors"

var (
	// ErrInvalidConfig indicates the manager configuration failed validation.
	ErrInvalidConfig = errors.New("invalid config")

	// ErrRuntimeRequired indicates no communicator runtime was supplied.
	ErrRuntimeRequired = errors.New("communicator runtime is required")

	// ErrAlreadyInitialized indicates Init was called more than once.
	ErrAlreadyInitialized = errors.New("manager already initialized")

	// ErrNotInitialized indicates an operation that requires an initialized
	// manager was called before Init.
	ErrNotInitialized = errors.New("manager not initialized")

	// ErrPartitionReleased indicates the partition context was already
	// released by an earlier free request.
	ErrPartitionReleased = errors.New("partition context already released")

	// ErrConfiguration wraps failures while resolving or applying the
	// rank-indexed partition configuration.
	ErrConfiguration = errors.New("configuration error")

	// ErrCommunicator wraps failures reported by the underlying
	// communicator runtime.
	ErrCommunicator = errors.New("communicator error")

	// ErrRedirection wraps failures while setting up per-partition output
	// redirection.
	ErrRedirection = errors.New("output redirection error")
)
