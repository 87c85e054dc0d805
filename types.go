package wraprun

import "github.com/olcf/wraprun/types"

// Type aliases for commonly used types from the types package.
// These aliases allow users to use wraprun.State instead of types.State, etc.
type (
	// State represents the lifecycle state of a Manager.
	State = types.State

	// PartitionConfig is the per-rank record resolved from the rank file.
	PartitionConfig = types.PartitionConfig

	// EnvVar is a single environment override carried by a PartitionConfig.
	EnvVar = types.EnvVar

	// FailurePolicy controls how fatal signals and non-zero exits of the
	// hosted application are handled.
	FailurePolicy = types.FailurePolicy

	// Logger is the logging interface used throughout the library.
	Logger = types.Logger
)

// Re-exported state constants.
const (
	StateUninitialized = types.StateUninitialized
	StateInitializing  = types.StateInitializing
	StateActive        = types.StateActive
	StateFinalizing    = types.StateFinalizing
	StateFinalized     = types.StateFinalized
)
