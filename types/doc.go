// Package types provides core type definitions and interfaces for the
// wraprun library.
//
// This package contains shared types used across multiple packages. Keeping
// them in a separate package avoids import cycles between the main wraprun
// package and its internal implementations.
//
// Key types:
//   - State: process lifecycle state within the wraprun layer
//   - PartitionConfig: per-rank partition parameters from the rank file
//   - FailurePolicy: signal/exit coordination toggles
//   - Logger: structured logging interface
package types
