package types

import (
	"fmt"
	"strings"
)

// EnvVar is one ordered key=value environment override from the rank file.
type EnvVar struct {
	Key   string
	Value string
}

// String returns the key=value form of the override.
func (v EnvVar) String() string {
	return v.Key + "=" + v.Value
}

// PartitionConfig holds the per-rank partition parameters resolved from the
// shared rank file at startup.
//
// Two ranks belong to the same partition exactly when their Color values are
// equal. The record is resolved once per process and never changes.
type PartitionConfig struct {
	// Rank is the logical rank the record was resolved for. Normally the
	// process's own job-wide rank; differs under proxy resolution.
	Rank int

	// Color groups ranks into partitions.
	Color int

	// WorkingDir is the directory the process changes into before the
	// hosted application runs.
	WorkingDir string

	// EnvOverrides are applied to the process environment in order.
	EnvOverrides []EnvVar
}

// String returns a one-line description of the record for diagnostics.
func (c PartitionConfig) String() string {
	if len(c.EnvOverrides) == 0 {
		return fmt.Sprintf("rank %d color %d wd %s", c.Rank, c.Color, c.WorkingDir)
	}

	pairs := make([]string, len(c.EnvOverrides))
	for i, v := range c.EnvOverrides {
		pairs[i] = v.String()
	}

	return fmt.Sprintf("rank %d color %d wd %s env %s", c.Rank, c.Color, c.WorkingDir, strings.Join(pairs, ";"))
}
