// Package rankfile resolves a process's partition parameters from the shared
// rank-indexed configuration file written by the launcher front end.
//
// The file is line oriented, one record per rank (0-indexed), with three
// whitespace-separated fields:
//
//	<color:int> <workingDirectory:string> <envOverrides:string>
//
// envOverrides is a ;-separated list of key=value pairs; an empty list is
// written as a pair of single or double quotes.
//
// Resolution failures are unrecoverable by design: they happen before any
// partition context exists, so there is no channel to coordinate a graceful
// abort with peer ranks. Callers terminate the process with a diagnostic and
// non-zero status; peers that already resolved successfully may block in a
// later collective, which is a known boundary condition of this layer.
package rankfile

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/olcf/wraprun/types"
)

// Sentinel errors returned by Resolve.
var (
	// ErrMissingFile is returned when the rank file cannot be opened.
	ErrMissingFile = errors.New("rank file not readable")

	// ErrShortFile is returned when the rank file has fewer lines than the
	// requested rank.
	ErrShortFile = errors.New("rank file has no record for rank")

	// ErrMalformedRecord is returned when a record does not have exactly
	// three fields.
	ErrMalformedRecord = errors.New("malformed rank file record")

	// ErrMalformedEnv is returned when an envOverrides entry is not a
	// key=value pair.
	ErrMalformedEnv = errors.New("malformed environment override")
)

// fieldsPerRecord is fixed by the launcher front end that writes the file.
const fieldsPerRecord = 3

// Resolve reads the record for the given rank and parses it into a
// PartitionConfig.
//
// Exactly line `rank` (0-indexed) is consulted; a missing or malformed line
// is an error, never a silent default.
func Resolve(path string, rank int) (types.PartitionConfig, error) {
	var cfg types.PartitionConfig

	if rank < 0 {
		return cfg, fmt.Errorf("%w %d", ErrShortFile, rank)
	}

	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrMissingFile, path, err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	line := ""
	found := false
	for i := 0; scanner.Scan(); i++ {
		if i == rank {
			line = scanner.Text()
			found = true

			break
		}
	}
	if err := scanner.Err(); err != nil {
		return cfg, fmt.Errorf("%w: %s: %w", ErrMissingFile, path, err)
	}
	if !found {
		return cfg, fmt.Errorf("%w %d: %s", ErrShortFile, rank, path)
	}

	return parseRecord(line, rank)
}

func parseRecord(line string, rank int) (types.PartitionConfig, error) {
	var cfg types.PartitionConfig

	fields := strings.Fields(line)
	if len(fields) != fieldsPerRecord {
		return cfg, fmt.Errorf("%w: rank %d: %d fields, want %d", ErrMalformedRecord, rank, len(fields), fieldsPerRecord)
	}

	color, err := strconv.Atoi(fields[0])
	if err != nil {
		return cfg, fmt.Errorf("%w: rank %d: color %q: %w", ErrMalformedRecord, rank, fields[0], err)
	}

	overrides, err := parseEnv(fields[2], rank)
	if err != nil {
		return cfg, err
	}

	cfg.Rank = rank
	cfg.Color = color
	cfg.WorkingDir = fields[1]
	cfg.EnvOverrides = overrides

	return cfg, nil
}

// parseEnv splits a ;-separated key=value list. The launcher writes a pair
// of quotes for an empty list.
func parseEnv(s string, rank int) ([]types.EnvVar, error) {
	if s == "''" || s == `""` || s == "" {
		return nil, nil
	}

	parts := strings.Split(s, ";")
	overrides := make([]types.EnvVar, 0, len(parts))
	for _, part := range parts {
		if part == "" {
			continue
		}
		key, value, ok := strings.Cut(part, "=")
		if !ok || key == "" {
			return nil, fmt.Errorf("%w: rank %d: %q", ErrMalformedEnv, rank, part)
		}
		overrides = append(overrides, types.EnvVar{Key: key, Value: value})
	}

	return overrides, nil
}

// Apply moves the process into the record's working directory and applies
// its environment overrides in order.
func Apply(cfg types.PartitionConfig) error {
	if cfg.WorkingDir != "" {
		if err := os.Chdir(cfg.WorkingDir); err != nil {
			return fmt.Errorf("changing to working directory %s: %w", cfg.WorkingDir, err)
		}
	}

	for _, v := range cfg.EnvOverrides {
		if err := os.Setenv(v.Key, v.Value); err != nil {
			return fmt.Errorf("applying override %s: %w", v.Key, err)
		}
	}

	return nil
}
