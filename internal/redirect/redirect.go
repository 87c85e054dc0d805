// Package redirect retargets a process's standard streams to per-partition
// output files so concurrent partitions do not interleave their output.
package redirect

import (
	"fmt"
	"os"
	"path/filepath"
)

// Streams is an open pair of per-partition output files, plus the saved
// original stream state needed to undo an Apply.
type Streams struct {
	// Out receives what would have gone to standard output.
	Out *os.File

	// Err receives what would have gone to standard error.
	Err *os.File

	applied    bool
	prevStdout *os.File
	prevStderr *os.File
	savedOut   int
	savedErr   int
}

// Open creates (or appends to) the target file pair for the given job
// identifier and partition color inside dir. An empty dir means the current
// working directory.
//
// File naming is deterministic: <jobID>_w_<color>.out and .err.
func Open(dir, jobID string, color int) (*Streams, error) {
	base := fmt.Sprintf("%s_w_%d", jobID, color)
	out, err := openAppend(filepath.Join(dir, base+".out"))
	if err != nil {
		return nil, err
	}

	errFile, err := openAppend(filepath.Join(dir, base+".err"))
	if err != nil {
		out.Close()

		return nil, err
	}

	return &Streams{Out: out, Err: errFile, savedOut: -1, savedErr: -1}, nil
}

// Apply retargets the process's standard output and standard error onto the
// open file pair, at both the os.Stdout/os.Stderr level and the file
// descriptor level, so output from exec'd children lands in the files too.
// The previous stream state is saved and restored by Close.
func (s *Streams) Apply() error {
	savedOut, err := dupFd(1)
	if err != nil {
		return fmt.Errorf("saving stdout: %w", err)
	}
	savedErr, err := dupFd(2)
	if err != nil {
		closeFd(savedOut)

		return fmt.Errorf("saving stderr: %w", err)
	}

	if err := dupTo(int(s.Out.Fd()), 1); err != nil {
		closeFd(savedOut)
		closeFd(savedErr)

		return fmt.Errorf("retargeting stdout: %w", err)
	}
	if err := dupTo(int(s.Err.Fd()), 2); err != nil {
		// best effort undo of the stdout retarget
		_ = dupTo(savedOut, 1)
		closeFd(savedOut)
		closeFd(savedErr)

		return fmt.Errorf("retargeting stderr: %w", err)
	}

	s.savedOut = savedOut
	s.savedErr = savedErr
	s.prevStdout = os.Stdout
	s.prevStderr = os.Stderr
	os.Stdout = s.Out
	os.Stderr = s.Err
	s.applied = true

	return nil
}

// Close restores the original streams if Apply was issued and closes both
// target files explicitly. Safe to call once per Streams.
func (s *Streams) Close() error {
	if s.applied {
		os.Stdout = s.prevStdout
		os.Stderr = s.prevStderr
		_ = dupTo(s.savedOut, 1)
		_ = dupTo(s.savedErr, 2)
		closeFd(s.savedOut)
		closeFd(s.savedErr)
		s.applied = false
	}

	outErr := s.Out.Close()
	errErr := s.Err.Close()
	if outErr != nil {
		return outErr
	}

	return errErr
}

func openAppend(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening redirect target %s: %w", path, err)
	}

	return f, nil
}
