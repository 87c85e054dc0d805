package redirect

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	t.Run("creates deterministically named files", func(t *testing.T) {
		dir := t.TempDir()

		s, err := Open(dir, "job123", 4)
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })

		require.Equal(t, filepath.Join(dir, "job123_w_4.out"), s.Out.Name())
		require.Equal(t, filepath.Join(dir, "job123_w_4.err"), s.Err.Name())
		require.FileExists(t, filepath.Join(dir, "job123_w_4.out"))
		require.FileExists(t, filepath.Join(dir, "job123_w_4.err"))
	})

	t.Run("appends to existing files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "j_w_0.out")
		require.NoError(t, os.WriteFile(path, []byte("earlier\n"), 0o644))

		s, err := Open(dir, "j", 0)
		require.NoError(t, err)
		_, err = s.Out.WriteString("later\n")
		require.NoError(t, err)
		require.NoError(t, s.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		require.Equal(t, "earlier\nlater\n", string(data))
	})

	t.Run("unwritable directory", func(t *testing.T) {
		_, err := Open(filepath.Join(t.TempDir(), "absent"), "j", 0)
		require.Error(t, err)
	})
}

func TestApplyAndClose(t *testing.T) {
	dir := t.TempDir()
	s, err := Open(dir, "cap", 1)
	require.NoError(t, err)

	origStdout, origStderr := os.Stdout, os.Stderr
	require.NoError(t, s.Apply())

	// The process-level streams now point at the partition files.
	require.Equal(t, s.Out, os.Stdout)
	require.Equal(t, s.Err, os.Stderr)

	_, err = os.Stdout.WriteString("captured out\n")
	require.NoError(t, err)
	_, err = os.Stderr.WriteString("captured err\n")
	require.NoError(t, err)

	require.NoError(t, s.Close())

	// Originals restored.
	require.Equal(t, origStdout, os.Stdout)
	require.Equal(t, origStderr, os.Stderr)

	out, err := os.ReadFile(filepath.Join(dir, "cap_w_1.out"))
	require.NoError(t, err)
	require.Equal(t, "captured out\n", string(out))

	errData, err := os.ReadFile(filepath.Join(dir, "cap_w_1.err"))
	require.NoError(t, err)
	require.Equal(t, "captured err\n", string(errData))
}

func TestCloseWithoutApply(t *testing.T) {
	s, err := Open(t.TempDir(), "noapply", 0)
	require.NoError(t, err)

	// Close without Apply must not disturb the process streams.
	origStdout := os.Stdout
	require.NoError(t, s.Close())
	require.Equal(t, origStdout, os.Stdout)
}
