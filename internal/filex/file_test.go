package filex

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) func() {
	t.Helper()
	old, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	return func() { _ = os.Chdir(old) }
}

func TestEnsureDir_RelativeResolvesAgainstCWD(t *testing.T) {
	tmp := t.TempDir()
	defer chdir(t, tmp)()

	got, err := EnsureDir("state")
	require.NoError(t, err)

	want, err := filepath.Abs(filepath.Join(tmp, "state"))
	require.NoError(t, err)
	// macOS tempdirs live behind a /private symlink
	wantEval, _ := filepath.EvalSymlinks(want)
	gotEval, _ := filepath.EvalSymlinks(got)
	require.Equal(t, wantEval, gotEval)

	fi, err := os.Stat(got)
	require.NoError(t, err)
	require.True(t, fi.IsDir())

	if runtime.GOOS != "windows" {
		require.Equal(t, os.FileMode(0o700), fi.Mode().Perm()&0o700)
	}
}

func TestEnsureDir_NestedAndIdempotent(t *testing.T) {
	base := filepath.Join(t.TempDir(), "a", "b")

	first, err := EnsureDir(base)
	require.NoError(t, err)
	second, err := EnsureDir(base)
	require.NoError(t, err)
	require.Equal(t, first, second)
}

func TestEnsureDir_FailsIfFileWithSameNameExists(t *testing.T) {
	p := filepath.Join(t.TempDir(), "state")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o600))

	_, err := EnsureDir(p)
	require.Error(t, err)
}

func TestDataFile(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "data")

	p, err := DataFile(dir, "client.db")
	require.NoError(t, err)
	require.Equal(t, filepath.Join(dir, "client.db"), p)

	_, err = os.Stat(dir)
	require.NoError(t, err)
}
