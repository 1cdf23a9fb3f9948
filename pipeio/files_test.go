package pipeio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func touch(t *testing.T, dir string, names ...string) {
	t.Helper()
	for _, name := range names {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, nil, 0o644))
	}
}

// observe routes the global logger into memory for the test.
func observe(t *testing.T) *observer.ObservedLogs {
	t.Helper()
	core, logs := observer.New(zapcore.DebugLevel)
	t.Cleanup(zap.ReplaceGlobals(zap.New(core)))
	return logs
}

func TestEnsureDir(t *testing.T) {
	d := filepath.Join(t.TempDir(), "a", "b", "c")
	require.NoError(t, EnsureDir(d))
	info, err := os.Stat(d)
	require.NoError(t, err)
	assert.True(t, info.IsDir())

	require.NoError(t, EnsureDir(d), "second call is a no-op")
}

func TestEnsureDirOverFile(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "file")

	for _, p := range []string{filepath.Join(dir, "file"), filepath.Join(dir, "file", "sub")} {
		err := EnsureDir(p)
		var ioErr *IOError
		require.ErrorAs(t, err, &ioErr, p)
		assert.Equal(t, "mkdir", ioErr.Op)
		assert.Equal(t, p, ioErr.Path)
	}
}

func TestEnsureDirErrorMessage(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "file")
	p := filepath.Join(dir, "file", "sub")

	err := EnsureDir(p)
	require.Error(t, err)
	assert.Equal(t, "mkdir "+p+": not a directory", err.Error())
	assert.ErrorIs(t, err, syscall.ENOTDIR)
}

func TestFindFiles(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "c.txt", "a.txt", "b.csv")

	got, err := FindFiles("*.txt", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.txt"), filepath.Join(dir, "c.txt")}, got)
}

func TestFindFilesPatterns(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir,
		"a.csv", "b.csv", "x1.dat", "x2.dat", "xy.dat",
		"sub/c.csv", "sub/deep/d.csv", "sub/e.txt",
	)
	require.NoError(t, os.Mkdir(filepath.Join(dir, "dir.csv"), 0o755))

	tests := []struct {
		pattern string
		want    []string
	}{
		{"*.csv", []string{"a.csv", "b.csv"}},
		{"**/*.csv", []string{"a.csv", "b.csv", "sub/c.csv", "sub/deep/d.csv"}},
		{"sub/*", []string{"sub/c.csv", "sub/e.txt"}},
		{"x?.dat", []string{"x1.dat", "x2.dat", "xy.dat"}},
		{"x[0-9].dat", []string{"x1.dat", "x2.dat"}},
		{"{a,b}.csv", []string{"a.csv", "b.csv"}},
		{"*.parquet", []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.pattern, func(t *testing.T) {
			got, err := FindFiles(tt.pattern, dir)
			require.NoError(t, err)
			want := make([]string, len(tt.want))
			for i, rel := range tt.want {
				want[i] = filepath.Join(dir, filepath.FromSlash(rel))
			}
			assert.Equal(t, want, got)
		})
	}
}

func TestFindFilesUnreadableDir(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permissions are not enforced for root")
	}
	dir := t.TempDir()
	touch(t, dir, "a.txt", "locked/b.txt")
	locked := filepath.Join(dir, "locked")
	require.NoError(t, os.Chmod(locked, 0))
	t.Cleanup(func() { os.Chmod(locked, 0o755) })

	for _, pattern := range []string{"*.txt", "**/*.txt"} {
		got, err := FindFiles(pattern, dir)
		require.NoError(t, err, pattern)
		assert.Equal(t, []string{filepath.Join(dir, "a.txt")}, got, pattern)
	}
}

func TestFindFilesSymlinks(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "real/a.csv")
	require.NoError(t, os.Symlink(filepath.Join(dir, "real", "a.csv"), filepath.Join(dir, "link.csv")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "missing.csv"), filepath.Join(dir, "dangling.csv")))
	require.NoError(t, os.Symlink(filepath.Join(dir, "real"), filepath.Join(dir, "dir.csv")))

	got, err := FindFiles("*.csv", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "link.csv")}, got)

	got, err = FindFiles("**/*.csv", dir)
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "link.csv"), filepath.Join(dir, "real", "a.csv")}, got)
}

func TestFindFilesErrors(t *testing.T) {
	dir := t.TempDir()
	touch(t, dir, "file")

	missing := filepath.Join(dir, "missing")
	_, err := FindFiles("*", missing)
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, missing, nf.Path)
	assert.ErrorIs(t, err, fs.ErrNotExist)

	_, err = FindFiles("*", filepath.Join(dir, "file"))
	var ioErr *IOError
	assert.ErrorAs(t, err, &ioErr)

	_, err = FindFiles("[", dir)
	assert.ErrorIs(t, err, ErrBadPattern)
	assert.False(t, errors.As(err, &nf))
}

func TestFindFilesLogs(t *testing.T) {
	logs := observe(t)
	dir := t.TempDir()
	touch(t, dir, "a.txt")

	_, err := FindFiles("*.txt", dir)
	require.NoError(t, err)

	entries := logs.FilterMessage("found files to import").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "pipeio", entries[0].LoggerName)
	assert.EqualValues(t, 1, entries[0].ContextMap()["count"])
	assert.Equal(t, dir, entries[0].ContextMap()["dir"])
}
