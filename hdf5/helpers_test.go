package hdf5

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

// newFile creates an empty file in a temporary directory.
func newFile(t *testing.T, opts ...FileOption) *File {
	t.Helper()
	f, err := Create(filepath.Join(t.TempDir(), "test.h5"), opts...)
	require.NoError(t, err)
	t.Cleanup(func() { f.Close() })
	return f
}

// reopen closes f and opens it again read-only.
func reopen(t *testing.T, f *File) *File {
	t.Helper()
	require.NoError(t, f.Close())
	r, err := Open(f.Path())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

// reopenRW closes f and opens it again for writing.
func reopenRW(t *testing.T, f *File) *File {
	t.Helper()
	require.NoError(t, f.Close())
	r, err := OpenReadWrite(f.Path())
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}
