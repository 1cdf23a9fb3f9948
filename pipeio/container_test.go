package pipeio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5pipe/hdf5"
)

func TestOpenContainerCreatesThenAppends(t *testing.T) {
	p := filepath.Join(t.TempDir(), "out.h5")

	f, err := OpenContainer(p)
	require.NoError(t, err)
	keys, err := f.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)
	_, err = Write(f.Root(), "x", []int32{1, 2, 3})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	f, err = OpenContainer(p)
	require.NoError(t, err)
	assert.True(t, f.IsWritable())
	_, err = Write(f.Root(), "y", []float64{0.5})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	got, err := Read(p)
	require.NoError(t, err)
	assert.Equal(t, []int32{1, 2, 3}, got["x"].Data)
	assert.Equal(t, []float64{0.5}, got["y"].Data)
}

func TestOpenContainerErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := OpenContainer(filepath.Join(dir, "missing", "out.h5"))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)
	assert.Equal(t, filepath.Join(dir, "missing"), nf.Path)

	junk := filepath.Join(dir, "junk.h5")
	require.NoError(t, os.WriteFile(junk, []byte("not a container"), 0o644))
	_, err = OpenContainer(junk)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "open", ioErr.Op)
	assert.ErrorIs(t, err, hdf5.ErrNotHDF5)
}

func TestRequireGroup(t *testing.T) {
	f, err := OpenContainer(filepath.Join(t.TempDir(), "out.h5"))
	require.NoError(t, err)
	defer f.Close()

	g, err := RequireGroup(f, "runs/2024")
	require.NoError(t, err)
	assert.Equal(t, "/runs/2024", g.Path())
	_, err = Write(g, "x", []uint8{1})
	require.NoError(t, err)

	again, err := RequireGroup(f, "runs/2024")
	require.NoError(t, err)
	assert.Equal(t, g.Path(), again.Path())
	assert.True(t, again.Has("x"))

	_, err = RequireGroup(f, "runs/2024/x")
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, hdf5.ErrNotGroup)

	_, err = RequireGroup(f, "")
	assert.ErrorIs(t, err, hdf5.ErrInvalidPath)
	_, err = RequireGroup(f, "a/../b")
	assert.ErrorIs(t, err, hdf5.ErrInvalidPath)
}
