package pipeio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5pipe/hdf5"
)

// container writes each dataset into a fresh file and returns its path.
func container(t *testing.T, datasets map[string]any, groups ...string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "data.h5")
	f, err := OpenContainer(p)
	require.NoError(t, err)
	for name, v := range datasets {
		_, err := Write(f.Root(), name, v)
		require.NoError(t, err)
	}
	for _, g := range groups {
		_, err := RequireGroup(f, g)
		require.NoError(t, err)
	}
	require.NoError(t, f.Close())
	return p
}

func TestReadAllKeys(t *testing.T) {
	p := container(t, map[string]any{"x": []int64{1, 2}, "y": []string{"a"}})

	got, err := Read(p)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, []int64{1, 2}, got["x"].Data)
	assert.Equal(t, []string{"a"}, got["y"].Data)
}

func TestReadSelectedKeys(t *testing.T) {
	p := container(t, map[string]any{"x": []int64{1, 2}, "y": []string{"a"}})

	got, err := Read(p, "y", "y")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []uint64{1}, got["y"].Shape)
}

func TestReadMissingKeys(t *testing.T) {
	p := container(t, map[string]any{"x": []int64{1, 2}, "y": []string{"a"}})

	got, err := Read(p, "x", "z", "w", "z")
	assert.Nil(t, got)
	var mk *MissingKeysError
	require.ErrorAs(t, err, &mk)
	assert.Equal(t, p, mk.Path)
	assert.Equal(t, []string{"w", "z"}, mk.Keys)
	assert.EqualError(t, err, "keys [w z] not found in file "+p)
	assert.ErrorIs(t, err, hdf5.ErrNotFound)
}

func TestReadSkipsGroups(t *testing.T) {
	p := container(t, map[string]any{"x": 1.5}, "meta/sub")

	got, err := Read(p)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, []float64{1.5}, got["x"].Data)
	assert.Empty(t, got["x"].Shape)

	// A group is present, so it is not missing, but it has no array.
	_, err = Read(p, "meta")
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, hdf5.ErrNotDataset)
}

func TestReadEmptyContainer(t *testing.T) {
	p := container(t, nil)
	got, err := Read(p)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestReadOpenErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := Read(filepath.Join(dir, "missing.h5"))
	var nf *NotFoundError
	require.ErrorAs(t, err, &nf)

	junk := filepath.Join(dir, "junk.h5")
	require.NoError(t, os.WriteFile(junk, []byte("junk"), 0o644))
	_, err = Read(junk)
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.ErrorIs(t, err, hdf5.ErrNotHDF5)
}

func TestReadResultOutlivesFile(t *testing.T) {
	p := container(t, map[string]any{"x": []float32{1, 2}})
	got, err := Read(p)
	require.NoError(t, err)
	require.NoError(t, os.Remove(p))
	assert.Equal(t, []float32{1, 2}, got["x"].Data)
}
