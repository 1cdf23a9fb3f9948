package hdf5

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIsReadable(t *testing.T) {
	f := newFile(t)
	assert.True(t, f.IsWritable())
	assert.Equal(t, 3, f.Version())

	keys, err := f.Keys()
	require.NoError(t, err)
	assert.Empty(t, keys)

	_, err = f.Root().CreateDataset("x", []int32{1, 2, 3})
	require.NoError(t, err)
	ds, err := f.OpenDataset("/x")
	require.NoError(t, err)
	got, err := ds.ReadInt64()
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 2, 3}, got)
}

func TestCreateReopen(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("x", []float64{1.5, 2.5})
	require.NoError(t, err)

	r := reopen(t, f)
	assert.False(t, r.IsWritable())
	assert.Equal(t, 3, r.Version())
	keys, err := r.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"x"}, keys)

	ds, err := r.OpenDataset("x")
	require.NoError(t, err)
	got, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{1.5, 2.5}, got)
}

func TestSmallFieldSizes(t *testing.T) {
	f := newFile(t, WithOffsetSize(4), WithLengthSize(4))
	g, err := f.Root().RequireGroup("a/b")
	require.NoError(t, err)
	_, err = g.CreateDataset("v", []uint16{7, 8, 9}, WithCompression(6))
	require.NoError(t, err)

	r := reopen(t, f)
	ds, err := r.OpenDataset("a/b/v")
	require.NoError(t, err)
	var got []uint16
	require.NoError(t, ds.Read(&got))
	assert.Equal(t, []uint16{7, 8, 9}, got)
}

func TestCreateRejectsBadFieldSize(t *testing.T) {
	_, err := Create(filepath.Join(t.TempDir(), "x.h5"), WithOffsetSize(3))
	assert.ErrorIs(t, err, ErrUnsupported)
}

func TestOpenErrors(t *testing.T) {
	dir := t.TempDir()

	_, err := Open(filepath.Join(dir, "missing.h5"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	junk := filepath.Join(dir, "junk.h5")
	require.NoError(t, os.WriteFile(junk, []byte("definitely not hdf5, just some text"), 0o644))
	_, err = Open(junk)
	assert.ErrorIs(t, err, ErrNotHDF5)
	_, err = OpenReadWrite(junk)
	assert.ErrorIs(t, err, ErrNotHDF5)
}

func TestReadOnlyRejectsWrites(t *testing.T) {
	r := reopen(t, newFile(t))

	_, err := r.Root().CreateGroup("g")
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = r.Root().CreateDataset("x", []int8{1})
	assert.ErrorIs(t, err, ErrReadOnly)
	_, err = r.Root().ReplaceDataset("x", []int8{1})
	assert.ErrorIs(t, err, ErrReadOnly)
	assert.ErrorIs(t, r.Root().Delete("x"), ErrReadOnly)
	assert.NoError(t, r.Flush())
	assert.Equal(t, SpaceStats{EOF: r.SpaceStats().EOF}, r.SpaceStats())
}

func TestCloseTwiceAndUseAfterClose(t *testing.T) {
	f := newFile(t)
	root := f.Root()
	require.NoError(t, f.Close())
	require.NoError(t, f.Close())

	_, err := f.Keys()
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.OpenGroup("/")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = f.OpenDataset("x")
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, f.Flush(), ErrClosed)
	_, err = root.CreateGroup("g")
	assert.ErrorIs(t, err, ErrClosed)
	_, err = root.Members()
	assert.ErrorIs(t, err, ErrClosed)
}

func TestOpenReadWriteAppends(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("first", []int64{1})
	require.NoError(t, err)

	w := reopenRW(t, f)
	assert.True(t, w.IsWritable())
	_, err = w.Root().CreateDataset("second", []int64{2})
	require.NoError(t, err)

	r := reopen(t, w)
	keys, err := r.Keys()
	require.NoError(t, err)
	assert.Equal(t, []string{"first", "second"}, keys)
	for name, want := range map[string]int64{"first": 1, "second": 2} {
		ds, err := r.OpenDataset(name)
		require.NoError(t, err)
		got, err := ds.ReadInt64()
		require.NoError(t, err)
		assert.Equal(t, []int64{want}, got)
	}
}

func TestOpenReadWriteUntouchedKeepsBytes(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("x", []int64{1})
	require.NoError(t, err)
	require.NoError(t, f.Close())
	before, err := os.ReadFile(f.Path())
	require.NoError(t, err)

	w, err := OpenReadWrite(f.Path())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	after, err := os.ReadFile(f.Path())
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestSpaceStatsCountsReplacedObjects(t *testing.T) {
	f := newFile(t)
	_, err := f.Root().CreateDataset("x", []int64{1, 2, 3})
	require.NoError(t, err)
	before := f.SpaceStats()
	assert.Positive(t, before.Allocated)

	_, err = f.Root().ReplaceDataset("x", []int64{4, 5})
	require.NoError(t, err)
	after := f.SpaceStats()
	assert.Greater(t, after.Freed, before.Freed)
	// The old contiguous data is among the freed bytes.
	assert.GreaterOrEqual(t, after.Freed-before.Freed, uint64(24))
	assert.Greater(t, after.EOF, before.EOF)
	require.NoError(t, f.allocator.Validate())

	info, err := os.Stat(f.Path())
	require.NoError(t, err)
	assert.LessOrEqual(t, uint64(info.Size()), after.EOF)
}
