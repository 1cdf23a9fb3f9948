package commands

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robert-malhotra/h5pipe/hdf5"
	"github.com/robert-malhotra/h5pipe/pipeio"
)

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	a := &app{}
	t.Cleanup(a.close)
	cmd := newRootCmd(a)
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func writeFiles(t *testing.T, dir string, files map[string]string) {
	t.Helper()
	for name, body := range files {
		p := filepath.Join(dir, filepath.FromSlash(name))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	}
}

func TestFind(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{"a.txt": "", "b.csv": "", "c.txt": ""})

	out, err := run(t, "find", dir, "*.txt")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "a.txt")+"\n"+filepath.Join(dir, "c.txt")+"\n", out)

	_, err = run(t, "find", filepath.Join(dir, "missing"), "*")
	var nf *pipeio.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func importFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"raw/run1.csv":     "x,label\n1,a\n2.5,b\n",
		"raw/sub/run2.csv": "x, y \n3,4\n5,6\n",
		"raw/notes.txt":    "ignored",
	})
	return dir, filepath.Join(dir, "out", "data.h5")
}

func TestImport(t *testing.T) {
	dir, out := importFixture(t)

	msg, err := run(t, "import", filepath.Join(dir, "raw"), "**/*.csv", "--out", out, "--group", "runs", "--codec", "none")
	require.NoError(t, err)
	assert.Contains(t, msg, "imported 4 columns from 2 files")

	f, err := hdf5.Open(out)
	require.NoError(t, err)
	defer f.Close()

	ds, err := f.OpenDataset("runs/run1/x")
	require.NoError(t, err)
	x, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2.5}, x)
	assert.Equal(t, "none", ds.Compression())
	source, err := ds.Attr("source").Value()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "raw", "run1.csv"), source)

	ds, err = f.OpenDataset("runs/run1/label")
	require.NoError(t, err)
	labels, err := ds.ReadString()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, labels)

	ds, err = f.OpenDataset("runs/sub/run2/y")
	require.NoError(t, err)
	y, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{4, 6}, y)
}

func TestImportTwiceReplaces(t *testing.T) {
	dir, out := importFixture(t)
	args := []string{"import", filepath.Join(dir, "raw"), "**/*.csv", "--out", out}
	_, err := run(t, args...)
	require.NoError(t, err)

	writeFiles(t, dir, map[string]string{"raw/run1.csv": "x\n9\n"})
	_, err = run(t, args...)
	require.NoError(t, err)

	f, err := hdf5.Open(out)
	require.NoError(t, err)
	defer f.Close()
	ds, err := f.OpenDataset("data/run1/x")
	require.NoError(t, err)
	x, err := ds.ReadFloat64()
	require.NoError(t, err)
	assert.Equal(t, []float64{9}, x)
	assert.Equal(t, "gzip", ds.Compression(), "config default codec")
	// Columns dropped from the new file stay from the first import.
	_, err = f.OpenDataset("data/run1/label")
	assert.NoError(t, err)
}

func TestImportSameStem(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"raw/a/run.csv": "x\n1\n",
		"raw/b/run.csv": "x\n2\n",
	})
	out := filepath.Join(dir, "out.h5")
	msg, err := run(t, "import", filepath.Join(dir, "raw"), "**/*.csv", "--out", out)
	require.NoError(t, err)
	assert.Contains(t, msg, "imported 2 columns from 2 files")

	f, err := hdf5.Open(out)
	require.NoError(t, err)
	defer f.Close()
	for p, want := range map[string]float64{"data/a/run/x": 1, "data/b/run/x": 2} {
		ds, err := f.OpenDataset(p)
		require.NoError(t, err, p)
		x, err := ds.ReadFloat64()
		require.NoError(t, err)
		assert.Equal(t, []float64{want}, x, p)
	}
}

func TestSourceGroup(t *testing.T) {
	dir := filepath.Join("data", "raw")
	assert.Equal(t, "run1", sourceGroup(dir, filepath.Join(dir, "run1.csv")))
	assert.Equal(t, "sub/run2", sourceGroup(dir, filepath.Join(dir, "sub", "run2.csv")))
	assert.Equal(t, "a/b.c", sourceGroup(dir, filepath.Join(dir, "a", "b.c.csv")))
}

func TestImportErrors(t *testing.T) {
	dir, out := importFixture(t)
	_, err := run(t, "import", filepath.Join(dir, "raw"), "*.csv", "--out", out, "--codec", "lz4")
	assert.ErrorIs(t, err, hdf5.ErrUnsupported)

	writeFiles(t, dir, map[string]string{"bad/x.csv": "a,b\n1\n"})
	_, err = run(t, "import", filepath.Join(dir, "bad"), "*.csv", "--out", out)
	assert.ErrorContains(t, err, "x.csv")
}

func TestLsInspectCatRm(t *testing.T) {
	p := filepath.Join(t.TempDir(), "c.h5")
	f, err := pipeio.OpenContainer(p)
	require.NoError(t, err)
	_, err = pipeio.Write(f.Root(), "x", []float64{1, 2, 3}, pipeio.WithAttribute("units", "m"))
	require.NoError(t, err)
	_, err = pipeio.Write(f.Root(), "names", []string{"a", "b"}, pipeio.WithCompression(pipeio.Compression{Codec: pipeio.CodecNone}))
	require.NoError(t, err)
	g, err := pipeio.RequireGroup(f, "g")
	require.NoError(t, err)
	_, err = pipeio.Write(g, "m", [][]int32{{1, 2}, {3, 4}})
	require.NoError(t, err)
	require.NoError(t, f.Close())

	out, err := run(t, "ls", p, "-a")
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"/",
		"/g/",
		"/g/m  2x2  int32  gzip",
		"/names  2  string  none",
		"/x  3  float64  gzip",
		"  @units = m",
		"",
	}, "\n"), out)

	out, err = run(t, "ls", p, "g")
	require.NoError(t, err)
	assert.Equal(t, "/g/\n/g/m  2x2  int32  gzip\n", out)

	out, err = run(t, "inspect", p)
	require.NoError(t, err)
	assert.Contains(t, out, "Superblock version: 3")
	assert.Contains(t, out, "Group \"/g\"\n  Members: 1\n")
	assert.Contains(t, out, "Filters: [gzip]")

	out, err = run(t, "cat", p, "x", "names")
	require.NoError(t, err)
	assert.Equal(t, "names  2  string\n  [a b]\nx  3  float64\n  [1 2 3]\n", out)

	out, err = run(t, "cat", p, "x", "--stats")
	require.NoError(t, err)
	assert.Equal(t, "x  count=3 mean=2 std=1 min=1 max=3\n", out)

	_, err = run(t, "cat", p, "x", "nope")
	var mk *pipeio.MissingKeysError
	require.ErrorAs(t, err, &mk)
	assert.Equal(t, []string{"nope"}, mk.Keys)

	_, err = run(t, "rm", p, "/g")
	require.NoError(t, err)
	out, err = run(t, "ls", p)
	require.NoError(t, err)
	assert.NotContains(t, out, "/g")

	_, err = run(t, "rm", p, "g")
	assert.ErrorIs(t, err, hdf5.ErrNotFound)
}

func TestConfigFlag(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"in/a.dat": "", "in/b.csv": "",
		"cfg.yaml": "data:\n  dir: " + filepath.Join(dir, "in") + "\n  pattern: \"*.dat\"\n",
	})
	out, err := run(t, "--config", filepath.Join(dir, "cfg.yaml"), "find")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "in", "a.dat")+"\n", out)

	_, err = run(t, "--config", filepath.Join(dir, "missing.yaml"), "find")
	assert.Error(t, err)
}

func TestReadCSV(t *testing.T) {
	dir := t.TempDir()
	writeFiles(t, dir, map[string]string{
		"t.csv":     "a,a,,x/y\n1,one,2,3\n",
		"empty.csv": "",
	})
	cols, err := readCSV(filepath.Join(dir, "t.csv"))
	require.NoError(t, err)
	require.Len(t, cols, 4)
	assert.Equal(t, "a", cols[0].name)
	assert.Equal(t, []float64{1}, cols[0].values)
	assert.Equal(t, "a_", cols[1].name)
	assert.Equal(t, []string{"one"}, cols[1].values)
	assert.Equal(t, "column_2", cols[2].name)
	assert.Equal(t, "x_y", cols[3].name)

	_, err = readCSV(filepath.Join(dir, "empty.csv"))
	assert.ErrorContains(t, err, "no header row")
}

func TestShape(t *testing.T) {
	assert.Equal(t, "scalar", shape(nil))
	assert.Equal(t, "3", shape([]uint64{3}))
	assert.Equal(t, "2x0x4", shape([]uint64{2, 0, 4}))
}
