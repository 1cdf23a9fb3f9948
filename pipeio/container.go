package pipeio

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/robert-malhotra/h5pipe/hdf5"
)

// OpenContainer opens the container at path for appending, creating an
// empty one if no file exists. The caller must Close the returned file.
func OpenContainer(path string) (*hdf5.File, error) {
	_, err := os.Stat(path)
	switch {
	case err == nil:
		f, err := hdf5.OpenReadWrite(path)
		if err != nil {
			return nil, &IOError{Op: "open", Path: path, Err: err}
		}
		return f, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}

	if dir := filepath.Dir(path); dir != "" {
		if _, err := os.Stat(dir); errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: dir}
		}
	}
	f, err := hdf5.Create(path)
	if err != nil {
		return nil, &IOError{Op: "create", Path: path, Err: err}
	}
	logger().Debug("created container", zap.String("path", path))
	return f, nil
}

// RequireGroup returns the group name below the root of f, creating it and
// any missing parents. Repeated calls return the same group.
func RequireGroup(f *hdf5.File, name string) (*hdf5.Group, error) {
	g, err := f.Root().RequireGroup(name)
	if err != nil {
		return nil, &IOError{Op: "require group " + name, Path: f.Path(), Err: err}
	}
	return g, nil
}
