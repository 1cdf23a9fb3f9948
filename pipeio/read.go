package pipeio

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"

	"go.uber.org/zap"

	"github.com/robert-malhotra/h5pipe/hdf5"
)

// Read opens the container at path read-only and loads the datasets named
// by keys from its root. With no keys every top-level dataset is loaded.
// If any key is missing Read fails with *MissingKeysError and reads
// nothing. The file is closed before Read returns.
func Read(path string, keys ...string) (_ map[string]*hdf5.Array, err error) {
	f, err := hdf5.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &NotFoundError{Path: path}
		}
		return nil, &IOError{Op: "open", Path: path, Err: err}
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = &IOError{Op: "close", Path: path, Err: cerr}
		}
	}()

	available, err := f.Keys()
	if err != nil {
		return nil, &IOError{Op: "read", Path: path, Err: err}
	}
	if len(keys) == 0 {
		keys, err = datasetKeys(f.Root(), available)
		if err != nil {
			return nil, &IOError{Op: "read", Path: path, Err: err}
		}
	}

	requested := slices.Compact(slices.Sorted(slices.Values(keys)))
	var missing []string
	for _, k := range requested {
		if !slices.Contains(available, k) {
			missing = append(missing, k)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingKeysError{Path: path, Keys: missing}
	}

	out := make(map[string]*hdf5.Array, len(requested))
	for _, k := range requested {
		ds, err := f.Root().OpenDataset(k)
		if err != nil {
			return nil, &IOError{Op: "read " + k, Path: path, Err: err}
		}
		arr, err := ds.ReadArray()
		if err != nil {
			return nil, &IOError{Op: "read " + k, Path: path, Err: err}
		}
		out[k] = arr
	}
	logger().Debug("read datasets", zap.String("path", path), zap.Strings("keys", requested))
	return out, nil
}

// datasetKeys filters names down to the members of g that are datasets.
func datasetKeys(g *hdf5.Group, names []string) ([]string, error) {
	var keys []string
	for _, name := range names {
		_, err := g.OpenDataset(name)
		switch {
		case err == nil:
			keys = append(keys, name)
		case errors.Is(err, hdf5.ErrNotDataset):
		default:
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return keys, nil
}
