package pipeio

import (
	"fmt"
	"io/fs"
	"strings"

	"github.com/robert-malhotra/h5pipe/hdf5"
)

// NotFoundError reports a directory or file that must exist but does not.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return "path not found: " + e.Path
}

// Unwrap lets errors.Is match fs.ErrNotExist.
func (e *NotFoundError) Unwrap() error {
	return fs.ErrNotExist
}

// MissingKeysError reports requested keys absent from a container. Keys is
// sorted and free of duplicates.
type MissingKeysError struct {
	Path string
	Keys []string
}

func (e *MissingKeysError) Error() string {
	return fmt.Sprintf("keys [%s] not found in file %s", strings.Join(e.Keys, " "), e.Path)
}

func (e *MissingKeysError) Unwrap() error {
	return hdf5.ErrNotFound
}

// WriteError reports a dataset that could not be encoded or stored.
type WriteError struct {
	Path string
	Name string
	Err  error
}

func (e *WriteError) Error() string {
	return fmt.Sprintf("writing %s in %s: %v", e.Name, e.Path, e.Err)
}

func (e *WriteError) Unwrap() error {
	return e.Err
}

// IOError reports a failed filesystem or container operation.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return e.Op + " " + e.Path + ": " + e.Err.Error()
}

func (e *IOError) Unwrap() error {
	return e.Err
}
