// Package pipeio holds the filesystem and container helpers a data
// pipeline is built from: creating output directories, finding input
// files by glob, opening containers for append, and reading or replacing
// datasets.
//
// Every helper is a single call into the filesystem or the hdf5 package.
// Failures come back as one of four error types, matched with errors.As:
//
//	NotFoundError     a directory or file that must exist does not
//	MissingKeysError  requested dataset keys are absent; nothing was read
//	WriteError        a dataset could not be encoded or stored
//	IOError           mkdir, open, create and read failures
//
// Containers are not locked. Writers to one file must be serialized by the
// caller.
package pipeio
