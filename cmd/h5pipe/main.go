// Command h5pipe finds input files, imports CSV columns into HDF5
// containers and inspects what was written.
//
// Usage:
//
//	h5pipe [flags] <command> [args]
//
// Commands:
//
//	find     list files matching a glob
//	import   write CSV columns as datasets
//	ls       list groups and datasets
//	inspect  show superblock, space and attributes
//	cat      print dataset values or statistics
//	rm       delete a dataset or group
//
// Configuration is read from --config, then H5PIPE_* environment
// variables.
package main

import (
	"fmt"
	"os"

	"github.com/robert-malhotra/h5pipe/cmd/h5pipe/commands"
)

func main() {
	if err := commands.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
