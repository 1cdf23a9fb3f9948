package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5pipe/hdf5"
)

func newInspectCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <file>",
		Short: "Show superblock, space and attributes",
		Long: `Print the superblock version and file size, then every group with its
member count and attributes, and every dataset with its layout details.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hdf5.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return inspect(cmd.OutOrStdout(), f)
		},
	}
}

func inspect(w io.Writer, f *hdf5.File) error {
	fmt.Fprintf(w, "File %s\n", f.Path())
	fmt.Fprintf(w, "  Superblock version: %d\n", f.Version())
	fmt.Fprintf(w, "  End of file: %d bytes\n", f.SpaceStats().EOF)

	return hdf5.Walk(f.Root(), func(p string, obj hdf5.Object, err error) error {
		if err != nil {
			fmt.Fprintf(w, "%q: error: %v\n", p, err)
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			n, err := o.NumObjects()
			if err != nil {
				fmt.Fprintf(w, "Group %q: error: %v\n", p, err)
				return hdf5.SkipGroup
			}
			fmt.Fprintf(w, "Group %q\n", p)
			fmt.Fprintf(w, "  Members: %d\n", n)
		case *hdf5.Dataset:
			fmt.Fprintf(w, "Dataset %q\n", p)
			fmt.Fprintf(w, "  Shape: %s\n", shape(o.Shape()))
			fmt.Fprintf(w, "  Type: %s (%d bytes)\n", dtypeName(o), o.DtypeSize())
			if filters := o.Filters(); len(filters) > 0 {
				fmt.Fprintf(w, "  Filters: %v\n", filters)
			}
		}
		printAttrs(w, obj, "  ")
		return nil
	})
}
