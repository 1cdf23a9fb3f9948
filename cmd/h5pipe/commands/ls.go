package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5pipe/hdf5"
)

func newLsCmd(a *app) *cobra.Command {
	var showAttrs bool
	cmd := &cobra.Command{
		Use:   "ls <file> [group]",
		Short: "List groups and datasets",
		Long: `Walk file from group (default the root) and print one line per object.

Groups end in a slash. Datasets show their shape, element type and
compression.`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := hdf5.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()

			start := "/"
			if len(args) > 1 {
				start = args[1]
			}
			g, err := f.OpenGroup(start)
			if err != nil {
				return err
			}
			return list(cmd.OutOrStdout(), g, showAttrs)
		},
	}
	cmd.Flags().BoolVarP(&showAttrs, "attrs", "a", false, "show attributes")
	return cmd
}

func list(w io.Writer, g *hdf5.Group, showAttrs bool) error {
	return hdf5.Walk(g, func(p string, obj hdf5.Object, err error) error {
		if err != nil {
			fmt.Fprintf(w, "%s  error: %v\n", p, err)
			return nil
		}
		switch o := obj.(type) {
		case *hdf5.Group:
			fmt.Fprintln(w, strings.TrimSuffix(p, "/")+"/")
		case *hdf5.Dataset:
			fmt.Fprintf(w, "%s  %s  %s  %s\n", p, shape(o.Shape()), dtypeName(o), o.Compression())
		}
		if showAttrs {
			printAttrs(w, obj, "  ")
		}
		return nil
	})
}

// shape formats dims as 3x4, or "scalar".
func shape(dims []uint64) string {
	if len(dims) == 0 {
		return "scalar"
	}
	parts := make([]string, len(dims))
	for i, d := range dims {
		parts[i] = fmt.Sprint(d)
	}
	return strings.Join(parts, "x")
}

func dtypeName(ds *hdf5.Dataset) string {
	t, err := ds.GoType()
	if err != nil {
		return ds.DtypeClass().String()
	}
	return t.String()
}

func printAttrs(w io.Writer, obj hdf5.Object, indent string) {
	for _, name := range obj.Attrs() {
		v, err := obj.Attr(name).Value()
		if err != nil {
			fmt.Fprintf(w, "%s@%s  error: %v\n", indent, name, err)
			continue
		}
		fmt.Fprintf(w, "%s@%s = %v\n", indent, name, v)
	}
}
