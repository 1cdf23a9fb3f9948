package commands

import (
	"fmt"
	"io"
	"maps"
	"slices"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/robert-malhotra/h5pipe/hdf5"
	"github.com/robert-malhotra/h5pipe/pipeio"
)

func newCatCmd(a *app) *cobra.Command {
	var stats bool
	cmd := &cobra.Command{
		Use:   "cat <file> [keys...]",
		Short: "Print dataset values or statistics",
		Long: `Read top-level datasets and print them. Without keys every top-level
dataset is printed. A missing key fails the whole command and nothing is
printed.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			arrays, err := pipeio.Read(args[0], args[1:]...)
			if err != nil {
				return err
			}
			w := cmd.OutOrStdout()
			for _, key := range slices.Sorted(maps.Keys(arrays)) {
				arr := arrays[key]
				if stats {
					printStats(w, key, arr)
					continue
				}
				fmt.Fprintf(w, "%s  %s  %s\n", key, shape(arr.Shape), arr.Dtype())
				fmt.Fprintf(w, "  %v\n", arr.Data)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&stats, "stats", false, "print count, mean, std, min and max")
	return cmd
}

func printStats(w io.Writer, key string, arr *hdf5.Array) {
	values, err := arr.Float64s()
	if err != nil {
		fmt.Fprintf(w, "%s  %s  not numeric\n", key, arr.Dtype())
		return
	}
	if len(values) == 0 {
		fmt.Fprintf(w, "%s  count=0\n", key)
		return
	}
	mean, std := stat.MeanStdDev(values, nil)
	fmt.Fprintf(w, "%s  count=%d mean=%g std=%g min=%g max=%g\n",
		key, len(values), mean, std, floats.Min(values), floats.Max(values))
}
