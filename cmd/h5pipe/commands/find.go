package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/robert-malhotra/h5pipe/pipeio"
)

func newFindCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "find [dir] [pattern]",
		Short: "List files matching a glob",
		Long: `List the files below dir whose relative path matches pattern, sorted.

dir and pattern default to data.dir and data.pattern from the config.
Patterns support *, **, ?, [classes] and {alternatives}.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, pattern := a.cfg.Data.Dir, a.cfg.Data.Pattern
			if len(args) > 0 {
				dir = args[0]
			}
			if len(args) > 1 {
				pattern = args[1]
			}
			files, err := pipeio.FindFiles(pattern, dir)
			if err != nil {
				return err
			}
			for _, f := range files {
				fmt.Fprintln(cmd.OutOrStdout(), f)
			}
			return nil
		},
	}
}
