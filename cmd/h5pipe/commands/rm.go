package commands

import (
	"path"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-malhotra/h5pipe/hdf5"
)

func newRmCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm <file> <path>",
		Short: "Delete a dataset or group",
		Long: `Remove the link at path. A group is removed with everything below it.

The space is not reclaimed; inspect reports it as freed.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			f, err := hdf5.OpenReadWrite(args[0])
			if err != nil {
				return err
			}
			defer func() {
				if cerr := f.Close(); err == nil {
					err = cerr
				}
			}()

			dir, name := path.Split(path.Clean("/" + args[1]))
			g, err := f.OpenGroup(dir)
			if err != nil {
				return err
			}
			if err := g.Delete(name); err != nil {
				return err
			}
			zap.L().Info("deleted", zap.String("file", args[0]), zap.String("path", path.Join(dir, name)))
			return nil
		},
	}
}
