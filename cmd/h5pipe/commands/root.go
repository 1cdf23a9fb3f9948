package commands

import (
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/robert-malhotra/h5pipe/internal/config"
	"github.com/robert-malhotra/h5pipe/internal/logging"
)

// app holds the global flags and the state built from them.
type app struct {
	cfgFile string
	verbose bool

	cfg      *config.Config
	teardown func()
}

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "h5pipe",
		Short: "Pipeline helpers for HDF5 containers",
		Long: `h5pipe moves tabular files into HDF5 containers and inspects the result.

Examples:
  # Import every CSV below ./raw into out.h5, one dataset per column
  h5pipe import ./raw "**/*.csv" --out out.h5 --group runs

  # List what was written
  h5pipe ls out.h5 -a

  # Summary statistics for two datasets
  h5pipe cat out.h5 x y --stats`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.init()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (YAML)")
	rootCmd.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "debug logging")

	rootCmd.AddCommand(
		newFindCmd(a),
		newImportCmd(a),
		newLsCmd(a),
		newInspectCmd(a),
		newCatCmd(a),
		newRmCmd(a),
	)
	return rootCmd
}

// Execute runs the command line. The logger installed for the command is
// flushed before Execute returns.
func Execute() error {
	a := &app{}
	defer a.close()
	return newRootCmd(a).Execute()
}

// init loads the configuration and installs the logger.
func (a *app) init() error {
	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	lc := cfg.Logging.Logger()
	if a.verbose {
		lc.Level = "debug"
	}
	teardown, err := logging.Setup(lc)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.teardown = teardown
	zap.L().Debug("config loaded", zap.String("file", a.cfgFile))
	return nil
}

func (a *app) close() {
	if a.teardown != nil {
		a.teardown()
		a.teardown = nil
	}
}
