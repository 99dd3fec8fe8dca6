package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/agri-cli/internal/config"
)

// cfg is populated by the root pre-run hook before any subcommand runs.
var cfg *config.Config

var logLevel string

var rootCmd = &cobra.Command{
	Use:   "agri-cli",
	Short: "Farm suitability and yield prediction toolkit",
	Long: `Generates synthetic farm datasets and scores uploaded farm records with a
trained suitability classifier and yield regressor, from the command line or
over HTTP.

Every command first reads config.yaml from the working directory, overlays
AGRI_* environment variables, and installs the global logger from the log
section. Subcommands then validate only the sections they use, so generate
runs without model artifacts and predict runs without a run history store.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := setup(logLevel)
		if err != nil {
			return err
		}
		cfg = c

		zap.L().Debug("config loaded",
			zap.String("command", cmd.CommandPath()),
			zap.String("store_driver", cfg.Store.Driver),
			zap.String("artifacts_dir", cfg.Artifacts.Dir),
		)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
}

// setup loads configuration and installs the global logger. A non-empty
// level overrides log.level from the config file.
func setup(level string) (*config.Config, error) {
	c, err := config.Load()
	if err != nil {
		return nil, eris.Wrap(err, "load config")
	}
	if level != "" {
		c.Log.Level = level
	}

	if err := config.InitLogger(c.Log); err != nil {
		return nil, eris.Wrap(err, "init logger")
	}
	return c, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
