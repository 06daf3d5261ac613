package cli

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/watzon/autoimport/internal/config"
	"github.com/watzon/autoimport/internal/logging"
)

var (
	cfgFile string
	verbose bool

	// cfg is loaded once before any subcommand runs.
	cfg *config.Config
)

// version is set at build time with -ldflags.
var version = "0.1.0-dev"

// rootCmd represents the base command when called without any subcommands.
var rootCmd = &cobra.Command{
	Use:   "autoimport",
	Short: "Scheduled import runner for query and HTTP API action sets",
	Long: `Autoimport reads configuration documents from a directory and runs
their actions on schedule. Each configuration declares run schemes and a set
of query and HTTP API actions bound to them by time id; the actions of a run
scheme execute strictly one after another in ascending order.

Start the scheduler:
  autoimport run

Check configuration documents without running anything:
  autoimport validate`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return initConfig()
	},
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./autoimport.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
}

// initConfig loads the service config and sets up logging from it.
func initConfig() error {
	loaded, err := config.Load(config.LoadOptions{ConfigFile: cfgFile})
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	cfg = loaded

	logging.Setup(cfg.Logging, verbose)

	if path, err := config.ConfigFilePath(cfgFile); err == nil {
		log.Debug().Str("file", path).Msg("Using config file")
	}
	return nil
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) {
	rootCmd.AddCommand(cmd)
}

// Version returns the version string.
func Version() string {
	return fmt.Sprintf("autoimport version %s", version)
}
