package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ternarybob/arbor"
	"github.com/ternarybob/harvester/internal/common"
)

var (
	// Command-line flags
	configFiles []string
	dataDir     string
	logLevel    string
	noBanner    bool

	// Global state
	config *common.Config
	logger arbor.ILogger
)

var rootCmd = &cobra.Command{
	Use:           "harvester",
	Short:         "Resumable store and menu scraping pipeline",
	Long:          `Runs the location, menu, post-menu, log and CSV phases for a chain, one bounded step at a time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if cmd.Name() == versionCmd.Name() {
			return nil
		}
		return setup()
	},
}

func init() {
	rootCmd.PersistentFlags().StringArrayVarP(&configFiles, "config", "c", nil, "Configuration file path (can be repeated, later files override earlier ones)")
	rootCmd.PersistentFlags().StringVar(&dataDir, "data-dir", "", "Local data folder (overrides config)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&noBanner, "no-banner", false, "Do not print the start-up banner")

	rootCmd.AddCommand(stepCmd, runCmd, scheduleCmd, reportCmd, versionCmd)
}

// setup loads config (defaults -> files -> env -> flags), then the logger, then prints the banner
func setup() error {
	if len(configFiles) == 0 {
		if _, err := os.Stat("harvester.toml"); err == nil {
			configFiles = append(configFiles, "harvester.toml")
		} else if _, err := os.Stat("deployments/local/harvester.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/harvester.toml")
		}
	}

	var err error
	config, err = common.LoadFromFiles(configFiles...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	common.ApplyFlagOverrides(config, dataDir, logLevel)

	logger = common.InitLogger(config)
	common.InstallCrashHandler(config.Logging.Dir)

	if !noBanner {
		common.PrintBanner(common.GetVersion())
	}

	logger.Debug().
		Strs("config_files", configFiles).
		Str("storage_backend", config.Storage.Backend).
		Str("data_dir", config.Storage.DataDir).
		Str("log_level", config.Logging.Level).
		Bool("lambda", config.InLambda).
		Msg("Resolved configuration")

	return nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if logger != nil {
			logger.Error().Err(err).Msg("Command failed")
		}
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
