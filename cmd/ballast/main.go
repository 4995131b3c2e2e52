package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/studiowebux/ballast/internal/cli"
	"github.com/studiowebux/ballast/internal/config"
	"github.com/studiowebux/ballast/internal/logging"
)

var (
	version = "0.1.0"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, cli.ErrEndpointsFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "ballast",
	Short: "Snapshot load testing for HTTP APIs",
	Long: `Ballast fires configured bursts of concurrent requests at your endpoints,
checks the responses, and compares latency against the last recorded snapshot.

Endpoints are read from ballast.json (JSON with comments) or a YAML file.
Every run appends a snapshot unless --no-snapshot is given.

Examples:
  ballast                               # Run ./ballast.json, compare, save snapshot
  ballast --no-snapshot                 # Compare without recording
  ballast --desc "after cache change"   # Label the new snapshot
  ballast -c api.yaml -o json --strict  # JSON report, non-zero exit on failure
  ballast history                       # List recorded snapshots
  ballast validate                      # Check the endpoint file without traffic`,
	Version:       version,
	Args:          cobra.NoArgs,
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return cli.Run(ctx, cli.RunOptions{
			ConfigPath:     settings.ConfigPath,
			SnapshotPath:   settings.SnapshotPath,
			Store:          settings.Store,
			NoSnapshot:     flagNoSnapshot,
			Description:    flagDesc,
			OutputFormat:   settings.Output,
			MetricsFile:    flagMetricsFile,
			Strict:         flagStrict,
			RequestTimeout: settings.RequestTimeout,
			Logger:         logger,
		})
	},
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded snapshots, oldest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		return cli.History(cli.HistoryOptions{
			SnapshotPath: settings.SnapshotPath,
			Store:        settings.Store,
			OutputFormat: settings.Output,
			Logger:       logger,
		})
	},
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check the endpoint file without sending any requests",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		settings, logger, err := setup(cmd)
		if err != nil {
			return err
		}
		defer logger.Sync()

		return cli.Validate(settings.ConfigPath, os.Stdout)
	},
}

// Persistent flags
var (
	flagConfig    string
	flagSnapshot  string
	flagStore     string
	flagOutput    string
	flagLogLevel  string
	flagLogFormat string
)

// Flags for the run command
var (
	flagNoSnapshot  bool
	flagDesc        string
	flagMetricsFile string
	flagStrict      bool
	flagTimeout     time.Duration
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&flagConfig, "config", "c", config.DefaultConfigPath, "Endpoint file (.json, .jsonc, .yaml)")
	rootCmd.PersistentFlags().StringVarP(&flagSnapshot, "snapshot", "s", config.DefaultSnapshotPath, "Snapshot store path")
	rootCmd.PersistentFlags().StringVar(&flagStore, "store", config.StoreJSON, "Snapshot store backend (json/sqlite)")
	rootCmd.PersistentFlags().StringVarP(&flagOutput, "output", "o", "text", "Output format (text/json/yaml)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "warn", "Log level (debug/info/warn/error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "console", "Log format (console/json)")

	rootCmd.Flags().BoolVar(&flagNoSnapshot, "no-snapshot", false, "Compare without appending a snapshot")
	rootCmd.Flags().StringVar(&flagDesc, "desc", "", "Description stored with the new snapshot")
	rootCmd.Flags().StringVar(&flagMetricsFile, "metrics-file", "", "Write Prometheus text metrics to this file")
	rootCmd.Flags().BoolVar(&flagStrict, "strict", false, "Exit non-zero when any endpoint fails")
	rootCmd.Flags().DurationVar(&flagTimeout, "timeout", 0, "Per-request timeout, e.g. 10s (default none)")

	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(validateCmd)
}

// setup merges environment settings with explicitly set flags and builds the logger
func setup(cmd *cobra.Command) (*config.Settings, *zap.Logger, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return nil, nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("config") {
		settings.ConfigPath = flagConfig
	}
	if flags.Changed("snapshot") {
		settings.SnapshotPath = flagSnapshot
	}
	if flags.Changed("store") {
		settings.Store = flagStore
	}
	if flags.Changed("output") {
		settings.Output = flagOutput
	}
	if flags.Changed("log-level") {
		settings.LogLevel = flagLogLevel
	}
	if flags.Changed("log-format") {
		settings.LogFormat = flagLogFormat
	}
	if flags.Lookup("timeout") != nil && flags.Changed("timeout") {
		settings.RequestTimeout = flagTimeout
	}
	if err := settings.Validate(); err != nil {
		return nil, nil, err
	}

	logger, err := logging.New(settings.LogLevel, settings.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	return settings, logger, nil
}
