package main

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/jgoulah/usagereport/internal/config"
	"github.com/jgoulah/usagereport/internal/logging"
)

var (
	cfgFile   string
	logLevel  string
	logFormat string
)

var rootCmd = &cobra.Command{
	Use:   "usagereport",
	Short: "Reconcile old and new tracker usage exports",
	Long: `usagereport reads daily usage CSV exports from the old and new trackers,
merges them into one record per user over a date range and writes dense
per-user CSV reports (one column per day).`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is ./config.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace, debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "log format (auto, console, json)")
}

// getConfigPath returns the config file path
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	return config.DefaultConfigPath()
}

// loadConfig loads .env files, the config file and environment overrides
func loadConfig() (*config.Config, error) {
	config.LoadEnvFiles()

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return nil, err
	}
	cfg.ApplyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", getConfigPath(), err)
	}
	return cfg, nil
}

// newLogger builds the run logger, letting flags override the config
func newLogger(cfg *config.Config) zerolog.Logger {
	level := cfg.GetLogLevel()
	if logLevel != "" {
		level = logLevel
	}
	format := cfg.LogFormat
	if logFormat != "" {
		format = logFormat
	}
	return logging.New(logging.Config{Level: level, Format: format})
}
