package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/conductor/internal/config"
	"github.com/aretw0/conductor/internal/logging"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "conductor",
	Short: "Conductor answers questions with a planned team of workers",
	Long: `Conductor decomposes a request into steps, dispatches each step to a
specialized worker (SQL, charts, web research, synthesis) and revises the
plan when a step falls short.`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().String("config", "", "Path to a YAML config file (default ./conductor.yaml when present)")
	rootCmd.PersistentFlags().String("log-level", "", "Override log.level (debug, info, warn, error)")
}

// setup loads configuration and builds the logger. Logs go to stderr so
// stdout carries only answers and protocol traffic.
func setup(cmd *cobra.Command) (*config.Config, *slog.Logger, error) {
	path, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	if level, _ := cmd.Flags().GetString("log-level"); level != "" {
		cfg.Log.Level = level
		if err := cfg.Validate(); err != nil {
			return nil, nil, err
		}
	}
	logger := logging.New(os.Stderr, cfg.LogLevel(), cfg.Log.Format)
	slog.SetDefault(logger)
	return cfg, logger, nil
}
