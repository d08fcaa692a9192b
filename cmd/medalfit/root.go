package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/danielpatrickdp/medalfit/internal/config"
	"github.com/danielpatrickdp/medalfit/internal/logging"
	"github.com/danielpatrickdp/medalfit/internal/registry"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:           "medalfit",
	Short:         "Train and serve the medal classifier",
	Long:          "medalfit trains a multinomial medal classifier from a competition CSV and exports it as an ONNX graph plus class list.",
	SilenceUsage:  true,
	SilenceErrors: false,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(trainCmd)
	rootCmd.AddCommand(runsCmd)
	rootCmd.AddCommand(predictCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(replayCmd)
}

// loadConfig reads the environment and applies the persistent flags.
func loadConfig(cmd *cobra.Command) config.Config {
	cfg := config.Load()
	if lvl, _ := cmd.Flags().GetString("log-level"); lvl != "" {
		cfg.LogLevel = lvl
	}
	return cfg
}

// openRegistry opens the registry named by --registry or REGISTRY.
func openRegistry(cmd *cobra.Command, cfg config.Config) (*registry.Registry, error) {
	path := stringFlag(cmd, "registry", cfg.Registry)
	if path == "" {
		return nil, config.ErrNoRegistry
	}
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("open registry %s: %w", path, err)
	}
	return registry.Open(path)
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.NewLogger(os.Stderr, cfg.LogLevel)
}

// stringFlag returns the flag value, or fallback when the flag was not set.
func stringFlag(cmd *cobra.Command, name, fallback string) string {
	if v, _ := cmd.Flags().GetString(name); v != "" {
		return v
	}
	return fallback
}
