// Package config reads run settings from the environment.
package config

import (
	"errors"
	"os"
)

// #region defaults
const (
	DefaultDataset  = "2020_Olympics_Dataset_Cleaned (1).csv"
	DefaultOutDir   = "model"
	DefaultLogLevel = "info"
	DefaultAddr     = "localhost:50051"
)

var (
	ErrNoDataset  = errors.New("dataset path is empty")
	ErrNoOutDir   = errors.New("output directory is empty")
	ErrNoRegistry = errors.New("no run registry configured (set REGISTRY or --registry)")
)
// #endregion defaults

// #region config
// Config holds the externally tunable settings. Everything else is compiled in.
type Config struct {
	DatasetPath string
	OutDir      string
	LogLevel    string
	Addr        string // prediction service address
	Registry    string // run registry database; empty disables recording
}

// Load reads DATASET, OUT_DIR, LOG_LEVEL, PREDICT_ADDR and REGISTRY, falling
// back to defaults. REGISTRY has no default.
func Load() Config {
	return Config{
		DatasetPath: envOr("DATASET", DefaultDataset),
		OutDir:      envOr("OUT_DIR", DefaultOutDir),
		LogLevel:    envOr("LOG_LEVEL", DefaultLogLevel),
		Addr:        envOr("PREDICT_ADDR", DefaultAddr),
		Registry:    os.Getenv("REGISTRY"),
	}
}

// Validate rejects settings a run cannot start with.
func (c Config) Validate() error {
	if c.DatasetPath == "" {
		return ErrNoDataset
	}
	if c.OutDir == "" {
		return ErrNoOutDir
	}
	return nil
}

// Recording reports whether runs are written to a registry.
func (c Config) Recording() bool {
	return c.Registry != ""
}
// #endregion config

// #region helpers
func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
// #endregion helpers
