package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("DATASET", "")
	t.Setenv("OUT_DIR", "")
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("PREDICT_ADDR", "")
	t.Setenv("REGISTRY", "")

	c := Load()
	assert.Equal(t, DefaultDataset, c.DatasetPath)
	assert.Equal(t, DefaultOutDir, c.OutDir)
	assert.Equal(t, DefaultLogLevel, c.LogLevel)
	assert.Equal(t, DefaultAddr, c.Addr)
	assert.Equal(t, "2020_Olympics_Dataset_Cleaned (1).csv", c.DatasetPath)
	assert.Empty(t, c.Registry)
	assert.False(t, c.Recording(), "recording is opt-in")
	assert.NoError(t, c.Validate())
}

func TestLoad_FromEnv(t *testing.T) {
	t.Setenv("DATASET", "/data/games.csv")
	t.Setenv("OUT_DIR", "/tmp/out")
	t.Setenv("REGISTRY", "/var/lib/medalfit/runs.db")

	c := Load()
	assert.Equal(t, "/data/games.csv", c.DatasetPath)
	assert.Equal(t, "/tmp/out", c.OutDir)
	assert.Equal(t, "/var/lib/medalfit/runs.db", c.Registry)
	assert.True(t, c.Recording())
}

func TestValidate(t *testing.T) {
	assert.ErrorIs(t, Config{OutDir: "m"}.Validate(), ErrNoDataset)
	assert.ErrorIs(t, Config{DatasetPath: "d.csv"}.Validate(), ErrNoOutDir)
}
