package replay

import (
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/medalfit/internal/config"
	"github.com/danielpatrickdp/medalfit/internal/pipeline"
	"github.com/danielpatrickdp/medalfit/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func recordRun(t *testing.T, csv string) (*registry.Registry, string) {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	cfg := config.Config{DatasetPath: csv, OutDir: t.TempDir(), Registry: dbPath}
	r := pipeline.NewRunner(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)), nil)
	sum, err := r.Run(context.Background())
	require.NoError(t, err)
	require.True(t, sum.Recorded)

	reg, err := registry.Open(dbPath)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	return reg, sum.RunID
}

func copyFixture(t *testing.T) string {
	t.Helper()
	raw, err := os.ReadFile(filepath.Join("..", "pipeline", "testdata", "medals.csv"))
	require.NoError(t, err)
	p := filepath.Join(t.TempDir(), "medals.csv")
	require.NoError(t, os.WriteFile(p, raw, 0o644))
	return p
}

func TestReplay_SameDataMatches(t *testing.T) {
	csv := copyFixture(t)
	reg, id := recordRun(t, csv)

	res, err := Replay(reg, id, "")
	require.NoError(t, err)
	assert.True(t, res.Match, "diffs: %v", res.Diffs)
	assert.Equal(t, csv, res.Dataset)
}

func TestReplay_ChangedDataReportsDiffs(t *testing.T) {
	csv := copyFixture(t)
	reg, id := recordRun(t, csv)

	raw, err := os.ReadFile(csv)
	require.NoError(t, err)
	changed := strings.Replace(string(raw), "Athlete A,20,M,USA", "Athlete A,35,M,USA", 1)
	require.NoError(t, os.WriteFile(csv, []byte(changed), 0o644))

	res, err := Replay(reg, id, "")
	require.NoError(t, err)
	assert.False(t, res.Match)
	require.NotEmpty(t, res.Diffs)
	assert.Contains(t, res.Diffs[len(res.Diffs)-1], "graph")
}

func TestReplay_UnknownRun(t *testing.T) {
	reg, _ := recordRun(t, copyFixture(t))
	_, err := Replay(reg, "missing", "")
	assert.ErrorIs(t, err, registry.ErrRunNotFound)
}
