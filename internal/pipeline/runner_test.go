package pipeline

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/danielpatrickdp/medalfit/internal/config"
	"github.com/danielpatrickdp/medalfit/internal/dataset"
	"github.com/danielpatrickdp/medalfit/internal/export"
	"github.com/danielpatrickdp/medalfit/internal/features"
	"github.com/danielpatrickdp/medalfit/internal/inference"
	"github.com/danielpatrickdp/medalfit/internal/logging"
	"github.com/danielpatrickdp/medalfit/internal/registry"
	"github.com/danielpatrickdp/medalfit/internal/trainer"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// #region helpers
func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func runOn(t *testing.T, csvPath string) (*Summary, string, *bytes.Buffer, error) {
	t.Helper()
	return runWith(t, config.Config{DatasetPath: csvPath})
}

// runWith fills OutDir with a fresh temp directory and runs cfg.
func runWith(t *testing.T, cfg config.Config) (*Summary, string, *bytes.Buffer, error) {
	t.Helper()
	cfg.OutDir = filepath.Join(t.TempDir(), "model")
	var report bytes.Buffer
	r := NewRunner(cfg, quietLogger(), &report)
	sum, err := r.Run(context.Background())
	return sum, cfg.OutDir, &report, err
}

func writeCSV(t *testing.T, body string) string {
	t.Helper()
	p := filepath.Join(t.TempDir(), "data.csv")
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func assertNoArtifacts(t *testing.T, dir string) {
	t.Helper()
	assert.NoFileExists(t, filepath.Join(dir, export.GraphFile))
	assert.NoFileExists(t, filepath.Join(dir, export.ClassesFile))
}
// #endregion helpers

// #region run-tests
func TestRun_TenRecords(t *testing.T) {
	sum, out, report, err := runOn(t, filepath.Join("testdata", "medals.csv"))
	require.NoError(t, err)

	assert.Equal(t, 12, sum.RecordsIn)
	assert.Equal(t, 2, sum.Unlabeled)
	assert.Equal(t, 10, sum.RecordsUsed)
	assert.Equal(t, 0, sum.Dropped)
	assert.Equal(t, 1, sum.Imputed["Age"])
	assert.Equal(t, 0, sum.Imputed["Rank"])
	assert.Equal(t, 7, sum.Outcome.TrainSize)
	assert.Equal(t, 3, sum.Outcome.TestSize)
	assert.Equal(t, []string{"Bronze", "Gold", "Silver"}, sum.Artifact.Classes)
	assert.Contains(t, report.String(), "accuracy")

	raw, err := os.ReadFile(filepath.Join(out, export.ClassesFile))
	require.NoError(t, err)
	assert.JSONEq(t, `["Bronze","Gold","Silver"]`, string(raw))

	b, err := inference.LoadBundle(out)
	require.NoError(t, err)
	p, err := b.Predict(inference.Input{
		Numeric:     map[string]float64{"Age": 24, "Rank": 1},
		Categorical: map[string]string{"Gender": "M", "NOC": "ZZZ", "Discipline": "Freestyle", "Sport": "Swimming"},
	})
	require.NoError(t, err)
	require.Len(t, p.Probabilities, 3)
	total := 0.0
	for _, v := range p.Probabilities {
		total += v
	}
	assert.InDelta(t, 1, total, 1e-5)

	// the unseen NOC encodes as an all-zero block and the graph agrees with
	// the in-process model
	model := sum.Outcome.Model
	v := features.Vector{
		Numeric:     []float64{24, 1},
		Categorical: []string{"M", "ZZZ", "Freestyle", "Swimming"},
	}
	x, err := model.Preprocessor.TransformOne(v)
	require.NoError(t, err)
	found := false
	for _, seg := range model.Preprocessor.Layout() {
		if seg.Column != "NOC" {
			continue
		}
		found = true
		assert.Equal(t, make([]float64, seg.Width), x[seg.Offset:seg.Offset+seg.Width])
	}
	require.True(t, found, "NOC segment in layout")

	want, err := model.PredictProba(v)
	require.NoError(t, err)
	require.Len(t, want, len(p.Probabilities))
	for i := range want {
		assert.InDelta(t, want[i], p.Probabilities[i], 1e-6, "class %s", p.Classes[i])
	}
}

func TestRun_MedianImputationUsesLabeledRecords(t *testing.T) {
	sum, _, _, err := runOn(t, filepath.Join("testdata", "medals.csv"))
	require.NoError(t, err)

	// labeled ages 20..29 without 24; the unlabeled 30 and 31 must not count
	assert.Equal(t, 25.0, sum.Medians["Age"])
	assert.Equal(t, 1, sum.Imputed["Age"])
	assert.Zero(t, sum.Imputed["Rank"])
}

func TestRun_OnlyArtifactsPersistByDefault(t *testing.T) {
	sum, out, _, err := runOn(t, filepath.Join("testdata", "medals.csv"))
	require.NoError(t, err)
	assert.False(t, sum.Recorded)

	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.ElementsMatch(t, []string{export.GraphFile, export.ClassesFile}, names)
}

func TestRun_RecordsRegistryAndStages(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	sum, _, _, err := runWith(t, config.Config{DatasetPath: filepath.Join("testdata", "medals.csv"), Registry: dbPath})
	require.NoError(t, err)
	require.True(t, sum.Recorded)

	reg, err := registry.Open(dbPath)
	require.NoError(t, err)
	defer reg.Close()

	runs, err := reg.List(5)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sum.RunID, runs[0].RunID)
	assert.Equal(t, 10, runs[0].RecordsUsed)
	assert.Equal(t, []string{"Bronze", "Gold", "Silver"}, runs[0].Classes)
	assert.Equal(t, []string{"CHN", "FRA", "USA"}, runs[0].Vocabulary["NOC"])

	graph, err := reg.Graph(sum.RunID)
	require.NoError(t, err)
	assert.Equal(t, sum.Artifact.Graph, graph)

	stages, err := logging.Stages(reg.DB(), sum.RunID)
	require.NoError(t, err)
	var names []string
	for _, s := range stages {
		names = append(names, s.Stage)
	}
	assert.Equal(t, []string{
		logging.StageLoad, logging.StageFilter, logging.StageFeatures,
		logging.StageTrain, logging.StageExport, logging.StageRegistry,
	}, names)
}

func TestRun_Idempotent(t *testing.T) {
	a, _, _, err := runOn(t, filepath.Join("testdata", "medals.csv"))
	require.NoError(t, err)
	b, _, _, err := runOn(t, filepath.Join("testdata", "medals.csv"))
	require.NoError(t, err)

	assert.Equal(t, a.Artifact.Graph, b.Artifact.Graph)
	assert.Equal(t, a.Outcome.Split, b.Outcome.Split)
	assert.NotEqual(t, a.RunID, b.RunID)
}
// #endregion run-tests

// #region failure-tests
func TestRun_MissingColumnWritesNothing(t *testing.T) {
	p := writeCSV(t, "Age,Gender,NOC,Discipline,Sport,Medal\n20,M,USA,D,S,Gold\n21,F,CHN,D,S,Silver\n")
	_, out, _, err := runOn(t, p)
	require.Error(t, err)
	assert.ErrorIs(t, err, dataset.ErrMissingColumn)
	assertNoArtifacts(t, out)
}

func TestRun_SingletonClassWritesNothing(t *testing.T) {
	var b strings.Builder
	b.WriteString("Age,Gender,NOC,Discipline,Sport,Rank,Medal\n")
	for i, m := range []string{"Gold", "Gold", "Silver", "Silver", "Bronze"} {
		b.WriteString("2" + string(rune('0'+i)) + ",M,USA,D,S,1," + m + "\n")
	}
	_, out, _, err := runOn(t, writeCSV(t, b.String()))
	require.Error(t, err)

	var ice *trainer.InsufficientClassSamplesError
	require.True(t, errors.As(err, &ice))
	assert.Equal(t, "Bronze", ice.Class)
	assert.Equal(t, 1, ice.Count)
	assertNoArtifacts(t, out)
}

func TestRun_NoLabeledRecords(t *testing.T) {
	p := writeCSV(t, "Age,Gender,NOC,Discipline,Sport,Rank,Medal\n20,M,USA,D,S,1,\n21,F,CHN,D,S,2,NA\n")
	_, out, _, err := runOn(t, p)
	assert.ErrorIs(t, err, dataset.ErrMissingData)
	assertNoArtifacts(t, out)
}

func TestRun_MissingDatasetFile(t *testing.T) {
	_, out, _, err := runOn(t, filepath.Join(t.TempDir(), "absent.csv"))
	assert.Error(t, err)
	assertNoArtifacts(t, out)
}

func TestRun_RegistryFailureIsNotFatal(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "runs.db")
	require.NoError(t, os.MkdirAll(dbPath, 0o755)) // a directory cannot be opened as a database

	sum, out, _, err := runWith(t, config.Config{DatasetPath: filepath.Join("testdata", "medals.csv"), Registry: dbPath})
	require.NoError(t, err)
	assert.False(t, sum.Recorded)
	assert.FileExists(t, filepath.Join(out, export.GraphFile))
	assert.FileExists(t, filepath.Join(out, export.ClassesFile))
}

func TestRun_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	out := filepath.Join(t.TempDir(), "model")
	r := NewRunner(config.Config{DatasetPath: filepath.Join("testdata", "medals.csv"), OutDir: out}, quietLogger(), nil)
	_, err := r.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assertNoArtifacts(t, out)
}
// #endregion failure-tests
