// Package pipeline runs one training job end to end: load, filter, build
// features, train, report, export and, when a registry is configured, record.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/danielpatrickdp/medalfit/internal/config"
	"github.com/danielpatrickdp/medalfit/internal/dataset"
	"github.com/danielpatrickdp/medalfit/internal/export"
	"github.com/danielpatrickdp/medalfit/internal/features"
	"github.com/danielpatrickdp/medalfit/internal/logging"
	"github.com/danielpatrickdp/medalfit/internal/registry"
	"github.com/danielpatrickdp/medalfit/internal/trainer"
	"github.com/google/uuid"
)

// #region types
// Summary describes a finished run.
type Summary struct {
	RunID       string
	RecordsIn   int
	RecordsUsed int
	Unlabeled   int
	Dropped     int
	Imputed     map[string]int
	Medians     map[string]float64
	Outcome     *trainer.Outcome
	Artifact    export.Artifact
	Paths       export.Paths
	Recorded    bool // false when recording is off or the registry write failed
}

// Runner wires the stages together. It is single-use per Run call and holds
// no state between runs.
type Runner struct {
	cfg     config.Config
	spec    features.ColumnSpec
	opts    trainer.Options
	logger  *slog.Logger
	out     io.Writer
	stages  []logging.StageEntry
	runID   string
	started time.Time
}

// NewRunner builds a runner with the compiled-in column spec and options.
// The classification report is written to out.
func NewRunner(cfg config.Config, logger *slog.Logger, out io.Writer) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:    cfg,
		spec:   features.DefaultColumnSpec(),
		opts:   trainer.DefaultOptions(),
		logger: logger,
		out:    out,
	}
}
// #endregion types

// #region run
// Run loads the configured dataset and trains on it.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if err := r.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	r.reset()

	t, err := dataset.LoadCSV(r.cfg.DatasetPath)
	if err != nil {
		return nil, fmt.Errorf("load dataset: %w", err)
	}
	r.stage(logging.StageLoad, "records", t.Len(), "columns", len(t.Columns))
	return r.run(ctx, t)
}

func (r *Runner) run(ctx context.Context, t dataset.Table) (*Summary, error) {
	sum := &Summary{RunID: r.runID, RecordsIn: t.Len()}

	labeled, err := dataset.FilterLabeled(t, r.spec.Target)
	if err != nil {
		return nil, fmt.Errorf("filter: %w", err)
	}
	sum.Unlabeled = t.Len() - labeled.Len()
	r.stage(logging.StageFilter, "kept", labeled.Len(), "unlabeled", sum.Unlabeled)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	res, err := features.Build(labeled, r.spec)
	if err != nil {
		return nil, fmt.Errorf("features: %w", err)
	}
	sum.RecordsUsed = res.Len()
	sum.Dropped = res.Dropped
	sum.Imputed = res.Imputed
	sum.Medians = res.Medians
	r.stage(logging.StageFeatures, "used", res.Len(), "dropped", res.Dropped, "imputed", res.Imputed)
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	outcome, err := trainer.Train(res, r.spec, r.opts)
	if err != nil {
		return nil, fmt.Errorf("train: %w", err)
	}
	sum.Outcome = outcome
	if outcome.Warning != nil {
		r.logger.Warn("solver did not converge", "stage", logging.StageTrain,
			"iterations", outcome.Warning.Iterations, "status", outcome.Warning.Status.String())
	}
	r.stage(logging.StageTrain, "train", outcome.TrainSize, "test", outcome.TestSize,
		"classes", len(outcome.Model.Classes()), "accuracy", outcome.Report.Accuracy)
	if r.out != nil {
		fmt.Fprintln(r.out, outcome.Report.String())
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifact, paths, err := export.Export(outcome.Model, r.cfg.OutDir)
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	sum.Artifact, sum.Paths = artifact, paths
	r.stage(logging.StageExport, "graph", paths.Graph, "classes", paths.Classes, "bytes", len(artifact.Graph))

	if r.cfg.Recording() {
		sum.Recorded = r.record(sum)
	}
	return sum, nil
}
// #endregion run

// #region record
// record writes the run and its stage log to the configured registry.
// Failures are logged only: the artifacts on disk are already complete.
func (r *Runner) record(sum *Summary) bool {
	reg, err := registry.Open(r.cfg.Registry)
	if err != nil {
		r.logger.Warn("registry unavailable", "stage", logging.StageRegistry, "error", err)
		return false
	}
	defer reg.Close()

	model := sum.Outcome.Model
	scales := map[string]float64{}
	for i, col := range model.Spec.Numeric {
		scales[col] = model.Preprocessor.Scaler().Scales()[i]
	}
	vocab := map[string][]string{}
	for _, col := range model.Spec.Categorical {
		vocab[col] = model.Preprocessor.OneHot().Vocabulary(col)
	}

	_, err = reg.Record(registry.Run{
		RunID:       sum.RunID,
		CreatedAt:   r.started,
		Dataset:     r.cfg.DatasetPath,
		RecordsIn:   sum.RecordsIn,
		RecordsUsed: sum.RecordsUsed,
		TrainSize:   sum.Outcome.TrainSize,
		TestSize:    sum.Outcome.TestSize,
		Classes:     sum.Artifact.Classes,
		Scales:      scales,
		Vocabulary:  vocab,
		Report:      sum.Outcome.Report,
		Warnings:    sum.Outcome.Report.Warnings,
	}, sum.Artifact.Graph)
	if err != nil {
		r.logger.Warn("registry write failed", "stage", logging.StageRegistry, "error", err)
		return false
	}
	r.stage(logging.StageRegistry, "run_id", sum.RunID)

	for _, e := range r.stages {
		if err := logging.LogStage(reg.DB(), e); err != nil {
			r.logger.Warn("stage log write failed", "stage", e.Stage, "error", err)
			break
		}
	}
	return true
}
// #endregion record

// #region helpers
func (r *Runner) reset() {
	r.runID = uuid.New().String()
	r.started = time.Now().UTC()
	r.stages = nil
}

// stage logs a finished stage and keeps it for the stage log. kv alternates
// keys and values.
func (r *Runner) stage(name string, kv ...any) {
	r.logger.Info("stage done", append([]any{"stage", name, "run_id", r.runID}, kv...)...)

	detail := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			detail[k] = kv[i+1]
		}
	}
	raw, err := json.Marshal(detail)
	if err != nil {
		raw = nil
	}
	r.stages = append(r.stages, logging.StageEntry{
		RunID:     r.runID,
		Stage:     name,
		Detail:    string(raw),
		CreatedAt: time.Now().UTC(),
	})
}
// #endregion helpers
