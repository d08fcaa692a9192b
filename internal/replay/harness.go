// Package replay re-trains a recorded run and checks that the result matches
// what the registry holds. Training is deterministic, so any difference means
// the data or the code changed since the run was recorded.
package replay

import (
	"bytes"
	"fmt"
	"slices"

	"github.com/danielpatrickdp/medalfit/internal/dataset"
	"github.com/danielpatrickdp/medalfit/internal/export"
	"github.com/danielpatrickdp/medalfit/internal/features"
	"github.com/danielpatrickdp/medalfit/internal/registry"
	"github.com/danielpatrickdp/medalfit/internal/trainer"
)

// #region types
// Result compares one recorded run with its re-trained counterpart.
type Result struct {
	RunID   string
	Dataset string
	Match   bool
	Diffs   []string
}
// #endregion types

// #region replay
// Replay re-trains the run from its dataset, or from datasetPath when it is
// non-empty, and compares sizes, classes and the serialized graph.
func Replay(reg *registry.Registry, runID, datasetPath string) (Result, error) {
	run, err := reg.Get(runID)
	if err != nil {
		return Result{}, err
	}
	recorded, err := reg.Graph(runID)
	if err != nil {
		return Result{}, err
	}
	if datasetPath == "" {
		datasetPath = run.Dataset
	}

	t, err := dataset.LoadCSV(datasetPath)
	if err != nil {
		return Result{}, fmt.Errorf("load dataset: %w", err)
	}
	spec := features.DefaultColumnSpec()
	labeled, err := dataset.FilterLabeled(t, spec.Target)
	if err != nil {
		return Result{}, fmt.Errorf("filter: %w", err)
	}
	res, err := features.Build(labeled, spec)
	if err != nil {
		return Result{}, fmt.Errorf("features: %w", err)
	}
	outcome, err := trainer.Train(res, spec, trainer.DefaultOptions())
	if err != nil {
		return Result{}, fmt.Errorf("train: %w", err)
	}
	a, err := export.Build(outcome.Model)
	if err != nil {
		return Result{}, fmt.Errorf("export: %w", err)
	}

	out := Result{RunID: runID, Dataset: datasetPath}
	diff := func(format string, args ...any) {
		out.Diffs = append(out.Diffs, fmt.Sprintf(format, args...))
	}
	if t.Len() != run.RecordsIn {
		diff("records_in: recorded %d, replayed %d", run.RecordsIn, t.Len())
	}
	if res.Len() != run.RecordsUsed {
		diff("records_used: recorded %d, replayed %d", run.RecordsUsed, res.Len())
	}
	if outcome.TrainSize != run.TrainSize || outcome.TestSize != run.TestSize {
		diff("split: recorded %d/%d, replayed %d/%d", run.TrainSize, run.TestSize, outcome.TrainSize, outcome.TestSize)
	}
	if !slices.Equal(a.Classes, run.Classes) {
		diff("classes: recorded %v, replayed %v", run.Classes, a.Classes)
	}
	if recorded == nil {
		diff("graph: no snapshot recorded")
	} else if !bytes.Equal(recorded, a.Graph) {
		diff("graph: recorded %d bytes and replayed %d bytes differ", len(recorded), len(a.Graph))
	}
	out.Match = len(out.Diffs) == 0
	return out, nil
}
// #endregion replay
