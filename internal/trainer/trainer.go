package trainer

import (
	"fmt"

	"github.com/danielpatrickdp/medalfit/internal/classifier"
	"github.com/danielpatrickdp/medalfit/internal/eval"
	"github.com/danielpatrickdp/medalfit/internal/features"
	"github.com/danielpatrickdp/medalfit/internal/preprocess"
)

// #region options
// Options are the compiled-in training settings.
type Options struct {
	TestRatio  float64
	Seed       int64
	Classifier classifier.Config
}

// DefaultOptions returns an 80/20 split with seed 42.
func DefaultOptions() Options {
	return Options{
		TestRatio:  0.2,
		Seed:       42,
		Classifier: classifier.DefaultConfig(),
	}
}
// #endregion options

// #region model
// Model is the fitted preprocessor plus classifier. It is not modified after
// Train returns.
type Model struct {
	Spec         features.ColumnSpec
	Preprocessor *preprocess.Preprocessor
	Classifier   *classifier.Model
}

// Classes returns the sorted class list; index i is output position i.
func (m *Model) Classes() []string {
	return m.Classifier.Classes()
}

// PredictProba encodes v and returns its class distribution.
func (m *Model) PredictProba(v features.Vector) ([]float64, error) {
	x, err := m.Preprocessor.TransformOne(v)
	if err != nil {
		return nil, err
	}
	return m.Classifier.PredictProba(x), nil
}
// #endregion model

// #region outcome
// Outcome is everything a training run produces.
type Outcome struct {
	Model     *Model
	Report    eval.Report
	Warning   *classifier.ConvergenceWarning // nil when the solver converged
	Split     Split
	TrainSize int
	TestSize  int
}
// #endregion outcome

// #region train
// Train splits res, fits the preprocessor and classifier on the training
// rows only, and evaluates on the held-out rows.
func Train(res features.Result, spec features.ColumnSpec, opts Options) (*Outcome, error) {
	if len(res.Vectors) != len(res.Labels) {
		return nil, fmt.Errorf("train: %d vectors but %d labels", len(res.Vectors), len(res.Labels))
	}

	split, err := StratifiedSplit(res.Labels, opts.TestRatio, opts.Seed)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}

	classes := res.Classes()
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}

	pick := func(idx []int) ([]features.Vector, []int) {
		rows := make([]features.Vector, len(idx))
		y := make([]int, len(idx))
		for i, j := range idx {
			rows[i] = res.Vectors[j]
			y[i] = classIdx[res.Labels[j]]
		}
		return rows, y
	}
	trainRows, yTrain := pick(split.Train)
	testRows, yTest := pick(split.Test)

	pre := preprocess.New(spec)
	if err := pre.Fit(trainRows); err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	xTrain, err := pre.Transform(trainRows)
	if err != nil {
		return nil, fmt.Errorf("transform train: %w", err)
	}

	clf, warn, err := classifier.Fit(xTrain, yTrain, classes, opts.Classifier)
	if err != nil {
		return nil, fmt.Errorf("classifier: %w", err)
	}

	xTest, err := pre.Transform(testRows)
	if err != nil {
		return nil, fmt.Errorf("transform test: %w", err)
	}
	report := eval.Evaluate(yTest, clf.PredictAll(xTest), classes)
	if warn != nil {
		report.Warnings = append(report.Warnings, warn.Error())
	}

	return &Outcome{
		Model: &Model{
			Spec:         spec,
			Preprocessor: pre,
			Classifier:   clf,
		},
		Report:    report,
		Warning:   warn,
		Split:     split,
		TrainSize: len(trainRows),
		TestSize:  len(testRows),
	}, nil
}
// #endregion train
