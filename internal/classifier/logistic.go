package classifier

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize"
)

// #region model
// Model is a fitted multinomial logistic regression. Row k of the weight
// matrix and bias k score classes[k].
type Model struct {
	classes []string
	weights *mat.Dense // C x D
	bias    []float64
}

// Classes returns the class labels in output order.
func (m *Model) Classes() []string { return append([]string(nil), m.classes...) }

// Weights returns a copy of the C x D weight matrix.
func (m *Model) Weights() *mat.Dense { return mat.DenseCopyOf(m.weights) }

// Biases returns a copy of the per-class intercepts.
func (m *Model) Biases() []float64 { return append([]float64(nil), m.bias...) }

// NumFeatures is the expected input width.
func (m *Model) NumFeatures() int {
	_, d := m.weights.Dims()
	return d
}

// PredictProba returns the softmax class distribution for one row.
func (m *Model) PredictProba(x []float64) []float64 {
	c, _ := m.weights.Dims()
	z := make([]float64, c)
	for k := 0; k < c; k++ {
		z[k] = floats.Dot(m.weights.RawRowView(k), x) + m.bias[k]
	}
	softmax(z)
	return z
}

// Predict returns the index of the most probable class.
func (m *Model) Predict(x []float64) int {
	return floats.MaxIdx(m.PredictProba(x))
}

// PredictAll returns the argmax class index for every row of x.
func (m *Model) PredictAll(x mat.Matrix) []int {
	r, _ := x.Dims()
	out := make([]int, r)
	row := make([]float64, m.NumFeatures())
	for i := 0; i < r; i++ {
		mat.Row(row, i, x)
		out[i] = m.Predict(row)
	}
	return out
}
// #endregion model

// #region fit
// Fit trains on x (n x D) with y[i] an index into classes. The objective is
// mean cross-entropy plus ||W||^2/(2*C*n); intercepts are not penalized.
// A non-nil ConvergenceWarning accompanies a usable model that hit the
// iteration budget or stalled in the line search. A solver that never left
// the starting point, or a non-finite objective, is ErrNoProgress.
func Fit(x mat.Matrix, y []int, classes []string, cfg Config) (*Model, *ConvergenceWarning, error) {
	n, d := x.Dims()
	if n != len(y) {
		return nil, nil, fmt.Errorf("fit: %d rows but %d labels", n, len(y))
	}
	c := len(classes)
	if c < 2 {
		return nil, nil, ErrSingleClass
	}
	for i, k := range y {
		if k < 0 || k >= c {
			return nil, nil, fmt.Errorf("fit: label %d of row %d out of range", k, i)
		}
	}
	if cfg.C <= 0 {
		cfg.C = DefaultConfig().C
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = DefaultConfig().MaxIterations
	}

	obj := &objective{
		x:      mat.DenseCopyOf(x),
		y:      y,
		n:      n,
		d:      d,
		c:      c,
		lambda: 1 / (cfg.C * float64(n)),
	}

	problem := optimize.Problem{
		Func: obj.value,
		Grad: obj.gradient,
	}
	settings := &optimize.Settings{
		MajorIterations:   cfg.MaxIterations,
		GradientThreshold: cfg.GradientTolerance,
		Converger: &optimize.FunctionConverge{
			Absolute:   1e-12,
			Relative:   1e-12,
			Iterations: 50,
		},
	}

	x0 := make([]float64, c*d+c)
	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, nil, fmt.Errorf("minimize: %w", err)
	}

	if math.IsNaN(result.F) || math.IsInf(result.F, 0) {
		return nil, nil, fmt.Errorf("%w: objective is %v (%s)", ErrNoProgress, result.F, result.Status)
	}
	if err != nil && result.MajorIterations == 0 {
		return nil, nil, fmt.Errorf("%w: %v", ErrNoProgress, err)
	}

	var warn *ConvergenceWarning
	switch {
	case err != nil:
		warn = &ConvergenceWarning{Iterations: result.MajorIterations, Status: result.Status, Reason: err.Error()}
	case result.Status == optimize.IterationLimit || result.Status == optimize.FunctionEvaluationLimit:
		warn = &ConvergenceWarning{Iterations: result.MajorIterations, Status: result.Status}
	}

	params := result.X
	if floats.HasNaN(params) {
		return nil, nil, fmt.Errorf("minimize: non-finite parameters (%s)", result.Status)
	}
	return &Model{
		classes: append([]string(nil), classes...),
		weights: mat.NewDense(c, d, append([]float64(nil), params[:c*d]...)),
		bias:    append([]float64(nil), params[c*d:]...),
	}, warn, nil
}
// #endregion fit

// #region objective
type objective struct {
	x      *mat.Dense
	y      []int
	n, d   int
	c      int
	lambda float64
}

// residuals returns P - Y (n x c) and the mean cross-entropy at params.
func (o *objective) residuals(params []float64) (*mat.Dense, float64) {
	w := mat.NewDense(o.c, o.d, params[:o.c*o.d])
	b := params[o.c*o.d:]

	var z mat.Dense
	z.Mul(o.x, w.T())

	loss := 0.0
	for i := 0; i < o.n; i++ {
		row := z.RawRowView(i)
		floats.Add(row, b)
		lse := floats.LogSumExp(row)
		loss += lse - row[o.y[i]]
		for k := range row {
			row[k] = math.Exp(row[k] - lse)
		}
		row[o.y[i]] -= 1
	}
	return &z, loss / float64(o.n)
}

func (o *objective) value(params []float64) float64 {
	_, loss := o.residuals(params)
	wp := params[:o.c*o.d]
	return loss + 0.5*o.lambda*floats.Dot(wp, wp)
}

func (o *objective) gradient(grad, params []float64) {
	r, _ := o.residuals(params)
	inv := 1 / float64(o.n)

	// dW = (P-Y)^T X / n + lambda W
	gw := mat.NewDense(o.c, o.d, grad[:o.c*o.d])
	gw.Mul(r.T(), o.x)
	gw.Scale(inv, gw)
	floats.AddScaled(grad[:o.c*o.d], o.lambda, params[:o.c*o.d])

	gb := grad[o.c*o.d:]
	for k := range gb {
		gb[k] = inv * floats.Sum(mat.Col(nil, k, r))
	}
}
// #endregion objective

// #region helpers
func softmax(z []float64) {
	lse := floats.LogSumExp(z)
	for k := range z {
		z[k] = math.Exp(z[k] - lse)
	}
}
// #endregion helpers
