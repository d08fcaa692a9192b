// Package classifier implements multinomial logistic regression.
package classifier

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/optimize"
)

// #region config
// Config holds solver settings.
type Config struct {
	C                 float64 // inverse L2 regularization strength
	MaxIterations     int     // major iteration budget of the solver
	GradientTolerance float64 // converged when the gradient infinity-norm drops below this
}

// DefaultConfig returns the compiled-in solver settings.
func DefaultConfig() Config {
	return Config{
		C:                 1.0,
		MaxIterations:     1000,
		GradientTolerance: 1e-4,
	}
}
// #endregion config

// #region errors
// ErrSingleClass is returned when the training labels contain fewer than two classes.
var ErrSingleClass = errors.New("need at least two classes")

// ErrNoProgress is returned when the solver produced no usable model.
var ErrNoProgress = errors.New("solver made no progress")

// ConvergenceWarning reports that the solver stopped before converging.
// The fitted model is still usable.
type ConvergenceWarning struct {
	Iterations int
	Status     optimize.Status
	Reason     string
}

func (w *ConvergenceWarning) Error() string {
	if w.Reason != "" {
		return fmt.Sprintf("solver did not converge after %d iterations (%s): %s", w.Iterations, w.Status, w.Reason)
	}
	return fmt.Sprintf("solver did not converge after %d iterations (%s)", w.Iterations, w.Status)
}
// #endregion errors
