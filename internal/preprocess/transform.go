// Package preprocess maps feature vectors to a fixed-width numeric matrix.
// A Preprocessor is an ordered list of column-group transforms; the order of
// the list is the column order of the output matrix.
package preprocess

import (
	"errors"

	"github.com/danielpatrickdp/medalfit/internal/features"
)

// ErrNotFitted is returned when a transform is used before Fit.
var ErrNotFitted = errors.New("preprocessor not fitted")

// ErrEmptyFit is returned when Fit receives no rows.
var ErrEmptyFit = errors.New("fit on empty data")

// #region transform
// Transform is the capability set shared by every column-group transform.
type Transform interface {
	Kind() features.Kind
	Columns() []string
	Fit(rows []features.Vector) error
	// Width is the number of output columns; valid after Fit.
	Width() int
	// Apply writes the row encoding into dst, which has length Width().
	Apply(v features.Vector, dst []float64)
	// Segments describes the output columns in order, relative to this block.
	Segments() []Segment
}

// Segment is a contiguous run of output columns produced from one input column.
type Segment struct {
	Column string
	Kind   features.Kind
	Offset int
	Width  int
}
// #endregion transform
