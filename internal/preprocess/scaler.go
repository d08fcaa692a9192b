package preprocess

import (
	"math"

	"github.com/danielpatrickdp/medalfit/internal/features"
	"gonum.org/v1/gonum/stat"
)

// #region scaler
// Scaler divides each numeric column by its population standard deviation.
// There is no mean-centering, so zero entries stay zero.
type Scaler struct {
	columns []string
	scale   []float64
}

// NewScaler creates a scaler over the numeric columns, in Vector.Numeric order.
func NewScaler(columns []string) *Scaler {
	return &Scaler{columns: append([]string(nil), columns...)}
}

func (s *Scaler) Kind() features.Kind { return features.Numeric }
func (s *Scaler) Columns() []string   { return s.columns }
func (s *Scaler) Width() int          { return len(s.columns) }

// Fit computes one scale factor per column. A constant column gets factor 1.
func (s *Scaler) Fit(rows []features.Vector) error {
	if len(rows) == 0 {
		return ErrEmptyFit
	}
	s.scale = make([]float64, len(s.columns))
	col := make([]float64, len(rows))
	for j := range s.columns {
		for i, r := range rows {
			col[i] = r.Numeric[j]
		}
		_, variance := stat.PopMeanVariance(col, nil)
		sd := math.Sqrt(variance)
		if sd == 0 || math.IsNaN(sd) || math.IsInf(sd, 0) {
			sd = 1
		}
		s.scale[j] = sd
	}
	return nil
}

// Apply writes x/scale per column.
func (s *Scaler) Apply(v features.Vector, dst []float64) {
	for j := range s.columns {
		dst[j] = v.Numeric[j] / s.scale[j]
	}
}

// Scales returns a copy of the fitted scale factors.
func (s *Scaler) Scales() []float64 {
	return append([]float64(nil), s.scale...)
}

func (s *Scaler) Segments() []Segment {
	out := make([]Segment, len(s.columns))
	for j, c := range s.columns {
		out[j] = Segment{Column: c, Kind: features.Numeric, Offset: j, Width: 1}
	}
	return out
}
// #endregion scaler
