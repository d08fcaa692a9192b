package preprocess

import (
	"fmt"

	"github.com/danielpatrickdp/medalfit/internal/features"
	"gonum.org/v1/gonum/mat"
)

// #region preprocessor
// Step is one named column-group transform.
type Step struct {
	Name      string
	Transform Transform
}

// Preprocessor applies its steps independently and concatenates their
// outputs in step order.
type Preprocessor struct {
	steps  []Step
	fitted bool
}

// New builds the standard layout: scaled numeric columns, then one-hot
// categorical columns, each in declared order.
func New(spec features.ColumnSpec) *Preprocessor {
	return &Preprocessor{steps: []Step{
		{Name: "num", Transform: NewScaler(spec.Numeric)},
		{Name: "cat", Transform: NewOneHot(spec.Categorical)},
	}}
}

// Fit fits every step on the training rows.
func (p *Preprocessor) Fit(rows []features.Vector) error {
	for _, s := range p.steps {
		if err := s.Transform.Fit(rows); err != nil {
			return fmt.Errorf("fit %s: %w", s.Name, err)
		}
	}
	p.fitted = true
	return nil
}

// Width is the total number of output columns.
func (p *Preprocessor) Width() int {
	w := 0
	for _, s := range p.steps {
		w += s.Transform.Width()
	}
	return w
}

// Transform encodes rows into an n x Width() matrix.
func (p *Preprocessor) Transform(rows []features.Vector) (*mat.Dense, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("transform: %w", ErrEmptyFit)
	}
	w := p.Width()
	data := make([]float64, len(rows)*w)
	for i, r := range rows {
		p.encode(r, data[i*w:(i+1)*w])
	}
	return mat.NewDense(len(rows), w, data), nil
}

// TransformOne encodes a single row.
func (p *Preprocessor) TransformOne(v features.Vector) ([]float64, error) {
	if !p.fitted {
		return nil, ErrNotFitted
	}
	out := make([]float64, p.Width())
	p.encode(v, out)
	return out, nil
}

func (p *Preprocessor) encode(v features.Vector, dst []float64) {
	off := 0
	for _, s := range p.steps {
		w := s.Transform.Width()
		s.Transform.Apply(v, dst[off:off+w])
		off += w
	}
}

// Layout returns every output segment with absolute offsets.
func (p *Preprocessor) Layout() []Segment {
	var out []Segment
	off := 0
	for _, s := range p.steps {
		for _, seg := range s.Transform.Segments() {
			seg.Offset += off
			out = append(out, seg)
		}
		off += s.Transform.Width()
	}
	return out
}

// Scaler returns the numeric step.
func (p *Preprocessor) Scaler() *Scaler {
	for _, s := range p.steps {
		if sc, ok := s.Transform.(*Scaler); ok {
			return sc
		}
	}
	return nil
}

// OneHot returns the categorical step.
func (p *Preprocessor) OneHot() *OneHot {
	for _, s := range p.steps {
		if oh, ok := s.Transform.(*OneHot); ok {
			return oh
		}
	}
	return nil
}
// #endregion preprocessor
