package preprocess

import (
	"sort"

	"github.com/danielpatrickdp/medalfit/internal/features"
)

// #region onehot
// OneHot expands each categorical column into one indicator per category
// seen during Fit. A category outside the vocabulary encodes as all zeros.
type OneHot struct {
	columns []string
	vocab   [][]string
	index   []map[string]int
	offsets []int
	width   int
}

// NewOneHot creates an encoder over the categorical columns, in Vector.Categorical order.
func NewOneHot(columns []string) *OneHot {
	return &OneHot{columns: append([]string(nil), columns...)}
}

func (o *OneHot) Kind() features.Kind { return features.Categorical }
func (o *OneHot) Columns() []string   { return o.columns }
func (o *OneHot) Width() int          { return o.width }

// Fit records the sorted distinct categories of every column.
func (o *OneHot) Fit(rows []features.Vector) error {
	if len(rows) == 0 {
		return ErrEmptyFit
	}
	o.vocab = make([][]string, len(o.columns))
	o.index = make([]map[string]int, len(o.columns))
	o.offsets = make([]int, len(o.columns))
	o.width = 0
	for j := range o.columns {
		seen := map[string]struct{}{}
		for _, r := range rows {
			seen[r.Categorical[j]] = struct{}{}
		}
		cats := make([]string, 0, len(seen))
		for c := range seen {
			cats = append(cats, c)
		}
		sort.Strings(cats)

		idx := make(map[string]int, len(cats))
		for k, c := range cats {
			idx[c] = k
		}
		o.vocab[j] = cats
		o.index[j] = idx
		o.offsets[j] = o.width
		o.width += len(cats)
	}
	return nil
}

// Apply zeroes dst and sets the indicator of each known category.
func (o *OneHot) Apply(v features.Vector, dst []float64) {
	for i := range dst {
		dst[i] = 0
	}
	for j := range o.columns {
		if k, ok := o.index[j][v.Categorical[j]]; ok {
			dst[o.offsets[j]+k] = 1
		}
	}
}

// Vocabulary returns the fitted categories of col, or nil if col is unknown.
func (o *OneHot) Vocabulary(col string) []string {
	for j, c := range o.columns {
		if c == col && o.vocab != nil {
			return append([]string(nil), o.vocab[j]...)
		}
	}
	return nil
}

// Decode maps one column's block back to its category. It returns false for
// an all-zero block or a block that is not a single indicator.
func (o *OneHot) Decode(col string, block []float64) (string, bool) {
	if o.vocab == nil {
		return "", false
	}
	for j, c := range o.columns {
		if c != col {
			continue
		}
		hot := -1
		for k, x := range block {
			switch x {
			case 0:
			case 1:
				if hot >= 0 {
					return "", false
				}
				hot = k
			default:
				return "", false
			}
		}
		if hot < 0 || hot >= len(o.vocab[j]) {
			return "", false
		}
		return o.vocab[j][hot], true
	}
	return "", false
}

func (o *OneHot) Segments() []Segment {
	if o.vocab == nil {
		return nil
	}
	out := make([]Segment, len(o.columns))
	for j, c := range o.columns {
		out[j] = Segment{Column: c, Kind: features.Categorical, Offset: o.offsets[j], Width: len(o.vocab[j])}
	}
	return out
}
// #endregion onehot
