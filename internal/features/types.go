package features

// #region column-spec
// Kind distinguishes numeric from categorical feature columns.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// ColumnSpec declares the target column and the feature columns, in order.
type ColumnSpec struct {
	Target      string
	Numeric     []string
	Categorical []string
}

// DefaultColumnSpec returns the fixed medal feature layout.
func DefaultColumnSpec() ColumnSpec {
	return ColumnSpec{
		Target:      "Medal",
		Numeric:     []string{"Age", "Rank"},
		Categorical: []string{"Gender", "NOC", "Discipline", "Sport"},
	}
}

// Columns returns all feature columns: numeric first, then categorical.
func (s ColumnSpec) Columns() []string {
	out := make([]string, 0, len(s.Numeric)+len(s.Categorical))
	out = append(out, s.Numeric...)
	return append(out, s.Categorical...)
}

// KindOf returns the kind of a declared feature column.
func (s ColumnSpec) KindOf(col string) (Kind, bool) {
	for _, c := range s.Numeric {
		if c == col {
			return Numeric, true
		}
	}
	for _, c := range s.Categorical {
		if c == col {
			return Categorical, true
		}
	}
	return "", false
}
// #endregion column-spec

// #region vector
// Vector is one record restricted to the ColumnSpec columns. Index is the source
// record identity it was built from.
type Vector struct {
	Index       int
	Numeric     []float64 // ColumnSpec.Numeric order
	Categorical []string  // ColumnSpec.Categorical order
}
// #endregion vector

// #region result
// Result is the FeatureBuilder output. Labels[i] belongs to Vectors[i].
type Result struct {
	Vectors     []Vector
	Labels      []string
	Numeric     []string
	Categorical []string
	Medians     map[string]float64 // fill value used per numeric column
	Imputed     map[string]int     // count of filled cells per numeric column
	Dropped     int                // records removed for a missing categorical value
}

// Len returns the number of surviving vectors.
func (r Result) Len() int {
	return len(r.Vectors)
}

// Classes returns the distinct labels sorted lexicographically.
func (r Result) Classes() []string {
	return SortedClasses(r.Labels)
}
// #endregion result
