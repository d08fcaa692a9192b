package features

import (
	"fmt"
	"math"
	"sort"
	"strconv"

	"github.com/danielpatrickdp/medalfit/internal/dataset"
)

// #region build
// Build turns a labeled table into feature vectors and aligned labels.
// Numeric medians are taken over every record in t before any record is
// dropped for a missing categorical value.
func Build(t dataset.Table, spec ColumnSpec) (Result, error) {
	for _, col := range append([]string{spec.Target}, spec.Columns()...) {
		if !t.HasColumn(col) {
			return Result{}, dataset.MissingColumnError(col)
		}
	}

	n := t.Len()
	numeric := make([][]float64, len(spec.Numeric))
	present := make([][]bool, len(spec.Numeric))
	medians := make(map[string]float64, len(spec.Numeric))
	imputed := make(map[string]int, len(spec.Numeric))

	// pass 1: parse and take medians
	for j, col := range spec.Numeric {
		numeric[j] = make([]float64, n)
		present[j] = make([]bool, n)
		var seen []float64
		for i, rec := range t.Records {
			v, ok := parseFloat(rec, col)
			if !ok {
				continue
			}
			numeric[j][i] = v
			present[j][i] = true
			seen = append(seen, v)
		}
		if len(seen) == 0 {
			return Result{}, &InsufficientDataError{Column: col}
		}
		medians[col] = Median(seen)
	}

	// pass 2: fill
	for j, col := range spec.Numeric {
		for i := range numeric[j] {
			if !present[j][i] {
				numeric[j][i] = medians[col]
				imputed[col]++
			}
		}
	}

	// labels keyed by record identity
	labelOf := make(map[int]string, n)
	for _, rec := range t.Records {
		if v, ok := rec.Get(spec.Target); ok {
			labelOf[rec.Index] = v
		}
	}

	res := Result{
		Numeric:     append([]string(nil), spec.Numeric...),
		Categorical: append([]string(nil), spec.Categorical...),
		Medians:     medians,
		Imputed:     imputed,
	}

	for i, rec := range t.Records {
		cats, ok := categoricals(rec, spec.Categorical)
		if !ok {
			res.Dropped++
			continue
		}
		label, ok := labelOf[rec.Index]
		if !ok {
			return Result{}, fmt.Errorf("record %d has no %s: %w", rec.Index, spec.Target, dataset.ErrMissingData)
		}
		nums := make([]float64, len(spec.Numeric))
		for j := range spec.Numeric {
			nums[j] = numeric[j][i]
		}
		res.Vectors = append(res.Vectors, Vector{Index: rec.Index, Numeric: nums, Categorical: cats})
		res.Labels = append(res.Labels, label)
	}

	if len(res.Vectors) == 0 {
		return Result{}, fmt.Errorf("no records with complete categorical features: %w", dataset.ErrMissingData)
	}
	return res, nil
}
// #endregion build

// #region helpers
func parseFloat(rec dataset.Record, col string) (float64, bool) {
	s, ok := rec.Get(col)
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsInf(v, 0) || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}

func categoricals(rec dataset.Record, cols []string) ([]string, bool) {
	out := make([]string, len(cols))
	for j, col := range cols {
		v, ok := rec.Get(col)
		if !ok {
			return nil, false
		}
		out[j] = v
	}
	return out, true
}

// Median returns the middle value of xs, averaging the two middle values
// for an even count. xs is not modified. Panics on empty input.
func Median(xs []float64) float64 {
	s := append([]float64(nil), xs...)
	sort.Float64s(s)
	mid := len(s) / 2
	if len(s)%2 == 0 {
		return (s[mid-1] + s[mid]) / 2
	}
	return s[mid]
}

// SortedClasses returns the distinct labels in lexicographic order.
func SortedClasses(labels []string) []string {
	set := make(map[string]struct{}, len(labels))
	for _, l := range labels {
		set[l] = struct{}{}
	}
	out := make([]string, 0, len(set))
	for l := range set {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
// #endregion helpers
