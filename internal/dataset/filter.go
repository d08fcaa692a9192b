package dataset

import "fmt"

// #region filter-labeled
// FilterLabeled keeps only the records whose target value is present.
// Unlabeled records must not reach feature statistics.
func FilterLabeled(t Table, target string) (Table, error) {
	if !t.HasColumn(target) {
		return Table{}, MissingColumnError(target)
	}

	out := Table{Columns: t.Columns}
	for _, rec := range t.Records {
		if _, ok := rec.Get(target); ok {
			out.Records = append(out.Records, rec)
		}
	}
	if len(out.Records) == 0 {
		return Table{}, fmt.Errorf("no records with %s: %w", target, ErrMissingData)
	}
	return out, nil
}
// #endregion filter-labeled
