package dataset

import "strings"

// #region record
// Record is one data row of the source table. Index is the 0-based data row
// position in the source and identifies the record across filtering stages.
type Record struct {
	Index int
	cells map[string]string
}

// NewRecord builds a record from a column->value map.
func NewRecord(index int, cells map[string]string) Record {
	c := make(map[string]string, len(cells))
	for k, v := range cells {
		c[k] = v
	}
	return Record{Index: index, cells: c}
}

// Get returns the trimmed cell value and true when the value is present (not missing).
func (r Record) Get(col string) (string, bool) {
	v, ok := r.cells[col]
	if !ok || IsMissing(v) {
		return "", false
	}
	return strings.TrimSpace(v), true
}

// Raw returns the untrimmed cell and whether the row carries the column at all.
func (r Record) Raw(col string) (string, bool) {
	v, ok := r.cells[col]
	return v, ok
}
// #endregion record

// #region table
// Table is a header plus its records, in source order.
type Table struct {
	Columns []string
	Records []Record
}

// HasColumn reports whether the header declares col.
func (t Table) HasColumn(col string) bool {
	for _, c := range t.Columns {
		if c == col {
			return true
		}
	}
	return false
}

// Len returns the number of records.
func (t Table) Len() int {
	return len(t.Records)
}
// #endregion table

// #region missing
// naValues mirrors the default NA markers of common CSV readers.
var naValues = map[string]bool{
	"":     true,
	"NA":   true,
	"N/A":  true,
	"n/a":  true,
	"NaN":  true,
	"nan":  true,
	"-NaN": true,
	"-nan": true,
	"null": true,
	"NULL": true,
	"None": true,
	"<NA>": true,
	"#N/A": true,
}

// IsMissing reports whether a raw cell value counts as missing.
func IsMissing(v string) bool {
	return naValues[strings.TrimSpace(v)]
}
// #endregion missing
