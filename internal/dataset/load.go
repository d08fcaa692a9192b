package dataset

import (
	"bufio"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"
)

// #region load
// LoadCSV reads a header-first CSV file into a Table.
func LoadCSV(path string) (Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return Table{}, fmt.Errorf("open dataset %s: %w", path, err)
	}
	defer f.Close()

	t, err := ReadCSV(bufio.NewReader(f))
	if err != nil {
		return Table{}, fmt.Errorf("read dataset %s: %w", path, err)
	}
	return t, nil
}

// ReadCSV parses CSV from r. Short rows leave trailing columns absent (missing).
func ReadCSV(r io.Reader) (Table, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	header, err := reader.Read()
	if err == io.EOF {
		return Table{}, fmt.Errorf("empty input: %w", ErrMissingData)
	}
	if err != nil {
		return Table{}, fmt.Errorf("read header: %w", err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	t := Table{Columns: header}
	for idx := 0; ; idx++ {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return Table{}, fmt.Errorf("read row %d: %w", idx, err)
		}
		cells := make(map[string]string, len(header))
		for j, col := range header {
			if j < len(row) {
				cells[col] = row[j]
			}
		}
		t.Records = append(t.Records, Record{Index: idx, cells: cells})
	}
	return t, nil
}
// #endregion load
