package dataset

import (
	"errors"
	"fmt"
)

// ErrMissingData is returned when no usable records remain.
var ErrMissingData = errors.New("missing data")

// ErrMissingColumn is returned when a required column is absent from the header.
var ErrMissingColumn = errors.New("missing column")

// MissingColumnError wraps ErrMissingColumn with the column name.
func MissingColumnError(col string) error {
	return fmt.Errorf("%w: %s", ErrMissingColumn, col)
}
