package features

import "fmt"

// InsufficientDataError is returned when a numeric column has no parseable
// value to derive a median from.
type InsufficientDataError struct {
	Column string
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient data: numeric column %s has no values to derive a median", e.Column)
}
