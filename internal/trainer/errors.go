package trainer

import "fmt"

// InsufficientClassSamplesError is returned when a class has too few
// examples to appear in both splits.
type InsufficientClassSamplesError struct {
	Class string
	Count int
}

func (e *InsufficientClassSamplesError) Error() string {
	return fmt.Sprintf("insufficient class samples: class %q has %d example(s), stratified split needs at least 2", e.Class, e.Count)
}
