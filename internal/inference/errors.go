package inference

import (
	"errors"
	"fmt"
)

var (
	ErrUnsupportedOp = errors.New("unsupported operator")
	ErrShape         = errors.New("shape mismatch")
	ErrMissingInput  = errors.New("missing input")
	ErrInvalidInput  = errors.New("invalid input")
	ErrClassList     = errors.New("invalid class list")
)

// NodeError wraps a kernel failure with the node that raised it.
type NodeError struct {
	Node   string
	OpType string
	Err    error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("node %s (%s): %v", e.Node, e.OpType, e.Err)
}

func (e *NodeError) Unwrap() error { return e.Err }
