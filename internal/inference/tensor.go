package inference

import (
	"fmt"

	"github.com/danielpatrickdp/medalfit/internal/onnx"
)

// #region tensor
// Tensor is a dense row-major value flowing between graph nodes. Exactly one
// data slice is used, selected by Type.
type Tensor struct {
	Type    onnx.DataType
	Shape   []int
	Floats  []float32
	Int64s  []int64
	Strings []string
}

// FloatTensor builds a float tensor.
func FloatTensor(shape []int, data []float32) Tensor {
	return Tensor{Type: onnx.Float, Shape: shape, Floats: data}
}

// StringTensor builds a string tensor.
func StringTensor(shape []int, data []string) Tensor {
	return Tensor{Type: onnx.String, Shape: shape, Strings: data}
}

// Int64Tensor builds an int64 tensor.
func Int64Tensor(shape []int, data []int64) Tensor {
	return Tensor{Type: onnx.Int64, Shape: shape, Int64s: data}
}

// Size is the number of elements the shape describes.
func (t Tensor) Size() int {
	return product(t.Shape)
}

func (t Tensor) dataLen() int {
	switch t.Type {
	case onnx.Float:
		return len(t.Floats)
	case onnx.Int64:
		return len(t.Int64s)
	case onnx.String:
		return len(t.Strings)
	}
	return -1
}

func (t Tensor) check() error {
	if n := t.dataLen(); n != t.Size() {
		return fmt.Errorf("%w: shape %v holds %d elements, data has %d", ErrShape, t.Shape, t.Size(), n)
	}
	return nil
}

func fromProto(p *onnx.Tensor) (Tensor, error) {
	shape := make([]int, len(p.Dims))
	for i, d := range p.Dims {
		shape[i] = int(d)
	}
	var t Tensor
	switch p.DataType {
	case onnx.Float:
		t = FloatTensor(shape, p.FloatData)
	case onnx.Int64:
		t = Int64Tensor(shape, p.Int64Data)
	case onnx.String:
		s := make([]string, len(p.StringData))
		for i, b := range p.StringData {
			s[i] = string(b)
		}
		t = StringTensor(shape, s)
	default:
		return Tensor{}, fmt.Errorf("initializer %s: %w: data type %s", p.Name, ErrUnsupportedOp, p.DataType)
	}
	if err := t.check(); err != nil {
		return Tensor{}, fmt.Errorf("initializer %s: %w", p.Name, err)
	}
	return t, nil
}

func product(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

func normAxis(axis int64, rank int) (int, error) {
	a := int(axis)
	if a < 0 {
		a += rank
	}
	if a < 0 || a >= rank {
		return 0, fmt.Errorf("%w: axis %d out of range for rank %d", ErrShape, axis, rank)
	}
	return a, nil
}
// #endregion tensor
