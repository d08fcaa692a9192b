package inference

import (
	"fmt"
	"math"

	"github.com/danielpatrickdp/medalfit/internal/onnx"
)

// kernel evaluates one node over its resolved inputs.
type kernel func(n *onnx.Node, in []Tensor) ([]Tensor, error)

// #region registry
type opKey struct {
	domain string
	op     string
}

var kernels = map[opKey]kernel{
	{onnx.DomainDefault, "Concat"}:   concatOp,
	{onnx.DomainDefault, "Div"}:      binaryOp(func(a, b float32) float32 { return a / b }),
	{onnx.DomainDefault, "Add"}:      binaryOp(func(a, b float32) float32 { return a + b }),
	{onnx.DomainDefault, "MatMul"}:   matMulOp,
	{onnx.DomainDefault, "Reshape"}:  reshapeOp,
	{onnx.DomainDefault, "Softmax"}:  softmaxOp,
	{onnx.DomainML, "OneHotEncoder"}: oneHotOp,
}

func lookup(n *onnx.Node) (kernel, bool) {
	k, ok := kernels[opKey{n.Domain, n.OpType}]
	if !ok && n.Domain == "ai.onnx" {
		k, ok = kernels[opKey{onnx.DomainDefault, n.OpType}]
	}
	return k, ok
}

func intAttr(n *onnx.Node, name string, fallback int64) int64 {
	if a, ok := n.Attr(name); ok {
		return a.I
	}
	return fallback
}

func arity(in []Tensor, want int) error {
	if len(in) != want {
		return fmt.Errorf("%w: want %d inputs, got %d", ErrShape, want, len(in))
	}
	return nil
}

func requireFloat(ts ...Tensor) error {
	for _, t := range ts {
		if t.Type != onnx.Float {
			return fmt.Errorf("%w: expected float tensor, got %s", ErrUnsupportedOp, t.Type)
		}
	}
	return nil
}
// #endregion registry

// #region concat
func concatOp(n *onnx.Node, in []Tensor) ([]Tensor, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: concat of nothing", ErrShape)
	}
	if err := requireFloat(in...); err != nil {
		return nil, err
	}
	a, ok := n.Attr("axis")
	if !ok {
		return nil, fmt.Errorf("%w: concat requires axis", ErrShape)
	}
	rank := len(in[0].Shape)
	axis, err := normAxis(a.I, rank)
	if err != nil {
		return nil, err
	}

	shape := append([]int(nil), in[0].Shape...)
	shape[axis] = 0
	for _, t := range in {
		if len(t.Shape) != rank {
			return nil, fmt.Errorf("%w: concat rank %d vs %d", ErrShape, len(t.Shape), rank)
		}
		for d := range t.Shape {
			if d != axis && t.Shape[d] != in[0].Shape[d] {
				return nil, fmt.Errorf("%w: concat dim %d is %d vs %d", ErrShape, d, t.Shape[d], in[0].Shape[d])
			}
		}
		shape[axis] += t.Shape[axis]
	}

	outer := product(shape[:axis])
	out := make([]float32, 0, product(shape))
	for o := 0; o < outer; o++ {
		for _, t := range in {
			chunk := product(t.Shape[axis:])
			out = append(out, t.Floats[o*chunk:(o+1)*chunk]...)
		}
	}
	return []Tensor{FloatTensor(shape, out)}, nil
}
// #endregion concat

// #region elementwise
// binaryOp applies f with multidirectional (numpy) broadcasting.
func binaryOp(f func(a, b float32) float32) kernel {
	return func(n *onnx.Node, in []Tensor) ([]Tensor, error) {
		if err := arity(in, 2); err != nil {
			return nil, err
		}
		a, b := in[0], in[1]
		if err := requireFloat(a, b); err != nil {
			return nil, err
		}
		rank := max(len(a.Shape), len(b.Shape))
		as, bs := padShape(a.Shape, rank), padShape(b.Shape, rank)
		shape := make([]int, rank)
		for d := 0; d < rank; d++ {
			switch {
			case as[d] == bs[d], bs[d] == 1:
				shape[d] = as[d]
			case as[d] == 1:
				shape[d] = bs[d]
			default:
				return nil, fmt.Errorf("%w: cannot broadcast %v with %v", ErrShape, a.Shape, b.Shape)
			}
		}
		astr, bstr := broadcastStrides(as), broadcastStrides(bs)
		out := make([]float32, product(shape))
		idx := make([]int, rank)
		for i := range out {
			ai, bi := 0, 0
			for d := 0; d < rank; d++ {
				ai += idx[d] * astr[d]
				bi += idx[d] * bstr[d]
			}
			out[i] = f(a.Floats[ai], b.Floats[bi])
			for d := rank - 1; d >= 0; d-- {
				idx[d]++
				if idx[d] < shape[d] {
					break
				}
				idx[d] = 0
			}
		}
		return []Tensor{FloatTensor(shape, out)}, nil
	}
}

func padShape(s []int, rank int) []int {
	out := make([]int, rank)
	for i := range out {
		out[i] = 1
	}
	copy(out[rank-len(s):], s)
	return out
}

// broadcastStrides gives row-major strides with 0 for size-1 dims.
func broadcastStrides(s []int) []int {
	st := make([]int, len(s))
	acc := 1
	for d := len(s) - 1; d >= 0; d-- {
		if s[d] != 1 {
			st[d] = acc
		}
		acc *= s[d]
	}
	return st
}
// #endregion elementwise

// #region matmul
func matMulOp(n *onnx.Node, in []Tensor) ([]Tensor, error) {
	if err := arity(in, 2); err != nil {
		return nil, err
	}
	a, b := in[0], in[1]
	if err := requireFloat(a, b); err != nil {
		return nil, err
	}
	if len(a.Shape) != 2 || len(b.Shape) != 2 {
		return nil, fmt.Errorf("%w: matmul supports rank 2 only, got %v x %v", ErrUnsupportedOp, a.Shape, b.Shape)
	}
	rows, inner, cols := a.Shape[0], a.Shape[1], b.Shape[1]
	if b.Shape[0] != inner {
		return nil, fmt.Errorf("%w: matmul %v x %v", ErrShape, a.Shape, b.Shape)
	}
	out := make([]float32, rows*cols)
	for i := 0; i < rows; i++ {
		for k := 0; k < inner; k++ {
			x := a.Floats[i*inner+k]
			if x == 0 {
				continue
			}
			for j := 0; j < cols; j++ {
				out[i*cols+j] += x * b.Floats[k*cols+j]
			}
		}
	}
	return []Tensor{FloatTensor([]int{rows, cols}, out)}, nil
}
// #endregion matmul

// #region reshape
func reshapeOp(n *onnx.Node, in []Tensor) ([]Tensor, error) {
	if err := arity(in, 2); err != nil {
		return nil, err
	}
	data, spec := in[0], in[1]
	if spec.Type != onnx.Int64 {
		return nil, fmt.Errorf("%w: reshape shape must be int64", ErrShape)
	}
	shape := make([]int, len(spec.Int64s))
	infer := -1
	known := 1
	for i, d := range spec.Int64s {
		switch {
		case d == -1:
			if infer >= 0 {
				return nil, fmt.Errorf("%w: reshape has more than one -1", ErrShape)
			}
			infer = i
			continue
		case d == 0:
			if i >= len(data.Shape) {
				return nil, fmt.Errorf("%w: reshape copies missing dim %d", ErrShape, i)
			}
			shape[i] = data.Shape[i]
		case d < 0:
			return nil, fmt.Errorf("%w: reshape dim %d", ErrShape, d)
		default:
			shape[i] = int(d)
		}
		known *= shape[i]
	}
	size := data.Size()
	if infer >= 0 {
		if known == 0 || size%known != 0 {
			return nil, fmt.Errorf("%w: cannot reshape %v to %v", ErrShape, data.Shape, spec.Int64s)
		}
		shape[infer] = size / known
	} else if known != size {
		return nil, fmt.Errorf("%w: cannot reshape %v to %v", ErrShape, data.Shape, spec.Int64s)
	}
	out := data
	out.Shape = shape
	return []Tensor{out}, nil
}
// #endregion reshape

// #region onehot
// oneHotOp appends a category axis to its string input. With zeros=1 an
// unknown category yields an all-zero vector.
func oneHotOp(n *onnx.Node, in []Tensor) ([]Tensor, error) {
	if err := arity(in, 1); err != nil {
		return nil, err
	}
	x := in[0]
	if x.Type != onnx.String {
		return nil, fmt.Errorf("%w: OneHotEncoder supports string input only", ErrUnsupportedOp)
	}
	cats, ok := n.Attr("cats_strings")
	if !ok {
		return nil, fmt.Errorf("%w: OneHotEncoder without cats_strings", ErrUnsupportedOp)
	}
	index := make(map[string]int, len(cats.Strings))
	for k, c := range cats.StringList() {
		index[c] = k
	}
	zeros := intAttr(n, "zeros", 1)

	k := len(cats.Strings)
	out := make([]float32, len(x.Strings)*k)
	for i, s := range x.Strings {
		j, ok := index[s]
		if !ok {
			if zeros == 0 {
				return nil, fmt.Errorf("%w: unknown category %q", ErrInvalidInput, s)
			}
			continue
		}
		out[i*k+j] = 1
	}
	shape := append(append([]int(nil), x.Shape...), k)
	return []Tensor{FloatTensor(shape, out)}, nil
}
// #endregion onehot

// #region softmax
func softmaxOp(n *onnx.Node, in []Tensor) ([]Tensor, error) {
	if err := arity(in, 1); err != nil {
		return nil, err
	}
	x := in[0]
	if err := requireFloat(x); err != nil {
		return nil, err
	}
	axis, err := normAxis(intAttr(n, "axis", -1), len(x.Shape))
	if err != nil {
		return nil, err
	}
	outer, width, inner := product(x.Shape[:axis]), x.Shape[axis], product(x.Shape[axis+1:])
	out := make([]float32, len(x.Floats))
	for o := 0; o < outer; o++ {
		for j := 0; j < inner; j++ {
			at := func(c int) int { return (o*width+c)*inner + j }
			m := math.Inf(-1)
			for c := 0; c < width; c++ {
				m = math.Max(m, float64(x.Floats[at(c)]))
			}
			sum := 0.0
			for c := 0; c < width; c++ {
				sum += math.Exp(float64(x.Floats[at(c)]) - m)
			}
			for c := 0; c < width; c++ {
				out[at(c)] = float32(math.Exp(float64(x.Floats[at(c)])-m) / sum)
			}
		}
	}
	return []Tensor{FloatTensor(append([]int(nil), x.Shape...), out)}, nil
}
// #endregion softmax
