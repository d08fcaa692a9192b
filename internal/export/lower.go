package export

import (
	"errors"
	"fmt"

	"github.com/danielpatrickdp/medalfit/internal/features"
	"github.com/danielpatrickdp/medalfit/internal/onnx"
	"github.com/danielpatrickdp/medalfit/internal/trainer"
)

// #region constants
const (
	IRVersion     = 8
	OpsetDefault  = 17
	OpsetML       = 1
	ProducerName  = "medalfit"
	OutputName    = "probabilities"
	BatchDimParam = "N"
)

// ErrLayout is returned when the preprocessor layout cannot be lowered.
var ErrLayout = errors.New("unsupported feature layout")
// #endregion constants

// #region lower
// Lower builds the inference graph for m: one input tensor per feature
// column, named after the column, and a single [N, C] probability output.
// Output position i is the probability of m.Classes()[i]. Class label
// strings are not embedded.
func Lower(m *trainer.Model) (*onnx.Model, error) {
	pre := m.Preprocessor
	scaler, oh := pre.Scaler(), pre.OneHot()
	if scaler == nil || oh == nil {
		return nil, fmt.Errorf("%w: missing numeric or categorical step", ErrLayout)
	}
	w := m.Classifier.Weights()
	c, d := w.Dims()
	if d != pre.Width() {
		return nil, fmt.Errorf("%w: classifier expects %d features, preprocessor yields %d", ErrLayout, d, pre.Width())
	}

	g := &onnx.Graph{Name: "medal_classifier"}
	batch := onnx.Dim{Param: BatchDimParam}

	var numeric, categorical []string
	for _, seg := range pre.Layout() {
		switch seg.Kind {
		case features.Numeric:
			if len(categorical) > 0 {
				return nil, fmt.Errorf("%w: numeric column %s after categorical columns", ErrLayout, seg.Column)
			}
			g.Inputs = append(g.Inputs, onnx.TensorInput(seg.Column, onnx.Float, batch, onnx.Dim{Value: 1}))
			numeric = append(numeric, seg.Column)
		case features.Categorical:
			g.Inputs = append(g.Inputs, onnx.TensorInput(seg.Column, onnx.String, batch, onnx.Dim{Value: 1}))
			categorical = append(categorical, seg.Column)
		default:
			return nil, fmt.Errorf("%w: column %s kind %q", ErrLayout, seg.Column, seg.Kind)
		}
	}

	var parts []string
	if len(numeric) > 0 {
		parts = append(parts, lowerScaler(g, numeric, scaler.Scales()))
	}
	for _, col := range categorical {
		parts = append(parts, lowerOneHot(g, col, oh.Vocabulary(col)))
	}

	g.Nodes = append(g.Nodes, onnx.Node{
		Name:       "concat_features",
		OpType:     "Concat",
		Inputs:     parts,
		Outputs:    []string{"features"},
		Attributes: []onnx.Attribute{onnx.IntAttr("axis", 1)},
	})

	// coef is W^T so that features [N,D] x coef [D,C] -> [N,C]
	coef := make([]float32, d*c)
	for i := 0; i < d; i++ {
		for k := 0; k < c; k++ {
			coef[i*c+k] = float32(w.At(k, i))
		}
	}
	bias := m.Classifier.Biases()
	intercept := make([]float32, c)
	for k, b := range bias {
		intercept[k] = float32(b)
	}
	g.Initializers = append(g.Initializers,
		onnx.FloatTensor("coef", []int64{int64(d), int64(c)}, coef),
		onnx.FloatTensor("intercept", []int64{int64(c)}, intercept),
	)
	g.Nodes = append(g.Nodes,
		onnx.Node{Name: "linear", OpType: "MatMul", Inputs: []string{"features", "coef"}, Outputs: []string{"scores"}},
		onnx.Node{Name: "bias", OpType: "Add", Inputs: []string{"scores", "intercept"}, Outputs: []string{"logits"}},
		onnx.Node{
			Name:       "softmax",
			OpType:     "Softmax",
			Inputs:     []string{"logits"},
			Outputs:    []string{OutputName},
			Attributes: []onnx.Attribute{onnx.IntAttr("axis", 1)},
		},
	)
	g.Outputs = []onnx.ValueInfo{onnx.TensorInput(OutputName, onnx.Float, batch, onnx.Dim{Value: int64(c)})}

	return &onnx.Model{
		IRVersion:    IRVersion,
		ProducerName: ProducerName,
		OpsetImports: []onnx.OperatorSet{
			{Domain: onnx.DomainDefault, Version: OpsetDefault},
			{Domain: onnx.DomainML, Version: OpsetML},
		},
		Graph: g,
	}, nil
}

// lowerScaler concatenates the numeric inputs and divides by the fitted scales.
func lowerScaler(g *onnx.Graph, cols []string, scales []float64) string {
	s := make([]float32, len(scales))
	for i, v := range scales {
		s[i] = float32(v)
	}
	g.Initializers = append(g.Initializers, onnx.FloatTensor("num_scale", []int64{int64(len(s))}, s))
	g.Nodes = append(g.Nodes,
		onnx.Node{
			Name:       "concat_numeric",
			OpType:     "Concat",
			Inputs:     append([]string(nil), cols...),
			Outputs:    []string{"num_concat"},
			Attributes: []onnx.Attribute{onnx.IntAttr("axis", 1)},
		},
		onnx.Node{Name: "scale_numeric", OpType: "Div", Inputs: []string{"num_concat", "num_scale"}, Outputs: []string{"num_scaled"}},
	)
	return "num_scaled"
}

// lowerOneHot encodes one categorical input to a [N, K] block. zeros=1 makes
// unknown categories produce an all-zero row instead of failing.
func lowerOneHot(g *onnx.Graph, col string, vocab []string) string {
	encoded, shape, block := col+"_onehot", col+"_shape", col+"_block"
	g.Initializers = append(g.Initializers, onnx.Int64Tensor(shape, []int64{2}, []int64{-1, int64(len(vocab))}))
	g.Nodes = append(g.Nodes,
		onnx.Node{
			Name:    "onehot_" + col,
			OpType:  "OneHotEncoder",
			Domain:  onnx.DomainML,
			Inputs:  []string{col},
			Outputs: []string{encoded},
			Attributes: []onnx.Attribute{
				onnx.StringsAttr("cats_strings", vocab),
				onnx.IntAttr("zeros", 1),
			},
		},
		onnx.Node{Name: "reshape_" + col, OpType: "Reshape", Inputs: []string{encoded, shape}, Outputs: []string{block}},
	)
	return block
}
// #endregion lower
