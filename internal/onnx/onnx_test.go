package onnx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
)

// #region helpers
func sampleModel() *Model {
	return &Model{
		IRVersion:    8,
		ProducerName: "medalfit",
		OpsetImports: []OperatorSet{{Domain: DomainDefault, Version: 17}, {Domain: DomainML, Version: 1}},
		Graph: &Graph{
			Name: "g",
			Nodes: []Node{
				{
					OpType:  "OneHotEncoder",
					Domain:  DomainML,
					Name:    "ohe",
					Inputs:  []string{"NOC"},
					Outputs: []string{"noc_oh"},
					Attributes: []Attribute{
						StringsAttr("cats_strings", []string{"CHN", "", "USA"}),
						IntAttr("zeros", 1),
					},
				},
				{
					OpType:     "Softmax",
					Inputs:     []string{"z"},
					Outputs:    []string{"p"},
					Attributes: []Attribute{IntAttr("axis", 1), FloatAttr("alpha", 0.5), FloatsAttr("w", []float32{1, -2.5})},
				},
			},
			Initializers: []Tensor{
				FloatTensor("coef", []int64{2, 3}, []float32{1, 2, 3, 4, 5, 6}),
				Int64Tensor("shape", []int64{2}, []int64{-1, 3}),
			},
			Inputs:  []ValueInfo{TensorInput("NOC", String, Dim{Param: "N"}, Dim{Value: 1})},
			Outputs: []ValueInfo{TensorInput("p", Float, Dim{Param: "N"}, Dim{Value: 3})},
		},
		Metadata: []StringPair{{Key: "classes", Value: `["a","b"]`}},
	}
}
// #endregion helpers

// #region codec-tests
func TestMarshalUnmarshal_PreservesModel(t *testing.T) {
	want := sampleModel()
	got, err := Unmarshal(Marshal(want))
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestMarshal_Deterministic(t *testing.T) {
	assert.Equal(t, Marshal(sampleModel()), Marshal(sampleModel()))
}

func TestUnmarshal_SkipsUnknownFields(t *testing.T) {
	b := Marshal(sampleModel())
	b = protowire.AppendTag(b, 99, protowire.BytesType)
	b = protowire.AppendString(b, "future")
	b = protowire.AppendTag(b, 98, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)

	got, err := Unmarshal(b)
	require.NoError(t, err)
	assert.Equal(t, int64(17), got.Opset(DomainDefault))
	assert.Equal(t, int64(1), got.Opset(DomainML))
	assert.Equal(t, int64(0), got.Opset("other"))
}

func TestUnmarshal_UnpackedAndRawTensorData(t *testing.T) {
	// dims written unpacked, float payload in raw_data
	var tb []byte
	tb = protowire.AppendTag(tb, 1, protowire.VarintType)
	tb = protowire.AppendVarint(tb, 2)
	tb = protowire.AppendTag(tb, 2, protowire.VarintType)
	tb = protowire.AppendVarint(tb, uint64(Float))
	tb = protowire.AppendTag(tb, 8, protowire.BytesType)
	tb = protowire.AppendString(tb, "w")
	tb = protowire.AppendTag(tb, 9, protowire.BytesType)
	tb = protowire.AppendBytes(tb, []byte{0, 0, 0x80, 0x3f, 0, 0, 0, 0x40}) // 1.0, 2.0

	var gb []byte
	gb = protowire.AppendTag(gb, 5, protowire.BytesType)
	gb = protowire.AppendBytes(gb, tb)

	var mb []byte
	mb = protowire.AppendTag(mb, 7, protowire.BytesType)
	mb = protowire.AppendBytes(mb, gb)

	m, err := Unmarshal(mb)
	require.NoError(t, err)
	w, ok := m.Graph.Initializer("w")
	require.True(t, ok)
	assert.Equal(t, []int64{2}, w.Dims)
	assert.Equal(t, []float32{1, 2}, w.FloatData)
}

func TestUnmarshal_Truncated(t *testing.T) {
	b := Marshal(sampleModel())
	_, err := Unmarshal(b[:len(b)-3])
	require.Error(t, err)
}

func TestUnmarshal_WrongWireType(t *testing.T) {
	var b []byte
	b = protowire.AppendTag(b, 2, protowire.VarintType) // producer_name must be bytes
	b = protowire.AppendVarint(b, 1)
	_, err := Unmarshal(b)
	assert.ErrorIs(t, err, ErrWireType)
}
// #endregion codec-tests

// #region lookup-tests
func TestLookups(t *testing.T) {
	m := sampleModel()
	n := m.Graph.Nodes[0]
	a, ok := n.Attr("cats_strings")
	require.True(t, ok)
	assert.Equal(t, []string{"CHN", "", "USA"}, a.StringList())
	_, ok = n.Attr("missing")
	assert.False(t, ok)

	_, ok = m.Graph.Initializer("nope")
	assert.False(t, ok)
	assert.Equal(t, "string", String.String())
}
// #endregion lookup-tests
