// Package onnx encodes and decodes the subset of the ONNX ModelProto schema
// used by exported classifier graphs. Field numbers follow onnx.proto3; the
// wire format is plain protobuf, so files open in any ONNX runtime.
package onnx

// #region enums
// DataType is TensorProto.DataType.
type DataType int32

const (
	Undefined DataType = 0
	Float     DataType = 1
	Int64     DataType = 7
	String    DataType = 8
	Double    DataType = 11
)

func (d DataType) String() string {
	switch d {
	case Float:
		return "float"
	case Int64:
		return "int64"
	case String:
		return "string"
	case Double:
		return "double"
	}
	return "undefined"
}

// AttributeType is AttributeProto.AttributeType.
type AttributeType int32

const (
	AttrFloat   AttributeType = 1
	AttrInt     AttributeType = 2
	AttrString  AttributeType = 3
	AttrTensor  AttributeType = 4
	AttrFloats  AttributeType = 6
	AttrInts    AttributeType = 7
	AttrStrings AttributeType = 8
)

// Domains used by exported graphs.
const (
	DomainDefault = ""
	DomainML      = "ai.onnx.ml"
)
// #endregion enums

// #region messages
// Model is ModelProto.
type Model struct {
	IRVersion       int64
	OpsetImports    []OperatorSet
	ProducerName    string
	ProducerVersion string
	Domain          string
	ModelVersion    int64
	DocString       string
	Graph           *Graph
	Metadata        []StringPair
}

// OperatorSet is OperatorSetIdProto.
type OperatorSet struct {
	Domain  string
	Version int64
}

// StringPair is StringStringEntryProto.
type StringPair struct {
	Key   string
	Value string
}

// Graph is GraphProto.
type Graph struct {
	Name         string
	Nodes        []Node
	Initializers []Tensor
	DocString    string
	Inputs       []ValueInfo
	Outputs      []ValueInfo
}

// Node is NodeProto.
type Node struct {
	Inputs     []string
	Outputs    []string
	Name       string
	OpType     string
	Domain     string
	Attributes []Attribute
}

// Attribute is AttributeProto. Only the field matching Type is meaningful.
type Attribute struct {
	Name    string
	Type    AttributeType
	F       float32
	I       int64
	S       []byte
	T       *Tensor
	Floats  []float32
	Ints    []int64
	Strings [][]byte
}

// Tensor is TensorProto with typed data fields (raw_data is read, never written).
type Tensor struct {
	Dims       []int64
	DataType   DataType
	FloatData  []float32
	Int64Data  []int64
	StringData [][]byte
	Name       string
}

// ValueInfo is ValueInfoProto restricted to tensor types.
type ValueInfo struct {
	Name     string
	ElemType DataType
	Shape    []Dim
}

// Dim is TensorShapeProto.Dimension: a fixed size or a symbolic name.
type Dim struct {
	Value int64
	Param string
}
// #endregion messages

// #region lookups
// Opset returns the imported version of domain, or 0.
func (m *Model) Opset(domain string) int64 {
	for _, o := range m.OpsetImports {
		if o.Domain == domain {
			return o.Version
		}
	}
	return 0
}

// Initializer returns the named initializer.
func (g *Graph) Initializer(name string) (*Tensor, bool) {
	for i := range g.Initializers {
		if g.Initializers[i].Name == name {
			return &g.Initializers[i], true
		}
	}
	return nil, false
}

// Attr returns the named attribute.
func (n *Node) Attr(name string) (*Attribute, bool) {
	for i := range n.Attributes {
		if n.Attributes[i].Name == name {
			return &n.Attributes[i], true
		}
	}
	return nil, false
}

// StringList returns Strings as Go strings.
func (a *Attribute) StringList() []string {
	out := make([]string, len(a.Strings))
	for i, s := range a.Strings {
		out[i] = string(s)
	}
	return out
}
// #endregion lookups

// #region builders
// IntAttr builds an INT attribute.
func IntAttr(name string, v int64) Attribute {
	return Attribute{Name: name, Type: AttrInt, I: v}
}

// FloatAttr builds a FLOAT attribute.
func FloatAttr(name string, v float32) Attribute {
	return Attribute{Name: name, Type: AttrFloat, F: v}
}

// StringsAttr builds a STRINGS attribute.
func StringsAttr(name string, vs []string) Attribute {
	out := make([][]byte, len(vs))
	for i, v := range vs {
		out[i] = []byte(v)
	}
	return Attribute{Name: name, Type: AttrStrings, Strings: out}
}

// FloatsAttr builds a FLOATS attribute.
func FloatsAttr(name string, vs []float32) Attribute {
	return Attribute{Name: name, Type: AttrFloats, Floats: vs}
}

// FloatTensor builds a float initializer.
func FloatTensor(name string, dims []int64, data []float32) Tensor {
	return Tensor{Name: name, Dims: dims, DataType: Float, FloatData: data}
}

// Int64Tensor builds an int64 initializer.
func Int64Tensor(name string, dims []int64, data []int64) Tensor {
	return Tensor{Name: name, Dims: dims, DataType: Int64, Int64Data: data}
}

// TensorInput declares a graph input or output.
func TensorInput(name string, elem DataType, shape ...Dim) ValueInfo {
	return ValueInfo{Name: name, ElemType: elem, Shape: shape}
}
// #endregion builders
