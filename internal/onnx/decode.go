package onnx

import (
	"errors"
	"fmt"
	"math"

	"google.golang.org/protobuf/encoding/protowire"
)

// ErrWireType is returned when a known field arrives with an unexpected wire type.
var ErrWireType = errors.New("unexpected wire type")

// #region unmarshal
// Unmarshal parses a serialized ModelProto. Unknown fields are skipped.
func Unmarshal(b []byte) (*Model, error) {
	m := &Model{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			v, n, err := varint(typ, b)
			m.IRVersion = int64(v)
			return n, err
		case 2:
			return str(typ, b, &m.ProducerName)
		case 3:
			return str(typ, b, &m.ProducerVersion)
		case 4:
			return str(typ, b, &m.Domain)
		case 5:
			v, n, err := varint(typ, b)
			m.ModelVersion = int64(v)
			return n, err
		case 6:
			return str(typ, b, &m.DocString)
		case 7:
			return message(typ, b, func(mb []byte) error {
				g, err := unmarshalGraph(mb)
				m.Graph = g
				return err
			})
		case 8:
			return message(typ, b, func(mb []byte) error {
				var o OperatorSet
				err := walk(mb, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					switch num {
					case 1:
						return str(typ, b, &o.Domain)
					case 2:
						v, n, err := varint(typ, b)
						o.Version = int64(v)
						return n, err
					}
					return 0, nil
				})
				m.OpsetImports = append(m.OpsetImports, o)
				return err
			})
		case 14:
			return message(typ, b, func(mb []byte) error {
				var kv StringPair
				err := walk(mb, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					switch num {
					case 1:
						return str(typ, b, &kv.Key)
					case 2:
						return str(typ, b, &kv.Value)
					}
					return 0, nil
				})
				m.Metadata = append(m.Metadata, kv)
				return err
			})
		}
		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("unmarshal model: %w", err)
	}
	return m, nil
}
// #endregion unmarshal

// #region messages
func unmarshalGraph(b []byte) (*Graph, error) {
	g := &Graph{}
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return message(typ, b, func(mb []byte) error {
				n, err := unmarshalNode(mb)
				g.Nodes = append(g.Nodes, n)
				return err
			})
		case 2:
			return str(typ, b, &g.Name)
		case 5:
			return message(typ, b, func(mb []byte) error {
				t, err := unmarshalTensor(mb)
				g.Initializers = append(g.Initializers, t)
				return err
			})
		case 10:
			return str(typ, b, &g.DocString)
		case 11, 12:
			return message(typ, b, func(mb []byte) error {
				v, err := unmarshalValueInfo(mb)
				if num == 11 {
					g.Inputs = append(g.Inputs, v)
				} else {
					g.Outputs = append(g.Outputs, v)
				}
				return err
			})
		}
		return 0, nil
	})
	if err != nil {
		return nil, fmt.Errorf("graph: %w", err)
	}
	return g, nil
}

func unmarshalNode(b []byte) (Node, error) {
	var n Node
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			var s string
			c, err := str(typ, b, &s)
			n.Inputs = append(n.Inputs, s)
			return c, err
		case 2:
			var s string
			c, err := str(typ, b, &s)
			n.Outputs = append(n.Outputs, s)
			return c, err
		case 3:
			return str(typ, b, &n.Name)
		case 4:
			return str(typ, b, &n.OpType)
		case 5:
			return message(typ, b, func(mb []byte) error {
				a, err := unmarshalAttribute(mb)
				n.Attributes = append(n.Attributes, a)
				return err
			})
		case 7:
			return str(typ, b, &n.Domain)
		}
		return 0, nil
	})
	if err != nil {
		return Node{}, fmt.Errorf("node: %w", err)
	}
	return n, nil
}

func unmarshalAttribute(b []byte) (Attribute, error) {
	var a Attribute
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return str(typ, b, &a.Name)
		case 2:
			if typ != protowire.Fixed32Type {
				return 0, fmt.Errorf("attribute f: %w", ErrWireType)
			}
			v, n := protowire.ConsumeFixed32(b)
			a.F = math.Float32frombits(v)
			return n, nil
		case 3:
			v, n, err := varint(typ, b)
			a.I = int64(v)
			return n, err
		case 4:
			var s string
			n, err := str(typ, b, &s)
			a.S = []byte(s)
			return n, err
		case 5:
			return message(typ, b, func(mb []byte) error {
				t, err := unmarshalTensor(mb)
				a.T = &t
				return err
			})
		case 7:
			return floats(typ, b, &a.Floats)
		case 8:
			return ints(typ, b, &a.Ints)
		case 9:
			var s string
			n, err := str(typ, b, &s)
			a.Strings = append(a.Strings, []byte(s))
			return n, err
		case 20:
			v, n, err := varint(typ, b)
			a.Type = AttributeType(v)
			return n, err
		}
		return 0, nil
	})
	return a, err
}

func unmarshalTensor(b []byte) (Tensor, error) {
	var t Tensor
	var raw []byte
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return ints(typ, b, &t.Dims)
		case 2:
			v, n, err := varint(typ, b)
			t.DataType = DataType(v)
			return n, err
		case 4:
			return floats(typ, b, &t.FloatData)
		case 6:
			var s string
			n, err := str(typ, b, &s)
			t.StringData = append(t.StringData, []byte(s))
			return n, err
		case 7:
			return ints(typ, b, &t.Int64Data)
		case 8:
			return str(typ, b, &t.Name)
		case 9:
			var s string
			n, err := str(typ, b, &s)
			raw = []byte(s)
			return n, err
		}
		return 0, nil
	})
	if err != nil {
		return Tensor{}, fmt.Errorf("tensor: %w", err)
	}
	if len(raw) > 0 {
		if err := decodeRaw(&t, raw); err != nil {
			return Tensor{}, fmt.Errorf("tensor %s: %w", t.Name, err)
		}
	}
	return t, nil
}

func unmarshalValueInfo(b []byte) (ValueInfo, error) {
	var v ValueInfo
	err := walk(b, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
		switch num {
		case 1:
			return str(typ, b, &v.Name)
		case 2:
			// TypeProto -> tensor_type
			return message(typ, b, func(tb []byte) error {
				return walk(tb, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
					if num != 1 {
						return 0, nil
					}
					return message(typ, b, func(eb []byte) error {
						return walk(eb, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
							switch num {
							case 1:
								e, n, err := varint(typ, b)
								v.ElemType = DataType(e)
								return n, err
							case 2:
								return message(typ, b, func(sb []byte) error {
									return walk(sb, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
										if num != 1 {
											return 0, nil
										}
										return message(typ, b, func(db []byte) error {
											var d Dim
											err := walk(db, func(num protowire.Number, typ protowire.Type, b []byte) (int, error) {
												switch num {
												case 1:
													x, n, err := varint(typ, b)
													d.Value = int64(x)
													return n, err
												case 2:
													return str(typ, b, &d.Param)
												}
												return 0, nil
											})
											v.Shape = append(v.Shape, d)
											return err
										})
									})
								})
							}
							return 0, nil
						})
					})
				})
			})
		}
		return 0, nil
	})
	return v, err
}

func decodeRaw(t *Tensor, raw []byte) error {
	switch t.DataType {
	case Float:
		if len(raw)%4 != 0 {
			return fmt.Errorf("raw float data length %d", len(raw))
		}
		for i := 0; i < len(raw); i += 4 {
			bits := uint32(raw[i]) | uint32(raw[i+1])<<8 | uint32(raw[i+2])<<16 | uint32(raw[i+3])<<24
			t.FloatData = append(t.FloatData, math.Float32frombits(bits))
		}
	case Int64:
		if len(raw)%8 != 0 {
			return fmt.Errorf("raw int64 data length %d", len(raw))
		}
		for i := 0; i < len(raw); i += 8 {
			var u uint64
			for k := 7; k >= 0; k-- {
				u = u<<8 | uint64(raw[i+k])
			}
			t.Int64Data = append(t.Int64Data, int64(u))
		}
	default:
		return fmt.Errorf("raw data for %s", t.DataType)
	}
	return nil
}
// #endregion messages

// #region wire-helpers
type fieldFunc func(num protowire.Number, typ protowire.Type, b []byte) (int, error)

// walk visits every field of a message. fn returns the bytes it consumed,
// or 0 to have the field skipped.
func walk(b []byte, fn fieldFunc) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		m, err := fn(num, typ, b)
		if err != nil {
			return err
		}
		if m == 0 {
			m = protowire.ConsumeFieldValue(num, typ, b)
		}
		if m < 0 {
			return protowire.ParseError(m)
		}
		b = b[m:]
	}
	return nil
}

func varint(typ protowire.Type, b []byte) (uint64, int, error) {
	if typ != protowire.VarintType {
		return 0, 0, ErrWireType
	}
	v, n := protowire.ConsumeVarint(b)
	if n < 0 {
		return 0, 0, protowire.ParseError(n)
	}
	return v, n, nil
}

func str(typ protowire.Type, b []byte, dst *string) (int, error) {
	if typ != protowire.BytesType {
		return 0, ErrWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	*dst = string(v)
	return n, nil
}

func message(typ protowire.Type, b []byte, fn func([]byte) error) (int, error) {
	if typ != protowire.BytesType {
		return 0, ErrWireType
	}
	v, n := protowire.ConsumeBytes(b)
	if n < 0 {
		return 0, protowire.ParseError(n)
	}
	return n, fn(v)
}

// ints reads a repeated int64 field in packed or unpacked form.
func ints(typ protowire.Type, b []byte, dst *[]int64) (int, error) {
	switch typ {
	case protowire.VarintType:
		v, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		*dst = append(*dst, int64(v))
		return n, nil
	case protowire.BytesType:
		p, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		for len(p) > 0 {
			v, k := protowire.ConsumeVarint(p)
			if k < 0 {
				return 0, protowire.ParseError(k)
			}
			*dst = append(*dst, int64(v))
			p = p[k:]
		}
		return n, nil
	}
	return 0, ErrWireType
}

// floats reads a repeated float field in packed or unpacked form.
func floats(typ protowire.Type, b []byte, dst *[]float32) (int, error) {
	switch typ {
	case protowire.Fixed32Type:
		v, n := protowire.ConsumeFixed32(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		*dst = append(*dst, math.Float32frombits(v))
		return n, nil
	case protowire.BytesType:
		p, n := protowire.ConsumeBytes(b)
		if n < 0 {
			return 0, protowire.ParseError(n)
		}
		for len(p) > 0 {
			v, k := protowire.ConsumeFixed32(p)
			if k < 0 {
				return 0, protowire.ParseError(k)
			}
			*dst = append(*dst, math.Float32frombits(v))
			p = p[k:]
		}
		return n, nil
	}
	return 0, ErrWireType
}
// #endregion wire-helpers
