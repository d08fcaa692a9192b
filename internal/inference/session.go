// Package inference evaluates exported classifier graphs without an external
// runtime. Session interprets the small operator set the exporter emits;
// Bundle couples a Session with its class list.
package inference

import (
	"fmt"

	"github.com/danielpatrickdp/medalfit/internal/onnx"
)

// #region session
// Session is a loaded graph ready to run. It is safe for concurrent use:
// Run keeps all intermediate values local.
type Session struct {
	graph  *onnx.Graph
	consts map[string]Tensor
}

// NewSession checks that every node is supported and decodes the initializers.
func NewSession(m *onnx.Model) (*Session, error) {
	if m == nil || m.Graph == nil {
		return nil, fmt.Errorf("new session: model has no graph")
	}
	g := m.Graph
	for i := range g.Nodes {
		n := &g.Nodes[i]
		if _, ok := lookup(n); !ok {
			return nil, fmt.Errorf("new session: node %s: %w: %s/%s", n.Name, ErrUnsupportedOp, n.Domain, n.OpType)
		}
		if n.Domain != onnx.DomainDefault && m.Opset(n.Domain) == 0 {
			return nil, fmt.Errorf("new session: node %s: domain %q not imported", n.Name, n.Domain)
		}
	}
	consts := make(map[string]Tensor, len(g.Initializers))
	for i := range g.Initializers {
		t, err := fromProto(&g.Initializers[i])
		if err != nil {
			return nil, fmt.Errorf("new session: %w", err)
		}
		consts[g.Initializers[i].Name] = t
	}
	return &Session{graph: g, consts: consts}, nil
}

// Inputs lists the graph inputs that are not initializers.
func (s *Session) Inputs() []onnx.ValueInfo {
	var out []onnx.ValueInfo
	for _, in := range s.graph.Inputs {
		if _, ok := s.consts[in.Name]; !ok {
			out = append(out, in)
		}
	}
	return out
}

// Run evaluates the graph in node order and returns every graph output.
func (s *Session) Run(feeds map[string]Tensor) (map[string]Tensor, error) {
	env := make(map[string]Tensor, len(s.consts)+len(feeds)+len(s.graph.Nodes))
	for k, v := range s.consts {
		env[k] = v
	}
	for _, in := range s.Inputs() {
		t, ok := feeds[in.Name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrMissingInput, in.Name)
		}
		if err := conforms(in, t); err != nil {
			return nil, fmt.Errorf("input %s: %w", in.Name, err)
		}
		env[in.Name] = t
	}

	for i := range s.graph.Nodes {
		n := &s.graph.Nodes[i]
		k, _ := lookup(n)
		args := make([]Tensor, 0, len(n.Inputs))
		for _, name := range n.Inputs {
			t, ok := env[name]
			if !ok {
				return nil, &NodeError{Node: n.Name, OpType: n.OpType, Err: fmt.Errorf("%w: value %s", ErrMissingInput, name)}
			}
			args = append(args, t)
		}
		outs, err := k(n, args)
		if err != nil {
			return nil, &NodeError{Node: n.Name, OpType: n.OpType, Err: err}
		}
		if len(outs) < len(n.Outputs) {
			return nil, &NodeError{Node: n.Name, OpType: n.OpType, Err: fmt.Errorf("%w: %d outputs declared, %d produced", ErrShape, len(n.Outputs), len(outs))}
		}
		for j, name := range n.Outputs {
			env[name] = outs[j]
		}
	}

	result := make(map[string]Tensor, len(s.graph.Outputs))
	for _, o := range s.graph.Outputs {
		t, ok := env[o.Name]
		if !ok {
			return nil, fmt.Errorf("output %s was never produced", o.Name)
		}
		result[o.Name] = t
	}
	return result, nil
}

// conforms checks element type, rank and fixed dimensions.
func conforms(vi onnx.ValueInfo, t Tensor) error {
	if t.Type != vi.ElemType {
		return fmt.Errorf("%w: type %s, want %s", ErrInvalidInput, t.Type, vi.ElemType)
	}
	if err := t.check(); err != nil {
		return err
	}
	if len(vi.Shape) == 0 {
		return nil
	}
	if len(t.Shape) != len(vi.Shape) {
		return fmt.Errorf("%w: rank %d, want %d", ErrShape, len(t.Shape), len(vi.Shape))
	}
	for d, dim := range vi.Shape {
		if dim.Param == "" && dim.Value > 0 && int64(t.Shape[d]) != dim.Value {
			return fmt.Errorf("%w: dim %d is %d, want %d", ErrShape, d, t.Shape[d], dim.Value)
		}
	}
	return nil
}
// #endregion session
