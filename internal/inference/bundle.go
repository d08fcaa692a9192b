package inference

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/danielpatrickdp/medalfit/internal/export"
	"github.com/danielpatrickdp/medalfit/internal/onnx"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// #region schema
const classListSchemaURL = "schema://medal_classes.json"

const classListSchema = `{
	"type": "array",
	"minItems": 1,
	"uniqueItems": true,
	"items": {"type": "string"}
}`

var (
	compileOnce sync.Once
	compiled    *jsonschema.Schema
	compileErr  error
)

func classSchema() (*jsonschema.Schema, error) {
	compileOnce.Do(func() {
		var def any
		if err := json.Unmarshal([]byte(classListSchema), &def); err != nil {
			compileErr = fmt.Errorf("parse schema definition: %w", err)
			return
		}
		c := jsonschema.NewCompiler()
		if err := c.AddResource(classListSchemaURL, def); err != nil {
			compileErr = fmt.Errorf("add resource: %w", err)
			return
		}
		compiled, compileErr = c.Compile(classListSchemaURL)
	})
	return compiled, compileErr
}

// ValidateClassList checks raw JSON is a non-empty array of unique strings.
func ValidateClassList(raw []byte) error {
	var parsed any
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return fmt.Errorf("%w: invalid JSON: %v", ErrClassList, err)
	}
	sch, err := classSchema()
	if err != nil {
		return fmt.Errorf("compile class list schema: %w", err)
	}
	if err := sch.Validate(parsed); err != nil {
		return fmt.Errorf("%w: %v", ErrClassList, err)
	}
	return nil
}
// #endregion schema

// #region bundle
// Bundle is a runnable graph plus the class list naming its outputs.
type Bundle struct {
	session *Session
	classes []string
	inputs  []onnx.ValueInfo
}

// LoadBundle reads the graph and class list from dir. Both files must be
// present and consistent.
func LoadBundle(dir string) (*Bundle, error) {
	p := export.PathsIn(dir)
	raw, err := os.ReadFile(p.Classes)
	if err != nil {
		return nil, fmt.Errorf("read classes: %w", err)
	}
	if err := ValidateClassList(raw); err != nil {
		return nil, err
	}
	graph, err := os.ReadFile(p.Graph)
	if err != nil {
		return nil, fmt.Errorf("read graph: %w", err)
	}
	a, err := export.Decode(graph, raw)
	if err != nil {
		return nil, fmt.Errorf("load bundle: %w", err)
	}
	return NewBundle(a)
}

// NewBundle prepares an in-memory artifact for prediction.
func NewBundle(a export.Artifact) (*Bundle, error) {
	m, err := onnx.Unmarshal(a.Graph)
	if err != nil {
		return nil, fmt.Errorf("parse graph: %w", err)
	}
	width, err := export.OutputWidth(m)
	if err != nil {
		return nil, err
	}
	if width != len(a.Classes) {
		return nil, fmt.Errorf("%w: graph has %d outputs, %d classes", ErrClassList, width, len(a.Classes))
	}
	s, err := NewSession(m)
	if err != nil {
		return nil, err
	}
	return &Bundle{
		session: s,
		classes: append([]string(nil), a.Classes...),
		inputs:  s.Inputs(),
	}, nil
}

// Classes returns the class list; position i names output column i.
func (b *Bundle) Classes() []string {
	return append([]string(nil), b.classes...)
}

// Columns returns the expected input columns in graph order.
func (b *Bundle) Columns() []onnx.ValueInfo {
	return append([]onnx.ValueInfo(nil), b.inputs...)
}
// #endregion bundle

// #region predict
// Input is one row of raw feature values keyed by column name.
type Input struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// Score is one class with its probability.
type Score struct {
	Label       string
	Probability float64
}

// Prediction is the class distribution for one row and its argmax.
type Prediction struct {
	Label         string
	Index         int
	Probabilities []float64 // aligned with Classes
	Classes       []string
}

// Ranked returns the classes ordered by descending probability.
func (p Prediction) Ranked() []Score {
	out := make([]Score, len(p.Classes))
	for i, c := range p.Classes {
		out[i] = Score{Label: c, Probability: p.Probabilities[i]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Probability > out[j].Probability })
	return out
}

// Predict runs a single row.
func (b *Bundle) Predict(in Input) (Prediction, error) {
	ps, err := b.PredictBatch([]Input{in})
	if err != nil {
		return Prediction{}, err
	}
	return ps[0], nil
}

// PredictBatch runs rows as one [N, 1] tensor per column.
func (b *Bundle) PredictBatch(rows []Input) ([]Prediction, error) {
	if len(rows) == 0 {
		return nil, nil
	}
	feeds, err := b.feeds(rows)
	if err != nil {
		return nil, err
	}
	out, err := b.session.Run(feeds)
	if err != nil {
		return nil, fmt.Errorf("run graph: %w", err)
	}
	probs, ok := out[export.OutputName]
	if !ok || probs.Type != onnx.Float {
		return nil, fmt.Errorf("run graph: no %s output", export.OutputName)
	}
	c := len(b.classes)
	if probs.Size() != len(rows)*c {
		return nil, fmt.Errorf("run graph: %w: output %v for %d rows", ErrShape, probs.Shape, len(rows))
	}

	preds := make([]Prediction, len(rows))
	for i := range rows {
		p := make([]float64, c)
		best := 0
		for k := 0; k < c; k++ {
			p[k] = float64(probs.Floats[i*c+k])
			if p[k] > p[best] {
				best = k
			}
		}
		preds[i] = Prediction{Label: b.classes[best], Index: best, Probabilities: p, Classes: b.Classes()}
	}
	return preds, nil
}

func (b *Bundle) feeds(rows []Input) (map[string]Tensor, error) {
	n := len(rows)
	feeds := make(map[string]Tensor, len(b.inputs))
	for _, col := range b.inputs {
		switch col.ElemType {
		case onnx.Float:
			data := make([]float32, n)
			for i, r := range rows {
				v, ok := r.Numeric[col.Name]
				if !ok {
					return nil, fmt.Errorf("%w: %s", ErrMissingInput, col.Name)
				}
				if math.IsNaN(v) || math.IsInf(v, 0) {
					return nil, fmt.Errorf("%w: %s is not finite", ErrInvalidInput, col.Name)
				}
				data[i] = float32(v)
			}
			feeds[col.Name] = FloatTensor([]int{n, 1}, data)
		case onnx.String:
			data := make([]string, n)
			for i, r := range rows {
				v, ok := r.Categorical[col.Name]
				if !ok {
					return nil, fmt.Errorf("%w: %s", ErrMissingInput, col.Name)
				}
				data[i] = strings.TrimSpace(v)
			}
			feeds[col.Name] = StringTensor([]int{n, 1}, data)
		default:
			return nil, fmt.Errorf("%w: input %s has type %s", ErrUnsupportedOp, col.Name, col.ElemType)
		}
	}
	return feeds, nil
}
// #endregion predict
