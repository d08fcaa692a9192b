package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/danielpatrickdp/medalfit/internal/onnx"
	"github.com/danielpatrickdp/medalfit/internal/trainer"
)

// #region types
const (
	GraphFile   = "medal_classifier.onnx"
	ClassesFile = "medal_classes.json"
)

// ErrInconsistent is returned when a graph and class list do not belong together.
var ErrInconsistent = errors.New("graph and class list are inconsistent")

// Artifact pairs the serialized graph with the class list that names its
// output positions. Neither half is meaningful alone.
type Artifact struct {
	Graph   []byte
	Classes []string
}

// Paths are the on-disk locations of a written artifact.
type Paths struct {
	Graph   string
	Classes string
}

// PathsIn returns the artifact locations inside dir.
func PathsIn(dir string) Paths {
	return Paths{
		Graph:   filepath.Join(dir, GraphFile),
		Classes: filepath.Join(dir, ClassesFile),
	}
}
// #endregion types

// #region build
// Build lowers m and serializes it with its class list.
func Build(m *trainer.Model) (Artifact, error) {
	classes := m.Classes()
	if !sort.StringsAreSorted(classes) {
		return Artifact{}, fmt.Errorf("%w: class list is not sorted", ErrInconsistent)
	}
	g, err := Lower(m)
	if err != nil {
		return Artifact{}, fmt.Errorf("lower: %w", err)
	}
	a := Artifact{Graph: onnx.Marshal(g), Classes: classes}
	if err := a.Validate(); err != nil {
		return Artifact{}, err
	}
	return a, nil
}

// Validate checks the class list is sorted and matches the graph output width.
func (a Artifact) Validate() error {
	if len(a.Classes) == 0 {
		return fmt.Errorf("%w: empty class list", ErrInconsistent)
	}
	if !sort.StringsAreSorted(a.Classes) {
		return fmt.Errorf("%w: class list is not sorted", ErrInconsistent)
	}
	m, err := onnx.Unmarshal(a.Graph)
	if err != nil {
		return fmt.Errorf("parse graph: %w", err)
	}
	width, err := OutputWidth(m)
	if err != nil {
		return err
	}
	if width != len(a.Classes) {
		return fmt.Errorf("%w: graph output width %d, %d classes", ErrInconsistent, width, len(a.Classes))
	}
	return nil
}

// OutputWidth returns the fixed class dimension of the probability output.
func OutputWidth(m *onnx.Model) (int, error) {
	if m.Graph == nil {
		return 0, fmt.Errorf("%w: model has no graph", ErrInconsistent)
	}
	for _, o := range m.Graph.Outputs {
		if o.Name != OutputName {
			continue
		}
		if len(o.Shape) != 2 || o.Shape[1].Param != "" {
			return 0, fmt.Errorf("%w: output %s has no fixed class dimension", ErrInconsistent, OutputName)
		}
		return int(o.Shape[1].Value), nil
	}
	return 0, fmt.Errorf("%w: no %s output", ErrInconsistent, OutputName)
}
// #endregion build

// #region write
// Export builds the artifact for m and writes it into dir.
func Export(m *trainer.Model, dir string) (Artifact, Paths, error) {
	a, err := Build(m)
	if err != nil {
		return Artifact{}, Paths{}, err
	}
	p, err := Write(a, dir)
	if err != nil {
		return Artifact{}, Paths{}, err
	}
	return a, p, nil
}

// Write stores both files. Either both end up in dir and agree with each
// other, or neither is left behind.
func Write(a Artifact, dir string) (Paths, error) {
	if err := a.Validate(); err != nil {
		return Paths{}, err
	}
	classesJSON, err := json.Marshal(a.Classes)
	if err != nil {
		return Paths{}, fmt.Errorf("marshal classes: %w", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return Paths{}, fmt.Errorf("create output dir: %w", err)
	}

	p := PathsIn(dir)
	graphTmp, err := writeTemp(dir, GraphFile, a.Graph)
	if err != nil {
		return Paths{}, err
	}
	defer os.Remove(graphTmp)
	classesTmp, err := writeTemp(dir, ClassesFile, classesJSON)
	if err != nil {
		return Paths{}, err
	}
	defer os.Remove(classesTmp)

	// a stale pair from a previous run must not survive a partial rename
	removePair(p)
	if err := os.Rename(graphTmp, p.Graph); err != nil {
		removePair(p)
		return Paths{}, fmt.Errorf("install graph: %w", err)
	}
	if err := os.Rename(classesTmp, p.Classes); err != nil {
		removePair(p)
		return Paths{}, fmt.Errorf("install classes: %w", err)
	}
	return p, nil
}

func writeTemp(dir, name string, data []byte) (string, error) {
	f, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return "", fmt.Errorf("create temp %s: %w", name, err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("write %s: %w", name, err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(f.Name())
		return "", fmt.Errorf("sync %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		os.Remove(f.Name())
		return "", fmt.Errorf("close %s: %w", name, err)
	}
	return f.Name(), nil
}

func removePair(p Paths) {
	os.Remove(p.Graph)
	os.Remove(p.Classes)
}
// #endregion write

// #region load
// Load reads both files from dir and checks they belong together.
func Load(dir string) (Artifact, error) {
	p := PathsIn(dir)
	graph, err := os.ReadFile(p.Graph)
	if err != nil {
		return Artifact{}, fmt.Errorf("read graph: %w", err)
	}
	raw, err := os.ReadFile(p.Classes)
	if err != nil {
		return Artifact{}, fmt.Errorf("read classes: %w", err)
	}
	return Decode(graph, raw)
}

// Decode pairs a serialized graph with a JSON class list.
func Decode(graph, classesJSON []byte) (Artifact, error) {
	var classes []string
	if err := json.Unmarshal(classesJSON, &classes); err != nil {
		return Artifact{}, fmt.Errorf("parse classes: %w", err)
	}
	a := Artifact{Graph: graph, Classes: classes}
	if err := a.Validate(); err != nil {
		return Artifact{}, err
	}
	return a, nil
}
// #endregion load
