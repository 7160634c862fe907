// Package annotate answers the instrumentation-marker queries: which call
// instructions originate tagged allocations, and which loads and stores are
// subject to runtime tag checking. The markers themselves are placed by an
// earlier instrumentation stage; this package only looks them up.
package annotate

import (
	"fmt"
	"go/token"
	"os"
	"path/filepath"

	"golang.org/x/tools/go/ssa"
	"gopkg.in/yaml.v3"

	"github.com/tagflow/tagflow/pkg/dataflow"
)

// Kind is one marker kind from the sidecar file.
type Kind string

const (
	KindTaggedAlloc       Kind = "tagged_alloc"
	KindInstrumentedDeref Kind = "instrumented_deref"
)

// Oracle classifies SSA instructions by instrumentation marker.
type Oracle interface {
	TaggedAlloc(instr ssa.Instruction) bool
	InstrumentedDeref(instr ssa.Instruction) bool
}

// Marker is one entry of the sidecar file.
type Marker struct {
	File string `yaml:"file"`
	Line int    `yaml:"line"`
	Kind Kind   `yaml:"kind"`
}

type sidecarDoc struct {
	Markers []Marker `yaml:"markers"`
}

type posKey struct {
	file string // base name; instrumentation stage and analysis may disagree on directories
	line int
}

// Sidecar resolves markers recorded in a YAML file keyed by source position.
type Sidecar struct {
	fset  *token.FileSet
	marks map[Kind]map[posKey]struct{}
}

// LoadSidecar reads a marker file written by the instrumentation stage.
func LoadSidecar(path string, fset *token.FileSet) (*Sidecar, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading annotations %s: %w", path, err)
	}
	var doc sidecarDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing annotations %s: %w", path, err)
	}

	s := &Sidecar{fset: fset, marks: make(map[Kind]map[posKey]struct{})}
	for _, m := range doc.Markers {
		switch m.Kind {
		case KindTaggedAlloc, KindInstrumentedDeref:
		default:
			return nil, fmt.Errorf("annotations %s: unknown marker kind %q", path, m.Kind)
		}
		set, ok := s.marks[m.Kind]
		if !ok {
			set = make(map[posKey]struct{})
			s.marks[m.Kind] = set
		}
		set[posKey{file: filepath.Base(m.File), line: m.Line}] = struct{}{}
	}
	return s, nil
}

func (s *Sidecar) marked(kind Kind, instr ssa.Instruction) bool {
	pos := instr.Pos()
	if !pos.IsValid() {
		return false
	}
	p := s.fset.Position(pos)
	_, ok := s.marks[kind][posKey{file: filepath.Base(p.Filename), line: p.Line}]
	return ok
}

func (s *Sidecar) TaggedAlloc(instr ssa.Instruction) bool {
	return s.marked(KindTaggedAlloc, instr)
}

func (s *Sidecar) InstrumentedDeref(instr ssa.Instruction) bool {
	return s.marked(KindInstrumentedDeref, instr)
}

// Structural derives markers from program shape instead of a sidecar: every
// call to a recognized allocator counts as tagged, and every load and store
// counts as instrumented. This is the conservative default for programs
// analyzed without an instrumentation record.
type Structural struct {
	allocs dataflow.Allocators
}

// NewStructural returns a structural oracle over the given allocator table.
func NewStructural(allocs dataflow.Allocators) *Structural {
	return &Structural{allocs: allocs}
}

func (o *Structural) TaggedAlloc(instr ssa.Instruction) bool {
	call, ok := instr.(ssa.CallInstruction)
	if !ok {
		return false
	}
	callee := call.Common().StaticCallee()
	if callee == nil {
		return false
	}
	_, recognized := o.allocs[callee.Name()]
	return recognized
}

func (o *Structural) InstrumentedDeref(instr ssa.Instruction) bool {
	switch it := instr.(type) {
	case *ssa.UnOp:
		return it.Op == token.MUL
	case *ssa.Store:
		return true
	}
	return false
}
