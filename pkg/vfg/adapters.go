package vfg

import (
	"go/token"

	"golang.org/x/tools/go/ssa"

	"github.com/tagflow/tagflow/pkg/annotate"
	"github.com/tagflow/tagflow/pkg/dataflow"
	"github.com/tagflow/tagflow/pkg/vars"
)

// Classifier adapts an annotation oracle to graph node IDs, implementing
// dataflow.Classifier.
type Classifier struct {
	g      *Graph
	oracle annotate.Oracle
}

// NewClassifier wires the oracle to the graph's node arena.
func NewClassifier(g *Graph, oracle annotate.Oracle) *Classifier {
	return &Classifier{g: g, oracle: oracle}
}

func (c *Classifier) TaggedAlloc(n dataflow.NodeID) bool {
	instr := c.g.Instr(n)
	if instr == nil {
		return false
	}
	return c.oracle.TaggedAlloc(instr)
}

func (c *Classifier) InstrumentedDeref(n dataflow.NodeID) bool {
	instr := c.g.Instr(n)
	if instr == nil {
		return false
	}
	return c.oracle.InstrumentedDeref(instr)
}

// Resolver resolves graph nodes to source-level identity using the
// recovered variable table, implementing dataflow.Resolver. When a value
// has no recovered variable it falls back to the SSA rendering of the value
// and the enclosing function's name.
type Resolver struct {
	g    *Graph
	vars *vars.Table
	fset *token.FileSet
}

// NewResolver wires the variable table to the graph's node arena.
func NewResolver(g *Graph, table *vars.Table, fset *token.FileSet) *Resolver {
	return &Resolver{g: g, vars: table, fset: fset}
}

func (r *Resolver) ResultVar(n dataflow.NodeID) dataflow.Variable {
	v := r.g.Value(n)
	if v == nil {
		return dataflow.Variable{Name: "<non-value>"}
	}
	if dv, ok := r.vars.Lookup(v); ok {
		return dv
	}
	return fallbackVar(v)
}

func (r *Resolver) AddressVar(n dataflow.NodeID) (dataflow.Variable, bool) {
	acc, ok := r.g.Access(n)
	if !ok {
		return dataflow.Variable{}, false
	}
	if dv, ok := r.vars.Lookup(acc.Addr); ok {
		return dv, true
	}
	return fallbackVar(acc.Addr), true
}

func (r *Resolver) Location(n dataflow.NodeID) (dataflow.Location, bool) {
	instr := r.g.Instr(n)
	if instr == nil {
		return dataflow.Location{}, false
	}
	pos := instr.Pos()
	if !pos.IsValid() {
		return dataflow.Location{}, false
	}
	p := r.fset.Position(pos)
	return dataflow.Location{
		File: p.Filename,
		Func: instr.Parent().Name(),
		Line: p.Line,
	}, true
}

// fallbackVar is the degraded-but-deterministic identity for a value with
// no debug info: the SSA rendering of the value, attributed to its
// enclosing function when it has one.
func fallbackVar(v ssa.Value) dataflow.Variable {
	dv := dataflow.Variable{Name: v.String()}
	if instr, ok := v.(ssa.Instruction); ok {
		dv.Func = instr.Parent().Name()
	} else if p, ok := v.(*ssa.Parameter); ok {
		dv.Func = p.Parent().Name()
	}
	return dv
}
