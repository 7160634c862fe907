// Package vfg builds a value-flow graph over a program's SSA form: one node
// per SSA value (plus one per store instruction), with a directed edge
// wherever a value contributes to another value's computation. The graph is
// immutable once built and is consumed by pkg/dataflow through its minimal
// traversal interface.
package vfg

import (
	"golang.org/x/tools/go/ssa"

	"github.com/tagflow/tagflow/pkg/dataflow"
)

// AccessKind tells which side of memory a node touches.
type AccessKind uint8

const (
	AccessLoad AccessKind = iota + 1
	AccessStore
)

// Access describes a memory-access node: the kind of access and the pointer
// operand being dereferenced. It is decided once, at graph build time.
type Access struct {
	Kind AccessKind
	Addr ssa.Value
}

// node is one arena-indexed graph node.
type node struct {
	val    ssa.Value       // nil for store nodes
	instr  ssa.Instruction // non-nil when the node is an instruction
	succs  []dataflow.NodeID
	access *Access
}

// Graph is the value-flow graph. Node IDs are dense, assigned in
// deterministic (function, block, instruction) order.
type Graph struct {
	nodes   []node
	byValue map[ssa.Value]dataflow.NodeID
	byInstr map[ssa.Instruction]dataflow.NodeID
	sites   []dataflow.CallSite
	edges   int
}

// Succs implements dataflow.Graph.
func (g *Graph) Succs(n dataflow.NodeID) []dataflow.NodeID {
	return g.nodes[n].succs
}

// Value returns the SSA value the node represents, or nil for a store node.
func (g *Graph) Value(n dataflow.NodeID) ssa.Value { return g.nodes[n].val }

// Instr returns the node's instruction, or nil for non-instruction values
// such as parameters.
func (g *Graph) Instr(n dataflow.NodeID) ssa.Instruction { return g.nodes[n].instr }

// Access returns the node's memory-access classification, if it is a load
// or store.
func (g *Graph) Access(n dataflow.NodeID) (Access, bool) {
	if a := g.nodes[n].access; a != nil {
		return *a, true
	}
	return Access{}, false
}

// NodeOf returns the node representing the given SSA value.
func (g *Graph) NodeOf(v ssa.Value) (dataflow.NodeID, bool) {
	id, ok := g.byValue[v]
	return id, ok
}

// CallSites returns every call-site node in the graph, with resolved callee
// names, in node order.
func (g *Graph) CallSites() []dataflow.CallSite { return g.sites }

// NumNodes returns the number of nodes in the graph.
func (g *Graph) NumNodes() int { return len(g.nodes) }

// NumEdges returns the number of dataflow edges in the graph.
func (g *Graph) NumEdges() int { return g.edges }
