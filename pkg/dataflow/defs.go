package dataflow

import (
	"errors"
	"fmt"
)

// ErrNoDefs is returned when the program contains no tagged allocation call
// sites. An empty relation would be misleadingly valid for a security
// analysis, so the caller is expected to abort the run.
var ErrNoDefs = errors.New("no tagged allocation sites found")

// Collect scans the program's call sites and returns the qualifying
// definitions, in call-site order. A call site qualifies when its callee
// name is one of the recognized allocator operations.
//
// Collect panics when a recognized allocator call lacks the tagged-alloc
// marker, or when the graph builder did not classify the callee as an
// allocating or reallocating operation. Both indicate a contract violation
// between the instrumentation stage and this engine, not a runtime error.
func Collect(sites []CallSite, allocs Allocators, cls Classifier, res Resolver) ([]Def, error) {
	var defs []Def
	for _, cs := range sites {
		if cs.Callee == "" {
			continue
		}
		if _, ok := allocs[cs.Callee]; !ok {
			continue
		}
		if !cls.TaggedAlloc(cs.Node) {
			panic(fmt.Sprintf("dataflow: call to %s (node %d) lacks the tagged-alloc marker", cs.Callee, cs.Node))
		}
		if cs.Kind == AllocNone {
			panic(fmt.Sprintf("dataflow: recognized allocator %s (node %d) not classified as allocating", cs.Callee, cs.Node))
		}
		defs = append(defs, Def{Node: cs.Node, Var: res.ResultVar(cs.Node)})
	}
	if len(defs) == 0 {
		return nil, ErrNoDefs
	}
	return defs, nil
}
