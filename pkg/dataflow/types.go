// Package dataflow implements the def/use chain engine. It classifies
// value-flow graph nodes as tagged allocation definitions and instrumented
// dereference uses, computes per-definition forward reachability, and
// assembles a serializable Def -> {Use} relation for the downstream fuzzing
// pipeline.
//
// The engine never builds or mutates the value-flow graph itself: it depends
// on the minimal read-only interfaces below, supplied by an analysis backend
// such as pkg/vfg.
package dataflow

// NodeID identifies one node in the value-flow graph. IDs are assigned by
// the graph builder at construction time and are stable for the graph's
// lifetime. Equality of definitions and uses is equality of their node IDs,
// never of their resolved variables.
type NodeID int

// Graph is the minimal read-only traversal surface of a value-flow graph.
type Graph interface {
	// Succs returns the destinations of n's outgoing dataflow edges.
	Succs(n NodeID) []NodeID
}

// Classifier answers the instrumentation-marker queries for graph nodes.
// Markers are placed out-of-band by an earlier instrumentation stage; the
// engine only consults them, it never derives them.
type Classifier interface {
	// TaggedAlloc reports whether n is a call originating a tagged allocation.
	TaggedAlloc(n NodeID) bool
	// InstrumentedDeref reports whether n is a load or store subject to
	// runtime tag checking.
	InstrumentedDeref(n NodeID) bool
}

// Resolver materializes best-effort source-level identity for graph nodes.
// It is consulted only when definition and use records are constructed,
// never during traversal.
type Resolver interface {
	// ResultVar describes the destination variable of an allocation call.
	ResultVar(n NodeID) Variable
	// AddressVar describes the pointer operand dereferenced by n: the source
	// address of a load, the destination address of a store. ok is false
	// when n is not a memory access.
	AddressVar(n NodeID) (v Variable, ok bool)
	// Location returns n's source location when debug info records one.
	Location(n NodeID) (Location, bool)
}

// AllocKind classifies a recognized allocator operation.
type AllocKind uint8

const (
	AllocNone    AllocKind = iota
	AllocMalloc            // fresh allocation
	AllocCalloc            // zero-initialized allocation
	AllocRealloc           // reallocation
)

func (k AllocKind) String() string {
	switch k {
	case AllocMalloc:
		return "malloc"
	case AllocCalloc:
		return "calloc"
	case AllocRealloc:
		return "realloc"
	default:
		return "none"
	}
}

// Allocators maps recognized tagged allocation operation names to what they
// do with memory. It plays the role of the external allocator table.
type Allocators map[string]AllocKind

// DefaultAllocators returns the three operation names the instrumentation
// stage emits by default.
func DefaultAllocators() Allocators {
	return Allocators{
		"tagged_malloc":  AllocMalloc,
		"tagged_calloc":  AllocCalloc,
		"tagged_realloc": AllocRealloc,
	}
}

// CallSite is one call instruction as exposed by the value-flow graph.
type CallSite struct {
	Node   NodeID
	Callee string    // resolved callee name, "" for indirect calls
	Kind   AllocKind // the graph builder's classification of the callee
}

// Variable is a best-effort source-level descriptor for a program value.
// Name is always non-empty; when no debug metadata exists it falls back to
// a textual rendering of the raw value, and the remaining fields are zero.
type Variable struct {
	Name string
	File string
	Func string
	Line int
}

// Location is a source position attached to a use site.
type Location struct {
	File string
	Func string
	Line int
}

// Def is a tagged allocation definition site. Identity is the node; Var is
// auxiliary payload and never participates in equality.
type Def struct {
	Node NodeID
	Var  Variable
}

// Use is an instrumented dereference reached from a definition. Var names
// the dereferenced pointer operand; Loc is nil when the access carries no
// debug location.
type Use struct {
	Node NodeID
	Var  Variable
	Loc  *Location
}
