package vfg

import (
	"fmt"
	"io"
	"strings"
)

// WriteDOT renders the graph in Graphviz DOT form for inspection. Memory
// access nodes are boxed so instrumented sites stand out.
func (g *Graph) WriteDOT(w io.Writer) error {
	var b strings.Builder
	b.WriteString("digraph vfg {\n")
	b.WriteString("  node [fontname=\"monospace\", fontsize=10];\n")

	for id, n := range g.nodes {
		label := "<store>"
		if n.val != nil {
			label = n.val.Name()
		}
		shape := "ellipse"
		if n.access != nil {
			shape = "box"
		}
		fmt.Fprintf(&b, "  n%d [label=%q, shape=%s];\n", id, label, shape)
	}
	for id, n := range g.nodes {
		for _, succ := range n.succs {
			fmt.Fprintf(&b, "  n%d -> n%d;\n", id, succ)
		}
	}
	b.WriteString("}\n")

	_, err := io.WriteString(w, b.String())
	return err
}
