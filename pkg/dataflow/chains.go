package dataflow

import (
	"fmt"
	"sync/atomic"
)

// Chains is the accumulated Def -> {Use} relation. The definition set is
// fixed at construction; each definition owns its use set, and uses are
// deduplicated by node identity. Entries are never removed.
type Chains struct {
	defs    []Def
	uses    map[NodeID]map[NodeID]Use // def node -> use node -> use
	numUses atomic.Int64
}

// NewChains creates the relation for the given definitions. Duplicate
// definitions (same node) collapse to the first occurrence.
func NewChains(defs []Def) *Chains {
	c := &Chains{uses: make(map[NodeID]map[NodeID]Use, len(defs))}
	for _, d := range defs {
		if _, ok := c.uses[d.Node]; ok {
			continue
		}
		c.uses[d.Node] = make(map[NodeID]Use)
		c.defs = append(c.defs, d)
	}
	return c
}

// AddUse records u in def's use set. Inserting the same (def, use) pair
// twice leaves the set unchanged. Concurrent calls are safe as long as each
// definition is populated by a single goroutine: the outer map is never
// written after construction.
func (c *Chains) AddUse(def Def, u Use) {
	set, ok := c.uses[def.Node]
	if !ok {
		panic(fmt.Sprintf("dataflow: unknown definition node %d", def.Node))
	}
	if _, dup := set[u.Node]; dup {
		return
	}
	set[u.Node] = u
	c.numUses.Add(1)
}

// Defs returns the definitions in collection order.
func (c *Chains) Defs() []Def { return c.defs }

// UsesOf returns def's recorded uses in unspecified order.
func (c *Chains) UsesOf(def Def) []Use {
	set := c.uses[def.Node]
	uses := make([]Use, 0, len(set))
	for _, u := range set {
		uses = append(uses, u)
	}
	return uses
}

// NumDefs returns the number of definitions in the relation.
func (c *Chains) NumDefs() int { return len(c.defs) }

// NumUses returns the running total of recorded uses across all definitions.
func (c *Chains) NumUses() int { return int(c.numUses.Load()) }
