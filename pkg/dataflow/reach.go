package dataflow

import (
	"container/list"
	"context"
	"fmt"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Engine computes, for each definition, the set of reachable instrumented
// uses. The graph, classifier, and resolver must be fully built and
// read-only before Run is called; definitions are otherwise independent.
type Engine struct {
	Graph Graph
	Cls   Classifier
	Res   Resolver

	// Workers bounds how many definitions are analyzed concurrently.
	// Zero or negative means one worker per CPU.
	Workers int
}

// reachableFrom returns every node reachable from root by following
// outgoing dataflow edges transitively. The root itself appears in the
// result only if a cycle leads back to it; the visited set is the sole
// deduplication mechanism, so no node is enqueued twice.
func reachableFrom(g Graph, root NodeID) map[NodeID]struct{} {
	visited := make(map[NodeID]struct{})
	queue := list.New()
	queue.PushBack(root)

	for queue.Len() > 0 {
		n := queue.Remove(queue.Front()).(NodeID)
		for _, succ := range g.Succs(n) {
			if _, seen := visited[succ]; seen {
				continue
			}
			visited[succ] = struct{}{}
			queue.PushBack(succ)
		}
	}
	return visited
}

// Uses returns the instrumented dereference sites reachable from def.
// Nodes that are merely traversed through (arithmetic, casts, copies) are
// dropped; the definition's own node is never reported as a use.
//
// Uses panics when a node carrying the instrumented-deref marker turns out
// not to be a load or store: the marker and the access classification must
// agree by construction, so disagreement is an upstream bug.
func (e *Engine) Uses(def Def) []Use {
	var uses []Use
	for n := range reachableFrom(e.Graph, def.Node) {
		if n == def.Node || !e.Cls.InstrumentedDeref(n) {
			continue
		}
		v, ok := e.Res.AddressVar(n)
		if !ok {
			panic(fmt.Sprintf("dataflow: instrumented node %d is neither a load nor a store", n))
		}
		u := Use{Node: n, Var: v}
		if loc, ok := e.Res.Location(n); ok {
			u.Loc = &loc
		}
		uses = append(uses, u)
	}
	return uses
}

// Run analyzes every definition and accumulates the def/use relation.
// Each worker writes only its own definition's use set, so no further
// synchronization is needed beyond the store's insertion counter.
func (e *Engine) Run(ctx context.Context, defs []Def) (*Chains, error) {
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	chains := NewChains(defs)
	grp, ctx := errgroup.WithContext(ctx)
	grp.SetLimit(workers)

	for _, def := range defs {
		grp.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for _, u := range e.Uses(def) {
				chains.AddUse(def, u)
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return nil, err
	}
	return chains, nil
}
