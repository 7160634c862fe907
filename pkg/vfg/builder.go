package vfg

import (
	"go/token"

	"golang.org/x/tools/go/ssa"

	"github.com/tagflow/tagflow/pkg/dataflow"
)

// Build constructs the value-flow graph for the given functions. allocs is
// the external allocator table used to classify call sites.
//
// Edges:
//   - operand -> instruction, for every register operand of a value
//     instruction or store;
//   - argument -> parameter and return value -> call result, for calls
//     whose callee is static and has a body;
//   - store -> load, for loads whose address is the identical SSA value as
//     the store's address. This is an alias-free approximation of memory
//     flow: no pointer analysis is attempted.
func Build(fns []*ssa.Function, allocs dataflow.Allocators) *Graph {
	g := &Graph{
		byValue: make(map[ssa.Value]dataflow.NodeID),
		byInstr: make(map[ssa.Instruction]dataflow.NodeID),
	}

	// Pass 1: create nodes and classify memory accesses.
	loadsByAddr := make(map[ssa.Value][]dataflow.NodeID)
	for _, fn := range fns {
		for _, p := range fn.Params {
			g.valueNode(p, nil)
		}
		for _, fv := range fn.FreeVars {
			g.valueNode(fv, nil)
		}
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				switch it := instr.(type) {
				case *ssa.DebugRef:
					// Metadata, not dataflow.
				case *ssa.Store:
					id := g.instrNode(it)
					g.nodes[id].access = &Access{Kind: AccessStore, Addr: it.Addr}
				default:
					v, ok := instr.(ssa.Value)
					if !ok {
						continue
					}
					id := g.valueNode(v, instr)
					if un, ok := instr.(*ssa.UnOp); ok && un.Op == token.MUL {
						g.nodes[id].access = &Access{Kind: AccessLoad, Addr: un.X}
						loadsByAddr[un.X] = append(loadsByAddr[un.X], id)
					}
				}
			}
		}
	}

	// Pass 2: edges and call sites.
	for _, fn := range fns {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				if _, ok := instr.(*ssa.DebugRef); ok {
					continue
				}

				dst, isNode := g.nodeOfInstr(instr)
				if isNode {
					rands := instr.Operands(nil)
					for _, rand := range rands {
						if rand == nil || *rand == nil {
							continue
						}
						if src, ok := g.byValue[*rand]; ok {
							g.addEdge(src, dst)
						}
					}
				}

				if st, ok := instr.(*ssa.Store); ok {
					for _, load := range loadsByAddr[st.Addr] {
						g.addEdge(dst, load)
					}
					continue
				}

				call, ok := instr.(ssa.CallInstruction)
				if !ok {
					continue
				}
				g.connectCall(call)
				if v, ok := call.(*ssa.Call); ok {
					id := g.byValue[v]
					cs := dataflow.CallSite{Node: id}
					if callee := call.Common().StaticCallee(); callee != nil {
						cs.Callee = callee.Name()
						cs.Kind = allocs[callee.Name()]
					}
					g.sites = append(g.sites, cs)
				}
			}
		}
	}

	return g
}

// connectCall wires interprocedural edges for a call with a static callee:
// arguments flow into parameters, returned values flow into the call's
// result node.
func (g *Graph) connectCall(call ssa.CallInstruction) {
	callee := call.Common().StaticCallee()
	if callee == nil || len(callee.Blocks) == 0 {
		return
	}

	args := call.Common().Args
	for i, arg := range args {
		if i >= len(callee.Params) {
			break
		}
		src, ok := g.byValue[arg]
		if !ok {
			continue
		}
		if dst, ok := g.byValue[callee.Params[i]]; ok {
			g.addEdge(src, dst)
		}
	}

	v, ok := call.(*ssa.Call)
	if !ok {
		return
	}
	result := g.byValue[v]
	for _, b := range callee.Blocks {
		ret, ok := b.Instrs[len(b.Instrs)-1].(*ssa.Return)
		if !ok {
			continue
		}
		for _, res := range ret.Results {
			if src, ok := g.byValue[res]; ok {
				g.addEdge(src, result)
			}
		}
	}
}

func (g *Graph) valueNode(v ssa.Value, instr ssa.Instruction) dataflow.NodeID {
	if id, ok := g.byValue[v]; ok {
		return id
	}
	id := dataflow.NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{val: v, instr: instr})
	g.byValue[v] = id
	if instr != nil {
		g.byInstr[instr] = id
	}
	return id
}

func (g *Graph) instrNode(instr ssa.Instruction) dataflow.NodeID {
	if id, ok := g.byInstr[instr]; ok {
		return id
	}
	id := dataflow.NodeID(len(g.nodes))
	g.nodes = append(g.nodes, node{instr: instr})
	g.byInstr[instr] = id
	return id
}

func (g *Graph) nodeOfInstr(instr ssa.Instruction) (dataflow.NodeID, bool) {
	id, ok := g.byInstr[instr]
	return id, ok
}

func (g *Graph) addEdge(src, dst dataflow.NodeID) {
	if src == dst {
		return
	}
	for _, s := range g.nodes[src].succs {
		if s == dst {
			return
		}
	}
	g.nodes[src].succs = append(g.nodes[src].succs, dst)
	g.edges++
}
