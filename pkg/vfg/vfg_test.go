package vfg

import (
	"context"
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"

	"github.com/tagflow/tagflow/pkg/annotate"
	"github.com/tagflow/tagflow/pkg/dataflow"
	"github.com/tagflow/tagflow/pkg/ir"
	"github.com/tagflow/tagflow/pkg/vars"
)

// buildProgram lowers a single source file to SSA with debug references.
func buildProgram(t *testing.T, src string) *ir.Program {
	t.Helper()

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "main.go", src, parser.ParseComments)
	require.NoError(t, err)

	pkg := types.NewPackage("main", "")
	ssapkg, _, err := ssautil.BuildPackage(
		&types.Config{Importer: importer.Default()}, fset, pkg, []*ast.File{f}, ssa.GlobalDebug)
	require.NoError(t, err)

	return ir.NewProgram(ssapkg.Prog, fset)
}

// analyze runs the whole pipeline over src with the structural oracle.
func analyze(t *testing.T, src string) (*dataflow.Chains, []dataflow.Def) {
	t.Helper()

	prog := buildProgram(t, src)
	allocs := dataflow.DefaultAllocators()
	fns := prog.Functions()

	g := Build(fns, allocs)
	table := vars.Recover(fns, prog.Fset)
	cls := NewClassifier(g, annotate.NewStructural(allocs))
	res := NewResolver(g, table, prog.Fset)

	defs, err := dataflow.Collect(g.CallSites(), allocs, cls, res)
	require.NoError(t, err)

	engine := &dataflow.Engine{Graph: g, Cls: cls, Res: res, Workers: 1}
	chains, err := engine.Run(context.Background(), defs)
	require.NoError(t, err)
	return chains, defs
}

const allocatorStub = `
func tagged_malloc(n int) *int {
	p := new(int)
	_ = n
	return p
}

func sink(x int) {}
`

func TestBuildGraphShape(t *testing.T) {
	prog := buildProgram(t, `package main
`+allocatorStub+`
func main() {
	p := tagged_malloc(8)
	sink(*p)
}
`)
	g := Build(prog.Functions(), dataflow.DefaultAllocators())

	assert.Greater(t, g.NumNodes(), 0)
	assert.Greater(t, g.NumEdges(), 0)

	var taggedSites []dataflow.CallSite
	for _, cs := range g.CallSites() {
		if cs.Callee == "tagged_malloc" {
			taggedSites = append(taggedSites, cs)
		}
	}
	require.Len(t, taggedSites, 1)
	assert.Equal(t, dataflow.AllocMalloc, taggedSites[0].Kind)

	// The allocation call is a value node, not a memory access.
	_, isAccess := g.Access(taggedSites[0].Node)
	assert.False(t, isAccess)
}

func TestEndToEndSingleChain(t *testing.T) {
	// One allocation flowing through a non-use intermediate (a pass-through
	// call) into one instrumented load. The intermediate must be traversed
	// but never reported.
	chains, defs := analyze(t, `package main
`+allocatorStub+`
func walk(p *int) *int {
	return p
}

func main() {
	p := tagged_malloc(8)
	q := walk(p)
	sink(*q)
}
`)

	require.Len(t, defs, 1)
	assert.Equal(t, "p", defs[0].Var.Name)
	assert.Equal(t, "main.go", defs[0].Var.File)

	uses := chains.UsesOf(defs[0])
	require.Len(t, uses, 1)
	assert.Equal(t, "q", uses[0].Var.Name)
	require.NotNil(t, uses[0].Loc)
	assert.Equal(t, "main", uses[0].Loc.Func)
}

func TestEndToEndFanOut(t *testing.T) {
	// One definition flowing into two independent instrumented stores.
	chains, defs := analyze(t, `package main
`+allocatorStub+`
func main() {
	p := tagged_malloc(4)
	b := p
	*p = 1
	*b = 2
}
`)

	require.Len(t, defs, 1)
	uses := chains.UsesOf(defs[0])
	assert.Len(t, uses, 2)
	assert.Equal(t, 2, chains.NumUses())
}

func TestEndToEndTwoDefs(t *testing.T) {
	chains, defs := analyze(t, `package main
`+allocatorStub+`
func main() {
	p := tagged_malloc(4)
	q := tagged_malloc(4)
	sink(*p)
	sink(*q)
	sink(*q)
}
`)

	require.Len(t, defs, 2)
	assert.Equal(t, 2, chains.NumDefs())
	// *q appears twice in the source but is two distinct load nodes; each
	// definition still only sees its own pointer's loads.
	for _, d := range defs {
		assert.NotEmpty(t, chains.UsesOf(d))
	}
}

func TestFallbackIdentityWithoutDebugInfo(t *testing.T) {
	// The allocation result is never bound to a named variable, so the
	// definition falls back to a textual rendering of the SSA value.
	_, defs := analyze(t, `package main
`+allocatorStub+`
func main() {
	sink(*tagged_malloc(8))
}
`)

	require.Len(t, defs, 1)
	assert.NotEmpty(t, defs[0].Var.Name)
	assert.True(t, strings.Contains(defs[0].Var.Name, "tagged_malloc"),
		"fallback name %q should render the call", defs[0].Var.Name)
	assert.Empty(t, defs[0].Var.File)
	assert.Equal(t, "main", defs[0].Var.Func)
	assert.Zero(t, defs[0].Var.Line)
}

func TestZeroDefsIsAnError(t *testing.T) {
	prog := buildProgram(t, `package main

func main() {
	p := new(int)
	*p = 1
	_ = *p
}
`)
	allocs := dataflow.DefaultAllocators()
	fns := prog.Functions()
	g := Build(fns, allocs)
	cls := NewClassifier(g, annotate.NewStructural(allocs))
	res := NewResolver(g, vars.Recover(fns, prog.Fset), prog.Fset)

	_, err := dataflow.Collect(g.CallSites(), allocs, cls, res)
	require.ErrorIs(t, err, dataflow.ErrNoDefs)
}

func TestStoreToLoadMemoryEdge(t *testing.T) {
	// A value stored through one pointer and loaded back through the
	// identical pointer stays connected.
	chains, defs := analyze(t, `package main
`+allocatorStub+`
func main() {
	slot := new(*int)
	*slot = tagged_malloc(8)
	q := *slot
	sink(*q)
}
`)

	require.Len(t, defs, 1)
	uses := chains.UsesOf(defs[0])
	require.NotEmpty(t, uses)

	// Among the reached uses is the final dereference of q.
	var names []string
	for _, u := range uses {
		names = append(names, u.Var.Name)
	}
	assert.Contains(t, names, "q")
}

func TestWriteDOT(t *testing.T) {
	prog := buildProgram(t, `package main
`+allocatorStub+`
func main() {
	p := tagged_malloc(8)
	sink(*p)
}
`)
	g := Build(prog.Functions(), dataflow.DefaultAllocators())

	var b strings.Builder
	require.NoError(t, g.WriteDOT(&b))
	out := b.String()
	assert.True(t, strings.HasPrefix(out, "digraph vfg {"))
	assert.Contains(t, out, "->")
}
