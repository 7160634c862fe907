package vars

import (
	"go/ast"
	"go/importer"
	"go/parser"
	"go/token"
	"go/types"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

func buildFns(t *testing.T, src string) ([]*ssa.Function, *token.FileSet) {
	t.Helper()

	fset := token.NewFileSet()
	f, err := parser.ParseFile(fset, "main.go", src, parser.ParseComments)
	require.NoError(t, err)

	pkg := types.NewPackage("main", "")
	ssapkg, _, err := ssautil.BuildPackage(
		&types.Config{Importer: importer.Default()}, fset, pkg, []*ast.File{f}, ssa.GlobalDebug)
	require.NoError(t, err)

	var fns []*ssa.Function
	for fn := range ssautil.AllFunctions(ssapkg.Prog) {
		fns = append(fns, fn)
	}
	return fns, fset
}

func TestRecoverNamedLocals(t *testing.T) {
	fns, fset := buildFns(t, `package main

func source() *int { return new(int) }

func main() {
	p := source()
	_ = *p
}
`)
	table := Recover(fns, fset)
	require.Greater(t, table.Len(), 0)

	// Find the call value for source() and check it resolved to p.
	var found bool
	for _, fn := range fns {
		if fn.Name() != "main" {
			continue
		}
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				call, ok := instr.(*ssa.Call)
				if !ok {
					continue
				}
				v, ok := table.Lookup(call)
				require.True(t, ok, "call result should have a recovered variable")
				assert.Equal(t, "p", v.Name)
				assert.Equal(t, "main.go", v.File)
				assert.Equal(t, "main", v.Func)
				assert.Greater(t, v.Line, 0)
				found = true
			}
		}
	}
	assert.True(t, found, "expected a call instruction in main")
}

func TestRecoverFirstBindingWins(t *testing.T) {
	fns, fset := buildFns(t, `package main

func source() *int { return new(int) }

func main() {
	p := source()
	q := p
	_ = *q
}
`)
	table := Recover(fns, fset)

	for _, fn := range fns {
		if fn.Name() != "main" {
			continue
		}
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				if call, ok := instr.(*ssa.Call); ok {
					v, ok := table.Lookup(call)
					require.True(t, ok)
					// p and q alias the same SSA value; the declaration
					// binding names it.
					assert.Equal(t, "p", v.Name)
				}
			}
		}
	}
}

func TestLookupMissIsNotAnError(t *testing.T) {
	fns, fset := buildFns(t, `package main

func main() {}
`)
	table := Recover(fns, fset)
	_, ok := table.Lookup(nil)
	assert.False(t, ok)
}
