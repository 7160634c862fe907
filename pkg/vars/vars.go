// Package vars recovers source-level variable identity from SSA debug
// references. It is the lookup oracle the def/use engine consults when it
// materializes output records; a missing entry means "no debug info" and is
// never an error.
package vars

import (
	"go/ast"
	"go/token"

	"golang.org/x/tools/go/ssa"

	"github.com/tagflow/tagflow/pkg/dataflow"
)

// Table maps SSA values to the source variables they correspond to.
type Table struct {
	byValue map[ssa.Value]dataflow.Variable
}

// Recover scans every function's debug references and records, for each
// referenced SSA value, the identifier it stood for in the source. SSA must
// have been built with ssa.GlobalDebug or the tables will be empty.
func Recover(fns []*ssa.Function, fset *token.FileSet) *Table {
	t := &Table{byValue: make(map[ssa.Value]dataflow.Variable)}
	for _, fn := range fns {
		for _, b := range fn.Blocks {
			for _, instr := range b.Instrs {
				dr, ok := instr.(*ssa.DebugRef)
				if !ok {
					continue
				}
				ident, ok := dr.Expr.(*ast.Ident)
				if !ok || dr.Object() == nil {
					continue
				}
				// First binding wins: the declaration site, not later
				// mentions, names the variable.
				if _, seen := t.byValue[dr.X]; seen {
					continue
				}
				pos := fset.Position(ident.Pos())
				t.byValue[dr.X] = dataflow.Variable{
					Name: ident.Name,
					File: pos.Filename,
					Func: fn.Name(),
					Line: pos.Line,
				}
			}
		}
	}
	return t
}

// Lookup returns the recovered variable for v, if any.
func (t *Table) Lookup(v ssa.Value) (dataflow.Variable, bool) {
	dv, ok := t.byValue[v]
	return dv, ok
}

// Len returns the number of values with recovered variables.
func (t *Table) Len() int { return len(t.byValue) }
