// Package ir loads Go packages and lowers them to SSA form, the compiled
// intermediate representation the rest of the pipeline analyzes.
package ir

import (
	"fmt"
	"go/token"
	"slices"
	"strings"

	"golang.org/x/tools/go/packages"
	"golang.org/x/tools/go/ssa"
	"golang.org/x/tools/go/ssa/ssautil"
)

const loadMode = packages.NeedName |
	packages.NeedFiles |
	packages.NeedCompiledGoFiles |
	packages.NeedImports |
	packages.NeedDeps |
	packages.NeedTypes |
	packages.NeedSyntax |
	packages.NeedTypesInfo

// Program is a loaded program and, after Build, its SSA form.
type Program struct {
	Fset *token.FileSet
	SSA  *ssa.Program
	Pkgs []*ssa.Package

	loaded []*packages.Package
}

// Load resolves the given package patterns in dir. SSA is not built yet;
// call Build once the caller knows analysis is actually needed.
func Load(dir string, patterns ...string) (*Program, error) {
	cfg := &packages.Config{Mode: loadMode, Dir: dir}
	pkgs, err := packages.Load(cfg, patterns...)
	if err != nil {
		return nil, fmt.Errorf("loading packages: %w", err)
	}
	if len(pkgs) == 0 {
		return nil, fmt.Errorf("no packages matched %s", strings.Join(patterns, " "))
	}

	var loadErrs []string
	packages.Visit(pkgs, nil, func(p *packages.Package) {
		for _, e := range p.Errors {
			loadErrs = append(loadErrs, e.Error())
		}
	})
	if len(loadErrs) > 0 {
		return nil, fmt.Errorf("packages contain errors: %s", strings.Join(loadErrs, "; "))
	}

	return &Program{Fset: pkgs[0].Fset, loaded: pkgs}, nil
}

// Build lowers the loaded packages to SSA. Debug references are kept so the
// variable-recovery pass can map SSA values back to source identifiers.
func (p *Program) Build() {
	if p.SSA != nil {
		return
	}
	prog, ssapkgs := ssautil.AllPackages(p.loaded, ssa.GlobalDebug)
	prog.Build()
	p.SSA = prog
	p.Pkgs = ssapkgs
}

// NewProgram wraps an already-built SSA program. Used by analyses that
// construct SSA themselves (and by tests).
func NewProgram(prog *ssa.Program, fset *token.FileSet) *Program {
	return &Program{Fset: fset, SSA: prog}
}

// Functions returns every function in the program, including anonymous
// functions and wrappers, sorted by their full name so downstream node
// numbering is deterministic.
func (p *Program) Functions() []*ssa.Function {
	fns := make([]*ssa.Function, 0, len(ssautil.AllFunctions(p.SSA)))
	for fn := range ssautil.AllFunctions(p.SSA) {
		fns = append(fns, fn)
	}
	slices.SortFunc(fns, func(a, b *ssa.Function) int {
		return strings.Compare(a.String(), b.String())
	})
	return fns
}

// GoFiles returns the compiled Go files of the loaded packages, sorted.
// They key the result cache: same inputs, same analysis.
func (p *Program) GoFiles() []string {
	seen := make(map[string]struct{})
	var files []string
	for _, pkg := range p.loaded {
		for _, f := range pkg.CompiledGoFiles {
			if _, ok := seen[f]; ok {
				continue
			}
			seen[f] = struct{}{}
			files = append(files, f)
		}
	}
	slices.Sort(files)
	return files
}
