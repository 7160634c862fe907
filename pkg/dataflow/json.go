package dataflow

import (
	"cmp"
	"encoding/json"
	"slices"
)

// The wire format is the one the downstream mutation engine already
// consumes: a top-level array of [def, [use...]] pairs, where a def renders
// as [name, [file, function, line]] and a use as [name, [null, function,
// line]]. The null file slot in a use is a compatibility asymmetry and must
// be preserved.

// Entry pairs one definition with its uses for serialization.
type Entry struct {
	Def  Def
	Uses []Use
}

// Sorted returns the relation as (definition, uses) entries with both
// levels ordered by (file, line, name, node), so repeated runs over the
// same graph serialize byte-for-byte identically.
func (c *Chains) Sorted() []Entry {
	entries := make([]Entry, 0, len(c.defs))
	for _, d := range c.defs {
		uses := c.UsesOf(d)
		slices.SortFunc(uses, compareUses)
		entries = append(entries, Entry{Def: d, Uses: uses})
	}
	slices.SortFunc(entries, func(a, b Entry) int {
		return compareKeys(
			a.Def.Var.File, a.Def.Var.Line, a.Def.Var.Name, a.Def.Node,
			b.Def.Var.File, b.Def.Var.Line, b.Def.Var.Name, b.Def.Node,
		)
	})
	return entries
}

func compareUses(a, b Use) int {
	af, al := a.Var.File, a.Var.Line
	if a.Loc != nil {
		af, al = a.Loc.File, a.Loc.Line
	}
	bf, bl := b.Var.File, b.Var.Line
	if b.Loc != nil {
		bf, bl = b.Loc.File, b.Loc.Line
	}
	return compareKeys(af, al, a.Var.Name, a.Node, bf, bl, b.Var.Name, b.Node)
}

func compareKeys(af string, al int, an string, ad NodeID, bf string, bl int, bn string, bd NodeID) int {
	if c := cmp.Compare(af, bf); c != 0 {
		return c
	}
	if c := cmp.Compare(al, bl); c != 0 {
		return c
	}
	if c := cmp.Compare(an, bn); c != 0 {
		return c
	}
	return cmp.Compare(ad, bd)
}

// optStr renders the empty string as JSON null.
func optStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// optLine renders a missing (zero) line as JSON null.
func optLine(n int) any {
	if n == 0 {
		return nil
	}
	return n
}

// MarshalJSON renders the definition as [name, [file, function, line]].
func (d Def) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{
		d.Var.Name,
		[]any{optStr(d.Var.File), optStr(d.Var.Func), optLine(d.Var.Line)},
	})
}

// MarshalJSON renders the use as [name, [null, function, line]]. The
// function and line come from the access's debug location when present,
// falling back to the structurally derived enclosing function.
func (u Use) MarshalJSON() ([]byte, error) {
	fn, line := u.Var.Func, 0
	if u.Loc != nil {
		fn, line = u.Loc.Func, u.Loc.Line
	}
	return json.Marshal([]any{
		u.Var.Name,
		[]any{nil, optStr(fn), optLine(line)},
	})
}

// MarshalJSON renders the entry as [def, [use...]].
func (e Entry) MarshalJSON() ([]byte, error) {
	uses := e.Uses
	if uses == nil {
		uses = []Use{}
	}
	return json.Marshal([]any{e.Def, uses})
}

// MarshalJSON renders the whole relation in deterministic order.
func (c *Chains) MarshalJSON() ([]byte, error) {
	return json.Marshal(c.Sorted())
}
