package opt

import (
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/proc"
	"decompcore/internal/stmt"
)

// DeadCodeElimination removes statements with no live use and no
// observable side effect (spec.md §4.4). A Call is never removed even
// when its whole defines list is unused, since a call is not pure; a Phi
// that has become unreferenced (e.g. after CopyConstPropagation forwards
// every use of a uniform-valued phi away from it) is removed like any
// other dead assign.
func DeadCodeElimination() Pass { return deadCodeElimination{} }

type deadCodeElimination struct{}

func (deadCodeElimination) Name() string { return "dead-code-elimination" }

func (deadCodeElimination) Execute(p *proc.Procedure) (bool, error) {
	referenced := referencedDefIDs(p.CFG)
	changed := false
	for _, f := range p.CFG.Fragments() {
		kept := f.Stmts[:0:0]
		for _, s := range f.Stmts {
			if isRemovableDead(s, referenced) {
				changed = true
				continue
			}
			kept = append(kept, s)
		}
		if len(kept) != len(f.Stmts) {
			f.Stmts = kept
			for i, s := range f.Stmts {
				s.SetNumber(i)
			}
		}
	}
	return changed, nil
}

// referencedDefIDs collects the ID of every statement named as a Def by
// some SubscriptRef anywhere in the CFG - exactly the "has a live use"
// test once SSA construction has made every use explicit.
func referencedDefIDs(cfg *frag.CFG) map[string]bool {
	out := map[string]bool{}
	collector := &defIDCollector{out: out}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			for _, u := range s.Uses() {
				expr.Walk(u, collector)
			}
		}
	}
	return out
}

type defIDCollector struct {
	expr.BaseVisitor
	out map[string]bool
}

func (c *defIDCollector) VisitSubscriptRef(r *expr.SubscriptRef) bool {
	if h, ok := r.Def.(interface{ ID() string }); ok {
		c.out[h.ID()] = true
	}
	return true
}

// isRemovableDead reports whether s defines something, has no
// referenced definition, and carries no side effect beyond its own
// define - Call, Return, Branch and Goto are never removed this way, and
// neither is an Assign/Implicit/Phi/BoolAssign whose lhs is a memory
// location: a store is an observable side effect even when the SSA
// version it creates is never loaded back.
func isRemovableDead(s stmt.Stmt, referenced map[string]bool) bool {
	switch s.(type) {
	case *stmt.Call, *stmt.Return, *stmt.Branch, *stmt.Goto:
		return false
	}
	defs := s.Defines()
	if len(defs) == 0 {
		return false
	}
	for _, d := range defs {
		if loc, ok := d.(*expr.Location); ok && loc.LKind == expr.LocMemory {
			return false
		}
	}
	return !referenced[s.ID()]
}
