package dataflow

import (
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/stmt"
)

// findFragment returns the fragment in cfg containing target, and the
// statement's index within it, by linear scan - call sites are populated
// once per pass run, not in a hot loop, so this trades a small constant
// factor for not needing every statement to carry a back-pointer handle.
func findFragment(cfg *frag.CFG, target stmt.Stmt) (*frag.Fragment, int) {
	for _, f := range cfg.Fragments() {
		for i, s := range f.Stmts {
			if s.ID() == target.ID() {
				return f, i
			}
		}
	}
	return nil, -1
}

// UseCollector returns the location keys live immediately after s
// (spec §3's call-site "use-collector": the live-variable snapshot taken
// at the call site).
func UseCollector(cfg *frag.CFG, live *LiveSets, s stmt.Stmt) LocSet {
	f, idx := findFragment(cfg, s)
	if f == nil {
		return LocSet{}
	}
	out := live.Out[f.FragID()].Clone()
	// Locations used by statements after s in the same fragment are live
	// at s's point too; walk backward from the fragment's local OUT,
	// adding back anything a later statement uses before redefining it.
	for i := len(f.Stmts) - 1; i > idx; i-- {
		t := f.Stmts[i]
		for _, d := range t.Defines() {
			for _, k := range LocationKeys(d) {
				delete(out, k)
			}
		}
		for _, u := range t.Uses() {
			for _, k := range LocationKeys(u) {
				out[k] = true
			}
		}
	}
	return out
}

// DefCollector returns the reaching-definition value expression for every
// location reaching s's program point, resolved against reach (spec §3's
// call-site "def-collector"). Only locations with a single unambiguous
// reaching define whose statement assigns a concrete expression are
// included - localisation (stmt.Call.LocaliseExp) needs an actual
// expression to substitute, not just "some definition reached here".
func DefCollector(cfg *frag.CFG, reach *ReachResult, s stmt.Stmt, exprOf func(stmtID string) (expr.Expr, bool)) map[string]expr.Expr {
	f, idx := findFragment(cfg, s)
	if f == nil {
		return nil
	}
	facts := reach.In[f.FragID()].clone()
	for i := 0; i < idx; i++ {
		t := f.Stmts[i]
		for _, d := range t.Defines() {
			for _, k := range LocationKeys(d) {
				facts[k] = map[string]bool{t.ID(): true}
			}
		}
	}

	out := map[string]expr.Expr{}
	for k, ids := range facts {
		if len(ids) != 1 {
			continue
		}
		for id := range ids {
			if v, ok := exprOf(id); ok {
				out[k] = v
			}
		}
	}
	return out
}
