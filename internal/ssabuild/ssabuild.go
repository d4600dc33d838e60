// Package ssabuild constructs SSA form over a procedure's CFG: iterated
// dominance-frontier φ-insertion followed by dominator-tree-DFS renaming
// (spec §4.3). Renaming wraps every use in a subscripted reference
// (expr.SubscriptRef) naming its unique defining statement, or a nil Def
// when no definition reaches it within the procedure ("live on entry").
//
// Locations are identified for renaming purposes by the textual form of
// their *pre-subscript* structure (see stripSubscripts): this package
// does not attempt points-to/alias analysis of memory addresses, so two
// memory locations with textually identical (but not necessarily
// provably identical) address expressions are treated as the same SSA
// name family - the same simplification a flat register/temporary naming
// scheme makes, generalized to cover memory locations too.
package ssabuild

import (
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/stmt"
)

// Build inserts φ-assigns and renames every use in cfg into a
// subscripted reference, establishing the allRefsHaveDefs invariant
// (spec §4.3/§8 property 1).
func Build(cfg *frag.CFG) {
	if cfg.Entry == nil {
		return
	}
	defSites, locSample := collectDefSites(cfg)
	insertPhis(cfg, defSites, locSample)
	rename(cfg)
}

// collectDefSites walks every statement once (pre-SSA, so every Defines()
// entry is a bare, unsubscripted expr.Location) and records, per location
// key, the set of fragment IDs containing at least one definition of it.
func collectDefSites(cfg *frag.CFG) (map[string]map[string]bool, map[string]*expr.Location) {
	sites := map[string]map[string]bool{}
	sample := map[string]*expr.Location{}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			for _, d := range s.Defines() {
				loc, ok := d.(*expr.Location)
				if !ok {
					continue
				}
				key := loc.String()
				if sites[key] == nil {
					sites[key] = map[string]bool{}
				}
				sites[key][f.FragID()] = true
				if sample[key] == nil {
					sample[key] = loc
				}
			}
		}
	}
	return sites, sample
}

// insertPhis runs the classic iterated-dominance-frontier worklist
// algorithm once per location: every fragment in the dominance frontier
// of a defining fragment gets a φ-assign, and (if it did not already
// define the location) is itself added to the worklist, since it is now
// itself a definition point.
func insertPhis(cfg *frag.CFG, defSites map[string]map[string]bool, locSample map[string]*expr.Location) {
	fragByID := make(map[string]*frag.Fragment)
	for _, f := range cfg.Fragments() {
		fragByID[f.FragID()] = f
	}

	for key, sites := range defSites {
		hasPhi := map[string]bool{}
		onWorklist := map[string]bool{}
		worklist := make([]string, 0, len(sites))
		for id := range sites {
			worklist = append(worklist, id)
			onWorklist[id] = true
		}
		for len(worklist) > 0 {
			id := worklist[len(worklist)-1]
			worklist = worklist[:len(worklist)-1]
			for _, d := range cfg.DominanceFrontier(fragByID[id]) {
				if hasPhi[d.FragID()] {
					continue
				}
				hasPhi[d.FragID()] = true
				phi := stmt.NewPhi(locSample[key].Clone())
				prepend(d, phi)
				if !onWorklist[d.FragID()] {
					onWorklist[d.FragID()] = true
					worklist = append(worklist, d.FragID())
				}
			}
		}
	}
}

// prepend inserts s as the first statement of f and renumbers the
// fragment - φ-assigns must precede every ordinary statement in a
// fragment (spec §4.3).
func prepend(f *frag.Fragment, s stmt.Stmt) {
	f.Stmts = append([]stmt.Stmt{s}, f.Stmts...)
	for i, st := range f.Stmts {
		st.SetNumber(i)
	}
}

// stripSubscripts unwraps every SubscriptRef in e back to its raw Sub,
// recovering the pre-SSA textual form so that a location's renaming key
// stays stable no matter how many of its addressing sub-expressions have
// already been subscripted by the time it is looked up.
func stripSubscripts(e expr.Expr) expr.Expr {
	if e == nil {
		return nil
	}
	return e.Modify(subStripper{})
}

type subStripper struct{ expr.BaseModifier }

func (subStripper) ModifySubscriptRef(r *expr.SubscriptRef) expr.Expr { return r.Sub }

// rename performs the dominator-tree DFS rename pass: a per-location
// stack of definitions, pushed on define and popped on leaving the
// dominator subtree, per Cytron et al.
func rename(cfg *frag.CFG) {
	children := childrenOf(cfg)
	stacks := map[string][]stmt.Stmt{}

	var walk func(f *frag.Fragment)
	walk = func(f *frag.Fragment) {
		var pushed []string
		for _, s := range f.Stmts {
			if phi, ok := s.(*stmt.Phi); ok {
				key := stripSubscripts(phi.Lhs).String()
				stacks[key] = append(stacks[key], phi)
				pushed = append(pushed, key)
				continue
			}
			pushed = append(pushed, rewriteStatement(s, stacks)...)
		}

		for _, succ := range f.SuccessorFragments() {
			for _, s2 := range succ.Stmts {
				phi, ok := s2.(*stmt.Phi)
				if !ok {
					break // φs are always first, per prepend's invariant
				}
				key := stripSubscripts(phi.Lhs).String()
				phi.Args[f.FragID()] = currentRefOrImplicit(phi.Lhs, stacks[key])
			}
		}

		for _, c := range children[f.FragID()] {
			walk(c)
		}

		for _, key := range pushed {
			st := stacks[key]
			stacks[key] = st[:len(st)-1]
		}
	}
	walk(cfg.Entry)
}

func currentRefOrImplicit(lhs expr.Expr, stack []stmt.Stmt) expr.Expr {
	if len(stack) == 0 {
		return expr.RefOf(lhs.Clone(), nil)
	}
	return expr.RefOf(lhs.Clone(), stack[len(stack)-1])
}

func childrenOf(cfg *frag.CFG) map[string][]*frag.Fragment {
	idom := cfg.Dominators()
	children := map[string][]*frag.Fragment{}
	for child, parent := range idom {
		children[parent.FragID()] = append(children[parent.FragID()], child)
	}
	return children
}

// rewriteUse rewrites every Location reachable in e (without descending
// past an already-subscripted reference, which cannot occur pre-rename)
// into a SubscriptRef naming its current definer.
func rewriteUse(e expr.Expr, stacks map[string][]stmt.Stmt) expr.Expr {
	if e == nil {
		return nil
	}
	return e.Modify(&renamer{stacks: stacks})
}

type renamer struct {
	expr.BaseModifier
	stacks map[string][]stmt.Stmt
}

func (r *renamer) ModifyLocation(l *expr.Location) expr.Expr {
	key := stripSubscripts(l).String()
	return currentRefOrImplicit(l, r.stacks[key])
}

// rewriteAddressing rewrites a definition's own addressing sub-expression
// (mem[addr]'s addr, r[idx]'s idx) as a use, in place - the location
// being defined is itself left unsubscripted (spec §3: only uses are
// subscripted references), but any register it takes its address from is
// a use that must be renamed.
func rewriteAddressing(loc *expr.Location, stacks map[string][]stmt.Stmt) {
	switch loc.LKind {
	case expr.LocMemory:
		loc.Addr = rewriteUse(loc.Addr, stacks)
	case expr.LocRegister:
		loc.RegIndex = rewriteUse(loc.RegIndex, stacks)
	}
}

// rewriteStatement rewrites every use in s (in place, via the concrete
// type's exported fields) and pushes a new definition for each location
// s defines, returning the keys pushed so the caller can pop them.
func rewriteStatement(s stmt.Stmt, stacks map[string][]stmt.Stmt) []string {
	switch n := s.(type) {
	case *stmt.Assign:
		n.Rhs = rewriteUse(n.Rhs, stacks)
		if loc, ok := n.Lhs.(*expr.Location); ok {
			rewriteAddressing(loc, stacks)
		}
	case *stmt.Implicit:
		// no uses
	case *stmt.BoolAssign:
		n.Cond = rewriteUse(n.Cond, stacks)
		if loc, ok := n.Lhs.(*expr.Location); ok {
			rewriteAddressing(loc, stacks)
		}
	case *stmt.Branch:
		n.Cond = rewriteUse(n.Cond, stacks)
	case *stmt.Goto:
		if n.IsComputed() {
			n.Dest = rewriteUse(n.Dest, stacks)
		}
	case *stmt.Call:
		for _, a := range n.Args {
			a.Rhs = rewriteUse(a.Rhs, stacks)
		}
		if n.IsComputed() {
			n.SetDest(rewriteUse(n.Dest, stacks))
		}
		for _, d := range n.Defs {
			if loc, ok := d.Lhs.(*expr.Location); ok {
				rewriteAddressing(loc, stacks)
			}
		}
	case *stmt.Return:
		for i := range n.Defs {
			n.Defs[i].Val = rewriteUse(n.Defs[i].Val, stacks)
			if loc, ok := n.Defs[i].Lhs.(*expr.Location); ok {
				rewriteAddressing(loc, stacks)
			}
		}
		for i := range n.Modifieds {
			n.Modifieds[i] = rewriteUse(n.Modifieds[i], stacks)
		}
	}

	var pushed []string
	for _, d := range s.Defines() {
		loc, ok := d.(*expr.Location)
		if !ok {
			continue
		}
		key := stripSubscripts(loc).String()
		stacks[key] = append(stacks[key], s)
		pushed = append(pushed, key)
	}
	return pushed
}
