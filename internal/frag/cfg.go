package frag

import "decompcore/internal/stmt"

// CFG owns every Fragment belonging to one procedure, plus the edges
// between them. All mutation goes through CFG so that cached dominance
// info (see dominance.go) can be invalidated as a unit.
type CFG struct {
	Entry *Fragment
	Exit  *Fragment

	frags []*Fragment
	cache *domCache
}

func NewCFG() *CFG {
	return &CFG{}
}

// CreateFragment allocates a new, unconnected fragment and registers it
// with the graph. The first fragment created becomes Entry unless the
// caller later reassigns it explicitly.
func (g *CFG) CreateFragment(label string) *Fragment {
	f := newFragment(label)
	g.frags = append(g.frags, f)
	if g.Entry == nil {
		g.Entry = f
	}
	g.invalidate()
	return f
}

// Fragments returns every fragment in creation order.
func (g *CFG) Fragments() []*Fragment {
	return g.frags
}

// AddEdge wires from -> to with the given kind and returns the new edge.
func (g *CFG) AddEdge(from, to *Fragment, kind EdgeKind) *Edge {
	e := &Edge{Kind: kind, From: from, To: to}
	from.Succs = append(from.Succs, e)
	to.Preds = append(to.Preds, e)
	g.invalidate()
	return e
}

// AddSwitchCaseEdge is AddEdge specialized for jump-table recovery, where
// the edge additionally carries the case value it corresponds to.
func (g *CFG) AddSwitchCaseEdge(from, to *Fragment, caseValue int64) *Edge {
	e := g.AddEdge(from, to, EdgeSwitchCase)
	e.CaseValue = caseValue
	return e
}

// RemoveEdge detaches e from both of its endpoints.
func (g *CFG) RemoveEdge(e *Edge) {
	e.From.Succs = removeEdge(e.From.Succs, e)
	e.To.Preds = removeEdge(e.To.Preds, e)
	g.invalidate()
}

func removeEdge(edges []*Edge, target *Edge) []*Edge {
	out := edges[:0:0]
	for _, e := range edges {
		if e != target {
			out = append(out, e)
		}
	}
	return out
}

// SplitFragment divides f at statement index at: the statements before at
// remain in f, the statements from at onward move to a freshly created
// fragment, f's existing outgoing edges move to the new fragment, and a
// fallthrough edge is added from f to it. SplitFragment is how a later
// pass inserts a join point into what was previously one straight-line
// block (e.g. dominance-frontier driven phi placement, or indirect-call
// resolution rewriting a computed call into a table of direct ones).
func (g *CFG) SplitFragment(f *Fragment, at int) *Fragment {
	tail := append([]stmt.Stmt(nil), f.Stmts[at:]...)
	f.Stmts = f.Stmts[:at:at]

	newFrag := g.CreateFragment(f.Label + ".split")
	for i, s := range tail {
		s.SetNumber(i)
	}
	newFrag.Stmts = tail

	for _, e := range f.Succs {
		e.From = newFrag
		newFrag.Succs = append(newFrag.Succs, e)
		for i, pe := range e.To.Preds {
			if pe == e {
				e.To.Preds[i] = e
			}
		}
	}
	f.Succs = nil
	if g.Exit == f {
		g.Exit = newFrag
	}

	g.AddEdge(f, newFrag, EdgeFallThrough)
	return newFrag
}

func (g *CFG) invalidate() {
	g.cache = nil
}
