package frag

// domCache holds every dominance-related result computed from the current
// shape of the graph. It is built lazily and thrown away in full by
// invalidate() on any mutation, rather than trying to patch incrementally:
// dominance, like a DominatedBy/Dominates field pair, is cheap enough to
// recompute and expensive to get subtly wrong by patching.
type domCache struct {
	rpo         []*Fragment
	rpoIndex    map[string]int
	idom        map[string]*Fragment
	postIdom    map[string]*Fragment
	domFrontier map[string]map[string]bool
}

func (g *CFG) ensure() *domCache {
	if g.cache != nil {
		return g.cache
	}
	c := &domCache{}
	if g.Entry != nil {
		c.rpo = reversePostOrder(g.Entry, func(f *Fragment) []*Fragment { return f.SuccessorFragments() })
		c.rpoIndex = indexOf(c.rpo)
		c.idom = computeIdom(c.rpo, c.rpoIndex, func(f *Fragment) []*Fragment { return f.PredecessorFragments() })
		c.domFrontier = computeDominanceFrontier(c.rpo, c.idom, func(f *Fragment) []*Fragment { return f.PredecessorFragments() })
	}

	exits := g.exitFragments()
	postRpo := reversePostOrderMulti(exits, func(f *Fragment) []*Fragment { return f.PredecessorFragments() })
	postIndex := indexOf(postRpo)
	c.postIdom = computeIdom(postRpo, postIndex, func(f *Fragment) []*Fragment { return f.SuccessorFragments() })

	g.cache = c
	return c
}

func (g *CFG) exitFragments() []*Fragment {
	if g.Exit != nil {
		return []*Fragment{g.Exit}
	}
	var out []*Fragment
	for _, f := range g.frags {
		if len(f.Succs) == 0 {
			out = append(out, f)
		}
	}
	return out
}

func indexOf(order []*Fragment) map[string]int {
	m := make(map[string]int, len(order))
	for i, f := range order {
		m[f.FragID()] = i
	}
	return m
}

// reversePostOrder returns a depth-first reverse postorder starting at
// root, following edges via next.
func reversePostOrder(root *Fragment, next func(*Fragment) []*Fragment) []*Fragment {
	return reversePostOrderMulti([]*Fragment{root}, next)
}

func reversePostOrderMulti(roots []*Fragment, next func(*Fragment) []*Fragment) []*Fragment {
	visited := make(map[string]bool)
	var post []*Fragment
	var visit func(f *Fragment)
	visit = func(f *Fragment) {
		if f == nil || visited[f.FragID()] {
			return
		}
		visited[f.FragID()] = true
		for _, s := range next(f) {
			visit(s)
		}
		post = append(post, f)
	}
	for _, r := range roots {
		visit(r)
	}
	// reverse postorder = reverse of postorder
	for i, j := 0, len(post)-1; i < j; i, j = i+1, j-1 {
		post[i], post[j] = post[j], post[i]
	}
	return post
}

// computeIdom is the Cooper/Harvey/Kennedy iterative dominator algorithm:
// a fixed point over reverse-postorder-numbered nodes, intersecting each
// node's already-resolved predecessors' idoms by walking up the tree.
// preds yields predecessors in the CFG this is computing dominators for
// (actual predecessors for forward dominance, successors for the
// post-dominance pass run against the reversed graph).
func computeIdom(rpo []*Fragment, rpoIndex map[string]int, preds func(*Fragment) []*Fragment) map[string]*Fragment {
	if len(rpo) == 0 {
		return map[string]*Fragment{}
	}
	idom := make(map[string]*Fragment, len(rpo))
	root := rpo[0]
	idom[root.FragID()] = root

	changed := true
	for changed {
		changed = false
		for _, f := range rpo[1:] {
			var newIdom *Fragment
			for _, p := range preds(f) {
				if idom[p.FragID()] == nil {
					continue
				}
				if newIdom == nil {
					newIdom = p
					continue
				}
				newIdom = intersect(newIdom, p, idom, rpoIndex)
			}
			if newIdom != nil && idom[f.FragID()] != newIdom {
				idom[f.FragID()] = newIdom
				changed = true
			}
		}
	}
	return idom
}

func intersect(a, b *Fragment, idom map[string]*Fragment, rpoIndex map[string]int) *Fragment {
	for a.FragID() != b.FragID() {
		for rpoIndex[a.FragID()] > rpoIndex[b.FragID()] {
			a = idom[a.FragID()]
		}
		for rpoIndex[b.FragID()] > rpoIndex[a.FragID()] {
			b = idom[b.FragID()]
		}
	}
	return a
}

func computeDominanceFrontier(rpo []*Fragment, idom map[string]*Fragment, preds func(*Fragment) []*Fragment) map[string]map[string]bool {
	df := make(map[string]map[string]bool, len(rpo))
	for _, f := range rpo {
		df[f.FragID()] = map[string]bool{}
	}
	for _, f := range rpo {
		ps := preds(f)
		if len(ps) < 2 {
			continue
		}
		id := idom[f.FragID()]
		if id == nil {
			continue
		}
		for _, p := range ps {
			for runner := p; runner != nil && runner.FragID() != id.FragID(); runner = idom[runner.FragID()] {
				df[runner.FragID()][f.FragID()] = true
				if runner.FragID() == idom[runner.FragID()].FragID() {
					break // reached the root, whose idom is itself
				}
			}
		}
	}
	return df
}

// Dominators returns, for every fragment but the entry, its immediate
// dominator.
func (g *CFG) Dominators() map[*Fragment]*Fragment {
	return g.resolveFrags(g.ensure().idom)
}

// PostDominators returns, for every fragment but the (possibly virtual)
// exit, its immediate post-dominator.
func (g *CFG) PostDominators() map[*Fragment]*Fragment {
	return g.resolveFrags(g.ensure().postIdom)
}

func (g *CFG) resolveFrags(idom map[string]*Fragment) map[*Fragment]*Fragment {
	byID := make(map[string]*Fragment, len(g.frags))
	for _, f := range g.frags {
		byID[f.FragID()] = f
	}
	out := make(map[*Fragment]*Fragment, len(idom))
	for id, d := range idom {
		if id == d.FragID() {
			continue // the root's idom is conventionally itself; not a real dominator
		}
		if f, ok := byID[id]; ok {
			out[f] = d
		}
	}
	return out
}

// DominanceFrontier returns the set of fragments in f's dominance
// frontier: nodes f dominates the predecessor of but not the node itself.
func (g *CFG) DominanceFrontier(f *Fragment) []*Fragment {
	c := g.ensure()
	ids := c.domFrontier[f.FragID()]
	var out []*Fragment
	for _, cand := range g.frags {
		if ids[cand.FragID()] {
			out = append(out, cand)
		}
	}
	return out
}

// ReversePostOrder returns the graph's fragments in reverse postorder from
// Entry, the traversal order every forward dataflow pass iterates in.
func (g *CFG) ReversePostOrder() []*Fragment {
	return g.ensure().rpo
}

// Dominates reports whether a dominates b (inclusive: a dominates itself).
func (g *CFG) Dominates(a, b *Fragment) bool {
	if a == b {
		return true
	}
	c := g.ensure()
	cur := b
	for {
		d, ok := c.idom[cur.FragID()]
		if !ok {
			return false
		}
		if d.FragID() == a.FragID() {
			return true
		}
		if d.FragID() == cur.FragID() {
			return false // reached the root without finding a
		}
		cur = d
	}
}
