package dataflow

import "decompcore/internal/frag"

// DefSet maps a location key to the set of defining statement IDs that may
// (ReachingDefinitions) or must (AvailableDefinitions) reach a program
// point.
type DefSet map[string]map[string]bool

func (s DefSet) clone() DefSet {
	c := make(DefSet, len(s))
	for k, ids := range s {
		c2 := make(map[string]bool, len(ids))
		for id := range ids {
			c2[id] = true
		}
		c[k] = c2
	}
	return c
}

func (s DefSet) equal(o DefSet) bool {
	if len(s) != len(o) {
		return false
	}
	for k, ids := range s {
		oids, ok := o[k]
		if !ok || len(oids) != len(ids) {
			return false
		}
		for id := range ids {
			if !oids[id] {
				return false
			}
		}
	}
	return true
}

func unionDefSet(sets ...DefSet) DefSet {
	out := DefSet{}
	for _, s := range sets {
		for k, ids := range s {
			dst, ok := out[k]
			if !ok {
				dst = map[string]bool{}
				out[k] = dst
			}
			for id := range ids {
				dst[id] = true
			}
		}
	}
	return out
}

// intersectDefSet keeps only (loc, id-set) entries that agree exactly
// across every set in sets; with zero sets given it returns empty (the
// caller - a block with no predecessors - supplies that case itself).
func intersectDefSet(sets ...DefSet) DefSet {
	if len(sets) == 0 {
		return DefSet{}
	}
	out := sets[0].clone()
	for _, s := range sets[1:] {
		for k, ids := range out {
			oids, ok := s[k]
			if !ok || !sameIDSet(ids, oids) {
				delete(out, k)
			}
		}
	}
	return out
}

func sameIDSet(a, b map[string]bool) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if !b[id] {
			return false
		}
	}
	return true
}

// blockDefGenKill computes, for one fragment, the set of locations it
// writes (killLocs) and the single freshest definition id generated for
// each within the block (gen): a later def of the same location
// overwrites an earlier one within a single straight-line fragment.
func blockDefGenKill(f *frag.Fragment) (gen DefSet, killLocs LocSet) {
	gen, killLocs = DefSet{}, LocSet{}
	for _, s := range f.Stmts {
		for _, d := range s.Defines() {
			for _, k := range LocationKeys(d) {
				gen[k] = map[string]bool{s.ID(): true}
				killLocs[k] = true
			}
		}
	}
	return
}

// ReachResult holds, per fragment (keyed by FragID), the reaching/
// available definitions flowing in (In) and out (Out).
type ReachResult struct {
	In, Out map[string]DefSet
}

// ReachingDefinitions computes, for every program point, the set of
// definitions that MAY reach it along some path: a forward analysis with
// union meet (spec §4.4's "reaching-definitions").
func ReachingDefinitions(cfg *frag.CFG) *ReachResult {
	return solveForwardDefs(cfg, unionDefSet, func(DefSet) DefSet { return DefSet{} })
}

// AvailableDefinitions computes, for every program point, the set of
// definitions that MUST reach it along every path: a forward analysis
// with intersection meet (spec §4.4's "available-definitions").
func AvailableDefinitions(cfg *frag.CFG) *ReachResult {
	universe := DefSet{}
	for _, f := range cfg.Fragments() {
		gen, _ := blockDefGenKill(f)
		universe = unionDefSet(universe, gen)
	}
	return solveForwardDefs(cfg, intersectDefSet, func(u DefSet) DefSet { return u.clone() })
}

func solveForwardDefs(cfg *frag.CFG, meet func(...DefSet) DefSet, seed func(universe DefSet) DefSet) *ReachResult {
	frags := cfg.Fragments()
	gen := make(map[string]DefSet, len(frags))
	kill := make(map[string]LocSet, len(frags))
	universe := DefSet{}
	for _, f := range frags {
		g, k := blockDefGenKill(f)
		gen[f.FragID()], kill[f.FragID()] = g, k
		universe = unionDefSet(universe, g)
	}

	in := make(map[string]DefSet, len(frags))
	out := make(map[string]DefSet, len(frags))
	for _, f := range frags {
		in[f.FragID()] = DefSet{}
		if len(f.PredecessorFragments()) == 0 {
			out[f.FragID()] = DefSet{}
		} else {
			out[f.FragID()] = seed(universe)
		}
	}

	for changed := true; changed; {
		changed = false
		for _, f := range frags {
			preds := f.PredecessorFragments()
			var predOuts []DefSet
			for _, p := range preds {
				predOuts = append(predOuts, out[p.FragID()])
			}
			var newIn DefSet
			if len(predOuts) == 0 {
				newIn = DefSet{}
			} else {
				newIn = meet(predOuts...)
			}

			newOut := DefSet{}
			killLocs := kill[f.FragID()]
			for k, ids := range newIn {
				if killLocs[k] {
					continue
				}
				newOut[k] = ids
			}
			for k, ids := range gen[f.FragID()] {
				newOut[k] = ids
			}

			if !newIn.equal(in[f.FragID()]) || !newOut.equal(out[f.FragID()]) {
				in[f.FragID()], out[f.FragID()] = newIn, newOut
				changed = true
			}
		}
	}
	return &ReachResult{In: in, Out: out}
}
