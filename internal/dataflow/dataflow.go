// Package dataflow implements the iterative data-flow engine of spec §2
// item 4 / §4.4: live-variable, reaching-definitions and
// available-definitions analyses, plus the use-collector/def-collector
// snapshots a stmt.Call needs at its call site before its callee's body
// has been analyzed. Every analysis iterates to a fixed point over the
// CFG with a standard meet/transfer per fragment, generalized from the
// teacher's single-pass markReachable/markUsedValues walks
// (internal/ir/optimizations.go) into a proper iterative engine.
package dataflow

import (
	"decompcore/internal/expr"
	"decompcore/internal/frag"
)

// LocSet is a set of location keys: expr.Location.String() for a bare
// location, or the whole expr.SubscriptRef.String() (including its
// version) for an SSA-subscripted use, so live-variable/reaching facts
// are precise per SSA version once SSA construction has run.
type LocSet map[string]bool

func NewLocSet(keys ...string) LocSet {
	s := make(LocSet, len(keys))
	for _, k := range keys {
		s[k] = true
	}
	return s
}

func (s LocSet) Clone() LocSet {
	c := make(LocSet, len(s))
	for k := range s {
		c[k] = true
	}
	return c
}

func (s LocSet) Union(o LocSet) LocSet {
	c := s.Clone()
	for k := range o {
		c[k] = true
	}
	return c
}

func (s LocSet) Minus(o LocSet) LocSet {
	c := LocSet{}
	for k := range s {
		if !o[k] {
			c[k] = true
		}
	}
	return c
}

func (s LocSet) Equal(o LocSet) bool {
	if len(s) != len(o) {
		return false
	}
	for k := range s {
		if !o[k] {
			return false
		}
	}
	return true
}

// LocationKeys returns the location keys directly reachable from e
// without descending past a SubscriptRef (which is itself one atomic
// use/def - spec §3's "subscripted-reference").
func LocationKeys(e expr.Expr) []string {
	var out []string
	expr.Walk(e, &keyCollector{out: &out})
	return out
}

type keyCollector struct {
	expr.BaseVisitor
	out *[]string
}

func (c *keyCollector) VisitSubscriptRef(r *expr.SubscriptRef) bool {
	*c.out = append(*c.out, r.String())
	return false
}

func (c *keyCollector) VisitLocation(l *expr.Location) bool {
	*c.out = append(*c.out, l.String())
	return true
}

// blockUseDef computes a fragment's local USE and DEF sets: USE is
// locations read before any same-location def earlier in the fragment,
// DEF is every location written anywhere in it - the standard
// block-local facts live-variable analysis composes into a CFG-wide
// fixed point.
func blockUseDef(f *frag.Fragment) (use, def LocSet) {
	use, def = LocSet{}, LocSet{}
	for _, s := range f.Stmts {
		for _, u := range s.Uses() {
			for _, k := range LocationKeys(u) {
				if !def[k] {
					use[k] = true
				}
			}
		}
		for _, d := range s.Defines() {
			for _, k := range LocationKeys(d) {
				def[k] = true
			}
		}
	}
	return
}

// LiveSets holds, per fragment (keyed by FragID), the set of location
// keys live on entry (In) and on exit (Out).
type LiveSets struct {
	In, Out map[string]LocSet
}

// LiveVariables computes liveness by the classic backward, union-meet
// iteration: IN[f] = USE[f] ∪ (OUT[f] - DEF[f]), OUT[f] = ∪ IN[succ].
func LiveVariables(cfg *frag.CFG) *LiveSets {
	frags := cfg.Fragments()
	use := make(map[string]LocSet, len(frags))
	def := make(map[string]LocSet, len(frags))
	in := make(map[string]LocSet, len(frags))
	out := make(map[string]LocSet, len(frags))
	for _, f := range frags {
		use[f.FragID()], def[f.FragID()] = blockUseDef(f)
		in[f.FragID()] = LocSet{}
		out[f.FragID()] = LocSet{}
	}

	for changed := true; changed; {
		changed = false
		for i := len(frags) - 1; i >= 0; i-- {
			f := frags[i]
			newOut := LocSet{}
			for _, s := range f.SuccessorFragments() {
				newOut = newOut.Union(in[s.FragID()])
			}
			newIn := use[f.FragID()].Union(newOut.Minus(def[f.FragID()]))
			if !newIn.Equal(in[f.FragID()]) || !newOut.Equal(out[f.FragID()]) {
				in[f.FragID()], out[f.FragID()] = newIn, newOut
				changed = true
			}
		}
	}
	return &LiveSets{In: in, Out: out}
}
