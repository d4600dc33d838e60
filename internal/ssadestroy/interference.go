package ssadestroy

import (
	"decompcore/internal/dataflow"
	"decompcore/internal/dtype"
	"decompcore/internal/expr"
	"decompcore/internal/frag"
)

// BuildInterference constructs the ig graph of spec.md §4.7: two edge
// sources, unioned. First-type interference connects a definition to the
// earlier definition of the same base location when their types are
// incompatible - except when the new definition's type is Void, in which
// case no edge is added (spec.md §9 Open Question 3: void-typed
// definitions never interfere on type grounds, preserved deliberately,
// not a bug). Liveness interference connects a definition to every other
// SSA version of the same base location simultaneously live. Grounded on
// FromSSAFormPass::execute's construction of ig from
// DataFlow::getTypedInterferences plus its own per-statement liveness
// walk (InterferenceFinder, not present in this pack - built here from
// internal/dataflow's existing liveness analysis instead).
func BuildInterference(cfg *frag.CFG) *ConnectionGraph {
	ig := NewConnectionGraph()
	addFirstTypeInterference(cfg, ig)
	addLivenessInterference(cfg, ig)
	return ig
}

func addFirstTypeInterference(cfg *frag.CFG, ig *ConnectionGraph) {
	type firstEntry struct {
		ty  dtype.Type
		ref *expr.SubscriptRef
	}
	first := map[string]firstEntry{}

	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			for _, d := range s.Defines() {
				loc, ok := d.(*expr.Location)
				if !ok {
					continue
				}
				ty := typeOfDefine(s, loc)
				ref := expr.RefOf(loc.Clone(), s)
				key := loc.String()

				ent, seen := first[key]
				if !seen {
					first[key] = firstEntry{ty: ty, ref: ref}
					continue
				}
				if dtype.IsVoid(ty) {
					continue
				}
				if !dtype.CompatibleWith(ty, ent.ty) {
					ig.Connect(ref, ent.ref)
				}
			}
		}
	}
}

// addLivenessInterference connects a definition to every other SSA
// version of the same base location live at the instant right after that
// definition - the standard graph-coloring interference construction,
// built on top of internal/dataflow.LiveVariables's cross-fragment
// liveness rather than re-deriving a separate per-statement analysis.
func addLivenessInterference(cfg *frag.CFG, ig *ConnectionGraph) {
	live := dataflow.LiveVariables(cfg)
	refsByKey := collectAllUseRefs(cfg)

	for _, f := range cfg.Fragments() {
		liveNow := map[string]*expr.SubscriptRef{}
		for k := range live.Out[f.FragID()] {
			if ref, ok := refsByKey[k]; ok {
				liveNow[k] = ref
			}
		}

		for i := len(f.Stmts) - 1; i >= 0; i-- {
			s := f.Stmts[i]

			for _, d := range s.Defines() {
				loc, ok := d.(*expr.Location)
				if !ok {
					continue
				}
				defRef := expr.RefOf(loc.Clone(), s)
				for k, other := range liveNow {
					if other.String() == defRef.String() {
						continue
					}
					otherBase := other.Base()
					if otherBase == nil || !otherBase.BaseEqual(loc) {
						continue
					}
					ig.Connect(defRef, other)
					_ = k
				}
			}

			for k, ref := range liveNow {
				if defStmt, ok := ref.Def.(interface{ ID() string }); ok && defStmt.ID() == s.ID() {
					delete(liveNow, k)
				}
			}

			for _, u := range s.Uses() {
				expr.Walk(u, &refCollector{into: liveNow})
			}
		}
	}
}

// refCollector gathers every SubscriptRef reachable in an expression tree
// (without descending past one, since a subscripted reference is atomic)
// into a caller-supplied map keyed by its String() form.
type refCollector struct {
	expr.BaseVisitor
	into map[string]*expr.SubscriptRef
}

func (c *refCollector) VisitSubscriptRef(r *expr.SubscriptRef) bool {
	c.into[r.String()] = r
	return false
}

// collectAllUseRefs walks every statement's Uses() in cfg once, returning
// every SubscriptRef encountered keyed by its String() form - the lookup
// table addLivenessInterference needs to turn a bare live-variable key
// (from internal/dataflow, which only stores strings) back into a
// reference object it can connect an edge to.
func collectAllUseRefs(cfg *frag.CFG) map[string]*expr.SubscriptRef {
	out := map[string]*expr.SubscriptRef{}
	c := &refCollector{into: out}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			for _, u := range s.Uses() {
				expr.Walk(u, c)
			}
		}
	}
	return out
}
