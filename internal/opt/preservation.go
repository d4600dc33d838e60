package opt

import (
	"sort"

	"github.com/sasha-s/go-deadlock"

	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/proc"
	"decompcore/internal/stmt"
)

// PreservationCache is the inter-procedural piece of cross-procedure
// mutable state named in spec.md §5 alongside proc.ProgramTable: the set
// of locations each procedure is proven to leave unchanged, keyed by
// procedure ID. Only PreservationAnalysis reads it, to compare a new
// result with the previous one; callers' analyses do not consult it, and
// stmt.Call.BypassRef reads Call.Preserved, which is not filled from it.
// Guarded by a deadlock-detecting mutex for the same reason
// proc.ProgramTable is (SPEC_FULL §2.2, §5).
type PreservationCache struct {
	mu     deadlock.RWMutex
	byProc map[string][]string
}

func NewPreservationCache() *PreservationCache {
	return &PreservationCache{byProc: map[string][]string{}}
}

func (c *PreservationCache) Get(procID string) ([]string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.byProc[procID]
	return v, ok
}

func (c *PreservationCache) Set(procID string, preserved []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byProc[procID] = preserved
}

// PreservationAnalysis computes the set of locations proven equal on
// exit to their value on entry (spec.md §4.4) and records it both on the
// procedure's signature and in cache. It looks at one procedure at a
// time and never reads its callees' cached results; internal/passmgr
// reruns it only within its own group's fixed point, with no ordering by
// the call graph, so no inter-procedural fixed point is computed.
func PreservationAnalysis(cache *PreservationCache) Pass {
	return preservationAnalysis{cache: cache}
}

type preservationAnalysis struct{ cache *PreservationCache }

func (preservationAnalysis) Name() string { return "preservation-analysis" }

func (p preservationAnalysis) Execute(pr *proc.Procedure) (bool, error) {
	preserved := computePreserved(pr.CFG)
	before, _ := p.cache.Get(pr.ProcID())
	changed := !sameStringSlice(before, preserved)
	p.cache.Set(pr.ProcID(), preserved)
	pr.Signature.Preserved = preserved
	return changed, nil
}

// computePreserved finds every returned location whose value chases back
// to its own entry value unchanged.
func computePreserved(cfg *frag.CFG) []string {
	seen := map[string]bool{}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			ret, ok := s.(*stmt.Return)
			if !ok {
				continue
			}
			for _, d := range ret.Defs {
				loc, ok := d.Lhs.(*expr.Location)
				if !ok {
					continue
				}
				if entry, ok := chaseToEntryValue(d.Val, 8); ok && entry.BaseEqual(loc) {
					seen[loc.String()] = true
				}
			}
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// chaseToEntryValue walks a (possibly chained) copy back to the implicit
// "live on entry" reference it ultimately resolves to, if any - the
// generalization of stmt.Call's resolveConstString to an arbitrary
// location rather than a string constant specifically.
func chaseToEntryValue(v expr.Expr, hops int) (*expr.Location, bool) {
	if hops <= 0 {
		return nil, false
	}
	ref, ok := v.(*expr.SubscriptRef)
	if !ok {
		return nil, false
	}
	if ref.IsImplicit() {
		loc := ref.Base()
		return loc, loc != nil
	}
	switch d := ref.Def.(type) {
	case *stmt.Implicit:
		loc, ok := d.Lhs.(*expr.Location)
		return loc, ok
	case *stmt.Assign:
		return chaseToEntryValue(d.Rhs, hops-1)
	case *stmt.Phi:
		val, ok := uniformPhiValue(d)
		if !ok {
			return nil, false
		}
		return chaseToEntryValue(val, hops-1)
	default:
		return nil, false
	}
}

func sameStringSlice(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
