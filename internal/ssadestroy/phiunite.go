package ssadestroy

import (
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/stmt"
)

// BuildPhiUnites constructs the pu graph of spec.md §4.7: an edge between
// a φ-assign's destination and each of its operands, recording "these
// would ideally share one local" candidates for the propagation step of
// destruction. Grounded on findPhiUnites in FromSSAFormPass.cpp.
func BuildPhiUnites(cfg *frag.CFG) *ConnectionGraph {
	pu := NewConnectionGraph()
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			phi, ok := s.(*stmt.Phi)
			if !ok {
				continue
			}
			lhsLoc, ok := phi.Lhs.(*expr.Location)
			if !ok {
				continue
			}
			lhsRef := expr.RefOf(lhsLoc.Clone(), phi)
			for _, v := range phi.Args {
				opRef, ok := v.(*expr.SubscriptRef)
				if !ok {
					continue
				}
				pu.Connect(lhsRef, opRef)
			}
		}
	}
	return pu
}
