package ssabuild

import (
	"decompcore/internal/expr"
	"decompcore/internal/frag"
)

// AllRefsHaveDefs checks spec §8 property 1: every use in cfg is a
// subscripted-reference. It does not require every reference's Def to be
// non-nil - a nil Def is the legitimate "live on entry" case - only that
// renaming has actually run, i.e. no bare Location use remains.
func AllRefsHaveDefs(cfg *frag.CFG) (ok bool, violations []string) {
	checker := &refChecker{}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			for _, u := range s.Uses() {
				expr.Walk(u, checker)
			}
		}
	}
	return len(checker.bad) == 0, checker.bad
}

type refChecker struct {
	expr.BaseVisitor
	bad []string
}

// VisitLocation only fires for a Location reached *without* first passing
// through a SubscriptRef - see VisitSubscriptRef below - so it correctly
// flags a bare use while leaving a properly wrapped one alone.
func (c *refChecker) VisitLocation(l *expr.Location) bool {
	c.bad = append(c.bad, "bare use of "+l.String()+" outside any subscripted-reference")
	return true
}

// VisitSubscriptRef checks the wrapped location's own addressing
// sub-expression (e.g. m[r[...]]'s r[...]) independently, then stops the
// generic Walk from descending into Sub itself - Sub being a bare Location
// is exactly what a SubscriptRef is supposed to wrap, not a violation.
func (c *refChecker) VisitSubscriptRef(r *expr.SubscriptRef) bool {
	if loc, ok := r.Sub.(*expr.Location); ok {
		switch loc.LKind {
		case expr.LocMemory:
			expr.Walk(loc.Addr, c)
		case expr.LocRegister:
			expr.Walk(loc.RegIndex, c)
		}
	}
	return false
}
