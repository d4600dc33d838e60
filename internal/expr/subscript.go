package expr

import "fmt"

// SubscriptRef pairs a use with the unique statement that defines it (the
// SSA "version"): spec §3's "subscripted-reference". Def is nil only for
// an implicit definition ("live on entry" - parameter placeholder); callers
// distinguish that case with IsImplicit.
type SubscriptRef struct {
	Sub Expr
	Def Definer
}

// RefOf wraps sub with its defining statement. def may be nil to denote an
// implicit ("live on entry") reference.
func RefOf(sub Expr, def Definer) *SubscriptRef {
	return &SubscriptRef{Sub: sub, Def: def}
}

func (r *SubscriptRef) Kind() Kind { return KindSubscriptRef }

func (r *SubscriptRef) String() string {
	if r.Def == nil {
		return fmt.Sprintf("%s{-}", r.Sub)
	}
	return fmt.Sprintf("%s{%s}", r.Sub, r.Def.RefString())
}

func (r *SubscriptRef) Clone() Expr {
	return &SubscriptRef{Sub: r.Sub.Clone(), Def: r.Def}
}

func (r *SubscriptRef) Equal(o Expr) bool { return Equal(r, o) }

func (r *SubscriptRef) Accept(v Visitor) bool { return v.VisitSubscriptRef(r) }

func (r *SubscriptRef) Modify(m Modifier) Expr {
	r2 := &SubscriptRef{Sub: r.Sub.Modify(m), Def: r.Def}
	return m.ModifySubscriptRef(r2)
}

// IsImplicit reports whether this reference's definition is implicit
// ("live on entry"), i.e. Def is nil.
func (r *SubscriptRef) IsImplicit() bool { return r.Def == nil }

// Base returns the wrapped Location if Sub is one, else nil. Most
// subscripted-references wrap a Location; this is a convenience accessor
// used pervasively by SSA destruction.
func (r *SubscriptRef) Base() *Location {
	loc, _ := r.Sub.(*Location)
	return loc
}
