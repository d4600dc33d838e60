package expr

import "decompcore/internal/dtype"

// Typed wraps a child expression with an explicit, source-of-truth type -
// used when type analysis (spec §4.5) needs to pin a type that cannot be
// inferred structurally.
type Typed struct {
	X  Expr
	Ty dtype.Type
}

func (t *Typed) Kind() Kind        { return KindTyped }
func (t *Typed) Type() dtype.Type  { return t.Ty }
func (t *Typed) String() string    { return "*" + t.Ty.String() + "*" + t.X.String() }
func (t *Typed) Clone() Expr       { return &Typed{X: t.X.Clone(), Ty: t.Ty} }
func (t *Typed) Equal(o Expr) bool { return Equal(t, o) }
func (t *Typed) Accept(v Visitor) bool { return v.VisitTyped(t) }
func (t *Typed) Modify(m Modifier) Expr {
	t2 := &Typed{X: t.X.Modify(m), Ty: t.Ty}
	return m.ModifyTyped(t2)
}

// Cast is a size/type cast applied at a use site - distinct from Typed in
// that it represents an actual bit-level conversion (narrowing, sign
// extension, truncation) rather than a pure annotation. Type analysis
// inserts these when two uses of the same subscripted-reference disagree
// on type (spec §4.5: "on conflicting types ... insert a cast at the use").
type Cast struct {
	X  Expr
	Ty dtype.Type
}

func (c *Cast) Kind() Kind        { return KindCast }
func (c *Cast) Type() dtype.Type  { return c.Ty }
func (c *Cast) String() string    { return "(" + c.Ty.String() + ")" + c.X.String() }
func (c *Cast) Clone() Expr       { return &Cast{X: c.X.Clone(), Ty: c.Ty} }
func (c *Cast) Equal(o Expr) bool { return Equal(c, o) }
func (c *Cast) Accept(v Visitor) bool { return v.VisitCast(c) }
func (c *Cast) Modify(m Modifier) Expr {
	c2 := &Cast{X: c.X.Modify(m), Ty: c.Ty}
	return m.ModifyCast(c2)
}
