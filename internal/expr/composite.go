package expr

import "fmt"

// Unary is an operator applied to a single child, e.g. "-x", "~x", "*x"
// (dereference), "&x" (address-of).
type Unary struct {
	Op string
	X  Expr
}

func (u *Unary) Kind() Kind     { return KindUnary }
func (u *Unary) String() string { return u.Op + "(" + u.X.String() + ")" }
func (u *Unary) Clone() Expr    { return &Unary{Op: u.Op, X: u.X.Clone()} }
func (u *Unary) Equal(o Expr) bool   { return Equal(u, o) }
func (u *Unary) Accept(v Visitor) bool { return v.VisitUnary(u) }
func (u *Unary) Modify(m Modifier) Expr {
	u2 := &Unary{Op: u.Op, X: u.X.Modify(m)}
	return m.ModifyUnary(u2)
}

// Binary is a two-operand operator tree node.
type Binary struct {
	Op string
	L  Expr
	R  Expr
}

func (b *Binary) Kind() Kind     { return KindBinary }
func (b *Binary) String() string { return fmt.Sprintf("(%s %s %s)", b.L, b.Op, b.R) }
func (b *Binary) Clone() Expr    { return &Binary{Op: b.Op, L: b.L.Clone(), R: b.R.Clone()} }
func (b *Binary) Equal(o Expr) bool   { return Equal(b, o) }
func (b *Binary) Accept(v Visitor) bool { return v.VisitBinary(b) }
func (b *Binary) Modify(m Modifier) Expr {
	b2 := &Binary{Op: b.Op, L: b.L.Modify(m), R: b.R.Modify(m)}
	return m.ModifyBinary(b2)
}

// commutativeAssoc is the set of operators that are both commutative and
// associative, the only ones Equal's canonicalization reorders/reassociates
// (spec §4.1: "modulo canonicalization of commutative/associative operators").
var commutativeAssoc = map[string]bool{
	"+": true, "*": true, "&": true, "|": true, "^": true, "&&": true, "||": true,
}

// commutativeFlip additionally includes comparisons whose operands may be
// swapped by flipping the operator; Equal treats these as commutative for
// a single level (not reassociated, since they aren't associative).
var commutativeFlip = map[string]string{
	"==": "==", "!=": "!=",
}

// Ternary is a three-operand node, e.g. a conditional select (cond ? a : b)
// or a sign-extend/truncate-with-width triple.
type Ternary struct {
	Op string
	A  Expr
	B  Expr
	C  Expr
}

func (t *Ternary) Kind() Kind     { return KindTernary }
func (t *Ternary) String() string { return fmt.Sprintf("%s(%s, %s, %s)", t.Op, t.A, t.B, t.C) }
func (t *Ternary) Clone() Expr {
	return &Ternary{Op: t.Op, A: t.A.Clone(), B: t.B.Clone(), C: t.C.Clone()}
}
func (t *Ternary) Equal(o Expr) bool   { return Equal(t, o) }
func (t *Ternary) Accept(v Visitor) bool { return v.VisitTernary(t) }
func (t *Ternary) Modify(m Modifier) Expr {
	t2 := &Ternary{Op: t.Op, A: t.A.Modify(m), B: t.B.Modify(m), C: t.C.Modify(m)}
	return m.ModifyTernary(t2)
}
