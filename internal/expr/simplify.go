package expr

import (
	"math"

	"decompcore/internal/dtype"
)

// Simplify reduces e to an idempotent normal form: constant folding with
// overflow semantics matching the target machine, algebraic identities,
// reassociation only where it enables folding, address-of/dereference
// cancellation, and typed-expression absorption into narrower constants
// (spec §4.1). Simplify(Simplify(e)) == Simplify(e) (spec §8 property 5).
func Simplify(e Expr) Expr {
	e = simplifyChildren(e)
	for i := 0; i < 8; i++ {
		next, changed := simplifyOnce(e)
		if !changed {
			return next
		}
		e = simplifyChildren(next)
	}
	return e
}

func simplifyChildren(e Expr) Expr {
	switch n := e.(type) {
	case *Unary:
		return &Unary{Op: n.Op, X: Simplify(n.X)}
	case *Binary:
		return &Binary{Op: n.Op, L: Simplify(n.L), R: Simplify(n.R)}
	case *Ternary:
		return &Ternary{Op: n.Op, A: Simplify(n.A), B: Simplify(n.B), C: Simplify(n.C)}
	case *Location:
		c := *n
		if n.Addr != nil {
			c.Addr = Simplify(n.Addr)
		}
		if n.RegIndex != nil {
			c.RegIndex = Simplify(n.RegIndex)
		}
		return &c
	case *SubscriptRef:
		return &SubscriptRef{Sub: Simplify(n.Sub), Def: n.Def}
	case *Typed:
		return &Typed{X: Simplify(n.X), Ty: n.Ty}
	case *Cast:
		return &Cast{X: Simplify(n.X), Ty: n.Ty}
	default:
		return e
	}
}

// simplifyOnce applies one round of local rewrite rules at the top of e,
// assuming children are already simplified. Returns whether it changed e.
func simplifyOnce(e Expr) (Expr, bool) {
	switch n := e.(type) {
	case *Unary:
		return simplifyUnary(n)
	case *Binary:
		return simplifyBinary(n)
	case *Cast:
		return simplifyCast(n)
	case *Typed:
		return simplifyTyped(n)
	default:
		return e, false
	}
}

func simplifyUnary(u *Unary) (Expr, bool) {
	// Double negation / complement / not cancellation.
	if inner, ok := u.X.(*Unary); ok && inner.Op == u.Op && (u.Op == "-" || u.Op == "~" || u.Op == "!") {
		return inner.X, true
	}
	// Address-of/dereference cancellation.
	if inner, ok := u.X.(*Unary); ok {
		if u.Op == "*" && inner.Op == "&" {
			return inner.X, true
		}
		if u.Op == "&" && inner.Op == "*" {
			return inner.X, true
		}
	}
	// Constant folding.
	if c, ok := u.X.(*Const); ok {
		switch u.Op {
		case "-":
			if c.CKind == ConstInt {
				return &Const{CKind: ConstInt, I: -c.I, Ty: c.Ty}, true
			}
			if c.CKind == ConstFloat {
				return &Const{CKind: ConstFloat, F: -c.F, Ty: c.Ty}, true
			}
		case "~":
			if c.CKind == ConstInt {
				return &Const{CKind: ConstInt, I: ^c.I, Ty: c.Ty}, true
			}
		case "!":
			if c.CKind == ConstInt {
				v := int64(0)
				if c.I == 0 {
					v = 1
				}
				return &Const{CKind: ConstInt, I: v, Ty: dtype.Int{Bits: 1, Sign: dtype.Unsigned}}, true
			}
		}
	}
	return u, false
}

func simplifyCast(c *Cast) (Expr, bool) {
	// Typed-expression absorption into narrower constants: a cast of a
	// constant truncates/reinterprets the value at the cast's width
	// rather than leaving the cast wrapping a wider constant.
	if inner, ok := c.X.(*Const); ok && inner.CKind == ConstInt {
		if it, ok := c.Ty.(dtype.Int); ok {
			return &Const{CKind: ConstInt, I: truncateToWidth(inner.I, it), Ty: it}, true
		}
	}
	// A cast to the expression's own type is a no-op.
	if tt, ok := c.X.(Typer); ok && tt.Type() != nil && tt.Type().Equal(c.Ty) {
		return c.X, true
	}
	return c, false
}

func simplifyTyped(t *Typed) (Expr, bool) {
	if inner, ok := t.X.(*Const); ok {
		clone := *inner
		clone.Ty = t.Ty
		if clone.CKind == ConstInt {
			if it, ok := t.Ty.(dtype.Int); ok {
				clone.I = truncateToWidth(clone.I, it)
			}
		}
		return &clone, true
	}
	return t, false
}

func truncateToWidth(v int64, ty dtype.Int) int64 {
	if ty.Bits <= 0 || ty.Bits >= 64 {
		return v
	}
	mask := int64(1)<<uint(ty.Bits) - 1
	v &= mask
	if ty.Sign == dtype.Signed {
		signBit := int64(1) << uint(ty.Bits-1)
		if v&signBit != 0 {
			v -= mask + 1
		}
	}
	return v
}

func simplifyBinary(b *Binary) (Expr, bool) {
	if commutativeAssoc[b.Op] {
		if next, changed := simplifyAssocChain(b); changed {
			return next, true
		}
	}

	// Algebraic identities.
	if v, ok := algebraicIdentity(b); ok {
		return v, true
	}

	// Direct constant folding when both sides are constants.
	if lc, ok := b.L.(*Const); ok {
		if rc, ok2 := b.R.(*Const); ok2 {
			if folded, ok3 := foldConstBinary(b.Op, lc, rc); ok3 {
				return folded, true
			}
		}
	}

	return b, false
}

// simplifyAssocChain reassociates a chain of the same associative
// operator only far enough to collect its constant leaves into one, i.e.
// only when doing so enables additional folding (spec §4.1).
func simplifyAssocChain(b *Binary) (Expr, bool) {
	leaves := flatten(b.Op, b)
	if len(leaves) < 2 {
		return b, false
	}
	var consts []*Const
	var rest []Expr
	for _, l := range leaves {
		if c, ok := l.(*Const); ok {
			consts = append(consts, c)
		} else {
			rest = append(rest, l)
		}
	}
	if len(consts) < 2 {
		return b, false
	}
	acc := consts[0]
	for _, c := range consts[1:] {
		folded, ok := foldConstBinary(b.Op, acc, c)
		if !ok {
			return b, false
		}
		acc = folded.(*Const)
	}
	newLeaves := append(rest, acc)
	return foldChain(b.Op, newLeaves), true
}

func algebraicIdentity(b *Binary) (Expr, bool) {
	isZero := func(e Expr) bool { c, ok := e.(*Const); return ok && c.IsZero() }
	isOne := func(e Expr) bool { c, ok := e.(*Const); return ok && c.IsOne() }
	isAllOnes := func(e Expr) bool { c, ok := e.(*Const); return ok && c.CKind == ConstInt && c.I == -1 }
	isTrue := func(e Expr) bool { c, ok := e.(*Const); return ok && c.CKind == ConstInt && c.I != 0 }
	isFalse := func(e Expr) bool { c, ok := e.(*Const); return ok && c.CKind == ConstInt && c.I == 0 }

	switch b.Op {
	case "+":
		if isZero(b.R) {
			return b.L, true
		}
		if isZero(b.L) {
			return b.R, true
		}
	case "-":
		if isZero(b.R) {
			return b.L, true
		}
		if b.L.Equal(b.R) {
			return IntConst(0, nil), true
		}
	case "*":
		if isOne(b.R) {
			return b.L, true
		}
		if isOne(b.L) {
			return b.R, true
		}
		if isZero(b.L) || isZero(b.R) {
			return IntConst(0, nil), true
		}
	case "&":
		if isAllOnes(b.R) {
			return b.L, true
		}
		if isAllOnes(b.L) {
			return b.R, true
		}
		if b.L.Equal(b.R) {
			return b.L, true
		}
	case "|":
		if isZero(b.R) {
			return b.L, true
		}
		if isZero(b.L) {
			return b.R, true
		}
		if b.L.Equal(b.R) {
			return b.L, true
		}
	case "^":
		if b.L.Equal(b.R) {
			return IntConst(0, nil), true
		}
		if isZero(b.R) {
			return b.L, true
		}
		if isZero(b.L) {
			return b.R, true
		}
	case "&&":
		if isFalse(b.L) || isFalse(b.R) {
			return IntConst(0, dtype.Int{Bits: 1}), true
		}
		if isTrue(b.L) {
			return b.R, true
		}
		if isTrue(b.R) {
			return b.L, true
		}
	case "||":
		if isTrue(b.L) || isTrue(b.R) {
			return IntConst(1, dtype.Int{Bits: 1}), true
		}
		if isFalse(b.L) {
			return b.R, true
		}
		if isFalse(b.R) {
			return b.L, true
		}
	}
	return nil, false
}

// foldConstBinary computes the result of applying op to two constants with
// overflow semantics matching 64-bit two's-complement machine arithmetic,
// truncated to the wider operand's declared integer width (i32 when
// either operand's type is not an integer type).
func foldConstBinary(op string, l, r *Const) (Expr, bool) {
	if l.CKind == ConstInt && r.CKind == ConstInt {
		a, b := l.I, r.I
		ty := widerIntType(l.Ty, r.Ty)
		switch op {
		case "+":
			return maskedIntConst(a+b, ty), true
		case "-":
			return maskedIntConst(a-b, ty), true
		case "*":
			return maskedIntConst(a*b, ty), true
		case "/":
			if b == 0 {
				return nil, false
			}
			return maskedIntConst(a/b, ty), true
		case "%":
			if b == 0 {
				return nil, false
			}
			return maskedIntConst(a%b, ty), true
		case "&":
			return maskedIntConst(a&b, ty), true
		case "|":
			return maskedIntConst(a|b, ty), true
		case "^":
			return maskedIntConst(a^b, ty), true
		case "<<":
			return maskedIntConst(a<<uint(b), ty), true
		case ">>":
			return maskedIntConst(a>>uint(b), ty), true
		case "==":
			return boolConst(a == b), true
		case "!=":
			return boolConst(a != b), true
		case "<":
			return boolConst(a < b), true
		case "<=":
			return boolConst(a <= b), true
		case ">":
			return boolConst(a > b), true
		case ">=":
			return boolConst(a >= b), true
		case "&&":
			return boolConst(a != 0 && b != 0), true
		case "||":
			return boolConst(a != 0 || b != 0), true
		}
	}
	if l.CKind == ConstFloat && r.CKind == ConstFloat {
		a, b := l.F, r.F
		switch op {
		case "+":
			return FloatConst(a+b, l.Ty), true
		case "-":
			return FloatConst(a-b, l.Ty), true
		case "*":
			return FloatConst(a*b, l.Ty), true
		case "/":
			return FloatConst(a/b, l.Ty), true
		case "==":
			return boolConst(a == b), true
		case "!=":
			return boolConst(a != b), true
		case "<":
			return boolConst(a < b), true
		case "<=":
			return boolConst(a <= b), true
		case ">":
			return boolConst(a > b), true
		case ">=":
			return boolConst(a >= b), true
		}
	}
	if op == "==" && l.CKind == ConstString && r.CKind == ConstString {
		return boolConst(l.S == r.S), true
	}
	return nil, false
}

func boolConst(v bool) *Const {
	i := int64(0)
	if v {
		i = 1
	}
	return &Const{CKind: ConstInt, I: i, Ty: dtype.Int{Bits: 1}}
}

func widerIntType(a, b dtype.Type) dtype.Type {
	ai, aok := a.(dtype.Int)
	bi, bok := b.(dtype.Int)
	if !aok || !bok {
		return dtype.I32
	}
	if ai.Bits >= bi.Bits {
		return ai
	}
	return bi
}

func maskedIntConst(v int64, ty dtype.Type) *Const {
	it, ok := ty.(dtype.Int)
	if !ok {
		it = dtype.I32
	}
	return &Const{CKind: ConstInt, I: truncateToWidth(v, it), Ty: it}
}

// nan is unused directly but documents that float folding intentionally
// lets NaN/Inf propagate the way IEEE-754 machine arithmetic does.
var _ = math.NaN
