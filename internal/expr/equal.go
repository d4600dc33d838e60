package expr

import "sort"

// Equal reports structural equality between a and b modulo canonicalization
// of commutative/associative operators (spec §4.1/§8 property 6: clone(e)
// == e by structural equality).
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == b
	}
	return rawEqual(Canonicalize(a), Canonicalize(b))
}

// Canonicalize rewrites e into a normal form that reorders the operands of
// commutative operators and flattens+sorts chains of the same
// associative-commutative operator, so that structurally-equivalent trees
// built in different operand orders compare equal. It does not fold
// constants - that is Simplify's job.
func Canonicalize(e Expr) Expr {
	switch n := e.(type) {
	case *Unary:
		return &Unary{Op: n.Op, X: Canonicalize(n.X)}
	case *Binary:
		return canonicalizeBinary(n)
	case *Ternary:
		return &Ternary{Op: n.Op, A: Canonicalize(n.A), B: Canonicalize(n.B), C: Canonicalize(n.C)}
	case *Location:
		c := *n
		if n.Addr != nil {
			c.Addr = Canonicalize(n.Addr)
		}
		if n.RegIndex != nil {
			c.RegIndex = Canonicalize(n.RegIndex)
		}
		return &c
	case *SubscriptRef:
		return &SubscriptRef{Sub: Canonicalize(n.Sub), Def: n.Def}
	case *Typed:
		return &Typed{X: Canonicalize(n.X), Ty: n.Ty}
	case *Cast:
		return &Cast{X: Canonicalize(n.X), Ty: n.Ty}
	default:
		return e // Const, Terminal: already atomic
	}
}

func canonicalizeBinary(b *Binary) Expr {
	if commutativeAssoc[b.Op] {
		leaves := flatten(b.Op, b)
		for i, l := range leaves {
			leaves[i] = Canonicalize(l)
		}
		sort.Slice(leaves, func(i, j int) bool { return leaves[i].String() < leaves[j].String() })
		return foldChain(b.Op, leaves)
	}
	if _, ok := commutativeFlip[b.Op]; ok {
		l, r := Canonicalize(b.L), Canonicalize(b.R)
		if l.String() > r.String() {
			l, r = r, l
		}
		return &Binary{Op: b.Op, L: l, R: r}
	}
	return &Binary{Op: b.Op, L: Canonicalize(b.L), R: Canonicalize(b.R)}
}

// flatten collects every leaf of a chain of Binary nodes all sharing op,
// e.g. flatten("+", a+(b+c)) == [a, b, c].
func flatten(op string, e Expr) []Expr {
	b, ok := e.(*Binary)
	if !ok || b.Op != op {
		return []Expr{e}
	}
	var out []Expr
	out = append(out, flatten(op, b.L)...)
	out = append(out, flatten(op, b.R)...)
	return out
}

// foldChain rebuilds a left-associated Binary chain from a sorted leaf list.
func foldChain(op string, leaves []Expr) Expr {
	if len(leaves) == 0 {
		return Nil
	}
	acc := leaves[0]
	for _, l := range leaves[1:] {
		acc = &Binary{Op: op, L: acc, R: l}
	}
	return acc
}

// rawEqual compares two already-canonicalized trees structurally, with no
// further reordering.
func rawEqual(a, b Expr) bool {
	if a.Kind() != b.Kind() {
		return false
	}
	switch x := a.(type) {
	case *Const:
		y := b.(*Const)
		if x.CKind != y.CKind {
			return false
		}
		switch x.CKind {
		case ConstInt:
			return x.I == y.I
		case ConstFloat:
			return x.F == y.F
		case ConstString:
			return x.S == y.S
		}
		return false
	case *Terminal:
		y := b.(*Terminal)
		return x.TKind == y.TKind
	case *Unary:
		y := b.(*Unary)
		return x.Op == y.Op && rawEqual(x.X, y.X)
	case *Binary:
		y := b.(*Binary)
		return x.Op == y.Op && rawEqual(x.L, y.L) && rawEqual(x.R, y.R)
	case *Ternary:
		y := b.(*Ternary)
		return x.Op == y.Op && rawEqual(x.A, y.A) && rawEqual(x.B, y.B) && rawEqual(x.C, y.C)
	case *Location:
		y := b.(*Location)
		if x.LKind != y.LKind {
			return false
		}
		switch x.LKind {
		case LocMemory:
			return rawEqual(x.Addr, y.Addr)
		case LocRegister:
			return rawEqual(x.RegIndex, y.RegIndex)
		case LocTemp:
			return x.TempID == y.TempID
		default:
			return x.Name == y.Name
		}
	case *SubscriptRef:
		y := b.(*SubscriptRef)
		if !rawEqual(x.Sub, y.Sub) {
			return false
		}
		if x.Def == nil || y.Def == nil {
			return x.Def == nil && y.Def == nil
		}
		return x.Def.SameDef(y.Def)
	case *Typed:
		y := b.(*Typed)
		return x.Ty.Equal(y.Ty) && rawEqual(x.X, y.X)
	case *Cast:
		y := b.(*Cast)
		return x.Ty.Equal(y.Ty) && rawEqual(x.X, y.X)
	}
	return false
}
