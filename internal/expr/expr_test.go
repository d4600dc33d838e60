package expr

import (
	"testing"

	"decompcore/internal/dtype"
)

func TestCloneIsStructurallyEqual(t *testing.T) {
	e := &Binary{Op: "+", L: Local("eax"), R: IntConst(4, nil)}
	c := e.Clone()
	if c == Expr(e) {
		t.Fatal("Clone should return a distinct value")
	}
	if !c.Equal(e) {
		t.Fatal("Clone(e) should be structurally equal to e")
	}
}

func TestEqualCanonicalizesCommutativeOperands(t *testing.T) {
	a := &Binary{Op: "+", L: Local("x"), R: Local("y")}
	b := &Binary{Op: "+", L: Local("y"), R: Local("x")}
	if !a.Equal(b) {
		t.Fatal("commutative binary should be equal regardless of operand order")
	}

	c := &Binary{Op: "-", L: Local("x"), R: Local("y")}
	d := &Binary{Op: "-", L: Local("y"), R: Local("x")}
	if c.Equal(d) {
		t.Fatal("non-commutative binary should not ignore operand order")
	}
}

func TestEqualFlattensAssociativeChains(t *testing.T) {
	left := &Binary{Op: "+", L: Local("a"), R: &Binary{Op: "+", L: Local("b"), R: Local("c")}}
	right := &Binary{Op: "+", L: &Binary{Op: "+", L: Local("c"), R: Local("a")}, R: Local("b")}
	if !left.Equal(right) {
		t.Fatal("differently-associated chains of the same operator should be equal")
	}
}

func TestSimplifyIsIdempotent(t *testing.T) {
	e := &Binary{
		Op: "+",
		L:  &Binary{Op: "*", L: Local("x"), R: IntConst(1, nil)},
		R:  IntConst(0, nil),
	}
	once := Simplify(e)
	twice := Simplify(once)
	if !once.Equal(twice) {
		t.Fatalf("Simplify should be idempotent: once=%s twice=%s", once, twice)
	}
}

func TestSimplifyFoldsConstants(t *testing.T) {
	e := &Binary{Op: "+", L: IntConst(2, nil), R: IntConst(3, nil)}
	got := Simplify(e)
	c, ok := got.(*Const)
	if !ok || c.I != 5 {
		t.Fatalf("expected constant-folded 5, got %s", got)
	}
}

func TestSimplifyAlgebraicIdentities(t *testing.T) {
	cases := []struct {
		name string
		in   Expr
		want string
	}{
		{"x+0", &Binary{Op: "+", L: Local("x"), R: IntConst(0, nil)}, "x"},
		{"x*1", &Binary{Op: "*", L: Local("x"), R: IntConst(1, nil)}, "x"},
		{"x*0", &Binary{Op: "*", L: Local("x"), R: IntConst(0, nil)}, "0"},
		{"x&~0", &Binary{Op: "&", L: Local("x"), R: IntConst(-1, nil)}, "x"},
		{"x^x", &Binary{Op: "^", L: Local("x"), R: Local("x")}, "0"},
	}
	for _, tc := range cases {
		got := Simplify(tc.in)
		if got.String() != tc.want {
			t.Errorf("%s: Simplify() = %s, want %s", tc.name, got, tc.want)
		}
	}
}

func TestSimplifyAddressOfDereferenceCancellation(t *testing.T) {
	x := Local("p")
	e := &Unary{Op: "*", X: &Unary{Op: "&", X: x}}
	got := Simplify(e)
	if !got.Equal(x) {
		t.Fatalf("*(&x) should simplify to x, got %s", got)
	}
}

func TestSimplifyCastTruncatesConstant(t *testing.T) {
	e := &Cast{X: IntConst(0x1FF, dtype.I32), Ty: dtype.I8}
	got := Simplify(e)
	c, ok := got.(*Const)
	if !ok {
		t.Fatalf("expected a constant, got %T", got)
	}
	if c.I != -1 {
		t.Fatalf("casting 0x1FF to a signed 8-bit value should wrap to -1, got %d", c.I)
	}
}

func TestWalkCanShortCircuit(t *testing.T) {
	tree := &Binary{Op: "+", L: &Unary{Op: "-", X: Local("x")}, R: IntConst(1, nil)}
	visited := map[Kind]int{}
	v := &countingVisitor{visited: visited, stopAt: KindUnary}
	Walk(tree, v)
	if visited[KindUnary] != 1 {
		t.Fatalf("expected unary to be visited once, got %d", visited[KindUnary])
	}
	if visited[KindLocation] != 0 {
		t.Fatal("stopping recursion at the unary node should prevent its child from being visited")
	}
}

type countingVisitor struct {
	BaseVisitor
	visited map[Kind]int
	stopAt  Kind
}

func (c *countingVisitor) VisitUnary(u *Unary) bool {
	c.visited[KindUnary]++
	return u.Kind() != c.stopAt
}

func (c *countingVisitor) VisitLocation(l *Location) bool {
	c.visited[KindLocation]++
	return true
}

func TestModifyAlwaysRecursesToTheEnd(t *testing.T) {
	tree := &Binary{Op: "+", L: Local("x"), R: &Unary{Op: "-", X: Local("y")}}
	m := &renameModifier{from: "y", to: "z"}
	got := tree.Modify(m)
	if !containsLocation(got, "z") {
		t.Fatal("Modify should recurse into every child regardless of top-level match")
	}
}

type renameModifier struct {
	BaseModifier
	from, to string
}

func (r *renameModifier) ModifyLocation(l *Location) Expr {
	if l.LKind == LocLocal && l.Name == r.from {
		return Local(r.to)
	}
	return l
}

func containsLocation(e Expr, name string) bool {
	found := false
	Walk(e, &locFinder{name: name, found: &found})
	return found
}

type locFinder struct {
	BaseVisitor
	name  string
	found *bool
}

func (f *locFinder) VisitLocation(l *Location) bool {
	if l.LKind == LocLocal && l.Name == f.name {
		*f.found = true
	}
	return true
}
