// Package dtype implements the per-expression type lattice used by type
// analysis (spec §4.5): void at the top, widthed integers refining to
// signed/unsigned variants, floats, pointers, arrays, functions, compound
// (struct-like) types, char and named (typedef) types.
package dtype

import "fmt"

// Type is a node in the lattice. All implementations are immutable value
// types safe to share between expressions.
type Type interface {
	String() string
	// Equal reports structural equality (not lattice equivalence).
	Equal(other Type) bool
}

// Void is the lattice top: "unknown type". Every other type is <= Void.
type Void struct{}

func (Void) String() string       { return "void" }
func (Void) Equal(o Type) bool    { _, ok := o.(Void); return ok }
func isVoid(t Type) bool          { _, ok := t.(Void); return ok }

// Signedness of an integer type.
type Signedness int

const (
	Unsigned Signedness = iota
	Signed
)

// Int is a widthed integer type, e.g. i32, u16.
type Int struct {
	Bits int
	Sign Signedness
}

func (i Int) String() string {
	c := "u"
	if i.Sign == Signed {
		c = "i"
	}
	return fmt.Sprintf("%s%d", c, i.Bits)
}

func (i Int) Equal(o Type) bool {
	oi, ok := o.(Int)
	return ok && oi.Bits == i.Bits && oi.Sign == i.Sign
}

// Float is a floating-point type of a given width (32 or 64).
type Float struct {
	Bits int
}

func (f Float) String() string    { return fmt.Sprintf("f%d", f.Bits) }
func (f Float) Equal(o Type) bool { of, ok := o.(Float); return ok && of.Bits == f.Bits }

// Char is a single machine character (distinct from a narrow integer so
// format-specifier typing in the ellipsis processor can tell them apart).
type Char struct{}

func (Char) String() string    { return "char" }
func (Char) Equal(o Type) bool { _, ok := o.(Char); return ok }

// Pointer is a pointer-to-T type.
type Pointer struct {
	Elem Type
}

func (p Pointer) String() string { return p.Elem.String() + "*" }
func (p Pointer) Equal(o Type) bool {
	op, ok := o.(Pointer)
	return ok && op.Elem.Equal(p.Elem)
}

// Array is a fixed or unknown-length array of T.
type Array struct {
	Elem   Type
	Length int // -1 if unknown
}

func (a Array) String() string {
	if a.Length < 0 {
		return "[" + a.Elem.String() + "]"
	}
	return fmt.Sprintf("[%s;%d]", a.Elem.String(), a.Length)
}

func (a Array) Equal(o Type) bool {
	oa, ok := o.(Array)
	return ok && oa.Length == a.Length && oa.Elem.Equal(a.Elem)
}

// Function is a function/procedure signature type.
type Function struct {
	Params []Type
	Ret    Type
}

func (f Function) String() string {
	s := "("
	for i, p := range f.Params {
		if i > 0 {
			s += ", "
		}
		s += p.String()
	}
	s += ") -> "
	if f.Ret == nil {
		return s + "void"
	}
	return s + f.Ret.String()
}

func (f Function) Equal(o Type) bool {
	of, ok := o.(Function)
	if !ok || len(of.Params) != len(f.Params) {
		return false
	}
	for i := range f.Params {
		if !f.Params[i].Equal(of.Params[i]) {
			return false
		}
	}
	if (f.Ret == nil) != (of.Ret == nil) {
		return false
	}
	if f.Ret != nil && !f.Ret.Equal(of.Ret) {
		return false
	}
	return true
}

// Compound is a struct-like aggregate type, named by its member layout.
type Compound struct {
	Name    string
	Members []Member
}

// Member is one field of a Compound type.
type Member struct {
	Name string
	Type Type
}

func (c Compound) String() string { return "struct " + c.Name }
func (c Compound) Equal(o Type) bool {
	oc, ok := o.(Compound)
	if !ok || oc.Name != c.Name || len(oc.Members) != len(c.Members) {
		return false
	}
	for i := range c.Members {
		if c.Members[i].Name != oc.Members[i].Name || !c.Members[i].Type.Equal(oc.Members[i].Type) {
			return false
		}
	}
	return true
}

// Named wraps another type with a source-level typedef name. Two Named
// types are Equal only when both the name and the underlying type match;
// CompatibleWith looks through to the underlying type.
type Named struct {
	Name   string
	Under  Type
}

func (n Named) String() string { return n.Name }
func (n Named) Equal(o Type) bool {
	on, ok := o.(Named)
	return ok && on.Name == n.Name && on.Under.Equal(n.Under)
}

// underlying unwraps Named types; every other type is its own underlying.
func underlying(t Type) Type {
	for {
		n, ok := t.(Named)
		if !ok {
			return t
		}
		t = n.Under
	}
}

// IsVoid reports whether t is the Void top type.
func IsVoid(t Type) bool { return t == nil || isVoid(underlying(t)) }

// intRank gives each integer type a position used only to decide which of
// two integers is the "narrower" when joining. Larger rank = wider/more
// general.
func intRank(i Int) int {
	r := i.Bits
	if i.Sign == Signed {
		r++ // a signed type of the same width is treated as marginally wider
	}
	return r
}

// Join computes the least upper bound of a and b in the lattice. Void
// absorbs everything (Join(Void, T) == Void). Two incompatible concrete
// types (e.g. Int and Pointer) join to Void, never to a fabricated common
// ancestor.
func Join(a, b Type) Type {
	if a == nil || b == nil {
		return Void{}
	}
	ua, ub := underlying(a), underlying(b)
	if isVoid(ua) || isVoid(ub) {
		return Void{}
	}
	if ua.Equal(ub) {
		return a
	}

	switch x := ua.(type) {
	case Int:
		if y, ok := ub.(Int); ok {
			if intRank(x) >= intRank(y) {
				return x
			}
			return y
		}
	case Float:
		if y, ok := ub.(Float); ok {
			if x.Bits >= y.Bits {
				return x
			}
			return y
		}
	case Pointer:
		if y, ok := ub.(Pointer); ok {
			return Pointer{Elem: Join(x.Elem, y.Elem)}
		}
	case Array:
		if y, ok := ub.(Array); ok && x.Length == y.Length {
			return Array{Elem: Join(x.Elem, y.Elem), Length: x.Length}
		}
	}
	return Void{}
}

// CompatibleWith holds when either a <= b or b <= a in the lattice, or
// both refine a common non-void ancestor (same family, different width or
// signedness). It never holds across unrelated families (e.g. Int and
// Pointer are never compatible) unless one side is Void.
func CompatibleWith(a, b Type) bool {
	if a == nil || b == nil {
		return true
	}
	ua, ub := underlying(a), underlying(b)
	if isVoid(ua) || isVoid(ub) {
		return true
	}
	if ua.Equal(ub) {
		return true
	}
	switch x := ua.(type) {
	case Int:
		_, ok := ub.(Int)
		return ok
	case Float:
		_, ok := ub.(Float)
		return ok
	case Pointer:
		y, ok := ub.(Pointer)
		return ok && CompatibleWith(x.Elem, y.Elem)
	case Array:
		y, ok := ub.(Array)
		return ok && x.Length == y.Length && CompatibleWith(x.Elem, y.Elem)
	case Function:
		y, ok := ub.(Function)
		return ok && len(x.Params) == len(y.Params)
	case Compound:
		y, ok := ub.(Compound)
		return ok && x.Name == y.Name
	}
	return false
}

// Common machine-width shorthands, mirroring the builtin type table kept
// in internal/types/builtins.go.
var (
	I8    = Int{Bits: 8, Sign: Signed}
	I16   = Int{Bits: 16, Sign: Signed}
	I32   = Int{Bits: 32, Sign: Signed}
	I64   = Int{Bits: 64, Sign: Signed}
	U8    = Int{Bits: 8, Sign: Unsigned}
	U16   = Int{Bits: 16, Sign: Unsigned}
	U32   = Int{Bits: 32, Sign: Unsigned}
	U64   = Int{Bits: 64, Sign: Unsigned}
	F32   = Float{Bits: 32}
	F64   = Float{Bits: 64}
	CharT = Char{}
	VoidT = Void{}
)

// PointerTo is a small constructor mirroring PointerType::get in the
// original decompiler's type system.
func PointerTo(t Type) Pointer { return Pointer{Elem: t} }
