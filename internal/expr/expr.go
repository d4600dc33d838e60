// Package expr implements the algebraic IR expression model of spec §4.1:
// an immutable-by-convention tree with structural equality (modulo
// canonicalization of commutative/associative operators), cloning,
// visitor/modifier traversal, simplification to a canonical normal form,
// and structural search/replace.
package expr

import "decompcore/internal/dtype"

// Kind discriminates the Expr variants named in spec §3.
type Kind int

const (
	KindConst Kind = iota
	KindTerminal
	KindUnary
	KindBinary
	KindTernary
	KindLocation
	KindSubscriptRef
	KindTyped
	KindCast
)

// Expr is an immutable-by-convention node in the expression tree. All
// concrete variants live in this package; dispatch is by type switch
// (Accept) rather than a method per operation, per the "polymorphic IR"
// design note: tagged-variant expressions with explicit visit dispatch
// compose better for simplification/cloning than a virtual hierarchy would.
type Expr interface {
	Kind() Kind
	String() string
	// Clone returns a deep, independent copy.
	Clone() Expr
	// Equal is structural equality modulo canonicalization of
	// commutative/associative operators (spec §4.1).
	Equal(other Expr) bool
	// Accept drives a read-only Visitor traversal of this subtree.
	Accept(v Visitor) bool
	// Modify drives a Modifier traversal, always recursing fully and
	// returning a (possibly new) replacement expression.
	Modify(m Modifier) Expr
}

// Definer is the minimal surface an owning statement exposes to a
// SubscriptRef, so that expr does not need to import the stmt package
// (statements back-reference fragments which back-reference procedures;
// expr stays a leaf package per the "cyclic IR graphs" design note: these
// are handles, not owning references).
type Definer interface {
	// RefString renders the way this definition should appear inside a
	// subscript, e.g. a statement number, or "-" for an implicit def.
	RefString() string
	// SameDef reports whether other refers to the same definition.
	SameDef(other Definer) bool
}

// Typer exposes the type of an expression, when known. Const, Location,
// Typed and Cast all carry one; SubscriptRef and composite nodes fall back
// to void until type analysis (package dtype-consumer opt) annotates them.
type Typer interface {
	Type() dtype.Type
}
