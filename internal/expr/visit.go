package expr

// Visitor observes an expression tree without changing it. Implementations
// return false from a Visit* method to stop recursion into that subtree
// (spec §9: "Visitors ... have the capability of stopping the recursion").
// The zero value of Visitor embeds no-op defaults via BaseVisitor.
type Visitor interface {
	VisitConst(*Const) bool
	VisitTerminal(*Terminal) bool
	VisitUnary(*Unary) bool
	VisitBinary(*Binary) bool
	VisitTernary(*Ternary) bool
	VisitLocation(*Location) bool
	VisitSubscriptRef(*SubscriptRef) bool
	VisitTyped(*Typed) bool
	VisitCast(*Cast) bool
}

// BaseVisitor gives every Visit* method a default "keep recursing" body;
// embed it and override only the methods a concrete visitor cares about.
type BaseVisitor struct{}

func (BaseVisitor) VisitConst(*Const) bool               { return true }
func (BaseVisitor) VisitTerminal(*Terminal) bool         { return true }
func (BaseVisitor) VisitUnary(*Unary) bool               { return true }
func (BaseVisitor) VisitBinary(*Binary) bool             { return true }
func (BaseVisitor) VisitTernary(*Ternary) bool           { return true }
func (BaseVisitor) VisitLocation(*Location) bool         { return true }
func (BaseVisitor) VisitSubscriptRef(*SubscriptRef) bool { return true }
func (BaseVisitor) VisitTyped(*Typed) bool               { return true }
func (BaseVisitor) VisitCast(*Cast) bool                 { return true }

// Modifier produces a replacement for every node it visits and always
// recurses to the end (spec §9: "Modifiers always recurse to the end").
type Modifier interface {
	ModifyConst(*Const) Expr
	ModifyTerminal(*Terminal) Expr
	ModifyUnary(*Unary) Expr
	ModifyBinary(*Binary) Expr
	ModifyTernary(*Ternary) Expr
	ModifyLocation(*Location) Expr
	ModifySubscriptRef(*SubscriptRef) Expr
	ModifyTyped(*Typed) Expr
	ModifyCast(*Cast) Expr
}

// BaseModifier returns every node unchanged; embed and override the
// methods that perform a real rewrite (e.g. ExpSSAXformer-style subscript
// stripping, see internal/ssadestroy).
type BaseModifier struct{}

func (BaseModifier) ModifyConst(e *Const) Expr               { return e }
func (BaseModifier) ModifyTerminal(e *Terminal) Expr         { return e }
func (BaseModifier) ModifyUnary(e *Unary) Expr               { return e }
func (BaseModifier) ModifyBinary(e *Binary) Expr             { return e }
func (BaseModifier) ModifyTernary(e *Ternary) Expr           { return e }
func (BaseModifier) ModifyLocation(e *Location) Expr         { return e }
func (BaseModifier) ModifySubscriptRef(e *SubscriptRef) Expr { return e }
func (BaseModifier) ModifyTyped(e *Typed) Expr               { return e }
func (BaseModifier) ModifyCast(e *Cast) Expr                 { return e }

// Walk visits e and, if the visitor returns true, its children, depth
// first. It is the traversal skeleton shared by Search/SearchAll/free
// location collection - see the "visitor/modifier duality" design note.
func Walk(e Expr, v Visitor) {
	if e == nil || !e.Accept(v) {
		return
	}
	switch n := e.(type) {
	case *Unary:
		Walk(n.X, v)
	case *Binary:
		Walk(n.L, v)
		Walk(n.R, v)
	case *Ternary:
		Walk(n.A, v)
		Walk(n.B, v)
		Walk(n.C, v)
	case *Location:
		if n.Addr != nil {
			Walk(n.Addr, v)
		}
		if n.RegIndex != nil {
			Walk(n.RegIndex, v)
		}
	case *SubscriptRef:
		Walk(n.Sub, v)
	case *Typed:
		Walk(n.X, v)
	case *Cast:
		Walk(n.X, v)
	}
}
