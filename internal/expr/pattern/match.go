package pattern

import (
	"strconv"

	"decompcore/internal/expr"
)

// Bindings maps wildcard names to the subtrees they matched.
type Bindings map[string]expr.Expr

// Match reports whether n matches e, and if so returns the wildcard
// bindings collected along the way. A repeated wildcard name must match
// structurally-equal subtrees each time it is seen (spec §4.1).
func Match(n *Node, e expr.Expr) (Bindings, bool) {
	b := Bindings{}
	if !match(n, e, b) {
		return nil, false
	}
	return b, true
}

func match(n *Node, e expr.Expr, b Bindings) bool {
	switch {
	case n.Wild != nil:
		return matchWildcard(n.Wild, e, b)
	case n.Class != nil:
		return matchClass(*n.Class, e)
	case n.Lit != nil:
		return matchLit(*n.Lit, e)
	case n.Call != nil:
		return matchCall(n.Call, e, b)
	}
	return false
}

func matchWildcard(w *Wildcard, e expr.Expr, b Bindings) bool {
	if w.Name == nil {
		return true
	}
	name := *w.Name
	if prior, ok := b[name]; ok {
		return prior.Equal(e)
	}
	b[name] = e
	return true
}

func matchClass(class string, e expr.Expr) bool {
	switch class {
	case "CONST":
		_, ok := e.(*expr.Const)
		return ok
	case "LOC":
		_, ok := e.(*expr.Location)
		return ok
	case "TERM":
		_, ok := e.(*expr.Terminal)
		return ok
	}
	return false
}

func matchLit(lit string, e expr.Expr) bool {
	c, ok := e.(*expr.Const)
	if !ok || c.CKind != expr.ConstInt {
		return false
	}
	v, err := strconv.ParseInt(lit, 10, 64)
	if err != nil {
		return false
	}
	return c.I == v
}

func matchCall(call *Call, e expr.Expr, b Bindings) bool {
	switch n := e.(type) {
	case *expr.Unary:
		return n.Op == call.Op && len(call.Args) == 1 && match(call.Args[0], n.X, b)
	case *expr.Binary:
		return n.Op == call.Op && len(call.Args) == 2 &&
			match(call.Args[0], n.L, b) && match(call.Args[1], n.R, b)
	case *expr.Ternary:
		return n.Op == call.Op && len(call.Args) == 3 &&
			match(call.Args[0], n.A, b) && match(call.Args[1], n.B, b) && match(call.Args[2], n.C, b)
	}
	return false
}
