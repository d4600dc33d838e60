package pattern

import "decompcore/internal/expr"

// Found is one occurrence of a pattern inside a tree, together with the
// wildcard bindings collected at that occurrence.
type Found struct {
	Expr     expr.Expr
	Bindings Bindings
}

// SearchAll walks root and returns every subtree matching the compiled
// pattern patSrc, in depth-first pre-order.
func SearchAll(root expr.Expr, patSrc string) ([]Found, error) {
	n, err := Parse(patSrc)
	if err != nil {
		return nil, err
	}
	var out []Found
	c := &collector{pat: n, out: &out}
	expr.Walk(root, c)
	return out, nil
}

// Search returns the first subtree of root matching patSrc, or ok == false
// if none does.
func Search(root expr.Expr, patSrc string) (Found, bool, error) {
	all, err := SearchAll(root, patSrc)
	if err != nil || len(all) == 0 {
		return Found{}, false, err
	}
	return all[0], true, nil
}

// SearchAndReplace rewrites every subtree of root matching patSrc, bottom
// up, replacing each match with build(bindings). Nodes that don't match
// are returned unchanged (spec §4.1's structural search/replace).
func SearchAndReplace(root expr.Expr, patSrc string, build func(Bindings) expr.Expr) (expr.Expr, error) {
	n, err := Parse(patSrc)
	if err != nil {
		return nil, err
	}
	r := &replacer{pat: n, build: build}
	return root.Modify(r), nil
}

type collector struct {
	pat *Node
	out *[]Found
}

func (c *collector) record(e expr.Expr) bool {
	if b, ok := Match(c.pat, e); ok {
		*c.out = append(*c.out, Found{Expr: e, Bindings: b})
	}
	return true
}

func (c *collector) VisitConst(e *expr.Const) bool               { return c.record(e) }
func (c *collector) VisitTerminal(e *expr.Terminal) bool         { return c.record(e) }
func (c *collector) VisitUnary(e *expr.Unary) bool               { return c.record(e) }
func (c *collector) VisitBinary(e *expr.Binary) bool             { return c.record(e) }
func (c *collector) VisitTernary(e *expr.Ternary) bool           { return c.record(e) }
func (c *collector) VisitLocation(e *expr.Location) bool         { return c.record(e) }
func (c *collector) VisitSubscriptRef(e *expr.SubscriptRef) bool { return c.record(e) }
func (c *collector) VisitTyped(e *expr.Typed) bool               { return c.record(e) }
func (c *collector) VisitCast(e *expr.Cast) bool                 { return c.record(e) }

type replacer struct {
	pat   *Node
	build func(Bindings) expr.Expr
}

func (r *replacer) try(e expr.Expr) expr.Expr {
	if b, ok := Match(r.pat, e); ok {
		return r.build(b)
	}
	return e
}

func (r *replacer) ModifyConst(e *expr.Const) expr.Expr               { return r.try(e) }
func (r *replacer) ModifyTerminal(e *expr.Terminal) expr.Expr         { return r.try(e) }
func (r *replacer) ModifyUnary(e *expr.Unary) expr.Expr               { return r.try(e) }
func (r *replacer) ModifyBinary(e *expr.Binary) expr.Expr             { return r.try(e) }
func (r *replacer) ModifyTernary(e *expr.Ternary) expr.Expr           { return r.try(e) }
func (r *replacer) ModifyLocation(e *expr.Location) expr.Expr         { return r.try(e) }
func (r *replacer) ModifySubscriptRef(e *expr.SubscriptRef) expr.Expr { return r.try(e) }
func (r *replacer) ModifyTyped(e *expr.Typed) expr.Expr               { return r.try(e) }
func (r *replacer) ModifyCast(e *expr.Cast) expr.Expr                 { return r.try(e) }
