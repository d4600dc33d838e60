package opt

import (
	"decompcore/internal/dtype"
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/proc"
	"decompcore/internal/stmt"
)

// TypePropagation implements the def/use type-propagation pass of
// spec.md §4.5: every definition's type (an Assign's explicit
// annotation, a BoolAssign's fixed boolean width, or a Phi's operands'
// join) is joined, via dtype.Join, with whatever type each of its
// subscripted-reference uses already carries, and the result is written
// back onto every occurrence that doesn't already disagree with it. A
// use whose own location type conflicts with what its definition now
// carries is left alone but wrapped in a Cast instead of being
// overwritten (spec.md §4.5: "insert a cast at the use"). Parameter
// locations seed their uses directly from the signature, since a
// parameter's implicit definition (live on entry) has no statement of
// its own to carry a type. Like every other pass here, one Execute call
// is one sweep; internal/passmgr loops the group to a fixed point.
func TypePropagation() Pass { return typePropagation{} }

type typePropagation struct{}

func (typePropagation) Name() string { return "type-propagation" }

func (typePropagation) Execute(p *proc.Procedure) (bool, error) {
	defTypes := seedDefTypes(p.CFG)
	joinUseTypesIntoDefs(p.CFG, defTypes)
	paramTypes := seedParamTypes(p)

	changed := false
	for _, f := range p.CFG.Fragments() {
		for _, s := range f.Stmts {
			if writeBackDefType(s, defTypes) {
				changed = true
			}
			if rewriteUseTypes(s, defTypes, paramTypes) {
				changed = true
			}
		}
	}
	return changed, nil
}

// seedDefTypes collects each definer's currently-known type: an Assign's
// explicit Ty, a BoolAssign's fixed one-byte boolean width (it models a
// SETcc-style 0/1 result), or - for a Phi - the join of every incoming
// argument's own type. A Phi's arguments are themselves subscripted
// references by the time this runs, so their type has to be chased
// through Def rather than read directly off the argument expression -
// fragments are walked in CFG order, so a phi's operands (defined in a
// predecessor fragment) have already been seeded by the time the phi
// itself is reached.
func seedDefTypes(cfg *frag.CFG) map[string]dtype.Type {
	out := map[string]dtype.Type{}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			switch n := s.(type) {
			case *stmt.Assign:
				if n.Ty != nil {
					out[n.ID()] = n.Ty
				}
			case *stmt.BoolAssign:
				out[n.ID()] = dtype.U8
			case *stmt.Phi:
				var ty dtype.Type
				for _, v := range n.Args {
					argTy, ok := typeOfValue(v, out)
					if !ok {
						continue
					}
					if ty == nil {
						ty = argTy
					} else {
						ty = dtype.Join(ty, argTy)
					}
				}
				if ty != nil {
					out[n.ID()] = ty
				}
			}
		}
	}
	return out
}

// typeOfValue resolves the type of a phi argument: a subscripted
// reference's type is its definer's entry in defTypes (or, for an
// implicit reference, whatever type its own location already carries);
// anything else falls back to expr.Typer directly.
func typeOfValue(v expr.Expr, defTypes map[string]dtype.Type) (dtype.Type, bool) {
	if ref, ok := v.(*expr.SubscriptRef); ok {
		if ref.Def == nil {
			if loc, ok := ref.Sub.(*expr.Location); ok && loc.Ty != nil {
				return loc.Ty, true
			}
			return nil, false
		}
		h, ok := ref.Def.(interface{ ID() string })
		if !ok {
			return nil, false
		}
		ty, ok := defTypes[h.ID()]
		return ty, ok
	}
	if t, ok := v.(expr.Typer); ok && t.Type() != nil {
		return t.Type(), true
	}
	return nil, false
}

// seedParamTypes pairs each parameter location's name with its declared
// signature type, so an implicit ("live on entry") reference to a
// parameter can be annotated even though no statement defines it.
func seedParamTypes(p *proc.Procedure) map[string]dtype.Type {
	out := map[string]dtype.Type{}
	for i, loc := range p.Params {
		if i >= len(p.Signature.Params) || p.Signature.Params[i] == nil {
			continue
		}
		out[loc.Name] = p.Signature.Params[i]
	}
	return out
}

// joinUseTypesIntoDefs walks every use in the procedure and, for each
// subscripted-reference whose Sub already carries a known type, joins
// that type into its definition's entry in defTypes - the "propagate
// from use back to source" half of the fixed point. A use type that is
// not CompatibleWith the entry already recorded is not joined; that use
// keeps its own type and rewriteUseTypes wraps it in a Cast.
func joinUseTypesIntoDefs(cfg *frag.CFG, defTypes map[string]dtype.Type) {
	collector := &useTypeCollector{defTypes: defTypes}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			for _, u := range s.Uses() {
				expr.Walk(u, collector)
			}
		}
	}
}

type useTypeCollector struct {
	expr.BaseVisitor
	defTypes map[string]dtype.Type
}

func (c *useTypeCollector) VisitSubscriptRef(r *expr.SubscriptRef) bool {
	if r.Def == nil {
		return true
	}
	h, ok := r.Def.(interface{ ID() string })
	if !ok {
		return true
	}
	t, ok := r.Sub.(expr.Typer)
	if !ok || t.Type() == nil {
		return true
	}
	if existing, has := c.defTypes[h.ID()]; has {
		if !dtype.CompatibleWith(existing, t.Type()) {
			return true
		}
		c.defTypes[h.ID()] = dtype.Join(existing, t.Type())
	} else {
		c.defTypes[h.ID()] = t.Type()
	}
	return true
}

// writeBackDefType annotates a definer's own Lhs location (and, for a
// plain Assign with no type annotation yet, the statement itself) with
// its established type, once joinUseTypesIntoDefs has folded in whatever
// every use of it already required.
func writeBackDefType(s stmt.Stmt, defTypes map[string]dtype.Type) bool {
	ty, ok := defTypes[s.ID()]
	if !ok {
		return false
	}
	changed := false
	switch n := s.(type) {
	case *stmt.Assign:
		if n.Ty == nil {
			n.Ty = ty
			changed = true
		}
		if lhs, ok := n.Lhs.(*expr.Location); ok && lhs.Ty == nil {
			lhs.Ty = ty
			changed = true
		}
	case *stmt.Phi:
		if lhs, ok := n.Lhs.(*expr.Location); ok && lhs.Ty == nil {
			lhs.Ty = ty
			changed = true
		}
	case *stmt.BoolAssign:
		if lhs, ok := n.Lhs.(*expr.Location); ok && lhs.Ty == nil {
			lhs.Ty = ty
			changed = true
		}
	}
	return changed
}

// rewriteUseTypes annotates every subscripted-reference use in s with its
// definition's established type (or, for an implicit parameter
// reference, the signature's declared type), wrapping a Cast around any
// use whose own location already carries an incompatible type of its own
// rather than overwriting it.
func rewriteUseTypes(s stmt.Stmt, defTypes, paramTypes map[string]dtype.Type) bool {
	r := &typeAnnotator{defTypes: defTypes, paramTypes: paramTypes}
	switch n := s.(type) {
	case *stmt.Assign:
		n.Rhs = n.Rhs.Modify(r)
	case *stmt.BoolAssign:
		n.Cond = n.Cond.Modify(r)
	case *stmt.Branch:
		n.Cond = n.Cond.Modify(r)
	case *stmt.Goto:
		if n.IsComputed() {
			n.Dest = n.Dest.Modify(r)
		}
	case *stmt.Call:
		for _, a := range n.Args {
			a.Rhs = a.Rhs.Modify(r)
		}
		if n.IsComputed() {
			n.SetDest(n.Dest.Modify(r))
		}
	case *stmt.Return:
		for i := range n.Defs {
			n.Defs[i].Val = n.Defs[i].Val.Modify(r)
		}
		for i := range n.Modifieds {
			n.Modifieds[i] = n.Modifieds[i].Modify(r)
		}
	case *stmt.Phi:
		for k, v := range n.Args {
			n.Args[k] = v.Modify(r)
		}
	}
	return r.changed
}

type typeAnnotator struct {
	expr.BaseModifier
	defTypes   map[string]dtype.Type
	paramTypes map[string]dtype.Type
	changed    bool
}

func (a *typeAnnotator) ModifySubscriptRef(r *expr.SubscriptRef) expr.Expr {
	loc, isLoc := r.Sub.(*expr.Location)
	if !isLoc {
		return r
	}

	srcTy, ok := a.sourceType(r)
	if !ok {
		return r
	}
	if loc.Ty == nil {
		loc.Ty = srcTy
		a.changed = true
		return r
	}
	if !dtype.CompatibleWith(loc.Ty, srcTy) {
		a.changed = true
		return &expr.Cast{X: r, Ty: loc.Ty}
	}
	return r
}

// sourceType resolves the type a reference's definition is known to
// carry: the defining statement's established type when Def is set, or
// the signature's declared parameter type when Def is nil (implicit,
// live-on-entry) and the reference names a parameter location.
func (a *typeAnnotator) sourceType(r *expr.SubscriptRef) (dtype.Type, bool) {
	if r.Def == nil {
		loc, ok := r.Sub.(*expr.Location)
		if !ok || loc.LKind != expr.LocParam {
			return nil, false
		}
		ty, ok := a.paramTypes[loc.Name]
		return ty, ok
	}
	h, ok := r.Def.(interface{ ID() string })
	if !ok {
		return nil, false
	}
	ty, ok := a.defTypes[h.ID()]
	return ty, ok
}
