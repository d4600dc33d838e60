package opt

import (
	"decompcore/internal/dtype"
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/proc"
	"decompcore/internal/stmt"
)

// CopyConstPropagation forwards "x := constant" and "x := y" definitions
// into every use of x (spec.md §4.4). Unconditional for constants; for a
// plain copy, condition (a) ("y not redefined between def and use") and
// (b) ("does not extend a live range across a call that could clobber
// y") are automatic once SSA construction has run: every use already
// names its own immutable defining statement by subscripted-reference,
// so there is no reaching-definition ambiguity and no register-clobber
// hazard left to re-derive - forwarding one SSA value reference is
// always value-safe. The one condition this pass still enforces
// directly is (c): a destination typed incompatibly with its source
// gets a Cast wrapped around the forwarded value instead of a bare
// substitution.
func CopyConstPropagation() Pass { return copyConstPropagation{} }

type copyConstPropagation struct{}

func (copyConstPropagation) Name() string { return "copy-const-propagation" }

func (copyConstPropagation) Execute(p *proc.Procedure) (bool, error) {
	candidates := collectCopyCandidates(p.CFG)
	if len(candidates) == 0 {
		return false, nil
	}
	changed := false
	for _, f := range p.CFG.Fragments() {
		for _, s := range f.Stmts {
			if rewriteUsesWithCandidates(s, candidates) {
				changed = true
			}
		}
	}
	return changed, nil
}

// copyCandidate is a definition this pass may forward in place of a
// reference to it.
type copyCandidate struct {
	value expr.Expr
	ty    dtype.Type // destination type recorded at the def, if any
}

// collectCopyCandidates finds every statement whose value can be
// forwarded: a constant assign, a plain-copy assign, or a phi whose
// operands all structurally agree.
func collectCopyCandidates(cfg *frag.CFG) map[string]copyCandidate {
	out := map[string]copyCandidate{}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			switch n := s.(type) {
			case *stmt.Assign:
				if c, ok := n.Rhs.(*expr.Const); ok {
					out[s.ID()] = copyCandidate{value: c, ty: n.Ty}
				} else if ref, ok := n.Rhs.(*expr.SubscriptRef); ok {
					out[s.ID()] = copyCandidate{value: ref, ty: n.Ty}
				}
			case *stmt.Phi:
				if v, ok := uniformPhiValue(n); ok {
					out[s.ID()] = copyCandidate{value: v}
				}
			}
		}
	}
	return out
}

func uniformPhiValue(p *stmt.Phi) (expr.Expr, bool) {
	if p.NumArgs() == 0 {
		return nil, false
	}
	var first expr.Expr
	for _, v := range p.Args {
		if first == nil {
			first = v
			continue
		}
		if !first.Equal(v) {
			return nil, false
		}
	}
	return first, true
}

// rewriteUsesWithCandidates rewrites every use in s that refers to one of
// candidates, in place, reporting whether anything changed.
func rewriteUsesWithCandidates(s stmt.Stmt, candidates map[string]copyCandidate) bool {
	r := &copyForwarder{candidates: candidates}
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

type copyForwarder struct {
	expr.BaseModifier
	candidates map[string]copyCandidate
	changed    bool
}

func (r *copyForwarder) ModifySubscriptRef(ref *expr.SubscriptRef) expr.Expr {
	if ref.Def == nil {
		return ref
	}
	h, ok := ref.Def.(interface{ ID() string })
	if !ok {
		return ref
	}
	cand, ok := r.candidates[h.ID()]
	if !ok {
		return ref
	}
	r.changed = true
	destTy := refType(ref)
	if destTy != nil && cand.ty != nil && !dtype.CompatibleWith(destTy, cand.ty) {
		return &expr.Cast{X: cand.value.Clone(), Ty: destTy}
	}
	return cand.value.Clone()
}

// refType reports the type the original reference's wrapped location
// carries, if any, used only to decide whether a forwarded value needs a
// cast wrapped around it.
func refType(ref *expr.SubscriptRef) dtype.Type {
	if loc := ref.Base(); loc != nil {
		return loc.Type()
	}
	return nil
}
