package stmt

import (
	"fmt"
	"sort"

	"decompcore/internal/expr"
)

// Branch is a two-way conditional jump. Taken/Fallthrough name the target
// fragments through the FragRef handle so this package need not import
// internal/frag.
type Branch struct {
	Base
	Cond        expr.Expr
	Taken       FragRef
	Fallthrough FragRef
}

func NewBranch(cond expr.Expr, taken, fallthrough_ FragRef) *Branch {
	return &Branch{Base: newBase(), Cond: cond, Taken: taken, Fallthrough: fallthrough_}
}

func (b *Branch) Kind() Kind { return KindBranch }

func (b *Branch) String() string {
	return fmt.Sprintf("if %s goto %s else %s", b.Cond, fragLabel(b.Taken), fragLabel(b.Fallthrough))
}

func (b *Branch) Clone() Stmt {
	return &Branch{Base: newBase(), Cond: b.Cond.Clone(), Taken: b.Taken, Fallthrough: b.Fallthrough}
}

func (b *Branch) Uses() []expr.Expr    { return []expr.Expr{b.Cond} }
func (b *Branch) Defines() []expr.Expr { return nil }

// Goto is an unconditional jump, possibly computed: Target is the
// resolved fragment handle once known, Dest is the destination
// expression for a jump internal/indirect hasn't (or couldn't) resolve
// to a concrete Target yet (spec.md §3's "goto-assign (possibly
// computed)"). Target == nil && Dest != nil is an unresolved indirect
// jump; Target == nil && Dest == nil is a plain return-to-exit goto.
type Goto struct {
	Base
	Target FragRef
	Dest   expr.Expr
}

func NewGoto(target FragRef) *Goto { return &Goto{Base: newBase(), Target: target} }

// NewComputedGoto builds an unresolved indirect jump to dest, to be
// settled later by internal/indirect's switch-table recovery.
func NewComputedGoto(dest expr.Expr) *Goto { return &Goto{Base: newBase(), Dest: dest} }

// IsComputed reports whether this goto's destination is not yet a known
// fragment.
func (g *Goto) IsComputed() bool { return g.Target == nil && g.Dest != nil }

func (g *Goto) Kind() Kind { return KindGoto }

func (g *Goto) String() string {
	if g.IsComputed() {
		return fmt.Sprintf("goto (%s)", g.Dest)
	}
	return "goto " + fragLabel(g.Target)
}

func (g *Goto) Clone() Stmt {
	c := &Goto{Base: newBase(), Target: g.Target}
	if g.Dest != nil {
		c.Dest = g.Dest.Clone()
	}
	return c
}

func (g *Goto) Uses() []expr.Expr {
	if g.IsComputed() {
		return []expr.Expr{g.Dest}
	}
	return nil
}
func (g *Goto) Defines() []expr.Expr { return nil }

func fragLabel(f FragRef) string {
	if f == nil {
		return "<exit>"
	}
	return f.FragLabel()
}

// ReturnDefine is one "location := value" entry of a return statement's
// defines list.
type ReturnDefine struct {
	Lhs expr.Expr
	Val expr.Expr
}

// Return carries the set of locations the procedure returns, plus the
// modifieds list (locations proven changed by the procedure, whether or
// not they are returned - spec §3's "Return statement").
type Return struct {
	Base
	Defs      []ReturnDefine
	Modifieds []expr.Expr
}

func NewReturn() *Return { return &Return{Base: newBase()} }

func (r *Return) Kind() Kind { return KindReturn }

func (r *Return) String() string {
	s := "return"
	for i, d := range r.Defs {
		if i > 0 {
			s += ","
		}
		s += fmt.Sprintf(" %s := %s", d.Lhs, d.Val)
	}
	return s
}

func (r *Return) Clone() Stmt {
	c := &Return{Base: newBase()}
	for _, d := range r.Defs {
		c.Defs = append(c.Defs, ReturnDefine{Lhs: d.Lhs.Clone(), Val: d.Val.Clone()})
	}
	for _, m := range r.Modifieds {
		c.Modifieds = append(c.Modifieds, m.Clone())
	}
	return c
}

func (r *Return) Uses() []expr.Expr {
	out := make([]expr.Expr, 0, len(r.Defs))
	for _, d := range r.Defs {
		out = append(out, d.Val)
	}
	return out
}

func (r *Return) Defines() []expr.Expr {
	out := make([]expr.Expr, 0, len(r.Defs))
	for _, d := range r.Defs {
		out = append(out, d.Lhs)
	}
	return out
}

// AddReturn appends a location/value pair to the defines list.
func (r *Return) AddReturn(lhs, val expr.Expr) {
	r.Defs = append(r.Defs, ReturnDefine{Lhs: lhs, Val: val})
}

// RemoveReturn drops the define for lhs, if one is present.
func (r *Return) RemoveReturn(lhs expr.Expr) {
	out := r.Defs[:0]
	for _, d := range r.Defs {
		if !d.Lhs.Equal(lhs) {
			out = append(out, d)
		}
	}
	r.Defs = out
}

// UpdateReturns replaces the defines list's values in place, keyed by lhs.
func (r *Return) UpdateReturns(values map[string]expr.Expr) {
	for i, d := range r.Defs {
		if v, ok := values[d.Lhs.String()]; ok {
			r.Defs[i].Val = v
		}
	}
}

// FindDefinitionFor returns the value defined for lhs, if any.
func (r *Return) FindDefinitionFor(lhs expr.Expr) (expr.Expr, bool) {
	for _, d := range r.Defs {
		if d.Lhs.Equal(lhs) {
			return d.Val, true
		}
	}
	return nil, false
}

// sortedKeys is shared by Phi.String/Uses and anything else that needs a
// deterministic iteration order over a string-keyed map.
func sortedKeys(m map[string]expr.Expr) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
