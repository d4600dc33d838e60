package stmt

import (
	"fmt"

	"decompcore/internal/dtype"
	"decompcore/internal/expr"
)

// Assign is "lhs := rhs", optionally annotated with rhs's machine type
// once type analysis (spec §4.5) has pinned it down.
type Assign struct {
	Base
	Lhs expr.Expr
	Rhs expr.Expr
	Ty  dtype.Type
}

func NewAssign(lhs, rhs expr.Expr, ty dtype.Type) *Assign {
	return &Assign{Base: newBase(), Lhs: lhs, Rhs: rhs, Ty: ty}
}

func (a *Assign) Kind() Kind { return KindAssign }

func (a *Assign) String() string {
	if a.Ty != nil {
		return fmt.Sprintf("*%s* %s := %s", a.Ty, a.Lhs, a.Rhs)
	}
	return fmt.Sprintf("%s := %s", a.Lhs, a.Rhs)
}

func (a *Assign) Clone() Stmt {
	return &Assign{Base: newBase(), Lhs: a.Lhs.Clone(), Rhs: a.Rhs.Clone(), Ty: a.Ty}
}

func (a *Assign) Uses() []expr.Expr {
	return append([]expr.Expr{a.Rhs}, addrUses(a.Lhs)...)
}

func (a *Assign) Defines() []expr.Expr { return []expr.Expr{a.Lhs} }

// Implicit marks a location as "live on entry" rather than assigning it a
// value - the implicit definition every SubscriptRef with a nil Def
// conceptually points at once SSA construction makes it explicit (spec
// §4.3's "implicit definition").
type Implicit struct {
	Base
	Lhs expr.Expr
}

func NewImplicit(lhs expr.Expr) *Implicit {
	return &Implicit{Base: newBase(), Lhs: lhs}
}

func (i *Implicit) Kind() Kind          { return KindImplicit }
func (i *Implicit) String() string      { return fmt.Sprintf("%s := -", i.Lhs) }
func (i *Implicit) Clone() Stmt         { return &Implicit{Base: newBase(), Lhs: i.Lhs.Clone()} }
func (i *Implicit) Uses() []expr.Expr   { return nil }
func (i *Implicit) Defines() []expr.Expr { return []expr.Expr{i.Lhs} }

// Phi is an SSA phi-assign: lhs := phi(pred1: v1, pred2: v2, ...). Args
// maps a predecessor fragment's FragID to the value flowing in from that
// edge (spec §4.3).
type Phi struct {
	Base
	Lhs  expr.Expr
	Args map[string]expr.Expr
}

func NewPhi(lhs expr.Expr) *Phi {
	return &Phi{Base: newBase(), Lhs: lhs, Args: map[string]expr.Expr{}}
}

func (p *Phi) Kind() Kind { return KindPhi }

func (p *Phi) String() string {
	s := fmt.Sprintf("%s := phi(", p.Lhs)
	for i, k := range sortedKeys(p.Args) {
		if i > 0 {
			s += ", "
		}
		s += p.Args[k].String()
	}
	return s + ")"
}

func (p *Phi) Clone() Stmt {
	c := &Phi{Base: newBase(), Lhs: p.Lhs.Clone(), Args: map[string]expr.Expr{}}
	for k, v := range p.Args {
		c.Args[k] = v.Clone()
	}
	return c
}

func (p *Phi) Uses() []expr.Expr {
	keys := sortedKeys(p.Args)
	out := make([]expr.Expr, 0, len(keys))
	for _, k := range keys {
		out = append(out, p.Args[k])
	}
	return out
}

func (p *Phi) Defines() []expr.Expr { return []expr.Expr{p.Lhs} }

// NumArgs reports the number of incoming edges represented. A phi with
// fewer than two live arguments is collapsible; ssabuild does not prune
// such phis.
func (p *Phi) NumArgs() int { return len(p.Args) }

// BoolAssign assigns lhs the 0/1 result of a condition-code predicate,
// modeling the SETcc family of machine instructions (spec §3's
// "condition-code-derived boolean assign").
type BoolAssign struct {
	Base
	Lhs  expr.Expr
	Cond expr.Expr
}

func NewBoolAssign(lhs, cond expr.Expr) *BoolAssign {
	return &BoolAssign{Base: newBase(), Lhs: lhs, Cond: cond}
}

func (b *BoolAssign) Kind() Kind     { return KindBoolAssign }
func (b *BoolAssign) String() string { return fmt.Sprintf("%s := %s ? 1 : 0", b.Lhs, b.Cond) }
func (b *BoolAssign) Clone() Stmt {
	return &BoolAssign{Base: newBase(), Lhs: b.Lhs.Clone(), Cond: b.Cond.Clone()}
}
func (b *BoolAssign) Uses() []expr.Expr    { return []expr.Expr{b.Cond} }
func (b *BoolAssign) Defines() []expr.Expr { return []expr.Expr{b.Lhs} }
