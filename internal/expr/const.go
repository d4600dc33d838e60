package expr

import (
	"fmt"
	"strconv"

	"decompcore/internal/dtype"
)

// ConstKind discriminates the literal payload of a Const.
type ConstKind int

const (
	ConstInt ConstKind = iota
	ConstFloat
	ConstString
)

// Const is an integer, float or string constant (spec §3).
type Const struct {
	CKind ConstKind
	I     int64
	F     float64
	S     string
	Ty    dtype.Type
}

// IntConst builds an integer constant of the given type (default i32 when
// ty is nil).
func IntConst(v int64, ty dtype.Type) *Const {
	if ty == nil {
		ty = dtype.I32
	}
	return &Const{CKind: ConstInt, I: v, Ty: ty}
}

// FloatConst builds a floating-point constant.
func FloatConst(v float64, ty dtype.Type) *Const {
	if ty == nil {
		ty = dtype.F64
	}
	return &Const{CKind: ConstFloat, F: v, Ty: ty}
}

// StringConst builds a string literal constant.
func StringConst(s string) *Const {
	return &Const{CKind: ConstString, S: s, Ty: dtype.PointerTo(dtype.CharT)}
}

func (c *Const) Kind() Kind { return KindConst }

func (c *Const) Type() dtype.Type { return c.Ty }

func (c *Const) String() string {
	switch c.CKind {
	case ConstInt:
		return strconv.FormatInt(c.I, 10)
	case ConstFloat:
		return strconv.FormatFloat(c.F, 'g', -1, 64)
	case ConstString:
		return strconv.Quote(c.S)
	default:
		return fmt.Sprintf("<bad const kind %d>", c.CKind)
	}
}

func (c *Const) Clone() Expr {
	clone := *c
	return &clone
}

func (c *Const) Equal(other Expr) bool { return Equal(c, other) }

func (c *Const) Accept(v Visitor) bool { return v.VisitConst(c) }

func (c *Const) Modify(m Modifier) Expr { return m.ModifyConst(c) }

// IsZero reports whether this constant is the additive identity.
func (c *Const) IsZero() bool {
	switch c.CKind {
	case ConstInt:
		return c.I == 0
	case ConstFloat:
		return c.F == 0
	default:
		return false
	}
}

// IsOne reports whether this constant is the multiplicative identity.
func (c *Const) IsOne() bool {
	switch c.CKind {
	case ConstInt:
		return c.I == 1
	case ConstFloat:
		return c.F == 1
	default:
		return false
	}
}

// TerminalKind enumerates the distinguished singleton expressions of spec §3.
type TerminalKind int

const (
	TermPC TerminalKind = iota
	TermFlags
	TermNil
)

func (k TerminalKind) String() string {
	switch k {
	case TermPC:
		return "%pc"
	case TermFlags:
		return "%flags"
	case TermNil:
		return "nil"
	default:
		return "<bad terminal>"
	}
}

// Terminal is a distinguished singleton expression such as the
// program-counter or flags pseudo-register, or the typeless nil.
type Terminal struct {
	TKind TerminalKind
}

var (
	PC    = &Terminal{TKind: TermPC}
	Flags = &Terminal{TKind: TermFlags}
	Nil   = &Terminal{TKind: TermNil}
)

func (t *Terminal) Kind() Kind          { return KindTerminal }
func (t *Terminal) String() string      { return t.TKind.String() }
func (t *Terminal) Clone() Expr         { c := *t; return &c }
func (t *Terminal) Equal(o Expr) bool   { return Equal(t, o) }
func (t *Terminal) Accept(v Visitor) bool { return v.VisitTerminal(t) }
func (t *Terminal) Modify(m Modifier) Expr { return m.ModifyTerminal(t) }
