// Package stmt implements the IR statement model: the defining/control
// nodes that sit inside a fragment's statement list (spec.md §3, §4.1).
// Statements reference their control targets and call destinations
// through the small FragRef/ProcRef handle interfaces rather than owning
// pointers into internal/frag or internal/proc, the same "handle, not
// owning reference" discipline expr.Definer uses to let a SubscriptRef
// name its defining statement without an import cycle.
package stmt

import (
	"decompcore/internal/expr"

	"github.com/segmentio/ksuid"
)

// Kind discriminates the statement variants.
type Kind int

const (
	KindAssign Kind = iota
	KindImplicit
	KindPhi
	KindBoolAssign
	KindBranch
	KindGoto
	KindCall
	KindReturn
)

func (k Kind) String() string {
	switch k {
	case KindAssign:
		return "Assign"
	case KindImplicit:
		return "Implicit"
	case KindPhi:
		return "Phi"
	case KindBoolAssign:
		return "BoolAssign"
	case KindBranch:
		return "Branch"
	case KindGoto:
		return "Goto"
	case KindCall:
		return "Call"
	case KindReturn:
		return "Return"
	default:
		return "?"
	}
}

// Stmt is any IR statement. Uses returns the expression trees this
// statement reads; Defines returns the location(s) it writes. Both are
// whole subtrees, not flattened to individual locations - callers walk
// them with expr.Walk to find the leaves they need (spec §4.3/§4.4's
// data-flow engine does this for live-variable/reaching-definitions).
//
// Every concrete Stmt also satisfies expr.Definer (RefString/SameDef), so
// a SubscriptRef can name any statement as its definition without this
// package importing expr.Definer's other implementations.
type Stmt interface {
	Kind() Kind
	ID() string
	Number() int
	SetNumber(n int)
	String() string
	Clone() Stmt
	Uses() []expr.Expr
	Defines() []expr.Expr
	RefString() string
	SameDef(other expr.Definer) bool
}

// FragRef is a handle to a CFG fragment. internal/frag.Fragment implements
// it; statements hold control targets through this interface instead of a
// *frag.Fragment pointer to avoid stmt <-> frag becoming a cycle.
type FragRef interface {
	FragID() string
	FragLabel() string
}

// ProcRef is a handle to a call's destination procedure.
// internal/proc.Procedure implements it.
type ProcRef interface {
	ProcID() string
	ProcName() string
	// HasDefines reports whether the destination procedure has already
	// produced its defines list - isChildless is the negation of this.
	HasDefines() bool
}

// Base carries the identity, numbering and expr.Definer plumbing shared by
// every statement kind. Embed it in each concrete type.
type Base struct {
	id  string
	num int
}

func newBase() Base {
	return Base{id: ksuid.New().String()}
}

func (b *Base) ID() string       { return b.id }
func (b *Base) Number() int      { return b.num }
func (b *Base) SetNumber(n int)  { b.num = n }

// RefString is how a SubscriptRef prints this statement inside its
// subscript braces ("12" for statement number 12, shown as "x{12}"); see
// expr.Definer.
func (b *Base) RefString() string {
	return itoa(b.num)
}

type idHolder interface{ ID() string }

// SameDef compares statement identity, not number - two clones of the
// same logical statement have different IDs and are correctly unequal.
func (b *Base) SameDef(o expr.Definer) bool {
	if o == nil {
		return false
	}
	h, ok := o.(idHolder)
	return ok && h.ID() == b.id
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}

// addrUses returns the addressing sub-expression a location use implies:
// mem[addr] uses addr, r[idx] uses idx, everything else uses nothing extra.
func addrUses(e expr.Expr) []expr.Expr {
	loc, ok := e.(*expr.Location)
	if !ok {
		return nil
	}
	switch loc.LKind {
	case expr.LocMemory:
		return []expr.Expr{loc.Addr}
	case expr.LocRegister:
		return []expr.Expr{loc.RegIndex}
	default:
		return nil
	}
}
