package expr

import (
	"fmt"

	"decompcore/internal/dtype"
)

// LocKind discriminates the location variants of spec §3.
type LocKind int

const (
	LocMemory LocKind = iota
	LocRegister
	LocParam
	LocLocal
	LocGlobal
	LocTemp
)

// Location is a storage location: memory-of an address expression,
// register-of an index expression, or a named parameter/local/global/
// temporary. Only one of Addr/RegIndex/Name is meaningful, selected by
// LKind.
type Location struct {
	LKind    LocKind
	Addr     Expr       // LocMemory
	RegIndex Expr       // LocRegister
	Name     string     // LocParam/LocLocal/LocGlobal
	TempID   string     // LocTemp
	Ty       dtype.Type // optional known type
}

func MemOf(addr Expr) *Location    { return &Location{LKind: LocMemory, Addr: addr} }
func RegOf(idx Expr) *Location     { return &Location{LKind: LocRegister, RegIndex: idx} }
func Param(name string) *Location  { return &Location{LKind: LocParam, Name: name} }
func Local(name string) *Location  { return &Location{LKind: LocLocal, Name: name} }
func Global(name string) *Location { return &Location{LKind: LocGlobal, Name: name} }
func Temp(id string) *Location     { return &Location{LKind: LocTemp, TempID: id} }

func (l *Location) Kind() Kind { return KindLocation }

func (l *Location) Type() dtype.Type { return l.Ty }

func (l *Location) String() string {
	switch l.LKind {
	case LocMemory:
		return fmt.Sprintf("m[%s]", l.Addr)
	case LocRegister:
		return fmt.Sprintf("r[%s]", l.RegIndex)
	case LocParam:
		return l.Name
	case LocLocal:
		return l.Name
	case LocGlobal:
		return l.Name
	case LocTemp:
		return l.TempID
	default:
		return "<bad location>"
	}
}

func (l *Location) Clone() Expr {
	c := *l
	if l.Addr != nil {
		c.Addr = l.Addr.Clone()
	}
	if l.RegIndex != nil {
		c.RegIndex = l.RegIndex.Clone()
	}
	return &c
}

func (l *Location) Equal(o Expr) bool   { return Equal(l, o) }
func (l *Location) Accept(v Visitor) bool { return v.VisitLocation(l) }
func (l *Location) Modify(m Modifier) Expr {
	l2 := *l
	if l.Addr != nil {
		l2.Addr = l.Addr.Modify(m)
	}
	if l.RegIndex != nil {
		l2.RegIndex = l.RegIndex.Modify(m)
	}
	return m.ModifyLocation(&l2)
}

// BaseEqual reports whether two locations name the same underlying base
// storage (ignoring any SSA subscript that might wrap them) - used
// throughout SSA destruction (spec §4.7) to compare "base locations".
func (l *Location) BaseEqual(o *Location) bool {
	if l.LKind != o.LKind {
		return false
	}
	switch l.LKind {
	case LocMemory:
		return l.Addr.Equal(o.Addr)
	case LocRegister:
		return l.RegIndex.Equal(o.RegIndex)
	default:
		return l.Name == o.Name
	}
}
