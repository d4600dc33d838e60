package stmt

import (
	"fmt"
	"strings"

	"decompcore/internal/expr"
)

// x86 cdecl stack layout used throughout the Boomerang test suite this
// package is grounded on: the format-string argument occupies the word
// just past the return address, and each variadic argument after it
// advances by one machine word.
const (
	variadicStartOffset = 8
	variadicStride      = 4
)

// Call is a call statement: a destination, its argument-assigns, its
// defines (the caller-visible locations it writes), and the call-site
// dataflow snapshots (def-collector/use-collector, spec §3) needed to
// reason about the callee before its own body has been analyzed.
type Call struct {
	Base
	Dest         expr.Expr
	DestProc     ProcRef
	StackPointer expr.Expr // caller's stack-pointer location, for ellipsis processing
	Args         []*Assign
	Defs         []*Assign
	Preserved    map[string]expr.Expr // location string -> proven entry value, for BypassRef
	DefCollector map[string]expr.Expr
	UseCollector map[string]bool

	SigName     string
	HasEllipsis bool

	computedLatch   bool
	returnAfterCall bool
}

func NewCall(dest expr.Expr) *Call {
	return &Call{Base: newBase(), Dest: dest, computedLatch: !isDirectDest(dest)}
}

func (c *Call) Kind() Kind { return KindCall }

func (c *Call) String() string {
	name := c.Dest.String()
	if c.DestProc != nil {
		name = c.DestProc.ProcName()
	}
	return fmt.Sprintf("CALL %s (%d args, %d defines)", name, len(c.Args), len(c.Defs))
}

func (c *Call) Clone() Stmt {
	n := &Call{
		Base:            newBase(),
		Dest:            c.Dest.Clone(),
		DestProc:        c.DestProc,
		SigName:         c.SigName,
		HasEllipsis:     c.HasEllipsis,
		computedLatch:   c.computedLatch,
		returnAfterCall: c.returnAfterCall,
	}
	if c.StackPointer != nil {
		n.StackPointer = c.StackPointer.Clone()
	}
	for _, a := range c.Args {
		n.Args = append(n.Args, a.Clone().(*Assign))
	}
	for _, d := range c.Defs {
		n.Defs = append(n.Defs, d.Clone().(*Assign))
	}
	if c.Preserved != nil {
		n.Preserved = make(map[string]expr.Expr, len(c.Preserved))
		for k, v := range c.Preserved {
			n.Preserved[k] = v.Clone()
		}
	}
	return n
}

func (c *Call) Uses() []expr.Expr {
	var out []expr.Expr
	if c.computedLatch {
		out = append(out, c.Dest)
	}
	for _, a := range c.Args {
		out = append(out, a.Rhs)
	}
	return out
}

func (c *Call) Defines() []expr.Expr {
	out := make([]expr.Expr, 0, len(c.Defs))
	for _, d := range c.Defs {
		out = append(out, d.Lhs)
	}
	return out
}

func (c *Call) AddArgument(a *Assign) { c.Args = append(c.Args, a) }
func (c *Call) AddDefine(a *Assign)   { c.Defs = append(c.Defs, a) }
func (c *Call) NumArguments() int     { return len(c.Args) }
func (c *Call) Arguments() []*Assign  { return c.Args }

func (c *Call) SetReturnAfterCall(v bool) { c.returnAfterCall = v }
func (c *Call) IsReturnAfterCall() bool   { return c.returnAfterCall }

func isDirectDest(d expr.Expr) bool {
	c, ok := d.(*expr.Const)
	return ok && c.CKind == expr.ConstInt
}

// SetDest updates the call destination. IsComputed latches to true the
// first time the destination is seen to be anything but a plain integer
// constant, and never clears - see TryConvertToDirect.
func (c *Call) SetDest(d expr.Expr) {
	c.Dest = d
	if !isDirectDest(d) {
		c.computedLatch = true
	}
}

func (c *Call) SetDestProc(p ProcRef) { c.DestProc = p }

// IsComputed reports whether the destination was ever observed to be a
// non-constant expression. Sticky by design (spec.md Open Question 1):
// a later TryConvertToDirect resolving the destination to a concrete
// address does not retroactively make the call a "direct" one for
// passes that care whether the target was ever in doubt.
func (c *Call) IsComputed() bool { return c.computedLatch }

// IsChildless reports whether the destination procedure has not yet
// produced a defines list - either because it is unresolved or because
// its own analysis hasn't run yet.
func (c *Call) IsChildless() bool {
	return c.DestProc == nil || !c.DestProc.HasDefines()
}

// IsCallToMemOffset reports whether the destination is mem[constant],
// the "stub via import table" shape common to PLT/IAT style calls.
func (c *Call) IsCallToMemOffset() bool {
	loc, ok := c.Dest.(*expr.Location)
	if !ok || loc.LKind != expr.LocMemory {
		return false
	}
	_, isConst := loc.Addr.(*expr.Const)
	return isConst
}

// EliminateDuplicateArgs drops any argument-assign structurally equal in
// full - both lhs and rhs - to an earlier one's, keeping the first
// occurrence. Two args sharing an lhs but disagreeing on rhs are both
// kept (spec.md §3, scenario S2 in §8).
func (c *Call) EliminateDuplicateArgs() {
	kept := c.Args[:0:0]
	for _, a := range c.Args {
		dup := false
		for _, k := range kept {
			if k.Lhs.Equal(a.Lhs) && k.Rhs.Equal(a.Rhs) {
				dup = true
				break
			}
		}
		if !dup {
			kept = append(kept, a)
		}
	}
	c.Args = kept
}

// rhsHolder lets DoEllipsisProcessing chase a SubscriptRef's Def to the
// value it assigns without needing Call to know the concrete statement
// type - Assign implements it; BoolAssign, Implicit and Phi do not.
type rhsHolder interface {
	rhsValue() (expr.Expr, bool)
}

func (a *Assign) rhsValue() (expr.Expr, bool) { return a.Rhs, true }

// resolveConstString chases a (possibly subscripted) expression to a
// string constant through at most a few definition hops, mirroring the
// "proven value" lookup the ellipsis processor needs without requiring a
// full reaching-definitions pass.
func resolveConstString(e expr.Expr) (string, bool) {
	for hop := 0; hop < 4; hop++ {
		switch n := e.(type) {
		case *expr.Const:
			if n.CKind == expr.ConstString {
				return n.S, true
			}
			return "", false
		case *expr.SubscriptRef:
			if n.Def == nil {
				return "", false
			}
			h, ok := n.Def.(rhsHolder)
			if !ok {
				return "", false
			}
			v, ok := h.rhsValue()
			if !ok {
				return "", false
			}
			e = v
		default:
			return "", false
		}
	}
	return "", false
}

// DoEllipsisProcessing recognizes printf/scanf-family variadic calls and
// synthesizes typed argument-assigns for each conversion specifier found
// in the format string (spec.md §3/§6, scenario S1). It reports whether
// the format string was successfully resolved; if the caller's stack
// pointer hasn't been supplied via StackPointer, the format string is
// still resolved (so the boolean result is true) but no arguments are
// synthesized, since there is nowhere to place them.
func (c *Call) DoEllipsisProcessing() bool {
	if c.DestProc == nil || !c.HasEllipsis || len(c.Args) == 0 {
		return false
	}
	fmtArg := c.Args[len(c.Args)-1]
	format, ok := resolveConstString(fmtArg.Rhs)
	if !ok {
		return false
	}

	if c.StackPointer == nil {
		return true
	}

	family := printfType
	if strings.Contains(strings.ToLower(c.DestProc.ProcName()), "scanf") {
		family = scanfType
	}
	offset := int64(variadicStartOffset)
	for _, ty := range scanFormatSpecifiers(format, family) {
		addr := &expr.Binary{Op: "+", L: c.StackPointer.Clone(), R: expr.IntConst(offset, nil)}
		loc := expr.MemOf(addr)
		a := NewAssign(loc, expr.RefOf(loc.Clone(), nil), ty)
		c.Args = append(c.Args, a)
		offset += variadicStride
	}
	return true
}

// LocaliseExp rewrites e, which names locations in the callee's frame,
// into the caller's context by substituting each location with the
// value recorded for it in the call's def-collector snapshot.
func (c *Call) LocaliseExp(e expr.Expr) expr.Expr {
	if len(c.DefCollector) == 0 {
		return e
	}
	return e.Modify(&localiser{defs: c.DefCollector})
}

type localiser struct {
	expr.BaseModifier
	defs map[string]expr.Expr
}

func (l *localiser) ModifyLocation(loc *expr.Location) expr.Expr {
	if v, ok := l.defs[loc.String()]; ok {
		return v
	}
	return loc
}

// BypassRef rewrites ref, if its definition is this call and the
// referenced location is proven preserved across it, to the value the
// location held on entry - skipping the call when walking def-use chains
// through a location it merely passes through unchanged.
func (c *Call) BypassRef(ref *expr.SubscriptRef) expr.Expr {
	if ref.Def == nil {
		return ref
	}
	h, ok := ref.Def.(idHolder)
	if !ok || h.ID() != c.ID() {
		return ref
	}
	base := ref.Base()
	if base == nil {
		return ref
	}
	if v, ok := c.Preserved[base.String()]; ok {
		return v
	}
	return ref
}

// CalcResults returns the subset of this call's defined locations that
// are actually live at the call site, given the caller's live-variable
// set keyed by location string. A nil liveAtCall is treated as "assume
// everything is live" (conservative default before liveness has run).
func (c *Call) CalcResults(liveAtCall map[string]bool) []expr.Expr {
	var out []expr.Expr
	for _, d := range c.Defs {
		if liveAtCall == nil || liveAtCall[d.Lhs.String()] {
			out = append(out, d.Lhs)
		}
	}
	return out
}

// TryConvertToDirect resolves a computed destination to a direct one: if
// the destination expression simplifies to a constant address and lookup
// names a procedure there, the call adopts that procedure as its direct
// destination. IsComputed is left untouched (Open Question 1).
func (c *Call) TryConvertToDirect(lookup func(addr int64) (ProcRef, bool)) bool {
	simplified := expr.Simplify(c.Dest)
	cst, ok := simplified.(*expr.Const)
	if !ok || cst.CKind != expr.ConstInt {
		return false
	}
	proc, found := lookup(cst.I)
	if !found {
		return false
	}
	c.Dest = simplified
	c.DestProc = proc
	return true
}
