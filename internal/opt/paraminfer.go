package opt

import (
	"sort"

	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/proc"
)

// scratchRegisters names, per calling convention, the caller-saved
// general-purpose registers a decompiled procedure is expected to clobber
// freely - a use of one of these with no reaching definition is volatile
// noise, not evidence of a parameter (spec.md §4.4's "known scratch
// register per calling convention"). Register numbering follows the
// conventional x86 encoding order: eax=0, ecx=1, edx=2, ebx=3, esp=4,
// ebp=5, esi=6, edi=7.
var scratchRegisters = map[proc.CallingConvention]map[int64]bool{
	proc.ConvCdecl:    {0: true, 1: true, 2: true}, // eax, ecx, edx
	proc.ConvStdcall:  {0: true, 1: true, 2: true},
	proc.ConvFastcall: {0: true},                   // ecx/edx carry the first two args
}

// fastcallParamRegs lists, in calling-convention-defined position order,
// the registers fastcall dedicates to its leading arguments.
var fastcallParamRegs = []int64{1, 2} // ecx, edx

// ParameterInference promotes every location used before any definition
// in the procedure - other than a known scratch register - to a formal
// parameter, ordered by calling-convention-defined position (spec.md
// §4.4).
func ParameterInference(conv proc.CallingConvention) Pass {
	return parameterInference{conv: conv}
}

type parameterInference struct{ conv proc.CallingConvention }

func (parameterInference) Name() string { return "parameter-inference" }

func (pi parameterInference) Execute(p *proc.Procedure) (bool, error) {
	candidates := collectImplicitLocations(p.CFG)
	var params []*expr.Location
	for _, loc := range candidates {
		if isScratchRegister(pi.conv, loc) {
			continue
		}
		params = append(params, loc)
	}
	sort.SliceStable(params, func(i, j int) bool {
		ri, ti := paramOrderKey(pi.conv, params[i])
		rj, tj := paramOrderKey(pi.conv, params[j])
		if ri != rj {
			return ri < rj
		}
		return ti < tj
	})
	changed := !sameLocationSlice(p.Params, params)
	p.Params = params
	return changed, nil
}

// collectImplicitLocations finds every distinct base location referenced
// by an implicit (no reaching definition) subscripted-reference anywhere
// in cfg, in first-seen order.
func collectImplicitLocations(cfg *frag.CFG) []*expr.Location {
	var out []*expr.Location
	seen := map[string]bool{}
	collector := &implicitLocCollector{seen: seen, out: &out}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			for _, u := range s.Uses() {
				expr.Walk(u, collector)
			}
		}
	}
	return out
}

type implicitLocCollector struct {
	expr.BaseVisitor
	seen map[string]bool
	out  *[]*expr.Location
}

func (c *implicitLocCollector) VisitSubscriptRef(r *expr.SubscriptRef) bool {
	if !r.IsImplicit() {
		return true
	}
	loc := r.Base()
	if loc == nil {
		return false
	}
	key := loc.String()
	if !c.seen[key] {
		c.seen[key] = true
		*c.out = append(*c.out, loc)
	}
	// Don't let Walk's default SubscriptRef->Sub->Location traversal
	// re-visit this already-recorded location as a bare one; still
	// descend into its own addressing sub-expression, which may itself
	// carry further implicit uses (e.g. an implicit register inside
	// m[ebp-4]'s address).
	switch loc.LKind {
	case expr.LocMemory:
		expr.Walk(loc.Addr, c)
	case expr.LocRegister:
		expr.Walk(loc.RegIndex, c)
	}
	return false
}

func isScratchRegister(conv proc.CallingConvention, loc *expr.Location) bool {
	if loc.LKind != expr.LocRegister {
		return false
	}
	idx, ok := constInt(loc.RegIndex)
	if !ok {
		return false
	}
	return scratchRegisters[conv][idx]
}

// paramOrderKey ranks loc for parameter ordering: fastcall's register
// arguments come first in their declared order, then stack arguments by
// ascending offset, with everything else trailing in name order.
func paramOrderKey(conv proc.CallingConvention, loc *expr.Location) (rank int, tiebreak string) {
	if conv == proc.ConvFastcall && loc.LKind == expr.LocRegister {
		if idx, ok := constInt(loc.RegIndex); ok {
			for i, r := range fastcallParamRegs {
				if r == idx {
					return i, loc.String()
				}
			}
		}
	}
	if loc.LKind == expr.LocMemory {
		if off, ok := stackOffset(loc.Addr); ok {
			return len(fastcallParamRegs) + int(off), loc.String()
		}
	}
	return len(fastcallParamRegs) + 1<<20, loc.String()
}

// stackOffset extracts the constant displacement from a "base + const" or
// "base - const" addressing expression, the common stack-argument shape.
func stackOffset(addr expr.Expr) (int64, bool) {
	b, ok := addr.(*expr.Binary)
	if !ok {
		return 0, false
	}
	c, ok := constInt(b.R)
	if !ok {
		return 0, false
	}
	if b.Op == "-" {
		return -c, true
	}
	return c, true
}

func constInt(e expr.Expr) (int64, bool) {
	c, ok := e.(*expr.Const)
	if !ok || c.CKind != expr.ConstInt {
		return 0, false
	}
	return c.I, true
}

func sameLocationSlice(a, b []*expr.Location) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].BaseEqual(b[i]) {
			return false
		}
	}
	return true
}
