// Package indirect implements indirect-jump and indirect-call resolution
// (spec.md §4.6), grounded method-for-method on
// original_source/.../IndirectJumpAnalyzer.h: DecodeIndirectJmp mirrors
// decodeIndirectJmp, ProcessSwitch mirrors processSwitch, findNumCases
// mirrors findNumCases, analyzeCompJump/analyzeCompCall/
// createCompJumpDest/addCFGEdge keep their names (Go-cased) as unexported
// helpers. Resolving a switch or a computed call may re-enter the
// upstream decoder.Decoder and mutate the CFG, which is why this package
// sits above internal/frag and internal/stmt but is driven only by
// internal/passmgr, never called from inside another pass.
package indirect

import (
	"fmt"

	"decompcore/internal/decoder"
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/stmt"
)

// Resolver holds the two upstream collaborators indirect resolution may
// call out to: the decoder (to materialize a fragment at a newly
// discovered target address) and the image reader (to read jump-table
// entries). Both are interfaces per spec.md §6 - this package never
// parses machine code itself.
type Resolver struct {
	Decoder decoder.Decoder
	Image   decoder.ImageReader

	// Install receives a freshly decoded RTL set and is expected to
	// return the frag.Fragment it was materialized into, creating one
	// in the CFG on demand if the address was not already present. This
	// is a callback rather than a direct frag.CFG method because
	// turning a flat RTL list into possibly several fragments (a basic
	// block may itself branch) is the decoder-to-CFG lowering step
	// spec.md places with the excluded decoding front end, not this
	// core.
	Install func(cfg *frag.CFG, addr decoder.Address, rtls []decoder.RTL) *frag.Fragment

	// Lookup resolves a constant call-destination address to the
	// procedure already known at that address, the contract
	// analyzeCompCall needs to turn a computed call into a direct one
	// (spec.md §4.6's "points-to information"/"known procedure").
	// Supplied as a callback rather than a proc.ProgramTable field to
	// avoid an indirect -> proc -> indirect import cycle.
	Lookup func(addr int64) (stmt.ProcRef, bool)
}

// CaseBound describes the compare-and-branch guard findNumCases locates:
// the constant N a switch index is compared against, and whether N
// itself is a valid case index (inclusive: "idx <= N" guarding the
// switch, or "idx > N" guarding the default) or not (exclusive: "idx < N"
// or "idx >= N").
type CaseBound struct {
	N         int64
	Inclusive bool
}

// DecodeIndirectJmp analyzes frag, whose last statement is a computed
// goto or a computed call, and attempts to resolve it (spec.md §4.6). It
// reports whether the function needs to be re-decompiled because of a
// significant structural change - new switch arms discovered, or a
// computed call resolved to a fresh direct target whose body hasn't been
// seen yet - mirroring decodeIndirectJmp's return value exactly.
func (r *Resolver) DecodeIndirectJmp(cfg *frag.CFG, f *frag.Fragment) (bool, error) {
	if len(f.Stmts) == 0 {
		return false, nil
	}
	switch term := f.Stmts[len(f.Stmts)-1].(type) {
	case *stmt.Goto:
		if !term.IsComputed() {
			return false, nil
		}
		return r.analyzeCompJump(cfg, f, term)
	case *stmt.Call:
		if !term.IsComputed() {
			return false, nil
		}
		return r.analyzeCompCall(term)
	default:
		return false, nil
	}
}

// analyzeCompJump attempts switch-table recovery on a computed goto,
// mirroring analyzeCompJump + processSwitch. Failure (no bound found, no
// table shape found, or a target outside known code) leaves the goto
// unresolved per spec.md §4.6's failure modes - it is never an error, and
// no cases are fabricated.
func (r *Resolver) analyzeCompJump(cfg *frag.CFG, f *frag.Fragment, g *stmt.Goto) (bool, error) {
	bound, guard, ok := r.findNumCases(cfg, f)
	if !ok {
		return false, nil
	}
	tableAddr, indexExpr, double, ok := recognizeTableShape(g.Dest)
	if !ok {
		return false, nil
	}
	return r.processSwitch(cfg, f, g, guard, bound, tableAddr, indexExpr, double)
}

// findNumCases walks back along frag's dominators looking for a
// compare-and-branch against a constant upper bound, per
// IndirectJumpAnalyzer::findNumCases. It returns the discovered bound,
// the branch statement that guards it, and whether a bound was found at
// all - a false result is the documented "and-masked" failure mode (see
// spec.md §9 Open Question 2): this walk never special-cases an AND
// between the compare and the branch, so that shape is left unresolved
// exactly as upstream's own doc comment says it currently must be.
func (r *Resolver) findNumCases(cfg *frag.CFG, f *frag.Fragment) (CaseBound, *stmt.Branch, bool) {
	idom := cfg.Dominators()
	cur := f
	for hops := 0; hops < 32; hops++ {
		parent, ok := idom[cur]
		if !ok {
			return CaseBound{}, nil, false
		}
		if len(parent.Stmts) > 0 {
			if br, ok := parent.Stmts[len(parent.Stmts)-1].(*stmt.Branch); ok {
				if bound, ok := boundFromBranch(br); ok {
					return bound, br, true
				}
			}
		}
		cur = parent
	}
	return CaseBound{}, nil, false
}

// boundFromBranch recognizes "idx CMP constant" where CMP is one of
// < <= > >= (a bound on the switch index), returning the case count
// either side implies.
func boundFromBranch(br *stmt.Branch) (CaseBound, bool) {
	bin, ok := br.Cond.(*expr.Binary)
	if !ok {
		return CaseBound{}, false
	}
	var cst *expr.Const
	var op string
	if c, ok := bin.R.(*expr.Const); ok && c.CKind == expr.ConstInt {
		cst, op = c, bin.Op
	} else if c, ok := bin.L.(*expr.Const); ok && c.CKind == expr.ConstInt {
		// Constant on the left: flip the relational sense so op always
		// reads "index OP constant".
		cst, op = c, flipRelation(bin.Op)
	} else {
		return CaseBound{}, false
	}
	switch op {
	case "<":
		return CaseBound{N: cst.I, Inclusive: false}, true
	case "<=":
		return CaseBound{N: cst.I, Inclusive: true}, true
	case ">":
		return CaseBound{N: cst.I, Inclusive: true}, true
	case ">=":
		return CaseBound{N: cst.I, Inclusive: false}, true
	default:
		return CaseBound{}, false
	}
}

func flipRelation(op string) string {
	switch op {
	case "<":
		return ">"
	case ">":
		return "<"
	case "<=":
		return ">="
	case ">=":
		return "<="
	default:
		return op
	}
}

// numCases resolves a CaseBound into an actual case count: [0, N]
// inclusive or [0, N) exclusive, per spec.md §4.6 step 1.
func (b CaseBound) numCases() int64 {
	if b.Inclusive {
		return b.N + 1
	}
	return b.N
}

// recognizeTableShape matches dest against "table[index]" or
// "table[table2[index]]" (double indirection), per spec.md §4.6's
// expression-shape recognition. It returns the outer table's base
// address, the index expression, and whether a double indirection was
// matched.
func recognizeTableShape(dest expr.Expr) (tableAddr int64, index expr.Expr, double bool, ok bool) {
	loc, ok := dest.(*expr.Location)
	if !ok || loc.LKind != expr.LocMemory {
		return 0, nil, false, false
	}
	addr, ok := loc.Addr.(*expr.Binary)
	if !ok || addr.Op != "+" {
		return 0, nil, false, false
	}
	base, idx := addr.L, addr.R
	baseConst, baseOk := base.(*expr.Const)
	if !baseOk {
		base, idx = addr.R, addr.L
		baseConst, baseOk = base.(*expr.Const)
	}
	if !baseOk || baseConst.CKind != expr.ConstInt {
		return 0, nil, false, false
	}
	scaled, isScale := unscale(idx)
	if isScale {
		idx = scaled
	}
	if innerLoc, ok := idx.(*expr.Location); ok && innerLoc.LKind == expr.LocMemory {
		if innerAddr, ok := innerLoc.Addr.(*expr.Binary); ok && innerAddr.Op == "+" {
			if _, ok := innerAddr.L.(*expr.Const); ok {
				return baseConst.I, innerAddr.R, true, true
			}
		}
	}
	return baseConst.I, idx, false, true
}

// unscale strips a "* constant" scale factor off an index expression
// (e.g. 4*r24's scale), returning the bare index when one is found.
func unscale(e expr.Expr) (expr.Expr, bool) {
	b, ok := e.(*expr.Binary)
	if !ok || b.Op != "*" {
		return e, false
	}
	if _, ok := b.L.(*expr.Const); ok {
		return b.R, true
	}
	if _, ok := b.R.(*expr.Const); ok {
		return b.L, true
	}
	return e, false
}

// processSwitch materializes the recovered switch: for each case in
// [0, numCases), reads the table (following one more indirection for the
// double-indirect shape), ensures a fragment exists at the target
// (decoding on demand), and adds a switch-case edge. Mirrors
// processSwitch exactly, including its "only called when re-decoding"
// discipline - the caller (internal/passmgr) is expected to call this
// once, not repeatedly per statement visit.
func (r *Resolver) processSwitch(cfg *frag.CFG, f *frag.Fragment, g *stmt.Goto, guard *stmt.Branch, bound CaseBound, tableAddr int64, index expr.Expr, double bool) (bool, error) {
	n := bound.numCases()
	if n <= 0 {
		return false, nil
	}
	decodedNew := false
	for i := int64(0); i < n; i++ {
		target, ok := r.readTableEntry(tableAddr, i, double)
		if !ok {
			// Outside the text segment, or unreadable: spec.md §4.6
			// failure mode - skip this case, do not abort the whole
			// recovery, report nothing fatal (treated as an upstream
			// decode failure one layer up if the caller wants to log
			// it).
			continue
		}
		dest, isNew, err := r.createCompJumpDest(cfg, f, int(i), target)
		if err != nil {
			return decodedNew, err
		}
		if dest == nil {
			continue
		}
		if isNew {
			decodedNew = true
		}
		cfg.AddSwitchCaseEdge(f, dest, i)
	}
	f.FKind = frag.FragSwitch
	g.Target = nil // the goto's single Target is meaningless once it fans out to many case edges
	_ = guard
	return decodedNew, nil
}

// readTableEntry reads the i'th table entry (and, for the double-indirect
// shape, follows that value as a second table index) via the ImageReader.
func (r *Resolver) readTableEntry(tableAddr int64, i int64, double bool) (decoder.Address, bool) {
	if r.Image == nil {
		return 0, false
	}
	const wordSize = 4
	entry, ok := r.Image.ReadWord(decoder.Address(tableAddr + i*wordSize))
	if !ok {
		return 0, false
	}
	if double {
		entry, ok = r.Image.ReadWord(decoder.Address(entry))
		if !ok {
			return 0, false
		}
	}
	target := decoder.Address(entry)
	if !r.Image.Contains(target) {
		return 0, false
	}
	return target, true
}

// createCompJumpDest ensures the low-level CFG contains a fragment at
// addr, decoding on demand via the Resolver's Decoder/Install callback if
// it is not already present, mirroring createCompJumpDest + addCFGEdge.
// The destIdx parameter (the case index) is accepted to match the
// original's signature shape but is not needed by this Install-callback
// based lowering; it is surfaced to the caller purely for symmetry with
// IndirectJumpAnalyzer's own parameter list.
func (r *Resolver) createCompJumpDest(cfg *frag.CFG, source *frag.Fragment, destIdx int, addr decoder.Address) (*frag.Fragment, bool, error) {
	if existing := r.findFragmentAt(cfg, addr); existing != nil {
		return existing, false, nil
	}
	if r.Decoder == nil || r.Install == nil {
		return nil, false, nil
	}
	rtls, ok, err := r.Decoder.DecodeAt(addr)
	if err != nil {
		return nil, false, err
	}
	if !ok {
		return nil, false, nil
	}
	frg := r.Install(cfg, addr, rtls)
	return frg, frg != nil, nil
}

// findFragmentAt looks up a fragment previously installed at addr by its
// label - Install is expected to label fragments by their source address
// (addrLabel's "0x"+hex convention) so repeat lookups are idempotent per
// spec.md §6's decoder contract.
func (r *Resolver) findFragmentAt(cfg *frag.CFG, addr decoder.Address) *frag.Fragment {
	label := addrLabel(addr)
	for _, f := range cfg.Fragments() {
		if f.Label == label {
			return f
		}
	}
	return nil
}

func addrLabel(addr decoder.Address) string {
	return fmt.Sprintf("0x%x", int64(addr))
}
