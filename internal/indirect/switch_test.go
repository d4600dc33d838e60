package indirect

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"decompcore/internal/decoder"
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/stmt"
)

// stubProc is the minimal stmt.ProcRef a Lookup callback can hand back
// without constructing a real proc.Procedure (which would pull in
// internal/proc just for its identity fields).
type stubProc struct{ name string }

func (s stubProc) ProcID() string   { return s.name }
func (s stubProc) ProcName() string { return s.name }
func (s stubProc) HasDefines() bool { return false }

// stubImage is a fixed word-addressed memory for table-read tests.
type stubImage struct {
	words map[decoder.Address]int64
	code  func(decoder.Address) bool
}

func (m stubImage) ReadWord(addr decoder.Address) (int64, bool) {
	v, ok := m.words[addr]
	return v, ok
}

func (m stubImage) Contains(addr decoder.Address) bool {
	if m.code == nil {
		return true
	}
	return m.code(addr)
}

func buildSwitchFragment(t *testing.T, bound CaseBound, op string, dest expr.Expr) (*frag.CFG, *frag.Fragment, *frag.Fragment, *stmt.Goto) {
	t.Helper()
	cfg := frag.NewCFG()
	guard := cfg.CreateFragment("guard")
	dispatch := cfg.CreateFragment("dispatch")
	cfg.AddEdge(guard, dispatch, frag.EdgeFallThrough)

	cond := &expr.Binary{Op: op, L: expr.Local("idx"), R: expr.IntConst(bound.N, nil)}
	guard.AddStmt(stmt.NewBranch(cond, dispatch, dispatch))

	g := stmt.NewComputedGoto(dest)
	dispatch.AddStmt(g)
	cfg.Exit = dispatch
	return cfg, guard, dispatch, g
}

func TestDecodeIndirectJmpIgnoresNonComputedTerminal(t *testing.T) {
	cfg := frag.NewCFG()
	f := cfg.CreateFragment("f")
	f.AddStmt(stmt.NewGoto(f))
	cfg.Exit = f

	r := &Resolver{}
	rerun, err := r.DecodeIndirectJmp(cfg, f)
	require.NoError(t, err)
	assert.False(t, rerun)
}

func TestDecodeIndirectJmpEmptyFragmentIsNoop(t *testing.T) {
	cfg := frag.NewCFG()
	f := cfg.CreateFragment("f")
	cfg.Exit = f

	r := &Resolver{}
	rerun, err := r.DecodeIndirectJmp(cfg, f)
	require.NoError(t, err)
	assert.False(t, rerun)
}

func TestAnalyzeCompCallConvertsToDirect(t *testing.T) {
	dest := &expr.Binary{Op: "+", L: expr.IntConst(0x400, nil), R: expr.IntConst(0x10, nil)}
	call := stmt.NewCall(dest)
	call.AddArgument(stmt.NewAssign(expr.Local("stale"), expr.IntConst(1, nil), nil))
	require.True(t, call.IsComputed())

	cfg := frag.NewCFG()
	f := cfg.CreateFragment("f")
	f.AddStmt(call)
	cfg.Exit = f

	target := stubProc{name: "memcpy"}
	r := &Resolver{Lookup: func(addr int64) (stmt.ProcRef, bool) {
		if addr == 0x410 {
			return target, true
		}
		return nil, false
	}}

	rerun, err := r.DecodeIndirectJmp(cfg, f)
	require.NoError(t, err)
	assert.True(t, rerun)
	assert.Equal(t, target, call.DestProc)
	assert.Empty(t, call.Args, "a converted call's stale arguments must be dropped for re-inference")
	// Open Question 1: IsComputed stays sticky even after conversion.
	assert.True(t, call.IsComputed())
}

func TestAnalyzeCompCallLeavesUnresolvedWithoutLookup(t *testing.T) {
	dest := expr.MemOf(expr.Local("fnptr"))
	call := stmt.NewCall(dest)
	cfg := frag.NewCFG()
	f := cfg.CreateFragment("f")
	f.AddStmt(call)
	cfg.Exit = f

	r := &Resolver{}
	rerun, err := r.DecodeIndirectJmp(cfg, f)
	require.NoError(t, err)
	assert.False(t, rerun)
	assert.Nil(t, call.DestProc)
}

// TestFindNumCasesAndMaskFailsOpenQuestion2 is Open Question 2: an
// AND-masked switch index ("idx & 7" feeding the computed jump, with no
// plain compare-and-branch guard anywhere on the dominator chain) must be
// left unresolved, not specially recognized, exactly as upstream leaves
// it.
func TestFindNumCasesAndMaskFailsOpenQuestion2(t *testing.T) {
	cfg := frag.NewCFG()
	guard := cfg.CreateFragment("guard")
	dispatch := cfg.CreateFragment("dispatch")
	cfg.AddEdge(guard, dispatch, frag.EdgeFallThrough)

	masked := &expr.Binary{Op: "&", L: expr.Local("idx"), R: expr.IntConst(7, nil)}
	guard.AddStmt(stmt.NewAssign(expr.Local("masked_idx"), masked, nil))

	dest := expr.MemOf(&expr.Binary{Op: "+", L: expr.IntConst(0x1000, nil), R: expr.Local("masked_idx")})
	g := stmt.NewComputedGoto(dest)
	dispatch.AddStmt(g)
	cfg.Exit = dispatch

	r := &Resolver{}
	_, _, ok := r.findNumCases(cfg, dispatch)
	assert.False(t, ok, "an AND-masked guard must not be recognized as a case bound")

	rerun, err := r.DecodeIndirectJmp(cfg, dispatch)
	require.NoError(t, err)
	assert.False(t, rerun)
	assert.True(t, g.IsComputed(), "an unresolved switch goto stays computed")
}

func TestBoundFromBranchRecognizesBothOperandOrders(t *testing.T) {
	right := stmt.NewBranch(&expr.Binary{Op: "<", L: expr.Local("idx"), R: expr.IntConst(5, nil)}, nil, nil)
	bound, ok := boundFromBranch(right)
	require.True(t, ok)
	assert.Equal(t, CaseBound{N: 5, Inclusive: false}, bound)

	left := stmt.NewBranch(&expr.Binary{Op: ">", L: expr.IntConst(5, nil), R: expr.Local("idx")}, nil, nil)
	bound, ok = boundFromBranch(left)
	require.True(t, ok)
	assert.Equal(t, CaseBound{N: 5, Inclusive: false}, bound)
}

func TestRecognizeTableShapeSingleAndDoubleIndirection(t *testing.T) {
	single := expr.MemOf(&expr.Binary{
		Op: "+",
		L:  expr.IntConst(0x2000, nil),
		R:  &expr.Binary{Op: "*", L: expr.IntConst(4, nil), R: expr.Local("idx")},
	})
	addr, idx, double, ok := recognizeTableShape(single)
	require.True(t, ok)
	assert.Equal(t, int64(0x2000), addr)
	assert.False(t, double)
	assert.Equal(t, "idx", idx.String())

	dbl := expr.MemOf(&expr.Binary{
		Op: "+",
		L:  expr.IntConst(0x3000, nil),
		R: expr.MemOf(&expr.Binary{
			Op: "+",
			L:  expr.IntConst(0x4000, nil),
			R:  expr.Local("idx"),
		}),
	})
	addr, idx, double, ok = recognizeTableShape(dbl)
	require.True(t, ok)
	assert.Equal(t, int64(0x3000), addr)
	assert.True(t, double)
	assert.Equal(t, "idx", idx.String())
}

func TestRecognizeTableShapeRejectsNonMemory(t *testing.T) {
	_, _, _, ok := recognizeTableShape(expr.Local("not_a_table"))
	assert.False(t, ok)
}

// TestProcessSwitchSkipsOutOfTextSegmentTargets exercises the "target
// outside known code" failure mode: one entry reads fine but fails
// Contains, the other is missing from the image outright, so neither
// case materializes an edge - yet the goto still fans out (FKind set,
// Target cleared) rather than being left as an ordinary computed goto.
func TestProcessSwitchSkipsOutOfTextSegmentTargets(t *testing.T) {
	bound := CaseBound{N: 2, Inclusive: false}
	dest := expr.MemOf(&expr.Binary{
		Op: "+",
		L:  expr.IntConst(0x2000, nil),
		R:  &expr.Binary{Op: "*", L: expr.IntConst(4, nil), R: expr.Local("idx")},
	})
	cfg, _, dispatch, g := buildSwitchFragment(t, bound, "<", dest)

	r := &Resolver{
		Image: stubImage{
			words: map[decoder.Address]int64{
				0x2000: 0x9000, // present, but outside the mapped segment below
			},
			code: func(addr decoder.Address) bool { return false },
		},
	}

	rerun, err := r.DecodeIndirectJmp(cfg, dispatch)
	require.NoError(t, err)
	assert.False(t, rerun, "no new fragment was ever decoded")
	assert.Equal(t, frag.FragSwitch, dispatch.FKind)
	assert.Nil(t, g.Target)
	assert.Empty(t, dispatch.SuccessorFragments())
}

// TestProcessSwitchInstallsFragmentsAndEdges is the success path: both
// table entries land inside the mapped segment and the Decoder/Install
// pair materializes a fresh fragment for each.
func TestProcessSwitchInstallsFragmentsAndEdges(t *testing.T) {
	bound := CaseBound{N: 2, Inclusive: false}
	dest := expr.MemOf(&expr.Binary{
		Op: "+",
		L:  expr.IntConst(0x2000, nil),
		R:  &expr.Binary{Op: "*", L: expr.IntConst(4, nil), R: expr.Local("idx")},
	})
	cfg, _, dispatch, g := buildSwitchFragment(t, bound, "<", dest)

	r := &Resolver{
		Image: stubImage{
			words: map[decoder.Address]int64{
				0x2000: 0x5000,
				0x2004: 0x5010,
			},
		},
		Decoder: stubDecoder{},
		Install: func(cfg *frag.CFG, addr decoder.Address, rtls []decoder.RTL) *frag.Fragment {
			nf := cfg.CreateFragment(addrLabel(addr))
			nf.AddStmt(stmt.NewReturn())
			return nf
		},
	}

	rerun, err := r.DecodeIndirectJmp(cfg, dispatch)
	require.NoError(t, err)
	assert.True(t, rerun, "newly decoded fragments require a re-run")
	assert.Equal(t, frag.FragSwitch, dispatch.FKind)
	assert.Nil(t, g.Target)
	assert.Len(t, dispatch.SuccessorFragments(), 2)
}

type stubDecoder struct{}

func (stubDecoder) DecodeAt(addr decoder.Address) ([]decoder.RTL, bool, error) {
	return []decoder.RTL{{SourceAddress: addr}}, true, nil
}
