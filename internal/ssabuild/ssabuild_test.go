package ssabuild_test

import (
	"testing"

	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/ssabuild"
	"decompcore/internal/stmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildDiamond builds entry -> {left, right} -> join, each arm defining
// "y" and join using it - the textbook case a phi must be inserted for.
func buildDiamond() (*frag.CFG, *frag.Fragment, *frag.Fragment, *frag.Fragment, *frag.Fragment) {
	cfg := frag.NewCFG()
	entry := cfg.CreateFragment("entry")
	left := cfg.CreateFragment("left")
	right := cfg.CreateFragment("right")
	join := cfg.CreateFragment("join")

	entry.AddStmt(stmt.NewAssign(expr.Local("x"), expr.IntConst(1, nil), nil))
	entry.AddStmt(stmt.NewBranch(expr.Local("x"), left, right))
	cfg.AddEdge(entry, left, frag.EdgeTaken)
	cfg.AddEdge(entry, right, frag.EdgeFallThrough)

	left.AddStmt(stmt.NewAssign(expr.Local("y"), expr.IntConst(10, nil), nil))
	cfg.AddEdge(left, join, frag.EdgeFallThrough)

	right.AddStmt(stmt.NewAssign(expr.Local("y"), expr.IntConst(20, nil), nil))
	cfg.AddEdge(right, join, frag.EdgeFallThrough)

	join.AddStmt(stmt.NewAssign(expr.Local("z"), expr.Local("y"), nil))
	cfg.Exit = join

	return cfg, entry, left, right, join
}

func TestBuildInsertsPhiAtJoin(t *testing.T) {
	cfg, _, _, _, join := buildDiamond()
	ssabuild.Build(cfg)

	require.Len(t, join.Stmts, 2, "a phi for y, then the original z := y")
	phi, ok := join.Stmts[0].(*stmt.Phi)
	require.True(t, ok, "join's first statement should be the inserted phi")
	assert.Equal(t, "y", phi.Lhs.String())
	assert.Equal(t, 2, phi.NumArgs())
}

func TestBuildRewritesUseIntoSubscriptRef(t *testing.T) {
	cfg, _, _, _, join := buildDiamond()
	ssabuild.Build(cfg)

	zAssign := join.Stmts[len(join.Stmts)-1].(*stmt.Assign)
	ref, ok := zAssign.Rhs.(*expr.SubscriptRef)
	require.True(t, ok, "z's rhs use of y must be a subscripted-reference")
	phi := join.Stmts[0].(*stmt.Phi)
	assert.Same(t, phi, ref.Def)
}

func TestBuildPhiArgsNameEachPredecessorsDefinition(t *testing.T) {
	cfg, _, left, right, join := buildDiamond()
	ssabuild.Build(cfg)

	phi := join.Stmts[0].(*stmt.Phi)
	leftRef, ok := phi.Args[left.FragID()].(*expr.SubscriptRef)
	require.True(t, ok)
	assert.Same(t, left.Stmts[0], leftRef.Def)

	rightRef, ok := phi.Args[right.FragID()].(*expr.SubscriptRef)
	require.True(t, ok)
	assert.Same(t, right.Stmts[0], rightRef.Def)
}

func TestBuildLeavesUseWithNoReachingDefAsImplicit(t *testing.T) {
	cfg := frag.NewCFG()
	f := cfg.CreateFragment("f")
	f.AddStmt(stmt.NewAssign(expr.Local("out"), expr.Param("in"), nil))
	cfg.Exit = f

	ssabuild.Build(cfg)

	a := f.Stmts[0].(*stmt.Assign)
	ref, ok := a.Rhs.(*expr.SubscriptRef)
	require.True(t, ok)
	assert.True(t, ref.IsImplicit(), "in has no definition in this procedure")
}

func TestAllRefsHaveDefsHoldsAfterBuild(t *testing.T) {
	cfg, _, _, _, _ := buildDiamond()
	ssabuild.Build(cfg)

	ok, violations := ssabuild.AllRefsHaveDefs(cfg)
	assert.True(t, ok, "violations: %v", violations)
}

func TestMemoryLocationKeyStableAcrossSubscriptedAddressing(t *testing.T) {
	// m[ebp-4] is written once, then read once through the same textual
	// address - the renamer must recognize both as the same SSA family
	// despite ebp itself picking up a subscript along the way.
	cfg := frag.NewCFG()
	f := cfg.CreateFragment("f")
	addr := func() expr.Expr {
		return &expr.Binary{Op: "-", L: expr.RegOf(expr.IntConst(5, nil)), R: expr.IntConst(4, nil)}
	}
	f.AddStmt(stmt.NewAssign(expr.MemOf(addr()), expr.IntConst(7, nil), nil))
	f.AddStmt(stmt.NewAssign(expr.Local("v"), expr.MemOf(addr()), nil))
	cfg.Exit = f

	ssabuild.Build(cfg)

	read := f.Stmts[len(f.Stmts)-1].(*stmt.Assign)
	ref, ok := read.Rhs.(*expr.SubscriptRef)
	require.True(t, ok)
	assert.False(t, ref.IsImplicit(), "the write to m[ebp-4] should reach this read")
	assert.Same(t, f.Stmts[0], ref.Def)
}
