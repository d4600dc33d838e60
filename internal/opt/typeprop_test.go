package opt_test

import (
	"testing"

	"decompcore/internal/dtype"
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/opt"
	"decompcore/internal/proc"
	"decompcore/internal/ssabuild"
	"decompcore/internal/stmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// branchingPhiProc builds a diamond CFG - guard branching to left/right,
// both falling through to join - so ssabuild inserts a phi for any
// location both arms define.
func branchingPhiProc(t *testing.T, left, right, join stmt.Stmt) *proc.Procedure {
	t.Helper()
	cfg := frag.NewCFG()
	guard := cfg.CreateFragment("guard")
	leftF := cfg.CreateFragment("left")
	rightF := cfg.CreateFragment("right")
	joinF := cfg.CreateFragment("join")

	guard.AddStmt(stmt.NewBranch(expr.IntConst(1, nil), leftF, rightF))
	cfg.AddEdge(guard, leftF, frag.EdgeTaken)
	cfg.AddEdge(guard, rightF, frag.EdgeFallThrough)

	leftF.AddStmt(left)
	cfg.AddEdge(leftF, joinF, frag.EdgeFallThrough)

	rightF.AddStmt(right)
	cfg.AddEdge(rightF, joinF, frag.EdgeFallThrough)

	joinF.AddStmt(join)
	cfg.Exit = joinF

	ssabuild.Build(cfg)
	return proc.NewProcedure("f", cfg)
}

func TestTypePropagationWritesDefTypeOntoUse(t *testing.T) {
	def := stmt.NewAssign(expr.Local("x"), expr.IntConst(42, nil), dtype.I32)
	use := stmt.NewAssign(expr.Local("y"), expr.Local("x"), nil)
	p := singleFragProc(t, def, use)

	changed, err := opt.TypePropagation().Execute(p)
	require.NoError(t, err)
	assert.True(t, changed)

	got := p.CFG.Fragments()[0].Stmts[1].(*stmt.Assign)
	ref, ok := got.Rhs.(*expr.SubscriptRef)
	require.True(t, ok, "expected use to still be a subscripted reference, got %T", got.Rhs)
	loc := ref.Base()
	require.NotNil(t, loc)
	assert.Equal(t, dtype.I32, loc.Ty)
}

func TestTypePropagationCastsIncompatibleUse(t *testing.T) {
	def := stmt.NewAssign(expr.Local("x"), expr.IntConst(42, nil), dtype.I32)
	conflicting := &expr.Location{LKind: expr.LocLocal, Name: "x", Ty: dtype.PointerTo(dtype.U8)}
	use := stmt.NewAssign(expr.Local("y"), conflicting, nil)
	p := singleFragProc(t, def, use)

	changed, err := opt.TypePropagation().Execute(p)
	require.NoError(t, err)
	assert.True(t, changed)

	got := p.CFG.Fragments()[0].Stmts[1].(*stmt.Assign)
	cast, ok := got.Rhs.(*expr.Cast)
	require.True(t, ok, "expected an incompatible use to be wrapped in a Cast, got %T", got.Rhs)
	assert.True(t, dtype.PointerTo(dtype.U8).Equal(cast.Ty), "cast should target the use's own declared type")
	ref, ok := cast.X.(*expr.SubscriptRef)
	require.True(t, ok)
	assert.True(t, dtype.PointerTo(dtype.U8).Equal(ref.Base().Ty), "the use's own type annotation is preserved, not overwritten, once it conflicts")
}

func TestTypePropagationJoinsPhiOperandTypes(t *testing.T) {
	left := stmt.NewAssign(expr.Local("x"), expr.IntConst(1, nil), dtype.I16)
	right := stmt.NewAssign(expr.Local("x"), expr.IntConst(2, nil), dtype.I32)
	join := stmt.NewAssign(expr.Local("z"), expr.Local("x"), nil)
	p := branchingPhiProc(t, left, right, join)

	_, err := opt.TypePropagation().Execute(p)
	require.NoError(t, err)

	var phi *stmt.Phi
	for _, f := range p.CFG.Fragments() {
		for _, s := range f.Stmts {
			if ph, ok := s.(*stmt.Phi); ok {
				phi = ph
			}
		}
	}
	require.NotNil(t, phi, "ssabuild should have inserted a phi for x at the join point")
	loc, ok := phi.Lhs.(*expr.Location)
	require.True(t, ok)
	assert.Equal(t, dtype.I32, loc.Ty, "phi type should be the join of its operands' types")
}

func TestTypePropagationSeedsParamTypeFromSignature(t *testing.T) {
	p := singleFragProc(t, stmt.NewAssign(expr.Local("y"), expr.Param("in"), nil))
	p.Params = append(p.Params, expr.Param("in"))
	p.Signature.Params = append(p.Signature.Params, dtype.U16)

	changed, err := opt.TypePropagation().Execute(p)
	require.NoError(t, err)
	assert.True(t, changed)

	got := p.CFG.Fragments()[0].Stmts[0].(*stmt.Assign)
	ref, ok := got.Rhs.(*expr.SubscriptRef)
	require.True(t, ok)
	assert.True(t, ref.IsImplicit(), "a parameter with no in-procedure def is live on entry")
	assert.Equal(t, dtype.U16, ref.Base().Ty)
}
