package opt_test

import (
	"testing"

	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/opt"
	"decompcore/internal/proc"
	"decompcore/internal/ssabuild"
	"decompcore/internal/stmt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// singleFragProc builds a one-fragment procedure from stmts, already
// passed through SSA construction so every use is a subscripted
// reference the way opt passes expect to find it.
func singleFragProc(t *testing.T, stmts ...stmt.Stmt) *proc.Procedure {
	t.Helper()
	cfg := frag.NewCFG()
	f := cfg.CreateFragment("entry")
	for _, s := range stmts {
		f.AddStmt(s)
	}
	cfg.Exit = f
	ssabuild.Build(cfg)
	return proc.NewProcedure("f", cfg)
}

func TestCopyConstPropagationForwardsConstantIntoUse(t *testing.T) {
	def := stmt.NewAssign(expr.Local("x"), expr.IntConst(42, nil), nil)
	use := stmt.NewAssign(expr.Local("y"), expr.Local("x"), nil)
	p := singleFragProc(t, def, use)

	changed, err := opt.CopyConstPropagation().Execute(p)
	require.NoError(t, err)
	assert.True(t, changed)

	got := p.CFG.Fragments()[0].Stmts[1].(*stmt.Assign)
	c, ok := got.Rhs.(*expr.Const)
	require.True(t, ok, "expected rhs forwarded to a bare constant, got %T", got.Rhs)
	assert.Equal(t, int64(42), c.I)
}

func TestDeadCodeEliminationRemovesUnreferencedDef(t *testing.T) {
	dead := stmt.NewAssign(expr.Local("unused"), expr.IntConst(1, nil), nil)
	live := stmt.NewAssign(expr.Local("y"), expr.IntConst(2, nil), nil)
	ret := stmt.NewReturn()
	ret.AddReturn(expr.Local("y"), expr.Local("y"))
	p := singleFragProc(t, dead, live, ret)

	changed, err := opt.DeadCodeElimination().Execute(p)
	require.NoError(t, err)
	assert.True(t, changed)

	got := p.CFG.Fragments()[0].Stmts
	require.Len(t, got, 2)
	assign := got[0].(*stmt.Assign)
	assert.True(t, assign.Lhs.(*expr.Location).BaseEqual(expr.Local("y")))
}

func TestDeadCodeEliminationNeverRemovesCall(t *testing.T) {
	call := stmt.NewCall(expr.IntConst(0x1000, nil))
	call.AddDefine(stmt.NewAssign(expr.Local("unused"), expr.IntConst(0, nil), nil))
	p := singleFragProc(t, call)

	changed, err := opt.DeadCodeElimination().Execute(p)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Len(t, p.CFG.Fragments()[0].Stmts, 1)
}

func TestPreservationAnalysisFindsUnchangedReturn(t *testing.T) {
	ret := stmt.NewReturn()
	ret.AddReturn(expr.Local("ebx"), expr.Local("ebx"))
	p := singleFragProc(t, ret)

	cache := opt.NewPreservationCache()
	changed, err := opt.PreservationAnalysis(cache).Execute(p)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Contains(t, p.Signature.Preserved, "ebx")

	got, ok := cache.Get(p.ProcID())
	require.True(t, ok)
	assert.Contains(t, got, "ebx")
}

func TestPreservationAnalysisRejectsModifiedReturn(t *testing.T) {
	ret := stmt.NewReturn()
	ret.AddReturn(expr.Local("ebx"), expr.IntConst(0, nil))
	p := singleFragProc(t, ret)

	changed, err := opt.PreservationAnalysis(opt.NewPreservationCache()).Execute(p)
	require.NoError(t, err)
	assert.False(t, changed)
	assert.NotContains(t, p.Signature.Preserved, "ebx")
}

func TestParameterInferenceSkipsScratchRegister(t *testing.T) {
	eax := expr.RegOf(expr.IntConst(0, nil)) // scratch under cdecl
	arg := expr.Param("in")
	use := stmt.NewAssign(expr.Local("a"), eax, nil)
	use2 := stmt.NewAssign(expr.Local("b"), arg, nil)
	p := singleFragProc(t, use, use2)

	changed, err := opt.ParameterInference(proc.ConvCdecl).Execute(p)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, p.Params, 1)
	assert.True(t, p.Params[0].BaseEqual(arg))
}

func TestParameterInferenceOrdersFastcallRegistersFirst(t *testing.T) {
	ecx := expr.RegOf(expr.IntConst(1, nil))
	edx := expr.RegOf(expr.IntConst(2, nil))
	useEdx := stmt.NewAssign(expr.Local("a"), edx, nil)
	useEcx := stmt.NewAssign(expr.Local("b"), ecx, nil)
	p := singleFragProc(t, useEdx, useEcx)

	_, err := opt.ParameterInference(proc.ConvFastcall).Execute(p)
	require.NoError(t, err)
	require.Len(t, p.Params, 2)
	assert.True(t, p.Params[0].BaseEqual(ecx))
	assert.True(t, p.Params[1].BaseEqual(edx))
}

func TestReturnInferenceUnionsDefinedNonScratchLocations(t *testing.T) {
	def := stmt.NewAssign(expr.Local("result"), expr.IntConst(7, nil), nil)
	ret := stmt.NewReturn()
	ret.AddReturn(expr.Local("result"), expr.RefOf(expr.Local("result"), nil))
	ret.AddReturn(expr.RegOf(expr.IntConst(0, nil)), expr.RefOf(expr.RegOf(expr.IntConst(0, nil)), nil))
	p := singleFragProc(t, def, ret)

	changed, err := opt.ReturnInference(proc.ConvCdecl).Execute(p)
	require.NoError(t, err)
	assert.True(t, changed)
	require.Len(t, p.Returns, 1)
	assert.True(t, p.Returns[0].BaseEqual(expr.Local("result")))
}

func TestEllipsisProcessingSynthesizesArgumentsForPrintf(t *testing.T) {
	printf := proc.NewProcedure("printf", frag.NewCFG())
	printf.Signature.HasEllipsis = true

	call := stmt.NewCall(expr.IntConst(0x2000, nil))
	call.DestProc = printf
	call.HasEllipsis = true
	call.StackPointer = expr.RegOf(expr.IntConst(4, nil))
	fmtLoc := expr.Local("fmt")
	call.AddArgument(stmt.NewAssign(fmtLoc, expr.StringConst("%d %s"), nil))

	p := proc.NewProcedure("caller", frag.NewCFG())
	f := p.CFG.CreateFragment("entry")
	f.AddStmt(call)
	p.CFG.Exit = f

	changed, err := opt.EllipsisProcessing().Execute(p)
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, 3, call.NumArguments())
}
