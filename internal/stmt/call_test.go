package stmt

import (
	"testing"

	"decompcore/internal/dtype"
	"decompcore/internal/expr"
)

type fakeProc struct {
	name       string
	hasDefines bool
}

func (f *fakeProc) ProcID() string     { return f.name }
func (f *fakeProc) ProcName() string   { return f.name }
func (f *fakeProc) HasDefines() bool   { return f.hasDefines }

// TestEliminateDuplicateArgsComparesWholeAssign mirrors spec.md scenario
// S2: two args with the same lhs but different rhs are both kept, since
// dedup compares the whole "lhs := rhs" assign, not just the lhs.
func TestEliminateDuplicateArgsComparesWholeAssign(t *testing.T) {
	ebx := expr.RegOf(expr.IntConst(27, nil))
	ecx := expr.RegOf(expr.IntConst(25, nil))

	call := NewCall(expr.IntConst(0x1000, nil))
	call.AddArgument(NewAssign(ebx, ebx.Clone(), nil))          // kept
	call.AddArgument(NewAssign(ebx.Clone(), ebx.Clone(), nil))  // exact dup, dropped
	call.AddArgument(NewAssign(ebx.Clone(), ecx.Clone(), nil))  // same lhs, different rhs: kept
	call.EliminateDuplicateArgs()

	if got := call.NumArguments(); got != 2 {
		t.Fatalf("expected 2 arguments after dedup, got %d", got)
	}
	if !call.Args[0].Rhs.Equal(ebx) {
		t.Fatalf("expected the first duplicate to survive, got %s", call.Args[0])
	}
	if !call.Args[1].Rhs.Equal(ecx) {
		t.Fatalf("expected the distinct-rhs argument to survive, got %s", call.Args[1])
	}

	call2 := NewCall(expr.IntConst(0x1000, nil))
	call2.AddArgument(NewAssign(ebx.Clone(), ebx.Clone(), nil))
	call2.AddArgument(NewAssign(ecx.Clone(), ebx.Clone(), nil))
	call2.EliminateDuplicateArgs()
	if got := call2.NumArguments(); got != 2 {
		t.Fatalf("distinct-lhs arguments should both survive, got %d", got)
	}
}

// TestDoEllipsisProcessingSynthesizesTypedArgs mirrors spec.md scenario S1
// and the fuller printf/scanf table exercised by CallStatementTest.
func TestDoEllipsisProcessingSynthesizesTypedArgs(t *testing.T) {
	sp := expr.RegOf(expr.IntConst(28, nil))
	fmtLoc := expr.Param("fmt")

	call := NewCall(expr.IntConst(0x2000, nil))
	call.SetDestProc(&fakeProc{name: "printf"})
	call.HasEllipsis = true
	call.StackPointer = sp
	call.AddArgument(NewAssign(fmtLoc, expr.StringConst("%d %s"), nil))

	if !call.DoEllipsisProcessing() {
		t.Fatal("expected ellipsis processing to succeed")
	}
	if got := call.NumArguments(); got != 3 {
		t.Fatalf("expected fmt + 2 synthesized args, got %d", got)
	}

	dArg := call.Args[1]
	if !dArg.Ty.Equal(dtype.I32) {
		t.Fatalf("%%d should synthesize an int32 arg, got %s", dArg.Ty)
	}
	sArg := call.Args[2]
	want := dtype.PointerTo(dtype.CharT)
	if !sArg.Ty.Equal(want) {
		t.Fatalf("%%s should synthesize a char* arg, got %s", sArg.Ty)
	}
}

func TestDoEllipsisProcessingRequiresResolvableFormatString(t *testing.T) {
	call := NewCall(expr.IntConst(0x2000, nil))
	call.SetDestProc(&fakeProc{name: "printf"})
	call.HasEllipsis = true
	call.StackPointer = expr.RegOf(expr.IntConst(28, nil))

	// Unresolvable rhs (an address-of expression, not a string constant).
	ecx := expr.RegOf(expr.IntConst(25, nil))
	eax := expr.RegOf(expr.IntConst(26, nil))
	call.AddArgument(NewAssign(ecx, &expr.Unary{Op: "&", X: expr.MemOf(eax)}, nil))
	if call.DoEllipsisProcessing() {
		t.Fatal("expected failure: format rhs does not resolve to a string constant")
	}
}

func TestDoEllipsisProcessingChasesSubscriptRefToAConstant(t *testing.T) {
	ecx := expr.RegOf(expr.IntConst(25, nil))
	def := NewAssign(ecx, expr.StringConst("foo"), nil)

	call := NewCall(expr.IntConst(0x2000, nil))
	call.SetDestProc(&fakeProc{name: "printf"})
	call.HasEllipsis = true
	call.AddArgument(NewAssign(ecx.Clone(), expr.RefOf(ecx.Clone(), def), nil))

	if !call.DoEllipsisProcessing() {
		t.Fatal("expected the subscripted reference to resolve through its def to a string constant")
	}
}

func TestIsComputedLatchesAndSurvivesDirectResolution(t *testing.T) {
	sp := expr.RegOf(expr.IntConst(28, nil))
	call := NewCall(sp)
	if !call.IsComputed() {
		t.Fatal("a register destination should be computed")
	}

	target := &fakeProc{name: "target", hasDefines: true}
	ok := call.TryConvertToDirect(func(addr int64) (ProcRef, bool) {
		return nil, false // destination isn't a constant yet, so this never runs
	})
	if ok {
		t.Fatal("TryConvertToDirect should fail while the destination is not constant")
	}

	call.SetDest(expr.IntConst(0x4000, nil))
	if !call.IsComputed() {
		t.Fatal("isComputed must stay latched once set, even if the destination later simplifies to a constant")
	}

	ok = call.TryConvertToDirect(func(addr int64) (ProcRef, bool) {
		if addr == 0x4000 {
			return target, true
		}
		return nil, false
	})
	if !ok || call.DestProc != target {
		t.Fatal("TryConvertToDirect should resolve a constant destination to the looked-up procedure")
	}
	if !call.IsComputed() {
		t.Fatal("isComputed must remain true after TryConvertToDirect resolves the call")
	}
}

func TestIsChildlessReflectsDestProcDefines(t *testing.T) {
	call := NewCall(expr.IntConst(0x1000, nil))
	if !call.IsChildless() {
		t.Fatal("a call with no destination procedure is childless")
	}
	call.SetDestProc(&fakeProc{name: "f", hasDefines: false})
	if !call.IsChildless() {
		t.Fatal("a destination procedure without defines yet makes the call childless")
	}
	call.SetDestProc(&fakeProc{name: "f", hasDefines: true})
	if call.IsChildless() {
		t.Fatal("a destination procedure with defines makes the call non-childless")
	}
}

func TestBypassRefUsesPreservedValue(t *testing.T) {
	ebx := expr.RegOf(expr.IntConst(27, nil))
	call := NewCall(expr.IntConst(0x1000, nil))
	call.Preserved = map[string]expr.Expr{ebx.String(): expr.IntConst(0, nil)}

	ref := expr.RefOf(ebx.Clone(), call)
	got := call.BypassRef(ref)
	if !got.Equal(expr.IntConst(0, nil)) {
		t.Fatalf("expected the preserved entry value, got %s", got)
	}

	other := NewCall(expr.IntConst(0x1000, nil))
	unrelated := expr.RefOf(ebx.Clone(), other)
	if call.BypassRef(unrelated) != unrelated {
		t.Fatal("BypassRef should leave a reference defined by a different call untouched")
	}
}

func TestLocaliseExpSubstitutesFromDefCollector(t *testing.T) {
	param := expr.Param("x")
	call := NewCall(expr.IntConst(0x1000, nil))
	call.DefCollector = map[string]expr.Expr{param.String(): expr.IntConst(42, nil)}

	got := call.LocaliseExp(&expr.Binary{Op: "+", L: param, R: expr.IntConst(1, nil)})
	want := &expr.Binary{Op: "+", L: expr.IntConst(42, nil), R: expr.IntConst(1, nil)}
	if !got.Equal(want) {
		t.Fatalf("LocaliseExp should substitute x -> 42, got %s", got)
	}
}

func TestIsCallToMemOffset(t *testing.T) {
	direct := NewCall(expr.IntConst(0x1000, nil))
	if direct.IsCallToMemOffset() {
		t.Fatal("a direct constant destination is not a mem-offset call")
	}
	stub := NewCall(expr.MemOf(expr.IntConst(0x403000, nil)))
	if !stub.IsCallToMemOffset() {
		t.Fatal("mem[constant] destination should be recognized as a mem-offset call")
	}
}
