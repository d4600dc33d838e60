package stmt

import (
	"testing"

	"decompcore/internal/dtype"
)

func TestScanFormatSpecifiersPrintfFamily(t *testing.T) {
	got := scanFormatSpecifiers("%d %u %f %c %s %%", printfType)
	want := []dtype.Type{dtype.I32, dtype.U32, dtype.F64, dtype.CharT, dtype.PointerTo(dtype.CharT)}
	if len(got) != len(want) {
		t.Fatalf("got %d specifiers, want %d", len(got), len(want))
	}
	for i := range want {
		if !got[i].Equal(want[i]) {
			t.Errorf("specifier %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestScanFormatSpecifiersScanfNarrowsFloats(t *testing.T) {
	got := scanFormatSpecifiers("%f", scanfType)
	if len(got) != 1 || !got[0].Equal(dtype.PointerTo(dtype.F32)) {
		t.Fatalf("scanf's %%f should synthesize a float32 pointer, got %v", got)
	}
}

func TestScanFormatSpecifiersSkipsUnrecognizedConversions(t *testing.T) {
	got := scanFormatSpecifiers("%d %z %u", printfType)
	if len(got) != 2 {
		t.Fatalf("unrecognized conversion %%z should synthesize nothing, got %d specifiers", len(got))
	}
}
