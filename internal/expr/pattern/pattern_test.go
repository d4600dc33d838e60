package pattern_test

import (
	"testing"

	"decompcore/internal/expr"
	"decompcore/internal/expr/pattern"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseWildcardAndCall(t *testing.T) {
	n, err := pattern.Parse("(+ ?x ?y)")
	require.NoError(t, err)
	require.NotNil(t, n.Call)
	assert.Equal(t, "+", n.Call.Op)
	assert.Len(t, n.Call.Args, 2)
	assert.Equal(t, "x", *n.Call.Args[0].Wild.Name)
}

func TestMatchWildcardBindsConsistently(t *testing.T) {
	n, err := pattern.Parse("(- ?x ?x)")
	require.NoError(t, err)

	x := expr.Local("eax")
	same := &expr.Binary{Op: "-", L: x, R: x.Clone()}
	b, ok := pattern.Match(n, same)
	require.True(t, ok)
	assert.True(t, b["x"].Equal(x))

	different := &expr.Binary{Op: "-", L: expr.Local("eax"), R: expr.Local("ebx")}
	_, ok = pattern.Match(n, different)
	assert.False(t, ok)
}

func TestMatchClassAndLiteral(t *testing.T) {
	constPat, err := pattern.Parse("CONST")
	require.NoError(t, err)
	_, ok := pattern.Match(constPat, expr.IntConst(7, nil))
	assert.True(t, ok)
	_, ok = pattern.Match(constPat, expr.Local("eax"))
	assert.False(t, ok)

	litPat, err := pattern.Parse("0")
	require.NoError(t, err)
	_, ok = pattern.Match(litPat, expr.IntConst(0, nil))
	assert.True(t, ok)
	_, ok = pattern.Match(litPat, expr.IntConst(1, nil))
	assert.False(t, ok)
}

func TestSearchAllFindsNestedOccurrences(t *testing.T) {
	tree := &expr.Binary{
		Op: "+",
		L:  &expr.Binary{Op: "*", L: expr.Local("a"), R: expr.IntConst(0, nil)},
		R:  &expr.Binary{Op: "*", L: expr.Local("b"), R: expr.IntConst(0, nil)},
	}
	found, err := pattern.SearchAll(tree, "(* ?x 0)")
	require.NoError(t, err)
	assert.Len(t, found, 2)
}

func TestSearchAndReplaceRewritesMatches(t *testing.T) {
	tree := &expr.Binary{Op: "*", L: expr.Local("a"), R: expr.IntConst(0, nil)}
	out, err := pattern.SearchAndReplace(tree, "(* ?x 0)", func(b pattern.Bindings) expr.Expr {
		return expr.IntConst(0, nil)
	})
	require.NoError(t, err)
	assert.Equal(t, "0", out.String())
}
