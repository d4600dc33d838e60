package pattern

import "github.com/alecthomas/participle/v2"

// Node is one term of a parsed pattern. Exactly one field is non-nil.
type Node struct {
	Wild  *Wildcard `  @@`
	Class *string   `| @("CONST" | "LOC" | "TERM")`
	Lit   *string   `| @Int`
	Call  *Call     `| @@`
}

// Wildcard matches any expression, optionally binding it to Name so the
// same name used twice requires the two matched subtrees to be equal.
type Wildcard struct {
	Name *string `"?" [ @Ident ]`
}

// Call matches a Unary/Binary/Ternary node whose operator is Op and whose
// children match Args in order.
type Call struct {
	Op   string  `"(" @(Op | Ident)`
	Args []*Node `@@* ")"`
}

var patternParser = participle.MustBuild[Node](
	participle.Lexer(patternLexer),
	participle.Elide("Whitespace"),
	participle.UseLookahead(2),
)

// Parse compiles a pattern-language source string into a Node tree.
func Parse(src string) (*Node, error) {
	return patternParser.ParseString("", src)
}
