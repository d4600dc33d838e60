// Package pattern implements the small S-expression structural-pattern
// language used by this package's Search/SearchAll/SearchAndReplace
// (spec §4.1): wildcards
// ("?", "?name"), type-class matchers (CONST, LOC, TERM), integer
// literals, and call forms "(op child...)" matching Unary/Binary/Ternary
// nodes by operator. It is built the same way a source grammar package
// builds its own grammar elsewhere in this codebase: a participle
// stateful lexer feeding a participle struct grammar.
package pattern

import (
	"github.com/alecthomas/participle/v2/lexer"
)

var patternLexer = lexer.MustStateful(lexer.Rules{
	"Root": {
		{"Whitespace", `[ \t\r\n]+`, nil},
		{"Punct", `[()?]`, nil},
		{"Op", `(\|\||&&|==|!=|<=|>=|<<|>>|[-+*/%&|^~!<>])`, nil},
		{"Int", `-?[0-9]+`, nil},
		{"Ident", `[a-zA-Z_][a-zA-Z0-9_]*`, nil},
	},
})
