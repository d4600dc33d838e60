// Package fixture builds proc.Procedure values from a small YAML
// description, for tests that want a concrete CFG without hand-writing
// fragment/edge/statement plumbing for every case (SPEC_FULL §1.1: test
// tooling; besides tests, only the cmd/decompcore demonstration driver
// imports it, and no pipeline package does). Expression and type
// strings use a tiny textual mini-language defined in this file;
// fixture.go defines the YAML document shape and the builder itself.
package fixture

import (
	"fmt"
	"strconv"
	"strings"

	"decompcore/internal/dtype"
	"decompcore/internal/expr"
)

// ParseExpr reads one expression from the mini-language:
//
//	param:NAME, local:NAME, global:NAME, temp:ID   - bare locations
//	const:N, fconst:F, str:TEXT                    - literals (N/F accept
//	                                                  strconv syntax, TEXT
//	                                                  runs to the end)
//	mem(E), reg(E)                                 - location wrappers
//	un(OP,E), bin(OP,L,R)                          - composite exprs
//
// It is deliberately small: fixtures feed pre-SSA locations and plain
// values into statements, not subscripted SSA expressions, which a
// fixture author would never hand-write anyway.
func ParseExpr(s string) (expr.Expr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("fixture: empty expression")
	}

	open := strings.IndexByte(s, '(')
	colon := strings.IndexByte(s, ':')
	if open != -1 && (colon == -1 || open < colon) {
		return parseCompound(s, open)
	}
	return parseLeaf(s, colon)
}

func parseLeaf(s string, colon int) (expr.Expr, error) {
	if colon == -1 {
		return nil, fmt.Errorf("fixture: malformed expression %q", s)
	}
	tag, rest := s[:colon], s[colon+1:]
	switch tag {
	case "param":
		return expr.Param(rest), nil
	case "local":
		return expr.Local(rest), nil
	case "global":
		return expr.Global(rest), nil
	case "temp":
		return expr.Temp(rest), nil
	case "const":
		v, err := strconv.ParseInt(rest, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("fixture: bad int constant %q: %w", rest, err)
		}
		return expr.IntConst(v, nil), nil
	case "fconst":
		v, err := strconv.ParseFloat(rest, 64)
		if err != nil {
			return nil, fmt.Errorf("fixture: bad float constant %q: %w", rest, err)
		}
		return expr.FloatConst(v, nil), nil
	case "str":
		return expr.StringConst(rest), nil
	default:
		return nil, fmt.Errorf("fixture: unknown expression tag %q", tag)
	}
}

func parseCompound(s string, open int) (expr.Expr, error) {
	tag := s[:open]
	if !strings.HasSuffix(s, ")") {
		return nil, fmt.Errorf("fixture: unterminated %q expression in %q", tag, s)
	}
	args, err := splitTopLevel(s[open+1 : len(s)-1])
	if err != nil {
		return nil, err
	}

	switch tag {
	case "mem":
		if len(args) != 1 {
			return nil, fmt.Errorf("fixture: mem(...) takes exactly 1 argument, got %d", len(args))
		}
		addr, err := ParseExpr(args[0])
		if err != nil {
			return nil, err
		}
		return expr.MemOf(addr), nil
	case "reg":
		if len(args) != 1 {
			return nil, fmt.Errorf("fixture: reg(...) takes exactly 1 argument, got %d", len(args))
		}
		idx, err := ParseExpr(args[0])
		if err != nil {
			return nil, err
		}
		return expr.RegOf(idx), nil
	case "un":
		if len(args) != 2 {
			return nil, fmt.Errorf("fixture: un(op,x) takes exactly 2 arguments, got %d", len(args))
		}
		x, err := ParseExpr(args[1])
		if err != nil {
			return nil, err
		}
		return &expr.Unary{Op: strings.TrimSpace(args[0]), X: x}, nil
	case "bin":
		if len(args) != 3 {
			return nil, fmt.Errorf("fixture: bin(op,l,r) takes exactly 3 arguments, got %d", len(args))
		}
		l, err := ParseExpr(args[1])
		if err != nil {
			return nil, err
		}
		r, err := ParseExpr(args[2])
		if err != nil {
			return nil, err
		}
		return &expr.Binary{Op: strings.TrimSpace(args[0]), L: l, R: r}, nil
	default:
		return nil, fmt.Errorf("fixture: unknown expression tag %q", tag)
	}
}

// splitTopLevel splits s on commas that are not nested inside parens, so
// "bin(+,mem(local:p),const:4)"'s outer args split into exactly
// ["+", "mem(local:p)", "const:4"].
func splitTopLevel(s string) ([]string, error) {
	var out []string
	depth := 0
	start := 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
			if depth < 0 {
				return nil, fmt.Errorf("fixture: unbalanced parens in %q", s)
			}
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	if depth != 0 {
		return nil, fmt.Errorf("fixture: unbalanced parens in %q", s)
	}
	out = append(out, s[start:])
	return out, nil
}

// ParseLocation is ParseExpr restricted to bare locations, for fields
// (parameter lists, return lists) that only ever name storage.
func ParseLocation(s string) (*expr.Location, error) {
	e, err := ParseExpr(s)
	if err != nil {
		return nil, err
	}
	loc, ok := e.(*expr.Location)
	if !ok {
		return nil, fmt.Errorf("fixture: %q is not a location", s)
	}
	return loc, nil
}

// ParseType reads a machine type from the mini-language: "" and "void"
// both mean dtype.Void{}; i8/i16/i32/i64/u8/u16/u32/u64 are the signed/
// unsigned integer widths; f32/f64 are float widths; char is dtype.Char;
// ptr:TYPE is a pointer to the type named by TYPE, recursively.
func ParseType(s string) (dtype.Type, error) {
	s = strings.TrimSpace(s)
	switch s {
	case "", "void":
		return dtype.Void{}, nil
	case "i8":
		return dtype.I8, nil
	case "i16":
		return dtype.I16, nil
	case "i32":
		return dtype.I32, nil
	case "i64":
		return dtype.I64, nil
	case "u8":
		return dtype.U8, nil
	case "u16":
		return dtype.U16, nil
	case "u32":
		return dtype.U32, nil
	case "u64":
		return dtype.U64, nil
	case "f32":
		return dtype.F32, nil
	case "f64":
		return dtype.F64, nil
	case "char":
		return dtype.Char{}, nil
	}
	if rest, ok := strings.CutPrefix(s, "ptr:"); ok {
		elem, err := ParseType(rest)
		if err != nil {
			return nil, err
		}
		return dtype.PointerTo(elem), nil
	}
	return nil, fmt.Errorf("fixture: unknown type %q", s)
}
