package ssadestroy

import (
	"decompcore/internal/dtype"
	"decompcore/internal/expr"
	"decompcore/internal/stmt"
)

// typeOfDefine returns the type s assigns to loc, the "first type" used by
// interference analysis (spec.md §4.7's type-incompatibility edges). It
// falls back to loc's own declared type, and finally to Void when neither
// the defining statement nor the location itself carries one.
func typeOfDefine(s stmt.Stmt, loc *expr.Location) dtype.Type {
	switch n := s.(type) {
	case *stmt.Assign:
		if n.Ty != nil {
			return n.Ty
		}
	case *stmt.Call:
		for _, d := range n.Defs {
			dl, ok := d.Lhs.(*expr.Location)
			if ok && dl.BaseEqual(loc) && d.Ty != nil {
				return d.Ty
			}
		}
	}
	if loc.Ty != nil {
		return loc.Ty
	}
	return dtype.Void{}
}

// isPhiRef reports whether ref's definition is a φ-assign.
func isPhiRef(ref *expr.SubscriptRef) bool {
	_, ok := ref.Def.(*stmt.Phi)
	return ok
}

// defTypeOfRef resolves the type of the SSA value ref names, via its
// defining statement.
func defTypeOfRef(ref *expr.SubscriptRef) dtype.Type {
	loc := ref.Base()
	if loc == nil {
		return dtype.Void{}
	}
	s, ok := ref.Def.(stmt.Stmt)
	if !ok {
		return dtype.Void{}
	}
	return typeOfDefine(s, loc)
}
