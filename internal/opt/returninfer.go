package opt

import (
	"decompcore/internal/expr"
	"decompcore/internal/frag"
	"decompcore/internal/proc"
	"decompcore/internal/stmt"
)

// ReturnInference promotes every location defined somewhere in the
// procedure, named by at least one Return statement's defines list, and
// not a known scratch register, to the procedure's returns list - the
// union taken across every Return in the CFG (spec.md §4.4).
func ReturnInference(conv proc.CallingConvention) Pass {
	return returnInference{conv: conv}
}

type returnInference struct{ conv proc.CallingConvention }

func (returnInference) Name() string { return "return-inference" }

func (ri returnInference) Execute(p *proc.Procedure) (bool, error) {
	defined := definedBaseLocations(p.CFG)
	seen := map[string]bool{}
	var returns []*expr.Location
	for _, f := range p.CFG.Fragments() {
		for _, s := range f.Stmts {
			ret, ok := s.(*stmt.Return)
			if !ok {
				continue
			}
			for _, d := range ret.Defs {
				loc, ok := d.Lhs.(*expr.Location)
				if !ok {
					continue
				}
				if isScratchRegister(ri.conv, loc) {
					continue
				}
				if !defined[loc.String()] {
					continue
				}
				key := loc.String()
				if !seen[key] {
					seen[key] = true
					returns = append(returns, loc)
				}
			}
		}
	}
	changed := !sameLocationSlice(p.Returns, returns)
	p.Returns = returns
	return changed, nil
}

// definedBaseLocations collects the string key of every location named
// as a Defines() somewhere in cfg, ignoring any SSA subscript (Defines()
// always yields the bare location, never a SubscriptRef).
func definedBaseLocations(cfg *frag.CFG) map[string]bool {
	out := map[string]bool{}
	for _, f := range cfg.Fragments() {
		for _, s := range f.Stmts {
			for _, d := range s.Defines() {
				if loc, ok := d.(*expr.Location); ok {
					out[loc.String()] = true
				}
			}
		}
	}
	return out
}
