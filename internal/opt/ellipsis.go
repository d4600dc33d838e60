package opt

import (
	"decompcore/internal/proc"
	"decompcore/internal/stmt"
)

// EllipsisProcessing drives stmt.Call.DoEllipsisProcessing over every
// variadic call in the procedure (spec.md §4.4's "ellipsis processing",
// detailed in §3/§6). The per-call format-string parsing and argument
// synthesis live on Call itself; this pass is the pass-manager-facing
// glue that invokes it uniformly.
func EllipsisProcessing() Pass { return ellipsisProcessing{} }

type ellipsisProcessing struct{}

func (ellipsisProcessing) Name() string { return "ellipsis-processing" }

func (ellipsisProcessing) Execute(p *proc.Procedure) (bool, error) {
	changed := false
	for _, f := range p.CFG.Fragments() {
		for _, s := range f.Stmts {
			call, ok := s.(*stmt.Call)
			if !ok || !call.HasEllipsis {
				continue
			}
			if call.DoEllipsisProcessing() {
				changed = true
			}
		}
	}
	return changed, nil
}
