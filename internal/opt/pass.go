// Package opt implements the SSA optimization passes of spec.md §4.4:
// copy/constant propagation, dead-code elimination, preservation
// analysis, parameter/return inference, and the ellipsis-processing
// glue that drives stmt.Call.DoEllipsisProcessing from the pass
// manager. Each pass is a Pass value exposing Execute(procedure) ->
// (progress, error), generalized from an OptimizationPass pattern seen
// elsewhere (internal/ir/optimizations.go, Name/Description/
// Apply(program) bool) to carry an error return so a pass can report one
// of the three
// recoverable diag.Kinds without the pass manager needing a type switch
// on a panic (SPEC_FULL §7).
package opt

import "decompcore/internal/proc"

// Pass is one optimization over a single procedure. Execute reports
// whether it made progress; internal/passmgr is the only component that
// loops a group of passes to a fixed point - a Pass never re-invokes
// itself.
type Pass interface {
	Name() string
	Execute(p *proc.Procedure) (bool, error)
}
