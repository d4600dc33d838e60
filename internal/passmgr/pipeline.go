package passmgr

import (
	"fmt"

	"decompcore/internal/diag"
	"decompcore/internal/frag"
	"decompcore/internal/proc"
	"decompcore/internal/ssabuild"
	"decompcore/internal/ssadestroy"
)

// IndirectResolver is the subset of internal/indirect.Resolver's behavior
// RunPipeline's outer loop needs - declared here rather than imported so
// a procedure with no indirect control can run the pipeline with a nil
// resolver, and so tests can substitute a stub without constructing a
// full internal/indirect.Resolver. *indirect.Resolver satisfies this
// interface automatically.
type IndirectResolver interface {
	DecodeIndirectJmp(cfg *frag.CFG, f *frag.Fragment) (bool, error)
}

// RunPipeline drives one procedure through the full dependency order of
// spec.md §2: SSA construction, the registered optimization group to a
// fixed point, indirect-control resolution, and SSA destruction - with
// an outer loop that restarts from SSA construction whenever indirect
// resolution reports a structural change (spec.md §4.6 step 4, §2's "re-
// run required" signal).
//
// Indirect resolution may add fragments holding freshly-decoded,
// unsubscripted statements alongside a CFG whose existing fragments are
// already in SSA or destructed form; rather than special-case a
// partially-SSA graph, a re-run first runs ssadestroy.Destroy (flattening
// everything back to plain locations, a no-op rename-wise for fragments
// untouched since the last destruction) and then re-enters
// ssabuild.Build over the whole, now-larger CFG. This is an explicit
// design decision for an ordering spec.md leaves implicit, not a
// deviation from it.
func (m *Manager) RunPipeline(p *proc.Procedure, resolver IndirectResolver) error {
	p.SetStatus(proc.StatusVisited)

	limit := m.settings.MaxOuterIterations
	if limit <= 0 {
		limit = 1
	}

	for outer := 0; outer < limit; outer++ {
		ssabuild.Build(p.CFG)

		group := m.DefaultGroup()
		if len(group) > 0 {
			if err := m.ExecutePassGroup(group, p); err != nil {
				p.SetStatus(proc.StatusFailed)
				return err
			}
		}

		rerun, err := m.resolveIndirect(p, resolver)
		if err != nil {
			p.SetStatus(proc.StatusFailed)
			return err
		}

		if err := ssadestroy.Destroy(p); err != nil {
			p.SetStatus(proc.StatusFailed)
			return err
		}

		if !rerun {
			p.SetStatus(proc.StatusFinalDone)
			return nil
		}

		p.SetStatus(proc.StatusEarlyDone)
	}

	d := diag.New(diag.KindPassNonConvergence, p.Name, "passmgr-outer",
		fmt.Sprintf("indirect-control resolution kept signaling re-run past %d outer iterations", limit))
	m.reporter.Report(d)
	p.SetStatus(proc.StatusFailed)
	return d
}

// resolveIndirect drives indirect-control resolution over every fragment
// of p's CFG (spec.md §4.6), aggregating "needs re-decompile" across all
// of them - a single resolved switch elsewhere in the procedure must not
// mask another fragment's structural change.
func (m *Manager) resolveIndirect(p *proc.Procedure, resolver IndirectResolver) (bool, error) {
	if resolver == nil {
		return false, nil
	}

	anyRerun := false
	for _, f := range snapshotFragments(p.CFG) {
		rerun, err := resolver.DecodeIndirectJmp(p.CFG, f)
		if err != nil {
			if d, ok := err.(*diag.Diagnostic); ok && !d.Kind.Fatal() {
				m.reporter.Report(d)
				continue
			}
			return anyRerun, err
		}
		if rerun {
			anyRerun = true
		}
	}
	m.log(p, "indirect-resolution", anyRerun, nil)
	return anyRerun, nil
}

// snapshotFragments copies cfg's fragment list before resolution begins
// mutating it (installing new fragments for newly discovered switch
// targets) so the iteration order stays well-defined regardless of what
// resolution appends to the CFG's own slice.
func snapshotFragments(cfg *frag.CFG) []*frag.Fragment {
	frags := cfg.Fragments()
	out := make([]*frag.Fragment, len(frags))
	copy(out, frags)
	return out
}
