// Package passmgr implements the pass manager of spec.md §4.8: a
// registry of named passes, group execution to a fixed point, and the
// outer re-run loop that restarts SSA construction when indirect-control
// resolution or a later pass invalidates earlier results (spec.md §2's
// "control flows back up as re-run required signals"). Generalized from
// an OptimizationPipeline pattern seen elsewhere (internal/ir/
// optimizations.go, AddPass/Run over a linear pass list) into grouped
// fixed-point iteration with an iteration cap and explicit re-run
// signaling, since spec.md's pipeline is not a single linear sweep.
package passmgr

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"

	"decompcore/internal/diag"
	"decompcore/internal/opt"
	"decompcore/internal/proc"
	"decompcore/internal/settings"
)

// Manager holds the pass registry and the per-procedure verbose journal.
// It is the only component allowed to retry a pass (spec.md §4.8: "the
// manager is the only component that retries passes; individual passes
// never self-loop").
type Manager struct {
	settings settings.Settings
	reporter *diag.Reporter

	mu       deadlock.Mutex
	registry map[string]opt.Pass
	order    []string
	journal  map[string][]string
}

// NewManager builds an empty Manager under s. Callers register passes
// with Register before calling ExecutePass/ExecutePassGroup/RunPipeline.
func NewManager(s settings.Settings) *Manager {
	return &Manager{
		settings: s,
		reporter: diag.NewReporter("decompcore.passmgr"),
		registry: map[string]opt.Pass{},
		journal:  map[string][]string{},
	}
}

// Register adds pass to the registry, keyed by its declared Name(), and
// appends it to DefaultGroup's order. Registering the same name twice
// replaces the earlier pass but does not duplicate it in the order.
func (m *Manager) Register(pass opt.Pass) {
	m.mu.Lock()
	defer m.mu.Unlock()
	name := pass.Name()
	if _, exists := m.registry[name]; !exists {
		m.order = append(m.order, name)
	}
	m.registry[name] = pass
}

// DefaultGroup returns every registered pass's id, in registration order
// - the group ExecutePassGroup is run with when the caller has no
// narrower selection in mind.
func (m *Manager) DefaultGroup() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.order))
	copy(out, m.order)
	return out
}

// ExecutePass runs the single pass named id against p (spec.md §4.8's
// executePass). A recoverable diag.Diagnostic returned by the pass is
// logged through the reporter and swallowed (the pass's own progress flag
// is returned with a nil error); any other error propagates to the caller.
func (m *Manager) ExecutePass(id string, p *proc.Procedure) (bool, error) {
	m.mu.Lock()
	pass, ok := m.registry[id]
	m.mu.Unlock()
	if !ok {
		return false, fmt.Errorf("passmgr: no pass registered with id %q", id)
	}

	changed, err := pass.Execute(p)
	m.log(p, id, changed, err)

	if err != nil {
		if d, ok := err.(*diag.Diagnostic); ok && !d.Kind.Fatal() {
			m.reporter.Report(d)
			return changed, nil
		}
		return changed, err
	}
	return changed, nil
}

// ExecutePassGroup runs ids in order, repeatedly, until one full sweep
// makes no progress (spec.md §4.8's fixed point) or
// Settings.MaxGroupIterations is exceeded, which is a fatal
// diag.KindPassNonConvergence - a non-monotone pass, not a transient
// condition.
func (m *Manager) ExecutePassGroup(ids []string, p *proc.Procedure) error {
	limit := m.settings.MaxGroupIterations
	if limit <= 0 {
		limit = 1
	}
	for iter := 0; iter < limit; iter++ {
		progress := false
		for _, id := range ids {
			changed, err := m.ExecutePass(id, p)
			if err != nil {
				return err
			}
			if changed {
				progress = true
			}
		}
		if !progress {
			return nil
		}
	}

	d := diag.New(diag.KindPassNonConvergence, p.Name, groupLabel(ids),
		fmt.Sprintf("pass group did not converge within %d iterations", limit))
	m.reporter.Report(d)
	return d
}

func groupLabel(ids []string) string {
	if len(ids) == 0 {
		return "passmgr-group"
	}
	label := ids[0]
	for _, id := range ids[1:] {
		label += "+" + id
	}
	return label
}

// Journal returns the verbose log lines recorded for procID so far, in
// the order ExecutePass recorded them (spec.md §4.8's "per-procedure
// journal used for verbose diagnostics").
func (m *Manager) Journal(procID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.journal[procID]))
	copy(out, m.journal[procID])
	return out
}

func (m *Manager) log(p *proc.Procedure, passID string, changed bool, err error) {
	if !m.settings.Verbose {
		return
	}
	line := fmt.Sprintf("%s: changed=%t", passID, changed)
	if err != nil {
		line += fmt.Sprintf(" err=%v", err)
	}
	m.mu.Lock()
	m.journal[p.ProcID()] = append(m.journal[p.ProcID()], line)
	m.mu.Unlock()
}
