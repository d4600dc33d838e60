// Package proc models a procedure and the program it belongs to: the CFG
// owner, its calling-convention signature, and the cross-procedure state
// (a call graph, a procedure table) the pass manager and the
// inter-procedural preservation fixed point need (spec.md §3, §5;
// SPEC_FULL §4.9). It generalizes a Program/Function aggregate seen
// elsewhere (internal/ir/types.go) from a flat function list into a call
// graph with explicit per-procedure status.
package proc

import (
	"fmt"

	"github.com/sasha-s/go-deadlock"
	"github.com/segmentio/ksuid"

	"decompcore/internal/dtype"
	"decompcore/internal/expr"
	"decompcore/internal/frag"
)

// Status is a procedure's position in the decompilation pipeline
// (SPEC_FULL §4.9, supplementing spec.md §3's "status" field with the
// explicit intermediate resting state cyclic call graphs require).
type Status int

const (
	StatusUndecoded Status = iota
	StatusDecoded
	StatusVisited
	StatusEarlyDone
	StatusFinalDone
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusUndecoded:
		return "undecoded"
	case StatusDecoded:
		return "decoded"
	case StatusVisited:
		return "visited"
	case StatusEarlyDone:
		return "early-done"
	case StatusFinalDone:
		return "final-done"
	case StatusFailed:
		return "failed"
	default:
		return "?"
	}
}

// CallingConvention names the register/stack assignment rule a
// signature's parameters and returns are laid out under (spec.md §6's
// "signature database contract").
type CallingConvention int

const (
	ConvCdecl CallingConvention = iota
	ConvStdcall
	ConvFastcall
)

// Signature is a procedure's calling-convention contract: parameter
// types in order, return type, the locations proven preserved across a
// call to it, and whether it is variadic.
type Signature struct {
	Convention  CallingConvention
	Params      []dtype.Type
	Return      dtype.Type
	Preserved   []string // location keys proven unchanged across a call
	HasEllipsis bool
}

// Procedure owns one CFG plus the metadata spec.md §3 lists: an ordered
// parameter list, a return-locations list, a symbol map, a signature, a
// status, and caller/callee sets. It implements stmt.ProcRef so a Call
// can name it as a destination.
type Procedure struct {
	id   string
	Name string
	CFG  *frag.CFG

	Params    []*expr.Location
	Returns   []*expr.Location

	// SymbolMap records the final local/parameter name chosen for a
	// storage location by internal/ssadestroy. Keys are mixed by design:
	// a subscripted expr.SubscriptRef.String() ("r[2]{16}") when distinct
	// SSA versions of the same base location needed distinct names
	// (spec.md §4.7's "the same base location may require different
	// names at different points"), or a bare expr.Location.String() when
	// the whole procedure only ever needed one name for that location.
	// Populated once, by Destroy; empty before destruction has run.
	SymbolMap map[string]string

	Signature Signature
	status    Status

	Callers []*Procedure
	Callees []*Procedure
}

// NewProcedure creates an empty procedure over cfg.
func NewProcedure(name string, cfg *frag.CFG) *Procedure {
	return &Procedure{
		id:        ksuid.New().String(),
		Name:      name,
		CFG:       cfg,
		SymbolMap: map[string]string{},
	}
}

func (p *Procedure) ProcID() string   { return p.id }
func (p *Procedure) ProcName() string { return p.Name }

// HasDefines reports whether this procedure has produced a returns list
// yet - stmt.Call.IsChildless's "destination procedure not yet analyzed".
func (p *Procedure) HasDefines() bool { return len(p.Returns) > 0 }

func (p *Procedure) Status() Status { return p.status }

// SetStatus transitions the procedure's status. It does not itself
// enforce the forward-only ordering of SPEC_FULL §4.9 - StatusFailed is
// reachable from any state, and the pass manager is the component that
// actually drives the rest of the sequence - but it is the single place
// that mutation happens, for auditability.
func (p *Procedure) SetStatus(s Status) { p.status = s }

// AddCallee (with its unexported counterpart addCaller) maintains the
// bidirectional call-graph edges; a caller is only recorded once.
func (p *Procedure) AddCallee(callee *Procedure) {
	for _, c := range p.Callees {
		if c == callee {
			return
		}
	}
	p.Callees = append(p.Callees, callee)
	callee.addCaller(p)
}

func (p *Procedure) addCaller(caller *Procedure) {
	for _, c := range p.Callers {
		if c == caller {
			return
		}
	}
	p.Callers = append(p.Callers, caller)
}

func (p *Procedure) String() string {
	return fmt.Sprintf("%s [%s] (%d params, %d returns)", p.Name, p.status, len(p.Params), len(p.Returns))
}

// Program is the set of procedures plus library-procedure stubs
// (signatures only, no body - spec.md §3's "Program").
type Program struct {
	Procedures []*Procedure
	Stubs      map[string]Signature
}

func NewProgram() *Program {
	return &Program{Stubs: map[string]Signature{}}
}

func (pr *Program) AddProcedure(p *Procedure) { pr.Procedures = append(pr.Procedures, p) }

// ProgramTable is the program-level procedure table named in spec.md §5
// as cross-procedure mutable state: every procedure's current status,
// looked up by the outer parallel orchestrator and by
// internal/indirect's computed-call resolution (`lookup(addr) (ProcRef,
// bool)`). Guarded by a deadlock-detecting mutex rather than a bare
// sync.RWMutex so that caller/callee fixed-point iteration run from many
// goroutines surfaces a lock-order bug as a panic instead of a hang
// (SPEC_FULL §2.2, §5).
type ProgramTable struct {
	mu    deadlock.RWMutex
	byID  map[string]*Procedure
	byAddr map[int64]*Procedure
}

func NewProgramTable() *ProgramTable {
	return &ProgramTable{byID: map[string]*Procedure{}, byAddr: map[int64]*Procedure{}}
}

// Register records p in the table, addressable both by its ksuid and by
// its entry address (for computed-call resolution's constant-address
// lookup).
func (t *ProgramTable) Register(p *Procedure, addr int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.byID[p.ProcID()] = p
	t.byAddr[addr] = p
}

func (t *ProgramTable) Lookup(id string) (*Procedure, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byID[id]
	return p, ok
}

// LookupAddr resolves the procedure whose entry address is addr,
// returning it as the stmt.ProcRef a computed call's
// TryConvertToDirect needs.
func (t *ProgramTable) LookupAddr(addr int64) (*Procedure, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byAddr[addr]
	return p, ok
}

// Status reads p's status under the table's lock - pass-manager worker
// goroutines call this instead of reading Procedure.status directly so a
// concurrent SetStatus from another worker (on a caller/callee fixed
// point) is never a data race.
func (t *ProgramTable) Status(id string) (Status, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.byID[id]
	if !ok {
		return StatusUndecoded, false
	}
	return p.status, true
}

// SetStatus updates p's status under the table's lock.
func (t *ProgramTable) SetStatus(id string, s Status) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if p, ok := t.byID[id]; ok {
		p.status = s
	}
}
