// Package diag implements the five error kinds of spec §7 as structured
// diagnostics, generalized from an internal/errors-style package
// (CompilerError/ErrorLevel/numbered codes/*ErrorReporter) built for
// source-position diagnostics to procedure/pass-scoped pipeline
// diagnostics. Formatting keeps that package's Rust-style caret-header
// look (github.com/fatih/color) even though there is no source text to
// underline here - the "location line" names the procedure and pass
// instead of a file:line:column.
package diag

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind enumerates the five error kinds of spec §7.
type Kind int

const (
	// KindInvariantViolation is a broken def-use, φ-arity or numbering
	// invariant - a bug. The procedure aborts and is marked StatusFailed.
	KindInvariantViolation Kind = iota
	// KindUnresolvedIndirectControl is recoverable: the fragment stays
	// indirect and downstream code emits a dispatch stub.
	KindUnresolvedIndirectControl
	// KindPassNonConvergence is fatal for the procedure: an iteration cap
	// was exceeded in a pass group.
	KindPassNonConvergence
	// KindUpstreamDecodeFailure is a switch-recovery target outside known
	// code; treated as unresolved, reported as a warning, never aborts.
	KindUpstreamDecodeFailure
	// KindTypeConflictUnresolvable falls back to dtype.Void and inserts
	// casts; never aborts.
	KindTypeConflictUnresolvable
)

// code mirrors an "E0001"-style numbered-code convention (codes.go),
// scoped down to this pipeline's five kinds.
func (k Kind) code() string {
	switch k {
	case KindInvariantViolation:
		return "D001"
	case KindUnresolvedIndirectControl:
		return "D002"
	case KindPassNonConvergence:
		return "D003"
	case KindUpstreamDecodeFailure:
		return "D004"
	case KindTypeConflictUnresolvable:
		return "D005"
	default:
		return "D000"
	}
}

func (k Kind) String() string {
	switch k {
	case KindInvariantViolation:
		return "invariant violation"
	case KindUnresolvedIndirectControl:
		return "unresolved indirect control"
	case KindPassNonConvergence:
		return "pass non-convergence"
	case KindUpstreamDecodeFailure:
		return "upstream decode failure"
	case KindTypeConflictUnresolvable:
		return "unresolvable type conflict"
	default:
		return "unknown"
	}
}

// Fatal reports whether this kind aborts the owning procedure (spec §7's
// propagation policy): invariant violations and pass non-convergence are
// fatal; the other three are recoverable.
func (k Kind) Fatal() bool {
	return k == KindInvariantViolation || k == KindPassNonConvergence
}

// Diagnostic is a single structured error surfaced by a pass. Proc and
// Pass name where it was raised; Stmt is an optional statement/fragment
// context string (e.g. a statement's String()) shown as the "source
// line" in FormatError.
type Diagnostic struct {
	Kind    Kind
	Proc    string
	Pass    string
	Message string
	Stmt    string
	cause   error
}

// New builds a Diagnostic. Invariant violations capture a stack trace at
// the point of detection via github.com/pkg/errors, the way a compiler
// bug report needs one to be debuggable after the fact; every other kind
// gets no cause here (Wrap gives them a plain fmt.Errorf-wrapped one).
func New(kind Kind, proc, pass, message string) *Diagnostic {
	d := &Diagnostic{Kind: kind, Proc: proc, Pass: pass, Message: message}
	if kind == KindInvariantViolation {
		d.cause = errors.New(message)
	}
	return d
}

// Wrap is New, additionally recording cause as the wrapped error so
// errors.Is/errors.As see through to it.
func Wrap(kind Kind, proc, pass, message string, cause error) *Diagnostic {
	d := New(kind, proc, pass, message)
	if kind == KindInvariantViolation {
		d.cause = errors.Wrap(cause, message)
	} else {
		d.cause = fmt.Errorf("%s: %w", message, cause)
	}
	return d
}

func (d *Diagnostic) Error() string {
	if d.Proc != "" {
		return fmt.Sprintf("%s[%s] in %s/%s: %s", d.Kind, d.Kind.code(), d.Proc, d.Pass, d.Message)
	}
	return fmt.Sprintf("%s[%s]: %s", d.Kind, d.Kind.code(), d.Message)
}

func (d *Diagnostic) Unwrap() error { return d.cause }

// StackTrace exposes the captured stack, when one was captured (invariant
// violations only), for callers that want to log it verbosely.
func (d *Diagnostic) StackTrace() errors.StackTrace {
	type stackTracer interface{ StackTrace() errors.StackTrace }
	if st, ok := d.cause.(stackTracer); ok {
		return st.StackTrace()
	}
	return nil
}
