package diag

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/tliron/commonlog"
)

// Reporter formats Diagnostics with a Rust-like styling
// (internal/errors.ErrorReporter.FormatError), adapted from a
// file/line/column location to a procedure/pass one, and routes
// recoverable kinds through a commonlog logger at verbose level instead
// of failing the build (spec §4.8's pass-manager journal, §7's "Logged at
// verbose level").
type Reporter struct {
	log commonlog.Logger
}

// NewReporter builds a Reporter that logs under the given logger name
// (conventionally "decompcore.passmgr").
func NewReporter(loggerName string) *Reporter {
	return &Reporter{log: commonlog.GetLogger(loggerName)}
}

// Format renders d the way a CompilerError is conventionally rendered: a
// colored "kind[code]: message" header followed by a "--> proc/pass"
// location line and, when present, the offending statement as context.
func (r *Reporter) Format(d *Diagnostic) string {
	var b strings.Builder

	levelColor := r.levelColor(d.Kind)
	bold := color.New(color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	b.WriteString(fmt.Sprintf("%s[%s]: %s\n", levelColor(d.Kind.String()), d.Kind.code(), d.Message))
	b.WriteString(fmt.Sprintf("  %s %s/%s\n", dim("-->"), d.Proc, d.Pass))
	if d.Stmt != "" {
		b.WriteString(fmt.Sprintf("   %s %s\n", dim("│"), bold(d.Stmt)))
	}
	return b.String()
}

func (r *Reporter) levelColor(k Kind) func(...interface{}) string {
	if k.Fatal() {
		return color.New(color.FgRed, color.Bold).SprintFunc()
	}
	return color.New(color.FgYellow, color.Bold).SprintFunc()
}

// Report formats d (via Format), logs it through commonlog - at info
// level for the three recoverable kinds, at error level for the fatal
// ones - and returns the formatted text. Turning a fatal kind into a
// StatusFailed transition is left to the caller (passmgr); Report never
// itself aborts anything.
func (r *Reporter) Report(d *Diagnostic) string {
	msg := r.Format(d)
	if !d.Kind.Fatal() {
		r.log.Infof("%s", msg)
	} else {
		r.log.Errorf("%s", msg)
	}
	return msg
}
