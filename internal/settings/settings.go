// Package settings replaces the original decompiler's process-wide
// settings singleton (spec.md §9 design note) with an explicit,
// immutable value threaded through internal/passmgr and everything it
// calls. Nothing in this module reads a package-level mutable global for
// pipeline behavior; a Settings value is constructed once by the caller
// (cmd/decompcore, or a test) and passed down.
package settings

import "decompcore/internal/proc"

// Settings is the full set of externally-tunable knobs the pass manager
// and the passes it drives consult. The zero value is not Default(): its
// iteration caps are 0 (treated as 1) and PreserveComputedLatch is false.
type Settings struct {
	// CallingConvention is used by parameter/return inference
	// (internal/opt) to pick the scratch-register table and parameter
	// ordering rule.
	CallingConvention proc.CallingConvention

	// MaxGroupIterations caps a pass group's fixed-point sweep
	// (spec.md §4.8); exceeding it is a diag.KindPassNonConvergence
	// fatal error rather than an infinite loop.
	MaxGroupIterations int

	// MaxOuterIterations caps the pass manager's outer "re-run
	// required" loop (spec.md §2's "re-run signals" / §4.6's switch
	// recovery invalidation), distinct from a single group's inner
	// fixed point.
	MaxOuterIterations int

	// Verbose enables the per-procedure pass journal (spec.md §4.8),
	// kept in memory by internal/passmgr and read back through
	// Manager.Journal.
	Verbose bool

	// PreserveComputedLatch keeps stmt.Call.IsComputed sticky even
	// after TryConvertToDirect resolves the destination (spec.md §9
	// Open Question 1). Nothing in this module reads the field:
	// stmt.Call keeps the latch sticky whatever its value, and Default()
	// sets it to true to match that behavior.
	PreserveComputedLatch bool
}

// Default returns the settings this module ships with: cdecl calling
// convention, generous but finite iteration caps, verbose logging off,
// and the computed-call latch preserved per spec.md §9.
func Default() Settings {
	return Settings{
		CallingConvention:     proc.ConvCdecl,
		MaxGroupIterations:    64,
		MaxOuterIterations:    16,
		Verbose:               false,
		PreserveComputedLatch: true,
	}
}
