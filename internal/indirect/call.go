package indirect

import "decompcore/internal/stmt"

// analyzeCompCall attempts to resolve a computed call to a direct one via
// stmt.Call.TryConvertToDirect, mirroring analyzeCompCall: "if the
// destination expression simplifies to a constant address with a known
// procedure, convert to direct call and invalidate the call's
// signature/arguments for re-inference. Otherwise leave computed and
// fall back on conservative dataflow" (spec.md §4.6). Reports whether the
// call was converted - a converted call's arguments are stale and must
// be re-inferred by the pass manager's next sweep through internal/opt,
// never patched up here.
func (r *Resolver) analyzeCompCall(call *stmt.Call) (bool, error) {
	if !call.IsComputed() || r.Lookup == nil {
		return false, nil
	}
	converted := call.TryConvertToDirect(r.Lookup)
	if converted {
		call.Args = nil
		call.Defs = nil
	}
	return converted, nil
}
