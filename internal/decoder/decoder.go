// Package decoder names the two upstream contracts spec.md §6 places
// outside this core: the instruction decoder and the signature database.
// Machine-code parsing and binary-format handling are explicit non-goals
// of spec.md §1 - this package holds interfaces only, so that
// internal/indirect's switch recovery and internal/opt's parameter
// inference can be written against a stable boundary without this module
// ever implementing a disassembler.
package decoder

import "decompcore/internal/proc"

// Address is a target-machine code address, the unit decodeAt and the
// switch-table reader operate on.
type Address int64

// Stmt is the minimal shape of one decoded IR operation an RTL holds.
// internal/indirect only needs to know that decoding produced *something*
// at an address and hand it to a caller-supplied installer; it never
// inspects the statement's fields itself.
type Stmt interface {
	String() string
}

// RTL is an ordered group of statements sharing one source address (spec
// §3's "RTL"), the unit decodeAt returns one or more of per call.
type RTL struct {
	SourceAddress Address
	Stmts         []Stmt
}

// Decoder is the upstream decoder contract of spec.md §6: "decodeAt(address)
// -> list<RTL> | notCode". The decoder is idempotent per address; callers
// (internal/indirect) call DecodeAt at most once per address unless the
// CFG is explicitly invalidated.
type Decoder interface {
	// DecodeAt decodes the instruction(s) at addr into one or more RTLs.
	// ok is false when addr does not land on a valid instruction boundary
	// ("notCode" in spec.md §6) - internal/indirect treats that as an
	// upstream decode failure (diag.KindUpstreamDecodeFailure), not a
	// panic.
	DecodeAt(addr Address) (rtls []RTL, ok bool, err error)
}

// ImageReader reads raw bytes from the loaded program image, the contract
// switch-table recovery needs to read jump-table entries (spec.md §4.6
// step 2: "compute the target address by reading the table from the
// program image").
type ImageReader interface {
	// ReadWord reads one machine-word-sized (platform pointer width)
	// value at addr, big/little-endianness and width resolved by the
	// implementation (outside this core's scope - spec.md §1).
	ReadWord(addr Address) (int64, bool)
	// Contains reports whether addr lies within a mapped, executable
	// segment - used to reject a switch-table decode target landing
	// outside the text segment (spec.md §4.6 failure modes).
	Contains(addr Address) bool
}

// Signature is the parameter/return/preservation/calling-convention tuple
// the signature database returns for a named library procedure (spec.md
// §6's "signature database contract").
type Signature = proc.Signature

// SignatureDB is the upstream signature-database contract of spec.md §6:
// "for a library procedure name, returns (parameters, returns, preserved,
// calling-convention, hasEllipsis)".
type SignatureDB interface {
	Lookup(name string) (Signature, bool)
}
