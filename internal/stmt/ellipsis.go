package stmt

import "decompcore/internal/dtype"

// formatSpec pairs the argument type a conversion character synthesizes
// for the printf family with the type it synthesizes for the scanf
// family (spec §6's "Variadic format specification"). The families are
// independent per specifier, not merely "scanf = pointer-to-printf": the
// float conversions narrow to float32 for scanf (the actual pointee
// width) while printf widens them to float64 (default argument
// promotion), so both columns are listed explicitly rather than derived.
type formatSpec struct {
	printf dtype.Type
	scanf  dtype.Type
}

var formatSpecTable = map[byte]formatSpec{
	'd': {dtype.I32, dtype.PointerTo(dtype.I32)},
	'i': {dtype.I32, dtype.PointerTo(dtype.I32)},
	'u': {dtype.U32, dtype.PointerTo(dtype.U32)},
	'o': {dtype.U32, dtype.PointerTo(dtype.U32)},
	'x': {dtype.U32, dtype.PointerTo(dtype.U32)},
	'X': {dtype.U32, dtype.PointerTo(dtype.U32)},
	'f': {dtype.F64, dtype.PointerTo(dtype.F32)},
	'F': {dtype.F64, dtype.PointerTo(dtype.F32)},
	'e': {dtype.F64, dtype.PointerTo(dtype.F32)},
	'E': {dtype.F64, dtype.PointerTo(dtype.F32)},
	'g': {dtype.F64, dtype.PointerTo(dtype.F32)},
	'G': {dtype.F64, dtype.PointerTo(dtype.F32)},
	'a': {dtype.F64, dtype.PointerTo(dtype.F32)},
	'A': {dtype.F64, dtype.PointerTo(dtype.F32)},
	'c': {dtype.CharT, dtype.PointerTo(dtype.CharT)},
	's': {dtype.PointerTo(dtype.CharT), dtype.PointerTo(dtype.PointerTo(dtype.CharT))},
	'p': {dtype.PointerTo(dtype.VoidT), dtype.PointerTo(dtype.PointerTo(dtype.VoidT))},
}

// scanFormatSpecifiers walks a printf/scanf-style format string and
// returns, in order, the type each recognized conversion synthesizes for
// the given family. "%%" and unrecognized conversion characters consume
// no argument.
func scanFormatSpecifiers(format string, family func(formatSpec) dtype.Type) []dtype.Type {
	var out []dtype.Type
	i := 0
	for i < len(format) {
		if format[i] != '%' {
			i++
			continue
		}
		i++
		if i >= len(format) {
			break
		}
		if format[i] == '%' {
			i++
			continue
		}
		for i < len(format) && isFlagOrWidth(format[i]) {
			i++
		}
		if i >= len(format) {
			break
		}
		c := format[i]
		i++
		if spec, ok := formatSpecTable[c]; ok {
			out = append(out, family(spec))
		}
	}
	return out
}

func isFlagOrWidth(c byte) bool {
	switch {
	case c >= '0' && c <= '9':
		return true
	case c == '-' || c == '+' || c == ' ' || c == '#' || c == '.':
		return true
	}
	return false
}

func printfType(s formatSpec) dtype.Type { return s.printf }
func scanfType(s formatSpec) dtype.Type  { return s.scanf }
