package mapping

import (
	"fmt"
	"strings"
)

// FormatSpec is one piece of a scanned format string: a literal run
// (Verb 0) or a conversion specification.
type FormatSpec struct {
	Text string // spec text as written, e.g. "%6.2f"; literal text for runs
	Verb byte   // 'd','f','s','c', ...; 0 for literal runs
	Long bool   // 'l' length modifier was present
}

// IsLiteral reports whether the piece is a literal run.
func (s FormatSpec) IsLiteral() bool { return s.Verb == 0 }

// Plain reports whether the spec carries no flags, width, or precision.
func (s FormatSpec) Plain() bool {
	n := 2
	if s.Long {
		n++
	}
	return len(s.Text) == n
}

// JavaText rewrites a conversion spec into the java.util.Formatter
// dialect: length modifiers dropped, the unsigned verb folded to
// decimal.
func (s FormatSpec) JavaText() string {
	text := strings.ReplaceAll(s.Text, "l", "")
	text = strings.ReplaceAll(text, "h", "")
	switch s.Verb {
	case 'u', 'i':
		text = text[:len(text)-1] + "d"
	}
	return text
}

// ScannerMethod returns the java.util.Scanner read call for a scanf
// conversion, without the receiver.
func ScannerMethod(s FormatSpec) (string, bool) {
	switch s.Verb {
	case 'd', 'i', 'u':
		if s.Long {
			return "nextLong()", true
		}
		return "nextInt()", true
	case 'f', 'e', 'g':
		if s.Long {
			return "nextDouble()", true
		}
		return "nextFloat()", true
	case 's':
		return "next()", true
	case 'c':
		return "next().charAt(0)", true
	}
	return "", false
}

// SplitFormat scans a printf/scanf format string into literal runs and
// conversion specs. It takes the decoded string value, escapes already
// processed; '%%' lands in the literal runs as a single '%'.
func SplitFormat(format string) ([]FormatSpec, error) {
	var parts []FormatSpec
	var lit strings.Builder
	flush := func() {
		if lit.Len() > 0 {
			parts = append(parts, FormatSpec{Text: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(format); i++ {
		c := format[i]
		if c != '%' {
			lit.WriteByte(c)
			continue
		}
		if i+1 < len(format) && format[i+1] == '%' {
			lit.WriteByte('%')
			i++
			continue
		}

		start := i
		i++
		for i < len(format) && strings.IndexByte("-+ 0#", format[i]) >= 0 {
			i++
		}
		for i < len(format) && format[i] >= '0' && format[i] <= '9' {
			i++
		}
		if i < len(format) && format[i] == '.' {
			i++
			for i < len(format) && format[i] >= '0' && format[i] <= '9' {
				i++
			}
		}
		long := false
		for i < len(format) && (format[i] == 'l' || format[i] == 'h') {
			long = long || format[i] == 'l'
			i++
		}
		if i >= len(format) {
			return nil, fmt.Errorf("format string ends inside a conversion")
		}
		verb := format[i]
		switch verb {
		case 'd', 'i', 'u', 'x', 'X', 'o', 'f', 'e', 'g', 's', 'c':
		default:
			return nil, fmt.Errorf("unsupported format specifier '%s'", format[start:i+1])
		}
		flush()
		parts = append(parts, FormatSpec{Text: format[start : i+1], Verb: verb, Long: long})
	}
	flush()
	return parts, nil
}

// Verbs returns only the conversion specs of a scanned format.
func Verbs(parts []FormatSpec) []FormatSpec {
	var specs []FormatSpec
	for _, p := range parts {
		if !p.IsLiteral() {
			specs = append(specs, p)
		}
	}
	return specs
}
