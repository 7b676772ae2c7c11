package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/token"
)

// emitter accumulates output lines at the current indentation. Both
// backends embed it and compose their file headers afterwards.
type emitter struct {
	out    bytes.Buffer
	indent int
}

func (e *emitter) enter() { e.indent++ }
func (e *emitter) leave() { e.indent-- }

func (e *emitter) line(s string) {
	if s != "" {
		e.out.WriteString(strings.Repeat("    ", e.indent))
		e.out.WriteString(s)
	}
	e.out.WriteByte('\n')
}

func (e *emitter) linef(format string, args ...interface{}) {
	e.line(fmt.Sprintf(format, args...))
}

func (e *emitter) blank() { e.out.WriteByte('\n') }

// Operator precedence, higher binds tighter. The translated operator
// set has identical relative precedence in C, Java and C++, so one
// table drives parenthesization for both targets.
const (
	precComma   = 1
	precAssign  = 2
	precTernary = 3
	precUnary   = 14
	precPrimary = 15
)

func opPrec(op token.Type) int {
	switch op {
	case token.Star, token.Slash, token.Rem:
		return 13
	case token.Plus, token.Minus:
		return 12
	case token.Shl, token.Shr:
		return 11
	case token.Lt, token.Gt, token.Lte, token.Gte:
		return 10
	case token.EqEq, token.Neq:
		return 9
	case token.And:
		return 8
	case token.Xor:
		return 7
	case token.Or:
		return 6
	case token.AndAnd:
		return 5
	case token.OrOr:
		return 4
	case token.Comma:
		return precComma
	}
	return precPrimary
}

func wrapIf(s string, prec, parentPrec int) string {
	if prec < parentPrec {
		return "(" + s + ")"
	}
	return s
}

// isCharString reports whether an expression of this type renders as
// the target string type rather than an indexable array.
func isCharString(t *ast.CType) bool {
	if t == nil {
		return false
	}
	return t.IsCharPtr() || t.IsCharArray()
}

func isPointerish(t *ast.CType) bool {
	if t == nil {
		return false
	}
	return t.IsPointer() || t.IsArray()
}

// Literal re-encoding. Token values carry decoded bytes; emission
// escapes them back for the target source.

func escapeStringJava(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '\b':
			sb.WriteString(`\b`)
		case '\f':
			sb.WriteString(`\f`)
		default:
			if r < 0x20 || r > 0x7e {
				fmt.Fprintf(&sb, `\u%04x`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}

func escapeCharJava(v int64) string {
	switch v {
	case '\'':
		return `'\''`
	case '\\':
		return `'\\'`
	case '\n':
		return `'\n'`
	case '\t':
		return `'\t'`
	case '\r':
		return `'\r'`
	case '\b':
		return `'\b'`
	case '\f':
		return `'\f'`
	}
	if v < 0x20 || v > 0x7e {
		return fmt.Sprintf(`'\u%04x'`, v)
	}
	return fmt.Sprintf("'%c'", rune(v))
}

func escapeStringCpp(s string) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '"':
			sb.WriteString(`\"`)
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		default:
			if r < 0x20 || r > 0x7e {
				fmt.Fprintf(&sb, `\%03o`, r)
			} else {
				sb.WriteRune(r)
			}
		}
	}
	return sb.String()
}

func escapeCharCpp(v int64) string {
	switch v {
	case '\'':
		return `'\''`
	case '\\':
		return `'\\'`
	case '\n':
		return `'\n'`
	case '\t':
		return `'\t'`
	case '\r':
		return `'\r'`
	case 0:
		return `'\0'`
	}
	if v < 0x20 || v > 0x7e {
		return fmt.Sprintf(`'\%03o'`, v)
	}
	return fmt.Sprintf("'%c'", rune(v))
}

// commaOperands flattens the comma chains a for clause may carry.
func commaOperands(node *ast.Node) []*ast.Node {
	if node != nil && node.Type == ast.BinaryOp {
		if d := node.Data.(ast.BinaryOpNode); d.Op == token.Comma {
			return append(commaOperands(d.Left), commaOperands(d.Right)...)
		}
	}
	return []*ast.Node{node}
}

// sizeofDivIdiom recognizes sizeof(a) / sizeof(a[0]) applied to an
// array and returns the array expression.
func sizeofDivIdiom(left, right *ast.Node) *ast.Node {
	if left.Type != ast.SizeofExpr || right.Type != ast.SizeofExpr {
		return nil
	}
	ld := left.Data.(ast.SizeofNode)
	rd := right.Data.(ast.SizeofNode)
	if ld.Expr == nil || rd.Expr == nil || rd.Expr.Type != ast.Subscript {
		return nil
	}
	if ld.Expr.Typ == nil || !ld.Expr.Typ.IsArray() {
		return nil
	}
	sub := rd.Expr.Data.(ast.SubscriptNode)
	if ld.Expr.Type == ast.Ident && sub.Array.Type == ast.Ident {
		if ld.Expr.Data.(ast.IdentNode).Name == sub.Array.Data.(ast.IdentNode).Name {
			return ld.Expr
		}
	}
	return nil
}

// Fixed data model sizes behind sizeof on scalar types: ILP32 longs
// would not survive the long target type, so the 64-bit model is
// assumed throughout.
func scalarSize(t *ast.CType) (int64, bool) {
	switch t.Kind {
	case ast.TYPE_BOOL:
		return 1, true
	case ast.TYPE_PRIMITIVE:
		switch t.Name {
		case "char":
			return 1, true
		case "short":
			return 2, true
		case "long":
			return 8, true
		}
		return 4, true
	case ast.TYPE_FLOAT:
		if t.Name == "float" {
			return 4, true
		}
		return 8, true
	case ast.TYPE_ENUM:
		return 4, true
	case ast.TYPE_POINTER:
		return 8, true
	}
	return 0, false
}
