package codegen

import (
	"strconv"
	"strings"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/mapping"
	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

func (b *javaBackend) expr(node *ast.Node) (string, error) {
	return b.exprP(node, 0)
}

// exprP renders an expression, parenthesizing it when its precedence
// is too weak for the surrounding context, and applies any implicit
// conversion the resolver recorded.
func (b *javaBackend) exprP(node *ast.Node, parentPrec int) (string, error) {
	s, prec, err := b.exprRaw(node)
	if err != nil {
		return "", err
	}
	if node.Narrowed != nil {
		s, prec = b.narrow(node, s, prec)
	} else if b.boolCall(node) {
		// A library predicate came back boolean; in value position it
		// has to turn back into the 0/1 the source arithmetic expects.
		s, prec = "("+s+" ? 1 : 0)", precPrimary
	}
	return wrapIf(s, prec, parentPrec), nil
}

func (b *javaBackend) narrow(node *ast.Node, s string, prec int) (string, int) {
	t := node.Narrowed
	boolShape := b.isBoolShape(node)
	if t.Kind == ast.TYPE_BOOL {
		if boolShape {
			return s, prec
		}
		return wrapIf(s, prec, 10) + " != 0", 9
	}
	if boolShape {
		return "(" + s + " ? 1 : 0)", precPrimary
	}
	if node.Type == ast.FloatNumber && t.Kind == ast.TYPE_FLOAT && t.Name == "float" {
		return s + "f", precPrimary
	}
	ts, err := mapping.TypeName(t, b.cfg.Target)
	if err != nil {
		return s, prec
	}
	return "(" + ts + ") " + wrapIf(s, prec, precUnary), precUnary
}

// isBoolShape reports whether the node renders as a Java boolean.
func (b *javaBackend) isBoolShape(node *ast.Node) bool {
	if node.Typ != nil && node.Typ.Kind == ast.TYPE_BOOL {
		return true
	}
	return b.boolCall(node)
}

// boolCall reports whether the node is a mapped call whose Java
// emission is boolean-valued despite the int-returning source type.
func (b *javaBackend) boolCall(node *ast.Node) bool {
	if node.Type != ast.FuncCall {
		return false
	}
	d := node.Data.(ast.FuncCallNode)
	if d.FuncExpr.Type != ast.Ident {
		return false
	}
	name := d.FuncExpr.Data.(ast.IdentNode).Name
	if b.userFuncs[name] {
		return false
	}
	desc, ok := mapping.Lookup(name)
	return ok && desc.Java != nil && desc.Java.Bool
}

func (b *javaBackend) exprRaw(node *ast.Node) (string, int, error) {
	switch node.Type {
	case ast.Number:
		return b.numberText(node), precPrimary, nil

	case ast.FloatNumber:
		d := node.Data.(ast.FloatNumberNode)
		if d.Text == "" {
			return strconv.FormatFloat(d.Value, 'g', -1, 64), precPrimary, nil
		}
		return d.Text, precPrimary, nil

	case ast.CharLit:
		return escapeCharJava(node.Data.(ast.CharNode).Value), precPrimary, nil

	case ast.String:
		return `"` + escapeStringJava(node.Data.(ast.StringNode).Value) + `"`, precPrimary, nil

	case ast.Ident:
		return node.Data.(ast.IdentNode).Name, precPrimary, nil

	case ast.Assign:
		return b.assignExpr(node)

	case ast.BinaryOp:
		return b.binaryExpr(node)

	case ast.UnaryOp:
		return b.unaryExpr(node)

	case ast.PostfixOp:
		d := node.Data.(ast.PostfixOpNode)
		if isPointerish(d.Expr.Typ) || isCharString(d.Expr.Typ) {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "pointer arithmetic has no translation")
		}
		s, err := b.exprP(d.Expr, precPrimary)
		if err != nil {
			return "", 0, err
		}
		if err := b.checkCharStore(d.Expr); err != nil {
			return "", 0, err
		}
		return s + d.Op.String(), precPrimary, nil

	case ast.FuncCall:
		return b.call(node, false)

	case ast.Ternary:
		d := node.Data.(ast.TernaryNode)
		c, err := b.condP(d.Cond, precTernary+1)
		if err != nil {
			return "", 0, err
		}
		t, err := b.exprP(d.ThenExpr, precTernary)
		if err != nil {
			return "", 0, err
		}
		e, err := b.exprP(d.ElseExpr, precTernary)
		if err != nil {
			return "", 0, err
		}
		return c + " ? " + t + " : " + e, precTernary, nil

	case ast.Subscript:
		d := node.Data.(ast.SubscriptNode)
		arr, err := b.exprP(d.Array, precPrimary)
		if err != nil {
			return "", 0, err
		}
		idx, err := b.expr(d.Index)
		if err != nil {
			return "", 0, err
		}
		if isCharString(d.Array.Typ) {
			return arr + ".charAt(" + idx + ")", precPrimary, nil
		}
		return arr + "[" + idx + "]", precPrimary, nil

	case ast.MemberAccess:
		d := node.Data.(ast.MemberAccessNode)
		obj := d.Expr
		// A dereferenced struct pointer is already the object reference.
		if obj.Type == ast.UnaryOp {
			if u := obj.Data.(ast.UnaryOpNode); u.Op == token.Star {
				obj = u.Expr
			}
		}
		base, err := b.exprP(obj, precPrimary)
		if err != nil {
			return "", 0, err
		}
		return base + "." + d.Member.Data.(ast.IdentNode).Name, precPrimary, nil

	case ast.TypeCast:
		return b.castExpr(node)

	case ast.SizeofExpr:
		return b.sizeofExpr(node)
	}
	return "", 0, util.NewUnsupportedConstructError(node.Tok, "construct has no translation")
}

// numberText normalizes an integer literal for Java: unsigned
// suffixes dropped, the long suffix upper-cased or supplied when the
// value demands it.
func (b *javaBackend) numberText(node *ast.Node) string {
	switch node.Tok.Type {
	case token.True:
		return "true"
	case token.False:
		return "false"
	case token.Null:
		return "null"
	}
	d := node.Data.(ast.NumberNode)
	text := d.Text
	if text == "" {
		text = strconv.FormatInt(d.Value, 10)
	}
	text = strings.Map(func(r rune) rune {
		switch r {
		case 'u', 'U':
			return -1
		case 'l':
			return 'L'
		}
		return r
	}, text)
	if node.Typ != nil && node.Typ.Kind == ast.TYPE_PRIMITIVE && node.Typ.Name == "long" && !strings.ContainsRune(text, 'L') {
		text += "L"
	}
	return text
}

// checkCharStore rejects writes into string characters, which the
// immutable Java string cannot express.
func (b *javaBackend) checkCharStore(lhs *ast.Node) error {
	switch lhs.Type {
	case ast.Subscript:
		if isCharString(lhs.Data.(ast.SubscriptNode).Array.Typ) {
			return util.NewUnsupportedConstructError(lhs.Tok, "cannot assign into a string character")
		}
	case ast.UnaryOp:
		d := lhs.Data.(ast.UnaryOpNode)
		if d.Op == token.Star && isCharString(d.Expr.Typ) {
			return util.NewUnsupportedConstructError(lhs.Tok, "cannot assign into a string character")
		}
	}
	return nil
}

func (b *javaBackend) assignExpr(node *ast.Node) (string, int, error) {
	d := node.Data.(ast.AssignNode)
	if d.Op != token.Eq && (isPointerish(d.Lhs.Typ) || isCharString(d.Lhs.Typ)) {
		return "", 0, util.NewUnsupportedConstructError(node.Tok, "pointer arithmetic has no translation")
	}
	if err := b.checkCharStore(d.Lhs); err != nil {
		return "", 0, err
	}
	lhs, err := b.exprP(d.Lhs, precTernary)
	if err != nil {
		return "", 0, err
	}
	rhs, err := b.exprP(d.Rhs, precAssign)
	if err != nil {
		return "", 0, err
	}
	return lhs + " " + d.Op.String() + " " + rhs, precAssign, nil
}

func (b *javaBackend) binaryExpr(node *ast.Node) (string, int, error) {
	d := node.Data.(ast.BinaryOpNode)
	p := opPrec(d.Op)

	switch d.Op {
	case token.Comma:
		return "", 0, util.NewUnsupportedConstructError(node.Tok, "comma expression outside a for clause")
	case token.AndAnd, token.OrOr:
		l, err := b.condP(d.Left, p)
		if err != nil {
			return "", 0, err
		}
		r, err := b.condP(d.Right, p+1)
		if err != nil {
			return "", 0, err
		}
		return l + " " + d.Op.String() + " " + r, p, nil
	case token.Slash:
		if arr := sizeofDivIdiom(d.Left, d.Right); arr != nil {
			s, err := b.exprP(arr, precPrimary)
			if err != nil {
				return "", 0, err
			}
			return s + ".length", precPrimary, nil
		}
	case token.Plus, token.Minus:
		if isPointerish(d.Left.Typ) || isPointerish(d.Right.Typ) {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "pointer arithmetic has no translation")
		}
	case token.Lt, token.Gt, token.Gte, token.Lte:
		if isPointerish(d.Left.Typ) || isPointerish(d.Right.Typ) {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "pointer comparison has no translation")
		}
	case token.EqEq, token.Neq:
		if s, prec, ok, err := b.nullCompare(d, p); ok {
			return s, prec, err
		}
	}

	l, err := b.exprP(d.Left, p)
	if err != nil {
		return "", 0, err
	}
	r, err := b.exprP(d.Right, p+1)
	if err != nil {
		return "", 0, err
	}
	return l + " " + d.Op.String() + " " + r, p, nil
}

// nullCompare rewrites equality tests against a literal zero or NULL: a
// boolean-emitting library call folds to the boolean itself, and a zero
// compared with a reference reads as null.
func (b *javaBackend) nullCompare(d ast.BinaryOpNode, p int) (string, int, bool, error) {
	expr, null := d.Left, d.Right
	if isNullConst(expr) {
		expr, null = d.Right, d.Left
	}
	if !isNullConst(null) {
		return "", 0, false, nil
	}
	if b.boolCall(expr) {
		s, prec, err := b.call(expr, false)
		if err != nil {
			return "", 0, true, err
		}
		if d.Op == token.EqEq {
			return "!" + wrapIf(s, prec, precUnary), precUnary, true, nil
		}
		return s, prec, true, nil
	}
	if !isPointerish(expr.Typ) && !isCharString(expr.Typ) {
		return "", 0, false, nil
	}
	s, err := b.exprP(expr, p)
	if err != nil {
		return "", 0, true, err
	}
	return s + " " + d.Op.String() + " null", p, true, nil
}

func isNullConst(n *ast.Node) bool {
	if n.Type != ast.Number {
		return false
	}
	if n.Tok.Type == token.Null {
		return true
	}
	return n.Tok.Type != token.True && n.Tok.Type != token.False && n.Data.(ast.NumberNode).Value == 0
}

func (b *javaBackend) unaryExpr(node *ast.Node) (string, int, error) {
	d := node.Data.(ast.UnaryOpNode)
	switch d.Op {
	case token.Minus, token.Plus, token.Complement:
		s, err := b.exprP(d.Expr, precUnary)
		if err != nil {
			return "", 0, err
		}
		return d.Op.String() + s, precUnary, nil

	case token.Not:
		switch {
		case b.isBoolShape(d.Expr):
			s, err := b.condP(d.Expr, precUnary)
			if err != nil {
				return "", 0, err
			}
			return "!" + s, precUnary, nil
		case isPointerish(d.Expr.Typ) || isCharString(d.Expr.Typ):
			s, err := b.exprP(d.Expr, 10)
			if err != nil {
				return "", 0, err
			}
			return s + " == null", 9, nil
		default:
			s, err := b.exprP(d.Expr, 10)
			if err != nil {
				return "", 0, err
			}
			return s + " == 0", 9, nil
		}

	case token.Star:
		t := d.Expr.Typ
		s, err := b.exprP(d.Expr, precPrimary)
		if err != nil {
			return "", 0, err
		}
		switch {
		case isCharString(t):
			return s + ".charAt(0)", precPrimary, nil
		case t != nil && t.IsArray():
			return s + "[0]", precPrimary, nil
		case t != nil && t.IsPointer() && t.Base != nil &&
			t.Base.Kind != ast.TYPE_STRUCT && t.Base.Kind != ast.TYPE_VOID:
			return s + "[0]", precPrimary, nil
		}
		return "", 0, util.NewUnsupportedConstructError(node.Tok, "cannot dereference a value of type '%s'", t)

	case token.And:
		// The only translatable addresses are array designators,
		// which stand for the reference itself.
		if d.Expr.Typ != nil && d.Expr.Typ.IsArray() {
			return b.exprRaw(d.Expr)
		}
		if d.Expr.Type == ast.Subscript {
			sub := d.Expr.Data.(ast.SubscriptNode)
			if sub.Index.Type == ast.Number && sub.Index.Data.(ast.NumberNode).Value == 0 && !isCharString(sub.Array.Typ) {
				return b.exprRaw(sub.Array)
			}
		}
		return "", 0, util.NewUnsupportedConstructError(node.Tok, "the address-of operator has no translation")

	case token.Inc, token.Dec:
		if isPointerish(d.Expr.Typ) || isCharString(d.Expr.Typ) {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "pointer arithmetic has no translation")
		}
		if err := b.checkCharStore(d.Expr); err != nil {
			return "", 0, err
		}
		s, err := b.exprP(d.Expr, precUnary)
		if err != nil {
			return "", 0, err
		}
		return d.Op.String() + s, precUnary, nil
	}
	return "", 0, util.NewUnsupportedConstructError(node.Tok, "operator '%s' has no translation", d.Op)
}

func (b *javaBackend) castExpr(node *ast.Node) (string, int, error) {
	d := node.Data.(ast.TypeCastNode)
	target := d.TargetType

	if alloc, ok, err := b.heapAlloc(node); ok || err != nil {
		return alloc, precPrimary, err
	}

	switch {
	case target.Kind == ast.TYPE_BOOL:
		s, err := b.exprP(d.Expr, 10)
		if err != nil {
			return "", 0, err
		}
		return s + " != 0", 9, nil
	case target.IsNumeric():
		ts, err := b.typeName(target, node.Tok)
		if err != nil {
			return "", 0, err
		}
		s, err := b.exprP(d.Expr, precUnary)
		if err != nil {
			return "", 0, err
		}
		return "(" + ts + ") " + s, precUnary, nil
	}
	return "", 0, util.NewUnsupportedConstructError(node.Tok, "cast to '%s' has no translation", target)
}

// heapAlloc recognizes (T *) malloc(n * sizeof(T)) and renders the
// target-side allocation. The boolean reports whether the cast was an
// allocation at all.
func (b *javaBackend) heapAlloc(node *ast.Node) (string, bool, error) {
	d := node.Data.(ast.TypeCastNode)
	count, elem, ok := mallocShape(d)
	if !ok {
		return "", false, nil
	}
	if elem == nil {
		return "", true, util.NewUnsupportedConstructError(node.Tok, "allocation size must be a multiple of sizeof")
	}
	if isChar(elemOf(d.TargetType)) {
		return "", true, util.NewUnsupportedConstructError(node.Tok, "heap character buffers have no translation")
	}
	ts, err := b.typeName(elem, node.Tok)
	if err != nil {
		return "", true, err
	}
	if count == nil {
		if elem.Kind == ast.TYPE_STRUCT {
			return "new " + ts + "()", true, nil
		}
		return "new " + ts + "[1]", true, nil
	}
	cs, err := b.expr(count)
	if err != nil {
		return "", true, err
	}
	return "new " + ts + "[" + cs + "]", true, nil
}

func elemOf(t *ast.CType) *ast.CType {
	if t != nil && t.IsPointer() {
		return t.Base
	}
	return t
}

func isChar(t *ast.CType) bool {
	return t != nil && t.Kind == ast.TYPE_PRIMITIVE && t.Name == "char"
}

// mallocShape pulls the element count out of a cast allocation.
// A nil count with ok means a single sizeof, one object; a nil elem
// with ok means the size expression was not sizeof-shaped.
func mallocShape(d ast.TypeCastNode) (count *ast.Node, elem *ast.CType, ok bool) {
	if d.Expr.Type != ast.FuncCall {
		return nil, nil, false
	}
	cd := d.Expr.Data.(ast.FuncCallNode)
	if cd.FuncExpr.Type != ast.Ident || cd.FuncExpr.Data.(ast.IdentNode).Name != "malloc" {
		return nil, nil, false
	}
	if !d.TargetType.IsPointer() {
		return nil, nil, false
	}
	elem = d.TargetType.Base
	if len(cd.Args) != 1 {
		return nil, nil, true
	}
	arg := cd.Args[0]
	if arg.Type == ast.SizeofExpr {
		return nil, elem, true
	}
	if arg.Type == ast.BinaryOp {
		bd := arg.Data.(ast.BinaryOpNode)
		if bd.Op == token.Star {
			if bd.Left.Type == ast.SizeofExpr {
				return bd.Right, elem, true
			}
			if bd.Right.Type == ast.SizeofExpr {
				return bd.Left, elem, true
			}
		}
	}
	return nil, nil, true
}

func (b *javaBackend) sizeofExpr(node *ast.Node) (string, int, error) {
	d := node.Data.(ast.SizeofNode)
	t := d.TargetType
	if t == nil && d.Expr != nil {
		t = d.Expr.Typ
	}
	size, err := staticSizeof(t, node)
	if err != nil {
		return "", 0, err
	}
	return strconv.FormatInt(size, 10), precPrimary, nil
}

func staticSizeof(t *ast.CType, node *ast.Node) (int64, error) {
	if t == nil {
		return 0, util.NewUnsupportedConstructError(node.Tok, "sizeof operand has no known size")
	}
	if t.IsArray() {
		elem, err := staticSizeof(baseElem(t), node)
		if err != nil {
			return 0, err
		}
		total := elem
		for _, dim := range t.ArrayDims {
			if dim == nil || dim.Type != ast.Number {
				return 0, util.NewUnsupportedConstructError(node.Tok, "sizeof of an array needs literal dimensions")
			}
			total *= dim.Data.(ast.NumberNode).Value
		}
		return total, nil
	}
	if size, ok := scalarSize(t); ok {
		return size, nil
	}
	return 0, util.NewUnsupportedConstructError(node.Tok, "sizeof of type '%s' has no translation", t)
}

func baseElem(t *ast.CType) *ast.CType {
	for t.Kind == ast.TYPE_ARRAY {
		t = t.Base
	}
	return t
}

// Conditions

func (b *javaBackend) cond(node *ast.Node) (string, error) {
	return b.condP(node, 0)
}

// condP renders an expression in boolean context, spelling out the
// zero and null tests the source left implicit.
func (b *javaBackend) condP(node *ast.Node, parentPrec int) (string, error) {
	if b.boolCall(node) {
		s, prec, err := b.call(node, false)
		if err != nil {
			return "", err
		}
		return wrapIf(s, prec, parentPrec), nil
	}
	if b.isBoolShape(node) {
		return b.exprP(node, parentPrec)
	}
	s, err := b.exprP(node, 10)
	if err != nil {
		return "", err
	}
	t := node.Typ
	if isPointerish(t) || isCharString(t) {
		return wrapIf(s+" != null", 9, parentPrec), nil
	}
	return wrapIf(s+" != 0", 9, parentPrec), nil
}

// Calls

func (b *javaBackend) call(node *ast.Node, asStmt bool) (string, int, error) {
	d := node.Data.(ast.FuncCallNode)
	name := d.FuncExpr.Data.(ast.IdentNode).Name

	var desc *mapping.Descriptor
	if !b.userFuncs[name] {
		desc, _ = mapping.Lookup(name)
	}
	if desc == nil || desc.Java == nil {
		args, err := b.renderArgs(d.Args)
		if err != nil {
			return "", 0, err
		}
		return name + "(" + strings.Join(args, ", ") + ")", precPrimary, nil
	}

	if !desc.Match(b.shapes(d.Args)) {
		return "", 0, util.NewUnsupportedConstructError(node.Tok, "call to '%s' does not match its library signature", name)
	}

	rule := desc.Java
	switch rule.Strategy {
	case mapping.Call:
		args, err := b.renderArgs(d.Args)
		if err != nil {
			return "", 0, err
		}
		return rule.Target + "(" + strings.Join(args, ", ") + ")", precPrimary, nil

	case mapping.Method:
		recv, err := b.exprP(d.Args[0], precPrimary)
		if err != nil {
			return "", 0, err
		}
		rest, err := b.renderArgs(d.Args[1:])
		if err != nil {
			return "", 0, err
		}
		return recv + "." + rule.Target + "(" + strings.Join(rest, ", ") + ")", precPrimary, nil

	case mapping.Template:
		args, err := b.renderArgs(d.Args)
		if err != nil {
			return "", 0, err
		}
		s := mapping.Expand(rule.Target, args)
		prec := precAssign
		if strings.HasPrefix(s, "(") {
			prec = precPrimary
		}
		return s, prec, nil

	case mapping.PrintfExpand, mapping.ScanfExpand:
		return "", 0, util.NewUnsupportedConstructError(node.Tok, "'%s' is only translatable as a statement", name)

	case mapping.HeapAlloc:
		return "", 0, util.NewUnsupportedConstructError(node.Tok, "'%s' requires a pointer cast on its result", name)
	}
	return "", 0, util.NewUnsupportedConstructError(node.Tok, "no emission rule for '%s'", name)
}

func (b *javaBackend) renderArgs(args []*ast.Node) ([]string, error) {
	out := make([]string, len(args))
	for i, a := range args {
		s, err := b.exprP(a, precAssign)
		if err != nil {
			return nil, err
		}
		out[i] = s
	}
	return out, nil
}

func (b *javaBackend) shapes(args []*ast.Node) []mapping.ArgShape {
	shapes := make([]mapping.ArgShape, len(args))
	for i, a := range args {
		shapes[i] = argShape(a)
	}
	return shapes
}

func argShape(a *ast.Node) mapping.ArgShape {
	var s mapping.ArgShape
	if t := a.Typ; t != nil {
		s.Integer = t.IsInteger() || t.Kind == ast.TYPE_BOOL
		s.Float = t.IsFloat()
		s.String = isCharString(t)
	}
	s.Literal = a.Type == ast.String
	switch a.Type {
	case ast.Ident, ast.Subscript, ast.MemberAccess:
		s.Addressable = true
	case ast.UnaryOp:
		op := a.Data.(ast.UnaryOpNode).Op
		s.Addressable = op == token.And || op == token.Star
	}
	return s
}

// Statement-position library calls

func (b *javaBackend) genCallStmt(node *ast.Node) error {
	d := node.Data.(ast.FuncCallNode)
	name := d.FuncExpr.Data.(ast.IdentNode).Name

	if !b.userFuncs[name] {
		if desc, ok := mapping.Lookup(name); ok && desc.Java != nil {
			switch desc.Java.Strategy {
			case mapping.PrintfExpand:
				return b.genPrintf(node, desc)
			case mapping.ScanfExpand:
				return b.genScanf(node, desc)
			}
		}
	}

	s, _, err := b.call(node, true)
	if err != nil {
		return err
	}
	b.line(s + ";")
	return nil
}

func (b *javaBackend) splitCallFormat(node *ast.Node, desc *mapping.Descriptor) ([]mapping.FormatSpec, []*ast.Node, error) {
	d := node.Data.(ast.FuncCallNode)
	if !desc.Match(b.shapes(d.Args)) {
		return nil, nil, util.NewUnsupportedConstructError(node.Tok, "call to '%s' does not match its library signature", desc.Name)
	}
	parts, err := mapping.SplitFormat(d.Args[0].Data.(ast.StringNode).Value)
	if err != nil {
		return nil, nil, util.NewUnsupportedConstructError(d.Args[0].Tok, "%v", err)
	}
	rest := d.Args[1:]
	if len(rest) != len(mapping.Verbs(parts)) {
		return nil, nil, util.NewUnsupportedConstructError(node.Tok,
			"format string expects %d argument(s), got %d", len(mapping.Verbs(parts)), len(rest))
	}
	return parts, rest, nil
}

func (b *javaBackend) genPrintf(node *ast.Node, desc *mapping.Descriptor) error {
	parts, rest, err := b.splitCallFormat(node, desc)
	if err != nil {
		return err
	}
	specs := mapping.Verbs(parts)
	value := node.Data.(ast.FuncCallNode).Args[0].Data.(ast.StringNode).Value

	if len(specs) == 0 {
		body := strings.TrimSuffix(value, "\n")
		if strings.HasSuffix(value, "\n") && !strings.Contains(body, "\n") {
			b.linef("System.out.println(\"%s\");", escapeStringJava(body))
		} else {
			b.linef("System.out.print(\"%s\");", escapeStringJava(value))
		}
		return nil
	}

	if len(specs) == 1 && value == specs[0].Text+"\n" && specs[0].Plain() && b.printlnVerb(specs[0], rest[0]) {
		arg, err := b.exprP(rest[0], precAssign)
		if err != nil {
			return err
		}
		b.linef("System.out.println(%s);", arg)
		return nil
	}

	var format strings.Builder
	for _, p := range parts {
		if p.IsLiteral() {
			format.WriteString(escapeStringJava(p.Text))
		} else {
			format.WriteString(p.JavaText())
		}
	}
	args, err := b.renderArgs(rest)
	if err != nil {
		return err
	}
	b.linef("System.out.printf(\"%s\", %s);", format.String(), strings.Join(args, ", "))
	return nil
}

// printlnVerb limits the println shortcut to conversions whose
// default rendering matches printf output exactly.
func (b *javaBackend) printlnVerb(spec mapping.FormatSpec, arg *ast.Node) bool {
	switch spec.Verb {
	case 'd', 'i', 's':
		return true
	case 'c':
		return isChar(arg.Typ)
	}
	return false
}

func (b *javaBackend) genScanf(node *ast.Node, desc *mapping.Descriptor) error {
	parts, rest, err := b.splitCallFormat(node, desc)
	if err != nil {
		return err
	}
	for _, p := range parts {
		if p.IsLiteral() && strings.TrimSpace(p.Text) != "" {
			return util.NewUnsupportedConstructError(node.Tok, "literal separators in a scanf format have no translation")
		}
	}

	specs := mapping.Verbs(parts)
	b.needScanner = true
	for i, spec := range specs {
		method, ok := mapping.ScannerMethod(spec)
		if !ok {
			return util.NewUnsupportedConstructError(node.Tok, "scanf conversion '%s' has no translation", spec.Text)
		}
		target := rest[i]
		var lv string
		switch {
		case target.Type == ast.UnaryOp && target.Data.(ast.UnaryOpNode).Op == token.And:
			lv, err = b.expr(target.Data.(ast.UnaryOpNode).Expr)
		case isCharString(target.Typ):
			lv, err = b.expr(target)
		default:
			return util.NewUnsupportedConstructError(target.Tok, "scanf argument %d is not an address", i+2)
		}
		if err != nil {
			return err
		}
		b.linef("%s = __scanner.%s;", lv, method)
	}
	return nil
}
