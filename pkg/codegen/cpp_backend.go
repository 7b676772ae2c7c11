package codegen

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/mapping"
	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

// cppBackend prints a resolved unit as a single C++ translation unit.
// Most constructs pass through shape-for-shape; the work is in the
// string type rewrite, the iostream conversions, and the allocation
// forms. Includes are collected while emitting and prepended at the
// end.
type cppBackend struct {
	emitter
	cfg       *config.Config
	userFuncs map[string]bool
	includes  map[string]bool
}

// includeOrder fixes the header block layout.
var includeOrder = []string{"<iostream>", "<cstdio>", "<string>", "<cstdlib>", "<cmath>", "<cctype>"}

func NewCppBackend() Backend { return &cppBackend{} }

func (b *cppBackend) Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error) {
	b.cfg = cfg
	b.userFuncs = collectUserFuncs(root)
	b.includes = make(map[string]bool)

	var prev ast.NodeType = -1
	for _, stmt := range root.Data.(ast.BlockNode).Stmts {
		if prev >= 0 && !(prev == stmt.Type && (stmt.Type == ast.ConstDecl || stmt.Type == ast.VarDecl)) {
			b.blank()
		}
		var err error
		switch stmt.Type {
		case ast.ConstDecl:
			err = b.genGlobalConst(stmt)
		case ast.EnumDecl:
			err = b.genEnum(stmt)
		case ast.StructDecl:
			err = b.genStruct(stmt)
		case ast.VarDecl:
			err = b.genVarDecl(stmt)
		case ast.MultiVarDecl:
			for _, decl := range stmt.Data.(ast.MultiVarDeclNode).Decls {
				if err = b.genVarDecl(decl); err != nil {
					break
				}
			}
		case ast.FuncDecl:
			err = b.genFunc(stmt)
		}
		if err != nil {
			return nil, err
		}
		prev = stmt.Type
	}

	var out bytes.Buffer
	wroteHeader := false
	for _, inc := range includeOrder {
		if b.includes[inc] {
			fmt.Fprintf(&out, "#include %s\n", inc)
			wroteHeader = true
		}
	}
	if wroteHeader {
		out.WriteString("\nusing namespace std;\n\n")
	}
	out.Write(b.out.Bytes())
	return &out, nil
}

// Types and declarators

func (b *cppBackend) typeName(t *ast.CType, tok token.Token) (string, error) {
	s, err := mapping.TypeName(t, config.TargetCpp)
	if err != nil {
		return "", util.NewUnsupportedConstructError(tok, "%v", err)
	}
	if s == "string" {
		b.includes["<string>"] = true
	}
	return s, nil
}

// declString renders "type name" with array dimensions attached to
// the declarator the way the source spelled them.
func (b *cppBackend) declString(t *ast.CType, name string, tok token.Token) (string, error) {
	ts, err := b.typeName(t, tok)
	if err != nil {
		return "", err
	}
	sep := " "
	if strings.HasSuffix(ts, "*") {
		sep = ""
	}
	s := ts + sep + name
	for _, dim := range mapping.DeclDims(t) {
		if dim == nil {
			s += "[]"
			continue
		}
		ds, err := b.expr(dim)
		if err != nil {
			return "", err
		}
		s += "[" + ds + "]"
	}
	return s, nil
}

// paramString renders one parameter, spelling decayed arrays with
// empty brackets the way the source held them.
func (b *cppBackend) paramString(t *ast.CType, name string, tok token.Token) (string, error) {
	if t.IsCharPtr() {
		b.includes["<string>"] = true
		return "string " + name, nil
	}
	if t.IsPointer() && t.Decayed {
		base := t.Base
		if base.IsArray() {
			s, err := b.declString(base, name+"[]", tok)
			return s, err
		}
		ts, err := b.typeName(base, tok)
		if err != nil {
			return "", err
		}
		return ts + " " + name + "[]", nil
	}
	return b.declString(t, name, tok)
}

// Declarations

func (b *cppBackend) genGlobalConst(node *ast.Node) error {
	d := node.Data.(ast.ConstDeclNode)
	ts, err := b.typeName(node.Typ, node.Tok)
	if err != nil {
		return err
	}
	val, err := b.expr(d.Value)
	if err != nil {
		return err
	}
	b.linef("const %s %s = %s;", ts, d.Name, val)
	return nil
}

func (b *cppBackend) genEnum(node *ast.Node) error {
	d := node.Data.(ast.EnumDeclNode)
	b.linef("enum %s {", d.Name)
	b.enter()
	for _, m := range d.Members {
		if m.Value == nil {
			b.linef("%s,", m.Name)
			continue
		}
		v, err := b.expr(m.Value)
		if err != nil {
			return err
		}
		b.linef("%s = %s,", m.Name, v)
	}
	b.leave()
	b.line("};")
	return nil
}

func (b *cppBackend) genStruct(node *ast.Node) error {
	d := node.Data.(ast.StructDeclNode)
	b.linef("class %s {", d.Name)
	b.line("public:")
	b.enter()
	for _, field := range d.Fields {
		fd := field.Data.(ast.VarDeclNode)
		s, err := b.declString(fd.Type, fd.Name, field.Tok)
		if err != nil {
			return err
		}
		b.line(s + ";")
	}
	b.leave()
	b.line("};")
	return nil
}

func (b *cppBackend) genVarDecl(node *ast.Node) error {
	d := node.Data.(ast.VarDeclNode)
	t := d.Type
	decl, err := b.declString(t, d.Name, node.Tok)
	if err != nil {
		return err
	}

	if len(d.InitList) == 0 {
		b.line(decl + ";")
		return nil
	}

	if !d.IsList {
		val, err := b.exprP(d.InitList[0], precAssign)
		if err != nil {
			return err
		}
		b.linef("%s = %s;", decl, val)
		return nil
	}

	if t.IsCharArray() {
		return util.NewUnsupportedConstructError(node.Tok, "braced character array initializer has no translation")
	}
	lit, err := b.braceInit(d.InitList)
	if err != nil {
		return err
	}
	b.linef("%s = %s;", decl, lit)
	return nil
}

func (b *cppBackend) braceInit(elems []*ast.Node) (string, error) {
	parts := make([]string, len(elems))
	for i, e := range elems {
		if e.Type == ast.InitList {
			sub, err := b.braceInit(e.Data.(ast.InitListNode).Elems)
			if err != nil {
				return "", err
			}
			parts[i] = sub
			continue
		}
		s, err := b.exprP(e, precAssign)
		if err != nil {
			return "", err
		}
		parts[i] = s
	}
	return "{" + strings.Join(parts, ", ") + "}", nil
}

func (b *cppBackend) genFunc(node *ast.Node) error {
	d := node.Data.(ast.FuncDeclNode)

	var header string
	if d.Name == "main" {
		if len(d.Params) > 0 {
			return util.NewUnsupportedConstructError(node.Tok, "parameters of main have no translation")
		}
		header = "int main("
	} else {
		ret, err := b.typeName(d.ReturnType, node.Tok)
		if err != nil {
			return err
		}
		header = ret + " " + d.Name + "("
	}
	params := make([]string, len(d.Params))
	for i, p := range d.Params {
		pd := p.Data.(ast.VarDeclNode)
		ps, err := b.paramString(pd.Type, pd.Name, p.Tok)
		if err != nil {
			return err
		}
		params[i] = ps
	}
	header += strings.Join(params, ", ") + ")"

	if d.IsPrototype {
		b.line(header + ";")
		return nil
	}
	b.line(header + " {")
	b.enter()
	err := b.genStmts(d.Body.Data.(ast.BlockNode).Stmts)
	b.leave()
	b.line("}")
	return err
}

// Statements

func (b *cppBackend) genStmts(stmts []*ast.Node) error {
	for _, s := range stmts {
		if err := b.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

func (b *cppBackend) genBody(node *ast.Node) error {
	if node == nil {
		return nil
	}
	if node.Type == ast.Block {
		return b.genStmts(node.Data.(ast.BlockNode).Stmts)
	}
	return b.genStmt(node)
}

func (b *cppBackend) genStmt(node *ast.Node) error {
	switch node.Type {
	case ast.Block:
		d := node.Data.(ast.BlockNode)
		if d.IsSynthetic {
			return b.genStmts(d.Stmts)
		}
		b.line("{")
		b.enter()
		err := b.genStmts(d.Stmts)
		b.leave()
		b.line("}")
		return err

	case ast.VarDecl:
		return b.genVarDecl(node)

	case ast.MultiVarDecl:
		for _, decl := range node.Data.(ast.MultiVarDeclNode).Decls {
			if err := b.genVarDecl(decl); err != nil {
				return err
			}
		}
		return nil

	case ast.If:
		return b.genIf(node)

	case ast.While:
		d := node.Data.(ast.WhileNode)
		c, err := b.cond(d.Cond)
		if err != nil {
			return err
		}
		b.linef("while (%s) {", c)
		b.enter()
		err = b.genBody(d.Body)
		b.leave()
		b.line("}")
		return err

	case ast.DoWhile:
		d := node.Data.(ast.DoWhileNode)
		b.line("do {")
		b.enter()
		if err := b.genBody(d.Body); err != nil {
			return err
		}
		b.leave()
		c, err := b.cond(d.Cond)
		if err != nil {
			return err
		}
		b.linef("} while (%s);", c)
		return nil

	case ast.For:
		return b.genFor(node)

	case ast.Switch:
		return b.genSwitch(node)

	case ast.Break:
		b.line("break;")
		return nil
	case ast.Continue:
		b.line("continue;")
		return nil

	case ast.Return:
		d := node.Data.(ast.ReturnNode)
		if d.Expr == nil {
			b.line("return;")
			return nil
		}
		s, err := b.expr(d.Expr)
		if err != nil {
			return err
		}
		b.linef("return %s;", s)
		return nil

	case ast.FuncCall:
		return b.genCallStmt(node)
	}

	s, err := b.expr(node)
	if err != nil {
		return err
	}
	b.line(s + ";")
	return nil
}

func (b *cppBackend) genIf(node *ast.Node) error {
	d := node.Data.(ast.IfNode)
	c, err := b.cond(d.Cond)
	if err != nil {
		return err
	}
	b.linef("if (%s) {", c)
	b.enter()
	if err := b.genBody(d.ThenBody); err != nil {
		return err
	}
	b.leave()

	elseBody := d.ElseBody
	for elseBody != nil && elseBody.Type == ast.If {
		ed := elseBody.Data.(ast.IfNode)
		c, err := b.cond(ed.Cond)
		if err != nil {
			return err
		}
		b.linef("} else if (%s) {", c)
		b.enter()
		if err := b.genBody(ed.ThenBody); err != nil {
			return err
		}
		b.leave()
		elseBody = ed.ElseBody
	}
	if elseBody != nil {
		b.line("} else {")
		b.enter()
		if err := b.genBody(elseBody); err != nil {
			return err
		}
		b.leave()
	}
	b.line("}")
	return nil
}

func (b *cppBackend) genFor(node *ast.Node) error {
	d := node.Data.(ast.ForNode)

	init := ""
	switch {
	case d.Init == nil:
	case d.Init.Type == ast.VarDecl:
		s, err := b.declInline(d.Init)
		if err != nil {
			return err
		}
		init = s
	case d.Init.Type == ast.MultiVarDecl:
		decls := d.Init.Data.(ast.MultiVarDeclNode).Decls
		first, err := b.declInline(decls[0])
		if err != nil {
			return err
		}
		parts := []string{first}
		for _, decl := range decls[1:] {
			dd := decl.Data.(ast.VarDeclNode)
			if len(dd.InitList) == 0 {
				parts = append(parts, dd.Name)
				continue
			}
			val, err := b.exprP(dd.InitList[0], precAssign)
			if err != nil {
				return err
			}
			parts = append(parts, dd.Name+" = "+val)
		}
		init = strings.Join(parts, ", ")
	default:
		s, err := b.exprList(d.Init)
		if err != nil {
			return err
		}
		init = s
	}

	condS := ""
	if d.Cond != nil {
		s, err := b.cond(d.Cond)
		if err != nil {
			return err
		}
		condS = s
	}
	post := ""
	if d.Post != nil {
		s, err := b.exprList(d.Post)
		if err != nil {
			return err
		}
		post = s
	}

	header := "for (" + init + ";"
	if condS != "" {
		header += " " + condS
	}
	header += ";"
	if post != "" {
		header += " " + post
	}
	header += ") {"
	b.line(header)
	b.enter()
	err := b.genBody(d.Body)
	b.leave()
	b.line("}")
	return err
}

func (b *cppBackend) declInline(node *ast.Node) (string, error) {
	d := node.Data.(ast.VarDeclNode)
	if d.IsList || d.Type.IsArray() {
		return "", util.NewUnsupportedConstructError(node.Tok, "only scalar declarations translate inside a for initializer")
	}
	s, err := b.declString(d.Type, d.Name, node.Tok)
	if err != nil {
		return "", err
	}
	if len(d.InitList) == 0 {
		return s, nil
	}
	val, err := b.exprP(d.InitList[0], precAssign)
	if err != nil {
		return "", err
	}
	return s + " = " + val, nil
}

func (b *cppBackend) exprList(node *ast.Node) (string, error) {
	parts := commaOperands(node)
	out := make([]string, len(parts))
	for i, p := range parts {
		s, err := b.exprP(p, precAssign)
		if err != nil {
			return "", err
		}
		out[i] = s
	}
	return strings.Join(out, ", "), nil
}

func (b *cppBackend) genSwitch(node *ast.Node) error {
	d := node.Data.(ast.SwitchNode)
	s, err := b.expr(d.Expr)
	if err != nil {
		return err
	}
	b.linef("switch (%s) {", s)
	b.enter()
	for _, group := range d.Body.Data.(ast.BlockNode).Stmts {
		switch group.Type {
		case ast.Case:
			cd := group.Data.(ast.CaseNode)
			for _, v := range cd.Values {
				vs, err := b.expr(v)
				if err != nil {
					return err
				}
				b.linef("case %s:", vs)
			}
			b.enter()
			if err := b.genBody(cd.Body); err != nil {
				return err
			}
			b.leave()
		case ast.Default:
			b.line("default:")
			b.enter()
			if err := b.genBody(group.Data.(ast.DefaultNode).Body); err != nil {
				return err
			}
			b.leave()
		}
	}
	b.leave()
	b.line("}")
	return nil
}

// Expressions

func (b *cppBackend) expr(node *ast.Node) (string, error) {
	return b.exprP(node, 0)
}

// cond renders a condition. A character buffer has become a string
// object on this side, so the implicit null test a bare pointer carried
// no longer compiles and cannot pass through.
func (b *cppBackend) cond(node *ast.Node) (string, error) {
	if isCharString(node.Typ) {
		return "", util.NewUnsupportedConstructError(node.Tok, "null test on a character buffer has no translation")
	}
	return b.expr(node)
}

func (b *cppBackend) exprP(node *ast.Node, parentPrec int) (string, error) {
	s, prec, err := b.exprRaw(node)
	if err != nil {
		return "", err
	}
	return wrapIf(s, prec, parentPrec), nil
}

func (b *cppBackend) exprRaw(node *ast.Node) (string, int, error) {
	switch node.Type {
	case ast.Number:
		switch node.Tok.Type {
		case token.True:
			return "true", precPrimary, nil
		case token.False:
			return "false", precPrimary, nil
		case token.Null:
			return "nullptr", precPrimary, nil
		}
		d := node.Data.(ast.NumberNode)
		if d.Text == "" {
			return strconv.FormatInt(d.Value, 10), precPrimary, nil
		}
		return d.Text, precPrimary, nil

	case ast.FloatNumber:
		d := node.Data.(ast.FloatNumberNode)
		if d.Text == "" {
			return strconv.FormatFloat(d.Value, 'g', -1, 64), precPrimary, nil
		}
		return d.Text, precPrimary, nil

	case ast.CharLit:
		return escapeCharCpp(node.Data.(ast.CharNode).Value), precPrimary, nil

	case ast.String:
		return `"` + escapeStringCpp(node.Data.(ast.StringNode).Value) + `"`, precPrimary, nil

	case ast.Ident:
		return node.Data.(ast.IdentNode).Name, precPrimary, nil

	case ast.Assign:
		d := node.Data.(ast.AssignNode)
		if d.Op != token.Eq && isCharString(d.Lhs.Typ) {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "pointer arithmetic on a character buffer has no translation")
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

	case ast.BinaryOp:
		d := node.Data.(ast.BinaryOpNode)
		if d.Op == token.Comma {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "comma expression outside a for clause")
		}
		if d.Op == token.Slash {
			if arr := sizeofDivIdiom(d.Left, d.Right); arr != nil && isCharString(arr.Typ) {
				return "", 0, util.NewUnsupportedConstructError(node.Tok, "sizeof on a character buffer has no translation")
			}
		}
		if err := b.checkStringOperands(node, d); err != nil {
			return "", 0, err
		}
		p := opPrec(d.Op)
		l, err := b.exprP(d.Left, p)
		if err != nil {
			return "", 0, err
		}
		r, err := b.exprP(d.Right, p+1)
		if err != nil {
			return "", 0, err
		}
		return l + " " + d.Op.String() + " " + r, p, nil

	case ast.UnaryOp:
		d := node.Data.(ast.UnaryOpNode)
		if isCharString(d.Expr.Typ) {
			switch d.Op {
			case token.Star:
				s, err := b.exprP(d.Expr, precPrimary)
				if err != nil {
					return "", 0, err
				}
				return s + "[0]", precPrimary, nil
			case token.Inc, token.Dec:
				return "", 0, util.NewUnsupportedConstructError(node.Tok, "pointer arithmetic on a character buffer has no translation")
			case token.Not:
				return "", 0, util.NewUnsupportedConstructError(node.Tok, "null test on a character buffer has no translation")
			}
		}
		s, err := b.exprP(d.Expr, precUnary)
		if err != nil {
			return "", 0, err
		}
		return d.Op.String() + s, precUnary, nil

	case ast.PostfixOp:
		d := node.Data.(ast.PostfixOpNode)
		if isCharString(d.Expr.Typ) {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "pointer arithmetic on a character buffer has no translation")
		}
		s, err := b.exprP(d.Expr, precPrimary)
		if err != nil {
			return "", 0, err
		}
		return s + d.Op.String(), precPrimary, nil

	case ast.FuncCall:
		return b.call(node)

	case ast.Ternary:
		d := node.Data.(ast.TernaryNode)
		if isCharString(d.Cond.Typ) {
			return "", 0, util.NewUnsupportedConstructError(d.Cond.Tok, "null test on a character buffer has no translation")
		}
		c, err := b.exprP(d.Cond, precTernary+1)
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
		return arr + "[" + idx + "]", precPrimary, nil

	case ast.MemberAccess:
		d := node.Data.(ast.MemberAccessNode)
		base, err := b.exprP(d.Expr, precPrimary)
		if err != nil {
			return "", 0, err
		}
		op := "."
		if d.IsArrow {
			op = "->"
		}
		return base + op + d.Member.Data.(ast.IdentNode).Name, precPrimary, nil

	case ast.TypeCast:
		return b.castExpr(node)

	case ast.SizeofExpr:
		return b.sizeofExpr(node)
	}
	return "", 0, util.NewUnsupportedConstructError(node.Tok, "construct has no translation")
}

// checkStringOperands refuses pointer idioms that read differently once
// a character buffer is a string object: arithmetic would concatenate,
// a null compare would walk into library undefined behavior, and a
// logical operand has no boolean conversion.
func (b *cppBackend) checkStringOperands(node *ast.Node, d ast.BinaryOpNode) error {
	if !isCharString(d.Left.Typ) && !isCharString(d.Right.Typ) {
		return nil
	}
	switch d.Op {
	case token.Plus, token.Minus:
		return util.NewUnsupportedConstructError(node.Tok, "pointer arithmetic on a character buffer has no translation")
	case token.AndAnd, token.OrOr:
		return util.NewUnsupportedConstructError(node.Tok, "null test on a character buffer has no translation")
	case token.EqEq, token.Neq, token.Lt, token.Gt, token.Gte, token.Lte:
		return util.NewUnsupportedConstructError(node.Tok, "pointer comparison of character buffers has no translation")
	}
	return nil
}

func (b *cppBackend) castExpr(node *ast.Node) (string, int, error) {
	d := node.Data.(ast.TypeCastNode)

	if count, elem, ok := mallocShape(d); ok {
		if elem == nil {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "allocation size must be a multiple of sizeof")
		}
		if isChar(elemOf(d.TargetType)) {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "heap character buffers have no translation")
		}
		ts, err := b.typeName(elem, node.Tok)
		if err != nil {
			return "", 0, err
		}
		if count == nil {
			if elem.Kind == ast.TYPE_STRUCT {
				return "new " + ts + "()", precUnary, nil
			}
			return "new " + ts + "[1]", precUnary, nil
		}
		cs, err := b.expr(count)
		if err != nil {
			return "", 0, err
		}
		return "new " + ts + "[" + cs + "]", precUnary, nil
	}

	ts, err := b.typeName(d.TargetType, node.Tok)
	if err != nil {
		return "", 0, err
	}
	s, err := b.expr(d.Expr)
	if err != nil {
		return "", 0, err
	}
	return "static_cast<" + ts + ">(" + s + ")", precPrimary, nil
}

func (b *cppBackend) sizeofExpr(node *ast.Node) (string, int, error) {
	d := node.Data.(ast.SizeofNode)
	if d.TargetType != nil {
		if isCharString(d.TargetType) || isChar(baseElem(d.TargetType)) && d.TargetType.IsArray() {
			return "", 0, util.NewUnsupportedConstructError(node.Tok, "sizeof on a character buffer has no translation")
		}
		ts, err := b.typeName(d.TargetType, node.Tok)
		if err != nil {
			return "", 0, err
		}
		return "sizeof(" + ts + ")", precPrimary, nil
	}
	if isCharString(d.Expr.Typ) {
		return "", 0, util.NewUnsupportedConstructError(node.Tok, "sizeof on a character buffer has no translation")
	}
	s, err := b.expr(d.Expr)
	if err != nil {
		return "", 0, err
	}
	return "sizeof(" + s + ")", precPrimary, nil
}

// Calls

func (b *cppBackend) call(node *ast.Node) (string, int, error) {
	d := node.Data.(ast.FuncCallNode)
	name := d.FuncExpr.Data.(ast.IdentNode).Name

	var desc *mapping.Descriptor
	if !b.userFuncs[name] {
		desc, _ = mapping.Lookup(name)
	}
	if desc == nil || desc.Cpp == nil {
		args, err := b.renderArgs(d.Args)
		if err != nil {
			return "", 0, err
		}
		return name + "(" + strings.Join(args, ", ") + ")", precPrimary, nil
	}

	if !desc.Match(b.shapes(d.Args)) {
		return "", 0, util.NewUnsupportedConstructError(node.Tok, "call to '%s' does not match its library signature", name)
	}
	if desc.CppHeader != "" {
		b.includes[desc.CppHeader] = true
	}

	// Freeing a single heap object wants the scalar delete.
	if name == "free" {
		t := d.Args[0].Typ
		arg, err := b.exprP(d.Args[0], precUnary)
		if err != nil {
			return "", 0, err
		}
		if t != nil && t.IsPointer() && t.Base.Kind == ast.TYPE_STRUCT {
			return "delete " + arg, precUnary, nil
		}
		return "delete[] " + arg, precUnary, nil
	}

	rule := desc.Cpp
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

func (b *cppBackend) renderArgs(args []*ast.Node) ([]string, error) {
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

func (b *cppBackend) shapes(args []*ast.Node) []mapping.ArgShape {
	shapes := make([]mapping.ArgShape, len(args))
	for i, a := range args {
		shapes[i] = argShape(a)
	}
	return shapes
}

func (b *cppBackend) genCallStmt(node *ast.Node) error {
	d := node.Data.(ast.FuncCallNode)
	name := d.FuncExpr.Data.(ast.IdentNode).Name

	if !b.userFuncs[name] {
		if desc, ok := mapping.Lookup(name); ok && desc.Cpp != nil {
			switch desc.Cpp.Strategy {
			case mapping.PrintfExpand:
				return b.genPrintf(node, desc)
			case mapping.ScanfExpand:
				return b.genScanf(node, desc)
			}
		}
	}

	s, _, err := b.call(node)
	if err != nil {
		return err
	}
	b.line(s + ";")
	return nil
}

func (b *cppBackend) splitCallFormat(node *ast.Node, desc *mapping.Descriptor) ([]mapping.FormatSpec, []*ast.Node, error) {
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

// chainVerb reports the conversions whose default stream rendering
// matches printf byte for byte. Floating output stays on printf.
func chainVerb(v byte) bool {
	switch v {
	case 'd', 'i', 'u', 's', 'c':
		return true
	}
	return false
}

func (b *cppBackend) genPrintf(node *ast.Node, desc *mapping.Descriptor) error {
	parts, rest, err := b.splitCallFormat(node, desc)
	if err != nil {
		return err
	}

	chainable := true
	for _, p := range parts {
		if !p.IsLiteral() && (!p.Plain() || !chainVerb(p.Verb)) {
			chainable = false
			break
		}
	}

	if chainable {
		b.includes["<iostream>"] = true
		var sb strings.Builder
		sb.WriteString("cout")
		arg := 0
		for _, p := range parts {
			if p.IsLiteral() {
				sb.WriteString(` << "` + escapeStringCpp(p.Text) + `"`)
				continue
			}
			s, err := b.exprP(rest[arg], opPrec(token.Shl)+1)
			if err != nil {
				return err
			}
			if p.Verb == 'c' && !isChar(rest[arg].Typ) {
				s = "(char) " + s
			}
			sb.WriteString(" << " + s)
			arg++
		}
		b.line(sb.String() + ";")
		return nil
	}

	// Width, precision or floating conversions keep the printf form.
	b.includes["<cstdio>"] = true
	var format strings.Builder
	for _, p := range parts {
		if p.IsLiteral() {
			format.WriteString(escapeStringCpp(strings.ReplaceAll(p.Text, "%", "%%")))
		} else {
			format.WriteString(p.Text)
		}
	}
	args := make([]string, 0, len(rest)+1)
	args = append(args, `"`+format.String()+`"`)
	for _, a := range rest {
		// A class type cannot ride C varargs.
		if isCharString(a.Typ) {
			s, err := b.exprP(a, precPrimary)
			if err != nil {
				return err
			}
			args = append(args, s+".c_str()")
			continue
		}
		s, err := b.exprP(a, precAssign)
		if err != nil {
			return err
		}
		args = append(args, s)
	}
	b.linef("printf(%s);", strings.Join(args, ", "))
	return nil
}

func (b *cppBackend) genScanf(node *ast.Node, desc *mapping.Descriptor) error {
	parts, rest, err := b.splitCallFormat(node, desc)
	if err != nil {
		return err
	}
	for _, p := range parts {
		if p.IsLiteral() && strings.TrimSpace(p.Text) != "" {
			return util.NewUnsupportedConstructError(node.Tok, "literal separators in a scanf format have no translation")
		}
	}

	b.includes["<iostream>"] = true
	var sb strings.Builder
	sb.WriteString("cin")
	for i, target := range rest {
		var lv string
		if target.Type == ast.UnaryOp && target.Data.(ast.UnaryOpNode).Op == token.And {
			lv, err = b.exprP(target.Data.(ast.UnaryOpNode).Expr, opPrec(token.Shr)+1)
		} else if isCharString(target.Typ) {
			lv, err = b.exprP(target, opPrec(token.Shr)+1)
		} else {
			return util.NewUnsupportedConstructError(target.Tok, "scanf argument %d is not an address", i+2)
		}
		if err != nil {
			return err
		}
		sb.WriteString(" >> " + lv)
	}
	b.line(sb.String() + ";")
	return nil
}
