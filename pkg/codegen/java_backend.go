package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/mapping"
	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

// javaBackend prints a resolved unit as one public class: globals
// become static fields, functions static methods, structs nested
// classes. Scanner-backed input is materialized only when scanf
// emission asks for it.
type javaBackend struct {
	emitter
	cfg         *config.Config
	userFuncs   map[string]bool
	needScanner bool
	inMain      bool
	staticInit  []string
}

func NewJavaBackend() Backend { return &javaBackend{} }

func (b *javaBackend) Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error) {
	b.cfg = cfg
	b.userFuncs = collectUserFuncs(root)
	b.indent = 1

	var prev ast.NodeType = -1
	for _, stmt := range root.Data.(ast.BlockNode).Stmts {
		// Prototypes have no Java rendering; skip them before the
		// blank-line bookkeeping so they leave no gap behind.
		if stmt.Type == ast.FuncDecl && stmt.Data.(ast.FuncDeclNode).IsPrototype {
			continue
		}
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
			err = b.genVarDecl(stmt, true)
		case ast.MultiVarDecl:
			for _, decl := range stmt.Data.(ast.MultiVarDeclNode).Decls {
				if err = b.genVarDecl(decl, true); err != nil {
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

	if len(b.staticInit) > 0 {
		b.blank()
		b.line("static {")
		b.enter()
		for _, s := range b.staticInit {
			b.line(s)
		}
		b.leave()
		b.line("}")
	}

	var out bytes.Buffer
	if b.needScanner {
		out.WriteString("import java.util.Scanner;\n\n")
	}
	fmt.Fprintf(&out, "public class %s {\n", cfg.ClassName)
	if b.needScanner {
		out.WriteString("    static final Scanner __scanner = new Scanner(System.in);\n\n")
	}
	out.Write(b.out.Bytes())
	out.WriteString("}\n")
	return &out, nil
}

func (b *javaBackend) typeName(t *ast.CType, tok token.Token) (string, error) {
	s, err := mapping.TypeName(t, config.TargetJava)
	if err != nil {
		return "", util.NewUnsupportedConstructError(tok, "%v", err)
	}
	return s, nil
}

// Declarations

func (b *javaBackend) genGlobalConst(node *ast.Node) error {
	d := node.Data.(ast.ConstDeclNode)
	ts, err := b.typeName(node.Typ, node.Tok)
	if err != nil {
		return err
	}
	val, err := b.expr(d.Value)
	if err != nil {
		return err
	}
	b.linef("static final %s %s = %s;", ts, d.Name, val)
	return nil
}

func (b *javaBackend) genEnum(node *ast.Node) error {
	d := node.Data.(ast.EnumDeclNode)
	prev := ""
	for _, m := range d.Members {
		val := "0"
		switch {
		case m.Value != nil:
			v, err := b.expr(m.Value)
			if err != nil {
				return err
			}
			val = v
		case prev != "":
			val = prev + " + 1"
		}
		b.linef("static final int %s = %s;", m.Name, val)
		prev = m.Name
	}
	return nil
}

func (b *javaBackend) genStruct(node *ast.Node) error {
	d := node.Data.(ast.StructDeclNode)
	b.linef("static class %s {", d.Name)
	b.enter()
	for _, field := range d.Fields {
		fd := field.Data.(ast.VarDeclNode)
		ts, err := b.typeName(fd.Type, field.Tok)
		if err != nil {
			return err
		}
		init, err := b.fieldDefault(fd.Type, field.Tok)
		if err != nil {
			return err
		}
		b.linef("%s %s%s;", ts, fd.Name, init)
	}
	b.leave()
	b.line("}")
	return nil
}

// fieldDefault gives embedded aggregates the value semantics the
// source assumes: struct and array members exist without an explicit
// constructor call.
func (b *javaBackend) fieldDefault(t *ast.CType, tok token.Token) (string, error) {
	switch {
	case t.Kind == ast.TYPE_STRUCT:
		return " = new " + t.Name + "()", nil
	case t.IsCharArray():
		return ` = ""`, nil
	case t.IsArray():
		alloc, err := b.newArray(t, tok)
		if err != nil {
			return "", err
		}
		return " = " + alloc, nil
	}
	return "", nil
}

func (b *javaBackend) newArray(t *ast.CType, tok token.Token) (string, error) {
	elem := ""
	dims := t.ArrayDims
	if t.Base.Kind == ast.TYPE_PRIMITIVE && t.Base.Name == "char" {
		elem = "String"
		dims = dims[:len(dims)-1]
	} else {
		var err error
		if elem, err = b.typeName(t.Base, tok); err != nil {
			return "", err
		}
	}
	var sb strings.Builder
	sb.WriteString("new " + elem)
	for _, dim := range dims {
		if dim == nil {
			return "", util.NewUnsupportedConstructError(tok, "array size required")
		}
		ds, err := b.expr(dim)
		if err != nil {
			return "", err
		}
		sb.WriteString("[" + ds + "]")
	}
	return sb.String(), nil
}

func (b *javaBackend) genVarDecl(node *ast.Node, static bool) error {
	d := node.Data.(ast.VarDeclNode)
	t := d.Type
	ts, err := b.typeName(t, node.Tok)
	if err != nil {
		return err
	}
	mod := ""
	if static {
		mod = "static "
	}

	if len(d.InitList) == 0 {
		switch {
		case t.Kind == ast.TYPE_STRUCT:
			b.linef("%s%s %s = new %s();", mod, ts, d.Name, t.Name)
		case t.IsCharArray():
			b.linef("%s%s %s = \"\";", mod, ts, d.Name)
		case t.IsArray():
			alloc, err := b.newArray(t, node.Tok)
			if err != nil {
				return err
			}
			b.linef("%s%s %s = %s;", mod, ts, d.Name, alloc)
		default:
			b.linef("%s%s %s;", mod, ts, d.Name)
		}
		return nil
	}

	if !d.IsList {
		// A single scalar initializer, or a string literal sizing a
		// char array; either way one expression on the right.
		val, err := b.exprP(d.InitList[0], precAssign)
		if err != nil {
			return err
		}
		b.linef("%s%s %s = %s;", mod, ts, d.Name, val)
		return nil
	}

	switch {
	case t.IsCharArray():
		return util.NewUnsupportedConstructError(node.Tok, "braced character array initializer has no translation")
	case t.IsArray():
		return b.genArrayInit(node, d, ts, mod, static)
	case t.Kind == ast.TYPE_STRUCT:
		b.linef("%s%s %s = new %s();", mod, ts, d.Name, t.Name)
		var assigns []string
		if err := b.aggregateAssigns(d.Name, t, d.InitList, &assigns); err != nil {
			return err
		}
		b.flushAssigns(assigns, static)
		return nil
	default:
		val, err := b.exprP(d.InitList[0], precAssign)
		if err != nil {
			return err
		}
		b.linef("%s%s %s = %s;", mod, ts, d.Name, val)
		return nil
	}
}

func (b *javaBackend) flushAssigns(assigns []string, static bool) {
	for _, a := range assigns {
		if static {
			b.staticInit = append(b.staticInit, a)
		} else {
			b.line(a)
		}
	}
}

func (b *javaBackend) genArrayInit(node *ast.Node, d ast.VarDeclNode, ts, mod string, static bool) error {
	t := d.Type
	full := true
	if dim := t.ArrayDims[0]; dim != nil && dim.Type == ast.Number {
		full = dim.Data.(ast.NumberNode).Value == int64(len(d.InitList))
	} else if dim != nil && dim.Type != ast.Number {
		full = false
	}

	if full {
		lit, err := b.braceInit(d.InitList)
		if err != nil {
			return err
		}
		b.linef("%s%s %s = %s;", mod, ts, d.Name, lit)
		return nil
	}

	// Partial initializer: size from the declarator, spelled-out
	// element stores after the allocation. All-zero lists collapse to
	// the allocation alone.
	alloc, err := b.newArray(t, node.Tok)
	if err != nil {
		return err
	}
	b.linef("%s%s %s = %s;", mod, ts, d.Name, alloc)
	if allZero(d.InitList) {
		return nil
	}
	var assigns []string
	for i, elem := range d.InitList {
		if elem.Type == ast.InitList {
			return util.NewUnsupportedConstructError(elem.Tok, "partial nested array initializer has no translation")
		}
		val, err := b.exprP(elem, precAssign)
		if err != nil {
			return err
		}
		assigns = append(assigns, fmt.Sprintf("%s[%d] = %s;", d.Name, i, val))
	}
	b.flushAssigns(assigns, static)
	return nil
}

func allZero(elems []*ast.Node) bool {
	for _, e := range elems {
		if e.Type != ast.Number || e.Data.(ast.NumberNode).Value != 0 {
			return false
		}
	}
	return true
}

func (b *javaBackend) braceInit(elems []*ast.Node) (string, error) {
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

func (b *javaBackend) aggregateAssigns(prefix string, t *ast.CType, elems []*ast.Node, out *[]string) error {
	for i, elem := range elems {
		field := t.Fields[i].Data.(ast.VarDeclNode)
		target := prefix + "." + field.Name
		if elem.Type == ast.InitList {
			sub := elem.Data.(ast.InitListNode).Elems
			if field.Type.Kind == ast.TYPE_STRUCT {
				if err := b.aggregateAssigns(target, field.Type, sub, out); err != nil {
					return err
				}
				continue
			}
			lit, err := b.braceInit(sub)
			if err != nil {
				return err
			}
			ts, err := b.typeName(field.Type, elem.Tok)
			if err != nil {
				return err
			}
			*out = append(*out, fmt.Sprintf("%s = new %s%s;", target, ts, lit))
			continue
		}
		val, err := b.exprP(elem, precAssign)
		if err != nil {
			return err
		}
		*out = append(*out, fmt.Sprintf("%s = %s;", target, val))
	}
	return nil
}

func (b *javaBackend) genFunc(node *ast.Node) error {
	d := node.Data.(ast.FuncDeclNode)

	if d.Name == "main" {
		if len(d.Params) > 0 {
			return util.NewUnsupportedConstructError(node.Tok, "parameters of main have no translation")
		}
		b.line("public static void main(String[] args) {")
		b.inMain = true
	} else {
		ret, err := b.typeName(d.ReturnType, node.Tok)
		if err != nil {
			return err
		}
		params := make([]string, len(d.Params))
		for i, p := range d.Params {
			pd := p.Data.(ast.VarDeclNode)
			ps, err := b.typeName(pd.Type, p.Tok)
			if err != nil {
				return err
			}
			params[i] = ps + " " + pd.Name
		}
		b.linef("static %s %s(%s) {", ret, d.Name, strings.Join(params, ", "))
	}

	b.enter()
	err := b.genStmts(d.Body.Data.(ast.BlockNode).Stmts)
	b.leave()
	b.line("}")
	b.inMain = false
	return err
}

// Statements

func (b *javaBackend) genStmts(stmts []*ast.Node) error {
	for _, s := range stmts {
		if err := b.genStmt(s); err != nil {
			return err
		}
	}
	return nil
}

// genBody emits the statements of a control structure body without
// introducing an extra brace level; the caller printed the braces.
func (b *javaBackend) genBody(node *ast.Node) error {
	if node == nil {
		return nil
	}
	if node.Type == ast.Block {
		return b.genStmts(node.Data.(ast.BlockNode).Stmts)
	}
	return b.genStmt(node)
}

func (b *javaBackend) genStmt(node *ast.Node) error {
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
		return b.genVarDecl(node, false)

	case ast.MultiVarDecl:
		for _, decl := range node.Data.(ast.MultiVarDeclNode).Decls {
			if err := b.genVarDecl(decl, false); err != nil {
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
		return b.genReturn(node)
	}
	return b.genExprStmt(node)
}

func (b *javaBackend) genExprStmt(node *ast.Node) error {
	switch node.Type {
	case ast.FuncCall:
		return b.genCallStmt(node)
	case ast.Assign, ast.PostfixOp:
		s, err := b.expr(node)
		if err != nil {
			return err
		}
		b.line(s + ";")
		return nil
	case ast.UnaryOp:
		if d := node.Data.(ast.UnaryOpNode); d.Op == token.Inc || d.Op == token.Dec {
			s, err := b.expr(node)
			if err != nil {
				return err
			}
			b.line(s + ";")
			return nil
		}
	}
	return util.NewUnsupportedConstructError(node.Tok, "expression statement has no effect")
}

func (b *javaBackend) genIf(node *ast.Node) error {
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

func (b *javaBackend) genFor(node *ast.Node) error {
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
		s, err := b.declInlineMulti(d.Init)
		if err != nil {
			return err
		}
		init = s
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

func (b *javaBackend) exprList(node *ast.Node) (string, error) {
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

func (b *javaBackend) declInline(node *ast.Node) (string, error) {
	d := node.Data.(ast.VarDeclNode)
	ts, err := b.typeName(d.Type, node.Tok)
	if err != nil {
		return "", err
	}
	if d.IsList || d.Type.IsArray() || d.Type.Kind == ast.TYPE_STRUCT {
		return "", util.NewUnsupportedConstructError(node.Tok, "only scalar declarations translate inside a for initializer")
	}
	if len(d.InitList) == 0 {
		return ts + " " + d.Name, nil
	}
	val, err := b.exprP(d.InitList[0], precAssign)
	if err != nil {
		return "", err
	}
	return ts + " " + d.Name + " = " + val, nil
}

func (b *javaBackend) declInlineMulti(node *ast.Node) (string, error) {
	decls := node.Data.(ast.MultiVarDeclNode).Decls
	first, err := b.declInline(decls[0])
	if err != nil {
		return "", err
	}
	baseType, _ := b.typeName(decls[0].Data.(ast.VarDeclNode).Type, decls[0].Tok)
	parts := []string{first}
	for _, decl := range decls[1:] {
		d := decl.Data.(ast.VarDeclNode)
		ts, err := b.typeName(d.Type, decl.Tok)
		if err != nil {
			return "", err
		}
		if ts != baseType {
			return "", util.NewUnsupportedConstructError(decl.Tok, "mixed declarators in a for initializer have no translation")
		}
		if len(d.InitList) == 0 {
			parts = append(parts, d.Name)
			continue
		}
		val, err := b.exprP(d.InitList[0], precAssign)
		if err != nil {
			return "", err
		}
		parts = append(parts, d.Name+" = "+val)
	}
	return strings.Join(parts, ", "), nil
}

func (b *javaBackend) genSwitch(node *ast.Node) error {
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

func (b *javaBackend) genReturn(node *ast.Node) error {
	d := node.Data.(ast.ReturnNode)
	if d.Expr == nil {
		b.line("return;")
		return nil
	}
	if b.inMain {
		// main's status value survives as an exit code.
		if d.Expr.Type == ast.Number && d.Expr.Tok.Type == token.Number && d.Expr.Data.(ast.NumberNode).Value == 0 {
			b.line("return;")
			return nil
		}
		s, err := b.expr(d.Expr)
		if err != nil {
			return err
		}
		b.linef("System.exit(%s);", s)
		b.line("return;")
		return nil
	}
	s, err := b.expr(d.Expr)
	if err != nil {
		return err
	}
	b.linef("return %s;", s)
	return nil
}
