package resolver

import (
	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/mapping"
	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

type Symbol struct {
	Name     string
	Type     *ast.CType
	IsFunc   bool
	IsType   bool // struct/enum tag
	IsConst  bool // #define or enum member
	IsParam  bool
	Builtin  bool // seeded from the mapping table
	Used     bool
	ConstVal int64
	Node     *ast.Node
	Next     *Symbol
}

type Scope struct { Symbols *Symbol; Parent *Scope }

type Resolver struct {
	currentScope *Scope
	globalScope  *Scope
	currentFunc  *ast.FuncDeclNode
	cfg          *config.Config
	loopDepth    int
	switchDepth  int
}

// NewResolver builds a resolver whose outermost scope is pre-seeded
// with the mapping table's library signatures, so calls to mapped
// routines resolve without in-unit declarations.
func NewResolver(cfg *config.Config) *Resolver {
	builtins := newScope(nil)
	for _, d := range mapping.Table {
		if d.Sig == nil {
			continue
		}
		builtins.Symbols = &Symbol{
			Name: d.Name, Type: d.Sig, IsFunc: true, Builtin: true, Next: builtins.Symbols,
		}
	}
	globalScope := newScope(builtins)
	return &Resolver{currentScope: globalScope, globalScope: globalScope, cfg: cfg}
}

func newScope(parent *Scope) *Scope { return &Scope{Parent: parent} }
func (r *Resolver) enterScope()     { r.currentScope = newScope(r.currentScope) }

func (r *Resolver) exitScope() {
	for sym := r.currentScope.Symbols; sym != nil; sym = sym.Next {
		if !sym.Used && !sym.IsFunc && !sym.IsType && !sym.IsConst && !sym.IsParam && sym.Node != nil {
			util.Warn(r.cfg, config.WarnUnused, sym.Node.Tok, "unused variable '%s'", sym.Name)
		}
	}
	if r.currentScope.Parent != nil {
		r.currentScope = r.currentScope.Parent
	}
}

func (r *Resolver) declare(sym *Symbol) {
	sym.Next = r.currentScope.Symbols
	r.currentScope.Symbols = sym
}

func (r *Resolver) find(name string, findTypes bool) *Symbol {
	return r.findInScopes(name, findTypes, false)
}

func (r *Resolver) findInCurrentScope(name string, findTypes bool) *Symbol {
	return r.findInScopes(name, findTypes, true)
}

func (r *Resolver) findInScopes(name string, findTypes, currentOnly bool) *Symbol {
	for s := r.currentScope; s != nil; s = s.Parent {
		for sym := s.Symbols; sym != nil; sym = sym.Next {
			if sym.Name == name && sym.IsType == findTypes {
				return sym
			}
		}
		if currentOnly {
			break
		}
	}
	return nil
}

// Resolve runs both passes over a translation unit: collect file-scope
// names, then resolve every body depth-first.
func (r *Resolver) Resolve(root *ast.Node) error {
	if err := r.collectGlobals(root); err != nil {
		return err
	}
	return r.resolveNode(root)
}

// collectGlobals enters every file-scope name before any body is
// resolved, so forward references work. Struct tags land first, field
// types after, which lets structs point at each other.
func (r *Resolver) collectGlobals(root *ast.Node) error {
	if root == nil || root.Type != ast.Block {
		return nil
	}
	stmts := root.Data.(ast.BlockNode).Stmts

	for _, stmt := range stmts {
		if stmt.Type != ast.StructDecl {
			continue
		}
		d := stmt.Data.(ast.StructDeclNode)
		if r.findInCurrentScope(d.Name, true) != nil {
			return util.NewTypeError(stmt.Tok, "redefinition of 'struct %s'", d.Name)
		}
		typ := &ast.CType{Kind: ast.TYPE_STRUCT, Name: d.Name, Fields: d.Fields}
		r.declare(&Symbol{Name: d.Name, Type: typ, IsType: true, Node: stmt})
	}

	for _, stmt := range stmts {
		var err error
		switch stmt.Type {
		case ast.StructDecl:
			err = r.collectStructFields(stmt)
		case ast.EnumDecl:
			err = r.collectEnum(stmt)
		case ast.ConstDecl:
			err = r.collectConst(stmt)
		case ast.FuncDecl:
			err = r.collectFunc(stmt)
		case ast.VarDecl:
			err = r.collectGlobalVar(stmt)
		case ast.MultiVarDecl:
			for _, decl := range stmt.Data.(ast.MultiVarDeclNode).Decls {
				if err = r.collectGlobalVar(decl); err != nil {
					break
				}
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func (r *Resolver) collectStructFields(stmt *ast.Node) error {
	d := stmt.Data.(ast.StructDeclNode)
	seen := make(map[string]bool)
	for _, field := range d.Fields {
		fd := field.Data.(ast.VarDeclNode)
		if seen[fd.Name] {
			return util.NewTypeError(field.Tok, "duplicate member '%s' in struct '%s'", fd.Name, d.Name)
		}
		seen[fd.Name] = true
		typ, err := r.resolveTypeRef(fd.Type, field.Tok)
		if err != nil {
			return err
		}
		fd.Type = typ
		field.Data = fd
		field.Typ = typ
	}
	return nil
}

func (r *Resolver) collectEnum(stmt *ast.Node) error {
	d := stmt.Data.(ast.EnumDeclNode)
	if r.findInCurrentScope(d.Name, true) != nil {
		return util.NewTypeError(stmt.Tok, "redefinition of 'enum %s'", d.Name)
	}
	typ := &ast.CType{Kind: ast.TYPE_ENUM, Name: d.Name}
	r.declare(&Symbol{Name: d.Name, Type: typ, IsType: true, Node: stmt})

	next := int64(0)
	for _, member := range d.Members {
		if r.findInCurrentScope(member.Name, false) != nil {
			return util.NewTypeError(member.Tok, "redefinition of '%s'", member.Name)
		}
		if member.Value != nil {
			val, ok := r.evalConst(member.Value)
			if !ok {
				return util.NewTypeError(member.Tok, "enumerator value for '%s' is not an integer constant", member.Name)
			}
			next = val
		}
		r.declare(&Symbol{Name: member.Name, Type: typ, IsConst: true, ConstVal: next, Node: stmt})
		next++
	}
	return nil
}

func (r *Resolver) collectConst(stmt *ast.Node) error {
	d := stmt.Data.(ast.ConstDeclNode)
	if r.findInCurrentScope(d.Name, false) != nil {
		return util.NewTypeError(stmt.Tok, "redefinition of '%s'", d.Name)
	}
	sym := &Symbol{Name: d.Name, IsConst: true, Node: stmt}
	switch d.Value.Type {
	case ast.Number:
		sym.Type = ast.TypeInt
		sym.ConstVal = d.Value.Data.(ast.NumberNode).Value
	case ast.CharLit:
		sym.Type = ast.TypeChar
		sym.ConstVal = d.Value.Data.(ast.CharNode).Value
	case ast.FloatNumber:
		sym.Type = ast.TypeDouble
	case ast.String:
		sym.Type = ast.TypeCharPtr
	default:
		// Folding reduces the admitted macro bodies to literals; a
		// negated float is the one shape that comes through composite.
		if u, ok := d.Value.Data.(ast.UnaryOpNode); ok && u.Op == token.Minus && u.Expr.Type == ast.FloatNumber {
			sym.Type = ast.TypeDouble
			break
		}
		val, ok := r.evalConst(d.Value)
		if !ok {
			return util.NewTypeError(stmt.Tok, "macro '%s' does not name a constant", d.Name)
		}
		sym.Type = ast.TypeInt
		sym.ConstVal = val
	}
	stmt.Typ = sym.Type
	r.declare(sym)
	return nil
}

func (r *Resolver) collectFunc(stmt *ast.Node) error {
	d := stmt.Data.(ast.FuncDeclNode)

	retType, err := r.resolveTypeRef(d.ReturnType, stmt.Tok)
	if err != nil {
		return err
	}
	if retType.IsArray() {
		return util.NewTypeError(stmt.Tok, "function '%s' cannot return an array", d.Name)
	}
	d.ReturnType = retType

	sig := &ast.CType{Kind: ast.TYPE_FUNC, Return: retType, Variadic: d.HasVarargs}
	for _, param := range d.Params {
		pd := param.Data.(ast.VarDeclNode)
		ptype, err := r.resolveTypeRef(pd.Type, param.Tok)
		if err != nil {
			return err
		}
		// Array parameters adjust to pointers, recorded as decayed.
		ptype = ast.Decay(ptype)
		pd.Type = ptype
		param.Data = pd
		param.Typ = ptype
		sig.Params = append(sig.Params, ptype)
	}
	stmt.Data = d

	if existing := r.findInCurrentScope(d.Name, false); existing != nil {
		if !existing.IsFunc {
			return util.NewTypeError(stmt.Tok, "redefinition of '%s'", d.Name)
		}
		if !signaturesMatch(existing.Type, sig) {
			return util.NewTypeError(stmt.Tok, "conflicting declaration of '%s'", d.Name)
		}
		prevDef := existing.Node != nil && !existing.Node.Data.(ast.FuncDeclNode).IsPrototype
		if prevDef && !d.IsPrototype {
			return util.NewTypeError(stmt.Tok, "redefinition of '%s'", d.Name)
		}
		if !d.IsPrototype {
			existing.Node, existing.Type = stmt, sig
		}
		return nil
	}

	r.declare(&Symbol{Name: d.Name, Type: sig, IsFunc: true, Node: stmt})
	return nil
}

func signaturesMatch(a, b *ast.CType) bool {
	if a == nil || b == nil || a.Kind != ast.TYPE_FUNC || b.Kind != ast.TYPE_FUNC {
		return false
	}
	if !a.Return.Equals(b.Return) || len(a.Params) != len(b.Params) || a.Variadic != b.Variadic {
		return false
	}
	for i := range a.Params {
		if !a.Params[i].Equals(b.Params[i]) {
			return false
		}
	}
	return true
}

func (r *Resolver) collectGlobalVar(stmt *ast.Node) error {
	d := stmt.Data.(ast.VarDeclNode)
	if r.findInCurrentScope(d.Name, false) != nil {
		return util.NewTypeError(stmt.Tok, "redefinition of '%s'", d.Name)
	}
	typ, err := r.resolveTypeRef(d.Type, stmt.Tok)
	if err != nil {
		return err
	}
	d.Type = typ
	stmt.Data = d
	r.declare(&Symbol{Name: d.Name, Type: typ, Node: stmt})
	return nil
}

// resolveTypeRef replaces struct/enum tag references with the declared
// type and checks the tag exists.
func (r *Resolver) resolveTypeRef(t *ast.CType, tok token.Token) (*ast.CType, error) {
	if t == nil {
		return ast.TypeUntyped, nil
	}
	switch t.Kind {
	case ast.TYPE_STRUCT, ast.TYPE_ENUM:
		sym := r.find(t.Name, true)
		if sym == nil || sym.Type.Kind != t.Kind {
			if t.Kind == ast.TYPE_STRUCT {
				return nil, util.NewTypeError(tok, "unknown struct '%s'", t.Name)
			}
			return nil, util.NewTypeError(tok, "unknown enum '%s'", t.Name)
		}
		return sym.Type, nil
	case ast.TYPE_POINTER:
		base, err := r.resolveTypeRef(t.Base, tok)
		if err != nil {
			return nil, err
		}
		if base == t.Base {
			return t, nil
		}
		return &ast.CType{Kind: ast.TYPE_POINTER, Base: base, Decayed: t.Decayed}, nil
	case ast.TYPE_ARRAY:
		base, err := r.resolveTypeRef(t.Base, tok)
		if err != nil {
			return nil, err
		}
		for _, dim := range t.ArrayDims {
			if dim == nil {
				continue
			}
			if _, ok := r.evalConst(dim); !ok {
				return nil, util.NewTypeError(dim.Tok, "array dimension is not an integer constant")
			}
		}
		if base == t.Base {
			return t, nil
		}
		return &ast.CType{Kind: ast.TYPE_ARRAY, Base: base, ArrayDims: t.ArrayDims}, nil
	}
	return t, nil
}

// Statement resolution

func (r *Resolver) resolveNode(node *ast.Node) error {
	if node == nil {
		return nil
	}
	switch node.Type {
	case ast.Block:
		d := node.Data.(ast.BlockNode)
		if !d.IsSynthetic {
			r.enterScope()
			defer r.exitScope()
		}
		return r.resolveStmts(d.Stmts)

	case ast.FuncDecl:
		return r.resolveFuncDecl(node)

	case ast.VarDecl:
		return r.resolveVarDecl(node)

	case ast.MultiVarDecl:
		for _, decl := range node.Data.(ast.MultiVarDeclNode).Decls {
			if err := r.resolveVarDecl(decl); err != nil {
				return err
			}
		}
		return nil

	case ast.If:
		d := node.Data.(ast.IfNode)
		if err := r.resolveCondition(d.Cond); err != nil {
			return err
		}
		if err := r.resolveNode(d.ThenBody); err != nil {
			return err
		}
		return r.resolveNode(d.ElseBody)

	case ast.While:
		d := node.Data.(ast.WhileNode)
		if err := r.resolveCondition(d.Cond); err != nil {
			return err
		}
		r.loopDepth++
		defer func() { r.loopDepth-- }()
		return r.resolveNode(d.Body)

	case ast.DoWhile:
		d := node.Data.(ast.DoWhileNode)
		r.loopDepth++
		if err := r.resolveNode(d.Body); err != nil {
			r.loopDepth--
			return err
		}
		r.loopDepth--
		return r.resolveCondition(d.Cond)

	case ast.For:
		return r.resolveFor(node)

	case ast.Switch:
		return r.resolveSwitch(node)

	case ast.Break:
		if r.loopDepth == 0 && r.switchDepth == 0 {
			return util.NewTypeError(node.Tok, "break statement not within a loop or switch")
		}
		return nil

	case ast.Continue:
		if r.loopDepth == 0 {
			return util.NewTypeError(node.Tok, "continue statement not within a loop")
		}
		return nil

	case ast.Return:
		return r.resolveReturn(node)

	case ast.StructDecl, ast.EnumDecl, ast.ConstDecl:
		// Entered during the collect pass.
		return nil
	}

	_, err := r.resolveExpr(node)
	return err
}

func (r *Resolver) resolveStmts(stmts []*ast.Node) error {
	reported := false
	terminated := false
	for _, stmt := range stmts {
		if terminated && !reported {
			util.Warn(r.cfg, config.WarnUnreachableCode, stmt.Tok, "unreachable code")
			reported = true
		}
		if err := r.resolveNode(stmt); err != nil {
			return err
		}
		switch stmt.Type {
		case ast.Return, ast.Break, ast.Continue:
			terminated = true
		}
	}
	return nil
}

func (r *Resolver) resolveFuncDecl(node *ast.Node) error {
	d := node.Data.(ast.FuncDeclNode)
	if d.IsPrototype {
		return nil
	}
	prevFunc := r.currentFunc
	prevLoop, prevSwitch := r.loopDepth, r.switchDepth
	r.currentFunc, r.loopDepth, r.switchDepth = &d, 0, 0
	defer func() {
		r.currentFunc, r.loopDepth, r.switchDepth = prevFunc, prevLoop, prevSwitch
	}()

	// Parameters share the body scope.
	r.enterScope()
	defer r.exitScope()
	for _, param := range d.Params {
		pd := param.Data.(ast.VarDeclNode)
		if r.findInCurrentScope(pd.Name, false) != nil {
			return util.NewTypeError(param.Tok, "redefinition of parameter '%s'", pd.Name)
		}
		r.declare(&Symbol{Name: pd.Name, Type: pd.Type, IsParam: true, Node: param})
	}
	return r.resolveStmts(d.Body.Data.(ast.BlockNode).Stmts)
}

func (r *Resolver) resolveVarDecl(node *ast.Node) error {
	d := node.Data.(ast.VarDeclNode)

	isGlobal := r.currentFunc == nil
	if !isGlobal {
		if r.findInCurrentScope(d.Name, false) != nil {
			return util.NewTypeError(node.Tok, "redefinition of '%s'", d.Name)
		}
		typ, err := r.resolveTypeRef(d.Type, node.Tok)
		if err != nil {
			return err
		}
		d.Type = typ
		node.Data = d
		if outer := r.find(d.Name, false); outer != nil && !outer.IsFunc && !outer.Builtin {
			util.Warn(r.cfg, config.WarnShadow, node.Tok, "declaration of '%s' shadows an earlier declaration", d.Name)
		}
		r.declare(&Symbol{Name: d.Name, Type: d.Type, Node: node})
	}
	node.Typ = d.Type

	if len(d.InitList) == 0 {
		return nil
	}
	if d.IsList || d.Type.IsArray() || d.Type.Kind == ast.TYPE_STRUCT {
		return r.resolveAggregateInit(node, &d)
	}

	initExpr := d.InitList[0]
	initType, err := r.resolveExpr(initExpr)
	if err != nil {
		return err
	}
	if !r.assignable(d.Type, initType, initExpr) {
		return util.NewTypeError(node.Tok, "cannot initialize '%s' with a value of type '%s'", d.Type, initType)
	}
	r.recordNarrowing(d.Type, initType, initExpr)
	return nil
}

// resolveAggregateInit checks braced initializers field-by-field for
// structs and element-by-element for arrays, in declaration order.
func (r *Resolver) resolveAggregateInit(node *ast.Node, d *ast.VarDeclNode) error {
	typ := d.Type
	if typ.Kind == ast.TYPE_STRUCT {
		if !d.IsList {
			return util.NewTypeError(node.Tok, "struct initializer requires braces")
		}
		if len(d.InitList) > len(typ.Fields) {
			return util.NewTypeError(node.Tok, "too many initializers for 'struct %s'", typ.Name)
		}
		for i, elem := range d.InitList {
			fieldType := typ.Fields[i].Data.(ast.VarDeclNode).Type
			if err := r.resolveInitElem(elem, fieldType); err != nil {
				return err
			}
		}
		return nil
	}

	if typ.IsArray() {
		// A bare string literal both initializes and sizes a char array.
		if !d.IsList && len(d.InitList) == 1 && d.InitList[0].Type == ast.String && typ.IsCharArray() {
			strVal := d.InitList[0].Data.(ast.StringNode).Value
			if _, err := r.resolveExpr(d.InitList[0]); err != nil {
				return err
			}
			if typ.ArrayDims[0] == nil {
				typ.ArrayDims[0] = ast.NewNumber(node.Tok, int64(len(strVal)+1), "")
			} else if n, ok := r.evalConst(typ.ArrayDims[0]); ok && int64(len(strVal)+1) > n {
				return util.NewTypeError(node.Tok, "initializer string for '%s' is too long", d.Name)
			}
			return nil
		}
		if !d.IsList {
			return util.NewTypeError(node.Tok, "array initializer requires braces")
		}
		elemType := typ.Elem()
		if typ.ArrayDims[0] == nil {
			typ.ArrayDims[0] = ast.NewNumber(node.Tok, int64(len(d.InitList)), "")
		} else if n, ok := r.evalConst(typ.ArrayDims[0]); ok && int64(len(d.InitList)) > n {
			return util.NewTypeError(node.Tok, "too many initializers for '%s'", typ)
		}
		for _, elem := range d.InitList {
			if err := r.resolveInitElem(elem, elemType); err != nil {
				return err
			}
		}
		return nil
	}

	if d.IsList {
		if len(d.InitList) != 1 {
			return util.NewTypeError(node.Tok, "too many initializers for '%s'", typ)
		}
		return r.resolveInitElem(d.InitList[0], typ)
	}
	return nil
}

func (r *Resolver) resolveInitElem(elem *ast.Node, want *ast.CType) error {
	if elem.Type == ast.InitList {
		d := elem.Data.(ast.InitListNode)
		if want.Kind == ast.TYPE_STRUCT {
			if len(d.Elems) > len(want.Fields) {
				return util.NewTypeError(elem.Tok, "too many initializers for 'struct %s'", want.Name)
			}
			for i, sub := range d.Elems {
				fieldType := want.Fields[i].Data.(ast.VarDeclNode).Type
				if err := r.resolveInitElem(sub, fieldType); err != nil {
					return err
				}
			}
			elem.Typ = want
			return nil
		}
		if want.IsArray() {
			if dim := want.ArrayDims[0]; dim != nil {
				if n, ok := r.evalConst(dim); ok && int64(len(d.Elems)) > n {
					return util.NewTypeError(elem.Tok, "too many initializers for '%s'", want)
				}
			}
			elemType := want.Elem()
			for _, sub := range d.Elems {
				if err := r.resolveInitElem(sub, elemType); err != nil {
					return err
				}
			}
			elem.Typ = want
			return nil
		}
		return util.NewTypeError(elem.Tok, "braced initializer for scalar type '%s'", want)
	}

	got, err := r.resolveExpr(elem)
	if err != nil {
		return err
	}
	if !r.assignable(want, got, elem) {
		return util.NewTypeError(elem.Tok, "cannot initialize '%s' with a value of type '%s'", want, got)
	}
	r.recordNarrowing(want, got, elem)
	return nil
}

func (r *Resolver) resolveFor(node *ast.Node) error {
	d := node.Data.(ast.ForNode)
	r.enterScope()
	defer r.exitScope()

	if d.Init != nil {
		if err := r.resolveNode(d.Init); err != nil {
			return err
		}
	}
	if d.Cond != nil {
		if err := r.resolveCondition(d.Cond); err != nil {
			return err
		}
	}
	if d.Post != nil {
		if _, err := r.resolveExpr(d.Post); err != nil {
			return err
		}
	}
	r.loopDepth++
	defer func() { r.loopDepth-- }()
	return r.resolveNode(d.Body)
}

func (r *Resolver) resolveSwitch(node *ast.Node) error {
	d := node.Data.(ast.SwitchNode)
	exprType, err := r.resolveExpr(d.Expr)
	if err != nil {
		return err
	}
	if !exprType.IsInteger() && exprType.Kind != ast.TYPE_BOOL {
		return util.NewTypeError(d.Expr.Tok, "switch quantity is not an integer")
	}

	r.enterScope()
	r.switchDepth++
	defer func() {
		r.switchDepth--
		r.exitScope()
	}()

	seen := make(map[int64]bool)
	haveDefault := false
	for _, group := range d.Body.Data.(ast.BlockNode).Stmts {
		switch group.Type {
		case ast.Case:
			cd := group.Data.(ast.CaseNode)
			for _, value := range cd.Values {
				if _, err := r.resolveExpr(value); err != nil {
					return err
				}
				val, ok := r.evalConst(value)
				if !ok {
					return util.NewTypeError(value.Tok, "case label is not an integer constant")
				}
				if seen[val] {
					return util.NewTypeError(value.Tok, "duplicate case value %d", val)
				}
				seen[val] = true
			}
			if err := r.resolveNode(cd.Body); err != nil {
				return err
			}
		case ast.Default:
			if haveDefault {
				return util.NewTypeError(group.Tok, "multiple default labels in one switch")
			}
			haveDefault = true
			if err := r.resolveNode(group.Data.(ast.DefaultNode).Body); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *Resolver) resolveReturn(node *ast.Node) error {
	d := node.Data.(ast.ReturnNode)
	if r.currentFunc == nil {
		return util.NewTypeError(node.Tok, "return statement outside of a function")
	}
	retType := r.currentFunc.ReturnType
	if d.Expr == nil {
		if retType.Kind != ast.TYPE_VOID {
			return util.NewTypeError(node.Tok, "return with no value in function returning '%s'", retType)
		}
		return nil
	}
	if retType.Kind == ast.TYPE_VOID {
		return util.NewTypeError(node.Tok, "return with a value in function returning void")
	}
	exprType, err := r.resolveExpr(d.Expr)
	if err != nil {
		return err
	}
	if !r.assignable(retType, exprType, d.Expr) {
		return util.NewTypeError(node.Tok, "cannot return '%s' from a function returning '%s'", exprType, retType)
	}
	r.recordNarrowing(retType, exprType, d.Expr)
	return nil
}

func (r *Resolver) resolveCondition(node *ast.Node) error {
	typ, err := r.resolveExpr(node)
	if err != nil {
		return err
	}
	if !isScalar(typ) {
		return util.NewTypeError(node.Tok, "expression of type '%s' cannot be a condition", typ)
	}
	return nil
}

func isScalar(t *ast.CType) bool {
	return t.IsNumeric() || t.IsPointer() || t.Kind == ast.TYPE_BOOL || t.Kind == ast.TYPE_UNTYPED
}
