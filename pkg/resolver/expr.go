package resolver

import (
	"strings"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

var typeNullPtr = &ast.CType{Kind: ast.TYPE_POINTER, Base: ast.TypeVoid}

// resolveExpr types an expression bottom-up, annotating every node.
func (r *Resolver) resolveExpr(node *ast.Node) (*ast.CType, error) {
	if node == nil {
		return ast.TypeUntyped, nil
	}
	typ, err := r.typeOf(node)
	if err != nil {
		return nil, err
	}
	node.Typ = typ
	return typ, nil
}

func (r *Resolver) typeOf(node *ast.Node) (*ast.CType, error) {
	switch node.Type {
	case ast.Number:
		switch node.Tok.Type {
		case token.True, token.False:
			return ast.TypeBool, nil
		case token.Null:
			return typeNullPtr, nil
		}
		d := node.Data.(ast.NumberNode)
		if hasLongSuffix(d.Text) || d.Value > 0x7fffffff || d.Value < -0x80000000 {
			return ast.TypeLong, nil
		}
		return ast.TypeInt, nil

	case ast.FloatNumber:
		d := node.Data.(ast.FloatNumberNode)
		if s := strings.ToLower(d.Text); strings.HasSuffix(s, "f") {
			return ast.TypeFloat, nil
		}
		return ast.TypeDouble, nil

	case ast.CharLit:
		return ast.TypeChar, nil

	case ast.String:
		return ast.TypeCharPtr, nil

	case ast.Ident:
		name := node.Data.(ast.IdentNode).Name
		sym := r.find(name, false)
		if sym == nil {
			return nil, util.NewTypeError(node.Tok, "undeclared identifier '%s'", name)
		}
		if sym.IsFunc {
			return nil, util.NewTypeError(node.Tok, "function '%s' used as a value", name)
		}
		sym.Used = true
		return sym.Type, nil

	case ast.Assign:
		return r.typeOfAssign(node)

	case ast.BinaryOp:
		return r.typeOfBinary(node)

	case ast.UnaryOp:
		return r.typeOfUnary(node)

	case ast.PostfixOp:
		d := node.Data.(ast.PostfixOpNode)
		typ, err := r.resolveExpr(d.Expr)
		if err != nil {
			return nil, err
		}
		if err := r.checkMutable(d.Expr); err != nil {
			return nil, err
		}
		if !typ.IsNumeric() && !typ.IsPointer() {
			return nil, util.NewTypeError(node.Tok, "invalid operand of type '%s' to '%s'", typ, node.Tok.Type)
		}
		return typ, nil

	case ast.FuncCall:
		return r.typeOfCall(node)

	case ast.Ternary:
		return r.typeOfTernary(node)

	case ast.Subscript:
		d := node.Data.(ast.SubscriptNode)
		arrType, err := r.resolveExpr(d.Array)
		if err != nil {
			return nil, err
		}
		idxType, err := r.resolveExpr(d.Index)
		if err != nil {
			return nil, err
		}
		if !idxType.IsInteger() && idxType.Kind != ast.TYPE_BOOL {
			return nil, util.NewTypeError(d.Index.Tok, "array index is not an integer")
		}
		switch {
		case arrType.IsArray():
			return arrType.Elem(), nil
		case arrType.IsPointer():
			if arrType.Base.Kind == ast.TYPE_VOID {
				return nil, util.NewTypeError(node.Tok, "cannot index a 'void *' value")
			}
			return arrType.Base, nil
		}
		return nil, util.NewTypeError(node.Tok, "subscripted value of type '%s' is not an array or pointer", arrType)

	case ast.MemberAccess:
		return r.typeOfMember(node)

	case ast.TypeCast:
		return r.typeOfCast(node)

	case ast.SizeofExpr:
		d := node.Data.(ast.SizeofNode)
		if d.TargetType != nil {
			typ, err := r.resolveTypeRef(d.TargetType, node.Tok)
			if err != nil {
				return nil, err
			}
			d.TargetType = typ
			node.Data = d
		} else if _, err := r.resolveExpr(d.Expr); err != nil {
			return nil, err
		}
		return ast.TypeInt, nil

	case ast.InitList:
		return nil, util.NewTypeError(node.Tok, "initializer list is only valid in a declaration")
	}

	return nil, util.NewTypeError(node.Tok, "expected an expression")
}

func hasLongSuffix(text string) bool {
	return strings.ContainsAny(text, "lL")
}

func (r *Resolver) typeOfAssign(node *ast.Node) (*ast.CType, error) {
	d := node.Data.(ast.AssignNode)
	lhsType, err := r.resolveExpr(d.Lhs)
	if err != nil {
		return nil, err
	}
	rhsType, err := r.resolveExpr(d.Rhs)
	if err != nil {
		return nil, err
	}
	if err := r.checkMutable(d.Lhs); err != nil {
		return nil, err
	}

	if d.Op == token.Eq {
		if !r.assignable(lhsType, rhsType, d.Rhs) {
			return nil, util.NewTypeError(node.Tok, "cannot assign a value of type '%s' to '%s'", rhsType, lhsType)
		}
		r.recordNarrowing(lhsType, rhsType, d.Rhs)
		return lhsType, nil
	}

	// Compound assignment. Remainder wants integers, the others accept
	// any numeric pair plus pointer arithmetic for += and -=.
	switch {
	case d.Op == token.RemEq:
		if !isIntegerish(lhsType) || !isIntegerish(rhsType) {
			return nil, util.NewTypeError(node.Tok, "invalid operands of types '%s' and '%s' to '%%='", lhsType, rhsType)
		}
	case lhsType.IsPointer() && (d.Op == token.PlusEq || d.Op == token.MinusEq):
		if !isIntegerish(rhsType) {
			return nil, util.NewTypeError(node.Tok, "invalid operands of types '%s' and '%s' to '%s'", lhsType, rhsType, d.Op)
		}
	case !lhsType.IsNumeric() || !rhsType.IsNumeric():
		return nil, util.NewTypeError(node.Tok, "invalid operands of types '%s' and '%s' to '%s'", lhsType, rhsType, d.Op)
	}
	return lhsType, nil
}

func (r *Resolver) typeOfBinary(node *ast.Node) (*ast.CType, error) {
	d := node.Data.(ast.BinaryOpNode)
	lt, err := r.resolveExpr(d.Left)
	if err != nil {
		return nil, err
	}
	rt, err := r.resolveExpr(d.Right)
	if err != nil {
		return nil, err
	}

	fail := func() error {
		return util.NewTypeError(node.Tok, "invalid operands of types '%s' and '%s' to binary '%s'", lt, rt, d.Op)
	}

	switch d.Op {
	case token.Plus, token.Minus:
		lp, rp := isPointerish(lt), isPointerish(rt)
		switch {
		case lp && isIntegerish(rt):
			return decayed(lt), nil
		case rp && isIntegerish(lt) && d.Op == token.Plus:
			return decayed(rt), nil
		case lp && rp && d.Op == token.Minus:
			return ast.TypeLong, nil
		case lt.IsNumeric() && rt.IsNumeric():
			return commonType(lt, rt), nil
		}
		return nil, fail()

	case token.Star, token.Slash:
		if !lt.IsNumeric() || !rt.IsNumeric() {
			return nil, fail()
		}
		return commonType(lt, rt), nil

	case token.Rem, token.And, token.Or, token.Xor:
		if !isIntegerish(lt) || !isIntegerish(rt) {
			return nil, fail()
		}
		return commonType(lt, rt), nil

	case token.Shl, token.Shr:
		if !isIntegerish(lt) || !isIntegerish(rt) {
			return nil, fail()
		}
		return promote(lt), nil

	case token.EqEq, token.Neq, token.Lt, token.Gt, token.Lte, token.Gte:
		ok := isArith(lt) && isArith(rt) ||
			isPointerish(lt) && isPointerish(rt) ||
			isPointerish(lt) && isNullConstant(d.Right) ||
			isPointerish(rt) && isNullConstant(d.Left)
		if !ok {
			return nil, fail()
		}
		return ast.TypeBool, nil

	case token.AndAnd, token.OrOr:
		if !isScalar(lt) || !isScalar(rt) {
			return nil, fail()
		}
		return ast.TypeBool, nil

	case token.Comma:
		return rt, nil
	}
	return nil, fail()
}

func (r *Resolver) typeOfUnary(node *ast.Node) (*ast.CType, error) {
	d := node.Data.(ast.UnaryOpNode)
	typ, err := r.resolveExpr(d.Expr)
	if err != nil {
		return nil, err
	}

	switch d.Op {
	case token.Minus, token.Plus:
		if !typ.IsNumeric() {
			return nil, util.NewTypeError(node.Tok, "invalid operand of type '%s' to unary '%s'", typ, d.Op)
		}
		return promote(typ), nil

	case token.Not:
		if !isScalar(typ) {
			return nil, util.NewTypeError(node.Tok, "invalid operand of type '%s' to '!'", typ)
		}
		return ast.TypeBool, nil

	case token.Complement:
		if !isIntegerish(typ) {
			return nil, util.NewTypeError(node.Tok, "invalid operand of type '%s' to '~'", typ)
		}
		return promote(typ), nil

	case token.Star:
		switch {
		case typ.IsPointer():
			if typ.Base.Kind == ast.TYPE_VOID {
				return nil, util.NewTypeError(node.Tok, "cannot dereference a 'void *' value")
			}
			return typ.Base, nil
		case typ.IsArray():
			return typ.Elem(), nil
		}
		return nil, util.NewTypeError(node.Tok, "cannot dereference a value of type '%s'", typ)

	case token.And:
		if typ.IsArray() {
			return ast.PointerTo(typ.Elem()), nil
		}
		return ast.PointerTo(typ), nil

	case token.Inc, token.Dec:
		if err := r.checkMutable(d.Expr); err != nil {
			return nil, err
		}
		if !typ.IsNumeric() && !typ.IsPointer() {
			return nil, util.NewTypeError(node.Tok, "invalid operand of type '%s' to '%s'", typ, d.Op)
		}
		return typ, nil
	}
	return nil, util.NewTypeError(node.Tok, "invalid unary operator '%s'", d.Op)
}

func (r *Resolver) typeOfCall(node *ast.Node) (*ast.CType, error) {
	d := node.Data.(ast.FuncCallNode)
	if d.FuncExpr.Type != ast.Ident {
		return nil, util.NewTypeError(node.Tok, "called object is not a function")
	}
	name := d.FuncExpr.Data.(ast.IdentNode).Name

	sym := r.find(name, false)
	if sym == nil {
		util.Warn(r.cfg, config.WarnImplicitDecl, node.Tok, "implicit declaration of function '%s'", name)
		sig := &ast.CType{Kind: ast.TYPE_FUNC, Return: ast.TypeInt, Variadic: true}
		sym = &Symbol{Name: name, Type: sig, IsFunc: true}
		sym.Next = r.globalScope.Symbols
		r.globalScope.Symbols = sym
	}
	if !sym.IsFunc {
		return nil, util.NewTypeError(node.Tok, "'%s' is not a function", name)
	}
	sym.Used = true
	sig := sym.Type
	d.FuncExpr.Typ = sig

	fixed := len(sig.Params)
	if sig.Variadic && len(d.Args) < fixed || !sig.Variadic && len(d.Args) != fixed {
		return nil, util.NewTypeError(node.Tok, "function '%s' expects %d argument(s), got %d", name, fixed, len(d.Args))
	}
	for i, arg := range d.Args {
		argType, err := r.resolveExpr(arg)
		if err != nil {
			return nil, err
		}
		if i >= fixed {
			continue
		}
		want := sig.Params[i]
		if !r.assignable(want, argType, arg) {
			return nil, util.NewTypeError(arg.Tok, "argument %d of '%s': cannot pass a value of type '%s' for '%s'", i+1, name, argType, want)
		}
		r.recordNarrowing(want, argType, arg)
	}
	return sig.Return, nil
}

func (r *Resolver) typeOfTernary(node *ast.Node) (*ast.CType, error) {
	d := node.Data.(ast.TernaryNode)
	if err := r.resolveCondition(d.Cond); err != nil {
		return nil, err
	}
	tt, err := r.resolveExpr(d.ThenExpr)
	if err != nil {
		return nil, err
	}
	et, err := r.resolveExpr(d.ElseExpr)
	if err != nil {
		return nil, err
	}
	switch {
	case tt.IsNumeric() && et.IsNumeric():
		return commonType(tt, et), nil
	case tt.Equals(et):
		return tt, nil
	case isPointerish(tt) && isNullConstant(d.ElseExpr):
		return decayed(tt), nil
	case isPointerish(et) && isNullConstant(d.ThenExpr):
		return decayed(et), nil
	case isPointerish(tt) && isPointerish(et):
		return decayed(tt), nil
	}
	return nil, util.NewTypeError(node.Tok, "mismatched types '%s' and '%s' in conditional expression", tt, et)
}

func (r *Resolver) typeOfMember(node *ast.Node) (*ast.CType, error) {
	d := node.Data.(ast.MemberAccessNode)
	baseType, err := r.resolveExpr(d.Expr)
	if err != nil {
		return nil, err
	}

	structType := baseType
	if d.IsArrow {
		if !baseType.IsPointer() || baseType.Base.Kind != ast.TYPE_STRUCT {
			return nil, util.NewTypeError(node.Tok, "'->' applied to a value of type '%s'", baseType)
		}
		structType = baseType.Base
	} else if baseType.Kind != ast.TYPE_STRUCT {
		return nil, util.NewTypeError(node.Tok, "request for a member in a value of type '%s'", baseType)
	}

	name := d.Member.Data.(ast.IdentNode).Name
	for _, field := range structType.Fields {
		fd := field.Data.(ast.VarDeclNode)
		if fd.Name == name {
			d.Member.Typ = fd.Type
			return fd.Type, nil
		}
	}
	return nil, util.NewTypeError(node.Tok, "no member named '%s' in 'struct %s'", name, structType.Name)
}

func (r *Resolver) typeOfCast(node *ast.Node) (*ast.CType, error) {
	d := node.Data.(ast.TypeCastNode)
	target, err := r.resolveTypeRef(d.TargetType, node.Tok)
	if err != nil {
		return nil, err
	}
	d.TargetType = target
	node.Data = d

	srcType, err := r.resolveExpr(d.Expr)
	if err != nil {
		return nil, err
	}

	ok := isScalar(target) && isScalar(srcType) ||
		target.IsPointer() && (isPointerish(srcType) || isIntegerish(srcType)) ||
		isIntegerish(target) && isPointerish(srcType) ||
		target.Kind == ast.TYPE_VOID
	if !ok {
		return nil, util.NewTypeError(node.Tok, "cannot cast a value of type '%s' to '%s'", srcType, target)
	}
	return target, nil
}

// checkMutable rejects writes through const-qualified lvalues.
func (r *Resolver) checkMutable(lhs *ast.Node) error {
	if lhs.Type == ast.Ident {
		name := lhs.Data.(ast.IdentNode).Name
		if sym := r.find(name, false); sym != nil && sym.IsConst {
			return util.NewTypeError(lhs.Tok, "assignment to constant '%s'", name)
		}
	}
	if lhs.Typ != nil && lhs.Typ.IsConst {
		return util.NewTypeError(lhs.Tok, "assignment of read-only value")
	}
	return nil
}

// Conversion rules

func typeRank(t *ast.CType) int {
	switch t.Kind {
	case ast.TYPE_BOOL:
		return 0
	case ast.TYPE_ENUM:
		return 3
	case ast.TYPE_PRIMITIVE:
		switch t.Name {
		case "char":
			return 1
		case "short":
			return 2
		case "long":
			return 4
		}
		return 3
	case ast.TYPE_FLOAT:
		if t.Name == "float" {
			return 5
		}
		return 6
	}
	return -1
}

func typeOfRank(rank int) *ast.CType {
	switch rank {
	case 4:
		return ast.TypeLong
	case 5:
		return ast.TypeFloat
	case 6:
		return ast.TypeDouble
	}
	return ast.TypeInt
}

// commonType applies the usual arithmetic conversions: everything
// below int promotes to int, then the higher-ranked operand wins.
func commonType(a, b *ast.CType) *ast.CType {
	ra, rb := typeRank(a), typeRank(b)
	if rb > ra {
		ra = rb
	}
	if ra < 3 {
		ra = 3
	}
	return typeOfRank(ra)
}

func promote(t *ast.CType) *ast.CType {
	if typeRank(t) < 3 {
		return ast.TypeInt
	}
	return t
}

func isIntegerish(t *ast.CType) bool { return t.IsInteger() || t.Kind == ast.TYPE_BOOL }
func isArith(t *ast.CType) bool      { return t.IsNumeric() || t.Kind == ast.TYPE_BOOL }
func isPointerish(t *ast.CType) bool { return t.IsPointer() || t.IsArray() }

func decayed(t *ast.CType) *ast.CType {
	if t.IsArray() {
		return ast.Decay(t)
	}
	return t
}

func isNullConstant(node *ast.Node) bool {
	if node.Type != ast.Number {
		return false
	}
	return node.Tok.Type == token.Null || node.Data.(ast.NumberNode).Value == 0
}

// assignable reports whether a value of type src may implicitly
// initialize or be assigned to a destination of type dst.
func (r *Resolver) assignable(dst, src *ast.CType, srcNode *ast.Node) bool {
	if dst == nil || src == nil {
		return false
	}
	if dst.Kind == ast.TYPE_UNTYPED || src.Kind == ast.TYPE_UNTYPED {
		return true
	}
	if (dst.IsNumeric() || dst.Kind == ast.TYPE_BOOL) && (src.IsNumeric() || src.Kind == ast.TYPE_BOOL) {
		return true
	}
	if dst.IsPointer() {
		switch {
		case src.IsArray():
			return r.assignable(dst, ast.Decay(src), srcNode)
		case src.IsPointer():
			return dst.Base.Kind == ast.TYPE_VOID || src.Base.Kind == ast.TYPE_VOID || dst.Base.Equals(src.Base)
		case src.IsInteger():
			return isNullConstant(srcNode)
		}
		return false
	}
	if dst.IsCharArray() && src.IsCharPtr() && srcNode != nil && srcNode.Type == ast.String {
		return true
	}
	if dst.Kind == ast.TYPE_STRUCT && src.Kind == ast.TYPE_STRUCT {
		return dst.Name == src.Name
	}
	return dst.Equals(src)
}

// recordNarrowing marks conversions the source performs implicitly but
// a stricter target language spells out. The cast itself is emitted by
// the back ends; nothing is rewritten here.
func (r *Resolver) recordNarrowing(dst, src *ast.CType, expr *ast.Node) {
	if expr == nil || dst == nil || src == nil {
		return
	}
	if dst.Kind == ast.TYPE_BOOL && src.IsNumeric() {
		expr.Narrowed = ast.TypeBool
		return
	}
	if dst.IsNumeric() && src.Kind == ast.TYPE_BOOL {
		expr.Narrowed = dst
		return
	}
	if !dst.IsNumeric() || !src.IsNumeric() {
		return
	}
	if typeRank(dst) < typeRank(src) {
		expr.Narrowed = dst
		util.Warn(r.cfg, config.WarnNarrowing, expr.Tok, "implicit conversion from '%s' to '%s' may lose precision", src, dst)
	}
}

// evalConst folds an integer constant expression, resolving enum
// members and macro constants through the symbol table.
func (r *Resolver) evalConst(node *ast.Node) (int64, bool) {
	switch node.Type {
	case ast.Number:
		return node.Data.(ast.NumberNode).Value, true
	case ast.CharLit:
		return node.Data.(ast.CharNode).Value, true
	case ast.Ident:
		sym := r.find(node.Data.(ast.IdentNode).Name, false)
		if sym != nil && sym.IsConst && sym.Type != nil && sym.Type.IsInteger() {
			return sym.ConstVal, true
		}
		return 0, false
	case ast.UnaryOp:
		d := node.Data.(ast.UnaryOpNode)
		v, ok := r.evalConst(d.Expr)
		if !ok {
			return 0, false
		}
		switch d.Op {
		case token.Minus:
			return -v, true
		case token.Plus:
			return v, true
		case token.Complement:
			return ^v, true
		case token.Not:
			if v == 0 {
				return 1, true
			}
			return 0, true
		}
		return 0, false
	case ast.BinaryOp:
		d := node.Data.(ast.BinaryOpNode)
		l, ok := r.evalConst(d.Left)
		if !ok {
			return 0, false
		}
		rr, ok := r.evalConst(d.Right)
		if !ok {
			return 0, false
		}
		return applyConstOp(d.Op, l, rr)
	case ast.Ternary:
		d := node.Data.(ast.TernaryNode)
		c, ok := r.evalConst(d.Cond)
		if !ok {
			return 0, false
		}
		if c != 0 {
			return r.evalConst(d.ThenExpr)
		}
		return r.evalConst(d.ElseExpr)
	case ast.TypeCast:
		d := node.Data.(ast.TypeCastNode)
		if d.TargetType != nil && d.TargetType.IsInteger() {
			return r.evalConst(d.Expr)
		}
	}
	return 0, false
}

func applyConstOp(op token.Type, l, r int64) (int64, bool) {
	switch op {
	case token.Plus:
		return l + r, true
	case token.Minus:
		return l - r, true
	case token.Star:
		return l * r, true
	case token.Slash:
		if r == 0 {
			return 0, false
		}
		return l / r, true
	case token.Rem:
		if r == 0 {
			return 0, false
		}
		return l % r, true
	case token.And:
		return l & r, true
	case token.Or:
		return l | r, true
	case token.Xor:
		return l ^ r, true
	case token.Shl:
		return l << uint(r), true
	case token.Shr:
		return l >> uint(r), true
	case token.EqEq:
		return boolInt(l == r), true
	case token.Neq:
		return boolInt(l != r), true
	case token.Lt:
		return boolInt(l < r), true
	case token.Gt:
		return boolInt(l > r), true
	case token.Lte:
		return boolInt(l <= r), true
	case token.Gte:
		return boolInt(l >= r), true
	case token.AndAnd:
		return boolInt(l != 0 && r != 0), true
	case token.OrOr:
		return boolInt(l != 0 || r != 0), true
	}
	return 0, false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
