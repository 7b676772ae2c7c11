// Package ast defines the types used to represent the Abstract Syntax Tree (AST)
package ast

import (
	"fmt"

	"github.com/xplshn/gct/pkg/token"
)

// NodeType defines the kind of a node in the AST
type NodeType int

// Node types enum
const (
	// Expressions
	Number NodeType = iota
	FloatNumber
	CharLit
	String
	Ident
	Assign
	BinaryOp
	UnaryOp
	PostfixOp
	FuncCall
	Ternary
	Subscript
	MemberAccess
	TypeCast
	SizeofExpr
	InitList

	// Declarations and statements
	FuncDecl
	VarDecl
	MultiVarDecl
	StructDecl
	EnumDecl
	ConstDecl
	If
	While
	DoWhile
	For
	Switch
	Case
	Default
	Break
	Continue
	Return
	Block
)

// Node represents a node in the Abstract Syntax Tree. Nodes only point
// downward; walks that need context carry it themselves.
type Node struct {
	Type     NodeType
	Tok      token.Token
	Data     interface{}
	Typ      *CType // Set by the resolver
	Narrowed *CType // Implicit narrowing recorded by the resolver, nil if none
}

// CTypeKind defines the kind of a CType
type CTypeKind int

// CType kinds enum
const (
	TYPE_PRIMITIVE CTypeKind = iota
	TYPE_FLOAT
	TYPE_BOOL
	TYPE_VOID
	TYPE_POINTER
	TYPE_ARRAY
	TYPE_STRUCT
	TYPE_ENUM
	TYPE_FUNC
	TYPE_UNTYPED
)

// CType represents a source-language type
type CType struct {
	Kind      CTypeKind
	Base      *CType  // Pointee for pointers, element type for arrays
	Name      string  // Primitive name or struct/enum tag
	ArrayDims []*Node // One expression per bracket, nil entry when inferred
	Unsigned  bool
	IsConst   bool
	Decayed   bool    // Pointer obtained from an array lvalue
	Fields    []*Node // VarDecl nodes for struct members
	Params    []*CType
	Return    *CType
	Variadic  bool
}

// Pre-defined types
var (
	TypeChar    = &CType{Kind: TYPE_PRIMITIVE, Name: "char"}
	TypeShort   = &CType{Kind: TYPE_PRIMITIVE, Name: "short"}
	TypeInt     = &CType{Kind: TYPE_PRIMITIVE, Name: "int"}
	TypeLong    = &CType{Kind: TYPE_PRIMITIVE, Name: "long"}
	TypeFloat   = &CType{Kind: TYPE_FLOAT, Name: "float"}
	TypeDouble  = &CType{Kind: TYPE_FLOAT, Name: "double"}
	TypeBool    = &CType{Kind: TYPE_BOOL, Name: "bool"}
	TypeVoid    = &CType{Kind: TYPE_VOID, Name: "void"}
	TypeUntyped = &CType{Kind: TYPE_UNTYPED, Name: "untyped"}
	TypeCharPtr = &CType{Kind: TYPE_POINTER, Base: TypeChar}
)

func PointerTo(base *CType) *CType {
	return &CType{Kind: TYPE_POINTER, Base: base}
}

func ArrayOf(base *CType, dims []*Node) *CType {
	return &CType{Kind: TYPE_ARRAY, Base: base, ArrayDims: dims}
}

// Elem returns the type one subscript yields: the element type for the
// last dimension, an array with the remaining dimensions otherwise.
func (t *CType) Elem() *CType {
	if t == nil {
		return nil
	}
	if t.Kind == TYPE_POINTER {
		return t.Base
	}
	if t.Kind != TYPE_ARRAY || len(t.ArrayDims) <= 1 {
		return t.Base
	}
	return &CType{Kind: TYPE_ARRAY, Base: t.Base, ArrayDims: t.ArrayDims[1:]}
}

// Decay converts an array type to the pointer type an array lvalue
// yields in value context. The result is marked so later passes can
// tell a decayed pointer from a declared one.
func Decay(t *CType) *CType {
	if t != nil && t.Kind == TYPE_ARRAY {
		return &CType{Kind: TYPE_POINTER, Base: t.Elem(), Decayed: true}
	}
	return t
}

func (t *CType) IsInteger() bool {
	return t != nil && (t.Kind == TYPE_PRIMITIVE || t.Kind == TYPE_ENUM)
}

func (t *CType) IsFloat() bool {
	return t != nil && t.Kind == TYPE_FLOAT
}

func (t *CType) IsNumeric() bool {
	return t.IsInteger() || t.IsFloat()
}

func (t *CType) IsPointer() bool {
	return t != nil && t.Kind == TYPE_POINTER
}

func (t *CType) IsArray() bool {
	return t != nil && t.Kind == TYPE_ARRAY
}

// IsCharPtr reports whether t is 'char *', the representation the
// string mapping keys on.
func (t *CType) IsCharPtr() bool {
	return t.IsPointer() && t.Base != nil && t.Base.Kind == TYPE_PRIMITIVE && t.Base.Name == "char" && !t.Base.Unsigned
}

// IsCharArray reports whether t is 'char [N]', a single-dimension
// character buffer.
func (t *CType) IsCharArray() bool {
	return t.IsArray() && len(t.ArrayDims) == 1 &&
		t.Base != nil && t.Base.Kind == TYPE_PRIMITIVE && t.Base.Name == "char" && !t.Base.Unsigned
}

// Equals compares two types structurally. Array sizes are ignored so
// that 'char [16]' and 'char [32]' compare equal where only the shape
// matters.
func (t *CType) Equals(o *CType) bool {
	if t == o {
		return true
	}
	if t == nil || o == nil || t.Kind != o.Kind {
		return false
	}
	switch t.Kind {
	case TYPE_PRIMITIVE:
		return t.Name == o.Name && t.Unsigned == o.Unsigned
	case TYPE_FLOAT:
		return t.Name == o.Name
	case TYPE_POINTER:
		return t.Base.Equals(o.Base)
	case TYPE_ARRAY:
		return len(t.ArrayDims) == len(o.ArrayDims) && t.Base.Equals(o.Base)
	case TYPE_STRUCT, TYPE_ENUM:
		return t.Name == o.Name
	default:
		return true
	}
}

// String renders the type in source spelling for diagnostics.
func (t *CType) String() string {
	if t == nil {
		return "<nil>"
	}
	switch t.Kind {
	case TYPE_PRIMITIVE:
		if t.Unsigned {
			return "unsigned " + t.Name
		}
		return t.Name
	case TYPE_FLOAT, TYPE_BOOL, TYPE_VOID, TYPE_UNTYPED:
		return t.Name
	case TYPE_POINTER:
		return t.Base.String() + " *"
	case TYPE_ARRAY:
		s := t.Base.String() + " "
		for _, dim := range t.ArrayDims {
			if dim != nil && dim.Type == Number {
				s += fmt.Sprintf("[%d]", dim.Data.(NumberNode).Value)
			} else {
				s += "[]"
			}
		}
		return s
	case TYPE_STRUCT:
		return "struct " + t.Name
	case TYPE_ENUM:
		return "enum " + t.Name
	case TYPE_FUNC:
		return "function"
	}
	return "<unknown>"
}

// --- Node Data Structs ---
type NumberNode struct{ Value int64; Text string }
type FloatNumberNode struct{ Value float64; Text string }
type CharNode struct{ Value int64 }
type StringNode struct{ Value string }
type IdentNode struct{ Name string }
type AssignNode struct{ Op token.Type; Lhs, Rhs *Node }
type BinaryOpNode struct{ Op token.Type; Left, Right *Node }
type UnaryOpNode struct{ Op token.Type; Expr *Node }
type PostfixOpNode struct{ Op token.Type; Expr *Node }
type TernaryNode struct{ Cond, ThenExpr, ElseExpr *Node }
type SubscriptNode struct{ Array, Index *Node }
type MemberAccessNode struct{ Expr, Member *Node; IsArrow bool }
type TypeCastNode struct{ Expr *Node; TargetType *CType }
type SizeofNode struct{ Expr *Node; TargetType *CType }
type InitListNode struct{ Elems []*Node }
type FuncCallNode struct{ FuncExpr *Node; Args []*Node }
type FuncDeclNode struct {
	Name        string
	Params      []*Node
	Body        *Node
	ReturnType  *CType
	HasVarargs  bool
	IsPrototype bool
}
type VarDeclNode struct {
	Name     string
	Type     *CType
	InitList []*Node
	IsList   bool // Initializer was a braced list
}
type MultiVarDeclNode struct{ Decls []*Node }
type StructDeclNode struct{ Name string; Fields []*Node }
type EnumMember struct {
	Name  string
	Tok   token.Token
	Value *Node // nil when implicit
}
type EnumDeclNode struct{ Name string; Members []EnumMember }
type ConstDeclNode struct{ Name string; Value *Node }
type IfNode struct{ Cond, ThenBody, ElseBody *Node }
type WhileNode struct{ Cond, Body *Node }
type DoWhileNode struct{ Body, Cond *Node }
type ForNode struct{ Init, Cond, Post, Body *Node }
type ReturnNode struct{ Expr *Node }
type BlockNode struct{ Stmts []*Node; IsSynthetic bool }
type SwitchNode struct{ Expr, Body *Node }
type CaseNode struct{ Values []*Node; Body *Node }
type DefaultNode struct{ Body *Node }
type BreakNode struct{}
type ContinueNode struct{}

// --- Node Constructors ---

func newNode(tok token.Token, nodeType NodeType, data interface{}) *Node {
	return &Node{Type: nodeType, Tok: tok, Data: data}
}

func NewNumber(tok token.Token, value int64, text string) *Node {
	return newNode(tok, Number, NumberNode{Value: value, Text: text})
}
func NewFloatNumber(tok token.Token, value float64, text string) *Node {
	return newNode(tok, FloatNumber, FloatNumberNode{Value: value, Text: text})
}
func NewCharLit(tok token.Token, value int64) *Node {
	return newNode(tok, CharLit, CharNode{Value: value})
}
func NewString(tok token.Token, value string) *Node {
	return newNode(tok, String, StringNode{Value: value})
}
func NewIdent(tok token.Token, name string) *Node {
	return newNode(tok, Ident, IdentNode{Name: name})
}
func NewAssign(tok token.Token, op token.Type, lhs, rhs *Node) *Node {
	return newNode(tok, Assign, AssignNode{Op: op, Lhs: lhs, Rhs: rhs})
}
func NewBinaryOp(tok token.Token, op token.Type, left, right *Node) *Node {
	return newNode(tok, BinaryOp, BinaryOpNode{Op: op, Left: left, Right: right})
}
func NewUnaryOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, UnaryOp, UnaryOpNode{Op: op, Expr: expr})
}
func NewPostfixOp(tok token.Token, op token.Type, expr *Node) *Node {
	return newNode(tok, PostfixOp, PostfixOpNode{Op: op, Expr: expr})
}
func NewTernary(tok token.Token, cond, thenExpr, elseExpr *Node) *Node {
	return newNode(tok, Ternary, TernaryNode{Cond: cond, ThenExpr: thenExpr, ElseExpr: elseExpr})
}
func NewSubscript(tok token.Token, array, index *Node) *Node {
	return newNode(tok, Subscript, SubscriptNode{Array: array, Index: index})
}
func NewMemberAccess(tok token.Token, expr, member *Node, isArrow bool) *Node {
	return newNode(tok, MemberAccess, MemberAccessNode{Expr: expr, Member: member, IsArrow: isArrow})
}
func NewTypeCast(tok token.Token, expr *Node, targetType *CType) *Node {
	return newNode(tok, TypeCast, TypeCastNode{Expr: expr, TargetType: targetType})
}
func NewSizeof(tok token.Token, expr *Node, targetType *CType) *Node {
	return newNode(tok, SizeofExpr, SizeofNode{Expr: expr, TargetType: targetType})
}
func NewInitList(tok token.Token, elems []*Node) *Node {
	return newNode(tok, InitList, InitListNode{Elems: elems})
}
func NewFuncCall(tok token.Token, funcExpr *Node, args []*Node) *Node {
	return newNode(tok, FuncCall, FuncCallNode{FuncExpr: funcExpr, Args: args})
}
func NewFuncDecl(tok token.Token, name string, params []*Node, body *Node, returnType *CType, hasVarargs, isPrototype bool) *Node {
	return newNode(tok, FuncDecl, FuncDeclNode{
		Name: name, Params: params, Body: body, ReturnType: returnType,
		HasVarargs: hasVarargs, IsPrototype: isPrototype,
	})
}
func NewVarDecl(tok token.Token, name string, varType *CType, initList []*Node, isList bool) *Node {
	return newNode(tok, VarDecl, VarDeclNode{Name: name, Type: varType, InitList: initList, IsList: isList})
}
func NewMultiVarDecl(tok token.Token, decls []*Node) *Node {
	return newNode(tok, MultiVarDecl, MultiVarDeclNode{Decls: decls})
}
func NewStructDecl(tok token.Token, name string, fields []*Node) *Node {
	return newNode(tok, StructDecl, StructDeclNode{Name: name, Fields: fields})
}
func NewEnumDecl(tok token.Token, name string, members []EnumMember) *Node {
	return newNode(tok, EnumDecl, EnumDeclNode{Name: name, Members: members})
}
func NewConstDecl(tok token.Token, name string, value *Node) *Node {
	return newNode(tok, ConstDecl, ConstDeclNode{Name: name, Value: value})
}
func NewIf(tok token.Token, cond, thenBody, elseBody *Node) *Node {
	return newNode(tok, If, IfNode{Cond: cond, ThenBody: thenBody, ElseBody: elseBody})
}
func NewWhile(tok token.Token, cond, body *Node) *Node {
	return newNode(tok, While, WhileNode{Cond: cond, Body: body})
}
func NewDoWhile(tok token.Token, body, cond *Node) *Node {
	return newNode(tok, DoWhile, DoWhileNode{Body: body, Cond: cond})
}
func NewFor(tok token.Token, init, cond, post, body *Node) *Node {
	return newNode(tok, For, ForNode{Init: init, Cond: cond, Post: post, Body: body})
}
func NewReturn(tok token.Token, expr *Node) *Node {
	return newNode(tok, Return, ReturnNode{Expr: expr})
}
func NewBlock(tok token.Token, stmts []*Node, isSynthetic bool) *Node {
	return newNode(tok, Block, BlockNode{Stmts: stmts, IsSynthetic: isSynthetic})
}
func NewSwitch(tok token.Token, expr, body *Node) *Node {
	return newNode(tok, Switch, SwitchNode{Expr: expr, Body: body})
}
func NewCase(tok token.Token, values []*Node, body *Node) *Node {
	return newNode(tok, Case, CaseNode{Values: values, Body: body})
}
func NewDefault(tok token.Token, body *Node) *Node {
	return newNode(tok, Default, DefaultNode{Body: body})
}
func NewBreak(tok token.Token) *Node {
	return newNode(tok, Break, BreakNode{})
}
func NewContinue(tok token.Token) *Node {
	return newNode(tok, Continue, ContinueNode{})
}

// FoldConstants walks a tree and replaces constant integer expressions
// with their computed values, including array dimensions and the
// expressions nested inside statements. Division and modulo by a zero
// constant are left alone so the translated program keeps the source
// behavior.
func FoldConstants(node *Node) *Node {
	if node == nil {
		return nil
	}

	// Recursively fold children first
	switch d := node.Data.(type) {
	case AssignNode:
		d.Lhs = FoldConstants(d.Lhs)
		d.Rhs = FoldConstants(d.Rhs)
		node.Data = d
	case BinaryOpNode:
		d.Left = FoldConstants(d.Left)
		d.Right = FoldConstants(d.Right)
		node.Data = d
	case UnaryOpNode:
		d.Expr = FoldConstants(d.Expr)
		node.Data = d
	case PostfixOpNode:
		d.Expr = FoldConstants(d.Expr)
		node.Data = d
	case TernaryNode:
		d.Cond = FoldConstants(d.Cond)
		if d.Cond.Type == Number {
			if d.Cond.Data.(NumberNode).Value != 0 {
				return FoldConstants(d.ThenExpr)
			}
			return FoldConstants(d.ElseExpr)
		}
		d.ThenExpr = FoldConstants(d.ThenExpr)
		d.ElseExpr = FoldConstants(d.ElseExpr)
		node.Data = d
	case SubscriptNode:
		d.Array = FoldConstants(d.Array)
		d.Index = FoldConstants(d.Index)
		node.Data = d
	case MemberAccessNode:
		d.Expr = FoldConstants(d.Expr)
		node.Data = d
	case TypeCastNode:
		d.Expr = FoldConstants(d.Expr)
		node.Data = d
	case InitListNode:
		foldEach(d.Elems)
	case FuncCallNode:
		foldEach(d.Args)
	case FuncDeclNode:
		d.Body = FoldConstants(d.Body)
		node.Data = d
	case VarDeclNode:
		foldEach(d.InitList)
		foldDims(d.Type)
	case MultiVarDeclNode:
		foldEach(d.Decls)
	case StructDeclNode:
		foldEach(d.Fields)
	case IfNode:
		d.Cond = FoldConstants(d.Cond)
		d.ThenBody = FoldConstants(d.ThenBody)
		d.ElseBody = FoldConstants(d.ElseBody)
		node.Data = d
	case WhileNode:
		d.Cond = FoldConstants(d.Cond)
		d.Body = FoldConstants(d.Body)
		node.Data = d
	case DoWhileNode:
		d.Body = FoldConstants(d.Body)
		d.Cond = FoldConstants(d.Cond)
		node.Data = d
	case ForNode:
		d.Init = FoldConstants(d.Init)
		d.Cond = FoldConstants(d.Cond)
		d.Post = FoldConstants(d.Post)
		d.Body = FoldConstants(d.Body)
		node.Data = d
	case ReturnNode:
		d.Expr = FoldConstants(d.Expr)
		node.Data = d
	case BlockNode:
		foldEach(d.Stmts)
	case SwitchNode:
		d.Expr = FoldConstants(d.Expr)
		d.Body = FoldConstants(d.Body)
		node.Data = d
	case CaseNode:
		foldEach(d.Values)
		d.Body = FoldConstants(d.Body)
		node.Data = d
	case DefaultNode:
		d.Body = FoldConstants(d.Body)
		node.Data = d
	}

	// Then, attempt to fold the current node.
	switch node.Type {
	case BinaryOp:
		d := node.Data.(BinaryOpNode)
		if d.Left.Type == Number && d.Right.Type == Number {
			l, r := d.Left.Data.(NumberNode).Value, d.Right.Data.(NumberNode).Value
			var res int64
			folded := true
			switch d.Op {
			case token.Plus: res = l + r
			case token.Minus: res = l - r
			case token.Star: res = l * r
			case token.And: res = l & r
			case token.Or: res = l | r
			case token.Xor: res = l ^ r
			case token.Shl: res = l << uint64(r)
			case token.Shr: res = l >> uint64(r)
			case token.EqEq: if l == r { res = 1 }
			case token.Neq: if l != r { res = 1 }
			case token.Lt: if l < r { res = 1 }
			case token.Gt: if l > r { res = 1 }
			case token.Lte: if l <= r { res = 1 }
			case token.Gte: if l >= r { res = 1 }
			case token.Slash:
				if r == 0 { folded = false } else { res = l / r }
			case token.Rem:
				if r == 0 { folded = false } else { res = l % r }
			default:
				folded = false
			}
			if folded {
				return NewNumber(node.Tok, res, "")
			}
		}
	case UnaryOp:
		d := node.Data.(UnaryOpNode)
		if d.Expr.Type == Number {
			val := d.Expr.Data.(NumberNode).Value
			var res int64
			folded := true
			switch d.Op {
			case token.Minus: res = -val
			case token.Complement: res = ^val
			case token.Not: if val == 0 { res = 1 }
			default:
				folded = false
			}
			if folded {
				return NewNumber(node.Tok, res, "")
			}
		}
	}

	return node
}

func foldEach(nodes []*Node) {
	for i, n := range nodes {
		nodes[i] = FoldConstants(n)
	}
}

// foldDims folds array dimension expressions in place. Empty
// dimensions stay nil; later passes size them from initializers.
func foldDims(t *CType) {
	if t == nil || !t.IsArray() {
		return
	}
	for i, dim := range t.ArrayDims {
		if dim != nil {
			t.ArrayDims[i] = FoldConstants(dim)
		}
	}
}
