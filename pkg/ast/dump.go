package ast

import (
	"fmt"
	"strings"
)

var nodeTypeNames = map[NodeType]string{
	Number:       "Number",
	FloatNumber:  "FloatNumber",
	CharLit:      "CharLit",
	String:       "String",
	Ident:        "Ident",
	Assign:       "Assign",
	BinaryOp:     "BinaryOp",
	UnaryOp:      "UnaryOp",
	PostfixOp:    "PostfixOp",
	FuncCall:     "FuncCall",
	Ternary:      "Ternary",
	Subscript:    "Subscript",
	MemberAccess: "MemberAccess",
	TypeCast:     "TypeCast",
	SizeofExpr:   "Sizeof",
	InitList:     "InitList",
	FuncDecl:     "FuncDecl",
	VarDecl:      "VarDecl",
	MultiVarDecl: "MultiVarDecl",
	StructDecl:   "StructDecl",
	EnumDecl:     "EnumDecl",
	ConstDecl:    "ConstDecl",
	If:           "If",
	While:        "While",
	DoWhile:      "DoWhile",
	For:          "For",
	Switch:       "Switch",
	Case:         "Case",
	Default:      "Default",
	Break:        "Break",
	Continue:     "Continue",
	Return:       "Return",
	Block:        "Block",
}

func (t NodeType) String() string {
	if s, ok := nodeTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("NodeType(%d)", int(t))
}

// Dump renders the tree one node per line with box-drawing connectors.
// Types the resolver annotated are shown in angle brackets.
func Dump(root *Node) string {
	var sb strings.Builder
	sb.WriteString("Program\n")
	stmts := root.Data.(BlockNode).Stmts
	for i, stmt := range stmts {
		dumpNode(&sb, stmt, "", i == len(stmts)-1)
	}
	return sb.String()
}

func dumpNode(sb *strings.Builder, node *Node, prefix string, isLast bool) {
	connector, childPrefix := "├── ", prefix+"│   "
	if isLast {
		connector, childPrefix = "└── ", prefix+"    "
	}
	sb.WriteString(prefix + connector + dumpLabel(node) + "\n")
	children := dumpChildren(node)
	for i, child := range children {
		dumpNode(sb, child, childPrefix, i == len(children)-1)
	}
}

func dumpLabel(node *Node) string {
	label := node.Type.String()
	switch d := node.Data.(type) {
	case NumberNode:
		label += fmt.Sprintf(" %d", d.Value)
	case FloatNumberNode:
		if d.Text != "" {
			label += " " + d.Text
		} else {
			label += fmt.Sprintf(" %g", d.Value)
		}
	case CharNode:
		label += fmt.Sprintf(" %q", rune(d.Value))
	case StringNode:
		label += fmt.Sprintf(" %q", d.Value)
	case IdentNode:
		label += " " + d.Name
	case AssignNode:
		label += " " + d.Op.String()
	case BinaryOpNode:
		label += " " + d.Op.String()
	case UnaryOpNode:
		label += " " + d.Op.String()
	case PostfixOpNode:
		label += " " + d.Op.String()
	case MemberAccessNode:
		op := "."
		if d.IsArrow {
			op = "->"
		}
		label += " " + op + d.Member.Data.(IdentNode).Name
	case TypeCastNode:
		label += " (" + d.TargetType.String() + ")"
	case SizeofNode:
		if d.TargetType != nil {
			label += " " + d.TargetType.String()
		}
	case FuncDeclNode:
		label += fmt.Sprintf(" %s %s", d.ReturnType, d.Name)
		if d.IsPrototype {
			label += " (prototype)"
		}
	case VarDeclNode:
		label += fmt.Sprintf(" %s %s", d.Type, d.Name)
	case MultiVarDeclNode:
		label += fmt.Sprintf(" (%d declarators)", len(d.Decls))
	case StructDeclNode:
		label += " " + d.Name
	case EnumDeclNode:
		label += fmt.Sprintf(" %s (%d members)", d.Name, len(d.Members))
	case ConstDeclNode:
		label += " " + d.Name
	case BlockNode:
		label += fmt.Sprintf(" (%d statements)", len(d.Stmts))
	}
	if node.Typ != nil {
		label += " <" + node.Typ.String() + ">"
	}
	return label
}

func dumpChildren(node *Node) []*Node {
	switch d := node.Data.(type) {
	case AssignNode:
		return []*Node{d.Lhs, d.Rhs}
	case BinaryOpNode:
		return []*Node{d.Left, d.Right}
	case UnaryOpNode:
		return []*Node{d.Expr}
	case PostfixOpNode:
		return []*Node{d.Expr}
	case TernaryNode:
		return []*Node{d.Cond, d.ThenExpr, d.ElseExpr}
	case SubscriptNode:
		return []*Node{d.Array, d.Index}
	case MemberAccessNode:
		return []*Node{d.Expr}
	case TypeCastNode:
		return []*Node{d.Expr}
	case SizeofNode:
		if d.Expr != nil {
			return []*Node{d.Expr}
		}
	case InitListNode:
		return d.Elems
	case FuncCallNode:
		return append([]*Node{d.FuncExpr}, d.Args...)
	case FuncDeclNode:
		children := append([]*Node{}, d.Params...)
		if d.Body != nil {
			children = append(children, d.Body)
		}
		return children
	case VarDeclNode:
		return d.InitList
	case MultiVarDeclNode:
		return d.Decls
	case StructDeclNode:
		return d.Fields
	case ConstDeclNode:
		return []*Node{d.Value}
	case IfNode:
		children := []*Node{d.Cond, d.ThenBody}
		if d.ElseBody != nil {
			children = append(children, d.ElseBody)
		}
		return children
	case WhileNode:
		return []*Node{d.Cond, d.Body}
	case DoWhileNode:
		return []*Node{d.Body, d.Cond}
	case ForNode:
		var children []*Node
		for _, c := range []*Node{d.Init, d.Cond, d.Post, d.Body} {
			if c != nil {
				children = append(children, c)
			}
		}
		return children
	case ReturnNode:
		if d.Expr != nil {
			return []*Node{d.Expr}
		}
	case BlockNode:
		return d.Stmts
	case SwitchNode:
		return []*Node{d.Expr, d.Body}
	case CaseNode:
		return append(append([]*Node{}, d.Values...), d.Body)
	case DefaultNode:
		return []*Node{d.Body}
	}
	return nil
}
