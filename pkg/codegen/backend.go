package codegen

import (
	"bytes"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
)

// Backend is the interface both target emitters implement.
type Backend interface {
	// Generate takes a resolved translation unit and produces the
	// target source text as a byte buffer.
	Generate(root *ast.Node, cfg *config.Config) (*bytes.Buffer, error)
}

// NewBackend picks the emitter for the configured target language.
func NewBackend(cfg *config.Config) Backend {
	if cfg.Target == config.TargetCpp {
		return NewCppBackend()
	}
	return NewJavaBackend()
}

// walk visits node and every expression and statement below it.
func walk(node *ast.Node, visit func(n *ast.Node)) {
	if node == nil {
		return
	}
	visit(node)
	switch d := node.Data.(type) {
	case ast.AssignNode:
		walk(d.Lhs, visit)
		walk(d.Rhs, visit)
	case ast.BinaryOpNode:
		walk(d.Left, visit)
		walk(d.Right, visit)
	case ast.UnaryOpNode:
		walk(d.Expr, visit)
	case ast.PostfixOpNode:
		walk(d.Expr, visit)
	case ast.TernaryNode:
		walk(d.Cond, visit)
		walk(d.ThenExpr, visit)
		walk(d.ElseExpr, visit)
	case ast.SubscriptNode:
		walk(d.Array, visit)
		walk(d.Index, visit)
	case ast.MemberAccessNode:
		walk(d.Expr, visit)
	case ast.TypeCastNode:
		walk(d.Expr, visit)
	case ast.SizeofNode:
		walk(d.Expr, visit)
	case ast.InitListNode:
		for _, e := range d.Elems {
			walk(e, visit)
		}
	case ast.FuncCallNode:
		walk(d.FuncExpr, visit)
		for _, a := range d.Args {
			walk(a, visit)
		}
	case ast.FuncDeclNode:
		walk(d.Body, visit)
	case ast.VarDeclNode:
		for _, e := range d.InitList {
			walk(e, visit)
		}
	case ast.MultiVarDeclNode:
		for _, decl := range d.Decls {
			walk(decl, visit)
		}
	case ast.IfNode:
		walk(d.Cond, visit)
		walk(d.ThenBody, visit)
		walk(d.ElseBody, visit)
	case ast.WhileNode:
		walk(d.Cond, visit)
		walk(d.Body, visit)
	case ast.DoWhileNode:
		walk(d.Body, visit)
		walk(d.Cond, visit)
	case ast.ForNode:
		walk(d.Init, visit)
		walk(d.Cond, visit)
		walk(d.Post, visit)
		walk(d.Body, visit)
	case ast.ReturnNode:
		walk(d.Expr, visit)
	case ast.BlockNode:
		for _, s := range d.Stmts {
			walk(s, visit)
		}
	case ast.SwitchNode:
		walk(d.Expr, visit)
		walk(d.Body, visit)
	case ast.CaseNode:
		for _, v := range d.Values {
			walk(v, visit)
		}
		walk(d.Body, visit)
	case ast.DefaultNode:
		walk(d.Body, visit)
	}
}

// collectUserFuncs gathers the function names declared by the unit
// itself. A user definition takes the name out of the mapping table's
// reach.
func collectUserFuncs(root *ast.Node) map[string]bool {
	funcs := make(map[string]bool)
	walk(root, func(n *ast.Node) {
		if n.Type == ast.FuncDecl {
			funcs[n.Data.(ast.FuncDeclNode).Name] = true
		}
	})
	return funcs
}
