package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/lexer"
	"github.com/xplshn/gct/pkg/preprocess"
	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

func quietConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.SetAllWarnings(false)
	return cfg
}

func parseSource(t *testing.T, src string, cfg *config.Config) (*ast.Node, error) {
	t.Helper()
	toks, err := lexer.Tokenize([]rune(src), 0, cfg)
	require.NoError(t, err)
	return NewParser(toks, cfg).Parse()
}

func parse(t *testing.T, src string) []*ast.Node {
	t.Helper()
	root, err := parseSource(t, src, quietConfig())
	require.NoError(t, err)
	return root.Data.(ast.BlockNode).Stmts
}

// bodyStmts wraps a statement list in a main function and returns the
// parsed body.
func bodyStmts(t *testing.T, stmts string) []*ast.Node {
	t.Helper()
	decls := parse(t, "int main(void) {\n"+stmts+"\nreturn 0;\n}")
	require.Len(t, decls, 1)
	fn := decls[0].Data.(ast.FuncDeclNode)
	body := fn.Body.Data.(ast.BlockNode).Stmts
	return body[:len(body)-1]
}

func TestParseFunction(t *testing.T) {
	decls := parse(t, "int main(void) { return 0; }")
	require.Len(t, decls, 1)

	require.Equal(t, ast.FuncDecl, decls[0].Type)
	fn := decls[0].Data.(ast.FuncDeclNode)
	assert.Equal(t, "main", fn.Name)
	assert.False(t, fn.IsPrototype)
	assert.Empty(t, fn.Params)
	assert.True(t, fn.ReturnType.Equals(ast.TypeInt))

	body := fn.Body.Data.(ast.BlockNode).Stmts
	require.Len(t, body, 1)
	assert.Equal(t, ast.Return, body[0].Type)
}

func TestParsePrototype(t *testing.T) {
	decls := parse(t, "int add(int a, int b);")
	require.Len(t, decls, 1)

	fn := decls[0].Data.(ast.FuncDeclNode)
	assert.True(t, fn.IsPrototype)
	assert.Nil(t, fn.Body)
	require.Len(t, fn.Params, 2)
	assert.Equal(t, "a", fn.Params[0].Data.(ast.VarDeclNode).Name)
	assert.Equal(t, "b", fn.Params[1].Data.(ast.VarDeclNode).Name)
}

func TestParseGlobalDeclarations(t *testing.T) {
	decls := parse(t, "int counter;\nchar *name;\nint nums[10];\nint grid[2][3];\ndouble rate = 0.5;")
	require.Len(t, decls, 5)

	assert.True(t, decls[0].Data.(ast.VarDeclNode).Type.Equals(ast.TypeInt))
	assert.True(t, decls[1].Data.(ast.VarDeclNode).Type.IsCharPtr())

	nums := decls[2].Data.(ast.VarDeclNode).Type
	require.True(t, nums.IsArray())
	assert.Len(t, nums.ArrayDims, 1)

	grid := decls[3].Data.(ast.VarDeclNode).Type
	require.True(t, grid.IsArray())
	assert.Len(t, grid.ArrayDims, 2)

	rate := decls[4].Data.(ast.VarDeclNode)
	require.Len(t, rate.InitList, 1)
	assert.Equal(t, ast.FloatNumber, rate.InitList[0].Type)
}

func TestParseMultiDeclarator(t *testing.T) {
	decls := parse(t, "int a, b = 2, c;")
	require.Len(t, decls, 1)
	require.Equal(t, ast.MultiVarDecl, decls[0].Type)

	parts := decls[0].Data.(ast.MultiVarDeclNode).Decls
	require.Len(t, parts, 3)
	assert.Equal(t, "a", parts[0].Data.(ast.VarDeclNode).Name)
	assert.Len(t, parts[1].Data.(ast.VarDeclNode).InitList, 1)
	assert.Empty(t, parts[2].Data.(ast.VarDeclNode).InitList)
}

func TestParseStructDefinition(t *testing.T) {
	decls := parse(t, "struct Point { int x; int y; };")
	require.Len(t, decls, 1)
	require.Equal(t, ast.StructDecl, decls[0].Type)

	sd := decls[0].Data.(ast.StructDeclNode)
	assert.Equal(t, "Point", sd.Name)
	require.Len(t, sd.Fields, 2)
	assert.Equal(t, "x", sd.Fields[0].Data.(ast.VarDeclNode).Name)
}

func TestParseEnumDefinition(t *testing.T) {
	decls := parse(t, "enum Color { RED, GREEN = 5, BLUE };")
	require.Len(t, decls, 1)

	ed := decls[0].Data.(ast.EnumDeclNode)
	assert.Equal(t, "Color", ed.Name)
	require.Len(t, ed.Members, 3)
	assert.Nil(t, ed.Members[0].Value)
	assert.NotNil(t, ed.Members[1].Value)
	assert.Nil(t, ed.Members[2].Value)
}

func TestParsePrecedence(t *testing.T) {
	stmts := bodyStmts(t, "int x = 1 + 2 * 3;")
	require.Len(t, stmts, 1)

	top := stmts[0].Data.(ast.VarDeclNode).InitList[0]
	require.Equal(t, ast.BinaryOp, top.Type)
	d := top.Data.(ast.BinaryOpNode)
	assert.Equal(t, token.Plus, d.Op)
	assert.Equal(t, ast.Number, d.Left.Type)

	require.Equal(t, ast.BinaryOp, d.Right.Type)
	assert.Equal(t, token.Star, d.Right.Data.(ast.BinaryOpNode).Op)
}

func TestParseParenthesesOverridePrecedence(t *testing.T) {
	stmts := bodyStmts(t, "int x = (1 + 2) * 3;")
	top := stmts[0].Data.(ast.VarDeclNode).InitList[0]
	d := top.Data.(ast.BinaryOpNode)
	assert.Equal(t, token.Star, d.Op)
	assert.Equal(t, token.Plus, d.Left.Data.(ast.BinaryOpNode).Op)
}

func TestParseAssignmentRightAssociative(t *testing.T) {
	stmts := bodyStmts(t, "int a; int b; a = b = 1;")
	assign := stmts[2]
	require.Equal(t, ast.Assign, assign.Type)

	d := assign.Data.(ast.AssignNode)
	assert.Equal(t, "a", d.Lhs.Data.(ast.IdentNode).Name)
	require.Equal(t, ast.Assign, d.Rhs.Type)
	assert.Equal(t, "b", d.Rhs.Data.(ast.AssignNode).Lhs.Data.(ast.IdentNode).Name)
}

func TestParseTernary(t *testing.T) {
	stmts := bodyStmts(t, "int a = 1; int b = a > 0 ? a : -a;")
	init := stmts[1].Data.(ast.VarDeclNode).InitList[0]
	require.Equal(t, ast.Ternary, init.Type)
}

func TestParseControlFlow(t *testing.T) {
	stmts := bodyStmts(t, `
int i;
if (1) { i = 1; } else { i = 2; }
while (i < 10) { i++; }
do { i--; } while (i > 0);
for (i = 0; i < 3; i++) { }
`)
	require.Len(t, stmts, 5)
	assert.Equal(t, ast.If, stmts[1].Type)
	assert.Equal(t, ast.While, stmts[2].Type)
	assert.Equal(t, ast.DoWhile, stmts[3].Type)
	assert.Equal(t, ast.For, stmts[4].Type)

	ifd := stmts[1].Data.(ast.IfNode)
	assert.NotNil(t, ifd.ElseBody)
}

func TestParseDanglingElseBindsInnermost(t *testing.T) {
	stmts := bodyStmts(t, `
int a = 1;
int b = 0;
if (a)
    if (b)
        b = 1;
    else
        b = 2;
`)
	outer := stmts[2].Data.(ast.IfNode)
	require.Nil(t, outer.ElseBody)
	require.Equal(t, ast.If, outer.ThenBody.Type)
	inner := outer.ThenBody.Data.(ast.IfNode)
	assert.NotNil(t, inner.ElseBody)
}

func TestParseStackedCaseLabels(t *testing.T) {
	stmts := bodyStmts(t, `
int x = 2;
switch (x) {
case 1:
case 2:
    x = 0;
    break;
default:
    break;
}
`)
	sw := stmts[1].Data.(ast.SwitchNode)
	groups := sw.Body.Data.(ast.BlockNode).Stmts
	require.Len(t, groups, 2)

	c := groups[0].Data.(ast.CaseNode)
	assert.Len(t, c.Values, 2)
	assert.Equal(t, ast.Default, groups[1].Type)
}

func TestParseSizeofForms(t *testing.T) {
	stmts := bodyStmts(t, "int a[4]; int s = sizeof(int); int u = sizeof(a); int w = sizeof a;")

	typed := stmts[1].Data.(ast.VarDeclNode).InitList[0].Data.(ast.SizeofNode)
	assert.NotNil(t, typed.TargetType)
	assert.Nil(t, typed.Expr)

	exprForm := stmts[2].Data.(ast.VarDeclNode).InitList[0].Data.(ast.SizeofNode)
	assert.Nil(t, exprForm.TargetType)
	assert.NotNil(t, exprForm.Expr)

	bare := stmts[3].Data.(ast.VarDeclNode).InitList[0].Data.(ast.SizeofNode)
	assert.NotNil(t, bare.Expr)
}

func TestParseCast(t *testing.T) {
	stmts := bodyStmts(t, "int c = (int) 3.5;")
	cast := stmts[0].Data.(ast.VarDeclNode).InitList[0]
	require.Equal(t, ast.TypeCast, cast.Type)
	assert.True(t, cast.Data.(ast.TypeCastNode).TargetType.Equals(ast.TypeInt))
}

func TestParseMemberAccess(t *testing.T) {
	stmts := bodyStmts(t, "struct Point p; struct Point *q; p.x = 1; q->y = 2;")

	dot := stmts[2].Data.(ast.AssignNode).Lhs
	require.Equal(t, ast.MemberAccess, dot.Type)
	dd := dot.Data.(ast.MemberAccessNode)
	assert.False(t, dd.IsArrow)
	assert.Equal(t, "x", dd.Member.Data.(ast.IdentNode).Name)

	arrow := stmts[3].Data.(ast.AssignNode).Lhs
	ad := arrow.Data.(ast.MemberAccessNode)
	assert.True(t, ad.IsArrow)
	assert.Equal(t, "y", ad.Member.Data.(ast.IdentNode).Name)
}

func TestParseForDeclGate(t *testing.T) {
	src := "int main(void) { for (int i = 0; i < 3; i++) { } return 0; }"

	_, err := parseSource(t, src, quietConfig())
	assert.NoError(t, err)

	c89 := quietConfig()
	require.NoError(t, c89.ApplyStd("c89"))
	_, err = parseSource(t, src, c89)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "-Fno-for-decl")
}

func TestParseErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"struct in function", "int main(void) { struct P { int x; }; return 0; }", "struct definitions are only allowed at file scope"},
		{"enum in function", "int main(void) { enum E { A }; return 0; }", "enum definitions are only allowed at file scope"},
		{"prefix inc on literal", "int main(void) { ++5; return 0; }", "prefix '++' or '--' requires an l-value"},
		{"postfix inc on literal", "int main(void) { 5++; return 0; }", "postfix '++' or '--' requires an l-value"},
		{"address of literal", "int main(void) { int x = *(&5); return 0; }", "address-of operator '&' requires an l-value"},
		{"assignment to literal", "int main(void) { 5 = 1; return 0; }", "invalid target for assignment"},
		{"unnamed parameter", "int f(int);", "expected identifier in declaration"},
		{"missing semicolon", "int x = 1", "expected ';' after global declaration"},
		{"stray top level", "5;", "expected a top-level declaration"},
		{"case outside switch", "int main(void) { case 1: return 0; }", "'case' label outside of a switch statement"},
		{"missing paren", "int main(void) { if 1 { } return 0; }", "expected '(' after 'if'"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := parseSource(t, c.src, quietConfig())
			require.Error(t, err)
			var parseErr *util.ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Contains(t, err.Error(), c.msg)
		})
	}
}

func TestParseDefines(t *testing.T) {
	cfg := quietConfig()
	defs := []preprocess.Define{
		{Name: "MAX", Value: "100"},
		{Name: "FLOOR", Value: "-40"},
		{Name: "PI", Value: "3.14"},
		{Name: "GREETING", Value: `"hi"`},
	}
	decls, err := ParseDefines(defs, cfg)
	require.NoError(t, err)
	require.Len(t, decls, 4)

	max := decls[0].Data.(ast.ConstDeclNode)
	assert.Equal(t, "MAX", max.Name)
	assert.Equal(t, int64(100), max.Value.Data.(ast.NumberNode).Value)

	// The leading minus folds into the constant.
	floor := decls[1].Data.(ast.ConstDeclNode)
	require.Equal(t, ast.Number, floor.Value.Type)
	assert.Equal(t, int64(-40), floor.Value.Data.(ast.NumberNode).Value)

	assert.Equal(t, ast.FloatNumber, decls[2].Data.(ast.ConstDeclNode).Value.Type)
	assert.Equal(t, ast.String, decls[3].Data.(ast.ConstDeclNode).Value.Type)
}

func TestParseDefinesRejectsNonConstant(t *testing.T) {
	cfg := quietConfig()
	_, err := ParseDefines([]preprocess.Define{{Name: "X", Value: "1 2"}}, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "macro 'X' does not expand to a single constant")
}
