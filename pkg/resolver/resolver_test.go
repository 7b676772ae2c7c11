package resolver

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/lexer"
	"github.com/xplshn/gct/pkg/parser"
	"github.com/xplshn/gct/pkg/preprocess"
	"github.com/xplshn/gct/pkg/util"
)

func quietConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.SetAllWarnings(false)
	return cfg
}

func parseSource(t *testing.T, src string, cfg *config.Config) *ast.Node {
	t.Helper()
	toks, err := lexer.Tokenize([]rune(src), 0, cfg)
	require.NoError(t, err)
	root, err := parser.NewParser(toks, cfg).Parse()
	require.NoError(t, err)
	return root
}

func resolveSource(t *testing.T, src string, cfg *config.Config) (*ast.Node, error) {
	t.Helper()
	root := parseSource(t, src, cfg)
	return root, NewResolver(cfg).Resolve(root)
}

func TestResolveValidPrograms(t *testing.T) {
	cases := []struct {
		name string
		src  string
	}{
		{"forward reference", `
int fib(int n);
int main(void) { return fib(10); }
int fib(int n) {
    if (n < 2) { return n; }
    return fib(n - 1) + fib(n - 2);
}`},
		{"pointers", `
int main(void) {
    int x = 1;
    int *p = &x;
    *p = 2;
    return *p;
}`},
		{"void pointer conversions", `
int main(void) {
    int x = 1;
    void *v = &x;
    int *p = v;
    return *p;
}`},
		{"nested structs", `
struct Point { int x; int y; };
struct Line { struct Point a; struct Point b; };
int main(void) {
    struct Line ln;
    ln.a.x = 1;
    return ln.a.x;
}`},
		{"enum in switch", `
enum Color { RED, GREEN, BLUE };
int main(void) {
    enum Color c = GREEN;
    switch (c) {
    case RED: return 0;
    case GREEN: return 1;
    default: return 2;
    }
}`},
		{"array decay to parameter", `
int sum(int a[], int n) {
    int s = 0;
    int i;
    for (i = 0; i < n; i++) { s += a[i]; }
    return s;
}
int main(void) {
    int nums[3] = {1, 2, 3};
    return sum(nums, 3);
}`},
		{"null pointer comparison", `
int main(void) {
    char *s = "hi";
    if (s != 0) { return 1; }
    return 0;
}`},
		{"loops with break and continue", `
int main(void) {
    int i;
    for (i = 0; i < 10; i++) {
        if (i == 2) { continue; }
        if (i == 5) { break; }
    }
    do { i--; } while (i > 0);
    return i;
}`},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := resolveSource(t, c.src, quietConfig())
			assert.NoError(t, err)
		})
	}
}

func TestResolveScopeErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"undeclared identifier", "int main(void) { return x; }", "undeclared identifier 'x'"},
		{"global redefinition", "int x;\nint x;", "redefinition of 'x'"},
		{"local redefinition", "int main(void) { int x; int x; return 0; }", "redefinition of 'x'"},
		{"parameter redefinition", "int f(int a, int a) { return a; }", "redefinition of parameter 'a'"},
		{"struct redefinition", "struct P { int x; };\nstruct P { int y; };", "redefinition of 'struct P'"},
		{"duplicate struct member", "struct P { int x; int x; };", "duplicate member 'x' in struct 'P'"},
		{"duplicate enumerator", "enum E { A, A };", "redefinition of 'A'"},
		{"unknown struct", "int main(void) { struct Nope p; return 0; }", "unknown struct 'Nope'"},
		{"function redefinition", "int f(void) { return 0; }\nint f(void) { return 1; }", "redefinition of 'f'"},
		{"conflicting declaration", "int f(int a);\ndouble f(double b);", "conflicting declaration of 'f'"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := resolveSource(t, c.src, quietConfig())
			require.Error(t, err)
			var typeErr *util.TypeError
			require.ErrorAs(t, err, &typeErr)
			assert.Contains(t, err.Error(), c.msg)
		})
	}
}

func TestResolveTypeErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"function used as value", "int f(void);\nint main(void) { return f; }", "function 'f' used as a value"},
		{"call of non-function", "int x;\nint main(void) { return x(); }", "'x' is not a function"},
		{"wrong argument count", "int add(int a, int b);\nint main(void) { return add(1); }", "function 'add' expects 2 argument(s), got 1"},
		{"wrong argument type", "int f(int *p);\nint main(void) { return f(3); }", "argument 1 of 'f'"},
		{"void pointer dereference", "int main(void) { void *p; return *p; }", "cannot dereference a 'void *' value"},
		{"dereference of scalar", "int main(void) { int x; return *x; }", "cannot dereference a value of type"},
		{"subscript of scalar", "int main(void) { int x; return x[0]; }", "subscripted value of type"},
		{"non-integer index", "int main(void) { int a[3]; return a[1.5]; }", "array index is not an integer"},
		{"member of scalar", "int main(void) { int x; return x.y; }", "request for a member in a value of type"},
		{"missing member", "struct P { int x; };\nint main(void) { struct P p; return p.y; }", "no member named 'y' in 'struct P'"},
		{"arrow on value", "struct P { int x; };\nint main(void) { struct P p; return p->x; }", "'->' applied to a value of type"},
		{"assignment to enumerator", "enum E { A };\nint main(void) { A = 1; return 0; }", "assignment to constant 'A'"},
		{"struct assigned to int", "struct P { int x; };\nint main(void) { struct P p; int y; y = p; return y; }", "cannot assign a value of type"},
		{"incompatible pointers", "int main(void) { int *p; double *q; p = q; return 0; }", "cannot assign a value of type"},
		{"struct in arithmetic", "struct P { int x; };\nint main(void) { struct P p; int y = p + 1; return y; }", "invalid operands of types"},
		{"negated pointer", "int main(void) { int *p; return -p; }", "invalid operand of type"},
		{"remainder of double", "int main(void) { double d = 1.0; d %= 2; return 0; }", "invalid operands of types"},
		{"struct condition", "struct P { int x; };\nint main(void) { struct P p; if (p) { } return 0; }", "cannot be a condition"},
		{"struct cast", "struct P { int x; };\nint main(void) { struct P p; int y = (int) p; return y; }", "cannot cast a value of type"},
		{"mismatched ternary", "int main(void) { int *p; int x = 1 ? p : 1; return x; }", "mismatched types"},
		{"variable array dimension", "int main(void) { int n; int a[n]; return 0; }", "array dimension is not an integer constant"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := resolveSource(t, c.src, quietConfig())
			require.Error(t, err)
			var typeErr *util.TypeError
			require.ErrorAs(t, err, &typeErr)
			assert.Contains(t, err.Error(), c.msg)
		})
	}
}

func TestResolveStatementErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"break outside loop", "int main(void) { break; return 0; }", "break statement not within a loop or switch"},
		{"continue in switch", "int main(void) { switch (1) { case 1: continue; } return 0; }", "continue statement not within a loop"},
		{"value returned from void", "void f(void) { return 1; }", "return with a value in function returning void"},
		{"missing return value", "int f(void) { return; }", "return with no value in function returning"},
		{"duplicate case", "int main(void) { switch (1) { case 2: break; case 2: break; } return 0; }", "duplicate case value 2"},
		{"duplicate default", "int main(void) { switch (1) { default: break; default: break; } return 0; }", "multiple default labels in one switch"},
		{"switch on double", "int main(void) { double d = 1.0; switch (d) { case 1: break; } return 0; }", "switch quantity is not an integer"},
		{"non-constant case", "int main(void) { int x = 1; switch (x) { case x: break; } return 0; }", "case label is not an integer constant"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := resolveSource(t, c.src, quietConfig())
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.msg)
		})
	}
}

func TestResolveInitializerErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"string too long", `char s[2] = "abc";`, "initializer string for 's' is too long"},
		{"too many array elements", "int a[2] = {1, 2, 3};", "too many initializers"},
		{"too many struct fields", "struct P { int x; };\nstruct P p = {1, 2};", "too many initializers for 'struct P'"},
		{"struct without braces", "struct P { int x; };\nstruct P p = 1;", "struct initializer requires braces"},
		{"array without braces", "int a[3] = 5;", "array initializer requires braces"},
		{"braces around scalar", "int x = {{1}};", "braced initializer for scalar type"},
		{"type mismatch", `int x = "hi";`, "cannot initialize"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := resolveSource(t, c.src, quietConfig())
			require.Error(t, err)
			assert.Contains(t, err.Error(), c.msg)
		})
	}
}

func TestResolveSizesCharArrayFromString(t *testing.T) {
	root, err := resolveSource(t, `char s[] = "hi";`, quietConfig())
	require.NoError(t, err)

	d := root.Data.(ast.BlockNode).Stmts[0].Data.(ast.VarDeclNode)
	require.Len(t, d.Type.ArrayDims, 1)
	require.NotNil(t, d.Type.ArrayDims[0])
	assert.Equal(t, int64(3), d.Type.ArrayDims[0].Data.(ast.NumberNode).Value)
}

func TestResolveSizesArrayFromInitializer(t *testing.T) {
	root, err := resolveSource(t, "int a[] = {1, 2, 3, 4};", quietConfig())
	require.NoError(t, err)

	d := root.Data.(ast.BlockNode).Stmts[0].Data.(ast.VarDeclNode)
	require.NotNil(t, d.Type.ArrayDims[0])
	assert.Equal(t, int64(4), d.Type.ArrayDims[0].Data.(ast.NumberNode).Value)
}

func TestResolveEnumConstantValues(t *testing.T) {
	cfg := quietConfig()
	root := parseSource(t, "enum E { A, B = 5, C };", cfg)

	r := NewResolver(cfg)
	require.NoError(t, r.Resolve(root))

	b := r.find("B", false)
	require.NotNil(t, b)
	assert.True(t, b.IsConst)
	assert.Equal(t, int64(5), b.ConstVal)

	c := r.find("C", false)
	require.NotNil(t, c)
	assert.Equal(t, int64(6), c.ConstVal)
}

func TestResolveMacroConstantAsArrayDimension(t *testing.T) {
	cfg := quietConfig()
	consts, err := parser.ParseDefines([]preprocess.Define{{Name: "MAX", Value: "4"}}, cfg)
	require.NoError(t, err)

	root := parseSource(t, "int main(void) { int a[MAX]; a[0] = 1; return a[0]; }", cfg)
	d := root.Data.(ast.BlockNode)
	d.Stmts = append(consts, d.Stmts...)
	root.Data = d

	assert.NoError(t, NewResolver(cfg).Resolve(root))
}

func TestResolveBuiltinsAreSeeded(t *testing.T) {
	cfg := config.NewConfig()
	util.ResetWarnings()
	_, err := resolveSource(t, `int main(void) { printf("hi\n"); return 0; }`, cfg)
	require.NoError(t, err)
	assert.Zero(t, util.EmittedWarnings())
}

func TestResolveImplicitDeclaration(t *testing.T) {
	cfg := quietConfig()
	cfg.SetWarning(config.WarnImplicitDecl, true)
	util.ResetWarnings()

	// The injected declaration is variadic, so the second call with a
	// different arity passes without a second warning.
	_, err := resolveSource(t, "int main(void) { frob(1); frob(1, 2); return 0; }", cfg)
	require.NoError(t, err)
	assert.Equal(t, 1, util.EmittedWarnings())
}

func TestResolveNarrowingAnnotation(t *testing.T) {
	root, err := resolveSource(t, "int main(void) { double d = 1.5; int x = d; int y = 1; return x + y; }", quietConfig())
	require.NoError(t, err)

	fn := root.Data.(ast.BlockNode).Stmts[0].Data.(ast.FuncDeclNode)
	body := fn.Body.Data.(ast.BlockNode).Stmts

	narrowed := body[1].Data.(ast.VarDeclNode).InitList[0]
	require.NotNil(t, narrowed.Narrowed)
	assert.True(t, narrowed.Narrowed.Equals(ast.TypeInt))

	plain := body[2].Data.(ast.VarDeclNode).InitList[0]
	assert.Nil(t, plain.Narrowed)
}

func TestResolveWarningCounts(t *testing.T) {
	cases := []struct {
		name string
		warn config.Warning
		src  string
	}{
		{"unused variable", config.WarnUnused, "int main(void) { int x; return 0; }"},
		{"unreachable code", config.WarnUnreachableCode, "int main(void) { return 0; 1 + 2; }"},
		{"shadowed declaration", config.WarnShadow, "int main(void) { int x = 1; { int x = 2; } return x; }"},
		{"narrowing initializer", config.WarnNarrowing, "int main(void) { double d = 1.5; int x = d; return x; }"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			cfg := quietConfig()
			cfg.SetWarning(c.warn, true)
			util.ResetWarnings()
			_, err := resolveSource(t, c.src, cfg)
			require.NoError(t, err)
			assert.Equal(t, 1, util.EmittedWarnings())
		})
	}
}
