package preprocess

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/gct/pkg/util"
)

func TestRunPassesPlainSourceThrough(t *testing.T) {
	src := "int main(void) {\n    return 0;\n}\n"
	res, err := Run(src, 0)
	require.NoError(t, err)
	assert.Equal(t, src, res.Source)
	assert.Empty(t, res.Defines)
	assert.Empty(t, res.Includes)
}

func TestRunCollectsIncludes(t *testing.T) {
	src := "#include <stdio.h>\n#include \"local.h\"\nint x;"
	res, err := Run(src, 0)
	require.NoError(t, err)
	assert.Equal(t, []string{"stdio.h", "local.h"}, res.Includes)
	assert.Equal(t, "\n\nint x;", res.Source)
}

func TestRunBlanksDirectiveLines(t *testing.T) {
	src := "#include <stdio.h>\n#define MAX 10\nint x;\n"
	res, err := Run(src, 0)
	require.NoError(t, err)

	// Later lines keep their numbers after the directives vanish.
	assert.Equal(t, strings.Count(src, "\n"), strings.Count(res.Source, "\n"))
	lines := strings.Split(res.Source, "\n")
	assert.Equal(t, "", lines[0])
	assert.Equal(t, "", lines[1])
	assert.Equal(t, "int x;", lines[2])
}

func TestRunDefines(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		value string
	}{
		{"decimal", "#define MAX 100", "100"},
		{"negative", "#define FLOOR -40", "-40"},
		{"hex", "#define MASK 0xff", "0xff"},
		{"float", "#define PI 3.14159", "3.14159"},
		{"string", `#define GREETING "hello"`, `"hello"`},
		{"char", "#define NL '\\n'", "'\\n'"},
		{"trailing comment", "#define MAX 10 // upper bound", "10"},
		{"block comment", "#define MAX 10 /* upper bound */", "10"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			res, err := Run(c.src, 0)
			require.NoError(t, err)
			require.Len(t, res.Defines, 1)
			assert.Equal(t, c.value, res.Defines[0].Value)
		})
	}
}

func TestRunDefineTokenPosition(t *testing.T) {
	res, err := Run("int x;\n#define MAX 10\n", 3)
	require.NoError(t, err)
	require.Len(t, res.Defines, 1)

	tok := res.Defines[0].Tok
	assert.Equal(t, "MAX", tok.Value)
	assert.Equal(t, 3, tok.FileIndex)
	assert.Equal(t, 2, tok.Line)
	assert.Equal(t, 9, tok.Column)
	assert.Equal(t, 3, tok.Len)
}

func TestRunRejectsBadDirectives(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"function-like macro", "#define SQR(x) ((x)*(x))", "function-like macro 'SQR' is not supported"},
		{"no value", "#define FLAG", "requires a literal value"},
		{"expression body", "#define TWO (1+1)", "must expand to a single literal"},
		{"identifier body", "#define ALIAS other", "must expand to a single literal"},
		{"missing name", "#define", "requires a macro name"},
		{"bare include", "#include stdio.h", "#include expects <header> or \"header\""},
		{"conditional", "#ifdef DEBUG", "unsupported preprocessor directive '#ifdef'"},
		{"pragma", "#pragma once", "unsupported preprocessor directive '#pragma'"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Run(c.src, 0)
			require.Error(t, err)
			var lexErr *util.LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Contains(t, err.Error(), c.msg)
		})
	}
}
