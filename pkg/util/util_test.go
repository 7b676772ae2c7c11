package util

import (
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/token"
)

func at(line, col, length int) token.Token {
	return token.Token{FileIndex: 0, Line: line, Column: col, Len: length}
}

// captureStderr runs fn with os.Stderr redirected to a pipe and returns
// everything written, with color codes pinned off for stable output.
func captureStderr(t *testing.T, fn func()) string {
	t.Helper()
	oldColor := useColor
	useColor = false
	old := os.Stderr
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stderr = w
	defer func() {
		os.Stderr = old
		useColor = oldColor
	}()
	fn()
	require.NoError(t, w.Close())
	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestErrorFormatting(t *testing.T) {
	SetSourceFiles(nil)
	tok := at(3, 7, 1)
	cases := []struct {
		name string
		err  PositionedError
		want string
	}{
		{"lex", NewLexError(tok, "unterminated string literal"), "3:7: unterminated string literal"},
		{"parse", NewParseError(tok, "expected '%s'", ";"), "3:7: expected ';'"},
		{"type", NewTypeError(tok, "undefined variable '%s'", "x"), "3:7: undefined variable 'x'"},
		{"unsupported", NewUnsupportedConstructError(tok, "pointer arithmetic has no translation"), "3:7: pointer arithmetic has no translation"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.err.Error())
			assert.Equal(t, tok, tc.err.Pos())
		})
	}
}

func TestErrorFormattingWithFileName(t *testing.T) {
	SetSourceFiles([]SourceFileRecord{{Name: "main.c", Content: []rune("int x\n")}})
	defer SetSourceFiles(nil)

	err := NewParseError(at(1, 6, 1), "expected ';' after declaration")
	assert.Equal(t, "main.c:1:6: expected ';' after declaration", err.Error())
}

func TestReportPlainError(t *testing.T) {
	out := captureStderr(t, func() {
		Report(io.ErrUnexpectedEOF)
	})
	assert.Equal(t, "error: unexpected EOF\n", out)
}

func TestReportShowsSourceLine(t *testing.T) {
	SetSourceFiles([]SourceFileRecord{{
		Name:    "main.c",
		Content: []rune("int main(void) {\n  return x;\n}\n"),
	}})
	defer SetSourceFiles(nil)

	out := captureStderr(t, func() {
		Report(NewTypeError(at(2, 10, 1), "undefined variable 'x'"))
	})
	want := "main.c:2:10: error: undefined variable 'x'\n" +
		"    return x;\n" +
		"           ^\n"
	assert.Equal(t, want, out)
}

func TestReportCaretSpansToken(t *testing.T) {
	SetSourceFiles([]SourceFileRecord{{
		Name:    "main.c",
		Content: []rune("alpha beta\n"),
	}})
	defer SetSourceFiles(nil)

	out := captureStderr(t, func() {
		Report(NewTypeError(at(1, 7, 4), "undefined variable 'beta'"))
	})
	assert.Contains(t, out, "  alpha beta\n        ^~~~\n")
}

func TestWarnRespectsConfig(t *testing.T) {
	SetSourceFiles(nil)
	ResetWarnings()
	defer ResetWarnings()
	tok := at(4, 7, 1)

	cfg := config.NewConfig()
	cfg.SetAllWarnings(false)
	out := captureStderr(t, func() {
		Warn(cfg, config.WarnUnused, tok, "variable '%s' is never read", "x")
	})
	assert.Empty(t, out)
	assert.Equal(t, 0, EmittedWarnings())

	out = captureStderr(t, func() {
		Warn(nil, config.WarnUnused, tok, "variable '%s' is never read", "x")
	})
	assert.Empty(t, out)
	assert.Equal(t, 0, EmittedWarnings())

	cfg.SetWarning(config.WarnUnused, true)
	out = captureStderr(t, func() {
		Warn(cfg, config.WarnUnused, tok, "variable '%s' is never read", "x")
	})
	assert.Equal(t, "<input>:4:7: warning: variable 'x' is never read [-Wunused]\n", out)
	assert.Equal(t, 1, EmittedWarnings())

	ResetWarnings()
	assert.Equal(t, 0, EmittedWarnings())
}
