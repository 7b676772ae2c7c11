package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

type tokVal struct {
	Type  token.Type
	Value string
}

func lex(t *testing.T, src string, cfg *config.Config) []tokVal {
	t.Helper()
	toks, err := Tokenize([]rune(src), 0, cfg)
	require.NoError(t, err)
	out := make([]tokVal, len(toks))
	for i, tok := range toks {
		out[i] = tokVal{tok.Type, tok.Value}
	}
	return out
}

func quietConfig() *config.Config {
	cfg := config.NewConfig()
	cfg.SetAllWarnings(false)
	return cfg
}

func TestTokenizeBasic(t *testing.T) {
	got := lex(t, "int main(void) { return 0; }", quietConfig())
	want := []tokVal{
		{token.Int, "int"},
		{token.Ident, "main"},
		{token.LParen, ""},
		{token.Void, "void"},
		{token.RParen, ""},
		{token.LBrace, ""},
		{token.Return, "return"},
		{token.Number, "0"},
		{token.Semi, ""},
		{token.RBrace, ""},
		{token.EOF, ""},
	}
	assert.Equal(t, want, got)
}

func TestTokenizeOperators(t *testing.T) {
	cases := []struct {
		src  string
		want []token.Type
	}{
		{"a += b -= c *= d /= e %= f", []token.Type{
			token.Ident, token.PlusEq, token.Ident, token.MinusEq, token.Ident,
			token.StarEq, token.Ident, token.SlashEq, token.Ident, token.RemEq, token.Ident,
		}},
		{"i++ + --j", []token.Type{token.Ident, token.Inc, token.Plus, token.Dec, token.Ident}},
		{"p->x . y", []token.Type{token.Ident, token.Arrow, token.Ident, token.Dot, token.Ident}},
		{"a <= b < c >= d > e", []token.Type{
			token.Ident, token.Lte, token.Ident, token.Lt, token.Ident,
			token.Gte, token.Ident, token.Gt, token.Ident,
		}},
		{"a << 1 >> 2", []token.Type{token.Ident, token.Shl, token.Number, token.Shr, token.Number}},
		{"x && y || !z", []token.Type{token.Ident, token.AndAnd, token.Ident, token.OrOr, token.Not, token.Ident}},
		{"a == b != c", []token.Type{token.Ident, token.EqEq, token.Ident, token.Neq, token.Ident}},
		{"a & b | ~c ^ d", []token.Type{
			token.Ident, token.And, token.Ident, token.Or,
			token.Complement, token.Ident, token.Xor, token.Ident,
		}},
		{"a ? b : c", []token.Type{token.Ident, token.Question, token.Ident, token.Colon, token.Ident}},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			got := lex(t, c.src, quietConfig())
			var types []token.Type
			for _, tv := range got[:len(got)-1] {
				types = append(types, tv.Type)
			}
			assert.Equal(t, c.want, types)
		})
	}
}

func TestTokenizeNumbers(t *testing.T) {
	cases := []struct {
		src  string
		typ  token.Type
		text string
	}{
		{"42", token.Number, "42"},
		{"0", token.Number, "0"},
		{"0xFF", token.Number, "0xFF"},
		{"0x7fffffff", token.Number, "0x7fffffff"},
		{"10u", token.Number, "10u"},
		{"10UL", token.Number, "10UL"},
		{"5L", token.Number, "5L"},
		{"3.14", token.FloatNumber, "3.14"},
		{".5", token.FloatNumber, ".5"},
		{"1e9", token.FloatNumber, "1e9"},
		{"2.5e-3", token.FloatNumber, "2.5e-3"},
		{"6.02E+23", token.FloatNumber, "6.02E+23"},
		{"1.5f", token.FloatNumber, "1.5f"},
	}
	for _, c := range cases {
		t.Run(c.src, func(t *testing.T) {
			got := lex(t, c.src, quietConfig())
			require.Len(t, got, 2)
			assert.Equal(t, tokVal{c.typ, c.text}, got[0])
		})
	}
}

func TestTokenizeStringsAndChars(t *testing.T) {
	cases := []struct {
		name  string
		src   string
		typ   token.Type
		value string
	}{
		{"plain string", `"hello"`, token.String, "hello"},
		{"escapes decoded", `"a\tb\n"`, token.String, "a\tb\n"},
		{"hex escape", `"\x41"`, token.String, "A"},
		{"octal escape", `"\101"`, token.String, "A"},
		{"escaped quote", `"say \"hi\""`, token.String, `say "hi"`},
		{"empty string", `""`, token.String, ""},
		{"plain char", `'a'`, token.CharLit, "a"},
		{"newline char", `'\n'`, token.CharLit, "\n"},
		{"nul char", `'\0'`, token.CharLit, "\x00"},
		{"quote char", `'\''`, token.CharLit, "'"},
		{"hex char", `'\x41'`, token.CharLit, "A"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := lex(t, c.src, quietConfig())
			require.Len(t, got, 2)
			assert.Equal(t, tokVal{c.typ, c.value}, got[0])
		})
	}
}

func TestTokenizeComments(t *testing.T) {
	cfg := quietConfig()
	got := lex(t, "int a; // trailing\n/* block\ncomment */ int b;", cfg)
	want := []tokVal{
		{token.Int, "int"}, {token.Ident, "a"}, {token.Semi, ""},
		{token.Int, "int"}, {token.Ident, "b"}, {token.Semi, ""},
		{token.EOF, ""},
	}
	assert.Equal(t, want, got)
}

func TestTokenizeLineCommentsDisabledUnderC89(t *testing.T) {
	cfg := quietConfig()
	require.NoError(t, cfg.ApplyStd("c89"))

	got := lex(t, "a // b", cfg)
	want := []tokVal{
		{token.Ident, "a"}, {token.Slash, ""}, {token.Slash, ""}, {token.Ident, "b"},
		{token.EOF, ""},
	}
	assert.Equal(t, want, got)

	// Block comments belong to every standard.
	got = lex(t, "a /* b */ c", cfg)
	want = []tokVal{{token.Ident, "a"}, {token.Ident, "c"}, {token.EOF, ""}}
	assert.Equal(t, want, got)
}

func TestTokenizeBoolKeywords(t *testing.T) {
	cfg := quietConfig()
	got := lex(t, "bool ok = true; ok = false;", cfg)
	assert.Equal(t, token.Bool, got[0].Type)
	assert.Equal(t, token.True, got[3].Type)
	assert.Equal(t, token.False, got[7].Type)

	require.NoError(t, cfg.ApplyStd("c89"))
	got = lex(t, "bool true false", cfg)
	want := []tokVal{
		{token.Ident, "bool"}, {token.Ident, "true"}, {token.Ident, "false"},
		{token.EOF, ""},
	}
	assert.Equal(t, want, got)

	// NULL stays a keyword in every standard.
	got = lex(t, "NULL", cfg)
	assert.Equal(t, token.Null, got[0].Type)
}

func TestTokenizePositions(t *testing.T) {
	toks, err := Tokenize([]rune("int x;\n  x = 10;\n"), 2, quietConfig())
	require.NoError(t, err)

	x := toks[3]
	assert.Equal(t, token.Ident, x.Type)
	assert.Equal(t, 2, x.Line)
	assert.Equal(t, 3, x.Column)
	assert.Equal(t, 1, x.Len)
	assert.Equal(t, 2, x.FileIndex)

	num := toks[5]
	assert.Equal(t, token.Number, num.Type)
	assert.Equal(t, 2, num.Line)
	assert.Equal(t, 7, num.Column)
	assert.Equal(t, 2, num.Len)
}

func TestTokenizeRoundTrip(t *testing.T) {
	src := "int total = 300;\nfloat rate = 2.5;\nchar *name = \"abc\";\nif (total >= 10 && rate != 0) { total += 1; }\n"
	runes := []rune(src)
	toks, err := Tokenize(runes, 0, quietConfig())
	require.NoError(t, err)

	lineStarts := []int{0}
	for i, r := range runes {
		if r == '\n' {
			lineStarts = append(lineStarts, i+1)
		}
	}

	// The substring a token's position and length point at lexes back
	// to the same kind and value.
	for _, tok := range toks {
		if tok.Type == token.EOF {
			continue
		}
		start := lineStarts[tok.Line-1] + tok.Column - 1
		sub := string(runes[start : start+tok.Len])
		again, err := Tokenize([]rune(sub), 0, quietConfig())
		require.NoError(t, err, "substring %q", sub)
		require.Len(t, again, 2, "substring %q", sub)
		assert.Equal(t, tok.Type, again[0].Type, "substring %q", sub)
		assert.Equal(t, tok.Value, again[0].Value, "substring %q", sub)
	}
}

func TestTokenizeErrors(t *testing.T) {
	cases := []struct {
		name string
		src  string
		msg  string
	}{
		{"unterminated string", `"abc`, "unterminated string literal"},
		{"newline in string", "\"ab\nc\"", "unterminated string literal"},
		{"multi-char constant", "'ab'", "multi-character constant is not supported"},
		{"empty char", "''", "empty character constant"},
		{"unterminated char", "'a", "unterminated character literal"},
		{"unterminated block comment", "int a; /* oops", "unterminated block comment"},
		{"exponent without digits", "1e+", "exponent has no digits"},
		{"short hex escape", `'\x4'`, "hex escape expects two hex digits"},
		{"stray character", "int @", "unexpected character '@'"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := Tokenize([]rune(c.src), 0, quietConfig())
			require.Error(t, err)
			var lexErr *util.LexError
			require.ErrorAs(t, err, &lexErr)
			assert.Contains(t, err.Error(), c.msg)
		})
	}
}

func TestTokenizeCharValueTruncated(t *testing.T) {
	got := lex(t, "'€'", quietConfig())
	require.Len(t, got, 2)
	assert.Equal(t, string(rune('€'&0xFF)), got[0].Value)
}
