package lexer

import (
	"strconv"
	"strings"
	"unicode"

	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

type Lexer struct {
	source    []rune
	fileIndex int
	pos       int
	line      int
	column    int
	cfg       *config.Config
}

func NewLexer(source []rune, fileIndex int, cfg *config.Config) *Lexer {
	return &Lexer{
		source: source, fileIndex: fileIndex, line: 1, column: 1, cfg: cfg,
	}
}

// Tokenize drains one translation unit into a slice ending with the EOF token.
func Tokenize(source []rune, fileIndex int, cfg *config.Config) ([]token.Token, error) {
	l := NewLexer(source, fileIndex, cfg)
	var toks []token.Token
	for {
		tok, err := l.Next()
		if err != nil {
			return nil, err
		}
		toks = append(toks, tok)
		if tok.Type == token.EOF {
			return toks, nil
		}
	}
}

func (l *Lexer) Next() (token.Token, error) {
	for {
		if err := l.skipWhitespaceAndComments(); err != nil {
			return token.Token{}, err
		}
		startPos, startCol, startLine := l.pos, l.column, l.line

		if l.isAtEnd() {
			return l.makeToken(token.EOF, "", startPos, startCol, startLine), nil
		}

		if l.peek() == '/' && l.peekNext() == '/' && l.cfg.IsFeatureEnabled(config.FeatCComments) {
			l.lineComment()
			continue
		}

		ch := l.peek()
		if unicode.IsLetter(ch) || ch == '_' {
			l.advance()
			return l.identifierOrKeyword(startPos, startCol, startLine), nil
		}
		if unicode.IsDigit(ch) || (ch == '.' && unicode.IsDigit(l.peekNext())) {
			return l.numberLiteral(startPos, startCol, startLine)
		}

		l.advance()
		switch ch {
		case '(':
			return l.makeToken(token.LParen, "", startPos, startCol, startLine), nil
		case ')':
			return l.makeToken(token.RParen, "", startPos, startCol, startLine), nil
		case '{':
			return l.makeToken(token.LBrace, "", startPos, startCol, startLine), nil
		case '}':
			return l.makeToken(token.RBrace, "", startPos, startCol, startLine), nil
		case '[':
			return l.makeToken(token.LBracket, "", startPos, startCol, startLine), nil
		case ']':
			return l.makeToken(token.RBracket, "", startPos, startCol, startLine), nil
		case ';':
			return l.makeToken(token.Semi, "", startPos, startCol, startLine), nil
		case ',':
			return l.makeToken(token.Comma, "", startPos, startCol, startLine), nil
		case ':':
			return l.makeToken(token.Colon, "", startPos, startCol, startLine), nil
		case '?':
			return l.makeToken(token.Question, "", startPos, startCol, startLine), nil
		case '~':
			return l.makeToken(token.Complement, "", startPos, startCol, startLine), nil
		case '.':
			return l.makeToken(token.Dot, "", startPos, startCol, startLine), nil
		case '!':
			return l.matchThen('=', token.Neq, token.Not, startPos, startCol, startLine), nil
		case '^':
			return l.makeToken(token.Xor, "", startPos, startCol, startLine), nil
		case '%':
			return l.matchThen('=', token.RemEq, token.Rem, startPos, startCol, startLine), nil
		case '+':
			return l.plus(startPos, startCol, startLine), nil
		case '-':
			return l.minus(startPos, startCol, startLine), nil
		case '*':
			return l.matchThen('=', token.StarEq, token.Star, startPos, startCol, startLine), nil
		case '/':
			return l.matchThen('=', token.SlashEq, token.Slash, startPos, startCol, startLine), nil
		case '&':
			return l.matchThen('&', token.AndAnd, token.And, startPos, startCol, startLine), nil
		case '|':
			return l.matchThen('|', token.OrOr, token.Or, startPos, startCol, startLine), nil
		case '<':
			return l.less(startPos, startCol, startLine), nil
		case '>':
			return l.greater(startPos, startCol, startLine), nil
		case '=':
			return l.matchThen('=', token.EqEq, token.Eq, startPos, startCol, startLine), nil
		case '"':
			return l.stringLiteral(startPos, startCol, startLine)
		case '\'':
			return l.charLiteral(startPos, startCol, startLine)
		}

		tok := l.makeToken(token.EOF, "", startPos, startCol, startLine)
		tok.Len = 1
		return token.Token{}, util.NewLexError(tok, "unexpected character '%c'", ch)
	}
}

func (l *Lexer) peek() rune {
	if l.isAtEnd() {
		return 0
	}
	return l.source[l.pos]
}

func (l *Lexer) peekNext() rune {
	if l.pos+1 >= len(l.source) {
		return 0
	}
	return l.source[l.pos+1]
}

func (l *Lexer) advance() rune {
	if l.isAtEnd() {
		return 0
	}
	ch := l.source[l.pos]
	if ch == '\n' {
		l.line++
		l.column = 1
	} else {
		l.column++
	}
	l.pos++
	return ch
}

func (l *Lexer) match(expected rune) bool {
	if l.isAtEnd() || l.source[l.pos] != expected {
		return false
	}
	l.advance()
	return true
}

func (l *Lexer) isAtEnd() bool { return l.pos >= len(l.source) }

func (l *Lexer) makeToken(tokType token.Type, value string, startPos, startCol, startLine int) token.Token {
	return token.Token{
		Type: tokType, Value: value, FileIndex: l.fileIndex,
		Line: startLine, Column: startCol, Len: l.pos - startPos,
	}
}

func (l *Lexer) skipWhitespaceAndComments() error {
	for {
		switch l.peek() {
		case ' ', '\t', '\n', '\r':
			l.advance()
		case '/':
			if l.peekNext() == '*' {
				if err := l.blockComment(); err != nil {
					return err
				}
			} else {
				return nil
			}
		default:
			return nil
		}
	}
}

func (l *Lexer) blockComment() error {
	startTok := l.makeToken(token.EOF, "", l.pos, l.column, l.line)
	startTok.Len = 2
	l.advance()
	l.advance()
	for !l.isAtEnd() {
		if l.peek() == '*' && l.peekNext() == '/' {
			l.advance()
			l.advance()
			return nil
		}
		l.advance()
	}
	return util.NewLexError(startTok, "unterminated block comment")
}

func (l *Lexer) lineComment() {
	for !l.isAtEnd() && l.peek() != '\n' {
		l.advance()
	}
}

func (l *Lexer) identifierOrKeyword(startPos, startCol, startLine int) token.Token {
	for unicode.IsLetter(l.peek()) || unicode.IsDigit(l.peek()) || l.peek() == '_' {
		l.advance()
	}
	value := string(l.source[startPos:l.pos])
	tok := l.makeToken(token.Ident, value, startPos, startCol, startLine)

	if tokType, isKeyword := token.KeywordMap[value]; isKeyword {
		isBoolKeyword := tokType == token.Bool || tokType == token.True || tokType == token.False
		if !isBoolKeyword || l.cfg.IsFeatureEnabled(config.FeatBool) {
			tok.Type = tokType
		}
	}
	return tok
}

func (l *Lexer) numberLiteral(startPos, startCol, startLine int) (token.Token, error) {
	isFloat := false
	if l.peek() == '.' {
		isFloat = true
		l.advance()
	}

	if l.peek() == '0' && (l.peekNext() == 'x' || l.peekNext() == 'X') {
		l.advance()
		l.advance()
		for isHexDigit(l.peek()) {
			l.advance()
		}
	} else {
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}

	if l.peek() == '.' && unicode.IsDigit(l.peekNext()) {
		isFloat = true
		l.advance()
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}

	valueStr := string(l.source[startPos:l.pos])
	if (l.peek() == 'e' || l.peek() == 'E') && !strings.HasPrefix(valueStr, "0x") && !strings.HasPrefix(valueStr, "0X") {
		isFloat = true
		l.advance()
		if l.peek() == '+' || l.peek() == '-' {
			l.advance()
		}
		if !unicode.IsDigit(l.peek()) {
			tok := l.makeToken(token.FloatNumber, "", startPos, startCol, startLine)
			return token.Token{}, util.NewLexError(tok, "malformed floating-point literal: exponent has no digits")
		}
		for unicode.IsDigit(l.peek()) {
			l.advance()
		}
	}

	// Literal suffixes: f/F force float, l/L and u/U stick to the lexeme
	switch l.peek() {
	case 'f', 'F':
		isFloat = true
		l.advance()
	case 'l', 'L', 'u', 'U':
		l.advance()
		if l.peek() == 'l' || l.peek() == 'L' {
			l.advance()
		}
	}

	valueStr = string(l.source[startPos:l.pos])
	if isFloat {
		return l.makeToken(token.FloatNumber, valueStr, startPos, startCol, startLine), nil
	}

	tok := l.makeToken(token.Number, valueStr, startPos, startCol, startLine)
	digits := strings.TrimRight(valueStr, "uUlL")
	if _, err := strconv.ParseUint(digits, 0, 64); err != nil {
		if e, ok := err.(*strconv.NumError); ok && e.Err == strconv.ErrRange {
			util.Warn(l.cfg, config.WarnExtra, tok, "integer constant out of range: %s", valueStr)
			return tok, nil
		}
		return token.Token{}, util.NewLexError(tok, "invalid number literal: %s", valueStr)
	}
	return tok, nil
}

func (l *Lexer) stringLiteral(startPos, startCol, startLine int) (token.Token, error) {
	var sb strings.Builder
	for !l.isAtEnd() {
		c := l.peek()
		if c == '"' {
			l.advance()
			return l.makeToken(token.String, sb.String(), startPos, startCol, startLine), nil
		}
		if c == '\n' {
			break
		}
		if c == '\\' {
			l.advance()
			val, err := l.decodeEscape(startPos, startCol, startLine)
			if err != nil {
				return token.Token{}, err
			}
			sb.WriteRune(rune(val))
		} else {
			l.advance()
			sb.WriteRune(c)
		}
	}
	tok := l.makeToken(token.String, "", startPos, startCol, startLine)
	return token.Token{}, util.NewLexError(tok, "unterminated string literal")
}

func (l *Lexer) charLiteral(startPos, startCol, startLine int) (token.Token, error) {
	if l.isAtEnd() || l.peek() == '\'' {
		tok := l.makeToken(token.CharLit, "", startPos, startCol, startLine)
		return token.Token{}, util.NewLexError(tok, "empty character constant")
	}

	var val int64
	c := l.peek()
	if c == '\\' {
		l.advance()
		var err error
		val, err = l.decodeEscape(startPos, startCol, startLine)
		if err != nil {
			return token.Token{}, err
		}
	} else {
		l.advance()
		val = int64(c)
	}

	tok := l.makeToken(token.CharLit, "", startPos, startCol, startLine)
	if !l.match('\'') {
		if !l.isAtEnd() && l.peek() != '\n' {
			return token.Token{}, util.NewLexError(tok, "multi-character constant is not supported")
		}
		return token.Token{}, util.NewLexError(tok, "unterminated character literal")
	}
	if val > 255 {
		util.Warn(l.cfg, config.WarnTruncatedChar, tok, "character constant value %d truncated to a byte", val)
		val &= 0xFF
	}
	tok.Value = string(rune(val))
	tok.Len = l.pos - startPos
	return tok, nil
}

func (l *Lexer) decodeEscape(startPos, startCol, startLine int) (int64, error) {
	if l.isAtEnd() {
		tok := l.makeToken(token.String, "", startPos, startCol, startLine)
		return 0, util.NewLexError(tok, "unterminated escape sequence")
	}
	c := l.advance()

	if c == 'x' {
		return l.parseHexEscape(startPos, startCol, startLine)
	}

	// Octal escapes: \0 through \377
	if c >= '0' && c <= '7' {
		val := int64(c - '0')
		for i := 0; i < 2; i++ {
			next := l.peek()
			if next < '0' || next > '7' {
				break
			}
			val = val*8 + int64(next-'0')
			l.advance()
		}
		return val, nil
	}

	escapes := map[rune]int64{
		'n': '\n', 't': '\t', 'r': '\r', 'b': '\b',
		'a': '\a', 'f': '\f', 'v': '\v',
		'\\': '\\', '\'': '\'', '"': '"', '?': '?',
	}
	if val, ok := escapes[c]; ok {
		return val, nil
	}
	util.Warn(l.cfg, config.WarnExtra, l.makeToken(token.String, "", startPos, startCol, startLine), "unrecognized escape sequence '\\%c'", c)
	return int64(c), nil
}

func (l *Lexer) parseHexEscape(startPos, startCol, startLine int) (int64, error) {
	var val int64
	for i := 0; i < 2; i++ {
		c := l.peek()
		var digit int64
		switch {
		case c >= '0' && c <= '9':
			digit = int64(c - '0')
		case c >= 'a' && c <= 'f':
			digit = int64(c - 'a' + 10)
		case c >= 'A' && c <= 'F':
			digit = int64(c - 'A' + 10)
		default:
			tok := l.makeToken(token.String, "", startPos, startCol, startLine)
			return 0, util.NewLexError(tok, "hex escape expects two hex digits")
		}
		val = val*16 + digit
		l.advance()
	}
	return val, nil
}

func (l *Lexer) matchThen(expected rune, thenType, elseType token.Type, sPos, sCol, sLine int) token.Token {
	if l.match(expected) {
		return l.makeToken(thenType, "", sPos, sCol, sLine)
	}
	return l.makeToken(elseType, "", sPos, sCol, sLine)
}

func (l *Lexer) plus(sPos, sCol, sLine int) token.Token {
	if l.match('+') {
		return l.makeToken(token.Inc, "", sPos, sCol, sLine)
	}
	if l.match('=') {
		return l.makeToken(token.PlusEq, "", sPos, sCol, sLine)
	}
	return l.makeToken(token.Plus, "", sPos, sCol, sLine)
}

func (l *Lexer) minus(sPos, sCol, sLine int) token.Token {
	if l.match('-') {
		return l.makeToken(token.Dec, "", sPos, sCol, sLine)
	}
	if l.match('=') {
		return l.makeToken(token.MinusEq, "", sPos, sCol, sLine)
	}
	if l.match('>') {
		return l.makeToken(token.Arrow, "", sPos, sCol, sLine)
	}
	return l.makeToken(token.Minus, "", sPos, sCol, sLine)
}

func (l *Lexer) less(sPos, sCol, sLine int) token.Token {
	if l.match('<') {
		return l.makeToken(token.Shl, "", sPos, sCol, sLine)
	}
	return l.matchThen('=', token.Lte, token.Lt, sPos, sCol, sLine)
}

func (l *Lexer) greater(sPos, sCol, sLine int) token.Token {
	if l.match('>') {
		return l.makeToken(token.Shr, "", sPos, sCol, sLine)
	}
	return l.matchThen('=', token.Gte, token.Gt, sPos, sCol, sLine)
}

func isHexDigit(c rune) bool {
	return unicode.IsDigit(c) || (c >= 'a' && c <= 'f') || (c >= 'A' && c <= 'F')
}
