package preprocess

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xplshn/gct/pkg/token"
	"github.com/xplshn/gct/pkg/util"
)

// Define is an object-like constant macro collected from a `#define` line.
type Define struct {
	Name  string
	Value string
	Tok   token.Token
}

// Result is the outcome of scanning one translation unit for directives.
// Source has every directive line blanked so token line numbers still
// match the original file.
type Result struct {
	Source   string
	Defines  []Define
	Includes []string
}

// Run scans src for `#define` and `#include` directives. Only object-like
// defines whose body is a single literal are accepted; anything else is a
// LexError. Included header names are recorded and the lines dropped.
func Run(src string, fileIndex int) (Result, error) {
	res := Result{}
	lines := strings.Split(src, "\n")
	var out strings.Builder

	for lineNo, line := range lines {
		trimmed := strings.TrimSpace(line)
		if !strings.HasPrefix(trimmed, "#") {
			out.WriteString(line)
			if lineNo < len(lines)-1 {
				out.WriteString("\n")
			}
			continue
		}

		col := strings.IndexByte(line, '#') + 1
		dirTok := token.Token{FileIndex: fileIndex, Line: lineNo + 1, Column: col, Len: len(trimmed)}

		switch {
		case strings.HasPrefix(trimmed, "#define"):
			def, err := parseDefine(trimmed, fileIndex, lineNo+1, line)
			if err != nil {
				return Result{}, err
			}
			res.Defines = append(res.Defines, def)
		case strings.HasPrefix(trimmed, "#include"):
			name, err := parseInclude(trimmed)
			if err != nil {
				return Result{}, util.NewLexError(dirTok, "%s", err.Error())
			}
			res.Includes = append(res.Includes, name)
		default:
			return Result{}, util.NewLexError(dirTok, "unsupported preprocessor directive '%s'", firstWord(trimmed))
		}

		// Blank the directive so later lines keep their numbers
		if lineNo < len(lines)-1 {
			out.WriteString("\n")
		}
	}

	res.Source = out.String()
	return res, nil
}

func firstWord(s string) string {
	if i := strings.IndexAny(s, " \t"); i >= 0 {
		return s[:i]
	}
	return s
}

func parseDefine(trimmed string, fileIndex, lineNo int, rawLine string) (Define, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "#define"))
	nameEnd := 0
	for nameEnd < len(rest) {
		c := rest[nameEnd]
		if c == ' ' || c == '\t' || c == '(' {
			break
		}
		nameEnd++
	}
	name := rest[:nameEnd]
	body := rest[nameEnd:]

	nameCol := strings.Index(rawLine, name) + 1
	tok := token.Token{Type: token.Ident, Value: name, FileIndex: fileIndex, Line: lineNo, Column: nameCol, Len: len(name)}

	if name == "" {
		return Define{}, util.NewLexError(tok, "#define requires a macro name")
	}
	if strings.HasPrefix(body, "(") {
		return Define{}, util.NewLexError(tok, "function-like macro '%s' is not supported", name)
	}

	value := strings.TrimSpace(stripLineComment(body))
	if value == "" {
		return Define{}, util.NewLexError(tok, "#define '%s' requires a literal value", name)
	}
	if !isLiteral(value) {
		return Define{}, util.NewLexError(tok, "#define '%s' must expand to a single literal, got '%s'", name, value)
	}
	return Define{Name: name, Value: value, Tok: tok}, nil
}

func stripLineComment(s string) string {
	inStr, inChar := false, false
	for i := 0; i+1 < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			if !inChar {
				inStr = !inStr
			}
		case '\'':
			if !inStr {
				inChar = !inChar
			}
		case '/':
			if !inStr && !inChar && (s[i+1] == '/' || s[i+1] == '*') {
				return s[:i]
			}
		}
	}
	return s
}

func isLiteral(s string) bool {
	if len(s) >= 2 {
		if s[0] == '"' && s[len(s)-1] == '"' {
			return true
		}
		if s[0] == '\'' && s[len(s)-1] == '\'' {
			return true
		}
	}
	num := strings.TrimPrefix(s, "-")
	if num == "" {
		return false
	}
	if _, err := strconv.ParseInt(num, 0, 64); err == nil {
		return true
	}
	if _, err := strconv.ParseFloat(num, 64); err == nil {
		return true
	}
	return false
}

func parseInclude(trimmed string) (string, error) {
	rest := strings.TrimSpace(strings.TrimPrefix(trimmed, "#include"))
	rest = strings.TrimSpace(stripLineComment(rest))
	if len(rest) >= 2 {
		if rest[0] == '<' && rest[len(rest)-1] == '>' {
			return rest[1 : len(rest)-1], nil
		}
		if rest[0] == '"' && rest[len(rest)-1] == '"' {
			return rest[1 : len(rest)-1], nil
		}
	}
	return "", fmt.Errorf("#include expects <header> or \"header\"")
}
