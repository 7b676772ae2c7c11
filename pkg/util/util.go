package util

import (
	"fmt"
	"os"
	"strings"

	"golang.org/x/term"

	"github.com/xplshn/gct/pkg/config"
	"github.com/xplshn/gct/pkg/token"
)

// SourceFileRecord tracks the name and content of a single source file.
type SourceFileRecord struct {
	Name    string
	Content []rune
}

var sourceFiles []SourceFileRecord

// SetSourceFiles stores the source code for all input files for rich error messages
func SetSourceFiles(files []SourceFileRecord) {
	sourceFiles = files
}

// findFileAndLine converts a global token to a file-specific location
func findFileAndLine(tok token.Token) (filename string, line, col int) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) {
		return "", tok.Line, tok.Column
	}
	return sourceFiles[tok.FileIndex].Name, tok.Line, tok.Column
}

func posPrefix(tok token.Token) string {
	filename, line, col := findFileAndLine(tok)
	if filename == "" {
		return fmt.Sprintf("%d:%d: ", line, col)
	}
	return fmt.Sprintf("%s:%d:%d: ", filename, line, col)
}

// PositionedError is an error raised against a specific source token.
type PositionedError interface {
	error
	Pos() token.Token
}

// LexError reports a malformed token.
type LexError struct {
	Tok token.Token
	Msg string
}

func (e *LexError) Error() string    { return posPrefix(e.Tok) + e.Msg }
func (e *LexError) Pos() token.Token { return e.Tok }

func NewLexError(tok token.Token, format string, args ...interface{}) *LexError {
	return &LexError{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// ParseError reports a grammar violation.
type ParseError struct {
	Tok token.Token
	Msg string
}

func (e *ParseError) Error() string    { return posPrefix(e.Tok) + e.Msg }
func (e *ParseError) Pos() token.Token { return e.Tok }

func NewParseError(tok token.Token, format string, args ...interface{}) *ParseError {
	return &ParseError{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// TypeError reports a scope or type violation.
type TypeError struct {
	Tok token.Token
	Msg string
}

func (e *TypeError) Error() string    { return posPrefix(e.Tok) + e.Msg }
func (e *TypeError) Pos() token.Token { return e.Tok }

func NewTypeError(tok token.Token, format string, args ...interface{}) *TypeError {
	return &TypeError{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

// UnsupportedConstructError reports a construct with no emission or mapping rule.
type UnsupportedConstructError struct {
	Tok token.Token
	Msg string
}

func (e *UnsupportedConstructError) Error() string    { return posPrefix(e.Tok) + e.Msg }
func (e *UnsupportedConstructError) Pos() token.Token { return e.Tok }

func NewUnsupportedConstructError(tok token.Token, format string, args ...interface{}) *UnsupportedConstructError {
	return &UnsupportedConstructError{Tok: tok, Msg: fmt.Sprintf(format, args...)}
}

var useColor = term.IsTerminal(int(os.Stderr.Fd()))

func colored(code, s string) string {
	if !useColor {
		return s
	}
	return code + s + "\033[0m"
}

// printErrorLine prints the source line and a caret indicating the error position
func printErrorLine(stream *os.File, tok token.Token) {
	if tok.FileIndex < 0 || tok.FileIndex >= len(sourceFiles) || tok.Line == 0 {
		return
	}

	content := sourceFiles[tok.FileIndex].Content
	lineNum := tok.Line
	lineStart := 0
	for i, r := range content {
		if lineNum <= 1 {
			break
		}
		if r == '\n' {
			lineNum--
			lineStart = i + 1
		}
	}

	lineEnd := len(content)
	for i := lineStart; i < len(content); i++ {
		if content[i] == '\n' {
			lineEnd = i
			break
		}
	}

	fmt.Fprintf(stream, "  %s\n", string(content[lineStart:lineEnd]))

	caret := "^"
	if tok.Len > 1 {
		caret += strings.Repeat("~", tok.Len-1)
	}
	if tok.Column > 0 {
		fmt.Fprintf(stream, "  %s%s\n", strings.Repeat(" ", tok.Column-1), colored("\033[32m", caret))
	}
}

// Report prints a pipeline error with its source context to stderr.
// It never exits; the caller decides how to proceed.
func Report(err error) {
	pe, ok := err.(PositionedError)
	if !ok {
		fmt.Fprintf(os.Stderr, "%s %s\n", colored("\033[31m", "error:"), err)
		return
	}
	tok := pe.Pos()
	filename, line, col := findFileAndLine(tok)
	if filename == "" {
		filename = "<input>"
	}
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %s ", filename, line, col, colored("\033[31m", "error:"))
	fmt.Fprintln(os.Stderr, errMessage(pe))
	printErrorLine(os.Stderr, tok)
}

func errMessage(err error) string {
	switch e := err.(type) {
	case *LexError:
		return e.Msg
	case *ParseError:
		return e.Msg
	case *TypeError:
		return e.Msg
	case *UnsupportedConstructError:
		return e.Msg
	}
	return err.Error()
}

var warningsEmitted int

// Warn prints a formatted warning message if the corresponding warning is enabled
func Warn(cfg *config.Config, wt config.Warning, tok token.Token, format string, args ...interface{}) {
	if cfg == nil || !cfg.IsWarningEnabled(wt) {
		return
	}
	warningsEmitted++
	filename, line, col := findFileAndLine(tok)
	if filename == "" {
		filename = "<input>"
	}
	warningName := cfg.Warnings[wt].Name
	fmt.Fprintf(os.Stderr, "%s:%d:%d: %s ", filename, line, col, colored("\033[33m", "warning:"))
	fmt.Fprintf(os.Stderr, format, args...)
	fmt.Fprintf(os.Stderr, " [-W%s]\n", warningName)
	printErrorLine(os.Stderr, tok)
}

// EmittedWarnings returns how many warnings have been printed since the last reset.
func EmittedWarnings() int { return warningsEmitted }

// ResetWarnings clears the warning counter at a unit boundary.
func ResetWarnings() { warningsEmitted = 0 }
