package token

type Type int

const (
	EOF Type = iota
	Ident
	Number
	FloatNumber
	String
	CharLit
	If
	Else
	While
	Do
	For
	Switch
	Case
	Default
	Break
	Continue
	Return
	Struct
	Enum
	Const
	Sizeof
	Null
	True
	False
	Void
	Char
	Bool
	Short
	Int
	Long
	Unsigned
	Signed
	Float
	Double
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Semi
	Comma
	Colon
	Question
	Dot
	Arrow
	Eq
	PlusEq
	MinusEq
	StarEq
	SlashEq
	RemEq
	Plus
	Minus
	Star
	Slash
	Rem
	And
	Or
	Xor
	Shl
	Shr
	EqEq
	Neq
	Lt
	Gt
	Gte
	Lte
	AndAnd
	OrOr
	Not
	Complement
	Inc
	Dec
)

var KeywordMap = map[string]Type{
	"if":       If,
	"else":     Else,
	"while":    While,
	"do":       Do,
	"for":      For,
	"switch":   Switch,
	"case":     Case,
	"default":  Default,
	"break":    Break,
	"continue": Continue,
	"return":   Return,
	"struct":   Struct,
	"enum":     Enum,
	"const":    Const,
	"sizeof":   Sizeof,
	"NULL":     Null,
	"true":     True,
	"false":    False,
	"void":     Void,
	"char":     Char,
	"bool":     Bool,
	"short":    Short,
	"int":      Int,
	"long":     Long,
	"unsigned": Unsigned,
	"signed":   Signed,
	"float":    Float,
	"double":   Double,
}

var opStrings = map[Type]string{
	EOF:         "end of file",
	Ident:       "identifier",
	Number:      "integer constant",
	FloatNumber: "floating constant",
	String:      "string literal",
	CharLit:     "character constant",
	LParen:      "(",
	RParen:      ")",
	LBrace:      "{",
	RBrace:      "}",
	LBracket:    "[",
	RBracket:    "]",
	Semi:        ";",
	Comma:       ",",
	Colon:       ":",
	Question:    "?",
	Dot:         ".",
	Arrow:       "->",
	Eq:          "=",
	PlusEq:      "+=",
	MinusEq:     "-=",
	StarEq:      "*=",
	SlashEq:     "/=",
	RemEq:       "%=",
	Plus:        "+",
	Minus:       "-",
	Star:        "*",
	Slash:       "/",
	Rem:         "%",
	And:         "&",
	Or:          "|",
	Xor:         "^",
	Shl:         "<<",
	Shr:         ">>",
	EqEq:        "==",
	Neq:         "!=",
	Lt:          "<",
	Gt:          ">",
	Gte:         ">=",
	Lte:         "<=",
	AndAnd:      "&&",
	OrOr:        "||",
	Not:         "!",
	Complement:  "~",
	Inc:         "++",
	Dec:         "--",
}

// Reverse mapping from Type to a printable name
var TypeStrings = make(map[Type]string)

func init() {
	for str, typ := range KeywordMap {
		TypeStrings[typ] = str
	}
	for typ, str := range opStrings {
		TypeStrings[typ] = str
	}
}

func (t Type) String() string {
	if s, ok := TypeStrings[t]; ok {
		return s
	}
	return "unknown token"
}

// IsTypeKeyword reports whether t begins a type specifier.
func (t Type) IsTypeKeyword() bool {
	switch t {
	case Void, Char, Bool, Short, Int, Long, Unsigned, Signed, Float, Double:
		return true
	}
	return false
}

// IsAssignOp reports whether t is a plain or compound assignment operator.
func (t Type) IsAssignOp() bool {
	switch t {
	case Eq, PlusEq, MinusEq, StarEq, SlashEq, RemEq:
		return true
	}
	return false
}

type Token struct {
	Type      Type
	Value     string
	FileIndex int
	Line      int
	Column    int
	Len       int
}
