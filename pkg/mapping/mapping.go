// Package mapping holds the library call mapping table: one entry per
// C routine the translator understands, with the emission strategy for
// each target language. The table is plain data; backends interpret it.
package mapping

import (
	"strconv"
	"strings"

	"github.com/xplshn/gct/pkg/ast"
)

// Strategy describes the target-side shape of a mapped call.
type Strategy int

const (
	Call       Strategy = iota // free function call under a target name
	Method                     // method on the first argument
	Template                   // textual rewrite with %N placeholders
	PrintfExpand               // format-string driven output emission
	ScanfExpand                // format-string driven statement expansion
	HeapAlloc                  // (T*)malloc(n*sizeof(T)) -> new T[n]
)

// Rule is the emission rule for one target language. A nil rule means
// the name is unmapped for that target and passes through as a plain
// call.
type Rule struct {
	Strategy Strategy
	Target   string // callee name, method name, or template text
	Bool     bool   // emission is boolean-valued where C returned int
}

// ArgReq constrains the shape of one argument position.
type ArgReq int

const (
	AnyArg ArgReq = iota
	IntArg        // integer-valued, including char
	NumArg        // integer or floating
	StrArg        // char* / char[N]
	LitStrArg     // string literal
	OutArg        // address-of lvalue, or a string buffer
)

// ArgShape condenses what shape matching needs to know about one
// resolved call argument.
type ArgShape struct {
	Integer     bool
	Float       bool
	String      bool
	Literal     bool
	Addressable bool
}

// Descriptor is one library-call mapping entry.
type Descriptor struct {
	Name         string
	Sig          *ast.CType // C-side signature, seeded as a builtin symbol
	Args         []ArgReq   // fixed-prefix shape requirements
	VarArgs      ArgReq     // requirement on trailing args when Sig is variadic
	Java         *Rule
	Cpp          *Rule
	CppHeader    string // include the C++ emission needs
	NeedsScanner bool   // Java emission reads the shared Scanner
}

// Match reports whether a call with the given argument shapes is one
// this entry can emit. A mapped name whose shapes do not match is a
// translation failure, not a pass-through.
func (d *Descriptor) Match(shapes []ArgShape) bool {
	if d.Sig != nil && d.Sig.Variadic {
		if len(shapes) < len(d.Args) {
			return false
		}
	} else if len(shapes) != len(d.Args) {
		return false
	}
	for i, req := range d.Args {
		if !shapeOK(req, shapes[i]) {
			return false
		}
	}
	for _, s := range shapes[len(d.Args):] {
		if !shapeOK(d.VarArgs, s) {
			return false
		}
	}
	return true
}

func shapeOK(req ArgReq, s ArgShape) bool {
	switch req {
	case AnyArg:
		return true
	case IntArg:
		return s.Integer
	case NumArg:
		return s.Integer || s.Float
	case StrArg:
		return s.String
	case LitStrArg:
		return s.String && s.Literal
	case OutArg:
		return s.Addressable || s.String
	}
	return false
}

// Expand substitutes %1..%9 placeholders in a template with rendered
// arguments.
func Expand(template string, args []string) string {
	var sb strings.Builder
	for i := 0; i < len(template); i++ {
		c := template[i]
		if c == '%' && i+1 < len(template) && template[i+1] >= '1' && template[i+1] <= '9' {
			n, _ := strconv.Atoi(string(template[i+1]))
			if n <= len(args) {
				sb.WriteString(args[n-1])
			}
			i++
			continue
		}
		sb.WriteByte(c)
	}
	return sb.String()
}

func sig(ret *ast.CType, params ...*ast.CType) *ast.CType {
	return &ast.CType{Kind: ast.TYPE_FUNC, Return: ret, Params: params}
}

func varargs(ret *ast.CType, params ...*ast.CType) *ast.CType {
	return &ast.CType{Kind: ast.TYPE_FUNC, Return: ret, Params: params, Variadic: true}
}

func mathEntry(name, javaName string) *Descriptor {
	return &Descriptor{
		Name: name, Sig: sig(ast.TypeDouble, ast.TypeDouble),
		Args:      []ArgReq{NumArg},
		Java:      &Rule{Strategy: Call, Target: javaName},
		Cpp:       &Rule{Strategy: Call, Target: name},
		CppHeader: "<cmath>",
	}
}

func ctypeEntry(name, javaName string) *Descriptor {
	return &Descriptor{
		Name: name, Sig: sig(ast.TypeInt, ast.TypeInt),
		Args: []ArgReq{IntArg},
		// The is* predicates come back boolean on the Java side.
		Java:      &Rule{Strategy: Call, Target: javaName, Bool: strings.HasPrefix(name, "is")},
		Cpp:       &Rule{Strategy: Call, Target: name},
		CppHeader: "<cctype>",
	}
}

// Table holds every library routine the translator maps. Unlisted
// names take the user-function pass-through path.
var Table = []*Descriptor{
	// Formatted I/O
	{
		Name: "printf", Sig: varargs(ast.TypeInt, ast.TypeCharPtr),
		Args: []ArgReq{LitStrArg}, VarArgs: AnyArg,
		Java:      &Rule{Strategy: PrintfExpand},
		Cpp:       &Rule{Strategy: PrintfExpand},
		CppHeader: "<iostream>",
	},
	{
		Name: "scanf", Sig: varargs(ast.TypeInt, ast.TypeCharPtr),
		Args: []ArgReq{LitStrArg}, VarArgs: OutArg,
		Java:         &Rule{Strategy: ScanfExpand},
		Cpp:          &Rule{Strategy: ScanfExpand},
		CppHeader:    "<iostream>",
		NeedsScanner: true,
	},
	{
		Name: "puts", Sig: sig(ast.TypeInt, ast.TypeCharPtr),
		Args:      []ArgReq{StrArg},
		Java:      &Rule{Strategy: Call, Target: "System.out.println"},
		Cpp:       &Rule{Strategy: Template, Target: `cout << %1 << "\n"`},
		CppHeader: "<iostream>",
	},
	{
		Name: "putchar", Sig: sig(ast.TypeInt, ast.TypeInt),
		Args:      []ArgReq{IntArg},
		Java:      &Rule{Strategy: Template, Target: `System.out.print((char) %1)`},
		Cpp:       &Rule{Strategy: Template, Target: `cout << (char) %1`},
		CppHeader: "<iostream>",
	},

	// String routines. Receivers must have resolved to the string
	// representation; Match rejects raw integer pointers.
	{
		Name: "strlen", Sig: sig(ast.TypeInt, ast.TypeCharPtr),
		Args:      []ArgReq{StrArg},
		Java:      &Rule{Strategy: Method, Target: "length"},
		Cpp:       &Rule{Strategy: Method, Target: "length"},
		CppHeader: "<string>",
	},
	{
		Name: "strcmp", Sig: sig(ast.TypeInt, ast.TypeCharPtr, ast.TypeCharPtr),
		Args:      []ArgReq{StrArg, StrArg},
		Java:      &Rule{Strategy: Method, Target: "compareTo"},
		Cpp:       &Rule{Strategy: Method, Target: "compare"},
		CppHeader: "<string>",
	},
	{
		Name: "strcpy", Sig: sig(ast.TypeCharPtr, ast.TypeCharPtr, ast.TypeCharPtr),
		Args:      []ArgReq{StrArg, StrArg},
		Java:      &Rule{Strategy: Template, Target: `%1 = %2`},
		Cpp:       &Rule{Strategy: Template, Target: `%1 = %2`},
		CppHeader: "<string>",
	},
	{
		Name: "strcat", Sig: sig(ast.TypeCharPtr, ast.TypeCharPtr, ast.TypeCharPtr),
		Args:      []ArgReq{StrArg, StrArg},
		Java:      &Rule{Strategy: Template, Target: `%1 = %1 + %2`},
		Cpp:       &Rule{Strategy: Template, Target: `%1 += %2`},
		CppHeader: "<string>",
	},
	{
		Name: "strchr", Sig: sig(ast.TypeCharPtr, ast.TypeCharPtr, ast.TypeInt),
		Args:      []ArgReq{StrArg, IntArg},
		Java:      &Rule{Strategy: Template, Target: `(%1.indexOf(%2) >= 0)`, Bool: true},
		Cpp:       &Rule{Strategy: Template, Target: `(%1.find(%2) != string::npos)`},
		CppHeader: "<string>",
	},
	{
		Name: "strstr", Sig: sig(ast.TypeCharPtr, ast.TypeCharPtr, ast.TypeCharPtr),
		Args:      []ArgReq{StrArg, StrArg},
		Java:      &Rule{Strategy: Method, Target: "contains", Bool: true},
		Cpp:       &Rule{Strategy: Template, Target: `(%1.find(%2) != string::npos)`},
		CppHeader: "<string>",
	},

	// Numeric conversions
	{
		Name: "atoi", Sig: sig(ast.TypeInt, ast.TypeCharPtr),
		Args:      []ArgReq{StrArg},
		Java:      &Rule{Strategy: Call, Target: "Integer.parseInt"},
		Cpp:       &Rule{Strategy: Call, Target: "stoi"},
		CppHeader: "<string>",
	},
	{
		Name: "atol", Sig: sig(ast.TypeLong, ast.TypeCharPtr),
		Args:      []ArgReq{StrArg},
		Java:      &Rule{Strategy: Call, Target: "Long.parseLong"},
		Cpp:       &Rule{Strategy: Call, Target: "stol"},
		CppHeader: "<string>",
	},
	{
		Name: "atof", Sig: sig(ast.TypeDouble, ast.TypeCharPtr),
		Args:      []ArgReq{StrArg},
		Java:      &Rule{Strategy: Call, Target: "Double.parseDouble"},
		Cpp:       &Rule{Strategy: Call, Target: "stod"},
		CppHeader: "<string>",
	},

	// Character classification and case mapping
	ctypeEntry("isalpha", "Character.isLetter"),
	ctypeEntry("isdigit", "Character.isDigit"),
	ctypeEntry("isalnum", "Character.isLetterOrDigit"),
	ctypeEntry("isspace", "Character.isWhitespace"),
	ctypeEntry("isupper", "Character.isUpperCase"),
	ctypeEntry("islower", "Character.isLowerCase"),
	ctypeEntry("toupper", "Character.toUpperCase"),
	ctypeEntry("tolower", "Character.toLowerCase"),

	// Math
	mathEntry("sqrt", "Math.sqrt"),
	mathEntry("fabs", "Math.abs"),
	mathEntry("ceil", "Math.ceil"),
	mathEntry("floor", "Math.floor"),
	{
		// Math.round returns long; the cast keeps the result usable
		// where a double is expected, as with a %f format argument.
		Name: "round", Sig: sig(ast.TypeDouble, ast.TypeDouble),
		Args:      []ArgReq{NumArg},
		Java:      &Rule{Strategy: Template, Target: `((double) Math.round(%1))`},
		Cpp:       &Rule{Strategy: Call, Target: "round"},
		CppHeader: "<cmath>",
	},
	mathEntry("log", "Math.log"),
	mathEntry("log10", "Math.log10"),
	mathEntry("exp", "Math.exp"),
	mathEntry("sin", "Math.sin"),
	mathEntry("cos", "Math.cos"),
	mathEntry("tan", "Math.tan"),
	{
		Name: "pow", Sig: sig(ast.TypeDouble, ast.TypeDouble, ast.TypeDouble),
		Args:      []ArgReq{NumArg, NumArg},
		Java:      &Rule{Strategy: Call, Target: "Math.pow"},
		Cpp:       &Rule{Strategy: Call, Target: "pow"},
		CppHeader: "<cmath>",
	},
	{
		Name: "abs", Sig: sig(ast.TypeInt, ast.TypeInt),
		Args:      []ArgReq{IntArg},
		Java:      &Rule{Strategy: Call, Target: "Math.abs"},
		Cpp:       &Rule{Strategy: Call, Target: "abs"},
		CppHeader: "<cstdlib>",
	},

	// Pseudo-random source. srand has no Java-side rule: the name
	// passes through unmapped on that target.
	{
		Name: "rand", Sig: sig(ast.TypeInt),
		Args:      []ArgReq{},
		Java:      &Rule{Strategy: Template, Target: `((int)(Math.random() * 32767))`},
		Cpp:       &Rule{Strategy: Call, Target: "rand"},
		CppHeader: "<cstdlib>",
	},
	{
		Name: "srand", Sig: sig(ast.TypeVoid, ast.TypeInt),
		Args:      []ArgReq{IntArg},
		Cpp:       &Rule{Strategy: Call, Target: "srand"},
		CppHeader: "<cstdlib>",
	},

	// Heap. malloc is only emittable under a (T*) cast, where the
	// element type and count are recoverable; backends detect the
	// pattern at the cast site.
	{
		Name: "malloc", Sig: sig(ast.PointerTo(ast.TypeVoid), ast.TypeInt),
		Args: []ArgReq{IntArg},
		Java: &Rule{Strategy: HeapAlloc},
		Cpp:  &Rule{Strategy: HeapAlloc},
	},
	{
		Name: "free", Sig: sig(ast.TypeVoid, ast.PointerTo(ast.TypeVoid)),
		Args: []ArgReq{AnyArg},
		Java: &Rule{Strategy: Template, Target: `%1 = null`},
		Cpp:  &Rule{Strategy: Template, Target: `delete[] %1`},
	},

	// Process exit
	{
		Name: "exit", Sig: sig(ast.TypeVoid, ast.TypeInt),
		Args:      []ArgReq{IntArg},
		Java:      &Rule{Strategy: Call, Target: "System.exit"},
		Cpp:       &Rule{Strategy: Call, Target: "exit"},
		CppHeader: "<cstdlib>",
	},
}

var byName = make(map[string]*Descriptor, len(Table))

func init() {
	for _, d := range Table {
		byName[d.Name] = d
	}
}

// Lookup returns the mapping entry for a callee name.
func Lookup(name string) (*Descriptor, bool) {
	d, ok := byName[name]
	return d, ok
}
