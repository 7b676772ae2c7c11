package mapping

import (
	"fmt"
	"strings"

	"github.com/xplshn/gct/pkg/ast"
	"github.com/xplshn/gct/pkg/config"
)

// TypeName renders a resolved source type in the target language.
// Java spellings are complete (arrays included); C++ array dimensions
// attach to the declarator, so array types render their element here
// and the backend places the brackets (see DeclDims).
func TypeName(t *ast.CType, target config.TargetLang) (string, error) {
	if t == nil {
		return "", fmt.Errorf("unresolved type")
	}
	if target == config.TargetJava {
		return javaTypeName(t)
	}
	return cppTypeName(t)
}

func javaTypeName(t *ast.CType) (string, error) {
	switch t.Kind {
	case ast.TYPE_PRIMITIVE:
		// unsigned folds to the signed primitive
		return t.Name, nil
	case ast.TYPE_FLOAT, ast.TYPE_VOID:
		return t.Name, nil
	case ast.TYPE_BOOL:
		return "boolean", nil
	case ast.TYPE_ENUM:
		return "int", nil
	case ast.TYPE_STRUCT:
		return t.Name, nil
	case ast.TYPE_POINTER:
		if t.IsCharPtr() {
			return "String", nil
		}
		if t.Base != nil && t.Base.Kind == ast.TYPE_STRUCT {
			// The class reference carries the object identity a struct
			// pointer holds.
			return t.Base.Name, nil
		}
		if t.Base == nil || t.Base.Kind == ast.TYPE_VOID {
			return "", fmt.Errorf("no Java equivalent for type '%s'", t)
		}
		elem, err := javaTypeName(t.Base)
		if err != nil {
			return "", err
		}
		return elem + "[]", nil
	case ast.TYPE_ARRAY:
		dims := len(t.ArrayDims)
		var name string
		if isChar(t.Base) {
			name = "String"
			dims--
		} else {
			var err error
			if name, err = javaTypeName(t.Base); err != nil {
				return "", err
			}
		}
		return name + strings.Repeat("[]", dims), nil
	}
	return "", fmt.Errorf("no Java equivalent for type '%s'", t)
}

func cppTypeName(t *ast.CType) (string, error) {
	switch t.Kind {
	case ast.TYPE_PRIMITIVE:
		if t.Unsigned {
			return "unsigned " + t.Name, nil
		}
		return t.Name, nil
	case ast.TYPE_FLOAT, ast.TYPE_BOOL, ast.TYPE_VOID:
		return t.Name, nil
	case ast.TYPE_ENUM, ast.TYPE_STRUCT:
		return t.Name, nil
	case ast.TYPE_POINTER:
		if t.IsCharPtr() {
			return "string", nil
		}
		if t.Decayed {
			return cppTypeName(t.Base)
		}
		base, err := cppTypeName(t.Base)
		if err != nil {
			return "", err
		}
		return base + " *", nil
	case ast.TYPE_ARRAY:
		if isChar(t.Base) {
			return "string", nil
		}
		return cppTypeName(t.Base)
	}
	return "", fmt.Errorf("no C++ equivalent for type '%s'", t)
}

func isChar(t *ast.CType) bool {
	return t != nil && t.Kind == ast.TYPE_PRIMITIVE && t.Name == "char" && !t.Unsigned
}

// DeclDims returns the array dimensions the target declarator still
// carries once the string mapping has consumed the trailing char
// dimension.
func DeclDims(t *ast.CType) []*ast.Node {
	if t == nil || t.Kind != ast.TYPE_ARRAY {
		return nil
	}
	if isChar(t.Base) {
		return t.ArrayDims[:len(t.ArrayDims)-1]
	}
	return t.ArrayDims
}
