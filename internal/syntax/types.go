// Package syntax parses method bodies with tree-sitter and exposes the
// resulting trees as plain values, so callers never hold cgo objects.
package syntax

import (
	"errors"
	"path/filepath"
	"strings"
)

// ErrUnavailable is returned when the binary was built without cgo.
var ErrUnavailable = errors.New("syntax parsing requires CGO (tree-sitter)")

// ErrNoFunction is returned when no function encloses the requested position.
var ErrNoFunction = errors.New("no function at position")

// Language represents a supported programming language.
type Language string

const (
	LangCSharp     Language = "csharp"
	LangGo         Language = "go"
	LangJava       Language = "java"
	LangJavaScript Language = "javascript"
	LangTypeScript Language = "typescript"
	LangTSX        Language = "tsx"
	LangPython     Language = "python"
	LangRust       Language = "rust"
	LangKotlin     Language = "kotlin"
)

// LanguageFromPath returns the Language for a file path by extension.
func LanguageFromPath(path string) (Language, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".cs":
		return LangCSharp, true
	case ".go":
		return LangGo, true
	case ".java":
		return LangJava, true
	case ".js", ".jsx", ".mjs", ".cjs":
		return LangJavaScript, true
	case ".ts", ".mts", ".cts":
		return LangTypeScript, true
	case ".tsx":
		return LangTSX, true
	case ".py":
		return LangPython, true
	case ".rs":
		return LangRust, true
	case ".kt", ".kts":
		return LangKotlin, true
	}
	return "", false
}

// LanguageFromName maps SCIP document language names to a Language.
func LanguageFromName(name string) (Language, bool) {
	switch strings.ToLower(name) {
	case "csharp", "c#", "cs":
		return LangCSharp, true
	case "go", "golang":
		return LangGo, true
	case "java":
		return LangJava, true
	case "javascript", "js", "javascriptreact":
		return LangJavaScript, true
	case "typescript", "ts":
		return LangTypeScript, true
	case "typescriptreact", "tsx":
		return LangTSX, true
	case "python", "py":
		return LangPython, true
	case "rust", "rs":
		return LangRust, true
	case "kotlin", "kt":
		return LangKotlin, true
	}
	return "", false
}

// Point is a 0-based row and byte column.
type Point struct {
	Row    int
	Column int
}

// Before reports whether p comes strictly before q.
func (p Point) Before(q Point) bool {
	return p.Row < q.Row || (p.Row == q.Row && p.Column < q.Column)
}

// Node is a named syntax node detached from the parser.
type Node struct {
	Type  string
	Start Point
	End   Point
	Call  bool
	// Callee is the identifier naming the call target. Set only when Call is true.
	Callee     *Point
	CalleeText string
	Children   []*Node
}

// Calls returns every call node in n's subtree in document order.
func (n *Node) Calls() []*Node {
	var out []*Node
	var walk func(*Node)
	walk = func(x *Node) {
		if x.Call {
			out = append(out, x)
		}
		for _, c := range x.Children {
			walk(c)
		}
	}
	if n != nil {
		walk(n)
	}
	return out
}

// HasBody reports whether the function node carries statements. Abstract and
// interface members have none.
func (n *Node) HasBody() bool {
	for _, c := range n.Children {
		if isBodyType(c.Type) {
			return true
		}
	}
	return false
}

func isBodyType(t string) bool {
	switch t {
	case "block", "statement_block", "arrow_expression_clause", "function_body", "compound_statement":
		return true
	}
	return false
}

// FunctionNodeTypes returns the node types that declare a callable body.
func FunctionNodeTypes(lang Language) []string {
	switch lang {
	case LangCSharp:
		return []string{"method_declaration", "constructor_declaration", "destructor_declaration",
			"operator_declaration", "conversion_operator_declaration", "local_function_statement", "accessor_declaration"}
	case LangGo:
		return []string{"function_declaration", "method_declaration"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"function_declaration", "method_definition", "generator_function_declaration", "function_expression", "arrow_function"}
	case LangPython:
		return []string{"function_definition"}
	case LangRust:
		return []string{"function_item"}
	case LangJava:
		return []string{"method_declaration", "constructor_declaration"}
	case LangKotlin:
		return []string{"function_declaration", "secondary_constructor"}
	}
	return nil
}

// CallNodeTypes returns the node types that invoke a callable.
func CallNodeTypes(lang Language) []string {
	switch lang {
	case LangCSharp:
		return []string{"invocation_expression", "object_creation_expression"}
	case LangGo:
		return []string{"call_expression"}
	case LangJavaScript, LangTypeScript, LangTSX:
		return []string{"call_expression", "new_expression"}
	case LangPython:
		return []string{"call"}
	case LangRust:
		return []string{"call_expression", "macro_invocation"}
	case LangJava:
		return []string{"method_invocation", "object_creation_expression"}
	case LangKotlin:
		return []string{"call_expression"}
	}
	return nil
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}
