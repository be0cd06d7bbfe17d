//go:build cgo

package syntax

import (
	"context"
	"fmt"
	"sync"

	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/csharp"
	"github.com/smacker/go-tree-sitter/golang"
	"github.com/smacker/go-tree-sitter/java"
	"github.com/smacker/go-tree-sitter/javascript"
	"github.com/smacker/go-tree-sitter/kotlin"
	"github.com/smacker/go-tree-sitter/python"
	"github.com/smacker/go-tree-sitter/rust"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// Available reports whether tree-sitter parsing is compiled in.
const Available = true

// Parser wraps tree-sitter for multi-language parsing. It is safe for
// concurrent use; calls are serialized on the underlying parser.
type Parser struct {
	mu     sync.Mutex
	parser *sitter.Parser
}

// NewParser creates a new tree-sitter parser.
func NewParser() *Parser {
	return &Parser{parser: sitter.NewParser()}
}

func (p *Parser) parse(ctx context.Context, source []byte, lang Language) (*sitter.Tree, error) {
	tsLang, err := getLanguage(lang)
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.parser.SetLanguage(tsLang)
	tree, err := p.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("parse error: %w", err)
	}
	return tree, nil
}

// FunctionAt returns the function declaration whose name sits at pos, or
// failing that the innermost function containing pos.
func (p *Parser) FunctionAt(ctx context.Context, source []byte, lang Language, pos Point) (*Node, error) {
	tree, err := p.parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()

	fnTypes := FunctionNodeTypes(lang)
	var named, innermost *sitter.Node

	var visit func(n *sitter.Node)
	visit = func(n *sitter.Node) {
		if !spans(n, pos) {
			return
		}
		if contains(fnTypes, n.Type()) {
			innermost = n
			if name := n.ChildByFieldName("name"); name != nil && toPoint(name.StartPoint()) == pos {
				named = n
			}
		}
		for i := 0; i < int(n.NamedChildCount()); i++ {
			visit(n.NamedChild(i))
		}
	}
	visit(tree.RootNode())

	target := named
	if target == nil {
		target = innermost
	}
	if target == nil {
		return nil, ErrNoFunction
	}
	return convert(target, source, CallNodeTypes(lang)), nil
}

// Parse returns the whole file as a detached tree.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*Node, error) {
	tree, err := p.parse(ctx, source, lang)
	if err != nil {
		return nil, err
	}
	defer tree.Close()
	return convert(tree.RootNode(), source, CallNodeTypes(lang)), nil
}

func convert(n *sitter.Node, source []byte, callTypes []string) *Node {
	out := &Node{
		Type:  n.Type(),
		Start: toPoint(n.StartPoint()),
		End:   toPoint(n.EndPoint()),
	}
	if contains(callTypes, out.Type) {
		out.Call = true
		if id := calleeIdentifier(n); id != nil {
			pt := toPoint(id.StartPoint())
			out.Callee = &pt
			out.CalleeText = id.Content(source)
		}
	}
	count := int(n.NamedChildCount())
	if count > 0 {
		out.Children = make([]*Node, 0, count)
		for i := 0; i < count; i++ {
			out.Children = append(out.Children, convert(n.NamedChild(i), source, callTypes))
		}
	}
	return out
}

// calleeIdentifier finds the identifier naming the invoked member:
// GetById in repo.GetById(id), Foo in new Foo<T>().
func calleeIdentifier(call *sitter.Node) *sitter.Node {
	n := call
	for depth := 0; n != nil && depth < 16; depth++ {
		if isIdentifier(n.Type()) {
			return n
		}
		next := firstField(n, "function", "name", "type", "field", "property", "attribute", "macro", "constructor")
		if next == nil && n.NamedChildCount() > 0 {
			next = n.NamedChild(0)
		}
		n = next
	}
	return nil
}

func firstField(n *sitter.Node, fields ...string) *sitter.Node {
	for _, f := range fields {
		if c := n.ChildByFieldName(f); c != nil {
			return c
		}
	}
	return nil
}

func isIdentifier(t string) bool {
	switch t {
	case "identifier", "field_identifier", "property_identifier", "simple_identifier", "type_identifier":
		return true
	}
	return false
}

func spans(n *sitter.Node, pos Point) bool {
	start, end := toPoint(n.StartPoint()), toPoint(n.EndPoint())
	return !pos.Before(start) && pos.Before(end)
}

func toPoint(p sitter.Point) Point {
	return Point{Row: int(p.Row), Column: int(p.Column)}
}

// getLanguage returns the tree-sitter Language for a given language identifier.
func getLanguage(lang Language) (*sitter.Language, error) {
	switch lang {
	case LangCSharp:
		return csharp.GetLanguage(), nil
	case LangGo:
		return golang.GetLanguage(), nil
	case LangJavaScript:
		return javascript.GetLanguage(), nil
	case LangTypeScript:
		return typescript.GetLanguage(), nil
	case LangTSX:
		return tsx.GetLanguage(), nil
	case LangPython:
		return python.GetLanguage(), nil
	case LangRust:
		return rust.GetLanguage(), nil
	case LangJava:
		return java.GetLanguage(), nil
	case LangKotlin:
		return kotlin.GetLanguage(), nil
	default:
		return nil, fmt.Errorf("unsupported language: %s", lang)
	}
}
