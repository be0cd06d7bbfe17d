//go:build !cgo

package syntax

import "context"

// Available reports whether tree-sitter parsing is compiled in.
const Available = false

// Parser is a stub for non-CGO builds.
type Parser struct{}

// NewParser creates a new parser stub.
func NewParser() *Parser {
	return &Parser{}
}

// FunctionAt always fails without CGO.
func (p *Parser) FunctionAt(ctx context.Context, source []byte, lang Language, pos Point) (*Node, error) {
	return nil, ErrUnavailable
}

// Parse always fails without CGO.
func (p *Parser) Parse(ctx context.Context, source []byte, lang Language) (*Node, error) {
	return nil, ErrUnavailable
}
