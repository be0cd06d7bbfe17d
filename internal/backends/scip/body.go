package scip

import (
	"context"
	stderrors "errors"
	"fmt"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
	"symnav/internal/syntax"
)

// syntaxNode adapts a detached tree-sitter node to analyzer.SyntaxNode.
// Positions are reported in the document's SCIP column units.
type syntaxNode struct {
	doc  *Document
	snap *Snapshot
	node *syntax.Node
}

func (n *syntaxNode) Type() string { return n.node.Type }

func (n *syntaxNode) IsCall() bool { return n.node.Call }

func (n *syntaxNode) Location() analyzer.Location {
	start := n.column(n.node.Start)
	end := n.column(n.node.End)
	return analyzer.Location{
		Path:      n.doc.RelativePath,
		Line:      n.node.Start.Row + 1,
		Column:    start + 1,
		EndLine:   n.node.End.Row + 1,
		EndColumn: end + 1,
	}
}

func (n *syntaxNode) Children() []analyzer.SyntaxNode {
	out := make([]analyzer.SyntaxNode, len(n.node.Children))
	for i, c := range n.node.Children {
		out[i] = &syntaxNode{doc: n.doc, snap: n.snap, node: c}
	}
	return out
}

// column converts a byte column into the document's SCIP units.
func (n *syntaxNode) column(p syntax.Point) int {
	line, ok := n.snap.line(n.doc.RelativePath, p.Row)
	if !ok {
		return p.Column
	}
	return unitColumn(line, p.Column, n.doc.Encoding)
}

// BodySyntax parses the declaration of method at each of its definition sites.
// A declaration without statements yields a node with no call descendants.
func (a *Analyzer) BodySyntax(ctx context.Context, ws analyzer.Workspace, method analyzer.SymbolID) ([]analyzer.SyntaxNode, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}

	sites := snap.index.definitionSites(string(method))
	bodies := make([]analyzer.SyntaxNode, 0, len(sites))
	for _, site := range sites {
		node, err := a.parseSite(ctx, snap, site)
		if err != nil {
			return nil, err
		}
		bodies = append(bodies, node)
	}
	return bodies, nil
}

func (a *Analyzer) parseSite(ctx context.Context, snap *Snapshot, site definition) (analyzer.SyntaxNode, error) {
	path := site.doc.RelativePath
	text, ok := snap.Text(path)
	if !ok {
		return nil, errors.Newf(errors.AnalyzerUnavailable, "body syntax: no source text for %s", path)
	}
	lang, ok := syntax.LanguageFromName(site.doc.Language)
	if !ok {
		if lang, ok = syntax.LanguageFromPath(path); !ok {
			return nil, errors.Newf(errors.AnalyzerUnavailable, "body syntax: unsupported language %q for %s", site.doc.Language, path)
		}
	}
	s, ok := parseRange(site.occ.Range)
	if !ok {
		return nil, errors.Newf(errors.InternalError, "body syntax: malformed range %v in %s", site.occ.Range, path)
	}
	line, _ := snap.line(path, s.startLine)
	pos := syntax.Point{Row: s.startLine, Column: byteOffset(line, s.startCol, site.doc.Encoding)}

	fn, err := a.parser.FunctionAt(ctx, []byte(text), lang, pos)
	if err != nil {
		code := errors.InternalError
		switch {
		case stderrors.Is(err, syntax.ErrUnavailable):
			code = errors.AnalyzerUnavailable
		case stderrors.Is(err, context.DeadlineExceeded):
			code = errors.Timeout
		}
		return nil, errors.New(code, fmt.Sprintf("body syntax for %s at %s:%d", site.occ.Symbol, path, s.startLine+1), err)
	}
	return &syntaxNode{doc: site.doc, snap: snap, node: fn}, nil
}

// ResolveExpression binds a call expression to the symbol occurring at its
// callee identifier. It returns nil when nothing binds there.
func (a *Analyzer) ResolveExpression(ctx context.Context, ws analyzer.Workspace, expr analyzer.SyntaxNode) (*analyzer.RawSymbol, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}
	if expr == nil || !expr.IsCall() {
		return nil, nil
	}

	var doc *Document
	var line, col int
	if sn, ok := expr.(*syntaxNode); ok {
		if sn.node.Callee == nil {
			return nil, nil
		}
		doc = sn.doc
		line = sn.node.Callee.Row
		col = sn.column(*sn.node.Callee)
	} else {
		loc := expr.Location()
		doc = snap.index.GetDocument(loc.Path)
		line, col = loc.Line-1, loc.Column-1
	}
	if doc == nil {
		return nil, nil
	}

	var fallback *analyzer.RawSymbol
	for _, occ := range doc.Occurrences {
		if occ.IsDefinition() || IsLocalSymbol(occ.Symbol) {
			continue
		}
		s, ok := parseRange(occ.Range)
		if !ok || !s.contains(line, col) {
			continue
		}
		raw, ok := snap.index.rawSymbol(occ.Symbol)
		if !ok {
			continue
		}
		if raw.Kind.IsCallable() {
			return &raw, nil
		}
		if fallback == nil {
			fallback = &raw
		}
	}
	return fallback, nil
}
