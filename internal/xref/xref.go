// Package xref answers reference, caller, callee and call-graph queries for
// indexed declarations by delegating to the analyzer.
package xref

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"unicode/utf8"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
	"symnav/internal/index"
)

const (
	// MaxSurroundingText is the rune limit of ReferenceSite.SurroundingText.
	MaxSurroundingText = 100

	// MaxCallGraphDepth is the hard depth cap of CallGraph.
	MaxCallGraphDepth = 4
	// DefaultMaxCallGraphNodes bounds CallGraph when no limit is configured.
	DefaultMaxCallGraphNodes = 100
)

// ReferenceSite is one usage of a declaration.
type ReferenceSite struct {
	Declaration     *index.Declaration `json:"-"`
	Path            string             `json:"path"`
	Line            int                `json:"line"`
	Column          int                `json:"column"`
	SurroundingText string             `json:"surroundingText"`
	IsImplicit      bool               `json:"isImplicit,omitempty"`
}

// CallEdge is a directed call From -> To.
type CallEdge struct {
	From *index.Declaration
	To   *index.Declaration
}

// MarshalJSON writes the edge as a pair of identities.
func (e CallEdge) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		From analyzer.SymbolID `json:"from"`
		To   analyzer.SymbolID `json:"to"`
	}{e.From.ID, e.To.ID})
}

// Direction selects which edges CallGraph follows.
type Direction string

const (
	DirectionCallers Direction = "callers"
	DirectionCallees Direction = "callees"
	DirectionBoth    Direction = "both"
)

// ParseDirection accepts callers, callees or both.
func ParseDirection(s string) (Direction, error) {
	switch d := Direction(strings.ToLower(s)); d {
	case DirectionCallers, DirectionCallees, DirectionBoth:
		return d, nil
	case "":
		return DirectionBoth, nil
	}
	return "", errors.Newf(errors.InvalidArgument, "unknown call graph direction %q (want callers, callees or both)", s)
}

// CallGraph is the bounded neighbourhood of Root.
type CallGraph struct {
	Root  *index.Declaration   `json:"root"`
	Nodes []*index.Declaration `json:"nodes"`
	Edges []CallEdge           `json:"edges"`
	Depth int                  `json:"depth"`
	// Truncated is set when the node cap stopped the traversal.
	Truncated bool `json:"truncated,omitempty"`
}

// Options configures a Resolver.
type Options struct {
	MaxCallGraphNodes int
}

// Resolver answers cross-reference queries over one workspace snapshot and
// the index built from it.
type Resolver struct {
	analyzer analyzer.Analyzer
	ws       analyzer.Workspace
	idx      *index.Index
	opts     Options
	logger   *slog.Logger
}

// New creates a resolver.
func New(a analyzer.Analyzer, ws analyzer.Workspace, idx *index.Index, opts Options, logger *slog.Logger) *Resolver {
	if opts.MaxCallGraphNodes <= 0 {
		opts.MaxCallGraphNodes = DefaultMaxCallGraphNodes
	}
	return &Resolver{analyzer: a, ws: ws, idx: idx, opts: opts, logger: logger}
}

// hasSource reports whether d can be handed to the analyzer.
func hasSource(d *index.Declaration) bool {
	return d != nil && d.Location.Path != "" && !d.Derived()
}

// FindReferences lists every usage of d sorted by path, line and column.
// Compiler-generated usages are tagged rather than dropped.
func (r *Resolver) FindReferences(ctx context.Context, d *index.Declaration) ([]ReferenceSite, error) {
	if !hasSource(d) {
		return []ReferenceSite{}, nil
	}
	raws, err := r.analyzer.FindReferences(ctx, r.ws, d.ID)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("find references of %s", d.QualifiedName))
	}

	sites := make([]ReferenceSite, 0, len(raws))
	for _, raw := range raws {
		sites = append(sites, ReferenceSite{
			Declaration:     d,
			Path:            raw.Location.Path,
			Line:            raw.Location.Line,
			Column:          raw.Location.Column,
			SurroundingText: r.lineText(raw.Location.Path, raw.Location.Line),
			IsImplicit:      raw.Implicit,
		})
	}
	sort.SliceStable(sites, func(i, j int) bool {
		a, b := sites[i], sites[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return sites, nil
}

// lineText returns the trimmed source line, shortened to MaxSurroundingText
// runes plus "...".
func (r *Resolver) lineText(path string, line int) string {
	text, ok := r.ws.Text(path)
	if !ok || line < 1 {
		return ""
	}
	for i := 1; i < line; i++ {
		nl := strings.IndexByte(text, '\n')
		if nl < 0 {
			return ""
		}
		text = text[nl+1:]
	}
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[:nl]
	}
	return Truncate(strings.TrimSpace(text), MaxSurroundingText)
}

// Truncate shortens s to n runes plus "..." when it is longer.
func Truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return string(runes[:n]) + "..."
}

// FindCallers returns the methods whose bodies call d, deduplicated by
// identity and in index order.
func (r *Resolver) FindCallers(ctx context.Context, d *index.Declaration) ([]*index.Declaration, error) {
	if !hasSource(d) {
		return []*index.Declaration{}, nil
	}
	raws, err := r.analyzer.FindCallers(ctx, r.ws, d.ID)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("find callers of %s", d.QualifiedName))
	}

	out := []*index.Declaration{}
	seen := make(map[analyzer.SymbolID]bool)
	for _, raw := range raws {
		caller := r.idx.ByID(raw.ID)
		if caller == nil || caller.Kind != index.KindMethod || seen[caller.ID] {
			continue
		}
		seen[caller.ID] = true
		out = append(out, caller)
	}
	index.Sort(out)
	return out, nil
}

// FindCallees returns the methods called from d's bodies in source order,
// deduplicated by identity. Calls that do not bind, or bind outside the
// index, are skipped. A failure to obtain a body is an error.
func (r *Resolver) FindCallees(ctx context.Context, d *index.Declaration) ([]*index.Declaration, error) {
	if !hasSource(d) || d.Kind != index.KindMethod {
		return []*index.Declaration{}, nil
	}
	bodies, err := r.analyzer.BodySyntax(ctx, r.ws, d.ID)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("body syntax of %s", d.QualifiedName))
	}

	out := []*index.Declaration{}
	seen := make(map[analyzer.SymbolID]bool)
	var walkErr error
	for _, body := range bodies {
		analyzer.Walk(body, func(n analyzer.SyntaxNode) {
			if walkErr != nil || !n.IsCall() {
				return
			}
			sym, err := r.analyzer.ResolveExpression(ctx, r.ws, n)
			if err != nil {
				if ctx.Err() != nil {
					walkErr = err
					return
				}
				r.logger.Debug("Call expression did not bind", "at", n.Location().String(), "error", err.Error())
				return
			}
			if sym == nil {
				return
			}
			callee := r.idx.ByID(sym.ID)
			if callee == nil || callee.Kind != index.KindMethod || seen[callee.ID] {
				return
			}
			seen[callee.ID] = true
			out = append(out, callee)
		})
	}
	if walkErr != nil {
		return nil, errors.Wrap(walkErr, fmt.Sprintf("resolve calls in %s", d.QualifiedName))
	}
	return out, nil
}

// CallGraph runs a breadth-first search from d along callers, callees or
// both. depth is clamped to [1, MaxCallGraphDepth]; the traversal stops once
// the node cap is reached. Only failures on d itself are returned; deeper
// failures are logged and that branch is skipped.
func (r *Resolver) CallGraph(ctx context.Context, d *index.Declaration, dir Direction, depth int) (*CallGraph, error) {
	if depth <= 0 {
		depth = 1
	}
	if depth > MaxCallGraphDepth {
		depth = MaxCallGraphDepth
	}
	g := &CallGraph{Root: d, Nodes: []*index.Declaration{d}, Edges: []CallEdge{}, Depth: depth}
	if !hasSource(d) {
		return g, nil
	}

	nodes := map[analyzer.SymbolID]bool{d.ID: true}
	edges := make(map[[2]analyzer.SymbolID]bool)
	addEdge := func(from, to *index.Declaration) {
		key := [2]analyzer.SymbolID{from.ID, to.ID}
		if !edges[key] {
			edges[key] = true
			g.Edges = append(g.Edges, CallEdge{From: from, To: to})
		}
	}

	walk := func(next func(context.Context, *index.Declaration) ([]*index.Declaration, error), reverse bool) error {
		type item struct {
			decl  *index.Declaration
			depth int
		}
		visited := map[analyzer.SymbolID]bool{d.ID: true}
		queue := []item{{d, 0}}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]
			if cur.depth >= depth {
				continue
			}
			neighbours, err := next(ctx, cur.decl)
			if err != nil {
				if cur.decl == d || ctx.Err() != nil {
					return err
				}
				r.logger.Debug("Call graph branch skipped", "symbol", string(cur.decl.ID), "error", err.Error())
				continue
			}
			for _, n := range neighbours {
				if !nodes[n.ID] {
					if len(g.Nodes) >= r.opts.MaxCallGraphNodes {
						g.Truncated = true
						return nil
					}
					nodes[n.ID] = true
					g.Nodes = append(g.Nodes, n)
				}
				if reverse {
					addEdge(n, cur.decl)
				} else {
					addEdge(cur.decl, n)
				}
				if !visited[n.ID] {
					visited[n.ID] = true
					queue = append(queue, item{n, cur.depth + 1})
				}
			}
		}
		return nil
	}

	if dir == DirectionCallers || dir == DirectionBoth {
		if err := walk(r.FindCallers, true); err != nil {
			return nil, err
		}
	}
	if (dir == DirectionCallees || dir == DirectionBoth) && !g.Truncated {
		if err := walk(r.FindCallees, false); err != nil {
			return nil, err
		}
	}
	return g, nil
}
