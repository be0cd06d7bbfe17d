// Package hierarchy walks type hierarchies: base-class chains, derived
// types and interface implementations.
package hierarchy

import (
	"context"
	"fmt"
	"log/slog"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
	"symnav/internal/index"
)

// DefaultMaxDepth caps base-class walks.
const DefaultMaxDepth = 64

// DefaultRootTypes are the qualified names of the universal base types
// Ancestors stops before. The bare names only match global-namespace types.
var DefaultRootTypes = []string{"System.Object", "object", "java.lang.Object", "kotlin.Any", "Object", "Any"}

// Options configures a Resolver.
type Options struct {
	// RootTypes match a declaration's qualified name.
	RootTypes []string
	MaxDepth  int
}

// View is the full hierarchy around a type.
type View struct {
	Subject *index.Declaration `json:"subject"`
	// Ancestors are nearest first, without the root type.
	Ancestors       []*index.Declaration `json:"ancestors"`
	Descendants     []*index.Declaration `json:"descendants"`
	Interfaces      []*index.Declaration `json:"interfaces"`
	Implementations []*index.Declaration `json:"implementations"`
	Warnings        []string             `json:"warnings,omitempty"`
}

// Resolver answers hierarchy queries over one index.
type Resolver struct {
	analyzer analyzer.Analyzer
	ws       analyzer.Workspace
	idx      *index.Index
	maxDepth int
	roots    map[string]bool
	logger   *slog.Logger
}

// New creates a resolver.
func New(a analyzer.Analyzer, ws analyzer.Workspace, idx *index.Index, opts Options, logger *slog.Logger) *Resolver {
	if opts.MaxDepth <= 0 {
		opts.MaxDepth = DefaultMaxDepth
	}
	if opts.RootTypes == nil {
		opts.RootTypes = DefaultRootTypes
	}
	roots := make(map[string]bool, len(opts.RootTypes))
	for _, name := range opts.RootTypes {
		roots[name] = true
	}
	return &Resolver{analyzer: a, ws: ws, idx: idx, maxDepth: opts.MaxDepth, roots: roots, logger: logger}
}

func (r *Resolver) isRoot(d *index.Declaration) bool {
	return r.roots[d.QualifiedName]
}

// Ancestors follows base-class links from d, nearest first. The walk stops
// before a root type and at a base outside the workspace. A repeated
// identity or the depth cap ends the walk with a CYCLIC_HIERARCHY error
// returned alongside the chain collected so far.
func (r *Resolver) Ancestors(d *index.Declaration) ([]*index.Declaration, error) {
	chain := []*index.Declaration{}
	if d == nil || d.Kind != index.KindType {
		return chain, nil
	}
	visited := map[analyzer.SymbolID]bool{d.ID: true}
	for cur := d; ; {
		baseID := cur.BaseTypeID()
		if baseID == "" {
			return chain, nil
		}
		base := r.idx.ByID(baseID)
		if base == nil || r.isRoot(base) {
			return chain, nil
		}
		if visited[baseID] {
			return chain, errors.Newf(errors.CyclicHierarchy, "base types of %s loop back to %s", d.QualifiedName, base.QualifiedName)
		}
		if len(chain) >= r.maxDepth {
			return chain, errors.Newf(errors.CyclicHierarchy, "base types of %s exceed %d levels", d.QualifiedName, r.maxDepth)
		}
		visited[baseID] = true
		chain = append(chain, base)
		cur = base
	}
}

// Descendants returns the types whose immediate base is d, in index order.
// d itself is never included.
func (r *Resolver) Descendants(d *index.Declaration) []*index.Declaration {
	out := []*index.Declaration{}
	if d == nil || d.Kind != index.KindType {
		return out
	}
	for _, c := range r.idx.All() {
		if c.Kind == index.KindType && c.ID != d.ID && c.BaseTypeID() == d.ID {
			out = append(out, c)
		}
	}
	return out
}

// AllDescendants returns every transitive descendant of d breadth first.
// Each type appears once even when base links form a cycle.
func (r *Resolver) AllDescendants(d *index.Declaration) []*index.Declaration {
	out := []*index.Declaration{}
	if d == nil {
		return out
	}
	seen := map[analyzer.SymbolID]bool{d.ID: true}
	queue := []*index.Declaration{d}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, c := range r.Descendants(cur) {
			if seen[c.ID] {
				continue
			}
			seen[c.ID] = true
			out = append(out, c)
			queue = append(queue, c)
		}
	}
	return out
}

// Interfaces returns the indexed interfaces d declares directly.
func (r *Resolver) Interfaces(d *index.Declaration) []*index.Declaration {
	out := []*index.Declaration{}
	if d == nil {
		return out
	}
	td := d.TypeDetail()
	if td == nil {
		return out
	}
	for _, id := range td.Interfaces {
		if i := r.idx.ByID(id); i != nil {
			out = append(out, i)
		}
	}
	return out
}

// Implementations returns the concrete types implementing d, including those
// that do so through derived interfaces or base classes, in index order.
func (r *Resolver) Implementations(ctx context.Context, d *index.Declaration) ([]*index.Declaration, error) {
	out := []*index.Declaration{}
	if d == nil || d.Location.Path == "" || d.Derived() {
		return out, nil
	}
	raws, err := r.analyzer.FindImplementations(ctx, r.ws, d.ID)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("find implementations of %s", d.QualifiedName))
	}
	seen := make(map[analyzer.SymbolID]bool)
	for _, raw := range raws {
		impl := r.idx.ByID(raw.ID)
		if impl == nil || impl.ID == d.ID || seen[impl.ID] {
			continue
		}
		seen[impl.ID] = true
		out = append(out, impl)
	}
	index.Sort(out)
	return out, nil
}

// View assembles the full hierarchy of d. Cyclic base chains become
// warnings on the view.
func (r *Resolver) View(ctx context.Context, d *index.Declaration) (*View, error) {
	if d == nil {
		return nil, errors.Newf(errors.InvalidArgument, "hierarchy view needs a declaration")
	}
	v := &View{
		Subject:     d,
		Descendants: r.Descendants(d),
		Interfaces:  r.Interfaces(d),
	}
	ancestors, err := r.Ancestors(d)
	v.Ancestors = ancestors
	if err != nil {
		v.Warnings = append(v.Warnings, err.Error())
		r.logger.Warn("Cyclic type hierarchy", "symbol", string(d.ID), "error", err.Error())
	}
	impls, err := r.Implementations(ctx, d)
	if err != nil {
		return nil, err
	}
	v.Implementations = impls
	return v, nil
}
