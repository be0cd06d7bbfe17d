// Package index builds the Declaration Index: a flat, queryable collection of
// every declared entity of a workspace.
package index

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"symnav/internal/analyzer"
	"symnav/internal/errors"

	"github.com/bmatcuk/doublestar/v4"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultWorkers bounds concurrent DeclaredSymbols calls.
	DefaultWorkers = 4
	// DefaultMaxContainerDepth caps container walks.
	DefaultMaxContainerDepth = 32

	namespaceIDPrefix = "namespace:"
)

// Options configures Build.
type Options struct {
	Workers int
	// Exclude holds doublestar globs matched against workspace-relative paths.
	Exclude []string
	// Ignore, when set, drops paths it matches, e.g. a workspace .gitignore.
	Ignore            Matcher
	MaxContainerDepth int
}

// Warning is a recoverable problem found while building.
type Warning struct {
	Code    errors.ErrorCode  `json:"code"`
	Message string            `json:"message"`
	Symbol  analyzer.SymbolID `json:"symbol,omitempty"`
}

// Index holds the declarations of one workspace snapshot. It is immutable
// once built and safe for concurrent readers.
type Index struct {
	workspaceID string
	documents   int
	decls       []*Declaration
	byID        map[analyzer.SymbolID]*Declaration
	byName      map[string][]*Declaration
	warnings    []Warning
}

// Stats summarizes an index.
type Stats struct {
	WorkspaceID  string         `json:"workspaceId"`
	Documents    int            `json:"documents"`
	Declarations int            `json:"declarations"`
	ByKind       map[string]int `json:"byKind"`
	Warnings     []Warning      `json:"warnings,omitempty"`
}

// Build enumerates every compilation unit of ws and records one Declaration
// per named, source-located member. Units are read concurrently; the merge is
// ordered by path, line, column and ID so equal workspaces give equal indexes.
func Build(ctx context.Context, a analyzer.Analyzer, ws analyzer.Workspace, opts Options, logger *slog.Logger) (*Index, error) {
	start := time.Now()
	if opts.Workers <= 0 {
		opts.Workers = DefaultWorkers
	}
	if opts.MaxContainerDepth <= 0 {
		opts.MaxContainerDepth = DefaultMaxContainerDepth
	}
	for _, pattern := range opts.Exclude {
		if !doublestar.ValidatePattern(pattern) {
			return nil, errors.Newf(errors.InvalidArgument, "invalid exclude pattern %q", pattern)
		}
	}

	units, err := a.CompilationUnits(ctx, ws)
	if err != nil {
		return nil, errors.Wrap(err, "list compilation units")
	}

	inWorkspace := make(map[string]bool)
	for _, f := range ws.Files() {
		if !excluded(opts.Exclude, f) && (opts.Ignore == nil || !opts.Ignore.MatchesPath(f)) {
			inWorkspace[f] = true
		}
	}

	var work []analyzer.Unit
	for _, u := range units {
		var files []string
		for _, f := range u.Files {
			if inWorkspace[f] {
				files = append(files, f)
			}
		}
		if len(files) > 0 {
			work = append(work, analyzer.Unit{Name: u.Name, Files: files})
		}
	}

	results := make([][]analyzer.RawSymbol, len(work))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i, u := range work {
		g.Go(func() error {
			syms, err := a.DeclaredSymbols(gctx, ws, u)
			if err != nil {
				return errors.Wrap(err, fmt.Sprintf("declared symbols of %s", u.Name))
			}
			results[i] = syms
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	b := &builder{
		raws:     make(map[analyzer.SymbolID]*analyzer.RawSymbol),
		maxDepth: opts.MaxContainerDepth,
		logger:   logger,
	}
	for _, syms := range results {
		for i := range syms {
			raw := &syms[i]
			if _, dup := b.raws[raw.ID]; dup {
				continue
			}
			b.raws[raw.ID] = raw
			b.order = append(b.order, raw)
		}
	}

	idx := &Index{
		workspaceID: ws.ID(),
		documents:   len(inWorkspace),
		byID:        make(map[analyzer.SymbolID]*Declaration),
		byName:      make(map[string][]*Declaration),
	}
	for _, raw := range b.order {
		if raw.Implicit || raw.Location == nil || raw.Name == "" || !inWorkspace[raw.Location.Path] {
			continue
		}
		kind, ok := kindOf(raw.Kind)
		if !ok {
			continue
		}
		idx.decls = append(idx.decls, b.declaration(raw, kind))
	}
	idx.decls = append(idx.decls, deriveNamespaces(idx.decls)...)
	idx.warnings = b.warnings

	Sort(idx.decls)
	for _, d := range idx.decls {
		idx.byID[d.ID] = d
		key := strings.ToLower(d.Name)
		idx.byName[key] = append(idx.byName[key], d)
	}
	for _, d := range idx.decls {
		if d.Kind == KindNamespace {
			d.Signature = renderSignature(d)
		}
	}

	logger.Debug("Declaration index built",
		"units", len(work),
		"declarations", len(idx.decls),
		"warnings", len(idx.warnings),
		"duration", time.Since(start).String(),
	)
	return idx, nil
}

type builder struct {
	raws     map[analyzer.SymbolID]*analyzer.RawSymbol
	order    []*analyzer.RawSymbol
	maxDepth int
	warnings []Warning
	warned   map[analyzer.SymbolID]bool
	logger   *slog.Logger
}

func (b *builder) declaration(raw *analyzer.RawSymbol, kind Kind) *Declaration {
	chain := b.containers(raw)

	d := &Declaration{
		ID:         raw.ID,
		Name:       raw.Name,
		Kind:       kind,
		Namespace:  raw.Namespace,
		IsStatic:   raw.HasModifier("static"),
		IsAbstract: raw.HasModifier("abstract"),
		IsVirtual:  raw.HasModifier("virtual"),
		IsOverride: raw.HasModifier("override"),
		Location:   *raw.Location,
		Detail:     detailFor(kind, raw),
	}

	inInterface := false
	names := make([]string, 0, len(chain)+2)
	if raw.Namespace != "" {
		names = append(names, raw.Namespace)
	}
	for i := len(chain) - 1; i >= 0; i-- {
		names = append(names, chain[i].Name)
	}
	names = append(names, raw.Name)
	d.QualifiedName = strings.Join(names, ".")

	for _, c := range chain {
		if c.Kind.IsType() {
			d.ContainingTypeID = c.ID
			d.ContainingType = c.Name
			inInterface = c.Kind == analyzer.KindInterface
			break
		}
	}
	if kind == KindNamespace {
		d.QualifiedName = strings.TrimPrefix(raw.Namespace+"."+raw.Name, ".")
	}
	d.Visibility = parseVisibility(raw.Visibility, kind, inInterface)
	d.Signature = renderSignature(d)
	return d
}

// containers returns the non-namespace containers of raw, nearest first.
// The walk stops at symbols outside the unit set, on a repeated identity and
// at the depth cap; the latter two record a warning.
func (b *builder) containers(raw *analyzer.RawSymbol) []*analyzer.RawSymbol {
	var chain []*analyzer.RawSymbol
	visited := map[analyzer.SymbolID]bool{raw.ID: true}
	for id := raw.ContainerID; id != ""; {
		c, ok := b.raws[id]
		if !ok || c.Kind == analyzer.KindNamespace {
			break
		}
		if visited[id] {
			b.warn(raw.ID, fmt.Sprintf("container chain of %s loops through %s", raw.ID, id))
			break
		}
		if len(chain) >= b.maxDepth {
			b.warn(raw.ID, fmt.Sprintf("container chain of %s exceeds %d levels", raw.ID, b.maxDepth))
			break
		}
		visited[id] = true
		chain = append(chain, c)
		id = c.ContainerID
	}
	return chain
}

func (b *builder) warn(id analyzer.SymbolID, msg string) {
	if b.warned == nil {
		b.warned = make(map[analyzer.SymbolID]bool)
	}
	if b.warned[id] {
		return
	}
	b.warned[id] = true
	b.warnings = append(b.warnings, Warning{Code: errors.CyclicHierarchy, Message: msg, Symbol: id})
	b.logger.Warn("Cyclic container chain", "symbol", string(id), "detail", msg)
}

// deriveNamespaces creates one namespace declaration per dotted prefix of
// every member's namespace, unless the analyzer reported it already. The
// location is that of the first member in index order.
func deriveNamespaces(decls []*Declaration) []*Declaration {
	sorted := append([]*Declaration(nil), decls...)
	Sort(sorted)

	reported := make(map[string]*Declaration)
	for _, d := range sorted {
		if d.Kind == KindNamespace {
			reported[d.QualifiedName] = d
		}
	}

	derived := make(map[string]*Declaration)
	var out []*Declaration
	for _, d := range sorted {
		if d.Namespace == "" {
			continue
		}
		parts := strings.Split(d.Namespace, ".")
		for i := range parts {
			path := strings.Join(parts[:i+1], ".")
			if _, ok := reported[path]; ok {
				continue
			}
			if _, ok := derived[path]; ok {
				continue
			}
			ns := &Declaration{
				ID:            analyzer.SymbolID(namespaceIDPrefix + path),
				Name:          parts[i],
				QualifiedName: path,
				Kind:          KindNamespace,
				Namespace:     strings.Join(parts[:i], "."),
				Visibility:    VisibilityPublic,
				Location:      d.Location,
			}
			derived[path] = ns
			out = append(out, ns)
		}
	}

	counts := make(map[string]int)
	for _, d := range decls {
		if d.ContainingTypeID == "" && d.Namespace != "" {
			counts[d.Namespace]++
		}
	}
	for _, ns := range out {
		counts[ns.Namespace]++
	}
	for path, ns := range derived {
		ns.Detail = NamespaceDetail{MemberCount: counts[path]}
	}
	for path, ns := range reported {
		ns.Detail = NamespaceDetail{MemberCount: counts[path]}
	}
	return out
}

// Sort orders declarations by path, line, column and ID.
func Sort(decls []*Declaration) {
	sort.Slice(decls, func(i, j int) bool { return less(decls[i], decls[j]) })
}

func less(a, b *Declaration) bool {
	if a.Location.Path != b.Location.Path {
		return a.Location.Path < b.Location.Path
	}
	if a.Location.Line != b.Location.Line {
		return a.Location.Line < b.Location.Line
	}
	if a.Location.Column != b.Location.Column {
		return a.Location.Column < b.Location.Column
	}
	return a.ID < b.ID
}

func excluded(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

// WorkspaceID is the fingerprint of the workspace the index was built from.
func (idx *Index) WorkspaceID() string { return idx.workspaceID }

// All returns every declaration in index order.
func (idx *Index) All() []*Declaration { return idx.decls }

// Len is the number of declarations.
func (idx *Index) Len() int { return len(idx.decls) }

// ByID returns the declaration with the given identity, or nil.
func (idx *Index) ByID(id analyzer.SymbolID) *Declaration { return idx.byID[id] }

// ByName returns declarations whose simple name equals name, ignoring case.
func (idx *Index) ByName(name string) []*Declaration {
	return idx.byName[strings.ToLower(name)]
}

// Names returns the distinct simple names in the index.
func (idx *Index) Names() []string {
	out := make([]string, 0, len(idx.byName))
	for _, ds := range idx.byName {
		out = append(out, ds[0].Name)
	}
	sort.Strings(out)
	return out
}

// Warnings returns recoverable problems found while building.
func (idx *Index) Warnings() []Warning { return idx.warnings }

// Stats summarizes the index.
func (idx *Index) Stats() Stats {
	s := Stats{
		WorkspaceID:  idx.workspaceID,
		Documents:    idx.documents,
		Declarations: len(idx.decls),
		ByKind:       make(map[string]int),
		Warnings:     idx.warnings,
	}
	for _, d := range idx.decls {
		s.ByKind[d.Kind.String()]++
	}
	return s
}
