package query

import (
	"context"
	"fmt"
	"time"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
	"symnav/internal/hierarchy"
	"symnav/internal/index"
	"symnav/internal/locator"
	"symnav/internal/xref"
)

// FindResponse lists every declaration matching a query.
type FindResponse struct {
	Meta
	Query        locator.Query        `json:"query"`
	Declarations []*index.Declaration `json:"declarations"`
}

// ReferencesResponse lists the reference sites of one declaration.
type ReferencesResponse struct {
	Meta
	Subject    *index.Declaration   `json:"subject"`
	References []xref.ReferenceSite `json:"references"`
}

// CallsResponse lists the callers or callees of one method.
type CallsResponse struct {
	Meta
	Subject *index.Declaration   `json:"subject"`
	Calls   []*index.Declaration `json:"calls"`
}

// CallGraphOptions configures call graph retrieval.
type CallGraphOptions struct {
	Direction xref.Direction
	// Depth is capped by query.maxCallGraphDepth.
	Depth int
}

// CallGraphResponse is a bounded call graph around one method.
type CallGraphResponse struct {
	Meta
	Graph *xref.CallGraph `json:"graph"`
}

// HierarchyResponse is the type hierarchy around one type.
type HierarchyResponse struct {
	Meta
	View *hierarchy.View `json:"view"`
}

// ImplementationsResponse lists the implementations of a type or member.
type ImplementationsResponse struct {
	Meta
	Subject         *index.Declaration   `json:"subject"`
	Implementations []*index.Declaration `json:"implementations"`
}

// DiagnosticsOptions narrows Diagnostics.
type DiagnosticsOptions struct {
	File     string
	Severity string
}

// DiagnosticsResponse lists analyzer diagnostics.
type DiagnosticsResponse struct {
	Meta
	Diagnostics []analyzer.RawDiagnostic `json:"diagnostics"`
}

// StatusResponse summarizes the loaded workspace and its index.
type StatusResponse struct {
	Meta
	Root      string                `json:"root"`
	IndexPath string                `json:"indexPath"`
	LoadedAt  time.Time             `json:"loadedAt"`
	BuildTime string                `json:"buildTime"`
	Stats     index.Stats           `json:"stats"`
	Freshness index.FreshnessResult `json:"freshness"`
}

// Find returns every declaration matching q, in index order.
func (e *Engine) Find(ctx context.Context, q locator.Query) (*FindResponse, error) {
	start := time.Now()
	snap := e.Current()
	if err := validQuery(q); err != nil {
		return nil, err
	}
	matches := locator.Resolve(snap.Index, q)
	if len(matches) == 0 {
		return nil, locator.NotFound(snap.Index, q)
	}
	e.logger.Debug("Find", "query", q.String(), "matches", len(matches), "duration", time.Since(start).String())
	return &FindResponse{
		Meta:         e.meta("find", snap, start, nil),
		Query:        q,
		Declarations: matches,
	}, nil
}

// ResolveOne resolves q to a single declaration. Several matches resolve to
// the first in index order with a warning, or fail with AMBIGUOUS_SYMBOL
// under query.strictAmbiguity.
func (e *Engine) ResolveOne(snap *Snapshot, q locator.Query) (*index.Declaration, []string, error) {
	if err := validQuery(q); err != nil {
		return nil, nil, err
	}
	matches := locator.Resolve(snap.Index, q)
	switch len(matches) {
	case 0:
		return nil, nil, locator.NotFound(snap.Index, q)
	case 1:
		return matches[0], nil, nil
	}

	candidates := make([]string, 0, len(matches))
	for _, d := range matches {
		candidates = append(candidates, fmt.Sprintf("%s %s (%s)", d.Kind, d.QualifiedName, d.Location))
	}
	if e.config.Query.StrictAmbiguity {
		return nil, nil, errors.Newf(errors.AmbiguousSymbol, "%q matches %d declarations; narrow it with --kind, --namespace or --file", q.String(), len(matches)).
			WithDetails(map[string]interface{}{"query": q, "candidates": candidates})
	}
	picked := matches[0]
	warning := fmt.Sprintf("%q matches %d declarations; using %s %s", q.String(), len(matches), picked.Kind, picked.QualifiedName)
	e.logger.Warn("Ambiguous query resolved to first match",
		"query", q.String(),
		"matches", len(matches),
		"picked", picked.QualifiedName,
	)
	return picked, []string{warning}, nil
}

func validQuery(q locator.Query) error {
	if q.Name == "" {
		return errors.New(errors.InvalidArgument, "query: symbol name is required", nil)
	}
	return nil
}

func (e *Engine) xref(snap *Snapshot) *xref.Resolver {
	return xref.New(e.analyzer, snap.Workspace, snap.Index, xref.Options{
		MaxCallGraphNodes: e.config.Query.MaxCallGraphNodes,
	}, e.logger)
}

func (e *Engine) hierarchy(snap *Snapshot) *hierarchy.Resolver {
	return hierarchy.New(e.analyzer, snap.Workspace, snap.Index, hierarchy.Options{
		RootTypes: e.config.Hierarchy.RootTypes,
		MaxDepth:  e.config.Hierarchy.MaxDepth,
	}, e.logger)
}

// References lists the reference sites of the declaration q resolves to.
func (e *Engine) References(ctx context.Context, q locator.Query) (*ReferencesResponse, error) {
	start := time.Now()
	snap := e.Current()
	subject, warnings, err := e.ResolveOne(snap, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	refs, err := e.xref(snap).FindReferences(ctx, subject)
	if err != nil {
		return nil, err
	}
	if refs == nil {
		refs = []xref.ReferenceSite{}
	}
	e.logger.Debug("References", "subject", subject.QualifiedName, "count", len(refs), "duration", time.Since(start).String())
	return &ReferencesResponse{
		Meta:       e.meta("refs", snap, start, warnings),
		Subject:    subject,
		References: refs,
	}, nil
}

// Callers lists the methods calling the method q resolves to.
func (e *Engine) Callers(ctx context.Context, q locator.Query) (*CallsResponse, error) {
	return e.calls(ctx, "callers", q, (*xref.Resolver).FindCallers)
}

// Callees lists the methods called by the method q resolves to.
func (e *Engine) Callees(ctx context.Context, q locator.Query) (*CallsResponse, error) {
	return e.calls(ctx, "callees", q, (*xref.Resolver).FindCallees)
}

func (e *Engine) calls(ctx context.Context, tool string, q locator.Query, find func(*xref.Resolver, context.Context, *index.Declaration) ([]*index.Declaration, error)) (*CallsResponse, error) {
	start := time.Now()
	snap := e.Current()
	subject, warnings, err := e.ResolveOne(snap, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	calls, err := find(e.xref(snap), ctx, subject)
	if err != nil {
		return nil, err
	}
	if calls == nil {
		calls = []*index.Declaration{}
	}
	e.logger.Debug("Calls", "tool", tool, "subject", subject.QualifiedName, "count", len(calls), "duration", time.Since(start).String())
	return &CallsResponse{
		Meta:    e.meta(tool, snap, start, warnings),
		Subject: subject,
		Calls:   calls,
	}, nil
}

// CallGraph builds the call graph around the method q resolves to.
func (e *Engine) CallGraph(ctx context.Context, q locator.Query, opts CallGraphOptions) (*CallGraphResponse, error) {
	start := time.Now()
	snap := e.Current()
	subject, warnings, err := e.ResolveOne(snap, q)
	if err != nil {
		return nil, err
	}
	if opts.Direction == "" {
		opts.Direction = xref.DirectionBoth
	}
	maxDepth := e.config.Query.MaxCallGraphDepth
	if maxDepth <= 0 {
		maxDepth = xref.MaxCallGraphDepth
	}
	if opts.Depth <= 0 || opts.Depth > maxDepth {
		opts.Depth = maxDepth
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	graph, err := e.xref(snap).CallGraph(ctx, subject, opts.Direction, opts.Depth)
	if err != nil {
		return nil, err
	}
	if graph.Truncated {
		warnings = append(warnings, fmt.Sprintf("call graph truncated at %d nodes", len(graph.Nodes)))
	}
	return &CallGraphResponse{
		Meta:  e.meta("callgraph", snap, start, warnings),
		Graph: graph,
	}, nil
}

// Hierarchy returns the hierarchy view of the type q resolves to. Cyclic
// base chains are reported as warnings.
func (e *Engine) Hierarchy(ctx context.Context, q locator.Query) (*HierarchyResponse, error) {
	start := time.Now()
	snap := e.Current()
	subject, warnings, err := e.ResolveOne(snap, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	view, err := e.hierarchy(snap).View(ctx, subject)
	if err != nil {
		return nil, err
	}
	return &HierarchyResponse{
		Meta: e.meta("hierarchy", snap, start, append(warnings, view.Warnings...)),
		View: view,
	}, nil
}

// Implementations lists the implementations of the type or member q
// resolves to.
func (e *Engine) Implementations(ctx context.Context, q locator.Query) (*ImplementationsResponse, error) {
	start := time.Now()
	snap := e.Current()
	subject, warnings, err := e.ResolveOne(snap, q)
	if err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	impls, err := e.hierarchy(snap).Implementations(ctx, subject)
	if err != nil {
		return nil, err
	}
	if impls == nil {
		impls = []*index.Declaration{}
	}
	return &ImplementationsResponse{
		Meta:            e.meta("implementations", snap, start, warnings),
		Subject:         subject,
		Implementations: impls,
	}, nil
}

// Diagnostics lists analyzer diagnostics.
func (e *Engine) Diagnostics(ctx context.Context, opts DiagnosticsOptions) (*DiagnosticsResponse, error) {
	start := time.Now()
	snap := e.Current()
	filter := analyzer.DiagnosticFilter{File: opts.File}
	if opts.Severity != "" {
		sev, ok := analyzer.ParseSeverity(opts.Severity)
		if !ok {
			return nil, errors.Newf(errors.InvalidArgument, "diagnostics: unknown severity %q (want error, warning, info or hint)", opts.Severity)
		}
		filter.MinSeverity = sev
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	diags, err := e.analyzer.Diagnostics(ctx, snap.Workspace, filter)
	if err != nil {
		return nil, errors.Wrap(err, "diagnostics")
	}
	if diags == nil {
		diags = []analyzer.RawDiagnostic{}
	}
	return &DiagnosticsResponse{
		Meta:        e.meta("diagnostics", snap, start, nil),
		Diagnostics: diags,
	}, nil
}

// Status reports index statistics and whether the recorded index metadata
// matches the loaded workspace.
func (e *Engine) Status(ctx context.Context) (*StatusResponse, error) {
	start := time.Now()
	snap := e.Current()
	meta, err := index.LoadMeta(e.stateDir)
	if err != nil {
		e.logger.Warn("Index metadata unreadable", "error", err.Error())
		meta = nil
	}
	return &StatusResponse{
		Meta:      e.meta("status", snap, start, nil),
		Root:      e.root,
		IndexPath: e.IndexPath(),
		LoadedAt:  snap.LoadedAt,
		BuildTime: snap.BuildTime.Round(time.Millisecond).String(),
		Stats:     snap.Index.Stats(),
		Freshness: meta.CheckFreshness(snap.Workspace.ID()),
	}, nil
}

// SaveMeta records the current index in the state directory.
func (e *Engine) SaveMeta() (*index.IndexMeta, error) {
	snap := e.Current()
	meta := index.NewMeta(snap.Index, e.IndexPath(), "scip", snap.BuildTime)
	if err := meta.Save(e.stateDir); err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("save index metadata in %s", e.stateDir), err)
	}
	return meta, nil
}
