package scip

import (
	"context"
	"sort"

	"symnav/internal/analyzer"
)

// FindReferences returns every non-defining occurrence of symbol. Compiler
// generated occurrences are reported with Implicit set.
func (a *Analyzer) FindReferences(ctx context.Context, ws analyzer.Workspace, symbol analyzer.SymbolID) ([]analyzer.RawLocation, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}

	refs := make([]analyzer.RawLocation, 0)
	for _, doc := range snap.index.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for _, occ := range doc.Occurrences {
			if occ.Symbol != string(symbol) || occ.IsDefinition() {
				continue
			}
			s, ok := parseRange(occ.Range)
			if !ok {
				continue
			}
			refs = append(refs, analyzer.RawLocation{
				Location: location(doc, s),
				Symbol:   symbol,
				Implicit: occ.IsGenerated(),
			})
		}
	}
	sortLocations(refs)
	return refs, nil
}

// FindImplementations returns the types implementing typ, directly or
// through inherited interfaces and base classes. Interfaces themselves are
// traversed but not reported.
func (a *Analyzer) FindImplementations(ctx context.Context, ws analyzer.Workspace, typ analyzer.SymbolID) ([]analyzer.RawSymbol, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}
	idx := snap.index

	visited := map[string]bool{string(typ): true}
	queue := []string{string(typ)}
	impls := make([]analyzer.RawSymbol, 0)

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		current := queue[0]
		queue = queue[1:]

		for _, sub := range idx.Implementers(current) {
			if visited[sub] {
				continue
			}
			visited[sub] = true
			raw, ok := idx.rawSymbol(sub)
			if !ok || !raw.Kind.IsType() {
				continue
			}
			queue = append(queue, sub)
			if raw.Kind != analyzer.KindInterface {
				impls = append(impls, raw)
			}
		}
	}

	sort.Slice(impls, func(i, j int) bool { return impls[i].ID < impls[j].ID })
	return impls, nil
}

func sortLocations(locs []analyzer.RawLocation) {
	sort.SliceStable(locs, func(i, j int) bool {
		a, b := locs[i].Location, locs[j].Location
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
}
