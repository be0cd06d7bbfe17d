package scip

import (
	"context"
	"math"
	"sort"

	"symnav/internal/analyzer"
)

// DefaultMaxFunctionLines is the default maximum function length (in lines) used
// when we can't determine the actual function boundary. Indexers such as
// scip-go leave EnclosingRange empty, so the body of a function is assumed to
// run until the next function starts.
const DefaultMaxFunctionLines = 500

// scope is the body span of a callable defined in a document.
type scope struct {
	symbol string
	body   span
}

// callableScopes returns the bodies of every callable defined in doc.
// EnclosingRange is used when present; otherwise a body is inferred from the
// start of the next callable.
func (i *SCIPIndex) callableScopes(doc *Document) []scope {
	var exact, inferred []scope
	var starts []int

	for _, occ := range doc.Occurrences {
		if !occ.IsDefinition() {
			continue
		}
		id, err := ParseSCIPIdentifier(occ.Symbol)
		if err != nil || !i.kindOf(id, i.GetSymbol(occ.Symbol)).IsCallable() {
			continue
		}
		def, ok := parseRange(occ.Range)
		if !ok {
			continue
		}
		starts = append(starts, def.startLine)
		if body, ok := parseRange(occ.EnclosingRange); ok {
			exact = append(exact, scope{symbol: occ.Symbol, body: body})
			continue
		}
		inferred = append(inferred, scope{symbol: occ.Symbol, body: span{startLine: def.startLine, endCol: math.MaxInt32}})
	}

	sort.Ints(starts)
	for k := range inferred {
		start := inferred[k].body.startLine
		end := start + DefaultMaxFunctionLines
		if n := sort.SearchInts(starts, start+1); n < len(starts) {
			end = starts[n] - 1
		}
		inferred[k].body.endLine = end
	}
	return append(exact, inferred...)
}

// innermost returns the smallest scope containing the position.
func innermost(scopes []scope, line, col int) (scope, bool) {
	var best scope
	found := false
	for _, sc := range scopes {
		if !sc.body.contains(line, col) {
			continue
		}
		if !found || sc.body.lines() < best.body.lines() ||
			(sc.body.lines() == best.body.lines() && best.body.startCol < sc.body.startCol) {
			best, found = sc, true
		}
	}
	return best, found
}

// FindCallers returns the callables whose bodies reference method. A
// recursive method is its own caller.
func (a *Analyzer) FindCallers(ctx context.Context, ws analyzer.Workspace, method analyzer.SymbolID) ([]analyzer.RawSymbol, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}
	idx := snap.index

	callers := make([]analyzer.RawSymbol, 0)
	seen := make(map[string]bool)

	for _, doc := range idx.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var scopes []scope
		for _, occ := range doc.Occurrences {
			if occ.Symbol != string(method) || occ.IsDefinition() {
				continue
			}
			s, ok := parseRange(occ.Range)
			if !ok {
				continue
			}
			if scopes == nil {
				scopes = idx.callableScopes(doc)
			}
			sc, ok := innermost(scopes, s.startLine, s.startCol)
			if !ok || seen[sc.symbol] {
				continue
			}
			seen[sc.symbol] = true
			if raw, ok := idx.rawSymbol(sc.symbol); ok {
				callers = append(callers, raw)
			}
		}
	}
	return callers, nil
}
