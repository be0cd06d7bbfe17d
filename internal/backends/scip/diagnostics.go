package scip

import (
	"context"
	"sort"
	"strings"

	"symnav/internal/analyzer"
)

// Diagnostics returns the diagnostics attached to occurrences, sorted by
// location and narrowed by filter.
func (a *Analyzer) Diagnostics(ctx context.Context, ws analyzer.Workspace, filter analyzer.DiagnosticFilter) ([]analyzer.RawDiagnostic, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}

	suffix := normalizePath(filter.File)
	out := make([]analyzer.RawDiagnostic, 0)
	for _, doc := range snap.index.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if suffix != "" && !strings.HasSuffix(normalizePath(doc.RelativePath), suffix) {
			continue
		}
		for _, occ := range doc.Occurrences {
			if len(occ.Diagnostics) == 0 {
				continue
			}
			s, ok := parseRange(occ.Range)
			if !ok {
				continue
			}
			for _, d := range occ.Diagnostics {
				sev := severityOf(d.Severity)
				if filter.MinSeverity != 0 && sev > filter.MinSeverity {
					continue
				}
				out = append(out, analyzer.RawDiagnostic{
					Location: location(doc, s),
					Severity: sev,
					Level:    sev.String(),
					Code:     d.Code,
					Message:  d.Message,
					Source:   d.Source,
				})
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i].Location, out[j].Location
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Line != b.Line {
			return a.Line < b.Line
		}
		return a.Column < b.Column
	})
	return out, nil
}

// severityOf maps the SCIP severity enum; unspecified counts as info.
func severityOf(s int32) analyzer.Severity {
	if s < int32(analyzer.SeverityError) || s > int32(analyzer.SeverityHint) {
		return analyzer.SeverityInfo
	}
	return analyzer.Severity(s)
}

func normalizePath(p string) string {
	return strings.ToLower(strings.ReplaceAll(p, "\\", "/"))
}
