package scip

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
	"symnav/internal/syntax"

	"go.lsp.dev/uri"
)

// Options configures the SCIP analyzer.
type Options struct {
	// IndexPath locates the index relative to the workspace root unless absolute.
	IndexPath string
	// ReadSources loads document text from disk when the index embeds none.
	ReadSources bool
}

// Analyzer implements analyzer.Analyzer over a SCIP index. Workspaces it
// returns are *Snapshot values.
type Analyzer struct {
	opts   Options
	logger *slog.Logger
	parser *syntax.Parser
}

var (
	_ analyzer.Analyzer  = (*Analyzer)(nil)
	_ analyzer.Persister = (*Analyzer)(nil)
	_ analyzer.FileMover = (*Analyzer)(nil)
)

// New creates a SCIP-backed analyzer.
func New(opts Options, logger *slog.Logger) *Analyzer {
	if opts.IndexPath == "" {
		opts.IndexPath = filepath.Join(".scip", "index.scip")
	}
	return &Analyzer{
		opts:   opts,
		logger: logger,
		parser: syntax.NewParser(),
	}
}

// LoadWorkspace loads the index for path. path is either the workspace
// directory or the index file itself.
func (a *Analyzer) LoadWorkspace(ctx context.Context, path string) (analyzer.Workspace, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.New(errors.InvalidArgument, fmt.Sprintf("resolve workspace path %q", path), err)
	}
	info, err := os.Stat(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New(errors.FileNotFound, fmt.Sprintf("workspace %s does not exist", abs), err)
		}
		return nil, errors.New(errors.AnalyzerUnavailable, fmt.Sprintf("stat workspace %s", abs), err)
	}

	root, indexPath := abs, a.opts.IndexPath
	if info.IsDir() {
		if !filepath.IsAbs(indexPath) {
			indexPath = filepath.Join(root, indexPath)
		}
	} else {
		indexPath = abs
	}

	idx, err := LoadSCIPIndex(indexPath)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		root = projectRoot(idx.Metadata, indexPath)
	}

	texts := make(map[string]string, len(idx.Documents))
	missing := 0
	for _, doc := range idx.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if doc.Text != "" {
			texts[doc.RelativePath] = doc.Text
			continue
		}
		if !a.opts.ReadSources {
			missing++
			continue
		}
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(doc.RelativePath)))
		if err != nil {
			a.logger.Debug("Document source unreadable", "path", doc.RelativePath, "error", err.Error())
			missing++
			continue
		}
		texts[doc.RelativePath] = string(data)
	}

	snap := newSnapshot(root, indexPath, idx, texts)
	a.logger.Info("Workspace loaded",
		"root", root,
		"index", indexPath,
		"documents", len(idx.Documents),
		"withoutText", missing,
		"id", snap.ID(),
	)
	return snap, nil
}

// projectRoot prefers the file:// root recorded by the indexer, then the
// directory holding the .scip folder.
func projectRoot(meta *Metadata, indexPath string) string {
	if meta != nil && strings.HasPrefix(meta.ProjectRoot, "file://") {
		if dir := uri.URI(meta.ProjectRoot).Filename(); dir != "" {
			if st, err := os.Stat(dir); err == nil && st.IsDir() {
				return dir
			}
		}
	}
	dir := filepath.Dir(indexPath)
	if filepath.Base(dir) == ".scip" {
		return filepath.Dir(dir)
	}
	return dir
}

// CompilationUnits returns one unit per indexed document.
func (a *Analyzer) CompilationUnits(ctx context.Context, ws analyzer.Workspace) ([]analyzer.Unit, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}
	units := make([]analyzer.Unit, 0, len(snap.files))
	for _, f := range snap.files {
		units = append(units, analyzer.Unit{Name: f, Files: []string{f}})
	}
	return units, nil
}

// DeclaredSymbols returns the symbols whose definition lies in the unit's
// documents. Locals, parameters and type parameters are omitted.
func (a *Analyzer) DeclaredSymbols(ctx context.Context, ws analyzer.Workspace, unit analyzer.Unit) ([]analyzer.RawSymbol, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}
	idx := snap.index

	var out []analyzer.RawSymbol
	seen := make(map[string]bool)
	add := func(doc *Document, symbol string) {
		if seen[symbol] {
			return
		}
		seen[symbol] = true
		if d, _, ok := idx.Definition(symbol); !ok || d != doc {
			return
		}
		raw, ok := idx.rawSymbol(symbol)
		if !ok {
			return
		}
		switch raw.Kind {
		case analyzer.KindLocal, analyzer.KindParameter, analyzer.KindTypeParameter, analyzer.KindUnknown:
			return
		}
		out = append(out, raw)
	}

	for _, f := range unit.Files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		doc := idx.GetDocument(f)
		if doc == nil {
			continue
		}
		for _, sym := range doc.Symbols {
			add(doc, sym.Symbol)
		}
		for _, occ := range doc.Occurrences {
			if occ.IsDefinition() {
				add(doc, occ.Symbol)
			}
		}
	}
	return out, nil
}

// Persist writes the index of a derived workspace back to the file it was
// loaded from.
func (a *Analyzer) Persist(ctx context.Context, ws analyzer.Workspace) error {
	snap, err := snapshotOf(ws)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := snap.index.WriteSCIPIndex(snap.indexPath); err != nil {
		return errors.New(errors.InternalError, fmt.Sprintf("write SCIP index %s", snap.indexPath), err)
	}
	a.logger.Info("SCIP index updated", "index", snap.indexPath, "id", snap.ID())
	return nil
}

func snapshotOf(ws analyzer.Workspace) (*Snapshot, error) {
	snap, ok := ws.(*Snapshot)
	if !ok || snap == nil {
		return nil, errors.Newf(errors.InvalidArgument, "workspace %T was not loaded by the SCIP analyzer", ws)
	}
	return snap, nil
}

// location converts an occurrence range in doc to a 1-based Location.
func location(doc *Document, s span) analyzer.Location {
	return analyzer.Location{
		Path:      doc.RelativePath,
		Line:      s.startLine + 1,
		Column:    s.startCol + 1,
		EndLine:   s.endLine + 1,
		EndColumn: s.endCol + 1,
	}
}
