package scip

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
)

// textEdit replaces one occurrence of the old name on a line. Columns are in
// SCIP units, offsets in bytes.
type textEdit struct {
	line             int
	startCol, endCol int
	startOff, endOff int
	delta            int
}

// RenameSymbol returns a new snapshot in which symbol, its overriding and
// implementing members, and (for types) its constructors are renamed. Both
// the text and the index are rewritten; ws itself is not modified.
func (a *Analyzer) RenameSymbol(ctx context.Context, ws analyzer.Workspace, symbol analyzer.SymbolID, newName string) (analyzer.Workspace, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}
	if !validIdentifier(newName) {
		return nil, errors.Newf(errors.InvalidArgument, "rename %s: %q is not a valid identifier", symbol, newName)
	}
	idx := snap.index
	subject, ok := idx.rawSymbol(string(symbol))
	if _, _, defined := idx.Definition(string(symbol)); !ok || !defined {
		return nil, errors.Newf(errors.SymbolNotFound, "rename: symbol %s has no definition in the workspace", symbol)
	}
	target := string(symbol)
	if subject.Kind == analyzer.KindConstructor && subject.ContainerID != "" {
		target = string(subject.ContainerID)
		if subject, ok = idx.rawSymbol(target); !ok {
			return nil, errors.Newf(errors.SymbolNotFound, "rename: constructor container %s not found", target)
		}
	}
	oldName := subject.Name

	set := idx.renameSet(target, subject.Kind)
	renamed := make(map[string]string, len(set))
	for sym := range set {
		id, err := ParseSCIPIdentifier(sym)
		if err != nil || id.Last() == nil || id.Last().Name != oldName {
			continue
		}
		renamed[sym] = id.WithLastName(newName)
	}
	rewrite := symbolRewriter(renamed)

	texts := make(map[string]string, len(snap.texts))
	for k, v := range snap.texts {
		texts[k] = v
	}

	docs := make([]*Document, 0, len(idx.Documents))
	total := 0
	for _, doc := range idx.Documents {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		edits := collectEdits(snap, doc, set, oldName, newName)
		if len(edits) > 0 {
			text, ok := texts[doc.RelativePath]
			if !ok {
				return nil, errors.Newf(errors.AnalyzerUnavailable, "rename %s: no source text for %s", oldName, doc.RelativePath)
			}
			texts[doc.RelativePath] = applyEdits(text, edits, newName)
			total += len(edits)
		}
		out := rewriteDocument(doc, edits, rewrite, renamed, set, oldName, newName)
		if doc.Text != "" {
			out.Text = texts[doc.RelativePath]
		}
		docs = append(docs, out)
	}

	next := &SCIPIndex{
		Metadata:  idx.Metadata,
		Documents: docs,
		External:  make(map[string]*SymbolInformation, len(idx.External)),
		LoadedAt:  time.Now(),
	}
	for _, info := range idx.External {
		cp := rewriteSymbolInfo(info, rewrite, renamed, set, oldName, newName)
		next.External[cp.Symbol] = cp
	}
	next.rebuild()

	a.logger.Debug("Rename computed",
		"symbol", string(symbol),
		"from", oldName,
		"to", newName,
		"symbols", len(set),
		"edits", total,
	)
	return newSnapshot(snap.root, snap.indexPath, next, texts), nil
}

// renameSet returns the symbols renamed together with sym. Members pull in
// the members they override or implement and those overriding or
// implementing them; types pull in their constructors.
func (i *SCIPIndex) renameSet(sym string, kind analyzer.SymbolKind) map[string]bool {
	set := map[string]bool{sym: true}
	if kind.IsType() {
		for other := range i.Symbols {
			id, err := ParseSCIPIdentifier(other)
			if err != nil || id.Last() == nil {
				continue
			}
			if id.Parent() == sym && i.kindOf(id, i.Symbols[other]) == analyzer.KindConstructor {
				set[other] = true
			}
		}
		return set
	}
	if kind == analyzer.KindNamespace {
		return set
	}

	queue := []string{sym}
	visit := func(s string) {
		if set[s] {
			return
		}
		if id, err := ParseSCIPIdentifier(s); err != nil || id.Last() == nil || id.Last().Suffix == SuffixType {
			return
		}
		set[s] = true
		queue = append(queue, s)
	}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		if info := i.GetSymbol(current); info != nil {
			for _, rel := range info.Relationships {
				if rel.IsImplementation {
					visit(rel.Symbol)
				}
			}
		}
		for _, impl := range i.Implementers(current) {
			visit(impl)
		}
	}
	return set
}

// collectEdits finds the occurrences of set members in doc whose text is
// exactly oldName.
func collectEdits(snap *Snapshot, doc *Document, set map[string]bool, oldName, newName string) []textEdit {
	lines := snap.lines[doc.RelativePath]
	seen := make(map[[2]int]bool)
	var edits []textEdit
	for _, occ := range doc.Occurrences {
		if !set[occ.Symbol] {
			continue
		}
		s, ok := parseRange(occ.Range)
		if !ok || s.startLine != s.endLine {
			continue
		}
		key := [2]int{s.startLine, s.startCol}
		if seen[key] {
			continue
		}
		if lines == nil {
			// No text to compare against; the caller rejects the document.
			seen[key] = true
			edits = append(edits, textEdit{line: s.startLine, startCol: s.startCol, endCol: s.endCol})
			continue
		}
		text, ok := textAt(lines, s, doc.Encoding)
		if !ok || text != oldName {
			continue
		}
		seen[key] = true
		line := strings.TrimSuffix(lines[s.startLine], "\r")
		edits = append(edits, textEdit{
			line:     s.startLine,
			startCol: s.startCol,
			endCol:   s.endCol,
			startOff: byteOffset(line, s.startCol, doc.Encoding),
			endOff:   byteOffset(line, s.endCol, doc.Encoding),
			delta:    unitWidth(newName, doc.Encoding) - unitWidth(oldName, doc.Encoding),
		})
	}
	sort.Slice(edits, func(a, b int) bool {
		if edits[a].line != edits[b].line {
			return edits[a].line < edits[b].line
		}
		return edits[a].startCol < edits[b].startCol
	})
	return edits
}

// applyEdits rewrites text, applying each line's edits right to left.
func applyEdits(text string, edits []textEdit, newName string) string {
	lines := splitLines(text)
	for k := len(edits) - 1; k >= 0; k-- {
		e := edits[k]
		line := lines[e.line]
		lines[e.line] = line[:e.startOff] + newName + line[e.endOff:]
	}
	return strings.Join(lines, "\n")
}

// shift moves a position past the edits that precede it on its line.
func shift(edits []textEdit, line, col int) int {
	out := col
	for _, e := range edits {
		if e.line == line && e.startCol < col {
			out += e.delta
		}
	}
	return out
}

func shiftRange(edits []textEdit, r []int32) []int32 {
	s, ok := parseRange(r)
	if !ok || len(edits) == 0 {
		return r
	}
	s.startCol = shift(edits, s.startLine, s.startCol)
	s.endCol = shift(edits, s.endLine, s.endCol)
	if len(r) == 4 {
		return []int32{int32(s.startLine), int32(s.startCol), int32(s.endLine), int32(s.endCol)}
	}
	return s.toRange()
}

func rewriteDocument(doc *Document, edits []textEdit, rewrite func(string) string, renamed map[string]string, set map[string]bool, oldName, newName string) *Document {
	out := &Document{
		RelativePath: doc.RelativePath,
		Language:     doc.Language,
		Text:         doc.Text,
		Encoding:     doc.Encoding,
		Occurrences:  make([]*Occurrence, len(doc.Occurrences)),
		Symbols:      make([]*SymbolInformation, len(doc.Symbols)),
	}
	for k, occ := range doc.Occurrences {
		out.Occurrences[k] = &Occurrence{
			Range:          shiftRange(edits, occ.Range),
			Symbol:         rewrite(occ.Symbol),
			SymbolRoles:    occ.SymbolRoles,
			Diagnostics:    occ.Diagnostics,
			EnclosingRange: shiftRange(edits, occ.EnclosingRange),
		}
	}
	for k, info := range doc.Symbols {
		out.Symbols[k] = rewriteSymbolInfo(info, rewrite, renamed, set, oldName, newName)
	}
	return out
}

func rewriteSymbolInfo(info *SymbolInformation, rewrite func(string) string, renamed map[string]string, set map[string]bool, oldName, newName string) *SymbolInformation {
	cp := *info
	cp.Symbol = rewrite(info.Symbol)
	cp.EnclosingSymbol = rewrite(info.EnclosingSymbol)
	cp.Relationships = make([]*Relationship, len(info.Relationships))
	for k, rel := range info.Relationships {
		r := *rel
		r.Symbol = rewrite(rel.Symbol)
		cp.Relationships[k] = &r
	}
	if set[info.Symbol] {
		if _, ok := renamed[info.Symbol]; ok && cp.DisplayName == oldName {
			cp.DisplayName = newName
		}
		cp.Signature = replaceWord(info.Signature, oldName, newName)
	}
	return &cp
}

// symbolRewriter maps symbol strings through renamed, including symbols
// nested under a renamed one (members of a renamed type).
func symbolRewriter(renamed map[string]string) func(string) string {
	prefixes := make([]string, 0, len(renamed))
	for k := range renamed {
		prefixes = append(prefixes, k)
	}
	sort.Slice(prefixes, func(a, b int) bool { return len(prefixes[a]) > len(prefixes[b]) })
	return func(s string) string {
		if s == "" || IsLocalSymbol(s) {
			return s
		}
		for _, p := range prefixes {
			if strings.HasPrefix(s, p) {
				return renamed[p] + s[len(p):]
			}
		}
		return s
	}
}

// replaceWord replaces the first whole-word occurrence of old in s.
func replaceWord(s, old, repl string) string {
	for from := 0; ; {
		k := strings.Index(s[from:], old)
		if k < 0 {
			return s
		}
		k += from
		end := k + len(old)
		if !isWordByte(s, k-1) && !isWordByte(s, end) {
			return s[:k] + repl + s[end:]
		}
		from = end
	}
}

func isWordByte(s string, i int) bool {
	if i < 0 || i >= len(s) {
		return false
	}
	c := s[i]
	return c == '_' || c >= 0x80 || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') || (c >= '0' && c <= '9')
}

func unitWidth(s string, enc PositionEncoding) int {
	if enc == EncodingUTF8 {
		return len(s)
	}
	n := 0
	for _, r := range s {
		n += unitLen(r, enc)
	}
	return n
}

// validIdentifier accepts a letter or underscore followed by letters, digits
// and underscores. A leading @ (C# verbatim identifier) is allowed.
func validIdentifier(name string) bool {
	name = strings.TrimPrefix(name, "@")
	if name == "" {
		return false
	}
	for k, r := range name {
		switch {
		case r == '_' || unicode.IsLetter(r):
		case k > 0 && unicode.IsDigit(r):
		default:
			return false
		}
	}
	return true
}

// MoveFiles returns a snapshot in which documents were renamed on disk
// from the keys of moves to their values.
func (a *Analyzer) MoveFiles(ctx context.Context, ws analyzer.Workspace, moves map[string]string) (analyzer.Workspace, error) {
	snap, err := snapshotOf(ws)
	if err != nil {
		return nil, err
	}
	if len(moves) == 0 {
		return snap, nil
	}
	texts := make(map[string]string, len(snap.texts))
	for k, v := range snap.texts {
		if to, ok := moves[k]; ok {
			k = to
		}
		texts[k] = v
	}
	docs := make([]*Document, 0, len(snap.index.Documents))
	for _, doc := range snap.index.Documents {
		cp := *doc
		if to, ok := moves[doc.RelativePath]; ok {
			if snap.index.GetDocument(to) != nil {
				return nil, errors.New(errors.InvalidArgument, fmt.Sprintf("move %s: %s is already indexed", doc.RelativePath, to), nil)
			}
			cp.RelativePath = to
		}
		docs = append(docs, &cp)
	}
	next := &SCIPIndex{
		Metadata:  snap.index.Metadata,
		Documents: docs,
		External:  snap.index.External,
		LoadedAt:  time.Now(),
	}
	next.rebuild()
	return newSnapshot(snap.root, snap.indexPath, next, texts), nil
}
