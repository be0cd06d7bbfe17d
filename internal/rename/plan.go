// Package rename turns a semantic rename into a reviewable, file-scoped,
// line-level plan and optionally commits it to disk.
package rename

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"sort"
	"strconv"
	"strings"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
	"symnav/internal/index"
	"symnav/internal/storage"

	"github.com/google/uuid"
)

// State is where a plan is in its lifecycle. Previewed and Committed are
// terminal.
type State string

const (
	StatePlanned   State = "planned"
	StatePreviewed State = "previewed"
	StateCommitted State = "committed"
)

// MatchRule selects how a renamed type's file name is matched.
type MatchRule string

const (
	// MatchExact proposes a file rename only when the base name without
	// extension equals the old name, ignoring case.
	MatchExact MatchRule = "exact"
	// MatchPrefix proposes one whenever the base name starts with the old
	// name, ignoring case.
	MatchPrefix MatchRule = "prefix"
)

// ParseMatchRule parses a file-rename rule. Empty means MatchExact.
func ParseMatchRule(s string) (MatchRule, error) {
	switch MatchRule(strings.ToLower(strings.TrimSpace(s))) {
	case "", MatchExact:
		return MatchExact, nil
	case MatchPrefix:
		return MatchPrefix, nil
	}
	return "", errors.Newf(errors.InvalidArgument, "invalid file rename rule %q (want exact or prefix)", s)
}

// Edit replaces the text of one line. Texts are trimmed.
type Edit struct {
	Line    int    `json:"line"`
	OldText string `json:"oldText"`
	NewText string `json:"newText"`
}

// FileChange is the planned change to one file.
type FileChange struct {
	SuggestedNewFileName string `json:"suggestedNewFileName,omitempty"`
	Edits                []Edit `json:"edits"`
}

// Plan is the complete set of edits and file renames of one rename. A
// preview and the plan it commits marshal identically apart from State.
type Plan struct {
	ID             string                 `json:"id"`
	Subject        *index.Declaration     `json:"subject"`
	OldName        string                 `json:"oldName"`
	NewName        string                 `json:"newName"`
	Files          map[string]*FileChange `json:"files"`
	TotalEditCount int                    `json:"totalEditCount"`
	State          State                  `json:"state"`

	base    analyzer.Workspace
	renamed analyzer.Workspace
}

// Paths returns the changed files in sorted order.
func (p *Plan) Paths() []string {
	out := make([]string, 0, len(p.Files))
	for f := range p.Files {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Moves maps each file with a suggested new name to its new path.
func (p *Plan) Moves() map[string]string {
	moves := make(map[string]string)
	for f, c := range p.Files {
		if c.SuggestedNewFileName == "" {
			continue
		}
		moves[f] = path.Join(path.Dir(f), c.SuggestedNewFileName)
	}
	return moves
}

// Base is the workspace the plan was computed from.
func (p *Plan) Base() analyzer.Workspace { return p.base }

// Renamed is the workspace after the rename, before any file moves.
func (p *Plan) Renamed() analyzer.Workspace { return p.renamed }

// Options configures a Transaction.
type Options struct {
	// SuggestFileRename proposes a new file name when a type is renamed.
	SuggestFileRename bool
	FileRenameMatch   MatchRule
	// DirectWrite writes files in place instead of staging them beside
	// their targets first.
	DirectWrite bool
	// Track lists extra workspace-relative files whose pre-images are
	// journaled with each commit. The caller rewrites them after Commit and
	// marks them written so Restore brings them back too.
	Track []string
}

// Transaction plans and commits renames against one workspace snapshot.
type Transaction struct {
	analyzer analyzer.Analyzer
	ws       analyzer.Workspace
	journal  *storage.Journal
	opts     Options
	logger   *slog.Logger
}

// New creates a Transaction. journal may be nil, in which case commits are
// not journaled.
func New(a analyzer.Analyzer, ws analyzer.Workspace, journal *storage.Journal, opts Options, logger *slog.Logger) *Transaction {
	if opts.FileRenameMatch == "" {
		opts.FileRenameMatch = MatchExact
	}
	return &Transaction{analyzer: a, ws: ws, journal: journal, opts: opts, logger: logger}
}

// Plan computes the rename of subject to newName without touching disk.
func (t *Transaction) Plan(ctx context.Context, subject *index.Declaration, newName string) (*Plan, error) {
	if subject == nil {
		return nil, errors.New(errors.InvalidArgument, "rename: no subject", nil)
	}
	newName = strings.TrimSpace(newName)
	if newName == "" {
		return nil, errors.Newf(errors.InvalidArgument, "rename %s: new name is empty", subject.QualifiedName)
	}
	if newName == subject.Name {
		return nil, errors.Newf(errors.InvalidArgument, "rename %s: new name equals the current name", subject.QualifiedName)
	}
	if subject.Derived() {
		return nil, errors.Newf(errors.InvalidArgument, "rename %s: namespace %s has no single declaration to rename", newName, subject.QualifiedName)
	}

	renamed, err := t.analyzer.RenameSymbol(ctx, t.ws, subject.ID, newName)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("rename %s to %s", subject.QualifiedName, newName))
	}

	p := &Plan{
		ID:      planID(t.ws.ID(), subject.ID, newName, t.opts),
		Subject: subject,
		OldName: subject.Name,
		NewName: newName,
		Files:   make(map[string]*FileChange),
		State:   StatePlanned,
		base:    t.ws,
		renamed: renamed,
	}

	for _, f := range renamed.Files() {
		after, ok := renamed.Text(f)
		if !ok {
			continue
		}
		before, ok := t.ws.Text(f)
		if !ok {
			return nil, errors.Newf(errors.InternalError, "rename %s: %s missing from the original workspace", subject.QualifiedName, f)
		}
		if before == after {
			continue
		}
		edits, err := diffLines(f, before, after)
		if err != nil {
			return nil, err
		}
		p.Files[f] = &FileChange{Edits: edits}
		p.TotalEditCount += len(edits)
	}

	if t.opts.SuggestFileRename && subject.Kind == index.KindType {
		file := subject.Location.Path
		if name := suggestFileName(file, subject.Name, newName, t.opts.FileRenameMatch); name != "" {
			c, ok := p.Files[file]
			if !ok {
				c = &FileChange{Edits: []Edit{}}
				p.Files[file] = c
			}
			c.SuggestedNewFileName = name
		}
	}

	t.logger.Debug("Rename planned",
		"plan", p.ID,
		"subject", subject.QualifiedName,
		"newName", newName,
		"files", len(p.Files),
		"edits", p.TotalEditCount,
	)
	return p, nil
}

// Preview plans the rename and marks the plan terminal without side effects.
func (t *Transaction) Preview(ctx context.Context, subject *index.Declaration, newName string) (*Plan, error) {
	p, err := t.Plan(ctx, subject, newName)
	if err != nil {
		return nil, err
	}
	p.State = StatePreviewed
	return p, nil
}

// planID is stable for a workspace, subject, new name and options, so
// repeated previews are identical.
func planID(workspaceID string, subject analyzer.SymbolID, newName string, opts Options) string {
	key := strings.Join([]string{
		workspaceID,
		string(subject),
		newName,
		strconv.FormatBool(opts.SuggestFileRename),
		string(opts.FileRenameMatch),
	}, "\x00")
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(key)).String()
}

// diffLines pairs each changed line with its replacement. A rename only
// rewrites identifiers, so line structure is preserved.
func diffLines(file, before, after string) ([]Edit, error) {
	a := strings.Split(before, "\n")
	b := strings.Split(after, "\n")
	if len(a) != len(b) {
		return nil, errors.Newf(errors.InternalError, "rename diff %s: line count changed from %d to %d", file, len(a), len(b))
	}
	var edits []Edit
	for i := range a {
		if a[i] == b[i] {
			continue
		}
		edits = append(edits, Edit{
			Line:    i + 1,
			OldText: strings.TrimSpace(a[i]),
			NewText: strings.TrimSpace(b[i]),
		})
	}
	return edits, nil
}

// suggestFileName returns the new base name for file, or "" when the rule
// does not match.
func suggestFileName(file, oldName, newName string, rule MatchRule) string {
	base := path.Base(file)
	ext := path.Ext(base)
	stem := strings.TrimSuffix(base, ext)

	var name string
	switch rule {
	case MatchPrefix:
		if len(stem) >= len(oldName) && strings.EqualFold(stem[:len(oldName)], oldName) {
			name = newName + base[len(oldName):]
		}
	default:
		if strings.EqualFold(stem, oldName) {
			name = newName + ext
		}
	}
	if name == base {
		return ""
	}
	return name
}
