package main

import (
	"fmt"
	"sort"
	"strings"

	"symnav/internal/envelope"
	"symnav/internal/hierarchy"
	"symnav/internal/index"
	"symnav/internal/output"
	"symnav/internal/xref"
)

// FormatResponse formats a response according to the specified format
func FormatResponse(resp *envelope.Response, format output.Format) (string, error) {
	switch format {
	case output.FormatJSON:
		return formatJSON(resp)
	case output.FormatYAML:
		data, err := output.EncodeYAML(resp)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return strings.TrimSuffix(string(data), "\n"), nil
	case output.FormatHuman, output.FormatMarkdown:
		return formatText(resp, format == output.FormatMarkdown)
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// formatJSON formats the response as JSON
func formatJSON(resp interface{}) (string, error) {
	data, err := output.DeterministicEncodeIndented(resp, "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal JSON: %w", err)
	}
	return string(data), nil
}

// renderer writes human text or markdown with the same calls.
type renderer struct {
	b  strings.Builder
	md bool
}

func (r *renderer) heading(format string, args ...interface{}) {
	title := fmt.Sprintf(format, args...)
	if r.md {
		r.b.WriteString("## " + title + "\n\n")
		return
	}
	r.b.WriteString(title + "\n")
	r.b.WriteString(strings.Repeat("=", min(len(title), 60)) + "\n\n")
}

func (r *renderer) section(title string) {
	if r.md {
		r.b.WriteString("### " + title + "\n\n")
		return
	}
	r.b.WriteString(title + ":\n")
}

func (r *renderer) item(format string, args ...interface{}) {
	if r.md {
		r.b.WriteString("- ")
	} else {
		r.b.WriteString("  ")
	}
	r.b.WriteString(fmt.Sprintf(format, args...) + "\n")
}

func (r *renderer) line(format string, args ...interface{}) {
	r.b.WriteString(fmt.Sprintf(format, args...) + "\n")
}

func (r *renderer) blank() {
	r.b.WriteString("\n")
}

func (r *renderer) code(s string) string {
	if r.md {
		return "`" + s + "`"
	}
	return s
}

func (r *renderer) block(lang, text string) {
	text = strings.TrimSuffix(text, "\n")
	if r.md {
		r.b.WriteString("```" + lang + "\n" + text + "\n```\n")
		return
	}
	r.b.WriteString(text + "\n")
}

func (r *renderer) decl(d *index.Declaration) string {
	return fmt.Sprintf("%s %s  %s", d.Kind, r.code(d.QualifiedName), d.Location)
}

func (r *renderer) decls(title string, decls []*index.Declaration) {
	r.section(title)
	if len(decls) == 0 {
		r.item("(none)")
	}
	for _, d := range decls {
		r.item("%s", r.decl(d))
	}
	r.blank()
}

// formatText renders the response in human-readable text or markdown.
func formatText(resp *envelope.Response, md bool) (string, error) {
	r := &renderer{md: md}

	if resp.Error != nil {
		formatErrorText(r, resp.Error)
		return strings.TrimRight(r.b.String(), "\n"), nil
	}

	switch v := resp.Data.(type) {
	case *FindResultCLI:
		formatFindText(r, v)
	case *ReferencesResultCLI:
		formatRefsText(r, v)
	case *CallsResultCLI:
		formatCallsText(r, v)
	case *xref.CallGraph:
		formatCallGraphText(r, v)
	case *hierarchy.View:
		formatHierarchyText(r, v)
	case *ImplementationsResultCLI:
		r.heading("Implementations of %s (%d)", v.Subject.QualifiedName, len(v.Implementations))
		r.decls("Implementations", v.Implementations)
	case *DiagnosticsResultCLI:
		formatDiagnosticsText(r, v)
	case *RenameResultCLI:
		formatRenameText(r, v)
	case *IndexResultCLI:
		formatIndexText(r, v)
	case *JournalListCLI:
		formatJournalListText(r, v)
	case *JournalEntryCLI:
		formatJournalEntryText(r, v)
	case *InitResultCLI:
		if v.Created {
			r.line("Configuration written to %s", v.ConfigPath)
		} else {
			r.line("Already initialized. Configuration at %s", v.ConfigPath)
			r.line("Run 'symnav init --force' to overwrite it.")
		}
	default:
		// For unknown types, fall back to JSON
		return formatJSON(resp)
	}

	formatFooterText(r, resp)
	return strings.TrimRight(r.b.String(), "\n"), nil
}

func formatErrorText(r *renderer, e *envelope.ErrorInfo) {
	r.heading("Error: %s", e.Code)
	r.line("%s", e.Message)
	if len(e.SuggestedFixes) > 0 {
		r.blank()
		r.section("Suggested fixes")
		for _, fix := range e.SuggestedFixes {
			switch {
			case fix.Command != "":
				r.item("%s", r.code(fix.Command))
			case fix.URL != "":
				r.item("%s", fix.URL)
			default:
				r.item("%s", fix.Description)
			}
		}
	}
}

func formatFooterText(r *renderer, resp *envelope.Response) {
	if len(resp.Warnings) > 0 {
		r.section("Warnings")
		for _, w := range resp.Warnings {
			if w.Code != "" {
				r.item("! [%s] %s", w.Code, w.Message)
			} else {
				r.item("! %s", w.Message)
			}
		}
		r.blank()
	}

	if resp.Meta != nil && resp.Meta.Truncation != nil && resp.Meta.Truncation.IsTruncated {
		t := resp.Meta.Truncation
		r.line("Results truncated (%s): showing %d", t.Reason, t.Shown)
		r.blank()
	}

	if len(resp.SuggestedNextCalls) > 0 {
		r.section("Suggested Follow-ups")
		for i, c := range resp.SuggestedNextCalls {
			r.line("  %d. %s", i+1, c.Reason)
			r.line("     $ %s", suggestedCommand(c))
		}
		r.blank()
	}
}

// suggestedCommand renders a suggested call as a command line. name and
// newName are positional; everything else becomes a flag.
func suggestedCommand(c envelope.SuggestedCall) string {
	parts := []string{c.Tool}
	for _, key := range []string{"name", "newName", "id"} {
		if v, ok := c.Params[key]; ok {
			parts = append(parts, fmt.Sprint(v))
		}
	}
	keys := make([]string, 0, len(c.Params))
	for k := range c.Params {
		switch k {
		case "name", "newName", "id":
		default:
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("--%s %v", k, c.Params[k]))
	}
	return strings.Join(parts, " ")
}

func formatFindText(r *renderer, v *FindResultCLI) {
	r.heading("Declarations matching %s (%d)", v.Query.String(), len(v.Declarations))
	for _, d := range v.Declarations {
		r.item("%s", r.decl(d))
		if d.Signature != "" {
			if r.md {
				r.line("  %s", r.code(d.Signature))
			} else {
				r.line("      %s", d.Signature)
			}
		}
	}
	r.blank()
}

func formatRefsText(r *renderer, v *ReferencesResultCLI) {
	r.heading("References to %s (%d)", v.Subject.QualifiedName, len(v.References))
	if len(v.References) == 0 {
		r.item("(none)")
	}
	for _, ref := range v.References {
		pos := fmt.Sprintf("%s:%d:%d", ref.Path, ref.Line, ref.Column)
		text := ref.SurroundingText
		if ref.IsImplicit {
			text += " (implicit)"
		}
		if r.md {
			r.item("%s %s", r.code(pos), text)
		} else {
			r.item("%-40s %s", pos, text)
		}
	}
	r.blank()
}

func formatCallsText(r *renderer, v *CallsResultCLI) {
	title := "Callers of"
	if v.Direction == xref.DirectionCallees {
		title = "Callees of"
	}
	r.heading("%s %s (%d)", title, v.Subject.QualifiedName, len(v.Calls))
	if len(v.Calls) == 0 {
		r.item("(none)")
	}
	for _, d := range v.Calls {
		r.item("%s", r.decl(d))
	}
	r.blank()
}

func formatCallGraphText(r *renderer, g *xref.CallGraph) {
	r.heading("Call graph of %s (depth %d, %d nodes)", g.Root.QualifiedName, g.Depth, len(g.Nodes))
	r.decls("Nodes", g.Nodes)
	r.section("Edges")
	if len(g.Edges) == 0 {
		r.item("(none)")
	}
	for _, e := range g.Edges {
		r.item("%s -> %s", r.code(e.From.QualifiedName), r.code(e.To.QualifiedName))
	}
	r.blank()
}

func formatHierarchyText(r *renderer, v *hierarchy.View) {
	r.heading("Hierarchy of %s", v.Subject.QualifiedName)
	r.decls("Ancestors", v.Ancestors)
	r.decls("Descendants", v.Descendants)
	r.decls("Interfaces", v.Interfaces)
	r.decls("Implementations", v.Implementations)
}

func formatDiagnosticsText(r *renderer, v *DiagnosticsResultCLI) {
	r.heading("Diagnostics (%d)", len(v.Diagnostics))
	if len(v.Diagnostics) == 0 {
		r.item("(none)")
	}
	for _, d := range v.Diagnostics {
		code := d.Code
		if code == "" {
			code = "-"
		}
		r.item("%s %s %s  %s", d.Level, r.code(code), d.Location, d.Message)
	}
	r.blank()
}

func formatRenameText(r *renderer, v *RenameResultCLI) {
	p := v.Plan
	r.heading("Rename %s %s to %s", p.Subject.Kind, p.Subject.QualifiedName, p.NewName)
	r.line("Plan: %s", p.ID)
	r.line("Edits: %d in %d files", p.TotalEditCount, len(p.Files))
	r.blank()

	for _, path := range p.Paths() {
		change := p.Files[path]
		title := path
		if change.SuggestedNewFileName != "" {
			title = fmt.Sprintf("%s (rename to %s)", path, change.SuggestedNewFileName)
		}
		r.section(title)
		for _, e := range change.Edits {
			r.item("%d: %s", e.Line, r.code(e.NewText))
		}
		r.blank()
	}

	if v.Diff != "" {
		r.block("diff", v.Diff)
		r.blank()
	}

	if v.Preview {
		r.line("Preview only; nothing was written.")
	} else {
		r.line("Committed (%s).", p.State)
		if v.JournalID != "" {
			r.line("Journal: %s", v.JournalID)
		}
	}
	r.blank()
}

func formatIndexText(r *renderer, v *IndexResultCLI) {
	r.heading("Index")
	r.item("Workspace: %s", v.Root)
	r.item("SCIP index: %s", v.IndexPath)
	r.item("Fingerprint: %s", r.code(v.Stats.WorkspaceID))
	r.item("Documents: %d", v.Stats.Documents)
	r.item("Declarations: %d", v.Stats.Declarations)
	r.item("Build time: %s", v.BuildTime)
	if v.Freshness.Fresh {
		r.item("Metadata: fresh")
	} else {
		r.item("Metadata: stale (%s)", v.Freshness.Reason)
	}
	r.blank()

	if len(v.Stats.ByKind) > 0 {
		r.section("By kind")
		kinds := make([]string, 0, len(v.Stats.ByKind))
		for k := range v.Stats.ByKind {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			r.item("%-12s %d", k, v.Stats.ByKind[k])
		}
		r.blank()
	}

	if len(v.Stats.Warnings) > 0 {
		r.section("Index warnings")
		for _, w := range v.Stats.Warnings {
			r.item("[%s] %s", w.Code, w.Message)
		}
		r.blank()
	}
}

func formatJournalListText(r *renderer, v *JournalListCLI) {
	r.heading("Journal (%d commits)", len(v.Commits))
	if len(v.Commits) == 0 {
		r.item("(none)")
	}
	for _, c := range v.Commits {
		r.item("%s  %-9s %s -> %s  %s", r.code(shortID(c.ID)), c.State, c.OldName, c.NewName,
			c.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	}
	r.blank()
}

func formatJournalEntryText(r *renderer, v *JournalEntryCLI) {
	c := v.Commit
	if v.Action == "restore" {
		r.heading("Restored commit %s", shortID(c.ID))
	} else {
		r.heading("Commit %s", shortID(c.ID))
	}
	r.item("ID: %s", c.ID)
	r.item("Plan: %s", c.PlanID)
	r.item("Subject: %s", r.code(c.Subject))
	r.item("Rename: %s -> %s", c.OldName, c.NewName)
	r.item("State: %s", c.State)
	r.item("Created: %s", c.CreatedAt.Local().Format("2006-01-02 15:04:05"))
	if c.Error != "" {
		r.item("Error: %s", c.Error)
	}
	r.blank()

	r.section("Files")
	for _, f := range c.Files {
		if f.NewPath != "" {
			r.item("%-9s %s -> %s", f.Status, f.Path, f.NewPath)
		} else {
			r.item("%-9s %s", f.Status, f.Path)
		}
	}
	r.blank()
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
