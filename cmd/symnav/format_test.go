package main

import (
	"strings"
	"testing"

	"symnav/internal/analyzer"
	"symnav/internal/envelope"
	"symnav/internal/errors"
	"symnav/internal/index"
	"symnav/internal/locator"
	"symnav/internal/output"
	"symnav/internal/rename"
	"symnav/internal/testutil"
)

func sampleFind() *envelope.Response {
	d := &index.Declaration{
		ID:            "scip-csharp nuget App 1.0.0 App/Services/UserService#GetById().",
		Name:          "GetById",
		QualifiedName: "App.Services.UserService.GetById",
		Kind:          index.KindMethod,
		Namespace:     "App.Services",
		Location:      analyzer.Location{Path: "Services/UserService.cs", Line: 7, Column: 29},
		Signature:     "public virtual User GetById(int id)",
	}
	return envelope.New().
		Data(&FindResultCLI{Query: locator.Query{Name: "GetById"}, Declarations: []*index.Declaration{d}}).
		Warning(`"GetById" matches 2 declarations; using method App.Services.UserService.GetById`).
		Build()
}

func TestGolden_FindHuman(t *testing.T) {
	got, err := FormatResponse(sampleFind(), output.FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.CompareGolden(t, "find.human.golden", []byte(got+"\n"))
}

func TestGolden_FindMarkdown(t *testing.T) {
	got, err := FormatResponse(sampleFind(), output.FormatMarkdown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	testutil.CompareGolden(t, "find.md.golden", []byte(got+"\n"))
}

func TestFormatResponse_JSON(t *testing.T) {
	result, err := FormatResponse(sampleFind(), output.FormatJSON)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !strings.Contains(result, `"qualifiedName": "App.Services.UserService.GetById"`) {
		t.Error("JSON output missing qualified name")
	}
	if !strings.Contains(result, `"kind": "method"`) {
		t.Error("JSON output should render the kind by name")
	}
	if !strings.Contains(result, `"schemaVersion": "1.0"`) {
		t.Error("JSON output missing schema version")
	}
}

func TestFormatResponse_YAML(t *testing.T) {
	result, err := FormatResponse(sampleFind(), output.FormatYAML)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, "qualifiedName: App.Services.UserService.GetById") {
		t.Errorf("YAML output missing qualified name:\n%s", result)
	}
	if strings.HasSuffix(result, "\n") {
		t.Error("YAML output should not end with a newline")
	}
}

func TestFormatResponse_UnsupportedFormat(t *testing.T) {
	_, err := FormatResponse(sampleFind(), "xml")
	if err == nil {
		t.Fatal("expected error for unsupported format")
	}
	if !strings.Contains(err.Error(), "unsupported format") {
		t.Errorf("error should mention unsupported format, got: %v", err)
	}
}

func TestFormatText_Error(t *testing.T) {
	err := errors.New(errors.IndexMissing, "no SCIP index at .scip/index.scip", nil)
	result, ferr := FormatResponse(envelope.Failure(err), output.FormatMarkdown)
	if ferr != nil {
		t.Fatalf("unexpected error: %v", ferr)
	}

	if !strings.HasPrefix(result, "## Error: INDEX_MISSING") {
		t.Errorf("unexpected heading:\n%s", result)
	}
	if !strings.Contains(result, "### Suggested fixes") {
		t.Errorf("missing suggested fixes:\n%s", result)
	}
	if !strings.Contains(result, "`scip-dotnet index`") {
		t.Errorf("missing scip-dotnet fix:\n%s", result)
	}
}

func TestFormatText_RenamePreview(t *testing.T) {
	plan := &rename.Plan{
		ID: "plan-1",
		Subject: &index.Declaration{
			Name:          "Activate",
			QualifiedName: "App.Models.User.Activate",
			Kind:          index.KindMethod,
			Location:      analyzer.Location{Path: "Models/User.cs", Line: 14, Column: 21},
		},
		OldName: "Activate",
		NewName: "Start",
		Files: map[string]*rename.FileChange{
			"Services/UserService.cs": {Edits: []rename.Edit{{Line: 10, OldText: "user.Activate();", NewText: "user.Start();"}}},
			"Models/User.cs":          {Edits: []rename.Edit{{Line: 14, OldText: "public void Activate()", NewText: "public void Start()"}}},
		},
		TotalEditCount: 2,
	}
	resp := envelope.New().Data(&RenameResultCLI{Preview: true, Plan: plan, Diff: "--- a/Models/User.cs\n+++ b/Models/User.cs\n"}).
		SuggestCall("symnav rename", map[string]interface{}{"name": "Activate", "newName": "Start", "file": "Models/User.cs"}, "apply this plan").
		Build()

	result, err := FormatResponse(resp, output.FormatMarkdown)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	models := strings.Index(result, "### Models/User.cs")
	services := strings.Index(result, "### Services/UserService.cs")
	if models < 0 || services < 0 || models > services {
		t.Errorf("files should be listed in path order:\n%s", result)
	}
	if !strings.Contains(result, "```diff\n--- a/Models/User.cs") {
		t.Errorf("missing diff block:\n%s", result)
	}
	if !strings.Contains(result, "Preview only; nothing was written.") {
		t.Errorf("missing preview note:\n%s", result)
	}
	if !strings.Contains(result, "$ symnav rename Activate Start --file Models/User.cs") {
		t.Errorf("missing follow-up command:\n%s", result)
	}
}

func TestFormatText_UnknownDataFallsBackToJSON(t *testing.T) {
	resp := envelope.Operational(map[string]string{"key": "value"})
	result, err := FormatResponse(resp, output.FormatHuman)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result, `"key": "value"`) {
		t.Errorf("expected JSON fallback, got:\n%s", result)
	}
}

func TestSuggestedCommand(t *testing.T) {
	tests := []struct {
		call     envelope.SuggestedCall
		expected string
	}{
		{envelope.SuggestedCall{Tool: "symnav journal restore", Params: map[string]interface{}{"id": "abc"}}, "symnav journal restore abc"},
		{envelope.SuggestedCall{Tool: "symnav rename", Params: map[string]interface{}{"name": "A", "newName": "B", "kind": "method", "file": "x.cs"}}, "symnav rename A B --file x.cs --kind method"},
		{envelope.SuggestedCall{Tool: "symnav index"}, "symnav index"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			result := suggestedCommand(tt.call)
			if result != tt.expected {
				t.Errorf("suggestedCommand() = %q, want %q", result, tt.expected)
			}
		})
	}
}

func TestShortID(t *testing.T) {
	if got := shortID("0123456789abcdef"); got != "01234567" {
		t.Errorf("shortID = %q", got)
	}
	if got := shortID("abc"); got != "abc" {
		t.Errorf("shortID = %q", got)
	}
}
