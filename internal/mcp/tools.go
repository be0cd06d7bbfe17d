package mcp

import (
	"context"
	"fmt"

	"symnav/internal/envelope"
	"symnav/internal/errors"
	"symnav/internal/locator"
	"symnav/internal/paths"
	"symnav/internal/query"
	"symnav/internal/xref"

	"github.com/mark3labs/mcp-go/mcp"
)

// queryOptions are the locator filters shared by every symbol tool.
func queryOptions(opts ...mcp.ToolOption) []mcp.ToolOption {
	return append([]mcp.ToolOption{
		mcp.WithString("name", mcp.Required(), mcp.Description("Simple name of the symbol, case-insensitive")),
		mcp.WithString("kind", mcp.Description("Declaration kind: type, class, interface, method, constructor, property, field, event, namespace")),
		mcp.WithString("namespace", mcp.Description("Dotted namespace the declaration must live in, case-insensitive")),
		mcp.WithString("file", mcp.Description("Path suffix, absolute path or file URI of the declaring file")),
	}, opts...)
}

// GetToolDefinitions returns all tool definitions
func GetToolDefinitions() []mcp.Tool {
	return []mcp.Tool{
		mcp.NewTool("findSymbol", queryOptions(
			mcp.WithDescription("Find every declaration matching a name and optional kind, namespace and file filters. Returns did-you-mean suggestions when nothing matches."),
		)...),
		mcp.NewTool("findReferences", queryOptions(
			mcp.WithDescription("List every reference site of a symbol with its line text. When several declarations match, the first in index order is used and a warning names it."),
		)...),
		mcp.NewTool("findCallers", queryOptions(
			mcp.WithDescription("List the methods that call a method."),
		)...),
		mcp.NewTool("findCallees", queryOptions(
			mcp.WithDescription("List the methods a method calls, resolved from its body."),
		)...),
		mcp.NewTool("getCallGraph", queryOptions(
			mcp.WithDescription("Build a bounded call graph around a method."),
			mcp.WithString("direction", mcp.Enum("callers", "callees", "both"), mcp.DefaultString("both"), mcp.Description("Edges to follow")),
			mcp.WithNumber("depth", mcp.Description("Maximum depth, capped by query.maxCallGraphDepth")),
		)...),
		mcp.NewTool("getHierarchy", queryOptions(
			mcp.WithDescription("Get the ancestors, direct descendants, interfaces and implementations of a type. Cyclic base chains are reported as warnings."),
		)...),
		mcp.NewTool("findImplementations", queryOptions(
			mcp.WithDescription("List the types implementing an interface or deriving from a class, or the members implementing a member."),
		)...),
		mcp.NewTool("previewRename", queryOptions(
			mcp.WithDescription("Plan a rename without touching the disk. Returns every edit per file and, for types, a suggested new file name."),
			mcp.WithString("newName", mcp.Required(), mcp.Description("New identifier")),
			mcp.WithBoolean("renameFile", mcp.DefaultBool(false), mcp.Description("Suggest renaming the file declaring a renamed type")),
			mcp.WithBoolean("diff", mcp.DefaultBool(false), mcp.Description("Include a unified diff of the plan")),
		)...),
		mcp.NewTool("renameSymbol", queryOptions(
			mcp.WithDescription("Rename a symbol and commit the edits to disk. The commit is journaled and can be restored with restoreJournal. The plan is identical to what previewRename returns."),
			mcp.WithString("newName", mcp.Required(), mcp.Description("New identifier")),
			mcp.WithBoolean("renameFile", mcp.DefaultBool(false), mcp.Description("Also rename the file declaring a renamed type")),
			mcp.WithBoolean("diff", mcp.DefaultBool(false), mcp.Description("Include a unified diff of the committed plan")),
		)...),
		mcp.NewTool("getDiagnostics",
			mcp.WithDescription("List analyzer diagnostics, optionally for one file and at or above a severity."),
			mcp.WithString("file", mcp.Description("Path suffix, absolute path or file URI")),
			mcp.WithString("severity", mcp.Enum("error", "warning", "info", "hint"), mcp.Description("Minimum severity")),
		),
		mcp.NewTool("getStatus",
			mcp.WithDescription("Report index statistics for the loaded workspace and whether the recorded index metadata is fresh."),
		),
		mcp.NewTool("listJournal",
			mcp.WithDescription("List recent rename commits, newest first."),
			mcp.WithNumber("limit", mcp.DefaultNumber(20), mcp.Description("Maximum number of commits")),
		),
		mcp.NewTool("showJournal",
			mcp.WithDescription("Show one rename commit with the state of every file it touched."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Commit ID or unique prefix")),
		),
		mcp.NewTool("restoreJournal",
			mcp.WithDescription("Restore the files of a rename commit to their pre-commit content and names. Refuses when a file changed after the commit unless force is set."),
			mcp.WithString("id", mcp.Required(), mcp.Description("Commit ID or unique prefix")),
			mcp.WithBoolean("force", mcp.DefaultBool(false), mcp.Description("Overwrite later changes")),
		),
		mcp.NewTool("reload",
			mcp.WithDescription("Reload the workspace from disk after the SCIP index was regenerated."),
		),
	}
}

// RegisterTools registers all tool handlers
func (s *MCPServer) RegisterTools() {
	s.tools["findSymbol"] = s.toolFindSymbol
	s.tools["findReferences"] = s.toolFindReferences
	s.tools["findCallers"] = s.toolFindCallers
	s.tools["findCallees"] = s.toolFindCallees
	s.tools["getCallGraph"] = s.toolGetCallGraph
	s.tools["getHierarchy"] = s.toolGetHierarchy
	s.tools["findImplementations"] = s.toolFindImplementations
	s.tools["previewRename"] = s.toolPreviewRename
	s.tools["renameSymbol"] = s.toolRenameSymbol
	s.tools["getDiagnostics"] = s.toolGetDiagnostics
	s.tools["getStatus"] = s.toolGetStatus
	s.tools["listJournal"] = s.toolListJournal
	s.tools["showJournal"] = s.toolShowJournal
	s.tools["restoreJournal"] = s.toolRestoreJournal
	s.tools["reload"] = s.toolReload
}

func (s *MCPServer) parseQuery(req mcp.CallToolRequest) (locator.Query, error) {
	q := locator.Query{
		Name:      mcp.ParseString(req, "name", ""),
		Kind:      mcp.ParseString(req, "kind", ""),
		Namespace: mcp.ParseString(req, "namespace", ""),
	}
	if q.Name == "" {
		return q, errors.New(errors.InvalidArgument, "missing or invalid 'name' parameter", nil)
	}
	file, err := paths.WorkspaceFile(mcp.ParseString(req, "file", ""), s.engine.Root())
	if err != nil {
		return q, errors.New(errors.InvalidArgument, "invalid 'file' parameter", err)
	}
	q.File = file
	return q, nil
}

// referenceSite adds the file URI to a reference site.
type referenceSite struct {
	xref.ReferenceSite
	URI string `json:"uri"`
}

func (s *MCPServer) toolFindSymbol(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	q, err := s.parseQuery(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.engine.Find(ctx, q)
	if err != nil {
		return nil, err
	}
	b := envelope.New().Data(resp.Declarations).FromMeta(resp.Meta)
	if len(resp.Declarations) > 1 {
		b.SuggestCall("findSymbol", map[string]interface{}{"name": q.Name, "file": resp.Declarations[0].Location.Path}, "narrow to one declaration")
	}
	return b.Build(), nil
}

func (s *MCPServer) toolFindReferences(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	q, err := s.parseQuery(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.engine.References(ctx, q)
	if err != nil {
		return nil, err
	}
	sites := make([]referenceSite, 0, len(resp.References))
	for _, r := range resp.References {
		sites = append(sites, referenceSite{ReferenceSite: r, URI: paths.FileURI(s.engine.Root(), r.Path)})
	}
	data := map[string]interface{}{
		"subject":    resp.Subject,
		"references": sites,
	}
	return envelope.New().Data(data).FromMeta(resp.Meta).Build(), nil
}

func (s *MCPServer) toolFindCallers(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	return s.calls(ctx, req, s.engine.Callers)
}

func (s *MCPServer) toolFindCallees(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	return s.calls(ctx, req, s.engine.Callees)
}

func (s *MCPServer) calls(ctx context.Context, req mcp.CallToolRequest, find func(context.Context, locator.Query) (*query.CallsResponse, error)) (*envelope.Response, error) {
	q, err := s.parseQuery(req)
	if err != nil {
		return nil, err
	}
	resp, err := find(ctx, q)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"subject": resp.Subject,
		"calls":   resp.Calls,
	}
	return envelope.New().Data(data).FromMeta(resp.Meta).Build(), nil
}

func (s *MCPServer) toolGetCallGraph(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	q, err := s.parseQuery(req)
	if err != nil {
		return nil, err
	}
	dir, err := xref.ParseDirection(mcp.ParseString(req, "direction", "both"))
	if err != nil {
		return nil, err
	}
	resp, err := s.engine.CallGraph(ctx, q, query.CallGraphOptions{
		Direction: dir,
		Depth:     mcp.ParseInt(req, "depth", 0),
	})
	if err != nil {
		return nil, err
	}
	g := resp.Graph
	return envelope.New().
		Data(g).
		FromMeta(resp.Meta).
		WithTruncation(g.Truncated, len(g.Nodes), 0, "max-nodes").
		Build(), nil
}

func (s *MCPServer) toolGetHierarchy(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	q, err := s.parseQuery(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.engine.Hierarchy(ctx, q)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(resp.View).FromMeta(resp.Meta).Build(), nil
}

func (s *MCPServer) toolFindImplementations(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	q, err := s.parseQuery(req)
	if err != nil {
		return nil, err
	}
	resp, err := s.engine.Implementations(ctx, q)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"subject":         resp.Subject,
		"implementations": resp.Implementations,
	}
	return envelope.New().Data(data).FromMeta(resp.Meta).Build(), nil
}

func (s *MCPServer) toolPreviewRename(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	return s.rename(ctx, req, true)
}

func (s *MCPServer) toolRenameSymbol(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	return s.rename(ctx, req, false)
}

func (s *MCPServer) rename(ctx context.Context, req mcp.CallToolRequest, preview bool) (*envelope.Response, error) {
	q, err := s.parseQuery(req)
	if err != nil {
		return nil, err
	}
	newName := mcp.ParseString(req, "newName", "")
	if newName == "" {
		return nil, errors.New(errors.InvalidArgument, "missing or invalid 'newName' parameter", nil)
	}
	resp, err := s.engine.Rename(ctx, q, query.RenameOptions{
		NewName:    newName,
		Preview:    preview,
		RenameFile: mcp.ParseBoolean(req, "renameFile", false),
		Diff:       mcp.ParseBoolean(req, "diff", false),
	})
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{"plan": resp.Plan}
	if resp.JournalID != "" {
		data["journalId"] = resp.JournalID
	}
	if resp.Diff != "" {
		data["diff"] = resp.Diff
	}
	b := envelope.New().Data(data).FromMeta(resp.Meta)
	if preview {
		b.SuggestCall("renameSymbol", map[string]interface{}{"name": q.Name, "file": resp.Plan.Subject.Location.Path, "newName": newName}, "apply this plan")
	} else if resp.JournalID != "" {
		b.SuggestCall("restoreJournal", map[string]interface{}{"id": resp.JournalID}, "undo this rename")
	}
	return b.Build(), nil
}

func (s *MCPServer) toolGetDiagnostics(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	file, err := paths.WorkspaceFile(mcp.ParseString(req, "file", ""), s.engine.Root())
	if err != nil {
		return nil, errors.New(errors.InvalidArgument, "invalid 'file' parameter", err)
	}
	resp, err := s.engine.Diagnostics(ctx, query.DiagnosticsOptions{
		File:     file,
		Severity: mcp.ParseString(req, "severity", ""),
	})
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(resp.Diagnostics).FromMeta(resp.Meta).Build(), nil
}

func (s *MCPServer) toolGetStatus(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	resp, err := s.engine.Status(ctx)
	if err != nil {
		return nil, err
	}
	data := map[string]interface{}{
		"version":   s.version,
		"root":      resp.Root,
		"indexPath": resp.IndexPath,
		"loadedAt":  resp.LoadedAt,
		"buildTime": resp.BuildTime,
		"stats":     resp.Stats,
	}
	return envelope.New().Data(data).FromMeta(resp.Meta).WithFreshness(resp.Freshness).Build(), nil
}

func (s *MCPServer) toolListJournal(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	limit := mcp.ParseInt(req, "limit", 20)
	if limit <= 0 {
		return nil, errors.Newf(errors.InvalidArgument, "limit must be positive, got %d", limit)
	}
	resp, err := s.engine.JournalList(ctx, limit)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(resp.Commits).FromMeta(resp.Meta).Build(), nil
}

func (s *MCPServer) toolShowJournal(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	id := mcp.ParseString(req, "id", "")
	if id == "" {
		return nil, errors.New(errors.InvalidArgument, "missing or invalid 'id' parameter", nil)
	}
	resp, err := s.engine.JournalShow(ctx, id)
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(resp.Commit).FromMeta(resp.Meta).Build(), nil
}

func (s *MCPServer) toolRestoreJournal(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	id := mcp.ParseString(req, "id", "")
	if id == "" {
		return nil, errors.New(errors.InvalidArgument, "missing or invalid 'id' parameter", nil)
	}
	resp, err := s.engine.JournalRestore(ctx, id, mcp.ParseBoolean(req, "force", false))
	if err != nil {
		return nil, err
	}
	return envelope.New().Data(resp.Commit).FromMeta(resp.Meta).Build(), nil
}

func (s *MCPServer) toolReload(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error) {
	changed, err := s.engine.Reload(ctx)
	if err != nil {
		return nil, err
	}
	snap := s.engine.Current()
	msg := "workspace unchanged"
	if changed {
		msg = fmt.Sprintf("workspace reloaded with %d declarations", snap.Index.Len())
	}
	return envelope.Operational(map[string]interface{}{
		"changed":      changed,
		"workspaceId":  snap.Workspace.ID(),
		"declarations": snap.Index.Len(),
		"message":      msg,
	}), nil
}
