// Package mcp exposes the symnav engine as Model Context Protocol tools
// over stdio.
package mcp

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"

	"symnav/internal/envelope"
	"symnav/internal/errors"
	"symnav/internal/query"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
)

// ToolHandler handles one tool call and returns the envelope to send back.
type ToolHandler func(ctx context.Context, req mcp.CallToolRequest) (*envelope.Response, error)

// MCPServer serves one engine. Tool calls run concurrently; renames are
// serialized by the engine's writer lock.
type MCPServer struct {
	engine  *query.Engine
	logger  *slog.Logger
	version string
	preset  string
	server  *server.MCPServer
	tools   map[string]ToolHandler
}

// NewMCPServer creates a server exposing the tools of preset.
func NewMCPServer(version string, engine *query.Engine, preset string, logger *slog.Logger) (*MCPServer, error) {
	if preset == "" {
		preset = DefaultPreset
	}
	names, err := PresetTools(preset)
	if err != nil {
		return nil, err
	}
	s := &MCPServer{
		engine:  engine,
		logger:  logger,
		version: version,
		preset:  preset,
		server:  server.NewMCPServer("symnav", version, server.WithToolCapabilities(false)),
		tools:   make(map[string]ToolHandler),
	}
	s.RegisterTools()

	enabled := make(map[string]bool, len(names))
	for _, n := range names {
		enabled[n] = true
	}
	for _, def := range GetToolDefinitions() {
		if enabled[def.Name] {
			s.server.AddTool(def, s.call(def.Name))
		}
	}
	logger.Info("MCP server ready", "preset", preset, "tools", len(names), "workspace", engine.Root())
	return s, nil
}

// ServeStdio serves requests on stdin and stdout until stdin closes.
func (s *MCPServer) ServeStdio() error {
	return server.ServeStdio(s.server)
}

// EnabledTools returns the names of the tools this server exposes, sorted.
func (s *MCPServer) EnabledTools() []string {
	names, _ := PresetTools(s.preset)
	out := append([]string(nil), names...)
	sort.Strings(out)
	return out
}

// call adapts a ToolHandler to mcp-go. Failures are returned as tool errors
// carrying the error envelope, never as protocol errors.
func (s *MCPServer) call(name string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		s.logger.Debug("Tool call", "tool", name)
		handler, ok := s.tools[name]
		if !ok {
			return mcp.NewToolResultError("unknown tool " + name), nil
		}
		resp, err := handler(ctx, req)
		if err != nil {
			resp = envelope.Failure(err)
			switch errors.CodeOf(err) {
			case errors.SymbolNotFound, errors.AmbiguousSymbol, errors.InvalidArgument:
				s.logger.Debug("Tool call rejected", "tool", name, "error", err.Error())
			default:
				s.logger.Error("Tool call failed", "tool", name, "error", err.Error())
			}
		}
		data, merr := json.Marshal(resp)
		if merr != nil {
			s.logger.Error("Failed to encode tool result", "tool", name, "error", merr.Error())
			return mcp.NewToolResultError(merr.Error()), nil
		}
		if err != nil {
			return mcp.NewToolResultError(string(data)), nil
		}
		return mcp.NewToolResultText(string(data)), nil
	}
}
