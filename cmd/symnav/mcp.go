package main

import (
	"symnav/internal/mcp"
	"symnav/internal/version"
	"symnav/internal/watcher"

	"github.com/spf13/cobra"
)

var (
	mcpPreset   string
	mcpWatch    bool
	mcpDebounce int
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol (MCP) server.

The server exposes symnav's navigation and rename operations as MCP tools and
communicates over stdio using JSON-RPC 2.0. Logs go to stderr.

Presets:
  readonly  navigation, diagnostics, status, rename previews and journal reads
  full      readonly plus renameSymbol, restoreJournal and reload (default)

Unless --watch=false is given, the workspace is reloaded whenever the SCIP
index file changes.

This command is typically invoked by an MCP client rather than directly.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpPreset, "preset", mcp.DefaultPreset, "Tool preset (readonly, full)")
	mcpCmd.Flags().BoolVar(&mcpWatch, "watch", true, "Reload when the SCIP index changes")
	mcpCmd.Flags().IntVar(&mcpDebounce, "debounce", watcher.DefaultConfig().DebounceMs, "Watch debounce in milliseconds")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	s.logger.Info("Starting MCP server", "version", version.Version, "preset", mcpPreset)

	if mcpWatch {
		cfg := watcher.DefaultConfig()
		cfg.DebounceMs = mcpDebounce
		if err := s.engine.Watch(cfg, nil); err != nil {
			return err
		}
	}

	server, err := mcp.NewMCPServer(version.Version, s.engine, mcpPreset, s.logger)
	if err != nil {
		return err
	}
	if err := server.ServeStdio(); err != nil {
		s.logger.Error("MCP server error", "error", err.Error())
		return err
	}
	return nil
}
