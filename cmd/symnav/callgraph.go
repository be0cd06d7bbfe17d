package main

import (
	"symnav/internal/envelope"
	"symnav/internal/query"
	"symnav/internal/xref"

	"github.com/spf13/cobra"
)

var (
	callgraphFlags     queryFlags
	callgraphDirection string
	callgraphDepth     int
)

var callgraphCmd = &cobra.Command{
	Use:   "callgraph <name>",
	Short: "Show the call graph around a method",
	Long: `Show the callers and callees of a method up to a depth. The depth is
capped by query.maxCallGraphDepth and the node count by
query.maxCallGraphNodes.

Examples:
  symnav callgraph GetUser --direction callees
  symnav callgraph GetById --file Services/UserService.cs --depth 2`,
	Args: cobra.ExactArgs(1),
	RunE: runCallgraph,
}

func init() {
	callgraphFlags.register(callgraphCmd)
	callgraphCmd.Flags().StringVar(&callgraphDirection, "direction", "both", "Edges to follow (callers, callees, both)")
	callgraphCmd.Flags().IntVar(&callgraphDepth, "depth", 0, "Maximum depth (default: query.maxCallGraphDepth)")
	rootCmd.AddCommand(callgraphCmd)
}

func runCallgraph(cmd *cobra.Command, args []string) error {
	dir, err := xref.ParseDirection(callgraphDirection)
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := callgraphFlags.query(args[0], s.root)
	if err != nil {
		return err
	}
	resp, err := s.engine.CallGraph(ctx, q, query.CallGraphOptions{Direction: dir, Depth: callgraphDepth})
	if err != nil {
		return err
	}

	g := resp.Graph
	return writeResponse(cmd, envelope.New().
		Data(g).
		FromMeta(resp.Meta).
		WithTruncation(g.Truncated, len(g.Nodes), 0, "max-nodes").
		Build())
}
