package main

import (
	"symnav/internal/envelope"
	"symnav/internal/index"
	"symnav/internal/locator"

	"github.com/spf13/cobra"
)

var findFlags queryFlags

var findCmd = &cobra.Command{
	Use:   "find <name>",
	Short: "Find the declarations of a symbol",
	Long: `Find every declaration whose simple name matches, case-insensitively.
When nothing matches, similar names are suggested.

Examples:
  symnav find UserService
  symnav find GetById --kind method --file Services/UserService.cs
  symnav find User --namespace App.Models --format json`,
	Args: cobra.ExactArgs(1),
	RunE: runFind,
}

func init() {
	findFlags.register(findCmd)
	rootCmd.AddCommand(findCmd)
}

// FindResultCLI lists the matching declarations.
type FindResultCLI struct {
	Query        locator.Query        `json:"query"`
	Declarations []*index.Declaration `json:"declarations"`
}

func runFind(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := findFlags.query(args[0], s.root)
	if err != nil {
		return err
	}
	resp, err := s.engine.Find(ctx, q)
	if err != nil {
		return err
	}

	data := &FindResultCLI{Query: resp.Query, Declarations: resp.Declarations}
	return writeResponse(cmd, envelope.New().Data(data).FromMeta(resp.Meta).Build())
}
