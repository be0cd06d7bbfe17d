package main

import (
	"symnav/internal/envelope"
	"symnav/internal/index"
	"symnav/internal/xref"

	"github.com/spf13/cobra"
)

var refsFlags queryFlags

var refsCmd = &cobra.Command{
	Use:   "refs <name>",
	Short: "Find all references to a symbol",
	Long: `Find every reference to a symbol across the workspace, with the text of
the referencing line. Implicit references such as constructor calls are
marked.

Examples:
  symnav refs Activate
  symnav refs GetById --file Services/UserService.cs`,
	Args: cobra.ExactArgs(1),
	RunE: runRefs,
}

func init() {
	refsFlags.register(refsCmd)
	rootCmd.AddCommand(refsCmd)
}

// ReferencesResultCLI contains reference results for CLI output
type ReferencesResultCLI struct {
	Subject    *index.Declaration   `json:"subject"`
	References []xref.ReferenceSite `json:"references"`
}

func runRefs(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := refsFlags.query(args[0], s.root)
	if err != nil {
		return err
	}
	resp, err := s.engine.References(ctx, q)
	if err != nil {
		return err
	}

	s.logger.Debug("References query completed", "subject", resp.Subject.QualifiedName, "refs", len(resp.References))
	data := &ReferencesResultCLI{Subject: resp.Subject, References: resp.References}
	return writeResponse(cmd, envelope.New().Data(data).FromMeta(resp.Meta).Build())
}
