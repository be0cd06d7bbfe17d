package main

import (
	"symnav/internal/envelope"
	"symnav/internal/query"
	"symnav/internal/rename"

	"github.com/spf13/cobra"
)

var (
	renameFlags      queryFlags
	renamePreview    bool
	renameDiff       bool
	renameRenameFile bool
)

var renameCmd = &cobra.Command{
	Use:   "rename <name> <newName>",
	Short: "Rename a symbol across the workspace",
	Long: `Rename a symbol and every reference to it. With --preview the plan is
printed and nothing is written; a commit applies exactly the plan a preview
shows. Commits are journaled and can be undone with 'symnav journal restore'.

When a type is renamed and --rename-file is set, the file declaring it is
renamed too if its base name matches the old type name.

Examples:
  symnav rename Activate Start --preview --diff
  symnav rename User Account --kind class --rename-file
  symnav rename GetById FindById --file Services/UserService.cs`,
	Args: cobra.ExactArgs(2),
	RunE: runRename,
}

func init() {
	renameFlags.register(renameCmd)
	renameCmd.Flags().BoolVar(&renamePreview, "preview", false, "Print the plan without writing")
	renameCmd.Flags().BoolVar(&renameDiff, "diff", false, "Include a unified diff of the plan")
	renameCmd.Flags().BoolVar(&renameRenameFile, "rename-file", false, "Also rename the file declaring a renamed type")
	rootCmd.AddCommand(renameCmd)
}

// RenameResultCLI is a previewed or committed rename.
type RenameResultCLI struct {
	Preview   bool         `json:"preview"`
	Plan      *rename.Plan `json:"plan"`
	JournalID string       `json:"journalId,omitempty"`
	Diff      string       `json:"diff,omitempty"`
}

func runRename(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	q, err := renameFlags.query(args[0], s.root)
	if err != nil {
		return err
	}
	resp, err := s.engine.Rename(ctx, q, query.RenameOptions{
		NewName:    args[1],
		Preview:    renamePreview,
		RenameFile: renameRenameFile,
		Diff:       renameDiff,
	})
	if err != nil {
		return err
	}

	data := &RenameResultCLI{
		Preview:   renamePreview,
		Plan:      resp.Plan,
		JournalID: resp.JournalID,
		Diff:      resp.Diff,
	}
	b := envelope.New().Data(data).FromMeta(resp.Meta)
	if renamePreview {
		b.SuggestCall("symnav rename", map[string]interface{}{
			"name":    args[0],
			"newName": args[1],
			"file":    resp.Plan.Subject.Location.Path,
		}, "apply this plan")
	} else if resp.JournalID != "" {
		b.SuggestCall("symnav journal restore", map[string]interface{}{"id": resp.JournalID}, "undo this rename")
		s.logger.Info("Rename committed", "subject", resp.Plan.Subject.QualifiedName, "newName", args[1],
			"files", len(resp.Plan.Files), "journal", resp.JournalID)
	}
	return writeResponse(cmd, b.Build())
}
