package main

import (
	"symnav/internal/envelope"
	"symnav/internal/errors"
	"symnav/internal/storage"

	"github.com/spf13/cobra"
)

var (
	journalLimit int
	restoreForce bool
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect and restore journaled rename commits",
	Long: `Every committed rename is recorded in .symnav/journal.db together with
the pre-commit content of each file it touched.`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent rename commits, newest first",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one rename commit",
	Long: `Show one rename commit with the state of every file it touched. The ID
may be any unique prefix.`,
	Args: cobra.ExactArgs(1),
	RunE: runJournalShow,
}

var journalRestoreCmd = &cobra.Command{
	Use:   "restore <id>",
	Short: "Restore the files of a rename commit",
	Long: `Restore every file a rename commit touched to its pre-commit content and
name, including the SCIP index. Files changed after the commit are not
overwritten unless --force is set.

Examples:
  symnav journal restore 3f2a9c1e
  symnav journal restore 3f2a9c1e --force`,
	Args: cobra.ExactArgs(1),
	RunE: runJournalRestore,
}

func init() {
	journalListCmd.Flags().IntVar(&journalLimit, "limit", 20, "Maximum number of commits")
	journalRestoreCmd.Flags().BoolVar(&restoreForce, "force", false, "Overwrite files changed after the commit")
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalShowCmd)
	journalCmd.AddCommand(journalRestoreCmd)
	rootCmd.AddCommand(journalCmd)
}

// JournalListCLI lists journaled commits.
type JournalListCLI struct {
	Commits []storage.CommitRecord `json:"commits"`
}

// JournalEntryCLI is one journaled commit and what was done with it.
type JournalEntryCLI struct {
	Action string                `json:"action"`
	Commit *storage.CommitRecord `json:"commit"`
}

func runJournalList(cmd *cobra.Command, args []string) error {
	if journalLimit <= 0 {
		return errors.Newf(errors.InvalidArgument, "--limit must be positive, got %d", journalLimit)
	}
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := s.engine.JournalList(ctx, journalLimit)
	if err != nil {
		return err
	}
	data := &JournalListCLI{Commits: resp.Commits}
	return writeResponse(cmd, envelope.New().Data(data).FromMeta(resp.Meta).Build())
}

func runJournalShow(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := s.engine.JournalShow(ctx, args[0])
	if err != nil {
		return err
	}
	data := &JournalEntryCLI{Action: "show", Commit: resp.Commit}
	return writeResponse(cmd, envelope.New().Data(data).FromMeta(resp.Meta).Build())
}

func runJournalRestore(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	resp, err := s.engine.JournalRestore(ctx, args[0], restoreForce)
	if err != nil {
		return err
	}
	data := &JournalEntryCLI{Action: "restore", Commit: resp.Commit}
	return writeResponse(cmd, envelope.New().Data(data).FromMeta(resp.Meta).Build())
}
