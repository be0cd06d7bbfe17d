package main

import (
	"symnav/internal/analyzer"
	"symnav/internal/envelope"
	"symnav/internal/errors"
	"symnav/internal/paths"
	"symnav/internal/query"

	"github.com/spf13/cobra"
)

var (
	diagnosticsFile     string
	diagnosticsSeverity string
)

var diagnosticsCmd = &cobra.Command{
	Use:     "diagnostics",
	Aliases: []string{"diag"},
	Short:   "List analyzer diagnostics",
	Long: `List the diagnostics recorded in the index, optionally for one file and
at or above a minimum severity.

Examples:
  symnav diagnostics
  symnav diagnostics --file Services/AdminUserService.cs --severity warning`,
	Args: cobra.NoArgs,
	RunE: runDiagnostics,
}

func init() {
	diagnosticsCmd.Flags().StringVarP(&diagnosticsFile, "file", "f", "", "Path suffix, absolute path or file URI")
	diagnosticsCmd.Flags().StringVarP(&diagnosticsSeverity, "severity", "s", "", "Minimum severity (error, warning, info, hint)")
	rootCmd.AddCommand(diagnosticsCmd)
}

// DiagnosticsResultCLI lists diagnostics.
type DiagnosticsResultCLI struct {
	Diagnostics []analyzer.RawDiagnostic `json:"diagnostics"`
}

func runDiagnostics(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	file, err := paths.WorkspaceFile(diagnosticsFile, s.root)
	if err != nil {
		return errors.New(errors.InvalidArgument, "invalid --file", err)
	}
	resp, err := s.engine.Diagnostics(ctx, query.DiagnosticsOptions{File: file, Severity: diagnosticsSeverity})
	if err != nil {
		return err
	}
	data := &DiagnosticsResultCLI{Diagnostics: resp.Diagnostics}
	return writeResponse(cmd, envelope.New().Data(data).FromMeta(resp.Meta).Build())
}
