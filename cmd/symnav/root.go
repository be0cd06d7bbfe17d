package main

import (
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"

	"symnav/internal/envelope"
	"symnav/internal/errors"
	"symnav/internal/output"
	"symnav/internal/version"

	"github.com/spf13/cobra"
)

var (
	// workspaceFlag is the workspace root; defaults to the working directory
	workspaceFlag string
	formatFlag    string
	verboseFlag   int
	quietFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "symnav",
	Short: "symnav - symbol navigation and rename for indexed workspaces",
	Long: `symnav answers compiler-accurate navigation questions over a workspace
indexed with SCIP: where a symbol is declared, who references or calls it,
how a type sits in its hierarchy. It also renames a symbol across every file
that uses it, with a preview, a journal and restore.

The semantic model is read from .scip/index.scip (see analyzer.indexPath).`,
	Version:       version.Info(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("symnav version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVarP(&workspaceFlag, "workspace", "w", "", "Workspace root (default: current directory)")
	rootCmd.PersistentFlags().StringVar(&formatFlag, "format", "human", "Output format (json, yaml, markdown, human)")
	rootCmd.PersistentFlags().CountVarP(&verboseFlag, "verbose", "v", "Log more (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Log errors only")
}

// logLevelOverride resolves -v and --quiet. nil leaves the level to the config.
func logLevelOverride() *slog.Level {
	var level slog.Level
	switch {
	case quietFlag:
		level = slog.LevelError
	case verboseFlag >= 2:
		level = slog.LevelDebug
	case verboseFlag == 1:
		level = slog.LevelInfo
	default:
		return nil
	}
	return &level
}

// execute runs the command line and returns the process exit code.
func execute(args []string, stdout, stderr io.Writer) int {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)

	err := rootCmd.Execute()
	if err == nil {
		return 0
	}
	reportError(err, stdout, stderr)
	return errors.ExitCode(err)
}

// reportError prints err as an error envelope for machine formats and as
// plain text otherwise.
func reportError(err error, stdout, stderr io.Writer) {
	format, ferr := output.ParseFormat(formatFlag)
	if ferr == nil && (format == output.FormatJSON || format == output.FormatYAML) {
		if s, encErr := FormatResponse(envelope.Failure(err), format); encErr == nil {
			fmt.Fprintln(stdout, s)
			return
		}
	}

	fmt.Fprintf(stderr, "Error: %s\n", err.Error())
	var navErr *errors.NavError
	if stderrors.As(err, &navErr) {
		for _, fix := range navErr.SuggestedFixes {
			if fix.Command != "" {
				fmt.Fprintf(stderr, "  try: %s\n", fix.Command)
			} else if fix.Description != "" {
				fmt.Fprintf(stderr, "  hint: %s\n", fix.Description)
			}
		}
	}
}
