package main

import (
	"time"

	"symnav/internal/envelope"
	"symnav/internal/index"

	"github.com/spf13/cobra"
)

var indexCheck bool

var indexCmd = &cobra.Command{
	Use:   "index",
	Short: "Show index statistics and record index metadata",
	Long: `Load the workspace, print document and declaration counts per kind,
the workspace fingerprint and any index warnings, and record the metadata in
.symnav/index-meta.json so later runs can tell whether the index is stale.

With --check nothing is recorded; the command only reports freshness.

Examples:
  symnav index
  symnav index --check --format json`,
	Args: cobra.NoArgs,
	RunE: runIndex,
}

func init() {
	indexCmd.Flags().BoolVar(&indexCheck, "check", false, "Only report freshness; do not record metadata")
	rootCmd.AddCommand(indexCmd)
}

// IndexResultCLI summarizes the loaded index.
type IndexResultCLI struct {
	Root      string                `json:"root"`
	IndexPath string                `json:"indexPath"`
	LoadedAt  time.Time             `json:"loadedAt"`
	BuildTime string                `json:"buildTime"`
	Stats     index.Stats           `json:"stats"`
	Freshness index.FreshnessResult `json:"freshness"`
	Recorded  *index.IndexMeta      `json:"recorded,omitempty"`
}

func runIndex(cmd *cobra.Command, args []string) error {
	ctx, cancel := newContext()
	defer cancel()

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var recorded *index.IndexMeta
	if !indexCheck {
		recorded, err = s.engine.SaveMeta()
		if err != nil {
			return err
		}
	}
	resp, err := s.engine.Status(ctx)
	if err != nil {
		return err
	}

	data := &IndexResultCLI{
		Root:      resp.Root,
		IndexPath: resp.IndexPath,
		LoadedAt:  resp.LoadedAt,
		BuildTime: resp.BuildTime,
		Stats:     resp.Stats,
		Freshness: resp.Freshness,
		Recorded:  recorded,
	}
	return writeResponse(cmd, envelope.New().Data(data).FromMeta(resp.Meta).WithFreshness(resp.Freshness).Build())
}
