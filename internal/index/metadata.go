package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// MetadataVersion is the current version of the metadata format.
	MetadataVersion = 1

	// MetadataFile is the filename for index metadata.
	MetadataFile = "index-meta.json"
)

// IndexMeta records the last declaration index build of a workspace.
type IndexMeta struct {
	Version          int            `json:"version"`
	CreatedAt        time.Time      `json:"createdAt"`
	WorkspaceID      string         `json:"workspaceId"`
	IndexPath        string         `json:"indexPath"`
	Indexer          string         `json:"indexer,omitempty"`
	DocumentCount    int            `json:"documentCount"`
	DeclarationCount int            `json:"declarationCount"`
	ByKind           map[string]int `json:"byKind,omitempty"`
	Duration         string         `json:"duration"`
}

// FreshnessResult describes whether recorded metadata matches a workspace.
type FreshnessResult struct {
	Fresh              bool   `json:"fresh"`
	Reason             string `json:"reason,omitempty"`
	RecordedID         string `json:"recordedId,omitempty"`
	CurrentWorkspaceID string `json:"currentWorkspaceId"`
	Age                string `json:"age,omitempty"`
}

// NewMeta captures the stats of a freshly built index.
func NewMeta(idx *Index, indexPath, indexer string, took time.Duration) *IndexMeta {
	s := idx.Stats()
	return &IndexMeta{
		CreatedAt:        time.Now().UTC().Truncate(time.Second),
		WorkspaceID:      s.WorkspaceID,
		IndexPath:        indexPath,
		Indexer:          indexer,
		DocumentCount:    s.Documents,
		DeclarationCount: s.Declarations,
		ByKind:           s.ByKind,
		Duration:         took.Round(time.Millisecond).String(),
	}
}

// LoadMeta loads index metadata from the state directory.
// Returns nil without error if no metadata file exists.
func LoadMeta(stateDir string) (*IndexMeta, error) {
	path := filepath.Join(stateDir, MetadataFile)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("reading index metadata: %w", err)
	}

	var meta IndexMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, fmt.Errorf("parsing index metadata: %w", err)
	}

	// Version mismatch - treat as no metadata
	if meta.Version != MetadataVersion {
		return nil, nil
	}

	return &meta, nil
}

// Save writes index metadata to the state directory.
func (m *IndexMeta) Save(stateDir string) error {
	if err := os.MkdirAll(stateDir, 0755); err != nil {
		return fmt.Errorf("creating state directory: %w", err)
	}

	m.Version = MetadataVersion

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling index metadata: %w", err)
	}

	path := filepath.Join(stateDir, MetadataFile)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing index metadata: %w", err)
	}

	return nil
}

// CheckFreshness compares the recorded workspace fingerprint with the
// current one. Any content change in the indexed sources changes the ID.
func (m *IndexMeta) CheckFreshness(currentID string) FreshnessResult {
	if m == nil {
		return FreshnessResult{
			Fresh:              false,
			Reason:             "no index metadata found",
			CurrentWorkspaceID: currentID,
		}
	}

	result := FreshnessResult{
		RecordedID:         m.WorkspaceID,
		CurrentWorkspaceID: currentID,
		Age:                humanDuration(time.Since(m.CreatedAt)),
	}
	if m.WorkspaceID == currentID {
		result.Fresh = true
		return result
	}
	result.Reason = fmt.Sprintf("workspace changed since the index was built %s ago", result.Age)
	if result.Age == "just now" {
		result.Reason = "workspace changed since the index was built just now"
	}
	return result
}

// humanDuration formats a duration in human-readable form.
func humanDuration(d time.Duration) string {
	if d < time.Minute {
		return "just now"
	}
	if d < time.Hour {
		mins := int(d.Minutes())
		if mins == 1 {
			return "1 minute"
		}
		return fmt.Sprintf("%d minutes", mins)
	}
	if d < 24*time.Hour {
		hours := int(d.Hours())
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	days := int(d.Hours() / 24)
	if days == 1 {
		return "1 day"
	}
	return fmt.Sprintf("%d days", days)
}
