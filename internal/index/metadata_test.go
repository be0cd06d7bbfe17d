package index

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoadMeta_NoFile(t *testing.T) {
	tmpDir := t.TempDir()

	meta, err := LoadMeta(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta != nil {
		t.Fatal("expected nil meta when file doesn't exist")
	}
}

func TestSaveAndLoadMeta(t *testing.T) {
	tmpDir := t.TempDir()

	original := &IndexMeta{
		CreatedAt:        time.Now().Truncate(time.Second),
		WorkspaceID:      "9f86d081884c7d65",
		IndexPath:        ".scip/index.scip",
		Indexer:          "scip-dotnet",
		DocumentCount:    5,
		DeclarationCount: 19,
		ByKind:           map[string]int{"type": 5},
		Duration:         "12ms",
	}

	if err := original.Save(tmpDir); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	path := filepath.Join(tmpDir, MetadataFile)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Fatal("metadata file was not created")
	}

	loaded, err := LoadMeta(tmpDir)
	if err != nil {
		t.Fatalf("LoadMeta failed: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected non-nil metadata")
	}

	if loaded.Version != MetadataVersion {
		t.Errorf("Version: got %d, want %d", loaded.Version, MetadataVersion)
	}
	if !loaded.CreatedAt.Equal(original.CreatedAt) {
		t.Errorf("CreatedAt: got %v, want %v", loaded.CreatedAt, original.CreatedAt)
	}
	if loaded.WorkspaceID != original.WorkspaceID {
		t.Errorf("WorkspaceID: got %s, want %s", loaded.WorkspaceID, original.WorkspaceID)
	}
	if loaded.DeclarationCount != original.DeclarationCount {
		t.Errorf("DeclarationCount: got %d, want %d", loaded.DeclarationCount, original.DeclarationCount)
	}
	if loaded.ByKind["type"] != 5 {
		t.Errorf("ByKind[type]: got %d, want 5", loaded.ByKind["type"])
	}
	if loaded.Indexer != original.Indexer {
		t.Errorf("Indexer: got %s, want %s", loaded.Indexer, original.Indexer)
	}
}

func TestLoadMeta_VersionMismatch(t *testing.T) {
	tmpDir := t.TempDir()

	content := `{"version": 999, "createdAt": "2024-01-01T00:00:00Z"}`
	path := filepath.Join(tmpDir, MetadataFile)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}

	meta, err := LoadMeta(tmpDir)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta != nil {
		t.Fatal("expected nil meta for version mismatch")
	}
}

func TestLoadMeta_Corrupt(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, MetadataFile), []byte("{"), 0644); err != nil {
		t.Fatalf("failed to write test file: %v", err)
	}
	if _, err := LoadMeta(tmpDir); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestCheckFreshness_NilMeta(t *testing.T) {
	var meta *IndexMeta
	result := meta.CheckFreshness("abc")

	if result.Fresh {
		t.Error("nil meta should not be fresh")
	}
	if result.Reason == "" {
		t.Error("should have a reason")
	}
}

func TestCheckFreshness_WorkspaceID(t *testing.T) {
	meta := &IndexMeta{CreatedAt: time.Now().Add(-2 * time.Hour), WorkspaceID: "abc"}

	if result := meta.CheckFreshness("abc"); !result.Fresh {
		t.Errorf("matching workspace ID should be fresh, got reason %q", result.Reason)
	}

	result := meta.CheckFreshness("def")
	if result.Fresh {
		t.Fatal("changed workspace ID should be stale")
	}
	if !strings.Contains(result.Reason, "2 hours") {
		t.Errorf("reason should mention the age, got %q", result.Reason)
	}
	if result.RecordedID != "abc" || result.CurrentWorkspaceID != "def" {
		t.Errorf("IDs: got %q/%q", result.RecordedID, result.CurrentWorkspaceID)
	}
}

func TestHumanDuration(t *testing.T) {
	tests := []struct {
		duration time.Duration
		expected string
	}{
		{30 * time.Second, "just now"},
		{5 * time.Minute, "5 minutes"},
		{1 * time.Minute, "1 minute"},
		{2 * time.Hour, "2 hours"},
		{1 * time.Hour, "1 hour"},
		{48 * time.Hour, "2 days"},
		{24 * time.Hour, "1 day"},
	}

	for _, tc := range tests {
		t.Run(tc.expected, func(t *testing.T) {
			result := humanDuration(tc.duration)
			if result != tc.expected {
				t.Errorf("humanDuration(%v) = %q, want %q", tc.duration, result, tc.expected)
			}
		})
	}
}
