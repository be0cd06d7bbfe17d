package storage

import (
	"database/sql"
	stderrors "errors"
	"os"
	"path/filepath"
	"testing"

	"symnav/internal/slogutil"
)

func setupTestDB(t *testing.T) (*DB, string) {
	t.Helper()
	stateDir := filepath.Join(t.TempDir(), ".symnav")

	db, err := Open(stateDir, slogutil.NewDiscardLogger())
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Errorf("Failed to close database: %v", err)
		}
	})
	return db, stateDir
}

func TestDatabaseInitialization(t *testing.T) {
	db, stateDir := setupTestDB(t)

	dbPath := filepath.Join(stateDir, DBFile)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		t.Fatalf("Database file was not created at %s", dbPath)
	}
	if db.Path() != dbPath {
		t.Errorf("Path() = %s, want %s", db.Path(), dbPath)
	}

	version, err := db.getSchemaVersion()
	if err != nil {
		t.Fatalf("Failed to get schema version: %v", err)
	}
	if version != currentSchemaVersion {
		t.Errorf("Expected schema version %d, got %d", currentSchemaVersion, version)
	}

	for _, table := range []string{"commits", "commit_files"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			t.Errorf("table %s missing: %v", table, err)
		}
	}
}

func TestDatabaseReopen(t *testing.T) {
	stateDir := t.TempDir()
	logger := slogutil.NewDiscardLogger()

	db, err := Open(stateDir, logger)
	if err != nil {
		t.Fatalf("first Open failed: %v", err)
	}
	if _, err := db.Exec(`INSERT INTO commits (id, plan_id, subject, old_name, new_name, workspace_id, state, created_at)
		VALUES ('c1', 'p1', 's', 'a', 'b', 'w', 'committed', '2026-01-01T00:00:00.000000000Z')`); err != nil {
		t.Fatalf("insert failed: %v", err)
	}
	if err := db.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}

	db, err = Open(stateDir, logger)
	if err != nil {
		t.Fatalf("second Open failed: %v", err)
	}
	defer db.Close()

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM commits`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 1 {
		t.Errorf("expected 1 commit after reopen, got %d", count)
	}
}

func TestWithTx_Rollback(t *testing.T) {
	db, _ := setupTestDB(t)

	err := db.WithTx(func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO commits (id, plan_id, subject, old_name, new_name, workspace_id, state, created_at)
			VALUES ('c1', 'p1', 's', 'a', 'b', 'w', 'pending', 'now')`); err != nil {
			return err
		}
		return errBoom
	})
	if err != errBoom {
		t.Fatalf("WithTx error = %v, want %v", err, errBoom)
	}

	var count int
	if err := db.QueryRow(`SELECT COUNT(*) FROM commits`).Scan(&count); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if count != 0 {
		t.Errorf("rolled back insert is visible: %d rows", count)
	}
}

var errBoom = stderrors.New("boom")
