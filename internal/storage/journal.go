package storage

import (
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"symnav/internal/errors"

	"github.com/klauspost/compress/zstd"
)

// CommitState is the outcome of a journaled commit.
type CommitState string

const (
	CommitPending   CommitState = "pending"
	CommitCommitted CommitState = "committed"
	CommitPartial   CommitState = "partial"
	CommitFailed    CommitState = "failed"
	CommitRestored  CommitState = "restored"
)

// FileStatus tracks one file through a commit.
type FileStatus string

const (
	FilePending  FileStatus = "pending"
	FileWritten  FileStatus = "written"
	FileRenamed  FileStatus = "renamed"
	FileFailed   FileStatus = "failed"
	FileRestored FileStatus = "restored"
)

// FileRecord is a touched file and its pre-commit content.
type FileRecord struct {
	Path string `json:"path"`
	// NewPath is set when the commit also renames the file.
	NewPath  string     `json:"newPath,omitempty"`
	Status   FileStatus `json:"status"`
	PreHash  string     `json:"preHash"`
	PostHash string     `json:"postHash,omitempty"`
	PreImage []byte     `json:"-"`
}

// CommitRecord is one journaled rename commit.
type CommitRecord struct {
	ID          string       `json:"id"`
	PlanID      string       `json:"planId"`
	Subject     string       `json:"subject"`
	OldName     string       `json:"oldName"`
	NewName     string       `json:"newName"`
	WorkspaceID string       `json:"workspaceId"`
	State       CommitState  `json:"state"`
	Error       string       `json:"error,omitempty"`
	CreatedAt   time.Time    `json:"createdAt"`
	FinishedAt  time.Time    `json:"finishedAt,omitempty"`
	Files       []FileRecord `json:"files"`
}

// Journal records rename commits with zstd-compressed pre-images so a
// partial commit can be reconciled and a finished one restored.
type Journal struct {
	db     *DB
	enc    *zstd.Encoder
	dec    *zstd.Decoder
	logger *slog.Logger
}

// OpenJournal opens the journal database in stateDir.
func OpenJournal(stateDir string, logger *slog.Logger) (*Journal, error) {
	db, err := Open(stateDir, logger)
	if err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("open commit journal in %s", stateDir), err)
	}
	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault), zstd.WithZeroFrames(true))
	if err != nil {
		db.Close()
		return nil, errors.New(errors.InternalError, "create zstd encoder", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, errors.New(errors.InternalError, "create zstd decoder", err)
	}
	return &Journal{db: db, enc: enc, dec: dec, logger: logger}, nil
}

// Close releases the database and codecs.
func (j *Journal) Close() error {
	j.enc.Close()
	j.dec.Close()
	return j.db.Close()
}

// Begin records a pending commit and the pre-images of its files.
func (j *Journal) Begin(rec *CommitRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	rec.State = CommitPending
	err := j.db.WithTx(func(tx *sql.Tx) error {
		_, err := tx.Exec(`
			INSERT INTO commits (id, plan_id, subject, old_name, new_name, workspace_id, state, created_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.ID, rec.PlanID, rec.Subject, rec.OldName, rec.NewName, rec.WorkspaceID, string(rec.State), formatTime(rec.CreatedAt))
		if err != nil {
			return err
		}
		for i := range rec.Files {
			f := &rec.Files[i]
			f.Status = FilePending
			_, err := tx.Exec(`
				INSERT INTO commit_files (commit_id, seq, path, new_path, status, pre_hash, pre_image)
				VALUES (?, ?, ?, ?, ?, ?, ?)
			`, rec.ID, i, f.Path, f.NewPath, string(f.Status), f.PreHash, j.enc.EncodeAll(f.PreImage, nil))
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return errors.New(errors.InternalError, fmt.Sprintf("journal commit %s", rec.ID), err)
	}
	return nil
}

// MarkFile updates the status of one file of a commit.
func (j *Journal) MarkFile(commitID, path string, status FileStatus, postHash string) error {
	_, err := j.db.Exec(`
		UPDATE commit_files SET status = ?, post_hash = CASE WHEN ? = '' THEN post_hash ELSE ? END
		WHERE commit_id = ? AND path = ?
	`, string(status), postHash, postHash, commitID, path)
	if err != nil {
		return errors.New(errors.InternalError, fmt.Sprintf("journal file %s of commit %s", path, commitID), err)
	}
	return nil
}

// Finish records the final state of a commit.
func (j *Journal) Finish(commitID string, state CommitState, errMsg string) error {
	_, err := j.db.Exec(`
		UPDATE commits SET state = ?, error = ?, finished_at = ? WHERE id = ?
	`, string(state), errMsg, formatTime(time.Now().UTC()), commitID)
	if err != nil {
		return errors.New(errors.InternalError, fmt.Sprintf("finish journal entry %s", commitID), err)
	}
	return nil
}

// List returns up to limit commits, newest first, without pre-images.
func (j *Journal) List(limit int) ([]CommitRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := j.db.Query(`
		SELECT id, plan_id, subject, old_name, new_name, workspace_id, state, error, created_at, finished_at
		FROM commits ORDER BY created_at DESC, id DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, errors.New(errors.InternalError, "list journal entries", err)
	}
	defer rows.Close()

	var out []CommitRecord
	for rows.Next() {
		rec, err := scanCommit(rows)
		if err != nil {
			return nil, errors.New(errors.InternalError, "read journal entry", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.New(errors.InternalError, "list journal entries", err)
	}
	for i := range out {
		files, err := j.files(out[i].ID, false)
		if err != nil {
			return nil, err
		}
		out[i].Files = files
	}
	return out, nil
}

// Get returns the commit with the given ID or unique ID prefix, including
// decompressed pre-images.
func (j *Journal) Get(id string) (*CommitRecord, error) {
	if id == "" {
		return nil, errors.Newf(errors.InvalidArgument, "journal entry ID is empty")
	}
	rows, err := j.db.Query(`
		SELECT id, plan_id, subject, old_name, new_name, workspace_id, state, error, created_at, finished_at
		FROM commits WHERE id = ? OR substr(id, 1, ?) = ? ORDER BY id LIMIT 2
	`, id, len(id), id)
	if err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("read journal entry %s", id), err)
	}
	var found []*CommitRecord
	for rows.Next() {
		rec, err := scanCommit(rows)
		if err != nil {
			rows.Close()
			return nil, errors.New(errors.InternalError, fmt.Sprintf("read journal entry %s", id), err)
		}
		found = append(found, rec)
	}
	rows.Close()

	switch {
	case len(found) == 0:
		return nil, errors.Newf(errors.InvalidArgument, "no journal entry %q", id)
	case len(found) > 1 && found[0].ID != id:
		return nil, errors.Newf(errors.InvalidArgument, "journal entry prefix %q is ambiguous", id)
	}
	rec := found[0]
	if rec.Files, err = j.files(rec.ID, true); err != nil {
		return nil, err
	}
	return rec, nil
}

func (j *Journal) files(commitID string, withImages bool) ([]FileRecord, error) {
	rows, err := j.db.Query(`
		SELECT path, new_path, status, pre_hash, post_hash, pre_image
		FROM commit_files WHERE commit_id = ? ORDER BY seq
	`, commitID)
	if err != nil {
		return nil, errors.New(errors.InternalError, fmt.Sprintf("read files of journal entry %s", commitID), err)
	}
	defer rows.Close()

	files := []FileRecord{}
	for rows.Next() {
		var f FileRecord
		var status string
		var image []byte
		if err := rows.Scan(&f.Path, &f.NewPath, &status, &f.PreHash, &f.PostHash, &image); err != nil {
			return nil, errors.New(errors.InternalError, fmt.Sprintf("read files of journal entry %s", commitID), err)
		}
		f.Status = FileStatus(status)
		if withImages {
			if f.PreImage, err = j.dec.DecodeAll(image, nil); err != nil {
				return nil, errors.New(errors.InternalError, fmt.Sprintf("decompress pre-image of %s", f.Path), err)
			}
		}
		files = append(files, f)
	}
	return files, rows.Err()
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanCommit(s scanner) (*CommitRecord, error) {
	var rec CommitRecord
	var state, created string
	var finished sql.NullString
	if err := s.Scan(&rec.ID, &rec.PlanID, &rec.Subject, &rec.OldName, &rec.NewName,
		&rec.WorkspaceID, &state, &rec.Error, &created, &finished); err != nil {
		return nil, err
	}
	rec.State = CommitState(state)
	rec.CreatedAt = parseTime(created)
	if finished.Valid {
		rec.FinishedAt = parseTime(finished.String)
	}
	return &rec, nil
}

// timeLayout is fixed-width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) time.Time {
	t, _ := time.Parse(timeLayout, s)
	return t
}
