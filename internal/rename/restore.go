package rename

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"symnav/internal/errors"
	"symnav/internal/storage"
)

// Restore puts the files of a journaled commit back to their pre-commit
// content and names. Files are processed in reverse commit order. Unless
// force is set, every file must still hold the content the commit wrote.
func Restore(ctx context.Context, j *storage.Journal, root, id string, force bool, logger *slog.Logger) (*storage.CommitRecord, error) {
	rec, err := j.Get(id)
	if err != nil {
		return nil, err
	}
	if rec.State == storage.CommitRestored {
		return nil, errors.Newf(errors.InvalidArgument, "restore %s: commit was already restored", rec.ID)
	}

	type step struct {
		file    *storage.FileRecord
		current string
	}
	var steps []step
	for i := len(rec.Files) - 1; i >= 0; i-- {
		f := &rec.Files[i]
		if f.Status != storage.FileWritten && f.Status != storage.FileRenamed {
			continue
		}
		current := f.Path
		if f.Status == storage.FileRenamed {
			current = f.NewPath
		}
		if !force {
			data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(current)))
			if err != nil {
				return nil, errors.New(errors.WorkspaceStale, fmt.Sprintf("restore %s: read %s", rec.ID, current), err)
			}
			if f.PostHash != "" && Hash(data) != f.PostHash {
				return nil, errors.Newf(errors.WorkspaceStale, "restore %s: %s changed after the commit", rec.ID, current).
					WithFixes(errors.FixAction{Type: errors.RunCommand, Command: "symnav journal restore --force " + rec.ID, Description: "Overwrite the later changes"})
			}
		}
		steps = append(steps, step{file: f, current: current})
	}

	for _, s := range steps {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, fmt.Sprintf("restore %s", rec.ID))
		}
		target := filepath.Join(root, filepath.FromSlash(s.file.Path))
		if s.current != s.file.Path {
			if err := os.Rename(filepath.Join(root, filepath.FromSlash(s.current)), target); err != nil {
				return nil, errors.New(errors.InternalError, fmt.Sprintf("restore %s: rename %s back to %s", rec.ID, s.current, s.file.Path), err)
			}
		}
		mode := os.FileMode(0o644)
		if info, err := os.Stat(target); err == nil {
			mode = info.Mode().Perm()
		}
		f := &staged{path: s.file.Path, abs: target, text: string(s.file.PreImage), mode: mode}
		temp, err := stage(f)
		if err != nil {
			return nil, errors.New(errors.InternalError, fmt.Sprintf("restore %s: stage %s", rec.ID, s.file.Path), err)
		}
		if err := os.Rename(temp, target); err != nil {
			_ = os.Remove(temp)
			return nil, errors.New(errors.InternalError, fmt.Sprintf("restore %s: replace %s", rec.ID, s.file.Path), err)
		}
		if err := j.MarkFile(rec.ID, s.file.Path, storage.FileRestored, ""); err != nil {
			logger.Warn("Failed to journal restored file", "journal", rec.ID, "path", s.file.Path, "error", err.Error())
		}
		s.file.Status = storage.FileRestored
	}

	if err := j.Finish(rec.ID, storage.CommitRestored, ""); err != nil {
		return nil, err
	}
	rec.State = storage.CommitRestored
	logger.Info("Commit restored", "journal", rec.ID, "files", len(steps))
	return rec, nil
}
