package rename

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
	"symnav/internal/storage"

	"github.com/cespare/xxhash/v2"
	"github.com/google/uuid"
)

// replaceFile moves a staged file over its target.
var replaceFile = os.Rename

// Result is the outcome of a successful Commit.
type Result struct {
	Plan *Plan
	// Workspace is the renamed snapshot with any file moves applied.
	Workspace analyzer.Workspace
	// JournalID identifies the journal entry; empty without a journal.
	JournalID string
}

// staged is a file whose new content waits beside its target.
type staged struct {
	path   string
	abs    string
	temp   string
	text   string
	mode   fs.FileMode
	placed bool
}

// Commit writes every changed file and then performs the file renames. The
// disk must still hold the text the plan was computed from. When a failure
// leaves some files replaced the error is PartialCommit and its details list
// exactly which files succeeded.
func (t *Transaction) Commit(ctx context.Context, p *Plan) (*Result, error) {
	if p == nil || p.renamed == nil {
		return nil, errors.New(errors.InvalidArgument, "commit: no plan", nil)
	}
	if p.State != StatePlanned {
		return nil, errors.Newf(errors.InvalidArgument, "commit plan %s: plan is already %s", p.ID, p.State)
	}
	if p.base.ID() != t.ws.ID() {
		return nil, errors.Newf(errors.WorkspaceStale, "commit plan %s: planned against workspace %s, current is %s", p.ID, p.base.ID(), t.ws.ID())
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("commit plan %s", p.ID))
	}

	root := p.base.Root()
	moves := p.Moves()
	files := make([]*staged, 0, len(p.Files))
	for _, f := range p.Paths() {
		text, _ := p.renamed.Text(f)
		files = append(files, &staged{path: f, abs: filepath.Join(root, filepath.FromSlash(f)), text: text})
	}

	rec, err := t.checkDisk(p, files, moves)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("commit plan %s", p.ID))
	}

	if t.journal != nil {
		if err := t.journal.Begin(rec); err != nil {
			return nil, err
		}
	}

	if t.opts.DirectWrite {
		err = t.writeDirect(rec.ID, files)
	} else {
		err = t.writeStaged(rec.ID, files)
	}
	if err == nil {
		err = t.moveFiles(rec.ID, root, files, moves)
	}
	if err != nil {
		state := storage.CommitFailed
		if errors.Is(err, errors.PartialCommit) {
			state = storage.CommitPartial
			if ne, ok := err.(*errors.NavError); ok {
				if d, ok := ne.Details.(errors.PartialCommitDetails); ok && t.journal != nil {
					d.JournalID = rec.ID
					ne.Details = d
				}
			}
		}
		t.finish(rec.ID, state, err.Error())
		t.logger.Error("Rename commit failed", "plan", p.ID, "journal", rec.ID, "state", string(state), "error", err.Error())
		return nil, err
	}

	ws := p.renamed
	if len(moves) > 0 {
		if mover, ok := t.analyzer.(analyzer.FileMover); ok {
			if ws, err = mover.MoveFiles(ctx, ws, moves); err != nil {
				t.finish(rec.ID, storage.CommitPartial, err.Error())
				return nil, errors.Wrap(err, fmt.Sprintf("commit plan %s: update file paths", p.ID))
			}
		}
	}

	t.finish(rec.ID, storage.CommitCommitted, "")
	p.State = StateCommitted
	t.logger.Info("Rename committed",
		"plan", p.ID,
		"subject", p.Subject.QualifiedName,
		"newName", p.NewName,
		"files", len(files),
		"moves", len(moves),
	)

	res := &Result{Plan: p, Workspace: ws}
	if t.journal != nil {
		res.JournalID = rec.ID
	}
	return res, nil
}

// checkDisk verifies that every file to be rewritten still holds the
// planned-from text and that no rename target exists. It returns the journal
// record carrying the pre-images.
func (t *Transaction) checkDisk(p *Plan, files []*staged, moves map[string]string) (*storage.CommitRecord, error) {
	rec := &storage.CommitRecord{
		ID:          uuid.NewString(),
		PlanID:      p.ID,
		Subject:     string(p.Subject.ID),
		OldName:     p.OldName,
		NewName:     p.NewName,
		WorkspaceID: p.base.ID(),
	}
	for _, f := range files {
		data, err := os.ReadFile(f.abs)
		if err != nil {
			if os.IsNotExist(err) {
				return nil, errors.Newf(errors.WorkspaceStale, "commit plan %s: %s no longer exists", p.ID, f.path)
			}
			return nil, errors.New(errors.InternalError, fmt.Sprintf("commit plan %s: read %s", p.ID, f.path), err)
		}
		want, _ := p.base.Text(f.path)
		if Hash(data) != Hash([]byte(want)) {
			return nil, errors.Newf(errors.WorkspaceStale, "commit plan %s: %s changed on disk since the workspace was loaded", p.ID, f.path).
				WithFixes(errors.FixAction{Type: errors.RunCommand, Command: "symnav index", Description: "Re-index the workspace and plan again"})
		}
		info, err := os.Stat(f.abs)
		if err != nil {
			return nil, errors.New(errors.InternalError, fmt.Sprintf("commit plan %s: stat %s", p.ID, f.path), err)
		}
		f.mode = info.Mode().Perm()
		rec.Files = append(rec.Files, storage.FileRecord{
			Path:     f.path,
			NewPath:  moves[f.path],
			PreHash:  Hash(data),
			PreImage: data,
		})
	}
	for from, to := range moves {
		abs := filepath.Join(p.base.Root(), filepath.FromSlash(to))
		if _, err := os.Stat(abs); err == nil {
			return nil, errors.Newf(errors.InvalidArgument, "commit plan %s: cannot rename %s, %s already exists", p.ID, from, to)
		}
	}
	for _, extra := range t.opts.Track {
		if _, ok := p.Files[extra]; ok {
			continue
		}
		data, err := os.ReadFile(filepath.Join(p.base.Root(), filepath.FromSlash(extra)))
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return nil, errors.New(errors.InternalError, fmt.Sprintf("commit plan %s: read %s", p.ID, extra), err)
		}
		rec.Files = append(rec.Files, storage.FileRecord{Path: extra, PreHash: Hash(data), PreImage: data})
	}
	return rec, nil
}

// writeStaged writes every file to a temp file beside its target, then
// renames them into place. Nothing is replaced unless every write succeeded.
func (t *Transaction) writeStaged(journalID string, files []*staged) (err error) {
	defer func() {
		for _, f := range files {
			if f.temp != "" && !f.placed {
				_ = os.Remove(f.temp)
			}
		}
	}()

	for _, f := range files {
		if f.temp, err = stage(f); err != nil {
			return errors.New(errors.InternalError, fmt.Sprintf("stage %s", f.path), err)
		}
	}

	for i, f := range files {
		if err := replaceFile(f.temp, f.abs); err != nil {
			if i == 0 {
				return errors.New(errors.InternalError, fmt.Sprintf("replace %s", f.path), err)
			}
			return partial(files[:i], files[i:], fmt.Sprintf("replace %s", f.path), err)
		}
		f.placed = true
		t.mark(journalID, f.path, storage.FileWritten, Hash([]byte(f.text)))
	}
	return nil
}

func stage(f *staged) (string, error) {
	tmp, err := os.CreateTemp(filepath.Dir(f.abs), "."+filepath.Base(f.abs)+".symnav-*")
	if err != nil {
		return "", err
	}
	name := tmp.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(name)
		}
	}()
	defer tmp.Close()

	if _, err = tmp.WriteString(f.text); err != nil {
		return "", err
	}
	if err = tmp.Sync(); err != nil {
		return "", err
	}
	if err = tmp.Chmod(f.mode); err != nil {
		return "", err
	}
	return name, nil
}

// writeDirect rewrites each file in place, in order.
func (t *Transaction) writeDirect(journalID string, files []*staged) error {
	for i, f := range files {
		if err := writeFile(f.abs, f.text, f.mode); err != nil {
			if i == 0 {
				return errors.New(errors.InternalError, fmt.Sprintf("write %s", f.path), err)
			}
			return partial(files[:i], files[i:], fmt.Sprintf("write %s", f.path), err)
		}
		f.placed = true
		t.mark(journalID, f.path, storage.FileWritten, Hash([]byte(f.text)))
	}
	return nil
}

func writeFile(path, text string, mode fs.FileMode) (err error) {
	fh, err := os.OpenFile(path, os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fh.Close(); err == nil {
			err = cerr
		}
	}()
	if _, err = fh.WriteString(text); err != nil {
		return err
	}
	return fh.Sync()
}

// moveFiles performs the file renames after all writes completed.
func (t *Transaction) moveFiles(journalID, root string, files []*staged, moves map[string]string) error {
	var done []string
	for _, f := range files {
		to, ok := moves[f.path]
		if !ok {
			continue
		}
		if err := os.Rename(f.abs, filepath.Join(root, filepath.FromSlash(to))); err != nil {
			succeeded := make([]string, 0, len(files))
			for _, g := range files {
				succeeded = append(succeeded, g.path)
			}
			succeeded = append(succeeded, done...)
			return errors.New(errors.PartialCommit, fmt.Sprintf("rename file %s to %s", f.path, to), err).
				WithDetails(errors.PartialCommitDetails{Succeeded: succeeded, Failed: []string{to}})
		}
		done = append(done, to)
		t.mark(journalID, f.path, storage.FileRenamed, "")
	}
	return nil
}

func partial(done, rest []*staged, op string, cause error) error {
	d := errors.PartialCommitDetails{Succeeded: []string{}, Failed: []string{}}
	for _, f := range done {
		d.Succeeded = append(d.Succeeded, f.path)
	}
	for _, f := range rest {
		d.Failed = append(d.Failed, f.path)
	}
	return errors.New(errors.PartialCommit, op, cause).WithDetails(d)
}

func (t *Transaction) mark(journalID, path string, status storage.FileStatus, postHash string) {
	if t.journal == nil {
		return
	}
	if err := t.journal.MarkFile(journalID, path, status, postHash); err != nil {
		t.logger.Warn("Failed to journal file", "journal", journalID, "path", path, "error", err.Error())
	}
}

func (t *Transaction) finish(journalID string, state storage.CommitState, msg string) {
	if t.journal == nil {
		return
	}
	if err := t.journal.Finish(journalID, state, msg); err != nil {
		t.logger.Warn("Failed to finish journal entry", "journal", journalID, "error", err.Error())
	}
}

// Hash fingerprints file content for staleness checks.
func Hash(data []byte) string {
	return strconv.FormatUint(xxhash.Sum64(data), 16)
}
