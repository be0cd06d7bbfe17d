package query

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"symnav/internal/analyzer"
	"symnav/internal/errors"
	"symnav/internal/index"
	"symnav/internal/locator"
	"symnav/internal/rename"
	"symnav/internal/storage"
)

// RenameOptions configures Rename.
type RenameOptions struct {
	NewName string
	// Preview plans the rename without touching the disk.
	Preview bool
	// RenameFile proposes a new file name when a type is renamed.
	RenameFile bool
	// Diff attaches a unified diff of the plan.
	Diff bool
}

// RenameResponse is the plan of a previewed or committed rename.
type RenameResponse struct {
	Meta
	Plan      *rename.Plan `json:"plan"`
	JournalID string       `json:"journalId,omitempty"`
	Diff      string       `json:"diff,omitempty"`
}

// Rename plans the rename of the declaration q resolves to and, unless
// opts.Preview is set, commits it. Commits hold the workspace writer lock
// from planning until the index is updated, so concurrent renames from other
// processes fail fast.
func (e *Engine) Rename(ctx context.Context, q locator.Query, opts RenameOptions) (*RenameResponse, error) {
	start := time.Now()
	match, err := rename.ParseMatchRule(e.config.Rename.FileRenameMatch)
	if err != nil {
		return nil, err
	}
	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	if opts.Preview {
		snap := e.Current()
		subject, warnings, err := e.ResolveOne(snap, q)
		if err != nil {
			return nil, err
		}
		tx := rename.New(e.analyzer, snap.Workspace, nil, e.renameOptions(opts, match), e.logger)
		plan, err := tx.Preview(ctx, subject, opts.NewName)
		if err != nil {
			return nil, err
		}
		var diff []byte
		if opts.Diff {
			if diff, err = rename.UnifiedDiff(plan); err != nil {
				return nil, err
			}
		}
		return e.renameResponse(snap, start, warnings, plan, "", diff), nil
	}

	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	lock, err := index.AcquireLock(e.stateDir)
	if err != nil {
		return nil, err
	}
	defer lock.Release()

	snap, subject, warnings, err := e.revalidate(ctx, q)
	if err != nil {
		return nil, err
	}

	var journal *storage.Journal
	if e.config.Rename.Journal {
		if journal, err = e.Journal(); err != nil {
			return nil, err
		}
	}
	ropts := e.renameOptions(opts, match)
	indexRel := e.trackedIndex()
	if indexRel != "" {
		ropts.Track = []string{indexRel}
	}

	tx := rename.New(e.analyzer, snap.Workspace, journal, ropts, e.logger)
	plan, err := tx.Plan(ctx, subject, opts.NewName)
	if err != nil {
		return nil, err
	}
	// The diff needs the pre-commit text, so render it first.
	var diff []byte
	if opts.Diff {
		if diff, err = rename.UnifiedDiff(plan); err != nil {
			return nil, err
		}
	}
	res, err := tx.Commit(ctx, plan)
	if err != nil {
		return nil, err
	}

	if p, ok := e.analyzer.(analyzer.Persister); ok {
		if err := p.Persist(ctx, res.Workspace); err != nil {
			e.logger.Error("Semantic model not updated after rename", "journal", res.JournalID, "error", err.Error())
			return nil, errors.Newf(errors.PartialCommit, "rename %s committed but the index could not be written: %v", plan.ID, err).
				WithDetails(errors.PartialCommitDetails{Succeeded: plan.Paths(), Failed: []string{indexRel}, JournalID: res.JournalID}).
				WithFixes(errors.FixAction{Type: errors.RunCommand, Command: "symnav journal restore " + res.JournalID, Description: "Restore the files this rename changed"})
		}
		if journal != nil && indexRel != "" {
			if data, err := os.ReadFile(e.IndexPath()); err == nil {
				if err := journal.MarkFile(res.JournalID, indexRel, storage.FileWritten, rename.Hash(data)); err != nil {
					e.logger.Warn("Failed to journal index update", "journal", res.JournalID, "error", err.Error())
				}
			}
		}
	}

	next, err := e.build(ctx, res.Workspace)
	if err != nil {
		return nil, err
	}
	e.swap(next)
	if _, err := e.SaveMeta(); err != nil {
		e.logger.Warn("Index metadata not saved", "error", err.Error())
	}

	return e.renameResponse(next, start, warnings, plan, res.JournalID, diff), nil
}

// revalidate reloads the workspace under the writer lock so the plan is
// computed against what is on disk now. A subject that disappeared or
// changed identity fails with WORKSPACE_STALE.
func (e *Engine) revalidate(ctx context.Context, q locator.Query) (*Snapshot, *index.Declaration, []string, error) {
	before := e.Current()
	subject, warnings, err := e.ResolveOne(before, q)
	if err != nil {
		return nil, nil, nil, err
	}

	ws, err := e.analyzer.LoadWorkspace(ctx, e.root)
	if err != nil {
		return nil, nil, nil, errors.Wrap(err, fmt.Sprintf("reload workspace %s", e.root))
	}
	if ws.ID() == before.Workspace.ID() {
		return before, subject, warnings, nil
	}

	snap, err := e.build(ctx, ws)
	if err != nil {
		return nil, nil, nil, err
	}
	e.swap(snap)
	again, warnings, err := e.ResolveOne(snap, q)
	if err != nil || again.ID != subject.ID {
		return nil, nil, nil, errors.Newf(errors.WorkspaceStale, "%s changed on disk while the rename was being planned", q.String()).
			WithFixes(errors.FixAction{Type: errors.RunCommand, Command: "symnav find " + q.Name, Description: "Locate the symbol again"})
	}
	return snap, again, warnings, nil
}

func (e *Engine) renameOptions(opts RenameOptions, match rename.MatchRule) rename.Options {
	return rename.Options{
		SuggestFileRename: opts.RenameFile,
		FileRenameMatch:   match,
		DirectWrite:       !e.config.Rename.StagedCommit,
	}
}

// trackedIndex returns the workspace-relative index path, or "" when the
// index lives outside the workspace.
func (e *Engine) trackedIndex() string {
	rel, err := filepath.Rel(e.root, e.IndexPath())
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return ""
	}
	return filepath.ToSlash(rel)
}

func (e *Engine) renameResponse(snap *Snapshot, start time.Time, warnings []string, plan *rename.Plan, journalID string, diff []byte) *RenameResponse {
	return &RenameResponse{
		Meta:      e.meta("rename", snap, start, warnings),
		Plan:      plan,
		JournalID: journalID,
		Diff:      string(diff),
	}
}

// JournalListResponse lists recent rename commits.
type JournalListResponse struct {
	Meta
	Commits []storage.CommitRecord `json:"commits"`
}

// JournalEntryResponse is one journaled commit.
type JournalEntryResponse struct {
	Meta
	Commit *storage.CommitRecord `json:"commit"`
}

// JournalList returns the most recent commits, newest first.
func (e *Engine) JournalList(ctx context.Context, limit int) (*JournalListResponse, error) {
	start := time.Now()
	j, err := e.Journal()
	if err != nil {
		return nil, err
	}
	commits, err := j.List(limit)
	if err != nil {
		return nil, err
	}
	if commits == nil {
		commits = []storage.CommitRecord{}
	}
	return &JournalListResponse{Meta: e.meta("journal list", e.Current(), start, nil), Commits: commits}, nil
}

// JournalShow returns one commit by ID or unique ID prefix.
func (e *Engine) JournalShow(ctx context.Context, id string) (*JournalEntryResponse, error) {
	start := time.Now()
	j, err := e.Journal()
	if err != nil {
		return nil, err
	}
	rec, err := j.Get(id)
	if err != nil {
		return nil, err
	}
	return &JournalEntryResponse{Meta: e.meta("journal show", e.Current(), start, nil), Commit: rec}, nil
}

// JournalRestore reverts a journaled commit and reloads the workspace.
func (e *Engine) JournalRestore(ctx context.Context, id string, force bool) (*JournalEntryResponse, error) {
	start := time.Now()
	j, err := e.Journal()
	if err != nil {
		return nil, err
	}

	e.writeMu.Lock()
	lock, err := index.AcquireLock(e.stateDir)
	if err != nil {
		e.writeMu.Unlock()
		return nil, err
	}
	rec, err := rename.Restore(ctx, j, e.root, id, force, e.logger)
	lock.Release()
	e.writeMu.Unlock()
	if err != nil {
		return nil, err
	}

	if _, err := e.Reload(ctx); err != nil {
		return nil, err
	}
	if _, err := e.SaveMeta(); err != nil {
		e.logger.Warn("Index metadata not saved", "error", err.Error())
	}
	return &JournalEntryResponse{Meta: e.meta("journal restore", e.Current(), start, nil), Commit: rec}, nil
}
