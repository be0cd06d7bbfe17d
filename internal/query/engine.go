// Package query provides the engine that coordinates every symnav operation.
// It owns the current workspace snapshot and its declaration index, applies
// timeouts, and serializes renames.
package query

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"symnav/internal/analyzer"
	scipbackend "symnav/internal/backends/scip"
	"symnav/internal/config"
	"symnav/internal/errors"
	"symnav/internal/index"
	"symnav/internal/storage"
	"symnav/internal/watcher"
)

// Snapshot pairs a workspace with the index built from it. Snapshots are
// immutable; the engine swaps them wholesale.
type Snapshot struct {
	Workspace analyzer.Workspace
	Index     *index.Index
	LoadedAt  time.Time
	BuildTime time.Duration
}

// Engine is the central query coordinator.
type Engine struct {
	root     string
	stateDir string
	config   *config.Config
	analyzer analyzer.Analyzer
	logger   *slog.Logger

	snapMu sync.RWMutex
	snap   *Snapshot

	// writeMu serializes renames and reloads.
	writeMu sync.Mutex

	journalOnce sync.Once
	journal     *storage.Journal
	journalErr  error

	watcher *watcher.Watcher
}

// Meta is attached to every response.
type Meta struct {
	Tool            string   `json:"tool"`
	WorkspaceID     string   `json:"workspaceId"`
	QueryDurationMs int64    `json:"queryDurationMs"`
	Warnings        []string `json:"warnings,omitempty"`
}

// NewEngine loads the workspace at root with the SCIP analyzer configured by
// cfg and builds its declaration index.
func NewEngine(ctx context.Context, root string, cfg *config.Config, logger *slog.Logger) (*Engine, error) {
	a := scipbackend.New(scipbackend.Options{
		IndexPath:   cfg.Analyzer.IndexPath,
		ReadSources: cfg.Analyzer.ReadSources,
	}, logger)
	return NewEngineWithAnalyzer(ctx, root, cfg, a, logger)
}

// NewEngineWithAnalyzer is NewEngine for an arbitrary analyzer.
func NewEngineWithAnalyzer(ctx context.Context, root string, cfg *config.Config, a analyzer.Analyzer, logger *slog.Logger) (*Engine, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, errors.New(errors.InvalidArgument, fmt.Sprintf("resolve workspace path %q", root), err)
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	e := &Engine{
		root:     abs,
		stateDir: filepath.Join(abs, config.Dir),
		config:   cfg,
		analyzer: a,
		logger:   logger,
	}

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()
	snap, err := e.load(ctx)
	if err != nil {
		return nil, err
	}
	e.snap = snap
	return e, nil
}

// load reads the workspace from disk and indexes it.
func (e *Engine) load(ctx context.Context) (*Snapshot, error) {
	ws, err := e.analyzer.LoadWorkspace(ctx, e.root)
	if err != nil {
		return nil, errors.Wrap(err, fmt.Sprintf("load workspace %s", e.root))
	}
	return e.build(ctx, ws)
}

func (e *Engine) build(ctx context.Context, ws analyzer.Workspace) (*Snapshot, error) {
	start := time.Now()
	opts := index.Options{
		Workers:           e.config.Index.Workers,
		Exclude:           e.config.Index.Exclude,
		MaxContainerDepth: e.config.Index.MaxContainerDepth,
	}
	if e.config.Index.RespectGitignore {
		gi, err := index.LoadGitignore(e.root)
		if err != nil {
			e.logger.Warn("Ignoring unreadable .gitignore", "error", err.Error())
		}
		opts.Ignore = gi
	}
	idx, err := index.Build(ctx, e.analyzer, ws, opts, e.logger)
	if err != nil {
		return nil, err
	}
	return &Snapshot{Workspace: ws, Index: idx, LoadedAt: time.Now(), BuildTime: time.Since(start)}, nil
}

// Current returns the snapshot queries are served from.
func (e *Engine) Current() *Snapshot {
	e.snapMu.RLock()
	defer e.snapMu.RUnlock()
	return e.snap
}

func (e *Engine) swap(snap *Snapshot) {
	e.snapMu.Lock()
	e.snap = snap
	e.snapMu.Unlock()
}

// Root is the absolute workspace directory.
func (e *Engine) Root() string { return e.root }

// StateDir is the per-workspace state directory.
func (e *Engine) StateDir() string { return e.stateDir }

// Config returns the engine configuration.
func (e *Engine) Config() *config.Config { return e.config }

// Analyzer returns the semantic model backing the engine.
func (e *Engine) Analyzer() analyzer.Analyzer { return e.analyzer }

// IndexPath is the resolved SCIP index location.
func (e *Engine) IndexPath() string { return e.config.IndexPathFor(e.root) }

// withTimeout applies query.timeoutMs to ctx.
func (e *Engine) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if e.config.Query.TimeoutMs <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, time.Duration(e.config.Query.TimeoutMs)*time.Millisecond)
}

func (e *Engine) meta(tool string, snap *Snapshot, start time.Time, warnings []string) Meta {
	return Meta{
		Tool:            tool,
		WorkspaceID:     snap.Workspace.ID(),
		QueryDurationMs: time.Since(start).Milliseconds(),
		Warnings:        warnings,
	}
}

// Reload re-reads the workspace from disk. The snapshot is swapped only when
// the content changed; the returned flag reports whether it was.
func (e *Engine) Reload(ctx context.Context) (bool, error) {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()

	ctx, cancel := e.withTimeout(ctx)
	defer cancel()

	ws, err := e.analyzer.LoadWorkspace(ctx, e.root)
	if err != nil {
		return false, errors.Wrap(err, fmt.Sprintf("reload workspace %s", e.root))
	}
	if cur := e.Current(); cur != nil && cur.Workspace.ID() == ws.ID() {
		return false, nil
	}
	snap, err := e.build(ctx, ws)
	if err != nil {
		return false, err
	}
	e.swap(snap)
	e.logger.Info("Workspace reloaded", "id", ws.ID(), "declarations", snap.Index.Len())
	return true, nil
}

// Journal opens the commit journal on first use.
func (e *Engine) Journal() (*storage.Journal, error) {
	e.journalOnce.Do(func() {
		e.journal, e.journalErr = storage.OpenJournal(e.stateDir, e.logger)
	})
	return e.journal, e.journalErr
}

// Close stops the watcher and releases the journal.
func (e *Engine) Close() error {
	var lastErr error
	if e.watcher != nil {
		if err := e.watcher.Stop(); err != nil {
			lastErr = err
		}
	}
	if e.journal != nil {
		if err := e.journal.Close(); err != nil {
			lastErr = err
		}
	}
	return lastErr
}
