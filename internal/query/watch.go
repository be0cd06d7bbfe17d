package query

import (
	"context"
	"fmt"

	"symnav/internal/errors"
	"symnav/internal/watcher"
)

// Watch reloads the workspace whenever the SCIP index file changes. Changes
// the engine made itself reload to the same workspace and are ignored.
// onReload, when set, is called after every reload attempt.
func (e *Engine) Watch(cfg watcher.Config, onReload func(changed bool, err error)) error {
	e.writeMu.Lock()
	defer e.writeMu.Unlock()
	if e.watcher != nil {
		return errors.New(errors.InvalidArgument, "watch: already watching", nil)
	}

	w, err := watcher.New(cfg, e.logger, func(events []watcher.Event) {
		changed, err := e.Reload(context.Background())
		if err != nil {
			e.logger.Warn("Reload after index change failed", "error", err.Error())
		} else if changed {
			e.logger.Info("Index change picked up", "events", len(events), "id", e.Current().Workspace.ID())
		}
		if onReload != nil {
			onReload(changed, err)
		}
	})
	if err != nil {
		return errors.New(errors.InternalError, "watch: create watcher", err)
	}
	if err := w.Watch(e.IndexPath()); err != nil {
		_ = w.Stop()
		return errors.New(errors.InternalError, fmt.Sprintf("watch %s", e.IndexPath()), err)
	}
	w.Start()
	e.watcher = w
	return nil
}
