package slogutil

import (
	"io"
	"log/slog"
	"path/filepath"

	"symnav/internal/config"
)

// Factory builds the process logger from the logging section of the config.
// Precedence for the level: CLI override > config > warn.
type Factory struct {
	repoRoot string
	cfg      config.LoggingConfig
	closers  []io.Closer
}

// NewFactory creates a new logger factory.
func NewFactory(repoRoot string, cfg config.LoggingConfig) *Factory {
	return &Factory{repoRoot: repoRoot, cfg: cfg}
}

// Logger returns a logger writing to console and, when logging.file is set,
// also appending to that file. override may be nil.
func (f *Factory) Logger(console io.Writer, override *slog.Level) (*slog.Logger, error) {
	level := f.EffectiveLevel(override)
	handlers := []slog.Handler{f.handler(console, level)}

	if f.cfg.File != "" {
		path := f.cfg.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(f.repoRoot, path)
		}
		file, err := openAppend(path)
		if err != nil {
			return nil, err
		}
		f.closers = append(f.closers, file)
		// the file always records at least info
		fileLevel := level
		if fileLevel > slog.LevelInfo {
			fileLevel = slog.LevelInfo
		}
		handlers = append(handlers, f.handler(file, fileLevel))
	}

	if len(handlers) == 1 {
		return slog.New(handlers[0]), nil
	}
	return NewTeeLogger(handlers...), nil
}

// EffectiveLevel resolves the level from the override and the config.
func (f *Factory) EffectiveLevel(override *slog.Level) slog.Level {
	if override != nil {
		return *override
	}
	if f.cfg.Level != "" {
		return LevelFromString(f.cfg.Level)
	}
	return slog.LevelWarn
}

func (f *Factory) handler(w io.Writer, level slog.Level) slog.Handler {
	opts := &slog.HandlerOptions{Level: level}
	if f.cfg.Format == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return NewHandler(w, opts)
}

// NewTeeLogger creates a logger that writes to multiple destinations.
func NewTeeLogger(handlers ...slog.Handler) *slog.Logger {
	return slog.New(NewTeeHandler(handlers...))
}

// Close closes all open log files.
func (f *Factory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
