package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"

	"symnav/internal/config"
	"symnav/internal/errors"
	"symnav/internal/query"
	"symnav/internal/slogutil"
)

// session is what every command that touches the workspace needs.
type session struct {
	root    string
	config  *config.Config
	logger  *slog.Logger
	engine  *query.Engine
	factory *slogutil.Factory
}

// Close releases the engine and any open log file.
func (s *session) Close() {
	if s.engine != nil {
		if err := s.engine.Close(); err != nil {
			s.logger.Warn("Failed to close engine", "error", err.Error())
		}
	}
	if s.factory != nil {
		_ = s.factory.Close()
	}
}

// getWorkspaceRoot returns the absolute workspace root.
func getWorkspaceRoot() (string, error) {
	root := workspaceFlag
	if root == "" {
		wd, err := os.Getwd()
		if err != nil {
			return "", errors.New(errors.InternalError, "get working directory", err)
		}
		root = wd
	}
	abs, err := filepath.Abs(root)
	if err != nil {
		return "", errors.New(errors.InvalidArgument, "resolve workspace "+root, err)
	}
	return abs, nil
}

// loadSession loads the config and logger for the workspace without
// opening the engine.
func loadSession() (*session, error) {
	root, err := getWorkspaceRoot()
	if err != nil {
		return nil, err
	}

	cfg, cfgErr := config.LoadConfig(root)
	if cfgErr != nil {
		cfg = config.DefaultConfig()
	}

	factory := slogutil.NewFactory(root, cfg.Logging)
	logger, err := factory.Logger(os.Stderr, logLevelOverride())
	if err != nil {
		return nil, errors.New(errors.InternalError, "open log file", err)
	}
	if cfgErr != nil {
		logger.Warn("Failed to load config, using defaults", "error", cfgErr.Error())
	}
	return &session{root: root, config: cfg, logger: logger, factory: factory}, nil
}

// openSession loads the session and the engine.
func openSession(ctx context.Context) (*session, error) {
	s, err := loadSession()
	if err != nil {
		return nil, err
	}
	engine, err := query.NewEngine(ctx, s.root, s.config, s.logger)
	if err != nil {
		s.Close()
		return nil, err
	}
	s.engine = engine
	return s, nil
}

// newContext returns a context cancelled on interrupt.
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}
