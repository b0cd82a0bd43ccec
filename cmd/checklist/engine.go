package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/makerio90/checklist/internal/config"
	ckerrors "github.com/makerio90/checklist/internal/errors"
	"github.com/makerio90/checklist/internal/logfields"
	"github.com/makerio90/checklist/internal/metrics"
	"github.com/makerio90/checklist/internal/model"
	"github.com/makerio90/checklist/internal/scheduler"
	"github.com/makerio90/checklist/internal/storage"
)

// openStore opens the configured backend. Failing to open it counts as a
// load failure: no checklist can be restored without it.
func openStore(cfg *config.Config) (storage.Store, error) {
	switch cfg.Storage.Backend {
	case config.BackendSQLite:
		repo, err := storage.OpenSQLite(cfg.SQLitePath())
		if err != nil {
			return nil, ckerrors.Wrap(err, ckerrors.CategoryPersistenceLoad, ckerrors.SeverityFatal, "cannot open sqlite store").
				WithContext("path", cfg.SQLitePath())
		}
		return repo, nil
	case config.BackendJSON:
		store, err := storage.NewJSONStore(cfg.StorageDir())
		if err != nil {
			return nil, ckerrors.Wrap(err, ckerrors.CategoryPersistenceLoad, ckerrors.SeverityFatal, "cannot open json store").
				WithContext("path", cfg.StorageDir())
		}
		return store, nil
	}
	return nil, ckerrors.Config(fmt.Sprintf("unknown storage backend %q", cfg.Storage.Backend), nil)
}

// session is everything a command needs once checklists are restored.
type session struct {
	cfg    *config.Config
	logger *slog.Logger
	store  storage.Store
	coll   *model.Collection
}

func openSession(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*session, error) {
	defs, err := cfg.Definitions()
	if err != nil {
		return nil, err
	}
	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	logger.Debug("Opened store",
		logfields.Backend(cfg.Storage.Backend),
		logfields.Count(len(defs)))

	coll, err := scheduler.LoadCollection(ctx, defs, store, logger)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return &session{cfg: cfg, logger: logger, store: store, coll: coll}, nil
}

func (s *session) Close() error {
	if err := s.store.Close(); err != nil {
		s.logger.Warn("Failed to close store", logfields.Error(err))
		return err
	}
	return nil
}

// recorder starts the metrics endpoint when metrics.addr is set and returns
// the recorder the engine should report to.
func (s *session) recorder(ctx context.Context) metrics.Recorder {
	if s.cfg.Metrics.Addr == "" {
		return metrics.Nop{}
	}
	prom := metrics.NewPrometheus()
	go func() {
		if err := metrics.Serve(ctx, s.cfg.Metrics.Addr, prom.Handler(), s.logger); err != nil {
			s.logger.Error("Metrics server stopped", logfields.Error(err))
		}
	}()
	return prom
}

func (s *session) newEngine(ctx context.Context) (*scheduler.Engine, error) {
	engine, err := scheduler.NewEngine(s.coll, s.store,
		scheduler.WithInterval(s.cfg.Engine.TickInterval),
		scheduler.WithRetryPolicy(s.cfg.RetryPolicy()),
		scheduler.WithLogger(s.logger),
		scheduler.WithRecorder(s.recorder(ctx)),
	)
	if err != nil {
		return nil, ckerrors.Config("invalid engine settings", err)
	}
	return engine, nil
}
