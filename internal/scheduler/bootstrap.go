package scheduler

import (
	"context"
	"errors"
	"log/slog"

	ckerrors "github.com/makerio90/checklist/internal/errors"
	"github.com/makerio90/checklist/internal/logfields"
	"github.com/makerio90/checklist/internal/model"
	"github.com/makerio90/checklist/internal/storage"
)

// LoadCollection restores every configured checklist from store, creating
// a fresh one for names the store has never seen. Any other load failure
// aborts the whole load.
func LoadCollection(ctx context.Context, defs []model.Definition, store storage.Store, logger *slog.Logger) (*model.Collection, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lists := make([]*model.Checklist, 0, len(defs))
	for _, def := range defs {
		rec, err := store.Load(ctx, def.Name)
		switch {
		case errors.Is(err, storage.ErrNotFound):
			c, newErr := model.NewChecklist(def)
			if newErr != nil {
				return nil, ckerrors.Config("invalid checklist definition", newErr).WithContext("checklist", def.Name)
			}
			logger.Info("Created checklist",
				logfields.Checklist(def.Name),
				logfields.Count(len(def.Todo)))
			lists = append(lists, c)
		case err != nil:
			return nil, ckerrors.PersistenceLoad(def.Name, err)
		default:
			if added, removed := model.TaskDrift(def, rec.Tasks); len(added) > 0 || len(removed) > 0 {
				logger.Warn("Stored tasks differ from configuration; keeping stored tasks",
					logfields.Checklist(def.Name),
					slog.Any("configured_only", added),
					slog.Any("stored_only", removed))
			}
			if def.Schedule == nil && rec.NextReset != nil {
				logger.Warn("Dropping stored next reset of unscheduled checklist",
					logfields.Checklist(def.Name),
					logfields.NextReset(rec.NextReset))
			}
			c := model.RestoreChecklist(def, rec.Tasks, rec.NextReset)
			logger.Debug("Restored checklist",
				logfields.Checklist(c.Name),
				logfields.NextReset(c.NextReset),
				logfields.Count(len(c.Tasks)))
			lists = append(lists, c)
		}
	}
	coll, err := model.NewCollection(lists)
	if err != nil {
		return nil, ckerrors.Config("invalid checklist set", err)
	}
	return coll, nil
}
