package store

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// History пишет попытки в Postgres и держит свежие записи в Redis.
// Любой из бэкендов может отсутствовать.
type History struct {
	repo  *IdentificationRepo
	cache *RecordCache
	log   *zap.Logger
}

func NewHistory(repo *IdentificationRepo, cache *RecordCache, log *zap.Logger) *History {
	if log == nil {
		log = zap.NewNop()
	}
	return &History{repo: repo, cache: cache, log: log}
}

func (h *History) Record(ctx context.Context, rec *Record) error {
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	if h.repo != nil {
		if err := h.repo.Insert(ctx, rec); err != nil {
			return err
		}
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, rec); err != nil {
			h.log.Warn("failed to set cache", zap.String("id", rec.ID.String()), zap.Error(err))
		}
	}
	return nil
}

// Get ищет сначала в кэше, затем в БД. ErrNotFound, если записи нет нигде.
func (h *History) Get(ctx context.Context, id uuid.UUID) (*Record, error) {
	if h.cache != nil {
		rec, err := h.cache.Get(ctx, id)
		if err != nil {
			h.log.Warn("failed to get cache", zap.String("id", id.String()), zap.Error(err))
		}
		if rec != nil {
			return rec, nil
		}
	}
	if h.repo == nil {
		return nil, ErrNotFound
	}
	rec, err := h.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if h.cache != nil {
		if err := h.cache.Set(ctx, rec); err != nil {
			h.log.Warn("failed to set cache", zap.String("id", id.String()), zap.Error(err))
		}
	}
	return rec, nil
}

func (h *History) Recent(ctx context.Context, limit int) ([]Record, error) {
	if h.repo == nil {
		return []Record{}, nil
	}
	return h.repo.ListRecent(ctx, limit)
}

func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
