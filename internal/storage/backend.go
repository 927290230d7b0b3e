package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/bilgisen/letterpress/internal/config"
	"github.com/bilgisen/letterpress/internal/models"
)

// ErrNotFound is returned by backends when no record has the requested id.
var ErrNotFound = errors.New("record not found")

// Backend is keyed record storage for saved newsletters.
type Backend interface {
	Get(ctx context.Context, id string) (*models.SavedNewsletter, error)
	Put(ctx context.Context, rec *models.SavedNewsletter) error
	Delete(ctx context.Context, id string) error
	// List returns every record, newest first by creation time.
	List(ctx context.Context) ([]*models.SavedNewsletter, error)
	Close() error
}

// Open returns the backend selected by STORE_DRIVER.
func Open(cfg *config.Config) (Backend, error) {
	switch cfg.StoreDriver {
	case "memory":
		return NewMemoryBackend(), nil
	case "file":
		return NewFileBackend(cfg.StoragePath)
	case "redis":
		return NewRedisBackend(cfg.RedisURL, cfg.RedisPrefix)
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.StoreDriver)
	}
}

func sortNewestFirst(recs []*models.SavedNewsletter) {
	sort.Slice(recs, func(i, j int) bool {
		if !recs[i].CreatedAt.Equal(recs[j].CreatedAt) {
			return recs[i].CreatedAt.After(recs[j].CreatedAt)
		}
		return recs[i].ID > recs[j].ID
	})
}
