package storage

import (
	"context"
	"sync"

	"github.com/bilgisen/letterpress/internal/models"
)

// MemoryBackend keeps records in process memory. Used in tests and when
// nothing needs to survive a restart.
type MemoryBackend struct {
	mu   sync.RWMutex
	data map[string]models.SavedNewsletter
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{data: make(map[string]models.SavedNewsletter)}
}

func (m *MemoryBackend) Close() error {
	return nil
}

func (m *MemoryBackend) Get(ctx context.Context, id string) (*models.SavedNewsletter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	rec, ok := m.data[id]
	if !ok {
		return nil, ErrNotFound
	}
	return clone(rec), nil
}

func (m *MemoryBackend) Put(ctx context.Context, rec *models.SavedNewsletter) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.data[rec.ID] = *clone(*rec)
	return nil
}

func (m *MemoryBackend) Delete(ctx context.Context, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.data, id)
	return nil
}

func (m *MemoryBackend) List(ctx context.Context) ([]*models.SavedNewsletter, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*models.SavedNewsletter, 0, len(m.data))
	for _, rec := range m.data {
		out = append(out, clone(rec))
	}
	sortNewestFirst(out)
	return out, nil
}

// clone copies rec so callers cannot mutate stored articles.
func clone(rec models.SavedNewsletter) *models.SavedNewsletter {
	rec.Articles = append([]models.Article(nil), rec.Articles...)
	return &rec
}
