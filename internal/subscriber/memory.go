package subscriber

import (
	"context"
	"sync"
	"time"

	"github.com/bilgisen/letterpress/internal/models"
)

// MemoryStore keeps subscribers in process memory.
type MemoryStore struct {
	mu     sync.Mutex
	nextID int64
	rows   []models.Subscriber
	byMail map[string]int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byMail: make(map[string]int)}
}

func (m *MemoryStore) Subscribe(ctx context.Context, email string) (bool, error) {
	email = normalize(email)
	if err := validEmail(email); err != nil {
		return false, err
	}
	if err := ctx.Err(); err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.byMail[email]; ok {
		if m.rows[i].IsActive {
			return false, nil
		}
		m.rows[i].IsActive = true
		return true, nil
	}

	m.nextID++
	m.byMail[email] = len(m.rows)
	m.rows = append(m.rows, models.Subscriber{
		ID:        m.nextID,
		Email:     email,
		IsActive:  true,
		CreatedAt: time.Now().UTC(),
	})
	return true, nil
}

func (m *MemoryStore) Unsubscribe(ctx context.Context, email string) error {
	email = normalize(email)
	if err := validEmail(email); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if i, ok := m.byMail[email]; ok {
		m.rows[i].IsActive = false
	}
	return nil
}

func (m *MemoryStore) Active(ctx context.Context) ([]models.Subscriber, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	out := []models.Subscriber{}
	for _, s := range m.rows {
		if s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MemoryStore) Ping(context.Context) error { return nil }

func (m *MemoryStore) Close() {}
