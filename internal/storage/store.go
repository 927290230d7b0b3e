package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/models"
)

// Store is the newsletter persistence service on top of a Backend.
type Store struct {
	backend Backend
	now     func() time.Time
	newID   func() string
}

type StoreOption func(*Store)

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

func NewStore(backend Backend, opts ...StoreOption) *Store {
	s := &Store{
		backend: backend,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create saves a new draft under a fresh id.
func (s *Store) Create(ctx context.Context, n models.Newsletter, styles models.StyleTokens) (*models.SavedNewsletter, error) {
	now := s.now().UTC()
	rec := &models.SavedNewsletter{
		ID:         s.newID(),
		Newsletter: n,
		Styles:     styles,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.backend.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save newsletter: %w", err)
	}
	return rec, nil
}

// Update replaces the draft and styles of an existing record. The id and
// creation time are kept.
func (s *Store) Update(ctx context.Context, id string, n models.Newsletter, styles models.StyleTokens) (*models.SavedNewsletter, error) {
	if strings.TrimSpace(id) == "" {
		return nil, apperr.ValidationFields("newsletter id is required", map[string]string{"id": "required"})
	}

	rec, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rec.Newsletter = n
	rec.Styles = styles
	rec.UpdatedAt = s.now().UTC()
	if rec.UpdatedAt.Before(rec.CreatedAt) {
		rec.UpdatedAt = rec.CreatedAt
	}

	if err := s.backend.Put(ctx, rec); err != nil {
		return nil, fmt.Errorf("failed to save newsletter: %w", err)
	}
	return rec, nil
}

func (s *Store) Get(ctx context.Context, id string) (*models.SavedNewsletter, error) {
	if !validID(id) {
		return nil, apperr.NotFound(fmt.Sprintf("newsletter %q not found", id))
	}
	rec, err := s.backend.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return nil, apperr.NotFound(fmt.Sprintf("newsletter %q not found", id))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load newsletter: %w", err)
	}
	return rec, nil
}

// List returns all saved newsletters, newest first.
func (s *Store) List(ctx context.Context) ([]*models.SavedNewsletter, error) {
	recs, err := s.backend.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list newsletters: %w", err)
	}
	if recs == nil {
		recs = []*models.SavedNewsletter{}
	}
	return recs, nil
}

// Delete removes a newsletter. Deleting an unknown id succeeds.
func (s *Store) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return nil
	}
	if err := s.backend.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete newsletter: %w", err)
	}
	return nil
}

// validID reports whether id has the form Create assigns. Anything else
// cannot name a stored record.
func validID(id string) bool {
	return uuid.Validate(id) == nil
}
