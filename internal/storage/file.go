package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/bilgisen/letterpress/internal/models"
)

// FileBackend stores one JSON document per newsletter under basePath.
type FileBackend struct {
	basePath string
	mu       sync.RWMutex
}

func NewFileBackend(basePath string) (*FileBackend, error) {
	// Create base directory if it doesn't exist
	if err := os.MkdirAll(basePath, 0755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}

	return &FileBackend{
		basePath: basePath,
	}, nil
}

func (s *FileBackend) Close() error {
	return nil
}

// path maps an id to its file. Ids that could escape basePath have no file.
func (s *FileBackend) path(id string) (string, bool) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", false
	}
	return filepath.Join(s.basePath, id+".json"), true
}

// Get reads a newsletter by its ID
func (s *FileBackend) Get(ctx context.Context, id string) (*models.SavedNewsletter, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		s.mu.RLock()
		defer s.mu.RUnlock()

		path, ok := s.path(id)
		if !ok {
			return nil, ErrNotFound
		}
		return readRecord(path)
	}
}

// Put writes a newsletter to disk, replacing any previous version
func (s *FileBackend) Put(ctx context.Context, rec *models.SavedNewsletter) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		path, ok := s.path(rec.ID)
		if !ok {
			return fmt.Errorf("invalid newsletter id %q", rec.ID)
		}

		data, err := json.MarshalIndent(rec, "", "  ")
		if err != nil {
			return fmt.Errorf("failed to marshal newsletter: %w", err)
		}

		// Write to a temp file first so readers never see a partial document.
		tmp := path + ".tmp"
		if err := os.WriteFile(tmp, data, 0644); err != nil {
			return fmt.Errorf("failed to write newsletter file: %w", err)
		}
		if err := os.Rename(tmp, path); err != nil {
			return fmt.Errorf("failed to replace newsletter file: %w", err)
		}
		return nil
	}
}

// List reads every stored newsletter, newest first
func (s *FileBackend) List(ctx context.Context) ([]*models.SavedNewsletter, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
		s.mu.RLock()
		defer s.mu.RUnlock()

		var recs []*models.SavedNewsletter
		err := filepath.WalkDir(s.basePath, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != s.basePath {
					return filepath.SkipDir
				}
				return nil
			}
			if !strings.HasSuffix(d.Name(), ".json") {
				return nil
			}

			rec, err := readRecord(path)
			if err != nil {
				return err
			}
			recs = append(recs, rec)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("error walking the path: %w", err)
		}

		sortNewestFirst(recs)
		return recs, nil
	}
}

// Delete removes a newsletter file. A missing file is not an error.
func (s *FileBackend) Delete(ctx context.Context, id string) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		s.mu.Lock()
		defer s.mu.Unlock()

		path, ok := s.path(id)
		if !ok {
			return nil
		}
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to delete newsletter file: %w", err)
		}
		return nil
	}
}

func readRecord(path string) (*models.SavedNewsletter, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", path, err)
	}

	var rec models.SavedNewsletter
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal newsletter %s: %w", path, err)
	}
	return &rec, nil
}
