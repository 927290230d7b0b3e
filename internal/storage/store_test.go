package storage

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bilgisen/letterpress/internal/apperr"
	"github.com/bilgisen/letterpress/internal/config"
	"github.com/bilgisen/letterpress/internal/models"
)

type stepClock struct {
	t time.Time
}

func (c *stepClock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func backends(t *testing.T) map[string]Backend {
	t.Helper()

	fb, err := NewFileBackend(t.TempDir())
	require.NoError(t, err)

	out := map[string]Backend{
		"memory": NewMemoryBackend(),
		"file":   fb,
	}

	// Redis is exercised only when a test server is provided.
	if url := os.Getenv("REDIS_TEST_URL"); url != "" {
		opt, err := redis.ParseURL(url)
		require.NoError(t, err)
		rb := NewRedisBackendWithClient(redis.NewClient(opt), "test:"+uuid.NewString()+":")
		t.Cleanup(func() { _ = rb.Close() })
		out["redis"] = rb
	}
	return out
}

var sample = models.Newsletter{
	Title:   "Weekly",
	Subject: "Issue 1",
	Articles: []models.Article{
		{Title: "One", Content: "first", URL: "https://example.com/1"},
		{Title: "Two", Content: "<p>second</p>", ContentType: models.ContentHTML},
	},
}

func TestStoreRoundTrip(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &stepClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
			s := NewStore(b, WithClock(clock.now))

			styles := models.StyleTokens{Card: "bg-gray-900"}
			created, err := s.Create(ctx, sample, styles)
			require.NoError(t, err)
			require.NotEmpty(t, created.ID)
			assert.Equal(t, created.CreatedAt, created.UpdatedAt)

			got, err := s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, sample, got.Newsletter)
			assert.Equal(t, styles, got.Styles)
			assert.True(t, got.CreatedAt.Equal(created.CreatedAt))
			assert.False(t, got.UpdatedAt.Before(got.CreatedAt))

			changed := sample
			changed.Title = "Weekly (revised)"
			updated, err := s.Update(ctx, created.ID, changed, models.StyleTokens{})
			require.NoError(t, err)
			assert.Equal(t, created.ID, updated.ID)
			assert.True(t, updated.CreatedAt.Equal(created.CreatedAt))
			assert.True(t, updated.UpdatedAt.After(created.UpdatedAt))

			got, err = s.Get(ctx, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "Weekly (revised)", got.Title)
			assert.True(t, got.Styles.IsZero())

			require.NoError(t, s.Delete(ctx, created.ID))
			_, err = s.Get(ctx, created.ID)
			assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

			// Deleting again is not an error.
			require.NoError(t, s.Delete(ctx, created.ID))
		})
	}
}

func TestStoreListNewestFirst(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clock := &stepClock{t: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
			s := NewStore(b, WithClock(clock.now))

			empty, err := s.List(ctx)
			require.NoError(t, err)
			assert.Empty(t, empty)

			var ids []string
			for _, title := range []string{"first", "second", "third"} {
				n := sample
				n.Title = title
				rec, err := s.Create(ctx, n, models.StyleTokens{})
				require.NoError(t, err)
				ids = append(ids, rec.ID)
			}

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 3)
			assert.Equal(t, []string{"third", "second", "first"}, []string{list[0].Title, list[1].Title, list[2].Title})
			assert.Equal(t, ids[2], list[0].ID)
		})
	}
}

func TestStoreUpdateErrors(t *testing.T) {
	s := NewStore(NewMemoryBackend())
	ctx := context.Background()

	_, err := s.Update(ctx, "", sample, models.StyleTokens{})
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	_, err = s.Update(ctx, uuid.NewString(), sample, models.StyleTokens{})
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	list, err := s.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, list, "update of an unknown id must not create a record")
}

func TestStoreReservedAndMalformedIDs(t *testing.T) {
	for name, b := range backends(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			s := NewStore(b)

			rec, err := s.Create(ctx, sample, models.StyleTokens{})
			require.NoError(t, err)

			for _, id := range []string{"index", "doc:" + rec.ID, "../" + rec.ID, "not-a-uuid"} {
				_, err := s.Get(ctx, id)
				assert.True(t, apperr.IsKind(err, apperr.KindNotFound), id)
				require.NoError(t, s.Delete(ctx, id), id)
				_, err = s.Update(ctx, id, sample, models.StyleTokens{})
				assert.True(t, apperr.IsKind(err, apperr.KindNotFound), id)
			}

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 1)
			assert.Equal(t, rec.ID, list[0].ID)
		})
	}
}

func TestRedisKeysDoNotCollideWithIndex(t *testing.T) {
	rb := NewRedisBackendWithClient(redis.NewClient(&redis.Options{Addr: "localhost:0"}), "nl:")
	defer rb.Close()

	assert.Equal(t, "nl:index", rb.indexKey())
	assert.Equal(t, "nl:doc:index", rb.key("index"))
	assert.NotEqual(t, rb.indexKey(), rb.key("index"))
}

func TestMemoryBackendIsolation(t *testing.T) {
	ctx := context.Background()
	s := NewStore(NewMemoryBackend())

	rec, err := s.Create(ctx, sample, models.StyleTokens{})
	require.NoError(t, err)

	got, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	got.Articles[0].Title = "mutated"

	again, err := s.Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "One", again.Articles[0].Title)
}

func TestFileBackendRejectsPathIDs(t *testing.T) {
	dir := t.TempDir()
	fb, err := NewFileBackend(filepath.Join(dir, "store"))
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "secret.json"), []byte(`{"id":"secret"}`), 0644))

	ctx := context.Background()
	_, err = fb.Get(ctx, "../secret")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.NoError(t, fb.Delete(ctx, "../secret"))
	assert.Error(t, fb.Put(ctx, &models.SavedNewsletter{ID: "../escape"}))

	_, err = os.Stat(filepath.Join(dir, "secret.json"))
	assert.NoError(t, err)
}

func TestFileBackendPersistsAcrossInstances(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	first, err := NewFileBackend(dir)
	require.NoError(t, err)
	rec, err := NewStore(first).Create(ctx, sample, models.StyleTokens{Footer: "bg-black"})
	require.NoError(t, err)

	second, err := NewFileBackend(dir)
	require.NoError(t, err)
	got, err := NewStore(second).Get(ctx, rec.ID)
	require.NoError(t, err)
	assert.Equal(t, "bg-black", got.Styles.Footer)
}

func TestOpen(t *testing.T) {
	b, err := Open(&config.Config{StoreDriver: "memory"})
	require.NoError(t, err)
	assert.IsType(t, &MemoryBackend{}, b)

	b, err = Open(&config.Config{StoreDriver: "file", StoragePath: t.TempDir()})
	require.NoError(t, err)
	assert.IsType(t, &FileBackend{}, b)

	_, err = Open(&config.Config{StoreDriver: "sqlite"})
	assert.Error(t, err)
}
