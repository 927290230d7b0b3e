package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bilgisen/letterpress/internal/models"
)

// RedisBackend stores each newsletter as a JSON string under
// prefix+"doc:"+id and keeps a sorted set of ids, scored by creation time,
// under prefix+"index".
type RedisBackend struct {
	client *redis.Client
	prefix string
}

func NewRedisBackend(url, prefix string) (*RedisBackend, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
	}

	client := redis.NewClient(opt)

	// Test the connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return NewRedisBackendWithClient(client, prefix), nil
}

// NewRedisBackendWithClient wraps an existing client.
func NewRedisBackendWithClient(client *redis.Client, prefix string) *RedisBackend {
	if prefix == "" {
		prefix = "newsletter:"
	}
	return &RedisBackend{client: client, prefix: prefix}
}

func (r *RedisBackend) Close() error {
	return r.client.Close()
}

func (r *RedisBackend) key(id string) string {
	return r.prefix + "doc:" + id
}

func (r *RedisBackend) indexKey() string {
	return r.prefix + "index"
}

func (r *RedisBackend) Get(ctx context.Context, id string) (*models.SavedNewsletter, error) {
	data, err := r.client.Get(ctx, r.key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	var rec models.SavedNewsletter
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to unmarshal newsletter %s: %w", id, err)
	}
	return &rec, nil
}

func (r *RedisBackend) Put(ctx context.Context, rec *models.SavedNewsletter) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal newsletter: %w", err)
	}

	_, err = r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.key(rec.ID), data, 0)
		pipe.ZAdd(ctx, r.indexKey(), redis.Z{Score: float64(rec.CreatedAt.UnixMilli()), Member: rec.ID})
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis put error: %w", err)
	}
	return nil
}

func (r *RedisBackend) Delete(ctx context.Context, id string) error {
	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.key(id))
		pipe.ZRem(ctx, r.indexKey(), id)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

func (r *RedisBackend) List(ctx context.Context) ([]*models.SavedNewsletter, error) {
	ids, err := r.client.ZRevRange(ctx, r.indexKey(), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis index error: %w", err)
	}
	if len(ids) == 0 {
		return []*models.SavedNewsletter{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = r.key(id)
	}
	values, err := r.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis mget error: %w", err)
	}

	recs := make([]*models.SavedNewsletter, 0, len(values))
	for i, v := range values {
		s, ok := v.(string)
		if !ok {
			// Index entry without a document; skip it.
			continue
		}
		var rec models.SavedNewsletter
		if err := json.Unmarshal([]byte(s), &rec); err != nil {
			return nil, fmt.Errorf("failed to unmarshal newsletter %s: %w", ids[i], err)
		}
		recs = append(recs, &rec)
	}

	sortNewestFirst(recs)
	return recs, nil
}
