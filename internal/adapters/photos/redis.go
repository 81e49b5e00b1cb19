package photos

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/geomoodmap/backend/internal/core/domain"
	"github.com/geomoodmap/backend/internal/core/ports"
)

// RefPrefix is the path under which stored photos are served.
const RefPrefix = "/photos/"

const keyPrefix = "geomood:photo:"

var _ ports.PhotoStore = (*RedisStore)(nil)

// RedisStore keeps pictures in redis hashes keyed by mood ID.
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
}

// NewRedisStore creates a store. A zero ttl keeps pictures forever.
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) Store(ctx context.Context, key string, picture domain.Picture) (string, error) {
	if key == "" || strings.Contains(key, "/") {
		return "", fmt.Errorf("photos: invalid key %q", key)
	}
	fullKey := keyPrefix + key
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, fullKey, "mime", picture.MimeType, "data", picture.Data)
		if s.ttl > 0 {
			pipe.Expire(ctx, fullKey, s.ttl)
		}
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("photos: store %s: %w", key, err)
	}
	return RefPrefix + key, nil
}

// Load accepts either a reference returned by Store or a bare key.
func (s *RedisStore) Load(ctx context.Context, ref string) (domain.Picture, error) {
	key := strings.TrimPrefix(ref, RefPrefix)
	vals, err := s.client.HGetAll(ctx, keyPrefix+key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Picture{}, domain.NotFound("photo not found")
		}
		return domain.Picture{}, fmt.Errorf("photos: load %s: %w", key, err)
	}
	data, ok := vals["data"]
	if !ok {
		return domain.Picture{}, domain.NotFound("photo not found")
	}
	return domain.Picture{MimeType: vals["mime"], Data: []byte(data)}, nil
}

// Delete accepts the same ref forms as Load.
func (s *RedisStore) Delete(ctx context.Context, ref string) error {
	key := strings.TrimPrefix(ref, RefPrefix)
	if err := s.client.Del(ctx, keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("photos: delete %s: %w", key, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
