package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/desertthunder/radiosync/internal/models"
	"github.com/desertthunder/radiosync/internal/shared"
	"github.com/redis/go-redis/v9"
)

// DefaultRedisPrefix namespaces cache keys.
const DefaultRedisPrefix = "radiosync:track:"

const scanBatch = 200

type redisValue struct {
	Track     *models.ResolvedTrack `json:"track"`
	ExpiresAt time.Time             `json:"expires_at"`
}

// RedisStore keeps one key per entry, each with a TTL matching its expiry, so Redis
// evicts entries on its own as well as on save.
type RedisStore struct {
	rdb    *redis.Client
	prefix string
	now    func() time.Time
}

// NewRedisStore wraps an existing client.
func NewRedisStore(rdb *redis.Client, prefix string) *RedisStore {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisStore{rdb: rdb, prefix: prefix, now: time.Now}
}

// OpenRedisStore connects to the server at a redis:// URL and checks the connection.
func OpenRedisStore(ctx context.Context, rawURL string) (*RedisStore, error) {
	opt, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("%w: redis url: %v", shared.ErrInvalidConfig, err)
	}
	rdb := redis.NewClient(opt)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("%w: redis ping: %w", shared.ErrNetwork, err)
	}
	return NewRedisStore(rdb, ""), nil
}

func (s *RedisStore) keys(ctx context.Context) ([]string, error) {
	var keys []string
	iter := s.rdb.Scan(ctx, 0, s.prefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("%w: redis scan: %w", shared.ErrNetwork, err)
	}
	return keys, nil
}

func (s *RedisStore) Load(ctx context.Context) (map[string]Entry, error) {
	keys, err := s.keys(ctx)
	if err != nil {
		return nil, err
	}
	entries := make(map[string]Entry, len(keys))
	if len(keys) == 0 {
		return entries, nil
	}

	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("%w: redis mget: %w", shared.ErrNetwork, err)
	}
	for i, v := range values {
		raw, ok := v.(string)
		if !ok {
			// evicted between SCAN and MGET
			continue
		}
		var rv redisValue
		if err := json.Unmarshal([]byte(raw), &rv); err != nil {
			return nil, fmt.Errorf("%w: redis entry %s: %v", shared.ErrParse, keys[i], err)
		}
		entries[strings.TrimPrefix(keys[i], s.prefix)] = Entry{Track: rv.Track, ExpiresAt: rv.ExpiresAt}
	}
	return entries, nil
}

// Save deletes keys absent from entries and rewrites the rest in one pipeline.
func (s *RedisStore) Save(ctx context.Context, entries map[string]Entry) error {
	existing, err := s.keys(ctx)
	if err != nil {
		return err
	}

	now := s.now()
	_, err = s.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, key := range existing {
			if _, keep := entries[strings.TrimPrefix(key, s.prefix)]; !keep {
				pipe.Del(ctx, key)
			}
		}
		for key, e := range entries {
			ttl := e.ExpiresAt.Sub(now)
			if ttl <= 0 {
				pipe.Del(ctx, s.prefix+key)
				continue
			}
			data, err := json.Marshal(redisValue{Track: e.Track, ExpiresAt: e.ExpiresAt.UTC()})
			if err != nil {
				return fmt.Errorf("failed to encode cache entry: %w", err)
			}
			pipe.Set(ctx, s.prefix+key, data, ttl)
		}
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("%w: redis save: %w", shared.ErrNetwork, err)
	}
	return nil
}

func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
