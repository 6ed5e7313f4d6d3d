package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"binbird-backend/internal/runstate"

	redis "github.com/redis/go-redis/v9"
)

const redisTimeout = 2 * time.Second

// RedisProvider keeps each scope in its own hash
type RedisProvider struct {
	rdb *redis.Client
}

// OpenRedis connects using a redis:// URL and pings the server
func OpenRedis(url string) (*RedisProvider, error) {
	opt, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}
	rdb := redis.NewClient(opt)

	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("failed to reach redis: %w", err)
	}
	return &RedisProvider{rdb: rdb}, nil
}

// NewRedisProvider wraps an existing client
func NewRedisProvider(rdb *redis.Client) *RedisProvider {
	return &RedisProvider{rdb: rdb}
}

// Area returns the storage area for scope
func (p *RedisProvider) Area(scope string) runstate.Storage {
	return &redisStorage{rdb: p.rdb, hash: hashName(scope)}
}

// Close closes the client
func (p *RedisProvider) Close() error {
	return p.rdb.Close()
}

func hashName(scope string) string { return "binbird:storage:" + scope }

type redisStorage struct {
	rdb  *redis.Client
	hash string
}

func (s *redisStorage) GetItem(key string) (string, bool, error) {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	value, err := s.rdb.HGet(ctx, s.hash, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *redisStorage) SetItem(key, value string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := s.rdb.HSet(ctx, s.hash, key, value).Err(); err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *redisStorage) RemoveItem(key string) error {
	ctx, cancel := context.WithTimeout(context.Background(), redisTimeout)
	defer cancel()

	if err := s.rdb.HDel(ctx, s.hash, key).Err(); err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}
