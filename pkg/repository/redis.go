package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/example/hottubshop/pkg/config"
	"github.com/example/hottubshop/pkg/session"
	"github.com/go-redis/redis/v8"
)

// RedisSessionStore keeps every browser session as a redis hash "session:<id>" whose TTL is
// refreshed on each write.
type RedisSessionStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisSessionStore(cfg *config.RedisConfig, ttl time.Duration) *RedisSessionStore {
	return NewRedisSessionStoreFromClient(redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,
	}), ttl)
}

func NewRedisSessionStoreFromClient(client *redis.Client, ttl time.Duration) *RedisSessionStore {
	return &RedisSessionStore{client: client, ttl: ttl}
}

func (r *RedisSessionStore) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *RedisSessionStore) Close() error {
	return r.client.Close()
}

func (r *RedisSessionStore) Open(id string) session.Session {
	return &redisSession{store: r, key: fmt.Sprintf("session:%s", id)}
}

type redisSession struct {
	store *RedisSessionStore
	key   string
}

func (s *redisSession) Get(ctx context.Context, field string) (string, bool, error) {
	v, err := s.store.client.HGet(ctx, s.key, field).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

func (s *redisSession) Set(ctx context.Context, field, value string) error {
	_, err := s.store.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HSet(ctx, s.key, field, value)
		if s.store.ttl > 0 {
			pipe.Expire(ctx, s.key, s.store.ttl)
		}
		return nil
	})
	return err
}

func (s *redisSession) Remove(ctx context.Context, field string) error {
	return s.store.client.HDel(ctx, s.key, field).Err()
}
