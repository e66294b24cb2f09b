package state

import (
	"context"
	"fmt"

	"github.com/go-redis/redis/v8"
)

// RedisBackend is a PersistenceBackend backed by a Redis server, for
// deployments that need commitment/executor state to survive a process
// restart (MemoryBackend does not).
type RedisBackend struct {
	client *redis.Client
}

// RedisBackendConfig mirrors pkg/config.RedisConfig so callers can build a
// RedisBackend directly from loaded configuration.
type RedisBackendConfig struct {
	Addr     string
	Password string
	DB       int
}

func NewRedisBackend(cfg RedisBackendConfig) *RedisBackend {
	return &RedisBackend{client: redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})}
}

func (r *RedisBackend) Save(ctx context.Context, key string, data []byte) error {
	if err := r.client.Set(ctx, key, data, 0).Err(); err != nil {
		return fmt.Errorf("redis save %q: %w", key, err)
	}
	return nil
}

func (r *RedisBackend) Load(ctx context.Context, key string) ([]byte, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis load %q: %w", key, err)
	}
	return data, nil
}

func (r *RedisBackend) Delete(ctx context.Context, key string) error {
	if err := r.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("redis delete %q: %w", key, err)
	}
	return nil
}

// List scans for keys under prefix using SCAN rather than KEYS, so it stays
// safe to call against a large keyspace without blocking the server.
func (r *RedisBackend) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, prefix+"*", 0).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("redis scan %q: %w", prefix, err)
	}
	return keys, nil
}

func (r *RedisBackend) Close(ctx context.Context) error {
	return r.client.Close()
}
