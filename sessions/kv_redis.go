package sessions

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var _ KV = (*RedisKV)(nil)

// RedisKV stores each namespace as one Redis hash. Every write slides the hash's TTL,
// so an idle browser's state expires after ttl.
type RedisKV struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewRedisKV creates a Redis-backed KV. A ttl of zero keeps namespaces forever.
func NewRedisKV(client *redis.Client, ttl time.Duration) *RedisKV {
	return &RedisKV{
		client: client,
		prefix: "planter:kv:",
		ttl:    ttl,
	}
}

// DialRedis connects to addr and verifies the connection with a PING.
func DialRedis(ctx context.Context, addr, password string) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (r *RedisKV) key(namespace string) string {
	return r.prefix + namespace
}

func (r *RedisKV) Get(ctx context.Context, namespace, key string) (string, bool, error) {
	if namespace == "" {
		return "", false, fmt.Errorf("namespace is required")
	}
	val, err := r.client.HGet(ctx, r.key(namespace), key).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("redis hget: %w", err)
	}
	return val, true, nil
}

func (r *RedisKV) Set(ctx context.Context, namespace, key, value string) error {
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if key == "" {
		return fmt.Errorf("key is required")
	}

	pipe := r.client.TxPipeline()
	pipe.HSet(ctx, r.key(namespace), key, value)
	if r.ttl > 0 {
		pipe.Expire(ctx, r.key(namespace), r.ttl)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis hset: %w", err)
	}
	return nil
}

func (r *RedisKV) Delete(ctx context.Context, namespace string, keys ...string) error {
	if namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	if len(keys) == 0 {
		return nil
	}
	if err := r.client.HDel(ctx, r.key(namespace), keys...).Err(); err != nil {
		return fmt.Errorf("redis hdel: %w", err)
	}
	return nil
}
