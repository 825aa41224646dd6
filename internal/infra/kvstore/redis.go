package kvstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Redis implements Store on top of a go-redis client.
type Redis struct {
	client *redis.Client
}

// NewRedis wraps an existing client. The Store takes ownership and closes it on Close.
func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

// NewRedisFromURL parses a redis:// or rediss:// URL and creates a client.
// No connection is made until the first command; call Ping to verify reachability.
func NewRedisFromURL(rawURL string) (*Redis, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, fmt.Errorf("kvstore: parse redis url: %w", err)
	}
	opts.DialTimeout = 5 * time.Second
	opts.ReadTimeout = 3 * time.Second
	opts.WriteTimeout = 3 * time.Second
	return NewRedis(redis.NewClient(opts)), nil
}

func (r *Redis) Get(ctx context.Context, key string) (string, error) {
	v, err := r.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNil
	}
	if err != nil {
		return "", fmt.Errorf("Get %s: %w", key, err)
	}
	return v, nil
}

func (r *Redis) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	if err := r.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("Set %s: %w", key, err)
	}
	return nil
}

func (r *Redis) Incr(ctx context.Context, key string) (int64, error) {
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("Incr %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) Expire(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	ok, err := r.client.Expire(ctx, key, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("Expire %s: %w", key, err)
	}
	return ok, nil
}

func (r *Redis) LPush(ctx context.Context, key, value string) (int64, error) {
	n, err := r.client.LPush(ctx, key, value).Result()
	if err != nil {
		return 0, fmt.Errorf("LPush %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) LRange(ctx context.Context, key string, start, stop int64) ([]string, error) {
	vals, err := r.client.LRange(ctx, key, start, stop).Result()
	if err != nil {
		return nil, fmt.Errorf("LRange %s: %w", key, err)
	}
	return vals, nil
}

func (r *Redis) LRem(ctx context.Context, key string, count int64, value string) (int64, error) {
	n, err := r.client.LRem(ctx, key, count, value).Result()
	if err != nil {
		return 0, fmt.Errorf("LRem %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) LTrim(ctx context.Context, key string, start, stop int64) error {
	if err := r.client.LTrim(ctx, key, start, stop).Err(); err != nil {
		return fmt.Errorf("LTrim %s: %w", key, err)
	}
	return nil
}

func (r *Redis) LLen(ctx context.Context, key string) (int64, error) {
	n, err := r.client.LLen(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("LLen %s: %w", key, err)
	}
	return n, nil
}

func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

func (r *Redis) Close() error {
	return r.client.Close()
}
