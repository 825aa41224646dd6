// Package kvstore is the durable key-value store used by the audit dead-letter queue.
//
// Store mirrors the subset of Redis commands the service relies on. The Redis
// implementation is used in production; Memory backs local runs and tests.
package kvstore

import (
	"context"
	"errors"
	"time"
)

// ErrNil is returned by Get when the key does not exist.
var ErrNil = errors.New("kvstore: key does not exist")

// Store is a durable key-value store with list operations.
// List indexes follow Redis semantics: 0 is the head, -1 is the tail.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	// Set stores value under key. A zero ttl means the key never expires.
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Incr(ctx context.Context, key string) (int64, error)
	// Expire reports whether the key existed and now carries the ttl.
	Expire(ctx context.Context, key string, ttl time.Duration) (bool, error)

	// LPush prepends value to the list and returns the new list length.
	LPush(ctx context.Context, key, value string) (int64, error)
	LRange(ctx context.Context, key string, start, stop int64) ([]string, error)
	// LRem removes up to |count| occurrences of value (count > 0 from the head,
	// count < 0 from the tail, 0 for all) and returns how many were removed.
	LRem(ctx context.Context, key string, count int64, value string) (int64, error)
	// LTrim keeps only the elements within [start, stop].
	LTrim(ctx context.Context, key string, start, stop int64) error
	LLen(ctx context.Context, key string) (int64, error)

	Ping(ctx context.Context) error
	Close() error
}
