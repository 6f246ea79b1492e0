// Package cache stores short-lived upstream responses in memory or redis.
package cache

import (
	"context"
	"time"
)

// Cache is a byte-oriented key/value store with per-key TTL
type Cache interface {
	// Get returns the value for key and whether it was present
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}
