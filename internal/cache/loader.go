package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"golang.org/x/sync/singleflight"
)

// Loader reads typed values through a Cache, calling fn on a miss.
// Concurrent misses for the same key share one fn call.
type Loader[T any] struct {
	cache Cache
	group singleflight.Group

	// OnCacheError, if set, is told about cache read or write failures.
	// Such failures fall back to fn and never fail the load.
	OnCacheError func(key string, err error)
}

// NewLoader creates a loader over cache
func NewLoader[T any](cache Cache) *Loader[T] {
	return &Loader[T]{cache: cache}
}

// Get returns the cached value for key or loads, caches and returns fn's result
func (l *Loader[T]) Get(ctx context.Context, key string, ttl time.Duration, fn func(ctx context.Context) (T, error)) (T, error) {
	var zero T

	if data, ok, err := l.cache.Get(ctx, key); err != nil {
		l.cacheError(key, err)
	} else if ok {
		var v T
		err := json.Unmarshal(data, &v)
		if err == nil {
			return v, nil
		}
		l.cacheError(key, fmt.Errorf("decode cached value: %w", err))
	}

	res, err, _ := l.group.Do(key, func() (interface{}, error) {
		v, err := fn(ctx)
		if err != nil {
			return nil, err
		}
		if data, err := json.Marshal(v); err != nil {
			l.cacheError(key, fmt.Errorf("encode value: %w", err))
		} else if err := l.cache.Set(ctx, key, data, ttl); err != nil {
			l.cacheError(key, err)
		}
		return v, nil
	})
	if err != nil {
		return zero, err
	}
	return res.(T), nil
}

// Invalidate drops the cached value for key
func (l *Loader[T]) Invalidate(ctx context.Context, key string) error {
	return l.cache.Delete(ctx, key)
}

func (l *Loader[T]) cacheError(key string, err error) {
	if l.OnCacheError != nil {
		l.OnCacheError(key, err)
	}
}
