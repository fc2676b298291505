package cache

import (
	"context"

	"golang.org/x/sync/singleflight"
)

// Loader fronts a slow lookup with an LRUCache. Concurrent misses for the
// same key share one call to the load function. Errors are not cached.
type Loader[T any] struct {
	cache *LRUCache[T]
	group singleflight.Group
}

func NewLoader[T any](c *LRUCache[T]) *Loader[T] {
	return &Loader[T]{cache: c}
}

func (l *Loader[T]) Get(ctx context.Context, key string, load func(context.Context) (T, error)) (T, error) {
	if v, ok := l.cache.Get(key); ok {
		return v, nil
	}
	v, err, _ := l.group.Do(key, func() (any, error) {
		if v, ok := l.cache.Get(key); ok {
			return v, nil
		}
		v, err := load(ctx)
		if err != nil {
			return v, err
		}
		l.cache.Set(key, v)
		return v, nil
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}

// Cache exposes the underlying cache, e.g. for invalidation or cleanup
// registration.
func (l *Loader[T]) Cache() *LRUCache[T] {
	return l.cache
}
