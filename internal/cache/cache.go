package cache

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

// ComputeFunc produces the result for a missing key.
type ComputeFunc func(ctx context.Context) (any, error)

// QueryCache memoises aggregation results for the lifetime of the process.
// Concurrent misses on one key share a single computation. Failed
// computations are returned to every waiting caller and never stored.
type QueryCache struct {
	mu      sync.RWMutex
	entries map[Key]any
	group   singleflight.Group
	logger  logrus.FieldLogger
}

// New returns an empty cache.
func New(logger logrus.FieldLogger) *QueryCache {
	return &QueryCache{
		entries: make(map[Key]any),
		logger:  logger.WithField("component", "query_cache"),
	}
}

// Get returns the cached result for key.
func (c *QueryCache) Get(key Key) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.entries[key]
	return v, ok
}

// GetOrCompute returns the cached result for key, computing and storing it
// on a miss. The computation runs without holding the cache lock, and is
// detached from the cancellation of any single caller so that other callers
// waiting on the same key are not failed by it.
func (c *QueryCache) GetOrCompute(ctx context.Context, key Key, fn ComputeFunc) (any, error) {
	if v, ok := c.Get(key); ok {
		lookups.WithLabelValues(key.Kind, "hit").Inc()
		c.logger.WithField("key", key.String()).Debug("hit")
		return v, nil
	}

	ch := c.group.DoChan(key.String(), func() (any, error) {
		// a caller that lost the race may arrive after the result was published
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		lookups.WithLabelValues(key.Kind, "miss").Inc()
		start := time.Now()
		v, err := fn(context.WithoutCancel(ctx))
		elapsed := time.Since(start)
		computeSeconds.WithLabelValues(key.Kind).Observe(elapsed.Seconds())

		log := c.logger.WithFields(logrus.Fields{"kind": key.Kind, "key": key.String(), "duration": elapsed})
		if err != nil {
			computeErrors.WithLabelValues(key.Kind).Inc()
			log.WithError(err).Warn("compute failed")
			return nil, err
		}
		c.mu.Lock()
		if _, exists := c.entries[key]; !exists {
			entries.WithLabelValues(key.Kind).Inc()
		}
		c.entries[key] = v
		c.mu.Unlock()
		log.Info("computed")
		return v, nil
	})

	select {
	case res := <-ch:
		if res.Shared {
			lookups.WithLabelValues(key.Kind, "shared").Inc()
		}
		return res.Val, res.Err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Len returns the number of cached results.
func (c *QueryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CountByKind returns the number of cached results per aggregation kind.
func (c *QueryCache) CountByKind() map[string]int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]int)
	for k := range c.entries {
		out[k.Kind]++
	}
	return out
}

// Fetch is a typed wrapper around GetOrCompute.
func Fetch[T any](ctx context.Context, c *QueryCache, key Key, fn func(ctx context.Context) (T, error)) (T, error) {
	v, err := c.GetOrCompute(ctx, key, func(ctx context.Context) (any, error) {
		return fn(ctx)
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return v.(T), nil
}
