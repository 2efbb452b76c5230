// Package cache is the query cache shared by every read in the console.
// Entries are keyed by session scope, resource family and parameters, go
// stale after a fixed window and are refetched on the next access.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/lectio/admin-console/internal/metrics"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTTL          = 5 * time.Minute
	DefaultFetchTimeout = 30 * time.Second
)

type Config struct {
	TTL time.Duration
	// FetchTimeout bounds a shared fetch, which keeps running when the
	// caller that started it goes away.
	FetchTimeout time.Duration
}

type Cache struct {
	store        Store
	ttl          time.Duration
	fetchTimeout time.Duration
	group        singleflight.Group
	logger       *logrus.Logger
	now          func() time.Time

	mu   sync.Mutex
	gens map[string]uint64
}

func New(store Store, config Config, logger *logrus.Logger) *Cache {
	if config.TTL <= 0 {
		config.TTL = DefaultTTL
	}
	if config.FetchTimeout <= 0 {
		config.FetchTimeout = DefaultFetchTimeout
	}
	return &Cache{
		store:        store,
		ttl:          config.TTL,
		fetchTimeout: config.FetchTimeout,
		logger:       logger,
		now:          time.Now,
		gens:         make(map[string]uint64),
	}
}

// generation counts the invalidations of a family seen by this process. A
// fetch started under one generation must not store its result once the
// family has moved on.
func (c *Cache) generation(family string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[family]
}

func (c *Cache) bump(families []string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, f := range families {
		c.gens[f]++
	}
}

func (c *Cache) TTL() time.Duration { return c.ttl }

// Fetch returns the cached value for key while it is fresh and otherwise
// calls fn. Concurrent callers for the same key share one call to fn.
// Errors are returned to every waiting caller and never cached.
func Fetch[T any](ctx context.Context, c *Cache, scope string, key Key, fn func(context.Context) (T, error)) (T, error) {
	return FetchWithTTL(ctx, c, scope, key, c.ttl, fn)
}

func FetchWithTTL[T any](ctx context.Context, c *Cache, scope string, key Key, ttl time.Duration, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	full := storeKey(scope, key)

	entry, err := c.store.Get(ctx, full)
	switch {
	case err == nil && c.now().Sub(entry.StoredAt) < ttl:
		var out T
		if err := json.Unmarshal(entry.Data, &out); err == nil {
			metrics.CacheHit(key.Family)
			return out, nil
		}
		c.logger.WithField("key", full).Warn("Discarding undecodable cache entry")
	case err != nil && !errors.Is(err, ErrMiss):
		c.logger.WithError(err).WithField("key", full).Warn("Cache store read failed")
	}

	metrics.CacheMiss(key.Family)

	gen := c.generation(key.Family)
	flight := c.group.DoChan(fmt.Sprintf("%s#%d", full, gen), func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		val, err := fn(fetchCtx)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(val)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s: %w", key.Family, err)
		}
		c.storeFetched(fetchCtx, full, key.Family, gen, data)
		return data, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res = <-flight:
	}
	if res.Err != nil {
		return zero, res.Err
	}

	if res.Shared {
		c.logger.WithField("key", full).Debug("Shared in-flight fetch")
	}

	var out T
	if err := json.Unmarshal(res.Val.([]byte), &out); err != nil {
		return zero, fmt.Errorf("failed to decode %s: %w", key.Family, err)
	}
	return out, nil
}

// storeFetched writes a fetched result unless its family was invalidated
// while the fetch ran. An invalidation racing the write removes it again.
func (c *Cache) storeFetched(ctx context.Context, full, family string, gen uint64, data []byte) {
	if c.generation(family) != gen {
		c.logger.WithField("key", full).Debug("Dropping result fetched before invalidation")
		return
	}
	if err := c.store.Set(ctx, full, Entry{Data: data, StoredAt: c.now()}); err != nil {
		c.logger.WithError(err).WithField("key", full).Warn("Cache store write failed")
		return
	}
	if c.generation(family) != gen {
		if _, err := c.store.DeleteMatching(ctx, full); err != nil {
			c.logger.WithError(err).WithField("key", full).Warn("Failed to drop superseded cache entry")
		}
	}
}

// Invalidate removes every entry of the given families in scope. Use
// AllScopes to reach every session.
func (c *Cache) Invalidate(ctx context.Context, scope string, families ...string) (int, error) {
	c.bump(families)
	total := 0
	for _, family := range families {
		n := 0
		for _, pattern := range familyPatterns(scope, family) {
			deleted, err := c.store.DeleteMatching(ctx, pattern)
			if err != nil {
				return total, fmt.Errorf("failed to invalidate %s: %w", family, err)
			}
			n += deleted
		}
		metrics.Invalidated(family, n)
		total += n
	}

	c.logger.WithFields(logrus.Fields{
		"scope":    scope,
		"families": families,
		"removed":  total,
	}).Debug("Invalidated cache families")

	return total, nil
}

func (c *Cache) InvalidateAll(ctx context.Context, families ...string) (int, error) {
	return c.Invalidate(ctx, AllScopes, families...)
}

// PurgeScope drops every entry of one session.
func (c *Cache) PurgeScope(ctx context.Context, scope string) (int, error) {
	n, err := c.store.DeleteMatching(ctx, scope+"|*")
	if err != nil {
		return n, fmt.Errorf("failed to purge scope: %w", err)
	}
	return n, nil
}

func (c *Cache) Ping(ctx context.Context) error {
	return c.store.Ping(ctx)
}
