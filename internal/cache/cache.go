// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/autobrr/autobrr/pkg/ttlcache"
	"golang.org/x/sync/singleflight"
)

// DefaultTTL matches how long metadata responses stay fresh.
const DefaultTTL = 60 * time.Second

// Recorder observes cache lookups.
type Recorder interface {
	CacheHit()
	CacheMiss()
}

// ComputeFunc produces the value for a missing key.
type ComputeFunc func(ctx context.Context) (json.RawMessage, error)

// Cache is a get-or-compute JSON cache with per-entry expiry. Concurrent
// misses for one key share a single compute call. Errors are never cached.
type Cache struct {
	entries  *ttlcache.Cache[string, json.RawMessage]
	group    singleflight.Group
	recorder Recorder
}

// New returns a Cache whose entries live for ttl unless overridden per call.
func New(ttl time.Duration, recorder Recorder) *Cache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Cache{
		entries:  ttlcache.New(ttlcache.Options[string, json.RawMessage]{}.SetDefaultTTL(ttl)),
		recorder: recorder,
	}
}

// GetOrCompute returns the cached value for key or runs compute and caches
// its result. A zero ttl uses the cache default.
func (c *Cache) GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute ComputeFunc) (json.RawMessage, error) {
	if v, ok := c.entries.Get(key); ok {
		c.hit()
		return v, nil
	}
	c.miss()

	if ttl <= 0 {
		ttl = ttlcache.DefaultTTL
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		if v, ok := c.entries.Get(key); ok {
			return v, nil
		}
		v, err := compute(ctx)
		if err != nil {
			return nil, err
		}
		c.entries.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(json.RawMessage), nil
}

// Delete drops key.
func (c *Cache) Delete(key string) {
	c.entries.Delete(key)
}

// Close stops the expiry janitor.
func (c *Cache) Close() {
	c.entries.Close()
}

func (c *Cache) hit() {
	if c.recorder != nil {
		c.recorder.CacheHit()
	}
}

func (c *Cache) miss() {
	if c.recorder != nil {
		c.recorder.CacheMiss()
	}
}
