// SPDX-License-Identifier: MIT

// Package cache stores model completions so identical prompts are not billed
// twice across refresh runs.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/opencivic/crimetrend/internal/config"
)

// Cache is a completion cache keyed by request fingerprint.
type Cache interface {
	// Get retrieves a cached completion answer.
	Get(ctx context.Context, key string) (string, bool)
	// Set stores a completion answer with the specified TTL.
	Set(ctx context.Context, key string, answer string, ttl time.Duration)
	// Delete removes a single entry.
	Delete(ctx context.Context, key string)
	// Clear removes all entries.
	Clear(ctx context.Context)
	// Stats returns hit/miss counters.
	Stats() Stats
}

// Stats holds cache performance counters.
type Stats struct {
	Hits        int64
	Misses      int64
	Sets        int64
	Evictions   int64
	CurrentSize int
}

// Key fingerprints a completion request. The attachment is the image URL for
// chart sources or the PDF content hash for report sources, so a changed
// input file invalidates the entry even when the prompt is unchanged.
func Key(model, prompt, attachment string) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(prompt))
	h.Write([]byte{0})
	h.Write([]byte(attachment))
	return "completion:" + hex.EncodeToString(h.Sum(nil))
}

// New selects a backend from config: disabled yields a no-op cache, a Redis
// address yields Redis with fallback to memory when the connection fails.
func New(cfg config.CacheConfig, logger zerolog.Logger) Cache {
	if !cfg.Enabled {
		return NewNoOpCache()
	}
	if cfg.RedisAddr != "" {
		c, err := NewRedisCache(RedisConfig{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		}, logger)
		if err == nil {
			return c
		}
		logger.Warn().Err(err).
			Str("event", "cache.redis.fallback").
			Msg("redis unavailable, using in-memory completion cache")
	}
	return NewMemoryCache(10 * time.Minute)
}

type entry struct {
	answer     string
	expiration time.Time
}

func (e *entry) isExpired() bool {
	return time.Now().After(e.expiration)
}

type memoryCache struct {
	mu      sync.RWMutex
	entries map[string]*entry
	stats   Stats
	janitor *janitor
}

// NewMemoryCache creates an in-memory cache. A positive cleanupInterval
// starts a background sweep for expired entries.
func NewMemoryCache(cleanupInterval time.Duration) Cache {
	c := &memoryCache{entries: make(map[string]*entry)}
	if cleanupInterval > 0 {
		c.janitor = &janitor{
			interval: cleanupInterval,
			stop:     make(chan struct{}),
		}
		go c.janitor.run(c)
	}
	return c
}

func (c *memoryCache) Get(_ context.Context, key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, found := c.entries[key]
	if !found || e.isExpired() {
		c.stats.Misses++
		return "", false
	}
	c.stats.Hits++
	return e.answer, true
}

func (c *memoryCache) Set(_ context.Context, key string, answer string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = &entry{
		answer:     answer,
		expiration: time.Now().Add(ttl),
	}
	c.stats.Sets++
}

func (c *memoryCache) Delete(_ context.Context, key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, key)
}

func (c *memoryCache) Clear(_ context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*entry)
}

func (c *memoryCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	stats := c.stats
	stats.CurrentSize = len(c.entries)
	return stats
}

func (c *memoryCache) deleteExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	count := 0
	for key, e := range c.entries {
		if e.isExpired() {
			delete(c.entries, key)
			count++
		}
	}
	c.stats.Evictions += int64(count)
	return count
}

// Stop ends the background sweep goroutine.
func (c *memoryCache) Stop() {
	if c.janitor != nil {
		c.janitor.stop <- struct{}{}
	}
}

// Close implements io.Closer so the daemon shutdown hook can stop the sweep.
func (c *memoryCache) Close() error {
	c.Stop()
	return nil
}

type janitor struct {
	interval time.Duration
	stop     chan struct{}
}

func (j *janitor) run(c *memoryCache) {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.deleteExpired()
		case <-j.stop:
			return
		}
	}
}

type noOpCache struct{}

// NewNoOpCache creates a cache that never stores anything.
func NewNoOpCache() Cache {
	return &noOpCache{}
}

func (c *noOpCache) Get(context.Context, string) (string, bool)          { return "", false }
func (c *noOpCache) Set(context.Context, string, string, time.Duration) {}
func (c *noOpCache) Delete(context.Context, string)                     {}
func (c *noOpCache) Clear(context.Context)                              {}
func (c *noOpCache) Stats() Stats                                       { return Stats{} }
