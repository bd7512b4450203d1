package cache

import (
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache is the default Cache backed by ristretto. Because ristretto
// cannot enumerate keys, a side registry tracks them so Clear can remove by
// prefix.
type RistrettoCache struct {
	backing *ristretto.Cache
	logger  *zap.Logger

	mu   sync.Mutex
	keys map[string]struct{}

	hits   atomic.Uint64
	misses atomic.Uint64
	sets   atomic.Uint64
}

// RistrettoConfig configures the backing store.
type RistrettoConfig struct {
	// MaxEntries bounds the number of cached entries. Defaults to 100k.
	MaxEntries int64

	Logger *zap.Logger
}

// NewRistretto builds a RistrettoCache.
func NewRistretto(cfg RistrettoConfig) (*RistrettoCache, error) {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 100_000
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	backing, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.MaxEntries * 10,
		MaxCost:     cfg.MaxEntries,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("create ristretto cache: %w", err)
	}

	return &RistrettoCache{
		backing: backing,
		logger:  cfg.Logger,
		keys:    make(map[string]struct{}),
	}, nil
}

func (c *RistrettoCache) Get(key string) (interface{}, bool) {
	v, ok := c.backing.Get(key)
	if !ok {
		c.misses.Add(1)
		MissesTotal.Inc()
		return nil, false
	}
	c.hits.Add(1)
	HitsTotal.Inc()
	return v, true
}

func (c *RistrettoCache) Set(key string, value interface{}, ttl time.Duration) bool {
	ok := c.backing.SetWithTTL(key, value, 1, ttl)
	if ok {
		c.sets.Add(1)
		c.mu.Lock()
		c.keys[key] = struct{}{}
		c.mu.Unlock()
	}
	return ok
}

func (c *RistrettoCache) SetMany(entries map[string]interface{}, ttl time.Duration) {
	for k, v := range entries {
		c.Set(k, v, ttl)
	}
}

func (c *RistrettoCache) GetMany(keys []string) map[string]interface{} {
	out := make(map[string]interface{}, len(keys))
	for _, k := range keys {
		if v, ok := c.Get(k); ok {
			out[k] = v
		}
	}
	return out
}

func (c *RistrettoCache) Delete(key string) {
	c.backing.Del(key)
	c.mu.Lock()
	delete(c.keys, key)
	c.mu.Unlock()
}

func (c *RistrettoCache) Clear(prefix string) {
	c.mu.Lock()
	var victims []string
	for k := range c.keys {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			victims = append(victims, k)
			delete(c.keys, k)
		}
	}
	c.mu.Unlock()

	for _, k := range victims {
		c.backing.Del(k)
	}
	c.logger.Debug("cache-cleared",
		zap.String("prefix", prefix),
		zap.Int("evicted", len(victims)))
}

func (c *RistrettoCache) Stats() Stats {
	return Stats{
		Hits:   c.hits.Load(),
		Misses: c.misses.Load(),
		Sets:   c.sets.Load(),
	}
}

// Wait blocks until buffered writes have been applied. Tests rely on this
// since ristretto admits writes asynchronously.
func (c *RistrettoCache) Wait() {
	c.backing.Wait()
}

func (c *RistrettoCache) Close() {
	c.backing.Close()
}
