// Package keycache implements the PBKDF2 result cache of spec.md §4.7:
// a bounded map from (blake3(master_secret), blake3(salt)) to derived
// (enc_key, mac_key), so many files sharing one salt (or many salts
// sharing one master secret) amortize the 256,000-iteration PBKDF2
// cost. Grounded in the original Rust implementation's
// CachedKeyValidator (original_source/core/src/wechat/decrypt/
// cached_key_validator.rs) — a reader-writer-locked HashMap plus atomic
// stat counters — translated to a Go sync.RWMutex and atomic.Int64s.
package keycache

import (
	"sync"
	"sync/atomic"

	"lukechampine.com/blake3"

	"github.com/rkoshiba/wxforensic/internal/model"
	"github.com/rkoshiba/wxforensic/internal/pagecrypto"
)

// DefaultMaxEntries matches the original's CacheConfig::default
// (max_memory_entries = 1000).
const DefaultMaxEntries = 1000

// Cache is a bounded, concurrency-safe PBKDF2 result cache.
type Cache struct {
	cfg pagecrypto.Config

	mu         sync.RWMutex
	entries    map[model.CacheKey]model.DerivedKeys
	maxEntries int

	hits, misses, computations atomic.Int64
}

// New returns a Cache bounded to maxEntries (DefaultMaxEntries if <= 0)
// deriving keys with cfg.
func New(cfg pagecrypto.Config, maxEntries int) *Cache {
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	return &Cache{
		cfg:        cfg,
		entries:    make(map[model.CacheKey]model.DerivedKeys),
		maxEntries: maxEntries,
	}
}

func cacheKey(secret model.MasterSecret, salt model.Salt) model.CacheKey {
	return model.CacheKey{
		KeyHash:  blake3.Sum256(secret[:]),
		SaltHash: blake3.Sum256(salt[:]),
	}
}

// GetOrCompute returns the cached DerivedKeys for (secret, salt),
// computing and storing them on a miss.
func (c *Cache) GetOrCompute(secret model.MasterSecret, salt model.Salt) model.DerivedKeys {
	key := cacheKey(secret, salt)

	c.mu.RLock()
	keys, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return keys
	}

	c.misses.Add(1)
	c.computations.Add(1)
	keys = c.cfg.DeriveKeys(secret, salt)

	c.mu.Lock()
	c.evictIfFullLocked()
	c.entries[key] = keys
	c.mu.Unlock()

	return keys
}

// evictIfFullLocked drops an arbitrary half of the entries on overflow,
// the coarse LRU approximation spec.md §4.7 calls for. Caller holds the
// write lock.
func (c *Cache) evictIfFullLocked() {
	if len(c.entries) < c.maxEntries {
		return
	}
	target := len(c.entries) / 2
	dropped := 0
	for k := range c.entries {
		if dropped >= target {
			break
		}
		delete(c.entries, k)
		dropped++
	}
}

// Stats returns a point-in-time snapshot of the cache's counters.
func (c *Cache) Stats() model.Stats {
	return model.Stats{
		CacheHits:   c.hits.Load(),
		CacheMisses: c.misses.Load(),
		PBKDF2Runs:  c.computations.Load(),
	}
}

// Size returns the current number of cached entries.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Clear empties the cache.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[model.CacheKey]model.DerivedKeys)
}
