package routing

import (
	"crypto/md5"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"binbird-backend/internal/models"
)

// ResultCache keeps optimizer answers so re-planning the same stops does
// not hit the optimizer again
type ResultCache struct {
	cache      map[string]*CacheEntry
	mutex      sync.RWMutex
	maxEntries int
	ttl        time.Duration
	stats      CacheStats
	done       chan struct{}
	once       sync.Once
}

// CacheEntry represents a cached optimizer result
type CacheEntry struct {
	Result       models.OptimizeResult
	CreatedAt    time.Time
	LastAccessed time.Time
	HitCount     int
}

// CacheStats tracks cache performance
type CacheStats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	mutex     sync.RWMutex
}

// NewResultCache creates a cache and starts its expiry sweep
func NewResultCache(maxEntries int, ttl time.Duration) *ResultCache {
	if maxEntries <= 0 {
		maxEntries = 1000
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	cache := &ResultCache{
		cache:      make(map[string]*CacheEntry),
		maxEntries: maxEntries,
		ttl:        ttl,
		done:       make(chan struct{}),
	}

	go cache.cleanupExpired()

	return cache
}

// Signature identifies a request. Coordinates are rounded to polyline
// precision so float noise does not cause misses.
func Signature(req models.OptimizeRequest) string {
	var sb strings.Builder
	write := func(c models.Coordinates) {
		fmt.Fprintf(&sb, "%.5f,%.5f;", c.Lat, c.Lng)
	}
	write(req.Start)
	write(req.End)
	for _, w := range req.Waypoints {
		write(w)
	}

	hash := md5.Sum([]byte(sb.String()))
	return fmt.Sprintf("%x", hash[:8])
}

// Get returns a cached result for signature
func (c *ResultCache) Get(signature string) (*models.OptimizeResult, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, found := c.cache[signature]
	if !found {
		c.recordMiss()
		return nil, false
	}

	if time.Since(entry.CreatedAt) > c.ttl {
		delete(c.cache, signature)
		c.recordMiss()
		c.recordEviction()
		return nil, false
	}

	entry.LastAccessed = time.Now()
	entry.HitCount++
	c.recordHit()

	result := entry.Result
	result.Order = append([]int(nil), entry.Result.Order...)
	return &result, true
}

// Set stores a result under signature
func (c *ResultCache) Set(signature string, result models.OptimizeResult) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if _, exists := c.cache[signature]; !exists && len(c.cache) >= c.maxEntries {
		c.evictOldest()
	}

	result.Order = append([]int(nil), result.Order...)
	c.cache[signature] = &CacheEntry{
		Result:       result,
		CreatedAt:    time.Now(),
		LastAccessed: time.Now(),
	}
}

// Close stops the expiry sweep
func (c *ResultCache) Close() {
	c.once.Do(func() { close(c.done) })
}

// evictOldest removes the least recently used entry
func (c *ResultCache) evictOldest() {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.cache {
		if oldestKey == "" || entry.LastAccessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.LastAccessed
		}
	}

	if oldestKey != "" {
		delete(c.cache, oldestKey)
		c.recordEviction()
		log.Printf("🗑️  Evicted oldest optimizer cache entry: %s", oldestKey)
	}
}

func (c *ResultCache) cleanupExpired() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.mutex.Lock()
			now := time.Now()
			for key, entry := range c.cache {
				if now.Sub(entry.CreatedAt) > c.ttl {
					delete(c.cache, key)
					c.recordEviction()
				}
			}
			c.mutex.Unlock()
		}
	}
}

func (c *ResultCache) recordHit() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Hits++
}

func (c *ResultCache) recordMiss() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Misses++
}

func (c *ResultCache) recordEviction() {
	c.stats.mutex.Lock()
	defer c.stats.mutex.Unlock()
	c.stats.Evictions++
}

// GetStats returns cache statistics
func (c *ResultCache) GetStats() map[string]interface{} {
	c.stats.mutex.RLock()
	defer c.stats.mutex.RUnlock()

	c.mutex.RLock()
	cacheSize := len(c.cache)
	c.mutex.RUnlock()

	hitRate := 0.0
	total := c.stats.Hits + c.stats.Misses
	if total > 0 {
		hitRate = float64(c.stats.Hits) / float64(total) * 100
	}

	return map[string]interface{}{
		"cache_size":  cacheSize,
		"max_entries": c.maxEntries,
		"hits":        c.stats.Hits,
		"misses":      c.stats.Misses,
		"hit_rate":    fmt.Sprintf("%.2f%%", hitRate),
		"evictions":   c.stats.Evictions,
		"ttl_hours":   int(c.ttl.Hours()),
	}
}
