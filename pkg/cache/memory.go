// Package cache provides a thread-safe, in-memory byte store with TTL-based
// expiration and size-bounded eviction. It backs rendered thumbnails.
package cache

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/logger"
	"github.com/zZProgenitorZz/Data-Annotation-Tool/pkg/utils"
)

const (
	DefaultMaxSizeMB = 64
	DefaultTTL       = 10 * time.Minute

	// GCInterval: Expired items cleanup frequency.
	GCInterval = 5 * time.Minute

	// MaxItemSize: larger entries are not worth the heap pressure.
	MaxItemSize = 512 * 1024
)

type Item struct {
	Data      []byte
	ExpiresAt time.Time
	Size      int64
}

type Options struct {
	Enabled   bool
	MaxSizeMB int
	TTL       time.Duration
}

type MemoryCache struct {
	sync.RWMutex
	items     map[string]Item
	totalSize int64
	maxSize   int64
	ttl       time.Duration
	enabled   bool

	now func() time.Time
}

// New builds the cache. A disabled cache accepts every call and stores nothing.
func New(opts Options) *MemoryCache {
	limitMB := int64(opts.MaxSizeMB)
	if limitMB <= 0 {
		limitMB = DefaultMaxSizeMB
	}
	ttl := opts.TTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}

	c := &MemoryCache{
		items:   make(map[string]Item),
		maxSize: limitMB * 1024 * 1024,
		ttl:     ttl,
		enabled: opts.Enabled,
		now:     time.Now,
	}

	if c.enabled {
		logger.LogInfo("Memory Cache Initialized: %d MB Limit, TTL: %s", limitMB, ttl)
	} else {
		logger.LogWarn("Memory Cache is DISABLED via config (Running in pass-through mode).")
	}
	return c
}

// TTL is how long an entry lives after Set.
func (c *MemoryCache) TTL() time.Duration {
	return c.ttl
}

// Set stores a value with the configured TTL.
func (c *MemoryCache) Set(key string, data []byte) {
	if !c.enabled {
		return
	}

	size := int64(len(data))
	if size > c.maxSize/2 || size > MaxItemSize {
		return
	}

	c.Lock()
	defer c.Unlock()

	if oldItem, exists := c.items[key]; exists {
		c.totalSize -= oldItem.Size
		delete(c.items, key)
	}

	if c.totalSize+size > c.maxSize {
		c.prune()
	}

	c.items[key] = Item{
		Data:      data,
		ExpiresAt: c.now().Add(c.ttl),
		Size:      size,
	}
	c.totalSize += size
}

// Get retrieves an item if it exists and hasn't expired.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	if !c.enabled {
		return nil, false
	}

	c.RLock()
	defer c.RUnlock()

	item, found := c.items[key]
	if !found || c.now().After(item.ExpiresAt) {
		return nil, false
	}
	return item.Data, true
}

// Delete explicitly removes an item from the cache.
func (c *MemoryCache) Delete(key string) {
	if !c.enabled {
		return
	}

	c.Lock()
	defer c.Unlock()

	if item, found := c.items[key]; found {
		delete(c.items, key)
		c.totalSize -= item.Size
	}
}

// Len reports the number of stored items, expired or not.
func (c *MemoryCache) Len() int {
	c.RLock()
	defer c.RUnlock()
	return len(c.items)
}

// prune evicts the items closest to expiry until usage drops below 80%.
// The write lock must be held.
func (c *MemoryCache) prune() {
	if len(c.items) == 0 {
		return
	}

	targetSize := int64(float64(c.maxSize) * 0.80)

	type candidate struct {
		Key       string
		ExpiresAt time.Time
		Size      int64
	}

	candidates := make([]candidate, 0, len(c.items))
	for k, v := range c.items {
		candidates = append(candidates, candidate{k, v.ExpiresAt, v.Size})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiresAt.Before(candidates[j].ExpiresAt)
	})

	for _, cand := range candidates {
		if c.totalSize <= targetSize {
			break
		}
		delete(c.items, cand.Key)
		c.totalSize -= cand.Size
	}
}

// collect removes expired items and reports how many and how much.
func (c *MemoryCache) collect() (int, int64) {
	c.Lock()
	defer c.Unlock()

	now := c.now()
	removedCount := 0
	removedBytes := int64(0)
	for k, v := range c.items {
		if now.After(v.ExpiresAt) {
			delete(c.items, k)
			c.totalSize -= v.Size
			removedBytes += v.Size
			removedCount++
		}
	}
	return removedCount, removedBytes
}

// StartGC removes expired items every GCInterval until ctx is done.
func (c *MemoryCache) StartGC(ctx context.Context) {
	if !c.enabled {
		return
	}

	ticker := time.NewTicker(GCInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n, freed := c.collect(); n > 0 {
				logger.LogInfo("[CACHE] GC: Cleaned %d items (%s freed)", n, utils.FormatBytes(freed))
			}
		}
	}
}
