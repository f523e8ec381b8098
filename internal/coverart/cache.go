// Package coverart keeps decoded cover images in memory and serves them by key.
package coverart

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"

	"github.com/genricoloni/mediashell/internal/format"
	lru "github.com/hashicorp/golang-lru/v2"
	"go.uber.org/zap"
)

const keyPrefix = "cover-"

// Key derives the cache key for a media file. The key is computed from the
// file URL of the cleaned absolute path, so different spellings of the same
// path map to the same entry.
func Key(path string) string {
	hash := sha256.Sum256([]byte(format.FileURL(path)))
	return keyPrefix + hex.EncodeToString(hash[:16])
}

// Cache maps cover keys to image bytes.
// With a zero bound entries are never evicted; otherwise least recently used entries go first.
type Cache struct {
	logger  *zap.Logger
	mu      sync.RWMutex
	entries map[string][]byte
	bounded *lru.Cache[string, []byte]
}

// NewCache creates a cache. maxEntries <= 0 means unbounded.
func NewCache(logger *zap.Logger, maxEntries int) *Cache {
	c := &Cache{logger: logger}
	if maxEntries > 0 {
		bounded, err := lru.New[string, []byte](maxEntries)
		if err == nil {
			c.bounded = bounded
			logger.Debug("Cover cache bounded", zap.Int("entries", maxEntries))
			return c
		}
		logger.Warn("Failed to create bounded cover cache, falling back to unbounded", zap.Error(err))
	}
	c.entries = make(map[string][]byte)
	return c
}

// Store saves data under key, replacing any previous entry.
func (c *Cache) Store(key string, data []byte) {
	if key == "" || len(data) == 0 {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.bounded != nil {
		if evicted := c.bounded.Add(key, data); evicted {
			c.logger.Debug("Evicted cover from cache")
		}
		return
	}
	c.entries[key] = data
}

// Lookup returns the bytes stored under key
func (c *Cache) Lookup(key string) ([]byte, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.bounded != nil {
		return c.bounded.Get(key)
	}
	data, ok := c.entries[key]
	return data, ok
}

// Len returns the number of cached covers
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.bounded != nil {
		return c.bounded.Len()
	}
	return len(c.entries)
}
