package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/use-agent/gmapreviews/models"
)

// entry holds a cached response with its creation timestamp.
type entry struct {
	response  models.ReviewsResponse
	createdAt time.Time
}

// Cache is a simple in-memory cache for completed review sessions.
// It is safe for concurrent use.
type Cache struct {
	mu         sync.RWMutex
	store      map[string]*entry
	maxEntries int
	now        func() time.Time
}

// New creates a new Cache with the given maximum number of entries.
// A background goroutine runs every 5 minutes to evict entries older
// than 1 hour.
func New(maxEntries int) *Cache {
	c := newCache(maxEntries, time.Now)
	go c.cleanupLoop()
	return c
}

func newCache(maxEntries int, now func() time.Time) *Cache {
	if maxEntries <= 0 {
		maxEntries = 1
	}
	return &Cache{
		store:      make(map[string]*entry),
		maxEntries: maxEntries,
		now:        now,
	}
}

// Key identifies a session by place URL and review cap.
func Key(placeURL string, maxReviews int) string {
	h := sha256.New()
	h.Write([]byte(placeURL))
	h.Write([]byte("|"))
	h.Write([]byte(strconv.Itoa(maxReviews)))
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns a copy of the cached response if it exists and is younger
// than maxAgeMs milliseconds. maxAgeMs <= 0 never hits.
func (c *Cache) Get(key string, maxAgeMs int) (models.ReviewsResponse, bool) {
	if maxAgeMs <= 0 {
		return models.ReviewsResponse{}, false
	}

	c.mu.RLock()
	e, ok := c.store[key]
	c.mu.RUnlock()

	if !ok {
		return models.ReviewsResponse{}, false
	}

	maxAge := time.Duration(maxAgeMs) * time.Millisecond
	if c.now().Sub(e.createdAt) > maxAge {
		return models.ReviewsResponse{}, false
	}

	return e.response, true
}

// Set stores a response. Only successful sessions are worth caching;
// failed ones are ignored. At capacity the oldest entry is evicted.
func (c *Cache) Set(key string, resp models.ReviewsResponse) {
	if !resp.Success {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.store[key]; !exists && len(c.store) >= c.maxEntries {
		var oldestKey string
		var oldest time.Time
		for k, e := range c.store {
			if oldestKey == "" || e.createdAt.Before(oldest) {
				oldestKey, oldest = k, e.createdAt
			}
		}
		delete(c.store, oldestKey)
	}

	resp.CacheStatus = ""
	c.store[key] = &entry{
		response:  resp,
		createdAt: c.now(),
	}
}

// Len reports the number of cached responses.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

// cleanupLoop evicts entries older than 1 hour every 5 minutes.
func (c *Cache) cleanupLoop() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		c.evictBefore(c.now().Add(-1 * time.Hour))
	}
}

func (c *Cache) evictBefore(cutoff time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, e := range c.store {
		if e.createdAt.Before(cutoff) {
			delete(c.store, k)
		}
	}
}
