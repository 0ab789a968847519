package tts

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// Cache is an in-memory TTS response cache with a total byte budget.
// Eviction removes oldest-accessed entries until the budget holds again;
// there is no TTL and no persistence, size pressure is the only trigger.
//
// The worker pool and HTTP handlers hit this concurrently, so all mutation
// happens under the mutex.
type Cache struct {
	mu      sync.Mutex
	budget  int64
	size    int64
	entries map[string]*list.Element
	order   *list.List // front = least recently accessed

	hits      int64
	misses    int64
	evictions int64
}

type cacheEntry struct {
	key        string
	data       []byte
	lastAccess time.Time
}

// CacheStats is a point-in-time snapshot for the health endpoint.
type CacheStats struct {
	Entries     int   `json:"entries"`
	SizeBytes   int64 `json:"size_bytes"`
	BudgetBytes int64 `json:"budget_bytes"`
	Hits        int64 `json:"hits"`
	Misses      int64 `json:"misses"`
	Evictions   int64 `json:"evictions"`
}

// NewCache creates a cache with the given byte budget.
func NewCache(budgetBytes int64) *Cache {
	return &Cache{
		budget:  budgetBytes,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// CacheKey derives the deterministic key for one synthesis request: a hash
// over the ordered (voice, model, format, normalized text) tuple. Any field
// change produces a different key; there is no fuzzy matching.
func CacheKey(voiceID, modelID, outputFormat, text string) string {
	normalized := strings.Join(strings.Fields(text), " ")
	h := sha256.New()
	for _, part := range []string{voiceID, modelID, outputFormat, normalized} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached bytes and refreshes the entry's access time.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}
	ent := el.Value.(*cacheEntry)
	ent.lastAccess = time.Now()
	c.order.MoveToBack(el)
	c.hits++
	return ent.data, true
}

// Put inserts an entry and evicts oldest-accessed entries until the total
// size fits the budget. An entry larger than the whole budget is evicted
// immediately after insertion, leaving the cache empty rather than over.
func (c *Cache) Put(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		ent := el.Value.(*cacheEntry)
		c.size += int64(len(data)) - int64(len(ent.data))
		ent.data = data
		ent.lastAccess = time.Now()
		c.order.MoveToBack(el)
	} else {
		ent := &cacheEntry{key: key, data: data, lastAccess: time.Now()}
		c.entries[key] = c.order.PushBack(ent)
		c.size += int64(len(data))
	}

	for c.size > c.budget && c.order.Len() > 0 {
		front := c.order.Front()
		ent := front.Value.(*cacheEntry)
		c.order.Remove(front)
		delete(c.entries, ent.key)
		c.size -= int64(len(ent.data))
		c.evictions++
	}
}

// Stats returns a snapshot of the cache counters.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{
		Entries:     len(c.entries),
		SizeBytes:   c.size,
		BudgetBytes: c.budget,
		Hits:        c.hits,
		Misses:      c.misses,
		Evictions:   c.evictions,
	}
}
