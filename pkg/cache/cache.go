// Package cache implements the bounded response cache: an LRU eviction
// policy layered with a TTL, keyed by a fingerprint of the cache-equivalence
// fields of an AgentCommand. A cache hit skips the entire
// ReAct loop for the turn.
package cache

import (
	"container/list"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/codeready-toolchain/agentcore/pkg/corekit"
)

// Fingerprint derives the cache key from the fields of a command that
// determine whether two requests are cache-equivalent: system prompt, user
// prompt, mode, the sorted set of tool names available, and a coarse
// temperature bucket (so 0.701 and 0.703 share a cache entry while 0.7 and
// 0.9 don't).
func Fingerprint(systemPrompt, userPrompt string, mode corekit.Mode, toolNames []string, temperature float64) string {
	sorted := append([]string{}, toolNames...)
	sort.Strings(sorted)

	bucket := int(temperature * 10)

	h := sha256.New()
	fmt.Fprintf(h, "sys:%s\nusr:%s\nmode:%s\ntools:%s\ntemp:%d",
		systemPrompt, userPrompt, mode, strings.Join(sorted, ","), bucket)
	return hex.EncodeToString(h.Sum(nil))
}

type entry struct {
	key       string
	value     corekit.CachedResponse
	expiresAt time.Time
}

// ResponseCache is a bounded, TTL-expiring LRU cache of CachedResponse
// keyed by fingerprint. Zero-valued is not usable; construct via New.
type ResponseCache struct {
	mu       sync.Mutex
	capacity int
	ttl      time.Duration
	now      func() time.Time

	ll    *list.List
	items map[string]*list.Element

	hits   int64
	misses int64
}

// New builds a ResponseCache bounded to capacity entries, each expiring
// ttl after insertion.
func New(capacity int, ttl time.Duration) *ResponseCache {
	if capacity <= 0 {
		capacity = 1000
	}
	return &ResponseCache{
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
		ll:       list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the cached response for key, if present and not expired.
// A hit moves the entry to the front of the LRU list.
func (c *ResponseCache) Get(key string) (corekit.CachedResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return corekit.CachedResponse{}, false
	}
	e := el.Value.(*entry)
	if c.now().After(e.expiresAt) {
		c.ll.Remove(el)
		delete(c.items, key)
		c.misses++
		return corekit.CachedResponse{}, false
	}

	c.ll.MoveToFront(el)
	c.hits++
	return e.value, true
}

// Put inserts key at most once: if key is already present (even if
// expired-but-not-yet-evicted), Put is a no-op. This gives at-most-once
// publish semantics so two racing turns for the same fingerprint don't
// stomp each other's cache entry.
func (c *ResponseCache) Put(key string, value corekit.CachedResponse) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.items[key]; exists {
		return
	}

	e := &entry{key: key, value: value, expiresAt: c.now().Add(c.ttl)}
	el := c.ll.PushFront(e)
	c.items[key] = el

	if c.ll.Len() > c.capacity {
		c.evictOldest()
	}
}

func (c *ResponseCache) evictOldest() {
	el := c.ll.Back()
	if el == nil {
		return
	}
	c.ll.Remove(el)
	delete(c.items, el.Value.(*entry).key)
}

// Stats returns cumulative hit/miss counts, for health reporting.
func (c *ResponseCache) Stats() (hits, misses int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits, c.misses
}

// Len returns the current number of live (not-yet-evicted) entries,
// including ones that are expired but not yet swept.
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ll.Len()
}
