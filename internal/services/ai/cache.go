package ai

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL bounds how long a cached response may be served.
const DefaultCacheTTL = 15 * time.Minute

type cacheEntry struct {
	response  map[string]any
	expiresAt time.Time
}

// ResponseCache is an in-process cache of parsed gateway responses, keyed by
// a fuzzy prompt fingerprint so that near-identical prompts (differing only
// in whitespace or casing) can serve a degraded-but-relevant result.
type ResponseCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewResponseCache creates a response cache with the given TTL.
// A non-positive TTL falls back to the default.
func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &ResponseCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// FuzzyKey normalizes a prompt into a cache fingerprint: lowercased,
// whitespace collapsed, then hashed.
func FuzzyKey(prompt string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(prompt), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}

// Get returns the cached response for a prompt, or false when absent or
// expired. Expired entries are removed on read.
func (c *ResponseCache) Get(prompt string) (map[string]any, bool) {
	key := FuzzyKey(prompt)

	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.response, true
}

// Set stores a response under the prompt's fuzzy key.
func (c *ResponseCache) Set(prompt string, response map[string]any) {
	c.SetWithTTL(prompt, response, c.ttl)
}

// SetWithTTL stores a response with an explicit TTL; decision-level cache
// configuration may double the TTL under load.
func (c *ResponseCache) SetWithTTL(prompt string, response map[string]any, ttl time.Duration) {
	if ttl <= 0 {
		ttl = c.ttl
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[FuzzyKey(prompt)] = cacheEntry{
		response:  response,
		expiresAt: c.now().Add(ttl),
	}
}

// Len returns the number of live entries (including not-yet-pruned expired ones).
func (c *ResponseCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
