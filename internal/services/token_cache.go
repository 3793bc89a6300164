package services

import (
	"sync"
	"time"
)

// tokenExpirySlack treats tokens expiring within a minute as already expired,
// so a push never starts with a token about to die server-side.
const tokenExpirySlack = 60 * time.Second

// TokenCache holds the OA bearer credential across dispatch attempts.
// Concurrent refreshes race last-write-wins; a stale-but-valid read is fine.
type TokenCache interface {
	Get() (token string, ok bool)
	Set(token string, ttl time.Duration)
	Clear()
}

type memoryTokenCache struct {
	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewMemoryTokenCache() TokenCache {
	return &memoryTokenCache{}
}

func (c *memoryTokenCache) Get() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == "" || !c.expiresAt.After(time.Now().Add(tokenExpirySlack)) {
		return "", false
	}
	return c.token, true
}

func (c *memoryTokenCache) Set(token string, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = token
	c.expiresAt = time.Now().Add(ttl)
}

func (c *memoryTokenCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = ""
	c.expiresAt = time.Time{}
}
