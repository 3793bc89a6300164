package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTokenCacheEmpty(t *testing.T) {
	cache := NewMemoryTokenCache()

	_, ok := cache.Get()
	assert.False(t, ok)
}

func TestTokenCacheRoundTrip(t *testing.T) {
	cache := NewMemoryTokenCache()
	cache.Set("token-abc", 30*time.Minute)

	token, ok := cache.Get()
	assert.True(t, ok)
	assert.Equal(t, "token-abc", token)
}

func TestTokenCacheExpirySlack(t *testing.T) {
	cache := NewMemoryTokenCache()

	// Anything expiring within the slack window counts as already expired.
	cache.Set("token-abc", 30*time.Second)
	_, ok := cache.Get()
	assert.False(t, ok)

	cache.Set("token-abc", tokenExpirySlack+time.Minute)
	_, ok = cache.Get()
	assert.True(t, ok)
}

func TestTokenCacheClear(t *testing.T) {
	cache := NewMemoryTokenCache()
	cache.Set("token-abc", time.Hour)
	cache.Clear()

	_, ok := cache.Get()
	assert.False(t, ok)
}
