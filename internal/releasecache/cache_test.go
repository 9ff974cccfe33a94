package releasecache_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/orchestrd/orchestrd/internal/releasecache"
)

func TestCache_SetGet(t *testing.T) {
	c := releasecache.New[string](time.Minute)
	c.Set("fp-1", "release-title")
	v, ok := c.Get("fp-1")
	assert.True(t, ok)
	assert.Equal(t, "release-title", v)
}

func TestCache_ExpiresAfterTTL(t *testing.T) {
	c := releasecache.New[int](10 * time.Millisecond)
	c.Set("fp-1", 42)
	time.Sleep(20 * time.Millisecond)
	_, ok := c.Get("fp-1")
	assert.False(t, ok)
}

func TestCache_Sweep(t *testing.T) {
	c := releasecache.New[int](10 * time.Millisecond)
	c.Set("a", 1)
	c.Set("b", 2)
	time.Sleep(20 * time.Millisecond)
	evicted := c.Sweep()
	assert.Equal(t, 2, evicted)
	assert.Equal(t, 0, c.Len())
}

func TestCache_Delete(t *testing.T) {
	c := releasecache.New[int](time.Minute)
	c.Set("a", 1)
	c.Delete("a")
	_, ok := c.Get("a")
	assert.False(t, ok)
}
