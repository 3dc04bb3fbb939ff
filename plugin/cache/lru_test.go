package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLRUCache(t *testing.T) {
	t.Run("Set_And_Get", func(t *testing.T) {
		c := NewLRUCache[string](10, time.Hour)
		c.Set("a", "alpha", 0)

		v, ok := c.Get("a")
		assert.True(t, ok)
		assert.Equal(t, "alpha", v)

		_, ok = c.Get("missing")
		assert.False(t, ok)
	})

	t.Run("Overwrite", func(t *testing.T) {
		c := NewLRUCache[int](10, time.Hour)
		c.Set("k", 1, 0)
		c.Set("k", 2, 0)

		v, _ := c.Get("k")
		assert.Equal(t, 2, v)
		assert.Equal(t, 1, c.Size())
	})

	t.Run("EvictsLeastRecentlyUsed", func(t *testing.T) {
		c := NewLRUCache[int](2, time.Hour)
		c.Set("a", 1, 0)
		c.Set("b", 2, 0)
		c.Get("a")
		c.Set("c", 3, 0)

		_, ok := c.Get("b")
		assert.False(t, ok, "b should have been evicted")
		_, ok = c.Get("a")
		assert.True(t, ok)
		_, ok = c.Get("c")
		assert.True(t, ok)
	})

	t.Run("TTL_Expiration", func(t *testing.T) {
		c := NewLRUCache[int](10, time.Hour)
		c.Set("short", 1, time.Millisecond)
		time.Sleep(5 * time.Millisecond)

		_, ok := c.Get("short")
		assert.False(t, ok)
	})

	t.Run("CleanupExpired", func(t *testing.T) {
		c := NewLRUCache[int](10, time.Hour)
		c.Set("short", 1, time.Millisecond)
		c.Set("long", 2, 0)
		time.Sleep(5 * time.Millisecond)

		assert.Equal(t, 1, c.CleanupExpired())
		assert.Equal(t, 1, c.Size())
	})

	t.Run("Invalidate", func(t *testing.T) {
		c := NewLRUCache[int](10, time.Hour)
		c.Set("room:1:a", 1, 0)
		c.Set("room:1:b", 2, 0)
		c.Set("room:2:a", 3, 0)

		assert.Equal(t, 2, c.Invalidate("room:1:*"))
		assert.Equal(t, 1, c.Invalidate("room:2:a"))
		assert.Equal(t, 0, c.Invalidate("room:3:a"))
		assert.Equal(t, 0, c.Size())
	})

	t.Run("Clear", func(t *testing.T) {
		c := NewLRUCache[int](0, 0)
		c.Set("a", 1, 0)
		c.Clear()
		assert.Equal(t, 0, c.Size())
	})
}
