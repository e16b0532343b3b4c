package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestListBounds(t *testing.T) {
	lo, hi, ok := listBounds(5, 0, -1)
	assert.True(t, ok)
	assert.EqualValues(t, 0, lo)
	assert.EqualValues(t, 4, hi)

	_, _, ok = listBounds(0, 0, -1)
	assert.False(t, ok)

	lo, hi, ok = listBounds(3, -2, 10)
	assert.True(t, ok)
	assert.EqualValues(t, 1, lo)
	assert.EqualValues(t, 2, hi)
}

func TestTTLCache(t *testing.T) {
	c := NewTTLCache[string, int](20*time.Millisecond, time.Minute)
	t.Cleanup(c.Close)

	c.Set("a", 1)
	v, ok := c.Get("a")
	assert.True(t, ok)
	assert.Equal(t, 1, v)

	c.Delete("a")
	_, ok = c.Get("a")
	assert.False(t, ok)

	c.Set("b", 2)
	time.Sleep(40 * time.Millisecond)
	_, ok = c.Get("b")
	assert.False(t, ok)
	assert.Equal(t, 1, c.Len())
}
