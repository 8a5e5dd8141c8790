package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGenerationCacheFIFOBoundedEviction(t *testing.T) {
	c := newGenerationCache(2)
	a := newOutboundQueue(0, 4)
	b := newOutboundQueue(4, 4)
	d := newOutboundQueue(8, 4)

	c.put(a)
	c.put(b)
	assert.Equal(t, 2, c.len())

	c.put(d) // a is the oldest retired generation, evicted to make room
	assert.Equal(t, 2, c.len())

	got := c.get()
	assert.Same(t, d, got, "get returns the most recently retired generation")
	got = c.get()
	assert.Same(t, b, got)
	assert.Equal(t, 0, c.len())
	assert.Nil(t, c.get())
}

func TestGenerationCacheZeroCapacityDropsEverything(t *testing.T) {
	c := newGenerationCache(0)
	c.put(newOutboundQueue(0, 4))
	assert.Equal(t, 0, c.len())
	assert.Nil(t, c.get())
}
