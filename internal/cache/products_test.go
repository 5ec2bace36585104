package cache

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeClock is an adjustable clock for TTL tests.
type fakeClock struct {
	t time.Time
}

func (f *fakeClock) now() time.Time          { return f.t }
func (f *fakeClock) advance(d time.Duration) { f.t = f.t.Add(d) }

func newTestCache(ttl time.Duration) (*ProductCache, *fakeClock) {
	clk := &fakeClock{t: time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)}
	return NewProductCache(ttl).WithClock(clk.now), clk
}

func TestProductCache_HitWithinTTL(t *testing.T) {
	c, clk := newTestCache(5 * time.Minute)

	fetches := 0
	fetch := func() (interface{}, error) {
		fetches++
		return "value", nil
	}

	v, err := c.GetOrFetch(FeaturedKey(), fetch)
	assert.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, fetches)

	clk.advance(4 * time.Minute)
	v, err = c.GetOrFetch(FeaturedKey(), fetch)
	assert.NoError(t, err)
	assert.Equal(t, "value", v)
	assert.Equal(t, 1, fetches, "second get within TTL must not fetch")
}

func TestProductCache_ExpiryTriggersRefetch(t *testing.T) {
	c, clk := newTestCache(5 * time.Minute)

	fetches := 0
	fetch := func() (interface{}, error) {
		fetches++
		return fetches, nil
	}

	_, _ = c.GetOrFetch(ProductKey("p1"), fetch)
	clk.advance(5 * time.Minute) // Exactly the TTL counts as expired
	v, err := c.GetOrFetch(ProductKey("p1"), fetch)
	assert.NoError(t, err)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, fetches)
}

func TestProductCache_InvalidateForcesFetch(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	fetches := 0
	fetch := func() (interface{}, error) {
		fetches++
		return "x", nil
	}

	_, _ = c.GetOrFetch(CategoryKey("phones"), fetch)
	c.Invalidate(CategoryKey("phones"))
	_, _ = c.GetOrFetch(CategoryKey("phones"), fetch)
	assert.Equal(t, 2, fetches)
}

func TestProductCache_ClearRemovesEverything(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)
	c.Put(FeaturedKey(), 1)
	c.Put(CategoryKey("cars"), 2)
	c.Put(ProductKey("p1"), 3)
	assert.Equal(t, 3, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
}

func TestProductCache_NilIsCached(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	fetches := 0
	fetch := func() (interface{}, error) {
		fetches++
		return nil, nil
	}

	// "Not found" is memoized like any other value.
	v, err := c.GetOrFetch(ProductKey("missing"), fetch)
	assert.NoError(t, err)
	assert.Nil(t, v)

	v, err = c.GetOrFetch(ProductKey("missing"), fetch)
	assert.NoError(t, err)
	assert.Nil(t, v)
	assert.Equal(t, 1, fetches)
}

func TestProductCache_ErrorIsNeverMemoized(t *testing.T) {
	c, _ := newTestCache(5 * time.Minute)

	fetches := 0
	boom := errors.New("remote unavailable")
	fetch := func() (interface{}, error) {
		fetches++
		if fetches == 1 {
			return nil, boom
		}
		return "recovered", nil
	}

	_, err := c.GetOrFetch(FeaturedKey(), fetch)
	assert.ErrorIs(t, err, boom)

	v, err := c.GetOrFetch(FeaturedKey(), fetch)
	assert.NoError(t, err)
	assert.Equal(t, "recovered", v)
	assert.Equal(t, 2, fetches)
}

func TestProductCache_SweepDropsOnlyExpired(t *testing.T) {
	c, clk := newTestCache(5 * time.Minute)

	c.Put(ProductKey("old"), 1)
	clk.advance(4 * time.Minute)
	c.Put(ProductKey("fresh"), 2)
	clk.advance(90 * time.Second) // "old" is now 5m30s, "fresh" 1m30s

	c.sweep()
	assert.Equal(t, 1, c.Len())
	_, ok := c.Get(ProductKey("fresh"))
	assert.True(t, ok)
	_, ok = c.Get(ProductKey("old"))
	assert.False(t, ok)
}
