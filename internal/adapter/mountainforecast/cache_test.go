package mountainforecast

import (
	"context"
	"errors"
	"testing"

	"github.com/couchcryptid/mountain-forecast-etl/internal/observability"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mock for cache tests ---

type countingLister struct {
	calls  int
	result []string
	err    error
}

func (m *countingLister) ElevationURLs(_ context.Context, _ string) ([]string, error) {
	m.calls++
	return m.result, m.err
}

// --- CachedElevations tests ---

func TestCachedElevations_CacheHit(t *testing.T) {
	inner := &countingLister{result: []string{"https://x/peaks/a/forecasts/1000"}}
	metrics := observability.NewMetricsForTesting()
	cached := NewCachedElevations(inner, 10, metrics.ElevationCache)

	r1, err := cached.ElevationURLs(context.Background(), "https://x/peaks/a")
	require.NoError(t, err)
	r2, err := cached.ElevationURLs(context.Background(), "https://x/peaks/a")
	require.NoError(t, err)

	assert.Equal(t, r1, r2)
	assert.Equal(t, 1, inner.calls, "should only call inner once")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ElevationCache.WithLabelValues("hit")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ElevationCache.WithLabelValues("miss")), 0)
}

func TestCachedElevations_EmptyNotCached(t *testing.T) {
	inner := &countingLister{}
	cached := NewCachedElevations(inner, 10, nil)

	_, _ = cached.ElevationURLs(context.Background(), "https://x/peaks/a")
	_, _ = cached.ElevationURLs(context.Background(), "https://x/peaks/a")

	assert.Equal(t, 2, inner.calls, "empty results should not be cached")
}

func TestCachedElevations_ErrorNotCached(t *testing.T) {
	inner := &countingLister{err: errors.New("timeout")}
	cached := NewCachedElevations(inner, 10, nil)

	_, err := cached.ElevationURLs(context.Background(), "https://x/peaks/a")
	require.Error(t, err)
	_, err = cached.ElevationURLs(context.Background(), "https://x/peaks/a")
	require.Error(t, err)

	assert.Equal(t, 2, inner.calls)
}

type perPeakLister struct {
	calls map[string]int
}

func (m *perPeakLister) ElevationURLs(_ context.Context, peakURL string) ([]string, error) {
	m.calls[peakURL]++
	return []string{peakURL + "/forecasts/1000"}, nil
}

func TestCachedElevations_EvictsLeastRecentlyUsedPeak(t *testing.T) {
	inner := &perPeakLister{calls: map[string]int{}}
	cached := NewCachedElevations(inner, 2, nil)
	ctx := context.Background()

	for _, peak := range []string{"https://x/peaks/a", "https://x/peaks/b", "https://x/peaks/a", "https://x/peaks/c", "https://x/peaks/a", "https://x/peaks/b"} {
		_, err := cached.ElevationURLs(ctx, peak)
		require.NoError(t, err)
	}

	assert.Equal(t, 1, inner.calls["https://x/peaks/a"], "a stays cached while in use")
	assert.Equal(t, 2, inner.calls["https://x/peaks/b"], "b was evicted by c")
	assert.Equal(t, 1, inner.calls["https://x/peaks/c"])
}

// --- LRU tests ---

func TestLRU_Eviction(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", []string{"1"})
	c.put("b", []string{"2"})
	c.put("c", []string{"3"}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should be evicted")

	v, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, []string{"2"}, v)
}

func TestLRU_AccessRefreshesEntry(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", []string{"1"})
	c.put("b", []string{"2"})
	c.get("a")                // a is now most recent
	c.put("c", []string{"3"}) // evicts "b"

	_, ok := c.get("a")
	assert.True(t, ok)
	_, ok = c.get("b")
	assert.False(t, ok)
}

func TestLRU_UpdateExisting(t *testing.T) {
	c := newLRUCache(2)
	c.put("a", []string{"1"})
	c.put("a", []string{"2"})

	v, ok := c.get("a")
	assert.True(t, ok)
	assert.Equal(t, []string{"2"}, v)
	assert.Len(t, c.entries, 1)
}
