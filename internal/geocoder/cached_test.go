package geocoder

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/geo-discovery-service/internal/errs"
)

type countingGeocoder struct {
	forwardCalls int
	reverseCalls int
	result       Result
	err          error
}

func (g *countingGeocoder) Geocode(_ context.Context, _ string) (Result, error) {
	g.forwardCalls++
	return g.result, g.err
}

func (g *countingGeocoder) ReverseGeocode(_ context.Context, _, _ float64) (Result, error) {
	g.reverseCalls++
	return g.result, g.err
}

func TestCachedGeocodeHit(t *testing.T) {
	inner := &countingGeocoder{
		result: Result{Lat: 28.6139, Lon: 77.2090, FormattedAddress: "Delhi, India", City: "Delhi"},
	}
	cached := NewCached(inner, 10)

	r1, err := cached.Geocode(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Equal(t, "Delhi", r1.City)

	r2, err := cached.Geocode(context.Background(), "Delhi")
	require.NoError(t, err)
	assert.Equal(t, r1, r2)

	assert.Equal(t, 1, inner.forwardCalls, "second lookup must come from the cache")
}

func TestCachedKeyNormalization(t *testing.T) {
	inner := &countingGeocoder{result: Result{FormattedAddress: "Delhi, India"}}
	cached := NewCached(inner, 10)

	_, _ = cached.Geocode(context.Background(), "Delhi")
	_, _ = cached.Geocode(context.Background(), "  DELHI  ")

	assert.Equal(t, 1, inner.forwardCalls, "trim+lowercase variants share one entry")
}

func TestCachedDistinctQueriesMiss(t *testing.T) {
	inner := &countingGeocoder{result: Result{FormattedAddress: "x"}}
	cached := NewCached(inner, 10)

	_, _ = cached.Geocode(context.Background(), "Delhi")
	_, _ = cached.Geocode(context.Background(), "Mumbai")

	assert.Equal(t, 2, inner.forwardCalls)
}

func TestCachedErrorsNotCached(t *testing.T) {
	inner := &countingGeocoder{
		err: errs.E(errs.KindNotFound, "ADDRESS_NOT_FOUND", "test", "address not found", nil, nil),
	}
	cached := NewCached(inner, 10)

	_, err := cached.Geocode(context.Background(), "nowhere")
	require.Error(t, err)
	_, err = cached.Geocode(context.Background(), "nowhere")
	require.Error(t, err)

	assert.Equal(t, 2, inner.forwardCalls, "failed lookups must be retried")
}

func TestCachedReverseHit(t *testing.T) {
	inner := &countingGeocoder{result: Result{City: "Delhi"}}
	cached := NewCached(inner, 10)

	_, err := cached.ReverseGeocode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)
	_, err = cached.ReverseGeocode(context.Background(), 28.6139, 77.2090)
	require.NoError(t, err)

	assert.Equal(t, 1, inner.reverseCalls)
}

func TestCachedObserverReportsHitsAndMisses(t *testing.T) {
	inner := &countingGeocoder{result: Result{City: "Delhi"}}

	var events []string
	cached := NewCached(inner, 10, WithCacheObserver(func(method string, hit bool) {
		if hit {
			events = append(events, method+":hit")
		} else {
			events = append(events, method+":miss")
		}
	}))

	_, _ = cached.Geocode(context.Background(), "Delhi")
	_, _ = cached.Geocode(context.Background(), "Delhi")

	assert.Equal(t, []string{"forward:miss", "forward:hit"}, events)
}

func TestLRUEviction(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", Result{City: "A"})
	c.put("b", Result{City: "B"})
	c.put("c", Result{City: "C"}) // evicts "a"

	_, ok := c.get("a")
	assert.False(t, ok, "a should have been evicted")

	r, ok := c.get("b")
	assert.True(t, ok)
	assert.Equal(t, "B", r.City)
}

func TestLRURecencyOnGet(t *testing.T) {
	c := newLRUCache(2)

	c.put("a", Result{City: "A"})
	c.put("b", Result{City: "B"})
	_, _ = c.get("a")              // a becomes most recent
	c.put("c", Result{City: "C"}) // evicts "b"

	_, ok := c.get("a")
	assert.True(t, ok)
	_, ok = c.get("b")
	assert.False(t, ok)
}
