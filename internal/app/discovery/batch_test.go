package discovery

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agrolink/geo-discovery-service/internal/errs"
	"github.com/agrolink/geo-discovery-service/internal/geocoder"
)

func TestGeocodeBatchPartialFailure(t *testing.T) {
	g := &stubGeocoder{results: map[string]geocoder.Result{
		"delhi": {Lat: 28.6139, Lon: 77.2090, City: "Delhi"},
	}}
	svc := newTestService(&stubSellersRepo{}, &stubProductsRepo{}, g, nil)

	res, err := svc.GeocodeBatch(context.Background(), []string{"Delhi", "!!!invalid!!!"})
	require.NoError(t, err)

	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Successful)
	assert.Equal(t, 1, res.Failed)

	// Results are matched by index, independent of completion order.
	require.Len(t, res.Results, 2)
	assert.Equal(t, 0, res.Results[0].Index)
	assert.True(t, res.Results[0].Success)
	require.NotNil(t, res.Results[0].Result)
	assert.Equal(t, "Delhi", res.Results[0].Result.City)

	assert.Equal(t, 1, res.Results[1].Index)
	assert.False(t, res.Results[1].Success)
	assert.Nil(t, res.Results[1].Result)
	assert.NotEmpty(t, res.Results[1].Error)
}

func TestGeocodeBatchAllSucceed(t *testing.T) {
	g := &stubGeocoder{results: map[string]geocoder.Result{
		"delhi": {City: "Delhi"},
		"pune":  {City: "Pune"},
	}}
	svc := newTestService(&stubSellersRepo{}, &stubProductsRepo{}, g, nil)

	res, err := svc.GeocodeBatch(context.Background(), []string{"Delhi", "Pune"})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Successful)
	assert.Equal(t, 0, res.Failed)
	assert.Equal(t, 2, g.forwardCalls)
}

func TestGeocodeBatchEmptyRejected(t *testing.T) {
	svc := newTestService(&stubSellersRepo{}, &stubProductsRepo{}, &stubGeocoder{}, nil)

	_, err := svc.GeocodeBatch(context.Background(), nil)
	require.Error(t, err)

	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindInvalid, e.Kind)
}

func TestGeocodeBatchOversizeRejectedBeforeAnyWork(t *testing.T) {
	g := &stubGeocoder{}
	svc := newTestService(&stubSellersRepo{}, &stubProductsRepo{}, g, nil)

	addresses := make([]string, MaxBatchGeocode+1)
	for i := range addresses {
		addresses[i] = fmt.Sprintf("address %d", i)
	}

	_, err := svc.GeocodeBatch(context.Background(), addresses)
	require.Error(t, err)

	e, ok := errs.As(err)
	require.True(t, ok)
	assert.Equal(t, errs.KindInvalid, e.Kind)
	assert.Equal(t, 0, g.forwardCalls, "oversize batch is rejected wholesale")
}
