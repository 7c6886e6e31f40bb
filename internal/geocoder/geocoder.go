// Package geocoder defines the forward/reverse geocoding collaborator
// used by the discovery service.
package geocoder

import "context"

// Result contains the location data returned by a geocoding provider.
type Result struct {
	Lat              float64
	Lon              float64
	FormattedAddress string
	City             string
	State            string
	Country          string
	PostalCode       string
	PlaceID          string
}

type Geocoder interface {
	// Geocode resolves a free-text address or place query to coordinates.
	// Returns errs.KindNotFound when the provider has no match and
	// errs.KindUnavailable on transport failure.
	Geocode(ctx context.Context, query string) (Result, error)

	// ReverseGeocode resolves coordinates to postal address components.
	// Same failure modes as Geocode.
	ReverseGeocode(ctx context.Context, lat, lon float64) (Result, error)
}
