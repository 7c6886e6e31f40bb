// Package sellers provides domain models for marketplace sellers and
// their location profiles.
package sellers

import (
	"strings"
	"time"

	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
	"github.com/agrolink/geo-discovery-service/internal/errs"
)

type Seller struct {
	ID       int64
	Name     string
	FarmName string

	// Location profile. Coordinate is nil when geolocation was never
	// captured; such sellers are excluded from radius queries but
	// remain findable by text search.
	Coordinate *geo.Point
	Address    string
	City       string
	State      string
	Country    string
	PostalCode string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NearbySeller is a seller returned by a radius query, ranked by
// distance from the caller.
type NearbySeller struct {
	Seller
	DistanceKm float64
}

// LocationResult is a seller returned by text-only location search,
// carrying an aggregate product count instead of a distance.
type LocationResult struct {
	Seller
	ProductCount int
}

// CityCount is one row of the popular-cities aggregate.
type CityCount struct {
	City        string
	SellerCount int
}

// Stats summarizes a seller's catalog for the profile endpoint.
type Stats struct {
	ProductCount int
	AvgPrice     float64
	OrganicCount int
}

type UpdateLocation struct {
	SellerID   int64
	Coordinate geo.Point
	Address    string
	City       string
	State      string
	Country    string
	PostalCode string
}

func (u UpdateLocation) Validate() error {
	const op = "sellers.model.validate_update_location"

	fields := map[string]string{}

	if u.SellerID <= 0 {
		fields["seller_id"] = "must be > 0"
	}
	if err := u.Coordinate.Validate(op); err != nil {
		return err
	}
	if strings.TrimSpace(u.City) == "" && strings.TrimSpace(u.Address) == "" {
		fields["address"] = "address or city is required"
	}

	if len(fields) > 0 {
		return errs.E(errs.KindInvalid, "LOCATION_INVALID", op, "invalid location", fields, nil)
	}
	return nil
}

// LocationUpdated is published through the outbox whenever a seller's
// location profile changes.
type LocationUpdated struct {
	SellerID   int64
	Coordinate geo.Point
	City       string
	State      string
	OccurredAt time.Time
}
