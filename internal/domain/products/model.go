// Package products provides domain models and pure filtering, grouping
// and sorting logic for nearby-product results.
package products

import (
	"time"

	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
)

type Product struct {
	ID       int64
	SellerID int64
	Name     string
	Category string
	Price    float64
	Unit     string
	Organic  bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// NearbyProduct is a product returned by a radius query together with
// its seller attribution and the seller's distance from the caller.
type NearbyProduct struct {
	Product
	SellerName string
	FarmName   string
	SellerCity string
	Coordinate *geo.Point
	DistanceKm float64
}

// SellerGroup collects one seller's products from a flat nearby-product
// list. Every product in the group shares the seller's distance.
type SellerGroup struct {
	SellerID   int64
	SellerName string
	FarmName   string
	City       string
	DistanceKm float64
	Products   []NearbyProduct
}

// Filter holds optional product post-filters. All set filters are ANDed.
type Filter struct {
	Category string
	MinPrice *float64
	MaxPrice *float64
	Organic  *bool
}

func (f Filter) IsZero() bool {
	return f.Category == "" && f.MinPrice == nil && f.MaxPrice == nil && f.Organic == nil
}
