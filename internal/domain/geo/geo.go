// Package geo provides coordinate validation and great-circle distance math.
package geo

import (
	"math"

	"github.com/agrolink/geo-discovery-service/internal/errs"
)

const earthRadiusKm = 6371.0

// MaxRadiusKm caps radius queries to keep a single request from scanning
// the whole catalog.
const MaxRadiusKm = 500.0

type Point struct {
	Lat float64
	Lon float64
}

func (p Point) Validate(op string) error {
	fields := map[string]string{}

	if math.IsNaN(p.Lat) || math.IsInf(p.Lat, 0) || p.Lat < -90 || p.Lat > 90 {
		fields["latitude"] = "must be between -90 and 90"
	}
	if math.IsNaN(p.Lon) || math.IsInf(p.Lon, 0) || p.Lon < -180 || p.Lon > 180 {
		fields["longitude"] = "must be between -180 and 180"
	}
	if len(fields) > 0 {
		return errs.E(errs.KindInvalid, "INVALID_COORDINATES", op, "invalid coordinates", fields, nil)
	}

	return nil
}

// ValidateRadius enforces 0 < radiusKm <= MaxRadiusKm.
func ValidateRadius(radiusKm float64, op string) error {
	if math.IsNaN(radiusKm) || radiusKm <= 0 || radiusKm > MaxRadiusKm {
		return errs.E(errs.KindInvalid, "INVALID_RADIUS", op, "invalid radius",
			map[string]string{"radius": "must be greater than 0 and at most 500 km"}, nil)
	}
	return nil
}

// HaversineKm returns the great-circle distance between two points in
// kilometers, rounded to two decimals. Assumes a spherical earth.
func HaversineKm(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return Round2(earthRadiusKm * c)
}

// Round2 rounds to two decimal places, the precision distances are
// reported at throughout the API.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
