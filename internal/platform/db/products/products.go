package productsdb

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
	"github.com/agrolink/geo-discovery-service/internal/domain/products"
	dberrs "github.com/agrolink/geo-discovery-service/internal/platform/db/errs"
)

type Repository struct {
	exec sqlx.ExtContext
}

func New(exec sqlx.ExtContext) *Repository { return &Repository{exec: exec} }

// FindNearby returns products whose seller lies within radiusKm of p,
// with seller attribution and the seller's distance, ordered by
// distance ascending. Products of sellers without a location never
// match. Attribute filters (category, price, organic) are applied in
// the domain layer; the radius membership and distance come from here
// and must agree with geo.HaversineKm within rounding tolerance.
func (r *Repository) FindNearby(ctx context.Context, p geo.Point, radiusKm float64, limit int) ([]products.NearbyProduct, error) {
	const op = "products.repo.find_nearby"

	if limit <= 0 {
		limit = 200
	}
	if limit > 1000 {
		limit = 1000
	}

	const q = `
        SELECT
            p.id,
            p.seller_id,
            p.name,
            p.category,
            p.price,
            p.unit,
            p.organic,
            p.created_at,
            p.updated_at,
            s.name AS seller_name,
            s.farm_name,
            s.city AS seller_city,
            ST_Y(s.location::geometry) AS lat,
            ST_X(s.location::geometry) AS lon,
            ROUND((ST_Distance(s.location, ST_MakePoint($1, $2)::geography) / 1000.0)::numeric, 2) AS distance_km
        FROM products p
        JOIN sellers s ON s.id = p.seller_id
        WHERE s.location IS NOT NULL
          AND ST_DWithin(s.location, ST_MakePoint($1, $2)::geography, $3 * 1000.0)
        ORDER BY distance_km ASC, p.seller_id ASC, p.id ASC
        LIMIT $4;
    `

	var rows []struct {
		ID         int64           `db:"id"`
		SellerID   int64           `db:"seller_id"`
		Name       string          `db:"name"`
		Category   sql.NullString  `db:"category"`
		Price      float64         `db:"price"`
		Unit       sql.NullString  `db:"unit"`
		Organic    bool            `db:"organic"`
		CreatedAt  sql.NullTime    `db:"created_at"`
		UpdatedAt  sql.NullTime    `db:"updated_at"`
		SellerName string          `db:"seller_name"`
		FarmName   sql.NullString  `db:"farm_name"`
		SellerCity sql.NullString  `db:"seller_city"`
		Lat        sql.NullFloat64 `db:"lat"`
		Lon        sql.NullFloat64 `db:"lon"`
		DistanceKm float64         `db:"distance_km"`
	}
	if err := sqlx.SelectContext(ctx, r.exec, &rows, q, p.Lon, p.Lat, radiusKm, limit); err != nil {
		return nil, dberrs.Map(err, op)
	}

	out := make([]products.NearbyProduct, 0, len(rows))
	for _, row := range rows {
		np := products.NearbyProduct{
			Product: products.Product{
				ID:       row.ID,
				SellerID: row.SellerID,
				Name:     row.Name,
				Category: row.Category.String,
				Price:    row.Price,
				Unit:     row.Unit.String,
				Organic:  row.Organic,
			},
			SellerName: row.SellerName,
			FarmName:   row.FarmName.String,
			SellerCity: row.SellerCity.String,
			DistanceKm: row.DistanceKm,
		}
		if row.Lat.Valid && row.Lon.Valid {
			np.Coordinate = &geo.Point{Lat: row.Lat.Float64, Lon: row.Lon.Float64}
		}
		if row.CreatedAt.Valid {
			np.CreatedAt = row.CreatedAt.Time
		}
		if row.UpdatedAt.Valid {
			np.UpdatedAt = row.UpdatedAt.Time
		}
		out = append(out, np)
	}
	return out, nil
}
