package sellersdb

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
	"github.com/agrolink/geo-discovery-service/internal/domain/products"
	"github.com/agrolink/geo-discovery-service/internal/domain/sellers"
	dberrs "github.com/agrolink/geo-discovery-service/internal/platform/db/errs"
)

type Repository struct {
	exec sqlx.ExtContext
}

// New accepts any sqlx executor so the same repository works against
// the pool and inside a transaction scope.
func New(exec sqlx.ExtContext) *Repository { return &Repository{exec: exec} }

type dbSeller struct {
	ID         int64           `db:"id"`
	Name       string          `db:"name"`
	FarmName   sql.NullString  `db:"farm_name"`
	Lat        sql.NullFloat64 `db:"lat"`
	Lon        sql.NullFloat64 `db:"lon"`
	Address    sql.NullString  `db:"address"`
	City       sql.NullString  `db:"city"`
	State      sql.NullString  `db:"state"`
	Country    sql.NullString  `db:"country"`
	PostalCode sql.NullString  `db:"postal_code"`
	CreatedAt  sql.NullTime    `db:"created_at"`
	UpdatedAt  sql.NullTime    `db:"updated_at"`
}

func (d dbSeller) toDomain() sellers.Seller {
	out := sellers.Seller{
		ID:         d.ID,
		Name:       d.Name,
		FarmName:   d.FarmName.String,
		Address:    d.Address.String,
		City:       d.City.String,
		State:      d.State.String,
		Country:    d.Country.String,
		PostalCode: d.PostalCode.String,
	}
	if d.Lat.Valid && d.Lon.Valid {
		out.Coordinate = &geo.Point{Lat: d.Lat.Float64, Lon: d.Lon.Float64}
	}
	if d.CreatedAt.Valid {
		out.CreatedAt = d.CreatedAt.Time
	}
	if d.UpdatedAt.Valid {
		out.UpdatedAt = d.UpdatedAt.Time
	}
	return out
}

const selectSellerCols = `
    id,
    name,
    farm_name,
    ST_Y(location::geometry) AS lat,
    ST_X(location::geometry) AS lon,
    address,
    city,
    state,
    country,
    postal_code,
    created_at,
    updated_at
`

// FindNearby returns sellers whose location lies within radiusKm of p,
// ordered by distance ascending. Sellers without a captured location
// never match.
func (r *Repository) FindNearby(ctx context.Context, p geo.Point, radiusKm float64, limit int) ([]sellers.NearbySeller, error) {
	const op = "sellers.repo.find_nearby"

	if limit <= 0 {
		limit = 50
	}
	if limit > 500 {
		limit = 500
	}

	const q = `
        SELECT ` + selectSellerCols + `,
            ROUND((ST_Distance(location, ST_MakePoint($1, $2)::geography) / 1000.0)::numeric, 2) AS distance_km
        FROM sellers
        WHERE location IS NOT NULL
          AND ST_DWithin(location, ST_MakePoint($1, $2)::geography, $3 * 1000.0)
        ORDER BY distance_km ASC, id ASC
        LIMIT $4;
    `

	var rows []struct {
		dbSeller
		DistanceKm float64 `db:"distance_km"`
	}
	if err := sqlx.SelectContext(ctx, r.exec, &rows, q, p.Lon, p.Lat, radiusKm, limit); err != nil {
		return nil, dberrs.Map(err, op)
	}

	out := make([]sellers.NearbySeller, 0, len(rows))
	for _, row := range rows {
		out = append(out, sellers.NearbySeller{
			Seller:     row.toDomain(),
			DistanceKm: row.DistanceKm,
		})
	}
	return out, nil
}

// SearchByLocation matches city, state or address as a case-insensitive
// substring and orders by name. Works for sellers without coordinates.
func (r *Repository) SearchByLocation(ctx context.Context, term string, limit int) ([]sellers.LocationResult, error) {
	const op = "sellers.repo.search_by_location"

	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	const q = `
        SELECT ` + selectSellerCols + `,
            (SELECT COUNT(*) FROM products p WHERE p.seller_id = sellers.id) AS product_count
        FROM sellers
        WHERE city ILIKE '%' || $1 || '%'
           OR state ILIKE '%' || $1 || '%'
           OR address ILIKE '%' || $1 || '%'
        ORDER BY name ASC, id ASC
        LIMIT $2;
    `

	var rows []struct {
		dbSeller
		ProductCount int `db:"product_count"`
	}
	if err := sqlx.SelectContext(ctx, r.exec, &rows, q, term, limit); err != nil {
		return nil, dberrs.Map(err, op)
	}

	out := make([]sellers.LocationResult, 0, len(rows))
	for _, row := range rows {
		out = append(out, sellers.LocationResult{
			Seller:       row.toDomain(),
			ProductCount: row.ProductCount,
		})
	}
	return out, nil
}

// PopularCities counts sellers per non-empty city. Ties are broken
// alphabetically so the ranking is deterministic.
func (r *Repository) PopularCities(ctx context.Context, limit int) ([]sellers.CityCount, error) {
	const op = "sellers.repo.popular_cities"

	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}

	const q = `
        SELECT city, COUNT(*) AS seller_count
        FROM sellers
        WHERE city IS NOT NULL AND city <> ''
        GROUP BY city
        ORDER BY seller_count DESC, city ASC
        LIMIT $1;
    `

	var rows []struct {
		City        string `db:"city"`
		SellerCount int    `db:"seller_count"`
	}
	if err := sqlx.SelectContext(ctx, r.exec, &rows, q, limit); err != nil {
		return nil, dberrs.Map(err, op)
	}

	out := make([]sellers.CityCount, 0, len(rows))
	for _, row := range rows {
		out = append(out, sellers.CityCount{City: row.City, SellerCount: row.SellerCount})
	}
	return out, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (sellers.Seller, error) {
	const op = "sellers.repo.get_by_id"

	const q = `
        SELECT ` + selectSellerCols + `
        FROM sellers
        WHERE id = $1;
    `

	var row dbSeller
	if err := sqlx.GetContext(ctx, r.exec, &row, q, id); err != nil {
		return sellers.Seller{}, dberrs.Map(err, op)
	}
	return row.toDomain(), nil
}

func (r *Repository) ProductsBySeller(ctx context.Context, sellerID int64) ([]products.Product, error) {
	const op = "sellers.repo.products_by_seller"

	const q = `
        SELECT id, seller_id, name, category, price, unit, organic, created_at, updated_at
        FROM products
        WHERE seller_id = $1
        ORDER BY name ASC, id ASC;
    `

	var rows []struct {
		ID        int64          `db:"id"`
		SellerID  int64          `db:"seller_id"`
		Name      string         `db:"name"`
		Category  sql.NullString `db:"category"`
		Price     float64        `db:"price"`
		Unit      sql.NullString `db:"unit"`
		Organic   bool           `db:"organic"`
		CreatedAt sql.NullTime   `db:"created_at"`
		UpdatedAt sql.NullTime   `db:"updated_at"`
	}
	if err := sqlx.SelectContext(ctx, r.exec, &rows, q, sellerID); err != nil {
		return nil, dberrs.Map(err, op)
	}

	out := make([]products.Product, 0, len(rows))
	for _, row := range rows {
		p := products.Product{
			ID:       row.ID,
			SellerID: row.SellerID,
			Name:     row.Name,
			Category: row.Category.String,
			Price:    row.Price,
			Unit:     row.Unit.String,
			Organic:  row.Organic,
		}
		if row.CreatedAt.Valid {
			p.CreatedAt = row.CreatedAt.Time
		}
		if row.UpdatedAt.Valid {
			p.UpdatedAt = row.UpdatedAt.Time
		}
		out = append(out, p)
	}
	return out, nil
}

func (r *Repository) Stats(ctx context.Context, sellerID int64) (sellers.Stats, error) {
	const op = "sellers.repo.stats"

	const q = `
        SELECT
            COUNT(*) AS product_count,
            COALESCE(ROUND(AVG(price)::numeric, 2), 0) AS avg_price,
            COUNT(*) FILTER (WHERE organic) AS organic_count
        FROM products
        WHERE seller_id = $1;
    `

	var row struct {
		ProductCount int     `db:"product_count"`
		AvgPrice     float64 `db:"avg_price"`
		OrganicCount int     `db:"organic_count"`
	}
	if err := sqlx.GetContext(ctx, r.exec, &row, q, sellerID); err != nil {
		return sellers.Stats{}, dberrs.Map(err, op)
	}

	return sellers.Stats{
		ProductCount: row.ProductCount,
		AvgPrice:     row.AvgPrice,
		OrganicCount: row.OrganicCount,
	}, nil
}

// UpdateLocation writes the seller's coordinate and address fields.
// Search reads never mutate the location profile; this is the only
// writer.
func (r *Repository) UpdateLocation(ctx context.Context, cmd sellers.UpdateLocation) (sellers.Seller, error) {
	const op = "sellers.repo.update_location"

	const q = `
        UPDATE sellers
        SET location = ST_MakePoint($2, $3)::geography,
            address = $4,
            city = $5,
            state = $6,
            country = $7,
            postal_code = $8,
            updated_at = NOW()
        WHERE id = $1
        RETURNING ` + selectSellerCols + `;
    `

	var row dbSeller
	if err := sqlx.GetContext(ctx, r.exec, &row, q,
		cmd.SellerID,
		cmd.Coordinate.Lon,
		cmd.Coordinate.Lat,
		nullString(cmd.Address),
		nullString(cmd.City),
		nullString(cmd.State),
		nullString(cmd.Country),
		nullString(cmd.PostalCode),
	); err != nil {
		return sellers.Seller{}, dberrs.Map(err, op)
	}
	return row.toDomain(), nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
