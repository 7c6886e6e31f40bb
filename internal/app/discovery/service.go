// Package discovery orchestrates nearby search: coordinate validation,
// geocoding, radius queries, filtering and grouping.
package discovery

import (
	"context"
	"encoding/json"
	"time"

	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
	"github.com/agrolink/geo-discovery-service/internal/domain/products"
	"github.com/agrolink/geo-discovery-service/internal/domain/sellers"
	"github.com/agrolink/geo-discovery-service/internal/errs"
	"github.com/agrolink/geo-discovery-service/internal/geocoder"
	"github.com/agrolink/geo-discovery-service/internal/observability"
)

type SellersRepository interface {
	FindNearby(ctx context.Context, p geo.Point, radiusKm float64, limit int) ([]sellers.NearbySeller, error)
	SearchByLocation(ctx context.Context, term string, limit int) ([]sellers.LocationResult, error)
	PopularCities(ctx context.Context, limit int) ([]sellers.CityCount, error)
	GetByID(ctx context.Context, id int64) (sellers.Seller, error)
	ProductsBySeller(ctx context.Context, sellerID int64) ([]products.Product, error)
	Stats(ctx context.Context, sellerID int64) (sellers.Stats, error)
}

type ProductsRepository interface {
	FindNearby(ctx context.Context, p geo.Point, radiusKm float64, limit int) ([]products.NearbyProduct, error)
}

// LocationWriter persists a seller location change inside a transaction.
type LocationWriter interface {
	UpdateLocation(ctx context.Context, cmd sellers.UpdateLocation) (sellers.Seller, error)
}

type OutboxRepository interface {
	Enqueue(ctx context.Context, eventType string, payloadJSON string) error
}

type TxRunner interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, writer LocationWriter, outbox OutboxRepository) error) error
}

type Service struct {
	sellersRepo  SellersRepository
	productsRepo ProductsRepository
	geo          geocoder.Geocoder
	tx           TxRunner
	metrics      *observability.Metrics
}

func NewService(sellersRepo SellersRepository, productsRepo ProductsRepository, geocoder geocoder.Geocoder, tx TxRunner, metrics *observability.Metrics) *Service {
	return &Service{
		sellersRepo:  sellersRepo,
		productsRepo: productsRepo,
		geo:          geocoder,
		tx:           tx,
		metrics:      metrics,
	}
}

type NearbyQuery struct {
	Point    geo.Point
	RadiusKm float64
	Limit    int
}

func (q NearbyQuery) Validate(op string) error {
	if err := q.Point.Validate(op); err != nil {
		return err
	}
	return geo.ValidateRadius(q.RadiusKm, op)
}

// NearbySellers returns sellers within the radius ordered by distance.
func (s *Service) NearbySellers(ctx context.Context, q NearbyQuery) ([]sellers.NearbySeller, error) {
	const op = "discovery.service.nearby_sellers"

	if err := q.Validate(op); err != nil {
		return nil, err
	}
	s.metrics.NearbyQueries.WithLabelValues("sellers").Inc()

	items, err := s.sellersRepo.FindNearby(ctx, q.Point, q.RadiusKm, q.Limit)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return items, nil
}

type ProductQuery struct {
	Point    geo.Point
	RadiusKm float64
	Limit    int
	Filter   products.Filter
	SortBy   products.SortKey
}

type ProductResult struct {
	Products      []products.NearbyProduct
	SellerGroups  []products.SellerGroup
	TotalProducts int
	TotalSellers  int
}

// NearbyProducts returns products within the radius, post-filtered and
// grouped by seller in first-seen order.
func (s *Service) NearbyProducts(ctx context.Context, q ProductQuery) (ProductResult, error) {
	const op = "discovery.service.nearby_products"

	if err := q.Point.Validate(op); err != nil {
		return ProductResult{}, err
	}
	if err := geo.ValidateRadius(q.RadiusKm, op); err != nil {
		return ProductResult{}, err
	}
	s.metrics.NearbyQueries.WithLabelValues("products").Inc()

	items, err := s.productsRepo.FindNearby(ctx, q.Point, q.RadiusKm, q.Limit)
	if err != nil {
		return ProductResult{}, errs.Wrap(op, err)
	}

	items = q.Filter.Apply(items)
	groups := products.GroupBySeller(items)
	if q.SortBy != "" {
		products.SortGroups(groups, q.SortBy)
	}

	return ProductResult{
		Products:      items,
		SellerGroups:  groups,
		TotalProducts: len(items),
		TotalSellers:  len(groups),
	}, nil
}

type TextResult struct {
	Resolved geocoder.Result
	Sellers  []sellers.NearbySeller
}

// NearbySellersByText resolves a free-text place query through the
// geocoder (cache first) and then runs the radius query from the
// resolved coordinates. Geocoder errors propagate unchanged.
func (s *Service) NearbySellersByText(ctx context.Context, query string, radiusKm float64, limit int) (TextResult, error) {
	const op = "discovery.service.nearby_sellers_by_text"

	if len(geocoder.NormalizeQuery(query)) == 0 {
		return TextResult{}, errs.E(errs.KindInvalid, "QUERY_REQUIRED", op, "query is required",
			map[string]string{"query": "is required"}, nil)
	}
	if err := geo.ValidateRadius(radiusKm, op); err != nil {
		return TextResult{}, err
	}
	s.metrics.NearbyQueries.WithLabelValues("text").Inc()

	resolved, err := s.geocode(ctx, "forward", func(ctx context.Context) (geocoder.Result, error) {
		return s.geo.Geocode(ctx, query)
	})
	if err != nil {
		return TextResult{}, err
	}

	items, err := s.NearbySellers(ctx, NearbyQuery{
		Point:    geo.Point{Lat: resolved.Lat, Lon: resolved.Lon},
		RadiusKm: radiusKm,
		Limit:    limit,
	})
	if err != nil {
		return TextResult{}, errs.Wrap(op, err)
	}

	return TextResult{Resolved: resolved, Sellers: items}, nil
}

const minSearchTermLen = 2

// SearchByLocationText is the no-coordinates fallback: substring match
// on city/state/address, ordered by name, with product counts.
func (s *Service) SearchByLocationText(ctx context.Context, term string, limit int) ([]sellers.LocationResult, error) {
	const op = "discovery.service.search_by_location_text"

	if len(geocoder.NormalizeQuery(term)) < minSearchTermLen {
		return nil, errs.E(errs.KindInvalid, "QUERY_TOO_SHORT", op, "query too short",
			map[string]string{"query": "must be at least 2 characters"}, nil)
	}

	items, err := s.sellersRepo.SearchByLocation(ctx, term, limit)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return items, nil
}

func (s *Service) PopularCities(ctx context.Context, limit int) ([]sellers.CityCount, error) {
	const op = "discovery.service.popular_cities"

	if limit <= 0 {
		limit = 10
	}

	items, err := s.sellersRepo.PopularCities(ctx, limit)
	if err != nil {
		return nil, errs.Wrap(op, err)
	}
	return items, nil
}

type SellerProfile struct {
	Seller   sellers.Seller
	Products []products.Product
	Stats    sellers.Stats

	// DistanceKm is set only when the caller supplied coordinates and
	// the seller has a coordinate.
	DistanceKm *float64
}

// SellerProfile loads a seller with products and catalog stats. When
// the caller's position is known, the seller's distance is computed
// with the same Haversine math the radius queries report.
func (s *Service) SellerProfile(ctx context.Context, id int64, from *geo.Point) (SellerProfile, error) {
	const op = "discovery.service.seller_profile"

	if id <= 0 {
		return SellerProfile{}, errs.E(errs.KindInvalid, "INVALID_ID", op, "invalid id", map[string]string{"id": "must be > 0"}, nil)
	}
	if from != nil {
		if err := from.Validate(op); err != nil {
			return SellerProfile{}, err
		}
	}

	seller, err := s.sellersRepo.GetByID(ctx, id)
	if err != nil {
		return SellerProfile{}, errs.Wrap(op, err)
	}

	items, err := s.sellersRepo.ProductsBySeller(ctx, id)
	if err != nil {
		return SellerProfile{}, errs.Wrap(op, err)
	}

	stats, err := s.sellersRepo.Stats(ctx, id)
	if err != nil {
		return SellerProfile{}, errs.Wrap(op, err)
	}

	profile := SellerProfile{Seller: seller, Products: items, Stats: stats}
	if from != nil && seller.Coordinate != nil {
		d := geo.HaversineKm(*from, *seller.Coordinate)
		profile.DistanceKm = &d
	}
	return profile, nil
}

// Geocode resolves a free-text address to coordinates.
func (s *Service) Geocode(ctx context.Context, query string) (geocoder.Result, error) {
	const op = "discovery.service.geocode"

	if len(geocoder.NormalizeQuery(query)) == 0 {
		return geocoder.Result{}, errs.E(errs.KindInvalid, "QUERY_REQUIRED", op, "query is required",
			map[string]string{"query": "is required"}, nil)
	}

	return s.geocode(ctx, "forward", func(ctx context.Context) (geocoder.Result, error) {
		return s.geo.Geocode(ctx, query)
	})
}

// ReverseGeocode resolves coordinates to address components.
func (s *Service) ReverseGeocode(ctx context.Context, p geo.Point) (geocoder.Result, error) {
	const op = "discovery.service.reverse_geocode"

	if err := p.Validate(op); err != nil {
		return geocoder.Result{}, err
	}

	return s.geocode(ctx, "reverse", func(ctx context.Context) (geocoder.Result, error) {
		return s.geo.ReverseGeocode(ctx, p.Lat, p.Lon)
	})
}

// UpdateLocation writes a seller's location profile and enqueues a
// seller_location_updated outbox event in the same transaction.
func (s *Service) UpdateLocation(ctx context.Context, cmd sellers.UpdateLocation) (sellers.Seller, error) {
	const op = "discovery.service.update_location"

	if err := cmd.Validate(); err != nil {
		return sellers.Seller{}, errs.Wrap(op, err)
	}

	var updated sellers.Seller
	err := s.tx.WithinTx(ctx, func(ctx context.Context, writer LocationWriter, outbox OutboxRepository) error {
		var err error
		updated, err = writer.UpdateLocation(ctx, cmd)
		if err != nil {
			return errs.Wrap(op+".write", err)
		}

		ev := sellers.LocationUpdated{
			SellerID:   updated.ID,
			Coordinate: cmd.Coordinate,
			City:       updated.City,
			State:      updated.State,
			OccurredAt: time.Now().UTC(),
		}
		b, err := json.Marshal(ev)
		if err != nil {
			return errs.Wrap(op+".marshal_event", err)
		}

		if err := outbox.Enqueue(ctx, "seller_location_updated", string(b)); err != nil {
			return errs.Wrap(op+".enqueue_outbox", err)
		}
		return nil
	})
	if err != nil {
		return sellers.Seller{}, errs.Wrap(op, err)
	}

	return updated, nil
}

func (s *Service) geocode(ctx context.Context, method string, call func(context.Context) (geocoder.Result, error)) (geocoder.Result, error) {
	start := time.Now()
	r, err := call(ctx)
	s.metrics.GeocodeDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())

	outcome := "success"
	if err != nil {
		outcome = "error"
		if e, ok := errs.As(err); ok && e.Kind == errs.KindNotFound {
			outcome = "not_found"
		}
	}
	s.metrics.GeocodeRequests.WithLabelValues(method, outcome).Inc()

	return r, err
}
