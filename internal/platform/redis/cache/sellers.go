package sellerscache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agrolink/geo-discovery-service/internal/app/discovery"
	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
	"github.com/agrolink/geo-discovery-service/internal/domain/products"
	"github.com/agrolink/geo-discovery-service/internal/domain/sellers"
	"github.com/agrolink/geo-discovery-service/internal/geocoder"
)

type Logger interface {
	Info(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)
}

type Option func(*CachedRepository)

func WithTTL(ttl time.Duration) Option {
	return func(c *CachedRepository) { c.ttl = ttl }
}

func WithLogger(log Logger) Option {
	return func(c *CachedRepository) { c.log = log }
}

// CachedRepository caches the aggregate read paths (popular cities and
// location-text search) in Redis. Radius queries are never cached: they
// are keyed by continuous coordinates and rarely repeat exactly.
// Location updates bump a version key, invalidating every cached list
// at once.
type CachedRepository struct {
	next discovery.SellersRepository
	rdb  *redis.Client
	ttl  time.Duration
	log  Logger
}

func New(rdb *redis.Client, next discovery.SellersRepository, opts ...Option) *CachedRepository {
	c := &CachedRepository{
		next: next,
		rdb:  rdb,
		ttl:  60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *CachedRepository) FindNearby(ctx context.Context, p geo.Point, radiusKm float64, limit int) ([]sellers.NearbySeller, error) {
	return c.next.FindNearby(ctx, p, radiusKm, limit)
}

func (c *CachedRepository) GetByID(ctx context.Context, id int64) (sellers.Seller, error) {
	return c.next.GetByID(ctx, id)
}

func (c *CachedRepository) ProductsBySeller(ctx context.Context, sellerID int64) ([]products.Product, error) {
	return c.next.ProductsBySeller(ctx, sellerID)
}

func (c *CachedRepository) Stats(ctx context.Context, sellerID int64) (sellers.Stats, error) {
	return c.next.Stats(ctx, sellerID)
}

func (c *CachedRepository) PopularCities(ctx context.Context, limit int) ([]sellers.CityCount, error) {
	ver := c.getVersion(ctx)
	key := fmt.Sprintf("sellers:popular_cities:v%s:limit:%d", ver, limit)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached []sellers.CityCount
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
	}

	items, err := c.next.PopularCities(ctx, limit)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, items)
	return items, nil
}

func (c *CachedRepository) SearchByLocation(ctx context.Context, term string, limit int) ([]sellers.LocationResult, error) {
	ver := c.getVersion(ctx)
	key := fmt.Sprintf("sellers:search:v%s:q:%s:limit:%d", ver, geocoder.NormalizeQuery(term), limit)

	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil {
		var cached []sellers.LocationResult
		if err := json.Unmarshal(b, &cached); err == nil {
			return cached, nil
		}
	}

	items, err := c.next.SearchByLocation(ctx, term, limit)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, items)
	return items, nil
}

// BumpVersion invalidates all cached lists. Wired as the tx runner's
// after-commit hook for location updates.
func (c *CachedRepository) BumpVersion(ctx context.Context) {
	const key = "sellers:lists:version"
	if err := c.rdb.Incr(ctx, key).Err(); err != nil && c.log != nil {
		c.log.Error(ctx, "sellers cache version bump failed", "error", err)
	}
}

func (c *CachedRepository) store(ctx context.Context, key string, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, b, c.ttl).Err(); err != nil && c.log != nil {
		c.log.Error(ctx, "sellers cache set failed", "error", err)
	}
}

func (c *CachedRepository) getVersion(ctx context.Context) string {
	const key = "sellers:lists:version"
	val, err := c.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		_ = c.rdb.SetNX(ctx, key, "1", 0).Err()
		return "1"
	}
	if err != nil {
		if c.log != nil {
			c.log.Error(ctx, "sellers cache version get failed", "error", err)
		}
		return "0"
	}
	return val
}
