package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/geo-discovery-service/internal/app/discovery"
	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
	"github.com/agrolink/geo-discovery-service/internal/domain/products"
	"github.com/agrolink/geo-discovery-service/internal/domain/sellers"
	"github.com/agrolink/geo-discovery-service/internal/errs"
	"github.com/agrolink/geo-discovery-service/internal/geocoder"
)

type Nearby struct {
	svc *discovery.Service

	// auth guards the update_location action only; the read actions on
	// the same route stay public.
	auth gin.HandlerFunc
}

func NewNearby(svc *discovery.Service, auth gin.HandlerFunc) *Nearby {
	return &Nearby{svc: svc, auth: auth}
}

type sellerDTO struct {
	ID         int64     `json:"id"`
	Name       string    `json:"name"`
	FarmName   string    `json:"farm_name,omitempty"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Address    string    `json:"address,omitempty"`
	City       string    `json:"city,omitempty"`
	State      string    `json:"state,omitempty"`
	Country    string    `json:"country,omitempty"`
	PostalCode string    `json:"postal_code,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func toSellerDTO(s sellers.Seller) sellerDTO {
	out := sellerDTO{
		ID:         s.ID,
		Name:       s.Name,
		FarmName:   s.FarmName,
		Address:    s.Address,
		City:       s.City,
		State:      s.State,
		Country:    s.Country,
		PostalCode: s.PostalCode,
		UpdatedAt:  s.UpdatedAt,
	}
	if s.Coordinate != nil {
		out.Latitude = &s.Coordinate.Lat
		out.Longitude = &s.Coordinate.Lon
	}
	return out
}

type nearbySellerDTO struct {
	sellerDTO
	DistanceKm float64 `json:"distance_km"`
}

type geocodeResultDTO struct {
	Latitude         float64 `json:"latitude"`
	Longitude        float64 `json:"longitude"`
	FormattedAddress string  `json:"formatted_address"`
	City             string  `json:"city,omitempty"`
	State            string  `json:"state,omitempty"`
	Country          string  `json:"country,omitempty"`
	PostalCode       string  `json:"postal_code,omitempty"`
	PlaceID          string  `json:"place_id,omitempty"`
}

func toGeocodeResultDTO(r geocoder.Result) geocodeResultDTO {
	return geocodeResultDTO{
		Latitude:         r.Lat,
		Longitude:        r.Lon,
		FormattedAddress: r.FormattedAddress,
		City:             r.City,
		State:            r.State,
		Country:          r.Country,
		PostalCode:       r.PostalCode,
		PlaceID:          r.PlaceID,
	}
}

// GetSellers handles coordinate radius search and text fallbacks:
// ?latitude&longitude&radius, or ?search= / ?city= / ?state=.
func (h *Nearby) GetSellers(ctx *gin.Context) {
	const op = "nearby.http.get_sellers"

	if ctx.Query("latitude") != "" || ctx.Query("longitude") != "" {
		h.sellersByCoordinates(ctx)
		return
	}

	if search := ctx.Query("search"); search != "" {
		h.sellersBySearch(ctx, search)
		return
	}

	term := ctx.Query("city")
	if term == "" {
		term = ctx.Query("state")
	}
	if term == "" {
		ctx.Error(errs.E(errs.KindInvalid, "QUERY_REQUIRED", op, "missing query",
			map[string]string{"query": "latitude/longitude or search/city/state is required"}, nil))
		return
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))
	items, err := h.svc.SearchByLocationText(ctx.Request.Context(), term, limit)
	if err != nil {
		ctx.Error(err)
		return
	}

	out := make([]locationResultDTO, 0, len(items))
	for _, it := range items {
		out = append(out, locationResultDTO{
			sellerDTO:    toSellerDTO(it.Seller),
			ProductCount: it.ProductCount,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    out,
		"total":   len(out),
		"search":  term,
	})
}

// sellersBySearch resolves the free-text place through the geocoder and
// runs the radius query from the resolved point.
func (h *Nearby) sellersBySearch(ctx *gin.Context, search string) {
	const op = "nearby.http.sellers_by_search"

	radius := 50.0
	if raw := ctx.Query("radius"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			ctx.Error(errs.E(errs.KindInvalid, "INVALID_RADIUS", op, "invalid radius",
				map[string]string{"radius": "must be a number"}, err))
			return
		}
		radius = v
	}
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))

	res, err := h.svc.NearbySellersByText(ctx.Request.Context(), search, radius, limit)
	if err != nil {
		ctx.Error(err)
		return
	}

	out := make([]nearbySellerDTO, 0, len(res.Sellers))
	for _, it := range res.Sellers {
		out = append(out, nearbySellerDTO{
			sellerDTO:  toSellerDTO(it.Seller),
			DistanceKm: it.DistanceKm,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success":           true,
		"data":              out,
		"total":             len(out),
		"resolved_location": toGeocodeResultDTO(res.Resolved),
		"radius_km":         radius,
	})
}

func (h *Nearby) sellersByCoordinates(ctx *gin.Context) {
	const op = "nearby.http.sellers_by_coordinates"

	q, err := parseNearbyQuery(ctx, op)
	if err != nil {
		ctx.Error(err)
		return
	}

	items, err := h.svc.NearbySellers(ctx.Request.Context(), q)
	if err != nil {
		ctx.Error(err)
		return
	}

	out := make([]nearbySellerDTO, 0, len(items))
	for _, it := range items {
		out = append(out, nearbySellerDTO{
			sellerDTO:  toSellerDTO(it.Seller),
			DistanceKm: it.DistanceKm,
		})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    out,
		"total":   len(out),
		"user_location": coordinateDTO{
			Latitude:  q.Point.Lat,
			Longitude: q.Point.Lon,
		},
		"radius_km": q.RadiusKm,
	})
}

type productDTO struct {
	ID        int64     `json:"id"`
	SellerID  int64     `json:"seller_id"`
	Name      string    `json:"name"`
	Category  string    `json:"category,omitempty"`
	Price     float64   `json:"price"`
	Unit      string    `json:"unit,omitempty"`
	Organic   bool      `json:"organic"`
	UpdatedAt time.Time `json:"updated_at"`
}

func toProductDTO(p products.Product) productDTO {
	return productDTO{
		ID:        p.ID,
		SellerID:  p.SellerID,
		Name:      p.Name,
		Category:  p.Category,
		Price:     p.Price,
		Unit:      p.Unit,
		Organic:   p.Organic,
		UpdatedAt: p.UpdatedAt,
	}
}

type nearbyProductDTO struct {
	productDTO
	SellerName string  `json:"seller_name"`
	FarmName   string  `json:"farm_name,omitempty"`
	SellerCity string  `json:"seller_city,omitempty"`
	DistanceKm float64 `json:"distance_km"`
}

type sellerGroupDTO struct {
	SellerID   int64              `json:"seller_id"`
	SellerName string             `json:"seller_name"`
	FarmName   string             `json:"farm_name,omitempty"`
	City       string             `json:"city,omitempty"`
	DistanceKm float64            `json:"distance_km"`
	Products   []nearbyProductDTO `json:"products"`
}

// GetProducts handles the nearby-products radius search with optional
// category/price/organic filters.
func (h *Nearby) GetProducts(ctx *gin.Context) {
	const op = "nearby.http.get_products"

	nq, err := parseNearbyQuery(ctx, op)
	if err != nil {
		ctx.Error(err)
		return
	}

	filter, err := parseProductFilter(ctx, op)
	if err != nil {
		ctx.Error(err)
		return
	}

	res, err := h.svc.NearbyProducts(ctx.Request.Context(), discovery.ProductQuery{
		Point:    nq.Point,
		RadiusKm: nq.RadiusKm,
		Limit:    nq.Limit,
		Filter:   filter,
		SortBy:   products.SortKey(ctx.DefaultQuery("sortBy", "distance")),
	})
	if err != nil {
		ctx.Error(err)
		return
	}

	flat := make([]nearbyProductDTO, 0, len(res.Products))
	for _, p := range res.Products {
		flat = append(flat, toNearbyProductDTO(p))
	}

	groups := make([]sellerGroupDTO, 0, len(res.SellerGroups))
	for _, g := range res.SellerGroups {
		dto := sellerGroupDTO{
			SellerID:   g.SellerID,
			SellerName: g.SellerName,
			FarmName:   g.FarmName,
			City:       g.City,
			DistanceKm: g.DistanceKm,
			Products:   make([]nearbyProductDTO, 0, len(g.Products)),
		}
		for _, p := range g.Products {
			dto.Products = append(dto.Products, toNearbyProductDTO(p))
		}
		groups = append(groups, dto)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"products":              flat,
			"sellers_with_products": groups,
			"total_products":        res.TotalProducts,
			"total_sellers":         res.TotalSellers,
		},
		"filters": gin.H{
			"category": filter.Category,
			"minPrice": filter.MinPrice,
			"maxPrice": filter.MaxPrice,
			"organic":  filter.Organic,
		},
		"user_location": coordinateDTO{
			Latitude:  nq.Point.Lat,
			Longitude: nq.Point.Lon,
		},
	})
}

func toNearbyProductDTO(p products.NearbyProduct) nearbyProductDTO {
	return nearbyProductDTO{
		productDTO: toProductDTO(p.Product),
		SellerName: p.SellerName,
		FarmName:   p.FarmName,
		SellerCity: p.SellerCity,
		DistanceKm: p.DistanceKm,
	}
}

type nearbyActionRequest struct {
	Action  string `json:"action" binding:"required"`
	Query   string `json:"query"`
	Address string `json:"address"`

	Latitude  *float64 `json:"latitude"`
	Longitude *float64 `json:"longitude"`

	SellerID   int64  `json:"seller_id"`
	City       string `json:"city"`
	State      string `json:"state"`
	Country    string `json:"country"`
	PostalCode string `json:"postal_code"`
}

// PostSellers dispatches on the action body field: geocode,
// reverse_geocode or update_location.
func (h *Nearby) PostSellers(ctx *gin.Context) {
	const op = "nearby.http.post_sellers"

	var req nearbyActionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(errs.E(errs.KindInvalid, "INVALID_JSON", op, "invalid json", nil, err))
		return
	}

	switch req.Action {
	case "geocode":
		h.geocode(ctx, req)
	case "reverse_geocode":
		h.reverseGeocode(ctx, req)
	case "update_location":
		h.updateLocation(ctx, req)
	default:
		ctx.Error(errs.E(errs.KindInvalid, "UNKNOWN_ACTION", op, "unknown action",
			map[string]string{"action": "must be geocode, reverse_geocode or update_location"}, nil))
	}
}

func (h *Nearby) geocode(ctx *gin.Context, req nearbyActionRequest) {
	query := req.Query
	if query == "" {
		query = req.Address
	}

	r, err := h.svc.Geocode(ctx.Request.Context(), query)
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toGeocodeResultDTO(r),
	})
}

func (h *Nearby) reverseGeocode(ctx *gin.Context, req nearbyActionRequest) {
	const op = "nearby.http.reverse_geocode"

	if req.Latitude == nil || req.Longitude == nil {
		ctx.Error(errs.E(errs.KindInvalid, "COORDINATES_REQUIRED", op, "coordinates are required",
			map[string]string{"latitude": "is required", "longitude": "is required"}, nil))
		return
	}

	r, err := h.svc.ReverseGeocode(ctx.Request.Context(), geo.Point{Lat: *req.Latitude, Lon: *req.Longitude})
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toGeocodeResultDTO(r),
	})
}

func (h *Nearby) updateLocation(ctx *gin.Context, req nearbyActionRequest) {
	const op = "nearby.http.update_location"

	h.auth(ctx)
	if ctx.IsAborted() {
		return
	}

	if req.Latitude == nil || req.Longitude == nil {
		ctx.Error(errs.E(errs.KindInvalid, "COORDINATES_REQUIRED", op, "coordinates are required",
			map[string]string{"latitude": "is required", "longitude": "is required"}, nil))
		return
	}

	updated, err := h.svc.UpdateLocation(ctx.Request.Context(), sellers.UpdateLocation{
		SellerID:   req.SellerID,
		Coordinate: geo.Point{Lat: *req.Latitude, Lon: *req.Longitude},
		Address:    req.Address,
		City:       req.City,
		State:      req.State,
		Country:    req.Country,
		PostalCode: req.PostalCode,
	})
	if err != nil {
		ctx.Error(err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    toSellerDTO(updated),
	})
}

func parseNearbyQuery(ctx *gin.Context, op string) (discovery.NearbyQuery, error) {
	lat, err := strconv.ParseFloat(ctx.Query("latitude"), 64)
	if err != nil {
		return discovery.NearbyQuery{}, errs.E(errs.KindInvalid, "INVALID_COORDINATES", op, "invalid coordinates",
			map[string]string{"latitude": "must be a number"}, err)
	}
	lon, err := strconv.ParseFloat(ctx.Query("longitude"), 64)
	if err != nil {
		return discovery.NearbyQuery{}, errs.E(errs.KindInvalid, "INVALID_COORDINATES", op, "invalid coordinates",
			map[string]string{"longitude": "must be a number"}, err)
	}

	radius := 50.0
	if raw := ctx.Query("radius"); raw != "" {
		radius, err = strconv.ParseFloat(raw, 64)
		if err != nil {
			return discovery.NearbyQuery{}, errs.E(errs.KindInvalid, "INVALID_RADIUS", op, "invalid radius",
				map[string]string{"radius": "must be a number"}, err)
		}
	}

	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "0"))

	return discovery.NearbyQuery{
		Point:    geo.Point{Lat: lat, Lon: lon},
		RadiusKm: radius,
		Limit:    limit,
	}, nil
}

func parseProductFilter(ctx *gin.Context, op string) (products.Filter, error) {
	var f products.Filter

	f.Category = ctx.Query("category")

	if raw := ctx.Query("minPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return products.Filter{}, errs.E(errs.KindInvalid, "INVALID_FILTER", op, "invalid filter",
				map[string]string{"minPrice": "must be a number"}, err)
		}
		f.MinPrice = &v
	}
	if raw := ctx.Query("maxPrice"); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return products.Filter{}, errs.E(errs.KindInvalid, "INVALID_FILTER", op, "invalid filter",
				map[string]string{"maxPrice": "must be a number"}, err)
		}
		f.MaxPrice = &v
	}
	if raw := ctx.Query("organic"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return products.Filter{}, errs.E(errs.KindInvalid, "INVALID_FILTER", op, "invalid filter",
				map[string]string{"organic": "must be true or false"}, err)
		}
		f.Organic = &v
	}

	return f, nil
}
