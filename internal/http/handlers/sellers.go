package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/geo-discovery-service/internal/app/discovery"
	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
	"github.com/agrolink/geo-discovery-service/internal/errs"
)

type Sellers struct {
	svc *discovery.Service
}

func NewSellers(svc *discovery.Service) *Sellers {
	return &Sellers{svc: svc}
}

type sellerStatsDTO struct {
	ProductCount int     `json:"product_count"`
	AvgPrice     float64 `json:"avg_price"`
	OrganicCount int     `json:"organic_count"`
}

// GetByID returns the seller profile with products and catalog stats.
// When userLatitude/userLongitude are supplied the response includes
// the distance to the seller.
func (h *Sellers) GetByID(ctx *gin.Context) {
	const op = "sellers.http.get_by_id"

	id, err := strconv.ParseInt(ctx.Param("id"), 10, 64)
	if err != nil {
		ctx.Error(errs.E(errs.KindInvalid, "INVALID_ID", op, "invalid id",
			map[string]string{"id": "must be an integer"}, err))
		return
	}

	from, err := parseUserLocation(ctx, op)
	if err != nil {
		ctx.Error(err)
		return
	}

	profile, err := h.svc.SellerProfile(ctx.Request.Context(), id, from)
	if err != nil {
		ctx.Error(err)
		return
	}

	items := make([]productDTO, 0, len(profile.Products))
	for _, p := range profile.Products {
		items = append(items, toProductDTO(p))
	}

	data := gin.H{
		"seller":   toSellerDTO(profile.Seller),
		"products": items,
		"stats": sellerStatsDTO{
			ProductCount: profile.Stats.ProductCount,
			AvgPrice:     profile.Stats.AvgPrice,
			OrganicCount: profile.Stats.OrganicCount,
		},
	}
	if profile.DistanceKm != nil {
		data["distance_km"] = *profile.DistanceKm
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    data,
	})
}

func parseUserLocation(ctx *gin.Context, op string) (*geo.Point, error) {
	rawLat := ctx.Query("userLatitude")
	rawLon := ctx.Query("userLongitude")
	if rawLat == "" && rawLon == "" {
		return nil, nil
	}

	lat, err := strconv.ParseFloat(rawLat, 64)
	if err != nil {
		return nil, errs.E(errs.KindInvalid, "INVALID_COORDINATES", op, "invalid coordinates",
			map[string]string{"userLatitude": "must be a number"}, err)
	}
	lon, err := strconv.ParseFloat(rawLon, 64)
	if err != nil {
		return nil, errs.E(errs.KindInvalid, "INVALID_COORDINATES", op, "invalid coordinates",
			map[string]string{"userLongitude": "must be a number"}, err)
	}
	return &geo.Point{Lat: lat, Lon: lon}, nil
}
