package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/agrolink/geo-discovery-service/internal/app/discovery"
	"github.com/agrolink/geo-discovery-service/internal/domain/geo"
	"github.com/agrolink/geo-discovery-service/internal/errs"
)

type Locations struct {
	svc *discovery.Service
}

func NewLocations(svc *discovery.Service) *Locations {
	return &Locations{svc: svc}
}

type cityCountDTO struct {
	City        string `json:"city"`
	SellerCount int    `json:"seller_count"`
}

type locationResultDTO struct {
	sellerDTO
	ProductCount int `json:"product_count"`
}

// Get dispatches on the action query parameter: popular_cities or
// search_suggestions.
func (h *Locations) Get(ctx *gin.Context) {
	const op = "locations.http.get"

	switch action := ctx.Query("action"); action {
	case "popular_cities":
		h.popularCities(ctx)
	case "search_suggestions":
		h.searchSuggestions(ctx)
	default:
		ctx.Error(errs.E(errs.KindInvalid, "UNKNOWN_ACTION", op, "unknown action",
			map[string]string{"action": "must be popular_cities or search_suggestions"}, nil))
	}
}

func (h *Locations) popularCities(ctx *gin.Context) {
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "10"))

	items, err := h.svc.PopularCities(ctx.Request.Context(), limit)
	if err != nil {
		ctx.Error(err)
		return
	}

	out := make([]cityCountDTO, 0, len(items))
	for _, it := range items {
		out = append(out, cityCountDTO{City: it.City, SellerCount: it.SellerCount})
	}
	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    out,
		"total":   len(out),
	})
}

func (h *Locations) searchSuggestions(ctx *gin.Context) {
	query := ctx.Query("query")
	limit, _ := strconv.Atoi(ctx.DefaultQuery("limit", "20"))

	items, err := h.svc.SearchByLocationText(ctx.Request.Context(), query, limit)
	if err != nil {
		ctx.Error(err)
		return
	}

	results := make([]locationResultDTO, 0, len(items))
	suggestions := make([]string, 0, len(items))
	seen := map[string]bool{}
	for _, it := range items {
		results = append(results, locationResultDTO{
			sellerDTO:    toSellerDTO(it.Seller),
			ProductCount: it.ProductCount,
		})
		if it.City != "" && !seen[it.City] {
			seen[it.City] = true
			suggestions = append(suggestions, it.City)
		}
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"sellers":              results,
			"location_suggestions": suggestions,
		},
		"query":         query,
		"total_sellers": len(results),
	})
}

type geocodeBatchRequest struct {
	Addresses []string `json:"addresses"`
}

type validateCoordinatesRequest struct {
	Coordinates []coordinateDTO `json:"coordinates"`
}

type coordinateDTO struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type locationsActionRequest struct {
	Action string `json:"action" binding:"required"`
	geocodeBatchRequest
	validateCoordinatesRequest
}

// Post dispatches on the action body field: geocode_batch or
// validate_coordinates.
func (h *Locations) Post(ctx *gin.Context) {
	const op = "locations.http.post"

	var req locationsActionRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.Error(errs.E(errs.KindInvalid, "INVALID_JSON", op, "invalid json", nil, err))
		return
	}

	switch req.Action {
	case "geocode_batch":
		h.geocodeBatch(ctx, req.Addresses)
	case "validate_coordinates":
		h.validateCoordinates(ctx, req.Coordinates)
	default:
		ctx.Error(errs.E(errs.KindInvalid, "UNKNOWN_ACTION", op, "unknown action",
			map[string]string{"action": "must be geocode_batch or validate_coordinates"}, nil))
	}
}

type batchItemDTO struct {
	Index   int               `json:"index"`
	Address string            `json:"address"`
	Success bool              `json:"success"`
	Data    *geocodeResultDTO `json:"data,omitempty"`
	Error   string            `json:"error,omitempty"`
}

func (h *Locations) geocodeBatch(ctx *gin.Context, addresses []string) {
	res, err := h.svc.GeocodeBatch(ctx.Request.Context(), addresses)
	if err != nil {
		ctx.Error(err)
		return
	}

	items := make([]batchItemDTO, 0, len(res.Results))
	for _, it := range res.Results {
		dto := batchItemDTO{
			Index:   it.Index,
			Address: it.Address,
			Success: it.Success,
			Error:   it.Error,
		}
		if it.Result != nil {
			r := toGeocodeResultDTO(*it.Result)
			dto.Data = &r
		}
		items = append(items, dto)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success":    true,
		"results":    items,
		"successful": res.Successful,
		"failed":     res.Failed,
		"total":      res.Total,
	})
}

type coordinateReportDTO struct {
	coordinateDTO
	Valid  bool              `json:"valid"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (h *Locations) validateCoordinates(ctx *gin.Context, coords []coordinateDTO) {
	const op = "locations.http.validate_coordinates"

	if len(coords) == 0 {
		ctx.Error(errs.E(errs.KindInvalid, "COORDINATES_REQUIRED", op, "coordinates are required",
			map[string]string{"coordinates": "must not be empty"}, nil))
		return
	}

	out := make([]coordinateReportDTO, 0, len(coords))
	valid := 0
	for _, c := range coords {
		report := coordinateReportDTO{coordinateDTO: c, Valid: true}
		p := geo.Point{Lat: c.Latitude, Lon: c.Longitude}
		if err := p.Validate(op); err != nil {
			report.Valid = false
			if e, ok := errs.As(err); ok {
				report.Fields = e.Fields
			}
		} else {
			valid++
		}
		out = append(out, report)
	}

	ctx.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    out,
		"valid":   valid,
		"invalid": len(out) - valid,
		"total":   len(out),
	})
}
