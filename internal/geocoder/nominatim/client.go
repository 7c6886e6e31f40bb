// Package nominatim implements geocoder.Geocoder against a
// Nominatim-compatible HTTP endpoint.
package nominatim

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/agrolink/geo-discovery-service/internal/errs"
	"github.com/agrolink/geo-discovery-service/internal/geocoder"
)

const defaultBaseURL = "https://nominatim.openstreetmap.org"

type Option func(*Client)

// WithBaseURL overrides the endpoint, mainly for self-hosted instances
// and tests.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithCountryBias restricts results to the given ISO country codes
// (comma-separated). Biasing is a client configuration concern, not
// part of the search logic.
func WithCountryBias(codes string) Option {
	return func(c *Client) { c.countryCodes = codes }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

type Client struct {
	baseURL      string
	userAgent    string
	countryCodes string
	httpClient   *http.Client
}

// NewClient creates a Nominatim client. The usage policy requires an
// identifying User-Agent.
func NewClient(userAgent string, opts ...Option) *Client {
	c := &Client{
		baseURL:   defaultBaseURL,
		userAgent: userAgent,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) Geocode(ctx context.Context, query string) (geocoder.Result, error) {
	const op = "geocoder.nominatim.geocode"

	params := url.Values{
		"q":              {query},
		"format":         {"jsonv2"},
		"limit":          {"1"},
		"addressdetails": {"1"},
	}
	if c.countryCodes != "" {
		params.Set("countrycodes", c.countryCodes)
	}

	var places []place
	if err := c.doRequest(ctx, op, c.baseURL+"/search?"+params.Encode(), &places); err != nil {
		return geocoder.Result{}, err
	}
	if len(places) == 0 {
		return geocoder.Result{}, errs.E(errs.KindNotFound, "ADDRESS_NOT_FOUND", op, "address not found",
			map[string]string{"query": query}, nil)
	}

	return places[0].toResult(op)
}

func (c *Client) ReverseGeocode(ctx context.Context, lat, lon float64) (geocoder.Result, error) {
	const op = "geocoder.nominatim.reverse_geocode"

	params := url.Values{
		"lat":            {fmt.Sprintf("%.6f", lat)},
		"lon":            {fmt.Sprintf("%.6f", lon)},
		"format":         {"jsonv2"},
		"addressdetails": {"1"},
	}

	var p place
	if err := c.doRequest(ctx, op, c.baseURL+"/reverse?"+params.Encode(), &p); err != nil {
		return geocoder.Result{}, err
	}
	if p.Error != "" || p.PlaceID == 0 {
		return geocoder.Result{}, errs.E(errs.KindNotFound, "ADDRESS_NOT_FOUND", op, "no address at coordinates", nil, nil)
	}

	return p.toResult(op)
}

func (c *Client) doRequest(ctx context.Context, op, fullURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
	if err != nil {
		return errs.E(errs.KindInternal, "REQUEST_BUILD", op, "create request", nil, err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return errs.E(errs.KindUnavailable, "GEOCODER_UNAVAILABLE", op, "geocoding service unavailable", nil, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errs.E(errs.KindUnavailable, "GEOCODER_UNAVAILABLE", op,
			fmt.Sprintf("geocoding service returned %d: %s", resp.StatusCode, body), nil, nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errs.E(errs.KindUnavailable, "GEOCODER_BAD_RESPONSE", op, "decode response", nil, err)
	}
	return nil
}

// Nominatim jsonv2 response types.

type place struct {
	PlaceID     int64   `json:"place_id"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
	DisplayName string  `json:"display_name"`
	Address     address `json:"address"`
	Error       string  `json:"error"`
}

type address struct {
	City     string `json:"city"`
	Town     string `json:"town"`
	Village  string `json:"village"`
	State    string `json:"state"`
	Country  string `json:"country"`
	Postcode string `json:"postcode"`
}

func (p place) toResult(op string) (geocoder.Result, error) {
	var lat, lon float64
	if _, err := fmt.Sscanf(p.Lat, "%f", &lat); err != nil {
		return geocoder.Result{}, errs.E(errs.KindUnavailable, "GEOCODER_BAD_RESPONSE", op, "invalid latitude in response", nil, err)
	}
	if _, err := fmt.Sscanf(p.Lon, "%f", &lon); err != nil {
		return geocoder.Result{}, errs.E(errs.KindUnavailable, "GEOCODER_BAD_RESPONSE", op, "invalid longitude in response", nil, err)
	}

	city := p.Address.City
	if city == "" {
		city = p.Address.Town
	}
	if city == "" {
		city = p.Address.Village
	}

	return geocoder.Result{
		Lat:              lat,
		Lon:              lon,
		FormattedAddress: p.DisplayName,
		City:             city,
		State:            p.Address.State,
		Country:          p.Address.Country,
		PostalCode:       p.Address.Postcode,
		PlaceID:          fmt.Sprintf("%d", p.PlaceID),
	}, nil
}
