package discovery

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/agrolink/geo-discovery-service/internal/errs"
	"github.com/agrolink/geo-discovery-service/internal/geocoder"
)

// MaxBatchGeocode bounds one batch request; larger inputs are rejected
// wholesale before any lookup starts.
const MaxBatchGeocode = 10

type BatchItem struct {
	Index   int
	Address string
	Success bool
	Result  *geocoder.Result
	Error   string
}

type BatchResult struct {
	Results    []BatchItem
	Successful int
	Failed     int
	Total      int
}

// GeocodeBatch resolves each address independently and concurrently.
// One address's failure never aborts the others; every input produces
// exactly one item, matched by Index regardless of completion order.
func (s *Service) GeocodeBatch(ctx context.Context, addresses []string) (BatchResult, error) {
	const op = "discovery.service.geocode_batch"

	if len(addresses) == 0 {
		return BatchResult{}, errs.E(errs.KindInvalid, "ADDRESSES_REQUIRED", op, "addresses are required",
			map[string]string{"addresses": "must not be empty"}, nil)
	}
	if len(addresses) > MaxBatchGeocode {
		return BatchResult{}, errs.E(errs.KindInvalid, "TOO_MANY_ADDRESSES", op, "too many addresses",
			map[string]string{"addresses": fmt.Sprintf("at most %d per batch", MaxBatchGeocode)}, nil)
	}

	results := make([]BatchItem, len(addresses))

	g, gctx := errgroup.WithContext(ctx)
	for i, addr := range addresses {
		g.Go(func() error {
			item := BatchItem{Index: i, Address: addr}

			r, err := s.Geocode(gctx, addr)
			if err != nil {
				item.Error = err.Error()
				if e, ok := errs.As(err); ok && e.Msg != "" {
					item.Error = e.Msg
				}
			} else {
				item.Success = true
				item.Result = &r
			}

			results[i] = item
			// Per-item failures are recorded, never returned, so the
			// group keeps running the remaining addresses.
			return nil
		})
	}
	_ = g.Wait()

	out := BatchResult{Results: results, Total: len(addresses)}
	for _, it := range results {
		if it.Success {
			out.Successful++
		} else {
			out.Failed++
		}
	}
	return out, nil
}
