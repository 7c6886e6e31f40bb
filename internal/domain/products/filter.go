package products

import (
	"sort"
	"strings"
)

// Apply returns the products matching every set filter. Order is
// preserved; the input slice is not modified.
func (f Filter) Apply(items []NearbyProduct) []NearbyProduct {
	if f.IsZero() {
		return items
	}

	out := make([]NearbyProduct, 0, len(items))
	for _, p := range items {
		if f.matches(p) {
			out = append(out, p)
		}
	}
	return out
}

func (f Filter) matches(p NearbyProduct) bool {
	if f.Category != "" && !strings.Contains(strings.ToLower(p.Category), strings.ToLower(f.Category)) {
		return false
	}
	if f.MinPrice != nil && p.Price < *f.MinPrice {
		return false
	}
	if f.MaxPrice != nil && p.Price > *f.MaxPrice {
		return false
	}
	if f.Organic != nil && p.Organic != *f.Organic {
		return false
	}
	return true
}

// GroupBySeller folds a flat product list into per-seller groups,
// preserving first-seen seller order.
func GroupBySeller(items []NearbyProduct) []SellerGroup {
	groups := make([]SellerGroup, 0)
	index := make(map[int64]int)

	for _, p := range items {
		i, ok := index[p.SellerID]
		if !ok {
			i = len(groups)
			index[p.SellerID] = i
			groups = append(groups, SellerGroup{
				SellerID:   p.SellerID,
				SellerName: p.SellerName,
				FarmName:   p.FarmName,
				City:       p.SellerCity,
				DistanceKm: p.DistanceKm,
			})
		}
		groups[i].Products = append(groups[i].Products, p)
	}
	return groups
}

type SortKey string

const (
	SortByDistance     SortKey = "distance"
	SortByProductCount SortKey = "product_count"
	SortByName         SortKey = "name"
)

// SortGroups stably sorts seller groups by the given key; ties keep
// their original order. Unknown keys leave the slice untouched.
func SortGroups(groups []SellerGroup, key SortKey) {
	switch key {
	case SortByDistance:
		sort.SliceStable(groups, func(i, j int) bool {
			return groups[i].DistanceKm < groups[j].DistanceKm
		})
	case SortByProductCount:
		sort.SliceStable(groups, func(i, j int) bool {
			return len(groups[i].Products) > len(groups[j].Products)
		})
	case SortByName:
		sort.SliceStable(groups, func(i, j int) bool {
			return strings.ToLower(groups[i].FarmName) < strings.ToLower(groups[j].FarmName)
		})
	}
}
