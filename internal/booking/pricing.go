package booking

import (
	"time"

	"github.com/fieldbook-id/fieldbook/internal/domain"
)

// PriceResolver resolves the price of a slot on one field: the field's
// rate table first, then the price embedded on a matched schedule record,
// then the configured default. Zero is a valid "unspecified" price; the
// resolved value is never negative.
type PriceResolver struct {
	field        *domain.Field
	index        *AvailabilityIndex
	defaultPrice int64
}

// NewPriceResolver builds a resolver over one field's rate table and an
// availability snapshot for the fallback chain.
func NewPriceResolver(field *domain.Field, index *AvailabilityIndex, defaultPrice int64) *PriceResolver {
	if defaultPrice < 0 {
		defaultPrice = 0
	}
	return &PriceResolver{field: field, index: index, defaultPrice: defaultPrice}
}

// Price resolves the per-session price for a slot id.
func (r *PriceResolver) Price(slotID string) int64 {
	if r.field != nil {
		if p, ok := r.field.RateFor(slotID); ok && p > 0 {
			return p
		}
	}
	if r.index != nil {
		if p, ok := r.index.SlotPrice(slotID); ok && p > 0 {
			return p
		}
	}
	return r.defaultPrice
}

// PriceStats summarises the resolved prices of a weekday→slot selection,
// so callers can tell a uniform package rate from a heterogeneous one.
type PriceStats struct {
	Min     int64 `json:"min"`
	Max     int64 `json:"max"`
	Uniform bool  `json:"uniform"`
}

// Stats resolves every selected slot and returns min/max over the results.
// An empty selection yields zeros.
func (r *PriceResolver) Stats(selection map[time.Weekday]string) PriceStats {
	var stats PriceStats
	first := true
	for _, slotID := range selection {
		p := r.Price(slotID)
		if first {
			stats.Min, stats.Max = p, p
			first = false
			continue
		}
		if p < stats.Min {
			stats.Min = p
		}
		if p > stats.Max {
			stats.Max = p
		}
	}
	stats.Uniform = stats.Min == stats.Max
	return stats
}
