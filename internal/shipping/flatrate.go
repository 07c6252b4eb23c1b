package shipping

import (
	"context"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// FlatRateQuoter prices each shipping method from a fixed rate card.
// Store pickup is always free; the two courier methods carry flat rates
// taken from configuration.
type FlatRateQuoter struct {
	nairobiCents   int64
	upcountryCents int64
}

// NewFlatRateQuoter creates a flat-rate quoter. Amounts are in cents.
func NewFlatRateQuoter(nairobiCents, upcountryCents int64) Quoter {
	return &FlatRateQuoter{
		nairobiCents:   nairobiCents,
		upcountryCents: upcountryCents,
	}
}

// Quote resolves the cost for a method after checking it can serve the county.
func (q *FlatRateQuoter) Quote(ctx context.Context, method domain.ShippingMethod, county string) (*Quote, error) {
	if !method.Valid() {
		return nil, ErrUnknownMethod
	}
	if err := method.ValidateCounty(county); err != nil {
		return nil, err
	}

	quote := &Quote{Method: method}
	if days, ok := method.EstimatedDeliveryDays(); ok {
		quote.DeliveryDays = days
		quote.HasDeliveryEstimate = true
	}

	switch method {
	case domain.ShippingStorePickup:
		quote.CostCents = 0
	case domain.ShippingNairobiOnly:
		quote.CostCents = q.nairobiCents
	case domain.ShippingOtherTowns:
		quote.CostCents = q.upcountryCents
	}

	return quote, nil
}
