package shipping

import (
	"context"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// Quoter prices a shipping method for a destination county.
// Implementations: FlatRateQuoter for the launch rate card. A carrier-backed
// quoter can replace it later without touching checkout.
type Quoter interface {
	// Quote validates the method against the destination county and returns
	// the cost and delivery estimate.
	Quote(ctx context.Context, method domain.ShippingMethod, county string) (*Quote, error)
}

// Quote is a priced shipping option.
type Quote struct {
	Method    domain.ShippingMethod
	CostCents int64

	// DeliveryDays is the courier transit estimate. HasDeliveryEstimate is
	// false for store pickup, which has no courier leg.
	DeliveryDays        int
	HasDeliveryEstimate bool
}
