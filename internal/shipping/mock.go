package shipping

import (
	"context"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// MockQuoter is a test implementation of Quoter.
type MockQuoter struct {
	QuoteFunc func(ctx context.Context, method domain.ShippingMethod, county string) (*Quote, error)
}

// NewMockQuoter creates a new mock quoter for testing.
func NewMockQuoter() *MockQuoter {
	return &MockQuoter{}
}

// Quote delegates to the configured function or returns a free quote.
func (m *MockQuoter) Quote(ctx context.Context, method domain.ShippingMethod, county string) (*Quote, error) {
	if m.QuoteFunc != nil {
		return m.QuoteFunc(ctx, method, county)
	}
	quote := &Quote{Method: method}
	if days, ok := method.EstimatedDeliveryDays(); ok {
		quote.DeliveryDays = days
		quote.HasDeliveryEstimate = true
	}
	return quote, nil
}
