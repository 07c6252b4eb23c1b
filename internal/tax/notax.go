package tax

import "context"

// NoTaxCalculator returns zero tax for all calculations.
// Used when catalog prices are VAT-inclusive and no separate tax line is
// wanted on orders.
type NoTaxCalculator struct{}

// NewNoTaxCalculator creates a new no-tax calculator.
func NewNoTaxCalculator() Calculator {
	return &NoTaxCalculator{}
}

// CalculateTax always returns zero tax.
func (c *NoTaxCalculator) CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error) {
	return &TaxResult{
		TotalTaxCents: 0,
		Breakdown:     []TaxBreakdown{},
		IsEstimate:    false,
	}, nil
}
