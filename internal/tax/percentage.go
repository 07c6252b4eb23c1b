package tax

import (
	"context"
	"math"
)

// PercentageCalculator calculates tax using a simple percentage rate.
type PercentageCalculator struct {
	rate float64 // e.g., 0.16 for 16%
}

// NewPercentageCalculator creates a new percentage-based tax calculator.
// The rate is a fraction between 0 and 1.
func NewPercentageCalculator(rate float64) Calculator {
	return &PercentageCalculator{rate: rate}
}

// CalculateTax computes tax on line item totals plus shipping using the
// configured rate. Rounding follows math.Round on the cent amount.
func (c *PercentageCalculator) CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error) {
	var taxableCents int64
	for _, item := range params.LineItems {
		taxableCents += item.TotalPrice
	}
	taxableCents += params.ShippingCents

	amountCents := int64(math.Round(float64(taxableCents) * c.rate))

	return &TaxResult{
		TotalTaxCents: amountCents,
		Breakdown: []TaxBreakdown{
			{
				Jurisdiction: "national",
				Name:         "VAT",
				Rate:         c.rate,
				AmountCents:  amountCents,
			},
		},
		IsEstimate: false,
	}, nil
}
