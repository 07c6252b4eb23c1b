package tax

import (
	"context"

	"github.com/google/uuid"
)

// Calculator defines the interface for tax calculation.
// Implementations: PercentageCalculator, NoTaxCalculator
type Calculator interface {
	// CalculateTax computes tax for order line items and shipping.
	// Returns tax amount in cents.
	CalculateTax(ctx context.Context, params TaxParams) (*TaxResult, error)
}

// TaxParams contains all information needed for tax calculation.
type TaxParams struct {
	ShippingAddress Address
	LineItems       []LineItem
	ShippingCents   int64
}

// Address represents a physical address for tax purposes.
type Address struct {
	Line1      string
	Line2      string
	City       string
	County     string
	PostalCode string
	Country    string
}

// LineItem represents a single item being taxed.
type LineItem struct {
	ProductID   uuid.UUID
	Description string
	Quantity    int32
	UnitPrice   int64
	TotalPrice  int64
	TaxCategory string // "clothing", "toys", "care", "general"
}

// TaxResult contains the calculated tax amount and breakdown.
type TaxResult struct {
	TotalTaxCents int64
	Breakdown     []TaxBreakdown
	IsEstimate    bool
}

// TaxBreakdown represents tax for a single jurisdiction. Kenya levies VAT
// nationally, so calculators here produce at most one entry.
type TaxBreakdown struct {
	Jurisdiction string  // "national"
	Name         string  // e.g., "VAT"
	Rate         float64 // e.g., 0.16 for 16%
	AmountCents  int64
}
