package tax_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sokoni-labs/babyshop/internal/tax"
	"github.com/stretchr/testify/assert"
)

func TestNoTaxCalculator_CalculateTax_ReturnsZeroTax(t *testing.T) {
	calc := tax.NewNoTaxCalculator()

	params := tax.TaxParams{
		ShippingAddress: tax.Address{
			Line1:      "Moi Avenue 45",
			City:       "Mombasa",
			County:     "Mombasa",
			PostalCode: "80100",
			Country:    "KE",
		},
		LineItems: []tax.LineItem{
			{
				ProductID:   uuid.New(),
				Description: "Organic Cotton Onesie - 0-3M",
				Quantity:    2,
				UnitPrice:   1800,
				TotalPrice:  3600,
				TaxCategory: "clothing",
			},
			{
				ProductID:   uuid.New(),
				Description: "Muslin Swaddle 3-Pack",
				Quantity:    1,
				UnitPrice:   2200,
				TotalPrice:  2200,
				TaxCategory: "clothing",
			},
		},
		ShippingCents: 500,
	}

	result, err := calc.CalculateTax(context.Background(), params)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, int64(0), result.TotalTaxCents, "NoTaxCalculator should always return zero tax")
	assert.Empty(t, result.Breakdown, "NoTaxCalculator should return empty breakdown")
	assert.False(t, result.IsEstimate, "NoTaxCalculator result should not be marked as estimate")
}

func TestNoTaxCalculator_CalculateTax_EmptyLineItems(t *testing.T) {
	calc := tax.NewNoTaxCalculator()

	result, err := calc.CalculateTax(context.Background(), tax.TaxParams{})

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, int64(0), result.TotalTaxCents)
	assert.Empty(t, result.Breakdown)
}

func TestNoTaxCalculator_CalculateTax_LargeOrder(t *testing.T) {
	calc := tax.NewNoTaxCalculator()

	params := tax.TaxParams{
		LineItems: []tax.LineItem{
			{TotalPrice: 5000000},
			{TotalPrice: 2500000},
		},
		ShippingCents: 50000,
	}

	result, err := calc.CalculateTax(context.Background(), params)

	assert.NoError(t, err)
	assert.Equal(t, int64(0), result.TotalTaxCents, "Amount never matters for the no-tax calculator")
}
