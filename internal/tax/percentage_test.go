package tax_test

import (
	"context"
	"math"
	"testing"

	"github.com/google/uuid"
	"github.com/sokoni-labs/babyshop/internal/tax"
	"github.com/stretchr/testify/assert"
)

// Test_PercentageCalculator_StandardVAT validates the standard Kenyan VAT case:
// Subtotal KSh 25 (2500 cents) + Shipping KSh 5 (500 cents) * 16% = KSh 4.80 (480 cents)
func Test_PercentageCalculator_StandardVAT(t *testing.T) {
	calc := tax.NewPercentageCalculator(0.16)

	params := tax.TaxParams{
		LineItems: []tax.LineItem{
			{
				ProductID:   uuid.New(),
				Description: "Organic Cotton Onesie - 0-3M",
				Quantity:    1,
				UnitPrice:   2500,
				TotalPrice:  2500,
				TaxCategory: "clothing",
			},
		},
		ShippingCents: 500,
	}

	result, err := calc.CalculateTax(context.Background(), params)

	assert.NoError(t, err)
	assert.NotNil(t, result)
	assert.Equal(t, int64(480), result.TotalTaxCents, "(2500 + 500) * 0.16 = 480 cents")
	assert.Len(t, result.Breakdown, 1, "Should have exactly one breakdown entry")
	assert.Equal(t, "national", result.Breakdown[0].Jurisdiction)
	assert.Equal(t, "VAT", result.Breakdown[0].Name)
	assert.Equal(t, 0.16, result.Breakdown[0].Rate)
	assert.Equal(t, int64(480), result.Breakdown[0].AmountCents)
	assert.False(t, result.IsEstimate, "Percentage calculator provides exact amounts")
}

// Test_PercentageCalculator_DifferentTaxRates validates calculation accuracy across various rates
func Test_PercentageCalculator_DifferentTaxRates(t *testing.T) {
	tests := []struct {
		name        string
		rate        float64
		subtotal    int64
		shipping    int64
		expectedTax int64
		explanation string
	}{
		{
			name:        "zero percent rate",
			rate:        0.0,
			subtotal:    10000,
			shipping:    500,
			expectedTax: 0,
			explanation: "Zero rate always yields zero tax",
		},
		{
			name:        "standard sixteen percent",
			rate:        0.16,
			subtotal:    10000,
			shipping:    0,
			expectedTax: 1600,
			explanation: "10000 * 0.16 = 1600",
		},
		{
			name:        "reduced eight percent",
			rate:        0.08,
			subtotal:    10000,
			shipping:    0,
			expectedTax: 800,
			explanation: "10000 * 0.08 = 800",
		},
		{
			name:        "twelve and a half percent",
			rate:        0.125,
			subtotal:    8000,
			shipping:    0,
			expectedTax: 1000,
			explanation: "8000 * 0.125 = 1000",
		},
		{
			name:        "very small rate",
			rate:        0.001,
			subtotal:    100000,
			shipping:    0,
			expectedTax: 100,
			explanation: "100000 * 0.001 = 100",
		},
		{
			name:        "one hundred percent rate edge case",
			rate:        1.0,
			subtotal:    5000,
			shipping:    0,
			expectedTax: 5000,
			explanation: "5000 * 1.0 = 5000 (edge case: tax equals subtotal)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := tax.NewPercentageCalculator(tt.rate)

			params := tax.TaxParams{
				LineItems: []tax.LineItem{
					{TotalPrice: tt.subtotal},
				},
				ShippingCents: tt.shipping,
			}

			result, err := calc.CalculateTax(context.Background(), params)

			assert.NoError(t, err)
			assert.NotNil(t, result)
			assert.Equal(t, tt.expectedTax, result.TotalTaxCents, tt.explanation)
			assert.Equal(t, tt.rate, result.Breakdown[0].Rate)
		})
	}
}

// Test_PercentageCalculator_RoundingBehavior validates that fractional cents
// round the way math.Round does (half away from zero)
func Test_PercentageCalculator_RoundingBehavior(t *testing.T) {
	tests := []struct {
		name        string
		rate        float64
		subtotal    int64
		shipping    int64
		expectedTax int64
		explanation string
	}{
		{
			name:        "rounds up above half",
			rate:        0.16,
			subtotal:    1055,
			shipping:    0,
			expectedTax: 169,
			explanation: "1055 * 0.16 = 168.8, rounds to 169",
		},
		{
			name:        "rounds down below half",
			rate:        0.16,
			subtotal:    1053,
			shipping:    0,
			expectedTax: 168,
			explanation: "1053 * 0.16 = 168.48, rounds to 168",
		},
		{
			name:        "half rounds away from zero",
			rate:        0.125,
			subtotal:    1052,
			shipping:    0,
			expectedTax: 132,
			explanation: "1052 * 0.125 = 131.5, rounds to 132",
		},
		{
			name:        "exact cents need no rounding",
			rate:        0.16,
			subtotal:    100,
			shipping:    0,
			expectedTax: 16,
			explanation: "100 * 0.16 = 16 exactly",
		},
		{
			name:        "shipping included before rounding",
			rate:        0.07,
			subtotal:    12000,
			shipping:    345,
			expectedTax: 864,
			explanation: "12345 * 0.07 = 864.15, rounds to 864",
		},
		{
			name:        "tiny amount rounds to zero",
			rate:        0.03,
			subtotal:    1,
			shipping:    0,
			expectedTax: 0,
			explanation: "1 * 0.03 = 0.03, rounds to 0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := tax.NewPercentageCalculator(tt.rate)

			params := tax.TaxParams{
				LineItems:     []tax.LineItem{{TotalPrice: tt.subtotal}},
				ShippingCents: tt.shipping,
			}

			result, err := calc.CalculateTax(context.Background(), params)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedTax, result.TotalTaxCents, tt.explanation)

			taxableAmount := float64(tt.subtotal + tt.shipping)
			expectedFloat := math.Round(taxableAmount * tt.rate)
			assert.Equal(t, int64(expectedFloat), result.TotalTaxCents, "Should match math.Round behavior")
		})
	}
}

// Test_PercentageCalculator_MultipleLineItems validates tax across a realistic basket
func Test_PercentageCalculator_MultipleLineItems(t *testing.T) {
	calc := tax.NewPercentageCalculator(0.16)

	params := tax.TaxParams{
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
			{
				ProductID:   uuid.New(),
				Description: "Silicone Teething Ring",
				Quantity:    3,
				UnitPrice:   500,
				TotalPrice:  1500,
				TaxCategory: "toys",
			},
		},
		ShippingCents: 750,
	}

	result, err := calc.CalculateTax(context.Background(), params)

	assert.NoError(t, err)
	assert.NotNil(t, result)

	// 3600 + 2200 + 1500 + 750 = 8050 taxable
	expectedTax := int64(1288)
	assert.Equal(t, expectedTax, result.TotalTaxCents, "(3600 + 2200 + 1500 + 750) * 0.16 = 1288")
	assert.Len(t, result.Breakdown, 1)
	assert.Equal(t, expectedTax, result.Breakdown[0].AmountCents)
}

// Test_PercentageCalculator_SingleLineItem validates the simplest basket
func Test_PercentageCalculator_SingleLineItem(t *testing.T) {
	calc := tax.NewPercentageCalculator(0.16)

	params := tax.TaxParams{
		LineItems: []tax.LineItem{
			{
				ProductID:   uuid.New(),
				Description: "Baby Bath Thermometer",
				Quantity:    1,
				UnitPrice:   1600,
				TotalPrice:  1600,
				TaxCategory: "care",
			},
		},
	}

	result, err := calc.CalculateTax(context.Background(), params)

	assert.NoError(t, err)
	assert.Equal(t, int64(256), result.TotalTaxCents, "1600 * 0.16 = 256")
}

// Test_PercentageCalculator_ShippingScenarios validates shipping cost handling
func Test_PercentageCalculator_ShippingScenarios(t *testing.T) {
	tests := []struct {
		name        string
		subtotal    int64
		shipping    int64
		expectedTax int64
		explanation string
	}{
		{
			name:        "upcountry courier shipping",
			subtotal:    5500,
			shipping:    500,
			expectedTax: 960,
			explanation: "(5500 + 500) * 0.16 = 960",
		},
		{
			name:        "store pickup has no shipping",
			subtotal:    2500,
			shipping:    0,
			expectedTax: 400,
			explanation: "2500 * 0.16 = 400",
		},
		{
			name:        "shipping only",
			subtotal:    0,
			shipping:    500,
			expectedTax: 80,
			explanation: "500 * 0.16 = 80",
		},
		{
			name:        "free shipping promotion",
			subtotal:    12000,
			shipping:    0,
			expectedTax: 1920,
			explanation: "12000 * 0.16 = 1920",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := tax.NewPercentageCalculator(0.16)

			params := tax.TaxParams{
				ShippingCents: tt.shipping,
			}
			if tt.subtotal > 0 {
				params.LineItems = []tax.LineItem{{TotalPrice: tt.subtotal}}
			}

			result, err := calc.CalculateTax(context.Background(), params)

			assert.NoError(t, err)
			assert.Equal(t, tt.expectedTax, result.TotalTaxCents, tt.explanation)
		})
	}
}

// Test_PercentageCalculator_EdgeCases validates unusual but legal inputs
func Test_PercentageCalculator_EdgeCases(t *testing.T) {
	tests := []struct {
		name        string
		rate        float64
		lineItems   []tax.LineItem
		shipping    int64
		expectedTax int64
		description string
	}{
		{
			name:        "empty basket and no shipping",
			rate:        0.16,
			lineItems:   nil,
			shipping:    0,
			expectedTax: 0,
			description: "Nothing taxable yields zero tax",
		},
		{
			name:        "one cent item",
			rate:        0.16,
			lineItems:   []tax.LineItem{{TotalPrice: 1}},
			shipping:    0,
			expectedTax: 0,
			description: "1 * 0.16 = 0.16, rounds to 0",
		},
		{
			name:        "large gift registry order",
			rate:        0.16,
			lineItems:   []tax.LineItem{{TotalPrice: 5000000}},
			shipping:    0,
			expectedTax: 800000,
			description: "KSh 50,000 order taxes cleanly at 16%",
		},
		{
			name: "calculator reads TotalPrice not UnitPrice",
			rate: 0.16,
			lineItems: []tax.LineItem{
				{Quantity: 3, UnitPrice: 100, TotalPrice: 999},
			},
			shipping:    0,
			expectedTax: 160,
			description: "999 * 0.16 = 159.84, rounds to 160",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			calc := tax.NewPercentageCalculator(tt.rate)

			params := tax.TaxParams{
				LineItems:     tt.lineItems,
				ShippingCents: tt.shipping,
			}

			result, err := calc.CalculateTax(context.Background(), params)

			assert.NoError(t, err)
			assert.NotNil(t, result)
			assert.Equal(t, tt.expectedTax, result.TotalTaxCents, tt.description)
		})
	}
}

// Test_PercentageCalculator_TaxResultStructure validates every field of the result
func Test_PercentageCalculator_TaxResultStructure(t *testing.T) {
	rate := 0.16
	calc := tax.NewPercentageCalculator(rate)

	params := tax.TaxParams{
		ShippingAddress: tax.Address{
			Line1:      "Biashara Street 12",
			City:       "Nairobi",
			County:     "Nairobi",
			PostalCode: "00100",
			Country:    "KE",
		},
		LineItems:     []tax.LineItem{{TotalPrice: 5000}},
		ShippingCents: 1000,
	}

	result, err := calc.CalculateTax(context.Background(), params)

	assert.NoError(t, err)
	assert.NotNil(t, result, "Result should not be nil")

	expectedTax := int64(960) // (5000 + 1000) * 0.16 = 960
	assert.Equal(t, expectedTax, result.TotalTaxCents)

	assert.Len(t, result.Breakdown, 1, "Should have exactly one breakdown entry")

	breakdown := result.Breakdown[0]
	assert.Equal(t, "national", breakdown.Jurisdiction, "Jurisdiction should be 'national'")
	assert.Equal(t, "VAT", breakdown.Name, "Name should be 'VAT'")
	assert.Equal(t, rate, breakdown.Rate, "Rate should match configured rate")
	assert.Equal(t, expectedTax, breakdown.AmountCents, "Breakdown amount should match total tax")
	assert.False(t, result.IsEstimate, "Result should not be marked as estimate")
}
