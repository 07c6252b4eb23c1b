package domain

import (
	"time"

	"github.com/google/uuid"
)

// Gender classifies a product's target group.
type Gender string

const (
	GenderBoys    Gender = "boys"
	GenderGirls   Gender = "girls"
	GenderUnisex  Gender = "unisex"
	GenderNewborn Gender = "newborn"
)

// Valid reports whether g is a known gender value.
func (g Gender) Valid() bool {
	switch g {
	case GenderBoys, GenderGirls, GenderUnisex, GenderNewborn:
		return true
	}
	return false
}

// AgeRange classifies a product's target age bracket.
type AgeRange string

const (
	AgeRange0To3M   AgeRange = "0-3m"
	AgeRange3To6M   AgeRange = "3-6m"
	AgeRange6To9M   AgeRange = "6-9m"
	AgeRange9To12M  AgeRange = "9-12m"
	AgeRange12To18M AgeRange = "12-18m"
	AgeRange18To24M AgeRange = "18-24m"
	AgeRange2To3Y   AgeRange = "2-3y"
	AgeRange3To4Y   AgeRange = "3-4y"
	AgeRange4To5Y   AgeRange = "4-5y"
	AgeRange5To6Y   AgeRange = "5-6y"
)

// Valid reports whether a is a known age range value.
func (a AgeRange) Valid() bool {
	switch a {
	case AgeRange0To3M, AgeRange3To6M, AgeRange6To9M, AgeRange9To12M,
		AgeRange12To18M, AgeRange18To24M, AgeRange2To3Y, AgeRange3To4Y,
		AgeRange4To5Y, AgeRange5To6Y:
		return true
	}
	return false
}

// Availability is derived from stock levels every time stock is written.
type Availability string

const (
	AvailabilityInStock    Availability = "in_stock"
	AvailabilityLowStock   Availability = "low_stock"
	AvailabilityOutOfStock Availability = "out_of_stock"
)

// Category groups products for browsing. Categories may nest one level
// deep via ParentID.
type Category struct {
	ID        uuid.UUID
	Name      string
	Slug      string
	ParentID  *uuid.UUID
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Brand identifies a product manufacturer.
type Brand struct {
	ID       uuid.UUID
	Name     string
	Slug     string
	IsActive bool
}

// Product is a catalog entry. Prices are stored in cents to avoid floating
// point arithmetic on money.
type Product struct {
	ID                  uuid.UUID
	Name                string
	Slug                string
	ProductCode         string
	Description         string
	CategoryID          *uuid.UUID
	BrandID             *uuid.UUID
	Gender              Gender
	AgeRange            AgeRange
	PriceCents          int64
	CompareAtPriceCents *int64
	StockQuantity       int32
	LowStockThreshold   int32
	Availability        Availability
	IsActive            bool
	IsFeatured          bool
	IsNew               bool
	IsBestseller        bool
	ImageURL            string
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// ComputeAvailability derives the availability bucket from current stock.
// Called on every stock write so the stored column never drifts.
func (p *Product) ComputeAvailability() Availability {
	switch {
	case p.StockQuantity > p.LowStockThreshold:
		return AvailabilityInStock
	case p.StockQuantity > 0:
		return AvailabilityLowStock
	default:
		return AvailabilityOutOfStock
	}
}

// IsDiscounted returns true when a compare-at price above the selling
// price is set.
func (p *Product) IsDiscounted() bool {
	return p.CompareAtPriceCents != nil && *p.CompareAtPriceCents > p.PriceCents
}

// DiscountPercent returns the whole-number discount percentage, 0 when not
// discounted.
func (p *Product) DiscountPercent() int32 {
	if !p.IsDiscounted() {
		return 0
	}
	compare := *p.CompareAtPriceCents
	return int32((compare - p.PriceCents) * 100 / compare)
}

// IsGiftSuitable marks products surfaced in gift recommendations.
func (p *Product) IsGiftSuitable() bool {
	return p.IsNew || p.IsFeatured || p.IsBestseller || p.IsDiscounted()
}

// ProductVariant is a size/color combination of a product with its own
// stock and price adjustment. Uniqueness on (product, size, color).
type ProductVariant struct {
	ID                   uuid.UUID
	ProductID            uuid.UUID
	Size                 string
	Color                string
	ColorCode            string
	VariantCode          string
	StockQuantity        int32
	PriceAdjustmentCents int64
	IsActive             bool
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CurrentPriceCents returns the effective unit price for the variant given
// the parent product's base price. Adjustments may be negative.
func (v *ProductVariant) CurrentPriceCents(productPriceCents int64) int64 {
	return productPriceCents + v.PriceAdjustmentCents
}
