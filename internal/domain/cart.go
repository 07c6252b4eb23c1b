package domain

import (
	"time"

	"github.com/google/uuid"
)

// Cart is the per-user shopping cart. Exactly one cart exists per user;
// clearing a cart deletes its lines but never the cart row itself.
type Cart struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CartItem is a cart line. Lines are unique on (cart, product, variant,
// size, color); adding the same combination again increments quantity.
// Product fields and the unit price are resolved on read, never stored,
// so price changes are always reflected.
type CartItem struct {
	ID        uuid.UUID
	CartID    uuid.UUID
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int32
	Size      string
	Color     string

	// Resolved on read from the product/variant join.
	ProductName    string
	ProductSlug    string
	ProductCode    string
	Gender         Gender
	AgeRange       AgeRange
	GiftSuitable   bool
	ImageURL       string
	UnitPriceCents int64

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LineTotalCents returns unit price times quantity.
func (i *CartItem) LineTotalCents() int64 {
	return i.UnitPriceCents * int64(i.Quantity)
}

// CartSummary aggregates cart totals. Recomputed from the lines on every
// read; nothing here is cached.
type CartSummary struct {
	TotalItems    int32
	UniqueLines   int
	SubtotalCents int64
	AgeRanges     []AgeRange
	Genders       []Gender
	HasGiftItems  bool
}

// SummarizeCart computes totals over the given lines. Age ranges and
// genders keep first-seen order.
func SummarizeCart(items []CartItem) CartSummary {
	summary := CartSummary{UniqueLines: len(items)}

	seenAges := make(map[AgeRange]bool)
	seenGenders := make(map[Gender]bool)

	for _, item := range items {
		summary.TotalItems += item.Quantity
		summary.SubtotalCents += item.LineTotalCents()

		if item.AgeRange != "" && !seenAges[item.AgeRange] {
			seenAges[item.AgeRange] = true
			summary.AgeRanges = append(summary.AgeRanges, item.AgeRange)
		}
		if item.Gender != "" && !seenGenders[item.Gender] {
			seenGenders[item.Gender] = true
			summary.Genders = append(summary.Genders, item.Gender)
		}
		if item.GiftSuitable {
			summary.HasGiftItems = true
		}
	}

	return summary
}
