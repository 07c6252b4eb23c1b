package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/google/uuid"
)

// OrderStatus is the fulfillment state of an order.
type OrderStatus string

const (
	// OrderStatusDraft is reserved for carts promoted without payment
	// details. Nothing writes it today.
	OrderStatusDraft OrderStatus = "draft"

	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusRefunded   OrderStatus = "refunded"
)

// orderTransitions is the guided transition table. Statuses absent from a
// row's set are rejected with a descriptive error.
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusRefunded},
	OrderStatusCancelled:  {},
	OrderStatusRefunded:   {},
}

// Valid reports whether s is a known order status.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusDraft, OrderStatusPending, OrderStatusConfirmed,
		OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered,
		OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the guided machine allows s -> next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Locked reports whether s may never be left, not even by staff direct
// writes. The guided delivered -> refunded path goes through
// TransitionTo, not ForceStatus.
func (s OrderStatus) Locked() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// OrderPaymentStatus is the payment state tracked on the order itself,
// denormalized from the payment rows.
type OrderPaymentStatus string

const (
	OrderPaymentPending       OrderPaymentStatus = "pending"
	OrderPaymentAuthorized    OrderPaymentStatus = "authorized"
	OrderPaymentPaid          OrderPaymentStatus = "paid"
	OrderPaymentPartiallyPaid OrderPaymentStatus = "partially_paid"
	OrderPaymentRefunded      OrderPaymentStatus = "refunded"
	OrderPaymentFailed        OrderPaymentStatus = "failed"
	OrderPaymentCancelled     OrderPaymentStatus = "cancelled"
)

var orderPaymentTransitions = map[OrderPaymentStatus][]OrderPaymentStatus{
	OrderPaymentPending:       {OrderPaymentAuthorized, OrderPaymentPaid, OrderPaymentFailed, OrderPaymentCancelled},
	OrderPaymentAuthorized:    {OrderPaymentPaid, OrderPaymentFailed, OrderPaymentCancelled},
	OrderPaymentPaid:          {OrderPaymentRefunded, OrderPaymentPartiallyPaid},
	OrderPaymentPartiallyPaid: {OrderPaymentPaid, OrderPaymentRefunded},
	OrderPaymentFailed:        {OrderPaymentPending},
	OrderPaymentCancelled:     {},
	OrderPaymentRefunded:      {},
}

// Valid reports whether s is a known order payment status.
func (s OrderPaymentStatus) Valid() bool {
	switch s {
	case OrderPaymentPending, OrderPaymentAuthorized, OrderPaymentPaid,
		OrderPaymentPartiallyPaid, OrderPaymentRefunded, OrderPaymentFailed,
		OrderPaymentCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether the guided machine allows s -> next.
func (s OrderPaymentStatus) CanTransitionTo(next OrderPaymentStatus) bool {
	for _, allowed := range orderPaymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ShippingMethod selects how an order is delivered and which counties the
// shipping address may be in.
type ShippingMethod string

const (
	ShippingStorePickup ShippingMethod = "store_pickup"
	ShippingNairobiOnly ShippingMethod = "nairobi_only"
	ShippingOtherTowns  ShippingMethod = "other_towns"
)

// Valid reports whether m is a known shipping method.
func (m ShippingMethod) Valid() bool {
	switch m {
	case ShippingStorePickup, ShippingNairobiOnly, ShippingOtherTowns:
		return true
	}
	return false
}

// EstimatedDeliveryDays returns the delivery estimate for the method.
// Store pickup has no estimate (ok=false).
func (m ShippingMethod) EstimatedDeliveryDays() (days int, ok bool) {
	switch m {
	case ShippingNairobiOnly:
		return 1, true
	case ShippingOtherTowns:
		return 3, true
	default:
		return 0, false
	}
}

// ValidateCounty enforces the method/destination pairing: metro delivery
// requires a Nairobi county, upcountry delivery requires any other county,
// store pickup accepts anything.
func (m ShippingMethod) ValidateCounty(county string) error {
	switch m {
	case ShippingNairobiOnly:
		if !IsNairobi(county) {
			return Invalid("order.shipping", "nairobi_only delivery requires a Nairobi shipping address")
		}
	case ShippingOtherTowns:
		if IsNairobi(county) {
			return Invalid("order.shipping", "other_towns delivery cannot ship to Nairobi; use nairobi_only")
		}
	}
	return nil
}

// Order is the denormalized order record. Shipping and billing fields are
// flat point-in-time copies of the resolved addresses; line items carry
// their own copies. Stage timestamps are stamped exactly once on first
// entry into each status.
type Order struct {
	ID          uuid.UUID
	OrderNumber string
	UserID      uuid.UUID

	Status           OrderStatus
	PaymentStatus    OrderPaymentStatus
	PaymentMethod    string
	PaymentReference string
	PaymentDate      *time.Time

	ShippingMethod    ShippingMethod
	ShippingAddressID *uuid.UUID

	ShippingContactName string
	ShippingPhone       string
	ShippingLine1       string
	ShippingLine2       string
	ShippingCity        string
	ShippingCounty      string
	ShippingPostalCode  string

	BillingSameAsShipping bool
	BillingContactName    string
	BillingPhone          string
	BillingLine1          string
	BillingLine2          string
	BillingCity           string
	BillingCounty         string
	BillingPostalCode     string

	SubtotalCents     int64
	ShippingCostCents int64
	TaxCents          int64
	DiscountCents     int64
	GiftWrapFeeCents  int64
	TotalCents        int64

	CustomerNotes string
	IsGift        bool
	GiftMessage   string
	GiftWrapping  bool

	TrackingNumber string
	Carrier        string

	ConfirmedAt *time.Time
	ProcessedAt *time.Time
	ShippedAt   *time.Time
	DeliveredAt *time.Time
	CancelledAt *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

// CanBeCancelled reports whether the order is still in a cancellable
// stage. Shipped and later stages require the refund flow instead.
func (o *Order) CanBeCancelled() bool {
	switch o.Status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing:
		return true
	}
	return false
}

// TransitionTo moves the order along the guided status machine, stamping
// the stage timestamp on first entry. Disallowed moves return EINVALID
// with the offending pair.
func (o *Order) TransitionTo(next OrderStatus, now time.Time) error {
	if !next.Valid() {
		return Errorf(EINVALID, "order.transition", "unknown order status: %s", next)
	}
	if !o.Status.CanTransitionTo(next) {
		return Errorf(EINVALID, "order.transition", "cannot change status from %s to %s", o.Status, next)
	}
	o.applyStatus(next, now)
	return nil
}

// ForceStatus applies a staff direct write. Staff may move orders freely
// except out of locked terminal statuses.
func (o *Order) ForceStatus(next OrderStatus, now time.Time) error {
	if !next.Valid() {
		return Errorf(EINVALID, "order.force_status", "unknown order status: %s", next)
	}
	if o.Status.Locked() && next != o.Status {
		return Errorf(EINVALID, "order.force_status", "cannot change status from %s to %s", o.Status, next)
	}
	o.applyStatus(next, now)
	return nil
}

// applyStatus sets the status and stamps its timestamp if this is the
// first entry into that status.
func (o *Order) applyStatus(next OrderStatus, now time.Time) {
	o.Status = next

	stamp := func(at **time.Time) {
		if *at == nil {
			t := now
			*at = &t
		}
	}

	switch next {
	case OrderStatusConfirmed:
		stamp(&o.ConfirmedAt)
	case OrderStatusProcessing:
		stamp(&o.ProcessedAt)
	case OrderStatusShipped:
		stamp(&o.ShippedAt)
	case OrderStatusDelivered:
		stamp(&o.DeliveredAt)
	case OrderStatusCancelled:
		stamp(&o.CancelledAt)
	}
}

// TransitionPaymentStatus moves the denormalized order payment status
// along its guided machine.
func (o *Order) TransitionPaymentStatus(next OrderPaymentStatus) error {
	if !next.Valid() {
		return Errorf(EINVALID, "order.payment_status", "unknown payment status: %s", next)
	}
	if !o.PaymentStatus.CanTransitionTo(next) {
		return Errorf(EINVALID, "order.payment_status", "cannot change payment status from %s to %s", o.PaymentStatus, next)
	}
	o.PaymentStatus = next
	return nil
}

// RecomputeTotal derives the order total from its parts. Runs after every
// item or fee write so the stored total never drifts.
func (o *Order) RecomputeTotal() {
	o.TotalCents = o.SubtotalCents + o.ShippingCostCents + o.TaxCents + o.GiftWrapFeeCents - o.DiscountCents
}

// StatusEvent is one entry in an order's derived status history.
type StatusEvent struct {
	Status OrderStatus
	At     time.Time
}

// StatusHistory derives the ordered status history from the stage
// timestamps. The pending entry is the order's creation.
func (o *Order) StatusHistory() []StatusEvent {
	history := []StatusEvent{{Status: OrderStatusPending, At: o.CreatedAt}}

	stages := []struct {
		status OrderStatus
		at     *time.Time
	}{
		{OrderStatusConfirmed, o.ConfirmedAt},
		{OrderStatusProcessing, o.ProcessedAt},
		{OrderStatusShipped, o.ShippedAt},
		{OrderStatusDelivered, o.DeliveredAt},
		{OrderStatusCancelled, o.CancelledAt},
	}
	for _, stage := range stages {
		if stage.at != nil {
			history = append(history, StatusEvent{Status: stage.status, At: *stage.at})
		}
	}

	return history
}

// OrderItem is a point-in-time copy of a purchased product. Product fields
// are copied at order time so later catalog edits never rewrite history;
// ProductID goes nil if the product is deleted.
type OrderItem struct {
	ID          uuid.UUID
	OrderID     uuid.UUID
	ProductID   *uuid.UUID
	ProductName string
	ProductCode string
	Size        string
	Color       string
	ColorCode   string
	Gender      Gender
	AgeRange    AgeRange

	UnitPriceCents int64
	Quantity       int32
	TotalCents     int64

	CreatedAt time.Time
}

// carrierTrackingURLs maps known carriers to their tracking page formats.
var carrierTrackingURLs = map[string]string{
	"fedex": "https://www.fedex.com/fedextrack/?trknbr=%s",
	"ups":   "https://www.ups.com/track?tracknum=%s",
	"dhl":   "https://www.dhl.com/global-en/home/tracking.html?tracking-id=%s",
	"usps":  "https://tools.usps.com/go/TrackConfirmAction?tLabels=%s",
	"posta": "https://www.posta.co.ke/track-and-trace?number=%s",
	"g4s":   "https://www.g4s.co.ke/track-and-trace?consignment=%s",
	"sendy": "https://www.sendyit.com/track/%s",
}

// CarrierTrackingURL returns the carrier's tracking page for the given
// number, or empty when the carrier is unknown or no number is set.
func CarrierTrackingURL(carrier, trackingNumber string) string {
	if trackingNumber == "" {
		return ""
	}
	format, ok := carrierTrackingURLs[strings.ToLower(strings.TrimSpace(carrier))]
	if !ok {
		return ""
	}
	return fmt.Sprintf(format, trackingNumber)
}

const orderNumberAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateOrderNumber produces a candidate order number of the form
// BABY-YYYYMMDD-XXXXXX with a cryptographically random suffix. Callers
// must handle unique collisions by regenerating.
func GenerateOrderNumber(now time.Time) (string, error) {
	suffix, err := randomAlphanumeric(6)
	if err != nil {
		return "", fmt.Errorf("failed to generate order number: %w", err)
	}
	return fmt.Sprintf("BABY-%s-%s", now.Format("20060102"), suffix), nil
}

// randomAlphanumeric returns n cryptographically random characters from
// the uppercase alphanumeric alphabet.
func randomAlphanumeric(n int) (string, error) {
	max := big.NewInt(int64(len(orderNumberAlphabet)))
	b := make([]byte, n)
	for i := range b {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("failed to generate random bytes: %w", err)
		}
		b[i] = orderNumberAlphabet[idx.Int64()]
	}
	return string(b), nil
}
