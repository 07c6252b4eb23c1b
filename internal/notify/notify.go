// Package notify fans customer notifications out to delivery channels.
// Launch ships with a log-backed dispatcher; an email or SMS sender can
// implement Dispatcher later without touching the services that publish.
package notify

import (
	"context"

	"github.com/google/uuid"
)

// Event identifies a customer notification.
type Event string

const (
	EventOrderCreated       Event = "order.created"
	EventOrderStatusChanged Event = "order.status_changed"
	EventPaymentReceived    Event = "payment.received"
	EventPaymentRefunded    Event = "payment.refunded"
)

// Notification carries everything a delivery channel needs to render a
// message. Fields not relevant to an event stay zero.
type Notification struct {
	Event            Event
	UserID           uuid.UUID
	OrderNumber      string
	OrderStatus      string
	PaymentReference string
	AmountCents      int64
}

// Dispatcher delivers a notification. Implementations must be safe for
// concurrent use; callers dispatch after commit and do not retry.
type Dispatcher interface {
	Dispatch(ctx context.Context, n Notification) error
}
