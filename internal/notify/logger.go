package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// LogDispatcher writes notifications to the structured log. It stands in for
// real delivery channels and doubles as an audit trail.
type LogDispatcher struct {
	logger zerolog.Logger
}

// NewLogDispatcher creates a dispatcher that logs every notification.
func NewLogDispatcher(logger zerolog.Logger) *LogDispatcher {
	return &LogDispatcher{logger: logger}
}

// Dispatch logs the notification and never fails.
func (d *LogDispatcher) Dispatch(ctx context.Context, n Notification) error {
	d.logger.Info().
		Str("event", string(n.Event)).
		Str("user_id", n.UserID.String()).
		Str("order_number", n.OrderNumber).
		Str("order_status", n.OrderStatus).
		Str("payment_reference", n.PaymentReference).
		Int64("amount_cents", n.AmountCents).
		Msg("notification dispatched")
	return nil
}
