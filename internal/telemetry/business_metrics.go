package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// BusinessMetrics holds Prometheus metrics for business-level observability.
// HTTP-level metrics live in the middleware package; these track what the
// shop actually sells.
type BusinessMetrics struct {
	// Cart activity
	CartItemsAdded *prometheus.CounterVec
	CartsCleared   prometheus.Counter

	// Checkout funnel
	CheckoutAttempts  prometheus.Counter
	CheckoutCompleted *prometheus.CounterVec
	CheckoutFailed    *prometheus.CounterVec

	// Orders
	OrdersCreated         *prometheus.CounterVec
	OrderValue            prometheus.Histogram
	OrderItemCount        prometheus.Histogram
	OrderStatusTransition *prometheus.CounterVec

	// Payments
	PaymentsCreated   *prometheus.CounterVec
	PaymentsSucceeded *prometheus.CounterVec
	PaymentsFailed    *prometheus.CounterVec
	RefundsIssued     *prometheus.CounterVec
	RefundAmount      *prometheus.CounterVec

	// Webhooks
	WebhookReceived *prometheus.CounterVec
	WebhookRejected *prometheus.CounterVec
}

// NewBusinessMetrics creates and registers all business metrics
func NewBusinessMetrics(namespace string) *BusinessMetrics {
	if namespace == "" {
		namespace = "babyshop"
	}

	subsystem := "business"

	m := &BusinessMetrics{
		// =======================================================================
		// Cart Activity
		// =======================================================================
		CartItemsAdded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "cart_items_added_total",
				Help:      "Total add to cart actions",
			},
			[]string{"gender", "age_range"},
		),
		CartsCleared: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "carts_cleared_total",
				Help:      "Total explicit cart clears (checkout clears excluded)",
			},
		),

		// =======================================================================
		// Checkout Funnel
		// =======================================================================
		CheckoutAttempts: promauto.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_attempts_total",
				Help:      "Total checkout submissions",
			},
		),
		CheckoutCompleted: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_completed_total",
				Help:      "Total checkouts that produced an order",
			},
			[]string{"shipping_method", "payment_gateway"},
		),
		CheckoutFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "checkout_failed_total",
				Help:      "Total checkout submissions rejected",
			},
			[]string{"reason"}, // reason: empty_cart, address, stock, conflict, validation, internal
		),

		// =======================================================================
		// Orders
		// =======================================================================
		OrdersCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "orders_created_total",
				Help:      "Total orders created",
			},
			[]string{"shipping_method"},
		),
		OrderValue: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_value_cents",
				Help:      "Order totals in cents",
				Buckets:   []float64{10000, 25000, 50000, 100000, 250000, 500000, 1000000, 2500000},
			},
		),
		OrderItemCount: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_item_count",
				Help:      "Distinct lines per order",
				Buckets:   []float64{1, 2, 3, 5, 8, 13, 21},
			},
		),
		OrderStatusTransition: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "order_status_transitions_total",
				Help:      "Order status machine transitions",
			},
			[]string{"from", "to"},
		),

		// =======================================================================
		// Payments
		// =======================================================================
		PaymentsCreated: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_created_total",
				Help:      "Total payments initiated",
			},
			[]string{"gateway"},
		),
		PaymentsSucceeded: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_succeeded_total",
				Help:      "Total payments marked successful",
			},
			[]string{"gateway"},
		),
		PaymentsFailed: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "payments_failed_total",
				Help:      "Total payments marked failed",
			},
			[]string{"gateway", "error_code"},
		),
		RefundsIssued: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refunds_issued_total",
				Help:      "Total refunds recorded",
			},
			[]string{"gateway", "kind"}, // kind: full, partial
		),
		RefundAmount: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "refund_amount_cents_total",
				Help:      "Cumulative refunded cents",
			},
			[]string{"gateway"},
		),

		// =======================================================================
		// Webhooks
		// =======================================================================
		WebhookReceived: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_received_total",
				Help:      "Total gateway webhooks captured",
			},
			[]string{"gateway", "event_type"},
		),
		WebhookRejected: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "webhooks_rejected_total",
				Help:      "Total gateway webhooks rejected before capture",
			},
			[]string{"gateway", "reason"}, // reason: signature, gateway
		),
	}

	return m
}

// Global instance for easy access from handlers
var Business *BusinessMetrics

// InitBusinessMetrics initializes the global business metrics instance
func InitBusinessMetrics(namespace string) *BusinessMetrics {
	Business = NewBusinessMetrics(namespace)
	return Business
}
