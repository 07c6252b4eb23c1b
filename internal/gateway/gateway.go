// Package gateway renders customer-facing payment instructions and verifies
// gateway webhooks. Each supported processor gets its own Provider; the
// Registry resolves one by gateway name.
package gateway

import (
	"context"
	"fmt"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// Provider defines the interface for a single payment processor.
// Implementations: MobileMoneyProvider, StripeProvider, BankTransferProvider,
// CashOnDeliveryProvider.
type Provider interface {
	// Gateway returns the gateway this provider serves.
	Gateway() domain.PaymentGateway

	// Instructions renders the steps a customer follows to complete a
	// payment that has not settled yet.
	Instructions(ctx context.Context, payment *domain.Payment) (*Instructions, error)

	// VerifyWebhookSignature checks that a webhook request is authentic.
	// Gateways without signed webhooks accept everything.
	VerifyWebhookSignature(payload []byte, signature string) error
}

// Instructions tell a customer how to settle a payment.
type Instructions struct {
	Gateway domain.PaymentGateway `json:"gateway"`
	Text    string                `json:"text"`

	// ClientSecret carries the Stripe PaymentIntent secret when the gateway
	// collects cards through Stripe Elements. Empty for offline gateways.
	ClientSecret string `json:"client_secret,omitempty"`
}

// FallbackInstructionsText is returned for gateways without a registered
// provider.
const FallbackInstructionsText = "Payment instructions not available"

// Registry resolves providers by gateway. It is immutable after construction
// and safe for concurrent use.
type Registry struct {
	providers map[domain.PaymentGateway]Provider
}

// NewRegistry creates a registry from the given providers. Later providers
// win when two serve the same gateway.
func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[domain.PaymentGateway]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Gateway()] = p
	}
	return r
}

// Provider returns the provider registered for the gateway.
func (r *Registry) Provider(gw domain.PaymentGateway) (Provider, bool) {
	p, ok := r.providers[gw]
	return p, ok
}

// Instructions renders instructions for the payment's gateway, falling back
// to a generic message for unregistered gateways.
func (r *Registry) Instructions(ctx context.Context, payment *domain.Payment) (*Instructions, error) {
	p, ok := r.providers[payment.Gateway]
	if !ok {
		return &Instructions{Gateway: payment.Gateway, Text: FallbackInstructionsText}, nil
	}
	return p.Instructions(ctx, payment)
}

// VerifyWebhookSignature verifies a webhook for the gateway. Unregistered
// gateways accept everything, matching the capture-only intake.
func (r *Registry) VerifyWebhookSignature(gw domain.PaymentGateway, payload []byte, signature string) error {
	p, ok := r.providers[gw]
	if !ok {
		return nil
	}
	return p.VerifyWebhookSignature(payload, signature)
}

// formatKES renders a cent amount as a KES display string, e.g. "1250.00".
func formatKES(cents int64) string {
	return fmt.Sprintf("%d.%02d", cents/100, cents%100)
}
