package gateway

import (
	"context"

	"github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/paymentintent"
	"github.com/stripe/stripe-go/v82/webhook"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// StripeProvider collects card payments through Stripe PaymentIntents and
// verifies webhook signatures with the endpoint secret.
type StripeProvider struct {
	webhookSecret string
}

// NewStripeProvider creates the Stripe provider. The API key is installed
// process-wide, which is how the Stripe SDK expects single-account setups
// to run.
func NewStripeProvider(apiKey, webhookSecret string) Provider {
	stripe.Key = apiKey
	return &StripeProvider{webhookSecret: webhookSecret}
}

// Gateway returns the stripe gateway.
func (p *StripeProvider) Gateway() domain.PaymentGateway {
	return domain.GatewayStripe
}

// Instructions creates (or reuses, via the idempotency key) a PaymentIntent
// for the payment and hands the client secret to the checkout form.
func (p *StripeProvider) Instructions(ctx context.Context, payment *domain.Payment) (*Instructions, error) {
	params := &stripe.PaymentIntentParams{
		Amount:      stripe.Int64(payment.AmountCents),
		Currency:    stripe.String(string(stripe.CurrencyKES)),
		Description: stripe.String(payment.Description),
	}
	params.Context = ctx
	params.SetIdempotencyKey(payment.PaymentReference)
	params.AddMetadata("payment_reference", payment.PaymentReference)

	intent, err := paymentintent.New(params)
	if err != nil {
		return nil, domain.Internal(err, "gateway.stripe.instructions", "failed to create payment intent")
	}

	return &Instructions{
		Gateway:      domain.GatewayStripe,
		Text:         "Complete the card payment using the secure checkout form.",
		ClientSecret: intent.ClientSecret,
	}, nil
}

// VerifyWebhookSignature validates the Stripe-Signature header against the
// endpoint secret.
func (p *StripeProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	if _, err := webhook.ConstructEvent(payload, signature, p.webhookSecret); err != nil {
		return domain.Unauthorized("gateway.stripe.webhook", "invalid webhook signature")
	}
	return nil
}
