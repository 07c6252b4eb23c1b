package gateway

import (
	"context"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// MobileMoneyProvider renders paybill instructions for a Kenyan mobile money
// network. The business number comes from configuration; the account is the
// payment reference so settlements reconcile without manual matching.
type MobileMoneyProvider struct {
	gateway domain.PaymentGateway
	render  func(amount, reference string) string
}

// NewMpesaProvider creates the M-PESA instruction provider.
func NewMpesaProvider(paybill string) Provider {
	return &MobileMoneyProvider{
		gateway: domain.GatewayMpesa,
		render: func(amount, reference string) string {
			return "Send KES " + amount + " to Paybill " + paybill + ", Account " + reference
		},
	}
}

// NewAirtelMoneyProvider creates the Airtel Money instruction provider.
func NewAirtelMoneyProvider(businessNumber string) Provider {
	return &MobileMoneyProvider{
		gateway: domain.GatewayAirtelMoney,
		render: func(amount, reference string) string {
			return "Send KES " + amount + " to Airtel Money " + businessNumber + ", Reference " + reference
		},
	}
}

// NewTkashProvider creates the T-Kash instruction provider.
func NewTkashProvider(paybill string) Provider {
	return &MobileMoneyProvider{
		gateway: domain.GatewayTkash,
		render: func(amount, reference string) string {
			return "Send KES " + amount + " to T-Kash Paybill " + paybill + ", Account " + reference
		},
	}
}

// NewEquitelProvider creates the Equitel instruction provider.
func NewEquitelProvider(paybill string) Provider {
	return &MobileMoneyProvider{
		gateway: domain.GatewayEquitel,
		render: func(amount, reference string) string {
			return "Send KES " + amount + " to Equitel Paybill " + paybill + ", Account " + reference
		},
	}
}

// Gateway returns the mobile money gateway this provider serves.
func (p *MobileMoneyProvider) Gateway() domain.PaymentGateway {
	return p.gateway
}

// Instructions renders the paybill steps for the payment.
func (p *MobileMoneyProvider) Instructions(ctx context.Context, payment *domain.Payment) (*Instructions, error) {
	return &Instructions{
		Gateway: p.gateway,
		Text:    p.render(formatKES(payment.AmountCents), payment.PaymentReference),
	}, nil
}

// VerifyWebhookSignature accepts everything. Mobile money settlement
// callbacks arrive unsigned and are captured append-only for reconciliation.
func (p *MobileMoneyProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	return nil
}
