package gateway

import (
	"context"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// BankTransferProvider renders wire instructions for the shop's bank account.
type BankTransferProvider struct {
	bankName      string
	accountName   string
	accountNumber string
}

// NewBankTransferProvider creates the bank transfer instruction provider.
func NewBankTransferProvider(bankName, accountName, accountNumber string) Provider {
	return &BankTransferProvider{
		bankName:      bankName,
		accountName:   accountName,
		accountNumber: accountNumber,
	}
}

// Gateway returns the bank transfer gateway.
func (p *BankTransferProvider) Gateway() domain.PaymentGateway {
	return domain.GatewayBankTransfer
}

// Instructions renders the wire details for the payment.
func (p *BankTransferProvider) Instructions(ctx context.Context, payment *domain.Payment) (*Instructions, error) {
	text := "Transfer KES " + formatKES(payment.AmountCents) + " to " + p.bankName +
		" account " + p.accountNumber + " (" + p.accountName + "), Reference " + payment.PaymentReference
	return &Instructions{Gateway: domain.GatewayBankTransfer, Text: text}, nil
}

// VerifyWebhookSignature accepts everything; bank settlements are recorded by
// staff, not webhooks.
func (p *BankTransferProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	return nil
}

// CashOnDeliveryProvider covers orders settled at the door.
type CashOnDeliveryProvider struct{}

// NewCashOnDeliveryProvider creates the cash on delivery provider.
func NewCashOnDeliveryProvider() Provider {
	return &CashOnDeliveryProvider{}
}

// Gateway returns the cash on delivery gateway.
func (p *CashOnDeliveryProvider) Gateway() domain.PaymentGateway {
	return domain.GatewayCashOnDelivery
}

// Instructions tell the customer to pay the courier.
func (p *CashOnDeliveryProvider) Instructions(ctx context.Context, payment *domain.Payment) (*Instructions, error) {
	return &Instructions{Gateway: domain.GatewayCashOnDelivery, Text: "Pay cash on delivery"}, nil
}

// VerifyWebhookSignature accepts everything.
func (p *CashOnDeliveryProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	return nil
}
