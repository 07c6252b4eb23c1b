package gateway_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/gateway"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paymentFixture(gw domain.PaymentGateway, amountCents int64) *domain.Payment {
	return &domain.Payment{
		ID:               uuid.New(),
		OrderID:          uuid.New(),
		PaymentReference: "PAY-BABY-20250812-A1B2C3-143015",
		AmountCents:      amountCents,
		Currency:         "KES",
		Status:           domain.PaymentInitiated,
		Gateway:          gw,
	}
}

func Test_MpesaProvider_Instructions(t *testing.T) {
	provider := gateway.NewMpesaProvider("522533")
	payment := paymentFixture(domain.GatewayMpesa, 345000)

	instructions, err := provider.Instructions(context.Background(), payment)

	require.NoError(t, err)
	assert.Equal(t, domain.GatewayMpesa, instructions.Gateway)
	assert.Equal(t,
		"Send KES 3450.00 to Paybill 522533, Account PAY-BABY-20250812-A1B2C3-143015",
		instructions.Text)
	assert.Empty(t, instructions.ClientSecret)
}

func Test_AirtelMoneyProvider_Instructions(t *testing.T) {
	provider := gateway.NewAirtelMoneyProvider("333444")
	payment := paymentFixture(domain.GatewayAirtelMoney, 99900)

	instructions, err := provider.Instructions(context.Background(), payment)

	require.NoError(t, err)
	assert.Equal(t,
		"Send KES 999.00 to Airtel Money 333444, Reference PAY-BABY-20250812-A1B2C3-143015",
		instructions.Text)
}

func Test_TkashProvider_Instructions(t *testing.T) {
	provider := gateway.NewTkashProvider("777001")
	payment := paymentFixture(domain.GatewayTkash, 150)

	instructions, err := provider.Instructions(context.Background(), payment)

	require.NoError(t, err)
	assert.Equal(t,
		"Send KES 1.50 to T-Kash Paybill 777001, Account PAY-BABY-20250812-A1B2C3-143015",
		instructions.Text, "Cent remainders render with two digits")
}

func Test_BankTransferProvider_Instructions(t *testing.T) {
	provider := gateway.NewBankTransferProvider("Equity Bank", "Sokoni Babyshop Ltd", "0100123456789")
	payment := paymentFixture(domain.GatewayBankTransfer, 1200000)

	instructions, err := provider.Instructions(context.Background(), payment)

	require.NoError(t, err)
	assert.Equal(t,
		"Transfer KES 12000.00 to Equity Bank account 0100123456789 (Sokoni Babyshop Ltd), Reference PAY-BABY-20250812-A1B2C3-143015",
		instructions.Text)
}

func Test_CashOnDeliveryProvider_Instructions(t *testing.T) {
	provider := gateway.NewCashOnDeliveryProvider()
	payment := paymentFixture(domain.GatewayCashOnDelivery, 50000)

	instructions, err := provider.Instructions(context.Background(), payment)

	require.NoError(t, err)
	assert.Equal(t, "Pay cash on delivery", instructions.Text)
}

func Test_Registry_ResolvesByGateway(t *testing.T) {
	mpesa := gateway.NewMockProvider(domain.GatewayMpesa)
	airtel := gateway.NewMockProvider(domain.GatewayAirtelMoney)
	registry := gateway.NewRegistry(mpesa, airtel)

	resolved, ok := registry.Provider(domain.GatewayMpesa)
	require.True(t, ok)
	assert.Equal(t, domain.GatewayMpesa, resolved.Gateway())

	_, ok = registry.Provider(domain.GatewayPaypal)
	assert.False(t, ok, "Unregistered gateways should not resolve")
}

func Test_Registry_InstructionsFallback(t *testing.T) {
	registry := gateway.NewRegistry(gateway.NewMockProvider(domain.GatewayMpesa))
	payment := paymentFixture(domain.GatewayPaypal, 10000)

	instructions, err := registry.Instructions(context.Background(), payment)

	require.NoError(t, err)
	assert.Equal(t, domain.GatewayPaypal, instructions.Gateway)
	assert.Equal(t, gateway.FallbackInstructionsText, instructions.Text)
}

func Test_Registry_WebhookVerificationDelegates(t *testing.T) {
	mock := gateway.NewMockProvider(domain.GatewayStripe)
	rejected := domain.Unauthorized("gateway.stripe.webhook", "invalid webhook signature")
	mock.VerifyWebhookSignatureFunc = func(payload []byte, signature string) error {
		return rejected
	}
	registry := gateway.NewRegistry(mock)

	err := registry.VerifyWebhookSignature(domain.GatewayStripe, []byte("{}"), "bogus")
	assert.Equal(t, rejected, err)

	err = registry.VerifyWebhookSignature(domain.GatewayMpesa, []byte("{}"), "")
	assert.NoError(t, err, "Unregistered gateways accept everything")
}
