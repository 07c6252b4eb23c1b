package gateway

import (
	"context"
	"fmt"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// MockProvider is a mock gateway provider for testing.
type MockProvider struct {
	// GatewayValue is the gateway this mock claims to serve.
	GatewayValue domain.PaymentGateway

	// InstructionsFunc allows customizing instruction rendering.
	InstructionsFunc func(ctx context.Context, payment *domain.Payment) (*Instructions, error)

	// VerifyWebhookSignatureFunc allows customizing webhook verification.
	VerifyWebhookSignatureFunc func(payload []byte, signature string) error

	// CallLog tracks method calls for test assertions.
	CallLog []string
}

// NewMockProvider creates a mock provider for the given gateway.
func NewMockProvider(gw domain.PaymentGateway) *MockProvider {
	return &MockProvider{GatewayValue: gw}
}

// Gateway returns the configured gateway.
func (m *MockProvider) Gateway() domain.PaymentGateway {
	return m.GatewayValue
}

// Instructions delegates to the configured function or returns a canned text.
func (m *MockProvider) Instructions(ctx context.Context, payment *domain.Payment) (*Instructions, error) {
	m.CallLog = append(m.CallLog, fmt.Sprintf("Instructions(%s)", payment.PaymentReference))
	if m.InstructionsFunc != nil {
		return m.InstructionsFunc(ctx, payment)
	}
	return &Instructions{Gateway: m.GatewayValue, Text: "mock instructions"}, nil
}

// VerifyWebhookSignature delegates to the configured function or accepts.
func (m *MockProvider) VerifyWebhookSignature(payload []byte, signature string) error {
	m.CallLog = append(m.CallLog, fmt.Sprintf("VerifyWebhookSignature(%d bytes)", len(payload)))
	if m.VerifyWebhookSignatureFunc != nil {
		return m.VerifyWebhookSignatureFunc(payload, signature)
	}
	return nil
}
