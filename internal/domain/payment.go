package domain

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// PaymentStatus is the lifecycle state of a payment attempt.
type PaymentStatus string

const (
	PaymentInitiated         PaymentStatus = "initiated"
	PaymentPending           PaymentStatus = "pending"
	PaymentSuccessful        PaymentStatus = "successful"
	PaymentFailed            PaymentStatus = "failed"
	PaymentCancelled         PaymentStatus = "cancelled"
	PaymentRefunded          PaymentStatus = "refunded"
	PaymentPartiallyRefunded PaymentStatus = "partially_refunded"
)

var paymentTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentInitiated:         {PaymentPending, PaymentFailed, PaymentCancelled},
	PaymentPending:           {PaymentSuccessful, PaymentFailed, PaymentCancelled},
	PaymentSuccessful:        {PaymentRefunded, PaymentPartiallyRefunded},
	PaymentFailed:            {PaymentPending},
	PaymentCancelled:         {},
	PaymentRefunded:          {},
	PaymentPartiallyRefunded: {PaymentRefunded},
}

// Valid reports whether s is a known payment status.
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentInitiated, PaymentPending, PaymentSuccessful, PaymentFailed,
		PaymentCancelled, PaymentRefunded, PaymentPartiallyRefunded:
		return true
	}
	return false
}

// CanTransitionTo reports whether the machine allows s -> next.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	for _, allowed := range paymentTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// PaymentGateway identifies the processor a payment runs through.
type PaymentGateway string

const (
	GatewayMpesa          PaymentGateway = "mpesa"
	GatewayAirtelMoney    PaymentGateway = "airtel_money"
	GatewayTkash          PaymentGateway = "tkash"
	GatewayEquitel        PaymentGateway = "equitel"
	GatewayPaypal         PaymentGateway = "paypal"
	GatewayStripe         PaymentGateway = "stripe"
	GatewayBankTransfer   PaymentGateway = "bank_transfer"
	GatewayCashOnDelivery PaymentGateway = "cash_on_delivery"
)

// Valid reports whether g is a known gateway.
func (g PaymentGateway) Valid() bool {
	switch g {
	case GatewayMpesa, GatewayAirtelMoney, GatewayTkash, GatewayEquitel,
		GatewayPaypal, GatewayStripe, GatewayBankTransfer, GatewayCashOnDelivery:
		return true
	}
	return false
}

// IsMobileMoney reports whether the gateway is a Kenyan mobile money
// network. These require a subscriber number and receive auto-generated
// transaction codes on success.
func (g PaymentGateway) IsMobileMoney() bool {
	switch g {
	case GatewayMpesa, GatewayAirtelMoney, GatewayTkash, GatewayEquitel:
		return true
	}
	return false
}

// DefaultMethod returns the payment method implied by the gateway, used
// when the caller does not name one.
func (g PaymentGateway) DefaultMethod() PaymentMethod {
	switch g {
	case GatewayMpesa, GatewayAirtelMoney, GatewayTkash, GatewayEquitel:
		return MethodMobileMoney
	case GatewayPaypal, GatewayStripe:
		return MethodCard
	case GatewayBankTransfer:
		return MethodBank
	case GatewayCashOnDelivery:
		return MethodCash
	}
	return MethodWallet
}

// PaymentMethod classifies how the customer pays.
type PaymentMethod string

const (
	MethodMobileMoney PaymentMethod = "mobile_money"
	MethodCard        PaymentMethod = "card"
	MethodBank        PaymentMethod = "bank"
	MethodCash        PaymentMethod = "cash"
	MethodWallet      PaymentMethod = "wallet"
)

// Valid reports whether m is a known payment method.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodMobileMoney, MethodCard, MethodBank, MethodCash, MethodWallet:
		return true
	}
	return false
}

// MobileNetwork identifies the subscriber's carrier for mobile money.
type MobileNetwork string

const (
	NetworkSafaricom MobileNetwork = "safaricom"
	NetworkAirtel    MobileNetwork = "airtel"
	NetworkTelkom    MobileNetwork = "telkom"
)

// Valid reports whether n is a known mobile network.
func (n MobileNetwork) Valid() bool {
	switch n {
	case NetworkSafaricom, NetworkAirtel, NetworkTelkom:
		return true
	}
	return false
}

// Payment records one payment attempt against an order. References are
// unique; a successful payment always carries paid_at and a gateway
// reference because MarkSuccessful is the single write path to that
// status.
type Payment struct {
	ID uuid.UUID

	// Seq is a monotonically increasing insert sequence used for
	// generated mobile money transaction codes.
	Seq int64

	OrderID uuid.UUID
	UserID  *uuid.UUID

	PaymentReference string
	AmountCents      int64
	Currency         string
	Status           PaymentStatus
	Gateway          PaymentGateway
	Method           PaymentMethod

	GatewayReference string
	PaidAt           *time.Time

	ErrorCode      string
	ErrorMessage   string
	GatewayMessage string

	RefundAmountCents int64
	RefundReference   string
	RefundReason      string
	RefundedAt        *time.Time

	MobileNumber    string
	MobileNetwork   MobileNetwork
	TransactionCode string
	CardLast4       string
	CardBrand       string
	BankName        string
	AccountName     string
	AccountNumber   string

	Description string
	Remarks     string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// PaymentDetails carries the gateway and method specific fields applied
// when a payment succeeds. Empty fields leave the stored values alone.
type PaymentDetails struct {
	GatewayReference string
	GatewayMessage   string
	MobileNumber     string
	MobileNetwork    MobileNetwork
	CardLast4        string
	CardBrand        string
	BankName         string
	AccountName      string
	AccountNumber    string
}

// CanBeRefunded reports whether the payment is eligible for the refund
// flow: successful and actually paid.
func (p *Payment) CanBeRefunded() bool {
	return p.Status == PaymentSuccessful && p.PaidAt != nil
}

// MarkSuccessful is the single write path into the successful status.
// It enforces the transition table, stamps paid_at exactly once, defaults
// the gateway reference, applies method detail fields and auto-generates
// mobile money transaction codes. Callers propagate the result to the
// order inside the same transaction.
func (p *Payment) MarkSuccessful(details PaymentDetails, now time.Time) error {
	if !p.Status.CanTransitionTo(PaymentSuccessful) {
		return Errorf(EINVALID, "payment.mark_successful", "cannot change status from %s to %s", p.Status, PaymentSuccessful)
	}

	p.Status = PaymentSuccessful
	if p.PaidAt == nil {
		t := now
		p.PaidAt = &t
	}

	if details.GatewayReference != "" {
		p.GatewayReference = details.GatewayReference
	}
	if p.GatewayReference == "" {
		p.GatewayReference = "GW-REF-" + p.PaymentReference
	}

	if details.GatewayMessage != "" {
		p.GatewayMessage = details.GatewayMessage
	}
	if details.MobileNumber != "" {
		p.MobileNumber = details.MobileNumber
	}
	if details.MobileNetwork != "" {
		p.MobileNetwork = details.MobileNetwork
	}
	if details.CardLast4 != "" {
		p.CardLast4 = details.CardLast4
	}
	if details.CardBrand != "" {
		p.CardBrand = details.CardBrand
	}
	if details.BankName != "" {
		p.BankName = details.BankName
	}
	if details.AccountName != "" {
		p.AccountName = details.AccountName
	}
	if details.AccountNumber != "" {
		p.AccountNumber = details.AccountNumber
	}

	if p.Gateway.IsMobileMoney() && p.TransactionCode == "" {
		p.TransactionCode = MobileTransactionCode(p.Gateway, p.Seq)
	}

	return nil
}

// MarkFailed records a failure with the gateway's error context. The
// parent order is left alone so the customer can retry.
func (p *Payment) MarkFailed(errorCode, errorMessage, gatewayMessage string) error {
	if !p.Status.CanTransitionTo(PaymentFailed) {
		return Errorf(EINVALID, "payment.mark_failed", "cannot change status from %s to %s", p.Status, PaymentFailed)
	}

	p.Status = PaymentFailed
	p.ErrorCode = errorCode
	p.ErrorMessage = errorMessage
	p.GatewayMessage = gatewayMessage
	return nil
}

// MarkRefunded applies a refund. A zero amount refunds the outstanding
// remainder. Cumulative refunds reaching the full amount move the payment
// to refunded, anything less to partially_refunded, both guarded by the
// transition table.
func (p *Payment) MarkRefunded(amountCents int64, reference, reason string, now time.Time) error {
	if amountCents == 0 {
		amountCents = p.AmountCents - p.RefundAmountCents
	}
	if amountCents <= 0 {
		return Invalid("payment.refund", "refund amount must be positive")
	}
	if p.RefundAmountCents+amountCents > p.AmountCents {
		return Invalid("payment.refund", "refund amount exceeds payment amount")
	}

	next := PaymentPartiallyRefunded
	if p.RefundAmountCents+amountCents >= p.AmountCents {
		next = PaymentRefunded
	}
	if !p.Status.CanTransitionTo(next) {
		return Errorf(EINVALID, "payment.refund", "cannot change status from %s to %s", p.Status, next)
	}

	p.Status = next
	p.RefundAmountCents += amountCents
	if reference != "" {
		p.RefundReference = reference
	} else if p.RefundReference == "" {
		p.RefundReference = "REF-" + p.PaymentReference
	}
	if reason != "" {
		p.RefundReason = reason
	}
	if p.RefundedAt == nil {
		t := now
		p.RefundedAt = &t
	}

	return nil
}

// FullyRefunded reports whether cumulative refunds cover the full amount.
func (p *Payment) FullyRefunded() bool {
	return p.RefundAmountCents >= p.AmountCents
}

// GeneratePaymentReference builds the reference for a payment created
// against a known order: PAY-<order number>-HHMMSS.
func GeneratePaymentReference(orderNumber string, now time.Time) string {
	return fmt.Sprintf("PAY-%s-%s", orderNumber, now.Format("150405"))
}

// GenerateFallbackPaymentReference builds a reference when no order
// number is at hand: PAY-YYYYMMDD-XXXXXXXX with a random suffix.
func GenerateFallbackPaymentReference(now time.Time) (string, error) {
	suffix, err := randomAlphanumeric(8)
	if err != nil {
		return "", fmt.Errorf("failed to generate payment reference: %w", err)
	}
	return fmt.Sprintf("PAY-%s-%s", now.Format("20060102"), suffix), nil
}

// MobileTransactionCode derives the displayed transaction code for a
// mobile money payment from its insert sequence, e.g. MPESA-00000042.
func MobileTransactionCode(gateway PaymentGateway, seq int64) string {
	return fmt.Sprintf("%s-%08d", strings.ToUpper(string(gateway)), seq)
}

// kenyanMobileRe accepts +2547/+2541 international forms and 07/01 local
// forms, nine subscriber digits each.
var kenyanMobileRe = regexp.MustCompile(`^(?:\+254[17]\d{8}|0[17]\d{8})$`)

// ValidKenyanMobile reports whether msisdn is a well-formed Kenyan mobile
// number.
func ValidKenyanMobile(msisdn string) bool {
	return kenyanMobileRe.MatchString(strings.TrimSpace(msisdn))
}

// PaymentWebhook is an append-only capture of a gateway callback. Captures
// never mutate payments automatically; correlation is best-effort.
type PaymentWebhook struct {
	ID              uuid.UUID
	Gateway         string
	EventType       string
	Payload         []byte
	Headers         []byte
	SourceIP        string
	IsProcessed     bool
	ProcessingError string
	ProcessedAt     *time.Time
	PaymentID       *uuid.UUID
	CreatedAt       time.Time
}

// PaymentMethodConfig is the admin-managed catalog of offered payment
// methods with their fee schedule and amount window.
type PaymentMethodConfig struct {
	ID         uuid.UUID
	Name       string
	Gateway    PaymentGateway
	MethodType PaymentMethod

	IsActive  bool
	IsDefault bool
	SortOrder int32

	DisplayName string
	Description string
	Icon        string

	// MinAmountCents/MaxAmountCents bound eligible amounts; a zero max
	// means no upper bound.
	MinAmountCents int64
	MaxAmountCents int64

	// Fee schedule: fee = amount * percent + fixed. Percent is stored in
	// basis points to stay in integer math.
	FeePercentBasisPoints int32
	FeeFixedCents         int64

	SupportedNetworks []MobileNetwork
	Instructions      string

	CreatedAt time.Time
	UpdatedAt time.Time
}

// FeeCents computes the processing fee for the given amount.
func (c *PaymentMethodConfig) FeeCents(amountCents int64) int64 {
	return amountCents*int64(c.FeePercentBasisPoints)/10000 + c.FeeFixedCents
}

// AvailableFor reports whether the method may be offered for the amount.
func (c *PaymentMethodConfig) AvailableFor(amountCents int64) bool {
	if !c.IsActive {
		return false
	}
	if amountCents < c.MinAmountCents {
		return false
	}
	if c.MaxAmountCents > 0 && amountCents > c.MaxAmountCents {
		return false
	}
	return true
}
