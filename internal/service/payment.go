package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/gateway"
	"github.com/sokoni-labs/babyshop/internal/notify"
	"github.com/sokoni-labs/babyshop/internal/telemetry"
)

// PaymentService records payment attempts against orders and drives the
// payment status machine. Status writes run inside a transaction so the
// parent order moves together with its payment.
type PaymentService interface {
	// CreatePayment opens a payment attempt for an order the user owns.
	// The response carries gateway instructions so the caller can settle.
	CreatePayment(ctx context.Context, user *domain.User, input CreatePaymentInput) (*PaymentCreation, error)

	// GetPayment returns a payment by reference. Customers only see their
	// own payments; staff see all.
	GetPayment(ctx context.Context, user *domain.User, reference string) (*domain.Payment, error)

	// ListPayments returns the user's payments, newest first.
	ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int32) (*PaymentPage, error)

	// Instructions re-renders settlement instructions for a payment that
	// has not settled yet.
	Instructions(ctx context.Context, user *domain.User, reference string) (*gateway.Instructions, error)

	// UpdateStatus moves a payment through the guided status machine.
	// Marking a payment successful also marks the order paid and confirms
	// it when still pending, all inside one transaction.
	UpdateStatus(ctx context.Context, reference string, input PaymentStatusUpdate) (*domain.Payment, error)

	// Refund refunds a successful payment, fully by default, and moves the
	// order to refunded once the full amount is returned.
	Refund(ctx context.Context, reference string, input RefundInput) (*domain.Payment, error)

	// CaptureWebhook stores a gateway callback append-only. Stripe
	// callbacks are signature-checked before anything is stored.
	CaptureWebhook(ctx context.Context, input WebhookCapture) (*domain.PaymentWebhook, error)

	// ListPaymentMethods returns the active method catalog ordered for
	// display, with fees computed for the given amount.
	ListPaymentMethods(ctx context.Context, amountCents int64) ([]PaymentMethodOption, error)
}

// CreatePaymentInput is the request to open a payment attempt.
type CreatePaymentInput struct {
	OrderNumber string
	Gateway     domain.PaymentGateway

	// AmountCents must equal the order total when set; zero means the
	// order total.
	AmountCents int64

	// MobileNumber is required for mobile money gateways.
	MobileNumber  string
	MobileNetwork domain.MobileNetwork

	Description string
	Remarks     string
}

// PaymentCreation is the response to CreatePayment.
type PaymentCreation struct {
	Payment      *domain.Payment
	Instructions *gateway.Instructions
}

// PaymentPage is one page of a user's payments.
type PaymentPage struct {
	Payments []domain.Payment
	Total    int64
	Limit    int32
	Offset   int32
}

// PaymentStatusUpdate is the staff request to move a payment's status.
type PaymentStatusUpdate struct {
	Status domain.PaymentStatus

	// Details apply when moving to successful.
	Details domain.PaymentDetails

	// Error context applies when moving to failed.
	ErrorCode      string
	ErrorMessage   string
	GatewayMessage string
}

// RefundInput is the staff request to refund a payment. A zero amount
// refunds the outstanding remainder.
type RefundInput struct {
	AmountCents int64
	Reference   string
	Reason      string
}

// WebhookCapture is an inbound gateway callback as seen at the edge.
type WebhookCapture struct {
	Gateway   string
	EventType string
	Payload   []byte
	Headers   map[string][]string
	Signature string
	SourceIP  string
}

// PaymentMethodOption is a configured payment method priced for a specific
// amount.
type PaymentMethodOption struct {
	Config    domain.PaymentMethodConfig
	FeeCents  int64
	Available bool
}

// PaymentStore is the payment persistence the service needs.
type PaymentStore interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error)
	ListPaymentsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, int64, error)
	GetSuccessfulPaymentForOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	InsertPayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	ListMethodConfigs(ctx context.Context) ([]domain.PaymentMethodConfig, error)
	InsertWebhook(ctx context.Context, webhook *domain.PaymentWebhook) (*domain.PaymentWebhook, error)
	MarkWebhookProcessed(ctx context.Context, webhookID uuid.UUID, processingError string) error

	// InPaymentTx runs fn against stores bound to one transaction,
	// committing when fn returns nil.
	InPaymentTx(ctx context.Context, fn func(PaymentTx) error) error
}

// PaymentTx is the transactional view used by status writes.
type PaymentTx interface {
	GetPaymentByReferenceForUpdate(ctx context.Context, reference string) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	GetOrderByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	UpdateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
}

type paymentService struct {
	store      PaymentStore
	gateways   *gateway.Registry
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// NewPaymentService creates a new payment service.
func NewPaymentService(store PaymentStore, gateways *gateway.Registry, dispatcher notify.Dispatcher) PaymentService {
	return &paymentService{
		store:      store,
		gateways:   gateways,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

func (s *paymentService) CreatePayment(ctx context.Context, user *domain.User, input CreatePaymentInput) (*PaymentCreation, error) {
	if !input.Gateway.Valid() {
		return nil, ErrUnknownGateway
	}

	order, err := s.store.GetOrderByNumber(ctx, input.OrderNumber)
	if err != nil {
		if errors.Is(err, ErrOrderNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to get order: %w", err)
	}
	if user == nil || (!user.IsStaff() && order.UserID != user.ID) {
		return nil, ErrOrderNotFound
	}

	if _, err := s.store.GetSuccessfulPaymentForOrder(ctx, order.ID); err == nil {
		return nil, ErrPaymentAlreadyCompleted
	} else if !errors.Is(err, ErrPaymentNotFound) {
		return nil, fmt.Errorf("failed to check for a successful payment: %w", err)
	}

	amount := input.AmountCents
	if amount == 0 {
		amount = order.TotalCents
	}
	if amount != order.TotalCents {
		return nil, ErrAmountMismatch
	}

	payment := &domain.Payment{
		OrderID:      order.ID,
		UserID:       &order.UserID,
		AmountCents:  amount,
		Currency:     "KES",
		Status:       domain.PaymentInitiated,
		Gateway:      input.Gateway,
		Method:       input.Gateway.DefaultMethod(),
		MobileNumber: input.MobileNumber,
		Description:  input.Description,
		Remarks:      input.Remarks,
	}
	if payment.Description == "" {
		payment.Description = fmt.Sprintf("Payment for order %s", order.OrderNumber)
	}

	if input.Gateway.IsMobileMoney() {
		if !domain.ValidKenyanMobile(input.MobileNumber) {
			return nil, ErrInvalidPhoneNumber
		}
		payment.MobileNetwork = input.MobileNetwork
		if payment.MobileNetwork == "" {
			payment.MobileNetwork = defaultNetworkFor(input.Gateway)
		}
	}

	payment.PaymentReference = domain.GeneratePaymentReference(order.OrderNumber, s.now())
	created, err := s.store.InsertPayment(ctx, payment)
	if errors.Is(err, ErrDuplicatePaymentReference) {
		payment.PaymentReference, err = domain.GenerateFallbackPaymentReference(s.now())
		if err != nil {
			return nil, err
		}
		created, err = s.store.InsertPayment(ctx, payment)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	if telemetry.Business != nil {
		telemetry.Business.PaymentsCreated.WithLabelValues(string(created.Gateway)).Inc()
	}

	instructions, err := s.gateways.Instructions(ctx, created)
	if err != nil {
		return nil, fmt.Errorf("failed to render payment instructions: %w", err)
	}

	return &PaymentCreation{Payment: created, Instructions: instructions}, nil
}

func (s *paymentService) GetPayment(ctx context.Context, user *domain.User, reference string) (*domain.Payment, error) {
	return s.ownedPayment(ctx, user, reference)
}

func (s *paymentService) ListPayments(ctx context.Context, userID uuid.UUID, limit, offset int32) (*PaymentPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	payments, total, err := s.store.ListPaymentsByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list payments: %w", err)
	}

	return &PaymentPage{Payments: payments, Total: total, Limit: limit, Offset: offset}, nil
}

func (s *paymentService) Instructions(ctx context.Context, user *domain.User, reference string) (*gateway.Instructions, error) {
	payment, err := s.ownedPayment(ctx, user, reference)
	if err != nil {
		return nil, err
	}

	if payment.Status != domain.PaymentInitiated && payment.Status != domain.PaymentPending {
		return nil, ErrInstructionsNotAvailable
	}

	instructions, err := s.gateways.Instructions(ctx, payment)
	if err != nil {
		return nil, fmt.Errorf("failed to render payment instructions: %w", err)
	}
	return instructions, nil
}

func (s *paymentService) UpdateStatus(ctx context.Context, reference string, input PaymentStatusUpdate) (*domain.Payment, error) {
	if !input.Status.Valid() {
		return nil, domain.Invalid("payment.update_status", "unknown payment status")
	}
	switch input.Status {
	case domain.PaymentRefunded, domain.PaymentPartiallyRefunded:
		return nil, domain.Invalid("payment.update_status", "refunds go through the refund operation")
	}

	var updated *domain.Payment
	err := s.store.InPaymentTx(ctx, func(tx PaymentTx) error {
		payment, err := tx.GetPaymentByReferenceForUpdate(ctx, reference)
		if err != nil {
			if errors.Is(err, ErrPaymentNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("failed to get payment: %w", err)
		}

		switch input.Status {
		case domain.PaymentSuccessful:
			if err := payment.MarkSuccessful(input.Details, s.now()); err != nil {
				return err
			}
			if err := s.propagateSuccess(ctx, tx, payment); err != nil {
				return err
			}
		case domain.PaymentFailed:
			if err := payment.MarkFailed(input.ErrorCode, input.ErrorMessage, input.GatewayMessage); err != nil {
				return err
			}
		default:
			if !payment.Status.CanTransitionTo(input.Status) {
				return domain.Errorf(domain.EINVALID, "payment.update_status",
					"cannot change status from %s to %s", payment.Status, input.Status)
			}
			payment.Status = input.Status
		}

		updated, err = tx.UpdatePayment(ctx, payment)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordStatusMetrics(updated, input)
	if updated.Status == domain.PaymentSuccessful {
		s.notifyPayment(ctx, notify.EventPaymentReceived, updated)
	}

	return updated, nil
}

// propagateSuccess moves the parent order with its payment: paid, payment
// date set to the settlement time, and confirmed when still pending.
func (s *paymentService) propagateSuccess(ctx context.Context, tx PaymentTx, payment *domain.Payment) error {
	order, err := tx.GetOrderByIDForUpdate(ctx, payment.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get order for payment: %w", err)
	}

	if err := order.TransitionPaymentStatus(domain.OrderPaymentPaid); err != nil {
		return err
	}
	order.PaymentDate = payment.PaidAt
	order.PaymentReference = payment.PaymentReference
	if order.Status == domain.OrderStatusPending {
		if err := order.TransitionTo(domain.OrderStatusConfirmed, s.now()); err != nil {
			return err
		}
	}

	if _, err := tx.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (s *paymentService) Refund(ctx context.Context, reference string, input RefundInput) (*domain.Payment, error) {
	var updated *domain.Payment
	var refundedCents int64
	err := s.store.InPaymentTx(ctx, func(tx PaymentTx) error {
		payment, err := tx.GetPaymentByReferenceForUpdate(ctx, reference)
		if err != nil {
			if errors.Is(err, ErrPaymentNotFound) {
				return ErrPaymentNotFound
			}
			return fmt.Errorf("failed to get payment: %w", err)
		}

		if !payment.CanBeRefunded() && payment.Status != domain.PaymentPartiallyRefunded {
			return domain.Conflict("payment.refund", "Only successful payments can be refunded")
		}

		before := payment.RefundAmountCents
		if err := payment.MarkRefunded(input.AmountCents, input.Reference, input.Reason, s.now()); err != nil {
			return err
		}
		refundedCents = payment.RefundAmountCents - before

		if payment.FullyRefunded() {
			if err := s.propagateRefund(ctx, tx, payment); err != nil {
				return err
			}
		}

		updated, err = tx.UpdatePayment(ctx, payment)
		if err != nil {
			return fmt.Errorf("failed to update payment: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if telemetry.Business != nil {
		kind := "partial"
		if updated.FullyRefunded() {
			kind = "full"
		}
		telemetry.Business.RefundsIssued.WithLabelValues(string(updated.Gateway), kind).Inc()
		telemetry.Business.RefundAmount.WithLabelValues(string(updated.Gateway)).Add(float64(refundedCents))
	}
	s.notifyPayment(ctx, notify.EventPaymentRefunded, updated)

	return updated, nil
}

// propagateRefund moves the parent order once a payment is fully refunded.
// Delivered orders take the guided path; cancelled orders keep their
// terminal status and the refund lives on the payment row alone.
func (s *paymentService) propagateRefund(ctx context.Context, tx PaymentTx, payment *domain.Payment) error {
	order, err := tx.GetOrderByIDForUpdate(ctx, payment.OrderID)
	if err != nil {
		return fmt.Errorf("failed to get order for payment: %w", err)
	}

	if err := order.TransitionPaymentStatus(domain.OrderPaymentRefunded); err != nil {
		return err
	}

	switch order.Status {
	case domain.OrderStatusDelivered:
		if err := order.TransitionTo(domain.OrderStatusRefunded, s.now()); err != nil {
			return err
		}
	case domain.OrderStatusCancelled, domain.OrderStatusRefunded:
	default:
		if err := order.ForceStatus(domain.OrderStatusRefunded, s.now()); err != nil {
			return err
		}
	}

	if _, err := tx.UpdateOrder(ctx, order); err != nil {
		return fmt.Errorf("failed to update order: %w", err)
	}
	return nil
}

func (s *paymentService) CaptureWebhook(ctx context.Context, input WebhookCapture) (*domain.PaymentWebhook, error) {
	gw := domain.PaymentGateway(input.Gateway)
	if !gw.Valid() {
		if telemetry.Business != nil {
			telemetry.Business.WebhookRejected.WithLabelValues(input.Gateway, "gateway").Inc()
		}
		return nil, ErrUnknownGateway
	}

	if err := s.gateways.VerifyWebhookSignature(gw, input.Payload, input.Signature); err != nil {
		if telemetry.Business != nil {
			telemetry.Business.WebhookRejected.WithLabelValues(input.Gateway, "signature").Inc()
		}
		return nil, err
	}

	headers, err := json.Marshal(input.Headers)
	if err != nil {
		return nil, fmt.Errorf("failed to encode webhook headers: %w", err)
	}

	capture := &domain.PaymentWebhook{
		Gateway:   input.Gateway,
		EventType: input.EventType,
		Payload:   input.Payload,
		Headers:   headers,
		SourceIP:  input.SourceIP,
	}

	if reference := referenceFromPayload(input.Payload); reference != "" {
		if payment, err := s.store.GetPaymentByReference(ctx, reference); err == nil {
			capture.PaymentID = &payment.ID
		}
	}

	stored, err := s.store.InsertWebhook(ctx, capture)
	if err != nil {
		return nil, fmt.Errorf("failed to store webhook: %w", err)
	}

	if err := s.store.MarkWebhookProcessed(ctx, stored.ID, "webhook processing not implemented"); err != nil {
		return nil, fmt.Errorf("failed to mark webhook processed: %w", err)
	}

	if telemetry.Business != nil {
		telemetry.Business.WebhookReceived.WithLabelValues(input.Gateway, input.EventType).Inc()
	}

	return stored, nil
}

func (s *paymentService) ListPaymentMethods(ctx context.Context, amountCents int64) ([]PaymentMethodOption, error) {
	configs, err := s.store.ListMethodConfigs(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list payment methods: %w", err)
	}

	options := make([]PaymentMethodOption, 0, len(configs))
	for _, config := range configs {
		if !config.IsActive {
			continue
		}
		options = append(options, PaymentMethodOption{
			Config:    config,
			FeeCents:  config.FeeCents(amountCents),
			Available: config.AvailableFor(amountCents),
		})
	}
	return options, nil
}

func (s *paymentService) ownedPayment(ctx context.Context, user *domain.User, reference string) (*domain.Payment, error) {
	payment, err := s.store.GetPaymentByReference(ctx, reference)
	if err != nil {
		if errors.Is(err, ErrPaymentNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to get payment: %w", err)
	}
	if user == nil || (!user.IsStaff() && (payment.UserID == nil || *payment.UserID != user.ID)) {
		return nil, ErrPaymentNotFound
	}
	return payment, nil
}

func (s *paymentService) recordStatusMetrics(payment *domain.Payment, input PaymentStatusUpdate) {
	if telemetry.Business == nil {
		return
	}
	switch payment.Status {
	case domain.PaymentSuccessful:
		telemetry.Business.PaymentsSucceeded.WithLabelValues(string(payment.Gateway)).Inc()
	case domain.PaymentFailed:
		errorCode := input.ErrorCode
		if errorCode == "" {
			errorCode = "unknown"
		}
		telemetry.Business.PaymentsFailed.WithLabelValues(string(payment.Gateway), errorCode).Inc()
	}
}

func (s *paymentService) notifyPayment(ctx context.Context, event notify.Event, payment *domain.Payment) {
	if s.dispatcher == nil || payment.UserID == nil {
		return
	}
	notification := notify.Notification{
		Event:            event,
		UserID:           *payment.UserID,
		PaymentReference: payment.PaymentReference,
		AmountCents:      payment.AmountCents,
	}
	if event == notify.EventPaymentRefunded {
		notification.AmountCents = payment.RefundAmountCents
	}
	go func(ctx context.Context) {
		_ = s.dispatcher.Dispatch(ctx, notification)
	}(context.WithoutCancel(ctx))
}

// defaultNetworkFor maps a mobile money gateway to the network it runs on.
func defaultNetworkFor(gw domain.PaymentGateway) domain.MobileNetwork {
	switch gw {
	case domain.GatewayMpesa:
		return domain.NetworkSafaricom
	case domain.GatewayAirtelMoney:
		return domain.NetworkAirtel
	case domain.GatewayTkash:
		return domain.NetworkTelkom
	}
	return ""
}

// referenceFromPayload pulls a payment reference out of a webhook body.
// Correlation is best-effort; gateways name the field differently.
func referenceFromPayload(payload []byte) string {
	var body map[string]any
	if err := json.Unmarshal(payload, &body); err != nil {
		return ""
	}
	for _, key := range []string{"payment_reference", "reference", "account_reference"} {
		if value, ok := body[key].(string); ok && value != "" {
			return value
		}
	}
	return ""
}
