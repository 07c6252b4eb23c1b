package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/gateway"
	"github.com/sokoni-labs/babyshop/internal/notify"
)

// mockPaymentTx implements PaymentTx for testing
type mockPaymentTx struct {
	GetPaymentByReferenceForUpdateFunc func(ctx context.Context, reference string) (*domain.Payment, error)
	UpdatePaymentFunc                  func(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	GetOrderByIDForUpdateFunc          func(ctx context.Context, orderID uuid.UUID) (*domain.Order, error)
	UpdateOrderFunc                    func(ctx context.Context, order *domain.Order) (*domain.Order, error)
}

func (m *mockPaymentTx) GetPaymentByReferenceForUpdate(ctx context.Context, reference string) (*domain.Payment, error) {
	if m.GetPaymentByReferenceForUpdateFunc != nil {
		return m.GetPaymentByReferenceForUpdateFunc(ctx, reference)
	}
	return nil, ErrPaymentNotFound
}

func (m *mockPaymentTx) UpdatePayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if m.UpdatePaymentFunc != nil {
		return m.UpdatePaymentFunc(ctx, payment)
	}
	updated := *payment
	return &updated, nil
}

func (m *mockPaymentTx) GetOrderByIDForUpdate(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
	if m.GetOrderByIDForUpdateFunc != nil {
		return m.GetOrderByIDForUpdateFunc(ctx, orderID)
	}
	return nil, ErrOrderNotFound
}

func (m *mockPaymentTx) UpdateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	if m.UpdateOrderFunc != nil {
		return m.UpdateOrderFunc(ctx, order)
	}
	updated := *order
	return &updated, nil
}

// mockPaymentStore implements PaymentStore for testing
type mockPaymentStore struct {
	GetOrderByNumberFunc             func(ctx context.Context, orderNumber string) (*domain.Order, error)
	GetPaymentByReferenceFunc        func(ctx context.Context, reference string) (*domain.Payment, error)
	ListPaymentsByUserFunc           func(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, int64, error)
	GetSuccessfulPaymentForOrderFunc func(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error)
	InsertPaymentFunc                func(ctx context.Context, payment *domain.Payment) (*domain.Payment, error)
	ListMethodConfigsFunc            func(ctx context.Context) ([]domain.PaymentMethodConfig, error)
	InsertWebhookFunc                func(ctx context.Context, webhook *domain.PaymentWebhook) (*domain.PaymentWebhook, error)
	MarkWebhookProcessedFunc         func(ctx context.Context, webhookID uuid.UUID, processingError string) error

	tx *mockPaymentTx
}

func (m *mockPaymentStore) GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	if m.GetOrderByNumberFunc != nil {
		return m.GetOrderByNumberFunc(ctx, orderNumber)
	}
	return nil, ErrOrderNotFound
}

func (m *mockPaymentStore) GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	if m.GetPaymentByReferenceFunc != nil {
		return m.GetPaymentByReferenceFunc(ctx, reference)
	}
	return nil, ErrPaymentNotFound
}

func (m *mockPaymentStore) ListPaymentsByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Payment, int64, error) {
	if m.ListPaymentsByUserFunc != nil {
		return m.ListPaymentsByUserFunc(ctx, userID, limit, offset)
	}
	return nil, 0, nil
}

func (m *mockPaymentStore) GetSuccessfulPaymentForOrder(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
	if m.GetSuccessfulPaymentForOrderFunc != nil {
		return m.GetSuccessfulPaymentForOrderFunc(ctx, orderID)
	}
	return nil, ErrPaymentNotFound
}

func (m *mockPaymentStore) InsertPayment(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
	if m.InsertPaymentFunc != nil {
		return m.InsertPaymentFunc(ctx, payment)
	}
	created := *payment
	created.ID = uuid.New()
	created.Seq = 42
	return &created, nil
}

func (m *mockPaymentStore) ListMethodConfigs(ctx context.Context) ([]domain.PaymentMethodConfig, error) {
	if m.ListMethodConfigsFunc != nil {
		return m.ListMethodConfigsFunc(ctx)
	}
	return nil, nil
}

func (m *mockPaymentStore) InsertWebhook(ctx context.Context, webhook *domain.PaymentWebhook) (*domain.PaymentWebhook, error) {
	if m.InsertWebhookFunc != nil {
		return m.InsertWebhookFunc(ctx, webhook)
	}
	return nil, errors.New("not implemented in mock")
}

func (m *mockPaymentStore) MarkWebhookProcessed(ctx context.Context, webhookID uuid.UUID, processingError string) error {
	if m.MarkWebhookProcessedFunc != nil {
		return m.MarkWebhookProcessedFunc(ctx, webhookID, processingError)
	}
	return nil
}

func (m *mockPaymentStore) InPaymentTx(ctx context.Context, fn func(PaymentTx) error) error {
	if m.tx == nil {
		m.tx = &mockPaymentTx{}
	}
	return fn(m.tx)
}

func makeTestPayment(orderID, userID uuid.UUID, status domain.PaymentStatus) *domain.Payment {
	payment := &domain.Payment{
		ID:               uuid.New(),
		Seq:              42,
		OrderID:          orderID,
		UserID:           &userID,
		PaymentReference: "PAY-BABY-20250812-A1B2C3-143015",
		AmountCents:      329800,
		Currency:         "KES",
		Status:           status,
		Gateway:          domain.GatewayMpesa,
		Method:           domain.MethodMobileMoney,
		MobileNumber:     "+254712345678",
		MobileNetwork:    domain.NetworkSafaricom,
		CreatedAt:        time.Date(2025, 8, 12, 14, 30, 15, 0, time.UTC),
	}
	if status == domain.PaymentSuccessful {
		paidAt := time.Date(2025, 8, 12, 15, 0, 0, 0, time.UTC)
		payment.PaidAt = &paidAt
		payment.GatewayReference = "GW-REF-" + payment.PaymentReference
	}
	return payment
}

func mpesaRegistry() *gateway.Registry {
	return gateway.NewRegistry(gateway.NewMpesaProvider("522533"))
}

func TestPaymentService_CreatePayment_MpesaHappyPath(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	order := makeTestOrder(userID, domain.OrderStatusPending)

	var inserted *domain.Payment
	store := &mockPaymentStore{
		GetOrderByNumberFunc: func(ctx context.Context, orderNumber string) (*domain.Order, error) {
			return order, nil
		},
		InsertPaymentFunc: func(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
			created := *payment
			created.ID = uuid.New()
			created.Seq = 7
			inserted = &created
			return &created, nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	result, err := svc.CreatePayment(ctx, customerUser(userID), CreatePaymentInput{
		OrderNumber:  order.OrderNumber,
		Gateway:      domain.GatewayMpesa,
		MobileNumber: "0712345678",
	})
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}

	payment := result.Payment
	if payment.Status != domain.PaymentInitiated {
		t.Errorf("Expected initiated payment, got %s", payment.Status)
	}
	if payment.AmountCents != order.TotalCents {
		t.Errorf("Expected amount defaulted to order total %d, got %d", order.TotalCents, payment.AmountCents)
	}
	if payment.Currency != "KES" {
		t.Errorf("Expected KES, got %s", payment.Currency)
	}
	wantPrefix := "PAY-" + order.OrderNumber + "-"
	if !strings.HasPrefix(payment.PaymentReference, wantPrefix) || len(payment.PaymentReference) != len(wantPrefix)+6 {
		t.Errorf("Unexpected payment reference %q", payment.PaymentReference)
	}
	if payment.Method != domain.MethodMobileMoney {
		t.Errorf("Expected mobile money method, got %s", payment.Method)
	}
	if payment.MobileNetwork != domain.NetworkSafaricom {
		t.Errorf("Expected safaricom derived from mpesa, got %s", payment.MobileNetwork)
	}
	if payment.Description != "Payment for order "+order.OrderNumber {
		t.Errorf("Unexpected description %q", payment.Description)
	}
	if inserted == nil {
		t.Fatal("Expected the payment to be persisted")
	}

	if result.Instructions == nil {
		t.Fatal("Expected gateway instructions")
	}
	if !strings.Contains(result.Instructions.Text, payment.PaymentReference) {
		t.Errorf("Expected instructions keyed on the payment reference, got %q", result.Instructions.Text)
	}
	if !strings.Contains(result.Instructions.Text, "522533") {
		t.Errorf("Expected the paybill in instructions, got %q", result.Instructions.Text)
	}
}

func TestPaymentService_CreatePayment_OwnershipMasked(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	order := makeTestOrder(owner, domain.OrderStatusPending)
	store := &mockPaymentStore{
		GetOrderByNumberFunc: func(ctx context.Context, orderNumber string) (*domain.Order, error) {
			return order, nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	input := CreatePaymentInput{OrderNumber: order.OrderNumber, Gateway: domain.GatewayMpesa, MobileNumber: "0712345678"}

	_, err := svc.CreatePayment(ctx, customerUser(uuid.New()), input)
	if !errors.Is(err, ErrOrderNotFound) {
		t.Errorf("Expected masked ErrOrderNotFound for another customer, got %v", err)
	}

	if _, err := svc.CreatePayment(ctx, staffUser(), input); err != nil {
		t.Errorf("Staff should create payments for any order, got %v", err)
	}
}

func TestPaymentService_CreatePayment_RejectsSecondSuccessful(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	order := makeTestOrder(userID, domain.OrderStatusConfirmed)
	store := &mockPaymentStore{
		GetOrderByNumberFunc: func(ctx context.Context, orderNumber string) (*domain.Order, error) {
			return order, nil
		},
		GetSuccessfulPaymentForOrderFunc: func(ctx context.Context, orderID uuid.UUID) (*domain.Payment, error) {
			return makeTestPayment(orderID, userID, domain.PaymentSuccessful), nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	_, err := svc.CreatePayment(ctx, customerUser(userID), CreatePaymentInput{
		OrderNumber: order.OrderNumber, Gateway: domain.GatewayMpesa, MobileNumber: "0712345678",
	})
	if !errors.Is(err, ErrPaymentAlreadyCompleted) {
		t.Errorf("Expected ErrPaymentAlreadyCompleted, got %v", err)
	}
}

func TestPaymentService_CreatePayment_AmountMustMatchTotal(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	order := makeTestOrder(userID, domain.OrderStatusPending)
	store := &mockPaymentStore{
		GetOrderByNumberFunc: func(ctx context.Context, orderNumber string) (*domain.Order, error) {
			return order, nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	_, err := svc.CreatePayment(ctx, customerUser(userID), CreatePaymentInput{
		OrderNumber: order.OrderNumber, Gateway: domain.GatewayMpesa,
		MobileNumber: "0712345678", AmountCents: order.TotalCents - 100,
	})
	if !errors.Is(err, ErrAmountMismatch) {
		t.Errorf("Expected ErrAmountMismatch, got %v", err)
	}
}

func TestPaymentService_CreatePayment_MobileMoneyNeedsKenyanPhone(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	order := makeTestOrder(userID, domain.OrderStatusPending)
	store := &mockPaymentStore{
		GetOrderByNumberFunc: func(ctx context.Context, orderNumber string) (*domain.Order, error) {
			return order, nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	for _, phone := range []string{"", "12345", "+14155550100", "0812345678"} {
		_, err := svc.CreatePayment(ctx, customerUser(userID), CreatePaymentInput{
			OrderNumber: order.OrderNumber, Gateway: domain.GatewayMpesa, MobileNumber: phone,
		})
		if !errors.Is(err, ErrInvalidPhoneNumber) {
			t.Errorf("Expected ErrInvalidPhoneNumber for %q, got %v", phone, err)
		}
	}

	// Bank transfer does not need a phone number.
	if _, err := svc.CreatePayment(ctx, customerUser(userID), CreatePaymentInput{
		OrderNumber: order.OrderNumber, Gateway: domain.GatewayBankTransfer,
	}); err != nil {
		t.Errorf("Expected bank transfer without a phone to work, got %v", err)
	}
}

func TestPaymentService_CreatePayment_FallbackReferenceOnCollision(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	order := makeTestOrder(userID, domain.OrderStatusPending)

	inserts := 0
	store := &mockPaymentStore{
		GetOrderByNumberFunc: func(ctx context.Context, orderNumber string) (*domain.Order, error) {
			return order, nil
		},
		InsertPaymentFunc: func(ctx context.Context, payment *domain.Payment) (*domain.Payment, error) {
			inserts++
			if inserts == 1 {
				return nil, ErrDuplicatePaymentReference
			}
			created := *payment
			created.ID = uuid.New()
			created.Seq = 8
			return &created, nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	result, err := svc.CreatePayment(ctx, customerUser(userID), CreatePaymentInput{
		OrderNumber: order.OrderNumber, Gateway: domain.GatewayMpesa, MobileNumber: "0712345678",
	})
	if err != nil {
		t.Fatalf("CreatePayment failed: %v", err)
	}
	if inserts != 2 {
		t.Fatalf("Expected a retry with a fallback reference, got %d inserts", inserts)
	}
	ref := result.Payment.PaymentReference
	if !strings.HasPrefix(ref, "PAY-") || strings.Contains(ref, order.OrderNumber) {
		t.Errorf("Expected a fallback reference without the order number, got %q", ref)
	}
}

func TestPaymentService_CreatePayment_UnknownGateway(t *testing.T) {
	ctx := context.Background()
	svc := NewPaymentService(&mockPaymentStore{}, mpesaRegistry(), notify.NewMockDispatcher())

	_, err := svc.CreatePayment(ctx, customerUser(uuid.New()), CreatePaymentInput{
		OrderNumber: "BABY-20250812-A1B2C3", Gateway: "barter",
	})
	if !errors.Is(err, ErrUnknownGateway) {
		t.Errorf("Expected ErrUnknownGateway, got %v", err)
	}
}

func TestPaymentService_UpdateStatus_MarkSuccessfulPropagatesToOrder(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	order := makeTestOrder(userID, domain.OrderStatusPending)
	payment := makeTestPayment(order.ID, userID, domain.PaymentPending)

	var updatedOrder *domain.Order
	store := &mockPaymentStore{
		tx: &mockPaymentTx{
			GetPaymentByReferenceForUpdateFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
			GetOrderByIDForUpdateFunc: func(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
				return order, nil
			},
			UpdateOrderFunc: func(ctx context.Context, o *domain.Order) (*domain.Order, error) {
				updated := *o
				updatedOrder = &updated
				return &updated, nil
			},
		},
	}
	dispatcher := notify.NewMockDispatcher()
	svc := NewPaymentService(store, mpesaRegistry(), dispatcher)

	updated, err := svc.UpdateStatus(ctx, payment.PaymentReference, PaymentStatusUpdate{
		Status:  domain.PaymentSuccessful,
		Details: domain.PaymentDetails{MobileNumber: "0712345678"},
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}

	if updated.Status != domain.PaymentSuccessful {
		t.Errorf("Expected successful payment, got %s", updated.Status)
	}
	if updated.PaidAt == nil {
		t.Fatal("Expected paid_at stamped")
	}
	if updated.GatewayReference != "GW-REF-"+payment.PaymentReference {
		t.Errorf("Expected defaulted gateway reference, got %q", updated.GatewayReference)
	}
	if updated.TransactionCode != "MPESA-00000042" {
		t.Errorf("Expected generated transaction code, got %q", updated.TransactionCode)
	}

	if updatedOrder == nil {
		t.Fatal("Expected the order to move with its payment")
	}
	if updatedOrder.PaymentStatus != domain.OrderPaymentPaid {
		t.Errorf("Expected order payment status paid, got %s", updatedOrder.PaymentStatus)
	}
	if updatedOrder.Status != domain.OrderStatusConfirmed {
		t.Errorf("Expected pending order confirmed on payment, got %s", updatedOrder.Status)
	}
	if updatedOrder.PaymentDate == nil || !updatedOrder.PaymentDate.Equal(*updated.PaidAt) {
		t.Error("Expected order payment date set to the settlement time")
	}
	if updatedOrder.PaymentReference != payment.PaymentReference {
		t.Errorf("Expected order to carry the payment reference, got %q", updatedOrder.PaymentReference)
	}

	sent := waitForNotifications(t, dispatcher, 1)
	if sent[0].Event != notify.EventPaymentReceived {
		t.Errorf("Expected payment-received notification, got %s", sent[0].Event)
	}
}

func TestPaymentService_UpdateStatus_InitiatedCannotSkipToSuccessful(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	payment := makeTestPayment(uuid.New(), userID, domain.PaymentInitiated)
	store := &mockPaymentStore{
		tx: &mockPaymentTx{
			GetPaymentByReferenceForUpdateFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	_, err := svc.UpdateStatus(ctx, payment.PaymentReference, PaymentStatusUpdate{Status: domain.PaymentSuccessful})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Fatalf("Expected EINVALID, got %v", err)
	}
	want := "cannot change status from initiated to successful"
	if domain.ErrorMessage(err) != want {
		t.Errorf("Expected %q, got %q", want, domain.ErrorMessage(err))
	}
}

func TestPaymentService_UpdateStatus_GuidedPendingMove(t *testing.T) {
	ctx := context.Background()
	payment := makeTestPayment(uuid.New(), uuid.New(), domain.PaymentInitiated)
	store := &mockPaymentStore{
		tx: &mockPaymentTx{
			GetPaymentByReferenceForUpdateFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	updated, err := svc.UpdateStatus(ctx, payment.PaymentReference, PaymentStatusUpdate{Status: domain.PaymentPending})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != domain.PaymentPending {
		t.Errorf("Expected pending, got %s", updated.Status)
	}
}

func TestPaymentService_UpdateStatus_RefusesRefundStatuses(t *testing.T) {
	ctx := context.Background()
	svc := NewPaymentService(&mockPaymentStore{}, mpesaRegistry(), notify.NewMockDispatcher())

	for _, status := range []domain.PaymentStatus{domain.PaymentRefunded, domain.PaymentPartiallyRefunded} {
		_, err := svc.UpdateStatus(ctx, "PAY-X", PaymentStatusUpdate{Status: status})
		if domain.ErrorCode(err) != domain.EINVALID {
			t.Errorf("Expected EINVALID for %s, got %v", status, err)
		}
	}
}

func TestPaymentService_UpdateStatus_MarkFailedLeavesOrderAlone(t *testing.T) {
	ctx := context.Background()
	payment := makeTestPayment(uuid.New(), uuid.New(), domain.PaymentPending)

	orderTouched := false
	store := &mockPaymentStore{
		tx: &mockPaymentTx{
			GetPaymentByReferenceForUpdateFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
			UpdateOrderFunc: func(ctx context.Context, o *domain.Order) (*domain.Order, error) {
				orderTouched = true
				updated := *o
				return &updated, nil
			},
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	updated, err := svc.UpdateStatus(ctx, payment.PaymentReference, PaymentStatusUpdate{
		Status: domain.PaymentFailed, ErrorCode: "insufficient_funds",
		ErrorMessage: "The customer balance was too low", GatewayMessage: "DS timeout",
	})
	if err != nil {
		t.Fatalf("UpdateStatus failed: %v", err)
	}
	if updated.Status != domain.PaymentFailed {
		t.Errorf("Expected failed payment, got %s", updated.Status)
	}
	if updated.ErrorCode != "insufficient_funds" || updated.GatewayMessage != "DS timeout" {
		t.Errorf("Expected error context recorded, got %+v", updated)
	}
	if orderTouched {
		t.Error("A failed payment must leave the order alone so the customer can retry")
	}
}

func TestPaymentService_Refund_FullByDefault(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	order := makeTestOrder(userID, domain.OrderStatusConfirmed)
	order.PaymentStatus = domain.OrderPaymentPaid
	payment := makeTestPayment(order.ID, userID, domain.PaymentSuccessful)

	var updatedOrder *domain.Order
	store := &mockPaymentStore{
		tx: &mockPaymentTx{
			GetPaymentByReferenceForUpdateFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
			GetOrderByIDForUpdateFunc: func(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
				return order, nil
			},
			UpdateOrderFunc: func(ctx context.Context, o *domain.Order) (*domain.Order, error) {
				updated := *o
				updatedOrder = &updated
				return &updated, nil
			},
		},
	}
	dispatcher := notify.NewMockDispatcher()
	svc := NewPaymentService(store, mpesaRegistry(), dispatcher)

	updated, err := svc.Refund(ctx, payment.PaymentReference, RefundInput{Reason: "damaged in transit"})
	if err != nil {
		t.Fatalf("Refund failed: %v", err)
	}

	if updated.Status != domain.PaymentRefunded {
		t.Errorf("Expected refunded payment, got %s", updated.Status)
	}
	if updated.RefundAmountCents != payment.AmountCents {
		t.Errorf("Expected full refund %d, got %d", payment.AmountCents, updated.RefundAmountCents)
	}
	if updated.RefundReference != "REF-"+payment.PaymentReference {
		t.Errorf("Expected defaulted refund reference, got %q", updated.RefundReference)
	}
	if updated.RefundedAt == nil {
		t.Error("Expected refunded_at stamped")
	}

	if updatedOrder == nil {
		t.Fatal("Expected the order to move on a full refund")
	}
	if updatedOrder.PaymentStatus != domain.OrderPaymentRefunded {
		t.Errorf("Expected order payment refunded, got %s", updatedOrder.PaymentStatus)
	}
	if updatedOrder.Status != domain.OrderStatusRefunded {
		t.Errorf("Expected order refunded, got %s", updatedOrder.Status)
	}

	sent := waitForNotifications(t, dispatcher, 1)
	if sent[0].Event != notify.EventPaymentRefunded {
		t.Errorf("Expected payment-refunded notification, got %s", sent[0].Event)
	}
	if sent[0].AmountCents != payment.AmountCents {
		t.Errorf("Expected refunded amount in notification, got %d", sent[0].AmountCents)
	}
}

func TestPaymentService_Refund_PartialThenComplete(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	order := makeTestOrder(userID, domain.OrderStatusConfirmed)
	order.PaymentStatus = domain.OrderPaymentPaid
	payment := makeTestPayment(order.ID, userID, domain.PaymentSuccessful)

	orderTouched := false
	store := &mockPaymentStore{
		tx: &mockPaymentTx{
			GetPaymentByReferenceForUpdateFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
			GetOrderByIDForUpdateFunc: func(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
				return order, nil
			},
			UpdateOrderFunc: func(ctx context.Context, o *domain.Order) (*domain.Order, error) {
				orderTouched = true
				updated := *o
				return &updated, nil
			},
			UpdatePaymentFunc: func(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
				payment = p
				updated := *p
				return &updated, nil
			},
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	partial, err := svc.Refund(ctx, payment.PaymentReference, RefundInput{AmountCents: 100000})
	if err != nil {
		t.Fatalf("Partial refund failed: %v", err)
	}
	if partial.Status != domain.PaymentPartiallyRefunded {
		t.Errorf("Expected partially refunded, got %s", partial.Status)
	}
	if orderTouched {
		t.Fatal("A partial refund must not move the order")
	}

	full, err := svc.Refund(ctx, payment.PaymentReference, RefundInput{})
	if err != nil {
		t.Fatalf("Completing refund failed: %v", err)
	}
	if full.Status != domain.PaymentRefunded {
		t.Errorf("Expected refunded after remainder, got %s", full.Status)
	}
	if full.RefundAmountCents != payment.AmountCents {
		t.Errorf("Expected cumulative refund %d, got %d", payment.AmountCents, full.RefundAmountCents)
	}
	if !orderTouched {
		t.Error("Expected the order to move once fully refunded")
	}
}

func TestPaymentService_Refund_RejectsUnpaid(t *testing.T) {
	ctx := context.Background()
	payment := makeTestPayment(uuid.New(), uuid.New(), domain.PaymentPending)
	store := &mockPaymentStore{
		tx: &mockPaymentTx{
			GetPaymentByReferenceForUpdateFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	_, err := svc.Refund(ctx, payment.PaymentReference, RefundInput{})
	if domain.ErrorCode(err) != domain.ECONFLICT {
		t.Errorf("Expected ECONFLICT for an unpaid payment, got %v", err)
	}
}

func TestPaymentService_Refund_RejectsExcessAmount(t *testing.T) {
	ctx := context.Background()
	payment := makeTestPayment(uuid.New(), uuid.New(), domain.PaymentSuccessful)
	store := &mockPaymentStore{
		tx: &mockPaymentTx{
			GetPaymentByReferenceForUpdateFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	_, err := svc.Refund(ctx, payment.PaymentReference, RefundInput{AmountCents: payment.AmountCents + 1})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("Expected EINVALID for an excess refund, got %v", err)
	}
}

func TestPaymentService_Refund_DeliveredOrderTakesGuidedPath(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	order := makeTestOrder(userID, domain.OrderStatusDelivered)
	order.PaymentStatus = domain.OrderPaymentPaid
	payment := makeTestPayment(order.ID, userID, domain.PaymentSuccessful)

	var updatedOrder *domain.Order
	store := &mockPaymentStore{
		tx: &mockPaymentTx{
			GetPaymentByReferenceForUpdateFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
			GetOrderByIDForUpdateFunc: func(ctx context.Context, orderID uuid.UUID) (*domain.Order, error) {
				return order, nil
			},
			UpdateOrderFunc: func(ctx context.Context, o *domain.Order) (*domain.Order, error) {
				updated := *o
				updatedOrder = &updated
				return &updated, nil
			},
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	if _, err := svc.Refund(ctx, payment.PaymentReference, RefundInput{}); err != nil {
		t.Fatalf("Refund failed: %v", err)
	}
	if updatedOrder == nil || updatedOrder.Status != domain.OrderStatusRefunded {
		t.Fatalf("Expected delivered order refunded, got %+v", updatedOrder)
	}
}

func TestPaymentService_Instructions_OnlyWhileAwaitingSettlement(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()

	for _, tc := range []struct {
		status domain.PaymentStatus
		ok     bool
	}{
		{domain.PaymentInitiated, true},
		{domain.PaymentPending, true},
		{domain.PaymentSuccessful, false},
		{domain.PaymentFailed, false},
		{domain.PaymentCancelled, false},
	} {
		payment := makeTestPayment(uuid.New(), userID, tc.status)
		store := &mockPaymentStore{
			GetPaymentByReferenceFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
				return payment, nil
			},
		}
		svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

		instructions, err := svc.Instructions(ctx, customerUser(userID), payment.PaymentReference)
		if tc.ok {
			if err != nil {
				t.Errorf("Expected instructions for %s, got %v", tc.status, err)
			} else if !strings.Contains(instructions.Text, payment.PaymentReference) {
				t.Errorf("Expected reference in instructions for %s, got %q", tc.status, instructions.Text)
			}
		} else if !errors.Is(err, ErrInstructionsNotAvailable) {
			t.Errorf("Expected ErrInstructionsNotAvailable for %s, got %v", tc.status, err)
		}
	}
}

func TestPaymentService_GetPayment_OwnershipMasked(t *testing.T) {
	ctx := context.Background()
	owner := uuid.New()
	payment := makeTestPayment(uuid.New(), owner, domain.PaymentPending)
	store := &mockPaymentStore{
		GetPaymentByReferenceFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
			return payment, nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	if _, err := svc.GetPayment(ctx, customerUser(uuid.New()), payment.PaymentReference); !errors.Is(err, ErrPaymentNotFound) {
		t.Errorf("Expected masked ErrPaymentNotFound, got %v", err)
	}
	if _, err := svc.GetPayment(ctx, customerUser(owner), payment.PaymentReference); err != nil {
		t.Errorf("Owner should see the payment, got %v", err)
	}
	if _, err := svc.GetPayment(ctx, staffUser(), payment.PaymentReference); err != nil {
		t.Errorf("Staff should see the payment, got %v", err)
	}
}

func TestPaymentService_CaptureWebhook_StoresAndCorrelates(t *testing.T) {
	ctx := context.Background()
	payment := makeTestPayment(uuid.New(), uuid.New(), domain.PaymentPending)

	var stored *domain.PaymentWebhook
	var processedErr string
	store := &mockPaymentStore{
		GetPaymentByReferenceFunc: func(ctx context.Context, reference string) (*domain.Payment, error) {
			if reference == payment.PaymentReference {
				return payment, nil
			}
			return nil, ErrPaymentNotFound
		},
		InsertWebhookFunc: func(ctx context.Context, webhook *domain.PaymentWebhook) (*domain.PaymentWebhook, error) {
			created := *webhook
			created.ID = uuid.New()
			stored = &created
			return &created, nil
		},
		MarkWebhookProcessedFunc: func(ctx context.Context, webhookID uuid.UUID, processingError string) error {
			processedErr = processingError
			return nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	payload := []byte(`{"TransID":"TGH7SK61SV","payment_reference":"` + payment.PaymentReference + `","amount":"3298.00"}`)
	capture, err := svc.CaptureWebhook(ctx, WebhookCapture{
		Gateway:   "mpesa",
		EventType: "confirmation",
		Payload:   payload,
		Headers:   map[string][]string{"Content-Type": {"application/json"}},
		SourceIP:  "196.201.214.200",
	})
	if err != nil {
		t.Fatalf("CaptureWebhook failed: %v", err)
	}

	if stored == nil {
		t.Fatal("Expected the webhook stored")
	}
	if stored.Gateway != "mpesa" || stored.EventType != "confirmation" {
		t.Errorf("Unexpected capture %+v", stored)
	}
	if capture.PaymentID == nil || *capture.PaymentID != payment.ID {
		t.Error("Expected best-effort correlation to the payment")
	}
	if processedErr != "webhook processing not implemented" {
		t.Errorf("Expected capture-only processing note, got %q", processedErr)
	}
}

func TestPaymentService_CaptureWebhook_UnknownGatewayRejected(t *testing.T) {
	ctx := context.Background()
	inserted := false
	store := &mockPaymentStore{
		InsertWebhookFunc: func(ctx context.Context, webhook *domain.PaymentWebhook) (*domain.PaymentWebhook, error) {
			inserted = true
			return webhook, nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	_, err := svc.CaptureWebhook(ctx, WebhookCapture{Gateway: "western-union", Payload: []byte(`{}`)})
	if !errors.Is(err, ErrUnknownGateway) {
		t.Fatalf("Expected ErrUnknownGateway, got %v", err)
	}
	if inserted {
		t.Error("Nothing must be stored for an unknown gateway")
	}
}

func TestPaymentService_CaptureWebhook_StripeSignatureRequired(t *testing.T) {
	ctx := context.Background()
	inserted := false
	store := &mockPaymentStore{
		InsertWebhookFunc: func(ctx context.Context, webhook *domain.PaymentWebhook) (*domain.PaymentWebhook, error) {
			inserted = true
			return webhook, nil
		},
	}
	registry := gateway.NewRegistry(gateway.NewStripeProvider("sk_test_key", "whsec_testsecret"))
	svc := NewPaymentService(store, registry, notify.NewMockDispatcher())

	_, err := svc.CaptureWebhook(ctx, WebhookCapture{
		Gateway:   "stripe",
		EventType: "payment_intent.succeeded",
		Payload:   []byte(`{"id":"evt_1"}`),
		Signature: "t=1,v1=deadbeef",
	})
	if domain.ErrorCode(err) != domain.EUNAUTHORIZED {
		t.Fatalf("Expected EUNAUTHORIZED for a bad signature, got %v", err)
	}
	if inserted {
		t.Error("Nothing must be stored when the signature fails")
	}
}

func TestPaymentService_ListPaymentMethods_FiltersAndPrices(t *testing.T) {
	ctx := context.Background()
	store := &mockPaymentStore{
		ListMethodConfigsFunc: func(ctx context.Context) ([]domain.PaymentMethodConfig, error) {
			return []domain.PaymentMethodConfig{
				{Name: "mpesa", Gateway: domain.GatewayMpesa, IsActive: true, SortOrder: 1,
					FeePercentBasisPoints: 0, FeeFixedCents: 0, MinAmountCents: 100},
				{Name: "card", Gateway: domain.GatewayStripe, IsActive: true, SortOrder: 2,
					FeePercentBasisPoints: 290, FeeFixedCents: 3000, MinAmountCents: 5000},
				{Name: "legacy", Gateway: domain.GatewayPaypal, IsActive: false, SortOrder: 3},
			}, nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	options, err := svc.ListPaymentMethods(ctx, 100000)
	if err != nil {
		t.Fatalf("ListPaymentMethods failed: %v", err)
	}

	if len(options) != 2 {
		t.Fatalf("Expected inactive methods filtered out, got %d", len(options))
	}
	if options[0].Config.Name != "mpesa" || options[0].FeeCents != 0 || !options[0].Available {
		t.Errorf("Unexpected mpesa option %+v", options[0])
	}
	// 2.9% of 100000 + 3000 fixed
	if options[1].FeeCents != 5900 {
		t.Errorf("Expected card fee 5900, got %d", options[1].FeeCents)
	}
	if !options[1].Available {
		t.Error("Expected card available at 100000")
	}
}

func TestPaymentService_ListPayments_DefaultsPagination(t *testing.T) {
	ctx := context.Background()
	userID := uuid.New()
	var gotLimit, gotOffset int32
	store := &mockPaymentStore{
		ListPaymentsByUserFunc: func(ctx context.Context, id uuid.UUID, limit, offset int32) ([]domain.Payment, int64, error) {
			gotLimit, gotOffset = limit, offset
			return []domain.Payment{*makeTestPayment(uuid.New(), id, domain.PaymentPending)}, 1, nil
		},
	}
	svc := NewPaymentService(store, mpesaRegistry(), notify.NewMockDispatcher())

	page, err := svc.ListPayments(ctx, userID, 0, -5)
	if err != nil {
		t.Fatalf("ListPayments failed: %v", err)
	}
	if gotLimit != defaultPageSize || gotOffset != 0 {
		t.Errorf("Expected defaults %d/0, got %d/%d", defaultPageSize, gotLimit, gotOffset)
	}
	if page.Total != 1 || len(page.Payments) != 1 {
		t.Errorf("Unexpected page %+v", page)
	}
}
