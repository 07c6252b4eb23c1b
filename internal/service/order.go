package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/notify"
	"github.com/sokoni-labs/babyshop/internal/telemetry"
)

// OrderService provides business logic for order lifecycle operations.
// Status changes run through the guided transition machine; the admin
// update path moves freely except out of hard-terminal statuses.
type OrderService interface {
	ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int32) (*OrderPage, error)
	GetOrder(ctx context.Context, user *domain.User, orderNumber string) (*OrderDetail, error)
	UpdateStatus(ctx context.Context, orderNumber string, next domain.OrderStatus) (*domain.Order, error)
	AdminUpdate(ctx context.Context, orderNumber string, input AdminOrderUpdate) (*domain.Order, error)
	CancelOrder(ctx context.Context, user *domain.User, orderNumber string) (*domain.Order, error)
	UpdatePaymentInfo(ctx context.Context, orderNumber string, input OrderPaymentUpdate) (*domain.Order, error)
	GetTracking(ctx context.Context, user *domain.User, orderNumber string) (*TrackingInfo, error)
}

// OrderPage is a page of orders with the total for pagination.
type OrderPage struct {
	Orders []domain.Order
	Total  int64
	Limit  int32
	Offset int32
}

// OrderDetail is an order with its line items and derived status history.
type OrderDetail struct {
	Order         domain.Order
	Items         []domain.OrderItem
	StatusHistory []domain.StatusEvent
}

// AdminOrderUpdate is the staff direct-write payload. Nil fields are left
// untouched. Status moves freely except out of delivered, cancelled and
// refunded. Payment fields are deliberately absent; they only change
// through UpdatePaymentInfo so the payment machine cannot be bypassed.
type AdminOrderUpdate struct {
	Status         *domain.OrderStatus
	TrackingNumber *string
	Carrier        *string
	CustomerNotes  *string
}

// OrderPaymentUpdate moves the order's denormalized payment state along
// its guided machine. Marking paid requires a reference and defaults the
// payment date to now.
type OrderPaymentUpdate struct {
	PaymentStatus    domain.OrderPaymentStatus
	PaymentMethod    string
	PaymentReference string
	PaymentDate      *time.Time
}

// TrackingInfo is the customer-facing tracking view: carrier link, ETA
// and the derived status history.
type TrackingInfo struct {
	OrderNumber           string
	Status                domain.OrderStatus
	ShippingMethod        domain.ShippingMethod
	TrackingNumber        string
	Carrier               string
	TrackingURL           string
	EstimatedDeliveryDate *time.Time
	StatusHistory         []domain.StatusEvent
}

// OrderStore is the persistence surface the order service needs.
type OrderStore interface {
	GetOrderByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, limit, offset int32) ([]domain.Order, int64, error)
	ListOrderItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	UpdateOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
}

type orderService struct {
	store      OrderStore
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// NewOrderService creates a new OrderService instance.
func NewOrderService(store OrderStore, dispatcher notify.Dispatcher) OrderService {
	return &orderService{
		store:      store,
		dispatcher: dispatcher,
		now:        time.Now,
	}
}

// ListOrders returns the user's orders, newest first.
func (s *orderService) ListOrders(ctx context.Context, userID uuid.UUID, limit, offset int32) (*OrderPage, error) {
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	if offset < 0 {
		offset = 0
	}

	orders, total, err := s.store.ListOrdersByUser(ctx, userID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}

	return &OrderPage{
		Orders: orders,
		Total:  total,
		Limit:  limit,
		Offset: offset,
	}, nil
}

// GetOrder returns an order with items and status history. Customers only
// see their own orders; staff see all.
func (s *orderService) GetOrder(ctx context.Context, user *domain.User, orderNumber string) (*OrderDetail, error) {
	order, err := s.ownedOrder(ctx, user, orderNumber)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}

	return &OrderDetail{
		Order:         *order,
		Items:         items,
		StatusHistory: order.StatusHistory(),
	}, nil
}

// UpdateStatus moves an order along the guided status machine.
func (s *orderService) UpdateStatus(ctx context.Context, orderNumber string, next domain.OrderStatus) (*domain.Order, error) {
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if err := order.TransitionTo(next, s.now()); err != nil {
		return nil, err
	}

	updated, err := s.saveOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.recordTransition(from, updated.Status)
	s.notifyStatusChange(ctx, updated)
	return updated, nil
}

// AdminUpdate applies a staff direct write to status, tracking or notes.
func (s *orderService) AdminUpdate(ctx context.Context, orderNumber string, input AdminOrderUpdate) (*domain.Order, error) {
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	from := order.Status
	if input.Status != nil {
		if err := order.ForceStatus(*input.Status, s.now()); err != nil {
			return nil, err
		}
	}
	if input.TrackingNumber != nil {
		order.TrackingNumber = *input.TrackingNumber
	}
	if input.Carrier != nil {
		order.Carrier = *input.Carrier
	}
	if input.CustomerNotes != nil {
		order.CustomerNotes = *input.CustomerNotes
	}

	updated, err := s.saveOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	if input.Status != nil && from != updated.Status {
		s.recordTransition(from, updated.Status)
		s.notifyStatusChange(ctx, updated)
	}
	return updated, nil
}

// CancelOrder cancels an order that is still in a cancellable stage.
// Customers cancel their own orders; staff cancel any.
func (s *orderService) CancelOrder(ctx context.Context, user *domain.User, orderNumber string) (*domain.Order, error) {
	order, err := s.ownedOrder(ctx, user, orderNumber)
	if err != nil {
		return nil, err
	}

	if !order.CanBeCancelled() {
		return nil, ErrOrderNotCancellable
	}

	from := order.Status
	if err := order.TransitionTo(domain.OrderStatusCancelled, s.now()); err != nil {
		return nil, err
	}

	updated, err := s.saveOrder(ctx, order)
	if err != nil {
		return nil, err
	}

	s.recordTransition(from, updated.Status)
	s.notifyStatusChange(ctx, updated)
	return updated, nil
}

// UpdatePaymentInfo moves the order's payment status along its guided
// machine and applies payment metadata.
func (s *orderService) UpdatePaymentInfo(ctx context.Context, orderNumber string, input OrderPaymentUpdate) (*domain.Order, error) {
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	if input.PaymentStatus != "" {
		if err := order.TransitionPaymentStatus(input.PaymentStatus); err != nil {
			return nil, err
		}
		if input.PaymentStatus == domain.OrderPaymentPaid {
			if input.PaymentReference == "" {
				return nil, ErrMissingPaymentReference
			}
			if input.PaymentDate == nil {
				now := s.now()
				input.PaymentDate = &now
			}
		}
	}

	if input.PaymentMethod != "" {
		order.PaymentMethod = input.PaymentMethod
	}
	if input.PaymentReference != "" {
		order.PaymentReference = input.PaymentReference
	}
	if input.PaymentDate != nil {
		order.PaymentDate = input.PaymentDate
	}

	return s.saveOrder(ctx, order)
}

// GetTracking returns the tracking view for an order.
func (s *orderService) GetTracking(ctx context.Context, user *domain.User, orderNumber string) (*TrackingInfo, error) {
	order, err := s.ownedOrder(ctx, user, orderNumber)
	if err != nil {
		return nil, err
	}

	info := &TrackingInfo{
		OrderNumber:    order.OrderNumber,
		Status:         order.Status,
		ShippingMethod: order.ShippingMethod,
		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,
		TrackingURL:    domain.CarrierTrackingURL(order.Carrier, order.TrackingNumber),
		StatusHistory:  order.StatusHistory(),
	}

	if days, ok := order.ShippingMethod.EstimatedDeliveryDays(); ok {
		base := s.now()
		if order.ShippedAt != nil {
			base = *order.ShippedAt
		}
		estimate := base.AddDate(0, 0, days)
		info.EstimatedDeliveryDate = &estimate
	}

	return info, nil
}

// ownedOrder loads an order and enforces ownership. Orders belonging to
// other customers are reported as not found.
func (s *orderService) ownedOrder(ctx context.Context, user *domain.User, orderNumber string) (*domain.Order, error) {
	order, err := s.store.GetOrderByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if user == nil || (!user.IsStaff() && order.UserID != user.ID) {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

// saveOrder recomputes the money breakdown from the current line items
// and persists the order. Totals are derived on every update-save so the
// stored columns never drift from the items.
func (s *orderService) saveOrder(ctx context.Context, order *domain.Order) (*domain.Order, error) {
	items, err := s.store.ListOrderItems(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list order items: %w", err)
	}

	var subtotal int64
	for _, item := range items {
		subtotal += item.TotalCents
	}
	order.SubtotalCents = subtotal
	order.RecomputeTotal()

	updated, err := s.store.UpdateOrder(ctx, order)
	if err != nil {
		return nil, fmt.Errorf("failed to update order: %w", err)
	}
	return updated, nil
}

func (s *orderService) recordTransition(from, to domain.OrderStatus) {
	if telemetry.Business != nil {
		telemetry.Business.OrderStatusTransition.WithLabelValues(string(from), string(to)).Inc()
	}
}

// notifyStatusChange dispatches a status notification without blocking
// the request. The request context may already be done by the time the
// dispatcher runs, so it is detached first.
func (s *orderService) notifyStatusChange(ctx context.Context, order *domain.Order) {
	if s.dispatcher == nil {
		return
	}
	notification := notify.Notification{
		Event:       notify.EventOrderStatusChanged,
		UserID:      order.UserID,
		OrderNumber: order.OrderNumber,
		OrderStatus: string(order.Status),
	}
	go func(ctx context.Context) {
		_ = s.dispatcher.Dispatch(ctx, notification)
	}(context.WithoutCancel(ctx))
}
