package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/gateway"
	"github.com/sokoni-labs/babyshop/internal/service"
)

// OrderHandler serves checkout and the order lifecycle.
type OrderHandler struct {
	checkout service.CheckoutService
	orders   service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(checkout service.CheckoutService, orders service.OrderService) *OrderHandler {
	return &OrderHandler{checkout: checkout, orders: orders}
}

type checkoutRequest struct {
	ShippingAddressID     string `json:"shipping_address_id" validate:"omitempty,uuid"`
	BillingAddressID      string `json:"billing_address_id" validate:"omitempty,uuid"`
	BillingSameAsShipping *bool  `json:"billing_same_as_shipping"`
	ShippingMethod        string `json:"shipping_method" validate:"required,oneof=store_pickup nairobi_only other_towns"`
	PaymentGateway        string `json:"payment_gateway" validate:"required"`
	CustomerNotes         string `json:"customer_notes" validate:"omitempty,max=1000"`
	IsGift                bool   `json:"is_gift"`
	GiftMessage           string `json:"gift_message" validate:"omitempty,max=500"`
	GiftWrapping          bool   `json:"gift_wrapping"`
}

type updateOrderStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

type adminOrderUpdateRequest struct {
	Status         *string `json:"status"`
	TrackingNumber *string `json:"tracking_number"`
	Carrier        *string `json:"carrier"`
	CustomerNotes  *string `json:"customer_notes"`
}

type orderPaymentUpdateRequest struct {
	PaymentStatus    string     `json:"payment_status" validate:"required"`
	PaymentMethod    string     `json:"payment_method"`
	PaymentReference string     `json:"payment_reference"`
	PaymentDate      *time.Time `json:"payment_date"`
}

type orderItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      *uuid.UUID `json:"product_id,omitempty"`
	ProductName    string     `json:"product_name"`
	ProductCode    string     `json:"product_code,omitempty"`
	Size           string     `json:"size,omitempty"`
	Color          string     `json:"color,omitempty"`
	ColorCode      string     `json:"color_code,omitempty"`
	Gender         string     `json:"gender,omitempty"`
	AgeRange       string     `json:"age_range,omitempty"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	Quantity       int32      `json:"quantity"`
	TotalCents     int64      `json:"total_cents"`
}

type orderAddressResponse struct {
	ContactName string `json:"contact_name"`
	Phone       string `json:"phone"`
	Line1       string `json:"line1"`
	Line2       string `json:"line2,omitempty"`
	City        string `json:"city"`
	County      string `json:"county"`
	PostalCode  string `json:"postal_code,omitempty"`
}

type orderResponse struct {
	OrderNumber      string `json:"order_number"`
	Status           string `json:"status"`
	PaymentStatus    string `json:"payment_status"`
	PaymentMethod    string `json:"payment_method,omitempty"`
	PaymentReference string `json:"payment_reference,omitempty"`

	ShippingMethod        string               `json:"shipping_method"`
	ShippingAddress       orderAddressResponse `json:"shipping_address"`
	BillingSameAsShipping bool                 `json:"billing_same_as_shipping"`
	BillingAddress        orderAddressResponse `json:"billing_address"`

	SubtotalCents     int64 `json:"subtotal_cents"`
	ShippingCostCents int64 `json:"shipping_cost_cents"`
	TaxCents          int64 `json:"tax_cents"`
	DiscountCents     int64 `json:"discount_cents"`
	GiftWrapFeeCents  int64 `json:"gift_wrap_fee_cents"`
	TotalCents        int64 `json:"total_cents"`

	CustomerNotes string `json:"customer_notes,omitempty"`
	IsGift        bool   `json:"is_gift,omitempty"`
	GiftMessage   string `json:"gift_message,omitempty"`
	GiftWrapping  bool   `json:"gift_wrapping,omitempty"`

	TrackingNumber string `json:"tracking_number,omitempty"`
	Carrier        string `json:"carrier,omitempty"`

	PaymentDate *time.Time `json:"payment_date,omitempty"`
	ConfirmedAt *time.Time `json:"confirmed_at,omitempty"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
	ShippedAt   *time.Time `json:"shipped_at,omitempty"`
	DeliveredAt *time.Time `json:"delivered_at,omitempty"`
	CancelledAt *time.Time `json:"cancelled_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type checkoutResponse struct {
	Order               orderResponse         `json:"order"`
	Items               []orderItemResponse   `json:"items"`
	PaymentRequired     bool                  `json:"payment_required"`
	PaymentInstructions *gateway.Instructions `json:"payment_instructions,omitempty"`
	PaymentURL          string                `json:"payment_url,omitempty"`
}

type orderDetailResponse struct {
	Order         orderResponse         `json:"order"`
	Items         []orderItemResponse   `json:"items"`
	StatusHistory []statusEventResponse `json:"status_history"`
}

type statusEventResponse struct {
	Status string    `json:"status"`
	At     time.Time `json:"at"`
}

type orderPageResponse struct {
	Orders []orderResponse `json:"orders"`
	Total  int64           `json:"total"`
	Limit  int32           `json:"limit"`
	Offset int32           `json:"offset"`
}

type trackingResponse struct {
	OrderNumber           string                `json:"order_number"`
	Status                string                `json:"status"`
	ShippingMethod        string                `json:"shipping_method"`
	TrackingNumber        string                `json:"tracking_number,omitempty"`
	Carrier               string                `json:"carrier,omitempty"`
	TrackingURL           string                `json:"tracking_url,omitempty"`
	EstimatedDeliveryDate *time.Time            `json:"estimated_delivery_date,omitempty"`
	StatusHistory         []statusEventResponse `json:"status_history"`
}

// Checkout converts the user's cart into an order.
func (h *OrderHandler) Checkout(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	var req checkoutRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	input := service.CheckoutInput{
		ShippingMethod: domain.ShippingMethod(req.ShippingMethod),
		PaymentGateway: domain.PaymentGateway(req.PaymentGateway),
		CustomerNotes:  req.CustomerNotes,
		IsGift:         req.IsGift,
		GiftMessage:    req.GiftMessage,
		GiftWrapping:   req.GiftWrapping,

		// Billing mirrors shipping unless the request opts out.
		BillingSameAsShipping: req.BillingSameAsShipping == nil || *req.BillingSameAsShipping,
	}
	if req.ShippingAddressID != "" {
		id, err := uuid.Parse(req.ShippingAddressID)
		if err != nil {
			return domain.Invalid("handler.checkout", "shipping_address_id must be a valid UUID")
		}
		input.ShippingAddressID = &id
	}
	if req.BillingAddressID != "" {
		id, err := uuid.Parse(req.BillingAddressID)
		if err != nil {
			return domain.Invalid("handler.checkout", "billing_address_id must be a valid UUID")
		}
		input.BillingAddressID = &id
	}

	result, err := h.checkout.Checkout(c.Request().Context(), user.ID, input)
	if err != nil {
		return err
	}

	return OK(c, http.StatusCreated, checkoutResponse{
		Order:               orderJSON(result.Order),
		Items:               orderItemsJSON(result.Items),
		PaymentRequired:     result.PaymentRequired,
		PaymentInstructions: result.PaymentInstructions,
		PaymentURL:          result.PaymentURL,
	})
}

// List returns the user's orders, newest first.
func (h *OrderHandler) List(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	limit, offset := pageParams(c)
	page, err := h.orders.ListOrders(c.Request().Context(), user.ID, limit, offset)
	if err != nil {
		return err
	}

	resp := orderPageResponse{
		Orders: make([]orderResponse, len(page.Orders)),
		Total:  page.Total,
		Limit:  page.Limit,
		Offset: page.Offset,
	}
	for i, order := range page.Orders {
		resp.Orders[i] = orderJSON(order)
	}
	return OK(c, http.StatusOK, resp)
}

// Get returns an order with items and status history.
func (h *OrderHandler) Get(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	detail, err := h.orders.GetOrder(c.Request().Context(), user, c.Param("number"))
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, orderDetailJSON(detail))
}

// UpdateStatus moves an order along the guided status machine. Staff only.
func (h *OrderHandler) UpdateStatus(c echo.Context) error {
	var req updateOrderStatusRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	order, err := h.orders.UpdateStatus(c.Request().Context(), c.Param("number"), domain.OrderStatus(req.Status))
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, orderJSON(*order))
}

// AdminUpdate applies a staff direct write to status, tracking or notes.
func (h *OrderHandler) AdminUpdate(c echo.Context) error {
	var req adminOrderUpdateRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	input := service.AdminOrderUpdate{
		TrackingNumber: req.TrackingNumber,
		Carrier:        req.Carrier,
		CustomerNotes:  req.CustomerNotes,
	}
	if req.Status != nil {
		status := domain.OrderStatus(*req.Status)
		input.Status = &status
	}

	order, err := h.orders.AdminUpdate(c.Request().Context(), c.Param("number"), input)
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, orderJSON(*order))
}

// UpdatePayment moves the order's denormalized payment status. Staff only.
func (h *OrderHandler) UpdatePayment(c echo.Context) error {
	var req orderPaymentUpdateRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	order, err := h.orders.UpdatePaymentInfo(c.Request().Context(), c.Param("number"), service.OrderPaymentUpdate{
		PaymentStatus:    domain.OrderPaymentStatus(req.PaymentStatus),
		PaymentMethod:    req.PaymentMethod,
		PaymentReference: req.PaymentReference,
		PaymentDate:      req.PaymentDate,
	})
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, orderJSON(*order))
}

// Cancel cancels an order that is still in a cancellable stage.
func (h *OrderHandler) Cancel(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	order, err := h.orders.CancelOrder(c.Request().Context(), user, c.Param("number"))
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, orderJSON(*order))
}

// Tracking returns the tracking view for an order.
func (h *OrderHandler) Tracking(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	info, err := h.orders.GetTracking(c.Request().Context(), user, c.Param("number"))
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, trackingResponse{
		OrderNumber:           info.OrderNumber,
		Status:                string(info.Status),
		ShippingMethod:        string(info.ShippingMethod),
		TrackingNumber:        info.TrackingNumber,
		Carrier:               info.Carrier,
		TrackingURL:           info.TrackingURL,
		EstimatedDeliveryDate: info.EstimatedDeliveryDate,
		StatusHistory:         statusHistoryJSON(info.StatusHistory),
	})
}

func orderJSON(order domain.Order) orderResponse {
	return orderResponse{
		OrderNumber:      order.OrderNumber,
		Status:           string(order.Status),
		PaymentStatus:    string(order.PaymentStatus),
		PaymentMethod:    order.PaymentMethod,
		PaymentReference: order.PaymentReference,

		ShippingMethod: string(order.ShippingMethod),
		ShippingAddress: orderAddressResponse{
			ContactName: order.ShippingContactName,
			Phone:       order.ShippingPhone,
			Line1:       order.ShippingLine1,
			Line2:       order.ShippingLine2,
			City:        order.ShippingCity,
			County:      order.ShippingCounty,
			PostalCode:  order.ShippingPostalCode,
		},
		BillingSameAsShipping: order.BillingSameAsShipping,
		BillingAddress: orderAddressResponse{
			ContactName: order.BillingContactName,
			Phone:       order.BillingPhone,
			Line1:       order.BillingLine1,
			Line2:       order.BillingLine2,
			City:        order.BillingCity,
			County:      order.BillingCounty,
			PostalCode:  order.BillingPostalCode,
		},

		SubtotalCents:     order.SubtotalCents,
		ShippingCostCents: order.ShippingCostCents,
		TaxCents:          order.TaxCents,
		DiscountCents:     order.DiscountCents,
		GiftWrapFeeCents:  order.GiftWrapFeeCents,
		TotalCents:        order.TotalCents,

		CustomerNotes: order.CustomerNotes,
		IsGift:        order.IsGift,
		GiftMessage:   order.GiftMessage,
		GiftWrapping:  order.GiftWrapping,

		TrackingNumber: order.TrackingNumber,
		Carrier:        order.Carrier,

		PaymentDate: order.PaymentDate,
		ConfirmedAt: order.ConfirmedAt,
		ProcessedAt: order.ProcessedAt,
		ShippedAt:   order.ShippedAt,
		DeliveredAt: order.DeliveredAt,
		CancelledAt: order.CancelledAt,
		CreatedAt:   order.CreatedAt,
	}
}

func orderItemsJSON(items []domain.OrderItem) []orderItemResponse {
	out := make([]orderItemResponse, len(items))
	for i, item := range items {
		out[i] = orderItemResponse{
			ID:             item.ID,
			ProductID:      item.ProductID,
			ProductName:    item.ProductName,
			ProductCode:    item.ProductCode,
			Size:           item.Size,
			Color:          item.Color,
			ColorCode:      item.ColorCode,
			Gender:         string(item.Gender),
			AgeRange:       string(item.AgeRange),
			UnitPriceCents: item.UnitPriceCents,
			Quantity:       item.Quantity,
			TotalCents:     item.TotalCents,
		}
	}
	return out
}

func orderDetailJSON(detail *service.OrderDetail) orderDetailResponse {
	return orderDetailResponse{
		Order:         orderJSON(detail.Order),
		Items:         orderItemsJSON(detail.Items),
		StatusHistory: statusHistoryJSON(detail.StatusHistory),
	}
}

func statusHistoryJSON(history []domain.StatusEvent) []statusEventResponse {
	out := make([]statusEventResponse, len(history))
	for i, event := range history {
		out[i] = statusEventResponse{Status: string(event.Status), At: event.At}
	}
	return out
}

// pageParams reads limit/offset query parameters; the services clamp them.
func pageParams(c echo.Context) (limit, offset int32) {
	if v, err := strconv.ParseInt(c.QueryParam("limit"), 10, 32); err == nil {
		limit = int32(v)
	}
	if v, err := strconv.ParseInt(c.QueryParam("offset"), 10, 32); err == nil {
		offset = int32(v)
	}
	return limit, offset
}
