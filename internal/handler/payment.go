package handler

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/gateway"
	"github.com/sokoni-labs/babyshop/internal/middleware"
	"github.com/sokoni-labs/babyshop/internal/service"
)

// PaymentHandler serves payment creation, the payment status machine,
// refunds, webhook capture and the payment method catalog.
type PaymentHandler struct {
	payments service.PaymentService
}

// NewPaymentHandler creates a new PaymentHandler.
func NewPaymentHandler(payments service.PaymentService) *PaymentHandler {
	return &PaymentHandler{payments: payments}
}

type createPaymentRequest struct {
	OrderNumber   string `json:"order_number" validate:"required"`
	Gateway       string `json:"gateway" validate:"required"`
	AmountCents   int64  `json:"amount_cents" validate:"omitempty,gt=0"`
	MobileNumber  string `json:"mobile_number"`
	MobileNetwork string `json:"mobile_network" validate:"omitempty,oneof=safaricom airtel telkom"`
	Description   string `json:"description" validate:"omitempty,max=500"`
	Remarks       string `json:"remarks" validate:"omitempty,max=500"`
}

type paymentStatusRequest struct {
	Status string `json:"status" validate:"required"`

	GatewayReference string `json:"gateway_reference"`
	GatewayMessage   string `json:"gateway_message"`
	MobileNumber     string `json:"mobile_number"`
	MobileNetwork    string `json:"mobile_network" validate:"omitempty,oneof=safaricom airtel telkom"`
	CardLast4        string `json:"card_last4" validate:"omitempty,len=4"`
	CardBrand        string `json:"card_brand"`
	BankName         string `json:"bank_name"`
	AccountName      string `json:"account_name"`
	AccountNumber    string `json:"account_number"`

	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
}

type refundRequest struct {
	AmountCents int64  `json:"amount_cents" validate:"omitempty,gt=0"`
	Reference   string `json:"reference"`
	Reason      string `json:"reason" validate:"omitempty,max=500"`
}

type paymentResponse struct {
	PaymentReference string `json:"payment_reference"`
	OrderNumber      string `json:"order_number,omitempty"`
	AmountCents      int64  `json:"amount_cents"`
	Currency         string `json:"currency"`
	Status           string `json:"status"`
	Gateway          string `json:"gateway"`
	Method           string `json:"method"`

	GatewayReference string     `json:"gateway_reference,omitempty"`
	PaidAt           *time.Time `json:"paid_at,omitempty"`

	ErrorCode      string `json:"error_code,omitempty"`
	ErrorMessage   string `json:"error_message,omitempty"`
	GatewayMessage string `json:"gateway_message,omitempty"`

	RefundAmountCents int64      `json:"refund_amount_cents,omitempty"`
	RefundReference   string     `json:"refund_reference,omitempty"`
	RefundReason      string     `json:"refund_reason,omitempty"`
	RefundedAt        *time.Time `json:"refunded_at,omitempty"`

	MobileNumber    string `json:"mobile_number,omitempty"`
	MobileNetwork   string `json:"mobile_network,omitempty"`
	TransactionCode string `json:"transaction_code,omitempty"`
	CardLast4       string `json:"card_last4,omitempty"`
	CardBrand       string `json:"card_brand,omitempty"`

	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

type paymentCreationResponse struct {
	Payment      paymentResponse       `json:"payment"`
	Instructions *gateway.Instructions `json:"instructions,omitempty"`
}

type paymentPageResponse struct {
	Payments []paymentResponse `json:"payments"`
	Total    int64             `json:"total"`
	Limit    int32             `json:"limit"`
	Offset   int32             `json:"offset"`
}

type paymentMethodResponse struct {
	Name              string   `json:"name"`
	Gateway           string   `json:"gateway"`
	MethodType        string   `json:"method_type"`
	DisplayName       string   `json:"display_name"`
	Description       string   `json:"description,omitempty"`
	Icon              string   `json:"icon,omitempty"`
	IsDefault         bool     `json:"is_default"`
	MinAmountCents    int64    `json:"min_amount_cents"`
	MaxAmountCents    int64    `json:"max_amount_cents,omitempty"`
	FeeCents          int64    `json:"fee_cents"`
	Available         bool     `json:"available"`
	SupportedNetworks []string `json:"supported_networks,omitempty"`
	Instructions      string   `json:"instructions,omitempty"`
}

// Create opens a payment attempt against an order the user owns.
func (h *PaymentHandler) Create(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	var req createPaymentRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	creation, err := h.payments.CreatePayment(c.Request().Context(), user, service.CreatePaymentInput{
		OrderNumber:   req.OrderNumber,
		Gateway:       domain.PaymentGateway(req.Gateway),
		AmountCents:   req.AmountCents,
		MobileNumber:  req.MobileNumber,
		MobileNetwork: domain.MobileNetwork(req.MobileNetwork),
		Description:   req.Description,
		Remarks:       req.Remarks,
	})
	if err != nil {
		return err
	}

	return OK(c, http.StatusCreated, paymentCreationResponse{
		Payment:      paymentJSON(creation.Payment),
		Instructions: creation.Instructions,
	})
}

// List returns the user's payments, newest first.
func (h *PaymentHandler) List(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	limit, offset := pageParams(c)
	page, err := h.payments.ListPayments(c.Request().Context(), user.ID, limit, offset)
	if err != nil {
		return err
	}

	resp := paymentPageResponse{
		Payments: make([]paymentResponse, len(page.Payments)),
		Total:    page.Total,
		Limit:    page.Limit,
		Offset:   page.Offset,
	}
	for i := range page.Payments {
		resp.Payments[i] = paymentJSON(&page.Payments[i])
	}
	return OK(c, http.StatusOK, resp)
}

// Get returns a payment by reference.
func (h *PaymentHandler) Get(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	payment, err := h.payments.GetPayment(c.Request().Context(), user, c.Param("reference"))
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, paymentJSON(payment))
}

// Instructions re-renders settlement instructions for a pending payment.
func (h *PaymentHandler) Instructions(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	instructions, err := h.payments.Instructions(c.Request().Context(), user, c.Param("reference"))
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, instructions)
}

// UpdateStatus moves a payment through the guided status machine. Staff
// only; marking successful propagates to the order in the same
// transaction.
func (h *PaymentHandler) UpdateStatus(c echo.Context) error {
	var req paymentStatusRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.UpdateStatus(c.Request().Context(), c.Param("reference"), service.PaymentStatusUpdate{
		Status: domain.PaymentStatus(req.Status),
		Details: domain.PaymentDetails{
			GatewayReference: req.GatewayReference,
			GatewayMessage:   req.GatewayMessage,
			MobileNumber:     req.MobileNumber,
			MobileNetwork:    domain.MobileNetwork(req.MobileNetwork),
			CardLast4:        req.CardLast4,
			CardBrand:        req.CardBrand,
			BankName:         req.BankName,
			AccountName:      req.AccountName,
			AccountNumber:    req.AccountNumber,
		},
		ErrorCode:      req.ErrorCode,
		ErrorMessage:   req.ErrorMessage,
		GatewayMessage: req.GatewayMessage,
	})
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, paymentJSON(payment))
}

// Refund refunds a successful payment. Staff only; a missing amount
// refunds the outstanding remainder.
func (h *PaymentHandler) Refund(c echo.Context) error {
	var req refundRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	payment, err := h.payments.Refund(c.Request().Context(), c.Param("reference"), service.RefundInput{
		AmountCents: req.AmountCents,
		Reference:   req.Reference,
		Reason:      req.Reason,
	})
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, paymentJSON(payment))
}

// maxWebhookBody bounds gateway callback payloads at 1 MiB.
const maxWebhookBody = 1 << 20

// Webhook captures a gateway callback append-only. Stripe callbacks are
// signature-checked before anything is stored.
func (h *PaymentHandler) Webhook(c echo.Context) error {
	payload, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		return domain.Invalid("handler.webhook", "failed to read webhook body")
	}

	eventType := c.Request().Header.Get("X-Event-Type")
	if eventType == "" {
		eventType = "unknown"
	}

	capture := service.WebhookCapture{
		Gateway:   c.Param("gateway"),
		EventType: eventType,
		Payload:   payload,
		Headers:   c.Request().Header,
		Signature: c.Request().Header.Get("Stripe-Signature"),
		SourceIP:  middleware.ClientIP(c.Request()),
	}

	if _, err := h.payments.CaptureWebhook(c.Request().Context(), capture); err != nil {
		return err
	}

	return OK(c, http.StatusOK, map[string]bool{"received": true})
}

// ListMethods returns the active payment method catalog with fees computed
// for the optional amount query parameter.
func (h *PaymentHandler) ListMethods(c echo.Context) error {
	var amountCents int64
	if raw := c.QueryParam("amount_cents"); raw != "" {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || v < 0 {
			return domain.Invalid("handler.payment_methods", "amount_cents must be a non-negative integer")
		}
		amountCents = v
	}

	options, err := h.payments.ListPaymentMethods(c.Request().Context(), amountCents)
	if err != nil {
		return err
	}

	resp := make([]paymentMethodResponse, len(options))
	for i, option := range options {
		resp[i] = paymentMethodJSON(option)
	}
	return OK(c, http.StatusOK, resp)
}

func paymentJSON(p *domain.Payment) paymentResponse {
	return paymentResponse{
		PaymentReference: p.PaymentReference,
		AmountCents:      p.AmountCents,
		Currency:         p.Currency,
		Status:           string(p.Status),
		Gateway:          string(p.Gateway),
		Method:           string(p.Method),

		GatewayReference: p.GatewayReference,
		PaidAt:           p.PaidAt,

		ErrorCode:      p.ErrorCode,
		ErrorMessage:   p.ErrorMessage,
		GatewayMessage: p.GatewayMessage,

		RefundAmountCents: p.RefundAmountCents,
		RefundReference:   p.RefundReference,
		RefundReason:      p.RefundReason,
		RefundedAt:        p.RefundedAt,

		MobileNumber:    p.MobileNumber,
		MobileNetwork:   string(p.MobileNetwork),
		TransactionCode: p.TransactionCode,
		CardLast4:       p.CardLast4,
		CardBrand:       p.CardBrand,

		Description: p.Description,
		CreatedAt:   p.CreatedAt,
	}
}

func paymentMethodJSON(option service.PaymentMethodOption) paymentMethodResponse {
	resp := paymentMethodResponse{
		Name:           option.Config.Name,
		Gateway:        string(option.Config.Gateway),
		MethodType:     string(option.Config.MethodType),
		DisplayName:    option.Config.DisplayName,
		Description:    option.Config.Description,
		Icon:           option.Config.Icon,
		IsDefault:      option.Config.IsDefault,
		MinAmountCents: option.Config.MinAmountCents,
		MaxAmountCents: option.Config.MaxAmountCents,
		FeeCents:       option.FeeCents,
		Available:      option.Available,
		Instructions:   option.Config.Instructions,
	}
	for _, network := range option.Config.SupportedNetworks {
		resp.SupportedNetworks = append(resp.SupportedNetworks, string(network))
	}
	return resp
}
