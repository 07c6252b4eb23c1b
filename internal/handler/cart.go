package handler

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/service"
	"github.com/sokoni-labs/babyshop/internal/telemetry"
)

// CartHandler serves the authenticated user's shopping cart.
type CartHandler struct {
	carts service.CartService
}

// NewCartHandler creates a new CartHandler.
func NewCartHandler(carts service.CartService) *CartHandler {
	return &CartHandler{carts: carts}
}

type addItemRequest struct {
	ProductID string `json:"product_id" validate:"required,uuid"`
	VariantID string `json:"variant_id" validate:"omitempty,uuid"`
	Quantity  int32  `json:"quantity" validate:"required,gte=1"`
	Size      string `json:"size" validate:"omitempty,max=50"`
	Color     string `json:"color" validate:"omitempty,max=50"`
}

type updateQuantityRequest struct {
	// Quantity of zero or less removes the line.
	Quantity int32 `json:"quantity"`
}

type adjustQuantityRequest struct {
	By int32 `json:"by" validate:"omitempty,gte=1"`
}

type cartItemResponse struct {
	ID             uuid.UUID  `json:"id"`
	ProductID      uuid.UUID  `json:"product_id"`
	VariantID      *uuid.UUID `json:"variant_id,omitempty"`
	ProductName    string     `json:"product_name"`
	ProductSlug    string     `json:"product_slug"`
	Size           string     `json:"size,omitempty"`
	Color          string     `json:"color,omitempty"`
	Gender         string     `json:"gender,omitempty"`
	AgeRange       string     `json:"age_range,omitempty"`
	ImageURL       string     `json:"image_url,omitempty"`
	Quantity       int32      `json:"quantity"`
	UnitPriceCents int64      `json:"unit_price_cents"`
	LineTotalCents int64      `json:"line_total_cents"`
}

type cartSummaryResponse struct {
	TotalItems    int32    `json:"total_items"`
	UniqueLines   int      `json:"unique_lines"`
	SubtotalCents int64    `json:"subtotal_cents"`
	AgeRanges     []string `json:"age_ranges,omitempty"`
	Genders       []string `json:"genders,omitempty"`
	HasGiftItems  bool     `json:"has_gift_items"`
}

type cartResponse struct {
	Items   []cartItemResponse  `json:"items"`
	Summary cartSummaryResponse `json:"summary"`
}

type cartLineResponse struct {
	Item    *cartItemResponse   `json:"item,omitempty"`
	Removed bool                `json:"removed,omitempty"`
	Summary cartSummaryResponse `json:"summary"`
}

// Get returns the cart with its lines and totals.
func (h *CartHandler) Get(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	view, err := h.carts.GetCart(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, cartResponse{
		Items:   cartItemsJSON(view.Items),
		Summary: cartSummaryJSON(view.Summary),
	})
}

// Summary returns the cart totals without line detail.
func (h *CartHandler) Summary(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	summary, err := h.carts.Summary(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, cartSummaryJSON(*summary))
}

// Count returns the total item quantity, for the cart badge.
func (h *CartHandler) Count(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	count, err := h.carts.Count(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, map[string]int32{"count": count})
}

// AddItem adds a product to the cart, merging with an existing line for
// the same product, variant, size and color.
func (h *CartHandler) AddItem(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	var req addItemRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	input := service.AddItemInput{
		Quantity: req.Quantity,
		Size:     req.Size,
		Color:    req.Color,
	}
	input.ProductID, err = uuid.Parse(req.ProductID)
	if err != nil {
		return domain.Invalid("handler.cart.add", "product_id must be a valid UUID")
	}
	if req.VariantID != "" {
		variantID, err := uuid.Parse(req.VariantID)
		if err != nil {
			return domain.Invalid("handler.cart.add", "variant_id must be a valid UUID")
		}
		input.VariantID = &variantID
	}

	result, err := h.carts.AddItem(c.Request().Context(), user.ID, input)
	if err != nil {
		return err
	}

	if telemetry.Business != nil {
		telemetry.Business.CartItemsAdded.WithLabelValues(
			string(result.Item.Gender), string(result.Item.AgeRange)).Inc()
	}

	return OK(c, http.StatusCreated, cartLineJSON(result))
}

// UpdateItem sets a line's quantity; zero or less removes the line.
func (h *CartHandler) UpdateItem(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	itemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req updateQuantityRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	result, err := h.carts.UpdateItemQuantity(c.Request().Context(), user.ID, itemID, req.Quantity)
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, cartLineJSON(result))
}

// IncreaseItem increments a line's quantity.
func (h *CartHandler) IncreaseItem(c echo.Context) error {
	return h.adjustItem(c, func(ctx echo.Context, userID, itemID uuid.UUID, by int32) (*service.CartLineResult, error) {
		return h.carts.IncreaseQuantity(ctx.Request().Context(), userID, itemID, by)
	})
}

// DecreaseItem decrements a line's quantity, clamping at one. Removal goes
// through UpdateItem with zero or the delete endpoint.
func (h *CartHandler) DecreaseItem(c echo.Context) error {
	return h.adjustItem(c, func(ctx echo.Context, userID, itemID uuid.UUID, by int32) (*service.CartLineResult, error) {
		return h.carts.DecreaseQuantity(ctx.Request().Context(), userID, itemID, by)
	})
}

func (h *CartHandler) adjustItem(c echo.Context, adjust func(echo.Context, uuid.UUID, uuid.UUID, int32) (*service.CartLineResult, error)) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	itemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req adjustQuantityRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	result, err := adjust(c, user.ID, itemID, req.By)
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, cartLineJSON(result))
}

// RemoveItem deletes a line from the cart.
func (h *CartHandler) RemoveItem(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	itemID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	summary, err := h.carts.RemoveItem(c.Request().Context(), user.ID, itemID)
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, map[string]any{"summary": cartSummaryJSON(*summary)})
}

// Clear deletes every line in the cart.
func (h *CartHandler) Clear(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	if err := h.carts.Clear(c.Request().Context(), user.ID); err != nil {
		return err
	}

	if telemetry.Business != nil {
		telemetry.Business.CartsCleared.Inc()
	}

	return OK(c, http.StatusOK, map[string]string{"message": "Cart cleared"})
}

func cartItemJSON(item domain.CartItem) cartItemResponse {
	return cartItemResponse{
		ID:             item.ID,
		ProductID:      item.ProductID,
		VariantID:      item.VariantID,
		ProductName:    item.ProductName,
		ProductSlug:    item.ProductSlug,
		Size:           item.Size,
		Color:          item.Color,
		Gender:         string(item.Gender),
		AgeRange:       string(item.AgeRange),
		ImageURL:       item.ImageURL,
		Quantity:       item.Quantity,
		UnitPriceCents: item.UnitPriceCents,
		LineTotalCents: item.LineTotalCents(),
	}
}

func cartItemsJSON(items []domain.CartItem) []cartItemResponse {
	out := make([]cartItemResponse, len(items))
	for i, item := range items {
		out[i] = cartItemJSON(item)
	}
	return out
}

func cartSummaryJSON(summary domain.CartSummary) cartSummaryResponse {
	resp := cartSummaryResponse{
		TotalItems:    summary.TotalItems,
		UniqueLines:   summary.UniqueLines,
		SubtotalCents: summary.SubtotalCents,
		HasGiftItems:  summary.HasGiftItems,
	}
	for _, age := range summary.AgeRanges {
		resp.AgeRanges = append(resp.AgeRanges, string(age))
	}
	for _, gender := range summary.Genders {
		resp.Genders = append(resp.Genders, string(gender))
	}
	return resp
}

func cartLineJSON(result *service.CartLineResult) cartLineResponse {
	resp := cartLineResponse{
		Removed: result.Removed,
		Summary: cartSummaryJSON(result.Summary),
	}
	if !result.Removed {
		item := cartItemJSON(result.Item)
		resp.Item = &item
	}
	return resp
}

// pathUUID parses a UUID path parameter, reporting malformed values as
// not found so probing IDs and missing rows look the same.
func pathUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, domain.NotFound("handler.path", "resource", c.Param(name))
	}
	return id, nil
}
