package handler

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/service"
)

// AddressHandler serves the user's saved delivery addresses.
type AddressHandler struct {
	addresses service.AddressService
}

// NewAddressHandler creates a new AddressHandler.
func NewAddressHandler(addresses service.AddressService) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

type addressRequest struct {
	Label                string `json:"label" validate:"required,oneof=home office grandparents daycare relative other"`
	ContactName          string `json:"contact_name" validate:"required,max=120"`
	Phone                string `json:"phone" validate:"required,max=20"`
	Line1                string `json:"line1" validate:"required,max=255"`
	Line2                string `json:"line2" validate:"omitempty,max=255"`
	City                 string `json:"city" validate:"required,max=100"`
	County               string `json:"county" validate:"required,max=100"`
	PostalCode           string `json:"postal_code" validate:"omitempty,max=20"`
	Country              string `json:"country" validate:"omitempty,max=100"`
	DeliveryInstructions string `json:"delivery_instructions" validate:"omitempty,max=500"`
	IsDefaultShipping    bool   `json:"is_default_shipping"`
	IsDefaultBilling     bool   `json:"is_default_billing"`
}

type setDefaultRequest struct {
	Shipping bool `json:"shipping"`
	Billing  bool `json:"billing"`
}

type addressResponse struct {
	ID                   uuid.UUID `json:"id"`
	Label                string    `json:"label"`
	ContactName          string    `json:"contact_name"`
	Phone                string    `json:"phone"`
	Line1                string    `json:"line1"`
	Line2                string    `json:"line2,omitempty"`
	City                 string    `json:"city"`
	County               string    `json:"county"`
	PostalCode           string    `json:"postal_code,omitempty"`
	Country              string    `json:"country"`
	DeliveryInstructions string    `json:"delivery_instructions,omitempty"`
	IsDefaultShipping    bool      `json:"is_default_shipping"`
	IsDefaultBilling     bool      `json:"is_default_billing"`
	CreatedAt            time.Time `json:"created_at"`
}

// List returns the user's addresses, defaults first.
func (h *AddressHandler) List(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	addresses, err := h.addresses.ListAddresses(c.Request().Context(), user.ID)
	if err != nil {
		return err
	}

	resp := make([]addressResponse, len(addresses))
	for i, addr := range addresses {
		resp[i] = addressJSON(addr)
	}
	return OK(c, http.StatusOK, resp)
}

// Create saves a new address.
func (h *AddressHandler) Create(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	var req addressRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	address, err := h.addresses.CreateAddress(c.Request().Context(), user.ID, addressInput(req))
	if err != nil {
		return err
	}

	return OK(c, http.StatusCreated, addressJSON(*address))
}

// Update replaces an address the user owns.
func (h *AddressHandler) Update(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	addressID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req addressRequest
	if err := Bind(c, &req); err != nil {
		return err
	}

	address, err := h.addresses.UpdateAddress(c.Request().Context(), user.ID, addressID, addressInput(req))
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, addressJSON(*address))
}

// Delete removes an address the user owns. Orders keep their own copies.
func (h *AddressHandler) Delete(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	addressID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	if err := h.addresses.DeleteAddress(c.Request().Context(), user.ID, addressID); err != nil {
		return err
	}

	return OK(c, http.StatusOK, map[string]string{"message": "Address deleted"})
}

// SetDefault marks an address as the user's default for shipping, billing
// or both.
func (h *AddressHandler) SetDefault(c echo.Context) error {
	user, err := RequireUser(c)
	if err != nil {
		return err
	}

	addressID, err := pathUUID(c, "id")
	if err != nil {
		return err
	}

	var req setDefaultRequest
	if err := Bind(c, &req); err != nil {
		return err
	}
	if !req.Shipping && !req.Billing {
		return domain.Invalid("handler.address.default", "select shipping, billing or both")
	}

	address, err := h.addresses.SetDefault(c.Request().Context(), user.ID, addressID, service.SetDefaultInput{
		Shipping: req.Shipping,
		Billing:  req.Billing,
	})
	if err != nil {
		return err
	}

	return OK(c, http.StatusOK, addressJSON(*address))
}

func addressInput(req addressRequest) service.AddressInput {
	return service.AddressInput{
		Label:                domain.AddressLabel(req.Label),
		ContactName:          req.ContactName,
		Phone:                req.Phone,
		Line1:                req.Line1,
		Line2:                req.Line2,
		City:                 req.City,
		County:               req.County,
		PostalCode:           req.PostalCode,
		Country:              req.Country,
		DeliveryInstructions: req.DeliveryInstructions,
		IsDefaultShipping:    req.IsDefaultShipping,
		IsDefaultBilling:     req.IsDefaultBilling,
	}
}

func addressJSON(addr domain.Address) addressResponse {
	return addressResponse{
		ID:                   addr.ID,
		Label:                string(addr.Label),
		ContactName:          addr.ContactName,
		Phone:                addr.Phone,
		Line1:                addr.Line1,
		Line2:                addr.Line2,
		City:                 addr.City,
		County:               addr.County,
		PostalCode:           addr.PostalCode,
		Country:              addr.Country,
		DeliveryInstructions: addr.DeliveryInstructions,
		IsDefaultShipping:    addr.IsDefaultShipping,
		IsDefaultBilling:     addr.IsDefaultBilling,
		CreatedAt:            addr.CreatedAt,
	}
}
