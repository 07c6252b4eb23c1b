package service

import (
	"github.com/sokoni-labs/babyshop/internal/domain"
)

// Catalog errors - use domain.ENOTFOUND
var (
	ErrProductNotFound  = domain.Errorf(domain.ENOTFOUND, "", "Product not found")
	ErrVariantNotFound  = domain.Errorf(domain.ENOTFOUND, "", "Product variant not found")
	ErrCategoryNotFound = domain.Errorf(domain.ENOTFOUND, "", "Category not found")
	ErrBrandNotFound    = domain.Errorf(domain.ENOTFOUND, "", "Brand not found")
)

// Cart errors
var (
	ErrCartNotFound     = domain.Errorf(domain.ENOTFOUND, "", "Cart not found")
	ErrCartItemNotFound = domain.Errorf(domain.ENOTFOUND, "", "Cart item not found")
	ErrEmptyCart        = domain.Errorf(domain.EINVALID, "", "Cart is empty")
	ErrInvalidQuantity  = domain.Errorf(domain.EINVALID, "", "Quantity must be greater than 0")
	ErrProductInactive  = domain.Errorf(domain.EINVALID, "", "Product is not available for purchase")
)

// Order errors
var (
	ErrOrderNotFound           = domain.Errorf(domain.ENOTFOUND, "", "Order not found")
	ErrOrderNotCancellable     = domain.Errorf(domain.EINVALID, "", "Order can no longer be cancelled")
	ErrInsufficientStock       = domain.Errorf(domain.ECONFLICT, "", "Insufficient stock for one or more items")
	ErrDuplicateOrderNumber    = domain.Errorf(domain.ECONFLICT, "", "Order number already exists")
	ErrOrderNumberExhausted    = domain.Errorf(domain.ECONFLICT, "", "Could not allocate a unique order number")
	ErrMissingPaymentReference = domain.Errorf(domain.EINVALID, "", "Payment reference is required when marking an order paid")
	ErrMissingTrackingNumber   = domain.Errorf(domain.EINVALID, "", "Tracking number is required")
)

// Address errors. The shipping/billing messages are surfaced verbatim during
// checkout address resolution.
var (
	ErrAddressNotFound         = domain.Errorf(domain.ENOTFOUND, "", "Address not found")
	ErrShippingAddressNotFound = domain.Errorf(domain.ENOTFOUND, "", "Shipping address not found.")
	ErrBillingAddressNotFound  = domain.Errorf(domain.ENOTFOUND, "", "Billing address not found.")
	ErrMissingShippingAddress  = domain.Errorf(domain.EINVALID, "", "Please select a shipping address.")
)

// Payment errors
var (
	ErrPaymentNotFound           = domain.Errorf(domain.ENOTFOUND, "", "Payment not found")
	ErrMethodConfigNotFound      = domain.Errorf(domain.ENOTFOUND, "", "Payment method not found")
	ErrPaymentAlreadyCompleted   = domain.Errorf(domain.ECONFLICT, "", "Order already has a successful payment")
	ErrDuplicatePaymentReference = domain.Errorf(domain.ECONFLICT, "", "A payment with this reference already exists")
	ErrAmountMismatch            = domain.Errorf(domain.EINVALID, "", "Payment amount must match the order total")
	ErrInvalidPhoneNumber        = domain.Errorf(domain.EINVALID, "", "A valid Kenyan phone number is required for mobile money")
	ErrUnknownGateway            = domain.Errorf(domain.EINVALID, "", "Unknown payment gateway")
	ErrInstructionsNotAvailable  = domain.Errorf(domain.EINVALID, "", "Payment instructions are only available while a payment awaits settlement")
	ErrWebhookNotFound           = domain.Errorf(domain.ENOTFOUND, "", "Webhook not found")
)
