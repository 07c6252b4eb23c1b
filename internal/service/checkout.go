package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/gateway"
	"github.com/sokoni-labs/babyshop/internal/notify"
	"github.com/sokoni-labs/babyshop/internal/shipping"
	"github.com/sokoni-labs/babyshop/internal/tax"
	"github.com/sokoni-labs/babyshop/internal/telemetry"
)

// CheckoutService turns a cart into an order. The whole conversion runs
// inside one database transaction with the cart row locked, so concurrent
// checkouts from the same user serialize instead of double-selling the
// cart.
type CheckoutService interface {
	Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error)
}

// CheckoutInput is the checkout request. Address IDs are optional; the
// user's defaults are used when absent.
type CheckoutInput struct {
	ShippingAddressID     *uuid.UUID
	BillingAddressID      *uuid.UUID
	BillingSameAsShipping bool
	ShippingMethod        domain.ShippingMethod
	PaymentGateway        domain.PaymentGateway
	CustomerNotes         string
	IsGift                bool
	GiftMessage           string
	GiftWrapping          bool
}

// CheckoutResult is the committed order plus what the customer must do
// next. Instructions are rendered for offline and mobile money gateways;
// card gateways get a payment URL instead.
type CheckoutResult struct {
	Order               domain.Order
	Items               []domain.OrderItem
	PaymentRequired     bool
	PaymentInstructions *gateway.Instructions
	PaymentURL          string
}

// CheckoutTx is the transactional persistence surface for checkout. Every
// method runs on the same database transaction.
type CheckoutTx interface {
	GetCartByUserIDForUpdate(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error)
	GetAddressByID(ctx context.Context, addressID uuid.UUID) (*domain.Address, error)
	GetDefaultShippingAddress(ctx context.Context, userID uuid.UUID) (*domain.Address, error)
	GetDefaultBillingAddress(ctx context.Context, userID uuid.UUID) (*domain.Address, error)
	GetProductByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	GetVariantByID(ctx context.Context, variantID uuid.UUID) (*domain.ProductVariant, error)
	InsertOrder(ctx context.Context, order *domain.Order) (*domain.Order, error)
	InsertOrderItems(ctx context.Context, items []domain.OrderItem) ([]domain.OrderItem, error)
	DecrementProductStock(ctx context.Context, productID uuid.UUID, quantity int32) error
	DecrementVariantStock(ctx context.Context, variantID uuid.UUID, quantity int32) error
	ClearCartItems(ctx context.Context, cartID uuid.UUID) error
	TouchCart(ctx context.Context, cartID uuid.UUID) error
}

// CheckoutStore opens checkout transactions.
type CheckoutStore interface {
	InCheckoutTx(ctx context.Context, fn func(CheckoutTx) error) error
}

const orderNumberAttempts = 3

type checkoutService struct {
	store      CheckoutStore
	quoter     shipping.Quoter
	taxer      tax.Calculator
	gateways   *gateway.Registry
	dispatcher notify.Dispatcher

	giftWrapFeeCents int64
	now              func() time.Time
}

// NewCheckoutService creates a new CheckoutService instance.
func NewCheckoutService(
	store CheckoutStore,
	quoter shipping.Quoter,
	taxer tax.Calculator,
	gateways *gateway.Registry,
	dispatcher notify.Dispatcher,
	giftWrapFeeCents int64,
) CheckoutService {
	return &checkoutService{
		store:            store,
		quoter:           quoter,
		taxer:            taxer,
		gateways:         gateways,
		dispatcher:       dispatcher,
		giftWrapFeeCents: giftWrapFeeCents,
		now:              time.Now,
	}
}

// Checkout converts the user's cart into an order inside one transaction:
// lock cart, resolve addresses, price the lines at current prices, quote
// shipping, insert the order and its items, decrement stock with guarded
// updates, clear the cart. Any failure rolls the whole conversion back.
func (s *checkoutService) Checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if telemetry.Business != nil {
		telemetry.Business.CheckoutAttempts.Inc()
	}

	result, err := s.checkout(ctx, userID, input)
	if err != nil {
		if telemetry.Business != nil {
			telemetry.Business.CheckoutFailed.WithLabelValues(checkoutFailureReason(err)).Inc()
		}
		return nil, err
	}

	if telemetry.Business != nil {
		telemetry.Business.CheckoutCompleted.WithLabelValues(
			string(result.Order.ShippingMethod), string(input.PaymentGateway)).Inc()
		telemetry.Business.OrdersCreated.WithLabelValues(string(result.Order.ShippingMethod)).Inc()
		telemetry.Business.OrderValue.Observe(float64(result.Order.TotalCents))
		telemetry.Business.OrderItemCount.Observe(float64(len(result.Items)))
	}

	s.notifyOrderCreated(ctx, &result.Order)
	return result, nil
}

func (s *checkoutService) checkout(ctx context.Context, userID uuid.UUID, input CheckoutInput) (*CheckoutResult, error) {
	if !input.PaymentGateway.Valid() {
		return nil, ErrUnknownGateway
	}

	var (
		order domain.Order
		items []domain.OrderItem
	)

	err := s.store.InCheckoutTx(ctx, func(tx CheckoutTx) error {
		cart, err := tx.GetCartByUserIDForUpdate(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrCartNotFound) {
				return ErrEmptyCart
			}
			return fmt.Errorf("failed to lock cart: %w", err)
		}

		lines, err := tx.ListCartItems(ctx, cart.ID)
		if err != nil {
			return fmt.Errorf("failed to list cart items: %w", err)
		}
		if len(lines) == 0 {
			return ErrEmptyCart
		}

		shippingAddr, billingAddr, err := s.resolveAddresses(ctx, tx, userID, input)
		if err != nil {
			return err
		}

		quote, err := s.quoter.Quote(ctx, input.ShippingMethod, shippingAddr.County)
		if err != nil {
			return err
		}

		priced, subtotal, err := s.priceLines(ctx, tx, lines)
		if err != nil {
			return err
		}

		taxResult, err := s.taxer.CalculateTax(ctx, taxParams(shippingAddr, priced, quote.CostCents))
		if err != nil {
			return fmt.Errorf("failed to calculate tax: %w", err)
		}

		draft := s.buildOrder(userID, input, shippingAddr, billingAddr)
		draft.SubtotalCents = subtotal
		draft.ShippingCostCents = quote.CostCents
		draft.TaxCents = taxResult.TotalTaxCents
		if input.GiftWrapping {
			draft.GiftWrapFeeCents = s.giftWrapFeeCents
		}
		draft.RecomputeTotal()

		created, err := s.insertOrderWithFreshNumber(ctx, tx, draft)
		if err != nil {
			return err
		}

		for i := range priced {
			priced[i].item.OrderID = created.ID
		}
		toInsert := make([]domain.OrderItem, len(priced))
		for i, line := range priced {
			toInsert[i] = line.item
		}
		inserted, err := tx.InsertOrderItems(ctx, toInsert)
		if err != nil {
			return fmt.Errorf("failed to insert order items: %w", err)
		}

		for _, line := range priced {
			if err := s.decrementStock(ctx, tx, line); err != nil {
				return err
			}
		}

		if err := tx.ClearCartItems(ctx, cart.ID); err != nil {
			return fmt.Errorf("failed to clear cart: %w", err)
		}
		if err := tx.TouchCart(ctx, cart.ID); err != nil {
			return fmt.Errorf("failed to touch cart: %w", err)
		}

		order = *created
		items = inserted
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &CheckoutResult{
		Order:           order,
		Items:           items,
		PaymentRequired: order.PaymentStatus != domain.OrderPaymentPaid,
	}
	if result.PaymentRequired {
		s.attachPaymentNextStep(ctx, result, input.PaymentGateway)
	}
	return result, nil
}

// pricedLine pairs a snapshot order item with the catalog rows it was
// priced from, for the stock decrement that follows.
type pricedLine struct {
	item      domain.OrderItem
	product   *domain.Product
	variantID *uuid.UUID
}

// priceLines re-resolves current unit prices and snapshots product fields
// into order items. Cart lines never carry prices of their own.
func (s *checkoutService) priceLines(ctx context.Context, tx CheckoutTx, lines []domain.CartItem) ([]pricedLine, int64, error) {
	priced := make([]pricedLine, 0, len(lines))
	var subtotal int64

	for _, line := range lines {
		product, err := tx.GetProductByID(ctx, line.ProductID)
		if err != nil {
			return nil, 0, err
		}

		unitPrice := product.PriceCents
		colorCode := ""
		if line.VariantID != nil {
			variant, err := tx.GetVariantByID(ctx, *line.VariantID)
			if err != nil {
				return nil, 0, err
			}
			unitPrice = variant.CurrentPriceCents(product.PriceCents)
			colorCode = variant.ColorCode
		}

		productID := product.ID
		item := domain.OrderItem{
			ProductID:      &productID,
			ProductName:    product.Name,
			ProductCode:    product.ProductCode,
			Size:           line.Size,
			Color:          line.Color,
			ColorCode:      colorCode,
			Gender:         product.Gender,
			AgeRange:       product.AgeRange,
			UnitPriceCents: unitPrice,
			Quantity:       line.Quantity,
			TotalCents:     unitPrice * int64(line.Quantity),
		}

		priced = append(priced, pricedLine{item: item, product: product, variantID: line.VariantID})
		subtotal += item.TotalCents
	}

	return priced, subtotal, nil
}

// decrementStock applies guarded decrements for the line. When a variant
// was purchased both the variant and the parent product stock go down.
func (s *checkoutService) decrementStock(ctx context.Context, tx CheckoutTx, line pricedLine) error {
	if err := tx.DecrementProductStock(ctx, line.product.ID, line.item.Quantity); err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			return domain.Errorf(domain.ECONFLICT, "checkout", "insufficient stock for %s", line.product.Name)
		}
		return fmt.Errorf("failed to decrement product stock: %w", err)
	}
	if line.variantID != nil {
		if err := tx.DecrementVariantStock(ctx, *line.variantID, line.item.Quantity); err != nil {
			if errors.Is(err, ErrInsufficientStock) {
				return domain.Errorf(domain.ECONFLICT, "checkout", "insufficient stock for %s (%s %s)",
					line.product.Name, line.item.Size, line.item.Color)
			}
			return fmt.Errorf("failed to decrement variant stock: %w", err)
		}
	}
	return nil
}

// insertOrderWithFreshNumber inserts the order, regenerating the order
// number on a unique collision. Three attempts; collisions are
// astronomically rare so more would only mask a real defect.
func (s *checkoutService) insertOrderWithFreshNumber(ctx context.Context, tx CheckoutTx, draft *domain.Order) (*domain.Order, error) {
	for attempt := 0; attempt < orderNumberAttempts; attempt++ {
		number, err := domain.GenerateOrderNumber(s.now())
		if err != nil {
			return nil, err
		}
		draft.OrderNumber = number

		created, err := tx.InsertOrder(ctx, draft)
		if err == nil {
			return created, nil
		}
		if !errors.Is(err, ErrDuplicateOrderNumber) {
			return nil, fmt.Errorf("failed to insert order: %w", err)
		}
	}
	return nil, ErrOrderNumberExhausted
}

// resolveAddresses applies the address fallback chain: explicit id owned
// by the user, else the user's default. Billing mirrors shipping unless
// the request names a distinct billing address.
func (s *checkoutService) resolveAddresses(ctx context.Context, tx CheckoutTx, userID uuid.UUID, input CheckoutInput) (*domain.Address, *domain.Address, error) {
	var shippingAddr *domain.Address

	if input.ShippingAddressID != nil {
		addr, err := tx.GetAddressByID(ctx, *input.ShippingAddressID)
		if err != nil || addr.UserID != userID {
			return nil, nil, ErrShippingAddressNotFound
		}
		shippingAddr = addr
	} else {
		addr, err := tx.GetDefaultShippingAddress(ctx, userID)
		if err != nil {
			if errors.Is(err, ErrAddressNotFound) {
				return nil, nil, ErrMissingShippingAddress
			}
			return nil, nil, fmt.Errorf("failed to get default shipping address: %w", err)
		}
		shippingAddr = addr
	}

	billingAddr := shippingAddr
	if !input.BillingSameAsShipping {
		switch {
		case input.BillingAddressID != nil:
			addr, err := tx.GetAddressByID(ctx, *input.BillingAddressID)
			if err != nil || addr.UserID != userID {
				return nil, nil, ErrBillingAddressNotFound
			}
			billingAddr = addr
		default:
			addr, err := tx.GetDefaultBillingAddress(ctx, userID)
			if err != nil {
				if errors.Is(err, ErrAddressNotFound) {
					// No distinct billing address anywhere; fall back
					// to mirroring shipping.
					break
				}
				return nil, nil, fmt.Errorf("failed to get default billing address: %w", err)
			}
			billingAddr = addr
		}
	}

	return shippingAddr, billingAddr, nil
}

// buildOrder assembles the order skeleton with flat address copies. Money
// fields are filled by the caller once the lines are priced.
func (s *checkoutService) buildOrder(userID uuid.UUID, input CheckoutInput, shippingAddr, billingAddr *domain.Address) *domain.Order {
	order := &domain.Order{
		UserID:         userID,
		Status:         domain.OrderStatusPending,
		PaymentStatus:  domain.OrderPaymentPending,
		PaymentMethod:  string(input.PaymentGateway),
		ShippingMethod: input.ShippingMethod,

		ShippingAddressID:   &shippingAddr.ID,
		ShippingContactName: shippingAddr.ContactName,
		ShippingPhone:       shippingAddr.Phone,
		ShippingLine1:       shippingAddr.Line1,
		ShippingLine2:       shippingAddr.Line2,
		ShippingCity:        shippingAddr.City,
		ShippingCounty:      shippingAddr.County,
		ShippingPostalCode:  shippingAddr.PostalCode,

		BillingSameAsShipping: billingAddr.ID == shippingAddr.ID,
		BillingContactName:    billingAddr.ContactName,
		BillingPhone:          billingAddr.Phone,
		BillingLine1:          billingAddr.Line1,
		BillingLine2:          billingAddr.Line2,
		BillingCity:           billingAddr.City,
		BillingCounty:         billingAddr.County,
		BillingPostalCode:     billingAddr.PostalCode,

		CustomerNotes: input.CustomerNotes,
		IsGift:        input.IsGift || input.GiftMessage != "" || input.GiftWrapping,
		GiftMessage:   input.GiftMessage,
		GiftWrapping:  input.GiftWrapping,
	}
	return order
}

// attachPaymentNextStep fills in what the customer does to pay. Card
// gateways redirect to the payment creation endpoint; everything else
// gets rendered instructions keyed on the order number.
func (s *checkoutService) attachPaymentNextStep(ctx context.Context, result *CheckoutResult, gw domain.PaymentGateway) {
	switch gw {
	case domain.GatewayStripe, domain.GatewayPaypal:
		result.PaymentURL = fmt.Sprintf("/api/v1/payments/create?order=%s", result.Order.OrderNumber)
	default:
		if s.gateways == nil {
			return
		}
		pending := &domain.Payment{
			Gateway:          gw,
			PaymentReference: result.Order.OrderNumber,
			AmountCents:      result.Order.TotalCents,
			Status:           domain.PaymentInitiated,
		}
		instructions, err := s.gateways.Instructions(ctx, pending)
		if err != nil {
			return
		}
		// No payment row exists yet, so the rendered account reference is
		// the order number; say so explicitly to keep settlements matchable
		// against the payment created later.
		instructions.Text += ". Quote order number " + result.Order.OrderNumber + " as your payment reference"
		result.PaymentInstructions = instructions
	}
}

// taxParams converts checkout state into the tax calculator's input.
func taxParams(addr *domain.Address, priced []pricedLine, shippingCents int64) tax.TaxParams {
	lineItems := make([]tax.LineItem, len(priced))
	for i, line := range priced {
		var productID uuid.UUID
		if line.item.ProductID != nil {
			productID = *line.item.ProductID
		}
		lineItems[i] = tax.LineItem{
			ProductID:  productID,
			Quantity:   line.item.Quantity,
			UnitPrice:  line.item.UnitPriceCents,
			TotalPrice: line.item.TotalCents,
		}
	}
	return tax.TaxParams{
		ShippingAddress: tax.Address{
			Line1:      addr.Line1,
			Line2:      addr.Line2,
			City:       addr.City,
			County:     addr.County,
			PostalCode: addr.PostalCode,
			Country:    addr.Country,
		},
		LineItems:     lineItems,
		ShippingCents: shippingCents,
	}
}

// checkoutFailureReason buckets checkout errors for the funnel metric.
func checkoutFailureReason(err error) string {
	switch {
	case errors.Is(err, ErrEmptyCart):
		return "empty_cart"
	case errors.Is(err, ErrShippingAddressNotFound),
		errors.Is(err, ErrBillingAddressNotFound),
		errors.Is(err, ErrMissingShippingAddress):
		return "address"
	case errors.Is(err, ErrOrderNumberExhausted):
		return "conflict"
	case domain.ErrorCode(err) == domain.ECONFLICT:
		return "stock"
	case domain.ErrorCode(err) == domain.EINVALID:
		return "validation"
	default:
		return "internal"
	}
}

// notifyOrderCreated dispatches the order confirmation without blocking
// the request.
func (s *checkoutService) notifyOrderCreated(ctx context.Context, order *domain.Order) {
	if s.dispatcher == nil {
		return
	}
	notification := notify.Notification{
		Event:       notify.EventOrderCreated,
		UserID:      order.UserID,
		OrderNumber: order.OrderNumber,
		OrderStatus: string(order.Status),
		AmountCents: order.TotalCents,
	}
	go func(ctx context.Context) {
		_ = s.dispatcher.Dispatch(ctx, notification)
	}(context.WithoutCancel(ctx))
}
