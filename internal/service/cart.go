package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// CartService provides business logic for shopping cart operations. Every
// operation is scoped to the requesting user; reading a cart creates the
// row when missing so each user always has exactly one cart.
type CartService interface {
	GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error)
	AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartLineResult, error)
	UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int32) (*CartLineResult, error)
	IncreaseQuantity(ctx context.Context, userID, itemID uuid.UUID, by int32) (*CartLineResult, error)
	DecreaseQuantity(ctx context.Context, userID, itemID uuid.UUID, by int32) (*CartLineResult, error)
	RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartSummary, error)
	Clear(ctx context.Context, userID uuid.UUID) error
	Summary(ctx context.Context, userID uuid.UUID) (*domain.CartSummary, error)
	Count(ctx context.Context, userID uuid.UUID) (int32, error)
}

// AddItemInput describes a line to add. Size and color default from the
// variant when one is chosen.
type AddItemInput struct {
	ProductID uuid.UUID
	VariantID *uuid.UUID
	Quantity  int32
	Size      string
	Color     string
}

// CartView is a cart with its lines and recomputed totals.
type CartView struct {
	Cart    domain.Cart
	Items   []domain.CartItem
	Summary domain.CartSummary
}

// CartLineResult reports the line affected by a mutation together with the
// cart totals after the change. Removed is set when the mutation deleted
// the line.
type CartLineResult struct {
	Item    domain.CartItem
	Removed bool
	Summary domain.CartSummary
}

// CartStore is the persistence surface the cart service needs.
type CartStore interface {
	GetCartByUserID(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	CreateCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error)
	TouchCart(ctx context.Context, cartID uuid.UUID) error
	ListCartItems(ctx context.Context, cartID uuid.UUID) ([]domain.CartItem, error)
	GetCartItemByID(ctx context.Context, itemID uuid.UUID) (*domain.CartItem, error)
	FindCartItem(ctx context.Context, cartID, productID uuid.UUID, variantID *uuid.UUID, size, color string) (*domain.CartItem, error)
	InsertCartItem(ctx context.Context, item *domain.CartItem) (*domain.CartItem, error)
	UpdateCartItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int32) (*domain.CartItem, error)
	DeleteCartItem(ctx context.Context, itemID uuid.UUID) error
	ClearCartItems(ctx context.Context, cartID uuid.UUID) error
	GetProductByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error)
	GetVariantByID(ctx context.Context, variantID uuid.UUID) (*domain.ProductVariant, error)
}

type cartService struct {
	store CartStore
}

// NewCartService creates a new CartService instance.
func NewCartService(store CartStore) CartService {
	return &cartService{store: store}
}

// GetCart returns the user's cart with its lines and totals, creating the
// cart row when the user has none yet.
func (s *cartService) GetCart(ctx context.Context, userID uuid.UUID) (*CartView, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	return &CartView{
		Cart:    *cart,
		Items:   items,
		Summary: domain.SummarizeCart(items),
	}, nil
}

// AddItem adds a product to the user's cart. Adding a combination that is
// already in the cart increments the existing line instead of creating a
// duplicate.
func (s *cartService) AddItem(ctx context.Context, userID uuid.UUID, input AddItemInput) (*CartLineResult, error) {
	if input.Quantity <= 0 {
		return nil, ErrInvalidQuantity
	}

	product, err := s.store.GetProductByID(ctx, input.ProductID)
	if err != nil {
		return nil, err
	}
	if !product.IsActive {
		return nil, ErrProductInactive
	}

	size, color := input.Size, input.Color
	if input.VariantID != nil {
		variant, err := s.store.GetVariantByID(ctx, *input.VariantID)
		if err != nil {
			return nil, err
		}
		if variant.ProductID != product.ID || !variant.IsActive {
			return nil, ErrVariantNotFound
		}
		if size == "" {
			size = variant.Size
		}
		if color == "" {
			color = variant.Color
		}
	}

	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	var lineID uuid.UUID
	existing, err := s.store.FindCartItem(ctx, cart.ID, product.ID, input.VariantID, size, color)
	switch {
	case err == nil:
		updated, err := s.store.UpdateCartItemQuantity(ctx, existing.ID, existing.Quantity+input.Quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to update cart item quantity: %w", err)
		}
		lineID = updated.ID
	case errors.Is(err, ErrCartItemNotFound):
		inserted, err := s.store.InsertCartItem(ctx, &domain.CartItem{
			CartID:    cart.ID,
			ProductID: product.ID,
			VariantID: input.VariantID,
			Quantity:  input.Quantity,
			Size:      size,
			Color:     color,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to insert cart item: %w", err)
		}
		lineID = inserted.ID
	default:
		return nil, fmt.Errorf("failed to find cart item: %w", err)
	}

	if err := s.store.TouchCart(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("failed to touch cart: %w", err)
	}

	return s.lineResult(ctx, cart.ID, lineID)
}

// UpdateItemQuantity sets a line's quantity. A quantity of zero or less
// removes the line entirely.
func (s *cartService) UpdateItemQuantity(ctx context.Context, userID, itemID uuid.UUID, quantity int32) (*CartLineResult, error) {
	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if quantity <= 0 {
		if err := s.store.DeleteCartItem(ctx, item.ID); err != nil {
			return nil, fmt.Errorf("failed to delete cart item: %w", err)
		}
		if err := s.store.TouchCart(ctx, cart.ID); err != nil {
			return nil, fmt.Errorf("failed to touch cart: %w", err)
		}

		items, err := s.store.ListCartItems(ctx, cart.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to list cart items: %w", err)
		}
		return &CartLineResult{
			Item:    *item,
			Removed: true,
			Summary: domain.SummarizeCart(items),
		}, nil
	}

	if _, err := s.store.UpdateCartItemQuantity(ctx, item.ID, quantity); err != nil {
		return nil, fmt.Errorf("failed to update cart item quantity: %w", err)
	}
	if err := s.store.TouchCart(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("failed to touch cart: %w", err)
	}

	return s.lineResult(ctx, cart.ID, item.ID)
}

// IncreaseQuantity increments a line's quantity. A non-positive step
// counts as one.
func (s *cartService) IncreaseQuantity(ctx context.Context, userID, itemID uuid.UUID, by int32) (*CartLineResult, error) {
	if by <= 0 {
		by = 1
	}
	return s.adjustQuantity(ctx, userID, itemID, by)
}

// DecreaseQuantity decrements a line's quantity, clamping at one. It never
// removes the line; use UpdateItemQuantity or RemoveItem for that.
func (s *cartService) DecreaseQuantity(ctx context.Context, userID, itemID uuid.UUID, by int32) (*CartLineResult, error) {
	if by <= 0 {
		by = 1
	}
	return s.adjustQuantity(ctx, userID, itemID, -by)
}

func (s *cartService) adjustQuantity(ctx context.Context, userID, itemID uuid.UUID, delta int32) (*CartLineResult, error) {
	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	quantity := item.Quantity + delta
	if quantity < 1 {
		quantity = 1
	}

	if quantity != item.Quantity {
		if _, err := s.store.UpdateCartItemQuantity(ctx, item.ID, quantity); err != nil {
			return nil, fmt.Errorf("failed to update cart item quantity: %w", err)
		}
		if err := s.store.TouchCart(ctx, cart.ID); err != nil {
			return nil, fmt.Errorf("failed to touch cart: %w", err)
		}
	}

	return s.lineResult(ctx, cart.ID, item.ID)
}

// RemoveItem deletes a line from the user's cart.
func (s *cartService) RemoveItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.CartSummary, error) {
	cart, item, err := s.ownedItem(ctx, userID, itemID)
	if err != nil {
		return nil, err
	}

	if err := s.store.DeleteCartItem(ctx, item.ID); err != nil {
		return nil, fmt.Errorf("failed to delete cart item: %w", err)
	}
	if err := s.store.TouchCart(ctx, cart.ID); err != nil {
		return nil, fmt.Errorf("failed to touch cart: %w", err)
	}

	items, err := s.store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	summary := domain.SummarizeCart(items)
	return &summary, nil
}

// Clear deletes every line in the user's cart. The cart row itself stays.
func (s *cartService) Clear(ctx context.Context, userID uuid.UUID) error {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return err
	}

	if err := s.store.ClearCartItems(ctx, cart.ID); err != nil {
		return fmt.Errorf("failed to clear cart items: %w", err)
	}
	if err := s.store.TouchCart(ctx, cart.ID); err != nil {
		return fmt.Errorf("failed to touch cart: %w", err)
	}

	return nil
}

// Summary returns the cart totals without the line detail.
func (s *cartService) Summary(ctx context.Context, userID uuid.UUID) (*domain.CartSummary, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, err
	}

	items, err := s.store.ListCartItems(ctx, cart.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	summary := domain.SummarizeCart(items)
	return &summary, nil
}

// Count returns the total quantity across all lines.
func (s *cartService) Count(ctx context.Context, userID uuid.UUID) (int32, error) {
	summary, err := s.Summary(ctx, userID)
	if err != nil {
		return 0, err
	}
	return summary.TotalItems, nil
}

// getOrCreateCart fetches the user's cart, creating the row on first use.
func (s *cartService) getOrCreateCart(ctx context.Context, userID uuid.UUID) (*domain.Cart, error) {
	cart, err := s.store.GetCartByUserID(ctx, userID)
	if err == nil {
		return cart, nil
	}
	if !errors.Is(err, ErrCartNotFound) {
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	cart, err = s.store.CreateCart(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to create cart: %w", err)
	}
	return cart, nil
}

// ownedItem loads a cart line and verifies it belongs to the user's cart.
// Lines in other users' carts are reported as not found.
func (s *cartService) ownedItem(ctx context.Context, userID, itemID uuid.UUID) (*domain.Cart, *domain.CartItem, error) {
	cart, err := s.getOrCreateCart(ctx, userID)
	if err != nil {
		return nil, nil, err
	}

	item, err := s.store.GetCartItemByID(ctx, itemID)
	if err != nil {
		return nil, nil, err
	}
	if item.CartID != cart.ID {
		return nil, nil, ErrCartItemNotFound
	}

	return cart, item, nil
}

// lineResult re-reads the cart and returns the named line with fresh
// totals. The re-read picks up the resolved product fields and unit price.
func (s *cartService) lineResult(ctx context.Context, cartID, itemID uuid.UUID) (*CartLineResult, error) {
	items, err := s.store.ListCartItems(ctx, cartID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cart items: %w", err)
	}

	result := &CartLineResult{Summary: domain.SummarizeCart(items)}
	for _, item := range items {
		if item.ID == itemID {
			result.Item = item
			return result, nil
		}
	}
	return nil, ErrCartItemNotFound
}
