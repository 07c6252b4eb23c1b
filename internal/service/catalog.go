package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// CatalogService provides read access to products, categories and brands.
// Only active records are ever returned; inactive rows are invisible to
// the storefront.
type CatalogService interface {
	ListProducts(ctx context.Context, filter ProductFilter) (*ProductList, error)
	GetProductBySlug(ctx context.Context, slug string) (*ProductDetail, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListBrands(ctx context.Context) ([]domain.Brand, error)
}

// ProductFilter narrows a product listing. Nil pointer fields are not
// applied. Search matches name, description and product code.
type ProductFilter struct {
	CategoryID    *uuid.UUID
	BrandID       *uuid.UUID
	Gender        domain.Gender
	AgeRange      domain.AgeRange
	IsFeatured    *bool
	IsNew         *bool
	IsBestseller  *bool
	MinPriceCents *int64
	MaxPriceCents *int64
	Search        string
	Limit         int32
	Offset        int32
}

// ProductList is a page of products with the unfiltered total for
// pagination.
type ProductList struct {
	Products []domain.Product
	Total    int64
	Limit    int32
	Offset   int32
}

// ProductDetail is a product with its active variants.
type ProductDetail struct {
	Product  domain.Product
	Variants []domain.ProductVariant
}

// CatalogStore is the persistence surface the catalog service needs.
type CatalogStore interface {
	ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error)
	GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error)
	ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductVariant, error)
	ListCategories(ctx context.Context) ([]domain.Category, error)
	ListBrands(ctx context.Context) ([]domain.Brand, error)
}

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type catalogService struct {
	store CatalogStore
}

// NewCatalogService creates a new CatalogService instance.
func NewCatalogService(store CatalogStore) CatalogService {
	return &catalogService{store: store}
}

// ListProducts returns active products matching the filter, newest first.
func (s *catalogService) ListProducts(ctx context.Context, filter ProductFilter) (*ProductList, error) {
	if filter.Gender != "" && !filter.Gender.Valid() {
		return nil, domain.Invalid("catalog.list_products", fmt.Sprintf("invalid gender %q", filter.Gender))
	}
	if filter.AgeRange != "" && !filter.AgeRange.Valid() {
		return nil, domain.Invalid("catalog.list_products", fmt.Sprintf("invalid age range %q", filter.AgeRange))
	}

	if filter.Limit <= 0 {
		filter.Limit = defaultPageSize
	}
	if filter.Limit > maxPageSize {
		filter.Limit = maxPageSize
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	products, total, err := s.store.ListProducts(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}

	return &ProductList{
		Products: products,
		Total:    total,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}, nil
}

// GetProductBySlug returns an active product and its active variants.
func (s *catalogService) GetProductBySlug(ctx context.Context, slug string) (*ProductDetail, error) {
	product, err := s.store.GetProductBySlug(ctx, slug)
	if err != nil {
		return nil, err
	}

	variants, err := s.store.ListVariantsByProduct(ctx, product.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to list product variants: %w", err)
	}

	return &ProductDetail{
		Product:  *product,
		Variants: variants,
	}, nil
}

// ListCategories returns all active categories ordered by name.
func (s *catalogService) ListCategories(ctx context.Context) ([]domain.Category, error) {
	categories, err := s.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}

// ListBrands returns all active brands ordered by name.
func (s *catalogService) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	brands, err := s.store.ListBrands(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list brands: %w", err)
	}
	return brands, nil
}
