package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/sokoni-labs/babyshop/internal/domain"
)

// mockCatalogStore implements CatalogStore for testing
type mockCatalogStore struct {
	ListProductsFunc          func(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error)
	GetProductBySlugFunc      func(ctx context.Context, slug string) (*domain.Product, error)
	ListVariantsByProductFunc func(ctx context.Context, productID uuid.UUID) ([]domain.ProductVariant, error)
	ListCategoriesFunc        func(ctx context.Context) ([]domain.Category, error)
	ListBrandsFunc            func(ctx context.Context) ([]domain.Brand, error)
}

func (m *mockCatalogStore) ListProducts(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error) {
	if m.ListProductsFunc != nil {
		return m.ListProductsFunc(ctx, filter)
	}
	return nil, 0, nil
}

func (m *mockCatalogStore) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	if m.GetProductBySlugFunc != nil {
		return m.GetProductBySlugFunc(ctx, slug)
	}
	return nil, ErrProductNotFound
}

func (m *mockCatalogStore) ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductVariant, error) {
	if m.ListVariantsByProductFunc != nil {
		return m.ListVariantsByProductFunc(ctx, productID)
	}
	return nil, nil
}

func (m *mockCatalogStore) ListCategories(ctx context.Context) ([]domain.Category, error) {
	if m.ListCategoriesFunc != nil {
		return m.ListCategoriesFunc(ctx)
	}
	return nil, nil
}

func (m *mockCatalogStore) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	if m.ListBrandsFunc != nil {
		return m.ListBrandsFunc(ctx)
	}
	return nil, nil
}

func TestCatalogService_ListProducts_DefaultsPagination(t *testing.T) {
	ctx := context.Background()

	var applied ProductFilter
	store := &mockCatalogStore{
		ListProductsFunc: func(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error) {
			applied = filter
			return []domain.Product{*makeTestProduct(uuid.New())}, 1, nil
		},
	}
	svc := NewCatalogService(store)

	list, err := svc.ListProducts(ctx, ProductFilter{})
	if err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}

	if applied.Limit != 20 {
		t.Errorf("Expected default limit 20, got %d", applied.Limit)
	}
	if applied.Offset != 0 {
		t.Errorf("Expected offset 0, got %d", applied.Offset)
	}
	if list.Total != 1 {
		t.Errorf("Expected total 1, got %d", list.Total)
	}
	if list.Limit != 20 {
		t.Errorf("Expected reported limit 20, got %d", list.Limit)
	}
}

func TestCatalogService_ListProducts_CapsPageSize(t *testing.T) {
	ctx := context.Background()

	var applied ProductFilter
	store := &mockCatalogStore{
		ListProductsFunc: func(ctx context.Context, filter ProductFilter) ([]domain.Product, int64, error) {
			applied = filter
			return nil, 0, nil
		},
	}
	svc := NewCatalogService(store)

	if _, err := svc.ListProducts(ctx, ProductFilter{Limit: 500, Offset: -3}); err != nil {
		t.Fatalf("ListProducts failed: %v", err)
	}

	if applied.Limit != 100 {
		t.Errorf("Expected limit capped at 100, got %d", applied.Limit)
	}
	if applied.Offset != 0 {
		t.Errorf("Expected negative offset reset to 0, got %d", applied.Offset)
	}
}

func TestCatalogService_ListProducts_RejectsUnknownEnums(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(&mockCatalogStore{})

	_, err := svc.ListProducts(ctx, ProductFilter{Gender: "aliens"})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("Expected EINVALID for unknown gender, got %v", err)
	}

	_, err = svc.ListProducts(ctx, ProductFilter{AgeRange: "30-40y"})
	if domain.ErrorCode(err) != domain.EINVALID {
		t.Errorf("Expected EINVALID for unknown age range, got %v", err)
	}
}

func TestCatalogService_GetProductBySlug_ReturnsVariants(t *testing.T) {
	ctx := context.Background()
	productID := uuid.New()

	store := &mockCatalogStore{
		GetProductBySlugFunc: func(ctx context.Context, slug string) (*domain.Product, error) {
			if slug != "organic-cotton-onesie" {
				t.Errorf("Expected lookup by slug, got %q", slug)
			}
			return makeTestProduct(productID), nil
		},
		ListVariantsByProductFunc: func(ctx context.Context, id uuid.UUID) ([]domain.ProductVariant, error) {
			if id != productID {
				t.Errorf("Expected variants of %s, got %s", productID, id)
			}
			return []domain.ProductVariant{
				{ID: uuid.New(), ProductID: id, Size: "0-3m", Color: "White", IsActive: true},
				{ID: uuid.New(), ProductID: id, Size: "3-6m", Color: "White", IsActive: true},
			}, nil
		},
	}
	svc := NewCatalogService(store)

	detail, err := svc.GetProductBySlug(ctx, "organic-cotton-onesie")
	if err != nil {
		t.Fatalf("GetProductBySlug failed: %v", err)
	}
	if detail.Product.ID != productID {
		t.Errorf("Expected product %s, got %s", productID, detail.Product.ID)
	}
	if len(detail.Variants) != 2 {
		t.Errorf("Expected 2 variants, got %d", len(detail.Variants))
	}
}

func TestCatalogService_GetProductBySlug_NotFound(t *testing.T) {
	ctx := context.Background()
	svc := NewCatalogService(&mockCatalogStore{})

	_, err := svc.GetProductBySlug(ctx, "missing-product")
	if !errors.Is(err, ErrProductNotFound) {
		t.Errorf("Expected ErrProductNotFound, got %v", err)
	}
}

func TestCatalogService_ListCategoriesAndBrands(t *testing.T) {
	ctx := context.Background()

	store := &mockCatalogStore{
		ListCategoriesFunc: func(ctx context.Context) ([]domain.Category, error) {
			return []domain.Category{{ID: uuid.New(), Name: "Clothing", Slug: "clothing", IsActive: true}}, nil
		},
		ListBrandsFunc: func(ctx context.Context) ([]domain.Brand, error) {
			return []domain.Brand{{ID: uuid.New(), Name: "Little Sprout", Slug: "little-sprout", IsActive: true}}, nil
		},
	}
	svc := NewCatalogService(store)

	categories, err := svc.ListCategories(ctx)
	if err != nil {
		t.Fatalf("ListCategories failed: %v", err)
	}
	if len(categories) != 1 || categories[0].Slug != "clothing" {
		t.Errorf("Unexpected categories: %+v", categories)
	}

	brands, err := svc.ListBrands(ctx)
	if err != nil {
		t.Fatalf("ListBrands failed: %v", err)
	}
	if len(brands) != 1 || brands[0].Slug != "little-sprout" {
		t.Errorf("Unexpected brands: %+v", brands)
	}
}
