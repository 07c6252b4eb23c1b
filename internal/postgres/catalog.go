package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/service"
)

const productColumns = `id, name, slug, product_code, description, category_id, brand_id,
	gender, age_range, price_cents, compare_at_price_cents, stock_quantity,
	low_stock_threshold, availability, is_active, is_featured, is_new,
	is_bestseller, image_url, created_at, updated_at`

func scanProduct(row pgx.Row) (*domain.Product, error) {
	var p domain.Product
	err := row.Scan(
		&p.ID, &p.Name, &p.Slug, &p.ProductCode, &p.Description, &p.CategoryID, &p.BrandID,
		&p.Gender, &p.AgeRange, &p.PriceCents, &p.CompareAtPriceCents, &p.StockQuantity,
		&p.LowStockThreshold, &p.Availability, &p.IsActive, &p.IsFeatured, &p.IsNew,
		&p.IsBestseller, &p.ImageURL, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ListProducts returns one page of products matching the filter plus the
// unpaged match count.
func (s *Store) ListProducts(ctx context.Context, filter service.ProductFilter) ([]domain.Product, int64, error) {
	where := []string{"is_active = TRUE"}
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if filter.CategoryID != nil {
		where = append(where, "category_id = "+arg(*filter.CategoryID))
	}
	if filter.BrandID != nil {
		where = append(where, "brand_id = "+arg(*filter.BrandID))
	}
	if filter.Gender != "" {
		where = append(where, "gender = "+arg(string(filter.Gender)))
	}
	if filter.AgeRange != "" {
		where = append(where, "age_range = "+arg(string(filter.AgeRange)))
	}
	if filter.IsFeatured != nil {
		where = append(where, "is_featured = "+arg(*filter.IsFeatured))
	}
	if filter.IsNew != nil {
		where = append(where, "is_new = "+arg(*filter.IsNew))
	}
	if filter.IsBestseller != nil {
		where = append(where, "is_bestseller = "+arg(*filter.IsBestseller))
	}
	if filter.MinPriceCents != nil {
		where = append(where, "price_cents >= "+arg(*filter.MinPriceCents))
	}
	if filter.MaxPriceCents != nil {
		where = append(where, "price_cents <= "+arg(*filter.MaxPriceCents))
	}
	if filter.Search != "" {
		pattern := arg("%" + filter.Search + "%")
		where = append(where, fmt.Sprintf("(name ILIKE %s OR description ILIKE %s)", pattern, pattern))
	}

	whereSQL := strings.Join(where, " AND ")

	var total int64
	if err := s.db.QueryRow(ctx, "SELECT COUNT(*) FROM products WHERE "+whereSQL, args...).Scan(&total); err != nil {
		return nil, 0, domain.Internal(err, "catalog.list_products", "failed to count products")
	}

	query := "SELECT " + productColumns + " FROM products WHERE " + whereSQL +
		" ORDER BY created_at DESC, id LIMIT " + arg(filter.Limit) + " OFFSET " + arg(filter.Offset)
	rows, err := s.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, domain.Internal(err, "catalog.list_products", "failed to list products")
	}
	defer rows.Close()

	var products []domain.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, domain.Internal(err, "catalog.list_products", "failed to scan product")
		}
		products = append(products, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, domain.Internal(err, "catalog.list_products", "failed to read products")
	}

	return products, total, nil
}

// GetProductBySlug returns an active product by its URL slug.
func (s *Store) GetProductBySlug(ctx context.Context, slug string) (*domain.Product, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE slug = $1 AND is_active = TRUE", slug)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProductNotFound
		}
		return nil, domain.Internal(err, "catalog.get_product", "failed to get product by slug")
	}
	return product, nil
}

// GetProductByID returns a product regardless of active flag; callers
// check activity themselves.
func (s *Store) GetProductByID(ctx context.Context, productID uuid.UUID) (*domain.Product, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+productColumns+" FROM products WHERE id = $1", productID)
	product, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrProductNotFound
		}
		return nil, domain.Internal(err, "catalog.get_product", "failed to get product by id")
	}
	return product, nil
}

const variantColumns = `id, product_id, size, color, color_code, variant_code,
	stock_quantity, price_adjustment_cents, is_active, created_at, updated_at`

func scanVariant(row pgx.Row) (*domain.ProductVariant, error) {
	var v domain.ProductVariant
	err := row.Scan(
		&v.ID, &v.ProductID, &v.Size, &v.Color, &v.ColorCode, &v.VariantCode,
		&v.StockQuantity, &v.PriceAdjustmentCents, &v.IsActive, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// ListVariantsByProduct returns the product's active variants.
func (s *Store) ListVariantsByProduct(ctx context.Context, productID uuid.UUID) ([]domain.ProductVariant, error) {
	rows, err := s.db.Query(ctx,
		"SELECT "+variantColumns+" FROM product_variants WHERE product_id = $1 AND is_active = TRUE ORDER BY size, color",
		productID)
	if err != nil {
		return nil, domain.Internal(err, "catalog.list_variants", "failed to list variants")
	}
	defer rows.Close()

	var variants []domain.ProductVariant
	for rows.Next() {
		v, err := scanVariant(rows)
		if err != nil {
			return nil, domain.Internal(err, "catalog.list_variants", "failed to scan variant")
		}
		variants = append(variants, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "catalog.list_variants", "failed to read variants")
	}
	return variants, nil
}

// GetVariantByID returns a variant by id.
func (s *Store) GetVariantByID(ctx context.Context, variantID uuid.UUID) (*domain.ProductVariant, error) {
	row := s.db.QueryRow(ctx,
		"SELECT "+variantColumns+" FROM product_variants WHERE id = $1", variantID)
	variant, err := scanVariant(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, service.ErrVariantNotFound
		}
		return nil, domain.Internal(err, "catalog.get_variant", "failed to get variant by id")
	}
	return variant, nil
}

// ListCategories returns the active categories ordered by name.
func (s *Store) ListCategories(ctx context.Context) ([]domain.Category, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, name, slug, parent_id, is_active, created_at, updated_at FROM categories WHERE is_active = TRUE ORDER BY name")
	if err != nil {
		return nil, domain.Internal(err, "catalog.list_categories", "failed to list categories")
	}
	defer rows.Close()

	var categories []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.ParentID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, domain.Internal(err, "catalog.list_categories", "failed to scan category")
		}
		categories = append(categories, c)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "catalog.list_categories", "failed to read categories")
	}
	return categories, nil
}

// ListBrands returns the active brands ordered by name.
func (s *Store) ListBrands(ctx context.Context) ([]domain.Brand, error) {
	rows, err := s.db.Query(ctx,
		"SELECT id, name, slug, is_active FROM brands WHERE is_active = TRUE ORDER BY name")
	if err != nil {
		return nil, domain.Internal(err, "catalog.list_brands", "failed to list brands")
	}
	defer rows.Close()

	var brands []domain.Brand
	for rows.Next() {
		var b domain.Brand
		if err := rows.Scan(&b.ID, &b.Name, &b.Slug, &b.IsActive); err != nil {
			return nil, domain.Internal(err, "catalog.list_brands", "failed to scan brand")
		}
		brands = append(brands, b)
	}
	if err := rows.Err(); err != nil {
		return nil, domain.Internal(err, "catalog.list_brands", "failed to read brands")
	}
	return brands, nil
}
