package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/sokoni-labs/babyshop/internal/domain"
	"github.com/sokoni-labs/babyshop/internal/service"
)

// CatalogHandler serves the read-only product catalog.
type CatalogHandler struct {
	catalog service.CatalogService
}

// NewCatalogHandler creates a new CatalogHandler.
func NewCatalogHandler(catalog service.CatalogService) *CatalogHandler {
	return &CatalogHandler{catalog: catalog}
}

type productResponse struct {
	ID                  uuid.UUID  `json:"id"`
	Name                string     `json:"name"`
	Slug                string     `json:"slug"`
	ProductCode         string     `json:"product_code,omitempty"`
	Description         string     `json:"description,omitempty"`
	CategoryID          *uuid.UUID `json:"category_id,omitempty"`
	BrandID             *uuid.UUID `json:"brand_id,omitempty"`
	Gender              string     `json:"gender"`
	AgeRange            string     `json:"age_range"`
	PriceCents          int64      `json:"price_cents"`
	CompareAtPriceCents *int64     `json:"compare_at_price_cents,omitempty"`
	DiscountPercent     int32      `json:"discount_percent,omitempty"`
	Availability        string     `json:"availability"`
	IsFeatured          bool       `json:"is_featured,omitempty"`
	IsNew               bool       `json:"is_new,omitempty"`
	IsBestseller        bool       `json:"is_bestseller,omitempty"`
	GiftSuitable        bool       `json:"gift_suitable,omitempty"`
	ImageURL            string     `json:"image_url,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
}

type variantResponse struct {
	ID                uuid.UUID `json:"id"`
	Size              string    `json:"size"`
	Color             string    `json:"color"`
	ColorCode         string    `json:"color_code,omitempty"`
	VariantCode       string    `json:"variant_code"`
	StockQuantity     int32     `json:"stock_quantity"`
	CurrentPriceCents int64     `json:"current_price_cents"`
}

type productListResponse struct {
	Products []productResponse `json:"products"`
	Total    int64             `json:"total"`
	Limit    int32             `json:"limit"`
	Offset   int32             `json:"offset"`
}

type productDetailResponse struct {
	Product  productResponse   `json:"product"`
	Variants []variantResponse `json:"variants"`
}

type categoryResponse struct {
	ID       uuid.UUID  `json:"id"`
	Name     string     `json:"name"`
	Slug     string     `json:"slug"`
	ParentID *uuid.UUID `json:"parent_id,omitempty"`
}

type brandResponse struct {
	ID   uuid.UUID `json:"id"`
	Name string    `json:"name"`
	Slug string    `json:"slug"`
}

// ListProducts returns active products matching the query filters.
func (h *CatalogHandler) ListProducts(c echo.Context) error {
	filter, err := productFilter(c)
	if err != nil {
		return err
	}

	list, err := h.catalog.ListProducts(c.Request().Context(), filter)
	if err != nil {
		return err
	}

	resp := productListResponse{
		Products: make([]productResponse, len(list.Products)),
		Total:    list.Total,
		Limit:    list.Limit,
		Offset:   list.Offset,
	}
	for i, product := range list.Products {
		resp.Products[i] = productJSON(product)
	}
	return OK(c, http.StatusOK, resp)
}

// GetProduct returns a product with its active variants.
func (h *CatalogHandler) GetProduct(c echo.Context) error {
	detail, err := h.catalog.GetProductBySlug(c.Request().Context(), c.Param("slug"))
	if err != nil {
		return err
	}

	resp := productDetailResponse{
		Product:  productJSON(detail.Product),
		Variants: make([]variantResponse, len(detail.Variants)),
	}
	for i, variant := range detail.Variants {
		resp.Variants[i] = variantResponse{
			ID:                variant.ID,
			Size:              variant.Size,
			Color:             variant.Color,
			ColorCode:         variant.ColorCode,
			VariantCode:       variant.VariantCode,
			StockQuantity:     variant.StockQuantity,
			CurrentPriceCents: variant.CurrentPriceCents(detail.Product.PriceCents),
		}
	}
	return OK(c, http.StatusOK, resp)
}

// ListCategories returns the active categories.
func (h *CatalogHandler) ListCategories(c echo.Context) error {
	categories, err := h.catalog.ListCategories(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]categoryResponse, len(categories))
	for i, category := range categories {
		resp[i] = categoryResponse{
			ID:       category.ID,
			Name:     category.Name,
			Slug:     category.Slug,
			ParentID: category.ParentID,
		}
	}
	return OK(c, http.StatusOK, resp)
}

// ListBrands returns the active brands.
func (h *CatalogHandler) ListBrands(c echo.Context) error {
	brands, err := h.catalog.ListBrands(c.Request().Context())
	if err != nil {
		return err
	}

	resp := make([]brandResponse, len(brands))
	for i, brand := range brands {
		resp[i] = brandResponse{ID: brand.ID, Name: brand.Name, Slug: brand.Slug}
	}
	return OK(c, http.StatusOK, resp)
}

// productFilter builds the service filter from query parameters.
func productFilter(c echo.Context) (service.ProductFilter, error) {
	filter := service.ProductFilter{
		Gender:   domain.Gender(c.QueryParam("gender")),
		AgeRange: domain.AgeRange(c.QueryParam("age_range")),
		Search:   c.QueryParam("search"),
	}
	filter.Limit, filter.Offset = pageParams(c)

	if raw := c.QueryParam("category_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, domain.Invalid("handler.catalog", "category_id must be a valid UUID")
		}
		filter.CategoryID = &id
	}
	if raw := c.QueryParam("brand_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return filter, domain.Invalid("handler.catalog", "brand_id must be a valid UUID")
		}
		filter.BrandID = &id
	}

	if v, ok, err := boolParam(c, "is_featured"); err != nil {
		return filter, err
	} else if ok {
		filter.IsFeatured = &v
	}
	if v, ok, err := boolParam(c, "is_new"); err != nil {
		return filter, err
	} else if ok {
		filter.IsNew = &v
	}
	if v, ok, err := boolParam(c, "is_bestseller"); err != nil {
		return filter, err
	} else if ok {
		filter.IsBestseller = &v
	}

	if v, ok, err := int64Param(c, "min_price_cents"); err != nil {
		return filter, err
	} else if ok {
		filter.MinPriceCents = &v
	}
	if v, ok, err := int64Param(c, "max_price_cents"); err != nil {
		return filter, err
	} else if ok {
		filter.MaxPriceCents = &v
	}

	return filter, nil
}

func boolParam(c echo.Context, name string) (value, set bool, err error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return false, false, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, false, domain.Invalid("handler.catalog", name+" must be true or false")
	}
	return v, true, nil
}

func int64Param(c echo.Context, name string) (value int64, set bool, err error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, false, nil
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		return 0, false, domain.Invalid("handler.catalog", name+" must be a non-negative integer")
	}
	return v, true, nil
}

func productJSON(p domain.Product) productResponse {
	return productResponse{
		ID:                  p.ID,
		Name:                p.Name,
		Slug:                p.Slug,
		ProductCode:         p.ProductCode,
		Description:         p.Description,
		CategoryID:          p.CategoryID,
		BrandID:             p.BrandID,
		Gender:              string(p.Gender),
		AgeRange:            string(p.AgeRange),
		PriceCents:          p.PriceCents,
		CompareAtPriceCents: p.CompareAtPriceCents,
		DiscountPercent:     p.DiscountPercent(),
		Availability:        string(p.Availability),
		IsFeatured:          p.IsFeatured,
		IsNew:               p.IsNew,
		IsBestseller:        p.IsBestseller,
		GiftSuitable:        p.IsGiftSuitable(),
		ImageURL:            p.ImageURL,
		CreatedAt:           p.CreatedAt,
	}
}
