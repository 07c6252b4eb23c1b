// Package routes wires handlers onto the echo router. Registration is
// driven by a Deps struct so main stays a pure assembly line.
package routes

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/sokoni-labs/babyshop/internal/handler"
	"github.com/sokoni-labs/babyshop/internal/middleware"
)

// Deps carries every handler the API needs.
type Deps struct {
	Catalog   *handler.CatalogHandler
	Cart      *handler.CartHandler
	Orders    *handler.OrderHandler
	Payments  *handler.PaymentHandler
	Addresses *handler.AddressHandler

	Metrics *middleware.Metrics
}

// RegisterAPI mounts the versioned JSON API under /api/v1 plus the
// operational endpoints at the root.
func RegisterAPI(e *echo.Echo, deps Deps) {
	e.GET("/health", health)
	if deps.Metrics != nil {
		e.GET("/metrics", echo.WrapHandler(deps.Metrics.Handler()))
	}

	v1 := e.Group("/api/v1")

	// Catalog: public reads.
	v1.GET("/products", deps.Catalog.ListProducts)
	v1.GET("/products/:slug", deps.Catalog.GetProduct)
	v1.GET("/categories", deps.Catalog.ListCategories)
	v1.GET("/brands", deps.Catalog.ListBrands)

	// Payment method catalog: public so the checkout page can render
	// options before sign-in.
	v1.GET("/payment-methods", deps.Payments.ListMethods)

	// Webhooks: authenticated by gateway signature, not user identity.
	v1.POST("/payments/webhook/:gateway", deps.Payments.Webhook)

	// Cart: owner only.
	cart := v1.Group("/cart", middleware.RequireAuth())
	cart.GET("", deps.Cart.Get)
	cart.GET("/summary", deps.Cart.Summary)
	cart.GET("/count", deps.Cart.Count)
	cart.POST("/items/add", deps.Cart.AddItem)
	cart.PATCH("/items/:id", deps.Cart.UpdateItem)
	cart.DELETE("/items/:id", deps.Cart.RemoveItem)
	cart.POST("/items/:id/increase", deps.Cart.IncreaseItem)
	cart.POST("/items/:id/decrease", deps.Cart.DecreaseItem)
	cart.DELETE("/clear", deps.Cart.Clear)

	// Orders: owner only; the status transition endpoint is staff.
	orders := v1.Group("/orders", middleware.RequireAuth())
	orders.POST("/checkout", deps.Orders.Checkout)
	orders.GET("", deps.Orders.List)
	orders.GET("/:number", deps.Orders.Get)
	orders.GET("/:number/tracking", deps.Orders.Tracking)
	orders.POST("/:number/cancel", deps.Orders.Cancel)
	orders.PATCH("/:number/status", deps.Orders.UpdateStatus, middleware.RequireStaff())

	// Payments: owner only; status writes and refunds are staff.
	payments := v1.Group("/payments", middleware.RequireAuth())
	payments.POST("/create", deps.Payments.Create)
	payments.GET("", deps.Payments.List)
	payments.GET("/:reference", deps.Payments.Get)
	payments.GET("/:reference/instructions", deps.Payments.Instructions)
	payments.POST("/:reference/refund", deps.Payments.Refund, middleware.RequireStaff())

	// Addresses: owner only.
	addresses := v1.Group("/addresses", middleware.RequireAuth())
	addresses.GET("", deps.Addresses.List)
	addresses.POST("", deps.Addresses.Create)
	addresses.PUT("/:id", deps.Addresses.Update)
	addresses.DELETE("/:id", deps.Addresses.Delete)
	addresses.POST("/:id/default", deps.Addresses.SetDefault)

	// Admin surface: staff direct writes that bypass the guided machines
	// where the spec allows it.
	admin := v1.Group("/admin", middleware.RequireStaff())
	admin.PUT("/orders/:number", deps.Orders.AdminUpdate)
	admin.PATCH("/orders/:number/payment", deps.Orders.UpdatePayment)
	admin.PATCH("/payments/:reference/status", deps.Payments.UpdateStatus)
}

// health is the liveness probe.
func health(c echo.Context) error {
	return handler.OK(c, http.StatusOK, map[string]string{"status": "ok"})
}
