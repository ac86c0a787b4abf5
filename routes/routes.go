package routes

import (
	"net/http"

	"storefront-service/controllers"
	"storefront-service/middleware"
	"storefront-service/services"

	"github.com/gin-gonic/gin"
)

// Handlers is everything the router needs.
type Handlers struct {
	Orders        *controllers.OrderController
	Catalog       *controllers.CatalogController
	Notifications *controllers.NotificationController
	Auth          *middleware.Auth
	// OrderLimiter guards order placement; nil disables it.
	OrderLimiter *middleware.RateLimiter
	// ResponseCache wraps public catalog reads; nil disables it.
	ResponseCache gin.HandlerFunc
}

func Register(r *gin.Engine, h Handlers) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK", "service": "storefront-service"})
	})

	catalog := r.Group("/")
	if h.ResponseCache != nil {
		catalog.Use(h.ResponseCache)
	}
	catalog.GET("/categories", h.Catalog.ListCategories)
	catalog.GET("/categories/:id", h.Catalog.GetCategory)
	catalog.GET("/categories/:id/products", h.Catalog.ListCategoryProducts)
	catalog.GET("/products/:id", h.Catalog.GetProduct)

	r.POST("/cart/validate", h.Orders.ValidateCart)

	place := []gin.HandlerFunc{h.Auth.Optional()}
	if h.OrderLimiter != nil {
		place = append(place, middleware.RateLimit(h.OrderLimiter))
	}
	r.POST("/orders", append(place, h.Orders.CreateOrder)...)
	r.GET("/orders/track/:orderNumber", h.Orders.TrackOrder)

	me := r.Group("/me", h.Auth.Required())
	me.GET("/orders", h.Orders.MyOrders)
	me.POST("/orders/:orderNumber/cancel", h.Orders.CancelMyOrder)

	admin := r.Group("/admin", h.Auth.Required(), middleware.RequireRole(services.RoleAdmin))
	admin.GET("/orders", h.Orders.ListOrders)
	admin.GET("/orders/:id", h.Orders.GetOrder)
	admin.GET("/orders/:id/history", h.Orders.GetOrderHistory)
	admin.PATCH("/orders/:id/status", h.Orders.UpdateStatus)
	admin.GET("/notifications", h.Notifications.GetNotificationLogs)

	admin.POST("/categories", h.Catalog.CreateCategory)
	admin.DELETE("/categories/:id", h.Catalog.DeleteCategory)

	admin.POST("/products", h.Catalog.CreateProduct)
	admin.PATCH("/products/:id", h.Catalog.UpdateProduct)
	admin.PUT("/products/:id/stock", h.Catalog.SetProductStock)
	admin.DELETE("/products/:id", h.Catalog.DeleteProduct)
	admin.POST("/products/:id/variants", h.Catalog.CreateVariant)

	admin.PATCH("/variants/:id", h.Catalog.UpdateVariant)
	admin.PUT("/variants/:id/stock", h.Catalog.SetVariantStock)
	admin.DELETE("/variants/:id", h.Catalog.DeleteVariant)
}
