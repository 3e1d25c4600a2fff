package routes

import (
	"time"

	"github.com/Madhav-Gupta-28/islamic-library-backend-go/handlers"
	customMiddleware "github.com/Madhav-Gupta-28/islamic-library-backend-go/middleware"
	"github.com/labstack/echo/v4"
)

// Options carries what the router needs besides the handlers.
type Options struct {
	JWTSecret      string
	Users          customMiddleware.UserFinder
	Metrics        *customMiddleware.Metrics
	RateLimit      int
	RateLimitEvery time.Duration
}

func SetupRoutes(e *echo.Echo, h *handlers.Handler, opts Options) {
	e.GET("/health", h.Health)
	if opts.Metrics != nil {
		e.GET("/metrics", opts.Metrics.Handler())
	}

	api := e.Group("/api")
	if opts.RateLimit > 0 {
		api.Use(customMiddleware.RateLimit(opts.RateLimit, opts.RateLimitEvery))
	}

	protect := customMiddleware.Protect(opts.JWTSecret, opts.Users)
	admin := customMiddleware.Admin

	// Product routes; the fixed paths must come before /:id
	products := api.Group("/products")
	products.GET("", h.GetProducts)
	products.GET("/filters", h.GetFilterValues)
	products.GET("/top", h.GetTopProducts)
	products.GET("/:id", h.GetProduct)
	products.POST("", h.CreateProduct, protect, admin)
	products.PUT("/:id", h.UpdateProduct, protect, admin)
	products.DELETE("/:id", h.DeleteProduct, protect, admin)
	products.POST("/:id/reviews", h.CreateReview, protect)
	products.DELETE("/:id/reviews/:reviewId", h.DeleteReview, protect, admin)

	// Gateway callbacks carry no token
	orders := api.Group("/orders")
	orders.POST("/payment/success/:id", h.PaymentSuccess)
	orders.POST("/payment/fail/:id", h.PaymentFail)
	orders.POST("/payment/cancel/:id", h.PaymentCancel)
	orders.POST("/payment/ipn", h.PaymentIPN)

	orders.POST("", h.AddOrderItems, protect)
	orders.GET("", h.GetOrders, protect, admin)
	orders.GET("/myorders", h.GetMyOrders, protect)
	orders.GET("/:id", h.GetOrderByID, protect)
	orders.POST("/:id/pay", h.InitiatePayment, protect)
	orders.PUT("/:id/deliver", h.UpdateOrderToDelivered, protect, admin)

	// User routes
	users := api.Group("/users")
	users.POST("", h.RegisterUser)
	users.POST("/login", h.LoginUser)
	users.GET("/profile", h.GetUserProfile, protect)
	users.PUT("/profile", h.UpdateUserProfile, protect)
	users.GET("", h.GetUsers, protect, admin)
	users.GET("/:id", h.GetUserByID, protect, admin)
	users.PUT("/:id", h.UpdateUser, protect, admin)
	users.DELETE("/:id", h.DeleteUser, protect, admin)

	// Cart routes
	cart := api.Group("/cart", protect)
	cart.GET("", h.GetCart)
	cart.POST("", h.AddToCart)
	cart.PUT("/quantity", h.UpdateCartItemQuantity)
	cart.DELETE("/:productId", h.RemoveFromCart)
}
