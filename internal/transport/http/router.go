package httpserver

import (
	"github.com/labstack/echo/v4"

	"storefront/internal/auth"
	"storefront/internal/handlers"
)

type Deps struct {
	AuthHandler    *handlers.AuthHandler
	ProductHandler *handlers.ProductHandler
	ReviewHandler  *handlers.ReviewHandler
	CartHandler    *handlers.CartHandler
	Tokens         *auth.TokenService
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(200) })
	e.GET("/health/ready", func(c echo.Context) error { return c.NoContent(200) })

	v1 := e.Group("/api/v1")

	v1.POST("/register", d.AuthHandler.Register)
	v1.POST("/login", d.AuthHandler.Login)
	v1.POST("/logout", d.AuthHandler.Logout)

	products := v1.Group("/products")
	products.GET("", d.ProductHandler.GetProducts)
	products.GET("/:id", d.ProductHandler.GetProduct)
	products.GET("/:id/reviews", d.ReviewHandler.ListReviews)
	products.POST("/:id/reviews", d.ReviewHandler.CreateReview, d.Tokens.RequireUser)

	admin := v1.Group("/admin", d.Tokens.RequireAdmin)
	admin.POST("/products", d.ProductHandler.CreateProduct)
	admin.PATCH("/products/:id", d.ProductHandler.PatchProduct)
	admin.DELETE("/products/:id", d.ProductHandler.DeleteProduct)

	cart := v1.Group("/cart", d.Tokens.RequireUser)
	cart.GET("", d.CartHandler.GetCart)
	cart.POST("", d.CartHandler.AddToCart)
	cart.PATCH("/:productID", d.CartHandler.UpdateQuantity)
	cart.DELETE("/:productID", d.CartHandler.RemoveFromCart)
	cart.DELETE("", d.CartHandler.ClearCart)

	v1.POST("/checkout", d.CartHandler.Checkout, d.Tokens.RequireUser)
}
