// Package router maps URL paths to handlers and attaches the auth,
// role and rate limit middleware each group needs.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/middleware"
)

// Handlers bundles everything the router wires.
type Handlers struct {
	Auth     *handler.AuthHandler
	Users    *handler.UserHandler
	Products *handler.ProductHandler
	Orders   *handler.OrderHandler
	Contact  *handler.ContactHandler
	DB       handler.Pinger
}

// Register mounts /healthz and the /api tree on e.  authn verifies bearer
// tokens; limit guards the credential endpoints.
func Register(e *echo.Echo, h Handlers, authn middleware.Authenticator, limit echo.MiddlewareFunc) {
	e.GET("/healthz", handler.Health(h.DB))

	api := e.Group("/api")
	jwt := middleware.JWTAuth(authn)
	admin := middleware.RequireAdmin()

	registerAuth(api, h.Auth, jwt, limit)
	registerUsers(api, h.Users, jwt, admin)
	registerProducts(api, h.Products, jwt, admin)
	registerOrders(api, h.Orders, jwt, admin)
	registerContact(api, h.Contact, jwt, admin)
}

func registerAuth(api *echo.Group, a *handler.AuthHandler, jwt, limit echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", a.Register, limit)
	g.POST("/login", a.Login, limit)
	g.POST("/refresh", a.Refresh, limit)
	g.POST("/logout", a.Logout, middleware.BearerOnly())
	g.POST("/change-password", a.ChangePassword, jwt)
}

// Self-or-admin checks happen in the account service.
func registerUsers(api *echo.Group, u *handler.UserHandler, jwt, admin echo.MiddlewareFunc) {
	g := api.Group("/users", jwt)
	g.GET("/me", u.Me)
	g.GET("/all-users", u.List, admin)
	g.GET("/profile/:user_id", u.Profile)
	g.PUT("/update-user/:user_id", u.Update)
	g.DELETE("/delete-user/:user_id", u.Delete)
}

func registerProducts(api *echo.Group, p *handler.ProductHandler, jwt, admin echo.MiddlewareFunc) {
	g := api.Group("/products")
	g.GET("", p.List)
	g.GET("/:id", p.Get)
	g.POST("", p.Create, jwt, admin)
	g.PUT("/:id", p.Update, jwt, admin)
	g.DELETE("/:id", p.Delete, jwt, admin)
}

func registerOrders(api *echo.Group, o *handler.OrderHandler, jwt, admin echo.MiddlewareFunc) {
	g := api.Group("/orders", jwt)
	g.POST("/place-order", o.PlaceOrder)
	g.GET("/user/:user_id", o.ListForUser)

	g.GET("", o.List, admin)
	g.GET("/product/:product_id", o.ListForProduct, admin)
	g.GET("/:id", o.Get, admin)
	g.PUT("/:id", o.UpdateStatus, admin)
	g.DELETE("/:id", o.Delete, admin)
}

func registerContact(api *echo.Group, h *handler.ContactHandler, jwt, admin echo.MiddlewareFunc) {
	g := api.Group("/contact")
	g.POST("", h.Create)
	g.GET("", h.List, jwt, admin)
	g.GET("/:id", h.Get, jwt, admin)
}
