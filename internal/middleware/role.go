package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/storefront-api/internal/model"
)

// RequireRole returns a middleware that lets the request through only when
// the authenticated user holds one of roles.  It must run after JWTAuth.
func RequireRole(roles ...model.Role) echo.MiddlewareFunc {
	allowed := make(map[model.Role]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u := CurrentUser(c)
			if u == nil || !allowed[u.Role] {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "Not authorized to access this resource"})
			}
			return next(c)
		}
	}
}

// RequireAdmin is RequireRole(model.RoleAdmin).
func RequireAdmin() echo.MiddlewareFunc { return RequireRole(model.RoleAdmin) }
