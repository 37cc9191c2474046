package middleware

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/model"
)

// CurrentUser returns the user stored by JWTAuth, or nil on public routes.
func CurrentUser(c echo.Context) *model.User {
	u, _ := c.Get(ctxUser).(*model.User)
	return u
}

// Logger returns the request scoped logger set by AccessLog.  Outside of
// it a no-op logger is returned.
func Logger(c echo.Context) *zap.Logger {
	if l, ok := c.Get(ctxLogger).(*zap.Logger); ok {
		return l
	}
	return zap.NewNop()
}

// BearerToken returns the raw token stored by JWTAuth or BearerOnly.
func BearerToken(c echo.Context) string {
	s, _ := c.Get(ctxToken).(string)
	return s
}

// userID identifies the caller for rate limit keys; "anon" when the route
// is public.
func userID(c echo.Context) string {
	if u := CurrentUser(c); u != nil {
		return u.ID.String()
	}
	return "anon"
}
