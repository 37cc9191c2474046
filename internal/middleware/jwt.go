package middleware // middleware holds the echo middleware shared by the route groups

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/service"
)

// Context keys set by JWTAuth, BearerOnly and AccessLog.
const (
	ctxUser   = "user"
	ctxToken  = "token"
	ctxLogger = "logger"
)

// Authenticator resolves a raw bearer token to its user.
// *service.AuthService implements it.
type Authenticator interface {
	Authenticate(ctx context.Context, raw string) (*model.User, error)
}

// JWTAuth returns an Echo middleware that validates a Bearer access token
// (signature, expiry and blacklist), loads the active user it names and
// stores both in the request context.  Handlers read them with CurrentUser
// and BearerToken.
func JWTAuth(auth Authenticator) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerFrom(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authenticated"})
			}
			u, err := auth.Authenticate(c.Request().Context(), raw)
			if err != nil {
				if errors.Is(err, service.ErrInternal) {
					var se *service.Error
					if errors.As(err, &se) && se.Cause != nil {
						err = se.Cause
					}
					Logger(c).Error("authenticate", zap.Error(err))
					return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal server error"})
				}
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": err.Error()})
			}
			c.Set(ctxUser, u)
			c.Set(ctxToken, raw)
			return next(c)
		}
	}
}

// BearerOnly stores the raw bearer token without verifying it.  Only a
// missing header is rejected; logout relies on this to revoke expired or
// malformed tokens.
func BearerOnly() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearerFrom(c.Request().Header.Get(echo.HeaderAuthorization))
			if !ok {
				c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Not authenticated"})
			}
			c.Set(ctxToken, raw)
			return next(c)
		}
	}
}

// bearerFrom extracts the token from an Authorization header value.  The
// scheme is matched case-insensitively.
func bearerFrom(h string) (string, bool) {
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	raw := strings.TrimSpace(h[len(prefix):])
	return raw, raw != ""
}
