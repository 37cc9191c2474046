package handler // handler holds the echo handlers of the storefront API

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/service"
	"github.com/iliyamo/storefront-api/internal/validation"
)

// dbTimeout bounds the database work of a single request.
const dbTimeout = 5 * time.Second

func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

func badRequest(msg string) error {
	return &service.Error{Kind: service.ErrBadRequest, Message: msg}
}

// bind decodes the request body into req and validates it with the
// validator registered on echo.
func bind(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return badRequest("invalid body")
	}
	return c.Validate(req)
}

// writeError maps an error to its HTTP status and writes {"error": msg}.
// Internal failures are logged and answered with a generic message.
func writeError(c echo.Context, err error) error {
	var ve *validation.Error
	if errors.As(err, &ve) {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message})
	}
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrUnauthorized):
		status = http.StatusUnauthorized
		c.Response().Header().Set(echo.HeaderWWWAuthenticate, "Bearer")
	case errors.Is(err, service.ErrForbidden):
		status = http.StatusForbidden
	case errors.Is(err, service.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, service.ErrBadRequest):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		middleware.Logger(c).Error("request failed",
			zap.String("method", c.Request().Method),
			zap.String("route", c.Path()),
			zap.Error(cause(err)))
		return c.JSON(status, echo.Map{"error": "internal server error"})
	}
	return c.JSON(status, echo.Map{"error": err.Error()})
}

// cause returns what an internal service error wraps; its own message is
// the generic one shown to clients.
func cause(err error) error {
	var se *service.Error
	if errors.As(err, &se) && se.Cause != nil {
		return se.Cause
	}
	return err
}

// paramUUID parses the named path parameter.
func paramUUID(c echo.Context, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		return uuid.Nil, badRequest("invalid " + name)
	}
	return id, nil
}

// page reads skip and limit query parameters.  Missing values are 0 and
// left for the service to default.
func page(c echo.Context) (skip, limit int, err error) {
	if s := c.QueryParam("skip"); s != "" {
		if skip, err = strconv.Atoi(s); err != nil || skip < 0 {
			return 0, 0, badRequest("skip must be a non-negative integer")
		}
	}
	if l := c.QueryParam("limit"); l != "" {
		if limit, err = strconv.Atoi(l); err != nil || limit < 1 {
			return 0, 0, badRequest("limit must be a positive integer")
		}
	}
	return skip, limit, nil
}
