package middleware

import (
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// AccessLog logs one line per request.  Server errors are logged at error
// level, client errors at warn and everything else at info.  Handlers get
// a logger tagged with the request id through Logger.
func AccessLog(log *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			c.Set(ctxLogger, log.With(zap.String("request_id", requestID(c))))
			err := next(c)
			if err != nil {
				// let echo's error handler write the response so status is known
				c.Error(err)
			}
			res := c.Response()
			lvl := zapcore.InfoLevel
			switch {
			case res.Status >= 500:
				lvl = zapcore.ErrorLevel
			case res.Status >= 400:
				lvl = zapcore.WarnLevel
			}
			fields := []zap.Field{
				zap.String("method", c.Request().Method),
				zap.String("path", c.Request().URL.Path),
				zap.String("route", c.Path()),
				zap.Int("status", res.Status),
				zap.Int64("size", res.Size),
				zap.Float64("duration_ms", float64(time.Since(start).Microseconds())/1000.0),
				zap.String("remote", c.RealIP()),
				zap.String("request_id", requestID(c)),
			}
			if err != nil {
				fields = append(fields, zap.Error(err))
			}
			if ce := log.Check(lvl, "http request"); ce != nil {
				ce.Write(fields...)
			}
			return nil
		}
	}
}

func requestID(c echo.Context) string {
	if id := c.Response().Header().Get(echo.HeaderXRequestID); id != "" {
		return id
	}
	return c.Request().Header.Get(echo.HeaderXRequestID)
}
