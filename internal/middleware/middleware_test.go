package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/model"
	"github.com/iliyamo/storefront-api/internal/service"
)

type stubAuth map[string]*model.User

func (s stubAuth) Authenticate(_ context.Context, raw string) (*model.User, error) {
	switch raw {
	case "revoked":
		return nil, &service.Error{Kind: service.ErrUnauthorized, Message: "Token has been invalidated"}
	case "db-down":
		return nil, &service.Error{Kind: service.ErrInternal, Message: "internal server error", Cause: errors.New("dial tcp")}
	}
	if u, ok := s[raw]; ok {
		return u, nil
	}
	return nil, &service.Error{Kind: service.ErrUnauthorized, Message: "Could not validate credentials"}
}

func serve(e *echo.Echo, method, path, auth string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set(echo.HeaderAuthorization, auth)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestJWTAuthAndRoles(t *testing.T) {
	admin := &model.User{ID: uuid.New(), Email: "admin@example.com", Role: model.RoleAdmin, IsActive: true}
	user := &model.User{ID: uuid.New(), Email: "user@example.com", Role: model.RoleUser, IsActive: true}
	auth := stubAuth{"admin-token": admin, "user-token": user}

	e := echo.New()
	g := e.Group("", JWTAuth(auth))
	g.GET("/me", func(c echo.Context) error {
		return c.String(http.StatusOK, CurrentUser(c).Email+" "+BearerToken(c))
	})
	g.GET("/admin", func(c echo.Context) error { return c.NoContent(http.StatusNoContent) }, RequireAdmin())

	tests := []struct {
		name   string
		path   string
		header string
		status int
		body   string
	}{
		{"no header", "/me", "", http.StatusUnauthorized, `{"error":"Not authenticated"}`},
		{"wrong scheme", "/me", "Basic abc", http.StatusUnauthorized, `{"error":"Not authenticated"}`},
		{"empty bearer", "/me", "Bearer   ", http.StatusUnauthorized, `{"error":"Not authenticated"}`},
		{"bad token", "/me", "Bearer nope", http.StatusUnauthorized, `{"error":"Could not validate credentials"}`},
		{"blacklisted token", "/me", "Bearer revoked", http.StatusUnauthorized, `{"error":"Token has been invalidated"}`},
		{"lookup failure", "/me", "Bearer db-down", http.StatusInternalServerError, `{"error":"internal server error"}`},
		{"valid token", "/me", "bearer user-token", http.StatusOK, ""},
		{"user on admin route", "/admin", "Bearer user-token", http.StatusForbidden, `{"error":"Not authorized to access this resource"}`},
		{"admin on admin route", "/admin", "Bearer admin-token", http.StatusNoContent, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodGet, tt.path, tt.header)

			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.JSONEq(t, tt.body, rec.Body.String())
			}
			if tt.status == http.StatusUnauthorized {
				assert.Equal(t, "Bearer", rec.Header().Get(echo.HeaderWWWAuthenticate))
			}
		})
	}

	rec := serve(e, http.MethodGet, "/me", "Bearer user-token")
	assert.Equal(t, "user@example.com user-token", rec.Body.String())
}

func newLimited(t *testing.T, cfg config.RateLimitConfig, rdb *redis.Client) *echo.Echo {
	t.Helper()
	e := echo.New()
	e.POST("/login", func(c echo.Context) error { return c.NoContent(http.StatusOK) }, RateLimit(cfg, rdb, zap.NewNop()))
	return e
}

func TestRateLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cfg := config.RateLimitConfig{
		Enabled: true, Capacity: 2, RefillTokens: 1, RefillInterval: time.Minute,
		TTL: 10 * time.Minute, KeyStrategy: "ip_route", Prefix: "test:rl",
	}
	e := newLimited(t, cfg, rdb)

	for i := 0; i < 2; i++ {
		rec := serve(e, http.MethodPost, "/login", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, strconv.Itoa(1-i), rec.Header().Get("X-RateLimit-Remaining"))
	}

	rec := serve(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Contains(t, rec.Body.String(), "rate limit exceeded")

	mr.Close()
	rec = serve(e, http.MethodPost, "/login", "")
	assert.Equal(t, http.StatusOK, rec.Code, "redis failure lets requests through")
}

func TestRateLimit_DisabledWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Capacity: 1, RefillTokens: 1, RefillInterval: time.Minute}
	e := newLimited(t, cfg, nil)

	for i := 0; i < 3; i++ {
		assert.Equal(t, http.StatusOK, serve(e, http.MethodPost, "/login", "").Code)
	}
}

func TestRateKey(t *testing.T) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath("/api/auth/login")

	cfg := config.RateLimitConfig{Prefix: "rl"}
	tests := map[string]string{
		"ip":       "rl:ip:10.0.0.1",
		"user":     "rl:user:anon",
		"route":    "rl:route:POST /api/auth/login",
		"ip_route": "rl:ip:10.0.0.1:route:POST /api/auth/login",
		"":         "rl:ip:10.0.0.1:user:anon:route:POST /api/auth/login",
	}
	for strategy, want := range tests {
		cfg.KeyStrategy = strategy
		assert.Equal(t, want, rateKey(cfg, c), strategy)
	}
}

func TestAccessLog(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := echo.New()
	e.Use(AccessLog(zap.New(core)))
	e.GET("/ok", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/boom", func(c echo.Context) error { return errors.New("boom") })

	serve(e, http.MethodGet, "/ok", "")
	rec := serve(e, http.MethodGet, "/boom", "")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	entries := logs.All()
	require.Len(t, entries, 2)
	assert.Equal(t, zap.InfoLevel, entries[0].Level)
	assert.Equal(t, int64(http.StatusOK), entries[0].ContextMap()["status"])
	assert.Equal(t, zap.ErrorLevel, entries[1].Level)
	assert.Equal(t, "/boom", entries[1].ContextMap()["path"])
}

func TestBearerOnly(t *testing.T) {
	e := echo.New()
	e.POST("/logout", func(c echo.Context) error {
		return c.String(http.StatusOK, BearerToken(c))
	}, BearerOnly())

	tests := []struct {
		name   string
		auth   string
		status int
		body   string
	}{
		{name: "unverified token passes through", auth: "Bearer not-a-jwt", status: http.StatusOK, body: "not-a-jwt"},
		{name: "lowercase scheme", auth: "bearer abc", status: http.StatusOK, body: "abc"},
		{name: "missing header", auth: "", status: http.StatusUnauthorized},
		{name: "wrong scheme", auth: "Basic dXNlcjpwYXNz", status: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(e, http.MethodPost, "/logout", tt.auth)
			assert.Equal(t, tt.status, rec.Code)
			if tt.body != "" {
				assert.Equal(t, tt.body, rec.Body.String())
			}
		})
	}
}

func TestLoggerCarriesRequestID(t *testing.T) {
	core, logs := observer.New(zap.DebugLevel)
	e := echo.New()
	e.Use(AccessLog(zap.New(core)))
	e.GET("/work", func(c echo.Context) error {
		Logger(c).Info("working")
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/work", nil)
	req.Header.Set(echo.HeaderXRequestID, "req-42")
	e.ServeHTTP(httptest.NewRecorder(), req)

	working := logs.FilterMessage("working").All()
	require.Len(t, working, 1)
	assert.Equal(t, "req-42", working[0].ContextMap()["request_id"])

	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), httptest.NewRecorder())
	assert.NotPanics(t, func() { Logger(c).Info("no access log") })
}
