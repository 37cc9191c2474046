package middleware

import (
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/config"
)

// tokenBucket refills whole intervals since the last refill, takes one
// token if available and returns {allowed, remaining, retry_after_ms}.
var tokenBucket = redis.NewScript(`
local key         = KEYS[1]
local now_ms      = tonumber(ARGV[1])
local capacity    = tonumber(ARGV[2])
local refill      = tonumber(ARGV[3])
local interval_ms = tonumber(ARGV[4])
local ttl_s       = tonumber(ARGV[5])

local state  = redis.call('HMGET', key, 'tokens', 'ts')
local tokens = tonumber(state[1])
local ts     = tonumber(state[2])
if tokens == nil or ts == nil then
  tokens = capacity
  ts = now_ms
end

local steps = math.floor(math.max(0, now_ms - ts) / interval_ms)
if steps > 0 then
  tokens = math.min(capacity, tokens + steps * refill)
  ts = ts + steps * interval_ms
end

local allowed, wait = 0, 0
if tokens > 0 then
  allowed = 1
  tokens = tokens - 1
else
  wait = math.max(0, interval_ms - (now_ms - ts))
end

redis.call('HSET', key, 'tokens', tokens, 'ts', ts)
redis.call('EXPIRE', key, ttl_s)
return { allowed, tokens, wait }
`)

// RateLimit returns a Redis token bucket middleware.  Without Redis, or
// when disabled, it passes every request through.  Redis errors fail open.
func RateLimit(cfg config.RateLimitConfig, rdb *redis.Client, log *zap.Logger) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := rateKey(cfg, c)
			res, err := tokenBucket.Run(c.Request().Context(), rdb, []string{key},
				time.Now().UnixMilli(),
				cfg.Capacity,
				cfg.RefillTokens,
				cfg.RefillInterval.Milliseconds(),
				int64(cfg.TTL/time.Second),
			).Int64Slice()
			if err != nil || len(res) != 3 {
				log.Warn("rate limiter unavailable", zap.String("key", key), zap.Error(err))
				return next(c)
			}
			allowed, remaining, waitMs := res[0] == 1, res[1], res[2]

			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", strconv.Itoa(cfg.Capacity))
			h.Set("X-RateLimit-Remaining", strconv.FormatInt(remaining, 10))
			if cfg.Debug {
				h.Set("X-RateLimit-Key", key)
			}
			if !allowed {
				secs := int(math.Ceil(float64(waitMs) / 1000))
				h.Set("Retry-After", strconv.Itoa(secs))
				if cfg.Debug {
					log.Debug("rate limited", zap.String("key", key), zap.Int64("retry_ms", waitMs))
				}
				return c.JSON(http.StatusTooManyRequests, echo.Map{
					"error":       "rate limit exceeded",
					"retry_after": secs,
				})
			}
			return next(c)
		}
	}
}

// rateKey builds the bucket key from the configured strategy: any
// combination of ip, user and route joined by "_", e.g. "ip_route".
func rateKey(cfg config.RateLimitConfig, c echo.Context) string {
	ip := c.RealIP()
	if ip == "" {
		ip = "unknown"
	}
	parts := []string{cfg.Prefix}
	add := func(name, v string) { parts = append(parts, name, v) }
	switch strings.ToLower(cfg.KeyStrategy) {
	case "ip":
		add("ip", ip)
	case "user":
		add("user", userID(c))
	case "route":
		add("route", c.Request().Method+" "+c.Path())
	case "ip_user":
		add("ip", ip)
		add("user", userID(c))
	case "user_route":
		add("user", userID(c))
		add("route", c.Request().Method+" "+c.Path())
	case "ip_route":
		add("ip", ip)
		add("route", c.Request().Method+" "+c.Path())
	default:
		add("ip", ip)
		add("user", userID(c))
		add("route", c.Request().Method+" "+c.Path())
	}
	return strings.Join(parts, ":")
}
