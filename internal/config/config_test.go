package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func setRequired(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("DB_USER", "root")
	t.Setenv("DB_HOST", "localhost")
	t.Setenv("DB_NAME", "storefront")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg := Load()

	assert.Equal(t, "8000", cfg.Port)
	assert.Equal(t, "3306", cfg.DBPort)
	assert.Equal(t, 30*time.Minute, cfg.AccessTTL)
	assert.Equal(t, 12, cfg.BcryptCost)
	assert.True(t, cfg.DBAutoMigrate)
	assert.False(t, cfg.SeedDemoData)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORSOrigins)
	assert.Equal(t, "storefront.events", cfg.EventsExchange)
	assert.False(t, cfg.IsProd())
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "PROD")
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "5")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("AMQP_URL", "amqp://guest:guest@mq:5672/")
	t.Setenv("SEED_DEMO_DATA", "yes")

	cfg := Load()

	assert.True(t, cfg.IsProd())
	assert.Equal(t, 5*time.Minute, cfg.AccessTTL)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORSOrigins)
	assert.Equal(t, "amqp://guest:guest@mq:5672/", cfg.RabbitURL)
	assert.True(t, cfg.SeedDemoData)
}

func TestLoadRateLimitConfig(t *testing.T) {
	t.Setenv("RATE_LIMIT_BURST", "3")
	t.Setenv("RATE_LIMIT_REFILL_EVERY", "2s")
	t.Setenv("RATE_LIMIT_TTL", "1s")

	cfg := LoadRateLimitConfig()

	assert.True(t, cfg.Enabled)
	assert.Equal(t, 3, cfg.Capacity)
	assert.Equal(t, 1, cfg.RefillTokens)
	assert.Equal(t, 2*time.Second, cfg.RefillInterval)
	assert.Equal(t, 10*time.Second, cfg.TTL, "ttl is raised to five refill intervals")
}

func TestEnvHelpers(t *testing.T) {
	t.Setenv("X_BOOL", "maybe")
	t.Setenv("X_INT", "ten")
	t.Setenv("X_DUR", "soon")

	assert.True(t, envBool("X_BOOL", true))
	assert.Equal(t, 7, envInt("X_INT", 7))
	assert.Equal(t, time.Second, envDur("X_DUR", time.Second))
}

func TestNewRedisClient_Disabled(t *testing.T) {
	t.Setenv("REDIS_ENABLED", "false")
	assert.Nil(t, NewRedisClient())
}
