package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/segmentio/ksuid"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/database"
	"github.com/iliyamo/storefront-api/internal/handler"
	"github.com/iliyamo/storefront-api/internal/logger"
	"github.com/iliyamo/storefront-api/internal/middleware"
	"github.com/iliyamo/storefront-api/internal/payment"
	"github.com/iliyamo/storefront-api/internal/queue"
	"github.com/iliyamo/storefront-api/internal/repository"
	"github.com/iliyamo/storefront-api/internal/router"
	"github.com/iliyamo/storefront-api/internal/service"
	"github.com/iliyamo/storefront-api/internal/validation"
)

func main() {
	// best-effort: a missing .env just means the real environment is used
	_ = godotenv.Load()

	log, err := logger.Init(logger.ConfigFromEnv())
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			log.Fatal("db migrate", zap.Error(err))
		}
	}
	if cfg.SeedDemoData {
		if err := database.Seed(ctx, db, database.DemoAccounts, cfg.BcryptCost); err != nil {
			log.Fatal("db seed", zap.Error(err))
		}
		log.Info("demo data seeded")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable; blacklist cache and rate limiting disabled")
	} else {
		defer rdb.Close()
	}

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.RabbitURL != "" {
		p, err := queue.NewAMQPPublisher(cfg.RabbitURL, cfg.EventsExchange, log)
		if err != nil {
			log.Warn("event publishing disabled", zap.Error(err))
		} else {
			defer p.Close()
			pub = p
		}
	}

	sealer, err := newSealer(cfg, log)
	if err != nil {
		log.Fatal("payment sealer", zap.Error(err))
	}

	users := repository.NewUserRepo(db)
	products := repository.NewProductRepo(db)
	orders := repository.NewOrderRepo(db)
	messages := repository.NewContactRepo(db)

	blacklist := service.NewBlacklist(repository.NewTokenRepo(db), repository.NewTokenCache(rdb, ""), log)
	creds := service.NewCredentials(cfg.JWTSecret, cfg.AccessTTL, blacklist)
	authSvc := service.NewAuthService(users, creds, blacklist, cfg.BcryptCost, log)

	h := router.Handlers{
		Auth:     handler.NewAuthHandler(authSvc),
		Users:    handler.NewUserHandler(service.NewAccountService(users, cfg.BcryptCost, log)),
		Products: handler.NewProductHandler(service.NewCatalogService(products, log)),
		Orders:   handler.NewOrderHandler(service.NewOrderService(db, products, orders, sealer, pub, log)),
		Contact:  handler.NewContactHandler(service.NewContactService(messages, pub, log)),
		DB:       db,
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = validation.New()
	e.Use(echomw.RequestIDWithConfig(echomw.RequestIDConfig{
		Generator: func() string { return ksuid.New().String() },
	}))
	e.Use(echomw.Recover())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins:     cfg.CORSOrigins,
		AllowCredentials: true,
		AllowHeaders:     []string{echo.HeaderAuthorization, echo.HeaderContentType},
	}))
	e.Use(echomw.Secure())
	e.Use(middleware.AccessLog(log))

	router.Register(e, h, authSvc, middleware.RateLimit(config.LoadRateLimitConfig(), rdb, log))

	go func() {
		addr := ":" + cfg.Port
		log.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("http server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.Warn("http server shutdown failed", zap.Error(err))
	}
}

// newSealer requires PAYMENT_ENC_KEY in production.  Elsewhere a missing key
// falls back to a random one, so sealed rows do not survive a restart.
func newSealer(cfg config.Config, log *zap.Logger) (*payment.Sealer, error) {
	if cfg.PaymentKeyHex != "" {
		return payment.NewSealerFromHex(cfg.PaymentKeyHex)
	}
	if cfg.IsProd() {
		return nil, errors.New("PAYMENT_ENC_KEY is required in prod")
	}
	log.Warn("PAYMENT_ENC_KEY not set; using an ephemeral key")
	return payment.NewEphemeralSealer()
}
