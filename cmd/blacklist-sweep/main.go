// Command blacklist-sweep deletes expired rows from the token blacklist.
// Run it from cron; the API also purges on every logout.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/iliyamo/storefront-api/internal/config"
	"github.com/iliyamo/storefront-api/internal/database"
	"github.com/iliyamo/storefront-api/internal/logger"
	"github.com/iliyamo/storefront-api/internal/repository"
)

func main() {
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

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	n, err := repository.NewTokenRepo(db).PurgeExpired(ctx, time.Now().UTC())
	if err != nil {
		log.Error("purge failed", zap.Error(err))
		os.Exit(1)
	}
	log.Info("blacklist purged", zap.Int64("rows", n))
}
