package main

import (
	"flag"
	"log"

	"github.com/diewo77/order-ledger/internal/config"
	"github.com/diewo77/order-ledger/internal/db"
	"github.com/diewo77/order-ledger/internal/models"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var migrateOnlyFlag = flag.Bool("migrate-only", false, "Run DB migrations and exit")

func newLogger(env string) *zap.Logger {
	if env == "development" {
		l, err := zap.NewDevelopment()
		if err != nil {
			log.Fatalf("logger: %v", err)
		}
		return l
	}
	l, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	return l
}

func main() {
	flag.Parse()
	_ = godotenv.Load()
	cfg := config.Load()
	logger := newLogger(cfg.Env)
	defer func() { _ = logger.Sync() }()

	conn, err := db.ConnectAndMigrate(logger)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	if *migrateOnlyFlag {
		logger.Info("migrations completed; exiting as requested")
		return
	}
	if *backfillFlag {
		runBackfillBillIDs(conn, logger)
		return
	}

	// Default: report ledger health so operators can see backfill progress.
	var orderCount, inventoryCount, entryCount int64
	conn.Model(&models.Order{}).Count(&orderCount)
	conn.Model(&models.InventoryRecord{}).Count(&inventoryCount)
	conn.Model(&models.BillingEntry{}).Count(&entryCount)
	legacy := countLegacyEntries(conn)
	logger.Info("ledger status",
		zap.String("env", cfg.Env),
		zap.Int64("orders", orderCount),
		zap.Int64("inventory_items", inventoryCount),
		zap.Int64("billing_entries", entryCount),
		zap.Int64("legacy_entries", legacy))
}
