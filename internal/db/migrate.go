package db

import (
	"errors"
	"fmt"
	"time"

	"github.com/diewo77/order-ledger/internal/config"
	"github.com/diewo77/order-ledger/internal/models"
	migrate "github.com/golang-migrate/migrate/v4"
	// The following blank imports register the postgres driver and file source for golang-migrate.
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Models migrated by the AutoMigrate fallback path, in dependency order.
func coreModels() []interface{} {
	return []interface{}{
		&models.Order{}, &models.OrderItem{}, &models.InventoryRecord{}, &models.BillingEntry{},
	}
}

// ConnectAndMigrate opens the configured postgres database and brings the
// schema up to date. With MIGRATIONS=1 the checked-in SQL migrations run via
// golang-migrate; otherwise AutoMigrate keeps dev setups working.
// TranslateError is on so unique-index collisions surface as
// gorm.ErrDuplicatedKey, which the ID allocation retry loops depend on.
func ConnectAndMigrate(log *zap.Logger) (*gorm.DB, error) {
	dsn := GetNormalizedDSN()
	if dsn == "" {
		return nil, fmt.Errorf("DATABASE_DSN is empty, check environment configuration")
	}
	logLevel := gormlogger.Silent
	if config.ParseBool("DB_DEBUG", false) {
		logLevel = gormlogger.Info
	}
	cfg := &gorm.Config{
		Logger:         gormlogger.Default.LogMode(logLevel),
		TranslateError: true,
	}
	var conn *gorm.DB
	var err error
	for i := 0; i < 10; i++ {
		conn, err = gorm.Open(postgres.Open(dsn), cfg)
		if err == nil {
			break
		}
		log.Warn("retrying db connection", zap.Error(err))
		time.Sleep(2 * time.Second)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect database after retries: %w", err)
	}
	if pingErr := conn.Exec("SELECT 1").Error; pingErr != nil {
		return nil, fmt.Errorf("db ping failed: %w", pingErr)
	}

	ran, err := RunMigrations(dsn, log)
	if err != nil {
		return nil, err
	}
	if !ran {
		for _, m := range coreModels() {
			if migErr := conn.AutoMigrate(m); migErr != nil {
				return nil, fmt.Errorf("automigrate %T: %w", m, migErr)
			}
		}
	}

	// sanity check: ensure required core tables exist
	for _, table := range []string{"orders", "order_items", "inventory_records", "billing_entries"} {
		if !conn.Migrator().HasTable(table) {
			return nil, errors.New("missing table after migration: " + table)
		}
	}
	return conn, nil
}

const migrationsSource = "file://migrations"

// runSQLMigrations executes migrations in ./migrations using golang-migrate file source.
func runSQLMigrations(dsn string) error {
	m, err := migrate.New(migrationsSource, dsn)
	if err != nil {
		return err
	}
	if err = m.Up(); err != nil && err != migrate.ErrNoChange {
		return err
	}
	return nil
}
