package db

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// RunMigrations applies the checked-in SQL migrations when the MIGRATIONS env
// var asks for them. It reports whether the SQL path ran so the caller can
// fall back to AutoMigrate for dev setups.
func RunMigrations(dsn string, log *zap.Logger) (bool, error) {
	switch strings.ToLower(os.Getenv("MIGRATIONS")) {
	case "1", "true", "yes":
	default:
		log.Info("MIGRATIONS not set, schema managed by AutoMigrate")
		return false, nil
	}
	log.Info("running sql migrations", zap.String("source", migrationsSource))
	if err := runSQLMigrations(dsn); err != nil {
		return true, fmt.Errorf("sql migrations failed: %w", err)
	}
	return true, nil
}
