package main

// Helper: go run ./cmd/ledger -backfill-bill-ids
// Permanently assigns canonical bill IDs to ledger entries written before
// bill IDs existed. Safe to rerun; a second pass finds nothing to update.

import (
	"flag"

	"github.com/diewo77/order-ledger/internal/models"
	"github.com/diewo77/order-ledger/internal/sequence"
	"github.com/diewo77/order-ledger/internal/services"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var backfillFlag = flag.Bool("backfill-bill-ids", false, "Backfill missing bill IDs and exit")

func runBackfillBillIDs(conn *gorm.DB, logger *zap.Logger) {
	svc := services.NewBillService(conn, logger)
	res, err := svc.BackfillBillIDs()
	if err != nil {
		logger.Fatal("backfill failed",
			zap.Int("groups_updated", res.GroupsUpdated),
			zap.Int("entries_updated", res.EntriesUpdated),
			zap.Error(err))
	}
	logger.Info("backfill done",
		zap.Int("groups_updated", res.GroupsUpdated),
		zap.Int("entries_updated", res.EntriesUpdated))
}

// countLegacyEntries counts ledger rows still lacking a canonical bill ID.
func countLegacyEntries(conn *gorm.DB) int64 {
	var entries []models.BillingEntry
	if err := conn.Select("id", "bill_id").Find(&entries).Error; err != nil {
		return -1
	}
	var n int64
	for _, e := range entries {
		if !sequence.IsCanonicalBillID(e.BillID) {
			n++
		}
	}
	return n
}
