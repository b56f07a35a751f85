package services

import (
	"fmt"

	"github.com/diewo77/order-ledger/internal/models"
	"github.com/diewo77/order-ledger/internal/sequence"
	"go.uber.org/zap"
)

// BackfillResult reports how much of the legacy ledger a backfill run
// repaired.
type BackfillResult struct {
	GroupsUpdated  int `json:"groups_updated"`
	EntriesUpdated int `json:"entries_updated"`
}

// BackfillBillIDs permanently assigns canonical bill IDs to legacy entries,
// using the same partitioning as the read path. Groups are numbered by their
// earliest entry, oldest first, continuing from the current maximum. A rerun
// with no new legacy writes updates nothing. If the series overflows mid-run
// the operation stops and reports progress; groups already assigned keep
// their IDs.
func (s *BillService) BackfillBillIDs() (BackfillResult, error) {
	var res BackfillResult

	var entries []models.BillingEntry
	if err := s.DB.Order("created_at ASC, id ASC").Find(&entries).Error; err != nil {
		return res, fmt.Errorf("scan billing entries: %w", err)
	}
	legacy := entries[:0]
	for _, e := range entries {
		if !sequence.IsCanonicalBillID(e.BillID) {
			legacy = append(legacy, e)
		}
	}
	if len(legacy) == 0 {
		return res, nil
	}

	// Entries are sorted oldest first, so first-encounter order here is
	// exactly "earliest createdAt ascending" per group.
	groups := partitionEntries(legacy)

	seq, err := sequence.MaxBillSeq(s.DB)
	if err != nil {
		return res, err
	}
	for _, g := range groups {
		seq++
		if seq > sequence.SeriesCap {
			s.Log.Error("bill series exhausted during backfill",
				zap.Int("groups_updated", res.GroupsUpdated))
			return res, ErrSeriesExhausted
		}
		billID := sequence.FormatBillID(seq)
		ids := make([]string, 0, len(g.entries))
		for _, e := range g.entries {
			ids = append(ids, e.ID)
		}
		update := s.DB.Model(&models.BillingEntry{}).Where("id IN ?", ids).Update("bill_id", billID)
		if update.Error != nil {
			return res, fmt.Errorf("assign %s: %w", billID, update.Error)
		}
		res.GroupsUpdated++
		res.EntriesUpdated += int(update.RowsAffected)
	}
	s.Log.Info("bill id backfill complete",
		zap.Int("groups_updated", res.GroupsUpdated),
		zap.Int("entries_updated", res.EntriesUpdated))
	return res, nil
}
