package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/order-ledger/internal/models"
	"github.com/diewo77/order-ledger/internal/sequence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BillService is the read path: it reconstructs bills from ledger entries.
// Entries written before bill IDs existed are grouped by a composite legacy
// key and given ephemeral synthetic IDs; the backfill in backfill.go makes
// that assignment permanent using the same partitioning.
type BillService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewBillService(db *gorm.DB, log *zap.Logger) *BillService {
	return &BillService{DB: db, Log: log}
}

// BillFilter narrows the ledger entries considered for a listing. Zero
// values mean "no constraint"; DateFrom/DateTo are inclusive YYYY-MM-DD.
type BillFilter struct {
	ItemID          string
	ItemName        string
	ClientName      string
	OrderBusinessID string
	DateFrom        string
	DateTo          string
}

// BillPage is one page of materialized bills. Total and TotalPages count
// bills, not ledger entries.
type BillPage struct {
	Bills      []models.Bill `json:"bills"`
	Total      int           `json:"total"`
	TotalPages int           `json:"total_pages"`
}

// entryGroup is one set of entries billed together, in first-encounter
// order. Both the aggregator and the backfill partition through the same
// function so the grouping rule cannot drift between them.
type entryGroup struct {
	key       string
	canonical bool
	entries   []models.BillingEntry
	earliest  time.Time
	latest    time.Time
}

// legacyKey groups entries written in one transaction before bill IDs
// existed. Known gap inherited from the original heuristic: two genuine
// transactions for the same order within the same recorded second collide
// on this key and merge into one synthetic bill.
func legacyKey(e models.BillingEntry) string {
	return e.OrderBusinessID + "|" + e.Date + "|" + e.Time
}

// partitionEntries splits entries into bill groups, preserving the order in
// which each group is first encountered. Canonically-tagged entries group by
// bill ID, legacy entries by the composite key.
func partitionEntries(entries []models.BillingEntry) []*entryGroup {
	var groups []*entryGroup
	byKey := map[string]*entryGroup{}
	for _, e := range entries {
		key := e.BillID
		canonical := sequence.IsCanonicalBillID(e.BillID)
		if !canonical {
			key = legacyKey(e)
		}
		g, ok := byKey[key]
		if !ok {
			g = &entryGroup{key: key, canonical: canonical, earliest: e.CreatedAt, latest: e.CreatedAt}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.entries = append(g.entries, e)
		if e.CreatedAt.Before(g.earliest) {
			g.earliest = e.CreatedAt
		}
		if e.CreatedAt.After(g.latest) {
			g.latest = e.CreatedAt
		}
	}
	return groups
}

// ListBills groups the filtered ledger into bills and paginates at bill
// granularity. Legacy groups get synthetic IDs continuing the canonical
// series in first-encounter order over the newest-first scan; those IDs are
// recomputed every call and are not stable until the backfill persists them.
func (s *BillService) ListBills(f BillFilter, page, pageSize int) (*BillPage, error) {
	page, pageSize = normalizePage(page, pageSize)

	dbq := s.DB.Model(&models.BillingEntry{})
	if v := strings.TrimSpace(f.ItemID); v != "" {
		dbq = dbq.Where("item_id = ?", v)
	}
	if v := strings.TrimSpace(f.ItemName); v != "" {
		dbq = dbq.Where("lower(item_name) LIKE ?", "%"+strings.ToLower(v)+"%")
	}
	if v := strings.TrimSpace(f.ClientName); v != "" {
		dbq = dbq.Where("lower(client_name) LIKE ?", "%"+strings.ToLower(v)+"%")
	}
	if v := strings.TrimSpace(f.OrderBusinessID); v != "" {
		dbq = dbq.Where("order_business_id = ?", v)
	}
	if f.DateFrom != "" {
		dbq = dbq.Where("date >= ?", f.DateFrom)
	}
	if f.DateTo != "" {
		dbq = dbq.Where("date <= ?", f.DateTo)
	}

	// The full filtered set is needed before pagination: page boundaries fall
	// between bills, not between entries.
	var entries []models.BillingEntry
	if err := dbq.Order("created_at DESC, id DESC").Find(&entries).Error; err != nil {
		return nil, fmt.Errorf("list billing entries: %w", err)
	}

	groups := partitionEntries(entries)

	// Synthetic numbering continues from the ledger-wide maximum, not the
	// maximum within the filtered set.
	maxSeq := 0
	for _, g := range groups {
		if !g.canonical {
			var err error
			if maxSeq, err = sequence.MaxBillSeq(s.DB); err != nil {
				return nil, err
			}
			break
		}
	}

	bills := make([]models.Bill, 0, len(groups))
	nextSeq := maxSeq
	for _, g := range groups {
		billID := g.key
		if !g.canonical {
			nextSeq++
			if nextSeq > sequence.SeriesCap {
				return nil, ErrSeriesExhausted
			}
			billID = sequence.FormatBillID(nextSeq)
		}
		bills = append(bills, materializeBill(billID, g))
	}

	total := len(bills)
	totalPages := (total + pageSize - 1) / pageSize
	start := (page - 1) * pageSize
	if start > total {
		start = total
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return &BillPage{Bills: bills[start:end], Total: total, TotalPages: totalPages}, nil
}

// materializeBill turns a group into a Bill. Denormalized fields are
// invariant within a legitimate group, so any member supplies them; members
// arrive newest first and stay that way.
func materializeBill(billID string, g *entryGroup) models.Bill {
	b := models.Bill{
		BillID:          billID,
		OrderBusinessID: g.entries[0].OrderBusinessID,
		ClientName:      g.entries[0].ClientName,
		Date:            g.entries[0].Date,
		Time:            g.entries[0].Time,
		Items:           g.entries,
		CreatedAt:       g.latest,
	}
	for _, e := range g.entries {
		b.TotalAmount = b.TotalAmount.Add(e.TotalAmount)
	}
	return b
}
