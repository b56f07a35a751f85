package sequence

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/diewo77/order-ledger/internal/models"
	"gorm.io/gorm"
)

// Two numbered series exist: order IDs (ORD-<year>-<seq>, sequence restarts
// every calendar year) and bill IDs (BILL<seq>, global, never resets).
// Both are recomputed by scanning for the current maximum rather than kept in
// a counter row; callers must verify the returned value before committing and
// retry on collision.

const orderSeqWidth = 3

// SeriesCap is the largest sequence number the 6-digit bill series can hold.
const SeriesCap = 999999

// ErrSeriesExhausted means the bill series ran out of 6-digit numbers.
// There is no wraparound; this needs operator intervention.
var ErrSeriesExhausted = errors.New("bill id series exhausted")

var billIDPattern = regexp.MustCompile(`^BILL\d{6}$`)

// IsCanonicalBillID reports whether s is a well-formed fixed-width bill ID.
// Legacy ledger rows carry empty or malformed values here.
func IsCanonicalBillID(s string) bool {
	return billIDPattern.MatchString(s)
}

// FormatBillID renders a bill sequence number in canonical form.
func FormatBillID(seq int) string {
	return fmt.Sprintf("BILL%06d", seq)
}

// BillSeq extracts the sequence number from a canonical bill ID.
func BillSeq(id string) (int, bool) {
	if !IsCanonicalBillID(id) {
		return 0, false
	}
	n, err := strconv.Atoi(strings.TrimPrefix(id, "BILL"))
	if err != nil {
		return 0, false
	}
	return n, true
}

// NextOrderID computes the next order business ID for the year of now.
// The 3-digit sequence restarts at 001 with the first order of each year.
func NextOrderID(db *gorm.DB, now time.Time) (string, error) {
	prefix := fmt.Sprintf("ORD-%d-", now.Year())
	var last models.Order
	err := db.Where("business_id LIKE ?", prefix+"%").
		Order("created_at DESC, id DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Sprintf("%s%0*d", prefix, orderSeqWidth, 1), nil
	}
	if err != nil {
		return "", fmt.Errorf("read last order id: %w", err)
	}
	n, convErr := strconv.Atoi(strings.TrimPrefix(last.BusinessID, prefix))
	if convErr != nil {
		return "", fmt.Errorf("malformed order id %q: %w", last.BusinessID, convErr)
	}
	return fmt.Sprintf("%s%0*d", prefix, orderSeqWidth, n+1), nil
}

// MaxBillSeq returns the highest canonical bill sequence present anywhere in
// the ledger, or 0 when none exists. The LIKE filter is only a coarse cut;
// candidates are validated in Go because legacy rows may hold garbage that
// still sorts inside the range.
func MaxBillSeq(db *gorm.DB) (int, error) {
	rows, err := db.Model(&models.BillingEntry{}).
		Distinct("bill_id").
		Where("bill_id LIKE ?", "BILL%").
		Order("bill_id DESC").
		Rows()
	if err != nil {
		return 0, fmt.Errorf("scan bill ids: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return 0, fmt.Errorf("scan bill id row: %w", err)
		}
		if seq, ok := BillSeq(id); ok {
			return seq, nil
		}
	}
	return 0, rows.Err()
}

// NextBillID computes the next bill ID in the global series.
func NextBillID(db *gorm.DB) (string, error) {
	seq, err := MaxBillSeq(db)
	if err != nil {
		return "", err
	}
	if seq+1 > SeriesCap {
		return "", ErrSeriesExhausted
	}
	return FormatBillID(seq + 1), nil
}
