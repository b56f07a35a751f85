package services

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var billsBase = time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)

func TestListBillsGroupsByCanonicalID(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewBillService(db, testLogger())

	seedEntry(t, db, "BILL000001", "ORD-2025-001", "ACME", "SKU1", 2, 50, "2025-06-01", "10:00:00", billsBase)
	seedEntry(t, db, "BILL000001", "ORD-2025-001", "ACME", "SKU2", 1, 30, "2025-06-01", "10:00:00", billsBase.Add(time.Second))
	seedEntry(t, db, "BILL000002", "ORD-2025-002", "Globex", "SKU1", 3, 10, "2025-06-02", "09:30:00", billsBase.Add(24*time.Hour))

	page, err := svc.ListBills(BillFilter{}, 1, 50)
	if err != nil {
		t.Fatalf("list bills: %v", err)
	}
	if page.Total != 2 || len(page.Bills) != 2 {
		t.Fatalf("want 2 bills got total=%d len=%d", page.Total, len(page.Bills))
	}
	// Sorted by newest member first.
	if page.Bills[0].BillID != "BILL000002" || page.Bills[1].BillID != "BILL000001" {
		t.Fatalf("unexpected order: %s, %s", page.Bills[0].BillID, page.Bills[1].BillID)
	}
	multi := page.Bills[1]
	if len(multi.Items) != 2 {
		t.Fatalf("BILL000001 should have 2 items, got %d", len(multi.Items))
	}
	if !multi.TotalAmount.Equal(decimal.NewFromInt(130)) {
		t.Fatalf("BILL000001 total %s want 130", multi.TotalAmount)
	}
	if multi.ClientName != "ACME" || multi.OrderBusinessID != "ORD-2025-001" {
		t.Fatalf("denormalized fields: %#v", multi)
	}
}

func TestListBillsSynthesizesLegacyIDs(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewBillService(db, testLogger())

	// Canonical max in the whole ledger is 3; synthesis continues from there.
	seedEntry(t, db, "BILL000003", "ORD-2024-009", "Initech", "SKU5", 1, 10, "2024-12-01", "08:00:00", billsBase.Add(-48*time.Hour))
	// Legacy group A: two entries billed together before bill IDs existed.
	seedEntry(t, db, "", "ORD-2025-001", "ACME", "SKU1", 2, 50, "2025-06-01", "10:00:00", billsBase)
	seedEntry(t, db, "", "ORD-2025-001", "ACME", "SKU2", 1, 30, "2025-06-01", "10:00:00", billsBase.Add(time.Second))
	// Legacy group B, newer.
	seedEntry(t, db, "legacy", "ORD-2025-002", "Globex", "SKU1", 1, 20, "2025-06-02", "11:00:00", billsBase.Add(25*time.Hour))

	page, err := svc.ListBills(BillFilter{}, 1, 50)
	if err != nil {
		t.Fatalf("list bills: %v", err)
	}
	if page.Total != 3 {
		t.Fatalf("want 3 bills got %d", page.Total)
	}
	// Newest-first scan encounters group B first, so it takes the first
	// synthetic number.
	if page.Bills[0].BillID != "BILL000004" {
		t.Fatalf("group B id %s want BILL000004", page.Bills[0].BillID)
	}
	if page.Bills[1].BillID != "BILL000005" || len(page.Bills[1].Items) != 2 {
		t.Fatalf("group A got %s with %d items", page.Bills[1].BillID, len(page.Bills[1].Items))
	}
	if page.Bills[2].BillID != "BILL000003" {
		t.Fatalf("canonical bill displaced: %s", page.Bills[2].BillID)
	}

	// Without intervening writes a second call returns the same composition
	// and, here, the same synthetic IDs.
	again, err := svc.ListBills(BillFilter{}, 1, 50)
	if err != nil {
		t.Fatalf("second list: %v", err)
	}
	for i := range page.Bills {
		if again.Bills[i].BillID != page.Bills[i].BillID || len(again.Bills[i].Items) != len(page.Bills[i].Items) {
			t.Fatalf("listing not stable within unchanged ledger: %#v vs %#v", again.Bills[i], page.Bills[i])
		}
	}
}

func TestListBillsPaginatesAtBillGranularity(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewBillService(db, testLogger())

	for i := 0; i < 3; i++ {
		billID := []string{"BILL000001", "BILL000002", "BILL000003"}[i]
		at := billsBase.Add(time.Duration(i) * time.Hour)
		// Two entries per bill: entry count must not leak into pagination.
		seedEntry(t, db, billID, "ORD-2025-001", "ACME", "SKU1", 1, 10, "2025-06-01", "10:00:00", at)
		seedEntry(t, db, billID, "ORD-2025-001", "ACME", "SKU2", 1, 10, "2025-06-01", "10:00:00", at.Add(time.Minute))
	}

	page1, err := svc.ListBills(BillFilter{}, 1, 2)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if page1.Total != 3 || page1.TotalPages != 2 || len(page1.Bills) != 2 {
		t.Fatalf("page1: total=%d pages=%d len=%d", page1.Total, page1.TotalPages, len(page1.Bills))
	}
	page2, err := svc.ListBills(BillFilter{}, 2, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page2.Bills) != 1 || page2.Bills[0].BillID != "BILL000001" {
		t.Fatalf("page2: %#v", page2.Bills)
	}
}

func TestListBillsFilters(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewBillService(db, testLogger())

	seedEntry(t, db, "BILL000001", "ORD-2025-001", "ACME Industries", "SKU1", 1, 10, "2025-06-01", "10:00:00", billsBase)
	seedEntry(t, db, "BILL000002", "ORD-2025-002", "Globex", "SKU2", 1, 10, "2025-06-10", "10:00:00", billsBase.Add(9*24*time.Hour))
	seedEntry(t, db, "BILL000003", "ORD-2025-003", "ACME Sud", "SKU2", 1, 10, "2025-07-01", "10:00:00", billsBase.Add(30*24*time.Hour))

	byClient, err := svc.ListBills(BillFilter{ClientName: "acme"}, 1, 50)
	if err != nil {
		t.Fatalf("filter client: %v", err)
	}
	if byClient.Total != 2 {
		t.Fatalf("client filter total %d want 2", byClient.Total)
	}

	byItem, err := svc.ListBills(BillFilter{ItemID: "SKU2"}, 1, 50)
	if err != nil {
		t.Fatalf("filter item: %v", err)
	}
	if byItem.Total != 2 {
		t.Fatalf("item filter total %d want 2", byItem.Total)
	}

	byOrder, err := svc.ListBills(BillFilter{OrderBusinessID: "ORD-2025-002"}, 1, 50)
	if err != nil {
		t.Fatalf("filter order: %v", err)
	}
	if byOrder.Total != 1 || byOrder.Bills[0].BillID != "BILL000002" {
		t.Fatalf("order filter: %#v", byOrder.Bills)
	}

	byRange, err := svc.ListBills(BillFilter{DateFrom: "2025-06-01", DateTo: "2025-06-30"}, 1, 50)
	if err != nil {
		t.Fatalf("filter range: %v", err)
	}
	if byRange.Total != 2 {
		t.Fatalf("range filter total %d want 2", byRange.Total)
	}
}
