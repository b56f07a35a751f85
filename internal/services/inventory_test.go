package services

import (
	"errors"
	"testing"

	"github.com/diewo77/order-ledger/internal/models"
)

func TestDecrease(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewInventoryService(db, testLogger())
	seedStock(t, db, "SKU1", "Widget", 10)

	if err := svc.Decrease("SKU1", 4); err != nil {
		t.Fatalf("decrease: %v", err)
	}
	if got := stockOf(t, db, "SKU1"); got != 6 {
		t.Fatalf("stock after decrease: %d want 6", got)
	}
}

func TestDecreaseInsufficientStock(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewInventoryService(db, testLogger())
	seedStock(t, db, "SKU1", "Widget", 3)

	if err := svc.Decrease("SKU1", 4); !errors.Is(err, ErrInsufficientStock) {
		t.Fatalf("expected ErrInsufficientStock got %v", err)
	}
	if got := stockOf(t, db, "SKU1"); got != 3 {
		t.Fatalf("rejection must not mutate stock, got %d", got)
	}
}

func TestDecreaseMissingOrArchivedItem(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewInventoryService(db, testLogger())

	if err := svc.Decrease("NOPE", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}

	seedStock(t, db, "SKU1", "Widget", 10)
	if err := svc.Archive("SKU1"); err != nil {
		t.Fatalf("archive: %v", err)
	}
	if err := svc.Decrease("SKU1", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("archived item should be ErrNotFound, got %v", err)
	}
}

func TestDecreaseValidation(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewInventoryService(db, testLogger())
	seedStock(t, db, "SKU1", "Widget", 10)

	for _, qty := range []int{0, -2} {
		if err := svc.Decrease("SKU1", qty); !errors.Is(err, ErrValidation) {
			t.Errorf("qty %d: expected ErrValidation got %v", qty, err)
		}
	}
}

func TestUpsertMergesQuantities(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewInventoryService(db, testLogger())

	rec, err := svc.Upsert("SKU1", "Widget", 5)
	if err != nil {
		t.Fatalf("upsert create: %v", err)
	}
	if rec.AvailableQuantity != 5 {
		t.Fatalf("created quantity %d want 5", rec.AvailableQuantity)
	}

	rec, err = svc.Upsert("SKU1", "Widget Mk2", 7)
	if err != nil {
		t.Fatalf("upsert merge: %v", err)
	}
	if rec.AvailableQuantity != 12 || rec.ItemName != "Widget Mk2" {
		t.Fatalf("merge result: %#v", rec)
	}
	var count int64
	db.Model(&models.InventoryRecord{}).Count(&count)
	if count != 1 {
		t.Fatalf("upsert duplicated rows: %d", count)
	}
}

func TestRestock(t *testing.T) {
	db := setupLedgerDB(t)
	svc := NewInventoryService(db, testLogger())
	seedStock(t, db, "SKU1", "Widget", 2)

	if err := svc.Restock("SKU1", 8); err != nil {
		t.Fatalf("restock: %v", err)
	}
	if got := stockOf(t, db, "SKU1"); got != 10 {
		t.Fatalf("stock after restock: %d want 10", got)
	}
	if err := svc.Restock("NOPE", 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound got %v", err)
	}
}
