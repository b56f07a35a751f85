package services

import (
	"fmt"
	"testing"
	"time"

	"github.com/diewo77/order-ledger/internal/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func setupLedgerDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.Order{}, &models.OrderItem{}, &models.InventoryRecord{}, &models.BillingEntry{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func seedStock(t *testing.T, db *gorm.DB, itemID, name string, qty int) {
	t.Helper()
	rec := models.InventoryRecord{ItemID: itemID, ItemName: name, AvailableQuantity: qty}
	if err := db.Create(&rec).Error; err != nil {
		t.Fatalf("seed stock %s: %v", itemID, err)
	}
}

func mustCreateOrder(t *testing.T, svc *OrderService, client string, items []OrderItemInput) *models.Order {
	t.Helper()
	order, err := svc.Create(client, items)
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	return order
}

func stockOf(t *testing.T, db *gorm.DB, itemID string) int {
	t.Helper()
	var rec models.InventoryRecord
	if err := db.Where("item_id = ?", itemID).First(&rec).Error; err != nil {
		t.Fatalf("load stock %s: %v", itemID, err)
	}
	return rec.AvailableQuantity
}

// seedEntry inserts a ledger row directly, bypassing the billing processor,
// for read-path and backfill tests that need legacy or historical rows.
func seedEntry(t *testing.T, db *gorm.DB, billID, orderBiz, client, itemID string, qty int, price int64, date, clock string, createdAt time.Time) models.BillingEntry {
	t.Helper()
	unit := decimal.NewFromInt(price)
	e := models.BillingEntry{
		ID:              uuid.NewString(),
		BillID:          billID,
		OrderID:         1,
		OrderBusinessID: orderBiz,
		ItemID:          itemID,
		ItemName:        "Item " + itemID,
		ClientName:      client,
		Quantity:        qty,
		UnitPrice:       unit,
		TotalAmount:     unit.Mul(decimal.NewFromInt(int64(qty))),
		Date:            date,
		Time:            clock,
		CreatedAt:       createdAt,
	}
	if err := db.Create(&e).Error; err != nil {
		t.Fatalf("seed entry: %v", err)
	}
	return e
}

func testLogger() *zap.Logger { return zap.NewNop() }
