package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/order-ledger/internal/models"
	"github.com/diewo77/order-ledger/internal/sequence"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// BillingService is the write path of the ledger: it applies partial,
// multi-item billing transactions against an order. Items are processed
// independently; one bill ID is shared by every entry appended in a call.
type BillingService struct {
	DB        *gorm.DB
	Inventory *InventoryService
	Log       *zap.Logger
}

func NewBillingService(db *gorm.DB, inv *InventoryService, log *zap.Logger) *BillingService {
	return &BillingService{DB: db, Inventory: inv, Log: log}
}

// BillItemRequest is one item of a billing call.
type BillItemRequest struct {
	ItemID    string          `json:"item_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

// BillingResult reports what a billing call applied and what it rejected.
// ItemErrors must be inspected even on success: the contract is partial
// success, not all-or-nothing.
type BillingResult struct {
	BillID     string                `json:"bill_id"`
	Entries    []models.BillingEntry `json:"entries"`
	ItemErrors []ItemError           `json:"per_item_errors"`
}

// Bill validates each requested item against the order and inventory,
// applies the passing ones, and appends ledger entries under one shared bill
// ID. The call succeeds when at least one item went through; with zero
// successes it returns ErrNoItemsBilled alongside the per-item detail.
func (s *BillingService) Bill(orderID uint, requests []BillItemRequest) (*BillingResult, error) {
	if len(requests) == 0 {
		return nil, fmt.Errorf("%w: items required", ErrValidation)
	}
	var order models.Order
	if err := s.DB.Preload("Items").First(&order, orderID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil, fmt.Errorf("load order %d: %w", orderID, err)
	}

	billID, err := s.allocateBillID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	result := &BillingResult{BillID: billID}
	for _, req := range requests {
		entry, itemErr := s.billItem(&order, billID, req, now)
		if itemErr != nil {
			result.ItemErrors = append(result.ItemErrors, *itemErr)
			continue
		}
		result.Entries = append(result.Entries, *entry)
	}

	// Recompute status over all items, never patch incrementally.
	var fresh models.Order
	if err := s.DB.Preload("Items").First(&fresh, orderID).Error; err != nil {
		return result, fmt.Errorf("reload order %d: %w", orderID, err)
	}
	if err := s.DB.Model(&fresh).Update("status", fresh.ComputeStatus()).Error; err != nil {
		return result, fmt.Errorf("persist order %d status: %w", orderID, err)
	}

	if len(result.ItemErrors) > 0 {
		s.Log.Warn("billing call had item failures",
			zap.String("order_id", order.BusinessID),
			zap.String("bill_id", billID),
			zap.Int("applied", len(result.Entries)),
			zap.Int("failed", len(result.ItemErrors)))
	}
	if len(result.Entries) == 0 {
		return result, ErrNoItemsBilled
	}
	return result, nil
}

// billItem applies one requested item inside its own transaction so a
// rejection leaves both inventory and the order item untouched.
func (s *BillingService) billItem(order *models.Order, billID string, req BillItemRequest, now time.Time) (*models.BillingEntry, *ItemError) {
	itemID := strings.TrimSpace(req.ItemID)
	if itemID == "" {
		e := newItemError(itemID, fmt.Errorf("%w: item_id required", ErrValidation))
		return nil, &e
	}
	if req.Quantity <= 0 {
		e := newItemError(itemID, fmt.Errorf("%w: quantity must be positive", ErrValidation))
		return nil, &e
	}
	if req.UnitPrice.IsNegative() {
		e := newItemError(itemID, fmt.Errorf("%w: unit_price must not be negative", ErrValidation))
		return nil, &e
	}

	var entry models.BillingEntry
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		var item models.OrderItem
		if err := tx.Where("order_id = ? AND item_id = ?", order.ID, itemID).First(&item).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: %s on order %s", ErrItemNotOnOrder, itemID, order.BusinessID)
			}
			return fmt.Errorf("load order item %s: %w", itemID, err)
		}
		if err := s.Inventory.decreaseTx(tx, itemID, req.Quantity); err != nil {
			return err
		}
		if item.BilledQuantity+req.Quantity > item.OrderedQuantity {
			return fmt.Errorf("%w: item %s ordered %d, billed %d, requested %d",
				ErrExceedsOrderedQuantity, itemID, item.OrderedQuantity, item.BilledQuantity, req.Quantity)
		}
		if err := tx.Model(&item).
			UpdateColumn("billed_quantity", gorm.Expr("billed_quantity + ?", req.Quantity)).Error; err != nil {
			return fmt.Errorf("update billed quantity for %s: %w", itemID, err)
		}
		entry = models.BillingEntry{
			ID:              uuid.NewString(),
			BillID:          billID,
			OrderID:         order.ID,
			OrderBusinessID: order.BusinessID,
			ItemID:          itemID,
			ItemName:        item.ItemName,
			ClientName:      order.ClientName,
			Quantity:        req.Quantity,
			UnitPrice:       req.UnitPrice,
			TotalAmount:     req.UnitPrice.Mul(decimal.NewFromInt(int64(req.Quantity))),
			Date:            now.Format("2006-01-02"),
			Time:            now.Format("15:04:05"),
			CreatedAt:       now,
		}
		return tx.Create(&entry).Error
	})
	if err != nil {
		e := newItemError(itemID, err)
		return nil, &e
	}
	return &entry, nil
}

// allocateBillID reserves the next bill ID, re-reading on collision because
// the series is computed by scanning for the current maximum rather than an
// atomic counter. Bounded retries; exhaustion aborts the whole call.
func (s *BillingService) allocateBillID() (string, error) {
	for attempt := 0; attempt < idAllocAttempts; attempt++ {
		billID, err := sequence.NextBillID(s.DB)
		if err != nil {
			return "", err
		}
		var clash int64
		if err := s.DB.Model(&models.BillingEntry{}).Where("bill_id = ?", billID).Count(&clash).Error; err != nil {
			return "", fmt.Errorf("check bill id: %w", err)
		}
		if clash == 0 {
			return billID, nil
		}
		s.Log.Warn("bill id collision, retrying",
			zap.String("bill_id", billID), zap.Int("attempt", attempt+1))
	}
	return "", fmt.Errorf("%w: bill series", ErrIDAllocationFailed)
}
