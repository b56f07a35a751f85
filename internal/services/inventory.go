package services

import (
	"errors"
	"fmt"
	"strings"

	"github.com/diewo77/order-ledger/internal/models"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InventoryService owns the available-quantity side of the ledger. All
// decrements go through a guarded UPDATE so the quantity can never be driven
// negative, regardless of concurrent writers.
type InventoryService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewInventoryService(db *gorm.DB, log *zap.Logger) *InventoryService {
	return &InventoryService{DB: db, Log: log}
}

// Decrease atomically reduces available stock for an item. It rejects with
// ErrNotFound when the item is absent or archived and ErrInsufficientStock
// when the decrement would go negative; rejection has no side effects.
func (s *InventoryService) Decrease(itemID string, quantity int) error {
	return s.decreaseTx(s.DB, itemID, quantity)
}

func (s *InventoryService) decreaseTx(tx *gorm.DB, itemID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	res := tx.Model(&models.InventoryRecord{}).
		Where("item_id = ? AND archived = ? AND available_quantity >= ?", itemID, false, quantity).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity - ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("decrement inventory %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		// Read only after the guarded update misses, so the quantity in the
		// message reflects the row the update actually saw.
		var rec models.InventoryRecord
		if err := tx.Where("item_id = ? AND archived = ?", itemID, false).First(&rec).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("%w: inventory item %s", ErrNotFound, itemID)
			}
			return fmt.Errorf("load inventory %s: %w", itemID, err)
		}
		return fmt.Errorf("%w: item %s has %d available, requested %d",
			ErrInsufficientStock, itemID, rec.AvailableQuantity, quantity)
	}
	return nil
}

// Upsert merges an uploaded stock line: creates the record when the item is
// new, otherwise adds the quantity and refreshes the name.
func (s *InventoryService) Upsert(itemID, itemName string, quantity int) (*models.InventoryRecord, error) {
	itemID = strings.TrimSpace(itemID)
	if itemID == "" || quantity < 0 {
		return nil, fmt.Errorf("%w: item_id required and quantity must not be negative", ErrValidation)
	}
	var rec models.InventoryRecord
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		err := tx.Where("item_id = ?", itemID).First(&rec).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			rec = models.InventoryRecord{ItemID: itemID, ItemName: itemName, AvailableQuantity: quantity}
			return tx.Create(&rec).Error
		}
		if err != nil {
			return err
		}
		rec.AvailableQuantity += quantity
		if itemName != "" {
			rec.ItemName = itemName
		}
		rec.Archived = false
		return tx.Save(&rec).Error
	})
	if err != nil {
		return nil, fmt.Errorf("upsert inventory %s: %w", itemID, err)
	}
	return &rec, nil
}

// Restock adds quantity to an existing, non-archived item.
func (s *InventoryService) Restock(itemID string, quantity int) error {
	if quantity <= 0 {
		return fmt.Errorf("%w: quantity must be positive", ErrValidation)
	}
	res := s.DB.Model(&models.InventoryRecord{}).
		Where("item_id = ? AND archived = ?", itemID, false).
		UpdateColumn("available_quantity", gorm.Expr("available_quantity + ?", quantity))
	if res.Error != nil {
		return fmt.Errorf("restock %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: inventory item %s", ErrNotFound, itemID)
	}
	return nil
}

// Archive hides an item from billing without deleting its history.
func (s *InventoryService) Archive(itemID string) error {
	res := s.DB.Model(&models.InventoryRecord{}).
		Where("item_id = ?", itemID).
		Update("archived", true)
	if res.Error != nil {
		return fmt.Errorf("archive %s: %w", itemID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: inventory item %s", ErrNotFound, itemID)
	}
	return nil
}

// List returns inventory records matching an optional name/id substring,
// newest first, paginated.
func (s *InventoryService) List(q string, includeArchived bool, page, pageSize int) ([]models.InventoryRecord, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	dbq := s.DB.Model(&models.InventoryRecord{})
	if !includeArchived {
		dbq = dbq.Where("archived = ?", false)
	}
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(item_name) LIKE ? OR lower(item_id) LIKE ?", like, like)
	}
	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count inventory: %w", err)
	}
	var recs []models.InventoryRecord
	if err := dbq.Order("id desc").Limit(pageSize).Offset((page - 1) * pageSize).Find(&recs).Error; err != nil {
		return nil, 0, fmt.Errorf("list inventory: %w", err)
	}
	return recs, total, nil
}

func normalizePage(page, pageSize int) (int, int) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 200 {
		pageSize = 50
	}
	return page, pageSize
}
