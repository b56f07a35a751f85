package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/diewo77/order-ledger/internal/models"
	"github.com/diewo77/order-ledger/internal/sequence"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// How many times an ID allocation is retried after losing the read-max/insert
// race to a concurrent writer.
const idAllocAttempts = 10

// OrderService creates and maintains orders. Billed quantities are only ever
// mutated by the billing processor or an explicit item edit here.
type OrderService struct {
	DB  *gorm.DB
	Log *zap.Logger
}

func NewOrderService(db *gorm.DB, log *zap.Logger) *OrderService {
	return &OrderService{DB: db, Log: log}
}

// OrderItemInput is one requested line of a new or edited order.
type OrderItemInput struct {
	ItemID          string `json:"item_id"`
	ItemName        string `json:"item_name"`
	OrderedQuantity int    `json:"ordered_quantity"`
}

func validateItems(items []OrderItemInput) error {
	if len(items) == 0 {
		return fmt.Errorf("%w: items required", ErrValidation)
	}
	seen := map[string]bool{}
	for _, it := range items {
		id := strings.TrimSpace(it.ItemID)
		if id == "" {
			return fmt.Errorf("%w: item_id required", ErrValidation)
		}
		if it.OrderedQuantity < 0 {
			return fmt.Errorf("%w: ordered_quantity must not be negative for %s", ErrValidation, id)
		}
		if seen[id] {
			return fmt.Errorf("%w: duplicate item %s", ErrValidation, id)
		}
		seen[id] = true
	}
	return nil
}

// Create places a new order. The business ID comes from the yearly series;
// the unique index on business_id turns a lost allocation race into
// gorm.ErrDuplicatedKey, which is retried up to idAllocAttempts times.
func (s *OrderService) Create(clientName string, items []OrderItemInput) (*models.Order, error) {
	clientName = strings.TrimSpace(clientName)
	if clientName == "" {
		return nil, fmt.Errorf("%w: client_name required", ErrValidation)
	}
	if err := validateItems(items); err != nil {
		return nil, err
	}

	for attempt := 0; attempt < idAllocAttempts; attempt++ {
		businessID, err := sequence.NextOrderID(s.DB, time.Now())
		if err != nil {
			return nil, err
		}
		// Verify before committing: the generator is read-max-then-write and
		// two concurrent creators can compute the same next value.
		var clash int64
		if err := s.DB.Model(&models.Order{}).Where("business_id = ?", businessID).Count(&clash).Error; err != nil {
			return nil, fmt.Errorf("check order id: %w", err)
		}
		if clash > 0 {
			continue
		}

		order := models.Order{
			BusinessID: businessID,
			ClientName: clientName,
			Status:     models.StatusUncompleted,
		}
		for _, it := range items {
			order.Items = append(order.Items, models.OrderItem{
				ItemID:          strings.TrimSpace(it.ItemID),
				ItemName:        it.ItemName,
				OrderedQuantity: it.OrderedQuantity,
			})
		}
		err = s.DB.Create(&order).Error
		if err == nil {
			return &order, nil
		}
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			s.Log.Warn("order id collision, retrying",
				zap.String("business_id", businessID), zap.Int("attempt", attempt+1))
			continue
		}
		return nil, fmt.Errorf("create order: %w", err)
	}
	return nil, fmt.Errorf("%w: order series", ErrIDAllocationFailed)
}

// Get loads an order with its items.
func (s *OrderService) Get(id uint) (*models.Order, error) {
	var order models.Order
	if err := s.DB.Preload("Items").First(&order, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %d", ErrNotFound, id)
		}
		return nil, fmt.Errorf("load order %d: %w", id, err)
	}
	return &order, nil
}

// GetByBusinessID loads an order by its human-facing identifier.
func (s *OrderService) GetByBusinessID(businessID string) (*models.Order, error) {
	var order models.Order
	if err := s.DB.Preload("Items").Where("business_id = ?", businessID).First(&order).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: order %s", ErrNotFound, businessID)
		}
		return nil, fmt.Errorf("load order %s: %w", businessID, err)
	}
	return &order, nil
}

// List returns orders newest first with an optional client-name filter.
func (s *OrderService) List(q string, includeArchived bool, page, pageSize int) ([]models.Order, int64, error) {
	page, pageSize = normalizePage(page, pageSize)
	dbq := s.DB.Model(&models.Order{})
	if !includeArchived {
		dbq = dbq.Where("archived = ?", false)
	}
	if q = strings.TrimSpace(q); q != "" {
		like := "%" + strings.ToLower(q) + "%"
		dbq = dbq.Where("lower(client_name) LIKE ? OR lower(business_id) LIKE ?", like, like)
	}
	var total int64
	if err := dbq.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("count orders: %w", err)
	}
	var orders []models.Order
	if err := dbq.Preload("Items").Order("id desc").
		Limit(pageSize).Offset((page - 1) * pageSize).Find(&orders).Error; err != nil {
		return nil, 0, fmt.Errorf("list orders: %w", err)
	}
	return orders, total, nil
}

// UpdateItems replaces an order's line items (explicit order edit). Billed
// quantities carry over by item ID and the edit is rejected when it would
// drop an ordered quantity below what is already billed.
func (s *OrderService) UpdateItems(orderID uint, items []OrderItemInput) (*models.Order, error) {
	if err := validateItems(items); err != nil {
		return nil, err
	}
	order, err := s.Get(orderID)
	if err != nil {
		return nil, err
	}
	billed := map[string]int{}
	for _, it := range order.Items {
		billed[it.ItemID] = it.BilledQuantity
	}
	next := make([]models.OrderItem, 0, len(items))
	for _, it := range items {
		id := strings.TrimSpace(it.ItemID)
		b := billed[id]
		if it.OrderedQuantity < b {
			return nil, fmt.Errorf("%w: item %s already has %d billed", ErrValidation, id, b)
		}
		next = append(next, models.OrderItem{
			OrderID:         order.ID,
			ItemID:          id,
			ItemName:        it.ItemName,
			OrderedQuantity: it.OrderedQuantity,
			BilledQuantity:  b,
		})
	}
	err = s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", order.ID).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Create(&next).Error; err != nil {
			return err
		}
		order.Items = next
		return tx.Model(order).Update("status", order.ComputeStatus()).Error
	})
	if err != nil {
		return nil, fmt.Errorf("update order %d items: %w", orderID, err)
	}
	return s.Get(orderID)
}

// Archive flags an order without removing it.
func (s *OrderService) Archive(orderID uint) error {
	res := s.DB.Model(&models.Order{}).Where("id = ?", orderID).Update("archived", true)
	if res.Error != nil {
		return fmt.Errorf("archive order %d: %w", orderID, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
	}
	return nil
}

// Delete hard-deletes an order and its items. Admin-only operation; ledger
// entries referencing the order are left in place.
func (s *OrderService) Delete(orderID uint) error {
	return s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("order_id = ?", orderID).Delete(&models.OrderItem{}).Error; err != nil {
			return fmt.Errorf("delete order %d items: %w", orderID, err)
		}
		res := tx.Delete(&models.Order{}, orderID)
		if res.Error != nil {
			return fmt.Errorf("delete order %d: %w", orderID, res.Error)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("%w: order %d", ErrNotFound, orderID)
		}
		return nil
	})
}
