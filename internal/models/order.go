package models

import "time"

// Order statuses are always recomputed from the items, never patched in place.
const (
	StatusUncompleted        = "uncompleted"
	StatusPartiallyCompleted = "partially_completed"
	StatusCompleted          = "completed"
)

// Order is a client order with its line items. BusinessID is the
// human-facing identifier (ORD-<year>-<seq>), unique across the table.
type Order struct {
	ID         uint        `gorm:"primaryKey" json:"id"`
	BusinessID string      `gorm:"size:20;not null;uniqueIndex" json:"order_id"`
	ClientName string      `gorm:"not null;index" json:"client_name"`
	Items      []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
	Status     string      `gorm:"not null;default:'uncompleted'" json:"status"`
	Archived   bool        `gorm:"not null;default:false" json:"archived"`
	CreatedAt  time.Time   `json:"created_at"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// OrderItem tracks ordered vs billed quantity for one item on an order.
// Invariant: BilledQuantity never exceeds OrderedQuantity.
type OrderItem struct {
	ID              uint   `gorm:"primaryKey" json:"id"`
	OrderID         uint   `gorm:"not null;index" json:"order_id"`
	ItemID          string `gorm:"size:64;not null;index" json:"item_id"`
	ItemName        string `gorm:"not null" json:"item_name"`
	OrderedQuantity int    `gorm:"not null" json:"ordered_quantity"`
	BilledQuantity  int    `gorm:"not null;default:0" json:"billed_quantity"`
}

// ComputeStatus derives the order status from all items.
func (o *Order) ComputeStatus() string {
	if len(o.Items) == 0 {
		return StatusUncompleted
	}
	completed := true
	anyBilled := false
	for _, it := range o.Items {
		if it.BilledQuantity < it.OrderedQuantity {
			completed = false
		}
		if it.BilledQuantity > 0 {
			anyBilled = true
		}
	}
	if completed {
		return StatusCompleted
	}
	if anyBilled {
		return StatusPartiallyCompleted
	}
	return StatusUncompleted
}
