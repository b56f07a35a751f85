package models

import "time"

// InventoryRecord holds the current available quantity for one item.
// AvailableQuantity never goes negative; decrements are guarded updates.
type InventoryRecord struct {
	ID                uint      `gorm:"primaryKey" json:"id"`
	ItemID            string    `gorm:"size:64;not null;uniqueIndex" json:"item_id"`
	ItemName          string    `gorm:"not null" json:"item_name"`
	AvailableQuantity int       `gorm:"not null;default:0" json:"available_quantity"`
	Archived          bool      `gorm:"not null;default:false" json:"archived"`
	CreatedAt         time.Time `json:"created_at"`
	UpdatedAt         time.Time `json:"updated_at"`
}
