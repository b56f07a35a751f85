package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// BillingEntry is one immutable ledger row: a single item billed in a single
// transaction. Rows written before bill IDs existed carry an empty or
// malformed BillID; the backfill is the only writer allowed to touch them,
// and only to fill in a missing BillID.
type BillingEntry struct {
	ID              string          `gorm:"primaryKey;size:36" json:"id"`
	BillID          string          `gorm:"size:20;index" json:"bill_id"`
	OrderID         uint            `gorm:"not null;index" json:"order_ref"`
	OrderBusinessID string          `gorm:"size:20;not null;index" json:"order_id"`
	ItemID          string          `gorm:"size:64;not null;index" json:"item_id"`
	ItemName        string          `gorm:"not null" json:"item_name"`
	ClientName      string          `gorm:"not null" json:"client_name"`
	Quantity        int             `gorm:"not null" json:"quantity"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"unit_price"`
	TotalAmount     decimal.Decimal `gorm:"type:decimal(20,4);not null" json:"total_amount"`
	Date            string          `gorm:"size:10;not null;index" json:"date"`
	Time            string          `gorm:"size:8;not null" json:"time"`
	CreatedAt       time.Time       `gorm:"index" json:"created_at"`
}

// Bill is a derived grouping of entries billed together. It is materialized
// on read, never persisted as its own table.
type Bill struct {
	BillID          string          `json:"bill_id"`
	OrderBusinessID string          `json:"order_id"`
	ClientName      string          `json:"client_name"`
	Date            string          `json:"date"`
	Time            string          `json:"time"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Items           []BillingEntry  `json:"items"`
	CreatedAt       time.Time       `json:"created_at"`
}
