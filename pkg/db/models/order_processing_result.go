package models

import (
	"time"

	"github.com/google/uuid"
)

// OrderProcessingResult records one vendor dispatch outcome for an order.
// Idx preserves attempt ordering; the vendor transaction id and reference
// are also used to match inbound vendor webhooks back to the order.
type OrderProcessingResult struct {
	ID              uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID         uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	Idx             int       `gorm:"column:idx;not null"`
	Success         bool      `gorm:"column:success;not null"`
	TransactionID   *string   `gorm:"column:transaction_id;index"`
	VendorReference *string   `gorm:"column:vendor_reference;index"`
	Message         *string   `gorm:"column:message"`
	Error           *string   `gorm:"column:error"`
	SubStatus       *string   `gorm:"column:sub_status"`
	CreatedAt       time.Time `gorm:"column:created_at;autoCreateTime"`
}
