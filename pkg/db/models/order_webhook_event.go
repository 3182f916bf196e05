package models

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
)

// OrderWebhookEvent is an append-only audit row for every vendor status
// event matched to an order. Replayed events append again; the derived
// order status stays idempotent regardless.
type OrderWebhookEvent struct {
	ID            uuid.UUID               `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	OrderID       uuid.UUID               `gorm:"column:order_id;type:uuid;not null;index"`
	VendorOrderID string                  `gorm:"column:vendor_order_id;not null"`
	Reference     string                  `gorm:"column:reference"`
	Status        enums.VendorEventStatus `gorm:"column:status;type:text;not null"`
	Recipient     string                  `gorm:"column:recipient"`
	Volume        string                  `gorm:"column:volume"`
	Payload       json.RawMessage         `gorm:"column:payload;type:jsonb;serializer:json"`
	ReceivedAt    time.Time               `gorm:"column:received_at;not null"`
	CreatedAt     time.Time               `gorm:"column:created_at;autoCreateTime"`
}
