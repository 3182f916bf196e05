package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
)

// Order is one purchased bundle unit. A cart line with quantity N fans out
// into N orders. Price, volume and network are snapshots taken at creation;
// they are never re-read from the product. Orders are never deleted.
type Order struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID    uuid.UUID `gorm:"column:user_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null"`

	Reference   string          `gorm:"column:reference;uniqueIndex;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Volume      string          `gorm:"column:volume;not null"`
	Network     enums.Network   `gorm:"column:network;type:text;not null"`
	PhoneNumber string          `gorm:"column:phone_number;not null"`

	Status        enums.OrderStatus   `gorm:"column:status;type:text;not null;default:'pending'"`
	PaymentStatus enums.PaymentStatus `gorm:"column:payment_status;type:text;not null;default:'pending'"`
	PaymentMethod enums.PaymentMethod `gorm:"column:payment_method;type:text;not null"`
	VendorOrderID *string             `gorm:"column:vendor_order_id;index"`

	Results       []OrderProcessingResult `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	WebhookEvents []OrderWebhookEvent     `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
