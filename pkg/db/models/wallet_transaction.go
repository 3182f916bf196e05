package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
)

// WalletTransaction is the audit trail for every wallet mutation. The
// authoritative balance lives on the user row; these rows reconstruct how
// it got there.
type WalletTransaction struct {
	ID           uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	UserID       uuid.UUID             `gorm:"column:user_id;type:uuid;not null;index"`
	Type         enums.WalletEntryType `gorm:"column:type;type:text;not null"`
	Amount       decimal.Decimal       `gorm:"column:amount;type:numeric(12,2);not null"`
	BalanceAfter decimal.Decimal       `gorm:"column:balance_after;type:numeric(12,2);not null"`
	Reference    *string               `gorm:"column:reference"`
	Note         *string               `gorm:"column:note"`
	CreatedAt    time.Time             `gorm:"column:created_at;autoCreateTime"`
}
