package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
)

// User is an account in the marketplace. Agents and admins carry a wallet
// balance; the balance column is only ever mutated through atomic
// increment/decrement statements in the wallet repository.
type User struct {
	ID           uuid.UUID      `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Email        string         `gorm:"column:email;uniqueIndex;not null"`
	Phone        *string        `gorm:"column:phone"`
	PasswordHash string         `gorm:"column:password_hash;not null"`
	Role         enums.UserRole `gorm:"column:role;type:text;not null;default:'user'"`

	WalletBalance decimal.Decimal `gorm:"column:wallet_balance;type:numeric(12,2);not null;default:0"`

	// Daily counters, reset lazily when counters_date falls behind.
	OrdersToday   int             `gorm:"column:orders_today;not null;default:0"`
	DataTodayGB   decimal.Decimal `gorm:"column:data_today_gb;type:numeric(12,3);not null;default:0"`
	SpentToday    decimal.Decimal `gorm:"column:spent_today;type:numeric(12,2);not null;default:0"`
	CountersDate  *time.Time      `gorm:"column:counters_date;type:date"`
	TotalDataGB   decimal.Decimal `gorm:"column:total_data_gb;type:numeric(14,3);not null;default:0"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
