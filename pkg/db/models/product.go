package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
)

// Product is a purchasable data bundle. Prices are tiered: PriceUser for
// regular customers, PriceAgent for resellers. The two must differ.
type Product struct {
	ID          uuid.UUID       `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string          `gorm:"column:name;not null"`
	Network     enums.Network   `gorm:"column:network;type:text;not null"`
	Volume      string          `gorm:"column:volume;not null"`
	PriceUser   decimal.Decimal `gorm:"column:price_user;type:numeric(12,2);not null"`
	PriceAgent  decimal.Decimal `gorm:"column:price_agent;type:numeric(12,2);not null"`
	Description *string         `gorm:"column:description"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}

// PriceFor returns the unit price for the given role. Agents and admins buy
// at the agent tier.
func (p Product) PriceFor(role enums.UserRole) decimal.Decimal {
	if role == enums.UserRoleAgent || role == enums.UserRoleAdmin {
		return p.PriceAgent
	}
	return p.PriceUser
}
