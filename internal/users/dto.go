package users

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/bundlehubgh/bundlehub-backend/pkg/db/models"
	"github.com/bundlehubgh/bundlehub-backend/pkg/enums"
)

// View is the outward shape of a user. The password hash never leaves the
// service layer; the wallet balance is included only for roles that have one.
type View struct {
	ID            uuid.UUID        `json:"id"`
	Email         string           `json:"email"`
	Phone         *string          `json:"phone,omitempty"`
	Role          enums.UserRole   `json:"role"`
	WalletBalance *decimal.Decimal `json:"wallet_balance,omitempty"`
	CreatedAt     time.Time        `json:"created_at"`
}

// FromModel maps a persisted user onto its API view.
func FromModel(user *models.User) View {
	view := View{
		ID:        user.ID,
		Email:     user.Email,
		Phone:     user.Phone,
		Role:      user.Role,
		CreatedAt: user.CreatedAt,
	}
	if user.Role.HasWallet() {
		balance := user.WalletBalance
		view.WalletBalance = &balance
	}
	return view
}
