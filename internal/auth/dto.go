package auth

import "github.com/bundlehubgh/bundlehub-backend/internal/users"

// RegisterRequest is the signup payload. New accounts always start as plain
// users; agent upgrades are an admin action.
type RegisterRequest struct {
	Email    string  `json:"email" validate:"required,email"`
	Password string  `json:"password" validate:"required,min=8"`
	Phone    *string `json:"phone,omitempty"`
}

// LoginRequest carries the credentials for an email/password login.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is returned by both register and login.
type Session struct {
	AccessToken string     `json:"access_token"`
	User        users.View `json:"user"`
}
