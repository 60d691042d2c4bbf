package auth

import (
	"time"

	"github.com/angelmondragon/haulbook-backend/internal/admins"
)

// LoginRequest accepts a username or an email in Username.
type LoginRequest struct {
	Username string
	Password string
}

// LoginResponse carries the session token the controller places in the cookie.
type LoginResponse struct {
	Token     string          `json:"-"`
	ExpiresAt time.Time       `json:"expires_at"`
	Admin     admins.AdminDTO `json:"admin"`
}
