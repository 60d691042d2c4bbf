package admins

import (
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
)

// CreateInput carries a new operator account.
type CreateInput struct {
	Username string
	Email    string
	Password string
}

// ChangePasswordInput rotates the caller's own password.
type ChangePasswordInput struct {
	AdminID         uint
	CurrentPassword string
	NewPassword     string
}

// AdminDTO never exposes the password hash.
type AdminDTO struct {
	ID          uint       `json:"id"`
	Username    string     `json:"username"`
	Email       string     `json:"email"`
	LastLoginAt *time.Time `json:"last_login_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func ToDTO(a models.Admin) AdminDTO {
	return AdminDTO{
		ID:          a.ID,
		Username:    a.Username,
		Email:       a.Email,
		LastLoginAt: a.LastLoginAt,
		CreatedAt:   a.CreatedAt,
	}
}
