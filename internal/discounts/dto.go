package discounts

import (
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// CreateInput carries a new discount code definition.
type CreateInput struct {
	Code       string
	Type       enums.DiscountType
	Value      decimal.Decimal
	ValidFrom  *time.Time
	ValidUntil *time.Time
	Active     *bool
}

// UpdateInput carries the mutable fields. Nil pointers are left unchanged.
type UpdateInput struct {
	Value           *decimal.Decimal
	ValidFrom       *time.Time
	ValidUntil      *time.Time
	ClearValidUntil bool
	Active          *bool
}

// Application is the outcome of applying a code to a subtotal.
type Application struct {
	Code   string             `json:"code"`
	Type   enums.DiscountType `json:"type"`
	Amount decimal.Decimal    `json:"amount"`
}

// DiscountCodeDTO is the API representation of a discount code.
type DiscountCodeDTO struct {
	ID         uint               `json:"id"`
	Code       string             `json:"code"`
	Type       enums.DiscountType `json:"type"`
	Value      decimal.Decimal    `json:"value"`
	ValidFrom  time.Time          `json:"valid_from"`
	ValidUntil *time.Time         `json:"valid_until,omitempty"`
	Active     bool               `json:"active"`
	CreatedAt  time.Time          `json:"created_at"`
	UpdatedAt  time.Time          `json:"updated_at"`
}

// ToDTO maps the persistence model onto the API shape.
func ToDTO(code models.DiscountCode) DiscountCodeDTO {
	return DiscountCodeDTO{
		ID:         code.ID,
		Code:       code.Code,
		Type:       code.Type,
		Value:      code.Value,
		ValidFrom:  code.ValidFrom,
		ValidUntil: code.ValidUntil,
		Active:     code.Active,
		CreatedAt:  code.CreatedAt,
		UpdatedAt:  code.UpdatedAt,
	}
}
