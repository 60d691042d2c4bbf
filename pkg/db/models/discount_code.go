package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/haulbook-backend/pkg/enums"
)

// DiscountCode is an admin managed promotion applied when quoting.
type DiscountCode struct {
	ID         uint               `gorm:"column:id;primaryKey;autoIncrement"`
	Code       string             `gorm:"column:code;type:text;not null;uniqueIndex:discount_codes_code_key"`
	Type       enums.DiscountType `gorm:"column:type;type:text;not null"`
	Value      decimal.Decimal    `gorm:"column:value;type:numeric(10,2);not null"`
	ValidFrom  time.Time          `gorm:"column:valid_from;not null"`
	ValidUntil *time.Time         `gorm:"column:valid_until"`
	Active     bool               `gorm:"column:active;not null"`
	CreatedAt  time.Time          `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt  time.Time          `gorm:"column:updated_at;autoUpdateTime"`
}
