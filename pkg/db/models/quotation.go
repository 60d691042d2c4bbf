package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quotation is the single priced offer for a request.
type Quotation struct {
	ID             uint            `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID      uint            `gorm:"column:request_id;not null;uniqueIndex:quotations_request_id_key"`
	Subtotal       decimal.Decimal `gorm:"column:subtotal;type:numeric(10,2);not null"`
	DiscountCode   *string         `gorm:"column:discount_code;type:text"`
	DiscountAmount decimal.Decimal `gorm:"column:discount_amount;type:numeric(10,2);not null;default:0"`
	Tax            decimal.Decimal `gorm:"column:tax;type:numeric(10,2);not null"`
	Total          decimal.Decimal `gorm:"column:total;type:numeric(10,2);not null"`
	Currency       string          `gorm:"column:currency;type:text;not null"`
	BookingToken   string          `gorm:"column:booking_token;type:text;not null;uniqueIndex:quotations_booking_token_key"`
	Note           string          `gorm:"column:note;type:text;not null;default:''"`
	SentAt         *time.Time      `gorm:"column:sent_at"`
	CreatedAt      time.Time       `gorm:"column:created_at;autoCreateTime"`
}
