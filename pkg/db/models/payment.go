package models

import "time"

// Payment mirrors the processor state for a request. Status is stored uppercased.
type Payment struct {
	ID                  uint      `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID           uint      `gorm:"column:request_id;not null;uniqueIndex:payments_request_id_key"`
	ProcessorCustomerID string    `gorm:"column:processor_customer_id;type:text;not null;default:''"`
	IntentID            *string   `gorm:"column:intent_id;type:text;uniqueIndex:payments_intent_id_key"`
	SetupIntentID       *string   `gorm:"column:setup_intent_id;type:text"`
	AmountCents         int64     `gorm:"column:amount_cents;not null;default:0"`
	Currency            string    `gorm:"column:currency;type:text;not null"`
	Status              string    `gorm:"column:status;type:text;not null;default:'PENDING'"`
	CreatedAt           time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt           time.Time `gorm:"column:updated_at;autoUpdateTime"`
}
