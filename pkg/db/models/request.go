package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/haulbook-backend/pkg/enums"
)

// Address is embedded with a column prefix for pickup and delivery.
type Address struct {
	Line1      string `gorm:"column:line1;type:text" json:"line1"`
	Line2      string `gorm:"column:line2;type:text" json:"line2,omitempty"`
	City       string `gorm:"column:city;type:text" json:"city"`
	Province   string `gorm:"column:province;type:text" json:"province"`
	PostalCode string `gorm:"column:postal_code;type:text" json:"postal_code"`
}

// IsZero reports whether no address was captured.
func (a Address) IsZero() bool {
	return a == Address{}
}

// Request is a customer booking. Rows are never deleted.
type Request struct {
	ID                       uint                `gorm:"column:id;primaryKey;autoIncrement"`
	CustomerID               uint                `gorm:"column:customer_id;not null;index"`
	Customer                 *Customer           `gorm:"foreignKey:CustomerID"`
	ServiceType              enums.ServiceType   `gorm:"column:service_type;type:text;not null"`
	Pickup                   Address             `gorm:"embedded;embeddedPrefix:pickup_"`
	Delivery                 Address             `gorm:"embedded;embeddedPrefix:delivery_"`
	ScheduledAt              time.Time           `gorm:"column:scheduled_at;not null"`
	TimeWindow               string              `gorm:"column:time_window;type:text;not null;default:''"`
	Notes                    string              `gorm:"column:notes;type:text;not null;default:''"`
	Status                   enums.RequestStatus `gorm:"column:status;type:text;not null;default:'RECEIVED';index"`
	FreeCancellationDeadline time.Time           `gorm:"column:free_cancellation_deadline;not null"`
	CancellationFee          *decimal.Decimal    `gorm:"column:cancellation_fee;type:numeric(10,2)"`
	QuotedAt                 *time.Time          `gorm:"column:quoted_at"`
	ConfirmedAt              *time.Time          `gorm:"column:confirmed_at"`
	InvoicedAt               *time.Time          `gorm:"column:invoiced_at"`
	PaidAt                   *time.Time          `gorm:"column:paid_at"`
	CancelledAt              *time.Time          `gorm:"column:cancelled_at"`
	Items                    []Item              `gorm:"foreignKey:RequestID"`
	Quotation                *Quotation          `gorm:"foreignKey:RequestID"`
	Payment                  *Payment            `gorm:"foreignKey:RequestID"`
	CreatedAt                time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt                time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}
