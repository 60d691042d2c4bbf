package models

import (
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/enums"
)

// RequestStatusEvent is the append-only audit trail of accepted transitions.
type RequestStatusEvent struct {
	ID         uint                 `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID  uint                 `gorm:"column:request_id;not null;index"`
	FromStatus *enums.RequestStatus `gorm:"column:from_status;type:text"`
	ToStatus   enums.RequestStatus  `gorm:"column:to_status;type:text;not null"`
	Actor      string               `gorm:"column:actor;type:text;not null"`
	CreatedAt  time.Time            `gorm:"column:created_at;autoCreateTime"`
}
