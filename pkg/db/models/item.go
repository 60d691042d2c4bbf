package models

// Item is one thing to haul, captured with the request.
type Item struct {
	ID          uint    `gorm:"column:id;primaryKey;autoIncrement"`
	RequestID   uint    `gorm:"column:request_id;not null;index"`
	Description string  `gorm:"column:description;type:text;not null"`
	Quantity    int     `gorm:"column:quantity;not null;default:1"`
	PhotoURL    *string `gorm:"column:photo_url;type:text"`
}
