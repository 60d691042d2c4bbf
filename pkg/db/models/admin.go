package models

import "time"

// Admin is a back-office operator able to manage requests and codes.
type Admin struct {
	ID           uint       `gorm:"column:id;primaryKey;autoIncrement"`
	Username     string     `gorm:"column:username;type:text;not null;uniqueIndex:admins_username_key"`
	Email        string     `gorm:"column:email;type:text;not null;uniqueIndex:admins_email_key"`
	PasswordHash string     `gorm:"column:password_hash;not null"`
	LastLoginAt  *time.Time `gorm:"column:last_login_at"`
	CreatedAt    time.Time  `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time  `gorm:"column:updated_at;autoUpdateTime"`
}
