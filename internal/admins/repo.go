package admins

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists back-office operators.
type Repository interface {
	Create(ctx context.Context, admin *models.Admin) error
	FindByID(ctx context.Context, id uint) (*models.Admin, error)
	FindByLogin(ctx context.Context, login string) (*models.Admin, error)
	List(ctx context.Context) ([]models.Admin, error)
	Count(ctx context.Context) (int64, error)
	Delete(ctx context.Context, id uint) error
	UpdatePassword(ctx context.Context, id uint, hash string) error
	UpdateLastLogin(ctx context.Context, id uint, at time.Time) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

func (r *repository) FindByID(ctx context.Context, id uint) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&admin).Error; err != nil {
		return nil, err
	}
	return &admin, nil
}

// FindByLogin matches either the username or the email, case-insensitively.
func (r *repository) FindByLogin(ctx context.Context, login string) (*models.Admin, error) {
	login = strings.ToLower(strings.TrimSpace(login))
	var admin models.Admin
	err := r.db.WithContext(ctx).
		Where("LOWER(username) = ? OR LOWER(email) = ?", login, login).
		First(&admin).Error
	if err != nil {
		return nil, err
	}
	return &admin, nil
}

func (r *repository) List(ctx context.Context) ([]models.Admin, error) {
	var rows []models.Admin
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Admin{}).Count(&n).Error; err != nil {
		return 0, err
	}
	return n, nil
}

func (r *repository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Admin{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) UpdatePassword(ctx context.Context, id uint, hash string) error {
	return r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).Update("password_hash", hash).Error
}

func (r *repository) UpdateLastLogin(ctx context.Context, id uint, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.Admin{}).Where("id = ?", id).UpdateColumn("last_login_at", at).Error
}
