package discounts

import (
	"context"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository defines persistence operations for discount codes.
type Repository interface {
	Create(ctx context.Context, code *models.DiscountCode) error
	FindByID(ctx context.Context, id uint) (*models.DiscountCode, error)
	FindByCode(ctx context.Context, code string) (*models.DiscountCode, error)
	List(ctx context.Context, activeOnly bool) ([]models.DiscountCode, error)
	Update(ctx context.Context, id uint, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a discount code repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) Create(ctx context.Context, code *models.DiscountCode) error {
	return r.db.WithContext(ctx).Create(code).Error
}

func (r *repository) FindByID(ctx context.Context, id uint) (*models.DiscountCode, error) {
	var code models.DiscountCode
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&code).Error; err != nil {
		return nil, err
	}
	return &code, nil
}

func (r *repository) FindByCode(ctx context.Context, code string) (*models.DiscountCode, error) {
	var found models.DiscountCode
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&found).Error; err != nil {
		return nil, err
	}
	return &found, nil
}

func (r *repository) List(ctx context.Context, activeOnly bool) ([]models.DiscountCode, error) {
	var codes []models.DiscountCode
	query := r.db.WithContext(ctx).Order("code ASC")
	if activeOnly {
		query = query.Where("active = ?", true)
	}
	if err := query.Find(&codes).Error; err != nil {
		return nil, err
	}
	return codes, nil
}

func (r *repository) Update(ctx context.Context, id uint, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	res := r.db.WithContext(ctx).Model(&models.DiscountCode{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
