package payments

import (
	"context"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"gorm.io/gorm"
)

// Repository persists the processor mirror for each booking.
type Repository interface {
	FindByRequestID(ctx context.Context, requestID uint) (*models.Payment, error)
	FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error)
	Save(ctx context.Context, payment *models.Payment) error
	UpdateStatus(ctx context.Context, id uint, status string) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a payments repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) FindByRequestID(ctx context.Context, requestID uint) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("request_id = ?", requestID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repository) FindByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	var payment models.Payment
	if err := r.db.WithContext(ctx).Where("intent_id = ?", intentID).First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

// Save inserts new rows and updates existing ones in place.
func (r *repository) Save(ctx context.Context, payment *models.Payment) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *repository) UpdateStatus(ctx context.Context, id uint, status string) error {
	res := r.db.WithContext(ctx).Model(&models.Payment{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
