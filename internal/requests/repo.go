package requests

import (
	"context"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	"github.com/angelmondragon/haulbook-backend/pkg/pagination"
	"gorm.io/gorm"
)

type repository struct {
	db *gorm.DB
}

// NewRepository builds a requests repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, req *models.Request) error {
	return r.db.WithContext(ctx).Create(req).Error
}

func (r *repository) withDetail(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id ASC") }).
		Preload("Quotation").
		Preload("Payment")
}

func (r *repository) FindByID(ctx context.Context, id uint) (*models.Request, error) {
	var req models.Request
	if err := r.withDetail(ctx).Where("id = ?", id).First(&req).Error; err != nil {
		return nil, err
	}
	return &req, nil
}

func (r *repository) FindByToken(ctx context.Context, token string) (*models.Request, error) {
	var quotation models.Quotation
	if err := r.db.WithContext(ctx).Where("booking_token = ?", token).First(&quotation).Error; err != nil {
		return nil, err
	}
	return r.FindByID(ctx, quotation.RequestID)
}

// List walks requests newest first. It fetches limit rows; callers pass a
// buffered limit to detect the next page.
func (r *repository) List(ctx context.Context, status *enums.RequestStatus, cursor *pagination.Cursor, limit int) ([]models.Request, error) {
	query := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Quotation").
		Order("id DESC").
		Limit(limit)
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	if cursor != nil {
		query = query.Where("id < ?", cursor.AfterID)
	}

	var rows []models.Request
	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// UpdateStatus moves a request only if it is still in from. It reports false
// when another writer changed the status first.
func (r *repository) UpdateStatus(ctx context.Context, id uint, from, to enums.RequestStatus, fields map[string]any) (bool, error) {
	updates := map[string]any{"status": to}
	for k, v := range fields {
		updates[k] = v
	}
	res := r.db.WithContext(ctx).
		Model(&models.Request{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *repository) CreateStatusEvent(ctx context.Context, event *models.RequestStatusEvent) error {
	return r.db.WithContext(ctx).Create(event).Error
}

func (r *repository) ListStatusEvents(ctx context.Context, requestID uint) ([]models.RequestStatusEvent, error) {
	var events []models.RequestStatusEvent
	err := r.db.WithContext(ctx).
		Where("request_id = ?", requestID).
		Order("id ASC").
		Find(&events).Error
	if err != nil {
		return nil, err
	}
	return events, nil
}

func (r *repository) CreateQuotation(ctx context.Context, quotation *models.Quotation) error {
	return r.db.WithContext(ctx).Create(quotation).Error
}

func (r *repository) MarkQuotationSent(ctx context.Context, quotationID uint, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.Quotation{}).
		Where("id = ?", quotationID).
		Update("sent_at", at).Error
}
