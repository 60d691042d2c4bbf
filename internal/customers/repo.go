package customers

import (
	"context"
	"strings"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Repository persists customers keyed by email.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindByID(ctx context.Context, id uint) (*models.Customer, error)
	FindByEmail(ctx context.Context, email string) (*models.Customer, error)
	UpsertByEmail(ctx context.Context, customer *models.Customer) (*models.Customer, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds a customers repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindByID(ctx context.Context, id uint) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

func (r *repository) FindByEmail(ctx context.Context, email string) (*models.Customer, error) {
	var customer models.Customer
	if err := r.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&customer).Error; err != nil {
		return nil, err
	}
	return &customer, nil
}

// UpsertByEmail creates the customer or refreshes name and phone on the
// existing row in a single statement, so it is safe inside a transaction when
// two submissions race on the same email. Blank fields keep stored values.
func (r *repository) UpsertByEmail(ctx context.Context, customer *models.Customer) (*models.Customer, error) {
	customer.Email = NormalizeEmail(customer.Email)

	assignments := map[string]any{"updated_at": time.Now().UTC()}
	if customer.Name != "" {
		assignments["name"] = customer.Name
	}
	if customer.Phone != "" {
		assignments["phone"] = customer.Phone
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.Assignments(assignments),
	}).Create(customer).Error
	if err != nil {
		return nil, err
	}
	return r.FindByEmail(ctx, customer.Email)
}

// NormalizeEmail lowercases and trims the natural key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
