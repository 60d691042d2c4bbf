package requests

import (
	"context"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	"github.com/angelmondragon/haulbook-backend/pkg/pagination"
	"gorm.io/gorm"
)

// Repository defines persistence operations for requests and their children.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, id uint) (*models.Request, error)
	FindByToken(ctx context.Context, token string) (*models.Request, error)
	List(ctx context.Context, status *enums.RequestStatus, cursor *pagination.Cursor, limit int) ([]models.Request, error)
	UpdateStatus(ctx context.Context, id uint, from, to enums.RequestStatus, fields map[string]any) (bool, error)
	CreateStatusEvent(ctx context.Context, event *models.RequestStatusEvent) error
	ListStatusEvents(ctx context.Context, requestID uint) ([]models.RequestStatusEvent, error)
	CreateQuotation(ctx context.Context, quotation *models.Quotation) error
	MarkQuotationSent(ctx context.Context, quotationID uint, at time.Time) error
}
