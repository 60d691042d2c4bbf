package requests

import (
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	"github.com/shopspring/decimal"
)

// ItemInput describes one thing to haul.
type ItemInput struct {
	Description string
	Quantity    int
	PhotoURL    *string
}

// SubmitInput is a validated public booking submission.
type SubmitInput struct {
	CustomerName  string
	CustomerEmail string
	CustomerPhone string
	ServiceType   enums.ServiceType
	Pickup        models.Address
	Delivery      *models.Address
	ScheduledAt   time.Time
	TimeWindow    string
	Notes         string
	Items         []ItemInput
}

// QuoteInput is an admin pricing a received request.
type QuoteInput struct {
	RequestID    uint
	Subtotal     decimal.Decimal
	DiscountCode string
	Note         string
	Actor        string
}

// CancelInput identifies the booking by id (admin) or token (customer).
type CancelInput struct {
	RequestID uint
	Token     string
	Actor     string
	WaiveFee  bool
}

// ListParams filters the admin request list.
type ListParams struct {
	Status *enums.RequestStatus
	Limit  int
	Cursor string
}

// TransitionResult is returned by every lifecycle operation. Warnings hold
// notification failures that did not undo the status change.
type TransitionResult struct {
	Request  RequestDTO `json:"request"`
	Warnings []string   `json:"warnings,omitempty"`
}

// RequestList wraps a page of requests.
type RequestList struct {
	Items  []RequestDTO `json:"items"`
	Cursor string       `json:"cursor"`
}

// CancellationQuote previews what cancelling now would cost.
type CancellationQuote struct {
	Free     bool            `json:"free"`
	Fee      decimal.Decimal `json:"fee"`
	Deadline time.Time       `json:"deadline"`
	Allowed  bool            `json:"allowed"`
}

type CustomerDTO struct {
	ID    uint   `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone,omitempty"`
}

type ItemDTO struct {
	ID          uint    `json:"id"`
	Description string  `json:"description"`
	Quantity    int     `json:"quantity"`
	PhotoURL    *string `json:"photo_url,omitempty"`
}

type QuotationDTO struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountCode   *string         `json:"discount_code,omitempty"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Tax            decimal.Decimal `json:"tax"`
	Total          decimal.Decimal `json:"total"`
	Currency       string          `json:"currency"`
	Note           string          `json:"note,omitempty"`
	SentAt         *time.Time      `json:"sent_at,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

type PaymentDTO struct {
	IntentID    *string `json:"intent_id,omitempty"`
	AmountCents int64   `json:"amount_cents"`
	Currency    string  `json:"currency"`
	Status      string  `json:"status"`
}

// RequestDTO is the API representation of a booking request.
type RequestDTO struct {
	ID                       uint                `json:"id"`
	Status                   enums.RequestStatus `json:"status"`
	ServiceType              enums.ServiceType   `json:"service_type"`
	Customer                 *CustomerDTO        `json:"customer,omitempty"`
	Pickup                   models.Address      `json:"pickup"`
	Delivery                 *models.Address     `json:"delivery,omitempty"`
	ScheduledAt              time.Time           `json:"scheduled_at"`
	TimeWindow               string              `json:"time_window,omitempty"`
	Notes                    string              `json:"notes,omitempty"`
	FreeCancellationDeadline time.Time           `json:"free_cancellation_deadline"`
	CancellationFee          *decimal.Decimal    `json:"cancellation_fee,omitempty"`
	Items                    []ItemDTO           `json:"items"`
	Quotation                *QuotationDTO       `json:"quotation,omitempty"`
	Payment                  *PaymentDTO         `json:"payment,omitempty"`
	QuotedAt                 *time.Time          `json:"quoted_at,omitempty"`
	ConfirmedAt              *time.Time          `json:"confirmed_at,omitempty"`
	InvoicedAt               *time.Time          `json:"invoiced_at,omitempty"`
	PaidAt                   *time.Time          `json:"paid_at,omitempty"`
	CancelledAt              *time.Time          `json:"cancelled_at,omitempty"`
	CreatedAt                time.Time           `json:"created_at"`
	UpdatedAt                time.Time           `json:"updated_at"`
}

// ToDTO maps the persistence model and any preloaded associations.
func ToDTO(req models.Request) RequestDTO {
	dto := RequestDTO{
		ID:                       req.ID,
		Status:                   req.Status,
		ServiceType:              req.ServiceType,
		Pickup:                   req.Pickup,
		ScheduledAt:              req.ScheduledAt,
		TimeWindow:               req.TimeWindow,
		Notes:                    req.Notes,
		FreeCancellationDeadline: req.FreeCancellationDeadline,
		CancellationFee:          req.CancellationFee,
		Items:                    make([]ItemDTO, 0, len(req.Items)),
		QuotedAt:                 req.QuotedAt,
		ConfirmedAt:              req.ConfirmedAt,
		InvoicedAt:               req.InvoicedAt,
		PaidAt:                   req.PaidAt,
		CancelledAt:              req.CancelledAt,
		CreatedAt:                req.CreatedAt,
		UpdatedAt:                req.UpdatedAt,
	}
	if !req.Delivery.IsZero() {
		delivery := req.Delivery
		dto.Delivery = &delivery
	}
	if req.Customer != nil {
		dto.Customer = &CustomerDTO{ID: req.Customer.ID, Name: req.Customer.Name, Email: req.Customer.Email, Phone: req.Customer.Phone}
	}
	for _, item := range req.Items {
		dto.Items = append(dto.Items, ItemDTO{ID: item.ID, Description: item.Description, Quantity: item.Quantity, PhotoURL: item.PhotoURL})
	}
	if q := req.Quotation; q != nil {
		dto.Quotation = &QuotationDTO{
			Subtotal:       q.Subtotal,
			DiscountCode:   q.DiscountCode,
			DiscountAmount: q.DiscountAmount,
			Tax:            q.Tax,
			Total:          q.Total,
			Currency:       q.Currency,
			Note:           q.Note,
			SentAt:         q.SentAt,
			CreatedAt:      q.CreatedAt,
		}
	}
	if p := req.Payment; p != nil {
		dto.Payment = &PaymentDTO{IntentID: p.IntentID, AmountCents: p.AmountCents, Currency: p.Currency, Status: p.Status}
	}
	return dto
}
