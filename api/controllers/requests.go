package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	"github.com/angelmondragon/haulbook-backend/api/validators"
	"github.com/angelmondragon/haulbook-backend/internal/requests"
	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

type addressPayload struct {
	Line1      string `json:"line1" validate:"required,max=200"`
	Line2      string `json:"line2" validate:"max=200"`
	City       string `json:"city" validate:"required,max=100"`
	Province   string `json:"province" validate:"required,max=50"`
	PostalCode string `json:"postal_code" validate:"required,max=16,postal_code"`
}

func (a addressPayload) model() models.Address {
	return models.Address{
		Line1:      validators.SanitizeString(a.Line1, 200),
		Line2:      validators.SanitizeString(a.Line2, 200),
		City:       validators.SanitizeString(a.City, 100),
		Province:   validators.SanitizeString(a.Province, 50),
		PostalCode: a.PostalCode,
	}
}

type itemPayload struct {
	Description string  `json:"description" validate:"required,max=500"`
	Quantity    int     `json:"quantity" validate:"omitempty,min=1,max=999"`
	PhotoURL    *string `json:"photo_url" validate:"omitempty,url,max=1024"`
}

type submitRequestPayload struct {
	Name        string          `json:"name" validate:"required,max=120"`
	Email       string          `json:"email" validate:"required,email,max=254"`
	Phone       string          `json:"phone" validate:"max=32"`
	ServiceType string          `json:"service_type" validate:"required,oneof=junk_removal moving"`
	Pickup      addressPayload  `json:"pickup"`
	Delivery    *addressPayload `json:"delivery" validate:"omitempty"`
	ScheduledAt time.Time       `json:"scheduled_at" validate:"required"`
	TimeWindow  string          `json:"time_window" validate:"max=64"`
	Notes       string          `json:"notes" validate:"max=2000"`
	Items       []itemPayload   `json:"items" validate:"required,min=1,max=50,dive"`
}

func (p submitRequestPayload) input() requests.SubmitInput {
	in := requests.SubmitInput{
		CustomerName:  validators.SanitizeString(p.Name, 120),
		CustomerEmail: p.Email,
		CustomerPhone: validators.SanitizeString(p.Phone, 32),
		ServiceType:   enums.ServiceType(strings.ToLower(p.ServiceType)),
		Pickup:        p.Pickup.model(),
		ScheduledAt:   p.ScheduledAt,
		TimeWindow:    p.TimeWindow,
		Notes:         p.Notes,
		Items:         make([]requests.ItemInput, 0, len(p.Items)),
	}
	if p.Delivery != nil {
		delivery := p.Delivery.model()
		in.Delivery = &delivery
	}
	for _, item := range p.Items {
		in.Items = append(in.Items, requests.ItemInput{
			Description: item.Description,
			Quantity:    item.Quantity,
			PhotoURL:    item.PhotoURL,
		})
	}
	return in
}

// PublicSubmitRequest accepts a booking form submission and persists it as RECEIVED.
func PublicSubmitRequest(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
			return
		}

		var body submitRequestPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.Submit(r.Context(), body.input())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}
