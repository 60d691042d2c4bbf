package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	"github.com/angelmondragon/haulbook-backend/api/validators"
	"github.com/angelmondragon/haulbook-backend/internal/discounts"
	"github.com/angelmondragon/haulbook-backend/pkg/db/models"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

const discountIDParam = "discountId"

func discountServiceMissing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "discount service unavailable"))
}

type validateDiscountPayload struct {
	Code     string          `json:"code" validate:"required,max=32"`
	Subtotal decimal.Decimal `json:"subtotal"`
}

// PublicDiscountValidate previews a code against a subtotal. Unusable codes
// come back as validation errors.
func PublicDiscountValidate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			discountServiceMissing(w, r, logg)
			return
		}
		var body validateDiscountPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		applied, err := svc.Apply(r.Context(), body.Code, body.Subtotal, time.Now().UTC())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, applied)
	}
}

func AdminDiscountList(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			discountServiceMissing(w, r, logg)
			return
		}
		activeOnly, err := validators.ParseQueryBool(r, "active", false)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		codes, err := svc.List(r.Context(), activeOnly)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		out := make([]discounts.DiscountCodeDTO, 0, len(codes))
		for _, code := range codes {
			out = append(out, discounts.ToDTO(code))
		}
		responses.WriteSuccess(w, out)
	}
}

type createDiscountPayload struct {
	Code       string          `json:"code" validate:"required,max=32"`
	Type       string          `json:"type" validate:"required,oneof=percentage fixed"`
	Value      decimal.Decimal `json:"value"`
	ValidFrom  *time.Time      `json:"valid_from"`
	ValidUntil *time.Time      `json:"valid_until"`
	Active     *bool           `json:"active"`
}

func AdminDiscountCreate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			discountServiceMissing(w, r, logg)
			return
		}
		var body createDiscountPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), discounts.CreateInput{
			Code:       body.Code,
			Type:       enums.DiscountType(strings.ToLower(body.Type)),
			Value:      body.Value,
			ValidFrom:  body.ValidFrom,
			ValidUntil: body.ValidUntil,
			Active:     body.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, discounts.ToDTO(*created))
	}
}

func AdminDiscountGet(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			discountServiceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, discountIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		code, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discounts.ToDTO(*code))
	}
}

type updateDiscountPayload struct {
	Value           *decimal.Decimal `json:"value"`
	ValidFrom       *time.Time       `json:"valid_from"`
	ValidUntil      *time.Time       `json:"valid_until"`
	ClearValidUntil bool             `json:"clear_valid_until"`
	Active          *bool            `json:"active"`
}

func AdminDiscountUpdate(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			discountServiceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, discountIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body updateDiscountPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var updated *models.DiscountCode
		updated, err = svc.Update(r.Context(), id, discounts.UpdateInput{
			Value:           body.Value,
			ValidFrom:       body.ValidFrom,
			ValidUntil:      body.ValidUntil,
			ClearValidUntil: body.ClearValidUntil,
			Active:          body.Active,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, discounts.ToDTO(*updated))
	}
}

// AdminDiscountDelete deactivates the code. Quotations keep referencing it.
func AdminDiscountDelete(svc discounts.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			discountServiceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, discountIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Deactivate(r.Context(), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
