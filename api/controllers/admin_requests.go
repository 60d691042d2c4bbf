package controllers

import (
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/haulbook-backend/api/middleware"
	"github.com/angelmondragon/haulbook-backend/api/responses"
	"github.com/angelmondragon/haulbook-backend/api/validators"
	"github.com/angelmondragon/haulbook-backend/internal/requests"
	"github.com/angelmondragon/haulbook-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/angelmondragon/haulbook-backend/pkg/pagination"
)

const requestIDParam = "requestId"

func AdminRequestList(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			requestServiceMissing(w, r, logg)
			return
		}
		limit, err := validators.ParseQueryInt(r, "limit", pagination.DefaultLimit, 1, pagination.MaxLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params := requests.ListParams{Limit: limit, Cursor: strings.TrimSpace(r.URL.Query().Get("cursor"))}
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			status, err := enums.ParseRequestStatus(raw)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "unknown status filter").
					WithDetails(map[string]any{"field": "status"}))
				return
			}
			params.Status = &status
		}

		list, err := svc.List(r.Context(), params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type requestDetail struct {
	requests.RequestDTO
	History []statusEventDTO `json:"history"`
}

type statusEventDTO struct {
	From      enums.RequestStatus `json:"from,omitempty"`
	To        enums.RequestStatus `json:"to"`
	Actor     string              `json:"actor"`
	CreatedAt time.Time           `json:"created_at"`
}

// AdminRequestGet returns the request with its status history.
func AdminRequestGet(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			requestServiceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, requestIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.Get(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		events, err := svc.History(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		detail := requestDetail{RequestDTO: *req, History: make([]statusEventDTO, 0, len(events))}
		for _, ev := range events {
			dto := statusEventDTO{To: ev.ToStatus, Actor: ev.Actor, CreatedAt: ev.CreatedAt.UTC()}
			if ev.FromStatus != nil {
				dto.From = *ev.FromStatus
			}
			detail.History = append(detail.History, dto)
		}
		responses.WriteSuccess(w, detail)
	}
}

type quotePayload struct {
	Subtotal     decimal.Decimal `json:"subtotal"`
	DiscountCode string          `json:"discount_code" validate:"max=32"`
	Note         string          `json:"note" validate:"max=2000"`
}

// AdminRequestQuote prices a RECEIVED request and emails the booking link.
func AdminRequestQuote(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			requestServiceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, requestIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body quotePayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		result, err := svc.SendQuote(r.Context(), requests.QuoteInput{
			RequestID:    id,
			Subtotal:     body.Subtotal,
			DiscountCode: body.DiscountCode,
			Note:         body.Note,
			Actor:        middleware.ActorFromContext(r.Context()),
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func AdminRequestInvoice(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			requestServiceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, requestIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		result, err := svc.Invoice(r.Context(), id, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

type adminCancelPayload struct {
	WaiveFee bool `json:"waive_fee"`
}

func AdminRequestCancel(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			requestServiceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, requestIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body adminCancelPayload
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		result, err := svc.Cancel(r.Context(), requests.CancelInput{
			RequestID: id,
			Actor:     middleware.ActorFromContext(r.Context()),
			WaiveFee:  body.WaiveFee,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
