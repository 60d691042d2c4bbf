package controllers

import (
	"net/http"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	"github.com/angelmondragon/haulbook-backend/api/validators"
	"github.com/angelmondragon/haulbook-backend/internal/payments"
	"github.com/angelmondragon/haulbook-backend/internal/requests"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

const bookingTokenParam = "token"

func bookingToken(w http.ResponseWriter, r *http.Request, logg *logger.Logger) (string, bool) {
	token, err := validators.ParseTokenParam(r, bookingTokenParam)
	if err != nil {
		responses.WriteError(r.Context(), logg, w, err)
		return "", false
	}
	return token, true
}

func requestServiceMissing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "request service unavailable"))
}

// PublicBookingGet shows a quoted booking to the customer holding its token.
func PublicBookingGet(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			requestServiceMissing(w, r, logg)
			return
		}
		token, ok := bookingToken(w, r, logg)
		if !ok {
			return
		}
		booking, err := svc.GetByToken(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, booking)
	}
}

func PublicBookingCancellation(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			requestServiceMissing(w, r, logg)
			return
		}
		token, ok := bookingToken(w, r, logg)
		if !ok {
			return
		}
		preview, err := svc.CancellationPreview(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, preview)
	}
}

func PublicBookingConfirm(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			requestServiceMissing(w, r, logg)
			return
		}
		token, ok := bookingToken(w, r, logg)
		if !ok {
			return
		}
		result, err := svc.Confirm(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

// PublicBookingCancel cancels on the customer's behalf; the fee is never waived here.
func PublicBookingCancel(svc requests.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			requestServiceMissing(w, r, logg)
			return
		}
		token, ok := bookingToken(w, r, logg)
		if !ok {
			return
		}
		result, err := svc.Cancel(r.Context(), requests.CancelInput{Token: token, Actor: requests.ActorCustomer})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}

func paymentsUnavailable(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeDependency, "card payments are not configured"))
}

func PublicBookingSetupIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			paymentsUnavailable(w, r, logg)
			return
		}
		token, ok := bookingToken(w, r, logg)
		if !ok {
			return
		}
		result, err := svc.CreateSetupIntent(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

func PublicBookingPaymentIntent(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			paymentsUnavailable(w, r, logg)
			return
		}
		token, ok := bookingToken(w, r, logg)
		if !ok {
			return
		}
		result, err := svc.CreatePaymentIntent(r.Context(), token)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, result)
	}
}

type confirmPaymentPayload struct {
	PaymentMethodID string `json:"payment_method_id" validate:"max=255"`
}

// PublicPaymentConfirm confirms an intent server-side and marks the booking
// PAID when the processor reports success.
func PublicPaymentConfirm(svc payments.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			paymentsUnavailable(w, r, logg)
			return
		}
		intentID, err := validators.ParseTokenParam(r, "intentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body confirmPaymentPayload
		if r.ContentLength != 0 {
			if err := validators.DecodeJSONBody(r, &body); err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}
		}
		result, err := svc.ConfirmPaymentIntent(r.Context(), intentID, body.PaymentMethodID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
