package controllers

import (
	"net/http"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	"github.com/angelmondragon/haulbook-backend/api/validators"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	"github.com/angelmondragon/haulbook-backend/pkg/servicearea"
)

type postalChecker interface {
	Check(raw string) servicearea.Result
}

type serviceAreaCheckRequest struct {
	PostalCode string `json:"postal_code" validate:"required,max=16"`
}

// PublicServiceAreaCheck answers whether a postal code is served. An
// ineligible code is a normal 200 answer, not an error.
func PublicServiceAreaCheck(checker postalChecker, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if checker == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "service area checker unavailable"))
			return
		}
		var body serviceAreaCheckRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, checker.Check(body.PostalCode))
	}
}
