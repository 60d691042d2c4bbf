package controllers

import (
	"net/http"

	"github.com/angelmondragon/haulbook-backend/api/middleware"
	"github.com/angelmondragon/haulbook-backend/api/responses"
	"github.com/angelmondragon/haulbook-backend/api/validators"
	"github.com/angelmondragon/haulbook-backend/internal/admins"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

const adminIDParam = "adminId"

func adminServiceMissing(w http.ResponseWriter, r *http.Request, logg *logger.Logger) {
	responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
}

func AdminUserList(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			adminServiceMissing(w, r, logg)
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

type createAdminPayload struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Email    string `json:"email" validate:"required,email,max=254"`
	Password string `json:"password" validate:"required,min=10,max=256"`
}

func AdminUserCreate(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			adminServiceMissing(w, r, logg)
			return
		}
		var body createAdminPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		created, err := svc.Create(r.Context(), admins.CreateInput{
			Username: body.Username,
			Email:    body.Email,
			Password: body.Password,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, created)
	}
}

func AdminUserDelete(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			adminServiceMissing(w, r, logg)
			return
		}
		id, err := validators.ParseIDParam(r, adminIDParam)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.Delete(r.Context(), middleware.AdminIDFromContext(r.Context()), id); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}

type changePasswordPayload struct {
	CurrentPassword string `json:"current_password" validate:"required,max=256"`
	NewPassword     string `json:"new_password" validate:"required,min=10,max=256"`
}

// AdminChangePassword rotates the calling admin's own password.
func AdminChangePassword(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			adminServiceMissing(w, r, logg)
			return
		}
		var body changePasswordPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		err := svc.ChangePassword(r.Context(), admins.ChangePasswordInput{
			AdminID:         middleware.AdminIDFromContext(r.Context()),
			CurrentPassword: body.CurrentPassword,
			NewPassword:     body.NewPassword,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteNoContent(w)
	}
}
