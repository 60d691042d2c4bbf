package controllers

import (
	"net/http"
	"time"

	"github.com/angelmondragon/haulbook-backend/api/middleware"
	"github.com/angelmondragon/haulbook-backend/api/responses"
	"github.com/angelmondragon/haulbook-backend/api/validators"
	"github.com/angelmondragon/haulbook-backend/internal/admins"
	"github.com/angelmondragon/haulbook-backend/internal/auth"
	"github.com/angelmondragon/haulbook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

// SessionCookie describes how the admin session cookie is written.
type SessionCookie struct {
	Name   string
	Domain string
	Secure bool
}

// NewSessionCookie derives cookie settings from config; cookies are Secure outside dev.
func NewSessionCookie(cfg *config.Config) SessionCookie {
	name := cfg.JWT.CookieName
	if name == "" {
		name = config.DefaultSessionCookieName
	}
	return SessionCookie{Name: name, Domain: cfg.JWT.CookieDomain, Secure: !cfg.App.IsDev()}
}

func (c SessionCookie) write(w http.ResponseWriter, value string, expires time.Time) {
	cookie := &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		Domain:   c.Domain,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
	if value == "" {
		cookie.MaxAge = -1
		cookie.Expires = time.Unix(0, 0)
	} else {
		cookie.Expires = expires
	}
	http.SetCookie(w, cookie)
}

type loginPayload struct {
	Username string `json:"username" validate:"required_without=Email,max=254"`
	Email    string `json:"email" validate:"required_without=Username,max=254"`
	Password string `json:"password" validate:"required,max=256"`
}

// AdminAuthLogin verifies credentials and sets the session cookie.
func AdminAuthLogin(svc auth.Service, cookie SessionCookie, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "auth service unavailable"))
			return
		}

		var body loginPayload
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		login := body.Username
		if login == "" {
			login = body.Email
		}

		result, err := svc.Login(r.Context(), auth.LoginRequest{Username: login, Password: body.Password})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		cookie.write(w, result.Token, result.ExpiresAt)
		responses.WriteSuccess(w, result)
	}
}

// AdminAuthLogout expires the cookie. Sessions are stateless so nothing else is revoked.
func AdminAuthLogout(cookie SessionCookie) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		cookie.write(w, "", time.Time{})
		responses.WriteNoContent(w)
	}
}

func AdminAuthMe(svc admins.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "admin service unavailable"))
			return
		}
		adminID := middleware.AdminIDFromContext(r.Context())
		if adminID == 0 {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required"))
			return
		}
		admin, err := svc.Get(r.Context(), adminID)
		if err != nil {
			if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
				err = pkgerrors.New(pkgerrors.CodeUnauthorized, "session no longer valid")
			}
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, admin)
	}
}
