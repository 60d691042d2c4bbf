package middleware

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	pkgAuth "github.com/angelmondragon/haulbook-backend/pkg/auth"
	"github.com/angelmondragon/haulbook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

// Auth validates the admin session from the session cookie, falling back to a
// bearer token, and seeds the request context with the admin identity.
func Auth(cfg config.JWTConfig, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := SessionToken(r, cfg.CookieName)
			if token == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}

			claims, err := pkgAuth.ParseSessionToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid session"))
				return
			}
			adminID, err := claims.AdminID()
			if err != nil || adminID == 0 {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "invalid session"))
				return
			}

			ctx := WithPrincipal(r.Context(), Principal{AdminID: adminID, Username: claims.Username})
			if logg != nil {
				ctx = logg.WithAdminID(ctx, fmt.Sprint(adminID))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// SessionToken reads the session cookie first and the Authorization header second.
func SessionToken(r *http.Request, cookieName string) string {
	if cookieName != "" {
		if c, err := r.Cookie(cookieName); err == nil {
			if v := strings.TrimSpace(c.Value); v != "" {
				return v
			}
		}
	}
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) > 7 && strings.EqualFold(raw[:7], "bearer ") {
		return strings.TrimSpace(raw[7:])
	}
	return ""
}
