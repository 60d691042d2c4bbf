package validators

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
)

const maxTokenLen = 128

func invalidField(msg, field string) *pkgerrors.Error {
	return pkgerrors.New(pkgerrors.CodeValidation, msg).WithDetails(map[string]any{"field": field})
}

// ParseIDParam reads a positive numeric path parameter.
func ParseIDParam(r *http.Request, name string) (uint, error) {
	id, err := strconv.ParseUint(strings.TrimSpace(chi.URLParam(r, name)), 10, 64)
	if err != nil || id == 0 {
		return 0, invalidField("invalid id", name)
	}
	return uint(id), nil
}

// ParseTokenParam reads an opaque booking token from the path.
func ParseTokenParam(r *http.Request, name string) (string, error) {
	token := strings.TrimSpace(chi.URLParam(r, name))
	if token == "" || len(token) > maxTokenLen {
		return "", invalidField("invalid booking token", name)
	}
	return token, nil
}

// ParseQueryInt returns def when the parameter is absent.
func ParseQueryInt(r *http.Request, key string, def, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, invalidField("query parameter must be numeric", key)
	}
	if v < min || v > max {
		return 0, pkgerrors.New(pkgerrors.CodeValidation, "query parameter out of range").
			WithDetails(map[string]any{"field": key, "min": min, "max": max})
	}
	return v, nil
}

// ParseQueryBool returns def when the parameter is absent.
func ParseQueryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return def, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, invalidField(key+" must be true or false", key)
	}
	return v, nil
}
