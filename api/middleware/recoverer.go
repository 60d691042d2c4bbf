package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. http.ErrAbortHandler is
// re-raised so net/http can drop the connection.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		fn := func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if err, ok := v.(error); ok && errors.Is(err, http.ErrAbortHandler) {
					panic(v)
				}

				ctx := r.Context()
				cause := fmt.Errorf("panic in %s %s: %v", r.Method, r.URL.Path, v)
				if logg != nil {
					logg.Error(logg.WithField(ctx, "panic", fmt.Sprint(v)), "http.panic", cause)
				}
				responses.WriteError(ctx, nil, w, pkgerrors.Wrap(pkgerrors.CodeInternal, cause, "unexpected failure"))
			}()
			next.ServeHTTP(w, r)
		}
		return http.HandlerFunc(fn)
	}
}
