package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"math"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	"github.com/angelmondragon/haulbook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
)

type windowCounter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
	RateLimitKey(scope string) string
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// throttleDimension counts attempts by one attribute of the request. key
// returns "" when the attribute is absent.
type throttleDimension struct {
	name  string
	limit int
	key   func(r *http.Request, body []byte) string
}

// LoginThrottle limits sign-in attempts per client address and per login
// name within a fixed window. Login names are hashed before they reach redis.
func LoginThrottle(cfg config.AuthRateLimitConfig, store windowCounter, logg *logger.Logger) func(http.Handler) http.Handler {
	var dims []throttleDimension
	if cfg.LoginIPLimit > 0 {
		trust := cfg.TrustProxyHeaders
		dims = append(dims, throttleDimension{name: "ip", limit: cfg.LoginIPLimit, key: func(r *http.Request, _ []byte) string {
			return clientAddr(r, trust)
		}})
	}
	if cfg.LoginUsernameLimit > 0 {
		dims = append(dims, throttleDimension{name: "login", limit: cfg.LoginUsernameLimit, key: loginFingerprint})
	}

	return func(next http.Handler) http.Handler {
		if store == nil || cfg.LoginWindow <= 0 || len(dims) == 0 {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			for _, dim := range dims {
				value := dim.key(r, body)
				if value == "" {
					continue
				}
				scope := "admin_login:" + dim.name + ":" + value
				allowed, attempts, err := store.FixedWindowAllow(ctx, scope, int64(dim.limit), cfg.LoginWindow)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "login throttle"))
					return
				}
				if allowed {
					continue
				}

				wait := cfg.LoginWindow
				if ttl, err := store.TTL(ctx, store.RateLimitKey(scope)); err == nil && ttl > 0 {
					wait = ttl
				}
				w.Header().Set("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
				if logg != nil {
					logg.Warn(logg.WithFields(ctx, map[string]any{
						"dimension": dim.name,
						"attempts":  attempts,
						"limit":     dim.limit,
					}), "auth.login.throttled")
				}
				responses.WriteError(ctx, nil, w, pkgerrors.New(pkgerrors.CodeRateLimit, "too many login attempts"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientAddr prefers the left-most X-Forwarded-For hop when the service sits
// behind a trusted proxy.
func clientAddr(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			first, _, _ := strings.Cut(fwd, ",")
			if ip := strings.TrimSpace(first); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

func loginFingerprint(_ *http.Request, body []byte) string {
	var creds struct {
		Username string `json:"username"`
		Email    string `json:"email"`
	}
	if json.Unmarshal(body, &creds) != nil {
		return ""
	}
	login := creds.Username
	if login == "" {
		login = creds.Email
	}
	login = strings.ToLower(strings.TrimSpace(login))
	if login == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(login))
	return hex.EncodeToString(sum[:8])
}
