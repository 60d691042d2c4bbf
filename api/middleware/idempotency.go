package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/angelmondragon/haulbook-backend/api/responses"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
	"github.com/angelmondragon/haulbook-backend/pkg/logger"
	pkgredis "github.com/angelmondragon/haulbook-backend/pkg/redis"
)

// IdempotencyHeader carries the client-chosen key for a retryable write.
const IdempotencyHeader = "Idempotency-Key"

// pendingMarker holds a key while the first request is still running.
const pendingMarker = "pending"

const pendingTTL = 2 * time.Minute

// IdempotencyPolicy controls how long a response is replayable and whether
// callers must send a key at all.
type IdempotencyPolicy struct {
	TTL      time.Duration
	Required bool
}

var (
	// StandardWrite replays booking writes for a day when a key is sent.
	StandardWrite = IdempotencyPolicy{TTL: 24 * time.Hour}
	// PaymentWrite keeps payment replays for a week.
	PaymentWrite = IdempotencyPolicy{TTL: 7 * 24 * time.Hour}
	// RequiredPaymentWrite rejects payment writes that arrive without a key.
	RequiredPaymentWrite = IdempotencyPolicy{TTL: 7 * 24 * time.Hour, Required: true}
)

type storedResponse struct {
	Status      int    `json:"status"`
	ContentType string `json:"content_type,omitempty"`
	Body        []byte `json:"body"`
	Fingerprint string `json:"fingerprint"`
}

// Idempotent guards a single route. The first request with a key reserves it,
// concurrent duplicates get a conflict, and later duplicates replay the
// recorded response. Server errors release the key so the client can retry.
func Idempotent(store pkgredis.IdempotencyStore, policy IdempotencyPolicy, logg *logger.Logger) func(http.Handler) http.Handler {
	if policy.TTL <= 0 {
		policy.TTL = StandardWrite.TTL
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				if policy.Required {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
					return
				}
				next.ServeHTTP(w, r)
				return
			}
			if store == nil {
				next.ServeHTTP(w, r)
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			scope := fmt.Sprintf("%d|%s|%s", AdminIDFromContext(ctx), r.Method, r.URL.Path)
			key := store.IdempotencyKey(scope, clientKey)
			fingerprint := fingerprintBody(body)

			reserved, err := store.SetNX(ctx, key, pendingMarker, pendingTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replay(w, r, store, key, fingerprint, logg)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			defer func() {
				if rec := recover(); rec != nil {
					if err := store.Del(context.WithoutCancel(ctx), key); err != nil && logg != nil {
						logg.Error(ctx, "release idempotency key", err)
					}
					panic(rec)
				}
			}()
			next.ServeHTTP(capture, r)

			status := capture.statusCode()
			if status >= http.StatusInternalServerError {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "release idempotency key", err)
				}
				return
			}

			payload, err := json.Marshal(storedResponse{
				Status:      status,
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
				Fingerprint: fingerprint,
			})
			if err == nil {
				err = store.Set(ctx, key, string(payload), policy.TTL)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "record idempotent response", err)
			}
		})
	}
}

func replay(w http.ResponseWriter, r *http.Request, store pkgredis.IdempotencyStore, key, fingerprint string, logg *logger.Logger) {
	ctx := r.Context()
	raw, err := store.Get(ctx, key)
	if err != nil && !errors.Is(err, redis.Nil) {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}
	if raw == "" || raw == pendingMarker {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "a request with this idempotency key is still in progress"))
		return
	}

	var stored storedResponse
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode idempotency record"))
		return
	}
	if stored.Fingerprint != fingerprint {
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with a different request body"))
		return
	}

	if stored.ContentType != "" {
		w.Header().Set("Content-Type", stored.ContentType)
	}
	w.Header().Set("Idempotent-Replayed", "true")
	w.WriteHeader(stored.Status)
	_, _ = w.Write(stored.Body)
}

func fingerprintBody(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
}

func (c *responseCapture) statusCode() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}

func (c *responseCapture) WriteHeader(code int) {
	if c.status == 0 {
		c.status = code
	}
	c.ResponseWriter.WriteHeader(code)
}

func (c *responseCapture) Write(b []byte) (int, error) {
	if c.status == 0 {
		c.status = http.StatusOK
	}
	c.body.Write(b)
	return c.ResponseWriter.Write(b)
}
