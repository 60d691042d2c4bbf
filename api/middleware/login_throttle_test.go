package middleware

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/haulbook-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
)

type fakeCounter struct {
	mu     sync.Mutex
	counts map[string]int64
	ttl    time.Duration
}

func newFakeCounter() *fakeCounter {
	return &fakeCounter{counts: map[string]int64{}}
}

func (f *fakeCounter) FixedWindowAllow(_ context.Context, scope string, limit int64, _ time.Duration) (bool, int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[scope]++
	return f.counts[scope] <= limit, f.counts[scope], nil
}

func (f *fakeCounter) RateLimitKey(scope string) string { return "rl:" + scope }

func (f *fakeCounter) TTL(context.Context, string) (time.Duration, error) { return f.ttl, nil }

func loginRequest(login, addr string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/admin/auth/login", strings.NewReader(`{"username":"`+login+`","password":"secret"}`))
	req.RemoteAddr = addr
	return req
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
}

func TestLoginThrottlePreservesBody(t *testing.T) {
	cfg := config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 2, LoginUsernameLimit: 2}
	handler := LoginThrottle(cfg, newFakeCounter(), nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), `"username":"owner"`)
		w.WriteHeader(http.StatusOK)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, loginRequest("owner", "1.2.3.4:5678"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginThrottleByLoginName(t *testing.T) {
	store := newFakeCounter()
	store.ttl = 42 * time.Second
	cfg := config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginUsernameLimit: 2}
	handler := LoginThrottle(cfg, store, nil)(okHandler())

	var rec *httptest.ResponseRecorder
	for i, login := range []string{"owner", " Owner ", "OWNER"} {
		rec = httptest.NewRecorder()
		handler.ServeHTTP(rec, loginRequest(login, "1.2.3.4:5678"))
		if i < 2 {
			require.Equal(t, http.StatusOK, rec.Code)
		}
	}

	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "42", rec.Header().Get("Retry-After"))
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &payload))
	assert.Equal(t, string(pkgerrors.CodeRateLimit), payload.Error.Code)

	for scope := range store.counts {
		assert.NotContains(t, scope, "owner", "login names are hashed")
	}
}

func TestLoginThrottleByAddress(t *testing.T) {
	cases := []struct {
		name  string
		trust bool
		want  string
	}{
		{name: "trusted proxy", trust: true, want: "admin_login:ip:5.6.7.8"},
		{name: "direct", trust: false, want: "admin_login:ip:10.0.0.9"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := newFakeCounter()
			cfg := config.AuthRateLimitConfig{LoginWindow: time.Minute, LoginIPLimit: 1, TrustProxyHeaders: tc.trust}
			handler := LoginThrottle(cfg, store, nil)(okHandler())

			var rec *httptest.ResponseRecorder
			for _, login := range []string{"a", "b"} {
				req := loginRequest(login, "10.0.0.9:4000")
				req.Header.Set("X-Forwarded-For", "5.6.7.8, 10.0.0.1")
				rec = httptest.NewRecorder()
				handler.ServeHTTP(rec, req)
			}

			assert.Equal(t, http.StatusTooManyRequests, rec.Code)
			assert.Equal(t, "60", rec.Header().Get("Retry-After"))
			assert.Contains(t, store.counts, tc.want)
		})
	}
}

func TestLoginThrottleDisabled(t *testing.T) {
	for _, cfg := range []config.AuthRateLimitConfig{
		{LoginIPLimit: 1, LoginUsernameLimit: 1},
		{LoginWindow: time.Minute},
	} {
		rec := httptest.NewRecorder()
		LoginThrottle(cfg, newFakeCounter(), nil)(okHandler()).ServeHTTP(rec, loginRequest("owner", "1.1.1.1:1"))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}
