package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/haulbook-backend/pkg/auth"
	"github.com/angelmondragon/haulbook-backend/pkg/config"
)

var testJWT = config.JWTConfig{Secret: "secret", Issuer: "issuer", ExpirationMinutes: 60, CookieName: "haulbook_session"}

func captureAdmin(t *testing.T) (http.Handler, *uint, *string) {
	t.Helper()
	var id uint
	var username string
	handler := Auth(testJWT, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id = AdminIDFromContext(r.Context())
		username = ActorFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))
	return handler, &id, &username
}

func mintTestToken(t *testing.T, cfg config.JWTConfig, now time.Time) string {
	t.Helper()
	token, err := auth.MintSessionToken(cfg, now, auth.SessionPayload{AdminID: 7, Username: "owner"})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	return token
}

func TestAuthRejectsMissingToken(t *testing.T) {
	handler, _, _ := captureAdmin(t)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/", nil))
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestAuthRejectsInvalidAndExpiredTokens(t *testing.T) {
	handler, _, _ := captureAdmin(t)
	for _, token := range []string{"invalid", mintTestToken(t, testJWT, time.Now().Add(-2*time.Hour))} {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, req)
		if resp.Code != http.StatusUnauthorized {
			t.Fatalf("expected 401 got %d", resp.Code)
		}
	}
}

func TestAuthAcceptsCookie(t *testing.T) {
	handler, id, username := captureAdmin(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "haulbook_session", Value: mintTestToken(t, testJWT, time.Now())})
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	if *id != 7 || *username != "owner" {
		t.Fatalf("unexpected identity id=%d username=%q", *id, *username)
	}
}

func TestAuthAcceptsBearerFallback(t *testing.T) {
	handler, id, _ := captureAdmin(t)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "bearer "+mintTestToken(t, testJWT, time.Now()))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusOK || *id != 7 {
		t.Fatalf("expected bearer accepted, code=%d id=%d", resp.Code, *id)
	}
}

func TestSessionTokenPrefersCookie(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sess", Value: "from-cookie"})
	req.Header.Set("Authorization", "Bearer from-header")
	if got := SessionToken(req, "sess"); got != "from-cookie" {
		t.Fatalf("expected cookie token, got %q", got)
	}
	if got := SessionToken(req, ""); got != "from-header" {
		t.Fatalf("expected header token, got %q", got)
	}
}
