package webhooks

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v84"

	stripewebhook "github.com/angelmondragon/haulbook-backend/internal/webhooks/stripe"
)

const testSecret = "whsec_test"

func TestStripeWebhookProcessesOnceForDuplicateDelivery(t *testing.T) {
	payload, header := buildSignedEvent(t)
	service := &fakeEventHandler{}
	handler := StripeWebhook(service, fakeSigningClient{secret: testSecret}, newLedger(t), nil)

	for i := 0; i < 2; i++ {
		rec := deliver(handler, payload, header)
		if rec.Code != http.StatusOK {
			t.Fatalf("delivery %d: expected 200, got %d (%s)", i, rec.Code, rec.Body.String())
		}
	}
	if service.calls != 1 {
		t.Fatalf("expected handler called once, got %d", service.calls)
	}
}

func TestStripeWebhookRejectsBadSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t)
	service := &fakeEventHandler{}
	handler := StripeWebhook(service, fakeSigningClient{secret: testSecret}, newLedger(t), nil)

	rec := deliver(handler, payload, "t=1,v1=invalid")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for invalid signature, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("handler should not be invoked on invalid signature")
	}
}

func TestStripeWebhookMissingSignature(t *testing.T) {
	payload, _ := buildSignedEvent(t)
	handler := StripeWebhook(&fakeEventHandler{}, fakeSigningClient{secret: testSecret}, newLedger(t), nil)
	rec := deliver(handler, payload, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 without signature, got %d", rec.Code)
	}
}

func TestStripeWebhookReleasesEventOnFailure(t *testing.T) {
	payload, header := buildSignedEvent(t)
	service := &fakeEventHandler{err: errors.New("db down")}
	handler := StripeWebhook(service, fakeSigningClient{secret: testSecret}, newLedger(t), nil)

	rec := deliver(handler, payload, header)
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 on handler failure, got %d", rec.Code)
	}

	service.err = nil
	rec = deliver(handler, payload, header)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected retry to succeed, got %d", rec.Code)
	}
	if service.calls != 2 {
		t.Fatalf("expected retry to reach handler, calls=%d", service.calls)
	}
}

func TestStripeWebhookDefersConcurrentDelivery(t *testing.T) {
	payload, header := buildSignedEvent(t)
	ledger := newLedger(t)
	var event struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(payload, &event); err != nil {
		t.Fatalf("decode event: %v", err)
	}
	if _, err := ledger.Claim(context.Background(), event.ID); err != nil {
		t.Fatalf("pre-claim: %v", err)
	}

	service := &fakeEventHandler{}
	rec := deliver(StripeWebhook(service, fakeSigningClient{secret: testSecret}, ledger, nil), payload, header)
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 while another delivery holds the event, got %d", rec.Code)
	}
	if service.calls != 0 {
		t.Fatalf("handler must not run for an in-flight event")
	}
}

func TestStripeWebhookUnconfigured(t *testing.T) {
	handler := StripeWebhook(nil, nil, nil, nil)
	rec := deliver(handler, []byte(`{}`), "t=1,v1=x")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected 503 when unconfigured, got %d", rec.Code)
	}
}

func deliver(handler http.Handler, payload []byte, header string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/stripe", bytes.NewReader(payload))
	if header != "" {
		req.Header.Set("Stripe-Signature", header)
	}
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	return rec
}

func newLedger(t *testing.T) *stripewebhook.EventLedger {
	t.Helper()
	ledger, err := stripewebhook.NewEventLedger(newInMemoryStore(), time.Minute)
	if err != nil {
		t.Fatalf("ledger setup: %v", err)
	}
	return ledger
}

func buildSignedEvent(t *testing.T) ([]byte, string) {
	t.Helper()
	intent := &stripe.PaymentIntent{
		ID:       "pi_" + uuid.NewString(),
		Status:   stripe.PaymentIntentStatusSucceeded,
		Amount:   20160,
		Currency: "cad",
		Metadata: map[string]string{"request_id": "7"},
	}
	raw, err := json.Marshal(intent)
	if err != nil {
		t.Fatalf("marshal intent: %v", err)
	}
	event := &stripe.Event{
		ID:         "evt_" + uuid.NewString(),
		Type:       stripe.EventTypePaymentIntentSucceeded,
		Object:     "event",
		APIVersion: stripe.APIVersion,
		Data:       &stripe.EventData{Raw: raw},
	}
	payload, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("marshal event: %v", err)
	}
	return payload, signatureHeader(payload, testSecret, time.Now().Unix())
}

func signatureHeader(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.%s", ts, payload)))
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

type fakeEventHandler struct {
	calls int
	err   error
}

func (f *fakeEventHandler) HandleEvent(ctx context.Context, event *stripe.Event) error {
	f.calls++
	return f.err
}

type fakeSigningClient struct {
	secret string
}

func (c fakeSigningClient) SigningSecret() string {
	return c.secret
}

type inMemoryStore struct {
	mu   sync.Mutex
	data map[string]string
}

func newInMemoryStore() *inMemoryStore {
	return &inMemoryStore{data: map[string]string{}}
}

func (s *inMemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data[key], nil
}

func (s *inMemoryStore) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = fmt.Sprint(value)
	return nil
}

func (s *inMemoryStore) SetNX(ctx context.Context, key string, value any, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.data[key]; ok {
		return false, nil
	}
	s.data[key] = fmt.Sprint(value)
	return true, nil
}

func (s *inMemoryStore) IdempotencyKey(scope, id string) string {
	return "hb:idempotency:" + scope + ":" + id
}

func (s *inMemoryStore) Del(ctx context.Context, keys ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, key := range keys {
		delete(s.data, key)
	}
	return nil
}
