package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "github.com/angelmondragon/haulbook-backend/pkg/errors"
)

type fakeStore struct {
	mu   sync.Mutex
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key], _ = value.(string)
	f.ttls[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, k := range keys {
		delete(f.data, k)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "fake:" + scope + ":" + id
}

type failingStore struct{ *fakeStore }

func (failingStore) SetNX(context.Context, string, any, time.Duration) (bool, error) {
	return false, errors.New("redis down")
}

const intentPath = "/api/public/bookings/tok/payment-intent"

func post(body, key string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, intentPath, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	return req
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(resp.Body.Bytes(), &payload))
	return payload.Error.Code
}

func TestIdempotentPassesThroughWithoutKey(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotent(store, StandardWrite, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusCreated)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, post(`{"a":1}`, ""))
		assert.Equal(t, http.StatusCreated, resp.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotentRequiresKey(t *testing.T) {
	called := false
	handler := Idempotent(newFakeStore(), RequiredPaymentWrite, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, post(`{}`, ""))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, resp))
	assert.False(t, called)
}

func TestIdempotentReplaysRecordedResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotent(store, PaymentWrite, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, post(`{"foo":"bar"}`, "abc"))
	require.Equal(t, http.StatusAccepted, first.Code)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, post(`{"foo":"bar"}`, "abc"))

	assert.Equal(t, http.StatusAccepted, second.Code)
	assert.Equal(t, "application/json", second.Header().Get("Content-Type"))
	assert.Equal(t, "true", second.Header().Get("Idempotent-Replayed"))
	assert.JSONEq(t, `{"ok":true}`, second.Body.String())
	assert.Equal(t, 1, calls)

	for _, ttl := range store.ttls {
		assert.Equal(t, PaymentWrite.TTL, ttl)
	}
}

func TestIdempotentRejectsDifferentBody(t *testing.T) {
	handler := Idempotent(newFakeStore(), StandardWrite, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), post(`{"foo":"bar"}`, "xyz"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, post(`{"foo":"diff"}`, "xyz"))

	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp))
}

func TestIdempotentRejectsInFlightDuplicate(t *testing.T) {
	store := newFakeStore()
	release := make(chan struct{})
	entered := make(chan struct{})
	handler := Idempotent(store, StandardWrite, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
		w.WriteHeader(http.StatusCreated)
	}))

	done := make(chan int)
	go func() {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, post(`{}`, "slow"))
		done <- resp.Code
	}()
	<-entered

	dup := httptest.NewRecorder()
	handler.ServeHTTP(dup, post(`{}`, "slow"))
	assert.Equal(t, http.StatusConflict, dup.Code)

	close(release)
	assert.Equal(t, http.StatusCreated, <-done)
}

func TestIdempotentReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	status := http.StatusServiceUnavailable
	calls := 0
	handler := Idempotent(store, StandardWrite, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(status)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), post(`{}`, "k1"))
	assert.Empty(t, store.data)

	status = http.StatusCreated
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, post(`{}`, "k1"))
	assert.Equal(t, http.StatusCreated, resp.Code)
	assert.Equal(t, 2, calls)
}

func TestIdempotentScopesKeysByPath(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotent(store, StandardWrite, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), post(`{}`, "same"))
	other := httptest.NewRequest(http.MethodPost, "/api/public/bookings/other/payment-intent", strings.NewReader(`{}`))
	other.Header.Set(IdempotencyHeader, "same")
	handler.ServeHTTP(httptest.NewRecorder(), other)

	assert.Equal(t, 2, calls)
}

func TestIdempotentStoreFailure(t *testing.T) {
	handler := Idempotent(failingStore{newFakeStore()}, StandardWrite, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler must not run")
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, post(`{}`, "k"))
	assert.Equal(t, http.StatusServiceUnavailable, resp.Code)
}

func TestIdempotentReleasesKeyWhenHandlerPanics(t *testing.T) {
	store := newFakeStore()
	explode := true
	handler := Recoverer(nil)(Idempotent(store, StandardWrite, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if explode {
			panic("boom")
		}
		w.WriteHeader(http.StatusCreated)
	})))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, post(`{}`, "crash"))
	assert.Equal(t, http.StatusInternalServerError, first.Code)
	assert.Empty(t, store.data)

	explode = false
	retry := httptest.NewRecorder()
	handler.ServeHTTP(retry, post(`{}`, "crash"))
	assert.Equal(t, http.StatusCreated, retry.Code)
}
