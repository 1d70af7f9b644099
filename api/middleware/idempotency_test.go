package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/resident-portal/api/responses"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
)

type fakeStore struct {
	data map[string]string
	ttl  map[string]time.Duration
}

func newFakeStore() *fakeStore {
	return &fakeStore{data: map[string]string{}, ttl: map[string]time.Duration{}}
}

func (f *fakeStore) Get(_ context.Context, key string) (string, error) {
	if v, ok := f.data[key]; ok {
		return v, nil
	}
	return "", redis.Nil
}

func (f *fakeStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = ttl
	return nil
}

func (f *fakeStore) SetNX(_ context.Context, key string, value any, ttl time.Duration) (bool, error) {
	if _, ok := f.data[key]; ok {
		return false, nil
	}
	f.data[key] = fmt.Sprint(value)
	f.ttl[key] = ttl
	return true, nil
}

func (f *fakeStore) Del(_ context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.data, key)
	}
	return nil
}

func (f *fakeStore) IdempotencyKey(scope, id string) string {
	return "fake:" + scope + ":" + id
}

func (f *fakeStore) only(t *testing.T) savedResponse {
	t.Helper()
	require.Len(t, f.data, 1)
	var saved savedResponse
	for _, raw := range f.data {
		require.NoError(t, json.Unmarshal([]byte(raw), &saved))
	}
	return saved
}

func routedRequest(method, pattern, body, key string) *http.Request {
	req := httptest.NewRequest(method, pattern, strings.NewReader(body))
	if key != "" {
		req.Header.Set(IdempotencyHeader, key)
	}
	rc := chi.NewRouteContext()
	rc.RoutePatterns = []string{pattern}
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rc))
}

func errorCode(t *testing.T, body io.Reader) string {
	t.Helper()
	var payload struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.NewDecoder(body).Decode(&payload))
	return payload.Error.Code
}

const batchRoute = "/api/v1/distribution/batch-generate"

func TestRuleFor(t *testing.T) {
	tests := []struct {
		name     string
		method   string
		pattern  string
		ttl      time.Duration
		optional bool
		ok       bool
	}{
		{"claim", http.MethodPatch, "/api/v1/claim", claimReplayTTL, true, true},
		{"batch generate", http.MethodPost, batchRoute, standardReplayTTL, false, true},
		{"inventory create", http.MethodPost, "/api/v1/inventory", standardReplayTTL, false, true},
		{"trailing slash", http.MethodPost, "/api/v1/inventory/", standardReplayTTL, false, true},
		{"inventory update", http.MethodPut, "/api/v1/inventory/{itemId}", 0, false, false},
		{"roster read", http.MethodGet, "/api/v1/distribution/{batchId}", 0, false, false},
		{"empty", http.MethodPost, "", 0, false, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule, ok := ruleFor(tt.method, tt.pattern)
			require.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.ttl, rule.ttl)
			assert.Equal(t, tt.optional, rule.optional)
		})
	}
}

func TestIdempotencyOptionalKeyPassesThrough(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for i := 0; i < 2; i++ {
		resp := httptest.NewRecorder()
		handler.ServeHTTP(resp, routedRequest(http.MethodPatch, "/api/v1/claim", `{"batchId":"b"}`, ""))
		assert.Equal(t, http.StatusOK, resp.Code)
	}
	assert.Equal(t, 2, calls)
	assert.Empty(t, store.data)
}

func TestIdempotencyRequiresHeaderOnMandatoryRoutes(t *testing.T) {
	called := false
	handler := Idempotency(newFakeStore(), nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, routedRequest(http.MethodPost, batchRoute, `{}`, ""))

	assert.Equal(t, http.StatusBadRequest, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeValidation), errorCode(t, resp.Body))
	assert.False(t, called)
}

func TestIdempotencyReleasesKeyOnServerError(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), routedRequest(http.MethodPost, "/api/v1/inventory", `{"name":"Rice"}`, "k1"))
	assert.Empty(t, store.data)
}

func TestIdempotencyReleasesKeyOnRetryableConflict(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeLockConflict, "row lock timeout"))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"data":{"claimed":true}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, routedRequest(http.MethodPatch, "/api/v1/claim", `{"batchId":"b-1"}`, "retry-1"))
	require.Equal(t, http.StatusConflict, first.Code)
	assert.Equal(t, string(pkgerrors.CodeLockConflict), errorCode(t, first.Body))
	assert.Empty(t, store.data)

	second := httptest.NewRecorder()
	handler.ServeHTTP(second, routedRequest(http.MethodPatch, "/api/v1/claim", `{"batchId":"b-1"}`, "retry-1"))
	assert.Equal(t, http.StatusOK, second.Code)
	assert.Empty(t, second.Header().Get(ReplayedHeader))
	assert.Equal(t, 2, calls)
	assert.Equal(t, stateDone, store.only(t).State)
}

func TestIdempotencyReplaysFinalConflict(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		responses.WriteError(r.Context(), nil, w, pkgerrors.New(pkgerrors.CodeConflict, "already claimed"))
	}))

	for range 2 {
		handler.ServeHTTP(httptest.NewRecorder(), routedRequest(http.MethodPatch, "/api/v1/claim", `{"batchId":"b-1"}`, "final-1"))
	}
	assert.Equal(t, 1, calls)
	assert.Equal(t, http.StatusConflict, store.only(t).Status)
}

func TestIdempotencyReplaysStoredResponse(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"batchId":"b-1"}}`))
	}))

	first := httptest.NewRecorder()
	handler.ServeHTTP(first, routedRequest(http.MethodPost, batchRoute, `{"name":"June"}`, "abc"))
	require.Equal(t, http.StatusCreated, first.Code)
	assert.Empty(t, first.Header().Get(ReplayedHeader))

	saved := store.only(t)
	assert.Equal(t, stateDone, saved.State)
	for key := range store.ttl {
		assert.Equal(t, standardReplayTTL, store.ttl[key])
	}

	replay := httptest.NewRecorder()
	handler.ServeHTTP(replay, routedRequest(http.MethodPost, batchRoute, `{"name":"June"}`, "abc"))
	assert.Equal(t, http.StatusCreated, replay.Code)
	assert.Equal(t, "application/json", replay.Header().Get("Content-Type"))
	assert.Equal(t, "true", replay.Header().Get(ReplayedHeader))
	assert.Equal(t, `{"data":{"batchId":"b-1"}}`, replay.Body.String())
	assert.Equal(t, 1, calls)
}

func TestIdempotencyRejectsChangedBody(t *testing.T) {
	store := newFakeStore()
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	handler.ServeHTTP(httptest.NewRecorder(), routedRequest(http.MethodPost, batchRoute, `{"name":"June"}`, "xyz"))

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, routedRequest(http.MethodPost, batchRoute, `{"name":"July"}`, "xyz"))
	assert.Equal(t, http.StatusConflict, resp.Code)
	assert.Equal(t, string(pkgerrors.CodeIdempotency), errorCode(t, resp.Body))
}

func TestIdempotencyRejectsDuplicateWhileInFlight(t *testing.T) {
	store := newFakeStore()
	var inner *httptest.ResponseRecorder
	var handler http.Handler
	handler = Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if inner == nil {
			saved := store.only(t)
			assert.Equal(t, stateReserved, saved.State)

			inner = httptest.NewRecorder()
			handler.ServeHTTP(inner, routedRequest(http.MethodPost, batchRoute, `{"name":"June"}`, "dup"))
		}
		w.WriteHeader(http.StatusCreated)
	}))

	outer := httptest.NewRecorder()
	handler.ServeHTTP(outer, routedRequest(http.MethodPost, batchRoute, `{"name":"June"}`, "dup"))

	assert.Equal(t, http.StatusCreated, outer.Code)
	require.NotNil(t, inner)
	assert.Equal(t, http.StatusConflict, inner.Code)
	assert.Equal(t, stateDone, store.only(t).State)
}

func TestIdempotencyScopesKeysPerCaller(t *testing.T) {
	store := newFakeStore()
	calls := 0
	handler := Idempotency(store, nil)(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	for _, user := range []string{"admin-a", "admin-b"} {
		req := routedRequest(http.MethodPost, batchRoute, `{}`, "same-key")
		req = req.WithContext(WithUserID(req.Context(), user))
		handler.ServeHTTP(httptest.NewRecorder(), req)
	}
	assert.Equal(t, 2, calls)
	assert.Len(t, store.data, 2)
}
