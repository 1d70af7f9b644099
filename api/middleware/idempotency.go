package middleware

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/civicgrid/resident-portal/api/responses"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
	pkgredis "github.com/civicgrid/resident-portal/pkg/redis"
	"github.com/civicgrid/resident-portal/pkg/types"
)

const (
	IdempotencyHeader = "Idempotency-Key"
	ReplayedHeader    = "Idempotent-Replayed"

	standardReplayTTL = 24 * time.Hour
	claimReplayTTL    = 7 * 24 * time.Hour
	reservationTTL    = time.Minute
)

// ReplayStore persists reservations and finished responses per key.
type ReplayStore interface {
	pkgredis.IdempotencyStore
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

type idempotencyRule struct {
	method   string
	route    string
	ttl      time.Duration
	optional bool
}

// Claims accept requests without a key; the other writes require one.
var idempotencyRules = []idempotencyRule{
	{method: http.MethodPost, route: "/api/v1/inventory", ttl: standardReplayTTL},
	{method: http.MethodPost, route: "/api/v1/distribution/batch-generate", ttl: standardReplayTTL},
	{method: http.MethodPatch, route: "/api/v1/claim", ttl: claimReplayTTL, optional: true},
}

func ruleFor(method, pattern string) (idempotencyRule, bool) {
	pattern = strings.TrimSuffix(pattern, "/")
	if pattern == "" {
		return idempotencyRule{}, false
	}
	for _, rule := range idempotencyRules {
		if rule.method == method && rule.route == pattern {
			return rule, true
		}
	}
	return idempotencyRule{}, false
}

type replayState string

const (
	stateReserved replayState = "reserved"
	stateDone     replayState = "done"
)

type savedResponse struct {
	State       replayState `json:"state"`
	Fingerprint string      `json:"fingerprint"`
	Status      int         `json:"status,omitempty"`
	ContentType string      `json:"content_type,omitempty"`
	Body        []byte      `json:"body,omitempty"`
}

// Idempotency reserves the key before the handler runs, so a concurrent
// duplicate is rejected instead of executed twice. Finished responses are
// stored and replayed byte for byte, except 5xx and retryable error codes
// such as LOCK_CONFLICT, which release the key so the retry runs again.
func Idempotency(store ReplayStore, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rule, guarded := ruleFor(r.Method, routePattern(r))
			if !guarded || store == nil {
				next.ServeHTTP(w, r)
				return
			}
			ctx := r.Context()

			clientKey := strings.TrimSpace(r.Header.Get(IdempotencyHeader))
			if clientKey == "" {
				if rule.optional {
					next.ServeHTTP(w, r)
					return
				}
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeValidation, IdempotencyHeader+" header required"))
				return
			}

			body, err := io.ReadAll(r.Body)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "read request body"))
				return
			}
			r.Body = io.NopCloser(bytes.NewReader(body))

			fp := fingerprint(body)
			key := store.IdempotencyKey(replayScope(r), clientKey)

			reservation, _ := json.Marshal(savedResponse{State: stateReserved, Fingerprint: fp})
			reserved, err := store.SetNX(ctx, key, string(reservation), reservationTTL)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "reserve idempotency key"))
				return
			}
			if !reserved {
				replayExisting(ctx, logg, store, w, key, fp)
				return
			}

			capture := &responseCapture{ResponseWriter: w}
			next.ServeHTTP(capture, r)

			if capture.retryable() {
				if err := store.Del(ctx, key); err != nil && logg != nil {
					logg.Error(ctx, "idempotency.release_failed", err)
				}
				return
			}
			done, err := json.Marshal(savedResponse{
				State:       stateDone,
				Fingerprint: fp,
				Status:      capture.statusOrOK(),
				ContentType: capture.Header().Get("Content-Type"),
				Body:        capture.body.Bytes(),
			})
			if err == nil {
				err = store.Set(ctx, key, string(done), rule.ttl)
			}
			if err != nil && logg != nil {
				logg.Error(ctx, "idempotency.persist_failed", err)
			}
		})
	}
}

func replayExisting(ctx context.Context, logg *logger.Logger, store ReplayStore, w http.ResponseWriter, key, fp string) {
	raw, err := store.Get(ctx, key)
	if pkgredis.IsNil(err) {
		// Reservation expired or was released between SETNX and GET.
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still being processed"))
		return
	}
	if err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load idempotency record"))
		return
	}

	var saved savedResponse
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode idempotency record"))
		return
	}
	switch {
	case saved.Fingerprint != fp:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "idempotency key reused with different request body"))
	case saved.State != stateDone:
		responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeIdempotency, "request with this idempotency key is still being processed"))
	default:
		if saved.ContentType != "" {
			w.Header().Set("Content-Type", saved.ContentType)
		}
		w.Header().Set(ReplayedHeader, "true")
		w.WriteHeader(saved.Status)
		_, _ = w.Write(saved.Body)
	}
}

// replayScope keeps keys from colliding across callers and endpoints.
func replayScope(r *http.Request) string {
	return strings.Join([]string{UserIDFromContext(r.Context()), r.Method, r.URL.Path}, "|")
}

func fingerprint(body []byte) string {
	sum := sha256.Sum256(body)
	return hex.EncodeToString(sum[:])
}

// routePattern prefers chi's matched pattern so path parameters do not
// explode label or rule cardinality.
func routePattern(r *http.Request) string {
	if r == nil {
		return ""
	}
	if rc := chi.RouteContext(r.Context()); rc != nil {
		if pattern := rc.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

type responseCapture struct {
	http.ResponseWriter
	body   bytes.Buffer
	status int
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

// retryable reports whether the captured answer must not be replayed.
func (c *responseCapture) retryable() bool {
	status := c.statusOrOK()
	if status >= http.StatusInternalServerError {
		return true
	}
	if status < http.StatusBadRequest {
		return false
	}
	var envelope types.ErrorEnvelope
	if err := json.Unmarshal(c.body.Bytes(), &envelope); err != nil || envelope.Error.Code == "" {
		return false
	}
	return pkgerrors.MetadataFor(pkgerrors.Code(envelope.Error.Code)).Retryable
}

func (c *responseCapture) statusOrOK() int {
	if c.status == 0 {
		return http.StatusOK
	}
	return c.status
}
