package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/resident-portal/internal/batches"
	"github.com/civicgrid/resident-portal/internal/claims"
	"github.com/civicgrid/resident-portal/internal/inventory"
	"github.com/civicgrid/resident-portal/internal/reporting"
	"github.com/civicgrid/resident-portal/pkg/outbox"
	"github.com/civicgrid/resident-portal/pkg/types"
)

type stubInventoryService struct {
	items   []inventory.ItemDTO
	item    *inventory.ItemDTO
	err     error
	created inventory.CreateItemInput
	updated inventory.UpdateItemInput
	deleted uuid.UUID
	actor   *outbox.ActorRef
}

func (s *stubInventoryService) List(context.Context) ([]inventory.ItemDTO, error) {
	return s.items, s.err
}

func (s *stubInventoryService) Create(_ context.Context, input inventory.CreateItemInput) (*inventory.ItemDTO, error) {
	s.created = input
	return s.item, s.err
}

func (s *stubInventoryService) Update(_ context.Context, _ uuid.UUID, input inventory.UpdateItemInput) (*inventory.ItemDTO, error) {
	s.updated = input
	return s.item, s.err
}

func (s *stubInventoryService) Delete(_ context.Context, id uuid.UUID, actor *outbox.ActorRef) error {
	s.deleted = id
	s.actor = actor
	return s.err
}

type stubBatchService struct {
	list  []batches.BatchSummary
	batch *batches.BatchDTO
	err   error
	input batches.CreateBatchInput
}

func (s *stubBatchService) ListBatches(context.Context) ([]batches.BatchSummary, error) {
	return s.list, s.err
}

func (s *stubBatchService) CreateBatch(_ context.Context, input batches.CreateBatchInput, _ *outbox.ActorRef) (*batches.BatchDTO, error) {
	s.input = input
	return s.batch, s.err
}

func (s *stubBatchService) GetBatch(context.Context, uuid.UUID) (*batches.BatchDTO, error) {
	return s.batch, s.err
}

type stubClaimService struct {
	result     *claims.ClaimResult
	err        error
	batchID    uuid.UUID
	residentID uuid.UUID
	actor      *outbox.ActorRef
}

func (s *stubClaimService) Claim(_ context.Context, batchID, residentID uuid.UUID, actor *outbox.ActorRef) (*claims.ClaimResult, error) {
	s.batchID = batchID
	s.residentID = residentID
	s.actor = actor
	return s.result, s.err
}

type stubReportingService struct {
	roster    []reporting.RosterEntry
	feed      []reporting.FeedEntry
	benefits  []reporting.BenefitEntry
	stats     *reporting.ClaimStats
	err       error
	limit     int
	requested uuid.UUID
}

func (s *stubReportingService) BatchRoster(_ context.Context, batchID uuid.UUID) ([]reporting.RosterEntry, error) {
	s.requested = batchID
	return s.roster, s.err
}

func (s *stubReportingService) ClaimFeed(_ context.Context, limit int) ([]reporting.FeedEntry, error) {
	s.limit = limit
	return s.feed, s.err
}

func (s *stubReportingService) ResidentBenefits(_ context.Context, residentID uuid.UUID) ([]reporting.BenefitEntry, error) {
	s.requested = residentID
	return s.benefits, s.err
}

func (s *stubReportingService) ResidentClaimStats(_ context.Context, residentID uuid.UUID) (*reporting.ClaimStats, error) {
	s.requested = residentID
	return s.stats, s.err
}

func newJSONRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeData(t *testing.T, rec *httptest.ResponseRecorder, dest any) {
	t.Helper()
	envelope := struct {
		Data json.RawMessage `json:"data"`
	}{}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	require.NoError(t, json.Unmarshal(envelope.Data, dest))
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) types.APIError {
	t.Helper()
	var envelope types.ErrorEnvelope
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&envelope))
	return envelope.Error
}
