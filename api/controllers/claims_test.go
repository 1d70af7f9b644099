package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/resident-portal/api/middleware"
	"github.com/civicgrid/resident-portal/internal/claims"
	"github.com/civicgrid/resident-portal/pkg/enums"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
)

func TestClaimSuccess(t *testing.T) {
	batchID, residentID, staffID := uuid.New(), uuid.New(), uuid.New()
	svc := &stubClaimService{result: &claims.ClaimResult{
		BatchID:    batchID,
		ResidentID: residentID,
		Status:     enums.ClaimStatusClaimed,
		Items:      []claims.ClaimedItem{{Name: "Rice", Qty: 5}},
	}}
	body := `{"batchId":"` + batchID.String() + `","residentId":"` + residentID.String() + `"}`
	req := newJSONRequest(http.MethodPatch, "/api/v1/claim", body)
	req = req.WithContext(middleware.WithRole(middleware.WithUserID(req.Context(), staffID.String()), enums.UserRoleStaff))
	rec := httptest.NewRecorder()

	Claim(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, batchID, svc.batchID)
	assert.Equal(t, residentID, svc.residentID)
	require.NotNil(t, svc.actor)
	assert.Equal(t, staffID, svc.actor.UserID)

	var result claims.ClaimResult
	decodeData(t, rec, &result)
	assert.Equal(t, enums.ClaimStatusClaimed, result.Status)
}

func TestClaimAcceptsUserIDKey(t *testing.T) {
	batchID, residentID := uuid.New(), uuid.New()
	svc := &stubClaimService{result: &claims.ClaimResult{}}
	body := `{"batchId":"` + batchID.String() + `","userId":"` + residentID.String() + `"}`
	rec := httptest.NewRecorder()

	Claim(svc, nil).ServeHTTP(rec, newJSONRequest(http.MethodPatch, "/api/v1/claim", body))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, residentID, svc.residentID)
}

func TestClaimRequiresResident(t *testing.T) {
	svc := &stubClaimService{}
	rec := httptest.NewRecorder()

	Claim(svc, nil).ServeHTTP(rec, newJSONRequest(http.MethodPatch, "/api/v1/claim", `{"batchId":"`+uuid.NewString()+`"}`))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, uuid.Nil, svc.batchID)
}

func TestClaimSurfacesLedgerReasons(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		msg    string
	}{
		{"already claimed", pkgerrors.New(pkgerrors.CodeConflict, "already claimed"), http.StatusConflict, "already claimed"},
		{"insufficient stock", pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock for item Rice"), http.StatusConflict, "insufficient stock for item Rice"},
		{"not configured", pkgerrors.New(pkgerrors.CodeConfiguration, "batch has no configured items"), http.StatusUnprocessableEntity, "batch has no configured items"},
		{"missing batch", pkgerrors.New(pkgerrors.CodeNotFound, "batch not found"), http.StatusNotFound, "batch not found"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &stubClaimService{err: tt.err}
			body := `{"batchId":"` + uuid.NewString() + `","residentId":"` + uuid.NewString() + `"}`
			rec := httptest.NewRecorder()

			Claim(svc, nil).ServeHTTP(rec, newJSONRequest(http.MethodPatch, "/api/v1/claim", body))

			require.Equal(t, tt.status, rec.Code)
			assert.Equal(t, tt.msg, decodeError(t, rec).Message)
		})
	}
}
