package controllers

import (
	"net/http"

	"github.com/civicgrid/resident-portal/api/middleware"
	"github.com/civicgrid/resident-portal/api/responses"
	"github.com/civicgrid/resident-portal/api/validators"
	"github.com/civicgrid/resident-portal/internal/claims"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
)

// claimRequest accepts the resident under either residentId or the legacy userId key.
type claimRequest struct {
	BatchID    string `json:"batchId" validate:"required,uuid"`
	ResidentID string `json:"residentId" validate:"omitempty,uuid"`
	UserID     string `json:"userId" validate:"omitempty,uuid"`
}

func (r claimRequest) residentRaw() string {
	if r.ResidentID != "" {
		return r.ResidentID
	}
	return r.UserID
}

// Claim hands a batch's items to a resident.
func Claim(svc claims.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "claim service unavailable"))
			return
		}

		var payload claimRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batchID, err := validators.ParseUUID(payload.BatchID, "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		residentID, err := validators.ParseUUID(payload.residentRaw(), "residentId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		ctx := r.Context()
		if logg != nil {
			ctx = logg.WithBatchID(ctx, batchID.String())
			ctx = logg.WithResidentID(ctx, residentID.String())
		}

		result, err := svc.Claim(ctx, batchID, residentID, middleware.ActorFromContext(ctx))
		if err != nil {
			responses.WriteError(ctx, logg, w, err)
			return
		}
		responses.WriteSuccess(w, result)
	}
}
