package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/api/middleware"
	"github.com/civicgrid/resident-portal/api/responses"
	"github.com/civicgrid/resident-portal/api/validators"
	"github.com/civicgrid/resident-portal/internal/reporting"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
)

// ResidentBenefits lists the batches a resident qualifies for.
func ResidentBenefits(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}

		residentID, err := selfOrElevated(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		benefits, err := svc.ResidentBenefits(r.Context(), residentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, benefits)
	}
}

// ResidentClaimStats returns a resident's eligibility and claim counters.
func ResidentClaimStats(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}

		residentID, err := selfOrElevated(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		stats, err := svc.ResidentClaimStats(r.Context(), residentID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, stats)
	}
}

// selfOrElevated resolves {userId} and allows it only for that resident or an elevated role.
func selfOrElevated(r *http.Request) (uuid.UUID, error) {
	residentID, err := validators.ParseUUID(chi.URLParam(r, "userId"), "userId")
	if err != nil {
		return uuid.Nil, err
	}

	ctx := r.Context()
	if middleware.RoleFromContext(ctx).IsElevated() {
		return residentID, nil
	}
	raw := middleware.UserIDFromContext(ctx)
	if raw == "" {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user context missing")
	}
	caller, err := uuid.Parse(raw)
	if err != nil || caller != residentID {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeForbidden, "residents may only view their own benefits")
	}
	return residentID, nil
}
