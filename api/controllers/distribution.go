package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/api/middleware"
	"github.com/civicgrid/resident-portal/api/responses"
	"github.com/civicgrid/resident-portal/api/validators"
	"github.com/civicgrid/resident-portal/internal/batches"
	"github.com/civicgrid/resident-portal/internal/reporting"
	"github.com/civicgrid/resident-portal/pkg/enums"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
)

const maxFeedLimit = 1000

type batchItemRequest struct {
	InventoryItemID string `json:"inventoryItemId" validate:"required,uuid"`
	Qty             int    `json:"qty" validate:"gt=0"`
}

type batchGenerateRequest struct {
	Name        string             `json:"name" validate:"required,max=160"`
	TargetClass string             `json:"targetClass" validate:"required,max=60"`
	Items       []batchItemRequest `json:"items" validate:"required,min=1,dive"`
}

func (r batchGenerateRequest) toInput() (batches.CreateBatchInput, error) {
	items := make([]batches.ItemRequest, 0, len(r.Items))
	for _, item := range r.Items {
		id, err := uuid.Parse(item.InventoryItemID)
		if err != nil {
			return batches.CreateBatchInput{}, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid inventoryItemId")
		}
		items = append(items, batches.ItemRequest{InventoryItemID: id, Qty: item.Qty})
	}
	return batches.CreateBatchInput{
		Name:        validators.SanitizeString(r.Name, 160),
		TargetClass: enums.ParseClassification(r.TargetClass),
		Items:       items,
	}, nil
}

// BatchList returns every batch with its claimed and eligible counters.
func BatchList(svc batches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}

		list, err := svc.ListBatches(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// BatchDetail returns one batch with its configured item lines.
func BatchDetail(svc batches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}
		batchID, err := validators.ParseUUID(chi.URLParam(r, "batchId"), "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		batch, err := svc.GetBatch(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, batch)
	}
}

// BatchGenerate creates a distribution batch and its items.
func BatchGenerate(svc batches.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "batch service unavailable"))
			return
		}

		var payload batchGenerateRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input, err := payload.toInput()
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		batch, err := svc.CreateBatch(r.Context(), input, middleware.ActorFromContext(r.Context()))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, batch)
	}
}

// DistributionFeed lists handed-out claims, newest first. An optional
// ?limit caps the number of entries.
func DistributionFeed(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}

		limit, err := validators.ParseQueryInt(r, "limit", 0, 0, maxFeedLimit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		feed, err := svc.ClaimFeed(r.Context(), limit)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, feed)
	}
}

// DistributionRoster lists the residents of a batch with their claim status.
func DistributionRoster(svc reporting.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "reporting service unavailable"))
			return
		}

		batchID, err := validators.ParseUUID(chi.URLParam(r, "batchId"), "batchId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		roster, err := svc.BatchRoster(r.Context(), batchID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, roster)
	}
}
