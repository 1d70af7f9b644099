package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/civicgrid/resident-portal/api/middleware"
	"github.com/civicgrid/resident-portal/api/responses"
	"github.com/civicgrid/resident-portal/api/validators"
	"github.com/civicgrid/resident-portal/internal/inventory"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
)

type createItemRequest struct {
	Name     string `json:"name" validate:"required,max=120"`
	Category string `json:"category" validate:"max=80"`
	Unit     string `json:"unit" validate:"max=40"`
	Total    int    `json:"total" validate:"gte=0"`
}

func (r createItemRequest) toInput() inventory.CreateItemInput {
	return inventory.CreateItemInput{
		Name:     validators.SanitizeString(r.Name, 120),
		Category: validators.SanitizeString(r.Category, 80),
		Unit:     validators.SanitizeString(r.Unit, 40),
		Total:    r.Total,
	}
}

type updateItemRequest struct {
	Name     *string `json:"name,omitempty" validate:"omitempty,min=1,max=120"`
	Category *string `json:"category,omitempty" validate:"omitempty,max=80"`
	Unit     *string `json:"unit,omitempty" validate:"omitempty,max=40"`
	Total    *int    `json:"total,omitempty" validate:"omitempty,gte=0"`
}

func (r updateItemRequest) toInput() inventory.UpdateItemInput {
	return inventory.UpdateItemInput{
		Name:     r.Name,
		Category: r.Category,
		Unit:     r.Unit,
		Total:    r.Total,
	}
}

// InventoryList returns every stocked item.
func InventoryList(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		items, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, items)
	}
}

// InventoryCreate stocks a new item.
func InventoryCreate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		var payload createItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Create(r.Context(), payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccessStatus(w, http.StatusCreated, item)
	}
}

// InventoryUpdate edits the provided fields of an item.
func InventoryUpdate(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		id, err := validators.ParseUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		var payload updateItemRequest
		if err := validators.DecodeJSONBody(r, &payload); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		item, err := svc.Update(r.Context(), id, payload.toInput())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, item)
	}
}

// InventoryDelete removes an item that no claim references.
func InventoryDelete(svc inventory.Service, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "inventory service unavailable"))
			return
		}

		id, err := validators.ParseUUID(chi.URLParam(r, "itemId"), "itemId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}

		if err := svc.Delete(r.Context(), id, middleware.ActorFromContext(r.Context())); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]string{"id": id.String(), "status": "deleted"})
	}
}
