package controllers

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/civicgrid/resident-portal/api/middleware"
	"github.com/civicgrid/resident-portal/internal/inventory"
	"github.com/civicgrid/resident-portal/pkg/enums"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
)

func TestInventoryListReturnsItems(t *testing.T) {
	svc := &stubInventoryService{items: []inventory.ItemDTO{{ID: uuid.New(), Name: "Rice", Total: 100, Available: 100}}}
	rec := httptest.NewRecorder()

	InventoryList(svc, nil).ServeHTTP(rec, newJSONRequest(http.MethodGet, "/api/v1/inventory", ""))

	require.Equal(t, http.StatusOK, rec.Code)
	var items []inventory.ItemDTO
	decodeData(t, rec, &items)
	require.Len(t, items, 1)
	assert.Equal(t, "Rice", items[0].Name)
}

func TestInventoryCreateReturns201(t *testing.T) {
	svc := &stubInventoryService{item: &inventory.ItemDTO{ID: uuid.New(), Name: "Rice", Unit: "kg", Total: 100}}
	rec := httptest.NewRecorder()
	req := newJSONRequest(http.MethodPost, "/api/v1/inventory", `{"name":"  Rice ","unit":"kg","total":100}`)

	InventoryCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Rice", svc.created.Name)
	assert.Equal(t, 100, svc.created.Total)
}

func TestInventoryCreateRejectsNegativeTotal(t *testing.T) {
	svc := &stubInventoryService{}
	rec := httptest.NewRecorder()
	req := newJSONRequest(http.MethodPost, "/api/v1/inventory", `{"name":"Rice","total":-1}`)

	InventoryCreate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, string(pkgerrors.CodeValidation), apiErr.Code)
	assert.Empty(t, svc.created.Name)
}

func TestInventoryUpdatePassesOnlyProvidedFields(t *testing.T) {
	id := uuid.New()
	svc := &stubInventoryService{item: &inventory.ItemDTO{ID: id, Name: "Rice", Total: 50}}
	rec := httptest.NewRecorder()
	req := withURLParam(newJSONRequest(http.MethodPut, "/api/v1/inventory/"+id.String(), `{"total":50}`), "itemId", id.String())

	InventoryUpdate(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, svc.updated.Total)
	assert.Equal(t, 50, *svc.updated.Total)
	assert.Nil(t, svc.updated.Name)
}

func TestInventoryUpdateRejectsBadID(t *testing.T) {
	rec := httptest.NewRecorder()
	req := withURLParam(newJSONRequest(http.MethodPut, "/api/v1/inventory/nope", `{"total":5}`), "itemId", "nope")

	InventoryUpdate(&stubInventoryService{}, nil).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInventoryDeleteReferencedItemIs400(t *testing.T) {
	id := uuid.New()
	actorID := uuid.New()
	svc := &stubInventoryService{err: pkgerrors.New(pkgerrors.CodeReferenceConflict, "item referenced by distribution history")}
	rec := httptest.NewRecorder()
	req := withURLParam(newJSONRequest(http.MethodDelete, "/api/v1/inventory/"+id.String(), ""), "itemId", id.String())
	ctx := middleware.WithUserID(req.Context(), actorID.String())
	req = req.WithContext(middleware.WithRole(ctx, enums.UserRoleStaff))

	InventoryDelete(svc, nil).ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	apiErr := decodeError(t, rec)
	assert.Equal(t, "item referenced by distribution history", apiErr.Message)
	assert.Equal(t, id, svc.deleted)
	require.NotNil(t, svc.actor)
	assert.Equal(t, actorID, svc.actor.UserID)
}

func TestInventoryNilServiceIs500(t *testing.T) {
	rec := httptest.NewRecorder()
	InventoryList(nil, nil).ServeHTTP(rec, newJSONRequest(http.MethodGet, "/api/v1/inventory", ""))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
