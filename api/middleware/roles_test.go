package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/civicgrid/resident-portal/pkg/enums"
)

func TestRequireElevated(t *testing.T) {
	tests := []struct {
		role enums.UserRole
		want int
	}{
		{enums.UserRoleAdmin, http.StatusOK},
		{enums.UserRoleStaff, http.StatusOK},
		{enums.UserRoleResident, http.StatusForbidden},
		{"", http.StatusForbidden},
	}

	for _, tt := range tests {
		handler := RequireElevated(nil)(okHandler())
		req := httptest.NewRequest(http.MethodGet, "/api/v1/inventory", nil)
		req = req.WithContext(WithRole(req.Context(), tt.role))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, tt.want, rec.Code, string(tt.role))
	}
}

func TestRequireRoleSingle(t *testing.T) {
	handler := RequireRole(nil, enums.UserRoleAdmin)(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req = req.WithContext(WithRole(req.Context(), enums.UserRoleStaff))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
