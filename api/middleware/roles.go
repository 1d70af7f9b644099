package middleware

import (
	"net/http"

	"github.com/civicgrid/resident-portal/api/responses"
	"github.com/civicgrid/resident-portal/pkg/enums"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
)

// RequireRole rejects callers whose role is not one of roles.
func RequireRole(logg *logger.Logger, roles ...enums.UserRole) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			role := RoleFromContext(r.Context())
			for _, allowed := range roles {
				if role == allowed {
					next.ServeHTTP(w, r)
					return
				}
			}
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeForbidden, "role required"))
		})
	}
}

// RequireElevated admits admin and staff callers.
func RequireElevated(logg *logger.Logger) func(http.Handler) http.Handler {
	return RequireRole(logg, enums.ElevatedRoles...)
}
