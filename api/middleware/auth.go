package middleware

import (
	"context"
	"net/http"

	"github.com/civicgrid/resident-portal/api/responses"
	pkgAuth "github.com/civicgrid/resident-portal/pkg/auth"
	"github.com/civicgrid/resident-portal/pkg/config"
	pkgerrors "github.com/civicgrid/resident-portal/pkg/errors"
	"github.com/civicgrid/resident-portal/pkg/logger"
)

// SessionVerifier reports whether the identity service still holds the access session.
type SessionVerifier interface {
	HasAccessSession(ctx context.Context, accessID string) (bool, error)
}

// Auth validates a bearer token and seeds the request context with the caller.
// The session lookup runs only when cfg.CheckSession is set and verifier is non-nil.
func Auth(cfg config.JWTConfig, sessions SessionVerifier, logg *logger.Logger) func(http.Handler) http.Handler {
	tokens, setupErr := pkgAuth.NewVerifier(cfg)
	checkSession := sessions != nil && cfg.CheckSession

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if setupErr != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeInternal, setupErr, "token verification unavailable"))
				return
			}

			raw, ok := pkgAuth.BearerToken(r.Header.Get("Authorization"))
			if !ok {
				responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing credentials"))
				return
			}
			claims, err := tokens.Verify(raw)
			if err != nil {
				responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if checkSession {
				if claims.ID == "" {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
					return
				}
				live, err := sessions.HasAccessSession(ctx, claims.ID)
				if err != nil {
					responses.WriteError(ctx, logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !live {
					responses.WriteError(ctx, logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			userID := claims.UserID.String()
			ctx = WithRole(WithUserID(ctx, userID), claims.Role)
			if logg != nil {
				ctx = logg.WithActorRole(logg.WithUserID(ctx, userID), string(claims.Role))
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
