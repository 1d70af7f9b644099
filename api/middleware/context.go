package middleware

import (
	"context"

	"github.com/google/uuid"

	"github.com/civicgrid/resident-portal/pkg/enums"
	"github.com/civicgrid/resident-portal/pkg/outbox"
)

type callerKey struct{}

// caller is the authenticated principal for one request.
type caller struct {
	userID string
	role   enums.UserRole
}

func callerFrom(ctx context.Context) caller {
	if ctx == nil {
		return caller{}
	}
	c, _ := ctx.Value(callerKey{}).(caller)
	return c
}

func withCaller(ctx context.Context, update func(*caller)) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	c := callerFrom(ctx)
	update(&c)
	return context.WithValue(ctx, callerKey{}, c)
}

func UserIDFromContext(ctx context.Context) string { return callerFrom(ctx).userID }

func RoleFromContext(ctx context.Context) enums.UserRole { return callerFrom(ctx).role }

// ActorFromContext returns the outbox actor for the caller, or nil when the
// request is unauthenticated.
func ActorFromContext(ctx context.Context) *outbox.ActorRef {
	c := callerFrom(ctx)
	id, err := uuid.Parse(c.userID)
	if err != nil {
		return nil
	}
	return &outbox.ActorRef{UserID: id, Role: string(c.role)}
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return withCaller(ctx, func(c *caller) { c.userID = userID })
}

func WithRole(ctx context.Context, role enums.UserRole) context.Context {
	return withCaller(ctx, func(c *caller) { c.role = role })
}
