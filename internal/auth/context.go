package auth

import (
	"context"

	"github.com/limsathya/workspace/internal/model"
)

type contextKey struct{}

// WithUser stores the authenticated user on the request context.
func WithUser(ctx context.Context, u *model.User) context.Context {
	return context.WithValue(ctx, contextKey{}, u)
}

// UserFromContext returns the authenticated user, or nil for anonymous
// requests.
func UserFromContext(ctx context.Context) *model.User {
	u, _ := ctx.Value(contextKey{}).(*model.User)
	return u
}
