package auth

import (
	"context"

	"visadesk/internal/domain"
)

type userKey struct{}

// WithUser attaches the authenticated user to ctx
func WithUser(ctx context.Context, user *domain.User) context.Context {
	return context.WithValue(ctx, userKey{}, user)
}

// UserFromContext returns the authenticated user, if any
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	user, ok := ctx.Value(userKey{}).(*domain.User)
	return user, ok && user != nil
}

// Authorizer decides whether the caller behind ctx holds administrator capability
type Authorizer interface {
	IsAdmin(ctx context.Context) bool
}

// AuthorizerFunc adapts a function to Authorizer
type AuthorizerFunc func(ctx context.Context) bool

func (f AuthorizerFunc) IsAdmin(ctx context.Context) bool { return f(ctx) }

// ContextAuthorizer grants administrator capability to an active admin user
// found in the context
type ContextAuthorizer struct{}

func (ContextAuthorizer) IsAdmin(ctx context.Context) bool {
	user, ok := UserFromContext(ctx)
	return ok && user.IsActive && user.IsAdmin
}
