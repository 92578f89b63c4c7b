package auth

import (
	"context"

	"github.com/MrSnakeDoc/keeper/internal/domain"
)

type ctxKey struct{}

// WithSession stores the verified session in ctx.
func WithSession(ctx context.Context, sess domain.Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, sess)
}

// SessionFrom returns the session placed by the auth middleware.
func SessionFrom(ctx context.Context) (domain.Session, bool) {
	sess, ok := ctx.Value(ctxKey{}).(domain.Session)
	return sess, ok && sess.Authenticated()
}

// CurrentUser returns the authenticated user, or nil.
func CurrentUser(ctx context.Context) *domain.User {
	sess, ok := SessionFrom(ctx)
	if !ok {
		return nil
	}
	return sess.User
}
