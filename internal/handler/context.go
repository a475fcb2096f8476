package handler

import (
	"context"

	"github.com/dukerupert/stagedemo/internal/model"
)

type contextKey struct{}

// WithIdentity stores the authenticated identity in the context.
func WithIdentity(ctx context.Context, id model.Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

// IdentityFromContext retrieves the authenticated identity from the
// context. The zero Identity means unauthenticated.
func IdentityFromContext(ctx context.Context) model.Identity {
	id, _ := ctx.Value(contextKey{}).(model.Identity)
	return id
}
