package auth

import (
	"context"

	"github.com/goliatone/go-router"
)

var partnerCtxKey = &contextKey{"partner"}
var directoryCtxKey = &contextKey{"directory"}

type contextKey struct {
	name string
}

// WithPartner sets the authenticated partner in the given context
func WithPartner(ctx context.Context, partner *AuthPartner) context.Context {
	return context.WithValue(ctx, partnerCtxKey, partner)
}

// PartnerFromContext finds the authenticated partner from the context.
func PartnerFromContext(ctx context.Context) (*AuthPartner, bool) {
	raw, ok := ctx.Value(partnerCtxKey).(*AuthPartner)
	return raw, ok
}

// WithDirectory sets the active directory in the given context
func WithDirectory(ctx context.Context, directory *Directory) context.Context {
	return context.WithValue(ctx, directoryCtxKey, directory)
}

// DirectoryFromContext finds the active directory from the context.
func DirectoryFromContext(ctx context.Context) (*Directory, bool) {
	raw, ok := ctx.Value(directoryCtxKey).(*Directory)
	return raw, ok
}

// RouterPartner extracts the authenticated partner from the router
// context locals.
func RouterPartner(ctx router.Context, key string) (*AuthPartner, bool) {
	if key == "" {
		key = "partner"
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	partner, ok := raw.(*AuthPartner)
	return partner, ok
}
