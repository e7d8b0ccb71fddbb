package auth

import (
	"context"
	"slices"

	"github.com/go-faster/errors"
)

// ScopeAdmin grants restaurant, menu and order administration.
const ScopeAdmin = "admin"

// ErrKeyNotFound is returned when no active key matches a hash.
var ErrKeyNotFound = errors.New("api key not found")

// APIKey holds the identity and permission data stored for an API key.
type APIKey struct {
	ID      string
	KeyHash string
	Name    string
	UserID  int64
	Scopes  []string
}

// Repository provides lookup of active API keys by their HMAC hash.
type Repository interface {
	FindByHash(ctx context.Context, hash string) (*APIKey, error)
}

// Identity is the authenticated caller of a request.
type Identity struct {
	KeyID  string
	UserID int64
	Name   string
	Scopes []string
}

// HasScope reports whether the identity was granted scope.
func (i Identity) HasScope(scope string) bool {
	return slices.Contains(i.Scopes, scope)
}

// Admin reports whether the identity holds ScopeAdmin.
func (i Identity) Admin() bool {
	return i.HasScope(ScopeAdmin)
}

type identityKey struct{}

// WithIdentity returns a copy of ctx carrying id.
func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// FromContext returns the identity stored by WithIdentity.
func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}
