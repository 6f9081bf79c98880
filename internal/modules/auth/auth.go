// Package auth signs users in through an OAuth provider, keeps the session in
// a signed cookie and guards the vendor pages.
package auth

import (
	"context"
	"time"
)

// Identity is what a provider reports about the signed-in user.
type Identity struct {
	Subject string `json:"-"`
	Name    string `json:"name,omitempty"`
	Email   string `json:"email,omitempty"`
	Image   string `json:"image,omitempty"`
}

// Principal is a verified session.
type Principal struct {
	Identity
	Provider string
	TokenID  string
	Expires  time.Time
}

// DisplayName is the name shown in the navigation bar.
func (p Principal) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	if p.Email != "" {
		return p.Email
	}
	return "User"
}

// Verifier checks a session token. Any OAuth-backed session scheme can be
// plugged into the route guard through it.
type Verifier interface {
	Verify(ctx context.Context, token string) (Principal, bool)
}

type principalKey struct{}

// WithPrincipal returns a context carrying p.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// FromContext returns the session attached by the Session middleware.
func FromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}
