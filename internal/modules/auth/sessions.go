package auth

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"
)

var ErrInvalidToken = errors.New("auth: invalid token")

const (
	issuer        = "vendora"
	sessionAud    = "session"
	stateAud      = "oauth-state"
	StateLifetime = 10 * time.Minute
)

type sessionClaims struct {
	Name     string `json:"name,omitempty"`
	Email    string `json:"email,omitempty"`
	Picture  string `json:"picture,omitempty"`
	Provider string `json:"provider,omitempty"`
	jwt.RegisteredClaims
}

type stateClaims struct {
	CallbackURL string `json:"callbackUrl"`
	jwt.RegisteredClaims
}

// Sessions issues and verifies signed session and OAuth state tokens.
type Sessions struct {
	sessionKey []byte
	stateKey   []byte
	maxAge     time.Duration
	revoked    RevocationStore
	now        func() time.Time
}

// SessionsOption customises Sessions.
type SessionsOption func(*Sessions)

// WithRevocation enables server-side sign-out.
func WithRevocation(store RevocationStore) SessionsOption {
	return func(s *Sessions) { s.revoked = store }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) SessionsOption {
	return func(s *Sessions) { s.now = now }
}

// NewSessions derives the signing keys from secret.
func NewSessions(secret string, maxAge time.Duration, opts ...SessionsOption) (*Sessions, error) {
	if secret == "" {
		return nil, errors.New("auth: empty session secret")
	}
	sessionKey, err := deriveKey(secret, sessionAud)
	if err != nil {
		return nil, err
	}
	stateKey, err := deriveKey(secret, stateAud)
	if err != nil {
		return nil, err
	}
	s := &Sessions{
		sessionKey: sessionKey,
		stateKey:   stateKey,
		maxAge:     maxAge,
		revoked:    nopRevocations{},
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func deriveKey(secret, purpose string) ([]byte, error) {
	key := make([]byte, 32)
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte("vendora "+purpose))
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("auth: derive %s key: %w", purpose, err)
	}
	return key, nil
}

// MaxAge is the session lifetime.
func (s *Sessions) MaxAge() time.Duration { return s.maxAge }

// Issue signs a session token for id.
func (s *Sessions) Issue(provider string, id Identity) (string, Principal, error) {
	now := s.now().Truncate(time.Second)
	p := Principal{
		Identity: id,
		Provider: provider,
		TokenID:  uuid.NewString(),
		Expires:  now.Add(s.maxAge),
	}
	claims := sessionClaims{
		Name:     id.Name,
		Email:    id.Email,
		Picture:  id.Image,
		Provider: provider,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.Subject,
			Audience:  jwt.ClaimStrings{sessionAud},
			ID:        p.TokenID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(p.Expires),
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.sessionKey)
	if err != nil {
		return "", Principal{}, fmt.Errorf("auth: sign session: %w", err)
	}
	return token, p, nil
}

// Parse validates a session token without consulting the revocation store.
func (s *Sessions) Parse(token string) (Principal, error) {
	var claims sessionClaims
	if _, err := jwt.ParseWithClaims(token, &claims, keyFunc(s.sessionKey), s.parserOptions(sessionAud)...); err != nil {
		return Principal{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.ID == "" || claims.ExpiresAt == nil {
		return Principal{}, ErrInvalidToken
	}
	return Principal{
		Identity: Identity{
			Subject: claims.Subject,
			Name:    claims.Name,
			Email:   claims.Email,
			Image:   claims.Picture,
		},
		Provider: claims.Provider,
		TokenID:  claims.ID,
		Expires:  claims.ExpiresAt.Time,
	}, nil
}

// Verify implements Verifier. A revocation lookup failure rejects the token.
func (s *Sessions) Verify(ctx context.Context, token string) (Principal, bool) {
	if token == "" {
		return Principal{}, false
	}
	p, err := s.Parse(token)
	if err != nil {
		return Principal{}, false
	}
	revoked, err := s.revoked.IsRevoked(ctx, p.TokenID)
	if err != nil || revoked {
		return Principal{}, false
	}
	return p, true
}

// Revoke blocks p's token until it would have expired anyway.
func (s *Sessions) Revoke(ctx context.Context, p Principal) error {
	if p.TokenID == "" {
		return nil
	}
	ttl := p.Expires.Sub(s.now())
	if ttl <= 0 {
		return nil
	}
	return s.revoked.Revoke(ctx, p.TokenID, ttl)
}

// IssueState returns the nonce sent to the provider and the signed cookie
// value that binds it to callbackURL.
func (s *Sessions) IssueState(callbackURL string) (nonce, cookie string, err error) {
	now := s.now().Truncate(time.Second)
	nonce = uuid.NewString()
	claims := stateClaims{
		CallbackURL: callbackURL,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Audience:  jwt.ClaimStrings{stateAud},
			ID:        nonce,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(StateLifetime)),
		},
	}
	cookie, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.stateKey)
	if err != nil {
		return "", "", fmt.Errorf("auth: sign state: %w", err)
	}
	return nonce, cookie, nil
}

// VerifyState checks cookie against the nonce echoed by the provider and
// returns the callback URL recorded at sign-in.
func (s *Sessions) VerifyState(cookie, nonce string) (string, error) {
	var claims stateClaims
	if _, err := jwt.ParseWithClaims(cookie, &claims, keyFunc(s.stateKey), s.parserOptions(stateAud)...); err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if nonce == "" || !hmac.Equal([]byte(claims.ID), []byte(nonce)) {
		return "", fmt.Errorf("%w: state mismatch", ErrInvalidToken)
	}
	return claims.CallbackURL, nil
}

func (s *Sessions) parserOptions(aud string) []jwt.ParserOption {
	return []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(issuer),
		jwt.WithAudience(aud),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	}
}

func keyFunc(key []byte) jwt.Keyfunc {
	return func(*jwt.Token) (interface{}, error) { return key, nil }
}
