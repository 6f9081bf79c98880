package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

var (
	ErrUnknownProvider = errors.New("auth: unknown provider")
	ErrExchange        = errors.New("auth: code exchange failed")
)

// Provider is an OAuth authorization-code identity provider.
type Provider interface {
	ID() string
	Name() string
	AuthCodeURL(state, redirectURL string) string
	Exchange(ctx context.Context, code, redirectURL string) (*Identity, error)
}

// OAuthConfig describes an OAuth 2.0 provider with an OpenID style user-info
// endpoint.
type OAuthConfig struct {
	ID           string
	Name         string
	ClientID     string
	ClientSecret string
	Endpoint     oauth2.Endpoint
	UserInfoURL  string
	Scopes       []string
	// HTTPClient is used for the token and user-info calls when set.
	HTTPClient *http.Client
}

const googleUserInfoURL = "https://openidconnect.googleapis.com/v1/userinfo"

// GoogleConfig returns the Google provider settings for the given client.
func GoogleConfig(clientID, clientSecret string) OAuthConfig {
	return OAuthConfig{
		ID:           "google",
		Name:         "Google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		UserInfoURL:  googleUserInfoURL,
		Scopes:       []string{"openid", "email", "profile"},
	}
}

type oauthProvider struct {
	cfg OAuthConfig
}

// NewOAuthProvider builds a Provider from cfg.
func NewOAuthProvider(cfg OAuthConfig) Provider {
	return &oauthProvider{cfg: cfg}
}

func (p *oauthProvider) ID() string   { return p.cfg.ID }
func (p *oauthProvider) Name() string { return p.cfg.Name }

func (p *oauthProvider) config(redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     p.cfg.ClientID,
		ClientSecret: p.cfg.ClientSecret,
		Endpoint:     p.cfg.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       p.cfg.Scopes,
	}
}

func (p *oauthProvider) AuthCodeURL(state, redirectURL string) string {
	return p.config(redirectURL).AuthCodeURL(state)
}

type userInfo struct {
	Sub     string `json:"sub"`
	Name    string `json:"name"`
	Email   string `json:"email"`
	Picture string `json:"picture"`
}

func (p *oauthProvider) Exchange(ctx context.Context, code, redirectURL string) (*Identity, error) {
	if p.cfg.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, p.cfg.HTTPClient)
	}
	cfg := p.config(redirectURL)

	tok, err := cfg.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchange, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.cfg.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := cfg.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: user info: %v", ErrExchange, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: user info status %d", ErrExchange, resp.StatusCode)
	}

	var info userInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("%w: user info: %v", ErrExchange, err)
	}
	return &Identity{
		Subject: info.Sub,
		Name:    info.Name,
		Email:   info.Email,
		Image:   info.Picture,
	}, nil
}

// Providers is the set of configured providers keyed by id.
type Providers map[string]Provider

// NewProviders indexes ps by id.
func NewProviders(ps ...Provider) Providers {
	out := make(Providers, len(ps))
	for _, p := range ps {
		out[p.ID()] = p
	}
	return out
}

// Get returns the provider with the given id.
func (ps Providers) Get(id string) (Provider, error) {
	p, ok := ps[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, id)
	}
	return p, nil
}

// Sorted returns the providers ordered by id.
func (ps Providers) Sorted() []Provider {
	out := make([]Provider, 0, len(ps))
	for _, p := range ps {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID() < out[j].ID() })
	return out
}
