package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/georgemunganga/vendora/internal/logging"
	"github.com/go-chi/chi/v5"
)

// Error codes passed to the sign-in page.
const (
	ErrorOAuthSignin   = "OAuthSignin"
	ErrorOAuthCallback = "OAuthCallback"
	ErrorAccessDenied  = "AccessDenied"
)

// Handler serves the /api/auth endpoints.
type Handler struct {
	sessions  *Sessions
	providers Providers
	baseURL   *url.URL
	secure    bool
}

// NewHandler builds the auth endpoints. baseURL is the externally visible
// origin used for provider redirect URLs.
func NewHandler(sessions *Sessions, providers Providers, baseURL string, secureCookies bool) (*Handler, error) {
	u, err := url.Parse(strings.TrimSuffix(baseURL, "/"))
	if err != nil {
		return nil, err
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.New("auth: base URL must be absolute")
	}
	return &Handler{sessions: sessions, providers: providers, baseURL: u, secure: secureCookies}, nil
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Route("/api/auth", func(r chi.Router) {
		r.Get("/providers", h.listProviders)
		r.Get("/signin/{provider}", h.signIn)
		r.Post("/signin/{provider}", h.signIn)
		r.Get("/callback/{provider}", h.callback)
		r.Get("/session", h.session)
		r.Post("/signout", h.signOut)
	})
}

type providerResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	SigninURL   string `json:"signinUrl"`
	CallbackURL string `json:"callbackUrl"`
}

type sessionResponse struct {
	User    Identity  `json:"user"`
	Expires time.Time `json:"expires"`
}

func (h *Handler) redirectURL(providerID string) string {
	return h.baseURL.String() + "/api/auth/callback/" + providerID
}

func (h *Handler) listProviders(w http.ResponseWriter, r *http.Request) {
	out := make(map[string]providerResponse, len(h.providers))
	for _, p := range h.providers.Sorted() {
		out[p.ID()] = providerResponse{
			ID:          p.ID(),
			Name:        p.Name(),
			SigninURL:   h.baseURL.String() + "/api/auth/signin/" + p.ID(),
			CallbackURL: h.redirectURL(p.ID()),
		}
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	p, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		respond(w, http.StatusNotFound, map[string]string{"error": "Unknown provider"})
		return
	}

	callback := SafeCallbackURL(r.FormValue("callbackUrl"), h.baseURL)
	nonce, state, err := h.sessions.IssueState(callback)
	if err != nil {
		logging.FromRequest(r).Error().Err(err).Str(logging.Op, "signin").Msg("issue oauth state")
		http.Redirect(w, r, signInError(ErrorOAuthSignin), http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     StateCookie,
		Value:    state,
		Path:     "/api/auth",
		MaxAge:   int(StateLifetime / time.Second),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	http.Redirect(w, r, p.AuthCodeURL(nonce, h.redirectURL(p.ID())), http.StatusFound)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	log := logging.FromRequest(r)
	h.clearCookie(w, StateCookie, "/api/auth")

	p, err := h.providers.Get(chi.URLParam(r, "provider"))
	if err != nil {
		http.Redirect(w, r, signInError(ErrorOAuthCallback), http.StatusFound)
		return
	}

	q := r.URL.Query()
	if q.Get("error") != "" {
		http.Redirect(w, r, signInError(ErrorAccessDenied), http.StatusFound)
		return
	}

	stateCookie, err := r.Cookie(StateCookie)
	if err != nil {
		http.Redirect(w, r, signInError(ErrorOAuthCallback), http.StatusFound)
		return
	}
	callback, err := h.sessions.VerifyState(stateCookie.Value, q.Get("state"))
	if err != nil {
		log.Warn().Err(err).Str("provider", p.ID()).Msg("oauth state rejected")
		http.Redirect(w, r, signInError(ErrorOAuthCallback), http.StatusFound)
		return
	}

	id, err := p.Exchange(r.Context(), q.Get("code"), h.redirectURL(p.ID()))
	if err != nil {
		log.Error().Err(err).Str("provider", p.ID()).Msg("oauth exchange")
		http.Redirect(w, r, signInError(ErrorOAuthCallback), http.StatusFound)
		return
	}

	token, principal, err := h.sessions.Issue(p.ID(), *id)
	if err != nil {
		log.Error().Err(err).Msg("issue session")
		http.Redirect(w, r, signInError(ErrorOAuthCallback), http.StatusFound)
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  principal.Expires,
		MaxAge:   int(h.sessions.MaxAge() / time.Second),
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
	log.Info().Str("provider", p.ID()).Str("jti", principal.TokenID).Msg("signed in")
	http.Redirect(w, r, SafeCallbackURL(callback, h.baseURL), http.StatusFound)
}

func (h *Handler) session(w http.ResponseWriter, r *http.Request) {
	p, ok := FromContext(r.Context())
	if !ok {
		p, ok = h.sessions.Verify(r.Context(), TokenFromRequest(r))
	}
	if !ok {
		respond(w, http.StatusOK, struct{}{})
		return
	}
	respond(w, http.StatusOK, sessionResponse{User: p.Identity, Expires: p.Expires})
}

func (h *Handler) signOut(w http.ResponseWriter, r *http.Request) {
	p, ok := FromContext(r.Context())
	if !ok {
		p, ok = h.sessions.Verify(r.Context(), TokenFromRequest(r))
	}
	if ok {
		if err := h.sessions.Revoke(r.Context(), p); err != nil {
			logging.FromRequest(r).Error().Err(err).Str("jti", p.TokenID).Msg("revoke session")
		}
	}
	h.clearCookie(w, SessionCookie, "/")

	target := "/"
	if cb := r.FormValue("callbackUrl"); cb != "" {
		target = SafeCallbackURL(cb, h.baseURL)
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

func (h *Handler) clearCookie(w http.ResponseWriter, name, path string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     path,
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

func signInError(code string) string {
	return SignInPath + "?error=" + url.QueryEscape(code)
}

func respond(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
