package auth

import (
	"net/http"
	"net/url"
	"strings"
)

const (
	SessionCookie = "vendora.session-token"
	StateCookie   = "vendora.oauth-state"

	SignInPath      = "/auth/signin"
	DefaultCallback = "/vendors"
)

// Decision is the outcome of the route guard for one request.
type Decision int

const (
	Allow Decision = iota
	RedirectToSignIn
	RedirectToVendors
)

// Protected reports whether path requires a session.
func Protected(path string) bool {
	path = trimSlash(path)
	switch path {
	case "/vendors", "/vendors/new", "/vendors/edit":
		return true
	}
	return strings.HasPrefix(path, "/vendors/edit/")
}

// Decide applies the access rules to a request path.
func Decide(path string, authenticated bool) Decision {
	if authenticated {
		if trimSlash(path) == SignInPath {
			return RedirectToVendors
		}
		return Allow
	}
	if Protected(path) {
		return RedirectToSignIn
	}
	return Allow
}

func trimSlash(path string) string {
	if len(path) > 1 {
		return strings.TrimSuffix(path, "/")
	}
	return path
}

// SignInURL is the sign-in page that returns to callback afterwards.
func SignInURL(callback string) string {
	return SignInPath + "?callbackUrl=" + url.QueryEscape(callback)
}

// TokenFromRequest returns the session cookie value, if any.
func TokenFromRequest(r *http.Request) string {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return ""
	}
	return c.Value
}

// Session attaches the verified principal, when there is one, to the request
// context.
func Session(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := TokenFromRequest(r); token != "" {
				if p, ok := v.Verify(r.Context(), token); ok {
					r = r.WithContext(WithPrincipal(r.Context(), p))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Guard redirects requests according to Decide. It reuses the principal set
// by Session and verifies the cookie itself otherwise.
func Guard(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, authenticated := FromContext(r.Context())
			if !authenticated {
				if token := TokenFromRequest(r); token != "" {
					if p, ok := v.Verify(r.Context(), token); ok {
						authenticated = true
						r = r.WithContext(WithPrincipal(r.Context(), p))
					}
				}
			}

			switch Decide(r.URL.Path, authenticated) {
			case RedirectToSignIn:
				http.Redirect(w, r, SignInURL(r.URL.RequestURI()), http.StatusFound)
			case RedirectToVendors:
				http.Redirect(w, r, DefaultCallback, http.StatusFound)
			default:
				next.ServeHTTP(w, r)
			}
		})
	}
}

// SafeCallbackURL returns raw when it stays on this site and DefaultCallback
// otherwise. Absolute URLs on base's origin are reduced to their path.
func SafeCallbackURL(raw string, base *url.URL) string {
	if raw == "" {
		return DefaultCallback
	}
	u, err := url.Parse(raw)
	if err != nil {
		return DefaultCallback
	}
	absolute := u.Scheme != "" || u.Host != ""
	if absolute {
		if base == nil || u.Scheme != base.Scheme || u.Host != base.Host {
			return DefaultCallback
		}
		u.Scheme, u.Host, u.User = "", "", nil
	}
	if u.Path == "" {
		u.Path = "/"
	}
	out := u.RequestURI()
	if !sameSitePath(out) || !sameSitePath(u.Path) || (!absolute && !sameSitePath(raw)) {
		return DefaultCallback
	}
	return out
}

// sameSitePath reports whether p is a path browsers resolve against the
// current origin.
func sameSitePath(p string) bool {
	return strings.HasPrefix(p, "/") && !strings.HasPrefix(p, "//") && !strings.HasPrefix(p, "/\\")
}
