package web

import (
	"encoding/base64"
	"net/http"
	"strings"
)

// viewState is the lifecycle of a page's data fetch.
type viewState int

const (
	stateLoading viewState = iota
	stateReady
	stateFailed
)

func (s viewState) String() string {
	switch s {
	case stateReady:
		return "ready"
	case stateFailed:
		return "failed"
	default:
		return "loading"
	}
}

// resolve moves a loading page to ready or failed. Settled states are final.
func (s viewState) resolve(err error) viewState {
	if s != stateLoading {
		return s
	}
	if err != nil {
		return stateFailed
	}
	return stateReady
}

func (s viewState) Loading() bool { return s == stateLoading }
func (s viewState) Ready() bool   { return s == stateReady }
func (s viewState) Failed() bool  { return s == stateFailed }

const flashCookie = "vendora.flash"

const (
	flashSuccess = "success"
	flashError   = "error"
)

// flash is a one-shot notification carried across a redirect.
type flash struct {
	Kind    string
	Message string
}

func (h *Handler) setFlash(w http.ResponseWriter, kind, message string) {
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Value:    base64.RawURLEncoding.EncodeToString([]byte(kind + "\n" + message)),
		Path:     "/",
		MaxAge:   60,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})
}

// popFlash returns the pending notification and clears it.
func (h *Handler) popFlash(w http.ResponseWriter, r *http.Request) *flash {
	c, err := r.Cookie(flashCookie)
	if err != nil {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookie,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   h.secure,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	kind, message, ok := strings.Cut(string(raw), "\n")
	if !ok || (kind != flashSuccess && kind != flashError) {
		return nil
	}
	return &flash{Kind: kind, Message: message}
}
