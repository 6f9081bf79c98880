// Package web renders the vendor management pages.
package web

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/georgemunganga/vendora/internal/logging"
	"github.com/georgemunganga/vendora/internal/modules/auth"
	"github.com/georgemunganga/vendora/internal/modules/vendor"
	"github.com/go-chi/chi/v5"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = []string{"home.html", "signin.html", "vendors.html", "form.html"}

// ProviderLink is a sign-in option shown on the sign-in page.
type ProviderLink struct {
	ID   string
	Name string
}

// Handler serves the HTML pages. Vendor data comes from a vendor.Service,
// normally the HTTP client for the JSON API.
type Handler struct {
	vendors   vendor.Service
	providers []ProviderLink
	templates map[string]*template.Template
	secure    bool
}

func NewHandler(vendors vendor.Service, providers []ProviderLink, secureCookies bool) (*Handler, error) {
	templates := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		t, err := template.New("layout.html").Funcs(funcs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("web: parse %s: %w", name, err)
		}
		templates[name] = t
	}
	return &Handler{
		vendors:   vendors,
		providers: providers,
		templates: templates,
		secure:    secureCookies,
	}, nil
}

func (h *Handler) RegisterRoutes(r *chi.Mux) {
	r.Get("/", h.home)
	r.Get(auth.SignInPath, h.signIn)
	r.Route("/vendors", func(r chi.Router) {
		r.Get("/", h.listVendors)
		r.Post("/", h.vendorAction)
		r.Get("/new", h.newVendor)
		r.Post("/new", h.createVendor)
		r.Get("/edit/{id}", h.editVendor)
		r.Post("/edit/{id}", h.updateVendor)
	})
}

// view is the data every template receives.
type view struct {
	Title  string
	Path   string
	User   *auth.Principal
	Flash  *flash
	State  viewState
	Notice string
	Data   any
}

func (h *Handler) newView(w http.ResponseWriter, r *http.Request, title string) *view {
	v := &view{Title: title, Path: r.URL.Path, Flash: h.popFlash(w, r)}
	if p, ok := auth.FromContext(r.Context()); ok {
		v.User = &p
	}
	return v
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, name string, v *view) {
	var buf bytes.Buffer
	if err := h.templates[name].ExecuteTemplate(&buf, "layout", v); err != nil {
		logging.FromRequest(r).Error().Err(err).Str("template", name).Msg("render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *Handler) home(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r, "Vendora")
	v.State = v.State.resolve(nil)
	h.render(w, r, http.StatusOK, "home.html", v)
}

type signInData struct {
	CallbackURL string
	Providers   []ProviderLink
}

const authFailedMessage = "Authentication failed. Please try again."

func (h *Handler) signIn(w http.ResponseWriter, r *http.Request) {
	v := h.newView(w, r, "Sign in")
	v.State = v.State.resolve(nil)
	if r.URL.Query().Get("error") != "" {
		v.Flash = &flash{Kind: flashError, Message: authFailedMessage}
	}
	v.Data = signInData{
		CallbackURL: auth.SafeCallbackURL(r.URL.Query().Get("callbackUrl"), nil),
		Providers:   h.providers,
	}
	h.render(w, r, http.StatusOK, "signin.html", v)
}

var funcs = template.FuncMap{
	"maskAccount": maskAccount,
	"location":    location,
	"add":         func(a, b int) int { return a + b },
	"pageNumbers": pageNumbers,
}

// maskAccount hides all but the last four characters.
func maskAccount(no string) string {
	r := []rune(no)
	if len(r) <= 4 {
		return no
	}
	return strings.Repeat("*", len(r)-4) + string(r[len(r)-4:])
}

func location(v *vendor.Vendor) string {
	switch {
	case v.City != "" && v.Country != "":
		return v.City + ", " + v.Country
	case v.City != "":
		return v.City
	case v.Country != "":
		return v.Country
	default:
		return "N/A"
	}
}

func pageNumbers(pages int) []int {
	out := make([]int, pages)
	for i := range out {
		out[i] = i + 1
	}
	return out
}
