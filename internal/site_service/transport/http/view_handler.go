package http

import (
	"bytes"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aradsms/sms_inbox_site/internal/site_service/adapters/provider"
	"github.com/aradsms/sms_inbox_site/internal/site_service/app"
	"github.com/aradsms/sms_inbox_site/internal/site_service/content"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var viewPages = []string{"home", "number", "text_page", "blog", "post", "login", "admin", "not_found"}

var templateFuncs = template.FuncMap{
	// raw emits admin-authored HTML such as ad slots unescaped.
	"raw":        func(s string) template.HTML { return template.HTML(s) },
	"render":     content.Render,
	"pathEscape": url.PathEscape,
	"date":       func(t time.Time) string { return t.UTC().Format("Jan 2, 2006") },
	"activity":   activity,
}

func activity(t time.Time) string {
	if t.IsZero() || t.Equal(domain.EpochActivity) {
		return "no activity yet"
	}
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return "just now"
	case d < time.Hour:
		return fmt.Sprintf("%d min ago", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%d h ago", int(d.Hours()))
	default:
		return fmt.Sprintf("%d days ago", int(d.Hours()/24))
	}
}

func parseViews() (map[string]*template.Template, error) {
	views := make(map[string]*template.Template, len(viewPages))
	for _, name := range viewPages {
		t, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		views[name] = t
	}
	return views, nil
}

type viewData struct {
	Settings    domain.Settings
	FooterPages []domain.CustomPage
	Page        any
}

type textPage struct {
	Title string
	Body  template.HTML
}

type providerStatus struct {
	Name       domain.ProviderName
	Configured bool
}

// ViewHandler renders the server-side HTML pages.
type ViewHandler struct {
	snapshot        *app.SettingsSnapshot
	numbers         *app.NumberService
	inbox           *app.InboxService
	content         *app.ContentService
	providers       []provider.NumberSource
	refreshInterval time.Duration
	views           map[string]*template.Template
	logger          *slog.Logger
}

func NewViewHandler(snapshot *app.SettingsSnapshot, numbers *app.NumberService, inbox *app.InboxService, contentSvc *app.ContentService,
	providers []provider.NumberSource, refreshInterval time.Duration, logger *slog.Logger) (*ViewHandler, error) {
	views, err := parseViews()
	if err != nil {
		return nil, err
	}
	return &ViewHandler{
		snapshot:        snapshot,
		numbers:         numbers,
		inbox:           inbox,
		content:         contentSvc,
		providers:       providers,
		refreshInterval: refreshInterval,
		views:           views,
		logger:          logger.With("handler", "views"),
	}, nil
}

// RegisterRoutes mounts the public pages. The admin page is mounted by the
// router behind the auth middleware.
func (h *ViewHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Home)
	r.Get("/login", h.Login)
	r.Get("/about", h.staticPage("About", func(s domain.Settings) string { return s.AboutContent }))
	r.Get("/privacy", h.staticPage("Privacy Policy", func(s domain.Settings) string { return s.PrivacyContent }))
	r.Get("/terms", h.staticPage("Terms of Service", func(s domain.Settings) string { return s.TermsContent }))
	r.Get("/blog", h.Blog)
	r.Get("/blog/feed.xml", h.Feed)
	r.Get("/blog/{slug}", h.Post)
	r.Get("/number/{number}", h.Number)
	r.Get("/pages/{slug}", h.CustomPage)
}

func (h *ViewHandler) render(w http.ResponseWriter, r *http.Request, status int, name string, page any) {
	data := viewData{Settings: h.snapshot.Current(), Page: page}
	pages, err := h.content.ListPages(r.Context(), true)
	if err != nil {
		h.logger.WarnContext(r.Context(), "Failed to list footer pages", "error", err)
	}
	for _, p := range pages {
		if p.ShowInFooter {
			data.FooterPages = append(data.FooterPages, p)
		}
	}

	var buf bytes.Buffer
	if err := h.views[name].ExecuteTemplate(&buf, "layout", data); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to render view", "view", name, "error", err)
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func (h *ViewHandler) renderError(w http.ResponseWriter, r *http.Request, err error) {
	if errors.Is(err, domain.ErrNotFound) {
		h.NotFound(w, r)
		return
	}
	h.logger.ErrorContext(r.Context(), "View failed", "path", r.URL.Path, "error", err)
	http.Error(w, "Internal server error", http.StatusInternalServerError)
}

func (h *ViewHandler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "not_found", nil)
}

func (h *ViewHandler) Home(w http.ResponseWriter, r *http.Request) {
	nums, err := h.numbers.GetAvailableNumbers(r.Context())
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "home", struct{ Numbers []domain.PhoneNumber }{enabledOnly(nums)})
}

func (h *ViewHandler) Login(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusOK, "login", nil)
}

func (h *ViewHandler) Admin(w http.ResponseWriter, r *http.Request) {
	s := h.snapshot.Current()
	statuses := make([]providerStatus, 0, len(h.providers))
	for _, p := range h.providers {
		statuses = append(statuses, providerStatus{Name: p.Name(), Configured: p.Configured(s)})
	}
	h.render(w, r, http.StatusOK, "admin", struct{ Providers []providerStatus }{statuses})
}

func (h *ViewHandler) staticPage(title string, body func(domain.Settings) string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		text := body(h.snapshot.Current())
		h.render(w, r, http.StatusOK, "text_page", textPage{Title: title, Body: content.Render(content.DetectFormat(text), text)})
	}
}

func (h *ViewHandler) Blog(w http.ResponseWriter, r *http.Request) {
	posts, err := h.content.ListPosts(r.Context(), true)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "blog", struct{ Posts []domain.BlogPost }{posts})
}

func (h *ViewHandler) Post(w http.ResponseWriter, r *http.Request) {
	post, err := h.content.PostBySlug(r.Context(), chi.URLParam(r, "slug"), true)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "post", struct{ Post domain.BlogPost }{post})
}

func (h *ViewHandler) CustomPage(w http.ResponseWriter, r *http.Request) {
	page, err := h.content.PageBySlug(r.Context(), chi.URLParam(r, "slug"), true)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	h.render(w, r, http.StatusOK, "text_page", textPage{Title: page.Title, Body: content.Render(page.Format, page.Content)})
}

type numberPage struct {
	Number         domain.PhoneNumber
	Messages       []domain.SMSMessage
	Error          string
	RefreshSeconds int
}

// Number renders the inbox with a first fetch. Provider failures are shown
// on the page; the stream retries on its countdown.
func (h *ViewHandler) Number(w http.ResponseWriter, r *http.Request) {
	value, err := numberParam(r)
	if err != nil {
		h.NotFound(w, r)
		return
	}
	num, err := h.inbox.PublicNumber(r.Context(), value)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	page := numberPage{Number: num, RefreshSeconds: int(h.refreshInterval / time.Second)}
	msgs, err := h.inbox.Messages(r.Context(), value)
	if err != nil {
		page.Error = err.Error()
	}
	page.Messages = msgs
	h.render(w, r, http.StatusOK, "number", page)
}

// Feed serves the RSS 2.0 feed of published posts.
func (h *ViewHandler) Feed(w http.ResponseWriter, r *http.Request) {
	scheme := "http"
	if r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https" {
		scheme = "https"
	}
	feed, err := h.content.Feed(r.Context(), scheme+"://"+r.Host)
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	rss, err := feed.ToRss()
	if err != nil {
		h.renderError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/rss+xml; charset=utf-8")
	_, _ = w.Write([]byte(rss))
}
