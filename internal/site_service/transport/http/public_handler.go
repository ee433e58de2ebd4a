package http

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/aradsms/sms_inbox_site/internal/site_service/app"
	"github.com/aradsms/sms_inbox_site/internal/site_service/content"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// PublicHandler serves the unauthenticated JSON API.
type PublicHandler struct {
	store           *app.SettingsStore
	numbers         *app.NumberService
	inbox           *app.InboxService
	content         *app.ContentService
	refreshInterval time.Duration
	logger          *slog.Logger
}

func NewPublicHandler(store *app.SettingsStore, numbers *app.NumberService, inbox *app.InboxService, contentSvc *app.ContentService, refreshInterval time.Duration, logger *slog.Logger) *PublicHandler {
	return &PublicHandler{
		store:           store,
		numbers:         numbers,
		inbox:           inbox,
		content:         contentSvc,
		refreshInterval: refreshInterval,
		logger:          logger.With("handler", "public"),
	}
}

// RegisterRoutes mounts everything but the inbox stream, which NewRouter
// mounts outside the request timeout.
func (h *PublicHandler) RegisterRoutes(r chi.Router) {
	r.Get("/numbers", h.ListNumbers)
	r.Get("/numbers/{number}/messages", h.ListMessages)
	r.Get("/blog", h.ListPosts)
	r.Get("/blog/{slug}", h.GetPost)
	r.Get("/pages/{slug}", h.GetPage)
	r.Post("/markdown/preview", h.PreviewMarkdown)
}

// numberParam reads the path-escaped phone number.
func numberParam(r *http.Request) (string, error) {
	return url.PathUnescape(chi.URLParam(r, "number"))
}

func enabledOnly(nums []domain.PhoneNumber) []domain.PhoneNumber {
	out := make([]domain.PhoneNumber, 0, len(nums))
	for _, n := range nums {
		if n.Enabled {
			out = append(out, n)
		}
	}
	return out
}

func (h *PublicHandler) ListNumbers(w http.ResponseWriter, r *http.Request) {
	nums, err := h.numbers.GetAvailableNumbers(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, NumbersResponse{Numbers: enabledOnly(nums)})
}

func (h *PublicHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	value, err := numberParam(r)
	if err != nil {
		jsonError(w, "Invalid number", http.StatusBadRequest)
		return
	}
	num, err := h.inbox.PublicNumber(r.Context(), value)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	msgs, err := h.inbox.Messages(r.Context(), value)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, MessagesResponse{Number: num, Messages: msgs})
}

// StreamMessages pushes inbox refreshes as Server-Sent Events. A settings
// save triggers an immediate re-fetch.
func (h *PublicHandler) StreamMessages(w http.ResponseWriter, r *http.Request) {
	value, err := numberParam(r)
	if err != nil {
		jsonError(w, "Invalid number", http.StatusBadRequest)
		return
	}
	if _, err := h.inbox.PublicNumber(r.Context(), value); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		jsonError(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	ctx := r.Context()
	refresher := app.NewInboxRefresher(func(ctx context.Context) ([]domain.SMSMessage, error) {
		return h.inbox.Messages(ctx, value)
	}, h.refreshInterval)
	unsubscribe := h.store.Subscribe(app.ObserverFunc(func(context.Context, domain.Settings) {
		refresher.Reset()
	}))
	defer unsubscribe()
	go refresher.Run(ctx)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sseStreamsGauge.Inc()
	defer sseStreamsGauge.Dec()
	h.logger.DebugContext(ctx, "Inbox stream opened", "number", value)

	for ev := range refresher.Events() {
		data, err := json.Marshal(ev)
		if err != nil {
			h.logger.ErrorContext(ctx, "Failed to encode refresh event", "error", err)
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind, data); err != nil {
			h.logger.DebugContext(ctx, "Inbox stream closed by client", "number", value, "error", err)
			return
		}
		flusher.Flush()
	}
}

func (h *PublicHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.content.ListPosts(r.Context(), true)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	resp := BlogListResponse{Posts: make([]RenderedPost, 0, len(posts))}
	for _, p := range posts {
		resp.Posts = append(resp.Posts, RenderedPost{BlogPost: p, HTML: string(content.Render(p.Format, p.Content))})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *PublicHandler) GetPost(w http.ResponseWriter, r *http.Request) {
	p, err := h.content.PostBySlug(r.Context(), chi.URLParam(r, "slug"), true)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RenderedPost{BlogPost: p, HTML: string(content.Render(p.Format, p.Content))})
}

func (h *PublicHandler) GetPage(w http.ResponseWriter, r *http.Request) {
	p, err := h.content.PageBySlug(r.Context(), chi.URLParam(r, "slug"), true)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, RenderedPage{CustomPage: p, HTML: string(content.Render(p.Format, p.Content))})
}

func (h *PublicHandler) PreviewMarkdown(w http.ResponseWriter, r *http.Request) {
	var req MarkdownPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	writeJSON(w, http.StatusOK, MarkdownPreviewResponse{HTML: content.MarkdownToHTML(req.Text)})
}
