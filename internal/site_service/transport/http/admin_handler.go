package http

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/aradsms/sms_inbox_site/internal/site_service/app"
	"github.com/aradsms/sms_inbox_site/internal/site_service/content"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// AdminHandler serves the guarded admin API.
type AdminHandler struct {
	store    *app.SettingsStore
	auth     *app.AuthGate
	numbers  *app.NumberService
	inbox    *app.InboxService
	content  *app.ContentService
	sync     *app.SettingsSync
	editors  *app.EditorSessions
	validate *validator.Validate
	logger   *slog.Logger
}

// NewAdminHandler wires the admin API. sync may be nil.
func NewAdminHandler(store *app.SettingsStore, auth *app.AuthGate, numbers *app.NumberService, inbox *app.InboxService,
	contentSvc *app.ContentService, sync *app.SettingsSync, editors *app.EditorSessions, validate *validator.Validate, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		store:    store,
		auth:     auth,
		numbers:  numbers,
		inbox:    inbox,
		content:  contentSvc,
		sync:     sync,
		editors:  editors,
		validate: validate,
		logger:   logger.With("handler", "admin"),
	}
}

func (h *AdminHandler) RegisterRoutes(r chi.Router) {
	r.Get("/settings", h.GetSettings)
	r.Put("/settings", h.PutSettings)
	r.Put("/credentials", h.PutCredentials)

	r.Route("/numbers", func(r chi.Router) {
		r.Get("/", h.ReconcileNumbers)
		r.Post("/", h.AddNumbers)
		r.Post("/seed", h.SeedNumbers)
		r.Put("/order", h.ReorderNumbers)
		r.Put("/{id}", h.UpdateNumber)
		r.Delete("/{id}", h.RemoveNumber)
		r.Put("/{id}/override", h.SetOverride)
	})

	r.Route("/posts", func(r chi.Router) {
		r.Get("/", h.ListPosts)
		r.Post("/", h.CreatePost)
		r.Put("/{id}", h.UpdatePost)
		r.Delete("/{id}", h.DeletePost)
	})
	r.Route("/pages", func(r chi.Router) {
		r.Get("/", h.ListPages)
		r.Post("/", h.CreatePage)
		r.Put("/{id}", h.UpdatePage)
		r.Delete("/{id}", h.DeletePage)
	})

	r.Get("/webhook-logs", h.WebhookLogs)
	r.Post("/sync/export", h.ExportSettings)
	r.Post("/sync/import", h.ImportSettings)

	r.Post("/editor/markdown", h.ApplyMarkdownCommand)
	r.Post("/editor/rich", h.ApplyRichCommand)
	r.Route("/editor/rich/sessions", func(r chi.Router) {
		r.Post("/", h.OpenEditor)
		r.Get("/{id}", h.EditorView)
		r.Delete("/{id}", h.CloseEditor)
		r.Put("/{id}/selection", h.SelectInEditor)
		r.Post("/{id}/blur", h.BlurEditor)
		r.Post("/{id}/command", h.ExecEditorCommand)
		r.Put("/{id}/mode", h.SetEditorMode)
		r.Put("/{id}/source", h.SetEditorSource)
	})
}

func (h *AdminHandler) GetSettings(w http.ResponseWriter, r *http.Request) {
	s, err := h.store.Load(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

// maxSettingsBody bounds PUT /settings payloads.
const maxSettingsBody = 4 << 20

// PutSettings applies the body over the current document. Omitted fields keep
// their stored values; collections in the body replace the stored ones.
func (h *AdminHandler) PutSettings(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxSettingsBody))
	if err != nil {
		jsonError(w, "Invalid request payload: "+err.Error(), http.StatusBadRequest)
		return
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		jsonError(w, "Request body is empty", http.StatusBadRequest)
		return
	}
	err = h.store.Update(r.Context(), func(s *domain.Settings) error {
		merged, err := app.DecodeSettingsOver(*s, raw)
		if err != nil {
			return fmt.Errorf("%w: invalid settings document: %v", domain.ErrValidation, err)
		}
		*s = merged
		return nil
	})
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	saved, err := h.store.Load(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, saved)
}

func (h *AdminHandler) PutCredentials(w http.ResponseWriter, r *http.Request) {
	var req CredentialsRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if err := h.auth.UpdateCredentials(r.Context(), req.Username, req.Password); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ReconcileNumbers(w http.ResponseWriter, r *http.Request) {
	rec, err := h.numbers.Reconcile(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (h *AdminHandler) AddNumbers(w http.ResponseWriter, r *http.Request) {
	var req AddNumbersRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	added, err := h.numbers.AddPublicNumbers(r.Context(), req.Numbers)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AddNumbersResponse{Added: added})
}

func (h *AdminHandler) SeedNumbers(w http.ResponseWriter, r *http.Request) {
	added, err := h.numbers.SeedDemoNumbers(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, AddNumbersResponse{Added: added})
}

func (h *AdminHandler) ReorderNumbers(w http.ResponseWriter, r *http.Request) {
	var req ReorderNumbersRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	if err := h.numbers.ReorderPublicNumbers(r.Context(), req.IDs); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) UpdateNumber(w http.ResponseWriter, r *http.Request) {
	var num domain.PhoneNumber
	if err := json.NewDecoder(r.Body).Decode(&num); err != nil {
		jsonError(w, "Invalid request payload", http.StatusBadRequest)
		return
	}
	num.ID = chi.URLParam(r, "id")
	if err := h.numbers.UpdatePublicNumber(r.Context(), num); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, num)
}

func (h *AdminHandler) RemoveNumber(w http.ResponseWriter, r *http.Request) {
	if err := h.numbers.RemovePublicNumber(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) SetOverride(w http.ResponseWriter, r *http.Request) {
	var req NumberOverrideRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	o := domain.NumberOverride{Country: req.Country, CountryCode: req.CountryCode, Enabled: req.Enabled}
	if err := h.numbers.SetNumberOverride(r.Context(), chi.URLParam(r, "id"), o); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListPosts(w http.ResponseWriter, r *http.Request) {
	posts, err := h.content.ListPosts(r.Context(), false)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *AdminHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	var in app.PostInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	post, err := h.content.CreatePost(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, post)
}

func (h *AdminHandler) UpdatePost(w http.ResponseWriter, r *http.Request) {
	var in app.PostInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	post, err := h.content.UpdatePost(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, post)
}

func (h *AdminHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeletePost(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ListPages(w http.ResponseWriter, r *http.Request) {
	pages, err := h.content.ListPages(r.Context(), false)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, pages)
}

func (h *AdminHandler) CreatePage(w http.ResponseWriter, r *http.Request) {
	var in app.PageInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	page, err := h.content.CreatePage(r.Context(), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusCreated, page)
}

func (h *AdminHandler) UpdatePage(w http.ResponseWriter, r *http.Request) {
	var in app.PageInput
	if !decodeAndValidate(w, r, h.validate, &in) {
		return
	}
	page, err := h.content.UpdatePage(r.Context(), chi.URLParam(r, "id"), in)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, page)
}

func (h *AdminHandler) DeletePage(w http.ResponseWriter, r *http.Request) {
	if err := h.content.DeletePage(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) WebhookLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.inbox.WebhookLogs(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

func (h *AdminHandler) ExportSettings(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeServiceError(w, r, h.logger, domain.ErrSyncNotConfigured)
		return
	}
	id, err := h.sync.Export(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, fmt.Errorf("gist export: %w", err))
		return
	}
	writeJSON(w, http.StatusOK, GistExportResponse{GistID: id})
}

func (h *AdminHandler) ImportSettings(w http.ResponseWriter, r *http.Request) {
	if h.sync == nil {
		writeServiceError(w, r, h.logger, domain.ErrSyncNotConfigured)
		return
	}
	if err := h.sync.Import(r.Context()); err != nil {
		writeServiceError(w, r, h.logger, fmt.Errorf("gist import: %w", err))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) ApplyMarkdownCommand(w http.ResponseWriter, r *http.Request) {
	var req MarkdownCommandRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	buf, err := req.Buffer.Apply(req.Action, req.Args)
	if err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, buf)
}

// ApplyRichCommand runs one command against a throwaway editor whose
// surface holds the posted document and selection.
func (h *AdminHandler) ApplyRichCommand(w http.ResponseWriter, r *http.Request) {
	var req RichCommandRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	surface := content.NewBufferSurface()
	editor := content.NewRichEditor(surface, req.Session.HTML)
	surface.Select(req.Session.Selection)
	editor.SaveSelection()
	if err := editor.Exec(req.Command); err != nil {
		writeServiceError(w, r, h.logger, err)
		return
	}
	sel, _ := surface.Selection()
	writeJSON(w, http.StatusOK, RichCommandResponse{
		Session: content.Session{HTML: editor.Content(), Selection: sel},
		State:   editor.State(),
	})
}

func (h *AdminHandler) OpenEditor(w http.ResponseWriter, r *http.Request) {
	var req EditorOpenRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	writeJSON(w, http.StatusCreated, h.editors.Open(req.HTML))
}

func (h *AdminHandler) EditorView(w http.ResponseWriter, r *http.Request) {
	h.writeEditorView(w, r)(h.editors.View(chi.URLParam(r, "id")))
}

func (h *AdminHandler) CloseEditor(w http.ResponseWriter, r *http.Request) {
	h.editors.Close(chi.URLParam(r, "id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *AdminHandler) SelectInEditor(w http.ResponseWriter, r *http.Request) {
	var sel content.Selection
	if !decodeAndValidate(w, r, h.validate, &sel) {
		return
	}
	h.writeEditorView(w, r)(h.editors.Select(chi.URLParam(r, "id"), sel))
}

func (h *AdminHandler) BlurEditor(w http.ResponseWriter, r *http.Request) {
	h.writeEditorView(w, r)(h.editors.Blur(chi.URLParam(r, "id")))
}

func (h *AdminHandler) ExecEditorCommand(w http.ResponseWriter, r *http.Request) {
	var cmd content.Command
	if !decodeAndValidate(w, r, h.validate, &cmd) {
		return
	}
	h.writeEditorView(w, r)(h.editors.Exec(chi.URLParam(r, "id"), cmd))
}

func (h *AdminHandler) SetEditorMode(w http.ResponseWriter, r *http.Request) {
	var req EditorModeRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	h.writeEditorView(w, r)(h.editors.SetMode(chi.URLParam(r, "id"), content.EditorMode(req.Mode)))
}

func (h *AdminHandler) SetEditorSource(w http.ResponseWriter, r *http.Request) {
	var req EditorSourceRequest
	if !decodeAndValidate(w, r, h.validate, &req) {
		return
	}
	h.writeEditorView(w, r)(h.editors.SetSource(chi.URLParam(r, "id"), req.HTML))
}

func (h *AdminHandler) writeEditorView(w http.ResponseWriter, r *http.Request) func(app.EditorView, error) {
	return func(view app.EditorView, err error) {
		if err != nil {
			writeServiceError(w, r, h.logger, err)
			return
		}
		writeJSON(w, http.StatusOK, view)
	}
}
