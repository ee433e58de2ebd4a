package app

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/aradsms/sms_inbox_site/internal/site_service/content"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

const (
	DefaultEditorSessionTTL  = 30 * time.Minute
	DefaultMaxEditorSessions = 256
)

// EditorView is what the admin UI renders after every editor call.
type EditorView struct {
	ID        string              `json:"id"`
	Mode      content.EditorMode  `json:"mode"`
	Content   string              `json:"content"`
	Selection content.Selection   `json:"selection"`
	Focused   bool                `json:"focused"`
	State     content.FormatState `json:"state"`
}

type editorSession struct {
	mu      sync.Mutex
	editor  *content.RichEditor
	surface *content.BufferSurface
	touched time.Time
}

func (s *editorSession) view(id string) EditorView {
	sel, focused := s.surface.Selection()
	return EditorView{
		ID:        id,
		Mode:      s.editor.Mode(),
		Content:   s.editor.Content(),
		Selection: sel,
		Focused:   focused,
		State:     s.editor.RefreshState(),
	}
}

// EditorSessions holds one visual editor per open admin editing session.
// The surface is server side, so a saved selection survives the toolbar
// click that blurs it. Idle sessions expire after ttl.
type EditorSessions struct {
	mu       sync.Mutex
	sessions map[string]*editorSession
	ttl      time.Duration
	limit    int
	now      func() time.Time
	logger   *slog.Logger
}

func NewEditorSessions(ttl time.Duration, limit int, logger *slog.Logger) *EditorSessions {
	if ttl <= 0 {
		ttl = DefaultEditorSessionTTL
	}
	if limit <= 0 {
		limit = DefaultMaxEditorSessions
	}
	return &EditorSessions{
		sessions: make(map[string]*editorSession),
		ttl:      ttl,
		limit:    limit,
		now:      time.Now,
		logger:   logger.With("component", "editor_sessions"),
	}
}

// Open starts a visual session over initialHTML.
func (e *EditorSessions) Open(initialHTML string) EditorView {
	surface := content.NewBufferSurface()
	sess := &editorSession{
		editor:  content.NewRichEditor(surface, initialHTML),
		surface: surface,
	}
	id := uuid.NewString()

	e.mu.Lock()
	now := e.now()
	e.sweepLocked(now)
	if len(e.sessions) >= e.limit {
		e.evictOldestLocked()
	}
	sess.touched = now
	e.sessions[id] = sess
	n := len(e.sessions)
	e.mu.Unlock()

	editorSessionsGauge.Set(float64(n))
	return sess.view(id)
}

// Len reports the number of live sessions.
func (e *EditorSessions) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.sessions)
}

func (e *EditorSessions) get(id string) (*editorSession, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	now := e.now()
	e.sweepLocked(now)
	sess, ok := e.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: editor session %q", domain.ErrNotFound, id)
	}
	sess.touched = now
	return sess, nil
}

func (e *EditorSessions) with(id string, fn func(*editorSession) error) (EditorView, error) {
	sess, err := e.get(id)
	if err != nil {
		return EditorView{}, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	if fn != nil {
		if err := fn(sess); err != nil {
			return EditorView{}, err
		}
	}
	return sess.view(id), nil
}

// View returns the current state of a session.
func (e *EditorSessions) View(id string) (EditorView, error) {
	return e.with(id, nil)
}

// Select places the caret or selection on the surface and records it.
func (e *EditorSessions) Select(id string, sel content.Selection) (EditorView, error) {
	return e.with(id, func(s *editorSession) error {
		s.surface.Select(sel)
		s.editor.SaveSelection()
		return nil
	})
}

// Blur records the selection and drops focus, as a toolbar click does.
func (e *EditorSessions) Blur(id string) (EditorView, error) {
	return e.with(id, func(s *editorSession) error {
		s.editor.SaveSelection()
		s.surface.Blur()
		return nil
	})
}

// Exec applies a toolbar command at the last saved selection.
func (e *EditorSessions) Exec(id string, cmd content.Command) (EditorView, error) {
	return e.with(id, func(s *editorSession) error {
		if err := s.editor.Exec(cmd); err != nil {
			if errors.Is(err, content.ErrSourceMode) {
				return fmt.Errorf("%w: %w", domain.ErrConflict, err)
			}
			return err
		}
		return nil
	})
}

// SetMode switches between the visual surface and the HTML source view.
func (e *EditorSessions) SetMode(id string, mode content.EditorMode) (EditorView, error) {
	if mode != content.ModeVisual && mode != content.ModeHTML {
		return EditorView{}, fmt.Errorf("%w: unknown editor mode %q", domain.ErrValidation, mode)
	}
	return e.with(id, func(s *editorSession) error {
		s.editor.SetMode(mode)
		return nil
	})
}

// SetSource replaces the HTML source. Only valid in HTML mode.
func (e *EditorSessions) SetSource(id, src string) (EditorView, error) {
	return e.with(id, func(s *editorSession) error {
		if err := s.editor.SetSource(src); err != nil {
			return fmt.Errorf("%w: %w", domain.ErrConflict, err)
		}
		return nil
	})
}

// Close discards a session. Closing an unknown id is not an error.
func (e *EditorSessions) Close(id string) {
	e.mu.Lock()
	delete(e.sessions, id)
	n := len(e.sessions)
	e.mu.Unlock()
	editorSessionsGauge.Set(float64(n))
}

func (e *EditorSessions) sweepLocked(now time.Time) {
	for id, sess := range e.sessions {
		if now.Sub(sess.touched) > e.ttl {
			delete(e.sessions, id)
			e.logger.Debug("Editor session expired", "session_id", id)
		}
	}
}

func (e *EditorSessions) evictOldestLocked() {
	var oldestID string
	var oldest time.Time
	for id, sess := range e.sessions {
		if oldestID == "" || sess.touched.Before(oldest) {
			oldestID, oldest = id, sess.touched
		}
	}
	if oldestID != "" {
		delete(e.sessions, oldestID)
		e.logger.Warn("Editor session limit reached, dropped oldest session", "session_id", oldestID)
	}
}
