package domain

import "time"

// ContentFormat tags how a post or page body is authored.
type ContentFormat string

const (
	FormatHTML     ContentFormat = "html"
	FormatMarkdown ContentFormat = "markdown"
)

// Valid reports whether f is a known format.
func (f ContentFormat) Valid() bool {
	return f == FormatHTML || f == FormatMarkdown
}

// BlogPost is an authored article routed at /blog/{slug}.
type BlogPost struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Slug      string        `json:"slug"`
	Excerpt   string        `json:"excerpt,omitempty"`
	Content   string        `json:"content"`
	Format    ContentFormat `json:"format,omitempty"`
	Author    string        `json:"author,omitempty"`
	Tags      []string      `json:"tags,omitempty"`
	Published bool          `json:"published"`
	CreatedAt time.Time     `json:"createdAt"`
	UpdatedAt time.Time     `json:"updatedAt"`

	// LegacyEditorMode is read from documents written before Format existed.
	LegacyEditorMode string `json:"editorMode,omitempty"`
}

// CustomPage is an authored page routed at /pages/{slug}.
type CustomPage struct {
	ID           string        `json:"id"`
	Title        string        `json:"title"`
	Slug         string        `json:"slug"`
	Content      string        `json:"content"`
	Format       ContentFormat `json:"format,omitempty"`
	Published    bool          `json:"published"`
	ShowInFooter bool          `json:"showInFooter,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}
