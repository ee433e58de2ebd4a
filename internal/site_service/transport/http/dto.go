package http

import (
	"github.com/aradsms/sms_inbox_site/internal/site_service/content"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// LoginRequest defines the structure for admin login.
type LoginRequest struct {
	Username   string `json:"username" validate:"required"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"rememberMe"`
}

// SessionResponse reports whether the caller holds a valid admin marker.
type SessionResponse struct {
	Authenticated bool `json:"authenticated"`
}

// CredentialsRequest replaces the admin credentials.
type CredentialsRequest struct {
	Username string `json:"username" validate:"required,max=100"`
	Password string `json:"password" validate:"required,min=4,max=200"`
}

// NumbersResponse is the public number list.
type NumbersResponse struct {
	Numbers []domain.PhoneNumber `json:"numbers"`
}

// MessagesResponse is one inbox.
type MessagesResponse struct {
	Number   domain.PhoneNumber  `json:"number"`
	Messages []domain.SMSMessage `json:"messages"`
}

type AddNumbersRequest struct {
	Numbers []domain.PhoneNumber `json:"numbers" validate:"required,min=1"`
}

type AddNumbersResponse struct {
	Added int `json:"added"`
}

type ReorderNumbersRequest struct {
	IDs []string `json:"ids" validate:"required,min=1,dive,required"`
}

// NumberOverrideRequest sets display overrides. Empty fields clear them.
type NumberOverrideRequest struct {
	Country     string `json:"country" validate:"max=100"`
	CountryCode string `json:"countryCode" validate:"omitempty,len=2,alpha"`
	Enabled     *bool  `json:"enabled"`
}

type MarkdownPreviewRequest struct {
	Text string `json:"text"`
}

type MarkdownPreviewResponse struct {
	HTML string `json:"html"`
}

// MarkdownCommandRequest applies one toolbar action to a text buffer.
type MarkdownCommandRequest struct {
	Buffer content.MarkdownBuffer `json:"buffer"`
	Action content.MarkdownAction `json:"action" validate:"required"`
	Args   content.ActionArgs     `json:"args"`
}

// RichCommandRequest applies one toolbar command to a visual session.
type RichCommandRequest struct {
	Session content.Session `json:"session"`
	Command content.Command `json:"command"`
}

type RichCommandResponse struct {
	Session content.Session     `json:"session"`
	State   content.FormatState `json:"state"`
}

// EditorOpenRequest starts a server-side visual editing session.
type EditorOpenRequest struct {
	HTML string `json:"html"`
}

type EditorModeRequest struct {
	Mode string `json:"mode" validate:"required,oneof=visual html"`
}

type EditorSourceRequest struct {
	HTML string `json:"html"`
}

type GistExportResponse struct {
	GistID string `json:"gistId"`
}

// BlogListResponse lists published posts with rendered bodies.
type BlogListResponse struct {
	Posts []RenderedPost `json:"posts"`
}

type RenderedPost struct {
	domain.BlogPost
	HTML string `json:"html"`
}

type RenderedPage struct {
	domain.CustomPage
	HTML string `json:"html"`
}
