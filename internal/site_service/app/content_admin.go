package app

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/feeds"

	"github.com/aradsms/sms_inbox_site/internal/site_service/content"
	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

// PostInput is the editable part of a blog post.
type PostInput struct {
	Title     string               `json:"title" validate:"required,max=200"`
	Slug      string               `json:"slug" validate:"omitempty,max=120"`
	Excerpt   string               `json:"excerpt" validate:"max=500"`
	Content   string               `json:"content"`
	Format    domain.ContentFormat `json:"format" validate:"omitempty,oneof=html markdown"`
	Author    string               `json:"author" validate:"max=100"`
	Tags      []string             `json:"tags"`
	Published bool                 `json:"published"`
}

// PageInput is the editable part of a custom page.
type PageInput struct {
	Title        string               `json:"title" validate:"required,max=200"`
	Slug         string               `json:"slug" validate:"omitempty,max=120"`
	Content      string               `json:"content"`
	Format       domain.ContentFormat `json:"format" validate:"omitempty,oneof=html markdown"`
	Published    bool                 `json:"published"`
	ShowInFooter bool                 `json:"showInFooter"`
}

// ContentService manages blog posts and custom pages inside the settings
// document.
type ContentService struct {
	store  *SettingsStore
	logger *slog.Logger
	now    func() time.Time
}

func NewContentService(store *SettingsStore, logger *slog.Logger) *ContentService {
	return &ContentService{store: store, logger: logger.With("component", "content_service"), now: time.Now}
}

var slugSeparators = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify lowercases title and joins its alphanumeric runs with dashes.
func Slugify(title string) string {
	return strings.Trim(slugSeparators.ReplaceAllString(strings.ToLower(title), "-"), "-")
}

func slugFor(slug, title string) string {
	if s := Slugify(slug); s != "" {
		return s
	}
	if s := Slugify(title); s != "" {
		return s
	}
	return "untitled-" + uuid.NewString()[:8]
}

func formatFor(f domain.ContentFormat, text string) domain.ContentFormat {
	if f.Valid() {
		return f
	}
	return content.DetectFormat(text)
}

func (c *ContentService) CreatePost(ctx context.Context, in PostInput) (domain.BlogPost, error) {
	now := c.now().UTC()
	post := domain.BlogPost{
		ID:        uuid.NewString(),
		Title:     in.Title,
		Slug:      slugFor(in.Slug, in.Title),
		Excerpt:   in.Excerpt,
		Content:   in.Content,
		Format:    formatFor(in.Format, in.Content),
		Author:    in.Author,
		Tags:      in.Tags,
		Published: in.Published,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := c.store.Update(ctx, func(s *domain.Settings) error {
		s.BlogPosts = append(s.BlogPosts, post)
		return nil
	})
	if err != nil {
		return domain.BlogPost{}, err
	}
	c.logger.InfoContext(ctx, "Blog post created", "id", post.ID, "slug", post.Slug)
	return post, nil
}

// UpdatePost replaces the post with id, keeping its creation time.
func (c *ContentService) UpdatePost(ctx context.Context, id string, in PostInput) (domain.BlogPost, error) {
	var updated domain.BlogPost
	err := c.store.Update(ctx, func(s *domain.Settings) error {
		for i, p := range s.BlogPosts {
			if p.ID != id {
				continue
			}
			updated = domain.BlogPost{
				ID:        id,
				Title:     in.Title,
				Slug:      slugFor(in.Slug, in.Title),
				Excerpt:   in.Excerpt,
				Content:   in.Content,
				Format:    formatFor(in.Format, in.Content),
				Author:    in.Author,
				Tags:      in.Tags,
				Published: in.Published,
				CreatedAt: p.CreatedAt,
				UpdatedAt: c.now().UTC(),
			}
			s.BlogPosts[i] = updated
			return nil
		}
		return fmt.Errorf("blog post %s: %w", id, domain.ErrNotFound)
	})
	if err != nil {
		return domain.BlogPost{}, err
	}
	return updated, nil
}

func (c *ContentService) DeletePost(ctx context.Context, id string) error {
	return c.store.Update(ctx, func(s *domain.Settings) error {
		kept := s.BlogPosts[:0:0]
		for _, p := range s.BlogPosts {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(s.BlogPosts) {
			return fmt.Errorf("blog post %s: %w", id, domain.ErrNotFound)
		}
		s.BlogPosts = kept
		return nil
	})
}

// ListPosts returns posts newest first.
func (c *ContentService) ListPosts(ctx context.Context, publishedOnly bool) ([]domain.BlogPost, error) {
	s, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	posts := make([]domain.BlogPost, 0, len(s.BlogPosts))
	for _, p := range s.BlogPosts {
		if p.Published || !publishedOnly {
			posts = append(posts, p)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool { return posts[i].CreatedAt.After(posts[j].CreatedAt) })
	return posts, nil
}

func (c *ContentService) PostBySlug(ctx context.Context, slug string, publishedOnly bool) (domain.BlogPost, error) {
	s, err := c.store.Load(ctx)
	if err != nil {
		return domain.BlogPost{}, err
	}
	for _, p := range s.BlogPosts {
		if p.Slug == slug && (p.Published || !publishedOnly) {
			return p, nil
		}
	}
	return domain.BlogPost{}, fmt.Errorf("blog post %q: %w", slug, domain.ErrNotFound)
}

func (c *ContentService) CreatePage(ctx context.Context, in PageInput) (domain.CustomPage, error) {
	now := c.now().UTC()
	page := domain.CustomPage{
		ID:           uuid.NewString(),
		Title:        in.Title,
		Slug:         slugFor(in.Slug, in.Title),
		Content:      in.Content,
		Format:       formatFor(in.Format, in.Content),
		Published:    in.Published,
		ShowInFooter: in.ShowInFooter,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	err := c.store.Update(ctx, func(s *domain.Settings) error {
		s.CustomPages = append(s.CustomPages, page)
		return nil
	})
	if err != nil {
		return domain.CustomPage{}, err
	}
	c.logger.InfoContext(ctx, "Custom page created", "id", page.ID, "slug", page.Slug)
	return page, nil
}

func (c *ContentService) UpdatePage(ctx context.Context, id string, in PageInput) (domain.CustomPage, error) {
	var updated domain.CustomPage
	err := c.store.Update(ctx, func(s *domain.Settings) error {
		for i, p := range s.CustomPages {
			if p.ID != id {
				continue
			}
			updated = domain.CustomPage{
				ID:           id,
				Title:        in.Title,
				Slug:         slugFor(in.Slug, in.Title),
				Content:      in.Content,
				Format:       formatFor(in.Format, in.Content),
				Published:    in.Published,
				ShowInFooter: in.ShowInFooter,
				CreatedAt:    p.CreatedAt,
				UpdatedAt:    c.now().UTC(),
			}
			s.CustomPages[i] = updated
			return nil
		}
		return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
	})
	if err != nil {
		return domain.CustomPage{}, err
	}
	return updated, nil
}

func (c *ContentService) DeletePage(ctx context.Context, id string) error {
	return c.store.Update(ctx, func(s *domain.Settings) error {
		kept := s.CustomPages[:0:0]
		for _, p := range s.CustomPages {
			if p.ID != id {
				kept = append(kept, p)
			}
		}
		if len(kept) == len(s.CustomPages) {
			return fmt.Errorf("page %s: %w", id, domain.ErrNotFound)
		}
		s.CustomPages = kept
		return nil
	})
}

func (c *ContentService) ListPages(ctx context.Context, publishedOnly bool) ([]domain.CustomPage, error) {
	s, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	pages := make([]domain.CustomPage, 0, len(s.CustomPages))
	for _, p := range s.CustomPages {
		if p.Published || !publishedOnly {
			pages = append(pages, p)
		}
	}
	sort.SliceStable(pages, func(i, j int) bool { return pages[i].CreatedAt.After(pages[j].CreatedAt) })
	return pages, nil
}

func (c *ContentService) PageBySlug(ctx context.Context, slug string, publishedOnly bool) (domain.CustomPage, error) {
	s, err := c.store.Load(ctx)
	if err != nil {
		return domain.CustomPage{}, err
	}
	for _, p := range s.CustomPages {
		if p.Slug == slug && (p.Published || !publishedOnly) {
			return p, nil
		}
	}
	return domain.CustomPage{}, fmt.Errorf("page %q: %w", slug, domain.ErrNotFound)
}

// Feed builds the RSS feed of published posts. baseURL is the public site
// origin without a trailing slash.
func (c *ContentService) Feed(ctx context.Context, baseURL string) (*feeds.Feed, error) {
	s, err := c.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	posts, err := c.ListPosts(ctx, true)
	if err != nil {
		return nil, err
	}

	baseURL = strings.TrimRight(baseURL, "/")
	feed := &feeds.Feed{
		Title:       s.SiteName,
		Link:        &feeds.Link{Href: baseURL + "/blog"},
		Description: s.SiteDescription,
		Created:     c.now().UTC(),
	}
	if s.ContactEmail != "" {
		feed.Author = &feeds.Author{Name: s.SiteName, Email: s.ContactEmail}
	}
	for _, p := range posts {
		link := baseURL + "/blog/" + p.Slug
		feed.Items = append(feed.Items, &feeds.Item{
			Id:          link,
			Title:       p.Title,
			Link:        &feeds.Link{Href: link},
			Description: p.Excerpt,
			Content:     string(content.Render(p.Format, p.Content)),
			Author:      &feeds.Author{Name: p.Author},
			Created:     p.CreatedAt,
			Updated:     p.UpdatedAt,
		})
	}
	if len(posts) > 0 {
		feed.Created = posts[0].CreatedAt
	}
	return feed, nil
}
