package content

import (
	"html/template"
	"strings"

	"golang.org/x/net/html"

	"github.com/aradsms/sms_inbox_site/internal/site_service/domain"
)

var knownElements = map[string]bool{
	"p": true, "div": true, "span": true, "br": true, "hr": true, "a": true, "img": true,
	"strong": true, "b": true, "em": true, "i": true, "u": true, "s": true, "strike": true, "del": true,
	"ul": true, "ol": true, "li": true, "blockquote": true, "pre": true, "code": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "thead": true, "tbody": true, "tr": true, "td": true, "th": true,
	"section": true, "article": true, "figure": true, "figcaption": true, "iframe": true,
}

// DetectFormat sniffs whether text is HTML markup or Markdown.
func DetectFormat(text string) domain.ContentFormat {
	z := html.NewTokenizer(strings.NewReader(text))
	for {
		switch z.Next() {
		case html.ErrorToken:
			// io.EOF or malformed input: no element seen
			return domain.FormatMarkdown
		case html.StartTagToken, html.EndTagToken, html.SelfClosingTagToken:
			name, _ := z.TagName()
			if knownElements[string(name)] {
				return domain.FormatHTML
			}
		}
	}
}

// NormalizeFormat resolves the format of legacy documents. An explicit
// format wins, then the legacy editor mode tag, then sniffing.
func NormalizeFormat(format domain.ContentFormat, legacyMode, text string) domain.ContentFormat {
	if format.Valid() {
		return format
	}
	switch strings.ToLower(legacyMode) {
	case "markdown":
		return domain.FormatMarkdown
	case "visual", "rich", "html":
		return domain.FormatHTML
	}
	return DetectFormat(text)
}

// Render turns authored content into HTML for templates. HTML content is
// admin-authored and emitted as is.
func Render(format domain.ContentFormat, text string) template.HTML {
	if !format.Valid() {
		format = DetectFormat(text)
	}
	if format == domain.FormatMarkdown {
		return template.HTML(MarkdownToHTML(text))
	}
	return template.HTML(text)
}
