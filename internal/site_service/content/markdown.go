package content

import (
	"fmt"
	"html"
	"regexp"
	"strconv"
	"strings"
)

var (
	headingRe = regexp.MustCompile(`^(#{1,6})\s+(.*?)(?:\s+#+)?\s*$`)
	bulletRe  = regexp.MustCompile(`^\s*[-*+]\s+(.*)$`)
	orderedRe = regexp.MustCompile(`^\s*\d+[.)]\s+(.*)$`)
	quoteRe   = regexp.MustCompile(`^\s*>\s?(.*)$`)
	ruleRe    = regexp.MustCompile(`^\s*(?:-{3,}|\*{3,}|_{3,})\s*$`)
	fenceRe   = regexp.MustCompile("^\\s*```")

	codeSpanRe = regexp.MustCompile("`([^`]+)`")
	imageRe    = regexp.MustCompile(`!\[([^\]]*)\]\(([^)\s]+)\)`)
	linkRe     = regexp.MustCompile(`\[([^\]]+)\]\(([^)\s]+)\)`)
	boldRe     = regexp.MustCompile(`\*\*(.+?)\*\*|__(.+?)__`)
	italicRe   = regexp.MustCompile(`\*([^*\s][^*]*)\*`)
	tokenRe    = regexp.MustCompile("\x00(\\d+)\x00")
)

// MarkdownToHTML converts the Markdown subset used by posts and pages:
// headings, lists, blockquotes, fenced code, rules, paragraphs and inline
// bold/italic/code/links/images. Text is HTML-escaped.
func MarkdownToHTML(src string) string {
	c := &mdConverter{}
	for _, line := range strings.Split(strings.ReplaceAll(src, "\r\n", "\n"), "\n") {
		c.line(line)
	}
	if c.inCode {
		c.flushCode()
	}
	c.flushBlocks()
	return strings.Join(c.out, "\n")
}

type mdConverter struct {
	out    []string
	para   []string
	quote  []string
	list   string
	items  []string
	inCode bool
	code   []string
}

func (c *mdConverter) line(line string) {
	if c.inCode {
		if fenceRe.MatchString(line) {
			c.flushCode()
			return
		}
		c.code = append(c.code, line)
		return
	}

	switch {
	case fenceRe.MatchString(line):
		c.flushBlocks()
		c.inCode = true
	case strings.TrimSpace(line) == "":
		c.flushBlocks()
	case ruleRe.MatchString(line):
		c.flushBlocks()
		c.out = append(c.out, "<hr>")
	case headingRe.MatchString(line):
		c.flushBlocks()
		m := headingRe.FindStringSubmatch(line)
		level := len(m[1])
		c.out = append(c.out, fmt.Sprintf("<h%d>%s</h%d>", level, inline(m[2]), level))
	case quoteRe.MatchString(line):
		c.flushPara()
		c.flushList()
		c.quote = append(c.quote, strings.TrimSpace(quoteRe.FindStringSubmatch(line)[1]))
	case bulletRe.MatchString(line):
		c.listItem("ul", bulletRe.FindStringSubmatch(line)[1])
	case orderedRe.MatchString(line):
		c.listItem("ol", orderedRe.FindStringSubmatch(line)[1])
	default:
		c.flushList()
		c.flushQuote()
		c.para = append(c.para, strings.TrimSpace(line))
	}
}

func (c *mdConverter) listItem(kind, text string) {
	c.flushPara()
	c.flushQuote()
	if c.list != kind {
		c.flushList()
		c.list = kind
	}
	c.items = append(c.items, "<li>"+inline(strings.TrimSpace(text))+"</li>")
}

func (c *mdConverter) flushBlocks() {
	c.flushPara()
	c.flushQuote()
	c.flushList()
}

func (c *mdConverter) flushPara() {
	if len(c.para) == 0 {
		return
	}
	c.out = append(c.out, "<p>"+inline(strings.Join(c.para, " "))+"</p>")
	c.para = nil
}

func (c *mdConverter) flushQuote() {
	if len(c.quote) == 0 {
		return
	}
	c.out = append(c.out, "<blockquote><p>"+inline(strings.Join(c.quote, " "))+"</p></blockquote>")
	c.quote = nil
}

func (c *mdConverter) flushList() {
	if c.list == "" {
		return
	}
	c.out = append(c.out, "<"+c.list+">"+strings.Join(c.items, "")+"</"+c.list+">")
	c.list = ""
	c.items = nil
}

func (c *mdConverter) flushCode() {
	c.out = append(c.out, "<pre><code>"+html.EscapeString(strings.Join(c.code, "\n"))+"</code></pre>")
	c.code = nil
	c.inCode = false
}

// inline escapes text and applies span-level syntax. Code spans, images and
// link targets are swapped out for tokens first so emphasis never rewrites
// them.
func inline(text string) string {
	var spans []string
	protect := func(s string) string {
		spans = append(spans, s)
		return fmt.Sprintf("\x00%d\x00", len(spans)-1)
	}
	text = codeSpanRe.ReplaceAllStringFunc(text, func(m string) string {
		return protect("<code>" + html.EscapeString(codeSpanRe.FindStringSubmatch(m)[1]) + "</code>")
	})

	text = html.EscapeString(text)
	text = imageRe.ReplaceAllStringFunc(text, func(m string) string {
		sm := imageRe.FindStringSubmatch(m)
		return protect(fmt.Sprintf(`<img src="%s" alt="%s">`, safeURL(sm[2]), sm[1]))
	})
	text = linkRe.ReplaceAllStringFunc(text, func(m string) string {
		sm := linkRe.FindStringSubmatch(m)
		return protect(fmt.Sprintf(`<a href="%s">`, safeURL(sm[2]))) + sm[1] + "</a>"
	})
	text = boldRe.ReplaceAllStringFunc(text, func(m string) string {
		sm := boldRe.FindStringSubmatch(m)
		inner := sm[1]
		if inner == "" {
			inner = sm[2]
		}
		return "<strong>" + inner + "</strong>"
	})
	text = italicRe.ReplaceAllString(text, "<em>$1</em>")

	return tokenRe.ReplaceAllStringFunc(text, func(m string) string {
		i, err := strconv.Atoi(tokenRe.FindStringSubmatch(m)[1])
		if err == nil && i < len(spans) {
			return spans[i]
		}
		return ""
	})
}

// safeURL drops script URLs. The input is already HTML-escaped.
func safeURL(u string) string {
	lower := strings.ToLower(strings.TrimSpace(u))
	if strings.HasPrefix(lower, "javascript:") || strings.HasPrefix(lower, "vbscript:") || strings.HasPrefix(lower, "data:text") {
		return "#"
	}
	return u
}
