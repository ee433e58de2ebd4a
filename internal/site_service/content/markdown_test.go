package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarkdownToHTML(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"bold", "**bold**", "<p><strong>bold</strong></p>"},
		{"heading", "# H", "<h1>H</h1>"},
		{"paragraph", "Hello world", "<p>Hello world</p>"},
		{"heading level 3 with closing hashes", "### Title ###", "<h3>Title</h3>"},
		{"heading keeps trailing hash in word", "# C#", "<h1>C#</h1>"},
		{"joined paragraph lines", "a\nb\n\nc", "<p>a b</p>\n<p>c</p>"},
		{"bullet list", "- a\n* b\n+ c", "<ul><li>a</li><li>b</li><li>c</li></ul>"},
		{"ordered list", "1. x\n2. y", "<ol><li>x</li><li>y</li></ol>"},
		{"blockquote", "> quoted\n> text", "<blockquote><p>quoted text</p></blockquote>"},
		{"rule", "a\n\n---\n\nb", "<p>a</p>\n<hr>\n<p>b</p>"},
		{"fenced code is escaped", "```\n<b>x</b>\n```", "<pre><code>&lt;b&gt;x&lt;/b&gt;</code></pre>"},
		{"unterminated fence", "```\ncode", "<pre><code>code</code></pre>"},
		{"html is escaped", "<script>alert(1)</script>", "<p>&lt;script&gt;alert(1)&lt;/script&gt;</p>"},
		{"italic", "an *italic* word", "<p>an <em>italic</em> word</p>"},
		{"code span stays literal", "use `a*b*c`", "<p>use <code>a*b*c</code></p>"},
		{"link", "[Go](https://go.dev)", `<p><a href="https://go.dev">Go</a></p>`},
		{"image", "![logo](/logo.png)", `<p><img src="/logo.png" alt="logo"></p>`},
		{"script url neutralized", "[x](javascript:alert(1))", `<p><a href="#">x</a>)</p>`},
		{"link url keeps underscores and stars", "See [docs](https://example.com/__init__/a*b*c) now",
			`<p>See <a href="https://example.com/__init__/a*b*c">docs</a> now</p>`},
		{"image url keeps underscores", "![x](/img/__a__.png)", `<p><img src="/img/__a__.png" alt="x"></p>`},
		{"bold link text", "[**Go**](https://go.dev/a_b_)", `<p><a href="https://go.dev/a_b_"><strong>Go</strong></a></p>`},
		{"list then paragraph", "- a\ntext", "<ul><li>a</li></ul>\n<p>text</p>"},
		{"crlf input", "# A\r\nbody", "<h1>A</h1>\n<p>body</p>"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, MarkdownToHTML(tt.in))
		})
	}
}
