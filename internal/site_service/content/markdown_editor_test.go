package content

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarkdownBuffer_Apply(t *testing.T) {
	tests := []struct {
		name    string
		buf     MarkdownBuffer
		action  MarkdownAction
		args    ActionArgs
		want    string
		wantSel Selection
	}{
		{
			name: "bold wraps selection", action: ActionBold,
			buf:  MarkdownBuffer{Text: "hello world", Selection: Selection{6, 11}},
			want: "hello **world**", wantSel: Selection{8, 13},
		},
		{
			name: "bold on empty selection inserts placeholder", action: ActionBold,
			buf:  MarkdownBuffer{Text: ""},
			want: "**bold text**", wantSel: Selection{2, 11},
		},
		{
			name: "italic counts runes", action: ActionItalic,
			buf:  MarkdownBuffer{Text: "héllo", Selection: Selection{1, 2}},
			want: "h*é*llo", wantSel: Selection{2, 3},
		},
		{
			name: "inline code", action: ActionCode,
			buf:  MarkdownBuffer{Text: "run go test", Selection: Selection{4, 11}},
			want: "run `go test`", wantSel: Selection{5, 12},
		},
		{
			name: "multi-line code becomes a fence", action: ActionCode,
			buf:  MarkdownBuffer{Text: "a\nb", Selection: Selection{0, 3}},
			want: "```\na\nb\n```", wantSel: Selection{4, 7},
		},
		{
			name: "heading prefixes current line", action: ActionHeading, args: ActionArgs{Level: 1},
			buf:  MarkdownBuffer{Text: "Title\nbody", Selection: Selection{2, 2}},
			want: "# Title\nbody", wantSel: Selection{0, 7},
		},
		{
			name: "heading replaces existing marker", action: ActionHeading, args: ActionArgs{Level: 3},
			buf:  MarkdownBuffer{Text: "# Title", Selection: Selection{3, 3}},
			want: "### Title", wantSel: Selection{0, 9},
		},
		{
			name: "heading defaults to level 2", action: ActionHeading,
			buf:  MarkdownBuffer{Text: "x", Selection: Selection{0, 0}},
			want: "## x", wantSel: Selection{0, 4},
		},
		{
			name: "quote every selected line", action: ActionQuote,
			buf:  MarkdownBuffer{Text: "one\ntwo\nthree", Selection: Selection{1, 5}},
			want: "> one\n> two\nthree", wantSel: Selection{0, 11},
		},
		{
			name: "bullet list", action: ActionBulletList,
			buf:  MarkdownBuffer{Text: "a\nb", Selection: Selection{0, 3}},
			want: "- a\n- b", wantSel: Selection{0, 7},
		},
		{
			name: "numbered list", action: ActionNumberedList,
			buf:  MarkdownBuffer{Text: "a\nb", Selection: Selection{0, 3}},
			want: "1. a\n2. b", wantSel: Selection{0, 9},
		},
		{
			name: "link uses selected text", action: ActionLink, args: ActionArgs{URL: "u"},
			buf:  MarkdownBuffer{Text: "see docs", Selection: Selection{4, 8}},
			want: "see [docs](u)", wantSel: Selection{4, 13},
		},
		{
			name: "link inserts label at caret", action: ActionLink, args: ActionArgs{URL: "https://x.y", Text: "X"},
			buf:  MarkdownBuffer{Text: ""},
			want: "[X](https://x.y)", wantSel: Selection{0, 16},
		},
		{
			name: "image", action: ActionImage, args: ActionArgs{URL: "/a.png"},
			buf:  MarkdownBuffer{Text: "", Selection: Selection{0, 0}},
			want: "![image](/a.png)", wantSel: Selection{0, 16},
		},
		{
			name: "rule after selection", action: ActionRule,
			buf:  MarkdownBuffer{Text: "a", Selection: Selection{0, 1}},
			want: "a\n\n---\n\n", wantSel: Selection{8, 8},
		},
		{
			name: "out of range selection is clamped", action: ActionBold,
			buf:  MarkdownBuffer{Text: "ab", Selection: Selection{5, 1}},
			want: "a**b**", wantSel: Selection{3, 4},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.buf.Apply(tt.action, tt.args)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.Text)
			assert.Equal(t, tt.wantSel, got.Selection)
		})
	}
}

func TestMarkdownBuffer_Apply_UnknownAction(t *testing.T) {
	buf := MarkdownBuffer{Text: "x"}
	got, err := buf.Apply("strike", ActionArgs{})
	assert.ErrorIs(t, err, ErrUnknownAction)
	assert.Equal(t, buf, got)
}

func TestMarkdownBuffer_RoundTripsThroughConverter(t *testing.T) {
	buf, err := MarkdownBuffer{Text: "Title"}.Apply(ActionHeading, ActionArgs{Level: 1})
	require.NoError(t, err)
	assert.Equal(t, "<h1>Title</h1>", MarkdownToHTML(buf.Text))
}
