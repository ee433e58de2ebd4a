package content

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnknownAction is returned for an unsupported toolbar action or command.
var ErrUnknownAction = errors.New("unknown editor action")

// Selection is a [Start, End) range. MarkdownBuffer counts runes; Session
// counts bytes of the HTML source.
type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

func (s Selection) clamp(n int) Selection {
	if s.Start > s.End {
		s.Start, s.End = s.End, s.Start
	}
	s.Start = max(0, min(s.Start, n))
	s.End = max(s.Start, min(s.End, n))
	return s
}

// Collapsed reports a caret with no selected text.
func (s Selection) Collapsed() bool { return s.Start == s.End }

type MarkdownAction string

const (
	ActionBold         MarkdownAction = "bold"
	ActionItalic       MarkdownAction = "italic"
	ActionHeading      MarkdownAction = "heading"
	ActionQuote        MarkdownAction = "quote"
	ActionBulletList   MarkdownAction = "bullet_list"
	ActionNumberedList MarkdownAction = "numbered_list"
	ActionCode         MarkdownAction = "code"
	ActionLink         MarkdownAction = "link"
	ActionImage        MarkdownAction = "image"
	ActionRule         MarkdownAction = "rule"
)

// ActionArgs carries the optional inputs of link, image and heading actions.
type ActionArgs struct {
	URL   string `json:"url,omitempty"`
	Text  string `json:"text,omitempty"`
	Level int    `json:"level,omitempty"`
}

// MarkdownBuffer is the text area state of the Markdown editor.
type MarkdownBuffer struct {
	Text      string    `json:"text"`
	Selection Selection `json:"selection"`
}

// Apply inserts or wraps Markdown tokens around the selection and returns
// the new buffer with the inserted span selected.
func (b MarkdownBuffer) Apply(action MarkdownAction, args ActionArgs) (MarkdownBuffer, error) {
	r := []rune(b.Text)
	sel := b.Selection.clamp(len(r))

	switch action {
	case ActionBold:
		return wrapRunes(r, sel, "**", "**", "bold text"), nil
	case ActionItalic:
		return wrapRunes(r, sel, "*", "*", "italic text"), nil
	case ActionCode:
		if strings.ContainsRune(string(r[sel.Start:sel.End]), '\n') {
			return wrapRunes(r, sel, "```\n", "\n```", ""), nil
		}
		return wrapRunes(r, sel, "`", "`", "code"), nil
	case ActionHeading:
		level := args.Level
		if level < 1 || level > 6 {
			level = 2
		}
		marker := strings.Repeat("#", level) + " "
		return prefixLines(r, sel, func(_ int, line string) string {
			return marker + strings.TrimLeft(strings.TrimLeft(line, "#"), " ")
		}), nil
	case ActionQuote:
		return prefixLines(r, sel, func(_ int, line string) string { return "> " + line }), nil
	case ActionBulletList:
		return prefixLines(r, sel, func(_ int, line string) string { return "- " + line }), nil
	case ActionNumberedList:
		return prefixLines(r, sel, func(i int, line string) string { return fmt.Sprintf("%d. %s", i+1, line) }), nil
	case ActionLink:
		label := selectedOr(r, sel, args.Text, "link text")
		return replaceRunes(r, sel, "["+label+"]("+orDefault(args.URL, "https://")+")"), nil
	case ActionImage:
		alt := selectedOr(r, sel, args.Text, "image")
		return replaceRunes(r, sel, "!["+alt+"]("+orDefault(args.URL, "https://")+")"), nil
	case ActionRule:
		out := replaceRunes(r, Selection{Start: sel.End, End: sel.End}, "\n\n---\n\n")
		out.Selection = Selection{Start: out.Selection.End, End: out.Selection.End}
		return out, nil
	}
	return b, fmt.Errorf("%w: %q", ErrUnknownAction, action)
}

func wrapRunes(r []rune, sel Selection, open, close, placeholder string) MarkdownBuffer {
	inner := string(r[sel.Start:sel.End])
	if inner == "" {
		inner = placeholder
	}
	text := string(r[:sel.Start]) + open + inner + close + string(r[sel.End:])
	start := sel.Start + len([]rune(open))
	return MarkdownBuffer{Text: text, Selection: Selection{Start: start, End: start + len([]rune(inner))}}
}

func replaceRunes(r []rune, sel Selection, insert string) MarkdownBuffer {
	text := string(r[:sel.Start]) + insert + string(r[sel.End:])
	return MarkdownBuffer{Text: text, Selection: Selection{Start: sel.Start, End: sel.Start + len([]rune(insert))}}
}

// prefixLines rewrites every line touched by the selection and selects the
// rewritten block.
func prefixLines(r []rune, sel Selection, rewrite func(i int, line string) string) MarkdownBuffer {
	start := sel.Start
	for start > 0 && r[start-1] != '\n' {
		start--
	}
	end := sel.End
	if end > start && r[end-1] == '\n' {
		end--
	}
	for end < len(r) && r[end] != '\n' {
		end++
	}

	lines := strings.Split(string(r[start:end]), "\n")
	for i, line := range lines {
		lines[i] = rewrite(i, line)
	}
	return replaceRunes(r, Selection{Start: start, End: end}, strings.Join(lines, "\n"))
}

func selectedOr(r []rune, sel Selection, fallback, placeholder string) string {
	if !sel.Collapsed() {
		return string(r[sel.Start:sel.End])
	}
	return orDefault(fallback, placeholder)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}
