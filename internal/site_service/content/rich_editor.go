package content

import (
	"errors"
	"fmt"
	"html"
	"sort"
	"strings"

	nethtml "golang.org/x/net/html"
)

// Command names follow the execCommand vocabulary of the visual editor toolbar.
const (
	CmdBold                = "bold"
	CmdItalic              = "italic"
	CmdUnderline           = "underline"
	CmdStrikeThrough       = "strikeThrough"
	CmdInsertUnorderedList = "insertUnorderedList"
	CmdInsertOrderedList   = "insertOrderedList"
	CmdFormatBlock         = "formatBlock"
	CmdCreateLink          = "createLink"
	CmdUnlink              = "unlink"
	CmdInsertImage         = "insertImage"
	CmdRemoveFormat        = "removeFormat"
)

// ErrSourceMode is returned when a toolbar command is issued while the
// editor shows raw HTML.
var ErrSourceMode = errors.New("editor is in HTML source mode")

// ErrVisualMode is returned when the HTML source is edited while the editor
// shows the visual surface.
var ErrVisualMode = errors.New("editor is in visual mode")

type Command struct {
	Name  string `json:"name" validate:"required"`
	Value string `json:"value,omitempty"`
}

// FormatState is what the toolbar highlights for the current selection.
type FormatState struct {
	Bold      bool   `json:"bold"`
	Italic    bool   `json:"italic"`
	Underline bool   `json:"underline"`
	Strike    bool   `json:"strike"`
	List      string `json:"list,omitempty"`
	Block     string `json:"block,omitempty"`
	Link      bool   `json:"link"`
	LinkHref  string `json:"linkHref,omitempty"`
}

var (
	boldTags      = []string{"strong", "b"}
	italicTags    = []string{"em", "i"}
	underlineTags = []string{"u"}
	strikeTags    = []string{"s", "strike", "del"}
	listTags      = []string{"ul", "ol"}
	blockTags     = []string{"p", "h1", "h2", "h3", "h4", "h5", "h6", "blockquote", "pre", "div"}
	inlineTags    = []string{"strong", "b", "em", "i", "u", "s", "strike", "del", "span", "font", "mark", "sub", "sup"}

	voidElements = map[string]bool{
		"area": true, "base": true, "br": true, "col": true, "embed": true, "hr": true, "img": true,
		"input": true, "link": true, "meta": true, "source": true, "track": true, "wbr": true,
	}
)

// Session is the visual document plus a selection given as byte offsets into
// HTML. Apply is pure: it returns a new Session.
type Session struct {
	HTML      string    `json:"html"`
	Selection Selection `json:"selection"`
}

// element spans an open tag, its content and its close tag. Unclosed
// elements end at the end of the document.
type element struct {
	tag                  string
	attrs                []nethtml.Attribute
	openStart, openEnd   int
	closeStart, closeEnd int
	parent               int
}

type tagRange struct{ start, end int }

func parseElements(src string) ([]element, []tagRange) {
	var (
		elems []element
		tags  []tagRange
		stack []int
		pos   int
	)
	z := nethtml.NewTokenizer(strings.NewReader(src))
	for {
		tt := z.Next()
		if tt == nethtml.ErrorToken {
			break
		}
		raw := len(z.Raw())
		start, end := pos, pos+raw
		pos = end

		switch tt {
		case nethtml.StartTagToken:
			tags = append(tags, tagRange{start, end})
			tok := z.Token()
			if voidElements[tok.Data] {
				continue
			}
			parent := -1
			if len(stack) > 0 {
				parent = stack[len(stack)-1]
			}
			elems = append(elems, element{
				tag: tok.Data, attrs: tok.Attr,
				openStart: start, openEnd: end,
				closeStart: len(src), closeEnd: len(src),
				parent: parent,
			})
			stack = append(stack, len(elems)-1)
		case nethtml.EndTagToken:
			tags = append(tags, tagRange{start, end})
			name, _ := z.TagName()
			for i := len(stack) - 1; i >= 0; i-- {
				if elems[stack[i]].tag == string(name) {
					elems[stack[i]].closeStart, elems[stack[i]].closeEnd = start, end
					stack = stack[:i]
					break
				}
			}
		case nethtml.SelfClosingTagToken, nethtml.CommentToken, nethtml.DoctypeToken:
			tags = append(tags, tagRange{start, end})
		}
	}
	return elems, tags
}

// snap moves an offset that falls inside markup to the end of that tag.
func snap(pos int, tags []tagRange) int {
	for _, t := range tags {
		if pos > t.start && pos < t.end {
			return t.end
		}
	}
	return pos
}

func (s Session) normalized() (Session, []element) {
	elems, tags := parseElements(s.HTML)
	sel := s.Selection.clamp(len(s.HTML))
	sel.Start = snap(sel.Start, tags)
	sel.End = max(sel.Start, snap(sel.End, tags))
	return Session{HTML: s.HTML, Selection: sel}, elems
}

// enclosing returns the innermost element with one of names whose content
// contains the selection, or -1.
func enclosing(elems []element, sel Selection, names ...string) int {
	best := -1
	for i, e := range elems {
		if e.openEnd > sel.Start || sel.End > e.closeStart || !contains(names, e.tag) {
			continue
		}
		if best == -1 || e.openStart > elems[best].openStart {
			best = i
		}
	}
	return best
}

func contains(names []string, tag string) bool {
	for _, n := range names {
		if n == tag {
			return true
		}
	}
	return false
}

func attr(e element, key string) string {
	for _, a := range e.attrs {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}

// State reports the formats active at the selection.
func (s Session) State() FormatState {
	s, elems := s.normalized()
	st := FormatState{
		Bold:      enclosing(elems, s.Selection, boldTags...) >= 0,
		Italic:    enclosing(elems, s.Selection, italicTags...) >= 0,
		Underline: enclosing(elems, s.Selection, underlineTags...) >= 0,
		Strike:    enclosing(elems, s.Selection, strikeTags...) >= 0,
	}
	if i := enclosing(elems, s.Selection, listTags...); i >= 0 {
		st.List = elems[i].tag
	}
	if i := enclosing(elems, s.Selection, blockTags...); i >= 0 {
		st.Block = elems[i].tag
	}
	if i := enclosing(elems, s.Selection, "a"); i >= 0 {
		st.Link = true
		st.LinkHref = attr(elems[i], "href")
	}
	return st
}

// Apply runs one toolbar command. Inline formats and lists toggle: applying
// a format that already encloses the selection removes the enclosing element.
func (s Session) Apply(cmd Command) (Session, error) {
	s, elems := s.normalized()

	switch cmd.Name {
	case CmdBold:
		return s.toggleInline(elems, boldTags, "strong"), nil
	case CmdItalic:
		return s.toggleInline(elems, italicTags, "em"), nil
	case CmdUnderline:
		return s.toggleInline(elems, underlineTags, "u"), nil
	case CmdStrikeThrough:
		return s.toggleInline(elems, strikeTags, "s"), nil
	case CmdInsertUnorderedList:
		return s.toggleList(elems, "ul"), nil
	case CmdInsertOrderedList:
		return s.toggleList(elems, "ol"), nil
	case CmdFormatBlock:
		tag := strings.ToLower(strings.Trim(cmd.Value, "<> "))
		if !contains(blockTags, tag) {
			return s, fmt.Errorf("%w: formatBlock %q", ErrUnknownAction, cmd.Value)
		}
		if i := enclosing(elems, s.Selection, blockTags...); i >= 0 {
			return s.rename(elems[i], "<"+tag+">", "</"+tag+">"), nil
		}
		return s.wrap("<"+tag+">", "</"+tag+">"), nil
	case CmdCreateLink:
		href := strings.TrimSpace(cmd.Value)
		if href == "" {
			return s, nil
		}
		open := `<a href="` + html.EscapeString(href) + `">`
		if i := enclosing(elems, s.Selection, "a"); i >= 0 {
			return s.rename(elems[i], open, "</a>"), nil
		}
		if s.Selection.Collapsed() {
			return s.insert(open + html.EscapeString(href) + "</a>"), nil
		}
		return s.wrapInline(elems, open, "</a>"), nil
	case CmdUnlink:
		if i := enclosing(elems, s.Selection, "a"); i >= 0 {
			return s.unwrap(elems[i]), nil
		}
		return s, nil
	case CmdInsertImage:
		src := strings.TrimSpace(cmd.Value)
		if src == "" {
			return s, nil
		}
		out := s.insert(`<img src="` + html.EscapeString(src) + `" alt="">`)
		out.Selection.Start = out.Selection.End
		return out, nil
	case CmdRemoveFormat:
		return s.removeFormat(), nil
	}
	return s, fmt.Errorf("%w: %q", ErrUnknownAction, cmd.Name)
}

func (s Session) toggleInline(elems []element, tags []string, tag string) Session {
	if i := enclosing(elems, s.Selection, tags...); i >= 0 {
		return s.unwrap(elems[i])
	}
	return s.wrapInline(elems, "<"+tag+">", "</"+tag+">")
}

func (s Session) toggleList(elems []element, kind string) Session {
	if i := enclosing(elems, s.Selection, listTags...); i >= 0 {
		list := elems[i]
		if list.tag != kind {
			return s.rename(list, "<"+kind+">", "</"+kind+">")
		}
		// Turning a list off turns each item into a paragraph.
		var b strings.Builder
		for _, e := range elems {
			if e.tag == "li" && e.parent == i {
				b.WriteString("<p>" + s.HTML[e.openEnd:e.closeStart] + "</p>")
			}
		}
		repl := b.String()
		return Session{
			HTML:      s.HTML[:list.openStart] + repl + s.HTML[list.closeEnd:],
			Selection: Selection{Start: list.openStart, End: list.openStart + len(repl)},
		}
	}

	open, close := "<"+kind+"><li>", "</li></"+kind+">"
	if i := enclosing(elems, s.Selection, "p", "div", "h1", "h2", "h3", "h4", "h5", "h6"); i >= 0 {
		b := elems[i]
		delta := len(open) - (b.openEnd - b.openStart)
		return Session{
			HTML:      s.HTML[:b.openStart] + open + s.HTML[b.openEnd:b.closeStart] + close + s.HTML[b.closeEnd:],
			Selection: Selection{Start: s.Selection.Start + delta, End: s.Selection.End + delta},
		}
	}
	return s.wrap(open, close)
}

func (s Session) removeFormat() Session {
	for {
		cur, elems := s.normalized()
		i := enclosing(elems, cur.Selection, inlineTags...)
		if i < 0 {
			i = nestedInline(elems, cur.Selection)
		}
		if i < 0 {
			return cur
		}
		s = cur.unwrap(elems[i])
	}
}

// nestedInline finds an inline formatting element lying inside the selection.
func nestedInline(elems []element, sel Selection) int {
	for i, e := range elems {
		if contains(inlineTags, e.tag) && e.openStart >= sel.Start && e.closeEnd <= sel.End {
			return i
		}
	}
	return -1
}

// unwrap removes e's tags and keeps its content. The selection must lie in
// e's content or after it.
func (s Session) unwrap(e element) Session {
	openLen := e.openEnd - e.openStart
	out := s.HTML[:e.openStart] + s.HTML[e.openEnd:e.closeStart] + s.HTML[e.closeEnd:]
	shift := func(p int) int {
		switch {
		case p >= e.closeEnd:
			return p - openLen - (e.closeEnd - e.closeStart)
		case p >= e.openEnd:
			return p - openLen
		case p > e.openStart:
			return e.openStart
		}
		return p
	}
	return Session{HTML: out, Selection: Selection{Start: shift(s.Selection.Start), End: shift(s.Selection.End)}}
}

func (s Session) rename(e element, open, close string) Session {
	delta := len(open) - (e.openEnd - e.openStart)
	out := s.HTML[:e.openStart] + open + s.HTML[e.openEnd:e.closeStart] + close + s.HTML[e.closeEnd:]
	return Session{HTML: out, Selection: Selection{Start: s.Selection.Start + delta, End: s.Selection.End + delta}}
}

func (s Session) wrap(open, close string) Session {
	sel := s.Selection
	out := s.HTML[:sel.Start] + open + s.HTML[sel.Start:sel.End] + close + s.HTML[sel.End:]
	return Session{HTML: out, Selection: Selection{Start: sel.Start + len(open), End: sel.End + len(open)}}
}

// wrapInline wraps the selection once per block it touches so inline markup
// never crosses a block boundary. Markup-only stretches are left alone.
func (s Session) wrapInline(elems []element, open, close string) Session {
	sel := s.Selection
	var cuts []tagRange
	for _, e := range elems {
		if !contains(blockTags, e.tag) && !contains(listTags, e.tag) && e.tag != "li" {
			continue
		}
		for _, r := range []tagRange{{e.openStart, e.openEnd}, {e.closeStart, e.closeEnd}} {
			if r.start < r.end && r.start >= sel.Start && r.end <= sel.End {
				cuts = append(cuts, r)
			}
		}
	}
	if len(cuts) == 0 {
		return s.wrap(open, close)
	}
	sort.Slice(cuts, func(i, j int) bool { return cuts[i].start < cuts[j].start })

	var b strings.Builder
	b.WriteString(s.HTML[:sel.Start])
	first, last := -1, -1
	segment := func(from, to int) {
		text := s.HTML[from:to]
		if strings.TrimSpace(text) == "" {
			b.WriteString(text)
			return
		}
		b.WriteString(open)
		if first < 0 {
			first = b.Len()
		}
		b.WriteString(text)
		last = b.Len()
		b.WriteString(close)
	}
	pos := sel.Start
	for _, c := range cuts {
		segment(pos, c.start)
		b.WriteString(s.HTML[c.start:c.end])
		pos = c.end
	}
	segment(pos, sel.End)
	if first < 0 {
		return s
	}
	b.WriteString(s.HTML[sel.End:])
	return Session{HTML: b.String(), Selection: Selection{Start: first, End: last}}
}

func (s Session) insert(fragment string) Session {
	sel := s.Selection
	out := s.HTML[:sel.Start] + fragment + s.HTML[sel.End:]
	return Session{HTML: out, Selection: Selection{Start: sel.Start, End: sel.Start + len(fragment)}}
}

// Surface is the boundary to whatever renders the visual document. Selection
// returns false once the surface has lost focus.
type Surface interface {
	HTML() string
	SetHTML(string)
	Selection() (Selection, bool)
	Select(Selection)
}

type EditorMode string

const (
	ModeVisual EditorMode = "visual"
	ModeHTML   EditorMode = "html"
)

// RichEditor keeps the visual surface and the HTML source view in sync and
// preserves the selection across toolbar interactions.
type RichEditor struct {
	surface Surface
	mode    EditorMode
	source  string
	saved   *Selection
	state   FormatState
}

func NewRichEditor(surface Surface, initialHTML string) *RichEditor {
	surface.SetHTML(initialHTML)
	return &RichEditor{surface: surface, mode: ModeVisual}
}

func (e *RichEditor) Mode() EditorMode { return e.mode }

func (e *RichEditor) State() FormatState { return e.state }

// SaveSelection records the surface selection. Call it before anything that
// takes focus away from the surface.
func (e *RichEditor) SaveSelection() {
	if sel, ok := e.surface.Selection(); ok {
		e.saved = &sel
	}
}

// RestoreSelection puts the last saved selection back on the surface.
func (e *RichEditor) RestoreSelection() {
	if e.saved != nil {
		e.surface.Select(*e.saved)
	}
}

// Exec restores the saved selection and applies cmd to the surface.
func (e *RichEditor) Exec(cmd Command) error {
	if e.mode != ModeVisual {
		return ErrSourceMode
	}
	e.RestoreSelection()
	sel, ok := e.surface.Selection()
	if !ok {
		end := len(e.surface.HTML())
		sel = Selection{Start: end, End: end}
	}
	next, err := Session{HTML: e.surface.HTML(), Selection: sel}.Apply(cmd)
	if err != nil {
		return err
	}
	e.surface.SetHTML(next.HTML)
	e.surface.Select(next.Selection)
	e.saved = &next.Selection
	e.state = next.State()
	return nil
}

// SetMode switches views. Leaving visual mode copies the surface HTML into
// the source buffer; returning re-renders the surface from the source.
func (e *RichEditor) SetMode(mode EditorMode) {
	if mode == e.mode {
		return
	}
	switch mode {
	case ModeHTML:
		e.source = e.surface.HTML()
	case ModeVisual:
		e.surface.SetHTML(e.source)
		e.saved = nil
		e.state = FormatState{}
	default:
		return
	}
	e.mode = mode
}

// SetSource replaces the HTML source while in source mode.
func (e *RichEditor) SetSource(src string) error {
	if e.mode != ModeHTML {
		return ErrVisualMode
	}
	e.source = src
	return nil
}

// Content is the document as it would be saved.
func (e *RichEditor) Content() string {
	if e.mode == ModeHTML {
		return e.source
	}
	return e.surface.HTML()
}

// RefreshState recomputes toolbar state from the current selection.
func (e *RichEditor) RefreshState() FormatState {
	if e.mode != ModeVisual {
		return e.state
	}
	if sel, ok := e.surface.Selection(); ok {
		e.state = Session{HTML: e.surface.HTML(), Selection: sel}.State()
	}
	return e.state
}

// BufferSurface is an in-memory Surface used by the HTTP editor endpoints.
type BufferSurface struct {
	html    string
	sel     Selection
	focused bool
}

func NewBufferSurface() *BufferSurface { return &BufferSurface{} }

func (b *BufferSurface) HTML() string { return b.html }

func (b *BufferSurface) SetHTML(s string) {
	b.html = s
	b.sel = b.sel.clamp(len(s))
}

func (b *BufferSurface) Selection() (Selection, bool) { return b.sel, b.focused }

func (b *BufferSurface) Select(sel Selection) {
	b.sel = sel.clamp(len(b.html))
	b.focused = true
}

// Blur drops focus the way clicking a toolbar button does.
func (b *BufferSurface) Blur() { b.focused = false }
