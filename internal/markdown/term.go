package markdown

import (
	"strings"

	"github.com/charmbracelet/glamour"
)

// Term renders assistant text for terminal display. While a message is
// streaming the accumulated text is shown as-is; the glamour pass runs
// once at finalize, mirroring the single highlighting pass of the HTML
// renderer.
type Term struct {
	width    int
	renderer *glamour.TermRenderer
}

func NewTerm(width int) *Term {
	return &Term{width: width}
}

// SetWidth updates the wrap width. The glamour renderer is rebuilt lazily
// on the next RenderFinal.
func (t *Term) SetWidth(width int) {
	if width != t.width {
		t.width = width
		t.renderer = nil
	}
}

// Render returns the streaming-time view of the text: unstyled, so the
// partial Markdown never confuses the styler mid-construct.
func (t *Term) Render(text string) string {
	return text
}

// RenderFinal runs once, when the message text is frozen. Markdown goes
// through glamour, falling back to the raw text when the renderer cannot
// be built or the text trips it up; plain text renders as paragraphs.
func (t *Term) RenderFinal(text string, asMarkdown bool) string {
	if !asMarkdown {
		return t.RenderPlain(text)
	}
	if t.renderer == nil {
		width := t.width
		if width <= 0 {
			width = 80
		}
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return text
		}
		t.renderer = r
	}
	out, err := t.renderer.Render(text)
	if err != nil {
		return text
	}
	return strings.TrimRight(out, "\n")
}

// RenderPlain joins blank-line paragraphs with a single separating line.
func (t *Term) RenderPlain(text string) string {
	return strings.Join(Paragraphs(text), "\n\n")
}
