package markdown

import (
	"bytes"
	"html"
	"strings"

	chromahtml "github.com/alecthomas/chroma/formatters/html"
	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	highlighting "github.com/yuin/goldmark-highlighting"
	"github.com/yuin/goldmark/extension"
	goldmarkhtml "github.com/yuin/goldmark/renderer/html"
)

// HTML converts assistant text into sanitized HTML. Two converters are
// kept: the progressive one runs on every streamed delta and skips syntax
// highlighting, the final one runs once when a message is complete and
// highlights fenced code blocks with a recognized language tag. Both
// enable GFM tables/lists and turn soft line breaks into <br>.
type HTML struct {
	progressive goldmark.Markdown
	final       goldmark.Markdown
	policy      *bluemonday.Policy
}

func NewHTML() *HTML {
	base := []goldmark.Option{
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			goldmarkhtml.WithHardWraps(),
			goldmarkhtml.WithUnsafe(),
		),
	}

	withHighlight := append([]goldmark.Option{
		goldmark.WithExtensions(
			highlighting.NewHighlighting(
				highlighting.WithStyle("github"),
				highlighting.WithFormatOptions(
					chromahtml.WithClasses(true),
				),
			),
		),
	}, base...)

	return &HTML{
		progressive: goldmark.New(base...),
		final:       goldmark.New(withHighlight...),
		policy:      newPolicy(),
	}
}

// newPolicy extends the user-generated-content policy with the class
// attributes chroma emits on highlighted code.
func newPolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowElements("span")
	p.AllowAttrs("class").OnElements("span", "code", "pre")
	return p
}

// Render converts Markdown to sanitized HTML without syntax highlighting.
// Used for the intermediate re-renders while a message is still streaming.
func (r *HTML) Render(text string) string {
	return r.convert(r.progressive, text)
}

// RenderFinal runs once, when the message text is frozen. Markdown
// converts with fenced code blocks highlighted; anything else falls
// through to escaped paragraphs.
func (r *HTML) RenderFinal(text string, asMarkdown bool) string {
	if !asMarkdown {
		return r.RenderPlain(text)
	}
	return r.convert(r.final, text)
}

// RenderPlain renders non-Markdown text as escaped <p> blocks split on
// blank lines.
func (r *HTML) RenderPlain(text string) string {
	var sb strings.Builder
	for _, para := range Paragraphs(text) {
		sb.WriteString("<p>")
		sb.WriteString(html.EscapeString(para))
		sb.WriteString("</p>\n")
	}
	return sb.String()
}

func (r *HTML) convert(md goldmark.Markdown, text string) string {
	var buf bytes.Buffer
	if err := md.Convert([]byte(text), &buf); err != nil {
		// Conversion failures degrade to escaped paragraphs rather than
		// dropping the message.
		return r.RenderPlain(text)
	}
	return r.policy.Sanitize(buf.String())
}

// Paragraphs splits text on blank-line boundaries, dropping empty blocks.
func Paragraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		if strings.TrimSpace(block) != "" {
			out = append(out, block)
		}
	}
	return out
}
