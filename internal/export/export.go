// Package export writes a conversation transcript as a standalone HTML
// document. Assistant messages go through the full Markdown pipeline
// (including syntax highlighting); user messages are escaped verbatim.
package export

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"advisor-cli/internal/chat"
	"advisor-cli/internal/markdown"
)

const transcriptTemplate = `<!DOCTYPE html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>{{.Title}}</title>
<style>
  body { font-family: -apple-system, "Segoe UI", sans-serif; max-width: 52rem; margin: 2rem auto; padding: 0 1rem; color: #1f2328; }
  header { border-bottom: 1px solid #d1d9e0; padding-bottom: 0.5rem; margin-bottom: 1.5rem; }
  header h1 { margin: 0; font-size: 1.4rem; }
  header time { color: #59636e; font-size: 0.85rem; }
  .message { margin-bottom: 1.25rem; }
  .message .role { font-weight: 600; font-size: 0.8rem; text-transform: uppercase; letter-spacing: 0.05em; }
  .message.user .role { color: #0969da; }
  .message.assistant .role { color: #1a7f37; }
  .message .body { margin-top: 0.25rem; }
  .message .body pre { background: #f6f8fa; padding: 0.75rem; border-radius: 6px; overflow-x: auto; }
  .message .body code { font-family: ui-monospace, monospace; font-size: 0.9em; }
  .message .body blockquote { border-left: 3px solid #d1d9e0; margin-left: 0; padding-left: 1rem; color: #59636e; }
  .message .body table { border-collapse: collapse; }
  .message .body th, .message .body td { border: 1px solid #d1d9e0; padding: 0.3rem 0.6rem; }
</style>
</head>
<body>
<header>
<h1>{{.Title}}</h1>
<time>{{.Generated}}</time>
</header>
{{range .Messages}}<div class="message {{.Role}}">
<div class="role">{{.Label}}</div>
<div class="body">{{.Body}}</div>
</div>
{{end}}</body>
</html>
`

type templateMessage struct {
	Role  string
	Label string
	// Body is sanitized renderer output, safe to emit as-is.
	Body template.HTML
}

type templateData struct {
	Title     string
	Generated string
	Messages  []templateMessage
}

// Exporter renders transcripts with a dedicated HTML Markdown renderer.
type Exporter struct {
	html *markdown.HTML
	tmpl *template.Template
}

func NewExporter() *Exporter {
	return &Exporter{
		html: markdown.NewHTML(),
		tmpl: template.Must(template.New("transcript").Parse(transcriptTemplate)),
	}
}

// WriteTranscript renders the messages into w as a full HTML page.
func (e *Exporter) WriteTranscript(w io.Writer, title string, messages []chat.Message) error {
	data := templateData{
		Title:     title,
		Generated: time.Now().Format("2006-01-02 15:04"),
	}

	for _, m := range messages {
		asMarkdown := m.Role == chat.RoleAssistant && markdown.IsMarkdown(m.Text)
		body := e.html.RenderFinal(m.Text, asMarkdown)
		data.Messages = append(data.Messages, templateMessage{
			Role:  string(m.Role),
			Label: roleLabel(m.Role),
			Body:  template.HTML(body),
		})
	}

	if err := e.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("rendering transcript: %w", err)
	}
	return nil
}

func roleLabel(role chat.Role) string {
	switch role {
	case chat.RoleUser:
		return "You"
	case chat.RoleAssistant:
		return "Advisor"
	default:
		return string(role)
	}
}
