package export

import (
	"strings"
	"testing"

	"advisor-cli/internal/chat"
)

func TestWriteTranscript(t *testing.T) {
	messages := []chat.Message{
		chat.NewMessage(chat.RoleUser, "How do I loop in Go?"),
		chat.NewMessage(chat.RoleAssistant, "Use `for`:\n\n```go\nfor i := 0; i < 3; i++ {\n}\n```"),
	}

	var sb strings.Builder
	if err := NewExporter().WriteTranscript(&sb, "Advisor Session", messages); err != nil {
		t.Fatalf("WriteTranscript() error = %v", err)
	}
	out := sb.String()

	if !strings.Contains(out, "<title>Advisor Session</title>") {
		t.Error("output missing page title")
	}
	if !strings.Contains(out, `class="message user"`) || !strings.Contains(out, `class="message assistant"`) {
		t.Error("output missing role-classed message blocks")
	}
	// Assistant Markdown rendered to HTML with a highlighted code block.
	if !strings.Contains(out, "<code") {
		t.Error("assistant code block not rendered")
	}
	if !strings.Contains(out, "<span") {
		t.Error("assistant code block not syntax highlighted")
	}
}

func TestWriteTranscriptEscapesUserText(t *testing.T) {
	messages := []chat.Message{
		chat.NewMessage(chat.RoleUser, "<script>alert('x')</script>"),
	}

	var sb strings.Builder
	if err := NewExporter().WriteTranscript(&sb, "t", messages); err != nil {
		t.Fatalf("WriteTranscript() error = %v", err)
	}
	out := sb.String()

	if strings.Contains(out, "<script>") {
		t.Error("user-supplied markup leaked into the document")
	}
	if !strings.Contains(out, "&lt;script&gt;") {
		t.Error("user text not escaped")
	}
}

func TestWriteTranscriptPlainAssistantText(t *testing.T) {
	messages := []chat.Message{
		chat.NewMessage(chat.RoleAssistant, "Just a short answer."),
	}

	var sb strings.Builder
	if err := NewExporter().WriteTranscript(&sb, "t", messages); err != nil {
		t.Fatalf("WriteTranscript() error = %v", err)
	}
	if !strings.Contains(sb.String(), "<p>Just a short answer.</p>") {
		t.Error("non-Markdown assistant text should render as paragraph blocks")
	}
}
