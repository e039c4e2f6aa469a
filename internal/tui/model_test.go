package tui

import (
	"strings"
	"testing"
)

func TestMatchCommands(t *testing.T) {
	tests := []struct {
		prefix string
		want   int
	}{
		{"/", len(slashCommands)},
		{"/c", 2}, // /clear, /config
		{"/clear", 1},
		{"/zzz", 0},
	}

	for _, tt := range tests {
		got := matchCommands(tt.prefix)
		if len(got) != tt.want {
			t.Errorf("matchCommands(%q) returned %d matches, want %d", tt.prefix, len(got), tt.want)
		}
	}

	// Matching is case-insensitive on the prefix
	if len(matchCommands("/CL")) != 1 {
		t.Error("matchCommands should lowercase the prefix before matching")
	}
}

func TestTailLines(t *testing.T) {
	tests := []struct {
		name string
		text string
		n    int
		want string
	}{
		{"short text unchanged", "a\nb", 5, "a\nb"},
		{"keeps last n lines", "a\nb\nc\nd", 2, "c\nd"},
		{"trailing newline trimmed", "a\nb\n", 2, "a\nb"},
		{"single line", "only", 3, "only"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tailLines(tt.text, tt.n); got != tt.want {
				t.Errorf("tailLines(%q, %d) = %q, want %q", tt.text, tt.n, got, tt.want)
			}
		})
	}
}

func TestIndentText(t *testing.T) {
	got := indentText("line one\n\nline two", "  ")
	want := "  line one\n\n  line two"
	if got != want {
		t.Errorf("indentText() = %q, want %q", got, want)
	}
}

func TestRenderWelcome(t *testing.T) {
	out := renderWelcome("0.1.0", "", "default")
	if !strings.Contains(out, "Advisor CLI") {
		t.Error("welcome missing title")
	}
	if !strings.Contains(out, "login") {
		t.Error("welcome without a server should hint at login")
	}

	out = renderWelcome("0.1.0", "http://localhost:5000", "default")
	if !strings.Contains(out, "http://localhost:5000") {
		t.Error("welcome with a server should show it")
	}
}
