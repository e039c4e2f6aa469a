package markdown

import "testing"

func TestIsMarkdown(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  bool
	}{
		{"empty", "", false},
		{"plain sentence", "Hello there, how can I help you today", false},
		{"plain multiline", "First line\nSecond line\n\nThird block", false},
		{"bold", "This is **important** advice", true},
		{"italic", "This is *subtle* advice", true},
		{"inline code", "Use the `fetch` function", true},
		{"fenced code block", "Example:\n```go\nfmt.Println(42)\n```\n", true},
		{"fenced block no language", "```\nplain code\n```", true},
		{"heading", "# Portfolio Summary\nDetails follow", true},
		{"heading mid-text", "intro\n## Risks\nbody", true},
		{"unordered list", "- stocks\n- bonds", true},
		{"ordered list", "1. open an account\n2. deposit funds", true},
		{"link", "See [the docs](https://example.com) for more", true},
		{"image", "![chart](https://example.com/chart.png)", true},
		{"blockquote", "> past performance is no guarantee", true},
		{"horizontal rule", "above\n---\nbelow", true},
		{"table row", "| item | price |", true},
		{"lone asterisk", "5 * 3 = 15", false},
		{"lone backtick", "a ` b", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsMarkdown(tt.input)
			if got != tt.want {
				t.Errorf("IsMarkdown(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

// Classification over a growing stream may flip, but a complete fenced
// block keeps matching no matter how much text follows it.
func TestIsMarkdownGrowingText(t *testing.T) {
	base := "Here is code:\n```python\nprint('hi')\n```"
	if !IsMarkdown(base) {
		t.Fatalf("IsMarkdown(%q) = false, want true", base)
	}
	grown := base + "\nand some trailing explanation text that goes on"
	if !IsMarkdown(grown) {
		t.Errorf("IsMarkdown(grown) = false, want true after append")
	}
}
