package markdown

import "regexp"

// Pattern set for Markdown detection. A text blob counts as Markdown when
// any single pattern matches anywhere in it. This is a heuristic, not a
// parse: plain text containing a stray '*' can be a false positive, and a
// growing streamed text may flip between plain and Markdown as patterns
// complete.
var markdownPatterns = []*regexp.Regexp{
	regexp.MustCompile(`\*\*.+?\*\*`),        // bold **x**
	regexp.MustCompile(`\*.+?\*`),            // italic *x*
	regexp.MustCompile("`.+?`"),              // inline code `x`
	regexp.MustCompile("(?s)```.*?```"),      // fenced code block
	regexp.MustCompile(`(?m)^#+\s+.*`),       // ATX heading
	regexp.MustCompile(`(?m)^\s*[-*+]\s+.+`), // unordered list item
	regexp.MustCompile(`(?m)^\s*\d+\.\s+.+`), // ordered list item
	regexp.MustCompile(`\[.+?\]\(.+?\)`),     // link [text](url)
	regexp.MustCompile(`!\[.*?\]\(.+?\)`),    // image ![alt](url)
	regexp.MustCompile(`(?m)^\s*>\s+.+`),     // blockquote
	regexp.MustCompile(`(?m)^\s*---+\s*$`),   // horizontal rule
	regexp.MustCompile(`\|\s.*\s\|`),         // table row | a | b |
}

// IsMarkdown reports whether text should be rendered as Markdown rather
// than as plain paragraphs. Pure function, safe to call repeatedly on the
// same growing text.
func IsMarkdown(text string) bool {
	for _, re := range markdownPatterns {
		if re.MatchString(text) {
			return true
		}
	}
	return false
}
