package email

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// strict drops every tag; bluemonday policies are safe for concurrent use.
var strict = bluemonday.StrictPolicy()

// PlainText reduces an HTML fragment scraped from a webmail page to a single
// line of readable text.
func PlainText(fragment string) string {
	if fragment == "" {
		return ""
	}
	text := html.UnescapeString(strict.Sanitize(fragment))
	return strings.Join(strings.Fields(text), " ")
}

// Truncate shortens s to at most n runes, appending an ellipsis when cut.
func Truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}
