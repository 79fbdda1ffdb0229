// Package sanitize cleans user supplied text before it is stored.
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var (
	strictPolicy = bluemonday.StrictPolicy()
	ugcPolicy    = bluemonday.UGCPolicy()

	// Angle brackets stay escaped; only entities that cannot open a tag are decoded.
	textEntities = strings.NewReplacer("&amp;", "&", "&#34;", `"`, "&#39;", "'")
)

// Text strips all markup and returns trimmed plain text. Input entities are decoded
// before sanitising, so escaped tags are stripped like literal ones.
func Text(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(textEntities.Replace(strictPolicy.Sanitize(html.UnescapeString(s))))
}

// HTML keeps safe formatting (links, emphasis, lists) and drops scripts, event
// handlers and javascript: URLs.
func HTML(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(ugcPolicy.Sanitize(s))
}

// IsBlank reports whether s has no visible text once all markup is removed.
func IsBlank(s string) bool {
	return Text(s) == ""
}
