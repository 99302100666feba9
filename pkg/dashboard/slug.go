package dashboard

import (
	"regexp"
	"strings"
)

var (
	slugDrop  = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpace = regexp.MustCompile(`\s+`)
)

// Slugify derives the URL-safe slug Grafana uses for a title.
func Slugify(title string) string {
	s := slugDrop.ReplaceAllString(strings.ToLower(title), "")
	s = slugSpace.ReplaceAllString(strings.TrimSpace(s), "-")
	return strings.Trim(s, "-")
}
