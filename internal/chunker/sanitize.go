package chunker

import (
	"regexp"
	"strings"
)

var (
	crlfRe        = regexp.MustCompile(`\r\n?`)
	manyNewlineRe = regexp.MustCompile(`\n{4,}`)
	hspaceRe      = regexp.MustCompile(`[^\S\n]+`)
)

// sanitize removes NUL bytes, normalizes line endings to \n, collapses runs
// of 4+ newlines to 3, collapses horizontal whitespace runs to a single
// space while preserving newlines, and trims, per spec.md §4.2.
func sanitize(s string) string {
	s = strings.ReplaceAll(s, "\x00", "")
	s = crlfRe.ReplaceAllString(s, "\n")
	s = manyNewlineRe.ReplaceAllString(s, "\n\n\n")
	s = hspaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}
