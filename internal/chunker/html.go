package chunker

import (
	"regexp"
	"strings"
)

var (
	scriptRe = regexp.MustCompile(`(?is)<script\b[^>]*>.*?</\s*script\s*>`)
	styleRe  = regexp.MustCompile(`(?is)<style\b[^>]*>.*?</\s*style\s*>`)
	tagRe    = regexp.MustCompile(`(?s)<[^>]*>`)
)

var htmlEntities = map[string]string{
	"&amp;":  "&",
	"&lt;":   "<",
	"&gt;":   ">",
	"&quot;": `"`,
	"&#39;":  "'",
	"&apos;": "'",
	"&nbsp;": " ",
}

// extractHTML removes script/style blocks, strips tags, and decodes a small
// fixed set of entities, per spec.md §4.2's HTML extraction rule.
func extractHTML(src []byte) string {
	text := scriptRe.ReplaceAllString(string(src), "")
	text = styleRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, "\n")
	for entity, replacement := range htmlEntities {
		text = strings.ReplaceAll(text, entity, replacement)
	}
	return text
}
