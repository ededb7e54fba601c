package chunker

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown strips fenced code blocks whose language tag is in
// excludeLangs, strips inline code spans, link syntax, emphasis markers and
// heading markers while preserving their inner text. This generalizes the
// ast.Walk-based text extraction the teacher uses to summarize long fenced
// blocks (internal/ai/chunker.go's extractText) into a full-document
// plain-text pass.
func extractMarkdown(src []byte, excludeLangs map[string]bool) string {
	reader := text.NewReader(src)
	doc := goldmark.New().Parser().Parse(reader)
	source := reader.Source()

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			switch n.Kind() {
			case ast.KindParagraph, ast.KindHeading, ast.KindListItem, ast.KindBlockquote:
				sb.WriteString("\n")
			}
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.FencedCodeBlock:
			lang := strings.ToLower(strings.TrimSpace(string(v.Language(source))))
			if lang != "" && excludeLangs[lang] {
				return ast.WalkSkipChildren, nil
			}
			writeLines(&sb, v.Lines(), source)
			sb.WriteString("\n")
			return ast.WalkSkipChildren, nil
		case *ast.CodeBlock:
			writeLines(&sb, v.Lines(), source)
			sb.WriteString("\n")
			return ast.WalkSkipChildren, nil
		case *ast.Text:
			sb.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				sb.WriteString("\n")
			}
		case *ast.AutoLink:
			sb.Write(v.URL(source))
		}
		return ast.WalkContinue, nil
	})
	return sb.String()
}

func writeLines(sb *strings.Builder, lines *text.Segments, source []byte) {
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
}
