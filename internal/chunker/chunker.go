package chunker

import (
	"path/filepath"
	"strings"

	"github.com/opennote/semindex/internal/model"
)

// Config holds the Chunker's parameters (spec.md §4.2 and §6).
type Config struct {
	Size           int
	Overlap        int
	ExcludeLangs   []string // fenced code languages stripped from Markdown
}

// Chunker splits extracted text into overlapping character windows with
// 1-based line ranges, per spec.md §4.2.
type Chunker struct {
	size         int
	overlap      int
	excludeLangs map[string]bool
}

func New(cfg Config) *Chunker {
	size := cfg.Size
	if size <= 0 {
		size = 1000
	}
	overlap := cfg.Overlap
	if overlap < 0 {
		overlap = 0
	}
	excluded := make(map[string]bool, len(cfg.ExcludeLangs))
	for _, lang := range cfg.ExcludeLangs {
		excluded[strings.ToLower(strings.TrimSpace(lang))] = true
	}
	return &Chunker{size: size, overlap: overlap, excludeLangs: excluded}
}

// Extract performs the pre-chunk, extension-specific text extraction and
// post-extraction sanitization described in spec.md §4.2, without splitting.
func (c *Chunker) Extract(path string, raw []byte) string {
	var extracted string
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		extracted = extractMarkdown(raw, c.excludeLangs)
	case ".html", ".htm":
		extracted = extractHTML(raw)
	case ".json":
		extracted = extractJSON(raw)
	default:
		extracted = string(raw)
	}
	return sanitize(extracted)
}

// Chunks extracts and splits the file content into overlapping chunks, each
// carrying its 1-based line range located by first occurrence in the
// original (pre-extraction) source text, per spec.md §4.2.
//
// A chunk is rejected if it is empty after trim, contains a NUL byte, or
// exceeds 2*size runes (indicating splitter failure).
func (c *Chunker) Chunks(path string, raw []byte, mtime int64) []*model.Chunk {
	extracted := c.Extract(path, raw)
	if extracted == "" {
		return nil
	}
	pieces := recursiveSplit(extracted, c.size, c.overlap)
	sourceLines := strings.Split(string(raw), "\n")

	chunks := make([]*model.Chunk, 0, len(pieces))
	for _, piece := range pieces {
		piece = sanitize(piece)
		if !c.accept(piece) {
			continue
		}
		start, end := locateLines(sourceLines, piece)
		chunks = append(chunks, &model.Chunk{
			Path:      path,
			Mtime:     mtime,
			Content:   piece,
			StartLine: start,
			EndLine:   end,
		})
	}
	return chunks
}

func (c *Chunker) accept(piece string) bool {
	if piece == "" {
		return false
	}
	if strings.ContainsRune(piece, 0) {
		return false
	}
	if len([]rune(piece)) > 2*c.size {
		return false
	}
	return true
}

// locateLines finds a chunk's 1-based start/end line by locating its first
// occurrence (as a contiguous sequence of lines) in the original source.
// Per spec.md §4.2's Open Question, repeated identical passages resolve to
// the first occurrence — a deliberate simplification, not offset-tracked.
func locateLines(sourceLines []string, piece string) (int, int) {
	pieceLines := strings.Split(strings.TrimRight(piece, "\n"), "\n")
	if len(pieceLines) == 0 {
		return 1, 1
	}
	first := strings.TrimSpace(pieceLines[0])
	n := len(pieceLines)

	for i := 0; i+n <= len(sourceLines); i++ {
		if strings.TrimSpace(sourceLines[i]) != first {
			continue
		}
		if matchesFrom(sourceLines, pieceLines, i) {
			return i + 1, i + n
		}
	}
	// Fallback: locate just the first line if the full sequence can't be
	// matched verbatim (extraction can alter intermediate line content).
	for i, line := range sourceLines {
		if strings.Contains(line, first) || strings.TrimSpace(line) == first {
			return i + 1, i + 1
		}
	}
	return 1, 1
}

func matchesFrom(sourceLines, pieceLines []string, offset int) bool {
	for j, pl := range pieceLines {
		if strings.TrimSpace(sourceLines[offset+j]) != strings.TrimSpace(pl) {
			return false
		}
	}
	return true
}
