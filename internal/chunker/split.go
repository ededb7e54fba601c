package chunker

import (
	"strings"
	"unicode/utf8"
)

var defaultSeparators = []string{"\n\n", "\n", ". ", " ", ""}

// recursiveSplit implements spec.md §4.2's recursive character splitter:
// text is first broken into atoms no larger than size using the separator
// preference list (falling through to the next separator, and finally to a
// hard rune-count cut, whenever an atom still exceeds size), then atoms are
// packed into windows of about `size` runes, and each new window starts with
// the previous window's trailing whole atoms totalling at most `overlap` runes
// (none when the last atom alone is longer) — the same sliding-window overlap
// idea as a sentence-window chunker, generalized from sentence counts to
// rune counts so arbitrary separators can be mixed.
func recursiveSplit(textIn string, size, overlap int) []string {
	if strings.TrimSpace(textIn) == "" {
		return nil
	}
	atoms := splitAtoms(textIn, defaultSeparators, size)
	return mergeAtoms(atoms, size, overlap)
}

func splitAtoms(text string, seps []string, size int) []string {
	if text == "" {
		return nil
	}
	if utf8.RuneCountInString(text) <= size {
		return []string{text}
	}
	if len(seps) == 0 {
		return hardSplit(text, size)
	}
	sep, rest := seps[0], seps[1:]
	if sep == "" {
		return hardSplit(text, size)
	}
	if !strings.Contains(text, sep) {
		return splitAtoms(text, rest, size)
	}
	parts := splitKeepSeparator(text, sep)
	var atoms []string
	for _, part := range parts {
		if part == "" {
			continue
		}
		if utf8.RuneCountInString(part) <= size {
			atoms = append(atoms, part)
		} else {
			atoms = append(atoms, splitAtoms(part, rest, size)...)
		}
	}
	return atoms
}

// splitKeepSeparator splits text on sep, reattaching sep to the end of each
// piece except the final one, so newline/space structure survives in the
// reassembled chunk content (spec.md §4.2: "separators are retained").
func splitKeepSeparator(text, sep string) []string {
	segments := strings.Split(text, sep)
	parts := make([]string, 0, len(segments))
	for i, seg := range segments {
		if i < len(segments)-1 {
			parts = append(parts, seg+sep)
		} else if seg != "" {
			parts = append(parts, seg)
		}
	}
	return parts
}

func hardSplit(text string, size int) []string {
	if size <= 0 {
		size = 1000
	}
	runes := []rune(text)
	var parts []string
	for i := 0; i < len(runes); i += size {
		end := i + size
		if end > len(runes) {
			end = len(runes)
		}
		parts = append(parts, string(runes[i:end]))
	}
	return parts
}

func mergeAtoms(atoms []string, size, overlap int) []string {
	var chunks []string
	var cur []string
	curLen := 0
	for _, atom := range atoms {
		atomLen := utf8.RuneCountInString(atom)
		if curLen > 0 && curLen+atomLen > size {
			chunks = append(chunks, strings.Join(cur, ""))
			cur, curLen = takeOverlapTail(cur, overlap)
		}
		cur = append(cur, atom)
		curLen += atomLen
	}
	if len(cur) > 0 {
		chunks = append(chunks, strings.Join(cur, ""))
	}
	return chunks
}

func takeOverlapTail(cur []string, overlap int) ([]string, int) {
	if overlap <= 0 {
		return nil, 0
	}
	var tail []string
	total := 0
	for i := len(cur) - 1; i >= 0; i-- {
		l := utf8.RuneCountInString(cur[i])
		if total+l > overlap {
			break
		}
		tail = append([]string{cur[i]}, tail...)
		total += l
	}
	return tail, total
}
