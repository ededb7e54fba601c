package scanner

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Entry is one file reported by Scan: path is workspace-relative with
// forward slashes, per spec.md §4.3.
type Entry struct {
	Path     string
	MtimeMS  int64
	Size     int64
}

// Scanner walks a workspace root and yields files matching at least one
// include pattern and no exclude pattern, grounded on the teacher pack's
// doublestar-based FileFilter (DreamCats-bcindex's internal/bcindex/filter.go),
// generalized from a fixed extension whitelist to spec.md's configurable
// include/exclude glob lists.
type Scanner struct {
	root     string
	includes []string
	excludes []string
}

func New(root string, includes, excludes []string) *Scanner {
	return &Scanner{root: root, includes: includes, excludes: excludes}
}

// Root returns the workspace root this scanner walks.
func (s *Scanner) Root() string {
	return s.root
}

// Scan returns every regular file under the root matching the include/
// exclude rules. Hidden files (basename starting with '.') are excluded by
// default unless an exclude pattern itself uses leading-dot glob semantics
// (i.e. the caller explicitly opted into matching dotfiles).
func (s *Scanner) Scan() ([]Entry, error) {
	var entries []Entry
	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		rel, relErr := filepath.Rel(s.root, path)
		if relErr != nil {
			return nil
		}
		rel = filepath.ToSlash(rel)
		if !s.matches(rel) {
			return nil
		}
		info, statErr := d.Info()
		if statErr != nil {
			return nil
		}
		entries = append(entries, Entry{
			Path:    rel,
			MtimeMS: info.ModTime().UnixMilli(),
			Size:    info.Size(),
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// Filter returns the subset of the given workspace-relative paths that
// still exist on disk and still match the include/exclude rules, per
// spec.md §4.3's pruning helper.
func (s *Scanner) Filter(paths []string) []string {
	var kept []string
	for _, p := range paths {
		if !s.matches(p) {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.root, p)); err != nil {
			continue
		}
		kept = append(kept, p)
	}
	return kept
}

func (s *Scanner) matches(relPath string) bool {
	if isHidden(relPath) && !anyExcludeWantsHidden(s.excludes) {
		return false
	}
	if !matchesAny(s.includes, relPath) {
		return false
	}
	if matchesAny(s.excludes, relPath) {
		return false
	}
	return true
}

func matchesAny(patterns []string, relPath string) bool {
	for _, pattern := range patterns {
		ok, _ := doublestar.Match(pattern, relPath)
		if ok {
			return true
		}
		ok, _ = doublestar.Match(pattern, filepath.Base(relPath))
		if ok {
			return true
		}
	}
	return false
}

func isHidden(relPath string) bool {
	for _, part := range strings.Split(relPath, "/") {
		if strings.HasPrefix(part, ".") && part != "." && part != ".." {
			return true
		}
	}
	return false
}

func anyExcludeWantsHidden(excludes []string) bool {
	for _, pattern := range excludes {
		for _, segment := range strings.Split(pattern, "/") {
			if strings.HasPrefix(segment, ".") {
				return true
			}
		}
	}
	return false
}
