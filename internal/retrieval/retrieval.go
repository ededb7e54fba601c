package retrieval

import (
	"context"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/opennote/semindex/internal/embedclient"
	"github.com/opennote/semindex/internal/vectorstore"
)

// Scope restricts a search to an exact-match file list and/or a set of
// folder globs, combined per spec.md §4.6: AND between the two lists, OR
// within each list. An empty list imposes no constraint.
type Scope struct {
	Files   []string
	Folders []string
}

// Result is one ranked search hit, ready for presentation.
type Result struct {
	Path       string  `json:"path"`
	Content    string  `json:"content"`
	Similarity float64 `json:"similarity"`
	StartLine  int     `json:"start_line"`
	EndLine    int     `json:"end_line"`
	URL        string  `json:"url"`
}

// Engine is the Retrieval Engine (spec.md §4.6), grounded on the teacher's
// internal/service/ai_service.go search path generalized from its fixed
// note-scoped query to the workspace-scoped similarity contract, with
// folder-glob filtering adapted from DreamCats-bcindex's doublestar usage.
type Engine struct {
	root     string
	store    *vectorstore.Store
	embedder embedclient.Client
	scope    vectorstore.Scope
}

func New(root string, store *vectorstore.Store, embedder embedclient.Client, scope vectorstore.Scope) *Engine {
	return &Engine{root: root, store: store, embedder: embedder, scope: scope}
}

// Search embeds the query once and ranks the store's rows, applying an
// in-memory folder filter when requested.
func (e *Engine) Search(ctx context.Context, query string, minSimilarity float64, limit int, scope Scope) ([]Result, error) {
	vec, err := e.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	rows, err := e.store.Similar(ctx, e.scope, vec, limit, minSimilarity, scope.Files)
	if err != nil {
		return nil, err
	}

	var patterns []string
	if len(scope.Folders) > 0 {
		patterns = make([]string, len(scope.Folders))
		for i, f := range scope.Folders {
			patterns[i] = folderToGlob(f)
		}
	}

	results := make([]Result, 0, len(rows))
	for _, r := range rows {
		if len(patterns) > 0 && !matchesAny(patterns, r.Path) {
			continue
		}
		results = append(results, Result{
			Path:       r.Path,
			Content:    r.Content,
			Similarity: r.Similarity,
			StartLine:  r.StartLine,
			EndLine:    r.EndLine,
			URL:        fileURL(e.root, r.Path),
		})
	}
	return results, nil
}

// folderToGlob converts a scope.folders entry into a glob pattern per the
// exact rules of spec.md §4.6.
func folderToGlob(folder string) string {
	if strings.Contains(folder, "*") {
		return folder
	}
	if strings.HasPrefix(folder, "/") {
		return strings.TrimPrefix(folder, "/") + "/**"
	}
	return "**/" + folder + "/**"
}

func matchesAny(patterns []string, path string) bool {
	for _, p := range patterns {
		if ok, _ := doublestar.Match(p, path); ok {
			return true
		}
	}
	return false
}

func fileURL(root, relPath string) string {
	abs := filepath.Join(root, relPath)
	u := &url.URL{Scheme: "file", Path: filepath.ToSlash(abs)}
	return u.String()
}
