package progress

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/xxxsen/common/logutil"
	"go.uber.org/zap"

	"github.com/opennote/semindex/internal/model"
)

// Reporter is the Progress Reporter (spec.md §4.7): an append-only,
// workspace-scoped JSON-lines log. Writes must never block indexing, so a
// failure to append is logged once and swallowed, grounded on the teacher's
// logutil-based warn-and-continue style in internal/job/ai_embedding_job.go.
type Reporter struct {
	mu       sync.Mutex
	path     string
	file     *os.File
	warnOnce sync.Once
}

// New truncates (or creates) the JSONL log at os.TempDir()/semindex/<workspaceID>.jsonl
// so each process starts with a clean record, per spec.md §4.7. The log is
// truncated only here; events from later runs through the same Reporter are
// appended.
func New(workspaceID string) (*Reporter, error) {
	dir := filepath.Join(os.TempDir(), "semindex")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(dir, workspaceID+".jsonl")
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, err
	}
	return &Reporter{path: path, file: file}, nil
}

// Path returns the log file's location, for the HTTP console's tail endpoint.
func (r *Reporter) Path() string {
	return r.path
}

// Emit appends one event as a JSON line stamped with the current time.
func (r *Reporter) Emit(ctx context.Context, evt model.ProgressEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()

	line := struct {
		Timestamp string                 `json:"timestamp"`
		Type      model.ProgressEventType `json:"type"`
		Data      model.ProgressEvent    `json:"data"`
	}{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Type:      evt.Type,
		Data:      evt,
	}
	encoded, err := json.Marshal(line)
	if err != nil {
		r.warn(ctx, err)
		return
	}
	encoded = append(encoded, '\n')
	if _, err := r.file.Write(encoded); err != nil {
		r.warn(ctx, err)
	}
}

func (r *Reporter) warn(ctx context.Context, err error) {
	r.warnOnce.Do(func() {
		logutil.GetLogger(ctx).Warn("progress log append failed", zap.String("path", r.path), zap.Error(err))
	})
}

// Close releases the underlying file handle.
func (r *Reporter) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.file.Close()
}

// Tail reads the last n lines of the log for the HTTP console's progress
// endpoint. A non-positive n returns the whole file.
func Tail(path string, n int) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	lines := splitNonEmptyLines(string(data))
	if n > 0 && len(lines) > n {
		lines = lines[len(lines)-n:]
	}
	return lines, nil
}

func splitNonEmptyLines(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '\n' {
			if i > start {
				out = append(out, s[start:i])
			}
			start = i + 1
		}
	}
	if start < len(s) {
		out = append(out, s[start:])
	}
	return out
}
