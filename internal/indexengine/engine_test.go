package indexengine

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/opennote/semindex/internal/chunker"
	"github.com/opennote/semindex/internal/pkg/apperr"
	"github.com/opennote/semindex/internal/progress"
	"github.com/opennote/semindex/internal/scanner"
	"github.com/opennote/semindex/internal/vectorstore"
	"github.com/opennote/semindex/test/testutil"
)

type fakeEmbedder struct {
	dim int
}

func (f *fakeEmbedder) ID() string     { return "fake" }
func (f *fakeEmbedder) Dimension() int { return f.dim }
func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vec := make([]float32, f.dim)
	for i := range vec {
		vec[i] = float32(len(text)%7) / 7
	}
	return vec, nil
}

func newTestEngine(t *testing.T, root string) (*Engine, *vectorstore.Store) {
	t.Helper()
	db, cleanup := testutil.OpenTestDB(t)
	t.Cleanup(cleanup)
	store := vectorstore.New(db)

	sc := scanner.New(root, []string{"**/*"}, nil)
	ck := chunker.New(chunker.Config{Size: 200, Overlap: 20})
	reporter, err := progress.New("test-engine-" + filepath.Base(root))
	if err != nil {
		t.Fatalf("progress.New: %v", err)
	}
	t.Cleanup(func() { reporter.Close() })

	engine := New("test-engine-ws", "fake-model", store, sc, ck, &fakeEmbedder{dim: 1536}, reporter)
	scope := engine.Scope()
	if err := store.ClearAll(context.Background(), scope); err != nil {
		t.Fatalf("ClearAll setup: %v", err)
	}
	return engine, store
}

func TestEngineUpdateIndexesNewFiles(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("hello world, this is indexable content"), 0o644)

	engine, store := newTestEngine(t, root)
	if err := engine.Update(context.Background(), Options{}, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	paths, err := store.IndexedPaths(context.Background(), engine.Scope())
	if err != nil {
		t.Fatalf("IndexedPaths: %v", err)
	}
	if !paths["a.txt"] {
		t.Errorf("expected a.txt indexed, got %v", paths)
	}
}

func TestEngineUpdateSkipsUnchangedFiles(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("some content to index here"), 0o644)

	engine, store := newTestEngine(t, root)
	ctx := context.Background()
	if err := engine.Update(ctx, Options{}, nil); err != nil {
		t.Fatalf("first Update: %v", err)
	}
	mtimesBefore, err := store.MtimesFor(ctx, engine.Scope(), []string{"a.txt"})
	if err != nil {
		t.Fatalf("MtimesFor: %v", err)
	}

	if err := engine.Update(ctx, Options{}, nil); err != nil {
		t.Fatalf("second Update: %v", err)
	}
	mtimesAfter, err := store.MtimesFor(ctx, engine.Scope(), []string{"a.txt"})
	if err != nil {
		t.Fatalf("MtimesFor: %v", err)
	}
	if mtimesBefore["a.txt"] != mtimesAfter["a.txt"] {
		t.Error("re-running Update on an unchanged workspace should not rewrite rows")
	}
}

func TestEngineUpdatePrunesDeletedFiles(t *testing.T) {
	root := t.TempDir()
	deletedPath := filepath.Join(root, "gone.txt")
	os.WriteFile(deletedPath, []byte("temporary content for a file about to vanish"), 0o644)

	engine, store := newTestEngine(t, root)
	ctx := context.Background()
	if err := engine.Update(ctx, Options{}, nil); err != nil {
		t.Fatalf("first Update: %v", err)
	}
	os.Remove(deletedPath)

	if err := engine.Update(ctx, Options{}, nil); err != nil {
		t.Fatalf("second Update: %v", err)
	}
	paths, err := store.IndexedPaths(ctx, engine.Scope())
	if err != nil {
		t.Fatalf("IndexedPaths: %v", err)
	}
	if paths["gone.txt"] {
		t.Error("deleted file should have been pruned from the index")
	}
}

func TestEngineUpdateRejectsConcurrentCalls(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		name := "file" + string(rune('a'+i)) + ".txt"
		os.WriteFile(filepath.Join(root, name), []byte("content for concurrency test padding text here"), 0o644)
	}
	engine, _ := newTestEngine(t, root)

	var wg sync.WaitGroup
	errs := make([]error, 2)
	wg.Add(2)
	for i := 0; i < 2; i++ {
		i := i
		go func() {
			defer wg.Done()
			errs[i] = engine.Update(context.Background(), Options{}, nil)
		}()
	}
	wg.Wait()

	busyCount := 0
	for _, err := range errs {
		if apperr.IsBusy(err) {
			busyCount++
		}
	}
	if busyCount == 0 {
		t.Error("expected at least one concurrent Update call to be rejected with ErrBusy")
	}
}

func TestEngineUpdateHonorsCancellation(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 5; i++ {
		os.WriteFile(filepath.Join(root, "f"+string(rune('a'+i))+".txt"), []byte("content that will be chunked and then embedding is skipped"), 0o644)
	}
	engine, store := newTestEngine(t, root)

	engine.Cancel()
	if err := engine.Update(context.Background(), Options{}, nil); err != nil {
		t.Fatalf("Update with pre-cancelled token: %v", err)
	}
	paths, err := store.IndexedPaths(context.Background(), engine.Scope())
	if err != nil {
		t.Fatalf("IndexedPaths: %v", err)
	}
	if len(paths) != 0 {
		t.Errorf("expected no rows inserted when cancelled before embedding, got %v", paths)
	}
}

func TestEngineUpdateRecordsSkippedMarkerForEmptyFile(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "a.md"), []byte("some real content to index"), 0o644)
	os.WriteFile(filepath.Join(root, "b.md"), nil, 0o644)

	engine, store := newTestEngine(t, root)
	if err := engine.Update(context.Background(), Options{}, nil); err != nil {
		t.Fatalf("Update: %v", err)
	}

	paths, err := store.IndexedPaths(context.Background(), engine.Scope())
	if err != nil {
		t.Fatalf("IndexedPaths: %v", err)
	}
	if !paths["b.md"] {
		t.Error("expected an empty file to still get a skipped-marker row, not be dropped entirely")
	}

	stats, err := store.ModelStats(context.Background(), "test-engine-ws")
	if err != nil {
		t.Fatalf("ModelStats: %v", err)
	}
	var rowCount int64
	for _, s := range stats {
		rowCount += s.RowCount
	}
	if rowCount != 2 {
		t.Errorf("expected 2 rows (1 content chunk + 1 skipped marker), got %d", rowCount)
	}
}

func TestEngineUpdateRecordsSkippedMarkerForFileTruncatedToEmpty(t *testing.T) {
	root := t.TempDir()
	path := filepath.Join(root, "c.md")
	os.WriteFile(path, []byte("content that will later be truncated away"), 0o644)

	engine, store := newTestEngine(t, root)
	if err := engine.Update(context.Background(), Options{}, nil); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	// truncate to zero bytes and bump mtime so the diff step picks it up again.
	if err := os.Truncate(path, 0); err != nil {
		t.Fatalf("Truncate: %v", err)
	}
	later := time.Now().Add(time.Second)
	if err := os.Chtimes(path, later, later); err != nil {
		t.Fatalf("Chtimes: %v", err)
	}

	if err := engine.Update(context.Background(), Options{}, nil); err != nil {
		t.Fatalf("second Update: %v", err)
	}

	paths, err := store.IndexedPaths(context.Background(), engine.Scope())
	if err != nil {
		t.Fatalf("IndexedPaths: %v", err)
	}
	if !paths["c.md"] {
		t.Error("a file truncated to zero bytes must keep a skipped-marker row, not be pruned as gone")
	}
}

func TestEngineCancelStopsRunStartedByAnotherCaller(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		name := "file" + string(rune('a'+i)) + ".txt"
		os.WriteFile(filepath.Join(root, name), []byte("padding content for the cross-surface cancel test"), 0o644)
	}
	engine, store := newTestEngine(t, root)

	go engine.Update(context.Background(), Options{}, nil)
	time.Sleep(10 * time.Millisecond)

	// a second caller with no handle on whatever token started the run
	// must still be able to stop it - there's only one token, owned by
	// the engine itself.
	engine.Cancel()
	time.Sleep(200 * time.Millisecond)

	paths, err := store.IndexedPaths(context.Background(), engine.Scope())
	if err != nil {
		t.Fatalf("IndexedPaths: %v", err)
	}
	if len(paths) == 20 {
		t.Error("expected the cancel to stop the run before every file was indexed")
	}
}

func TestEngineRunFailsWhenAllFilesFailToRead(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("running as root bypasses file permission checks")
	}

	root := t.TempDir()
	badPath := filepath.Join(root, "unreadable.txt")
	if err := os.WriteFile(badPath, []byte("will be made unreadable"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if err := os.Chmod(badPath, 0o000); err != nil {
		t.Fatalf("Chmod: %v", err)
	}
	t.Cleanup(func() { os.Chmod(badPath, 0o644) })

	engine, store := newTestEngine(t, root)
	err := engine.Update(context.Background(), Options{}, nil)
	if !errors.Is(err, apperr.ErrIndexing) {
		t.Errorf("expected ErrIndexing when every file in the run fails to read, got %v", err)
	}
	paths, err2 := store.IndexedPaths(context.Background(), engine.Scope())
	if err2 != nil {
		t.Fatalf("IndexedPaths: %v", err2)
	}
	if len(paths) != 0 {
		t.Errorf("expected no rows inserted, got %v", paths)
	}
}

func TestEngineUpdateAsyncRejectsConcurrentCallSynchronously(t *testing.T) {
	root := t.TempDir()
	for i := 0; i < 20; i++ {
		name := "file" + string(rune('a'+i)) + ".txt"
		os.WriteFile(filepath.Join(root, name), []byte("padding content for the async-busy-check test"), 0o644)
	}
	engine, _ := newTestEngine(t, root)

	if err := engine.UpdateAsync(context.Background(), Options{}, nil); err != nil {
		t.Fatalf("first UpdateAsync: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if err := engine.UpdateAsync(context.Background(), Options{}, nil); !apperr.IsBusy(err) {
		t.Errorf("expected a concurrent UpdateAsync to fail synchronously with ErrBusy, got %v", err)
	}

	// let the first run finish so it doesn't leak into other tests.
	for i := 0; i < 100 && engine.busy.Load(); i++ {
		time.Sleep(50 * time.Millisecond)
	}
}

func TestEngineUpdateRejectsDimensionMismatch(t *testing.T) {
	root := t.TempDir()
	os.WriteFile(filepath.Join(root, "a.txt"), []byte("content indexed once to fix the schema dimension"), 0o644)

	engine, store := newTestEngine(t, root)
	ctx := context.Background()
	if err := engine.Update(ctx, Options{}, nil); err != nil {
		t.Fatalf("first Update: %v", err)
	}

	mismatched := New("test-engine-ws", "fake-model", store, engine.scanner, engine.chunker, &fakeEmbedder{dim: 999}, engine.reporter)
	// the chunks table's embedding column is a fixed vector(1536); any
	// embedder advertising a different dimension must be rejected before
	// any rows are written.
	err := mismatched.Update(ctx, Options{}, nil)
	if !apperr.IsConfig(err) {
		t.Errorf("expected ErrConfig for dimension mismatch, got %v", err)
	}
}
