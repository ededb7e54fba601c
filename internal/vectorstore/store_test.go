package vectorstore_test

import (
	"context"
	"testing"

	"github.com/opennote/semindex/internal/model"
	"github.com/opennote/semindex/internal/vectorstore"
	"github.com/opennote/semindex/test/testutil"
)

func rowFor(workspaceID, path string, mtime int64, vec []float32) model.ChunkRow {
	return model.ChunkRow{
		WorkspaceID: workspaceID,
		Path:        path,
		Mtime:       mtime,
		Content:     "content of " + path,
		Model:       "test-model",
		Dimension:   len(vec),
		Embedding:   vec,
		Metadata:    model.ChunkMetadata{StartLine: 1, EndLine: 1},
	}
}

// schemaDim is the declared length of chunks.embedding (vector(1536) in
// migrations/0001_init.sql); every stored and query vector must have it.
const schemaDim = 1536

// vec returns a schemaDim-length vector whose leading values are head and
// whose remaining values are zero.
func vec(head ...float32) []float32 {
	v := make([]float32, schemaDim)
	copy(v, head)
	return v
}

func TestStoreCRUDAndSimilarity(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	store := vectorstore.New(db)
	ctx := context.Background()
	scope := vectorstore.Scope{WorkspaceID: "test-ws-store-crud", Model: "test-model"}

	if err := store.ClearAll(ctx, scope); err != nil {
		t.Fatalf("ClearAll setup: %v", err)
	}

	rows := []model.ChunkRow{
		rowFor(scope.WorkspaceID, "a.go", 100, vec(1, 0, 0)),
		rowFor(scope.WorkspaceID, "b.go", 200, vec(0, 1, 0)),
	}
	if err := store.Insert(ctx, rows); err != nil {
		t.Fatalf("Insert: %v", err)
	}

	t.Run("IndexedPaths", func(t *testing.T) {
		paths, err := store.IndexedPaths(ctx, scope)
		if err != nil {
			t.Fatalf("IndexedPaths: %v", err)
		}
		if !paths["a.go"] || !paths["b.go"] {
			t.Errorf("expected both paths indexed, got %v", paths)
		}
	})

	t.Run("MtimesFor", func(t *testing.T) {
		mtimes, err := store.MtimesFor(ctx, scope, []string{"a.go", "b.go"})
		if err != nil {
			t.Fatalf("MtimesFor: %v", err)
		}
		if mtimes["a.go"] != 100 || mtimes["b.go"] != 200 {
			t.Errorf("unexpected mtimes: %v", mtimes)
		}
	})

	t.Run("Similar ranks by cosine distance", func(t *testing.T) {
		results, err := store.Similar(ctx, scope, vec(1, 0, 0), 5, 0, nil)
		if err != nil {
			t.Fatalf("Similar: %v", err)
		}
		if len(results) == 0 || results[0].Path != "a.go" {
			t.Fatalf("expected a.go to rank first, got %+v", results)
		}
	})

	t.Run("Similar respects scopeFiles", func(t *testing.T) {
		results, err := store.Similar(ctx, scope, vec(1, 0, 0), 5, 0, []string{"b.go"})
		if err != nil {
			t.Fatalf("Similar: %v", err)
		}
		for _, r := range results {
			if r.Path != "b.go" {
				t.Errorf("expected only b.go, got %q", r.Path)
			}
		}
	})

	t.Run("DeleteFor removes named paths", func(t *testing.T) {
		if err := store.DeleteFor(ctx, scope, []string{"a.go"}); err != nil {
			t.Fatalf("DeleteFor: %v", err)
		}
		paths, err := store.IndexedPaths(ctx, scope)
		if err != nil {
			t.Fatalf("IndexedPaths: %v", err)
		}
		if paths["a.go"] {
			t.Error("a.go should have been deleted")
		}
		if !paths["b.go"] {
			t.Error("b.go should remain")
		}
	})

	t.Run("DeleteAbsent prunes everything not kept", func(t *testing.T) {
		if err := store.Insert(ctx, []model.ChunkRow{rowFor(scope.WorkspaceID, "c.go", 300, vec(0, 0, 1))}); err != nil {
			t.Fatalf("Insert: %v", err)
		}
		if err := store.DeleteAbsent(ctx, scope, []string{"b.go"}); err != nil {
			t.Fatalf("DeleteAbsent: %v", err)
		}
		paths, err := store.IndexedPaths(ctx, scope)
		if err != nil {
			t.Fatalf("IndexedPaths: %v", err)
		}
		if len(paths) != 1 || !paths["b.go"] {
			t.Errorf("expected only b.go to remain, got %v", paths)
		}
	})

	t.Run("ClearAll empties the scope", func(t *testing.T) {
		if err := store.ClearAll(ctx, scope); err != nil {
			t.Fatalf("ClearAll: %v", err)
		}
		paths, err := store.IndexedPaths(ctx, scope)
		if err != nil {
			t.Fatalf("IndexedPaths: %v", err)
		}
		if len(paths) != 0 {
			t.Errorf("expected empty scope, got %v", paths)
		}
	})
}

func TestStoreSkippedMarkerExcludedFromSimilar(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	store := vectorstore.New(db)
	ctx := context.Background()
	scope := vectorstore.Scope{WorkspaceID: "test-ws-skipped", Model: "test-model"}

	if err := store.ClearAll(ctx, scope); err != nil {
		t.Fatalf("ClearAll setup: %v", err)
	}
	marker := model.SkippedMarker(scope.WorkspaceID, "empty.bin", 100, scope.Model, schemaDim, "binary", 0)
	if err := store.Insert(ctx, []model.ChunkRow{marker}); err != nil {
		t.Fatalf("Insert skipped marker: %v", err)
	}

	results, err := store.Similar(ctx, scope, vec(0, 0, 0), 5, -1, nil)
	if err != nil {
		t.Fatalf("Similar: %v", err)
	}
	for _, r := range results {
		if r.Path == "empty.bin" {
			t.Error("skipped marker row must never surface in Similar results")
		}
	}
}

func TestStoreSchemaDimensionAndModelStats(t *testing.T) {
	db, cleanup := testutil.OpenTestDB(t)
	defer cleanup()
	store := vectorstore.New(db)
	ctx := context.Background()
	scope := vectorstore.Scope{WorkspaceID: "test-ws-stats", Model: "test-model"}

	if err := store.ClearAll(ctx, scope); err != nil {
		t.Fatalf("ClearAll setup: %v", err)
	}
	dim, err := store.SchemaDimension(ctx)
	if err != nil {
		t.Fatalf("SchemaDimension: %v", err)
	}
	if dim == nil {
		t.Fatal("expected a declared vector dimension on a fresh native schema")
	}

	if err := store.Insert(ctx, []model.ChunkRow{rowFor(scope.WorkspaceID, "a.go", 1, make([]float32, *dim))}); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	stats, err := store.ModelStats(ctx, scope.WorkspaceID)
	if err != nil {
		t.Fatalf("ModelStats: %v", err)
	}
	found := false
	for _, s := range stats {
		if s.Model == scope.Model && s.RowCount >= 1 {
			found = true
		}
	}
	if !found {
		t.Errorf("expected model stats entry for %q, got %+v", scope.Model, stats)
	}
}
