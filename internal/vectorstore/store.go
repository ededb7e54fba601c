package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/didi/gendry/builder"
	"github.com/pgvector/pgvector-go"

	"github.com/opennote/semindex/internal/model"
	"github.com/opennote/semindex/internal/pkg/dbutil"
)

// Store is the Vector Store (spec.md §4.4): all operations are scoped by
// workspace_id and model. Grounded on the teacher's repo package style
// (gendry builder + dbutil.Finalize rebinding, as in internal/repo/user_repo.go),
// generalized from its sqlite/MySQL placeholder dialect to Postgres, and on
// internal/repo/embedding_cache_repo.go for pgvector-go column marshaling.
type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Scope pins a workspace+model pair, the sole shared mutable resource
// (spec.md §5) the store's mutating operations touch.
type Scope struct {
	WorkspaceID string
	Model       string
}

// Result is one row returned by Similar, with its computed similarity.
type Result struct {
	Path       string
	Content    string
	Similarity float64
	StartLine  int
	EndLine    int
}

// IndexedPaths returns the set of distinct paths currently having rows for
// this workspace+model.
func (s *Store) IndexedPaths(ctx context.Context, scope Scope) (map[string]bool, error) {
	where := map[string]interface{}{
		"workspace_id": scope.WorkspaceID,
		"model":        scope.Model,
		"_groupby":     "path",
	}
	sqlStr, args, err := builder.BuildSelect("chunks", where, []string{"path"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := make(map[string]bool)
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths[p] = true
	}
	return paths, rows.Err()
}

// MtimesFor returns path -> max(mtime) among rows for the given paths.
func (s *Store) MtimesFor(ctx context.Context, scope Scope, paths []string) (map[string]int64, error) {
	result := make(map[string]int64)
	if len(paths) == 0 {
		return result, nil
	}
	where := map[string]interface{}{
		"workspace_id": scope.WorkspaceID,
		"model":        scope.Model,
		"path":         paths,
		"_groupby":     "path",
	}
	sqlStr, args, err := builder.BuildSelect("chunks", where, []string{"path", "MAX(mtime) AS mtime"})
	if err != nil {
		return nil, err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	rows, err := s.db.QueryContext(ctx, sqlStr, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var p string
		var mtime int64
		if err := rows.Scan(&p, &mtime); err != nil {
			return nil, err
		}
		result[p] = mtime
	}
	return result, rows.Err()
}

// DeleteFor deletes all rows matching any of the given paths (used before
// re-indexing a file, per the uniqueness-by-discipline invariant in
// spec.md §3, and for pruning a single removed file).
func (s *Store) DeleteFor(ctx context.Context, scope Scope, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	where := map[string]interface{}{
		"workspace_id": scope.WorkspaceID,
		"model":        scope.Model,
		"path":         paths,
	}
	sqlStr, args, err := builder.BuildDelete("chunks", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// DeleteAbsent deletes all rows whose path is NOT in keep. An empty keep
// set clears everything for this workspace+model, per spec.md §4.4.
func (s *Store) DeleteAbsent(ctx context.Context, scope Scope, keep []string) error {
	if len(keep) == 0 {
		return s.ClearAll(ctx, scope)
	}
	where := map[string]interface{}{
		"workspace_id": scope.WorkspaceID,
		"model":        scope.Model,
		"path notin":   keep,
	}
	sqlStr, args, err := builder.BuildDelete("chunks", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// ClearAll deletes everything for this workspace+model.
func (s *Store) ClearAll(ctx context.Context, scope Scope) error {
	where := map[string]interface{}{
		"workspace_id": scope.WorkspaceID,
		"model":        scope.Model,
	}
	sqlStr, args, err := builder.BuildDelete("chunks", where)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// Insert batch-inserts chunk rows. Each insert is atomic at the database
// level so concurrent readers never observe a torn batch (spec.md §5).
func (s *Store) Insert(ctx context.Context, rows []model.ChunkRow) error {
	if len(rows) == 0 {
		return nil
	}
	data := make([]map[string]interface{}, 0, len(rows))
	for _, row := range rows {
		metaBytes, err := json.Marshal(row.Metadata)
		if err != nil {
			return err
		}
		data = append(data, map[string]interface{}{
			"workspace_id": row.WorkspaceID,
			"path":         row.Path,
			"mtime":        row.Mtime,
			"content":      row.Content,
			"model":        row.Model,
			"dimension":    row.Dimension,
			"embedding":    pgvector.NewVector(row.Embedding),
			"metadata":     metaBytes,
		})
	}
	sqlStr, args, err := builder.BuildInsert("chunks", data)
	if err != nil {
		return err
	}
	sqlStr, args = dbutil.Finalize(sqlStr, args)
	_, err = s.db.ExecContext(ctx, sqlStr, args...)
	return err
}

// SchemaDimension returns the declared length of the vector column, or nil
// if the table is absent or the column is the legacy generic JSON-array
// type (spec.md §4.4).
func (s *Store) SchemaDimension(ctx context.Context) (*int, error) {
	const query = `
		SELECT format_type(a.atttypid, a.atttypmod)
		FROM pg_attribute a
		JOIN pg_class c ON a.attrelid = c.oid
		WHERE c.relname = 'chunks' AND a.attname = 'embedding' AND a.attnum > 0 AND NOT a.attisdropped
	`
	var formatted string
	if err := s.db.QueryRowContext(ctx, query).Scan(&formatted); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	var dim int
	if _, err := fmt.Sscanf(formatted, "vector(%d)", &dim); err != nil {
		// Column exists but isn't the native vector type (legacy jsonb
		// fallback) - no declared vector length to report.
		return nil, nil
	}
	return &dim, nil
}

// LastUpdated returns the most recent chunk mtime recorded for this
// workspace across all models, or nil if nothing has been indexed yet.
func (s *Store) LastUpdated(ctx context.Context, workspaceID string) (*int64, error) {
	const query = `SELECT MAX(mtime) FROM chunks WHERE workspace_id = $1`
	var mtime sql.NullInt64
	if err := s.db.QueryRowContext(ctx, query, workspaceID).Scan(&mtime); err != nil {
		return nil, err
	}
	if !mtime.Valid {
		return nil, nil
	}
	v := mtime.Int64
	return &v, nil
}

// ModelStats answers the per-model portion of a status request (spec.md §6).
func (s *Store) ModelStats(ctx context.Context, workspaceID string) ([]model.ModelRowStats, error) {
	const query = `
		SELECT model, COUNT(*), COALESCE(SUM(octet_length(content)), 0)
		FROM chunks
		WHERE workspace_id = $1
		GROUP BY model
	`
	rows, err := s.db.QueryContext(ctx, query, workspaceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []model.ModelRowStats
	for rows.Next() {
		var m model.ModelRowStats
		if err := rows.Scan(&m.Model, &m.RowCount, &m.TotalDataBytes); err != nil {
			return nil, err
		}
		stats = append(stats, m)
	}
	return stats, rows.Err()
}
