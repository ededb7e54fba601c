package vectorstore

import (
	"context"
	"database/sql"

	"github.com/opennote/semindex/internal/workspace"
)

// WithWorkspaceLock acquires a cross-process exclusive Postgres advisory
// lock keyed by a deterministic hash of workspaceID, runs fn, and releases
// the lock on every exit path including panic/failure (spec.md §4.4).
// Lock holders outside this process block rather than fail; if the holder's
// connection dies, Postgres releases the lock automatically.
func (s *Store) WithWorkspaceLock(ctx context.Context, workspaceID string, fn func(conn *sql.Conn) error) error {
	key := workspace.LockKey(workspaceID)
	conn, err := s.db.Conn(ctx)
	if err != nil {
		return err
	}
	defer conn.Close()

	if _, err := conn.ExecContext(ctx, `SELECT pg_advisory_lock($1)`, key); err != nil {
		return err
	}
	defer func() {
		// Best-effort: the session-scoped connection release above also
		// drops the lock if this unlock fails, but we still try explicitly
		// so the lock frees immediately rather than waiting for the pool
		// to recycle the connection.
		_, _ = conn.ExecContext(context.Background(), `SELECT pg_advisory_unlock($1)`, key)
	}()

	return fn(conn)
}
