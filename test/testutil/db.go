package testutil

import (
	"database/sql"
	"os"
	"testing"

	"github.com/opennote/semindex/internal/vectorstore"
)

// OpenTestDB grounds on the teacher's test/testutil/db.go: skip Postgres-backed
// tests entirely unless TEST_DB_HOST is set in the environment.
func OpenTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()
	host := os.Getenv("TEST_DB_HOST")
	if host == "" {
		t.Skip("TEST_DB_HOST not set, skipping postgres test")
	}
	conn, err := vectorstore.Open(vectorstore.DatabaseConfig{
		Host:     host,
		Port:     5432,
		User:     "semindex",
		Password: "semindex_pass",
		DBName:   "semindex_test",
		SSLMode:  "disable",
	})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := vectorstore.ApplyMigrations(conn); err != nil {
		t.Fatalf("migrations: %v", err)
	}
	return conn, func() {
		_ = conn.Close()
	}
}
