package sqlite

import (
	"context"
	"net/url"
	"testing"

	"github.com/stretchr/testify/require"
)

// setupTestDB opens a shared-cache in-memory database named after the test
// and applies both schemas. Readers and the writer see the same data.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	dsn := buildDSN(url.PathEscape(t.Name()), "mode=memory", "cache=shared")
	db, err := open(context.Background(), dsn)
	require.NoError(t, err, "open test db")
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, RunMigrations(db.Writer.DB, SchemaClient, SchemaServer))
	return db
}
