package database

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewAppliesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "server.db")

	db, err := New(path, ServerSchema, zap.NewNop())
	require.NoError(t, err)
	require.NoError(t, db.Close())

	// Re-opening must not fail on existing tables.
	db, err = New(path, ServerSchema, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	var applied int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM schema_migrations`).Scan(&applied))
	require.Equal(t, len(ServerSchema.Migrations), applied)

	for _, table := range []string{"users", "processes", "process_steps", "objects", "assignments", "records", "step_timings", "photos"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}

func TestClientSchemaHasFourCollections(t *testing.T) {
	db, err := New(filepath.Join(t.TempDir(), "client.db"), ClientSchema, zap.NewNop())
	require.NoError(t, err)
	defer db.Close()

	for _, table := range []string{"records", "steps", "photos", "processes"} {
		var name string
		err := db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		require.NoError(t, err, "table %s", table)
	}
}
