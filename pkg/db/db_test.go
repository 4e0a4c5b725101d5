package db

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenEnablesWAL(t *testing.T) {
	conn, err := Open(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer conn.Close()

	var journalMode string
	require.NoError(t, conn.Get(&journalMode, "PRAGMA journal_mode"))
	assert.Equal(t, "wal", journalMode)
}

func TestDefaultDBPathHonorsBasePath(t *testing.T) {
	t.Setenv("HFAGENT_BASE_PATH", "/tmp/hfagent-test")

	path, err := DefaultDBPath()
	require.NoError(t, err)
	assert.Equal(t, "/tmp/hfagent-test/runs.db", path)
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	ctx := context.Background()
	conn, err := Open(ctx, filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	defer conn.Close()

	applyCount := 0
	migrations := []Migration{
		{
			Version:     20250601120000,
			Description: "create things table",
			Up: func(tx *sql.Tx) error {
				applyCount++
				_, err := tx.Exec("CREATE TABLE things (id INTEGER PRIMARY KEY)")
				return err
			},
		},
	}

	require.NoError(t, RunMigrations(ctx, conn, migrations))
	require.NoError(t, RunMigrations(ctx, conn, migrations))
	assert.Equal(t, 1, applyCount)
}
