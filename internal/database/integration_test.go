package database

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	db, err := OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.RunMigrations(context.Background(), EmbeddedMigrations())
	require.NoError(t, err)
	return db
}

// TestDatabaseIntegration tests the complete database lifecycle
func TestDatabaseIntegration(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	tables := []string{"users", "game_modules", "progress", "achievements", "user_achievements", "sessions"}
	for _, table := range tables {
		var name string
		err := db.QueryRowContext(ctx, "SELECT name FROM sqlite_master WHERE type='table' AND name=?", table).Scan(&name)
		assert.NoError(t, err, "table %s", table)
	}
}

func TestRunMigrationsIsIdempotent(t *testing.T) {
	db := openTestDB(t)

	applied, err := db.RunMigrations(context.Background(), EmbeddedMigrations())
	require.NoError(t, err)
	assert.Empty(t, applied)
}

// TestDatabaseTransactions tests transaction support
func TestDatabaseTransactions(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	insert := "INSERT INTO users (username, password_hash, progress, created_at, updated_at) VALUES (?, ?, ?, ?, ?)"

	err := db.WithTx(ctx, func(tx *Tx) error {
		_, err := tx.ExecContext(ctx, insert, "testuser", "hash", "{}", now, now)
		return err
	})
	require.NoError(t, err)

	tx, err := db.BeginTx(ctx)
	require.NoError(t, err)
	_, err = tx.ExecContext(ctx, insert, "testuser2", "hash", "{}", now, now)
	require.NoError(t, err)
	require.NoError(t, tx.Rollback())

	var count int
	require.NoError(t, db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count))
	assert.Equal(t, 1, count)

	_, err = db.ExecContext(ctx, insert, "TESTUSER", "hash", "{}", now, now)
	require.Error(t, err)
	assert.True(t, db.Dialect.IsUniqueViolation(err))
}

func TestExecReturningID(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	id, err := db.ExecReturningID(ctx,
		"INSERT INTO achievements (name, type, requirement, created_at) VALUES (?, ?, ?, ?)",
		"Rookie", "completion", 1, now)
	require.NoError(t, err)
	assert.Equal(t, int64(1), id)
}

// TestConcurrentAccess tests concurrent database access
func TestConcurrentAccess(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	now := time.Now().UTC()

	_, err := db.ExecContext(ctx,
		"INSERT INTO users (username, password_hash, progress, created_at, updated_at) VALUES (?, ?, ?, ?, ?)",
		"concurrentuser", "hash", "{}", now, now)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			var username string
			err := db.QueryRowContext(ctx, "SELECT username FROM users WHERE id = ?", 1).Scan(&username)
			assert.NoError(t, err)
			assert.Equal(t, "concurrentuser", username)
		}()
	}
	wg.Wait()
}
