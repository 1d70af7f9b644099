package migrate

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func openSQLite(t *testing.T) *sql.DB {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "migrate.db")), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := conn.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return sqlDB
}

func TestRunAppliesLedgerMigrationsOnSQLite(t *testing.T) {
	UseDriver("sqlite")
	t.Cleanup(func() { UseDriver("postgres") })

	sqlDB := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, Run(ctx, sqlDB, "migrations", "up"))

	for _, table := range []string{"residents", "inventory_items", "distribution_batches", "batch_items", "claim_records", "outbox_events", "outbox_dlq"} {
		var name string
		err := sqlDB.QueryRow(`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table).Scan(&name)
		require.NoError(t, err, table)
	}

	_, err := sqlDB.Exec(`INSERT INTO inventory_items (id, name, total, allocated) VALUES ('a3b9d3c2-2f4f-4d8e-9b59-0d1c4a1f7e01', 'Rice', 5, 6)`)
	require.Error(t, err, "allocated above total must be rejected")

	require.NoError(t, Run(ctx, sqlDB, "migrations", "reset"))
}

func TestValidateDirAcceptsLedgerMigrations(t *testing.T) {
	require.NoError(t, ValidateDir("migrations"))
}

func TestValidateDirRejectsBadNames(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad-name.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.Error(t, ValidateDir(dir))
}

func TestCreateSQLMigrationSanitizesName(t *testing.T) {
	dir := t.TempDir()
	path, err := CreateSQLMigration(dir, "Add Claim Index!")
	require.NoError(t, err)
	require.True(t, strings.HasSuffix(path, "_add_claim_index.sql"), path)
	require.NoError(t, ValidateDir(dir))
}

func TestCreateSQLMigrationNeverReusesVersion(t *testing.T) {
	dir := t.TempDir()
	future := "29991231235959_later_change.sql"
	require.NoError(t, os.WriteFile(filepath.Join(dir, future), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))

	path, err := CreateSQLMigration(dir, "claim feed index")
	require.NoError(t, err)

	files, err := ListDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, filepath.Join(dir, future), files[0].Path)
	require.Equal(t, path, files[1].Path)
	require.Equal(t, "claim_feed_index", files[1].Slug)
}

func TestListDirRejectsDuplicateVersionsAndMissingDown(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_a.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "20260101000000_b.sql"), []byte("-- +goose Up\n-- +goose Down\n"), 0o644))
	_, err := ListDir(dir)
	require.ErrorContains(t, err, "share version")

	other := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(other, "20260101000000_a.sql"), []byte("-- +goose Up\n"), 0o644))
	require.ErrorContains(t, ValidateDir(other), "-- +goose Down")
}

func TestCreateSQLMigrationRejectsEmptySlug(t *testing.T) {
	_, err := CreateSQLMigration(t.TempDir(), "!!!")
	require.Error(t, err)
}

func TestUseDriverSelectsDialect(t *testing.T) {
	t.Cleanup(func() { UseDriver("postgres") })
	UseDriver("SQLite")
	require.Equal(t, "sqlite3", dialect)
	UseDriver("postgres")
	require.Equal(t, "postgres", dialect)
}
