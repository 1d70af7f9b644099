// Package dbtest opens throwaway sqlite databases carrying the ledger schema.
package dbtest

import (
	"fmt"
	"path/filepath"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/civicgrid/resident-portal/pkg/db"
	"github.com/civicgrid/resident-portal/pkg/db/models"
)

// Open returns a client backed by a file database in t.TempDir().
// Transactions begin IMMEDIATE so concurrent writers queue on the database
// lock the way row locks queue them on Postgres.
func Open(t *testing.T) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?_busy_timeout=5000&_txlock=immediate&_foreign_keys=on",
		filepath.Join(t.TempDir(), "ledger.db"))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(
		&models.Resident{},
		&models.InventoryItem{},
		&models.DistributionBatch{},
		&models.BatchItem{},
		&models.ClaimRecord{},
		&models.OutboxEvent{},
		&models.OutboxDLQ{},
	); err != nil {
		t.Fatalf("migrate sqlite: %v", err)
	}

	client := db.Wrap(conn)
	t.Cleanup(func() { _ = client.Close() })
	return client
}
