// Package testdb opens a migrated in-memory SQLite store for tests.
package testdb

import (
	"context"
	"fmt"
	"sync/atomic"
	"testing"

	"gorm.io/gorm"

	"github.com/humanebio/storefront/database/migrations"
	"github.com/humanebio/storefront/pkg/database"
	"github.com/humanebio/storefront/pkg/migration"
)

var seq atomic.Int64

// Open returns a fresh database with the full schema. Each call gets its
// own named in-memory database, closed when the test ends.
func Open(t testing.TB) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:storefront_test_%d?mode=memory&cache=shared", seq.Add(1))
	db, err := database.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("testdb: open: %v", err)
	}
	t.Cleanup(func() { _ = database.Close(db) })

	if _, err := migration.New(db, migrations.All()...).Run(context.Background()); err != nil {
		t.Fatalf("testdb: migrate: %v", err)
	}
	return db
}
