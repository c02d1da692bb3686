package migration

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/humanebio/storefront/pkg/database"
)

type widget struct {
	ID   uint
	Name string
}

type createWidgets struct{}

func (createWidgets) Up(tx *gorm.DB) error   { return tx.AutoMigrate(&widget{}) }
func (createWidgets) Down(tx *gorm.DB) error { return tx.Migrator().DropTable(&widget{}) }

type broken struct{}

func (broken) Up(*gorm.DB) error   { return errors.New("boom") }
func (broken) Down(*gorm.DB) error { return nil }

func openDB(t *testing.T, name string) *gorm.DB {
	t.Helper()
	db, err := database.Open("sqlite", "file:"+name+"?mode=memory&cache=shared")
	require.NoError(t, err)
	t.Cleanup(func() { _ = database.Close(db) })
	return db
}

func TestRunRollbackStatus(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, "migration_run")
	r := New(db, Named{Name: "0002_widgets", Migration: createWidgets{}})

	applied, err := r.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_widgets"}, applied)
	assert.True(t, db.Migrator().HasTable(&widget{}))

	applied, err = r.Run(ctx)
	require.NoError(t, err)
	assert.Empty(t, applied)

	st, err := r.Status(ctx)
	require.NoError(t, err)
	require.Len(t, st, 1)
	assert.True(t, st[0].Ran)
	assert.Equal(t, 1, st[0].Batch)

	reverted, err := r.Rollback(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"0002_widgets"}, reverted)
	assert.False(t, db.Migrator().HasTable(&widget{}))

	reverted, err = r.Rollback(ctx)
	require.NoError(t, err)
	assert.Empty(t, reverted)
}

func TestFailedMigrationIsNotRecorded(t *testing.T) {
	ctx := context.Background()
	db := openDB(t, "migration_fail")
	r := New(db,
		Named{Name: "0001_widgets", Migration: createWidgets{}},
		Named{Name: "0002_broken", Migration: broken{}},
	)

	applied, err := r.Run(ctx)
	assert.ErrorContains(t, err, "0002_broken")
	assert.Equal(t, []string{"0001_widgets"}, applied)

	st, err := r.Status(ctx)
	require.NoError(t, err)
	assert.True(t, st[0].Ran)
	assert.False(t, st[1].Ran)
}
