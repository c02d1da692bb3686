// Package migration runs and tracks schema migrations.
//
// The migrations themselves live in database/migrations and are handed to a
// Runner explicitly:
//
//	r := migration.New(db, migrations.All()...)
//	r.Run(ctx)       // storefront migrate
//	r.Rollback(ctx)  // storefront migrate:rollback
package migration

import (
	"context"
	"fmt"
	"sort"
	"time"

	"gorm.io/gorm"

	"github.com/humanebio/storefront/pkg/logger"
)

// Migration is the interface every migration must implement.
type Migration interface {
	Up(tx *gorm.DB) error
	Down(tx *gorm.DB) error
}

// Named pairs a migration with its timestamp-prefixed name,
// e.g. "2024_01_01_000001_create_products_table".
type Named struct {
	Name      string
	Migration Migration
}

// record is the row stored in the tracking table.
type record struct {
	ID    uint      `gorm:"primaryKey;autoIncrement"`
	Name  string    `gorm:"uniqueIndex;size:255;not null"`
	Batch int       `gorm:"not null"`
	RunAt time.Time `gorm:"autoCreateTime"`
}

func (record) TableName() string { return "schema_migrations" }

// Status is one line of `storefront migrate:status`.
type Status struct {
	Name  string
	Ran   bool
	Batch int
}

// Runner executes and tracks migrations.
type Runner struct {
	db         *gorm.DB
	migrations []Named
}

// New creates a Runner for the given migrations, ordered by name.
func New(db *gorm.DB, migrations ...Named) *Runner {
	sorted := append([]Named(nil), migrations...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Name < sorted[j].Name })
	return &Runner{db: db, migrations: sorted}
}

func (r *Runner) ensureTable(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&record{})
}

func (r *Runner) ran(ctx context.Context) (map[string]record, error) {
	var rows []record
	if err := r.db.WithContext(ctx).Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make(map[string]record, len(rows))
	for _, row := range rows {
		out[row.Name] = row
	}
	return out, nil
}

// Run applies every pending migration in one new batch. Each migration and
// its tracking row commit together. Returns the names applied.
func (r *Runner) Run(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("migration: ensure table: %w", err)
	}

	done, err := r.ran(ctx)
	if err != nil {
		return nil, fmt.Errorf("migration: fetch ran: %w", err)
	}

	batch := r.lastBatch(ctx) + 1
	var applied []string

	for _, m := range r.migrations {
		if _, ok := done[m.Name]; ok {
			continue
		}

		logger.Info("migration: running", "name", m.Name)
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Migration.Up(tx); err != nil {
				return err
			}
			return tx.Create(&record{Name: m.Name, Batch: batch}).Error
		})
		if err != nil {
			return applied, fmt.Errorf("migration: %s up: %w", m.Name, err)
		}
		applied = append(applied, m.Name)
	}

	logger.Info("migration: done", "ran", len(applied), "batch", batch)
	return applied, nil
}

// Rollback reverses the most recent batch, newest first. Returns the names
// rolled back.
func (r *Runner) Rollback(ctx context.Context) ([]string, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, fmt.Errorf("migration: ensure table: %w", err)
	}

	last := r.lastBatch(ctx)
	if last == 0 {
		return nil, nil
	}

	var rows []record
	if err := r.db.WithContext(ctx).Where("batch = ?", last).Order("id desc").Find(&rows).Error; err != nil {
		return nil, err
	}

	byName := make(map[string]Migration, len(r.migrations))
	for _, m := range r.migrations {
		byName[m.Name] = m.Migration
	}

	var reverted []string
	for _, row := range rows {
		m, ok := byName[row.Name]
		if !ok {
			return reverted, fmt.Errorf("migration: cannot roll back %s: not registered", row.Name)
		}

		logger.Info("migration: rolling back", "name", row.Name)
		row := row
		err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			if err := m.Down(tx); err != nil {
				return err
			}
			return tx.Delete(&row).Error
		})
		if err != nil {
			return reverted, fmt.Errorf("migration: %s down: %w", row.Name, err)
		}
		reverted = append(reverted, row.Name)
	}

	return reverted, nil
}

// Status lists every known migration and whether it has run.
func (r *Runner) Status(ctx context.Context) ([]Status, error) {
	if err := r.ensureTable(ctx); err != nil {
		return nil, err
	}
	done, err := r.ran(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]Status, 0, len(r.migrations))
	for _, m := range r.migrations {
		row, ok := done[m.Name]
		out = append(out, Status{Name: m.Name, Ran: ok, Batch: row.Batch})
	}
	return out, nil
}

func (r *Runner) lastBatch(ctx context.Context) int {
	var last struct{ Max int }
	r.db.WithContext(ctx).Model(&record{}).Select("COALESCE(MAX(batch), 0) AS max").Scan(&last)
	return last.Max
}
