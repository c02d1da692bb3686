package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"gorm.io/gorm"

	"github.com/humanebio/storefront/config"
	"github.com/humanebio/storefront/database/migrations"
	"github.com/humanebio/storefront/database/seeders"
	"github.com/humanebio/storefront/pkg/database"
	"github.com/humanebio/storefront/pkg/migration"
)

// withDB loads config, opens the database, runs fn and closes the pool.
func withDB(fn func(db *gorm.DB) error) error {
	if err := config.Load(); err != nil {
		return err
	}
	db, err := database.Open(config.DatabaseDriver(), config.DatabaseDSN())
	if err != nil {
		return err
	}
	defer database.Close(db) //nolint:errcheck
	return fn(db)
}

func runner(db *gorm.DB) *migration.Runner {
	return migration.New(db, migrations.All()...)
}

// storefront migrate
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Run all pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			fmt.Println("Running migrations…")
			applied, err := runner(db).Run(cmd.Context())
			for _, name := range applied {
				fmt.Println("  migrated:", name)
			}
			if err == nil && len(applied) == 0 {
				fmt.Println("  nothing to migrate")
			}
			return err
		})
	},
}

// storefront migrate:rollback
var migrateRollbackCmd = &cobra.Command{
	Use:   "migrate:rollback",
	Short: "Rollback the last batch of migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			fmt.Println("Rolling back last batch…")
			reverted, err := runner(db).Rollback(cmd.Context())
			for _, name := range reverted {
				fmt.Println("  rolled back:", name)
			}
			return err
		})
	},
}

// storefront migrate:status
var migrateStatusCmd = &cobra.Command{
	Use:   "migrate:status",
	Short: "Show the status of each migration",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			rows, err := runner(db).Status(cmd.Context())
			if err != nil {
				return err
			}
			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', 0)
			fmt.Fprintln(w, "RAN\tBATCH\tMIGRATION")
			for _, s := range rows {
				ran, batch := "no", "-"
				if s.Ran {
					ran, batch = "yes", fmt.Sprint(s.Batch)
				}
				fmt.Fprintf(w, "%s\t%s\t%s\n", ran, batch, s.Name)
			}
			return w.Flush()
		})
	},
}

// storefront seed
var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed default settings and the starter catalogue",
	RunE: func(cmd *cobra.Command, args []string) error {
		return withDB(func(db *gorm.DB) error {
			fmt.Println("Running seeders…")
			return seeders.RunAll(db.WithContext(cmd.Context()))
		})
	},
}
