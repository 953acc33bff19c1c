package main

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	pgdb "github.com/alanyang/promptledger/internal/adapter/postgres"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the Postgres schema",
}

func init() {
	migrateCmd.AddCommand(
		&cobra.Command{
			Use:   "up",
			Short: "Apply all pending migrations",
			RunE: withMigrator(func(m *pgdb.Migrator) error {
				if err := m.Up(); err != nil {
					return err
				}
				return logVersion(m)
			}),
		},
		&cobra.Command{
			Use:   "down",
			Short: "Revert every migration",
			RunE: withMigrator(func(m *pgdb.Migrator) error {
				if err := m.Down(); err != nil {
					return err
				}
				return logVersion(m)
			}),
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print the applied schema version",
			RunE: withMigrator(func(m *pgdb.Migrator) error {
				v, dirty, err := m.Version()
				if err != nil {
					return err
				}
				fmt.Printf("version %d (dirty=%t)\n", v, dirty)
				return nil
			}),
		},
	)
}

func withMigrator(fn func(*pgdb.Migrator) error) func(*cobra.Command, []string) error {
	return func(*cobra.Command, []string) error {
		if cfg.DatabaseURL == "" {
			return fail("migrate", errors.New("database_url is not set"))
		}
		m, err := pgdb.NewMigrator(cfg.DatabaseURL)
		if err != nil {
			return fail("migrate", err)
		}
		defer m.Close()
		if err := fn(m); err != nil {
			return fail("migrate", err)
		}
		return nil
	}
}

func logVersion(m *pgdb.Migrator) error {
	v, dirty, err := m.Version()
	if err != nil {
		return err
	}
	slog.Info("schema migrated", "version", v, "dirty", dirty)
	return nil
}
