package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	_ "github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/RedHatInsights/sync-connector/internal/config"
	"github.com/RedHatInsights/sync-connector/internal/platform/db"
	"github.com/RedHatInsights/sync-connector/internal/platform/logger"
)

// migrateLogger adapts logrus to the migrate.Logger interface
type migrateLogger struct {
	*logrus.Entry
}

func (ml migrateLogger) Verbose() bool {
	return ml.Logger.IsLevelEnabled(logrus.DebugLevel)
}

type migrationAction func(m *migrate.Migrate) error

func NewRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:          "migrate_db",
		Short:        "Manage the synced_records, webhook_events and sync_runs schema",
		SilenceUsage: true,
	}

	upCmd := &cobra.Command{
		Use:   "upgrade",
		Short: "Apply every pending migration",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration("upgrade", func(m *migrate.Migrate) error {
				return m.Up()
			})
		},
	}

	var steps int
	downCmd := &cobra.Command{
		Use:   "downgrade",
		Short: "Revert the most recent migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			if steps < 1 {
				return fmt.Errorf("--steps must be at least 1, got %d", steps)
			}
			return runMigration("downgrade", func(m *migrate.Migrate) error {
				return m.Steps(-steps)
			})
		},
	}
	downCmd.Flags().IntVarP(&steps, "steps", "n", 1, "number of migrations to revert")

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the schema version of the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigration("version", func(m *migrate.Migrate) error {
				version, dirty, err := m.Version()
				if errors.Is(err, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				} else if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			})
		},
	}

	rootCmd.AddCommand(upCmd, downCmd, versionCmd)

	return rootCmd
}

func runMigration(name string, action migrationAction) error {
	cfg := config.GetConfig()
	log := logger.Log.WithFields(logrus.Fields{"migration": name, "source": cfg.ConnectionDatabaseMigrationsPath})
	log.Info("Starting Sync-Connector DB migration")

	database, err := db.InitializeDatabaseConnection(cfg)
	if err != nil {
		logger.LogError("Unable to initialize database connection", err)
		return err
	}
	defer database.Close()

	driver, err := postgres.WithInstance(database, &postgres.Config{})
	if err != nil {
		logger.LogError("Unable to get postgres driver from database connection", err)
		return err
	}

	m, err := migrate.NewWithDatabaseInstance(cfg.ConnectionDatabaseMigrationsPath, "postgres", driver)
	if err != nil {
		logger.LogError("Unable to initialize database migration util", err)
		return err
	}
	m.Log = migrateLogger{log}

	err = action(m)
	if errors.Is(err, migrate.ErrNoChange) {
		log.Info("DB migration resulted in no changes")
		return nil
	} else if err != nil {
		logger.LogError("DB migration resulted in an error", err)
		return err
	}

	log.Info("DB migration complete")
	return nil
}

func main() {
	logger.InitLogger()
	defer logger.FlushLogger()

	if err := NewRootCommand().Execute(); err != nil {
		logger.FlushLogger()
		os.Exit(1)
	}
}
