package db

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/RedHatInsights/sync-connector/internal/config"

	"github.com/jackc/pgerrcode"
	"github.com/lib/pq"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func InitializeDatabaseConnection(cfg *config.Config) (*sql.DB, error) {
	if cfg.ConnectionDatabaseImpl != "postgres" {
		return nil, errors.New("Invalid SQL database impl requested")
	}

	database, err := initializePostgresConnection(cfg)
	if err != nil {
		return nil, err
	}

	database.SetMaxOpenConns(cfg.ConnectionDatabaseMaxOpenConnections)

	return database, nil
}

func initializePostgresConnection(cfg *config.Config) (*sql.DB, error) {
	psqlConnectionInfo := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s TimeZone=UTC",
		cfg.ConnectionDatabaseHost,
		cfg.ConnectionDatabasePort,
		cfg.ConnectionDatabaseUser,
		cfg.ConnectionDatabasePassword,
		cfg.ConnectionDatabaseName)

	sslSettings, err := buildPostgresSslConfigString(cfg)
	if err != nil {
		return nil, err
	}

	psqlConnectionInfo += " " + sslSettings

	return sql.Open("postgres", psqlConnectionInfo)
}

func buildPostgresSslConfigString(cfg *config.Config) (string, error) {
	if cfg.ConnectionDatabaseSslMode == "disable" {
		return "sslmode=disable", nil
	} else if cfg.ConnectionDatabaseSslMode == "verify-full" {
		return "sslmode=verify-full sslrootcert=" + cfg.ConnectionDatabaseSslRootCert, nil
	} else {
		return "", errors.New("Invalid SSL configuration for database connection: " + cfg.ConnectionDatabaseSslMode)
	}
}

func InitializeGormDatabaseConnection(cfg *config.Config) (*gorm.DB, error) {

	sqlDatabase, err := InitializeDatabaseConnection(cfg)
	if err != nil {
		return nil, err
	}

	return OpenGorm(sqlDatabase)
}

// OpenGorm wraps an existing lib/pq connection pool
func OpenGorm(sqlDatabase *sql.DB) (*gorm.DB, error) {
	return gorm.Open(postgres.New(postgres.Config{Conn: sqlDatabase}),
		&gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
}

// IsRetryableError reports whether a failed statement can be safely retried.
// Concurrent upserts of overlapping rows can deadlock against each other.
func IsRetryableError(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}

	switch string(pqErr.Code) {
	case pgerrcode.DeadlockDetected, pgerrcode.SerializationFailure, pgerrcode.LockNotAvailable:
		return true
	}

	return false
}
