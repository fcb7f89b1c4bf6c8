// Package migration applies the embedded schema migrations of the forecast store.
package migration

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"

	"github.com/golang-migrate/migrate/v4"
	migratedb "github.com/golang-migrate/migrate/v4/database"
	"github.com/golang-migrate/migrate/v4/database/mysql"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	"github.com/tigerroll/roomrate/internal/adapter/database"
	gormadapter "github.com/tigerroll/roomrate/internal/adapter/database/gorm"
	"github.com/tigerroll/roomrate/internal/support/exception"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

// FS holds one migration directory per database type.
//
//go:embed migrations
var FS embed.FS

// DefaultTable is the version table used by golang-migrate.
const DefaultTable = "schema_migrations"

// Migrator applies migrations to one connection.
type Migrator struct {
	conn      database.DBConnection
	fsys      fs.FS
	tableName string
}

// NewMigrator creates a Migrator over the embedded migrations.
func NewMigrator(conn database.DBConnection) *Migrator {
	return &Migrator{conn: conn, fsys: FS, tableName: DefaultTable}
}

// getDatabaseDriver wraps sqlDB in the golang-migrate driver of dbType.
func getDatabaseDriver(dbType string, sqlDB *sql.DB, tableName string) (migratedb.Driver, error) {
	switch dbType {
	case "postgres":
		return postgres.WithInstance(sqlDB, &postgres.Config{MigrationsTable: tableName})
	case "mysql":
		return mysql.WithInstance(sqlDB, &mysql.Config{MigrationsTable: tableName})
	case "sqlite":
		return sqlite.WithInstance(sqlDB, &sqlite.Config{MigrationsTable: tableName})
	default:
		return nil, fmt.Errorf("unsupported database type for migration: %s", dbType)
	}
}

// migrationDB returns the pool migrations run on and a function releasing it.
// Closing a golang-migrate instance closes its pool, so server databases get a dedicated one.
// SQLite shares the connection pool, which keeps in-memory databases intact.
func (m *Migrator) migrationDB() (*sql.DB, func(), error) {
	if m.conn.Type() == "sqlite" {
		sqlDB, err := m.conn.GetSQLDB()
		return sqlDB, func() {}, err
	}
	gormDB, err := gormadapter.Open(m.conn.Config(), "silent")
	if err != nil {
		return nil, nil, err
	}
	sqlDB, err := gormDB.DB()
	if err != nil {
		return nil, nil, err
	}
	return sqlDB, func() { _ = sqlDB.Close() }, nil
}

// Up applies every pending migration. An up-to-date schema is not an error.
func (m *Migrator) Up(ctx context.Context) error {
	dbType := m.conn.Type()
	path := "migrations/" + dbType
	logger.Infof("Applying migrations for '%s' (path: %s, table: %s).", m.conn.Name(), path, m.tableName)

	sqlDB, release, err := m.migrationDB()
	if err != nil {
		return exception.NewPipelineError("migration", "failed to open migration connection", err, false)
	}
	defer release()

	sourceDriver, err := iofs.New(m.fsys, path)
	if err != nil {
		return exception.NewPipelineError("migration", fmt.Sprintf("no migrations for database type '%s'", dbType), err, false)
	}
	defer sourceDriver.Close()

	dbDriver, err := getDatabaseDriver(dbType, sqlDB, m.tableName)
	if err != nil {
		return exception.NewPipelineError("migration", "failed to create database driver", err, false)
	}
	instance, err := migrate.NewWithInstance("iofs", sourceDriver, dbType, dbDriver)
	if err != nil {
		return exception.NewPipelineError("migration", "failed to create migrate instance", err, false)
	}

	done := make(chan error, 1)
	go func() { done <- instance.Up() }()
	select {
	case <-ctx.Done():
		instance.GracefulStop <- true
		err = <-done
		if err == nil {
			err = ctx.Err()
		}
	case err = <-done:
	}

	if err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return exception.NewPipelineError("migration", fmt.Sprintf("migration failed for '%s'", m.conn.Name()), err, false)
	}
	version, dirty, verr := instance.Version()
	if verr == nil {
		logger.Infof("Schema of '%s' is at version %d (dirty=%t).", m.conn.Name(), version, dirty)
	}
	return nil
}
