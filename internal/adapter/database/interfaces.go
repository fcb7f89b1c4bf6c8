// Package database provides abstractions for the relational stores used by roomrate.
// PostgreSQL, MySQL and SQLite are accessed through the same interfaces.
package database

import (
	"context"
	"database/sql"
	"errors"
	"strings"
)

// ErrDuplicateKey is returned by a write that violates a unique or primary key constraint.
var ErrDuplicateKey = errors.New("duplicate key")

// DBExecutor defines the write operations shared by DBConnection and Tx.
type DBExecutor interface {
	// ExecuteUpdate performs a write operation ("CREATE", "UPDATE" or "DELETE").
	// query holds the WHERE conditions for UPDATE/DELETE, combined with AND.
	ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (rowsAffected int64, err error)

	// ExecuteUpsert inserts model, updating updateColumns when conflictColumns collide
	// (DO NOTHING when updateColumns is empty).
	ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (rowsAffected int64, err error)
}

// DBQuerier defines the read operations shared by DBConnection and Tx.
type DBQuerier interface {
	// ExecuteQuery reads into target the rows matching query (key-value map, combined with AND).
	ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error

	// ExecuteQueryAdvanced reads with optional ordering and limit (0 means no limit).
	ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error

	// ExecuteQueryWhere reads with a raw WHERE expression using positional placeholders (?).
	ExecuteQueryWhere(ctx context.Context, target interface{}, where string, args []interface{}, orderBy string) error

	// Count counts the records of model's table matching query.
	Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error)
}

// DBConnection is a named database connection.
type DBConnection interface {
	DBExecutor
	DBQuerier

	// Type returns the database type (e.g., "mysql", "postgres").
	Type() string
	// Name returns the connection name (e.g., "forecast").
	Name() string
	Close() error
	// IsTableNotExistError reports whether err means the queried table does not exist.
	IsTableNotExistError(err error) bool
	// RefreshConnection pings the pool, re-establishing connections as needed.
	RefreshConnection(ctx context.Context) error
	Config() DatabaseConfig
	// GetSQLDB exposes the underlying pool for migrations.
	GetSQLDB() (*sql.DB, error)
}

// DBProvider opens and caches the connections of one database type.
type DBProvider interface {
	// Type returns the database type handled by this provider.
	Type() string
	// GetConnection returns the named connection, establishing it on first use.
	GetConnection(name string) (DBConnection, error)
	// ForceReconnect closes and reopens the named connection.
	ForceReconnect(name string) (DBConnection, error)
	// CloseAll closes every connection of this provider.
	CloseAll() error
}

// DBProviderGroup is the fx value group collecting DBProviders.
const DBProviderGroup = "db_providers"

// DBConnectionResolver resolves a connection name to a live connection.
type DBConnectionResolver interface {
	ResolveDBConnection(ctx context.Context, name string) (DBConnection, error)
}

// Tx is a database transaction.
type Tx interface {
	DBExecutor
	DBQuerier
}

// TransactionManager begins and ends transactions on one connection.
type TransactionManager interface {
	Begin(ctx context.Context, opts ...*sql.TxOptions) (Tx, error)
	Commit(tx Tx) error
	Rollback(tx Tx) error
}

// TransactionManagerFactory creates a TransactionManager for a connection.
type TransactionManagerFactory interface {
	NewTransactionManager(conn DBConnection) TransactionManager
}

// IsTableNotExistMessage matches the "table does not exist" errors of the supported databases.
func IsTableNotExistMessage(msg string) bool {
	return (strings.Contains(msg, "relation \"") && strings.Contains(msg, "\" does not exist")) || // PostgreSQL
		(strings.Contains(msg, "Error 1146") && strings.Contains(msg, "doesn't exist")) || // MySQL
		strings.Contains(msg, "no such table") // SQLite
}
