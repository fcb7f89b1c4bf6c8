package gorm

import (
	"context"
	"database/sql"
	"fmt"

	"gorm.io/gorm"

	"github.com/tigerroll/roomrate/internal/adapter/database"
)

// GormTxAdapter implements database.Tx on a gorm transaction.
type GormTxAdapter struct {
	db     *gorm.DB
	dbType string
}

// ExecuteUpdate implements database.DBExecutor.
func (t *GormTxAdapter) ExecuteUpdate(ctx context.Context, model interface{}, operation string, tableName string, query map[string]interface{}) (int64, error) {
	n, err := executeUpdate(t.db.WithContext(ctx), model, operation, tableName, query)
	return n, translateError(t.dbType, err)
}

// ExecuteUpsert implements database.DBExecutor.
func (t *GormTxAdapter) ExecuteUpsert(ctx context.Context, model interface{}, tableName string, conflictColumns []string, updateColumns []string) (int64, error) {
	n, err := executeUpsert(t.db.WithContext(ctx), model, tableName, conflictColumns, updateColumns)
	return n, translateError(t.dbType, err)
}

// ExecuteQuery implements database.DBQuerier.
func (t *GormTxAdapter) ExecuteQuery(ctx context.Context, target interface{}, query map[string]interface{}) error {
	return executeQuery(t.db.WithContext(ctx), target, query, "", 0)
}

// ExecuteQueryAdvanced implements database.DBQuerier.
func (t *GormTxAdapter) ExecuteQueryAdvanced(ctx context.Context, target interface{}, query map[string]interface{}, orderBy string, limit int) error {
	return executeQuery(t.db.WithContext(ctx), target, query, orderBy, limit)
}

// ExecuteQueryWhere implements database.DBQuerier.
func (t *GormTxAdapter) ExecuteQueryWhere(ctx context.Context, target interface{}, where string, args []interface{}, orderBy string) error {
	return executeQueryWhere(t.db.WithContext(ctx), target, where, args, orderBy)
}

// Count implements database.DBQuerier.
func (t *GormTxAdapter) Count(ctx context.Context, model interface{}, query map[string]interface{}) (int64, error) {
	return count(t.db.WithContext(ctx), model, query)
}

// GormTransactionManager implements database.TransactionManager.
type GormTransactionManager struct {
	conn *GormDBAdapter
}

// Begin starts a transaction on the managed connection.
func (m *GormTransactionManager) Begin(ctx context.Context, opts ...*sql.TxOptions) (database.Tx, error) {
	if m.conn == nil {
		return nil, fmt.Errorf("transaction manager has no gorm connection")
	}
	var txOpts *sql.TxOptions
	if len(opts) > 0 && opts[0] != nil {
		txOpts = opts[0]
	}
	gormTx := m.conn.GormDB().WithContext(ctx).Begin(txOpts)
	if gormTx.Error != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", gormTx.Error)
	}
	return &GormTxAdapter{db: gormTx, dbType: m.conn.Type()}, nil
}

// Commit commits t.
func (m *GormTransactionManager) Commit(t database.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return gormTx.db.Commit().Error
}

// Rollback rolls t back.
func (m *GormTransactionManager) Rollback(t database.Tx) error {
	gormTx, ok := t.(*GormTxAdapter)
	if !ok {
		return fmt.Errorf("invalid transaction type: expected *GormTxAdapter")
	}
	return gormTx.db.Rollback().Error
}

// GormTransactionManagerFactory is the gorm implementation of database.TransactionManagerFactory.
type GormTransactionManagerFactory struct{}

// NewGormTransactionManagerFactory creates a GormTransactionManagerFactory.
func NewGormTransactionManagerFactory() database.TransactionManagerFactory {
	return &GormTransactionManagerFactory{}
}

// NewTransactionManager returns a manager bound to conn, which must be a *GormDBAdapter.
func (f *GormTransactionManagerFactory) NewTransactionManager(conn database.DBConnection) database.TransactionManager {
	adapter, _ := conn.(*GormDBAdapter)
	return &GormTransactionManager{conn: adapter}
}
