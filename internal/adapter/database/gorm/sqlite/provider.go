// Package sqlite provides the gorm DBProvider for SQLite.
package sqlite

import (
	"errors"
	"fmt"

	sqlite3 "github.com/mattn/go-sqlite3"
	"go.uber.org/fx"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/tigerroll/roomrate/internal/adapter/database"
	gormadapter "github.com/tigerroll/roomrate/internal/adapter/database/gorm"
	"github.com/tigerroll/roomrate/internal/config"
)

// Type is the database type handled by this package.
const Type = "sqlite"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		path := ConnectionString(cfg)
		if path == "" {
			return nil, errors.New("sqlite database path cannot be empty")
		}
		return sqlite.Open(path), nil
	})
	gormadapter.RegisterErrorTranslator(Type, TranslateError)
}

// TranslateError maps unique and primary key violations to database.ErrDuplicateKey.
func TranslateError(err error) error {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) &&
		(sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique || sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey) {
		return fmt.Errorf("%w: %v", database.ErrDuplicateKey, err)
	}
	return err
}

// ConnectionString returns the database file path (or DSN such as "file::memory:?cache=shared").
func ConnectionString(c database.DatabaseConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	return c.Database
}

// NewProvider creates the SQLite DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, Type)
}

// Module provides the SQLite DBProvider into the db_providers group.
var Module = fx.Provide(
	fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	),
)
