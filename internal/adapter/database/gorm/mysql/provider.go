// Package mysql provides the gorm DBProvider for MySQL.
package mysql

import (
	"errors"
	"fmt"

	gomysql "github.com/go-sql-driver/mysql"
	"go.uber.org/fx"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"

	"github.com/tigerroll/roomrate/internal/adapter/database"
	gormadapter "github.com/tigerroll/roomrate/internal/adapter/database/gorm"
	"github.com/tigerroll/roomrate/internal/config"
)

// Type is the database type handled by this package.
const Type = "mysql"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		return mysql.Open(ConnectionString(cfg)), nil
	})
	gormadapter.RegisterErrorTranslator(Type, TranslateError)
}

// erDupEntry is the MySQL error number of a duplicate key.
const erDupEntry = 1062

// TranslateError maps duplicate entry errors to database.ErrDuplicateKey.
func TranslateError(err error) error {
	var mysqlErr *gomysql.MySQLError
	if errors.As(err, &mysqlErr) && mysqlErr.Number == erDupEntry {
		return fmt.Errorf("%w: %v", database.ErrDuplicateKey, err)
	}
	return err
}

// ConnectionString returns cfg.DSN when set, or builds one with parseTime enabled
// so DATE columns scan into time.Time.
func ConnectionString(c database.DatabaseConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	dsn := gomysql.NewConfig()
	dsn.User = c.User
	dsn.Passwd = c.Password
	dsn.Net = "tcp"
	port := c.Port
	if port == 0 {
		port = 3306
	}
	dsn.Addr = fmt.Sprintf("%s:%d", c.Host, port)
	dsn.DBName = c.Database
	dsn.ParseTime = true
	dsn.Params = map[string]string{"charset": "utf8mb4"}
	return dsn.FormatDSN()
}

// NewProvider creates the MySQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, Type)
}

// Module provides the MySQL DBProvider into the db_providers group.
var Module = fx.Provide(
	fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	),
)
