// Package postgres provides the gorm DBProvider for PostgreSQL.
package postgres

import (
	"fmt"
	"strings"

	"go.uber.org/fx"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/tigerroll/roomrate/internal/adapter/database"
	gormadapter "github.com/tigerroll/roomrate/internal/adapter/database/gorm"
	"github.com/tigerroll/roomrate/internal/config"
)

// Type is the database type handled by this package.
const Type = "postgres"

func init() {
	gormadapter.RegisterDialector(Type, func(cfg database.DatabaseConfig) (gorm.Dialector, error) {
		return postgres.Open(ConnectionString(cfg)), nil
	})
	gormadapter.RegisterErrorTranslator(Type, TranslateError)
}

// TranslateError maps unique violations (SQLSTATE 23505) to database.ErrDuplicateKey.
func TranslateError(err error) error {
	if err != nil && strings.Contains(err.Error(), "SQLSTATE 23505") {
		return fmt.Errorf("%w: %v", database.ErrDuplicateKey, err)
	}
	return err
}

// ConnectionString returns cfg.DSN when set (a URL such as postgres://...), or a key=value DSN.
func ConnectionString(c database.DatabaseConfig) string {
	if c.DSN != "" {
		return c.DSN
	}
	parts := []string{fmt.Sprintf("host=%s", c.Host)}
	if c.Port > 0 {
		parts = append(parts, fmt.Sprintf("port=%d", c.Port))
	}
	if c.User != "" {
		parts = append(parts, fmt.Sprintf("user=%s", c.User))
	}
	if c.Password != "" {
		parts = append(parts, fmt.Sprintf("password=%s", c.Password))
	}
	if c.Database != "" {
		parts = append(parts, fmt.Sprintf("dbname=%s", c.Database))
	}
	sslmode := c.Sslmode
	if sslmode == "" {
		sslmode = "disable"
	}
	parts = append(parts, fmt.Sprintf("sslmode=%s", sslmode))
	return strings.Join(parts, " ")
}

// NewProvider creates the PostgreSQL DBProvider.
func NewProvider(cfg *config.Config) database.DBProvider {
	return gormadapter.NewBaseProvider(cfg, Type)
}

// Module provides the PostgreSQL DBProvider into the db_providers group.
var Module = fx.Provide(
	fx.Annotate(
		NewProvider,
		fx.ResultTags(`group:"`+database.DBProviderGroup+`"`),
	),
)
