package gorm_test

import (
	"errors"
	"strings"
	"testing"

	gomysql "github.com/go-sql-driver/mysql"
	sqlite3 "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"

	"github.com/tigerroll/roomrate/internal/adapter/database"
	"github.com/tigerroll/roomrate/internal/adapter/database/gorm/mysql"
	"github.com/tigerroll/roomrate/internal/adapter/database/gorm/postgres"
	"github.com/tigerroll/roomrate/internal/adapter/database/gorm/sqlite"
)

func TestConnectionStrings(t *testing.T) {
	cfg := database.DatabaseConfig{Host: "db", Port: 5432, User: "rm", Password: "pw", Database: "hotel"}
	assert.Equal(t, "host=db port=5432 user=rm password=pw dbname=hotel sslmode=disable", postgres.ConnectionString(cfg))

	cfg.DSN = "postgres://rm:pw@db/hotel"
	assert.Equal(t, "postgres://rm:pw@db/hotel", postgres.ConnectionString(cfg))

	my := database.DatabaseConfig{Host: "db", User: "rm", Password: "pw", Database: "hotel"}
	dsn := mysql.ConnectionString(my)
	assert.True(t, strings.HasPrefix(dsn, "rm:pw@tcp(db:3306)/hotel?"), dsn)
	assert.Contains(t, dsn, "parseTime=true")
	assert.Contains(t, dsn, "charset=utf8mb4")

	assert.Equal(t, "roomrate.db", sqlite.ConnectionString(database.DatabaseConfig{Database: "roomrate.db"}))
}

func TestTranslateError(t *testing.T) {
	dup := sqlite3.Error{Code: sqlite3.ErrConstraint, ExtendedCode: sqlite3.ErrConstraintUnique}
	assert.ErrorIs(t, sqlite.TranslateError(dup), database.ErrDuplicateKey)
	assert.ErrorIs(t, mysql.TranslateError(&gomysql.MySQLError{Number: 1062, Message: "Duplicate entry"}), database.ErrDuplicateKey)
	assert.ErrorIs(t, postgres.TranslateError(errors.New(`ERROR: duplicate key value violates unique constraint "users_email_key" (SQLSTATE 23505)`)), database.ErrDuplicateKey)

	other := errors.New("connection reset")
	assert.Equal(t, other, sqlite.TranslateError(other))
	assert.Equal(t, other, mysql.TranslateError(other))
	assert.Equal(t, other, postgres.TranslateError(other))
}
