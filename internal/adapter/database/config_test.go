package database_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/roomrate/internal/adapter/database"
)

func TestDecodeConfig(t *testing.T) {
	raw := map[string]interface{}{
		"type":     "postgres",
		"host":     "db",
		"port":     "5432", // environment values arrive as strings
		"database": "hotel",
		"pool": map[string]interface{}{
			"max_open_conns": 8,
		},
	}
	cfg, err := database.DecodeConfig("forecast", raw)
	require.NoError(t, err)
	assert.Equal(t, "postgres", cfg.Type)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, 8, cfg.Pool.MaxOpenConns)
}

func TestDecodeConfig_MissingType(t *testing.T) {
	_, err := database.DecodeConfig("forecast", map[string]interface{}{"database": "x.db"})
	assert.Error(t, err)
}

func TestIsTableNotExistMessage(t *testing.T) {
	assert.True(t, database.IsTableNotExistMessage(`ERROR: relation "competitor_rates" does not exist (SQLSTATE 42P01)`))
	assert.True(t, database.IsTableNotExistMessage("Error 1146 (42S02): Table 'hotel.competitor_rates' doesn't exist"))
	assert.True(t, database.IsTableNotExistMessage("no such table: competitor_rates"))
	assert.False(t, database.IsTableNotExistMessage("connection refused"))
}
