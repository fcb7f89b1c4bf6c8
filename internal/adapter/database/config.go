package database

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// PoolConfig holds database connection pool settings.
type PoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns" yaml:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns" yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int `mapstructure:"conn_max_lifetime_minutes" yaml:"conn_max_lifetime_minutes"`
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	Type     string `mapstructure:"type" yaml:"type"` // "postgres", "mysql" or "sqlite".
	Host     string `mapstructure:"host" yaml:"host"`
	Port     int    `mapstructure:"port" yaml:"port"`
	Database string `mapstructure:"database" yaml:"database"` // Database name, or the file path for SQLite.
	User     string `mapstructure:"user" yaml:"user"`
	Password string `mapstructure:"password" yaml:"password"`
	Sslmode  string `mapstructure:"sslmode" yaml:"sslmode"`
	// DSN, when set, is passed to the driver as is and takes precedence over the discrete fields.
	DSN  string     `mapstructure:"dsn" yaml:"dsn"`
	Pool PoolConfig `mapstructure:"pool" yaml:"pool"`
}

// DecodeConfig decodes a raw connection config taken from config.Config.Database.
// Values coming from environment variables are strings, so weak typing is enabled.
func DecodeConfig(name string, raw interface{}) (DatabaseConfig, error) {
	var cfg DatabaseConfig
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &cfg,
	})
	if err != nil {
		return cfg, err
	}
	if err := decoder.Decode(raw); err != nil {
		return cfg, fmt.Errorf("failed to decode database config for '%s': %w", name, err)
	}
	if cfg.Type == "" {
		return cfg, fmt.Errorf("database config '%s' has no type", name)
	}
	return cfg, nil
}
