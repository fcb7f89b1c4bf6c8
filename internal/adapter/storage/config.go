package storage

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// StorageConfig holds the settings of one storage connection.
type StorageConfig struct {
	Type            string `mapstructure:"type" yaml:"type"`                         // "local" or "gcs".
	BucketName      string `mapstructure:"bucket_name" yaml:"bucket_name"`           // Default bucket.
	CredentialsFile string `mapstructure:"credentials_file" yaml:"credentials_file"` // GCS service account key.
	BaseDir         string `mapstructure:"base_dir" yaml:"base_dir"`                 // Root directory of local storage.
}

// DecodeConfig decodes a raw storage config taken from config.Config.Storage.
func DecodeConfig(name string, raw interface{}) (StorageConfig, error) {
	var cfg StorageConfig
	if err := mapstructure.Decode(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to decode storage config for '%s': %w", name, err)
	}
	if cfg.Type == "" {
		return cfg, fmt.Errorf("storage config '%s' has no type", name)
	}
	return cfg, nil
}
