package config

import (
	"fmt"
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/tigerroll/roomrate/internal/support/exception"
	"github.com/tigerroll/roomrate/internal/support/logger"
)

const (
	moduleName = "config"
	// EnvPrefix prefixes every environment override (e.g., ROOMRATE_PIPELINE_HORIZON_DAYS).
	EnvPrefix = "ROOMRATE_"
)

// databaseURLEnvVars are checked in order for a PostgreSQL URL overriding the pipeline connection.
var databaseURLEnvVars = []string{"POSTGRES_URL", "DATABASE_URL", "PGDATABASE_URL"}

// LoadConfig loads configuration from the .env file, the embedded YAML and environment variables.
// Values are applied in that order over NewConfig defaults, then validated.
func LoadConfig(envFilePath string, embeddedConfig EmbeddedConfig) (*Config, error) {
	if envFilePath != "" {
		if err := godotenv.Load(envFilePath); err != nil {
			logger.Warnf(".env file (%s) not found or could not be loaded: %v", envFilePath, err)
		}
	}

	cfg := NewConfig()

	if len(embeddedConfig) > 0 {
		expanded := os.ExpandEnv(string(embeddedConfig))
		// yaml.v3 only assigns the keys present in the document, so defaults survive.
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, exception.NewPipelineError(moduleName, "failed to unmarshal embedded config", err, false)
		}
	}

	if err := loadStructFromEnv(reflect.ValueOf(cfg).Elem(), EnvPrefix); err != nil {
		return nil, exception.NewPipelineError(moduleName, "failed to load config from environment variables", err, false)
	}
	loadConnectionMapFromEnv(cfg.Database, EnvPrefix+"DATABASE_")
	loadConnectionMapFromEnv(cfg.Storage, EnvPrefix+"STORAGE_")
	applyDatabaseURL(cfg)

	if err := Validate(cfg); err != nil {
		return nil, exception.NewPipelineError(moduleName, "invalid configuration", err, false)
	}
	return cfg, nil
}

// applyDatabaseURL points the pipeline connection at a PostgreSQL URL taken from the environment, if any.
func applyDatabaseURL(cfg *Config) {
	for _, name := range databaseURLEnvVars {
		url := strings.TrimSpace(os.Getenv(name))
		if url == "" {
			continue
		}
		if cfg.Database == nil {
			cfg.Database = map[string]interface{}{}
		}
		cfg.Database[cfg.Pipeline.DBRef] = map[string]interface{}{
			"type": "postgres",
			"dsn":  url,
		}
		logger.Infof("Database connection '%s' taken from %s.", cfg.Pipeline.DBRef, name)
		return
	}
}

// Validate checks the configuration and reports every problem found.
func Validate(cfg *Config) error {
	var result *multierror.Error
	p := cfg.Pipeline

	if p.HorizonDays <= 0 {
		result = multierror.Append(result, fmt.Errorf("pipeline.horizon_days must be positive, got %d", p.HorizonDays))
	}
	if p.RollingWindow <= 0 || p.RollingMinPeriods <= 0 || p.RollingMinPeriods > p.RollingWindow {
		result = multierror.Append(result, fmt.Errorf("pipeline.rolling_window/rolling_min_periods invalid: %d/%d", p.RollingWindow, p.RollingMinPeriods))
	}
	if p.BaselineWindow <= 0 || p.BaselineMinPeriods <= 0 || p.BaselineMinPeriods > p.BaselineWindow {
		result = multierror.Append(result, fmt.Errorf("pipeline.baseline_window/baseline_min_periods invalid: %d/%d", p.BaselineWindow, p.BaselineMinPeriods))
	}
	if _, err := p.Weekend(); err != nil {
		result = multierror.Append(result, fmt.Errorf("pipeline.weekend_days: %w", err))
	}
	if _, _, err := p.Start(); err != nil {
		result = multierror.Append(result, err)
	}
	switch p.Estimator {
	case EstimatorGBM, EstimatorRolling:
	default:
		result = multierror.Append(result, fmt.Errorf("pipeline.estimator must be %q or %q, got %q", EstimatorGBM, EstimatorRolling, p.Estimator))
	}
	if p.GBM.NEstimators <= 0 || p.GBM.LearningRate <= 0 || p.GBM.MaxDepth <= 0 {
		result = multierror.Append(result, fmt.Errorf("pipeline.gbm: n_estimators, learning_rate and max_depth must be positive"))
	}
	if p.GBM.Subsample <= 0 || p.GBM.Subsample > 1 || p.GBM.ColSample <= 0 || p.GBM.ColSample > 1 {
		result = multierror.Append(result, fmt.Errorf("pipeline.gbm: subsample and colsample must be in (0, 1]"))
	}
	if _, ok := cfg.Database[p.DBRef]; !ok {
		result = multierror.Append(result, fmt.Errorf("pipeline.db_ref '%s' has no database configuration", p.DBRef))
	}
	if cfg.Export.Enabled {
		if _, ok := cfg.Storage[cfg.Export.StorageRef]; !ok {
			result = multierror.Append(result, fmt.Errorf("export.storage_ref '%s' has no storage configuration", cfg.Export.StorageRef))
		}
	}
	switch cfg.Observability.Exporter {
	case ExporterNone, ExporterOTLPGRPC, ExporterOTLPHTTP:
	default:
		result = multierror.Append(result, fmt.Errorf("observability.exporter %q is not supported", cfg.Observability.Exporter))
	}
	if cfg.Brief.Days <= 0 {
		result = multierror.Append(result, fmt.Errorf("brief.days must be positive, got %d", cfg.Brief.Days))
	}
	if cfg.Brief.OpenAI.APIKey != "" && cfg.Brief.OpenAI.Model == "" {
		result = multierror.Append(result, fmt.Errorf("brief.openai.model is required when an api_key is set"))
	}
	if _, err := cfg.System.Location(); err != nil {
		result = multierror.Append(result, fmt.Errorf("system.timezone: %w", err))
	}
	return result.ErrorOrNil()
}

// loadStructFromEnv recursively loads values into a struct from environment variables.
// Variable names are built from the "yaml" tags (e.g., ROOMRATE_API_LISTEN_ADDR).
func loadStructFromEnv(val reflect.Value, prefix string) error {
	typ := val.Type()
	for i := 0; i < typ.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)
		yamlTag := strings.Split(fieldType.Tag.Get("yaml"), ",")[0]
		if yamlTag == "" || yamlTag == "-" {
			continue
		}
		envVarName := strings.ToUpper(prefix + yamlTag)

		if field.Kind() == reflect.Struct {
			if err := loadStructFromEnv(field, envVarName+"_"); err != nil {
				return err
			}
			continue
		}

		envValue, exists := os.LookupEnv(envVarName)
		if !exists {
			continue
		}
		if err := setField(field, envValue); err != nil {
			return fmt.Errorf("failed to set field '%s' from env var '%s': %w", fieldType.Name, envVarName, err)
		}
	}
	return nil
}

// loadConnectionMapFromEnv overrides entries of a raw connection map.
// ROOMRATE_DATABASE_FORECAST_HOST=db sets connections["forecast"]["host"] = "db".
func loadConnectionMapFromEnv(connections map[string]interface{}, prefix string) {
	if connections == nil {
		return
	}
	for _, env := range os.Environ() {
		if !strings.HasPrefix(env, prefix) {
			continue
		}
		parts := strings.SplitN(strings.TrimPrefix(env, prefix), "=", 2)
		if len(parts) != 2 {
			continue
		}
		keyAndField := strings.SplitN(parts[0], "_", 2)
		if len(keyAndField) != 2 {
			continue
		}
		name := strings.ToLower(keyAndField[0])
		field := strings.ToLower(keyAndField[1])

		entry, _ := connections[name].(map[string]interface{})
		if entry == nil {
			entry = map[string]interface{}{}
		}
		entry[field] = parts[1]
		connections[name] = entry
	}
}

// setField sets a reflect.Value from its string form.
func setField(field reflect.Value, value string) error {
	if !field.CanSet() {
		return nil
	}
	switch field.Kind() {
	case reflect.String:
		field.SetString(value)
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		intValue, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			return err
		}
		field.SetInt(intValue)
	case reflect.Float64, reflect.Float32:
		floatValue, err := strconv.ParseFloat(value, 64)
		if err != nil {
			return err
		}
		field.SetFloat(floatValue)
	case reflect.Bool:
		boolValue, err := strconv.ParseBool(value)
		if err != nil {
			return err
		}
		field.SetBool(boolValue)
	case reflect.Slice:
		if field.Type().Elem().Kind() != reflect.String {
			return nil
		}
		items := make([]string, 0)
		for _, item := range strings.Split(value, ",") {
			if item = strings.TrimSpace(item); item != "" {
				items = append(items, item)
			}
		}
		field.Set(reflect.ValueOf(items))
	}
	return nil
}
