// Package config holds the roomrate configuration structure and its defaults.
package config

import (
	"fmt"
	"strings"
	"time"
)

// EmbeddedConfig holds the content of the YAML configuration file embedded in the binary.
type EmbeddedConfig []byte

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the logging level (DEBUG, INFO, WARN, ERROR).
	Level string `yaml:"level"`
	// Format is the encoder used by the log sink ("console" or "json").
	Format string `yaml:"format"`
}

// SystemConfig holds system-wide settings.
type SystemConfig struct {
	// Timezone is the location stay dates are normalised in (e.g., "UTC", "Asia/Tokyo").
	Timezone string        `yaml:"timezone"`
	Logging  LoggingConfig `yaml:"logging"`
}

// GBMConfig holds the gradient boosting regressor parameters.
type GBMConfig struct {
	NEstimators    int     `yaml:"n_estimators"`
	LearningRate   float64 `yaml:"learning_rate"`
	MaxDepth       int     `yaml:"max_depth"`
	Subsample      float64 `yaml:"subsample"`
	ColSample      float64 `yaml:"colsample"`
	MinSamplesLeaf int     `yaml:"min_samples_leaf"`
	Seed           int64   `yaml:"seed"`
}

// PipelineConfig holds the forecasting and pricing parameters.
type PipelineConfig struct {
	// DBRef is the name of the database connection holding reservations and forecasts.
	DBRef string `yaml:"db_ref"`
	// HorizonDays is the length of the forecast window.
	HorizonDays int `yaml:"horizon_days"`
	// HorizonStart optionally anchors the window (YYYY-MM-DD). Empty means the day after the latest reservation.
	HorizonStart string `yaml:"horizon_start"`
	// WeekendDays lists the weekday names treated as weekend.
	WeekendDays        []string  `yaml:"weekend_days"`
	RollingWindow      int       `yaml:"rolling_window"`
	RollingMinPeriods  int       `yaml:"rolling_min_periods"`
	BaselineWindow     int       `yaml:"baseline_window"`
	BaselineMinPeriods int       `yaml:"baseline_min_periods"`
	DefaultBaseline    float64   `yaml:"default_baseline"`
	NeutralOccupancy   float64   `yaml:"neutral_occupancy"`
	Estimator          string    `yaml:"estimator"`
	GBM                GBMConfig `yaml:"gbm"`
}

// ExportConfig controls the parquet export of each forecast batch.
type ExportConfig struct {
	Enabled       bool   `yaml:"enabled"`
	StorageRef    string `yaml:"storage_ref"`
	OutputBaseDir string `yaml:"output_base_dir"`
	Compression   string `yaml:"compression"`
}

// ETLConfig holds the batch file locations ingested by the ETL command.
type ETLConfig struct {
	ReservationsPath string `yaml:"reservations_path"`
	CompetitorsPath  string `yaml:"competitors_path"`
	InboxPath        string `yaml:"inbox_path"`
}

// APIConfig holds HTTP API settings.
type APIConfig struct {
	ListenAddr      string   `yaml:"listen_addr"`
	JWTSecret       string   `yaml:"jwt_secret"`
	TokenTTLMinutes int      `yaml:"token_ttl_minutes"`
	AllowedOrigins  []string `yaml:"allowed_origins"`
}

// OpenAIConfig holds the chat completion settings of the brief writer.
// An empty APIKey selects the plain text brief.
type OpenAIConfig struct {
	APIKey         string  `yaml:"api_key"`
	BaseURL        string  `yaml:"base_url"`
	Model          string  `yaml:"model"`
	Temperature    float64 `yaml:"temperature"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	MaxRetries     int     `yaml:"max_retries"`
}

// SMTPConfig holds the mail relay used to send briefs.
type SMTPConfig struct {
	Host       string `yaml:"host"`
	Port       string `yaml:"port"`
	Username   string `yaml:"username"`
	Password   string `yaml:"password"`
	FromName   string `yaml:"from_name"`
	AdminEmail string `yaml:"admin_email"`
}

// BriefConfig holds the daily rate brief settings.
type BriefConfig struct {
	Days   int          `yaml:"days"`
	OpenAI OpenAIConfig `yaml:"openai"`
	SMTP   SMTPConfig   `yaml:"smtp"`
}

// Timeout returns the chat completion request timeout.
func (o OpenAIConfig) Timeout() time.Duration {
	return time.Duration(o.TimeoutSeconds) * time.Second
}

// Configured reports whether every relay setting needed to send mail is present.
func (s SMTPConfig) Configured() bool {
	return s.Host != "" && s.Port != "" && s.Username != "" && s.Password != ""
}

// ObservabilityConfig holds OpenTelemetry exporter settings.
type ObservabilityConfig struct {
	ServiceName  string  `yaml:"service_name"`
	Environment  string  `yaml:"environment"`
	Exporter     string  `yaml:"exporter"`
	Endpoint     string  `yaml:"endpoint"`
	Insecure     bool    `yaml:"insecure"`
	SamplingRate float64 `yaml:"sampling_rate"`
}

// Config is the root structure for the application configuration.
type Config struct {
	System        SystemConfig        `yaml:"system"`
	Pipeline      PipelineConfig      `yaml:"pipeline"`
	Export        ExportConfig        `yaml:"export"`
	ETL           ETLConfig           `yaml:"etl"`
	API           APIConfig           `yaml:"api"`
	Brief         BriefConfig         `yaml:"brief"`
	Observability ObservabilityConfig `yaml:"observability"`
	// Database holds raw connection configs keyed by connection name, decoded by the database adapter.
	Database map[string]interface{} `yaml:"database"`
	// Storage holds raw storage connection configs keyed by name, decoded by the storage adapter.
	Storage map[string]interface{} `yaml:"storage"`
}

// NewConfig returns a Config populated with default values.
func NewConfig() *Config {
	return &Config{
		System: SystemConfig{
			Timezone: "UTC",
			Logging:  LoggingConfig{Level: "INFO", Format: "console"},
		},
		Pipeline: PipelineConfig{
			DBRef:              "forecast",
			HorizonDays:        14,
			WeekendDays:        []string{"friday", "saturday"},
			RollingWindow:      7,
			RollingMinPeriods:  2,
			BaselineWindow:     14,
			BaselineMinPeriods: 3,
			DefaultBaseline:    100.0,
			NeutralOccupancy:   50.0,
			Estimator:          EstimatorGBM,
			GBM: GBMConfig{
				NEstimators:    300,
				LearningRate:   0.05,
				MaxDepth:       5,
				Subsample:      0.9,
				ColSample:      0.9,
				MinSamplesLeaf: 1,
				Seed:           42,
			},
		},
		Export: ExportConfig{
			StorageRef:    "exports",
			OutputBaseDir: "forecasts",
			Compression:   "SNAPPY",
		},
		ETL: ETLConfig{
			ReservationsPath: "sample_data/reservations.csv",
			CompetitorsPath:  "sample_data/competitors.csv",
			InboxPath:        "inbox/nightly.csv",
		},
		API: APIConfig{
			ListenAddr:      ":8080",
			JWTSecret:       "please-change-me",
			TokenTTLMinutes: 24 * 60,
			AllowedOrigins:  []string{"*"},
		},
		Brief: BriefConfig{
			Days: 7,
			OpenAI: OpenAIConfig{
				BaseURL:        "https://api.openai.com",
				Model:          "gpt-4o-mini",
				Temperature:    0.3,
				TimeoutSeconds: 20,
				MaxRetries:     2,
			},
			SMTP: SMTPConfig{
				FromName:   "Rate Desk",
				AdminEmail: "admin@example.com",
			},
		},
		Observability: ObservabilityConfig{
			ServiceName:  "roomrate",
			Environment:  "development",
			Exporter:     ExporterNone,
			Endpoint:     "localhost:4317",
			Insecure:     true,
			SamplingRate: 1.0,
		},
		Database: map[string]interface{}{
			"forecast": map[string]interface{}{
				"type":     "sqlite",
				"database": "roomrate.db",
			},
		},
		Storage: map[string]interface{}{
			"exports": map[string]interface{}{
				"type":     "local",
				"base_dir": "./exports",
			},
		},
	}
}

// Estimator names accepted by pipeline.estimator.
const (
	EstimatorGBM     = "gbm"
	EstimatorRolling = "rolling"
)

// Exporter names accepted by observability.exporter.
const (
	ExporterNone     = "none"
	ExporterOTLPGRPC = "otlp-grpc"
	ExporterOTLPHTTP = "otlp-http"
)

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseWeekday parses a full or three-letter English weekday name.
func ParseWeekday(name string) (time.Weekday, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	if d, ok := weekdayNames[n]; ok {
		return d, nil
	}
	for full, d := range weekdayNames {
		if len(n) == 3 && strings.HasPrefix(full, n) {
			return d, nil
		}
	}
	return time.Sunday, fmt.Errorf("unknown weekday %q", name)
}

// Weekend returns the configured weekend set.
func (p PipelineConfig) Weekend() ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(p.WeekendDays))
	for _, name := range p.WeekendDays {
		d, err := ParseWeekday(name)
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

// Start parses HorizonStart. The boolean is false when no anchor is configured.
func (p PipelineConfig) Start() (time.Time, bool, error) {
	if strings.TrimSpace(p.HorizonStart) == "" {
		return time.Time{}, false, nil
	}
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(p.HorizonStart))
	if err != nil {
		return time.Time{}, false, fmt.Errorf("invalid horizon_start %q: %w", p.HorizonStart, err)
	}
	return t, true, nil
}

// Location resolves the configured timezone.
func (s SystemConfig) Location() (*time.Location, error) {
	if s.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(s.Timezone)
}

// TokenTTL returns the API token lifetime.
func (a APIConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}
