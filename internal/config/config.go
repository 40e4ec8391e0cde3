// Package config handles application configuration loading from environment variables.
package config

import (
	"os"
	"reflect"
	"strconv"
	"strings"
	"time"

	contextutils "talentapp/internal/utils"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig `json:"server" yaml:"server"`

	// Database configuration
	Database DatabaseConfig `json:"database" yaml:"database"`

	// OpenTelemetry Configuration
	OpenTelemetry OpenTelemetryConfig `json:"open_telemetry" yaml:"open_telemetry"`

	// Email Configuration
	Email EmailConfig `json:"email" yaml:"email"`

	// Export Configuration (downstream report webhook)
	Export ExportConfig `json:"export" yaml:"export"`

	// Worker Configuration (background report sweeps)
	Worker WorkerConfig `json:"worker" yaml:"worker"`

	// Internal fields
	IsTest bool `json:"is_test" yaml:"is_test"`
}

// ServerConfig represents server configuration
type ServerConfig struct {
	Port          string   `json:"port" yaml:"port"`
	AdminEmail    string   `json:"admin_email" yaml:"admin_email"`
	AdminName     string   `json:"admin_name" yaml:"admin_name"`
	AdminPassword string   `json:"admin_password" yaml:"admin_password"`
	Debug         bool     `json:"debug" yaml:"debug"`
	LogLevel      string   `json:"log_level" yaml:"log_level"`
	AppBaseURL    string   `json:"app_base_url" yaml:"app_base_url"`
	CORSOrigins   []string `json:"cors_origins" yaml:"cors_origins"`
	// DefaultPageSize is used when a list request does not ask for a page
	// size; MaxPageSize caps whatever the request asks for.
	DefaultPageSize int `json:"default_page_size" yaml:"default_page_size"`
	MaxPageSize     int `json:"max_page_size" yaml:"max_page_size"`
	// CompletionRangeDays caps the completion timeline window (in days). If
	// unset or <= 0 the handlers fall back to DefaultCompletionRangeDays.
	CompletionRangeDays int `json:"completion_range_days" yaml:"completion_range_days"`
}

// ListenPort returns the port the API server listens on.
func (c *ServerConfig) ListenPort() string {
	if c.Port != "" {
		return c.Port
	}
	return DefaultServerPort
}

// PageSize clamps a requested page size to the configured bounds.
func (c *Config) PageSize(requested int) int {
	limit := c.Server.MaxPageSize
	if limit <= 0 {
		limit = MaxPageSize
	}

	if requested <= 0 {
		requested = c.Server.DefaultPageSize
		if requested <= 0 {
			requested = DefaultPageSize
		}
	}

	if requested > limit {
		return limit
	}
	return requested
}

// CompletionRangeDays returns the widest allowed completion timeline window in days.
func (c *Config) CompletionRangeDays() int {
	if c.Server.CompletionRangeDays > 0 {
		return c.Server.CompletionRangeDays
	}
	return DefaultCompletionRangeDays
}

// IsEmailEnabled reports whether report notice emails can actually go out.
// The flag alone is not enough: sending also needs an SMTP host and a sender
// address, so a half-configured deployment degrades to "email off" instead of
// failing report builds.
func (c *Config) IsEmailEnabled() bool {
	return c.Email.Enabled && c.Email.SMTP.Host != "" && c.Email.SMTP.FromAddress != ""
}

// IsExportEnabled reports whether the report export webhook is configured.
func (c *Config) IsExportEnabled() bool {
	return c.Export.Enabled && c.Export.URL != ""
}

// OpenTelemetryConfig holds all OpenTelemetry-related configuration
type OpenTelemetryConfig struct {
	Endpoint       string            `json:"endpoint" yaml:"endpoint"`               // Default: "http://localhost:4317"
	Protocol       string            `json:"protocol" yaml:"protocol"`               // "grpc" or "http", default: "grpc"
	Insecure       bool              `json:"insecure" yaml:"insecure"`               // Default: true (for localhost)
	Headers        map[string]string `json:"headers" yaml:"headers"`                 // For authenticated endpoints
	ServiceName    string            `json:"service_name" yaml:"service_name"`       // Default: "talent-backend" or "talent-worker"
	ServiceVersion string            `json:"service_version" yaml:"service_version"` // From version package
	EnableTracing  bool              `json:"enable_tracing" yaml:"enable_tracing"`   // Default: true
	EnableMetrics  bool              `json:"enable_metrics" yaml:"enable_metrics"`   // Default: true
	EnableLogging  bool              `json:"enable_logging" yaml:"enable_logging"`   // Default: true
	UseAutoSDK     bool              `json:"use_auto_sdk" yaml:"use_auto_sdk"`       // Default: false (standard SDK with OTLP exporter)
	SamplingRate   float64           `json:"sampling_rate" yaml:"sampling_rate"`     // Default: 1.0 (100%)
}

// DatabaseConfig represents database configuration
type DatabaseConfig struct {
	URL             string        `json:"url" yaml:"url"`
	MaxOpenConns    int           `json:"max_open_conns" yaml:"max_open_conns"`       // Maximum number of open connections to the database
	MaxIdleConns    int           `json:"max_idle_conns" yaml:"max_idle_conns"`       // Maximum number of idle connections in the pool
	ConnMaxLifetime time.Duration `json:"conn_max_lifetime" yaml:"conn_max_lifetime"` // Maximum amount of time a connection may be reused
}

// EmailConfig represents email/SMTP configuration
type EmailConfig struct {
	SMTP         SMTPConfig         `json:"smtp" yaml:"smtp"`
	ReportNotice ReportNoticeConfig `json:"report_notice" yaml:"report_notice"`
	Enabled      bool               `json:"enabled" yaml:"enabled"`
}

// SMTPConfig represents SMTP server configuration
type SMTPConfig struct {
	Host        string `json:"host" yaml:"host"`
	Port        int    `json:"port" yaml:"port"`
	Username    string `json:"username" yaml:"username"`
	Password    string `json:"password" yaml:"password"`
	FromAddress string `json:"from_address" yaml:"from_address"`
	FromName    string `json:"from_name" yaml:"from_name"`
}

// ReportNoticeConfig represents the "report ready" notification email
type ReportNoticeConfig struct {
	Enabled bool   `json:"enabled" yaml:"enabled"`
	Subject string `json:"subject" yaml:"subject"` // Default: "Your report is ready"
}

// ExportConfig represents the downstream webhook notified after a report is stored
type ExportConfig struct {
	URL     string        `json:"url" yaml:"url"`
	Token   string        `json:"token" yaml:"token"`     // Bearer token, optional
	Timeout time.Duration `json:"timeout" yaml:"timeout"` // Default: ExportHTTPTimeout
	Enabled bool          `json:"enabled" yaml:"enabled"`
}

// RequestTimeout returns the webhook request timeout, defaulting when unset.
func (c *ExportConfig) RequestTimeout() time.Duration {
	if c.Timeout > 0 {
		return c.Timeout
	}
	return ExportHTTPTimeout
}

// WorkerConfig represents the background report worker configuration
type WorkerConfig struct {
	Port      string        `json:"port" yaml:"port"`             // Default: DefaultWorkerPort
	Interval  time.Duration `json:"interval" yaml:"interval"`     // Default: WorkerSweepInterval
	BatchSize int           `json:"batch_size" yaml:"batch_size"` // Default: DefaultWorkerBatchSize
	Enabled   bool          `json:"enabled" yaml:"enabled"`
}

// HealthPort returns the port the worker's health server listens on.
func (c *WorkerConfig) HealthPort() string {
	if c.Port != "" {
		return c.Port
	}
	return DefaultWorkerPort
}

// SweepInterval returns how often the worker looks for missing reports.
func (c *WorkerConfig) SweepInterval() time.Duration {
	if c.Interval > 0 {
		return c.Interval
	}
	return WorkerSweepInterval
}

// SweepBatchSize returns how many assignments a single sweep may process.
func (c *WorkerConfig) SweepBatchSize() int {
	if c.BatchSize > 0 {
		return c.BatchSize
	}
	return DefaultWorkerBatchSize
}

// NewConfig loads configuration from YAML file first, then overrides with environment variables
func NewConfig() (result0 *Config, err error) {
	// Load config from YAML file
	config, err := loadConfigWithOverrides()
	if err != nil {
		return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config: %w", err)
	}

	// Override with environment variables
	config.overrideFromEnv()

	return config, nil
}

// overrideFromEnv overrides config values with environment variables using reflection
func (c *Config) overrideFromEnv() {
	overrideStructFromEnv(c)
}

// overrideStructFromEnv recursively overrides struct fields with environment variables
func overrideStructFromEnv(v interface{}) {
	overrideStructFromEnvWithPrefix(v, "")
}

// overrideStructFromEnvWithPrefix recursively overrides struct fields with environment variables
func overrideStructFromEnvWithPrefix(v interface{}, prefix string) {
	val := reflect.ValueOf(v)
	if val.Kind() == reflect.Ptr {
		val = val.Elem()
	}

	if val.Kind() != reflect.Struct {
		return
	}

	typ := val.Type()
	for i := 0; i < val.NumField(); i++ {
		field := val.Field(i)
		fieldType := typ.Field(i)

		// Skip unexported fields
		if !field.CanSet() {
			continue
		}

		// Get the yaml tag for the field
		yamlTag := fieldType.Tag.Get("yaml")
		if yamlTag == "" || yamlTag == "-" {
			continue
		}

		// Convert yaml tag to environment variable name
		envKey := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
		if prefix != "" {
			envKey = prefix + "_" + envKey
		}

		switch field.Kind() {
		case reflect.String:
			if envVal := os.Getenv(envKey); envVal != "" {
				field.SetString(envVal)
			}
		case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if field.Type() == reflect.TypeOf(time.Duration(0)) {
					// Duration fields accept the same "5m"/"10s" strings the
					// YAML file uses.
					if d, err := time.ParseDuration(envVal); err == nil {
						field.SetInt(int64(d))
					}
					continue
				}
				if intVal, err := strconv.ParseInt(envVal, 10, 64); err == nil {
					field.SetInt(intVal)
				}
			}
		case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if uintVal, err := strconv.ParseUint(envVal, 10, 64); err == nil {
					field.SetUint(uintVal)
				}
			}
		case reflect.Float32, reflect.Float64:
			if envVal := os.Getenv(envKey); envVal != "" {
				if floatVal, err := strconv.ParseFloat(envVal, 64); err == nil {
					field.SetFloat(floatVal)
				}
			}
		case reflect.Bool:
			if envVal := os.Getenv(envKey); envVal != "" {
				if boolVal, err := strconv.ParseBool(envVal); err == nil {
					field.SetBool(boolVal)
				}
			}
		case reflect.Slice:
			if envVal := os.Getenv(envKey); envVal != "" {
				// Handle string slices (like CORS_ORIGINS)
				if field.Type().Elem().Kind() == reflect.String {
					slice := strings.Split(envVal, ",")
					field.Set(reflect.ValueOf(slice))
				}
			}
		case reflect.Struct:
			// Recursively process nested structs with the field name as prefix
			if field.CanAddr() {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Addr().Interface(), fieldPrefix)
			}
		case reflect.Ptr:
			// Handle pointer to struct
			if !field.IsNil() && field.Elem().Kind() == reflect.Struct {
				fieldPrefix := strings.ToUpper(strings.ReplaceAll(yamlTag, "-", "_"))
				if prefix != "" {
					fieldPrefix = prefix + "_" + fieldPrefix
				}
				overrideStructFromEnvWithPrefix(field.Interface(), fieldPrefix)
			}
		}
	}
}

// loadConfigWithOverrides loads the config file with potential local overrides
func loadConfigWithOverrides() (result0 *Config, err error) {
	// Try to load from environment variable first
	if envPath := os.Getenv("TALENTAPP_CONFIG_FILE"); envPath != "" {
		config, err := loadConfigFromFile(envPath)
		if err != nil {
			return nil, contextutils.WrapErrorf(contextutils.ErrInternalError, "failed to load config from %s: %w", envPath, err)
		}
		return config, nil
	}

	// If no environment variable is set, try default config.yaml
	return loadConfigFromFile("config.yaml")
}

// loadConfigFromFile loads configuration from a specific file
func loadConfigFromFile(path string) (result0 *Config, err error) {
	yamlFile, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var config Config
	if err := yaml.Unmarshal(yamlFile, &config); err != nil {
		return nil, err
	}

	return &config, nil
}
