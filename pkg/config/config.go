// Package config provides unified configuration for the gateway.
//
// Configuration is loaded with a layered approach:
//  1. Built-in defaults
//  2. YAML config file (discovered or explicitly specified)
//  3. Environment variable overrides (GEMPROXY_ prefix)
//  4. File reference resolution (_file suffix fields)
//  5. Validation
package config

import "time"

// Config holds all configuration for the gateway.
type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Backend       BackendConfig       `yaml:"backend"`
	Models        ModelsConfig        `yaml:"models"`
	Auth          AuthConfig          `yaml:"auth"`
	Accounting    AccountingConfig    `yaml:"accounting"`
	Limits        LimitsConfig        `yaml:"limits"`
	Logging       LoggingConfig       `yaml:"logging"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`             // default: 8080
	MaxBodySize     int64         `yaml:"max_body_size"`    // default: 10 MiB
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default: 10s
}

// BackendConfig holds settings for the upstream Chat Completions server.
type BackendConfig struct {
	URL        string        `yaml:"url"`          // required
	APIKey     string        `yaml:"api_key"`      // optional
	APIKeyFile string        `yaml:"api_key_file"` // _file variant for api_key
	Timeout    time.Duration `yaml:"timeout"`      // default: 120s, non-streaming only
}

// ModelsConfig maps inbound model names to backend model names.
type ModelsConfig struct {
	// Mapping routes an inbound name to the backend name the upstream
	// server knows.
	Mapping map[string]string `yaml:"mapping"`
	// Default is used for inbound names absent from Mapping. Empty
	// means unmapped names are rejected.
	Default string `yaml:"default"`
}

// AuthConfig holds inbound authentication settings.
type AuthConfig struct {
	Type       string         `yaml:"type"`            // "none", "apikey", "jwt", default: "none"
	APIKeys    []APIKeyConfig `yaml:"api_keys"`        // API key entries for type=apikey
	JWTSecret  string         `yaml:"jwt_secret"`      // HMAC secret for type=jwt
	JWTKeyFile string         `yaml:"jwt_secret_file"` // _file variant for jwt_secret
}

// APIKeyConfig describes a single API key entry.
type APIKeyConfig struct {
	Key     string `yaml:"key"`
	KeyFile string `yaml:"key_file"` // _file variant for key
	Subject string `yaml:"subject"`
}

// AccountingConfig holds usage record persistence settings.
type AccountingConfig struct {
	Type     string         `yaml:"type"`     // "none", "memory", "postgres", default: "memory"
	MaxSize  int            `yaml:"max_size"` // for memory recorder, default: 10000
	Postgres PostgresConfig `yaml:"postgres"`
}

// PostgresConfig holds PostgreSQL-specific settings.
type PostgresConfig struct {
	DSN            string `yaml:"dsn"`
	DSNFile        string `yaml:"dsn_file"`         // _file variant for dsn
	MaxConns       int32  `yaml:"max_conns"`        // default: 10
	MigrateOnStart bool   `yaml:"migrate_on_start"` // default: false
}

// LimitsConfig bounds inbound request size and shape.
type LimitsConfig struct {
	MaxContents       int `yaml:"max_contents"`         // default: 1000
	MaxPartsPerTurn   int `yaml:"max_parts_per_turn"`   // default: 256
	MaxTools          int `yaml:"max_tools"`            // default: 128
	MaxInlineDataSize int `yaml:"max_inline_data_size"` // default: 20 MiB of base64
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level     string          `yaml:"level"` // "debug", "info", "warn", "error", default: "info"
	AccessLog AccessLogConfig `yaml:"access_log"`
}

// AccessLogConfig holds rotating access log settings. When Path is
// empty, access log lines go to the main logger.
type AccessLogConfig struct {
	Enabled    bool   `yaml:"enabled"`      // default: true
	Path       string `yaml:"path"`         // log file, empty = main logger
	MaxSizeMB  int    `yaml:"max_size_mb"`  // default: 100
	MaxBackups int    `yaml:"max_backups"`  // default: 5
	MaxAgeDays int    `yaml:"max_age_days"` // default: 30
	Compress   bool   `yaml:"compress"`     // default: false
}

// ObservabilityConfig holds monitoring and instrumentation settings.
type ObservabilityConfig struct {
	Metrics MetricsConfig `yaml:"metrics"`
}

// MetricsConfig holds Prometheus metrics endpoint settings.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"` // default: true
}

// Defaults returns a Config with all default values filled in.
func Defaults() Config {
	return Config{
		Server: ServerConfig{
			Port:            8080,
			MaxBodySize:     10 << 20,
			ShutdownTimeout: 10 * time.Second,
		},
		Backend: BackendConfig{
			Timeout: 120 * time.Second,
		},
		Auth: AuthConfig{
			Type: "none",
		},
		Accounting: AccountingConfig{
			Type:    "memory",
			MaxSize: 10000,
			Postgres: PostgresConfig{
				MaxConns: 10,
			},
		},
		Limits: LimitsConfig{
			MaxContents:       1000,
			MaxPartsPerTurn:   256,
			MaxTools:          128,
			MaxInlineDataSize: 20 << 20,
		},
		Logging: LoggingConfig{
			Level: "info",
			AccessLog: AccessLogConfig{
				Enabled:    true,
				MaxSizeMB:  100,
				MaxBackups: 5,
				MaxAgeDays: 30,
			},
		},
		Observability: ObservabilityConfig{
			Metrics: MetricsConfig{
				Enabled: true,
			},
		},
	}
}
