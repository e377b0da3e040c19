// Package config provides configuration management for the INSPIRE papers catalog.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of every environment variable read by Load.
const EnvPrefix = "INSPIRE_PAPERS"

// SSL mode constants for database connections.
const (
	// SSLModeDisable disables SSL (use only for local development).
	SSLModeDisable = "disable"
	// SSLModeRequire requires SSL but does not verify certificates.
	SSLModeRequire = "require"
	// SSLModeVerifyCA verifies the server certificate against a CA.
	SSLModeVerifyCA = "verify-ca"
	// SSLModeVerifyFull verifies the server certificate and hostname.
	SSLModeVerifyFull = "verify-full"
)

// Config holds all configuration for the INSPIRE papers catalog.
type Config struct {
	// Server contains HTTP server settings.
	Server ServerConfig `mapstructure:"server"`
	// Database contains PostgreSQL connection settings.
	Database DatabaseConfig `mapstructure:"database"`
	// Logging contains structured logging settings.
	Logging LoggingConfig `mapstructure:"logging"`
	// Metrics contains Prometheus metrics exposure settings.
	Metrics MetricsConfig `mapstructure:"metrics"`
	// Inspire contains INSPIRE literature API client settings.
	Inspire InspireConfig `mapstructure:"inspire"`
	// Auth contains OAuth sign-in and session cookie settings.
	Auth AuthConfig `mapstructure:"auth"`
	// Events contains Kafka change event publisher settings.
	Events EventsConfig `mapstructure:"events"`
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	// Host is the address to bind the server to (default: 0.0.0.0).
	Host string `mapstructure:"host"`
	// HTTPPort is the HTTP server port (default: 8080).
	HTTPPort int `mapstructure:"http_port"`
	// MetricsPort is the metrics server port (default: 9091).
	MetricsPort int `mapstructure:"metrics_port"`
	// ReadTimeout is the maximum duration for reading request body.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the maximum duration for writing response.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// ShutdownTimeout is the maximum duration to wait for graceful shutdown.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds database connection configuration.
type DatabaseConfig struct {
	// Host is the PostgreSQL server hostname.
	Host string `mapstructure:"host"`
	// Port is the PostgreSQL server port (default: 5432).
	Port int `mapstructure:"port"`
	// User is the database username.
	User string `mapstructure:"user"`
	// Password is the database password, loaded from INSPIRE_PAPERS_DATABASE_PASSWORD only.
	Password string `mapstructure:"-"`
	// Name is the database name.
	Name string `mapstructure:"name"`
	// SSLMode controls SSL connection security (require, verify-ca, verify-full, disable).
	SSLMode string `mapstructure:"ssl_mode"`
	// MaxConns is the maximum number of connections in the pool (default: 10).
	MaxConns int32 `mapstructure:"max_conns"`
	// MinConns is the minimum number of connections to keep open (default: 1).
	MinConns int32 `mapstructure:"min_conns"`
	// MaxConnLifetime is the maximum lifetime of a connection before it's closed.
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	// MaxConnIdleTime is the maximum time a connection can be idle before it's closed.
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
	// HealthCheckPeriod is the interval between health checks of idle connections.
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
	// ConnectTimeout is the maximum time to wait for a connection.
	ConnectTimeout time.Duration `mapstructure:"connect_timeout"`
	// MigrationPath overrides the built-in migrations with a directory. Empty uses the built-in set.
	MigrationPath string `mapstructure:"migration_path"`
	// MigrationAutoRun enables automatic migration on startup (default: false).
	MigrationAutoRun bool `mapstructure:"migration_auto_run"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	// Level is the log level (trace, debug, info, warn, error, fatal, panic).
	Level string `mapstructure:"level"`
	// Format is the log format (json, console).
	Format string `mapstructure:"format"`
	// Output is the log output destination (stdout, stderr).
	Output string `mapstructure:"output"`
	// AddSource adds source file and line to log output.
	AddSource bool `mapstructure:"add_source"`
	// TimeFormat is the timestamp format.
	TimeFormat string `mapstructure:"time_format"`
}

// MetricsConfig holds metrics configuration.
type MetricsConfig struct {
	// Enabled enables metrics collection and exposure.
	Enabled bool `mapstructure:"enabled"`
	// Path is the HTTP path for metrics endpoint.
	Path string `mapstructure:"path"`
	// Namespace prefixes every metric name.
	Namespace string `mapstructure:"namespace"`
}

// InspireConfig holds INSPIRE literature API client settings.
type InspireConfig struct {
	// BaseURL is the API base URL.
	BaseURL string `mapstructure:"base_url"`
	// Timeout is the timeout for API calls.
	Timeout time.Duration `mapstructure:"timeout"`
	// RateLimit is the maximum requests per second.
	RateLimit float64 `mapstructure:"rate_limit"`
	// Burst is the rate limiter burst size.
	Burst int `mapstructure:"burst"`
	// MaxRetries is the number of retries on 429 and 5xx responses.
	MaxRetries int `mapstructure:"max_retries"`
	// DefaultCollaboration is searched when a caller names none.
	DefaultCollaboration string `mapstructure:"default_collaboration"`
	// PageSize is the default number of records per search.
	PageSize int `mapstructure:"page_size"`
}

// AuthConfig holds OAuth2 identity provider and session settings.
type AuthConfig struct {
	// Enabled turns on sign-in; mutations are refused while disabled.
	Enabled bool `mapstructure:"enabled"`
	// ClientID is the OAuth2 client identifier.
	ClientID string `mapstructure:"client_id"`
	// ClientSecret is loaded from INSPIRE_PAPERS_AUTH_CLIENT_SECRET only.
	ClientSecret string `mapstructure:"-"`
	// AuthURL is the provider authorization endpoint.
	AuthURL string `mapstructure:"auth_url"`
	// TokenURL is the provider token endpoint.
	TokenURL string `mapstructure:"token_url"`
	// UserInfoURL is the provider userinfo endpoint.
	UserInfoURL string `mapstructure:"userinfo_url"`
	// Scopes requested at sign-in.
	Scopes []string `mapstructure:"scopes"`
	// RedirectURL is the HTTP server callback registered with the provider.
	RedirectURL string `mapstructure:"redirect_url"`
	// CallbackPort is the loopback port used by the CLI sign-in (0 picks a free port).
	CallbackPort int `mapstructure:"callback_port"`
	// SignInTimeout bounds an interactive sign-in.
	SignInTimeout time.Duration `mapstructure:"sign_in_timeout"`
	// SessionSecret signs session cookies, loaded from INSPIRE_PAPERS_AUTH_SESSION_SECRET only.
	SessionSecret string `mapstructure:"-"`
	// SessionTTL is the lifetime of a session cookie.
	SessionTTL time.Duration `mapstructure:"session_ttl"`
	// CookieSecure marks cookies Secure (HTTPS only).
	CookieSecure bool `mapstructure:"cookie_secure"`
}

// EventsConfig holds Kafka publisher settings for small paper change events.
type EventsConfig struct {
	// Enabled controls whether Kafka publishing is active.
	Enabled bool `mapstructure:"enabled"`
	// Brokers is the list of Kafka broker addresses.
	Brokers []string `mapstructure:"brokers"`
	// Topic is the Kafka topic change events are written to.
	Topic string `mapstructure:"topic"`
	// BatchTimeout is the maximum time to wait for a batch to fill before sending.
	BatchTimeout time.Duration `mapstructure:"batch_timeout"`
	// WriteTimeout bounds a single publish.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// DSN returns the PostgreSQL connection string.
func (c *DatabaseConfig) DSN() string {
	params := url.Values{}
	params.Set("sslmode", c.SSLMode)
	if c.ConnectTimeout > 0 {
		params.Set("connect_timeout", fmt.Sprintf("%d", int(c.ConnectTimeout.Seconds())))
	}

	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		params.Encode(),
	)
}

// HTTPAddress returns the HTTP server address.
func (c *ServerConfig) HTTPAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.HTTPPort)
}

// MetricsAddress returns the metrics server address.
func (c *ServerConfig) MetricsAddress() string {
	return fmt.Sprintf("%s:%d", c.Host, c.MetricsPort)
}

// Load loads configuration from environment variables and config files.
func Load() (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/inspire-papers")

	if err := v.ReadInConfig(); err != nil {
		var configNotFound viper.ConfigFileNotFoundError
		if !errors.As(err, &configNotFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is OK, we'll use env vars and defaults
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	loadSecrets(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &cfg, nil
}

// loadSecrets populates secret fields exclusively from environment variables.
// These fields are tagged with mapstructure:"-" to prevent loading from config files.
func loadSecrets(cfg *Config) {
	cfg.Database.Password = os.Getenv(EnvPrefix + "_DATABASE_PASSWORD")
	cfg.Auth.ClientSecret = os.Getenv(EnvPrefix + "_AUTH_CLIENT_SECRET")
	cfg.Auth.SessionSecret = os.Getenv(EnvPrefix + "_AUTH_SESSION_SECRET")
}

// setDefaults sets default configuration values.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.http_port", 8080)
	v.SetDefault("server.metrics_port", 9091)
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "30s")
	v.SetDefault("server.shutdown_timeout", "30s")

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "inspire")
	v.SetDefault("database.name", "inspire_papers")
	v.SetDefault("database.ssl_mode", SSLModeRequire)
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
	v.SetDefault("database.max_conn_idle_time", "30m")
	v.SetDefault("database.health_check_period", "1m")
	v.SetDefault("database.connect_timeout", "10s")
	v.SetDefault("database.migration_path", "")
	v.SetDefault("database.migration_auto_run", false)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.add_source", false)
	v.SetDefault("logging.time_format", time.RFC3339)

	// Metrics defaults
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.namespace", "inspire_papers")

	// INSPIRE defaults
	v.SetDefault("inspire.base_url", "https://inspirehep.net")
	v.SetDefault("inspire.timeout", "30s")
	v.SetDefault("inspire.rate_limit", 2.0)
	v.SetDefault("inspire.burst", 1)
	v.SetDefault("inspire.max_retries", 3)
	v.SetDefault("inspire.default_collaboration", "DUNE")
	v.SetDefault("inspire.page_size", 25)

	// Auth defaults (Google as the identity provider)
	v.SetDefault("auth.enabled", false)
	v.SetDefault("auth.auth_url", "https://accounts.google.com/o/oauth2/auth")
	v.SetDefault("auth.token_url", "https://oauth2.googleapis.com/token")
	v.SetDefault("auth.userinfo_url", "https://openidconnect.googleapis.com/v1/userinfo")
	v.SetDefault("auth.scopes", []string{"openid", "email", "profile"})
	v.SetDefault("auth.redirect_url", "http://localhost:8080/auth/callback")
	v.SetDefault("auth.callback_port", 0)
	v.SetDefault("auth.sign_in_timeout", "5m")
	v.SetDefault("auth.session_ttl", "24h")
	v.SetDefault("auth.cookie_secure", false)

	// Events defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokers", []string{"localhost:9092"})
	v.SetDefault("events.topic", "inspire-papers.small-papers")
	v.SetDefault("events.batch_timeout", "10ms")
	v.SetDefault("events.write_timeout", "10s")
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	// Validate server ports
	if c.Server.HTTPPort <= 0 || c.Server.HTTPPort > 65535 {
		return fmt.Errorf("invalid HTTP port: %d", c.Server.HTTPPort)
	}
	if c.Server.MetricsPort <= 0 || c.Server.MetricsPort > 65535 {
		return fmt.Errorf("invalid metrics port: %d", c.Server.MetricsPort)
	}

	// Validate database config
	if c.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("max_conns (%d) must be >= min_conns (%d)", c.Database.MaxConns, c.Database.MinConns)
	}

	// Validate log level
	validLogLevels := map[string]bool{
		"trace": true, "debug": true, "info": true,
		"warn": true, "error": true, "fatal": true, "panic": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	// Validate INSPIRE client
	if c.Inspire.BaseURL == "" {
		return fmt.Errorf("inspire base_url is required")
	}
	if c.Inspire.RateLimit <= 0 {
		return fmt.Errorf("inspire rate_limit must be positive")
	}

	// Validate auth config
	if c.Auth.Enabled {
		if c.Auth.ClientID == "" {
			return fmt.Errorf("auth client_id is required when auth is enabled")
		}
		if c.Auth.AuthURL == "" || c.Auth.TokenURL == "" {
			return fmt.Errorf("auth auth_url and token_url are required when auth is enabled")
		}
		if c.Auth.SessionSecret == "" {
			return fmt.Errorf("auth is enabled but %s_AUTH_SESSION_SECRET is not set", EnvPrefix)
		}
		if c.Auth.CallbackPort < 0 || c.Auth.CallbackPort > 65535 {
			return fmt.Errorf("invalid auth callback port: %d", c.Auth.CallbackPort)
		}
	}

	// Validate events config
	if c.Events.Enabled {
		if len(c.Events.Brokers) == 0 {
			return fmt.Errorf("events brokers are required when events are enabled")
		}
		if c.Events.Topic == "" {
			return fmt.Errorf("events topic is required when events are enabled")
		}
	}

	return nil
}
