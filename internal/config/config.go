package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Runtime environments. Anything other than development is treated as
// production for error-detail purposes.
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Database drivers.
const (
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	App      AppConfig      `yaml:"app"`
	Log      LogConfig      `yaml:"log"`
	CORS     CORSConfig     `yaml:"cors"`
	Tracking TrackingConfig `yaml:"tracking"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port                int    `yaml:"port"`
	Host                string `yaml:"host"`
	ReadTimeoutSeconds  int    `yaml:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `yaml:"write_timeout_seconds"`
	IdleTimeoutSeconds  int    `yaml:"idle_timeout_seconds"`
}

// GetHost returns the server host, with container detection
func (c ServerConfig) GetHost() string {
	// On ECS/container, listen on all interfaces
	if os.Getenv("ECS_CONTAINER_METADATA_URI") != "" || os.Getenv("AWS_EXECUTION_ENV") != "" {
		return "0.0.0.0"
	}
	if host := os.Getenv("SERVER_HOST"); host != "" {
		return host
	}
	return c.Host
}

// ReadTimeout returns the configured read timeout as a duration
func (c ServerConfig) ReadTimeout() time.Duration {
	return time.Duration(c.ReadTimeoutSeconds) * time.Second
}

// WriteTimeout returns the configured write timeout as a duration
func (c ServerConfig) WriteTimeout() time.Duration {
	return time.Duration(c.WriteTimeoutSeconds) * time.Second
}

// IdleTimeout returns the configured idle timeout as a duration
func (c ServerConfig) IdleTimeout() time.Duration {
	return time.Duration(c.IdleTimeoutSeconds) * time.Second
}

// DatabaseConfig holds the contact/tracking store configuration
type DatabaseConfig struct {
	Driver                 string `yaml:"driver"` // "postgres" or "memory"
	URL                    string `yaml:"url"`
	RequireTLS             bool   `yaml:"require_tls"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
}

// ConnMaxLifetime returns the pooled connection lifetime as a duration
func (c DatabaseConfig) ConnMaxLifetime() time.Duration {
	return time.Duration(c.ConnMaxLifetimeMinutes) * time.Minute
}

// AppConfig holds runtime mode settings
type AppConfig struct {
	Environment string `yaml:"environment"`
}

// IsDevelopment reports whether verbose error details may be returned to
// clients.
func (c AppConfig) IsDevelopment() bool {
	return strings.EqualFold(c.Environment, EnvDevelopment)
}

// LogConfig holds logger settings
type LogConfig struct {
	Level     string `yaml:"level"`
	RedactPII *bool  `yaml:"redact_pii"` // nil means redact
}

// Redact reports whether email addresses are masked in logs.
func (c LogConfig) Redact() bool {
	return c.RedactPII == nil || *c.RedactPII
}

// CORSConfig holds cross-origin settings for the dashboard API
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// TrackingConfig holds tracking URL settings
type TrackingConfig struct {
	// BaseURL is the public origin the dashboard shows in its example pixel
	// and click URLs. Empty falls back to the browser's origin.
	BaseURL string `yaml:"base_url"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 3000
	}
	if cfg.Server.Host == "" {
		cfg.Server.Host = "localhost"
	}
	if cfg.Server.ReadTimeoutSeconds == 0 {
		cfg.Server.ReadTimeoutSeconds = 5
	}
	if cfg.Server.WriteTimeoutSeconds == 0 {
		cfg.Server.WriteTimeoutSeconds = 10
	}
	if cfg.Server.IdleTimeoutSeconds == 0 {
		cfg.Server.IdleTimeoutSeconds = 120
	}
	if cfg.Database.Driver == "" {
		cfg.Database.Driver = DriverPostgres
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 20
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetimeMinutes == 0 {
		cfg.Database.ConnMaxLifetimeMinutes = 30
	}
	if cfg.App.Environment == "" {
		cfg.App.Environment = EnvProduction
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if len(cfg.CORS.AllowedOrigins) == 0 {
		cfg.CORS.AllowedOrigins = []string{"*"}
	}
}

// LoadFromEnv loads configuration with environment variable overrides.
// It automatically loads a .env file (if present) before reading env vars,
// so secrets can live in .env locally and in real env vars in containers.
// A missing config file is not an error: defaults plus environment apply.
func LoadFromEnv(path string) (*Config, error) {
	// Load .env file if it exists (no error if missing)
	_ = godotenv.Load()

	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg = &Config{}
		applyDefaults(cfg)
	} else if err != nil {
		return nil, err
	}

	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("DATABASE_DRIVER"); v != "" {
		cfg.Database.Driver = v
	}
	if v := os.Getenv("DATABASE_REQUIRE_TLS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Database.RequireTLS = b
		}
	}
	if v := os.Getenv("APP_ENV"); v != "" {
		cfg.App.Environment = v
	} else if v := os.Getenv("NODE_ENV"); v != "" {
		cfg.App.Environment = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGINS"); v != "" {
		cfg.CORS.AllowedOrigins = splitList(v)
	}
	if v := os.Getenv("TRACKING_BASE_URL"); v != "" {
		cfg.Tracking.BaseURL = strings.TrimRight(v, "/")
	}

	return cfg, nil
}

// Validate checks settings that cannot be defaulted.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Database.URL == "" {
			return errors.New("database.url (or DATABASE_URL) is required for the postgres driver")
		}
	default:
		return errors.New("database.driver must be postgres or memory")
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return errors.New("server.port must be between 1 and 65535")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
