package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-yaml"
)

// Driver identifies which point store backs the service.
type Driver string

const (
	DriverPostgres Driver = "postgres"
	DriverSQLite   Driver = "sqlite"
)

// Defaults
const (
	DefaultPort           = "5050"
	DefaultQueryTimeout   = 5 * time.Second
	DefaultRateLimitRPS   = 20.0
	DefaultRateLimitBurst = 40
	DefaultBatchSize      = 1000
	DefaultCSVPath        = "data/2024-06-30-puntos_de_acceso_wifi.csv"
	DefaultSQLitePath     = "wifi_points.db"
)

var (
	ErrMissingDatabaseURL = errors.New("DATABASE_URL is required for the postgres driver")
	ErrUnknownDriver      = errors.New("unknown DB_DRIVER")
)

// Config holds process configuration for both the API server and the loader.
type Config struct {
	Driver      Driver `yaml:"driver"`
	DatabaseURL string `yaml:"database_url"`
	SQLitePath  string `yaml:"sqlite_path"`

	Port           string        `yaml:"port"`
	QueryTimeout   time.Duration `yaml:"query_timeout"`
	RateLimitRPS   float64       `yaml:"rate_limit_rps"`
	RateLimitBurst int           `yaml:"rate_limit_burst"`
	CORSOrigins    []string      `yaml:"cors_origins"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	CSVPath   string `yaml:"csv_path"`
	BatchSize int    `yaml:"batch_size"`
}

// Default returns a Config with every optional field populated.
func Default() Config {
	return Config{
		Driver:         DriverPostgres,
		SQLitePath:     DefaultSQLitePath,
		Port:           DefaultPort,
		QueryTimeout:   DefaultQueryTimeout,
		RateLimitRPS:   DefaultRateLimitRPS,
		RateLimitBurst: DefaultRateLimitBurst,
		CORSOrigins: []string{
			"http://localhost:5173",
			"http://localhost:5174",
		},
		LogLevel:  "info",
		LogFormat: "json",
		CSVPath:   DefaultCSVPath,
		BatchSize: DefaultBatchSize,
	}
}

// Load builds the configuration: defaults, then the optional YAML file at path,
// then environment variables. The result is validated for the selected driver.
//
// Environment variables:
//   - DB_DRIVER: "postgres" or "sqlite" (default: "postgres")
//   - DATABASE_URL: Postgres DSN (required for postgres)
//   - SQLITE_PATH: database file for the sqlite driver (default: wifi_points.db)
//   - PORT: HTTP port (default: 5050)
//   - QUERY_TIMEOUT: per round-trip store timeout, Go duration (default: 5s)
//   - RATE_LIMIT_RPS / RATE_LIMIT_BURST: API token bucket (default: 20 / 40)
//   - CORS_ORIGINS: comma separated allow-list
//   - LOG_LEVEL: debug, info, warn, error (default: info)
//   - LOG_FORMAT: json or console (default: json)
//   - CSV_PATH: loader source file
//   - BATCH_SIZE: loader chunk size (default: 1000)
func Load(path string) (Config, error) {
	cfg, err := Read(path)
	if err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Read is Load without the driver check, for callers that never open a store.
func Read(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("CONFIG_FILE")
	}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file: %w", err)
		}
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config file %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.validateSettings()
}

func (c *Config) applyEnv() error {
	if v := strings.ToLower(strings.TrimSpace(os.Getenv("DB_DRIVER"))); v != "" {
		c.Driver = Driver(v)
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		c.DatabaseURL = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		c.SQLitePath = v
	}
	if v := os.Getenv("PORT"); v != "" {
		c.Port = v
	}
	if v := os.Getenv("QUERY_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("QUERY_TIMEOUT: %w", err)
		}
		c.QueryTimeout = d
	}
	if v := os.Getenv("RATE_LIMIT_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_RPS: %w", err)
		}
		c.RateLimitRPS = f
	}
	if v := os.Getenv("RATE_LIMIT_BURST"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("RATE_LIMIT_BURST: %w", err)
		}
		c.RateLimitBurst = n
	}
	if v := os.Getenv("CORS_ORIGINS"); v != "" {
		var origins []string
		for _, o := range strings.Split(v, ",") {
			if o = strings.TrimSpace(o); o != "" {
				origins = append(origins, o)
			}
		}
		c.CORSOrigins = origins
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		c.LogFormat = v
	}
	if v := os.Getenv("CSV_PATH"); v != "" {
		c.CSVPath = v
	}
	if v := os.Getenv("BATCH_SIZE"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("BATCH_SIZE: %w", err)
		}
		c.BatchSize = n
	}
	return nil
}

// Validate checks that the configuration is usable for the selected driver.
func (c Config) Validate() error {
	switch c.Driver {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return ErrMissingDatabaseURL
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return errors.New("SQLITE_PATH is empty")
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownDriver, c.Driver)
	}
	return c.validateSettings()
}

func (c Config) validateSettings() error {
	if c.QueryTimeout <= 0 {
		return errors.New("query_timeout must be positive")
	}
	if c.BatchSize < 1 {
		return errors.New("batch_size must be >= 1")
	}
	if c.RateLimitRPS < 0 || c.RateLimitBurst < 0 {
		return errors.New("rate limit settings must not be negative")
	}
	return nil
}
