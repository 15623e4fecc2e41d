// Package config provides configuration management for idea-tracker.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	// DefaultPort is the HTTP port used when PORT is not set.
	DefaultPort = 5000

	// DataDirName is the directory under $HOME holding the database and settings.
	DataDirName = ".idea-tracker"

	// Database drivers.
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds the runtime settings. Values come from settings.json in the data
// directory and are overridden by environment variables.
type Config struct {
	Host                 string        `json:"IDEA_TRACKER_HOST" env:"IDEA_TRACKER_HOST" env-default:"0.0.0.0"`
	Password             string        `json:"IDEA_TRACKER_PASSWORD" env:"IDEA_TRACKER_PASSWORD"`
	DBDriver             string        `json:"IDEA_TRACKER_DB_DRIVER" env:"IDEA_TRACKER_DB_DRIVER" env-default:"sqlite"`
	DBDSN                string        `json:"IDEA_TRACKER_DB_DSN" env:"IDEA_TRACKER_DB_DSN"`
	DBPath               string        `json:"IDEA_TRACKER_DB_PATH" env:"IDEA_TRACKER_DB_PATH"`
	LogLevel             string        `json:"IDEA_TRACKER_LOG_LEVEL" env:"IDEA_TRACKER_LOG_LEVEL" env-default:"info"`
	LogFormat            string        `json:"IDEA_TRACKER_LOG_FORMAT" env:"IDEA_TRACKER_LOG_FORMAT" env-default:"console"`
	SessionTimeout       time.Duration `json:"-" env:"IDEA_TRACKER_SESSION_TIMEOUT" env-default:"24h"`
	ShutdownTimeout      time.Duration `json:"-" env:"IDEA_TRACKER_SHUTDOWN_TIMEOUT" env-default:"10s"`
	Port                 int           `json:"PORT" env:"PORT" env-default:"5000"`
	MaxConns             int           `json:"IDEA_TRACKER_MAX_CONNS" env:"IDEA_TRACKER_MAX_CONNS" env-default:"4"`
	ResearchLogLimit     int           `json:"IDEA_TRACKER_RESEARCH_LOG_LIMIT" env:"IDEA_TRACKER_RESEARCH_LOG_LIMIT" env-default:"20"`
	DuplicateThreshold   float64       `json:"IDEA_TRACKER_DUPLICATE_THRESHOLD" env:"IDEA_TRACKER_DUPLICATE_THRESHOLD" env-default:"0.8"`
	RequireLoginForReads bool          `json:"IDEA_TRACKER_REQUIRE_LOGIN_FOR_READS" env:"IDEA_TRACKER_REQUIRE_LOGIN_FOR_READS" env-default:"false"`
	WatchSettings        bool          `json:"IDEA_TRACKER_WATCH_SETTINGS" env:"IDEA_TRACKER_WATCH_SETTINGS" env-default:"true"`
}

var (
	global     *Config
	globalOnce sync.Once
)

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		Host:               "0.0.0.0",
		Port:               DefaultPort,
		DBDriver:           DriverSQLite,
		DBPath:             DBPath(),
		MaxConns:           4,
		LogLevel:           "info",
		LogFormat:          "console",
		SessionTimeout:     24 * time.Hour,
		ShutdownTimeout:    10 * time.Second,
		ResearchLogLimit:   20,
		DuplicateThreshold: 0.8,
		WatchSettings:      true,
	}
}

// Load reads settings.json (if present) and the environment.
// A malformed settings file is logged and ignored.
func Load() (*Config, error) {
	var cfg Config

	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, &cfg); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Failed to parse settings file, using environment only")
			cfg = Config{}
			if err := cleanenv.ReadEnv(&cfg); err != nil {
				return nil, fmt.Errorf("config: read env: %w", err)
			}
		}
	} else if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("config: read env: %w", err)
	}

	if cfg.DBPath == "" {
		cfg.DBPath = DBPath()
	}
	cfg.DBDriver = strings.ToLower(strings.TrimSpace(cfg.DBDriver))

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validate: %w", err)
	}
	return &cfg, nil
}

// Get returns the process-wide configuration, loading it on first use.
// Falls back to defaults when loading fails.
func Get() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			log.Warn().Err(err).Msg("Failed to load config, using defaults")
			cfg = Default()
		}
		global = cfg
	})
	return global
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	var errs []error

	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("port %d out of range", c.Port))
	}
	if c.DuplicateThreshold > 1 {
		errs = append(errs, fmt.Errorf("duplicate threshold %.2f above 1", c.DuplicateThreshold))
	}
	switch c.DBDriver {
	case DriverSQLite:
	case DriverPostgres:
		if c.DBDSN == "" {
			errs = append(errs, errors.New("postgres driver requires IDEA_TRACKER_DB_DSN"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown db driver %q", c.DBDriver))
	}
	if c.SessionTimeout <= 0 {
		errs = append(errs, errors.New("session timeout must be positive"))
	}
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		errs = append(errs, fmt.Errorf("log level: %w", err))
	}

	return errors.Join(errs...)
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Level returns the parsed log level, defaulting to info.
func (c *Config) Level() zerolog.Level {
	level, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return level
}

// DataDir returns the data directory. IDEA_TRACKER_DATA_DIR overrides the default.
func DataDir() string {
	if dir := os.Getenv("IDEA_TRACKER_DATA_DIR"); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return filepath.Join(home, DataDirName)
}

// DBPath returns the default SQLite database path.
func DBPath() string {
	return filepath.Join(DataDir(), "ideas.db")
}

// SettingsPath returns the settings file path.
func SettingsPath() string {
	return filepath.Join(DataDir(), "settings.json")
}

// EnsureDataDir creates the data directory if it does not exist.
func EnsureDataDir() error {
	return os.MkdirAll(DataDir(), 0750)
}

// EnsureSettings writes a default settings file if none exists.
func EnsureSettings() error {
	path := SettingsPath()
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	defaults := map[string]interface{}{
		"PORT":                   DefaultPort,
		"IDEA_TRACKER_DB_DRIVER": DriverSQLite,
		"IDEA_TRACKER_LOG_LEVEL": "info",
	}
	data, err := json.MarshalIndent(defaults, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

// EnsureAll creates the data directory and settings file.
func EnsureAll() error {
	if err := EnsureDataDir(); err != nil {
		return err
	}
	return EnsureSettings()
}
