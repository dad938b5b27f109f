// Package config holds Race Control settings: a YAML file, overridden by
// environment variables (including those loaded from .env).
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Database DatabaseConfig `yaml:"database"`
	HTTP     HTTPConfig     `yaml:"http"`
	Admin    AdminConfig    `yaml:"admin"`
	Import   ImportConfig   `yaml:"import"`
	Telegram TelegramConfig `yaml:"telegram"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type DatabaseConfig struct {
	Path string `yaml:"path"`
}

type HTTPConfig struct {
	Addr         string        `yaml:"addr"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
}

// AdminConfig: with an empty password every admin request is refused.
type AdminConfig struct {
	Password string `yaml:"password"`
}

type ImportConfig struct {
	FetchTimeout       time.Duration `yaml:"fetch_timeout"`
	ServiceAccountJSON string        `yaml:"service_account_json"`
	SheetRange         string        `yaml:"sheet_range"`
}

// TelegramConfig: the spectate bot only runs when Token is set.
type TelegramConfig struct {
	Token string `yaml:"token"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "iracing.db"},
		HTTP: HTTPConfig{
			Addr:         ":8080",
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  120 * time.Second,
		},
		Import: ImportConfig{
			FetchTimeout: 30 * time.Second,
			SheetRange:   "A:Z",
		},
		Logging: LoggingConfig{Level: "info", Format: "json"},
	}
}

// Load reads path on top of the defaults, then applies the environment.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case !errors.Is(err, os.ErrNotExist):
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0600)
}

func (c *Config) applyEnv() error {
	setString(&c.Database.Path, "RACECONTROL_DB")
	setString(&c.HTTP.Addr, "RACECONTROL_HTTP_ADDR")
	setString(&c.Admin.Password, "RACECONTROL_ADMIN_PASSWORD")
	setString(&c.Telegram.Token, "TELEGRAM_BOT_TOKEN")
	setString(&c.Import.ServiceAccountJSON, "GOOGLE_SERVICE_ACCOUNT_JSON")
	setString(&c.Logging.Level, "RACECONTROL_LOG_LEVEL")

	if v := strings.TrimSpace(os.Getenv("RACECONTROL_FETCH_TIMEOUT")); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("RACECONTROL_FETCH_TIMEOUT: %w", err)
		}
		c.Import.FetchTimeout = d
	}
	return nil
}

func setString(dst *string, key string) {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		*dst = v
	}
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("database.path is empty")
	}
	if strings.TrimSpace(c.HTTP.Addr) == "" {
		return fmt.Errorf("http.addr is empty")
	}
	if c.Import.FetchTimeout <= 0 {
		return fmt.Errorf("import.fetch_timeout must be positive, got %s", c.Import.FetchTimeout)
	}
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "json", "console":
	default:
		return fmt.Errorf("logging.format %q is not one of json, console", c.Logging.Format)
	}
	return nil
}
