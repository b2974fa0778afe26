package config

import (
	"os"
	"strings"
	"time"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v3"
)

const (
	DefaultPath                = "config.json"
	DefaultListen              = "127.0.0.1:5000"
	DefaultSessionLifetimeDays = 7
	DefaultIdleThreshold       = 300 * time.Second
	DefaultPollInterval        = 5 * time.Second
	DefaultStoreReadyTimeout   = 30 * time.Second
)

// Config is read from a JSON file. YAML is accepted too since JSON is a
// subset of it.
type Config struct {
	ConnectionString    string `yaml:"connection_string"`
	DatabaseName        string `yaml:"database_name"`
	Database            string `yaml:"database"`
	Driver              string `yaml:"driver"`
	SecretKey           string `yaml:"secret_key"`
	SessionLifetimeDays int    `yaml:"session_lifetime_days"`
	Listen              string `yaml:"listen"`
	CORS                CORS   `yaml:"cors"`
	AFK                 AFK    `yaml:"afk"`
	Log                 Log    `yaml:"log"`

	// StoreReadyTimeoutSeconds bounds the startup wait for the store.
	StoreReadyTimeoutSeconds int `yaml:"store_ready_timeout_seconds"`
}

type CORS struct {
	Origins             []string `yaml:"origins"`
	AllowHeaders        []string `yaml:"allow_headers"`
	Methods             []string `yaml:"methods"`
	ExposeHeaders       []string `yaml:"expose_headers"`
	SupportsCredentials bool     `yaml:"supports_credentials"`
}

type AFK struct {
	IdleThresholdSeconds int `yaml:"idle_threshold_seconds"`
	PollIntervalSeconds  int `yaml:"poll_interval_seconds"`
}

type Log struct {
	File    string `yaml:"file"`
	Verbose bool   `yaml:"verbose"`
}

// Load reads and validates the config at path. A missing file or a missing
// connection_string / database name is an error.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, xerrors.Errorf("configuration file does not exist: %w", err)
	}
	defer f.Close()

	var cfg Config
	if err := yaml.NewDecoder(f).Decode(&cfg); err != nil {
		return nil, xerrors.Errorf("decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, xerrors.Errorf("%s: %w", path, err)
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if strings.TrimSpace(c.ConnectionString) == "" {
		return xerrors.New("configuration is missing 'connection_string' setting")
	}
	if c.DBName() == "" {
		return xerrors.New("configuration is missing database name setting (either 'database_name' or 'database')")
	}
	return nil
}

// DBName prefers database_name over database.
func (c *Config) DBName() string {
	if c.DatabaseName != "" {
		return c.DatabaseName
	}
	return c.Database
}

func (c *Config) ListenAddr() string {
	if c.Listen == "" {
		return DefaultListen
	}
	return c.Listen
}

func (c *Config) SessionLifetime() time.Duration {
	days := c.SessionLifetimeDays
	if days <= 0 {
		days = DefaultSessionLifetimeDays
	}
	return time.Duration(days) * 24 * time.Hour
}

func (c *Config) IdleThreshold() time.Duration {
	if c.AFK.IdleThresholdSeconds <= 0 {
		return DefaultIdleThreshold
	}
	return time.Duration(c.AFK.IdleThresholdSeconds) * time.Second
}

func (c *Config) PollInterval() time.Duration {
	if c.AFK.PollIntervalSeconds <= 0 {
		return DefaultPollInterval
	}
	return time.Duration(c.AFK.PollIntervalSeconds) * time.Second
}

func (c *Config) StoreReadyTimeout() time.Duration {
	if c.StoreReadyTimeoutSeconds <= 0 {
		return DefaultStoreReadyTimeout
	}
	return time.Duration(c.StoreReadyTimeoutSeconds) * time.Second
}
