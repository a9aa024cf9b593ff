package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	App           AppConfig           `yaml:"app"`
	Redis         RedisConfig         `yaml:"redis"`
	Store         StoreConfig         `yaml:"store"`
	Notifications NotificationsConfig `yaml:"notifications"`
	API           APIConfig           `yaml:"api"`
	Admins        []string            `yaml:"admins"`
	Logging       LoggingConfig       `yaml:"logging"`
	Monitoring    MonitoringConfig    `yaml:"monitoring"`
}

type AppConfig struct {
	Name        string `yaml:"name"`
	Environment string `yaml:"environment"`
	Version     string `yaml:"version"`
}

type RedisConfig struct {
	Address  string `yaml:"address"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
}

type StoreConfig struct {
	// Backend selects the durable store: "redis" or "memory".
	Backend string `yaml:"backend"`

	// SubmitAttempts is the transaction retry budget for one submission.
	SubmitAttempts int `yaml:"submit_attempts"`

	// SubmitTimeoutSeconds bounds a submission end to end, transaction
	// retries included.
	SubmitTimeoutSeconds int `yaml:"submit_timeout_seconds"`

	// Conflict backoff parameters.
	RetryInitialDelayMS int     `yaml:"retry_initial_delay_ms"`
	RetryMaxDelayMS     int     `yaml:"retry_max_delay_ms"`
	RetryBackoffFactor  float64 `yaml:"retry_backoff_factor"`
}

type NotificationsConfig struct {
	// TelegramToken empty means notifications are disabled, not an error.
	TelegramToken string  `yaml:"telegram_token"`
	ChatIDs       []int64 `yaml:"chat_ids"`

	// JournalPath is the SQLite file for the delivery journal.
	JournalPath string `yaml:"journal_path"`

	MaxRetries int `yaml:"max_retries"`
}

type APIConfig struct {
	Enabled   bool               `yaml:"enabled"`
	HTTP      APIHTTPConfig      `yaml:"http"`
	Auth      APIAuthConfig      `yaml:"auth"`
	RateLimit APIRateLimitConfig `yaml:"rate_limit"`
}

type APIHTTPConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

type APIAuthConfig struct {
	Enabled        bool           `yaml:"enabled"`
	HeaderAPIKey   string         `yaml:"header_api_key"`
	HeaderIdentity string         `yaml:"header_identity"`
	APIKeys        []APIClientKey `yaml:"api_keys"`
}

type APIClientKey struct {
	Key         string   `yaml:"key"`
	Name        string   `yaml:"name"`
	Permissions []string `yaml:"permissions"`
}

type APIRateLimitConfig struct {
	RPS   float64 `yaml:"rps"`
	Burst int     `yaml:"burst"`
}

type LoggingConfig struct {
	Level    string `yaml:"level"`
	Format   string `yaml:"format"`
	Output   string `yaml:"output"`
	FilePath string `yaml:"file_path"`
}

type MonitoringConfig struct {
	PrometheusEnabled bool `yaml:"prometheus_enabled"`
	PrometheusPort    int  `yaml:"prometheus_port"`
}

func Load(configPath string) (*Config, error) {
	// .env является опциональным
	if err := godotenv.Load(".env"); err != nil && !os.IsNotExist(err) {
		return nil, err
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}

	// Предварительная замена переменных окружения в YAML
	expandedData := []byte(os.ExpandEnv(string(data)))

	var config Config
	if err := yaml.Unmarshal(expandedData, &config); err != nil {
		return nil, err
	}

	config.applyDefaults()

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

func (c *Config) Validate() error {
	switch c.Store.Backend {
	case "redis":
		if c.Redis.Address == "" {
			return errors.New("redis address is required for the redis store backend")
		}
	case "memory":
	default:
		return fmt.Errorf("unknown store backend: %s", c.Store.Backend)
	}

	if len(c.Notifications.ChatIDs) == 0 && c.Notifications.TelegramToken != "" {
		return errors.New("notifications.chat_ids is required when a telegram token is set")
	}

	for _, admin := range c.Admins {
		if strings.TrimSpace(admin) == "" {
			return errors.New("admins must not contain empty entries")
		}
	}

	return nil
}

func (c *Config) applyDefaults() {
	if c.Store.Backend == "" {
		c.Store.Backend = "redis"
	}
	if c.Store.SubmitAttempts == 0 {
		c.Store.SubmitAttempts = 3
	}
	if c.Store.SubmitTimeoutSeconds == 0 {
		c.Store.SubmitTimeoutSeconds = 10
	}
	if c.Store.RetryInitialDelayMS == 0 {
		c.Store.RetryInitialDelayMS = 50
	}
	if c.Store.RetryMaxDelayMS == 0 {
		c.Store.RetryMaxDelayMS = 1000
	}
	if c.Store.RetryBackoffFactor == 0 {
		c.Store.RetryBackoffFactor = 2
	}

	if c.Notifications.JournalPath == "" {
		c.Notifications.JournalPath = "data/notifications.db"
	}
	if c.Notifications.MaxRetries == 0 {
		c.Notifications.MaxRetries = 5
	}

	if c.API.HTTP.Port == 0 {
		c.API.HTTP.Port = 8080
	}
	if !c.API.HTTP.Enabled && c.API.Enabled {
		c.API.HTTP.Enabled = true
	}
	if c.API.Auth.HeaderAPIKey == "" {
		c.API.Auth.HeaderAPIKey = "x-api-key"
	}
	if c.API.Auth.HeaderIdentity == "" {
		c.API.Auth.HeaderIdentity = "x-identity"
	}

	if c.Monitoring.PrometheusEnabled && c.Monitoring.PrometheusPort == 0 {
		c.Monitoring.PrometheusPort = 9090
	}
}
