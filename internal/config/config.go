package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/caarlos0/env/v6"
)

// Config represents runtime configuration for the service.
type Config struct {
	BasicConfig BasicConfig               `json:"basic_config"`
	Databases   map[string]DatabaseConfig `json:"databases"`
	Redis       RedisConfig               `json:"redis"`
	Completion  CompletionConfig          `json:"completion"`
	Assistant   AssistantConfig           `json:"assistant"`
	Trial       TrialConfig               `json:"trial"`
	Retention   RetentionConfig           `json:"retention"`
}

type BasicConfig struct {
	ServerAddress string `json:"server_address"`
}

type DatabaseConfig struct {
	DSN      string `json:"dsn"`
	Username string `json:"username"`
	Password string `json:"password"`
	Host     string `json:"host"`
	Port     int    `json:"port"`
	DBName   string `json:"db_name"`
	Params   string `json:"params"`
}

type RedisConfig struct {
	Host     string `json:"host"`
	Port     int    `json:"port"`
	Username string `json:"username"`
	Password string `json:"password"`
	DB       int    `json:"db"`
}

// CompletionConfig describes the chat completion backend.
type CompletionConfig struct {
	Endpoint              string `json:"endpoint"`
	APIKey                string `json:"api_key"`
	ConnectTimeoutSeconds int    `json:"connect_timeout_seconds"`
	ReadTimeoutSeconds    int    `json:"read_timeout_seconds"`
	MaxAttempts           int    `json:"max_attempts"`
	BackoffSeconds        int    `json:"backoff_seconds"`
}

// AssistantConfig carries the feature flags and the token budget knobs.
type AssistantConfig struct {
	Available           bool    `json:"available"`
	ChatHistoryEnabled  bool    `json:"chat_history_enabled"`
	PromptTemplate      string  `json:"prompt_template"`
	MaxTokens           int     `json:"max_tokens"`
	ResponseTokens      int     `json:"response_tokens"`
	CharsPerToken       float64 `json:"chars_per_token"`
	JSONPadding         int     `json:"json_padding"`
	CacheTTLSeconds     int     `json:"cache_ttl_seconds"`
	DefaultMessageCount int     `json:"default_message_count"`
}

// TrialConfig controls the audit trial window. Variations maps an experiment
// variation key to a trial length in days.
type TrialConfig struct {
	DefaultLengthDays int            `json:"default_length_days"`
	ExperimentKey     string         `json:"experiment_key"`
	Variations        map[string]int `json:"variations"`
}

// RetentionConfig controls the batched purge of expired history rows.
type RetentionConfig struct {
	ExpiryDays   int    `json:"expiry_days"`
	BatchSize    int    `json:"batch_size"`
	SleepSeconds int    `json:"sleep_seconds"`
	CronSpec     string `json:"cron_spec"`
}

// envOverrides holds deploy-time secrets that must not live in the config
// file. Empty values leave the file values untouched.
type envOverrides struct {
	CompletionEndpoint string `env:"LEARNING_ASSISTANT_COMPLETION_ENDPOINT"`
	CompletionAPIKey   string `env:"LEARNING_ASSISTANT_COMPLETION_API_KEY"`
	RedisPassword      string `env:"LEARNING_ASSISTANT_REDIS_PASSWORD"`
	DatabasePassword   string `env:"LEARNING_ASSISTANT_DB_PASSWORD"`
	ServerAddress      string `env:"LEARNING_ASSISTANT_SERVER_ADDRESS"`
}

// Load reads configuration from the provided path (defaults to config.json),
// applies environment overrides, and fills defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		path = "config.json"
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve config path: %w", err)
	}

	file, err := os.Open(absPath)
	if err != nil {
		return nil, fmt.Errorf("open config %s: %w", absPath, err)
	}
	defer file.Close()

	var cfg Config
	if err := json.NewDecoder(file).Decode(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}

	if len(cfg.Databases) == 0 {
		return nil, fmt.Errorf("at least one database must be configured")
	}

	var overrides envOverrides
	if err := env.Parse(&overrides); err != nil {
		return nil, fmt.Errorf("parse env overrides: %w", err)
	}
	cfg.applyOverrides(overrides)
	cfg.ApplyDefaults()

	return &cfg, nil
}

func (c *Config) applyOverrides(o envOverrides) {
	if o.CompletionEndpoint != "" {
		c.Completion.Endpoint = o.CompletionEndpoint
	}
	if o.CompletionAPIKey != "" {
		c.Completion.APIKey = o.CompletionAPIKey
	}
	if o.RedisPassword != "" {
		c.Redis.Password = o.RedisPassword
	}
	if o.DatabasePassword != "" {
		for name, db := range c.Databases {
			db.Password = o.DatabasePassword
			c.Databases[name] = db
		}
	}
	if o.ServerAddress != "" {
		c.BasicConfig.ServerAddress = o.ServerAddress
	}
}

// ApplyDefaults fills zero values with the documented defaults. A negative
// trial length is kept as configured; the trial manager clamps it to zero.
func (c *Config) ApplyDefaults() {
	if c.Completion.ConnectTimeoutSeconds <= 0 {
		c.Completion.ConnectTimeoutSeconds = 1
	}
	if c.Completion.ReadTimeoutSeconds <= 0 {
		c.Completion.ReadTimeoutSeconds = 15
	}
	if c.Completion.MaxAttempts <= 0 {
		c.Completion.MaxAttempts = 3
	}
	if c.Completion.BackoffSeconds <= 0 {
		c.Completion.BackoffSeconds = 1
	}
	if c.Assistant.MaxTokens <= 0 {
		c.Assistant.MaxTokens = 16385
	}
	if c.Assistant.ResponseTokens <= 0 {
		c.Assistant.ResponseTokens = 1000
	}
	if c.Assistant.CharsPerToken <= 0 {
		c.Assistant.CharsPerToken = 3.5
	}
	if c.Assistant.JSONPadding <= 0 {
		c.Assistant.JSONPadding = 8
	}
	if c.Assistant.CacheTTLSeconds <= 0 {
		c.Assistant.CacheTTLSeconds = 360
	}
	if c.Assistant.DefaultMessageCount <= 0 {
		c.Assistant.DefaultMessageCount = 50
	}
	if c.Trial.DefaultLengthDays == 0 {
		c.Trial.DefaultLengthDays = 14
	}
	if c.Retention.ExpiryDays <= 0 {
		c.Retention.ExpiryDays = 30
	}
	if c.Retention.BatchSize <= 0 {
		c.Retention.BatchSize = 300
	}
	if c.Retention.SleepSeconds <= 0 {
		c.Retention.SleepSeconds = 10
	}
	if c.Retention.CronSpec == "" {
		c.Retention.CronSpec = "0 2 * * *"
	}
}
