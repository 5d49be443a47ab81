package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `{
	"databases": {
		"sqlite3": {"dsn": ":memory:"}
	}
}`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, minimalConfig))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Completion.ConnectTimeoutSeconds != 1 || cfg.Completion.ReadTimeoutSeconds != 15 {
		t.Fatalf("timeout defaults: %+v", cfg.Completion)
	}
	if cfg.Completion.MaxAttempts != 3 {
		t.Fatalf("max attempts = %d", cfg.Completion.MaxAttempts)
	}
	if cfg.Assistant.MaxTokens != 16385 || cfg.Assistant.ResponseTokens != 1000 {
		t.Fatalf("token defaults: %+v", cfg.Assistant)
	}
	if cfg.Assistant.CharsPerToken != 3.5 || cfg.Assistant.JSONPadding != 8 {
		t.Fatalf("estimator defaults: %+v", cfg.Assistant)
	}
	if cfg.Assistant.CacheTTLSeconds != 360 || cfg.Assistant.DefaultMessageCount != 50 {
		t.Fatalf("assistant defaults: %+v", cfg.Assistant)
	}
	if cfg.Trial.DefaultLengthDays != 14 {
		t.Fatalf("trial default = %d", cfg.Trial.DefaultLengthDays)
	}
	if cfg.Retention.ExpiryDays != 30 || cfg.Retention.BatchSize != 300 || cfg.Retention.SleepSeconds != 10 {
		t.Fatalf("retention defaults: %+v", cfg.Retention)
	}
	if cfg.Retention.CronSpec != "0 2 * * *" {
		t.Fatalf("cron spec = %q", cfg.Retention.CronSpec)
	}
}

func TestLoadKeepsNegativeTrialLength(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `{
		"databases": {"sqlite3": {"dsn": ":memory:"}},
		"trial": {"default_length_days": -5}
	}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	// the trial manager clamps; the config keeps what was written
	if cfg.Trial.DefaultLengthDays != -5 {
		t.Fatalf("trial length = %d, want -5", cfg.Trial.DefaultLengthDays)
	}
}

func TestLoadReadsFileValues(t *testing.T) {
	cfg, err := Load(writeConfigFile(t, `{
		"basic_config": {"server_address": ":9999"},
		"databases": {"sqlite3": {"dsn": "file:test.db"}},
		"completion": {"endpoint": "https://api.example.com/chat", "max_attempts": 5},
		"assistant": {"available": true, "chat_history_enabled": true, "max_tokens": 4096},
		"trial": {"default_length_days": 7, "variations": {"28day": 28}}
	}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.BasicConfig.ServerAddress != ":9999" {
		t.Fatalf("server address = %q", cfg.BasicConfig.ServerAddress)
	}
	if cfg.Completion.Endpoint != "https://api.example.com/chat" || cfg.Completion.MaxAttempts != 5 {
		t.Fatalf("completion: %+v", cfg.Completion)
	}
	if !cfg.Assistant.Available || !cfg.Assistant.ChatHistoryEnabled || cfg.Assistant.MaxTokens != 4096 {
		t.Fatalf("assistant: %+v", cfg.Assistant)
	}
	if cfg.Trial.DefaultLengthDays != 7 || cfg.Trial.Variations["28day"] != 28 {
		t.Fatalf("trial: %+v", cfg.Trial)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("LEARNING_ASSISTANT_COMPLETION_ENDPOINT", "https://override.example.com")
	t.Setenv("LEARNING_ASSISTANT_COMPLETION_API_KEY", "env-key")
	t.Setenv("LEARNING_ASSISTANT_DB_PASSWORD", "env-pass")
	t.Setenv("LEARNING_ASSISTANT_SERVER_ADDRESS", ":7070")

	cfg, err := Load(writeConfigFile(t, `{
		"basic_config": {"server_address": ":8080"},
		"databases": {"mysql": {"host": "db", "password": "file-pass"}},
		"completion": {"endpoint": "https://file.example.com", "api_key": "file-key"}
	}`))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Completion.Endpoint != "https://override.example.com" || cfg.Completion.APIKey != "env-key" {
		t.Fatalf("completion overrides: %+v", cfg.Completion)
	}
	if cfg.Databases["mysql"].Password != "env-pass" {
		t.Fatalf("db password = %q", cfg.Databases["mysql"].Password)
	}
	if cfg.BasicConfig.ServerAddress != ":7070" {
		t.Fatalf("server address = %q", cfg.BasicConfig.ServerAddress)
	}
}

func TestLoadRequiresDatabase(t *testing.T) {
	if _, err := Load(writeConfigFile(t, `{"databases": {}}`)); err == nil {
		t.Fatalf("expected error for empty databases")
	}
	if _, err := Load(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
